package usecase

import (
	"context"
	"strings"
	"time"

	"github.com/purbeurre/backend/internal/domain"
	"go.uber.org/zap"
)

// Searcher ranks products for a free-text query
type Searcher interface {
	Search(ctx context.Context, query string) ([]domain.SearchResult, error)
}

// ResultCache stores ranked results by normalized query
type ResultCache interface {
	Get(key string) ([]domain.SearchResult, error)
	Set(key string, results []domain.SearchResult, ttl time.Duration)
}

// CachedSearcher serves repeated queries from a cache for ttl.
// Queries differing only in whitespace share an entry.
type CachedSearcher struct {
	next  Searcher
	cache ResultCache
	ttl   time.Duration
	log   *zap.SugaredLogger
}

// NewCachedSearcher wraps next with a result cache
func NewCachedSearcher(next Searcher, cache ResultCache, ttl time.Duration, log *zap.SugaredLogger) *CachedSearcher {
	return &CachedSearcher{
		next:  next,
		cache: cache,
		ttl:   ttl,
		log:   log.Named("search_cache"),
	}
}

// Search returns cached results when present, else searches and caches the outcome
func (s *CachedSearcher) Search(ctx context.Context, query string) ([]domain.SearchResult, error) {
	key := strings.Join(strings.Fields(query), " ")
	if key == "" {
		return s.next.Search(ctx, query)
	}

	if results, err := s.cache.Get(key); err == nil {
		s.log.Debugw("Cache hit", "query", key)
		return results, nil
	}

	results, err := s.next.Search(ctx, query)
	if err != nil {
		return nil, err
	}
	s.cache.Set(key, results, s.ttl)
	return results, nil
}
