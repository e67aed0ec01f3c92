package usecase

import (
	"context"
	"sort"
	"strings"

	"github.com/purbeurre/backend/internal/domain"
	"go.uber.org/zap"
)

// stopWords never score as a phrase on their own; they still score token by token
var stopWords = map[string]bool{
	"de":  true,
	"à":   true,
	"le":  true,
	"la":  true,
	"aux": true,
}

// ProductFinder is the read side of the catalog used by search
type ProductFinder interface {
	FindProductsByName(ctx context.Context, terms []string) ([]domain.Product, error)
}

// SearchService ranks catalog products against a free-text query
type SearchService struct {
	finder ProductFinder
	log    *zap.SugaredLogger
}

// NewSearchService creates a new search service
func NewSearchService(finder ProductFinder, log *zap.SugaredLogger) *SearchService {
	return &SearchService{
		finder: finder,
		log:    log.Named("search"),
	}
}

// Windows returns every contiguous run of tokens, longest first.
// Runs of equal length keep their position order; n tokens give n(n+1)/2 windows.
func Windows(tokens []string) [][]string {
	n := len(tokens)
	windows := make([][]string, 0, n*(n+1)/2)
	for size := n; size >= 1; size-- {
		for start := 0; start+size <= n; start++ {
			windows = append(windows, tokens[start:start+size])
		}
	}
	return windows
}

// Search scores products by the longest query window their name matches.
//
// A window of length L scores 2L when the name contains the joined phrase and 2L-1 when it
// contains every token of the window. Products without a nutrition grade never match.
// A product keeps the first score it receives, and the result is ordered by weight, ties in
// discovery order. An empty or blank query returns no results.
func (s *SearchService) Search(ctx context.Context, query string) ([]domain.SearchResult, error) {
	tokens := strings.Fields(query)
	results := []domain.SearchResult{}
	if len(tokens) == 0 {
		return results, nil
	}

	seen := make(map[string]bool)
	collect := func(terms []string, weight int) error {
		products, err := s.finder.FindProductsByName(ctx, terms)
		if err != nil {
			return err
		}
		for _, p := range products {
			if seen[p.Code] {
				continue
			}
			seen[p.Code] = true
			results = append(results, domain.SearchResult{Product: p, Weight: weight})
		}
		return nil
	}

	for _, window := range Windows(tokens) {
		weight := 2 * len(window)
		phrase := strings.Join(window, " ")

		if !stopWords[phrase] {
			if err := collect([]string{phrase}, weight); err != nil {
				return nil, err
			}
		}
		if err := collect(window, weight-1); err != nil {
			return nil, err
		}
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Weight > results[j].Weight
	})

	s.log.Debugw("Search completed", "query", query, "windows", len(tokens)*(len(tokens)+1)/2, "results", len(results))
	return results, nil
}
