package usecase

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/purbeurre/backend/internal/domain"
	"github.com/purbeurre/backend/internal/jsonnode"
	"go.uber.org/zap"
)

// sparseCategoryMax is the product count at or below which a category is dropped after a sync
const sparseCategoryMax = 1

// SyncOptions holds the batch controls of a sync run
type SyncOptions struct {
	// StartPage overrides the recovery cursor when positive
	StartPage int `validate:"gte=0"`
	// PageBudget caps the number of product pages fetched; 0 means no cap
	PageBudget int `validate:"gte=0"`
	// FromCache replays cached pages and only hits the network on a cache miss
	FromCache bool
	Strict    bool
	// CategoryTags restricts products to those tagged with at least one of these categories
	CategoryTags []string `validate:"dive,required"`
	// HardReset deletes every product nobody favorited before fetching
	HardReset bool
}

// CleanupStats counts the rows removed by each cleanup step
type CleanupStats struct {
	UnfavoritedProducts   int64 `json:"unfavoritedProducts"`
	OrphanCategories      int64 `json:"orphanCategories"`
	IncompleteProducts    int64 `json:"incompleteProducts"`
	EmptyGradeProducts    int64 `json:"emptyGradeProducts"`
	SparseCategories      int64 `json:"sparseCategories"`
	UncategorizedProducts int64 `json:"uncategorizedProducts"`
}

// SyncReport summarizes one sync run
type SyncReport struct {
	RunID          string         `json:"runId"`
	StartPage      int            `json:"startPage"`
	NextPage       int            `json:"nextPage"`
	PagesProcessed int            `json:"pagesProcessed"`
	Truncated      bool           `json:"truncated"`
	Products       ReconcileStats `json:"products"`
	Categories     ReconcileStats `json:"categories"`
	Cleanup        CleanupStats   `json:"cleanup"`
}

// SyncConfig holds the entity specs a sync run works on
type SyncConfig struct {
	Products   domain.EntitySpec
	Categories domain.EntitySpec
}

// SyncService pulls the external catalog into the local store.
// Only one run may use a given cache and state directory at a time.
type SyncService struct {
	source     domain.CatalogSource
	cache      domain.PageCache
	state      domain.RecoveryStateStore
	repo       domain.CatalogRepository
	reconciler *Reconciler
	products   domain.EntitySpec
	categories domain.EntitySpec
	validate   *validator.Validate
	log        *zap.SugaredLogger
}

// NewSyncService creates a new sync orchestrator
func NewSyncService(
	source domain.CatalogSource,
	cache domain.PageCache,
	state domain.RecoveryStateStore,
	repo domain.CatalogRepository,
	cfg SyncConfig,
	log *zap.SugaredLogger,
) *SyncService {
	return &SyncService{
		source:     source,
		cache:      cache,
		state:      state,
		repo:       repo,
		reconciler: NewReconciler(repo, log),
		products:   cfg.Products,
		categories: cfg.Categories,
		validate:   validator.New(validator.WithRequiredStructEnabled()),
		log:        log.Named("sync"),
	}
}

// Run performs a full sync: optional hard reset, categories, the product page loop, then cleanup.
//
// The recovery cursor always holds the next page to fetch. It is advanced after every
// reconciled page and reset to 1 when the source runs out of pages. Fetch, decode, cache
// and cursor failures abort the run; the report reflects the work done so far.
func (s *SyncService) Run(ctx context.Context, opts SyncOptions) (*SyncReport, error) {
	if err := s.validate.Struct(opts); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidRequest, err)
	}

	report := &SyncReport{RunID: uuid.NewString()}
	log := s.log.With("run_id", report.RunID)
	log.Infow("Sync started",
		"start_page", opts.StartPage, "page_budget", opts.PageBudget, "from_cache", opts.FromCache,
		"strict", opts.Strict, "category_tags", opts.CategoryTags, "hard_reset", opts.HardReset)
	s.logCounts(ctx, log, "Catalog before sync")

	if opts.HardReset {
		if err := s.hardReset(ctx, log, &report.Cleanup); err != nil {
			return report, err
		}
	}

	categories, err := s.loadList(ctx, log, s.categories, 1, opts.FromCache)
	if err != nil {
		return report, err
	}
	report.Categories, err = s.reconciler.Upsert(ctx, s.categories, categories.Records, ReconcileOptions{Strict: opts.Strict})
	if err != nil {
		return report, err
	}
	log.Infow("Categories reconciled", "records", len(categories.Records), "stats", report.Categories)

	if err := s.syncProducts(ctx, log, opts, report); err != nil {
		return report, err
	}

	if err := s.cleanup(ctx, log, opts.Strict, &report.Cleanup); err != nil {
		return report, err
	}

	s.logCounts(ctx, log, "Catalog after sync")
	log.Infow("Sync finished",
		"pages", report.PagesProcessed, "next_page", report.NextPage, "truncated", report.Truncated,
		"products", report.Products, "cleanup", report.Cleanup)
	return report, nil
}

func (s *SyncService) syncProducts(ctx context.Context, log *zap.SugaredLogger, opts SyncOptions, report *SyncReport) error {
	start := opts.StartPage
	if start == 0 {
		var err error
		if start, err = s.state.Get(ctx); err != nil {
			return fmt.Errorf("failed to read recovery cursor: %w", err)
		}
	}
	report.StartPage = start
	report.NextPage = start

	reconcileOpts := ReconcileOptions{Strict: opts.Strict}
	if len(opts.CategoryTags) > 0 {
		reconcileOpts.Filters = map[string][]string{domain.FieldCategoriesTags: opts.CategoryTags}
	}

	for page := start; ; page++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		list, err := s.loadList(ctx, log, s.products, page, opts.FromCache)
		if err != nil {
			return err
		}
		stats, err := s.reconciler.Upsert(ctx, s.products, list.Records, reconcileOpts)
		report.Products.Add(stats)
		if err != nil {
			return err
		}
		report.PagesProcessed++
		log.Infow("Page reconciled", "page", page, "records", len(list.Records), "stats", stats)

		if list.Last || len(list.Records) == 0 {
			if err := s.state.Reset(ctx); err != nil {
				return fmt.Errorf("failed to reset recovery cursor: %w", err)
			}
			report.NextPage = 1
			log.Infow("Source exhausted", "last_page", page)
			return nil
		}

		next := page + 1
		if err := s.state.Set(ctx, next); err != nil {
			return fmt.Errorf("failed to save recovery cursor: %w", err)
		}
		report.NextPage = next

		if opts.PageBudget > 0 && next >= start+opts.PageBudget {
			report.Truncated = true
			log.Infow("Page budget exhausted", "next_page", next)
			return nil
		}
	}
}

// loadList returns a list page from the cache in cache mode, else from the source.
// Pages fetched from the source are written to the cache before they are used.
func (s *SyncService) loadList(ctx context.Context, log *zap.SugaredLogger, spec domain.EntitySpec, page int, fromCache bool) (*domain.ListPage, error) {
	suffix := ""
	if spec.Paginated {
		suffix = strconv.Itoa(page)
	}

	if fromCache {
		raw, err := s.cache.Read(spec.Name, domain.PageList, suffix)
		switch {
		case err == nil:
			root, err := jsonnode.Parse(raw)
			if err != nil || root.Kind() != jsonnode.KindArray {
				return nil, fmt.Errorf("%w: cached %s page %s is not a JSON array", domain.ErrDecode, spec.Name, suffix)
			}
			log.Debugw("Page replayed from cache", "entity", spec.Name, "page", page)
			return &domain.ListPage{Records: root.Items(), Raw: raw}, nil
		case errors.Is(err, domain.ErrCacheMiss):
			log.Debugw("Cache miss, fetching from source", "entity", spec.Name, "page", page)
		default:
			return nil, err
		}
	}

	list, err := s.source.FetchList(ctx, spec, page)
	if err != nil {
		return nil, err
	}
	path, err := s.cache.Write(spec.Name, domain.PageList, suffix, list.Raw)
	if err != nil {
		return nil, fmt.Errorf("failed to cache %s page %d: %w", spec.Name, page, err)
	}
	log.Debugw("Page cached", "entity", spec.Name, "page", page, "path", path)
	return list, nil
}

// SyncElement fetches a single record by identifier and reconciles it
func (s *SyncService) SyncElement(ctx context.Context, spec domain.EntitySpec, id string, fromCache bool, opts ReconcileOptions) (ReconcileStats, error) {
	if id == "" {
		return ReconcileStats{}, fmt.Errorf("%w: empty %s identifier", domain.ErrInvalidRequest, spec.Name)
	}

	var record jsonnode.Node
	loaded := false
	if fromCache {
		raw, err := s.cache.Read(spec.Name, domain.PageElement, id)
		switch {
		case err == nil:
			if record, err = jsonnode.Parse(raw); err != nil || record.Kind() != jsonnode.KindObject {
				return ReconcileStats{}, fmt.Errorf("%w: cached %s %s is not a JSON object", domain.ErrDecode, spec.Name, id)
			}
			loaded = true
		case !errors.Is(err, domain.ErrCacheMiss):
			return ReconcileStats{}, err
		}
	}

	if !loaded {
		element, err := s.source.FetchElement(ctx, spec, id)
		if err != nil {
			return ReconcileStats{}, err
		}
		if _, err := s.cache.Write(spec.Name, domain.PageElement, id, element.Raw); err != nil {
			return ReconcileStats{}, fmt.Errorf("failed to cache %s %s: %w", spec.Name, id, err)
		}
		record = element.Record
	}

	return s.reconciler.Upsert(ctx, spec, []jsonnode.Node{record}, opts)
}

// hardReset removes every product no user favorited, then the categories left empty
func (s *SyncService) hardReset(ctx context.Context, log *zap.SugaredLogger, stats *CleanupStats) error {
	var err error
	if stats.UnfavoritedProducts, err = s.repo.DeleteUnfavoritedProducts(ctx); err != nil {
		return err
	}
	if stats.OrphanCategories, err = s.repo.DeleteOrphanCategories(ctx); err != nil {
		return err
	}
	log.Infow("Hard reset done", "products", stats.UnfavoritedProducts, "categories", stats.OrphanCategories)
	return nil
}

func (s *SyncService) cleanup(ctx context.Context, log *zap.SugaredLogger, strict bool, stats *CleanupStats) error {
	var err error
	if strict && len(s.products.StrictRequired) > 0 {
		if stats.IncompleteProducts, err = s.repo.DeleteProductsMissingFields(ctx, s.products.StrictRequired); err != nil {
			return err
		}
	}
	if stats.EmptyGradeProducts, err = s.repo.DeleteProductsWithEmptyGrade(ctx); err != nil {
		return err
	}
	if stats.SparseCategories, err = s.repo.DeleteSparseCategories(ctx, sparseCategoryMax); err != nil {
		return err
	}
	if stats.UncategorizedProducts, err = s.repo.DeleteUncategorizedProducts(ctx); err != nil {
		return err
	}
	log.Infow("Cleanup done",
		"incomplete_products", stats.IncompleteProducts,
		"empty_grade_products", stats.EmptyGradeProducts,
		"sparse_categories", stats.SparseCategories,
		"uncategorized_products", stats.UncategorizedProducts)
	return nil
}

func (s *SyncService) logCounts(ctx context.Context, log *zap.SugaredLogger, msg string) {
	kv := make([]any, 0, 6)
	for _, entity := range []string{domain.EntityProduct, domain.EntityCategory, domain.EntityUser} {
		n, err := s.repo.Count(ctx, entity)
		if err != nil {
			log.Warnw("Failed to count entities", "entity", entity, "error", err)
			continue
		}
		kv = append(kv, entity+"s", n)
	}
	log.Infow(msg, kv...)
}
