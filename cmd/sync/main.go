// Command sync pulls the Open Food Facts catalog into the local store.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/purbeurre/backend/config"
	"github.com/purbeurre/backend/internal/domain"
	"github.com/purbeurre/backend/internal/infrastructure/openfoodfacts"
	"github.com/purbeurre/backend/internal/infrastructure/pagecache"
	"github.com/purbeurre/backend/internal/infrastructure/recovery"
	"github.com/purbeurre/backend/internal/infrastructure/store"
	"github.com/purbeurre/backend/internal/logging"
	"github.com/purbeurre/backend/internal/usecase"
	"github.com/spf13/pflag"
	"go.uber.org/zap"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "sync: %v\n", err)
		os.Exit(1)
	}
}

func newFlagSet() *pflag.FlagSet {
	flags := pflag.NewFlagSet("sync", pflag.ContinueOnError)
	flags.String("config", "", "path to a config file")
	flags.Int("start-page", 0, "first product page to fetch (0 resumes from the recovery state)")
	flags.Int("nb-pages", 0, "maximum number of product pages to process (0 is unlimited)")
	flags.Bool("from-cache", false, "replay cached pages before hitting the network")
	flags.Bool("strict", false, "reject records missing a required field")
	flags.StringSlice("categories-tags", nil, "only keep products in one of these categories")
	flags.Bool("hard-reset", false, "delete products not favorited by any user before syncing")
	flags.StringSlice("code", nil, "sync only these product codes instead of the page loop")
	flags.String("cache-dir", "", "directory of cached raw pages")
	flags.String("state-dir", "", "directory of the recovery state file")
	flags.String("store-driver", "", "catalog store driver: sqlite, postgres or memory")
	flags.String("store-dsn", "", "catalog store data source name")
	flags.String("log-level", "", "log level")
	return flags
}

func run(args []string) error {
	flags := newFlagSet()
	if err := flags.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}

	cfg, err := config.LoadWithFlags(flags)
	if err != nil {
		return err
	}

	logger, err := logging.New(cfg.Log.Level, cfg.Log.Development)
	if err != nil {
		return err
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	repo, closeStore, err := store.Open(ctx, cfg.Store)
	if err != nil {
		return err
	}
	defer closeStore()

	client := openfoodfacts.NewClient(openfoodfacts.ClientConfig{
		UserAgent:         cfg.Source.UserAgent,
		Timeout:           cfg.Source.Timeout,
		RequestsPerSecond: cfg.Source.RequestsPerSecond,
		Burst:             cfg.Source.Burst,
		MaxAttempts:       cfg.Source.MaxAttempts,
	}, logger)

	pages := pagecache.NewFileCache(cfg.Sync.CacheDir)
	state := recovery.NewFileStore(cfg.Sync.StateDir)
	logger.Infow("Sync configured",
		"source", cfg.Source.BaseURL,
		"store", cfg.Store.Driver,
		"cache_dir", pages.Dir(),
		"state_file", state.Path())

	svc := usecase.NewSyncService(
		client,
		pages,
		state,
		repo,
		usecase.SyncConfig{
			Products:   openfoodfacts.ProductSpec(cfg.Source.BaseURL),
			Categories: openfoodfacts.CategorySpec(cfg.Source.BaseURL),
		},
		logger,
	)

	if len(cfg.Sync.Codes) > 0 {
		return syncElements(ctx, svc, cfg, logger)
	}

	report, err := svc.Run(ctx, usecase.SyncOptions{
		StartPage:    cfg.Sync.StartPage,
		PageBudget:   cfg.Sync.NbPages,
		FromCache:    cfg.Sync.FromCache,
		Strict:       cfg.Sync.Strict,
		CategoryTags: cfg.Sync.CategoriesTags,
		HardReset:    cfg.Sync.HardReset,
	})
	if report != nil {
		printJSON(report)
	}
	if err != nil {
		logger.Errorw("Sync failed", "error", err)
		return err
	}
	return nil
}

// elementReport summarizes a run over explicit product codes
type elementReport struct {
	Codes  []string               `json:"codes"`
	Stats  usecase.ReconcileStats `json:"stats"`
	Failed map[string]string      `json:"failed,omitempty"`
}

// syncElements fetches and reconciles each configured product code.
// A failing code is reported and the remaining codes are still processed.
func syncElements(ctx context.Context, svc *usecase.SyncService, cfg *config.Config, logger *zap.SugaredLogger) error {
	spec := openfoodfacts.ProductSpec(cfg.Source.BaseURL)
	opts := usecase.ReconcileOptions{Strict: cfg.Sync.Strict}
	if len(cfg.Sync.CategoriesTags) > 0 {
		opts.Filters = map[string][]string{domain.FieldCategoriesTags: cfg.Sync.CategoriesTags}
	}

	report := elementReport{Codes: cfg.Sync.Codes}
	for _, code := range cfg.Sync.Codes {
		stats, err := svc.SyncElement(ctx, spec, code, cfg.Sync.FromCache, opts)
		report.Stats.Add(stats)
		if err != nil {
			logger.Errorw("Product sync failed", "code", code, "error", err)
			if report.Failed == nil {
				report.Failed = make(map[string]string)
			}
			report.Failed[code] = err.Error()
		}
	}
	printJSON(report)

	if len(report.Failed) > 0 {
		return fmt.Errorf("%d of %d products failed", len(report.Failed), len(report.Codes))
	}
	return nil
}

func printJSON(v any) {
	out, _ := json.MarshalIndent(v, "", "  ")
	fmt.Println(string(out))
}
