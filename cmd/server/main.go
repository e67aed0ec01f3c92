package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/purbeurre/backend/config"
	httpDelivery "github.com/purbeurre/backend/internal/delivery/http"
	"github.com/purbeurre/backend/internal/domain"
	"github.com/purbeurre/backend/internal/infrastructure/cache"
	"github.com/purbeurre/backend/internal/infrastructure/store"
	"github.com/purbeurre/backend/internal/logging"
	"github.com/purbeurre/backend/internal/usecase"
	"github.com/spf13/pflag"
)

func main() {
	flags := pflag.NewFlagSet("server", pflag.ExitOnError)
	flags.String("config", "", "path to a config file")
	flags.String("port", "", "HTTP listen port")
	flags.String("log-level", "", "log level")
	flags.Parse(os.Args[1:])

	// Load configuration
	cfg, err := config.LoadWithFlags(flags)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger, err := logging.New(cfg.Log.Level, cfg.Server.Environment == "development")
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer logger.Sync()

	logger.Infow("Starting PurBeurre Backend v1.0.0",
		"environment", cfg.Server.Environment,
		"port", cfg.Server.Port,
		"store", cfg.Store.Driver)

	// Initialize infrastructure dependencies
	repo, closeStore, err := store.Open(context.Background(), cfg.Store)
	if err != nil {
		logger.Fatalw("Failed to open catalog store", "error", err)
	}
	defer closeStore()

	// Initialize usecase layer
	var searcher usecase.Searcher = usecase.NewSearchService(repo, logger)
	if cfg.Cache.SearchTTL > 0 {
		resultCache := cache.NewMemoryCache[[]domain.SearchResult](time.Minute)
		defer resultCache.Close()
		searcher = usecase.NewCachedSearcher(searcher, resultCache, cfg.Cache.SearchTTL, logger)
		logger.Infow("Search cache enabled", "ttl", cfg.Cache.SearchTTL)
	}

	handler := httpDelivery.NewHandler(searcher, repo, logger)
	router := httpDelivery.SetupRouter(cfg, handler, logger)

	// Start server
	addr := fmt.Sprintf(":%s", cfg.Server.Port)
	logger.Infow("Server listening", "addr", addr)

	if err := router.Run(addr); err != nil {
		logger.Errorw("Failed to start server", "error", err)
	}
}
