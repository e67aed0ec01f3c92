// Package store selects the catalog repository named in the configuration.
package store

import (
	"context"
	"fmt"

	"github.com/purbeurre/backend/config"
	"github.com/purbeurre/backend/internal/domain"
	"github.com/purbeurre/backend/internal/infrastructure/store/memory"
	"github.com/purbeurre/backend/internal/infrastructure/store/sqlstore"
)

// Open returns the repository for cfg.Driver and a function releasing it
func Open(ctx context.Context, cfg config.StoreConfig) (domain.CatalogRepository, func() error, error) {
	switch cfg.Driver {
	case config.StoreMemory:
		return memory.NewStore(), func() error { return nil }, nil
	case config.StoreSQLite:
		s, err := sqlstore.Open(ctx, sqlstore.DriverSQLite, cfg.DSN)
		if err != nil {
			return nil, nil, err
		}
		return s, s.Close, nil
	case config.StorePostgres:
		s, err := sqlstore.Open(ctx, sqlstore.DriverPostgres, cfg.DSN)
		if err != nil {
			return nil, nil, err
		}
		return s, s.Close, nil
	default:
		return nil, nil, fmt.Errorf("unsupported store driver %q", cfg.Driver)
	}
}
