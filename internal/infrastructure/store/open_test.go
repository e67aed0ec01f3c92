package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/purbeurre/backend/config"
	"github.com/purbeurre/backend/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpen(t *testing.T) {
	ctx := context.Background()

	t.Run("memory", func(t *testing.T) {
		repo, closeFn, err := Open(ctx, config.StoreConfig{Driver: config.StoreMemory})
		require.NoError(t, err)
		defer closeFn()

		n, err := repo.Count(ctx, domain.EntityProduct)
		require.NoError(t, err)
		assert.Equal(t, 0, n)
	})

	t.Run("sqlite", func(t *testing.T) {
		dsn := filepath.Join(t.TempDir(), "catalog.db")
		repo, closeFn, err := Open(ctx, config.StoreConfig{Driver: config.StoreSQLite, DSN: dsn})
		require.NoError(t, err)
		defer closeFn()

		created, err := repo.Upsert(ctx, domain.EntityCategory, "en:sodas", map[string]any{domain.FieldName: "Sodas"})
		require.NoError(t, err)
		assert.True(t, created)
		assert.FileExists(t, dsn)
	})

	t.Run("unknown driver", func(t *testing.T) {
		_, _, err := Open(ctx, config.StoreConfig{Driver: "mysql"})
		assert.Error(t, err)
	})
}
