package pagecache

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/purbeurre/backend/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileCache_Path(t *testing.T) {
	cache := NewFileCache("/var/cache/catalog")

	tests := []struct {
		name   string
		entity string
		kind   domain.PageKind
		suffix string
		want   string
	}{
		{"paginated list", "product", domain.PageList, "3", "/var/cache/catalog/product_list_3.json"},
		{"unpaginated list", "category", domain.PageList, "", "/var/cache/catalog/category_list.json"},
		{"element", "product", domain.PageElement, "3222472887966", "/var/cache/catalog/product_3222472887966.json"},
		{"element without suffix", "product", domain.PageElement, "", "/var/cache/catalog/product.json"},
		{"suffix cannot escape directory", "category", domain.PageElement, "../../etc/passwd", "/var/cache/catalog/category_..%2F..%2Fetc%2Fpasswd.json"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, cache.Path(tt.entity, tt.kind, tt.suffix))
		})
	}
}

func TestFileCache_WriteAndRead(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "json")
	cache := NewFileCache(dir)

	_, err := os.Stat(dir)
	require.True(t, os.IsNotExist(err), "directory must not exist before the first write")

	payload := []byte(`[{"code":"1"}]`)
	path, err := cache.Write("product", domain.PageList, "1", payload)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "product_list_1.json"), path)
	assert.FileExists(t, path)

	got, err := cache.Read("product", domain.PageList, "1")
	require.NoError(t, err)
	assert.Equal(t, payload, got)

	t.Run("overwrites existing page", func(t *testing.T) {
		_, err := cache.Write("product", domain.PageList, "1", []byte(`[]`))
		require.NoError(t, err)
		got, err := cache.Read("product", domain.PageList, "1")
		require.NoError(t, err)
		assert.Equal(t, []byte(`[]`), got)
	})

	t.Run("leaves no temporary files", func(t *testing.T) {
		entries, err := os.ReadDir(dir)
		require.NoError(t, err)
		assert.Len(t, entries, 1)
	})

	t.Run("list and element keys do not collide", func(t *testing.T) {
		_, err := cache.Read("product", domain.PageElement, "1")
		assert.ErrorIs(t, err, domain.ErrCacheMiss)
	})
}

func TestFileCache_ReadMiss(t *testing.T) {
	cache := NewFileCache(t.TempDir())

	got, err := cache.Read("category", domain.PageList, "")
	assert.Nil(t, got)
	assert.ErrorIs(t, err, domain.ErrCacheMiss)
}
