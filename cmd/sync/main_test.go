package main

import (
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewFlagSet(t *testing.T) {
	flags := newFlagSet()
	require.NoError(t, flags.Parse([]string{
		"--start-page", "3",
		"--nb-pages=2",
		"--strict",
		"--categories-tags", "en:sodas,en:beverages",
	}))

	start, err := flags.GetInt("start-page")
	require.NoError(t, err)
	assert.Equal(t, 3, start)

	tags, err := flags.GetStringSlice("categories-tags")
	require.NoError(t, err)
	assert.Equal(t, []string{"en:sodas", "en:beverages"}, tags)

	assert.False(t, flags.Changed("from-cache"))
	assert.True(t, flags.Changed("strict"))
}

func TestRun_InvalidFlags(t *testing.T) {
	t.Chdir(t.TempDir())

	assert.Error(t, run([]string{"--no-such-flag"}))
	assert.Error(t, run([]string{"--nb-pages", "-1"}))
	assert.NoError(t, run([]string{"--help"}))
}

func TestRun_ProductCodes(t *testing.T) {
	t.Chdir(t.TempDir())
	cacheDir := t.TempDir()

	var (
		mu       sync.Mutex
		requests []string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		requests = append(requests, r.URL.Path)
		mu.Unlock()
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/api/v0/produit/3017620422003.json":
			w.Write([]byte(`{"status":1,"product":{"code":"3017620422003","product_name":"Nutella","nutrition_grades":"e"}}`))
		default:
			w.Write([]byte(`{"status":0,"status_verbose":"product not found"}`))
		}
	}))
	defer srv.Close()
	t.Setenv("PURBEURRE_SOURCE_BASE_URL", srv.URL)

	args := []string{"--store-driver=memory", "--cache-dir", cacheDir, "--state-dir", t.TempDir(), "--log-level=error"}

	require.NoError(t, run(append(args, "--code=3017620422003")))
	assert.FileExists(t, filepath.Join(cacheDir, "product_3017620422003.json"))
	assert.Error(t, run(append(args, "--code=0000000000000")))

	mu.Lock()
	assert.Equal(t, []string{"/api/v0/produit/3017620422003.json", "/api/v0/produit/0000000000000.json"}, requests)
	mu.Unlock()

	srv.Close()
	require.NoError(t, run(append(args, "--code=3017620422003", "--from-cache")))
}
