package http_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shoplens/internal/config"
	internalhttp "shoplens/internal/http"
	"shoplens/internal/store"
	"shoplens/internal/testsupport"
)

func seedStore(t *testing.T, dbManager *testsupport.TestDBManager) {
	t.Helper()
	cfg := config.GetConfig()
	logger := testsupport.GetLogger()
	day := time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)

	_, err := store.SaveDocuments(dbManager, logger, cfg.TrackingCollection, []map[string]any{
		testsupport.TrackingDoc("s1", "v1", "DE", day, []string{"sku-1", "sku-2"}, []string{"sku-1"}),
		testsupport.TrackingDoc("s2", "v2", "FR", day.AddDate(0, 0, 1), []string{"sku-2"}, nil),
	})
	require.NoError(t, err)

	_, err = store.SaveDocuments(dbManager, logger, cfg.ListingsCollection, []map[string]any{
		testsupport.ListingDoc("sku-1", "Trail Shoe", 89.90, "cat-1", "Acme"),
		testsupport.ListingDoc("sku-2", "Running Sock", 9.90, "cat-1", "Acme"),
	})
	require.NoError(t, err)

	_, err = store.SaveDocuments(dbManager, logger, cfg.CategoriesCollection, []map[string]any{
		testsupport.CategoryDoc("cat-1", "Footwear"),
	})
	require.NoError(t, err)
}

func TestComputeBundleFromStore(t *testing.T) {
	dbManager, logger := testsupport.SetupTestDBManager(t)
	seedStore(t, dbManager)

	bundle, err := internalhttp.ComputeBundle(dbManager, logger)
	require.NoError(t, err)
	require.NotNil(t, bundle)

	assert.Len(t, bundle.Sessions, 2)
	assert.Equal(t, config.GetConfig().EngineVersion, bundle.Version)
	assert.NotEmpty(t, bundle.Categories)
	assert.NotEmpty(t, bundle.Geo)
}

func TestComputeBundleEmptyStore(t *testing.T) {
	dbManager, logger := testsupport.SetupTestDBManager(t)

	bundle, err := internalhttp.ComputeBundle(dbManager, logger)
	require.NoError(t, err)
	require.NotNil(t, bundle)
	assert.Empty(t, bundle.Sessions)
}

func TestWarmBundlePopulatesCache(t *testing.T) {
	dbManager, logger := testsupport.SetupTestDBManager(t)
	internalhttp.ResetBundleCache()
	t.Cleanup(internalhttp.ResetBundleCache)
	seedStore(t, dbManager)

	require.NoError(t, internalhttp.WarmBundle(dbManager, logger))

	// A second warm for the same revision should hit the cache and stay cheap.
	require.NoError(t, internalhttp.WarmBundle(dbManager, logger))
}
