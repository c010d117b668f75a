package http

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"log/slog"

	"github.com/gofiber/fiber/v2"
	"github.com/karloscodes/cartridge"
	"github.com/karloscodes/cartridge/cache"

	"shoplens/internal/config"
	"shoplens/internal/ingest"
	"shoplens/internal/insights"
	"shoplens/internal/reproject"
	"shoplens/internal/store"
	"shoplens/internal/timeframe"
)

// bundleCache holds computed insight bundles keyed by the store revision
// token. A write to any collection changes the revision, so stale entries are
// simply never requested again and age out through the TTL.
var (
	bundleCache   *cache.Cache[string, *insights.Bundle]
	bundleCacheMu sync.Mutex
)

func loadBundleCache(dbManager cartridge.DBManager, logger *slog.Logger) *cache.Cache[string, *insights.Bundle] {
	bundleCacheMu.Lock()
	defer bundleCacheMu.Unlock()

	if bundleCache != nil {
		return bundleCache
	}

	cfg := config.GetConfig()
	ttl := time.Duration(cfg.InsightsCacheTTLSeconds) * time.Second

	fetchFunc := func(revision string) (*insights.Bundle, error) {
		return ComputeBundle(dbManager, logger)
	}
	bundleCache = cache.NewCache[string, *insights.Bundle](logger, ttl, fetchFunc)
	return bundleCache
}

// ResetBundleCache drops the cached bundles; intended for tests.
func ResetBundleCache() {
	bundleCacheMu.Lock()
	defer bundleCacheMu.Unlock()
	bundleCache = nil
}

// ComputeBundle loads the stored collections, normalizes them, and runs the
// full analysis. Row caps keep the working set bounded on large stores; reads
// are newest-first so the caps drop the oldest data.
func ComputeBundle(dbManager cartridge.DBManager, logger *slog.Logger) (*insights.Bundle, error) {
	cfg := config.GetConfig()
	db := dbManager.GetConnection()

	tracking, err := store.LoadCollection(db, logger, cfg.TrackingCollection, cfg.MaxTrackingRows)
	if err != nil {
		return nil, fmt.Errorf("failed to load tracking documents: %w", err)
	}
	listings, err := store.LoadCollection(db, logger, cfg.ListingsCollection, cfg.MaxListingRows)
	if err != nil {
		return nil, fmt.Errorf("failed to load listing documents: %w", err)
	}
	categories, err := store.LoadCollection(db, logger, cfg.CategoriesCollection, cfg.MaxCategoryRows)
	if err != nil {
		return nil, fmt.Errorf("failed to load category documents: %w", err)
	}

	started := time.Now()
	sessions := ingest.NormalizeSessions(tracking, time.Now().UTC())
	meta := ingest.BuildItemMeta(listings, categories)
	bundle := insights.Compute(context.Background(), sessions, meta, cfg.EngineVersion)

	logger.Info("Computed insights bundle",
		slog.Int("sessions", len(sessions)),
		slog.Int("listings", len(listings)),
		slog.Duration("elapsed", time.Since(started)))
	return bundle, nil
}

// WarmBundle recomputes the bundle for the current store revision. The job
// scheduler calls this so dashboard requests mostly hit a warm cache.
func WarmBundle(dbManager cartridge.DBManager, logger *slog.Logger) error {
	revision, err := store.Revision(dbManager.GetConnection())
	if err != nil {
		return err
	}
	_, err = loadBundleCache(dbManager, logger).Get(revision)
	return err
}

// InsightsIndexAction serves the full insights bundle. Optional from/to query
// parameters (YYYY-MM-DD) reproject the cached bundle onto that date range
// instead of recomputing from raw documents.
func InsightsIndexAction(ctx *cartridge.Context) error {
	revision, err := store.Revision(ctx.DBManager.GetConnection())
	if err != nil {
		ctx.Logger.Error("Failed to read store revision", slog.Any("error", err))
		return ctx.Status(http.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to compute insights",
		})
	}

	bundle, err := loadBundleCache(ctx.DBManager, ctx.Logger).Get(revision)
	if err != nil {
		ctx.Logger.Error("Failed to compute insights bundle", slog.Any("error", err))
		return ctx.Status(http.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to compute insights",
		})
	}

	fromStr := ctx.Query("from")
	toStr := ctx.Query("to")
	if fromStr != "" || toStr != "" {
		dateRange, err := timeframe.NewParser().Parse(fromStr, toStr)
		if err != nil {
			return ctx.Status(http.StatusBadRequest).JSON(fiber.Map{
				"error": err.Error(),
			})
		}
		bundle = reproject.Range(bundle, dateRange.From, dateRange.To)
	}

	return ctx.JSON(bundle)
}
