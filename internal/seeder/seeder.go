// Package seeder generates realistic demo data: a small product catalog plus
// browsing sessions spread over the recent past. It writes through the same
// store layer the ingestion API uses, so seeded data behaves exactly like
// real traffic.
package seeder

import (
	"context"
	"fmt"
	"math/rand/v2"
	"time"

	"log/slog"

	"github.com/karloscodes/cartridge"

	"shoplens/internal/config"
	"shoplens/internal/rawdoc"
	"shoplens/internal/store"
)

const saveBatchSize = 500

// Seeder handles the demo data generation process.
type Seeder struct {
	DBManager    cartridge.DBManager
	Logger       *slog.Logger
	SessionCount int
	SpanDays     int
}

// NewSeeder creates a new seeder instance
func NewSeeder(dbManager cartridge.DBManager, logger *slog.Logger, sessionCount int) *Seeder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Seeder{
		DBManager:    dbManager,
		Logger:       logger,
		SessionCount: sessionCount,
		SpanDays:     30,
	}
}

type catalogCategory struct {
	ID       string
	Name     string
	MinPrice float64
	MaxPrice float64
	Items    int
}

type catalogItem struct {
	ID         string
	Title      string
	Price      float64
	CategoryID string
	Brand      string
}

var categories = []catalogCategory{
	{ID: "cat-electronics", Name: "Electronics", MinPrice: 49, MaxPrice: 1499, Items: 14},
	{ID: "cat-apparel", Name: "Apparel", MinPrice: 12, MaxPrice: 180, Items: 18},
	{ID: "cat-footwear", Name: "Footwear", MinPrice: 29, MaxPrice: 240, Items: 10},
	{ID: "cat-home", Name: "Home & Kitchen", MinPrice: 8, MaxPrice: 420, Items: 12},
	{ID: "cat-beauty", Name: "Beauty", MinPrice: 5, MaxPrice: 95, Items: 8},
}

var brands = []string{"Acme", "Nordwind", "Vela", "Kupfer & Sohn", "Miyara", "Bluefin"}

var countryPool = []string{
	"US", "US", "US", "DE", "DE", "GB", "GB", "FR", "NL", "ES", "IT", "PL", "SE", "BR", "JP", "",
}

// Run executes the seeding process
func (s *Seeder) Run(ctx context.Context) error {
	start := time.Now()
	s.Logger.Info("Starting demo data seeding...", slog.Int("sessionCount", s.SessionCount))

	items, err := s.seedCatalog()
	if err != nil {
		return fmt.Errorf("failed to seed catalog: %w", err)
	}

	if err := s.generateSessions(ctx, items); err != nil {
		return fmt.Errorf("failed to generate sessions: %w", err)
	}

	s.Logger.Info("Seeding completed successfully", slog.Duration("elapsed", time.Since(start)))
	return nil
}

// seedCatalog stores category and listing documents and returns the generated
// items for session generation.
func (s *Seeder) seedCatalog() ([]catalogItem, error) {
	cfg := config.GetConfig()

	categoryDocs := make([]rawdoc.Doc, 0, len(categories))
	var items []catalogItem
	var listingDocs []rawdoc.Doc

	for _, cat := range categories {
		categoryDocs = append(categoryDocs, rawdoc.Doc{
			"_id":  cat.ID,
			"name": cat.Name,
		})

		for i := 0; i < cat.Items; i++ {
			item := catalogItem{
				ID:         fmt.Sprintf("%s-sku-%03d", cat.ID, i+1),
				Title:      fmt.Sprintf("%s Item %d", cat.Name, i+1),
				Price:      roundPrice(cat.MinPrice + rand.Float64()*(cat.MaxPrice-cat.MinPrice)),
				CategoryID: cat.ID,
				Brand:      brands[rand.IntN(len(brands))],
			}
			items = append(items, item)
			listingDocs = append(listingDocs, rawdoc.Doc{
				"_id":         item.ID,
				"title":       item.Title,
				"retailPrice": item.Price,
				"categoryId":  item.CategoryID,
				"brand":       item.Brand,
			})
		}
	}

	if _, err := store.SaveDocuments(s.DBManager, s.Logger, cfg.CategoriesCollection, categoryDocs); err != nil {
		return nil, err
	}
	stored, err := store.SaveDocuments(s.DBManager, s.Logger, cfg.ListingsCollection, listingDocs)
	if err != nil {
		return nil, err
	}

	s.Logger.Info("Seeded catalog",
		slog.Int("categories", len(categoryDocs)),
		slog.Int("listings", stored))
	return items, nil
}

// generateSessions produces browsing sessions over the configured span.
// Visitors mostly stay inside one category per session, which gives the
// co-occurrence analysis something to find.
func (s *Seeder) generateSessions(ctx context.Context, items []catalogItem) error {
	cfg := config.GetConfig()
	byCategory := make(map[string][]catalogItem)
	for _, item := range items {
		byCategory[item.CategoryID] = append(byCategory[item.CategoryID], item)
	}

	visitorCount := s.SessionCount / 3
	if visitorCount < 10 {
		visitorCount = 10
	}

	now := time.Now().UTC()
	batch := make([]rawdoc.Doc, 0, saveBatchSize)
	generated := 0

	for session := 0; session < s.SessionCount; session++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		cat := categories[rand.IntN(len(categories))]
		pool := byCategory[cat.ID]
		baseTime := now.Add(-time.Duration(rand.IntN(s.SpanDays*24*60)) * time.Minute)

		doc := s.buildSessionDoc(session, visitorCount, pool, items, baseTime)
		batch = append(batch, doc)
		generated++

		if len(batch) >= saveBatchSize {
			if _, err := store.SaveDocuments(s.DBManager, s.Logger, cfg.TrackingCollection, batch); err != nil {
				return err
			}
			batch = batch[:0]
		}
	}

	if len(batch) > 0 {
		if _, err := store.SaveDocuments(s.DBManager, s.Logger, cfg.TrackingCollection, batch); err != nil {
			return err
		}
	}

	s.Logger.Info("Generated tracking sessions", slog.Int("sessions", generated))
	return nil
}

func (s *Seeder) buildSessionDoc(session, visitorCount int, pool, allItems []catalogItem, baseTime time.Time) rawdoc.Doc {
	viewCount := 1 + rand.IntN(6)
	cursor := baseTime
	var views []rawdoc.Doc
	var cart []rawdoc.Doc
	var wishlist []rawdoc.Doc
	seen := make(map[string]struct{})

	for v := 0; v < viewCount; v++ {
		item := pool[rand.IntN(len(pool))]
		// Occasionally wander into another category.
		if rand.Float64() < 0.15 {
			item = allItems[rand.IntN(len(allItems))]
		}
		cursor = cursor.Add(time.Duration(10+rand.IntN(110)) * time.Second)
		views = append(views, rawdoc.Doc{
			"itemId":    item.ID,
			"createdAt": cursor.Format(time.RFC3339),
		})

		if _, dup := seen[item.ID]; dup {
			continue
		}
		seen[item.ID] = struct{}{}

		switch {
		case rand.Float64() < 0.35:
			entry := rawdoc.Doc{
				"itemId":    item.ID,
				"add":       1,
				"createdAt": cursor.Add(30 * time.Second).Format(time.RFC3339),
			}
			// Some shoppers change their mind; the deleted flag expands
			// into an add plus a matching remove.
			if rand.Float64() < 0.3 {
				entry["deleted"] = true
				entry["updatedAt"] = cursor.Add(5 * time.Minute).Format(time.RFC3339)
			}
			cart = append(cart, entry)
		case rand.Float64() < 0.15:
			wishlist = append(wishlist, rawdoc.Doc{
				"itemId":    item.ID,
				"add":       1,
				"createdAt": cursor.Add(20 * time.Second).Format(time.RFC3339),
			})
		}
	}

	doc := rawdoc.Doc{
		"_id":       fmt.Sprintf("seed-session-%06d", session),
		"visitorId": fmt.Sprintf("seed-visitor-%04d", rand.IntN(visitorCount)),
		"date":      baseTime.Format(time.RFC3339),
		"views":     views,
	}
	if country := countryPool[rand.IntN(len(countryPool))]; country != "" {
		doc["countryCode"] = country
	}
	if len(cart) > 0 {
		doc["cart"] = cart
	}
	if len(wishlist) > 0 {
		doc["wishlist"] = wishlist
	}
	return doc
}

func roundPrice(p float64) float64 {
	return float64(int(p)) + 0.90
}
