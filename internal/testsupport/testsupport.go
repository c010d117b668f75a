package testsupport

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/karloscodes/cartridge"
	"github.com/karloscodes/cartridge/cache"
	ctestsupport "github.com/karloscodes/cartridge/testsupport"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"shoplens/internal/config"
	"shoplens/internal/rawdoc"
	"shoplens/internal/store"
)

// testDBCache caches test databases by test name to allow multiple calls
// within the same test to share the same database
var testDBCache = make(map[string]*gorm.DB)
var testDBCacheMu sync.Mutex

// TestDBManager wraps cartridge's TestDBManager with shoplens's interface
type TestDBManager struct {
	*ctestsupport.TestDBManager
}

// NewTestDBManager creates a TestDBManager that implements cartridge.DBManager
func NewTestDBManager(db *gorm.DB) *TestDBManager {
	return &TestDBManager{
		TestDBManager: ctestsupport.NewTestDBManager(db),
	}
}

// Ensure TestDBManager implements cartridge.DBManager
var _ cartridge.DBManager = (*TestDBManager)(nil)

// allModels returns all shoplens models for migration
func allModels() []any {
	return []any{
		&cache.CacheRecord{},
		&store.RawDocument{},
	}
}

// SetupTestDB creates a test database with all shoplens models migrated.
// Uses a named in-memory database with cache=shared to allow multiple
// connections to share the same database within a test. Caches the database
// by test name so multiple calls within the same test return the same one.
func SetupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	testName := t.Name()
	rootName := testName
	if idx := strings.Index(testName, "/"); idx > 0 {
		rootName = testName[:idx]
	}

	testDBCacheMu.Lock()
	if db, exists := testDBCache[rootName]; exists {
		testDBCacheMu.Unlock()
		return db
	}
	testDBCacheMu.Unlock()

	sanitizedName := strings.ReplaceAll(rootName, "/", "_")
	dsn := fmt.Sprintf("file:test_%s_%d?mode=memory&cache=shared", sanitizedName, time.Now().UnixNano())

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("testsupport: failed to open test database: %v", err)
	}

	db.Exec("PRAGMA foreign_keys = ON")
	db.Exec("PRAGMA journal_mode = WAL")

	if err := db.AutoMigrate(allModels()...); err != nil {
		t.Fatalf("testsupport: failed to migrate models: %v", err)
	}

	testDBCacheMu.Lock()
	testDBCache[rootName] = db
	testDBCacheMu.Unlock()

	t.Cleanup(func() {
		testDBCacheMu.Lock()
		delete(testDBCache, rootName)
		testDBCacheMu.Unlock()
		sqlDB, err := db.DB()
		if err == nil {
			sqlDB.Close()
		}
	})

	return db
}

// SetupTestDBManager creates a test DB manager using cartridge's testsupport
func SetupTestDBManager(t *testing.T) (*TestDBManager, *slog.Logger) {
	cfg := config.GetConfig()

	if cfg.Environment != config.Test {
		t.Fatalf("CRITICAL: Tests must run in test environment! Current: %s. Set SHOPLENS_ENV=test", cfg.Environment)
	}

	db := SetupTestDB(t)
	logger := GetLogger()
	dbManager := NewTestDBManager(db)

	return dbManager, logger
}

// CleanAllTables clears all non-system tables in the database
func CleanAllTables(db *gorm.DB) {
	var tableNames []string
	db.Raw("SELECT name FROM sqlite_master WHERE type='table' AND name NOT LIKE 'sqlite_%'").Scan(&tableNames)

	var tables []string
	for _, name := range tableNames {
		if name != "migrations" && name != "schema_migrations" {
			tables = append(tables, name)
		}
	}

	if len(tables) == 0 {
		return
	}

	db.Exec("PRAGMA foreign_keys = OFF")
	defer db.Exec("PRAGMA foreign_keys = ON")

	db.Transaction(func(tx *gorm.DB) error {
		for _, table := range tables {
			tx.Exec("DELETE FROM " + table)
			tx.Exec("DELETE FROM sqlite_sequence WHERE name=?", table)
		}
		return nil
	})
}

// GetLogger returns a test logger
func GetLogger() *slog.Logger {
	handler := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError})
	return slog.New(handler)
}

// TrackingDoc builds a raw visit document in the shape the ingest layer
// expects, with views and cart add events on the given day.
func TrackingDoc(sessionID, visitorID, country string, day time.Time, viewItems []string, cartItems []string) rawdoc.Doc {
	views := make([]any, 0, len(viewItems))
	for i, item := range viewItems {
		views = append(views, map[string]any{
			"itemId":    item,
			"createdAt": day.Add(time.Duration(i) * time.Minute).Format(time.RFC3339),
		})
	}
	carts := make([]any, 0, len(cartItems))
	for i, item := range cartItems {
		carts = append(carts, map[string]any{
			"itemId":    item,
			"add":       true,
			"createdAt": day.Add(time.Duration(30+i) * time.Minute).Format(time.RFC3339),
		})
	}
	return rawdoc.Doc{
		"_id":         sessionID,
		"visitorId":   visitorID,
		"countryCode": country,
		"date":        day.Format(time.RFC3339),
		"views":       views,
		"cart":        carts,
	}
}

// ListingDoc builds a raw product listing document.
func ListingDoc(itemID, title string, price float64, categoryID, brand string) rawdoc.Doc {
	return rawdoc.Doc{
		"_id":         itemID,
		"title":       title,
		"retailPrice": price,
		"categoryId":  categoryID,
		"brand":       brand,
	}
}

// CategoryDoc builds a raw category document.
func CategoryDoc(categoryID, name string) rawdoc.Doc {
	return rawdoc.Doc{
		"_id":  categoryID,
		"name": name,
	}
}
