// Package store persists raw e-commerce documents as schema-free JSON rows
// in SQLite, one collection per document kind.
package store

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/karloscodes/cartridge"
	"gorm.io/gorm"

	"shoplens/internal/models"
	"shoplens/internal/rawdoc"
)

// RawDocument is one ingested document. The payload is kept as-is; any JSON
// object is acceptable, field interpretation happens at analysis time.
type RawDocument struct {
	ID         uint        `gorm:"primaryKey;autoIncrement"`
	Collection string      `gorm:"index:idx_collection_created;size:64;not null"`
	Payload    models.JSON `gorm:"type:text;not null"`
	CreatedAt  time.Time   `gorm:"index:idx_collection_created"`
}

// SaveDocuments appends documents to a collection. Documents that fail to
// marshal are skipped, not fatal; the returned count is the number stored.
func SaveDocuments(dbManager cartridge.DBManager, logger *slog.Logger, collection string, docs []rawdoc.Doc) (int, error) {
	rows := make([]RawDocument, 0, len(docs))
	now := time.Now().UTC()
	for _, doc := range docs {
		payload, err := json.Marshal(doc)
		if err != nil {
			logger.Warn("Skipping unmarshalable document", slog.String("collection", collection), slog.Any("error", err))
			continue
		}
		rows = append(rows, RawDocument{Collection: collection, Payload: payload, CreatedAt: now})
	}
	if len(rows) == 0 {
		return 0, nil
	}

	db := dbManager.GetConnection()
	err := models.PerformWrite(logger, db, func(tx *gorm.DB) error {
		return tx.Create(&rows).Error
	})
	if err != nil {
		return 0, fmt.Errorf("failed to store documents in %s: %w", collection, err)
	}
	return len(rows), nil
}

// LoadCollection reads up to limit documents from a collection, newest rows
// first so caps keep the most recent data. Rows with corrupt payloads are
// skipped; a single bad row never fails the read.
func LoadCollection(db *gorm.DB, logger *slog.Logger, collection string, limit int) ([]rawdoc.Doc, error) {
	query := db.Model(&RawDocument{}).
		Where("collection = ?", collection).
		Order("id DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}

	var rows []RawDocument
	if err := query.Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to load collection %s: %w", collection, err)
	}

	docs := make([]rawdoc.Doc, 0, len(rows))
	for _, row := range rows {
		var doc rawdoc.Doc
		if err := json.Unmarshal(row.Payload, &doc); err != nil {
			logger.Warn("Skipping corrupt stored document",
				slog.String("collection", collection),
				slog.Int("id", int(row.ID)),
				slog.Any("error", err))
			continue
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

// CountCollection returns the number of documents in a collection.
func CountCollection(db *gorm.DB, collection string) (int64, error) {
	var count int64
	err := db.Model(&RawDocument{}).Where("collection = ?", collection).Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count collection %s: %w", collection, err)
	}
	return count, nil
}

// Revision is an opaque token that changes whenever any collection changes.
// It keys the insights cache.
func Revision(db *gorm.DB) (string, error) {
	var state struct {
		MaxID uint
		Total int64
	}
	err := db.Model(&RawDocument{}).
		Select("COALESCE(MAX(id), 0) AS max_id, COUNT(*) AS total").
		Scan(&state).Error
	if err != nil {
		return "", fmt.Errorf("failed to read store revision: %w", err)
	}
	return fmt.Sprintf("%d-%d", state.MaxID, state.Total), nil
}

// PruneOlderThan deletes documents created before the cutoff across all
// collections and returns the number removed.
func PruneOlderThan(dbManager cartridge.DBManager, logger *slog.Logger, cutoff time.Time) (int64, error) {
	db := dbManager.GetConnection()
	var removed int64
	err := models.PerformWrite(logger, db, func(tx *gorm.DB) error {
		result := tx.Where("created_at < ?", cutoff).Delete(&RawDocument{})
		removed = result.RowsAffected
		return result.Error
	})
	if err != nil {
		return 0, fmt.Errorf("failed to prune raw documents: %w", err)
	}
	return removed, nil
}
