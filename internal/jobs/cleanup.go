package jobs

import (
	"log/slog"
	"time"

	"shoplens/internal/config"
	"shoplens/internal/database"
	"shoplens/internal/store"
)

// CleanupJob removes raw documents past the retention period. This keeps the
// store bounded and supports data minimization.
type CleanupJob struct {
	dbManager *database.DBManager
	logger    *slog.Logger
	cfg       *config.Config
}

func NewCleanupJob(dbManager *database.DBManager, logger *slog.Logger, cfg *config.Config) *CleanupJob {
	return &CleanupJob{
		dbManager: dbManager,
		logger:    logger,
		cfg:       cfg,
	}
}

// Run deletes raw documents older than the configured retention window.
func (j *CleanupJob) Run() error {
	retentionDays := j.cfg.RawDocsRetentionDays
	cutoffDate := time.Now().UTC().AddDate(0, 0, -retentionDays)

	j.logger.Info("Starting cleanup of old raw documents",
		slog.Int("retention_days", retentionDays),
		slog.Time("cutoff_date", cutoffDate))

	deleted, err := store.PruneOlderThan(j.dbManager, j.logger, cutoffDate)
	if err != nil {
		j.logger.Error("Failed to prune old raw documents", slog.Any("error", err))
		return err
	}

	if deleted == 0 {
		j.logger.Debug("No old raw documents to clean up")
		return nil
	}

	j.logger.Info("Cleaned up old raw documents",
		slog.Int64("deleted_count", deleted),
		slog.Int("retention_days", retentionDays))
	return nil
}
