// Package internal contains core application functionality
package internal

import (
	"fmt"

	"github.com/karloscodes/cartridge"

	"shoplens/internal/config"
	"shoplens/internal/database"
	"shoplens/internal/http"
	"shoplens/internal/jobs"
	"shoplens/internal/pkg/geoip"
)

// Application wraps cartridge.Application with shoplens-specific components
type Application struct {
	*cartridge.Application
	DBManager *database.DBManager // Shoplens-specific DB manager with migration methods
}

// NewApp creates a new application instance with default settings
func NewApp() (*Application, error) {
	cfg := config.GetConfig()
	return NewAppWithConfig(cfg)
}

// NewAppWithRoutes creates a new application with custom route mounting function
func NewAppWithRoutes(cfg *config.Config, routeMount func(*cartridge.Server)) (*Application, error) {
	logger := cartridge.NewLogger(cfg, nil)
	geoip.InitLogger(logger)

	// Initialize database manager (shoplens-specific with migration methods)
	dbManager := database.NewDBManager(cfg, logger)
	if err := dbManager.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	// Background jobs: periodic insights cache warm plus raw document cleanup
	scheduler, err := jobs.NewScheduler(dbManager, logger, func() error {
		return http.WarmBundle(dbManager, logger)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize jobs: %w", err)
	}

	// Create the cartridge application with custom route mount
	app, err := cartridge.NewApplication(cartridge.ApplicationOptions{
		Config:            cfg,
		Logger:            logger,
		DBManager:         dbManager,
		RouteMountFunc:    routeMount,
		BackgroundWorkers: []cartridge.BackgroundWorker{scheduler},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create application: %w", err)
	}

	return &Application{
		Application: app,
		DBManager:   dbManager,
	}, nil
}

// NewAppWithConfig creates a new application with the provided config
func NewAppWithConfig(cfg *config.Config) (*Application, error) {
	return NewAppWithRoutes(cfg, MountAppRoutes)
}
