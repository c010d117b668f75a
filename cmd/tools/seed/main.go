// main.go - Demo data seeding tool
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/karloscodes/cartridge"
	"github.com/sirupsen/logrus"

	"shoplens/internal/config"
	"shoplens/internal/database"
	"shoplens/internal/seeder"
)

func main() {
	sessionCount := flag.Int("sessions", 2000, "Number of browsing sessions to generate")
	flag.Parse()

	log := logrus.New()
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	cfg := config.GetConfig()
	if cfg.IsProduction() {
		log.Fatal("Refusing to seed a production database")
	}

	log.WithFields(logrus.Fields{
		"sessions": *sessionCount,
		"database": cfg.GetDatabasePath(),
	}).Info("Seeding demo data")

	appLogger := cartridge.NewLogger(cfg, nil)
	dbManager := database.NewDBManager(cfg, appLogger)
	if err := dbManager.Init(); err != nil {
		log.WithError(err).Fatal("Failed to initialize database")
	}
	if err := dbManager.MigrateDatabase(); err != nil {
		log.WithError(err).Fatal("Failed to run migrations")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigChan
		log.WithField("signal", sig.String()).Warn("Interrupted, stopping seeding")
		cancel()
	}()

	start := time.Now()
	s := seeder.NewSeeder(dbManager, appLogger, *sessionCount)
	if err := s.Run(ctx); err != nil {
		log.WithError(err).Fatal("Seeding failed")
	}

	log.WithField("elapsed", time.Since(start).Round(time.Millisecond)).Info("Seeding finished")
}
