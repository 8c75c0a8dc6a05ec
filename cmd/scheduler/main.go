package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	"github.com/segyhp/loan-engine/internal/config"
	"github.com/segyhp/loan-engine/internal/repository"
	"github.com/segyhp/loan-engine/internal/scheduler"
	"github.com/segyhp/loan-engine/internal/service"
	"github.com/segyhp/loan-engine/pkg/logger"
)

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)
	log.Info().Msg("Starting loan scheduler...")

	db, err := repository.Open(cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize database")
	}
	defer db.Close()

	migrateCtx, migrateCancel := context.WithTimeout(context.Background(), 30*time.Second)
	err = repository.Migrate(migrateCtx, db)
	migrateCancel()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to apply database schema")
	}

	// Read-only use of the service: no locker, no metrics
	loanService := service.NewLoanService(
		repository.NewLoanRepository(db),
		repository.NewIdentityRepository(db),
		nil,
		nil,
		cfg.Policy(),
	)

	// Initialize cron scheduler
	c := scheduler.New(cfg.SchedulerLocation())

	// Schedule tasks
	if _, err := scheduler.RegisterStatsJob(c, cfg.Scheduler.StatsSpec, scheduler.NewStatsJob(loanService, 0)); err != nil {
		log.Fatal().Err(err).Str("spec", cfg.Scheduler.StatsSpec).Msg("Error scheduling portfolio statistics job")
	}

	// Start the scheduler
	c.Start()
	log.Info().Str("spec", cfg.Scheduler.StatsSpec).Msg("Scheduler started successfully")

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down scheduler...")
	<-c.Stop().Done()
	log.Info().Msg("Scheduler stopped")
}
