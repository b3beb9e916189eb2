package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/LeHuyTuong/Carbon-Credit-Marketplace-sub000/internal/config"
	"github.com/LeHuyTuong/Carbon-Credit-Marketplace-sub000/internal/distribution"
)

// staleAfter is how long a round may sit in processing before the reaper
// declares it dead. Rounds normally finish in seconds.
const staleAfter = time.Hour

func main() {
	_ = godotenv.Load()

	cfg, err := config.LoadConfig(os.Getenv("CONFIG_PATH"))
	if err != nil {
		log.Fatal("failed to load config:", err)
	}

	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatal("failed to build logger:", err)
	}
	defer logger.Sync()

	db, err := gorm.Open(postgres.Open(cfg.Database.GetDatabaseURL()), &gorm.Config{TranslateError: true})
	if err != nil {
		logger.Fatal("failed to connect to database", zap.Error(err))
	}

	repo := distribution.NewRepository(db)

	c := cron.New()
	if _, err := c.AddFunc("*/5 * * * *", func() {
		reapStaleRounds(repo, logger)
	}); err != nil {
		logger.Fatal("failed to schedule reaper", zap.Error(err))
	}
	c.Start()
	logger.Info("distribution worker started")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	<-c.Stop().Done()
	logger.Info("distribution worker stopped")
}

// reapStaleRounds fails rounds whose coordinator died mid-flight, so their
// companies can see the outcome and re-run. Reports are untouched: a reaped
// round wrote no paid-out status.
func reapStaleRounds(repo distribution.Repository, logger *zap.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	stale, err := repo.ListStale(ctx, time.Now().Add(-staleAfter))
	if err != nil {
		logger.Error("failed to list stale distributions", zap.Error(err))
		return
	}
	for _, dist := range stale {
		if err := repo.MarkFailed(ctx, dist.ID, "distribution timed out"); err != nil {
			logger.Error("failed to reap distribution",
				zap.Int64("distribution_id", dist.ID),
				zap.Error(err))
			continue
		}
		logger.Warn("reaped stale distribution", zap.Int64("distribution_id", dist.ID))
	}
}
