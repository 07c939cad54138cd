package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/hartantodhi/loan-ledger/internal/config"
	"github.com/hartantodhi/loan-ledger/internal/repository"
	"github.com/hartantodhi/loan-ledger/internal/service"
	"github.com/hartantodhi/loan-ledger/pkg/logger"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	zapLogger, err := logger.New("loan-ledger-reconciler", cfg.Logging.Level, cfg.Logging.Format)
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer zapLogger.Sync()

	db, err := sqlx.Connect("postgres", cfg.Database.DSN())
	if err != nil {
		zapLogger.Fatal("failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	reconciler := service.NewReconciler(repository.NewStore(db), zapLogger)

	location, err := time.LoadLocation(cfg.Reconciler.Timezone)
	if err != nil {
		zapLogger.Fatal("invalid reconciler timezone", zap.Error(err))
	}

	c := cron.New(cron.WithSeconds(), cron.WithLocation(location))

	_, err = c.AddFunc(cfg.Reconciler.Schedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
		defer cancel()

		if _, err := reconciler.Run(ctx); err != nil {
			zapLogger.Error("reconciliation run failed", zap.Error(err))
		}
	})
	if err != nil {
		zapLogger.Fatal("failed to schedule reconciliation job", zap.Error(err))
	}

	c.Start()
	zapLogger.Info("reconciler started", zap.String("schedule", cfg.Reconciler.Schedule))

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	zapLogger.Info("shutting down reconciler")
	<-c.Stop().Done()
	zapLogger.Info("reconciler stopped")
}
