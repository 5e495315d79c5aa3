package main

import (
	"context"
	"errors"
	"os"
	"os/signal"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/paprflow/paprflow-backend/internal/activity"
	"github.com/paprflow/paprflow-backend/internal/invoices"
	"github.com/paprflow/paprflow-backend/internal/ocr"
	"github.com/paprflow/paprflow-backend/internal/rules"
	"github.com/paprflow/paprflow-backend/internal/users"
	"github.com/paprflow/paprflow-backend/internal/vendors"
	"github.com/paprflow/paprflow-backend/internal/workflow"
	"github.com/paprflow/paprflow-backend/pkg/config"
	"github.com/paprflow/paprflow-backend/pkg/db"
	"github.com/paprflow/paprflow-backend/pkg/logger"
	"github.com/paprflow/paprflow-backend/pkg/metrics"
	"github.com/paprflow/paprflow-backend/pkg/migrate"
	"github.com/paprflow/paprflow-backend/pkg/pubsub"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "ocr-worker"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "ocr-worker",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, cfg.FeatureFlags.UseSQLite, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	pubsubClient, err := pubsub.NewClient(context.Background(), cfg.GCP, cfg.PubSub, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap pubsub", err)
		os.Exit(1)
	}
	defer func() {
		if err := pubsubClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing pubsub", err)
		}
	}()

	gormDB := dbClient.DB()
	engine, err := rules.NewEngine(logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create rule engine", err)
		os.Exit(1)
	}

	workflowService, err := workflow.NewService(
		dbClient,
		invoices.NewRepository(gormDB),
		vendors.NewRepository(gormDB),
		activity.NewRepository(gormDB),
		rules.NewRepository(gormDB),
		users.NewRepository(gormDB),
		engine,
		logg,
		metrics.NewWorkflowMetrics(prometheus.DefaultRegisterer),
		cfg.Workflow,
	)
	if err != nil {
		logg.Error(context.Background(), "failed to create workflow service", err)
		os.Exit(1)
	}

	consumer, err := ocr.NewConsumer(workflowService, pubsubClient.OCRSubscription(), logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create ocr consumer", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{"env": cfg.App.Env})
	logg.Info(ctx, "starting ocr worker")

	if err := consumer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "ocr worker stopped unexpectedly", err)
		os.Exit(1)
	}

	logg.Info(ctx, "ocr worker shutting down gracefully")
}
