package main

import (
	"context"
	"net/http"
	"os"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/paprflow/paprflow-backend/api/controllers"
	"github.com/paprflow/paprflow-backend/api/routes"
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
	"github.com/paprflow/paprflow-backend/pkg/redis"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
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

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	healthChecks := map[string]controllers.Pinger{
		"database": dbClient,
		"redis":    redisClient,
	}

	var ocrJobs *ocr.JobPublisher
	if cfg.GCP.ProjectID != "" {
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
		healthChecks["pubsub"] = pubsubClient

		ocrJobs, err = ocr.NewJobPublisher(pubsubClient.OCRPublisher(), logg)
		if err != nil {
			logg.Error(context.Background(), "failed to create ocr publisher", err)
			os.Exit(1)
		}
	} else {
		logg.Warn(context.Background(), "gcp project not configured, ocr extraction disabled")
	}

	gormDB := dbClient.DB()
	invoiceRepo := invoices.NewRepository(gormDB)
	vendorRepo := vendors.NewRepository(gormDB)
	activityRepo := activity.NewRepository(gormDB)
	ruleRepo := rules.NewRepository(gormDB)
	userRepo := users.NewRepository(gormDB)

	engine, err := rules.NewEngine(logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create rule engine", err)
		os.Exit(1)
	}

	workflowMetrics := metrics.NewWorkflowMetrics(prometheus.DefaultRegisterer)

	workflowService, err := workflow.NewService(
		dbClient,
		invoiceRepo,
		vendorRepo,
		activityRepo,
		ruleRepo,
		userRepo,
		engine,
		logg,
		workflowMetrics,
		cfg.Workflow,
	)
	if err != nil {
		logg.Error(context.Background(), "failed to create workflow service", err)
		os.Exit(1)
	}

	vendorService, err := vendors.NewService(vendorRepo, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create vendor service", err)
		os.Exit(1)
	}
	ruleService, err := rules.NewService(ruleRepo, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create rule service", err)
		os.Exit(1)
	}
	activityService, err := activity.NewService(activityRepo, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create activity service", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(routes.Dependencies{
			Config:          cfg,
			Logger:          logg,
			Redis:           redisClient,
			WorkflowService: workflowService,
			InvoiceRepo:     invoiceRepo,
			VendorService:   vendorService,
			RuleService:     ruleService,
			ActivityService: activityService,
			OCRJobs:         ocrJobs,
			HealthChecks:    healthChecks,
		}),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}
