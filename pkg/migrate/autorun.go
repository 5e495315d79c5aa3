package migrate

import (
	"context"
	"fmt"

	"github.com/paprflow/paprflow-backend/pkg/config"
	"github.com/paprflow/paprflow-backend/pkg/db"
	"github.com/paprflow/paprflow-backend/pkg/db/models"
	"github.com/paprflow/paprflow-backend/pkg/logger"
)

// MaybeRunDev executes migrations automatically when the app is running
// in dev mode and the feature flag is enabled. The goose migrations are
// Postgres SQL, so sqlite runs build the schema from the models instead.
func MaybeRunDev(ctx context.Context, cfg *config.Config, logg *logger.Logger, client *db.Client) error {
	if !cfg.App.IsDev() || !cfg.FeatureFlags.AutoMigrate {
		return nil
	}

	if cfg.FeatureFlags.UseSQLite {
		logg.Info(logg.WithFields(ctx, map[string]any{"env": cfg.App.Env}),
			"building sqlite schema from models (dev auto-run)")
		if err := client.DB().WithContext(ctx).AutoMigrate(
			&models.Vendor{},
			&models.User{},
			&models.Invoice{},
			&models.InvoiceLineItem{},
			&models.Activity{},
			&models.Rule{},
		); err != nil {
			return fmt.Errorf("sqlite automigrate: %w", err)
		}
		return nil
	}

	sqlDB, err := client.DB().DB()
	if err != nil {
		return fmt.Errorf("extracting sql.DB: %w", err)
	}

	meta := map[string]any{"env": cfg.App.Env, "dir": DefaultDir}
	ctx = logg.WithFields(ctx, meta)
	logg.Info(ctx, "running Goose migrations (dev auto-run)")

	if err := Run(ctx, sqlDB, DefaultDir, "up"); err != nil {
		return fmt.Errorf("running goose up: %w", err)
	}

	logg.Info(ctx, "Goose migrations completed")
	return nil
}
