package migrate

import (
	"context"
	"fmt"

	"github.com/angelmondragon/elibrary-backend/pkg/config"
	"github.com/angelmondragon/elibrary-backend/pkg/db"
	"github.com/angelmondragon/elibrary-backend/pkg/db/models"
	"github.com/angelmondragon/elibrary-backend/pkg/logger"
)

// MaybeRunDev brings the schema up to date at startup, but only in dev with the
// auto-migrate flag set. Postgres runs the embedded goose files; sqlite has no
// goose dialect here, so it gets gorm AutoMigrate over the models.
func MaybeRunDev(ctx context.Context, cfg *config.Config, logg *logger.Logger, client *db.Client) error {
	if !cfg.App.IsDev() || !cfg.FeatureFlags.AutoMigrate {
		return nil
	}
	dialect := client.Dialect()
	ctx = logg.WithField(ctx, "dialect", dialect)

	if dialect == db.DriverSQLite {
		if err := client.DB().WithContext(ctx).AutoMigrate(models.All()...); err != nil {
			return fmt.Errorf("automigrate models: %w", err)
		}
		logg.Info(ctx, "dev schema auto-migrated")
		return nil
	}

	sqlDB, err := client.DB().DB()
	if err != nil {
		return fmt.Errorf("sql handle: %w", err)
	}
	if err := Run(ctx, sqlDB, "", "up"); err != nil {
		return err
	}
	logg.Info(ctx, "dev migrations applied")
	return nil
}
