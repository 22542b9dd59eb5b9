package migrate

import (
	"context"
	"fmt"

	"github.com/angelmondragon/swiftcart-backend/pkg/config"
	"github.com/angelmondragon/swiftcart-backend/pkg/db"
	"github.com/angelmondragon/swiftcart-backend/pkg/logger"
)

// ShouldAutoRun reports whether a process should migrate on boot: dev with
// the auto-migrate flag, or any sqlite database, which is always local.
func ShouldAutoRun(cfg *config.Config) bool {
	if cfg == nil {
		return false
	}
	return cfg.DB.IsSQLite() || (cfg.App.IsDev() && cfg.FeatureFlags.AutoMigrate)
}

// MaybeRunDev applies pending migrations when ShouldAutoRun allows it.
func MaybeRunDev(ctx context.Context, cfg *config.Config, logg *logger.Logger, client *db.Client) error {
	if !ShouldAutoRun(cfg) {
		return nil
	}
	sqlDB, err := client.DB().DB()
	if err != nil {
		return fmt.Errorf("extracting sql.DB: %w", err)
	}

	source, err := Source("")
	if err != nil {
		return err
	}
	dialect := Dialect(cfg.DB)
	runner, err := NewRunner(sqlDB, dialect, source)
	if err != nil {
		return err
	}

	ctx = logg.WithFields(ctx, map[string]any{"env": cfg.App.Env, "dialect": string(dialect)})
	logg.Info(ctx, "migrate.autorun_started")
	applied, err := runner.Apply(ctx, "up")
	if err != nil {
		return err
	}
	logg.Info(logg.WithField(ctx, "applied", len(applied)), "migrate.autorun_completed")
	return nil
}
