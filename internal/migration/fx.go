package migration

import (
	"strings"

	"github.com/flowglad/flowglad-sub009/internal/config"
	"github.com/flowglad/flowglad-sub009/internal/seed"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var Module = fx.Module("migrations",
	fx.Invoke(func(conn *gorm.DB, cfg config.Config, log *zap.Logger) error {
		if !cfg.DBRunMigrations {
			log.Info("database migrations disabled")
			return nil
		}

		if err := Migrate(conn, strings.ToLower(strings.TrimSpace(cfg.DBType))); err != nil {
			return err
		}
		return seed.EnsureCountries(conn)
	}),
)
