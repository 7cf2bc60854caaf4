// Package app composes the engine and its collaborators into an fx module
// shared by every CLI subcommand.
package app

import (
	"context"
	"path/filepath"

	"github.com/smsvault/smsvault/internal/auth"
	"github.com/smsvault/smsvault/internal/bus"
	"github.com/smsvault/smsvault/internal/config"
	"github.com/smsvault/smsvault/internal/engine"
	"github.com/smsvault/smsvault/internal/localstore"
	"github.com/smsvault/smsvault/internal/logging"
	"github.com/smsvault/smsvault/internal/prefs"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Params holds the resolved CLI configuration passed to the fx module.
type Params struct {
	ConfigPath string
	Version    string
}

// Module returns the fx module composing all providers and lifecycle hooks.
func Module(p Params) fx.Option {
	return fx.Module("app",
		fx.Supply(p),
		fx.Provide(
			provideConfig,
			provideLogger,
			provideBus,
			provideStore,
			providePrefs,
			provideRefresher,
			provideService,
		),
		fx.Invoke(registerLifecycle),
	)
}

func provideConfig(p Params) (*config.Config, error) {
	return config.Load(p.ConfigPath)
}

func provideLogger(cfg *config.Config) (*zap.Logger, error) {
	return logging.New(filepath.Join(cfg.DataDir, "logs", "smsvault.log"), "smsvault")
}

func provideBus() *bus.Bus {
	return bus.New()
}

func provideStore(cfg *config.Config, logger *zap.Logger) (*localstore.DB, error) {
	dbPath := filepath.Join(cfg.DataDir, "smsvault.db")
	db, err := localstore.Open(dbPath)
	if err != nil {
		return nil, err
	}
	result, err := db.Migrate()
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	if result.Changed {
		logger.Info("migrations applied", zap.Uint("version", result.Version))
	} else {
		logger.Info("migrations up to date", zap.Uint("version", result.Version))
	}
	logger.Info("store initialized", zap.String("path", dbPath))
	return db, nil
}

func providePrefs(db *localstore.DB, cfg *config.Config) *prefs.Store {
	return prefs.New(db, cfg)
}

func provideRefresher(p Params, cfg *config.Config, logger *zap.Logger) *auth.TokenRefresher {
	if cfg.Auth.Method != "oauth2" {
		return nil
	}
	persist := func(refreshToken string) error {
		cfg.Auth.RefreshToken = refreshToken
		return config.Save(p.ConfigPath, cfg)
	}
	return auth.NewTokenRefresher(cfg.Auth, persist, logger)
}

func provideService(p Params, cfg *config.Config, db *localstore.DB, ps *prefs.Store, b *bus.Bus, refresher *auth.TokenRefresher, logger *zap.Logger) *engine.Service {
	return engine.NewService(cfg, db, ps, b, refresher, p.Version, logger)
}

func registerLifecycle(lc fx.Lifecycle, db *localstore.DB, logger *zap.Logger) {
	lc.Append(fx.Hook{
		OnStop: func(_ context.Context) error {
			if err := db.Close(); err != nil {
				logger.Warn("error closing store", zap.Error(err))
			}
			_ = logger.Sync()
			return nil
		},
	})
}
