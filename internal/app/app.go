package app

import (
	"log/slog"
	"os"
	"path/filepath"

	routerApp "github.com/aimsports/aim-backend/internal/app/router"
	"github.com/aimsports/aim-backend/internal/config"
	"github.com/aimsports/aim-backend/internal/lib/logger/sl"
	"github.com/aimsports/aim-backend/internal/storage/sqlite"
	"github.com/aimsports/aim-backend/migrations"
)

type App struct {
	Router  *routerApp.App
	storage *sqlite.Storage
}

func New(
	log *slog.Logger,
	cfg *config.Config,
	secret []byte,
) *App {
	if err := os.MkdirAll(filepath.Dir(cfg.StoragePath), 0o755); err != nil {
		log.Error("failed to create storage dir", sl.Err(err))
		os.Exit(1)
	}

	if cfg.MigrateOnStart {
		applied, err := migrations.Up(cfg.StoragePath, "")
		if err != nil {
			log.Error("failed to apply migrations", sl.Err(err))
			os.Exit(1)
		}
		if applied {
			log.Info("migrations applied")
		}
	}

	storage, err := sqlite.New(cfg.StoragePath)
	if err != nil {
		log.Error("failed to init storage", sl.Err(err))
		os.Exit(1)
	}

	router := routerApp.New(
		log,
		storage,
		cfg,
		secret,
	)

	return &App{
		Router:  router,
		storage: storage,
	}
}

// Stop shuts down http server and closes storage.
func (a *App) Stop() error {
	if err := a.Router.Stop(); err != nil {
		return err
	}

	return a.storage.Stop()
}
