// Package app assembles configuration, logging and the store for the CLI.
package app

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/openlawwa/lexcrawler/internal/config"
	"github.com/openlawwa/lexcrawler/internal/logging"
	"github.com/openlawwa/lexcrawler/internal/store"
)

// App carries the services every command needs. Commands open the store
// themselves so read-only consumers never hold a write handle.
type App struct {
	Cfg config.Config
	Log *zap.Logger
}

// New loads configuration and builds the logger. cfgFile may be empty, in
// which case defaults and LEXCRAWLER_* environment variables apply.
func New(cfgFile string) (*App, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, err
	}
	log, err := logging.New(cfg.Logging.Development)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	return &App{Cfg: cfg, Log: log}, nil
}

// OpenStore opens the corpus database for writing, creating it if absent.
func (a *App) OpenStore() (*store.Store, error) {
	return store.Open(a.Cfg.DB.Path)
}

// OpenStoreReadOnly opens an existing corpus database for querying.
func (a *App) OpenStoreReadOnly() (*store.Store, error) {
	return store.OpenReadOnly(a.Cfg.DB.Path)
}

// Close flushes the logger.
func (a *App) Close() {
	logging.Sync(a.Log)
}
