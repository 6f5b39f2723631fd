package main

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/ninthcircle/diceroller/internal/config"
	"github.com/ninthcircle/diceroller/internal/db"
	"github.com/ninthcircle/diceroller/internal/lifecycle"
	"github.com/ninthcircle/diceroller/internal/options"
)

// deps holds what every command needs: configuration, logger, the opened
// database with host tables migrated, and the option store
type deps struct {
	cfg       *config.Config
	logger    *slog.Logger
	db        *db.DB
	opts      options.Store
	closeOpts func() error
}

func openDeps(logOut io.Writer) (*deps, error) {
	cfg, err := config.Load(configFile)
	if err != nil {
		return nil, err
	}

	logger := newLogger(cfg.Logging, logOut)
	slog.SetDefault(logger)

	database, err := db.New(cfg.Database.Path, cfg.Database.TablePrefix)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	if err := database.Migrate(); err != nil {
		database.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	opts, closeOpts, err := options.Open(cfg.Options, database.DB)
	if err != nil {
		database.Close()
		return nil, err
	}

	return &deps{
		cfg:       cfg,
		logger:    logger,
		db:        database,
		opts:      opts,
		closeOpts: closeOpts,
	}, nil
}

func (d *deps) Close() {
	if err := d.closeOpts(); err != nil {
		d.logger.Error("failed to close options store", "error", err)
	}
	if err := d.db.Close(); err != nil {
		d.logger.Error("failed to close database", "error", err)
	}
}

func (d *deps) lifecycle() *lifecycle.Manager {
	return lifecycle.New(d.db, d.opts, d.logger, lifecycle.DefaultComponents(d.cfg.SeedCampaign())...)
}

func newLogger(cfg config.LoggingConfig, out io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{Level: parseLogLevel(cfg.Level)}

	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(out, opts)
	} else {
		handler = slog.NewTextHandler(out, opts)
	}
	return slog.New(handler)
}

func parseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
