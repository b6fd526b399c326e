package main

import (
	"fmt"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/odontosoft/clinicvault/backup"
	"github.com/odontosoft/clinicvault/config"
	"github.com/odontosoft/clinicvault/database"
	"github.com/odontosoft/clinicvault/registry"
)

// app wires the resolved configuration, the live database handle and
// the backup engine together for the CLI commands.
type app struct {
	cfg    *config.Config
	db     *database.Database
	reg    *registry.Registry
	engine *backup.Engine
}

func newApp(args Command, logger zerolog.Logger) (*app, error) {
	cfg, err := config.Resolve(args.DataDir)
	if err != nil {
		return nil, err
	}
	if err := cfg.EnsureDirs(); err != nil {
		return nil, err
	}
	logger.Debug().Str("data_dir", cfg.DataDir).Msg("resolved data directory")

	db, err := database.New(cfg.DatabasePath, func(path string) (*gorm.DB, error) {
		return newSQLite(path, logger)
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("could not open clinic database: %w", err)
	}

	reg := registry.New(cfg.RegistryPath, logger)

	engine := backup.New(backup.Params{
		Config:   cfg,
		DB:       db,
		Registry: reg,
		OpenReadOnly: func(path string) (*gorm.DB, error) {
			return newSQLiteReadOnly(path, logger)
		},
		Logger: logger,
	})

	return &app{cfg: cfg, db: db, reg: reg, engine: engine}, nil
}

func (a *app) close(logger zerolog.Logger) {
	if err := a.db.Close(); err != nil {
		logger.Warn().Err(err).Msg("could not close clinic database")
	}
}
