package main

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/odontosoft/clinicvault/reconcile"
)

func syncCommand(ctx context.Context, args Command, logger zerolog.Logger) error {
	a, err := newApp(args, logger)
	if err != nil {
		return err
	}
	defer a.close(logger)

	scanner := reconcile.NewScanner(a.db, a.cfg.AssetRoot, logger)
	created, err := scanner.SyncFilesystem(ctx)
	if err != nil {
		return err
	}

	logger.Info().Int("adopted", created).Msg("sync complete")
	return nil
}
