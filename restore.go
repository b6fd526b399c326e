package main

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

func restoreCommand(ctx context.Context, args Command, logger zerolog.Logger) error {
	a, err := newApp(args, logger)
	if err != nil {
		return err
	}
	defer a.close(logger)

	startTime := time.Now()
	logger.Info().Str("backup", args.Restore.Path).Msg("starting restore")
	defer func() {
		tookSeconds := time.Since(startTime).Seconds()
		if ctx.Err() != nil {
			logger.Info().Float64("seconds", tookSeconds).Msg("restore cancelled")
		} else {
			logger.Info().Float64("seconds", tookSeconds).Msg("restore done")
		}
	}()

	return a.engine.RestoreBackup(ctx, args.Restore.Path)
}
