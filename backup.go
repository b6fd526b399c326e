package main

import (
	"context"
	"os"
	"time"

	"github.com/docker/go-units"
	"github.com/rs/zerolog"
)

func backupCommand(ctx context.Context, args Command, logger zerolog.Logger) error {
	a, err := newApp(args, logger)
	if err != nil {
		return err
	}
	defer a.close(logger)

	startTime := time.Now()
	logger.Info().Str("dest", args.Backup.Dest).Msg("starting backup")
	defer func() {
		tookSeconds := time.Since(startTime).Seconds()
		if ctx.Err() != nil {
			logger.Info().Float64("seconds", tookSeconds).Msg("backup cancelled")
		} else {
			logger.Info().Float64("seconds", tookSeconds).Msg("backup done")
		}
	}()

	path, err := a.engine.CreateBackup(ctx, args.Backup.Dest, args.Backup.Assets)
	if err != nil {
		return err
	}

	if info, statErr := os.Stat(path); statErr == nil {
		if max := args.Backup.MaxSize.Size; max > 0 && info.Size() > max {
			logger.Warn().
				Str("size", units.HumanSize(float64(info.Size()))).
				Str("max", units.HumanSize(float64(max))).
				Msg("backup artifact exceeds the configured size")
		}
		logger.Info().Str("path", path).Str("size", units.HumanSize(float64(info.Size()))).Msg("backup created")
	}

	return nil
}
