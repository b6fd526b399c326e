package main

import (
	"context"
	"fmt"
	"time"

	"github.com/docker/go-units"
	"github.com/rs/zerolog"
)

func listCommand(ctx context.Context, args Command, logger zerolog.Logger) error {
	a, err := newApp(args, logger)
	if err != nil {
		return err
	}
	defer a.close(logger)

	records, err := a.engine.ListBackups(ctx)
	if err != nil {
		return err
	}

	if len(records) == 0 {
		fmt.Println("no backups registered")
		return nil
	}

	for _, rec := range records {
		fmt.Printf("%-24s %-20s %10s  %s\n",
			rec.Name,
			rec.Format,
			units.HumanSize(float64(rec.Size)),
			rec.CreatedAt.Format(time.RFC3339),
		)
	}
	return nil
}

func deleteCommand(ctx context.Context, args Command, logger zerolog.Logger) error {
	a, err := newApp(args, logger)
	if err != nil {
		return err
	}
	defer a.close(logger)

	return a.engine.DeleteBackup(ctx, args.Delete.Name)
}

func pruneCommand(ctx context.Context, args Command, logger zerolog.Logger) error {
	a, err := newApp(args, logger)
	if err != nil {
		return err
	}
	defer a.close(logger)

	return a.engine.DeleteOldBackups(ctx, args.Prune.Keep)
}
