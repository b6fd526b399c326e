package main

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/odontosoft/clinicvault/backup"
	"github.com/odontosoft/clinicvault/config"
	"github.com/odontosoft/clinicvault/fileutils"
	"github.com/odontosoft/clinicvault/scheduler"
)

func daemonCommand(ctx context.Context, args Command, logger zerolog.Logger) error {
	a, err := newApp(args, logger)
	if err != nil {
		return err
	}
	defer a.close(logger)

	sched, err := config.LoadScheduleFromFile(args.Daemon.Config)
	if err != nil {
		return fmt.Errorf("could not load schedule config: %w", err)
	}

	s := scheduler.NewScheduler(scheduler.SchedulerParams{
		Logger: logger,
	})

	if err := addJobsFromSchedule(ctx, s, sched, a.engine, logger); err != nil {
		return fmt.Errorf("could not add backup jobs: %w", err)
	}

	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()
	startScheduleFileWatcher(ctx, args.Daemon.Config, logger, ticker, func(sched *config.Schedule) {
		s.RemoveJobs()
		if err := addJobsFromSchedule(ctx, s, sched, a.engine, logger); err != nil {
			logger.Error().Err(err).Msg("failed to add backup jobs")
		}
	})

	s.Start()
	defer s.Stop()

	<-ctx.Done()

	return nil
}

func addJobsFromSchedule(
	ctx context.Context,
	s *scheduler.Scheduler,
	sched *config.Schedule,
	engine *backup.Engine,
	logger zerolog.Logger,
) error {
	for _, job := range sched.Jobs {
		if !job.Enable {
			logger.Info().Object("job", job).Msg("skipping disabled backup job")
			continue
		}

		spec, err := scheduler.CronSpec(job.Frequency)
		if err != nil {
			logger.Warn().AnErr("cause", err).Object("job", job).Msg("skipping job")
			continue
		}

		if err := s.AddBackupJob(ctx, spec, &daemonJob{
			ctx:           ctx,
			engine:        engine,
			includeAssets: job.IncludeAssets,
			keep:          sched.Keep,
			logger:        logger,
		}); err != nil {
			logger.Error().Err(err).Object("job", job).Msg("could not add backup job")
			continue
		}

		logger.Info().Object("job", job).Msg("added backup job")
	}
	return nil
}

func startScheduleFileWatcher(ctx context.Context, cfgPath string, logger zerolog.Logger, ticker *time.Ticker, onChanged func(sched *config.Schedule)) {
	logger.Info().Str("path", cfgPath).Msg("watching schedule config for changes")
	watcher, err := fileutils.WatchFile(ctx, cfgPath, when(ticker.C), func(err error) {
		logger.Error().Err(err).Msg("could not watch schedule config")
	})
	if err != nil {
		logger.Error().Err(err).Msg("could not watch schedule config")
		return
	}

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case <-watcher:
				logger.Info().Str("path", cfgPath).Msg("schedule config changed, reloading")

				sched, err := config.LoadScheduleFromFile(cfgPath)
				if err != nil {
					logger.Error().Err(err).Msg("could not load schedule config")
					break
				}

				onChanged(sched)
			}
		}
	}()
}

func when[T any](ch <-chan T) <-chan struct{} {
	out := make(chan struct{})
	go func() {
		defer close(out)
		for range ch {
			out <- struct{}{}
		}
	}()
	return out
}

type daemonJob struct {
	ctx           context.Context
	engine        *backup.Engine
	includeAssets bool
	keep          int
	logger        zerolog.Logger
}

func (j *daemonJob) Run() {
	path, err := j.engine.CreateBackup(j.ctx, "", j.includeAssets)
	if err != nil {
		j.logger.Error().Err(err).Msg("scheduled backup failed")
		return
	}
	j.logger.Info().Str("path", path).Msg("scheduled backup created")

	if j.keep > 0 {
		if err := j.engine.DeleteOldBackups(j.ctx, j.keep); err != nil {
			j.logger.Error().Err(err).Msg("could not prune old backups")
		}
	}
}
