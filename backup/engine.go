// Package backup implements the clinic's backup/restore engine:
// checkpointed database snapshots, optional asset archives, integrity
// verification, a persisted catalog, and restore with rollback.
package backup

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/odontosoft/clinicvault/config"
	"github.com/odontosoft/clinicvault/database"
	"github.com/odontosoft/clinicvault/fileutils"
	"github.com/odontosoft/clinicvault/registry"
	"github.com/odontosoft/clinicvault/scheduler"
	"github.com/odontosoft/clinicvault/ziparchiver"
)

const nameTimeLayout = "20060102-150405"

// Params collects everything an Engine needs. All paths come from the
// resolved config; nothing here re-derives them.
type Params struct {
	Config       *config.Config
	DB           *database.Database
	Registry     *registry.Registry
	OpenReadOnly database.OpenFunc
	Logger       zerolog.Logger
}

// Engine drives backup creation and restore. A single mutex makes
// every operation mutually exclusive: overlapping backup and restore
// runs are a correctness hazard, so callers get serialization for free
// instead of by discipline.
type Engine struct {
	mu     sync.Mutex
	cfg    *config.Config
	db     *database.Database
	reg    *registry.Registry
	openRO database.OpenFunc
	logger zerolog.Logger
}

func New(p Params) *Engine {
	return &Engine{
		cfg:    p.Config,
		db:     p.DB,
		reg:    p.Registry,
		openRO: p.OpenReadOnly,
		logger: p.Logger,
	}
}

// CreateBackup produces a verified backup artifact and registers it.
// With includeAssets it bundles the database snapshot and the asset
// tree into a zip; otherwise the artifact is a plain database copy.
// customPath overrides the destination; when empty the artifact lands
// in the configured backup directory under a timestamp-derived name.
// The returned path is the artifact location.
func (e *Engine) CreateBackup(ctx context.Context, customPath string, includeAssets bool) (string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	now := time.Now().UTC()
	name := "backup-" + now.Format(nameTimeLayout)
	logger := e.logger.With().Str("name", name).Bool("assets", includeAssets).Logger()

	startTime := time.Now()
	logger.Info().Msg("starting backup")
	defer func() {
		logger.Info().Float64("seconds", time.Since(startTime).Seconds()).Msg("backup finished")
	}()

	ext := ".db"
	format := registry.FormatDBOnly
	if includeAssets {
		ext = ".zip"
		format = registry.FormatArchiveWithAssets
	}

	artifactPath := customPath
	if artifactPath == "" {
		if err := os.MkdirAll(e.cfg.BackupDir, 0o755); err != nil {
			return "", fmt.Errorf("could not create backup directory: %w", err)
		}
		artifactPath = filepath.Join(e.cfg.BackupDir, name+ext)
	}
	if err := fileutils.VerifyWritable(filepath.Dir(artifactPath)); err != nil {
		return "", fmt.Errorf("backup destination is not writable: %w", err)
	}

	ForceDurable(ctx, e.db, logger)

	if includeAssets {
		snapTmp := filepath.Join(filepath.Dir(artifactPath), name+".db.tmp")
		if err := Snapshot(ctx, e.db, snapTmp, logger); err != nil {
			return "", err
		}
		defer os.Remove(snapTmp)

		if err := ziparchiver.Package(ctx, snapTmp, e.cfg.AssetRoot, artifactPath, logger); err != nil {
			return "", err
		}
	} else {
		if err := Snapshot(ctx, e.db, artifactPath, logger); err != nil {
			return "", err
		}
	}

	if _, err := Verify(ctx, artifactPath, e.openRO, logger); err != nil {
		logger.Error().Err(err).Msg("produced backup failed verification, deleting artifact")
		if rmErr := os.Remove(artifactPath); rmErr != nil {
			logger.Error().Err(rmErr).Str("path", artifactPath).Msg("could not delete failed artifact")
		}
		return "", err
	}

	info, err := os.Stat(artifactPath)
	if err != nil {
		return "", fmt.Errorf("could not stat backup artifact: %w", err)
	}

	if err := e.reg.Add(registry.Record{
		Name:           name,
		Path:           artifactPath,
		Size:           info.Size(),
		CreatedAt:      now,
		Format:         format,
		IncludesAssets: includeAssets,
	}); err != nil {
		return "", fmt.Errorf("could not register backup: %w", err)
	}

	return artifactPath, nil
}

// ListBackups returns the registered backups, newest first.
func (e *Engine) ListBackups(ctx context.Context) ([]registry.Record, error) {
	return e.reg.List()
}

// DeleteBackup removes the named backup and its file.
func (e *Engine) DeleteBackup(ctx context.Context, name string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.reg.Remove(name)
}

// DeleteOldBackups keeps the keepCount newest backups and deletes the
// rest, files included.
func (e *Engine) DeleteOldBackups(ctx context.Context, keepCount int) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	deleted, err := e.reg.Prune(keepCount)
	if err != nil {
		return err
	}
	e.logger.Info().Int("deleted", deleted).Int("keep", keepCount).Msg("pruned old backups")
	return nil
}

// ScheduleAutomaticBackups starts periodic backups at the given
// frequency (hourly, daily or weekly). It returns the running
// scheduler; stopping it stops the backups.
func (e *Engine) ScheduleAutomaticBackups(ctx context.Context, frequency string, includeAssets bool) (*scheduler.Scheduler, error) {
	spec, err := scheduler.CronSpec(frequency)
	if err != nil {
		return nil, err
	}

	s := scheduler.NewScheduler(scheduler.SchedulerParams{Logger: e.logger})
	job := &scheduledBackup{ctx: ctx, engine: e, includeAssets: includeAssets, logger: e.logger}
	if err := s.AddBackupJob(ctx, spec, job); err != nil {
		return nil, err
	}

	s.Start()
	e.logger.Info().Str("frequency", frequency).Str("cron", spec).Msg("scheduled automatic backups")
	return s, nil
}

type scheduledBackup struct {
	ctx           context.Context
	engine        *Engine
	includeAssets bool
	logger        zerolog.Logger
}

func (j *scheduledBackup) Run() {
	if _, err := j.engine.CreateBackup(j.ctx, "", j.includeAssets); err != nil {
		j.logger.Error().Err(err).Msg("scheduled backup failed")
	}
}

// backupFormat classifies an artifact path by extension.
func backupFormat(path string) string {
	return strings.ToLower(filepath.Ext(path))
}
