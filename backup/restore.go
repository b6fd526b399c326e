package backup

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/odontosoft/clinicvault/config"
	"github.com/odontosoft/clinicvault/database"
	"github.com/odontosoft/clinicvault/fileutils"
	"github.com/odontosoft/clinicvault/reconcile"
	"github.com/odontosoft/clinicvault/ziparchiver"
)

type restoreState int

const (
	stateIdle restoreState = iota
	stateSnapshottingCurrent
	stateReplacing
	stateReconciling
	stateRollingBack
	stateDone
)

func (s restoreState) String() string {
	switch s {
	case stateIdle:
		return "idle"
	case stateSnapshottingCurrent:
		return "snapshotting-current"
	case stateReplacing:
		return "replacing"
	case stateReconciling:
		return "reconciling"
	case stateRollingBack:
		return "rolling-back"
	case stateDone:
		return "done"
	default:
		return "unknown"
	}
}

// RestoreBackup reinstates the live database (and, for archive
// backups, the asset tree) from the artifact at path. The live state
// is snapshotted aside first; any failure while replacing or
// reconciling rolls back to that snapshot before the error surfaces.
// A failed restore never leaves the application worse off than before
// the attempt, except when rollback itself fails, which is reported as
// requiring manual intervention.
func (e *Engine) RestoreBackup(ctx context.Context, path string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !fileutils.Exists(path) {
		return fmt.Errorf("backup file does not exist: %s", path)
	}

	switch backupFormat(path) {
	case ".db":
		return e.restoreArtifact(ctx, path, false)
	case ".zip":
		return e.restoreArtifact(ctx, path, true)
	case ".json":
		return e.restoreLegacyDump(ctx, path)
	default:
		return fmt.Errorf("unsupported backup format: %s", path)
	}
}

func (e *Engine) restoreArtifact(ctx context.Context, path string, withAssets bool) error {
	logger := e.logger.With().Str("backup", path).Logger()

	state := stateIdle
	transition := func(next restoreState) {
		logger.Info().Stringer("from", state).Stringer("to", next).Msg("restore state")
		state = next
	}

	transition(stateSnapshottingCurrent)
	anchor, err := captureAnchor(e.cfg, withAssets, logger)
	if err != nil {
		return fmt.Errorf("could not snapshot current state: %w", err)
	}
	// The anchor is the operator's last resort when rollback fails, so
	// it must survive that path. Every other exit discards it.
	keepAnchor := false
	defer func() {
		if !keepAnchor {
			anchor.discard()
		}
	}()

	// Everything that can fail without touching live state happens
	// before the first mutation.
	replacementDB := path
	var extractedAssets string
	if withAssets {
		workDir := filepath.Join(os.TempDir(), "clinicvault-restore-"+uuid.NewString())
		defer os.RemoveAll(workDir)

		replacementDB, err = ziparchiver.Extract(ctx, path, workDir, logger)
		if err != nil {
			return err
		}
		extractedAssets = filepath.Join(workDir, config.AssetDirName)
	}

	transition(stateReplacing)
	err = e.replaceLiveState(replacementDB, extractedAssets, withAssets, logger)

	if err == nil {
		transition(stateReconciling)
		scanner := reconcile.NewScanner(e.db, e.cfg.AssetRoot, logger)
		err = scanner.Reconcile(ctx)
	}

	if err != nil {
		transition(stateRollingBack)
		if rbErr := anchor.rollback(e.db); rbErr != nil {
			keepAnchor = true
			return fmt.Errorf("%w: %w; rollback also failed (%v); manual intervention required, pre-restore state kept at %s",
				ErrRestoreFailed, err, rbErr, anchor.dir)
		}
		logger.Warn().Err(err).Msg("restore failed, live state rolled back")
		return fmt.Errorf("%w: %w", ErrRestoreFailed, err)
	}

	transition(stateDone)
	logger.Info().Msg("restore complete")
	return nil
}

func (e *Engine) replaceLiveState(replacementDB, extractedAssets string, withAssets bool, logger zerolog.Logger) error {
	if err := ReplaceLive(e.db, replacementDB, logger); err != nil {
		return err
	}

	if !withAssets {
		return nil
	}

	if err := os.RemoveAll(e.cfg.AssetRoot); err != nil {
		return fmt.Errorf("could not clear asset tree: %w", err)
	}
	if err := os.MkdirAll(e.cfg.AssetRoot, 0o755); err != nil {
		return fmt.Errorf("could not recreate asset root: %w", err)
	}
	// Archives of an asset-less clinic have no asset directory entry.
	if fileutils.Exists(extractedAssets) {
		if err := fileutils.CopyDir(extractedAssets, e.cfg.AssetRoot); err != nil {
			return fmt.Errorf("could not restore asset tree: %w", err)
		}
	}
	return nil
}

// rollbackAnchor is the pre-restore copy of the live state. It lives
// in a uuid-named temp directory and is discarded once the restore
// reaches Done.
type rollbackAnchor struct {
	dir       string
	dbCopy    string
	assetCopy string // empty when assets were not captured
	assetRoot string
	logger    zerolog.Logger
}

func captureAnchor(cfg *config.Config, withAssets bool, logger zerolog.Logger) (*rollbackAnchor, error) {
	dir := filepath.Join(os.TempDir(), "clinicvault-anchor-"+uuid.NewString())
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, err
	}

	anchor := &rollbackAnchor{
		dir:       dir,
		dbCopy:    filepath.Join(dir, config.DatabaseFileName),
		assetRoot: cfg.AssetRoot,
		logger:    logger,
	}

	if _, err := fileutils.CopyFileVerified(cfg.DatabasePath, anchor.dbCopy); err != nil {
		os.RemoveAll(dir)
		return nil, fmt.Errorf("could not copy live database aside: %w", err)
	}

	if withAssets && fileutils.Exists(cfg.AssetRoot) {
		anchor.assetCopy = filepath.Join(dir, config.AssetDirName)
		if err := fileutils.CopyDir(cfg.AssetRoot, anchor.assetCopy); err != nil {
			os.RemoveAll(dir)
			return nil, fmt.Errorf("could not copy asset tree aside: %w", err)
		}
	}

	logger.Info().Str("anchor", dir).Msg("captured pre-restore snapshot")
	return anchor, nil
}

// rollback reinstates the anchored state: assets first, then the
// database, so a second failure leaves the database error visible.
func (a *rollbackAnchor) rollback(db *database.Database) error {
	var errs []error

	if a.assetCopy != "" {
		if err := os.RemoveAll(a.assetRoot); err != nil {
			errs = append(errs, fmt.Errorf("could not clear asset tree: %w", err))
		} else if err := fileutils.CopyDir(a.assetCopy, a.assetRoot); err != nil {
			errs = append(errs, fmt.Errorf("could not restore asset tree: %w", err))
		}
	}

	if err := ReplaceLive(db, a.dbCopy, a.logger); err != nil {
		errs = append(errs, err)
	}

	if err := errors.Join(errs...); err != nil {
		return err
	}

	a.logger.Info().Msg("rolled back to pre-restore snapshot")
	return nil
}

func (a *rollbackAnchor) discard() {
	if err := os.RemoveAll(a.dir); err != nil {
		a.logger.Warn().Err(err).Str("anchor", a.dir).Msg("could not discard rollback anchor")
	}
}
