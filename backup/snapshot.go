package backup

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/rs/zerolog"

	"github.com/odontosoft/clinicvault/database"
	"github.com/odontosoft/clinicvault/fileutils"
)

// Snapshot produces a consistent copy of the live database at
// destPath. The primary path is an engine-level page copy, which stays
// correct while the source handle is open elsewhere; if that fails, a
// verified byte copy is used as fallback. The caller must still run
// Verify before trusting the result.
func Snapshot(ctx context.Context, db *database.Database, destPath string, logger zerolog.Logger) error {
	info, err := os.Stat(db.Path())
	if err != nil {
		return fmt.Errorf("%w: %v", ErrSourceUnavailable, err)
	}
	if info.Size() == 0 {
		return fmt.Errorf("%w: %s is zero bytes", ErrSourceUnavailable, db.Path())
	}

	if err := db.VacuumInto(ctx, destPath); err != nil {
		logger.Warn().Err(err).Msg("native page copy failed, falling back to file copy")
		// A failed VACUUM INTO may leave a partial destination behind.
		if rmErr := os.Remove(destPath); rmErr != nil && !os.IsNotExist(rmErr) {
			return fmt.Errorf("could not clear partial snapshot: %w", rmErr)
		}
		if _, err := fileutils.CopyFileVerified(db.Path(), destPath); err != nil {
			return fmt.Errorf("snapshot fallback copy failed: %w", err)
		}
	}

	info, err = os.Stat(destPath)
	if err != nil {
		return fmt.Errorf("snapshot not written: %w", err)
	}
	if info.Size() == 0 {
		return errors.New("snapshot is empty")
	}

	logger.Info().Str("snapshot", destPath).Int64("size", info.Size()).Msg("database snapshot written")
	return nil
}

// ReplaceLive is the snapshot's inverse path: it closes the live
// handle, copies backupDBPath over the live database file and reopens
// the persistence layer. Stale -wal/-shm sidecars are removed so the
// replaced file cannot be rolled forward with pages from the old log.
func ReplaceLive(db *database.Database, backupDBPath string, logger zerolog.Logger) error {
	if err := db.Close(); err != nil {
		logger.Warn().Err(err).Msg("could not close live database before replacement")
	}

	for _, sidecar := range []string{db.Path() + "-wal", db.Path() + "-shm"} {
		if err := os.Remove(sidecar); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("could not remove %s: %w", sidecar, err)
		}
	}

	if _, err := fileutils.CopyFileVerified(backupDBPath, db.Path()); err != nil {
		return fmt.Errorf("could not replace live database: %w", err)
	}

	if err := db.Reinitialize(); err != nil {
		return err
	}

	logger.Info().Str("from", backupDBPath).Msg("live database replaced")
	return nil
}
