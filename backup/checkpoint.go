package backup

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/odontosoft/clinicvault/database"
)

// synchronousExtra is the strictest SQLite durability mode.
const synchronousExtra = 3

// ForceDurable pushes everything the write-ahead log still holds into
// the main database file before it gets copied: TRUNCATE, then FULL,
// then a RESTART checkpoint under the strictest synchronous mode.
// Checkpoint failures are usually caused by concurrent readers rather
// than corruption, so every step is best-effort: failures are logged
// and the snapshot proceeds anyway.
func ForceDurable(ctx context.Context, db *database.Database, logger zerolog.Logger) {
	if err := db.Checkpoint(ctx, "TRUNCATE"); err != nil {
		logger.Warn().Err(err).Msg("truncate checkpoint failed")
	}
	if err := db.Checkpoint(ctx, "FULL"); err != nil {
		logger.Warn().Err(err).Msg("full checkpoint failed")
	}

	orig, err := db.Synchronous(ctx)
	if err != nil {
		logger.Warn().Err(err).Msg("could not read synchronous mode")
		return
	}

	if err := db.SetSynchronous(ctx, synchronousExtra); err != nil {
		logger.Warn().Err(err).Msg("could not raise synchronous mode")
	}
	if err := db.Checkpoint(ctx, "RESTART"); err != nil {
		logger.Warn().Err(err).Msg("restart checkpoint failed")
	}
	if err := db.SetSynchronous(ctx, orig); err != nil {
		logger.Warn().Err(err).Int("mode", orig).Msg("could not restore synchronous mode")
	}
}
