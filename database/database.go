package database

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/rs/zerolog"
	"gorm.io/gorm"
)

// OpenFunc opens a gorm handle on the SQLite file at path. Kept as a
// function so the engine can close and reopen the live database around
// a restore without knowing how the handle is configured.
type OpenFunc func(path string) (*gorm.DB, error)

// Database owns the single live clinic database handle. The backup
// engine borrows it for checkpointing and snapshotting and the restore
// orchestrator closes and reopens it around the replacement step.
type Database struct {
	Lock   sync.Mutex
	Logger zerolog.Logger

	cli  *gorm.DB
	path string
	open OpenFunc
}

func New(path string, open OpenFunc, logger zerolog.Logger) (*Database, error) {
	cli, err := open(path)
	if err != nil {
		return nil, fmt.Errorf("could not open database: %w", err)
	}

	return &Database{
		Logger: logger,
		cli:    cli,
		path:   path,
		open:   open,
	}, nil
}

// Cli returns the live gorm handle.
func (d *Database) Cli() *gorm.DB {
	return d.cli
}

// Path returns the location of the live database file.
func (d *Database) Path() string {
	return d.path
}

// Checkpoint issues a wal_checkpoint with the given mode (PASSIVE,
// FULL, RESTART or TRUNCATE).
func (d *Database) Checkpoint(ctx context.Context, mode string) error {
	switch mode {
	case "PASSIVE", "FULL", "RESTART", "TRUNCATE":
	default:
		return fmt.Errorf("unknown checkpoint mode %q", mode)
	}

	d.Logger.Debug().Str("mode", mode).Msg("checkpointing database")
	return d.cli.WithContext(ctx).Exec("PRAGMA wal_checkpoint(" + mode + ")").Error
}

// Synchronous reads the current synchronous pragma level.
func (d *Database) Synchronous(ctx context.Context) (int, error) {
	var level int
	err := d.cli.WithContext(ctx).Raw("PRAGMA synchronous").Scan(&level).Error
	return level, err
}

// SetSynchronous sets the synchronous pragma level (0=OFF to 3=EXTRA).
func (d *Database) SetSynchronous(ctx context.Context, level int) error {
	if level < 0 || level > 3 {
		return fmt.Errorf("invalid synchronous level %d", level)
	}
	return d.cli.WithContext(ctx).Exec(fmt.Sprintf("PRAGMA synchronous = %d", level)).Error
}

// VacuumInto performs an engine-level page-consistent copy of the live
// database into dest. Unlike a byte copy, the engine understands page
// consistency even while the source handle is open elsewhere.
func (d *Database) VacuumInto(ctx context.Context, dest string) error {
	quoted := strings.ReplaceAll(dest, "'", "''")
	return d.cli.WithContext(ctx).Exec(fmt.Sprintf("VACUUM INTO '%s'", quoted)).Error
}

// Close releases the underlying connection. The handle is unusable
// until Reinitialize is called.
func (d *Database) Close() error {
	sqlDB, err := d.cli.DB()
	if err != nil {
		return fmt.Errorf("could not access underlying connection: %w", err)
	}
	return sqlDB.Close()
}

// Reinitialize reopens the handle on the live database path.
func (d *Database) Reinitialize() error {
	cli, err := d.open(d.path)
	if err != nil {
		return fmt.Errorf("could not reopen database: %w", err)
	}
	d.cli = cli
	return nil
}
