package backup

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"

	"github.com/odontosoft/clinicvault/database"
	"github.com/odontosoft/clinicvault/ziparchiver"
)

// Report summarizes what the integrity verifier observed in a backup.
type Report struct {
	TableCount   int
	RowCounts    map[string]int64
	FKViolations int
}

// Verify opens the backup at backupPath read-only and checks it is a
// sound database: at least one table, a passing structural integrity
// check, and per-table row counts for the tracked clinical tables.
// Foreign-key violations are logged as warnings only; referential
// drift is expected after partial restores and is repaired by
// reconciliation, not rejected here. For archive backups the inner
// database is extracted to a temporary directory first.
func Verify(ctx context.Context, backupPath string, openRO database.OpenFunc, logger zerolog.Logger) (*Report, error) {
	logger = logger.With().Str("backup", backupPath).Logger()

	dbPath := backupPath
	if strings.EqualFold(filepath.Ext(backupPath), ".zip") {
		tmpDir, err := os.MkdirTemp("", "clinicvault-verify-")
		if err != nil {
			return nil, fmt.Errorf("could not create verification workspace: %w", err)
		}
		defer os.RemoveAll(tmpDir)

		dbPath, err = ziparchiver.Extract(ctx, backupPath, tmpDir, logger)
		if err != nil {
			return nil, err
		}
	}

	cli, err := openRO(dbPath)
	if err != nil {
		return nil, fmt.Errorf("%w: could not open read-only: %v", ErrIntegrityFailed, err)
	}
	defer func() {
		if sqlDB, dbErr := cli.DB(); dbErr == nil {
			_ = sqlDB.Close()
		}
	}()

	report := &Report{RowCounts: map[string]int64{}}

	err = cli.WithContext(ctx).
		Raw("SELECT COUNT(*) FROM sqlite_master WHERE type = 'table'").
		Scan(&report.TableCount).Error
	if err != nil {
		return nil, fmt.Errorf("%w: could not read schema: %v", ErrIntegrityFailed, err)
	}
	if report.TableCount == 0 {
		return nil, fmt.Errorf("%w: no tables", ErrIntegrityFailed)
	}

	for _, table := range database.TrackedTables() {
		var count int64
		// Tables can legitimately be absent from older backups.
		if err := cli.WithContext(ctx).Raw("SELECT COUNT(*) FROM " + table).Scan(&count).Error; err != nil {
			logger.Debug().Str("table", table).Msg("tracked table not present")
			continue
		}
		report.RowCounts[table] = count
		logger.Info().Str("table", table).Int64("rows", count).Msg("verified table")
	}

	var integrity string
	if err := cli.WithContext(ctx).Raw("PRAGMA integrity_check").Scan(&integrity).Error; err != nil {
		return nil, fmt.Errorf("%w: integrity check errored: %v", ErrIntegrityFailed, err)
	}
	if integrity != "ok" {
		return nil, fmt.Errorf("%w: integrity check reported %q", ErrIntegrityFailed, integrity)
	}

	rows, err := cli.WithContext(ctx).Raw("PRAGMA foreign_key_check").Rows()
	if err != nil {
		logger.Warn().Err(err).Msg("could not run foreign key check")
	} else {
		defer rows.Close()
		for rows.Next() {
			report.FKViolations++
		}
		if err := rows.Err(); err != nil {
			logger.Warn().Err(err).Msg("foreign key check interrupted")
		}
		if report.FKViolations > 0 {
			logger.Warn().Int("violations", report.FKViolations).Msg("foreign key violations found, reconciliation will repair links")
		}
	}

	logger.Info().Int("tables", report.TableCount).Msg("backup verified")
	return report, nil
}
