package backup

import "errors"

var (
	// ErrSourceUnavailable means the live database file is missing or
	// zero-length. Backup creation aborts without writing anything.
	ErrSourceUnavailable = errors.New("live database missing or empty")

	// ErrIntegrityFailed means a produced backup did not pass the
	// structural integrity check. The artifact is deleted.
	ErrIntegrityFailed = errors.New("backup failed integrity check")

	// ErrRestoreFailed wraps any failure during the replacing or
	// reconciling phase of a restore, after rollback was attempted.
	ErrRestoreFailed = errors.New("restore failed")
)
