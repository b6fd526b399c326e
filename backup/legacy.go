package backup

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/odontosoft/clinicvault/database"
)

// restoreLegacyDump handles the pre-archive *.json backup format: a
// flat dump of entity collections. Each collection is cleared and
// re-inserted inside one transaction. This path has no rollback
// anchor beyond the transaction itself; the legacy format predates
// crash-consistent snapshots.
func (e *Engine) restoreLegacyDump(ctx context.Context, path string) error {
	logger := e.logger.With().Str("backup", path).Logger()
	logger.Warn().Msg("restoring legacy dump format")

	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("could not read legacy dump: %w", err)
	}

	dump := &database.LegacyDump{}
	if err := json.Unmarshal(raw, dump); err != nil {
		return fmt.Errorf("could not parse legacy dump: %w", err)
	}

	if err := e.db.ReplaceAll(ctx, dump); err != nil {
		return fmt.Errorf("could not apply legacy dump: %w", err)
	}

	logger.Info().
		Int("patients", len(dump.Patients)).
		Int("treatments", len(dump.Treatments)).
		Int("payments", len(dump.Payments)).
		Int("appointments", len(dump.Appointments)).
		Int("images", len(dump.Images)).
		Msg("legacy dump restored")
	return nil
}
