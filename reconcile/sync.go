package reconcile

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/odontosoft/clinicvault/asset"
	"github.com/odontosoft/clinicvault/database"
)

// SyncFilesystem walks the asset root and creates an image record for
// every file that sits in a valid canonical layout with a known owner
// but has no row yet. It is idempotent and safe to run standalone,
// outside a restore.
func (s *Scanner) SyncFilesystem(ctx context.Context) (int, error) {
	var created int

	s.logger.Info().Msg("syncing filesystem into asset metadata")
	for a := range asset.ScanDirectory(ctx, s.assetRoot, s.logger) {
		if ctx.Err() != nil {
			return created, ctx.Err()
		}

		rel, err := filepath.Rel(s.assetRoot, a.Path())
		if err != nil {
			continue
		}

		parts, ok := asset.ParseRelPath(rel)
		if !ok {
			s.logger.Debug().Str("path", rel).Msg("file outside canonical layout, skipping")
			continue
		}

		patient, err := s.db.PatientByID(ctx, parts.PatientID)
		if err != nil {
			return created, fmt.Errorf("could not look up patient %d: %w", parts.PatientID, err)
		}
		if patient == nil {
			s.logger.Debug().Str("path", rel).Uint("patient", parts.PatientID).Msg("no such patient, skipping")
			continue
		}

		known, err := s.db.ImageExistsAtPath(ctx, rel)
		if err != nil {
			return created, fmt.Errorf("could not check image record: %w", err)
		}
		if known {
			continue
		}

		img := database.PatientImage{
			PatientID:   parts.PatientID,
			ToothNumber: parts.Tooth,
			Category:    parts.Category,
			Path:        rel,
		}

		latest, err := s.db.LatestTreatment(ctx, parts.PatientID, parts.Tooth)
		if err != nil {
			return created, fmt.Errorf("could not look up treatment: %w", err)
		}
		if latest != nil {
			img.TreatmentID = &latest.ID
		} else {
			s.logger.Error().Str("path", rel).Msg("adopted file has no matching treatment")
		}

		if err := s.db.CreateImage(ctx, &img); err != nil {
			return created, fmt.Errorf("could not create image record: %w", err)
		}
		created++
		s.logger.Info().Object("image", img).Msg("adopted orphaned file")
	}

	s.logger.Info().Int("created", created).Msg("filesystem sync done")
	return created, nil
}
