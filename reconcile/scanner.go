// Package reconcile re-links asset metadata rows to the files and
// parent records actually present after a restore: it migrates
// legacy directory layouts, adopts misplaced files, and repoints
// treatment links. Nothing here deletes clinical data; rows that
// cannot be repaired are logged and left in place.
package reconcile

import (
	"context"
	"fmt"
	"io/fs"
	"path/filepath"

	"github.com/rs/zerolog"

	"github.com/odontosoft/clinicvault/asset"
	"github.com/odontosoft/clinicvault/database"
	"github.com/odontosoft/clinicvault/fileutils"
)

type Scanner struct {
	db        *database.Database
	assetRoot string
	logger    zerolog.Logger
}

func NewScanner(db *database.Database, assetRoot string, logger zerolog.Logger) *Scanner {
	return &Scanner{
		db:        db,
		assetRoot: assetRoot,
		logger:    logger.With().Str("asset_root", assetRoot).Logger(),
	}
}

// Reconcile runs path repair and parent re-linking as one pass over
// every image row. Rows that cannot be matched to a file or a
// treatment produce warnings, never errors; only database read or
// write failures abort the pass.
func (s *Scanner) Reconcile(ctx context.Context) error {
	var repaired, relinked, unresolved int

	s.logger.Info().Msg("reconciling asset metadata")
	for img, err := range s.db.IterImages(ctx) {
		if err != nil {
			return fmt.Errorf("could not read image records: %w", err)
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}

		changed := false

		pathChanged, found := s.repairPath(ctx, &img)
		if pathChanged {
			changed = true
			repaired++
		}
		if !found {
			unresolved++
		}

		if s.relinkParent(ctx, &img) {
			changed = true
			relinked++
		}

		if changed {
			if err := s.db.SaveImage(ctx, &img); err != nil {
				return fmt.Errorf("could not save repaired image record: %w", err)
			}
		}
	}

	s.logger.Info().
		Int("paths_repaired", repaired).
		Int("parents_relinked", relinked).
		Int("unresolved", unresolved).
		Msg("reconciliation done")
	return nil
}

// repairPath points the row at a file that exists: canonical location
// first, then the legacy name-keyed layout, then a filename search
// under the whole asset root. Returns whether the stored path changed
// and whether a file was found at all.
func (s *Scanner) repairPath(ctx context.Context, img *database.PatientImage) (changed, found bool) {
	filename := filepath.Base(filepath.FromSlash(img.Path))
	canonical := asset.CanonicalRelPath(img.PatientID, img.ToothNumber, img.Category, filename)
	canonicalAbs := filepath.Join(s.assetRoot, canonical)

	if fileutils.Exists(canonicalAbs) {
		if img.Path != canonical {
			img.Path = canonical
			return true, true
		}
		return false, true
	}

	legacyAbs := filepath.Join(s.assetRoot, asset.LegacyRelPath(img.Patient.FullName, img.Category, filename))
	if fileutils.Exists(legacyAbs) {
		if _, err := fileutils.CopyFileVerified(legacyAbs, canonicalAbs); err != nil {
			s.logger.Warn().Err(err).Object("image", *img).Msg("could not migrate legacy asset")
			return false, false
		}
		s.logger.Info().Str("from", legacyAbs).Str("to", canonical).Msg("migrated legacy asset layout")
		img.Path = canonical
		return true, true
	}

	// Last resort: adopt the first file anywhere under the root with
	// the same name. Ambiguous when filenames repeat across owners;
	// the match is logged so an operator can review it.
	if adopted := s.findByName(ctx, filename); adopted != "" {
		if _, err := fileutils.CopyFileVerified(adopted, canonicalAbs); err != nil {
			s.logger.Warn().Err(err).Object("image", *img).Msg("could not adopt found asset")
			return false, false
		}
		s.logger.Warn().
			Str("found", adopted).
			Str("to", canonical).
			Msg("adopted asset by filename search; verify the match")
		img.Path = canonical
		return true, true
	}

	s.logger.Warn().Object("image", *img).Msg("no file found for image record")
	return false, false
}

func (s *Scanner) findByName(ctx context.Context, filename string) string {
	var match string
	err := filepath.WalkDir(s.assetRoot, func(path string, d fs.DirEntry, err error) error {
		if ctx.Err() != nil {
			return filepath.SkipAll
		}
		if err != nil || d.IsDir() {
			return nil
		}
		if d.Name() == filename {
			match = path
			return filepath.SkipAll
		}
		return nil
	})
	if err != nil {
		s.logger.Warn().Err(err).Msg("filename search failed")
	}
	return match
}

// relinkParent repoints the row at the most recently created treatment
// for its patient and tooth. Returns whether the link changed.
func (s *Scanner) relinkParent(ctx context.Context, img *database.PatientImage) bool {
	latest, err := s.db.LatestTreatment(ctx, img.PatientID, img.ToothNumber)
	if err != nil {
		s.logger.Warn().Err(err).Object("image", *img).Msg("could not look up treatment")
		return false
	}
	if latest == nil {
		s.logger.Warn().Object("image", *img).Msg("no treatment matches image; record is orphaned")
		return false
	}

	if img.TreatmentID == nil || *img.TreatmentID != latest.ID {
		img.TreatmentID = &latest.ID
		return true
	}
	return false
}
