// Package ziparchiver bundles a database snapshot and the asset tree
// into a single zip backup, and extracts such backups again. The
// database sits at the archive root under its canonical name; assets
// keep their relative layout under the asset directory name.
package ziparchiver

import (
	"archive/zip"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/odontosoft/clinicvault/asset"
	"github.com/odontosoft/clinicvault/config"
	"github.com/odontosoft/clinicvault/ziparchiver/zipwriter"
)

// ErrMalformedArchive marks an archive that lacks the expected inner
// database file.
var ErrMalformedArchive = errors.New("archive does not contain a database")

// Package streams the database snapshot and every file under assetRoot
// into a zip at destPath. Memory use stays bounded regardless of asset
// volume: everything is written through io.Copy on a streaming writer.
// Per-file read failures (e.g. a file vanishing mid-enumeration) are
// logged and skipped; archive-level write failures abort and delete
// the partial archive.
func Package(ctx context.Context, dbSnapshotPath, assetRoot, destPath string, logger zerolog.Logger) (err error) {
	logger = logger.With().Str("archive", destPath).Logger()
	logger.Info().Str("snapshot", dbSnapshotPath).Str("assets", assetRoot).Msg("packaging backup archive")

	zipFile := zipwriter.NewLazyZipFile(destPath)
	defer func() {
		closeErr := zipFile.Close()
		if err == nil {
			err = closeErr
		}
		if err != nil {
			if delErr := zipFile.Delete(); delErr != nil {
				logger.Error().Err(delErr).Msg("could not delete partial archive")
			} else {
				logger.Info().Msg("deleted partial archive")
			}
		}
	}()

	if err := writeFileEntry(zipFile, dbSnapshotPath, config.DatabaseFileName); err != nil {
		return fmt.Errorf("could not archive database snapshot: %w", err)
	}

	var assetCount int
	for a := range asset.ScanDirectory(ctx, assetRoot, logger) {
		rel, relErr := filepath.Rel(assetRoot, a.Path())
		if relErr != nil {
			logger.Warn().Err(relErr).Object("asset", a).Msg("could not resolve asset path, skipping")
			continue
		}

		innerName := path.Join(config.AssetDirName, filepath.ToSlash(rel))
		if entryErr := writeFileEntry(zipFile, a.Path(), innerName); entryErr != nil {
			if errors.Is(entryErr, errAssetUnreadable) {
				logger.Warn().Err(entryErr).Object("asset", a).Msg("could not read asset, skipping")
				continue
			}
			return fmt.Errorf("could not archive asset %s: %w", a.Path(), entryErr)
		}
		assetCount++
	}

	if ctx.Err() != nil {
		return ctx.Err()
	}

	// Logged before finalizing so silent omissions are detectable.
	logger.Info().Int("asset_files", assetCount).Msg("archived asset files")
	return nil
}

var errAssetUnreadable = errors.New("asset unreadable")

func writeFileEntry(zipFile *zipwriter.ZipFile, srcPath, innerName string) error {
	f, err := os.Open(srcPath)
	if err != nil {
		return fmt.Errorf("%w: %w", errAssetUnreadable, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("%w: %w", errAssetUnreadable, err)
	}

	w, err := zipFile.CreateHeader(&zip.FileHeader{
		Name:               innerName,
		Method:             zip.Deflate,
		Modified:           info.ModTime(),
		UncompressedSize64: uint64(info.Size()),
	})
	if err != nil {
		return err
	}

	_, err = io.Copy(w, f)
	return err
}

// Extract unpacks the archive into destDir and returns the path of the
// extracted database file. It fails with ErrMalformedArchive, without
// writing anything permanent, when the canonical inner database entry
// is absent.
func Extract(ctx context.Context, archivePath, destDir string, logger zerolog.Logger) (string, error) {
	reader, err := zip.OpenReader(archivePath)
	if err != nil {
		return "", fmt.Errorf("could not open archive: %w", err)
	}
	defer reader.Close()

	hasDB := false
	for _, f := range reader.File {
		if f.Name == config.DatabaseFileName {
			hasDB = true
			break
		}
	}
	if !hasDB {
		return "", fmt.Errorf("%w: missing %s in %s", ErrMalformedArchive, config.DatabaseFileName, archivePath)
	}

	startTime := time.Now()
	var extracted int
	for _, f := range reader.File {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		if f.FileInfo().IsDir() {
			continue
		}

		target, err := safeJoin(destDir, f.Name)
		if err != nil {
			logger.Warn().Err(err).Str("entry", f.Name).Msg("skipping unsafe archive entry")
			continue
		}

		if err := extractEntry(f, target); err != nil {
			return "", fmt.Errorf("could not extract %s: %w", f.Name, err)
		}
		extracted++
	}

	logger.Info().
		Int("files", extracted).
		Float64("seconds", time.Since(startTime).Seconds()).
		Str("archive", archivePath).
		Msg("extracted archive")

	return filepath.Join(destDir, config.DatabaseFileName), nil
}

func extractEntry(f *zip.File, target string) error {
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return err
	}

	in, err := f.Open()
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		return err
	}

	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

// safeJoin guards against zip-slip entries escaping destDir.
func safeJoin(destDir, name string) (string, error) {
	target := filepath.Join(destDir, filepath.FromSlash(name))
	rel, err := filepath.Rel(destDir, target)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("entry escapes destination: %s", name)
	}
	return target, nil
}
