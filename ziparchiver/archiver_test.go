package ziparchiver_test

import (
	"archive/zip"
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/odontosoft/clinicvault/ziparchiver"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTree(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for rel, content := range files {
		path := filepath.Join(root, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	}
}

func TestPackageAndExtract_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	snapshot := filepath.Join(dir, "snapshot.db")
	require.NoError(t, os.WriteFile(snapshot, []byte("sqlite bytes"), 0600))

	assetRoot := filepath.Join(dir, "images")
	writeTree(t, assetRoot, map[string]string{
		"1/16/xray/a.png":  "image a",
		"1/16/photo/b.jpg": "image b",
		"2/55/xray/c.png":  "image c",
		"2/55/xray/d.png":  "image d",
	})

	archivePath := filepath.Join(dir, "backup.zip")
	logger := zerolog.New(io.Discard)

	require.NoError(t, ziparchiver.Package(context.Background(), snapshot, assetRoot, archivePath, logger))

	// Inner layout: dental_clinic.db at the root, dental_images/ tree.
	r, err := zip.OpenReader(archivePath)
	require.NoError(t, err)
	names := make([]string, 0, len(r.File))
	for _, f := range r.File {
		names = append(names, f.Name)
	}
	r.Close()
	assert.ElementsMatch(t, []string{
		"dental_clinic.db",
		"dental_images/1/16/xray/a.png",
		"dental_images/1/16/photo/b.jpg",
		"dental_images/2/55/xray/c.png",
		"dental_images/2/55/xray/d.png",
	}, names)

	extractDir := t.TempDir()
	dbPath, err := ziparchiver.Extract(context.Background(), archivePath, extractDir, logger)
	require.NoError(t, err)

	got, err := os.ReadFile(dbPath)
	require.NoError(t, err)
	assert.Equal(t, []byte("sqlite bytes"), got)

	got, err = os.ReadFile(filepath.Join(extractDir, "dental_images", "2", "55", "xray", "d.png"))
	require.NoError(t, err)
	assert.Equal(t, []byte("image d"), got)
}

func TestPackage_MissingSnapshotDeletesPartial(t *testing.T) {
	dir := t.TempDir()
	archivePath := filepath.Join(dir, "backup.zip")

	err := ziparchiver.Package(
		context.Background(),
		filepath.Join(dir, "missing.db"),
		t.TempDir(),
		archivePath,
		zerolog.New(io.Discard),
	)
	require.Error(t, err)
	assert.NoFileExists(t, archivePath)
}

func TestPackage_RefusesExistingArchive(t *testing.T) {
	dir := t.TempDir()
	snapshot := filepath.Join(dir, "snapshot.db")
	require.NoError(t, os.WriteFile(snapshot, []byte("db"), 0600))

	archivePath := filepath.Join(dir, "backup.zip")
	require.NoError(t, os.WriteFile(archivePath, []byte("existing"), 0600))

	err := ziparchiver.Package(context.Background(), snapshot, t.TempDir(), archivePath, zerolog.New(io.Discard))
	require.Error(t, err)

	// The pre-existing file is not touched.
	got, err := os.ReadFile(archivePath)
	require.NoError(t, err)
	assert.Equal(t, []byte("existing"), got)
}

func TestExtract_MalformedArchive(t *testing.T) {
	dir := t.TempDir()
	archivePath := filepath.Join(dir, "bad.zip")

	// Valid zip, but no inner database.
	f, err := os.Create(archivePath)
	require.NoError(t, err)
	zw := zip.NewWriter(f)
	w, err := zw.Create("dental_images/1/16/xray/a.png")
	require.NoError(t, err)
	_, err = w.Write([]byte("image"))
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	require.NoError(t, f.Close())

	_, err = ziparchiver.Extract(context.Background(), archivePath, t.TempDir(), zerolog.New(io.Discard))
	assert.ErrorIs(t, err, ziparchiver.ErrMalformedArchive)
}

func TestExtract_SkipsZipSlipEntries(t *testing.T) {
	dir := t.TempDir()
	archivePath := filepath.Join(dir, "slip.zip")

	f, err := os.Create(archivePath)
	require.NoError(t, err)
	zw := zip.NewWriter(f)

	w, err := zw.Create("dental_clinic.db")
	require.NoError(t, err)
	_, err = w.Write([]byte("db"))
	require.NoError(t, err)

	w, err = zw.Create("../escape.txt")
	require.NoError(t, err)
	_, err = w.Write([]byte("nope"))
	require.NoError(t, err)

	require.NoError(t, zw.Close())
	require.NoError(t, f.Close())

	extractDir := filepath.Join(t.TempDir(), "out")
	require.NoError(t, os.MkdirAll(extractDir, 0755))

	_, err = ziparchiver.Extract(context.Background(), archivePath, extractDir, zerolog.New(io.Discard))
	require.NoError(t, err)

	assert.NoFileExists(t, filepath.Join(filepath.Dir(extractDir), "escape.txt"))
	assert.FileExists(t, filepath.Join(extractDir, "dental_clinic.db"))
}
