package registry_test

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/odontosoft/clinicvault/registry"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRegistry(t *testing.T) (*registry.Registry, string) {
	t.Helper()
	dir := t.TempDir()
	return registry.New(filepath.Join(dir, "backups.json"), zerolog.New(io.Discard)), dir
}

func writeBackupFile(t *testing.T, dir, name string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte("backup data"), 0600))
	return path
}

func TestAdd_OverwritesSameName(t *testing.T) {
	reg, dir := newTestRegistry(t)
	path := writeBackupFile(t, dir, "backup-1.db")

	rec := registry.Record{
		Name:      "backup-1",
		Path:      path,
		Size:      100,
		CreatedAt: time.Now().UTC(),
		Format:    registry.FormatDBOnly,
	}
	require.NoError(t, reg.Add(rec))

	rec.Size = 250
	require.NoError(t, reg.Add(rec))

	records, err := reg.List()
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, int64(250), records[0].Size)
}

func TestAdd_CapsLength(t *testing.T) {
	reg, dir := newTestRegistry(t)

	base := time.Now().UTC()
	for i := 0; i < registry.MaxRecords+5; i++ {
		name := fmt.Sprintf("backup-%03d", i)
		require.NoError(t, reg.Add(registry.Record{
			Name:      name,
			Path:      writeBackupFile(t, dir, name+".db"),
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
			Format:    registry.FormatDBOnly,
		}))
	}

	records, err := reg.List()
	require.NoError(t, err)
	assert.Len(t, records, registry.MaxRecords)
	// Newest survives, oldest were evicted.
	assert.Equal(t, "backup-054", records[0].Name)
}

func TestList_FiltersMissingFiles(t *testing.T) {
	reg, dir := newTestRegistry(t)

	keepPath := writeBackupFile(t, dir, "keep.db")
	gonePath := writeBackupFile(t, dir, "gone.db")

	now := time.Now().UTC()
	require.NoError(t, reg.Add(registry.Record{Name: "keep", Path: keepPath, CreatedAt: now, Format: registry.FormatDBOnly}))
	require.NoError(t, reg.Add(registry.Record{Name: "gone", Path: gonePath, CreatedAt: now.Add(time.Minute), Format: registry.FormatDBOnly}))

	require.NoError(t, os.Remove(gonePath))

	records, err := reg.List()
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "keep", records[0].Name)

	// The rewrite is persisted.
	records, err = reg.List()
	require.NoError(t, err)
	assert.Len(t, records, 1)
}

func TestList_SortedNewestFirst(t *testing.T) {
	reg, dir := newTestRegistry(t)

	base := time.Now().UTC()
	for i, name := range []string{"old", "mid", "new"} {
		require.NoError(t, reg.Add(registry.Record{
			Name:      name,
			Path:      writeBackupFile(t, dir, name+".db"),
			CreatedAt: base.Add(time.Duration(i) * time.Hour),
			Format:    registry.FormatDBOnly,
		}))
	}

	records, err := reg.List()
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, "new", records[0].Name)
	assert.Equal(t, "mid", records[1].Name)
	assert.Equal(t, "old", records[2].Name)
}

func TestRemove(t *testing.T) {
	reg, dir := newTestRegistry(t)
	path := writeBackupFile(t, dir, "backup-1.db")

	require.NoError(t, reg.Add(registry.Record{
		Name: "backup-1", Path: path, CreatedAt: time.Now().UTC(), Format: registry.FormatDBOnly,
	}))

	require.NoError(t, reg.Remove("backup-1"))
	assert.NoFileExists(t, path)

	records, err := reg.List()
	require.NoError(t, err)
	assert.Empty(t, records)

	assert.Error(t, reg.Remove("backup-1"))
}

func TestPrune(t *testing.T) {
	reg, dir := newTestRegistry(t)

	base := time.Now().UTC()
	paths := make([]string, 0, 15)
	for i := 0; i < 15; i++ {
		name := fmt.Sprintf("backup-%02d", i)
		path := writeBackupFile(t, dir, name+".db")
		paths = append(paths, path)
		require.NoError(t, reg.Add(registry.Record{
			Name:      name,
			Path:      path,
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
			Format:    registry.FormatDBOnly,
		}))
	}

	deleted, err := reg.Prune(10)
	require.NoError(t, err)
	assert.Equal(t, 5, deleted)

	// The 5 oldest files are gone.
	for i, path := range paths {
		if i < 5 {
			assert.NoFileExists(t, path)
		} else {
			assert.FileExists(t, path)
		}
	}

	records, err := reg.List()
	require.NoError(t, err)
	require.Len(t, records, 10)
	assert.Equal(t, "backup-14", records[0].Name)
}

func TestPrune_Noop(t *testing.T) {
	reg, dir := newTestRegistry(t)
	require.NoError(t, reg.Add(registry.Record{
		Name: "only", Path: writeBackupFile(t, dir, "only.db"),
		CreatedAt: time.Now().UTC(), Format: registry.FormatDBOnly,
	}))

	deleted, err := reg.Prune(10)
	require.NoError(t, err)
	assert.Zero(t, deleted)
}

func TestLegacyFieldNames(t *testing.T) {
	dir := t.TempDir()
	backupPath := writeBackupFile(t, dir, "legacy.zip")

	legacy := fmt.Sprintf(`[
		{"name": "legacy", "file": %q, "bytes": 123, "date": "2024-03-01T10:00:00Z", "withImages": true}
	]`, backupPath)
	registryPath := filepath.Join(dir, "backups.json")
	require.NoError(t, os.WriteFile(registryPath, []byte(legacy), 0600))

	reg := registry.New(registryPath, zerolog.New(io.Discard))
	records, err := reg.List()
	require.NoError(t, err)
	require.Len(t, records, 1)

	rec := records[0]
	assert.Equal(t, "legacy", rec.Name)
	assert.Equal(t, backupPath, rec.Path)
	assert.Equal(t, int64(123), rec.Size)
	assert.Equal(t, 2024, rec.CreatedAt.Year())
	assert.Equal(t, registry.FormatArchiveWithAssets, rec.Format)
	assert.True(t, rec.IncludesAssets)
}

func TestRegistryFileIsPlainJSONArray(t *testing.T) {
	reg, dir := newTestRegistry(t)
	require.NoError(t, reg.Add(registry.Record{
		Name: "one", Path: writeBackupFile(t, dir, "one.db"),
		CreatedAt: time.Now().UTC(), Format: registry.FormatDBOnly,
	}))

	raw, err := os.ReadFile(filepath.Join(dir, "backups.json"))
	require.NoError(t, err)

	var generic []map[string]any
	require.NoError(t, json.Unmarshal(raw, &generic))
	require.Len(t, generic, 1)
	assert.Equal(t, "one", generic[0]["name"])
}
