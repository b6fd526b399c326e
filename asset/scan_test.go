package asset_test

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/odontosoft/clinicvault/asset"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScanDirectory(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "1", "16", "xray"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "1", "16", "xray", "a.png"), []byte("a"), 0600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.png"), []byte("b"), 0600))

	var paths []string
	for a := range asset.ScanDirectory(context.Background(), dir, zerolog.New(io.Discard)) {
		paths = append(paths, a.Path())
	}

	assert.ElementsMatch(t, []string{
		filepath.Join(dir, "1", "16", "xray", "a.png"),
		filepath.Join(dir, "b.png"),
	}, paths)
}

func TestScanDirectory_StopEarly(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"a", "b", "c"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(name), 0600))
	}

	var count int
	for range asset.ScanDirectory(context.Background(), dir, zerolog.New(io.Discard)) {
		count++
		break
	}
	assert.Equal(t, 1, count)
}
