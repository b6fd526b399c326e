package config

import (
	"fmt"
	"os"
	"path/filepath"
)

const (
	// DatabaseFileName is the live SQLite database file name. It is
	// also the canonical inner name of the database in archive
	// backups.
	DatabaseFileName = "dental_clinic.db"

	// AssetDirName is the asset tree directory name, mirrored at the
	// root of archive backups.
	AssetDirName = "dental_images"

	registryFileName = "backups.json"
	backupDirName    = "backups"
)

// Config holds every filesystem location the engine works with. It is
// resolved exactly once at startup and passed into components; nothing
// downstream re-derives paths from the environment.
type Config struct {
	DataDir      string
	DatabasePath string
	AssetRoot    string
	BackupDir    string
	RegistryPath string
}

// Resolve builds a Config rooted at dataDir. When dataDir is empty it
// picks a local "data" directory if one exists next to the working
// directory (development checkout), falling back to the user config
// directory for packaged installs.
func Resolve(dataDir string) (*Config, error) {
	if dataDir == "" {
		if local, err := filepath.Abs("data"); err == nil && isDir(local) {
			dataDir = local
		} else {
			base, err := os.UserConfigDir()
			if err != nil {
				return nil, fmt.Errorf("could not resolve user config directory: %w", err)
			}
			dataDir = filepath.Join(base, "clinicvault")
		}
	}

	abs, err := filepath.Abs(dataDir)
	if err != nil {
		return nil, fmt.Errorf("could not resolve data directory: %w", err)
	}

	return FromDataDir(abs), nil
}

// FromDataDir derives all engine paths from an already-chosen data
// directory.
func FromDataDir(dataDir string) *Config {
	return &Config{
		DataDir:      dataDir,
		DatabasePath: filepath.Join(dataDir, DatabaseFileName),
		AssetRoot:    filepath.Join(dataDir, AssetDirName),
		BackupDir:    filepath.Join(dataDir, backupDirName),
		RegistryPath: filepath.Join(dataDir, backupDirName, registryFileName),
	}
}

// EnsureDirs creates the directories the engine expects to exist.
func (c *Config) EnsureDirs() error {
	for _, dir := range []string{c.DataDir, c.AssetRoot, c.BackupDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("could not create %s: %w", dir, err)
		}
	}
	return nil
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
