package fileutils

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// Exists reports whether path exists (file or directory).
func Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// CopyFile copies src to dst, creating parent directories as needed.
// The destination is synced to disk before returning.
func CopyFile(src, dst string) (int64, error) {
	in, err := os.Open(src)
	if err != nil {
		return 0, fmt.Errorf("could not open source file: %w", err)
	}
	defer in.Close()

	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return 0, fmt.Errorf("could not create destination directory: %w", err)
	}

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		return 0, fmt.Errorf("could not create destination file: %w", err)
	}

	written, err := io.Copy(out, in)
	if err != nil {
		out.Close()
		return written, fmt.Errorf("could not copy file: %w", err)
	}
	if err := out.Sync(); err != nil {
		out.Close()
		return written, fmt.Errorf("could not sync destination file: %w", err)
	}
	return written, out.Close()
}

// CopyFileVerified copies src to dst and verifies the destination
// contents hash to the same value as the source.
func CopyFileVerified(src, dst string) (int64, error) {
	srcHash, err := ComputeFileHash(src)
	if err != nil {
		return 0, err
	}

	written, err := CopyFile(src, dst)
	if err != nil {
		return written, err
	}

	dstHash, err := ComputeFileHash(dst)
	if err != nil {
		return written, err
	}
	if srcHash != dstHash {
		return written, fmt.Errorf("copy verification failed: source hash %d, destination hash %d", srcHash, dstHash)
	}
	return written, nil
}

// CopyDir recursively copies the directory tree rooted at src into dst.
// Non-regular files are skipped.
func CopyDir(src, dst string) error {
	return filepath.WalkDir(src, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		target := filepath.Join(dst, rel)
		if d.IsDir() {
			return os.MkdirAll(target, 0o755)
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		if !info.Mode().IsRegular() {
			return nil
		}
		_, err = CopyFile(path, target)
		return err
	})
}
