package fileutils

import "os"

// VerifyWritable probes dirPath by creating and removing a temp file.
// Fails on read-only mounts, full disks and ACL denials, not just
// mode bits.
func VerifyWritable(dirPath string) error {
	fil, err := os.CreateTemp(dirPath, "")
	if err != nil {
		return err
	}
	if err := fil.Close(); err != nil {
		return err
	}
	return os.Remove(fil.Name())
}
