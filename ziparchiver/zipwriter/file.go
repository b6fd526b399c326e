package zipwriter

import (
	"archive/zip"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/klauspost/compress/flate"

	"github.com/odontosoft/clinicvault/fileutils"
)

// NewLazyZipFile returns a zip writer helper that creates the file on
// first write, so an empty run leaves nothing behind. Deflate entries
// are compressed with klauspost's flate.
func NewLazyZipFile(path string) *ZipFile {
	return &ZipFile{
		path: path,
		lazyOpenFunc: func() (*os.File, error) {
			return openArchiveFile(path)
		},
	}
}

type ZipFile struct {
	init    bool
	created bool
	path    string
	file    *os.File
	writer  *zip.Writer

	lazyOpenFunc func() (*os.File, error)
}

func (z *ZipFile) Path() string {
	return z.path
}

// Close the file and writer if they were opened.
func (z *ZipFile) Close() error {
	if !z.init {
		return nil
	}
	defer func() {
		z.init = false
	}()
	err := z.writer.Close()
	return errors.Join(err, z.file.Close())
}

// Delete removes the file if it was ever created. Used to discard
// partial archives after a failed run; safe to call after Close.
func (z *ZipFile) Delete() error {
	if !z.created {
		return nil
	}
	z.created = false
	return os.Remove(z.path)
}

// CreateHeader creates a new entry in the zip file, opening the file
// on the first call.
func (z *ZipFile) CreateHeader(fh *zip.FileHeader) (io.Writer, error) {
	if !z.init {
		var err error
		z.file, err = z.lazyOpenFunc()
		if err != nil {
			return nil, err
		}
		z.writer = zip.NewWriter(z.file)
		z.writer.RegisterCompressor(zip.Deflate, func(out io.Writer) (io.WriteCloser, error) {
			return flate.NewWriter(out, flate.DefaultCompression)
		})
		z.init = true
		z.created = true
	}

	return z.writer.CreateHeader(fh)
}

func openArchiveFile(path string) (*os.File, error) {
	if fileutils.Exists(path) {
		return nil, fmt.Errorf("file or directory already exists with this name: %s", path)
	}

	return os.OpenFile(path, os.O_CREATE|os.O_WRONLY, 0o600)
}
