package asset

import (
	"errors"
	"io/fs"
	"time"

	"github.com/rs/zerolog"
)

// NewFromFS wraps a stat'ed file as an Asset.
func NewFromFS(path string, info fs.FileInfo) (Asset, error) {
	if !info.Mode().IsRegular() {
		return nil, errors.New("not a regular file")
	}

	return &fsAsset{
		path: path,
		info: info,
	}, nil
}

type fsAsset struct {
	path string
	info fs.FileInfo
}

// Name implements Asset.
func (a *fsAsset) Name() string {
	return a.info.Name()
}

// Size implements Asset.
func (a *fsAsset) Size() int64 {
	return a.info.Size()
}

// ModTime implements Asset.
func (a *fsAsset) ModTime() time.Time {
	return a.info.ModTime()
}

// MarshalZerologObject implements Asset.
func (a *fsAsset) MarshalZerologObject(e *zerolog.Event) {
	e.Str("path", a.path)
	e.Str("name", a.info.Name())
	e.Int64("size", a.info.Size())
}

// Path implements Asset.
func (a *fsAsset) Path() string {
	return a.path
}
