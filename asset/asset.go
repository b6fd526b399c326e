package asset

import (
	"time"

	"github.com/rs/zerolog"
)

// Asset is a single binary file owned by a clinical record, e.g. an
// intraoral photo or an x-ray image.
type Asset interface {
	zerolog.LogObjectMarshaler
	Path() string // absolute path on disk
	Name() string // base name of the file
	Size() int64  // length in bytes for regular files
	ModTime() time.Time
}
