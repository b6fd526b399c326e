package registry

import (
	"encoding/json"
	"time"

	"github.com/rs/zerolog"
)

// Format identifies the artifact type of a backup.
type Format string

const (
	// FormatDBOnly is a raw copy of the live database file.
	FormatDBOnly Format = "db-only"
	// FormatArchiveWithAssets is a zip bundling the database and the
	// asset tree.
	FormatArchiveWithAssets Format = "archive-with-assets"
)

// Record is one catalog entry per produced backup.
type Record struct {
	Name      string    `json:"name"`
	Path      string    `json:"path"`
	Size      int64     `json:"size"`
	CreatedAt time.Time `json:"created_at"`
	Format    Format    `json:"format"`
	// IncludesAssets is redundant with Format; kept for compatibility
	// with registry files written before formats existed.
	IncludesAssets bool `json:"includes_assets"`
}

func (r Record) MarshalZerologObject(e *zerolog.Event) {
	e.Str("name", r.Name)
	e.Str("path", r.Path)
	e.Int64("size", r.Size)
	e.Time("created_at", r.CreatedAt)
	e.Str("format", string(r.Format))
}

// UnmarshalJSON accepts both the current field names and the legacy
// ones ("file", "bytes", "date", "withImages"). Legacy entries are
// rewritten in the current shape the next time the registry persists.
func (r *Record) UnmarshalJSON(data []byte) error {
	type alias struct {
		Name           string    `json:"name"`
		Path           string    `json:"path"`
		Size           int64     `json:"size"`
		CreatedAt      time.Time `json:"created_at"`
		Format         Format    `json:"format"`
		IncludesAssets bool      `json:"includes_assets"`

		LegacyPath       string    `json:"file"`
		LegacySize       int64     `json:"bytes"`
		LegacyCreatedAt  time.Time `json:"date"`
		LegacyWithImages bool      `json:"withImages"`
	}

	var a alias
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}

	r.Name = a.Name
	r.Path = a.Path
	r.Size = a.Size
	r.CreatedAt = a.CreatedAt
	r.Format = a.Format
	r.IncludesAssets = a.IncludesAssets

	if r.Path == "" {
		r.Path = a.LegacyPath
	}
	if r.Size == 0 {
		r.Size = a.LegacySize
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = a.LegacyCreatedAt
	}
	if a.LegacyWithImages {
		r.IncludesAssets = true
	}
	if r.Format == "" {
		if r.IncludesAssets {
			r.Format = FormatArchiveWithAssets
		} else {
			r.Format = FormatDBOnly
		}
	}
	return nil
}
