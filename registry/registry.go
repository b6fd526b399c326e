// Package registry persists the catalog of known backup artifacts as
// a flat JSON array, newest first. The file is deliberately
// human-readable so an operator can hand-edit it for recovery.
package registry

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/odontosoft/clinicvault/fileutils"
	"github.com/rs/zerolog"
)

// MaxRecords caps the catalog length; Add evicts the oldest entries
// beyond it.
const MaxRecords = 50

// Registry serializes every read and write of the catalog file behind
// one mutex, so partial-write races cannot occur even if more than one
// caller ever holds a reference.
type Registry struct {
	mu     sync.Mutex
	path   string
	logger zerolog.Logger
}

func New(path string, logger zerolog.Logger) *Registry {
	return &Registry{
		path:   path,
		logger: logger.With().Str("registry", path).Logger(),
	}
}

// Add registers a backup. An existing record with the same name is
// overwritten rather than duplicated, then the catalog is truncated to
// MaxRecords.
func (r *Registry) Add(record Record) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	records, err := r.load()
	if err != nil {
		return err
	}

	replaced := false
	for i := range records {
		if records[i].Name == record.Name {
			records[i] = record
			replaced = true
			break
		}
	}
	if !replaced {
		records = append(records, record)
	}

	sortNewestFirst(records)
	if len(records) > MaxRecords {
		records = records[:MaxRecords]
	}

	r.logger.Info().Object("record", record).Msg("registered backup")
	return r.store(records)
}

// List returns all records newest first. Records whose backing file no
// longer exists are dropped, and duplicate names are collapsed to the
// newest entry; the file is rewritten when either filter removed
// anything.
func (r *Registry) List() ([]Record, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	records, err := r.load()
	if err != nil {
		return nil, err
	}

	sortNewestFirst(records)

	seen := make(map[string]struct{}, len(records))
	kept := records[:0]
	removed := 0
	for _, rec := range records {
		if _, dup := seen[rec.Name]; dup {
			r.logger.Warn().Str("name", rec.Name).Msg("dropping duplicate registry entry")
			removed++
			continue
		}
		if !fileutils.Exists(rec.Path) {
			r.logger.Warn().Str("name", rec.Name).Str("path", rec.Path).Msg("dropping registry entry with missing file")
			removed++
			continue
		}
		seen[rec.Name] = struct{}{}
		kept = append(kept, rec)
	}

	if removed > 0 {
		if err := r.store(kept); err != nil {
			return nil, err
		}
	}

	out := make([]Record, len(kept))
	copy(out, kept)
	return out, nil
}

// Remove deletes the named record and its backing file.
func (r *Registry) Remove(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	records, err := r.load()
	if err != nil {
		return err
	}

	kept := records[:0]
	found := false
	for _, rec := range records {
		if rec.Name != name {
			kept = append(kept, rec)
			continue
		}
		found = true
		if err := os.Remove(rec.Path); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("could not delete backup file: %w", err)
		}
		r.logger.Info().Object("record", rec).Msg("removed backup")
	}
	if !found {
		return fmt.Errorf("no backup named %q", name)
	}

	return r.store(kept)
}

// Prune keeps the keepCount newest records and deletes every older
// entry together with its backing file. It returns how many backups
// were deleted.
func (r *Registry) Prune(keepCount int) (int, error) {
	if keepCount < 0 {
		return 0, fmt.Errorf("keep count must not be negative")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	records, err := r.load()
	if err != nil {
		return 0, err
	}

	sortNewestFirst(records)
	if len(records) <= keepCount {
		return 0, nil
	}

	evicted := records[keepCount:]
	for _, rec := range evicted {
		if err := os.Remove(rec.Path); err != nil && !os.IsNotExist(err) {
			r.logger.Error().Err(err).Object("record", rec).Msg("could not delete old backup file")
			continue
		}
		r.logger.Info().Object("record", rec).Msg("pruned old backup")
	}

	if err := r.store(records[:keepCount]); err != nil {
		return 0, err
	}
	return len(evicted), nil
}

func (r *Registry) load() ([]Record, error) {
	raw, err := os.ReadFile(r.path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("could not read registry: %w", err)
	}

	var records []Record
	if err := json.Unmarshal(raw, &records); err != nil {
		return nil, fmt.Errorf("could not parse registry: %w", err)
	}
	return records, nil
}

// store rewrites the whole catalog. Full rewrites are acceptable: the
// catalog is capped at MaxRecords and writers are serialized.
func (r *Registry) store(records []Record) error {
	if records == nil {
		records = []Record{}
	}
	raw, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("could not encode registry: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(r.path), 0o755); err != nil {
		return fmt.Errorf("could not create registry directory: %w", err)
	}
	if err := os.WriteFile(r.path, raw, 0o600); err != nil {
		return fmt.Errorf("could not write registry: %w", err)
	}
	return nil
}

func sortNewestFirst(records []Record) {
	sort.SliceStable(records, func(i, j int) bool {
		return records[i].CreatedAt.After(records[j].CreatedAt)
	})
}
