package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/rs/zerolog"
)

// Schedule is the daemon configuration: which automatic backups to
// run and how many to retain.
type Schedule struct {
	Jobs []ScheduleJob `json:"jobs,omitempty"`
	Keep int           `json:"keep,omitempty"`
}

// ScheduleJob is one periodic backup entry.
type ScheduleJob struct {
	Frequency     string `json:"frequency"` // hourly, daily or weekly
	IncludeAssets bool   `json:"include_assets,omitempty"`
	Enable        bool   `json:"enable"`
}

func (j ScheduleJob) MarshalZerologObject(e *zerolog.Event) {
	e.Str("frequency", j.Frequency)
	e.Bool("include_assets", j.IncludeAssets)
	e.Bool("enable", j.Enable)
}

// LoadScheduleFromFile reads a daemon schedule from a JSON file.
func LoadScheduleFromFile(path string) (*Schedule, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	sched := Schedule{}
	if err := json.Unmarshal(raw, &sched); err != nil {
		return nil, fmt.Errorf("could not parse schedule config: %w", err)
	}
	return &sched, nil
}
