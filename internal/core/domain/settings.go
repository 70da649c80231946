package domain

import (
	"fmt"
	"runtime"
)

// IndexSettings holds defaults for cohort indexing.
type IndexSettings struct {
	// Workers is the number of files decoded in parallel.
	Workers int

	// Stddev selects the study summary estimator.
	Stddev StddevMode

	// AnLead is the default primary annotated lead.
	AnLead string

	// AllIntervals keeps every measurement rather than aggregates only.
	AllIntervals bool

	// Strict rejects documents whose root is not in the HL7 v3 namespace.
	Strict bool
}

// LogSettings holds logging defaults.
type LogSettings struct {
	// Level is debug, info, warn or error.
	Level string

	// Format is console or json.
	Format string
}

// StoreSettings holds result store defaults.
type StoreSettings struct {
	// Dir holds the index database. Empty means the default data dir.
	Dir string
}

// Settings is the persisted application configuration.
type Settings struct {
	Index IndexSettings
	Log   LogSettings
	Store StoreSettings
}

// DefaultSettings returns the built-in configuration.
func DefaultSettings() Settings {
	return Settings{
		Index: IndexSettings{
			Workers: runtime.NumCPU(),
			Stddev:  StddevPopulation,
			AnLead:  LeadDisplayName(DefaultPrimaryLead),
		},
		Log: LogSettings{
			Level:  "info",
			Format: "console",
		},
	}
}

// IsValid reports whether the mode is known.
func (m StddevMode) IsValid() bool {
	return m == StddevPopulation || m == StddevSample
}

// Validate checks the settings values.
func (s Settings) Validate() error {
	if s.Index.Workers < 1 {
		return fmt.Errorf("index.nprocs must be at least 1: %w", ErrInvalidInput)
	}
	if !s.Index.Stddev.IsValid() {
		return fmt.Errorf("index.stddev %q: %w", s.Index.Stddev, ErrInvalidInput)
	}
	switch s.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log.level %q: %w", s.Log.Level, ErrInvalidInput)
	}
	switch s.Log.Format {
	case "console", "json":
	default:
		return fmt.Errorf("log.format %q: %w", s.Log.Format, ErrInvalidInput)
	}
	return nil
}

// Entries returns the settings as dot-separated keys with their values.
func (s Settings) Entries() []StatField {
	return []StatField{
		{"index.nprocs", s.Index.Workers},
		{"index.stddev", string(s.Index.Stddev)},
		{"index.annlead", s.Index.AnLead},
		{"index.allintervals", s.Index.AllIntervals},
		{"index.strict", s.Index.Strict},
		{"log.level", s.Log.Level},
		{"log.format", s.Log.Format},
		{"store.dir", s.Store.Dir},
	}
}
