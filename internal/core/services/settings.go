package services

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/custodia-labs/aecg-cli/internal/core/domain"
	"github.com/custodia-labs/aecg-cli/internal/core/ports/driven"
	"github.com/custodia-labs/aecg-cli/internal/core/ports/driving"
)

// Ensure SettingsService implements the interface.
var _ driving.SettingsService = (*SettingsService)(nil)

// Config keys for settings storage.
const (
	keyIndexWorkers      = "index.nprocs"
	keyIndexStddev       = "index.stddev"
	keyIndexAnLead       = "index.annlead"
	keyIndexAllIntervals = "index.allintervals"
	keyIndexStrict       = "index.strict"
	keyLogLevel          = "log.level"
	keyLogFormat         = "log.format"
	keyStoreDir          = "store.dir"
)

// SettingsKeys lists the configuration keys understood by SettingsService.
var SettingsKeys = []string{
	keyIndexWorkers,
	keyIndexStddev,
	keyIndexAnLead,
	keyIndexAllIntervals,
	keyIndexStrict,
	keyLogLevel,
	keyLogFormat,
	keyStoreDir,
}

// SettingsService manages application settings.
type SettingsService struct {
	configStore driven.ConfigStore
}

// NewSettingsService creates a new settings service.
func NewSettingsService(configStore driven.ConfigStore) *SettingsService {
	return &SettingsService{configStore: configStore}
}

// Get retrieves current application settings. Unset or invalid values fall
// back to the defaults.
func (s *SettingsService) Get() (*domain.Settings, error) {
	defaults := domain.DefaultSettings()

	settings := &domain.Settings{
		Index: domain.IndexSettings{
			Workers:      s.getInt(keyIndexWorkers, defaults.Index.Workers),
			Stddev:       s.getStddev(defaults.Index.Stddev),
			AnLead:       s.getString(keyIndexAnLead, defaults.Index.AnLead),
			AllIntervals: s.getBool(keyIndexAllIntervals, defaults.Index.AllIntervals),
			Strict:       s.getBool(keyIndexStrict, defaults.Index.Strict),
		},
		Log: domain.LogSettings{
			Level:  s.getOneOf(keyLogLevel, defaults.Log.Level, "debug", "info", "warn", "error"),
			Format: s.getOneOf(keyLogFormat, defaults.Log.Format, "console", "json"),
		},
		Store: domain.StoreSettings{
			Dir: s.configStore.GetString(keyStoreDir), // No default - empty means the data dir
		},
	}
	if settings.Index.Workers < 1 {
		settings.Index.Workers = defaults.Index.Workers
	}

	return settings, nil
}

// Save validates and persists application settings.
func (s *SettingsService) Save(settings *domain.Settings) error {
	if err := settings.Validate(); err != nil {
		return err
	}

	// Save index settings
	if err := s.configStore.Set(keyIndexWorkers, settings.Index.Workers); err != nil {
		return fmt.Errorf("save index nprocs: %w", err)
	}
	if err := s.configStore.Set(keyIndexStddev, string(settings.Index.Stddev)); err != nil {
		return fmt.Errorf("save index stddev: %w", err)
	}
	if err := s.configStore.Set(keyIndexAnLead, settings.Index.AnLead); err != nil {
		return fmt.Errorf("save index annlead: %w", err)
	}
	if err := s.configStore.Set(keyIndexAllIntervals, settings.Index.AllIntervals); err != nil {
		return fmt.Errorf("save index allintervals: %w", err)
	}
	if err := s.configStore.Set(keyIndexStrict, settings.Index.Strict); err != nil {
		return fmt.Errorf("save index strict: %w", err)
	}

	// Save log settings
	if err := s.configStore.Set(keyLogLevel, settings.Log.Level); err != nil {
		return fmt.Errorf("save log level: %w", err)
	}
	if err := s.configStore.Set(keyLogFormat, settings.Log.Format); err != nil {
		return fmt.Errorf("save log format: %w", err)
	}

	// Save store settings
	if settings.Store.Dir != "" {
		if err := s.configStore.Set(keyStoreDir, settings.Store.Dir); err != nil {
			return fmt.Errorf("save store dir: %w", err)
		}
	}

	return nil
}

// SetValue parses raw for a known key, validates the resulting settings and
// persists the single value.
func (s *SettingsService) SetValue(key, raw string) error {
	settings, err := s.Get()
	if err != nil {
		return err
	}

	var value any = raw
	switch key {
	case keyIndexWorkers:
		n, err := strconv.Atoi(strings.TrimSpace(raw))
		if err != nil {
			return fmt.Errorf("%s must be an integer: %w", key, domain.ErrInvalidInput)
		}
		settings.Index.Workers = n
		value = n
	case keyIndexStddev:
		settings.Index.Stddev = domain.StddevMode(raw)
	case keyIndexAnLead:
		if domain.LeadCodeForDisplayName(raw) == "" && raw != domain.GlobalLead {
			return fmt.Errorf("unknown lead %q: %w", raw, domain.ErrInvalidInput)
		}
		settings.Index.AnLead = raw
	case keyIndexAllIntervals, keyIndexStrict:
		b, err := strconv.ParseBool(strings.TrimSpace(raw))
		if err != nil {
			return fmt.Errorf("%s must be true or false: %w", key, domain.ErrInvalidInput)
		}
		if key == keyIndexStrict {
			settings.Index.Strict = b
		} else {
			settings.Index.AllIntervals = b
		}
		value = b
	case keyLogLevel:
		settings.Log.Level = raw
	case keyLogFormat:
		settings.Log.Format = raw
	case keyStoreDir:
		settings.Store.Dir = raw
	default:
		return fmt.Errorf("unknown setting %q: %w", key, domain.ErrInvalidInput)
	}

	if err := settings.Validate(); err != nil {
		return err
	}
	if err := s.configStore.Set(key, value); err != nil {
		return fmt.Errorf("save %s: %w", key, err)
	}
	return nil
}

// GetDefaults returns default settings.
func (s *SettingsService) GetDefaults() domain.Settings {
	return domain.DefaultSettings()
}

// Helper methods for reading config with defaults.

func (s *SettingsService) getString(key, defaultVal string) string {
	val := s.configStore.GetString(key)
	if val == "" {
		return defaultVal
	}
	return val
}

func (s *SettingsService) getInt(key string, defaultVal int) int {
	val := s.configStore.GetInt(key)
	if val == 0 {
		return defaultVal
	}
	return val
}

func (s *SettingsService) getBool(key string, defaultVal bool) bool {
	if _, exists := s.configStore.Get(key); !exists {
		return defaultVal
	}
	return s.configStore.GetBool(key)
}

func (s *SettingsService) getStddev(defaultVal domain.StddevMode) domain.StddevMode {
	mode := domain.StddevMode(s.configStore.GetString(keyIndexStddev))
	if !mode.IsValid() {
		return defaultVal
	}
	return mode
}

func (s *SettingsService) getOneOf(key, defaultVal string, allowed ...string) string {
	val := s.configStore.GetString(key)
	for _, a := range allowed {
		if val == a {
			return val
		}
	}
	return defaultVal
}
