package driving

import "github.com/custodia-labs/aecg-cli/internal/core/domain"

// SettingsService manages application settings.
type SettingsService interface {
	// Get retrieves current application settings.
	Get() (*domain.Settings, error)

	// Save validates and persists application settings.
	Save(settings *domain.Settings) error

	// SetValue parses, validates and persists a single dot-separated key.
	SetValue(key, raw string) error

	// GetDefaults returns default settings.
	GetDefaults() domain.Settings
}
