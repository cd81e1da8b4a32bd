package driving

import "github.com/custodia-labs/policycite/internal/core/domain"

// SettingsService manages application settings.
type SettingsService interface {
	// Get retrieves current application settings.
	Get() (*domain.AppSettings, error)

	// Set updates a single setting by key, e.g. "retrieval.top_k".
	Set(key, value string) error

	// Keys returns the settable keys.
	Keys() []string

	// GetDefaults returns default settings.
	GetDefaults() domain.AppSettings
}
