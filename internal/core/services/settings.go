package services

import (
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/custodia-labs/policycite/internal/core/domain"
	"github.com/custodia-labs/policycite/internal/core/ports/driven"
	"github.com/custodia-labs/policycite/internal/core/ports/driving"
)

// Ensure SettingsService implements the interface.
var _ driving.SettingsService = (*SettingsService)(nil)

// Config keys for settings storage.
const (
	keySourceDir     = "paths.source_dir"
	keyDataDir       = "paths.data_dir"
	keyTopK          = "retrieval.top_k"
	keySnippetLength = "retrieval.snippet_length"
	keyCacheSize     = "retrieval.cache_size"
	keyMaxTokens     = "chunking.max_tokens"
	keyOverlapTokens = "chunking.overlap_tokens"
	keyWorkers       = "import.workers"

	// keyQueryCacheSize is accepted as an alias of keyCacheSize.
	keyQueryCacheSize = "query.cache_size"
)

// intSetting describes an integer setting and its lower bound.
type intSetting struct {
	min   int
	field func(*domain.AppSettings) *int
}

var intSettings = map[string]intSetting{
	keyTopK:          {1, func(s *domain.AppSettings) *int { return &s.Retrieval.TopK }},
	keySnippetLength: {1, func(s *domain.AppSettings) *int { return &s.Retrieval.SnippetLength }},
	keyCacheSize:     {0, func(s *domain.AppSettings) *int { return &s.Retrieval.CacheSize }},
	keyMaxTokens:     {1, func(s *domain.AppSettings) *int { return &s.Chunking.MaxTokens }},
	keyOverlapTokens: {0, func(s *domain.AppSettings) *int { return &s.Chunking.OverlapTokens }},
	keyWorkers:       {1, func(s *domain.AppSettings) *int { return &s.Import.Workers }},
}

// SettingsService manages application settings.
type SettingsService struct {
	configStore driven.ConfigStore
}

// NewSettingsService creates a new settings service.
func NewSettingsService(configStore driven.ConfigStore) *SettingsService {
	return &SettingsService{
		configStore: configStore,
	}
}

// Get retrieves current application settings. Missing or out-of-range
// values fall back to defaults.
func (s *SettingsService) Get() (*domain.AppSettings, error) {
	settings := domain.DefaultAppSettings()
	settings.Paths.SourceDir = s.configStore.GetString(keySourceDir)
	settings.Paths.DataDir = s.configStore.GetString(keyDataDir)

	for key, setting := range intSettings {
		if v, ok := s.getInt(key); ok && v >= setting.min {
			*setting.field(&settings) = v
		}
	}
	if _, ok := s.configStore.Get(keyCacheSize); !ok {
		if v, ok := s.getInt(keyQueryCacheSize); ok && v >= 0 {
			settings.Retrieval.CacheSize = v
		}
	}

	return &settings, nil
}

// Set updates a single setting and saves the configuration.
func (s *SettingsService) Set(key, value string) error {
	key = strings.TrimSpace(key)
	if key == keyQueryCacheSize {
		key = keyCacheSize
	}

	switch key {
	case keySourceDir, keyDataDir:
		if err := s.configStore.Set(key, strings.TrimSpace(value)); err != nil {
			return fmt.Errorf("save %s: %w", key, err)
		}
	default:
		setting, ok := intSettings[key]
		if !ok {
			return fmt.Errorf("%w: unknown setting %q", domain.ErrInvalidInput, key)
		}
		n, err := strconv.Atoi(strings.TrimSpace(value))
		if err != nil {
			return fmt.Errorf("%w: %s must be an integer", domain.ErrInvalidInput, key)
		}
		if n < setting.min {
			return fmt.Errorf("%w: %s must be at least %d", domain.ErrInvalidInput, key, setting.min)
		}
		if err := s.configStore.Set(key, n); err != nil {
			return fmt.Errorf("save %s: %w", key, err)
		}
	}

	return s.configStore.Save()
}

// Keys returns the settable keys in sorted order.
func (s *SettingsService) Keys() []string {
	keys := []string{keySourceDir, keyDataDir}
	for key := range intSettings {
		keys = append(keys, key)
	}
	slices.Sort(keys)
	return keys
}

// GetDefaults returns default settings.
func (s *SettingsService) GetDefaults() domain.AppSettings {
	return domain.DefaultAppSettings()
}

func (s *SettingsService) getInt(key string) (int, bool) {
	if _, ok := s.configStore.Get(key); !ok {
		return 0, false
	}
	return s.configStore.GetInt(key), true
}
