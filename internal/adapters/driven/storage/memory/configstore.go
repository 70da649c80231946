package memory

import (
	"maps"
	"slices"
	"sync"

	"github.com/custodia-labs/aecg-cli/internal/core/ports/driven"
)

// Ensure ConfigStore implements the interface.
var _ driven.ConfigStore = (*ConfigStore)(nil)

// ConfigStore keeps settings in a map. It stands in for the TOML file in
// tests and counts writes so callers can check what was persisted.
type ConfigStore struct {
	mu      sync.RWMutex
	values  map[string]any
	writes  int
	failSet error
}

// NewConfigStore creates an empty config store.
func NewConfigStore() *ConfigStore {
	return NewConfigStoreWith(nil)
}

// NewConfigStoreWith creates a store holding a copy of values.
func NewConfigStoreWith(values map[string]any) *ConfigStore {
	s := &ConfigStore{values: make(map[string]any, len(values))}
	maps.Copy(s.values, values)
	return s
}

// FailSet makes every later Set return err. A nil err clears it.
func (s *ConfigStore) FailSet(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failSet = err
}

// Writes returns how many values were stored through Set.
func (s *ConfigStore) Writes() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.writes
}

// Get retrieves a configuration value by key.
func (s *ConfigStore) Get(key string) (any, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	val, ok := s.values[key]
	return val, ok
}

// GetString returns the value if it is a string.
func (s *ConfigStore) GetString(key string) string {
	str, _ := get[string](s, key)
	return str
}

// GetInt returns the value if it is an integer. TOML decodes integers as
// int64, so both widths are accepted.
func (s *ConfigStore) GetInt(key string) int {
	if n, ok := get[int](s, key); ok {
		return n
	}
	n, _ := get[int64](s, key)
	return int(n)
}

// GetBool returns the value if it is a bool.
func (s *ConfigStore) GetBool(key string) bool {
	b, _ := get[bool](s, key)
	return b
}

func get[T any](s *ConfigStore, key string) (T, bool) {
	val, ok := s.Get(key)
	if !ok {
		var zero T
		return zero, false
	}
	v, ok := val.(T)
	return v, ok
}

// Keys returns every set key in sorted order.
func (s *ConfigStore) Keys() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Sorted(maps.Keys(s.values))
}

// Set stores a configuration value.
func (s *ConfigStore) Set(key string, value any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failSet != nil {
		return s.failSet
	}
	s.values[key] = value
	s.writes++
	return nil
}

// Save is a no-op; Set already holds the value.
func (s *ConfigStore) Save() error {
	return nil
}

// Load is a no-op.
func (s *ConfigStore) Load() error {
	return nil
}

// Path returns ":memory:".
func (s *ConfigStore) Path() string {
	return ":memory:"
}
