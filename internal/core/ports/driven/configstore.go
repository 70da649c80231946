package driven

// ConfigStore holds the persisted settings as flat dot-separated keys
// such as "index.nprocs". Typed getters return the zero value when the key
// is missing or holds another type; callers substitute their defaults.
type ConfigStore interface {
	// Get returns the raw value and whether the key is set.
	Get(key string) (any, bool)

	GetString(key string) string
	GetInt(key string) int
	GetBool(key string) bool

	// Keys returns every set key in sorted order.
	Keys() []string

	// Set stores one value. File-backed stores persist it immediately.
	Set(key string, value any) error

	// Save writes all values to storage.
	Save() error

	// Load replaces the values with those in storage.
	Load() error

	// Path identifies the backing storage.
	Path() string
}
