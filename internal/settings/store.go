// Package settings persists per-provider configuration as flat
// string-keyed mappings. The gateway core only depends on the Store
// interface; the backend (Postgres or a watched JSON file) is picked at
// startup.
package settings

import "context"

// Store loads and saves one settings mapping per provider name.
type Store interface {
	// Load returns the persisted mapping for the provider. A provider
	// with no persisted entry loads as an empty, non-nil map.
	Load(ctx context.Context, provider string) (map[string]string, error)

	// Save persists the full mapping for the provider, replacing any
	// previous entry.
	Save(ctx context.Context, provider string, values map[string]string) error

	// Ping reports whether the backend is reachable.
	Ping(ctx context.Context) error

	Close()
}
