// Package cache stores rendered map artifacts keyed by their source.
//
// Rendering a map through Graphviz is the slowest thing the CLI does, and the
// output depends only on the DOT source and the output format. [ArtifactKey]
// hashes both, so an unchanged map is served from the cache.
//
// Implementations:
//   - [FileCache]: one file per entry below a directory, for the CLI
//   - [NullCache]: never stores anything, for --no-cache
package cache

import (
	"context"
	"time"
)

// Cache is a byte store with optional expiry.
type Cache interface {
	// Get returns the entry for key and whether it was found.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores data under key. A ttl of zero never expires.
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Close releases resources.
	Close() error
}

// ArtifactKey returns the cache key of the artifact rendered from source in
// the given format.
func ArtifactKey(source []byte, format string) string {
	return hashKey("artifact", Hash(source), format)
}
