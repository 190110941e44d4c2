package repositories

import "context"

// KeyValue is a minimal key-value store used for guest session state.
// Implementations may be in-memory, file-backed, or database-backed;
// semantics are plain last-write-wins.
type KeyValue interface {
	// Get returns the value for key and whether it exists.
	Get(ctx context.Context, key string) (string, bool, error)
	// Set stores the value for key, overwriting any previous value.
	Set(ctx context.Context, key string, value string) error
	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
}
