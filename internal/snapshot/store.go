// Package snapshot provides the key-value slot that holds serialized carts.
package snapshot

import "context"

// Store is a single-slot-per-key persistence layer for cart snapshots.
// Payloads are opaque to the store and are overwritten wholesale.
type Store interface {
	// Load returns the payload stored under key.
	// Returns ErrSnapshotNotFound if nothing was ever saved (or it was deleted).
	Load(ctx context.Context, key string) ([]byte, error)

	// Save overwrites the payload stored under key.
	// Returns ErrStorageUnavailable if the backend rejects the write.
	Save(ctx context.Context, key string, payload []byte) error

	// Delete removes the payload stored under key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
}
