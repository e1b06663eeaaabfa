package snapshot

import (
	"context"
	"errors"
	"fmt"

	carterrors "github.com/abgdnv/bathifarms/internal/errors"
	"github.com/nats-io/nats.go/jetstream"
)

var _ Store = (*KVStore)(nil)

// KVStore keeps snapshots in a JetStream key-value bucket.
// Keys may contain '.' separators but not ':'.
type KVStore struct {
	kv jetstream.KeyValue
}

// NewKVStore creates the bucket if it does not exist yet.
func NewKVStore(ctx context.Context, js jetstream.JetStream, bucket string) (*KVStore, error) {
	kv, err := js.CreateOrUpdateKeyValue(ctx, jetstream.KeyValueConfig{
		Bucket:      bucket,
		Description: "cart snapshots",
		History:     1,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open key-value bucket %s: %w", bucket, err)
	}
	return &KVStore{kv: kv}, nil
}

func (s *KVStore) Load(ctx context.Context, key string) ([]byte, error) {
	entry, err := s.kv.Get(ctx, key)
	if err != nil {
		if errors.Is(err, jetstream.ErrKeyNotFound) {
			return nil, carterrors.ErrSnapshotNotFound
		}
		return nil, fmt.Errorf("%w: %w", carterrors.ErrStorageUnavailable, err)
	}
	return entry.Value(), nil
}

func (s *KVStore) Save(ctx context.Context, key string, payload []byte) error {
	if _, err := s.kv.Put(ctx, key, payload); err != nil {
		return fmt.Errorf("%w: %w", carterrors.ErrStorageUnavailable, err)
	}
	return nil
}

func (s *KVStore) Delete(ctx context.Context, key string) error {
	if err := s.kv.Delete(ctx, key); err != nil && !errors.Is(err, jetstream.ErrKeyNotFound) {
		return fmt.Errorf("%w: %w", carterrors.ErrStorageUnavailable, err)
	}
	return nil
}
