// Package natskv stores key-value entries in a NATS JetStream key-value bucket.
package natskv

import (
	"context"
	"errors"
	"fmt"

	ierrors "github.com/abgdnv/inventory/internal/errors"
	"github.com/nats-io/nats.go/jetstream"
)

// NatsStore implements kv.Store on top of a JetStream bucket.
type NatsStore struct {
	kv jetstream.KeyValue
}

// NewNatsStore creates the bucket if it does not exist and returns a store backed by it.
// Only the latest value of each key is kept.
func NewNatsStore(ctx context.Context, js jetstream.JetStream, bucket string) (*NatsStore, error) {
	kv, err := js.CreateOrUpdateKeyValue(ctx, jetstream.KeyValueConfig{
		Bucket:      bucket,
		Description: "inventory key-value storage",
		History:     1,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create key-value bucket %s: %w", bucket, err)
	}
	return &NatsStore{kv: kv}, nil
}

// Get returns the latest value stored under key.
// Returns ErrKeyNotFound if the key was never written or was deleted.
func (n *NatsStore) Get(ctx context.Context, key string) (string, error) {
	entry, err := n.kv.Get(ctx, key)
	if err != nil {
		if errors.Is(err, jetstream.ErrKeyNotFound) {
			return "", ierrors.ErrKeyNotFound
		}
		return "", fmt.Errorf("failed to get value for key %s: %w", key, err)
	}
	return string(entry.Value()), nil
}

// Set puts value under key.
func (n *NatsStore) Set(ctx context.Context, key, value string) error {
	if _, err := n.kv.Put(ctx, key, []byte(value)); err != nil {
		return fmt.Errorf("failed to set value for key %s: %w", key, err)
	}
	return nil
}
