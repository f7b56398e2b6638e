// Package kv provides the key-value backends the product list is persisted in
// and decorators that add timeouts, retries and a circuit breaker to them.
package kv

import "context"

// Store is a string key-value store.
type Store interface {
	// Get returns the value stored under key.
	// Returns ErrKeyNotFound if nothing is stored under the key.
	Get(ctx context.Context, key string) (string, error)

	// Set stores value under key, replacing any previous value.
	Set(ctx context.Context, key, value string) error
}
