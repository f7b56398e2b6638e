package kv

import (
	"context"
	"time"
)

type timeoutStore struct {
	next    Store
	timeout time.Duration
}

// WithTimeout bounds every call to next by timeout.
func WithTimeout(next Store, timeout time.Duration) Store {
	return &timeoutStore{next: next, timeout: timeout}
}

func (t *timeoutStore) Get(ctx context.Context, key string) (string, error) {
	callCtx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()
	return t.next.Get(callCtx, key)
}

func (t *timeoutStore) Set(ctx context.Context, key, value string) error {
	callCtx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()
	return t.next.Set(callCtx, key, value)
}
