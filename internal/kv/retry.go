package kv

import (
	"context"
	"errors"
	"time"

	ierrors "github.com/abgdnv/inventory/internal/errors"
	"github.com/grpc-ecosystem/go-grpc-middleware/v2/interceptors/retry"
)

type retryStore struct {
	next        Store
	maxAttempts uint
	backoff     retry.BackoffFunc
}

// WithRetry repeats failed calls to next up to maxAttempts times in total,
// waiting an exponentially growing interval between attempts.
// ErrKeyNotFound and errors after the caller's context is done are returned immediately.
func WithRetry(next Store, maxAttempts uint, initialBackoff time.Duration) Store {
	return &retryStore{
		next:        next,
		maxAttempts: max(1, maxAttempts),
		backoff:     retry.BackoffExponential(initialBackoff),
	}
}

func (r *retryStore) Get(ctx context.Context, key string) (string, error) {
	var value string
	err := r.do(ctx, func(ctx context.Context) error {
		var err error
		value, err = r.next.Get(ctx, key)
		return err
	})
	return value, err
}

func (r *retryStore) Set(ctx context.Context, key, value string) error {
	return r.do(ctx, func(ctx context.Context) error {
		return r.next.Set(ctx, key, value)
	})
}

func (r *retryStore) do(ctx context.Context, call func(ctx context.Context) error) error {
	var err error
	for attempt := range r.maxAttempts {
		if attempt > 0 {
			timer := time.NewTimer(r.backoff(ctx, attempt))
			select {
			case <-ctx.Done():
				timer.Stop()
				return errors.Join(err, ctx.Err())
			case <-timer.C:
			}
		}
		err = call(ctx)
		if err == nil || errors.Is(err, ierrors.ErrKeyNotFound) || ctx.Err() != nil {
			return err
		}
	}
	return err
}
