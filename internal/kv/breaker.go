package kv

import (
	"context"
	"errors"
	"time"

	ierrors "github.com/abgdnv/inventory/internal/errors"
	"github.com/sony/gobreaker/v2"
)

// BreakerSettings configures the circuit breaker around a Store.
type BreakerSettings struct {
	Name                string
	ConsecutiveFailures uint32
	ErrorRatePercent    int
	OpenTimeout         time.Duration
	OnStateChange       func(name string, from, to gobreaker.State)
}

type breakerStore struct {
	next Store
	cb   *gobreaker.CircuitBreaker[string]
}

// WithCircuitBreaker stops calling next while it keeps failing.
// Calls made while the breaker is open fail with gobreaker.ErrOpenState.
// ErrKeyNotFound counts as a successful call.
func WithCircuitBreaker(next Store, cfg BreakerSettings) Store {
	st := gobreaker.Settings{
		Name:          cfg.Name,
		MaxRequests:   1,
		Timeout:       cfg.OpenTimeout,
		OnStateChange: cfg.OnStateChange,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			total := counts.TotalSuccesses + counts.TotalFailures
			return counts.ConsecutiveFailures >= cfg.ConsecutiveFailures ||
				(total > cfg.ConsecutiveFailures &&
					float64(counts.TotalFailures)/float64(total)*100 > float64(cfg.ErrorRatePercent))
		},
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, ierrors.ErrKeyNotFound) || errors.Is(err, context.Canceled)
		},
	}
	return &breakerStore{
		next: next,
		cb:   gobreaker.NewCircuitBreaker[string](st),
	}
}

func (b *breakerStore) Get(ctx context.Context, key string) (string, error) {
	return b.cb.Execute(func() (string, error) {
		return b.next.Get(ctx, key)
	})
}

func (b *breakerStore) Set(ctx context.Context, key, value string) error {
	_, err := b.cb.Execute(func() (string, error) {
		return "", b.next.Set(ctx, key, value)
	})
	return err
}
