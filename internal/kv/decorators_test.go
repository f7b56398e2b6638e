package kv

import (
	"context"
	"errors"
	"testing"
	"time"

	ierrors "github.com/abgdnv/inventory/internal/errors"
	"github.com/sony/gobreaker/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scriptedStore returns the queued errors in order, then succeeds.
// Not thread-safe, should be used in sequential tests only.
type scriptedStore struct {
	errs  []error
	calls int
	delay time.Duration
	value string
}

func (s *scriptedStore) next(ctx context.Context) error {
	s.calls++
	if s.delay > 0 {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(s.delay):
		}
	}
	if len(s.errs) > 0 {
		err := s.errs[0]
		s.errs = s.errs[1:]
		return err
	}
	return nil
}

func (s *scriptedStore) Get(ctx context.Context, _ string) (string, error) {
	if err := s.next(ctx); err != nil {
		return "", err
	}
	return s.value, nil
}

func (s *scriptedStore) Set(ctx context.Context, _, _ string) error {
	return s.next(ctx)
}

func TestWithTimeout(t *testing.T) {
	// given
	backend := &scriptedStore{delay: time.Second}
	s := WithTimeout(backend, 20*time.Millisecond)

	// when
	start := time.Now()
	err := s.Set(context.Background(), "k", "v")

	// then
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), 500*time.Millisecond)
}

func TestWithRetry(t *testing.T) {
	errBackend := errors.New("connection reset")
	testCases := []struct {
		name          string
		errs          []error
		expectedCalls int
		expectedErr   error
	}{
		{
			name:          "success on first call",
			expectedCalls: 1,
		},
		{
			name:          "recovers after transient failures",
			errs:          []error{errBackend, errBackend},
			expectedCalls: 3,
		},
		{
			name:          "gives up after max attempts",
			errs:          []error{errBackend, errBackend, errBackend, errBackend},
			expectedCalls: 3,
			expectedErr:   errBackend,
		},
		{
			name:          "key not found is not retried",
			errs:          []error{ierrors.ErrKeyNotFound},
			expectedCalls: 1,
			expectedErr:   ierrors.ErrKeyNotFound,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			// given
			backend := &scriptedStore{errs: tc.errs, value: "v"}
			s := WithRetry(backend, 3, time.Millisecond)

			// when
			_, err := s.Get(context.Background(), "k")

			// then
			assert.Equal(t, tc.expectedCalls, backend.calls)
			if tc.expectedErr != nil {
				assert.ErrorIs(t, err, tc.expectedErr)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestWithRetry_StopsWhenContextDone(t *testing.T) {
	// given
	backend := &scriptedStore{errs: []error{errors.New("down"), errors.New("down")}}
	s := WithRetry(backend, 5, time.Hour)
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	// when
	err := s.Set(ctx, "k", "v")

	// then
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, 1, backend.calls)
}

func TestWithCircuitBreaker(t *testing.T) {
	// given
	errBackend := errors.New("connection refused")
	backend := &scriptedStore{errs: []error{errBackend, errBackend, errBackend}}
	var transitions []gobreaker.State
	s := WithCircuitBreaker(backend, BreakerSettings{
		Name:                "test",
		ConsecutiveFailures: 3,
		ErrorRatePercent:    100,
		OpenTimeout:         50 * time.Millisecond,
		OnStateChange: func(_ string, _, to gobreaker.State) {
			transitions = append(transitions, to)
		},
	})

	// when the backend fails three times in a row
	for range 3 {
		assert.ErrorIs(t, s.Set(context.Background(), "k", "v"), errBackend)
	}

	// then the breaker is open and the backend is not called
	err := s.Set(context.Background(), "k", "v")
	assert.ErrorIs(t, err, gobreaker.ErrOpenState)
	assert.Equal(t, 3, backend.calls)

	// when the open timeout elapses
	time.Sleep(80 * time.Millisecond)
	require.NoError(t, s.Set(context.Background(), "k", "v"))

	// then the breaker closes again
	assert.Equal(t, []gobreaker.State{gobreaker.StateOpen, gobreaker.StateHalfOpen, gobreaker.StateClosed}, transitions)
}

func TestWithCircuitBreaker_KeyNotFoundIsSuccess(t *testing.T) {
	// given
	errs := make([]error, 10)
	for i := range errs {
		errs[i] = ierrors.ErrKeyNotFound
	}
	backend := &scriptedStore{errs: errs}
	s := WithCircuitBreaker(backend, BreakerSettings{
		Name:                "test",
		ConsecutiveFailures: 2,
		ErrorRatePercent:    10,
		OpenTimeout:         time.Minute,
	})

	// when
	for range 10 {
		_, err := s.Get(context.Background(), "k")
		assert.ErrorIs(t, err, ierrors.ErrKeyNotFound)
	}

	// then
	assert.Equal(t, 10, backend.calls)
}
