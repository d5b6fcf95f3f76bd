package uow

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/A7k6h7i0/sports-facility-booking/internal/repository"
	"github.com/A7k6h7i0/sports-facility-booking/internal/repository/memory"
)

// flaky aborts the first n transactions after running the callback.
type flaky struct {
	inner *memory.Store
	n     int
	calls int
}

func (f *flaky) Atomic(ctx context.Context, fn func(ctx context.Context, tx repository.Tx) error) error {
	f.calls++
	if f.calls <= f.n {
		if err := fn(ctx, nil); err != nil {
			return err
		}
		return fmt.Errorf("commit: %w", repository.ErrTxAborted)
	}
	return f.inner.Atomic(ctx, fn)
}

func TestDoRetriesAbortedTransactions(t *testing.T) {
	store := &flaky{inner: memory.New(), n: 2}

	var retries []int
	u := NewUoW(store, WithAttempts(3), WithBackoff(0), WithRetryHook(func(attempt int, _ error) {
		retries = append(retries, attempt)
	}))

	hooks := 0
	err := u.Do(context.Background(), func(ctx context.Context, tx repository.Tx, after func(AfterCommit)) error {
		after(func(context.Context) { hooks++ })
		return nil
	})
	require.NoError(t, err)

	assert.Equal(t, 3, store.calls)
	assert.Equal(t, []int{1, 2}, retries)
	assert.Equal(t, 1, hooks, "hooks from aborted attempts must not run")
}

func TestDoGivesUpAfterAttempts(t *testing.T) {
	store := &flaky{inner: memory.New(), n: 5}
	u := NewUoW(store, WithAttempts(2), WithBackoff(0))

	hooks := 0
	err := u.Do(context.Background(), func(ctx context.Context, tx repository.Tx, after func(AfterCommit)) error {
		after(func(context.Context) { hooks++ })
		return nil
	})

	assert.ErrorIs(t, err, repository.ErrTxAborted)
	assert.Equal(t, 2, store.calls)
	assert.Zero(t, hooks)
}

func TestDoDoesNotRetryOtherErrors(t *testing.T) {
	store := &flaky{inner: memory.New()}
	u := NewUoW(store, WithBackoff(0))
	boom := errors.New("boom")

	err := u.Do(context.Background(), func(ctx context.Context, tx repository.Tx, after func(AfterCommit)) error {
		return boom
	})

	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1, store.calls)
}

func TestDoStopsOnCancelledContext(t *testing.T) {
	store := &flaky{inner: memory.New(), n: 5}
	u := NewUoW(store, WithAttempts(5), WithBackoff(0))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := u.Do(ctx, func(ctx context.Context, tx repository.Tx, after func(AfterCommit)) error {
		return nil
	})

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, store.calls)
}
