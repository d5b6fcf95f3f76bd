package uow

import (
	"context"
	"errors"
	"time"

	"github.com/A7k6h7i0/sports-facility-booking/internal/repository"
)

// AfterCommit is a function that runs after a successful transaction commit.
type AfterCommit func(ctx context.Context)

// Atomic is the part of a store a unit of work needs.
type Atomic interface {
	Atomic(ctx context.Context, fn func(ctx context.Context, tx repository.Tx) error) error
}

// UoW represents a unit of work.
type UoW struct {
	store    Atomic
	attempts int
	backoff  time.Duration
	onRetry  func(attempt int, err error)
}

type Option func(*UoW)

// WithAttempts bounds how many times an aborted transaction is run in total.
func WithAttempts(n int) Option {
	return func(u *UoW) {
		if n > 0 {
			u.attempts = n
		}
	}
}

// WithBackoff sets the base pause between attempts. The pause grows linearly.
func WithBackoff(d time.Duration) Option {
	return func(u *UoW) { u.backoff = d }
}

// WithRetryHook is called before every retry.
func WithRetryHook(fn func(attempt int, err error)) Option {
	return func(u *UoW) { u.onRetry = fn }
}

func NewUoW(store Atomic, opts ...Option) *UoW {
	u := &UoW{
		store:    store,
		attempts: 3,
		backoff:  10 * time.Millisecond,
	}
	for _, o := range opts {
		o(u)
	}
	return u
}

// Do runs fn inside a transaction. After a successful commit, it executes
// all after-commit hooks registered by the attempt that committed.
//
// When the store reports repository.ErrTxAborted the whole callback is run
// again, up to the configured number of attempts. Any other error is
// returned as is.
func (u *UoW) Do(
	ctx context.Context,
	fn func(ctx context.Context, tx repository.Tx, after func(AfterCommit)) error,
) error {
	var err error

	for attempt := 1; ; attempt++ {
		var hooks []AfterCommit

		err = u.store.Atomic(ctx, func(ctx context.Context, tx repository.Tx) error {
			return fn(ctx, tx, func(h AfterCommit) {
				hooks = append(hooks, h)
			})
		})
		if err == nil {
			for _, h := range hooks {
				h(ctx)
			}
			return nil
		}

		if !errors.Is(err, repository.ErrTxAborted) || attempt >= u.attempts {
			return err
		}

		if ctxErr := ctx.Err(); ctxErr != nil {
			return errors.Join(err, ctxErr)
		}

		if u.onRetry != nil {
			u.onRetry(attempt, err)
		}

		select {
		case <-ctx.Done():
			return errors.Join(err, ctx.Err())
		case <-time.After(time.Duration(attempt) * u.backoff):
		}
	}
}
