package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/A7k6h7i0/sports-facility-booking/internal/repository"
)

type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults
}

// view bundles every repository bound to one handle: the pool or a tx.
// Its promoted methods satisfy repository.Tx.
type view struct {
	*CourtRepo
	*EquipmentRepo
	*CoachRepo
	*RuleRepo
	*BookingRepo
}

var _ repository.Tx = (*view)(nil)

type Store struct {
	pool *pgxpool.Pool
	*view
}

var _ repository.Store = (*Store)(nil)

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{
		pool: pool,
		view: &view{
			CourtRepo:     &CourtRepo{pool: pool},
			EquipmentRepo: &EquipmentRepo{pool: pool},
			CoachRepo:     &CoachRepo{pool: pool},
			RuleRepo:      &RuleRepo{pool: pool},
			BookingRepo:   &BookingRepo{pool: pool},
		},
	}
}

func (s *Store) Courts() *CourtRepo        { return s.CourtRepo }
func (s *Store) Equipment() *EquipmentRepo { return s.EquipmentRepo }
func (s *Store) Coaches() *CoachRepo       { return s.CoachRepo }
func (s *Store) Rules() *RuleRepo          { return s.RuleRepo }
func (s *Store) Bookings() *BookingRepo    { return s.BookingRepo }
func (s *Store) Pool() *pgxpool.Pool       { return s.pool }

func (s *Store) bind(db DB) *view { return s.view.with(db) }

func (v *view) with(db DB) *view {
	return &view{
		CourtRepo:     v.CourtRepo.With(db),
		EquipmentRepo: v.EquipmentRepo.With(db),
		CoachRepo:     v.CoachRepo.With(db),
		RuleRepo:      v.RuleRepo.With(db),
		BookingRepo:   v.BookingRepo.With(db),
	}
}

func (s *Store) RunTx(
	ctx context.Context,
	opts *pgx.TxOptions,
	fn func(ctx context.Context, tx DB) error,
) error {
	txOpts := pgx.TxOptions{
		IsoLevel:   pgx.Serializable,
		AccessMode: pgx.ReadWrite,
	}

	if opts != nil {
		txOpts.IsoLevel = opts.IsoLevel
		txOpts.AccessMode = opts.AccessMode
		txOpts.DeferrableMode = opts.DeferrableMode
	}

	tx, err := s.pool.BeginTx(ctx, txOpts)
	if err != nil {
		return err
	}

	defer tx.Rollback(ctx)

	if err := fn(ctx, tx); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit: %w", err)
	}

	return nil
}

// Atomic runs fn in a serializable transaction. Serialization failures and
// deadlocks, whether raised by a statement or by COMMIT, surface as
// repository.ErrTxAborted.
func (s *Store) Atomic(ctx context.Context, fn func(ctx context.Context, tx repository.Tx) error) error {
	const op = "postgres.Store.Atomic"

	err := s.RunTx(ctx, nil, func(ctx context.Context, tx DB) error {
		return fn(ctx, s.bind(tx))
	})
	if err == nil {
		return nil
	}

	if IsRetryable(err) && !errors.Is(err, repository.ErrTxAborted) {
		return fmt.Errorf("%s:%w: %w", op, repository.ErrTxAborted, err)
	}

	return err
}

func (s *Store) Close() { s.pool.Close() }
