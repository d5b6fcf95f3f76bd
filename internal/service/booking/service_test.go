package booking

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/A7k6h7i0/sports-facility-booking/internal/domain"
	"github.com/A7k6h7i0/sports-facility-booking/internal/repository"
	"github.com/A7k6h7i0/sports-facility-booking/internal/repository/memory"
	"github.com/A7k6h7i0/sports-facility-booking/internal/service/availability"
	"github.com/A7k6h7i0/sports-facility-booking/internal/service/pricing"
)

var (
	monday = time.Date(2025, 6, 16, 0, 0, 0, 0, time.UTC)
	alice  = domain.Principal{ID: "alice", Role: domain.RoleUser}
	bob    = domain.Principal{ID: "bob", Role: domain.RoleUser}
	admin  = domain.Principal{ID: "root", Role: domain.RoleAdmin}
)

func newService(store repository.Store, opts ...Option) *Service {
	return New(
		store,
		availability.NewService(store, time.UTC),
		pricing.New(store, pricing.Config{Location: time.UTC}),
		Config{Location: time.UTC, TxBackoff: time.Microsecond},
		opts...,
	)
}

func slot(from, to int) (time.Time, time.Time) {
	return monday.Add(time.Duration(from) * time.Hour), monday.Add(time.Duration(to) * time.Hour)
}

func input(court uuid.UUID, from, to int, equipment ...domain.EquipmentRequest) CreateInput {
	start, end := slot(from, to)
	return CreateInput{
		CourtID:       court,
		Start:         start,
		End:           end,
		Equipment:     equipment,
		CustomerName:  "Alice",
		CustomerEmail: "alice@example.com",
		CustomerPhone: "+10000000000",
	}
}

func available(t *testing.T, store repository.Reader, id uuid.UUID) int {
	t.Helper()
	item, err := store.GetEquipment(context.Background(), id)
	require.NoError(t, err)
	return item.AvailableQuantity
}

func TestCreateAndCancelRestoresInventory(t *testing.T) {
	ctx := context.Background()
	store := memory.NewSeeded()
	svc := newService(store)

	coach := memory.CoachJohn
	in := input(memory.CourtIndoor1, 10, 11, domain.EquipmentRequest{EquipmentID: memory.EquipBadmintonRacket, Quantity: 2})
	in.CoachID = &coach

	before := available(t, store, memory.EquipBadmintonRacket)

	b, err := svc.Create(ctx, alice, in)
	require.NoError(t, err)

	assert.Equal(t, domain.BookingConfirmed, b.Status)
	assert.Equal(t, "alice", b.UserID)
	require.NotNil(t, b.Court)
	assert.Equal(t, memory.CourtIndoor1, b.Court.ID)
	require.Len(t, b.EquipmentItems, 1)
	require.NotNil(t, b.CoachInfo)
	assert.Equal(t, memory.CoachJohn, b.CoachInfo.ID)

	assert.Equal(t, []domain.BookingEquipment{{EquipmentID: memory.EquipBadmintonRacket, Quantity: 2, PricePerHour: 5}}, b.Equipment)
	require.NotNil(t, b.Coach.CoachID)
	assert.Equal(t, 40.0, b.Coach.PricePerHour)
	assert.Equal(t, 60.0, b.Pricing.CourtPrice)
	assert.Equal(t, 10.0, b.Pricing.EquipmentPrice)
	assert.Equal(t, 40.0, b.Pricing.CoachPrice)
	assert.Equal(t, 110.0, b.Pricing.Subtotal)
	assert.Equal(t, 19.8, b.Pricing.Tax)
	assert.Equal(t, 129.8, b.Pricing.TotalPrice)

	assert.Equal(t, before-2, available(t, store, memory.EquipBadmintonRacket))

	cancelled, err := svc.Cancel(ctx, alice, b.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.BookingCancelled, cancelled.Status)
	assert.Equal(t, before, available(t, store, memory.EquipBadmintonRacket))

	// The slot is free again.
	_, err = svc.Create(ctx, bob, input(memory.CourtIndoor1, 10, 11))
	require.NoError(t, err)
}

func TestCreateStoresTheEstimate(t *testing.T) {
	ctx := context.Background()
	svc := newService(memory.NewSeeded())

	in := input(memory.CourtOutdoor2, 18, 20, domain.EquipmentRequest{EquipmentID: memory.EquipBasketball, Quantity: 1})

	quote, err := svc.Estimate(ctx, pricing.Request{
		CourtID:   in.CourtID,
		Start:     in.Start,
		End:       in.End,
		Equipment: in.Equipment,
	})
	require.NoError(t, err)

	b, err := svc.Create(ctx, alice, in)
	require.NoError(t, err)

	assert.Equal(t, quote.Pricing, b.Pricing)
}

func TestConcurrentCreatesNeverDoubleBook(t *testing.T) {
	ctx := context.Background()
	store := memory.NewSeeded()
	svc := newService(store)

	const n = 16
	var ok, unavailable atomic.Int32

	var g errgroup.Group
	for i := range n {
		g.Go(func() error {
			p := domain.Principal{ID: fmt.Sprintf("user-%d", i), Role: domain.RoleUser}
			_, err := svc.Create(ctx, p, input(memory.CourtIndoor2, 18, 19))
			switch {
			case err == nil:
				ok.Add(1)
			case errors.Is(err, ErrResourceUnavailable):
				unavailable.Add(1)
			default:
				return err
			}
			return nil
		})
	}
	require.NoError(t, g.Wait())

	assert.Equal(t, int32(1), ok.Load())
	assert.Equal(t, int32(n-1), unavailable.Load())

	busy, err := store.OverlappingBookings(ctx, repository.OverlapQuery{
		Resource: repository.ResourceRef{Kind: repository.ResourceCourt, ID: memory.CourtIndoor2},
		Start:    monday.Add(18 * time.Hour),
		End:      monday.Add(19 * time.Hour),
	})
	require.NoError(t, err)
	assert.Len(t, busy, 1)
}

func TestConcurrentCreatesNeverOverdrawStock(t *testing.T) {
	ctx := context.Background()
	store := memory.NewSeeded()
	svc := newService(store)

	// Five basketballs in stock, every request wants two on its own day.
	const n = 5
	var ok atomic.Int32

	var g errgroup.Group
	for i := range n {
		g.Go(func() error {
			in := input(memory.CourtOutdoor1, 10, 11, domain.EquipmentRequest{EquipmentID: memory.EquipBasketball, Quantity: 2})
			in.Start = in.Start.AddDate(0, 0, 7*i)
			in.End = in.End.AddDate(0, 0, 7*i)

			_, err := svc.Create(ctx, alice, in)
			switch {
			case err == nil:
				ok.Add(1)
			case !errors.Is(err, ErrResourceUnavailable):
				return err
			}
			return nil
		})
	}
	require.NoError(t, g.Wait())

	assert.Equal(t, int32(2), ok.Load())

	left := available(t, store, memory.EquipBasketball)
	assert.Equal(t, 1, left)
	assert.GreaterOrEqual(t, left, 0)
}

func TestCreateCrossResourcePartialFailure(t *testing.T) {
	ctx := context.Background()
	store := memory.NewSeeded()
	svc := newService(store)

	_, err := svc.Create(ctx, alice, input(memory.CourtOutdoor1, 10, 11,
		domain.EquipmentRequest{EquipmentID: memory.EquipBasketball, Quantity: 6},
	))
	require.ErrorIs(t, err, ErrResourceUnavailable)

	var ue UnavailableError
	require.True(t, errors.As(err, &ue))
	assert.False(t, ue.Result.Available)
	assert.True(t, ue.Result.Court.Available)
	assert.False(t, ue.Result.Equipment.Available)
	require.Len(t, ue.Result.Equipment.Unavailable, 1)
	assert.Equal(t, 1, ue.Result.Equipment.Unavailable[0].Shortfall)
	assert.Equal(t, "Basketball: only 5 available", ue.Error())

	all, err := store.ListBookings(ctx, 0, 0)
	require.NoError(t, err)
	assert.Empty(t, all)
	assert.Equal(t, 5, available(t, store, memory.EquipBasketball))
}

// reserveFails fails stock reservations of one item inside transactions.
type reserveFails struct {
	*memory.Store
	item uuid.UUID
}

type reserveFailsTx struct {
	repository.Tx
	item uuid.UUID
}

func (s *reserveFails) Atomic(ctx context.Context, fn func(ctx context.Context, tx repository.Tx) error) error {
	return s.Store.Atomic(ctx, func(ctx context.Context, tx repository.Tx) error {
		return fn(ctx, reserveFailsTx{Tx: tx, item: s.item})
	})
}

func (tx reserveFailsTx) ReserveEquipment(ctx context.Context, id uuid.UUID, qty int) error {
	if id == tx.item {
		return errors.New("disk full")
	}
	return tx.Tx.ReserveEquipment(ctx, id, qty)
}

func TestCreateLeavesNoPartialWrites(t *testing.T) {
	ctx := context.Background()
	store := &reserveFails{Store: memory.NewSeeded(), item: memory.EquipSportsShoes}
	svc := newService(store)

	_, err := svc.Create(ctx, alice, input(memory.CourtIndoor1, 10, 11,
		domain.EquipmentRequest{EquipmentID: memory.EquipBadmintonRacket, Quantity: 2},
		domain.EquipmentRequest{EquipmentID: memory.EquipSportsShoes, Quantity: 2},
	))
	require.ErrorIs(t, err, ErrStoreFault)

	all, err := store.ListBookings(ctx, 0, 0)
	require.NoError(t, err)
	assert.Empty(t, all)
	assert.Equal(t, 10, available(t, store, memory.EquipBadmintonRacket))
	assert.Equal(t, 15, available(t, store, memory.EquipSportsShoes))
}

// aborting reports a serialization failure for the first n transactions.
type aborting struct {
	*memory.Store
	n     int
	calls atomic.Int32
}

func (s *aborting) Atomic(ctx context.Context, fn func(ctx context.Context, tx repository.Tx) error) error {
	call := int(s.calls.Add(1))
	return s.Store.Atomic(ctx, func(ctx context.Context, tx repository.Tx) error {
		if err := fn(ctx, tx); err != nil {
			return err
		}
		if call <= s.n {
			return fmt.Errorf("commit: %w", repository.ErrTxAborted)
		}
		return nil
	})
}

func TestCreateRetriesAbortedTransactions(t *testing.T) {
	ctx := context.Background()

	store := &aborting{Store: memory.NewSeeded(), n: 2}
	b, err := newService(store).Create(ctx, alice, input(memory.CourtIndoor1, 10, 11,
		domain.EquipmentRequest{EquipmentID: memory.EquipTennisRacket, Quantity: 1},
	))
	require.NoError(t, err)
	assert.Equal(t, int32(3), store.calls.Load())
	assert.Equal(t, 7, available(t, store, memory.EquipTennisRacket))

	all, err := store.ListBookings(ctx, 0, 0)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, b.ID, all[0].ID)
}

func TestCreateGivesUpAfterRetries(t *testing.T) {
	store := &aborting{Store: memory.NewSeeded(), n: 100}

	_, err := newService(store).Create(context.Background(), alice, input(memory.CourtIndoor1, 10, 11))
	require.ErrorIs(t, err, ErrTransactionAborted)
	assert.ErrorIs(t, err, repository.ErrTxAborted)
	assert.Equal(t, int32(3), store.calls.Load())
}

func TestCreateRejectsInvalidInput(t *testing.T) {
	svc := newService(memory.NewSeeded())
	ctx := context.Background()

	_, err := svc.Create(ctx, alice, input(memory.CourtIndoor1, 11, 10))
	assert.ErrorIs(t, err, domain.ErrInvalidDuration)

	_, err = svc.Create(ctx, alice, input(memory.CourtIndoor1, 10, 11, domain.EquipmentRequest{EquipmentID: memory.EquipBasketball}))
	assert.ErrorIs(t, err, domain.ErrInvalidQuantity)

	_, err = svc.Create(ctx, domain.Principal{}, input(memory.CourtIndoor1, 10, 11))
	assert.ErrorIs(t, err, ErrUnauthorized)

	_, err = svc.Create(ctx, alice, input(uuid.New(), 10, 11))
	require.ErrorIs(t, err, ErrResourceUnavailable)
	assert.Contains(t, err.Error(), availability.ReasonCourtNotFound)
}

func TestCoachOutsideWindowIsRejected(t *testing.T) {
	coach := memory.CoachJohn
	start := monday.Add(16*time.Hour + 30*time.Minute)
	in := CreateInput{CourtID: memory.CourtIndoor1, Start: start, End: start.Add(time.Hour), CoachID: &coach}

	_, err := newService(memory.NewSeeded()).Create(context.Background(), alice, in)
	require.ErrorIs(t, err, ErrResourceUnavailable)
	assert.Contains(t, err.Error(), "09:00 to 17:00")
}

func TestCancelErrors(t *testing.T) {
	ctx := context.Background()
	store := memory.NewSeeded()
	svc := newService(store)

	_, err := svc.Cancel(ctx, alice, uuid.New())
	assert.ErrorIs(t, err, ErrBookingNotFound)

	b, err := svc.Create(ctx, alice, input(memory.CourtIndoor1, 10, 11))
	require.NoError(t, err)

	_, err = svc.Cancel(ctx, bob, b.ID)
	assert.ErrorIs(t, err, ErrUnauthorized)

	_, err = svc.Cancel(ctx, alice, b.ID)
	require.NoError(t, err)

	_, err = svc.Cancel(ctx, alice, b.ID)
	assert.ErrorIs(t, err, ErrAlreadyCancelled)

	done, err := svc.Create(ctx, alice, input(memory.CourtIndoor1, 12, 13))
	require.NoError(t, err)
	require.NoError(t, store.SetBookingStatus(ctx, done.ID, domain.BookingCompleted))

	_, err = svc.Cancel(ctx, alice, done.ID)
	assert.ErrorIs(t, err, ErrNotCancellable)
}

func TestGetAndList(t *testing.T) {
	ctx := context.Background()
	svc := newService(memory.NewSeeded())

	first, err := svc.Create(ctx, alice, input(memory.CourtIndoor1, 10, 11))
	require.NoError(t, err)
	second, err := svc.Create(ctx, alice, input(memory.CourtIndoor1, 11, 12))
	require.NoError(t, err)
	_, err = svc.Create(ctx, bob, input(memory.CourtIndoor2, 11, 12))
	require.NoError(t, err)

	got, err := svc.Get(ctx, alice, first.ID)
	require.NoError(t, err)
	assert.Equal(t, first.ID, got.ID)

	_, err = svc.Get(ctx, admin, first.ID)
	require.NoError(t, err)

	_, err = svc.Get(ctx, bob, first.ID)
	assert.ErrorIs(t, err, ErrUnauthorized)

	_, err = svc.Get(ctx, alice, uuid.New())
	assert.ErrorIs(t, err, ErrBookingNotFound)

	mine, err := svc.ListMine(ctx, alice)
	require.NoError(t, err)
	require.Len(t, mine, 2)
	assert.Equal(t, second.ID, mine[0].ID)
	assert.NotNil(t, mine[0].Court)

	_, err = svc.ListAll(ctx, alice, 10, 0)
	assert.ErrorIs(t, err, ErrUnauthorized)

	page, err := svc.ListAll(ctx, admin, 2, 1)
	require.NoError(t, err)
	assert.Len(t, page, 2)
}

type cacheMock struct{ mock.Mock }

func (m *cacheMock) InvalidateCourtSchedule(ctx context.Context, courtID uuid.UUID, dates ...string) error {
	return m.Called(ctx, courtID, dates).Error(0)
}

func (m *cacheMock) InvalidateEquipment(ctx context.Context, id uuid.UUID) error {
	return m.Called(ctx, id).Error(0)
}

type publisherMock struct{ mock.Mock }

func (m *publisherMock) PublishCourtChanged(ctx context.Context, courtID uuid.UUID, dates ...string) error {
	return m.Called(ctx, courtID, dates).Error(0)
}

func TestCommittedChangesInvalidateAndPublish(t *testing.T) {
	ctx := context.Background()
	cache := &cacheMock{}
	pub := &publisherMock{}
	svc := newService(memory.NewSeeded(), WithCache(cache), WithPublisher(pub))

	days := []string{"2025-06-16"}
	cache.On("InvalidateCourtSchedule", mock.Anything, memory.CourtIndoor1, days).Return(nil).Twice()
	cache.On("InvalidateEquipment", mock.Anything, memory.EquipTennisRacket).Return(errors.New("redis down")).Twice()
	pub.On("PublishCourtChanged", mock.Anything, memory.CourtIndoor1, days).Return(nil).Twice()

	b, err := svc.Create(ctx, alice, input(memory.CourtIndoor1, 10, 11,
		domain.EquipmentRequest{EquipmentID: memory.EquipTennisRacket, Quantity: 1},
	))
	require.NoError(t, err, "cache failures must not fail a committed booking")

	_, err = svc.Cancel(ctx, alice, b.ID)
	require.NoError(t, err)

	cache.AssertExpectations(t)
	pub.AssertExpectations(t)
}

func TestFailedCreateSkipsHooks(t *testing.T) {
	cache := &cacheMock{}
	pub := &publisherMock{}
	svc := newService(memory.NewSeeded(), WithCache(cache), WithPublisher(pub))

	_, err := svc.Create(context.Background(), alice, input(memory.CourtOutdoor1, 10, 11,
		domain.EquipmentRequest{EquipmentID: memory.EquipBasketball, Quantity: 50},
	))
	require.Error(t, err)

	cache.AssertNotCalled(t, "InvalidateCourtSchedule", mock.Anything, mock.Anything, mock.Anything)
	pub.AssertNotCalled(t, "PublishCourtChanged", mock.Anything, mock.Anything, mock.Anything)
}

type limiterStub struct {
	allow bool
	retry time.Duration
	err   error
}

func (l limiterStub) Allow(context.Context, string) (bool, int64, time.Duration, error) {
	return l.allow, 0, l.retry, l.err
}

func TestCreateRateLimit(t *testing.T) {
	ctx := context.Background()

	svc := newService(memory.NewSeeded(), WithLimiter(limiterStub{retry: 3 * time.Second}))
	_, err := svc.Create(ctx, alice, input(memory.CourtIndoor1, 10, 11))
	require.ErrorIs(t, err, ErrRateLimited)

	var rl RateLimitedError
	require.True(t, errors.As(err, &rl))
	assert.Equal(t, 3*time.Second, rl.RetryAfter)

	svc = newService(memory.NewSeeded(), WithLimiter(limiterStub{err: errors.New("redis down")}))
	_, err = svc.Create(ctx, alice, input(memory.CourtIndoor1, 10, 11))
	assert.NoError(t, err, "limiter outages fail open")
}

func TestCheckAvailability(t *testing.T) {
	ctx := context.Background()
	svc := newService(memory.NewSeeded())

	_, err := svc.Create(ctx, alice, input(memory.CourtIndoor1, 10, 11))
	require.NoError(t, err)

	start, end := slot(11, 12)
	res, err := svc.CheckAvailability(ctx, availability.Request{CourtID: memory.CourtIndoor1, Start: start, End: end})
	require.NoError(t, err)
	assert.True(t, res.Available)

	start = monday.Add(10*time.Hour + 30*time.Minute)
	res, err = svc.CheckAvailability(ctx, availability.Request{CourtID: memory.CourtIndoor1, Start: start, End: start.Add(time.Hour)})
	require.NoError(t, err)
	assert.False(t, res.Available)
	assert.Equal(t, availability.ReasonCourtBooked, res.Court.Reason)
}
