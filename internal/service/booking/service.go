package booking

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/A7k6h7i0/sports-facility-booking/internal/domain"
	"github.com/A7k6h7i0/sports-facility-booking/internal/metrics"
	"github.com/A7k6h7i0/sports-facility-booking/internal/repository"
	"github.com/A7k6h7i0/sports-facility-booking/internal/service/availability"
	"github.com/A7k6h7i0/sports-facility-booking/internal/service/pricing"
	"github.com/A7k6h7i0/sports-facility-booking/internal/uow"
)

var tracer = otel.Tracer("github.com/A7k6h7i0/sports-facility-booking/internal/service/booking")

// Cache drops cached reads a committed booking made stale.
type Cache interface {
	InvalidateCourtSchedule(ctx context.Context, courtID uuid.UUID, dates ...string) error
	InvalidateEquipment(ctx context.Context, id uuid.UUID) error
}

// Publisher tells other instances that a court schedule changed.
type Publisher interface {
	PublishCourtChanged(ctx context.Context, courtID uuid.UUID, dates ...string) error
}

type Limiter interface {
	Allow(ctx context.Context, suffix string) (allowed bool, current int64, retryAfter time.Duration, err error)
}

type Config struct {
	// Location is the facility timezone used to name the affected schedule days.
	Location *time.Location
	// TxAttempts bounds how many times a create or cancel runs after
	// serialization conflicts.
	TxAttempts int
	TxBackoff  time.Duration
}

type Option func(*Service)

func WithCache(c Cache) Option { return func(s *Service) { s.cache = c } }

func WithPublisher(p Publisher) Option { return func(s *Service) { s.pubsub = p } }

func WithLimiter(l Limiter) Option { return func(s *Service) { s.limiter = l } }

func WithLogger(l *slog.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.log = l
		}
	}
}

// Service is the only writer of bookings and equipment stock. Every create
// and cancel runs as one unit of work.
type Service struct {
	store   repository.Store
	avail   *availability.Service
	prices  *pricing.Service
	uow     *uow.UoW
	cache   Cache
	pubsub  Publisher
	limiter Limiter
	log     *slog.Logger
	cfg     Config
}

func New(
	store repository.Store,
	avail *availability.Service,
	prices *pricing.Service,
	cfg Config,
	opts ...Option,
) *Service {
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}

	if cfg.TxAttempts <= 0 {
		cfg.TxAttempts = 3
	}

	if cfg.TxBackoff <= 0 {
		cfg.TxBackoff = 10 * time.Millisecond
	}

	s := &Service{
		store:  store,
		avail:  avail,
		prices: prices,
		log:    slog.Default(),
		cfg:    cfg,
	}

	for _, o := range opts {
		o(s)
	}

	s.log = s.log.With(slog.String("component", "booking"))
	s.uow = uow.NewUoW(store,
		uow.WithAttempts(cfg.TxAttempts),
		uow.WithBackoff(cfg.TxBackoff),
		uow.WithRetryHook(func(attempt int, err error) {
			metrics.RecordTxRetry()
			s.log.Warn("transaction aborted, retrying",
				slog.Int("attempt", attempt),
				slog.String("error", err.Error()),
			)
		}),
	)

	return s
}

type CreateInput struct {
	CourtID       uuid.UUID
	Start         time.Time
	End           time.Time
	Equipment     []domain.EquipmentRequest
	CoachID       *uuid.UUID
	CustomerName  string
	CustomerEmail string
	CustomerPhone string
}

// Create books a court with optional equipment and coach for the caller.
//
// The availability check, the quote, the booking insert and the stock
// decrements run in one transaction. Either all of them commit or none do.
//
// Returns:
//   - *domain.BookingDetails: the stored booking joined with its resources.
//   - error: booking.ErrRateLimited if the caller exceeded the create limit.
//   - error: booking.ErrResourceUnavailable (as UnavailableError) if any resource is taken.
//   - error: domain.ErrInvalidDuration or domain.ErrInvalidQuantity for malformed input.
//   - error: booking.ErrTransactionAborted if conflicts outlasted every retry.
//   - error: booking.ErrStoreFault on any other storage failure.
func (s *Service) Create(ctx context.Context, p domain.Principal, in CreateInput) (_ *domain.BookingDetails, err error) {
	const op = "service.booking.Create"

	ctx, span := tracer.Start(ctx, op, trace.WithAttributes(
		attribute.String("court.id", in.CourtID.String()),
		attribute.String("user.id", p.ID),
	))
	defer func() { finish(span, err) }()

	if p.ID == "" {
		return nil, fmt.Errorf("%s:%w", op, ErrUnauthorized)
	}

	if err := s.allow(ctx, p.ID); err != nil {
		metrics.RecordBookingOutcome("create", metrics.OutcomeRejected)
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	iv, err := domain.NewInterval(in.Start, in.End)
	if err != nil {
		metrics.RecordBookingOutcome("create", metrics.OutcomeRejected)
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	lines, err := domain.MergeEquipment(in.Equipment)
	if err != nil {
		metrics.RecordBookingOutcome("create", metrics.OutcomeRejected)
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	var created domain.Booking

	err = s.uow.Do(ctx, func(
		ctx context.Context,
		tx repository.Tx,
		after func(uow.AfterCommit),
	) error {
		res, err := s.avail.With(tx).Check(ctx, availability.Request{
			CourtID:   in.CourtID,
			Start:     iv.Start,
			End:       iv.End,
			Equipment: lines,
			CoachID:   in.CoachID,
		})
		if err != nil {
			return fmt.Errorf("%s:%w", op, err)
		}

		if !res.Available {
			return fmt.Errorf("%s:%w", op, UnavailableError{Result: res})
		}

		quote, err := s.prices.With(tx).Quote(ctx, pricing.Request{
			CourtID:   in.CourtID,
			Start:     iv.Start,
			End:       iv.End,
			Equipment: lines,
			CoachID:   in.CoachID,
		})
		if err != nil {
			return fmt.Errorf("%s:%w", op, err)
		}

		b := domain.Booking{
			ID:            uuid.New(),
			UserID:        p.ID,
			CourtID:       in.CourtID,
			StartTime:     iv.Start,
			EndTime:       iv.End,
			Equipment:     snapshotEquipment(quote),
			Pricing:       quote.Pricing,
			Status:        domain.BookingConfirmed,
			CustomerName:  in.CustomerName,
			CustomerEmail: in.CustomerEmail,
			CustomerPhone: in.CustomerPhone,
		}
		if quote.CoachDetails != nil {
			coachID := quote.CoachDetails.CoachID
			b.Coach = domain.BookingCoach{CoachID: &coachID, PricePerHour: quote.CoachDetails.PricePerHour}
		}

		if err := tx.InsertBooking(ctx, &b); err != nil {
			return fmt.Errorf("%s:%w", op, err)
		}

		for _, line := range b.Equipment {
			if err := tx.ReserveEquipment(ctx, line.EquipmentID, line.Quantity); err != nil {
				if errors.Is(err, repository.ErrInsufficientStock) {
					return fmt.Errorf("%s:%w: %w", op, ErrResourceUnavailable, err)
				}
				return fmt.Errorf("%s:%w", op, err)
			}
		}

		created = b

		after(func(ctx context.Context) {
			s.changed(ctx, &b)
			s.log.Info("booking created",
				slog.String("booking_id", b.ID.String()),
				slog.String("court_id", b.CourtID.String()),
				slog.String("user_id", b.UserID),
				slog.Float64("total_price", b.Pricing.TotalPrice),
			)
		})

		return nil
	})
	if err != nil {
		outcome, err := s.classify(op, err)
		metrics.RecordBookingOutcome("create", outcome)
		return nil, err
	}

	metrics.RecordBookingOutcome("create", metrics.OutcomeSuccess)

	details, err := s.expand(ctx, &created)
	if err != nil {
		return nil, fmt.Errorf("%s:%w: %w", op, ErrStoreFault, err)
	}

	return details, nil
}

// Cancel cancels one of the caller's bookings and returns its equipment to
// stock in the same transaction.
//
// Returns:
//   - error: booking.ErrBookingNotFound if the booking does not exist.
//   - error: booking.ErrUnauthorized if the caller does not own it.
//   - error: booking.ErrAlreadyCancelled if it is already cancelled.
//   - error: booking.ErrNotCancellable if it is completed.
//   - error: booking.ErrTransactionAborted or booking.ErrStoreFault on storage failures.
func (s *Service) Cancel(ctx context.Context, p domain.Principal, id uuid.UUID) (_ *domain.BookingDetails, err error) {
	const op = "service.booking.Cancel"

	ctx, span := tracer.Start(ctx, op, trace.WithAttributes(
		attribute.String("booking.id", id.String()),
		attribute.String("user.id", p.ID),
	))
	defer func() { finish(span, err) }()

	var cancelled domain.Booking

	err = s.uow.Do(ctx, func(
		ctx context.Context,
		tx repository.Tx,
		after func(uow.AfterCommit),
	) error {
		b, err := tx.GetBooking(ctx, id)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return fmt.Errorf("%s:%w", op, ErrBookingNotFound)
			}
			return fmt.Errorf("%s:%w", op, err)
		}

		if b.UserID != p.ID {
			return fmt.Errorf("%s:%w", op, ErrUnauthorized)
		}

		switch b.Status {
		case domain.BookingCancelled:
			return fmt.Errorf("%s:%w", op, ErrAlreadyCancelled)
		case domain.BookingCompleted:
			return fmt.Errorf("%s:%w", op, ErrNotCancellable)
		}

		if err := tx.SetBookingStatus(ctx, b.ID, domain.BookingCancelled); err != nil {
			return fmt.Errorf("%s:%w", op, err)
		}

		for _, line := range b.Equipment {
			if err := tx.ReleaseEquipment(ctx, line.EquipmentID, line.Quantity); err != nil {
				return fmt.Errorf("%s:%w", op, err)
			}
		}

		updated, err := tx.GetBooking(ctx, b.ID)
		if err != nil {
			return fmt.Errorf("%s:%w", op, err)
		}
		cancelled = *updated

		after(func(ctx context.Context) {
			s.changed(ctx, updated)
			s.log.Info("booking cancelled",
				slog.String("booking_id", updated.ID.String()),
				slog.String("user_id", updated.UserID),
			)
		})

		return nil
	})
	if err != nil {
		outcome, err := s.classify(op, err)
		metrics.RecordBookingOutcome("cancel", outcome)
		return nil, err
	}

	metrics.RecordBookingOutcome("cancel", metrics.OutcomeSuccess)

	details, err := s.expand(ctx, &cancelled)
	if err != nil {
		return nil, fmt.Errorf("%s:%w: %w", op, ErrStoreFault, err)
	}

	return details, nil
}

// Get returns a booking to its owner or to an admin.
func (s *Service) Get(ctx context.Context, p domain.Principal, id uuid.UUID) (*domain.BookingDetails, error) {
	const op = "service.booking.Get"

	b, err := s.store.GetBooking(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%s:%w", op, ErrBookingNotFound)
		}
		return nil, fmt.Errorf("%s:%w: %w", op, ErrStoreFault, err)
	}

	if b.UserID != p.ID && !p.IsAdmin() {
		return nil, fmt.Errorf("%s:%w", op, ErrUnauthorized)
	}

	details, err := s.expand(ctx, b)
	if err != nil {
		return nil, fmt.Errorf("%s:%w: %w", op, ErrStoreFault, err)
	}

	return details, nil
}

// ListMine returns the caller's bookings, newest first.
func (s *Service) ListMine(ctx context.Context, p domain.Principal) ([]domain.BookingDetails, error) {
	const op = "service.booking.ListMine"

	if p.ID == "" {
		return nil, fmt.Errorf("%s:%w", op, ErrUnauthorized)
	}

	list, err := s.store.ListUserBookings(ctx, p.ID)
	if err != nil {
		return nil, fmt.Errorf("%s:%w: %w", op, ErrStoreFault, err)
	}

	out, err := s.expandAll(ctx, list)
	if err != nil {
		return nil, fmt.Errorf("%s:%w: %w", op, ErrStoreFault, err)
	}

	return out, nil
}

// ListAll pages through every booking, newest first. Admins only. A
// non-positive limit returns everything from offset on.
func (s *Service) ListAll(ctx context.Context, p domain.Principal, limit, offset int) ([]domain.BookingDetails, error) {
	const op = "service.booking.ListAll"

	if !p.IsAdmin() {
		return nil, fmt.Errorf("%s:%w", op, ErrUnauthorized)
	}

	list, err := s.store.ListBookings(ctx, limit, max(offset, 0))
	if err != nil {
		return nil, fmt.Errorf("%s:%w: %w", op, ErrStoreFault, err)
	}

	out, err := s.expandAll(ctx, list)
	if err != nil {
		return nil, fmt.Errorf("%s:%w: %w", op, ErrStoreFault, err)
	}

	return out, nil
}

// CheckAvailability runs the combined check outside any transaction. The
// answer is advisory; Create checks again before it writes.
func (s *Service) CheckAvailability(ctx context.Context, req availability.Request) (_ *availability.Result, err error) {
	const op = "service.booking.CheckAvailability"

	ctx, span := tracer.Start(ctx, op)
	defer func() { finish(span, err) }()

	res, err := s.avail.Check(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	return res, nil
}

// Estimate quotes a request exactly as Create would price it.
func (s *Service) Estimate(ctx context.Context, req pricing.Request) (_ *pricing.Quote, err error) {
	const op = "service.booking.Estimate"

	ctx, span := tracer.Start(ctx, op)
	defer func() { finish(span, err) }()

	req.Equipment, err = domain.MergeEquipment(req.Equipment)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	q, err := s.prices.Quote(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	return q, nil
}

// allow fails open when the limiter itself is down.
func (s *Service) allow(ctx context.Context, userID string) error {
	if s.limiter == nil {
		return nil
	}

	ok, _, retry, err := s.limiter.Allow(ctx, userID)
	if err != nil {
		s.log.Warn("rate limiter unavailable", slog.String("error", err.Error()))
		return nil
	}

	if !ok {
		return RateLimitedError{RetryAfter: retry}
	}

	return nil
}

// classify maps a failed unit of work onto the service error taxonomy and
// the metrics outcome label. The underlying cause stays reachable.
func (s *Service) classify(op string, err error) (string, error) {
	switch {
	case errors.Is(err, ErrResourceUnavailable):
		return metrics.OutcomeUnavailable, err
	case errors.Is(err, ErrBookingNotFound),
		errors.Is(err, ErrUnauthorized),
		errors.Is(err, ErrAlreadyCancelled),
		errors.Is(err, ErrNotCancellable),
		errors.Is(err, domain.ErrInvalidDuration),
		errors.Is(err, domain.ErrInvalidQuantity),
		errors.Is(err, pricing.ErrCourtNotFound):
		return metrics.OutcomeRejected, err
	case errors.Is(err, repository.ErrTxAborted):
		s.log.Warn("transaction aborted", slog.String("op", op), slog.String("error", err.Error()))
		return metrics.OutcomeAborted, fmt.Errorf("%s:%w: %w", op, ErrTransactionAborted, err)
	default:
		s.log.Error("booking store failure", slog.String("op", op), slog.String("error", err.Error()))
		return metrics.OutcomeError, fmt.Errorf("%s:%w: %w", op, ErrStoreFault, err)
	}
}

// changed runs after commit. Failures only leave stale cache entries behind
// until their TTL, so they are logged and counted.
func (s *Service) changed(ctx context.Context, b *domain.Booking) {
	dates := domain.DatesSpanned(b.Interval(), s.cfg.Location)

	if s.cache != nil {
		if err := s.cache.InvalidateCourtSchedule(ctx, b.CourtID, dates...); err != nil {
			s.afterCommitFailed("invalidate court schedule", err)
		}
		for _, line := range b.Equipment {
			if err := s.cache.InvalidateEquipment(ctx, line.EquipmentID); err != nil {
				s.afterCommitFailed("invalidate equipment", err)
			}
		}
	}

	if s.pubsub != nil {
		if err := s.pubsub.PublishCourtChanged(ctx, b.CourtID, dates...); err != nil {
			s.afterCommitFailed("publish court change", err)
		}
	}
}

func (s *Service) afterCommitFailed(what string, err error) {
	metrics.RecordCacheInvalidationError()
	s.log.Warn(what+" failed", slog.String("error", err.Error()))
}

func (s *Service) expand(ctx context.Context, b *domain.Booking) (*domain.BookingDetails, error) {
	out, err := s.expandAll(ctx, []domain.Booking{*b})
	if err != nil {
		return nil, err
	}
	return &out[0], nil
}

// expandAll joins bookings with their court, equipment and coach. Resources
// deleted since booking are left out. Each resource is read once per call.
func (s *Service) expandAll(ctx context.Context, list []domain.Booking) ([]domain.BookingDetails, error) {
	courts := map[uuid.UUID]*domain.Court{}
	items := map[uuid.UUID]*domain.Equipment{}
	coaches := map[uuid.UUID]*domain.Coach{}

	out := make([]domain.BookingDetails, 0, len(list))

	for _, b := range list {
		d := domain.BookingDetails{Booking: b, EquipmentItems: []domain.Equipment{}}

		court, err := lookup(ctx, courts, b.CourtID, s.store.GetCourt)
		if err != nil {
			return nil, err
		}
		d.Court = court

		for _, line := range b.Equipment {
			item, err := lookup(ctx, items, line.EquipmentID, s.store.GetEquipment)
			if err != nil {
				return nil, err
			}
			if item != nil {
				d.EquipmentItems = append(d.EquipmentItems, *item)
			}
		}

		if b.Coach.CoachID != nil {
			coach, err := lookup(ctx, coaches, *b.Coach.CoachID, s.store.GetCoach)
			if err != nil {
				return nil, err
			}
			d.CoachInfo = coach
		}

		out = append(out, d)
	}

	return out, nil
}

func lookup[T any](
	ctx context.Context,
	seen map[uuid.UUID]*T,
	id uuid.UUID,
	get func(context.Context, uuid.UUID) (*T, error),
) (*T, error) {
	if v, ok := seen[id]; ok {
		return v, nil
	}

	v, err := get(ctx, id)
	if err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			return nil, err
		}
		v = nil
	}

	seen[id] = v

	return v, nil
}

// snapshotEquipment freezes per-hour prices from the quote so later price
// list changes leave the booking untouched.
func snapshotEquipment(q *pricing.Quote) []domain.BookingEquipment {
	out := make([]domain.BookingEquipment, 0, len(q.EquipmentDetails))
	for _, e := range q.EquipmentDetails {
		out = append(out, domain.BookingEquipment{
			EquipmentID:  e.EquipmentID,
			Quantity:     e.Quantity,
			PricePerHour: e.PricePerHour,
		})
	}
	return out
}

func finish(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
