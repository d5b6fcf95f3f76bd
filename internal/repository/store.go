package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/A7k6h7i0/sports-facility-booking/internal/domain"
)

type ResourceKind string

const (
	ResourceCourt     ResourceKind = "court"
	ResourceEquipment ResourceKind = "equipment"
	ResourceCoach     ResourceKind = "coach"
)

type ResourceRef struct {
	Kind ResourceKind
	ID   uuid.UUID
}

// OverlapQuery selects bookings in an occupying status that reference
// Resource and overlap [Start, End). ExcludeID, when set, drops one booking.
type OverlapQuery struct {
	Resource  ResourceRef
	Start     time.Time
	End       time.Time
	ExcludeID uuid.UUID
}

func (q OverlapQuery) Validate() error {
	switch q.Resource.Kind {
	case ResourceCourt, ResourceEquipment, ResourceCoach:
	default:
		return fmt.Errorf("%w: unknown resource kind %q", ErrInvalidQuery, q.Resource.Kind)
	}

	if q.Resource.ID == uuid.Nil {
		return fmt.Errorf("%w: missing resource id", ErrInvalidQuery)
	}

	if !q.End.After(q.Start) {
		return fmt.Errorf("%w: empty interval", ErrInvalidQuery)
	}

	return nil
}

// Matches applies the query to a booking held in memory. Stores that can push
// the predicate down must produce the same result.
func (q OverlapQuery) Matches(b *domain.Booking) bool {
	if !b.Status.Occupies() {
		return false
	}

	if q.ExcludeID != uuid.Nil && b.ID == q.ExcludeID {
		return false
	}

	if !b.Interval().Overlaps(domain.Interval{Start: q.Start, End: q.End}) {
		return false
	}

	switch q.Resource.Kind {
	case ResourceCourt:
		return b.CourtID == q.Resource.ID
	case ResourceEquipment:
		return b.QuantityOf(q.Resource.ID) > 0
	case ResourceCoach:
		return b.UsesCoach(q.Resource.ID)
	}

	return false
}

// Reader is the read side used by the availability and pricing engines.
type Reader interface {
	GetCourt(ctx context.Context, id uuid.UUID) (*domain.Court, error)
	GetEquipment(ctx context.Context, id uuid.UUID) (*domain.Equipment, error)
	GetCoach(ctx context.Context, id uuid.UUID) (*domain.Coach, error)
	GetBooking(ctx context.Context, id uuid.UUID) (*domain.Booking, error)
	ActivePricingRules(ctx context.Context) ([]domain.PricingRule, error)
	OverlappingBookings(ctx context.Context, q OverlapQuery) ([]domain.Booking, error)
}

// Writer holds the only mutations of booking and inventory state.
type Writer interface {
	InsertBooking(ctx context.Context, b *domain.Booking) error
	SetBookingStatus(ctx context.Context, id uuid.UUID, status domain.BookingStatus) error
	// ReserveEquipment decrements available stock or fails with ErrInsufficientStock.
	ReserveEquipment(ctx context.Context, id uuid.UUID, qty int) error
	// ReleaseEquipment increments available stock, never above total stock.
	ReleaseEquipment(ctx context.Context, id uuid.UUID, qty int) error
}

// Tx is everything a unit of work can touch.
type Tx interface {
	Reader
	Writer
	Catalog
}

// Catalog covers reference data reads and admin mutations.
type Catalog interface {
	ListCourts(ctx context.Context, activeOnly bool) ([]domain.Court, error)
	ListEquipment(ctx context.Context, activeOnly bool) ([]domain.Equipment, error)
	ListCoaches(ctx context.Context, activeOnly bool) ([]domain.Coach, error)

	ListPricingRules(ctx context.Context) ([]domain.PricingRule, error)
	GetPricingRule(ctx context.Context, id uuid.UUID) (*domain.PricingRule, error)
	CreatePricingRule(ctx context.Context, r *domain.PricingRule) error
	UpdatePricingRule(ctx context.Context, r *domain.PricingRule) error
	DeletePricingRule(ctx context.Context, id uuid.UUID) error

	ToggleCourt(ctx context.Context, id uuid.UUID) (*domain.Court, error)
	ToggleEquipment(ctx context.Context, id uuid.UUID) (*domain.Equipment, error)
	ToggleCoach(ctx context.Context, id uuid.UUID) (*domain.Coach, error)

	ListUserBookings(ctx context.Context, userID string) ([]domain.Booking, error)
	ListBookings(ctx context.Context, limit, offset int) ([]domain.Booking, error)
}

// Store is the process-wide storage handle.
type Store interface {
	Tx

	// Atomic runs fn in one transaction. A nil return commits, anything else
	// rolls every write back.
	Atomic(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
	Close()
}
