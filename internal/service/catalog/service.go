package catalog

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"

	"github.com/A7k6h7i0/sports-facility-booking/internal/domain"
	"github.com/A7k6h7i0/sports-facility-booking/internal/repository"
	redisrepo "github.com/A7k6h7i0/sports-facility-booking/internal/repository/redis"
)

type Config struct {
	ListTTL     time.Duration
	ItemTTL     time.Duration
	ScheduleTTL time.Duration
	// Location is the facility timezone schedule dates are read in.
	Location *time.Location
}

// Schedule lists the occupied slots of one court on one facility-local date.
type Schedule struct {
	CourtID uuid.UUID         `json:"court_id"`
	Date    string            `json:"date"`
	Busy    []domain.BusySlot `json:"busy"`
}

// Service serves reference data and court schedules through the cache.
type Service struct {
	store repository.Store
	cache *redisrepo.Cache
	cfg   Config
}

func New(store repository.Store, cache *redisrepo.Cache, cfg Config) *Service {
	if cfg.ListTTL <= 0 {
		cfg.ListTTL = 60 * time.Second
	}

	if cfg.ItemTTL <= 0 {
		cfg.ItemTTL = 60 * time.Second
	}

	if cfg.ScheduleTTL <= 0 {
		cfg.ScheduleTTL = 15 * time.Second
	}

	if cfg.Location == nil {
		cfg.Location = time.UTC
	}

	return &Service{
		store: store,
		cache: cache,
		cfg:   cfg,
	}
}

func (s *Service) ListCourts(ctx context.Context, activeOnly bool) ([]domain.Court, error) {
	const op = "service.catalog.ListCourts"

	courts, err := redisrepo.GetOrSetJSON(ctx, s.cache, redisrepo.KeyCourtList(activeOnly), s.cfg.ListTTL,
		func(ctx context.Context) ([]domain.Court, error) {
			return s.store.ListCourts(ctx, activeOnly)
		},
	)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	return courts, nil
}

// GetCourt retrieves a court by its ID.
//
// Returns:
//   - error: catalog.ErrCourtNotFound if the court does not exist.
func (s *Service) GetCourt(ctx context.Context, id uuid.UUID) (*domain.Court, error) {
	const op = "service.catalog.GetCourt"

	court, err := cachedItem(ctx, s, redisrepo.KeyCourt(id), id, s.store.GetCourt, ErrCourtNotFound)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	return court, nil
}

func (s *Service) ListEquipment(ctx context.Context, activeOnly bool) ([]domain.Equipment, error) {
	const op = "service.catalog.ListEquipment"

	items, err := redisrepo.GetOrSetJSON(ctx, s.cache, redisrepo.KeyEquipmentList(activeOnly), s.cfg.ListTTL,
		func(ctx context.Context) ([]domain.Equipment, error) {
			return s.store.ListEquipment(ctx, activeOnly)
		},
	)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	return items, nil
}

// GetEquipment retrieves an equipment item, including its current stock.
//
// Returns:
//   - error: catalog.ErrEquipmentNotFound if the item does not exist.
func (s *Service) GetEquipment(ctx context.Context, id uuid.UUID) (*domain.Equipment, error) {
	const op = "service.catalog.GetEquipment"

	item, err := cachedItem(ctx, s, redisrepo.KeyEquipment(id), id, s.store.GetEquipment, ErrEquipmentNotFound)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	return item, nil
}

func (s *Service) ListCoaches(ctx context.Context, activeOnly bool) ([]domain.Coach, error) {
	const op = "service.catalog.ListCoaches"

	coaches, err := redisrepo.GetOrSetJSON(ctx, s.cache, redisrepo.KeyCoachList(activeOnly), s.cfg.ListTTL,
		func(ctx context.Context) ([]domain.Coach, error) {
			return s.store.ListCoaches(ctx, activeOnly)
		},
	)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	return coaches, nil
}

// GetCoach retrieves a coach with its weekly availability windows.
//
// Returns:
//   - error: catalog.ErrCoachNotFound if the coach does not exist.
func (s *Service) GetCoach(ctx context.Context, id uuid.UUID) (*domain.Coach, error) {
	const op = "service.catalog.GetCoach"

	coach, err := cachedItem(ctx, s, redisrepo.KeyCoach(id), id, s.store.GetCoach, ErrCoachNotFound)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	return coach, nil
}

// CourtSchedule returns the occupied slots of a court on one facility-local
// date, ordered by start time.
//
// Parameters:
//   - ctx: request-scoped context.
//   - courtID: ID of the court.
//   - date: calendar date in the facility timezone, "YYYY-MM-DD".
//
// Returns:
//   - error: catalog.ErrInvalidDate if date does not parse.
//   - error: catalog.ErrCourtNotFound if the court does not exist.
func (s *Service) CourtSchedule(ctx context.Context, courtID uuid.UUID, date string) (*Schedule, error) {
	const op = "service.catalog.CourtSchedule"

	day, err := domain.DayInterval(date, s.cfg.Location)
	if err != nil {
		return nil, fmt.Errorf("%s:%w: %w", op, ErrInvalidDate, err)
	}

	if _, err := s.GetCourt(ctx, courtID); err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	schedule, err := redisrepo.GetOrSetJSON(ctx, s.cache, redisrepo.KeyCourtSchedule(courtID, date), s.cfg.ScheduleTTL,
		func(ctx context.Context) (Schedule, error) {
			busy, err := s.store.OverlappingBookings(ctx, repository.OverlapQuery{
				Resource: repository.ResourceRef{Kind: repository.ResourceCourt, ID: courtID},
				Start:    day.Start,
				End:      day.End,
			})
			if err != nil {
				return Schedule{}, err
			}

			slots := make([]domain.BusySlot, 0, len(busy))
			for _, b := range busy {
				slots = append(slots, domain.BusySlot{
					BookingID: b.ID,
					StartTime: b.StartTime,
					EndTime:   b.EndTime,
					Status:    b.Status,
				})
			}
			slices.SortFunc(slots, func(a, b domain.BusySlot) int {
				return cmp.Or(a.StartTime.Compare(b.StartTime), cmp.Compare(a.BookingID.String(), b.BookingID.String()))
			})

			return Schedule{CourtID: courtID, Date: date, Busy: slots}, nil
		},
	)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	return &schedule, nil
}

// InvalidateSchedule drops cached schedules named in a court change
// notification.
func (s *Service) InvalidateSchedule(ctx context.Context, courtID uuid.UUID, dates []string) error {
	const op = "service.catalog.InvalidateSchedule"

	if err := s.cache.InvalidateCourtSchedule(ctx, courtID, dates...); err != nil {
		return fmt.Errorf("%s:%w", op, err)
	}

	return nil
}

func cachedItem[T any](
	ctx context.Context,
	s *Service,
	key string,
	id uuid.UUID,
	get func(context.Context, uuid.UUID) (*T, error),
	notFound error,
) (*T, error) {
	v, err := redisrepo.GetOrSetJSON(ctx, s.cache, key, s.cfg.ItemTTL,
		func(ctx context.Context) (T, error) {
			var zero T

			item, err := get(ctx, id)
			if err != nil {
				if errors.Is(err, repository.ErrNotFound) {
					return zero, notFound
				}
				return zero, err
			}

			return *item, nil
		},
	)
	if err != nil {
		return nil, err
	}

	return &v, nil
}
