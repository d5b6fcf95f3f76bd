package availability

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/A7k6h7i0/sports-facility-booking/internal/domain"
	"github.com/A7k6h7i0/sports-facility-booking/internal/repository"
)

const (
	ReasonCourtNotFound    = "Court not found"
	ReasonCourtInactive    = "Court is currently inactive"
	ReasonCourtBooked      = "Court already booked for this time slot"
	ReasonEquipmentSummary = "Some equipment items are not available"
	ReasonCoachNotFound    = "Coach not found"
	ReasonCoachInactive    = "Coach is currently inactive"
	ReasonCoachBooked      = "Coach is already booked for this time slot"
)

// Request describes the resources to check for one interval. ExcludeID drops
// one existing booking from every overlap lookup.
type Request struct {
	CourtID   uuid.UUID
	Start     time.Time
	End       time.Time
	Equipment []domain.EquipmentRequest
	CoachID   *uuid.UUID
	ExcludeID uuid.UUID
}

type CourtResult struct {
	Available bool          `json:"available"`
	Reason    string        `json:"reason,omitempty"`
	Court     *domain.Court `json:"court,omitempty"`
}

// Shortfall explains why one equipment line cannot be served.
type Shortfall struct {
	EquipmentID uuid.UUID `json:"id"`
	Name        string    `json:"name,omitempty"`
	Requested   int       `json:"requested,omitempty"`
	Available   int       `json:"available"`
	Shortfall   int       `json:"shortfall,omitempty"`
	Reason      string    `json:"reason"`
}

type EquipmentResult struct {
	Available   bool        `json:"available"`
	Reason      string      `json:"reason,omitempty"`
	Unavailable []Shortfall `json:"unavailable_items,omitempty"`
}

type CoachResult struct {
	Available bool          `json:"available"`
	Reason    string        `json:"reason,omitempty"`
	Coach     *domain.Coach `json:"coach,omitempty"`
}

// Result is the combined check. Sub-results are always filled in, even when
// an earlier one failed.
type Result struct {
	Available bool            `json:"available"`
	Court     CourtResult     `json:"court"`
	Equipment EquipmentResult `json:"equipment"`
	Coach     CoachResult     `json:"coach"`
	Errors    []string        `json:"errors"`
}

// Reason joins every failure reason into one message.
func (r *Result) Reason() string {
	return strings.Join(r.Errors, "; ")
}

// Service decides whether resources are free. It only reads.
type Service struct {
	store repository.Reader
	loc   *time.Location
}

// NewService builds the engine. Coach windows are interpreted in loc; nil
// means UTC.
func NewService(store repository.Reader, loc *time.Location) *Service {
	if loc == nil {
		loc = time.UTC
	}
	return &Service{store: store, loc: loc}
}

// With returns a copy reading through r, usually a transaction.
func (s *Service) With(r repository.Reader) *Service {
	cp := *s
	cp.store = r
	return &cp
}

// Check runs the court, equipment and coach checks in that order and
// aggregates their reasons. Store failures are returned as errors, never as
// an unavailable result.
//
// Returns:
//   - error: domain.ErrInvalidDuration if End is not after Start.
//   - error: domain.ErrInvalidQuantity if an equipment line asks for less than one unit.
func (s *Service) Check(ctx context.Context, req Request) (*Result, error) {
	const op = "service.availability.Check"

	iv, err := domain.NewInterval(req.Start, req.End)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	lines, err := domain.MergeEquipment(req.Equipment)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	res := &Result{Available: true, Errors: []string{}}

	res.Court, err = s.CheckCourt(ctx, req.CourtID, iv, req.ExcludeID)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}
	if !res.Court.Available {
		res.Available = false
		res.Errors = append(res.Errors, res.Court.Reason)
	}

	res.Equipment, err = s.CheckEquipment(ctx, lines, iv, req.ExcludeID)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}
	if !res.Equipment.Available {
		res.Available = false
		for _, sf := range res.Equipment.Unavailable {
			res.Errors = append(res.Errors, sf.Reason)
		}
	}

	res.Coach, err = s.CheckCoach(ctx, req.CoachID, iv, req.ExcludeID)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}
	if !res.Coach.Available {
		res.Available = false
		res.Errors = append(res.Errors, res.Coach.Reason)
	}

	return res, nil
}

func (s *Service) overlapping(
	ctx context.Context,
	kind repository.ResourceKind,
	id uuid.UUID,
	iv domain.Interval,
	exclude uuid.UUID,
) ([]domain.Booking, error) {
	return s.store.OverlappingBookings(ctx, repository.OverlapQuery{
		Resource:  repository.ResourceRef{Kind: kind, ID: id},
		Start:     iv.Start,
		End:       iv.End,
		ExcludeID: exclude,
	})
}

// CheckCourt fails closed when the court is missing, inactive or already
// booked for an overlapping interval.
func (s *Service) CheckCourt(ctx context.Context, courtID uuid.UUID, iv domain.Interval, exclude uuid.UUID) (CourtResult, error) {
	const op = "service.availability.CheckCourt"

	court, err := s.store.GetCourt(ctx, courtID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return CourtResult{Reason: ReasonCourtNotFound}, nil
		}
		return CourtResult{}, fmt.Errorf("%s:%w", op, err)
	}

	if !court.IsActive {
		return CourtResult{Reason: ReasonCourtInactive}, nil
	}

	busy, err := s.overlapping(ctx, repository.ResourceCourt, courtID, iv, exclude)
	if err != nil {
		return CourtResult{}, fmt.Errorf("%s:%w", op, err)
	}

	if len(busy) > 0 {
		return CourtResult{Reason: ReasonCourtBooked}, nil
	}

	return CourtResult{Available: true, Court: court}, nil
}

// CheckEquipment compares each line against the item's available stock minus
// the units held by overlapping bookings.
func (s *Service) CheckEquipment(
	ctx context.Context,
	lines []domain.EquipmentRequest,
	iv domain.Interval,
	exclude uuid.UUID,
) (EquipmentResult, error) {
	const op = "service.availability.CheckEquipment"

	var short []Shortfall

	for _, line := range lines {
		item, err := s.store.GetEquipment(ctx, line.EquipmentID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				short = append(short, Shortfall{
					EquipmentID: line.EquipmentID,
					Requested:   line.Quantity,
					Shortfall:   line.Quantity,
					Reason:      fmt.Sprintf("Equipment %s not found", line.EquipmentID),
				})
				continue
			}
			return EquipmentResult{}, fmt.Errorf("%s:%w", op, err)
		}

		if !item.IsActive {
			short = append(short, Shortfall{
				EquipmentID: item.ID,
				Name:        item.Name,
				Requested:   line.Quantity,
				Shortfall:   line.Quantity,
				Reason:      fmt.Sprintf("%s is currently inactive", item.Name),
			})
			continue
		}

		busy, err := s.overlapping(ctx, repository.ResourceEquipment, item.ID, iv, exclude)
		if err != nil {
			return EquipmentResult{}, fmt.Errorf("%s:%w", op, err)
		}

		booked := 0
		for i := range busy {
			booked += busy[i].QuantityOf(item.ID)
		}

		free := max(item.AvailableQuantity-booked, 0)
		if free < line.Quantity {
			short = append(short, Shortfall{
				EquipmentID: item.ID,
				Name:        item.Name,
				Requested:   line.Quantity,
				Available:   free,
				Shortfall:   line.Quantity - free,
				Reason:      fmt.Sprintf("%s: only %d available", item.Name, free),
			})
		}
	}

	if len(short) > 0 {
		return EquipmentResult{Reason: ReasonEquipmentSummary, Unavailable: short}, nil
	}

	return EquipmentResult{Available: true}, nil
}

// CheckCoach requires the interval to fit inside one of the coach's windows
// for the weekday of its start, both in the facility timezone, and no
// overlapping booking for the coach. A nil coach id is trivially available.
func (s *Service) CheckCoach(ctx context.Context, coachID *uuid.UUID, iv domain.Interval, exclude uuid.UUID) (CoachResult, error) {
	const op = "service.availability.CheckCoach"

	if coachID == nil {
		return CoachResult{Available: true}, nil
	}

	coach, err := s.store.GetCoach(ctx, *coachID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return CoachResult{Reason: ReasonCoachNotFound}, nil
		}
		return CoachResult{}, fmt.Errorf("%s:%w", op, err)
	}

	if !coach.IsActive {
		return CoachResult{Reason: ReasonCoachInactive}, nil
	}

	if reason := s.outsideWindows(coach, iv); reason != "" {
		return CoachResult{Reason: reason}, nil
	}

	busy, err := s.overlapping(ctx, repository.ResourceCoach, coach.ID, iv, exclude)
	if err != nil {
		return CoachResult{}, fmt.Errorf("%s:%w", op, err)
	}

	if len(busy) > 0 {
		return CoachResult{Reason: ReasonCoachBooked}, nil
	}

	return CoachResult{Available: true, Coach: coach}, nil
}

// outsideWindows returns an empty string when iv fits a window, otherwise
// the reason naming the day or the windows on offer.
func (s *Service) outsideWindows(coach *domain.Coach, iv domain.Interval) string {
	start := iv.Start.In(s.loc)
	day := int(start.Weekday())

	startMin := domain.MinuteOfDay(start)
	endMin := int(iv.End.In(s.loc).Sub(domain.DayStart(start)) / time.Minute)

	var offered []string
	for _, w := range coach.Availability {
		if w.DayOfWeek != day {
			continue
		}

		ws, err := domain.ParseClock(w.StartTime)
		if err != nil {
			continue
		}
		we, err := domain.ParseClock(w.EndTime)
		if err != nil {
			continue
		}

		if startMin >= ws && endMin <= we {
			return ""
		}

		offered = append(offered, fmt.Sprintf("%s to %s", w.StartTime, w.EndTime))
	}

	if len(offered) == 0 {
		return fmt.Sprintf("Coach is not available on %s", domain.WeekdayName(day))
	}

	return fmt.Sprintf("Coach is only available from %s on %s", strings.Join(offered, ", "), domain.WeekdayName(day))
}
