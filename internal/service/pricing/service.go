package pricing

import (
	"context"
	"errors"
	"fmt"
	"math"
	"slices"
	"time"

	"github.com/google/uuid"

	"github.com/A7k6h7i0/sports-facility-booking/internal/domain"
	"github.com/A7k6h7i0/sports-facility-booking/internal/repository"
)

const DefaultTaxRate = 0.18

type Config struct {
	// TaxRate applies to the subtotal. Nil means DefaultTaxRate.
	TaxRate *float64
	// Location is the facility timezone rule facets are evaluated in.
	Location *time.Location
}

type Request struct {
	CourtID   uuid.UUID
	Start     time.Time
	End       time.Time
	Equipment []domain.EquipmentRequest
	CoachID   *uuid.UUID
}

type EquipmentLine struct {
	EquipmentID  uuid.UUID `json:"equipment_id"`
	Name         string    `json:"name"`
	Quantity     int       `json:"quantity"`
	PricePerHour float64   `json:"price_per_hour"`
	TotalPrice   float64   `json:"total_price"`
}

type CoachLine struct {
	CoachID      uuid.UUID `json:"coach_id"`
	Name         string    `json:"name"`
	PricePerHour float64   `json:"price_per_hour"`
	TotalPrice   float64   `json:"total_price"`
}

// Quote is the itemized price. The embedded Pricing is what a booking stores.
type Quote struct {
	domain.Pricing
	DurationHours    float64         `json:"duration_hours"`
	EquipmentDetails []EquipmentLine `json:"equipment_details"`
	CoachDetails     *CoachLine      `json:"coach_details"`
}

// Service computes prices. It only reads, so equal inputs over equal state
// give equal quotes.
type Service struct {
	store   repository.Reader
	cfg     Config
	taxRate float64
}

func New(store repository.Reader, cfg Config) *Service {
	taxRate := DefaultTaxRate
	if cfg.TaxRate != nil {
		taxRate = *cfg.TaxRate
	}

	if cfg.Location == nil {
		cfg.Location = time.UTC
	}

	return &Service{store: store, cfg: cfg, taxRate: taxRate}
}

// With returns a copy reading through r, usually a transaction.
func (s *Service) With(r repository.Reader) *Service {
	cp := *s
	cp.store = r
	return &cp
}

func (s *Service) TaxRate() float64 { return s.taxRate }

// Quote prices a request. Active rules matching the court type and the
// start instant are multiplied into the court multiplier. Equipment and
// coaches that no longer exist are left out.
//
// Returns:
//   - error: domain.ErrInvalidDuration if End is not after Start.
//   - error: pricing.ErrCourtNotFound if the court does not exist.
func (s *Service) Quote(ctx context.Context, req Request) (*Quote, error) {
	const op = "service.pricing.Quote"

	iv, err := domain.NewInterval(req.Start, req.End)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}
	hours := iv.Hours()

	court, err := s.store.GetCourt(ctx, req.CourtID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%s:%w", op, CourtNotFoundError{CourtID: req.CourtID})
		}
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	rules, err := s.store.ActivePricingRules(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	at := req.Start.In(s.cfg.Location)
	multiplier := 1.0
	applied := []domain.AppliedRule{}

	for i := range rules {
		if !RuleApplies(&rules[i], court.Type, at) {
			continue
		}
		multiplier *= rules[i].Multiplier
		applied = append(applied, domain.AppliedRule{
			Name:        rules[i].Name,
			Multiplier:  rules[i].Multiplier,
			Description: rules[i].Description,
		})
	}

	q := &Quote{
		DurationHours:    hours,
		EquipmentDetails: []EquipmentLine{},
	}

	base := court.BasePricePerHour * hours
	q.CourtBasePrice = round(base)
	q.CourtMultiplier = multiplier
	q.CourtPrice = round(base * multiplier)
	q.AppliedRules = applied

	for _, line := range req.Equipment {
		item, err := s.store.GetEquipment(ctx, line.EquipmentID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				continue
			}
			return nil, fmt.Errorf("%s:%w", op, err)
		}

		total := round(item.PricePerHour * float64(line.Quantity) * hours)
		q.EquipmentPrice += total
		q.EquipmentDetails = append(q.EquipmentDetails, EquipmentLine{
			EquipmentID:  item.ID,
			Name:         item.Name,
			Quantity:     line.Quantity,
			PricePerHour: item.PricePerHour,
			TotalPrice:   total,
		})
	}
	q.EquipmentPrice = round(q.EquipmentPrice)

	if req.CoachID != nil {
		coach, err := s.store.GetCoach(ctx, *req.CoachID)
		switch {
		case err == nil:
			q.CoachPrice = round(coach.PricePerHour * hours)
			q.CoachDetails = &CoachLine{
				CoachID:      coach.ID,
				Name:         coach.Name,
				PricePerHour: coach.PricePerHour,
				TotalPrice:   q.CoachPrice,
			}
		case !errors.Is(err, repository.ErrNotFound):
			return nil, fmt.Errorf("%s:%w", op, err)
		}
	}

	q.Subtotal = round(q.CourtPrice + q.EquipmentPrice + q.CoachPrice)
	q.Tax = round(q.Subtotal * s.taxRate)
	q.TotalPrice = round(q.Subtotal + q.Tax)

	return q, nil
}

// RuleApplies reports whether every non-empty facet of the rule matches.
// at must already be in the facility timezone. Time ranges include both
// ends and are tested against the start time of day; date ranges include
// both ends.
func RuleApplies(rule *domain.PricingRule, courtType domain.CourtType, at time.Time) bool {
	c := rule.Conditions

	if len(c.CourtTypes) > 0 && !slices.Contains(c.CourtTypes, courtType) {
		return false
	}

	if len(c.DaysOfWeek) > 0 && !slices.Contains(c.DaysOfWeek, int(at.Weekday())) {
		return false
	}

	if len(c.TimeRanges) > 0 {
		minute := domain.MinuteOfDay(at)
		if !slices.ContainsFunc(c.TimeRanges, func(tr domain.TimeRange) bool {
			start, err := domain.ParseClock(tr.StartTime)
			if err != nil {
				return false
			}
			end, err := domain.ParseClock(tr.EndTime)
			if err != nil {
				return false
			}
			return minute >= start && minute <= end
		}) {
			return false
		}
	}

	if len(c.DateRanges) > 0 {
		date := at.Format(domain.DateLayout)
		if !slices.ContainsFunc(c.DateRanges, func(dr domain.DateRange) bool {
			return date >= dr.StartDate && date <= dr.EndDate
		}) {
			return false
		}
	}

	return true
}

// round keeps money at cent precision.
func round(v float64) float64 {
	return math.Round(v*100) / 100
}
