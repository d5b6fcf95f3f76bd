package domain

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

var (
	ErrInvalidQuantity = errors.New("equipment quantity must be at least 1")
	ErrInvalidRule     = errors.New("invalid pricing rule")
)

// MergeEquipment validates requested equipment lines and folds repeated ids
// into one line, keeping the order of first appearance.
func MergeEquipment(reqs []EquipmentRequest) ([]EquipmentRequest, error) {
	if len(reqs) == 0 {
		return nil, nil
	}

	out := make([]EquipmentRequest, 0, len(reqs))
	index := make(map[uuid.UUID]int, len(reqs))

	for _, r := range reqs {
		if r.Quantity < 1 {
			return nil, fmt.Errorf("%w: got %d for %s", ErrInvalidQuantity, r.Quantity, r.EquipmentID)
		}

		if i, ok := index[r.EquipmentID]; ok {
			out[i].Quantity += r.Quantity
			continue
		}

		index[r.EquipmentID] = len(out)
		out = append(out, r)
	}

	return out, nil
}

// Validate checks a pricing rule before it is stored.
func (r *PricingRule) Validate() error {
	var problems []string

	if strings.TrimSpace(r.Name) == "" {
		problems = append(problems, "name is required")
	}

	if !r.RuleType.Valid() {
		problems = append(problems, fmt.Sprintf("unknown rule type %q", r.RuleType))
	}

	if r.Multiplier < 0 {
		problems = append(problems, "multiplier must not be negative")
	}

	for _, ct := range r.Conditions.CourtTypes {
		if ct != CourtIndoor && ct != CourtOutdoor {
			problems = append(problems, fmt.Sprintf("unknown court type %q", ct))
		}
	}

	for _, d := range r.Conditions.DaysOfWeek {
		if d < 0 || d > 6 {
			problems = append(problems, fmt.Sprintf("day of week %d out of range 0..6", d))
		}
	}

	for _, tr := range r.Conditions.TimeRanges {
		start, err := ParseClock(tr.StartTime)
		if err != nil {
			problems = append(problems, err.Error())
			continue
		}
		end, err := ParseClock(tr.EndTime)
		if err != nil {
			problems = append(problems, err.Error())
			continue
		}
		if end < start {
			problems = append(problems, fmt.Sprintf("time range %s-%s ends before it starts", tr.StartTime, tr.EndTime))
		}
	}

	for _, dr := range r.Conditions.DateRanges {
		start, err := time.Parse(DateLayout, dr.StartDate)
		if err != nil {
			problems = append(problems, fmt.Sprintf("invalid start date %q", dr.StartDate))
			continue
		}
		end, err := time.Parse(DateLayout, dr.EndDate)
		if err != nil {
			problems = append(problems, fmt.Sprintf("invalid end date %q", dr.EndDate))
			continue
		}
		if end.Before(start) {
			problems = append(problems, fmt.Sprintf("date range %s..%s ends before it starts", dr.StartDate, dr.EndDate))
		}
	}

	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidRule, strings.Join(problems, "; "))
	}

	return nil
}
