package pricing

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/A7k6h7i0/sports-facility-booking/internal/domain"
	"github.com/A7k6h7i0/sports-facility-booking/internal/repository/memory"
)

var (
	saturday = time.Date(2025, 6, 14, 0, 0, 0, 0, time.UTC)
	monday   = time.Date(2025, 6, 16, 0, 0, 0, 0, time.UTC)
)

func newService() *Service {
	return New(memory.NewSeeded(), Config{Location: time.UTC})
}

func TestRuleStacking(t *testing.T) {
	q, err := newService().Quote(context.Background(), Request{
		CourtID: memory.CourtIndoor1,
		Start:   saturday.Add(18 * time.Hour),
		End:     saturday.Add(20 * time.Hour),
	})
	require.NoError(t, err)

	assert.InDelta(t, 2.34, q.CourtMultiplier, 1e-9)
	assert.Equal(t, 2.0, q.DurationHours)
	assert.Equal(t, 100.0, q.CourtBasePrice)
	assert.Equal(t, 234.0, q.CourtPrice)
	assert.Equal(t, 0.0, q.EquipmentPrice)
	assert.Equal(t, 0.0, q.CoachPrice)
	assert.Equal(t, 234.0, q.Subtotal)
	assert.Equal(t, 42.12, q.Tax)
	assert.Equal(t, 276.12, q.TotalPrice)

	names := make([]string, 0, len(q.AppliedRules))
	for _, r := range q.AppliedRules {
		names = append(names, r.Name)
	}
	assert.Equal(t, []string{"Peak Hours Premium", "Weekend Surcharge", "Indoor Court Premium"}, names)
	assert.Nil(t, q.CoachDetails)
}

func TestQuoteIsIdempotent(t *testing.T) {
	svc := newService()
	coach := memory.CoachSarah
	req := Request{
		CourtID:   memory.CourtIndoor1,
		Start:     saturday.Add(9 * time.Hour),
		End:       saturday.Add(10*time.Hour + 30*time.Minute),
		Equipment: []domain.EquipmentRequest{{EquipmentID: memory.EquipBadmintonRacket, Quantity: 2}},
		CoachID:   &coach,
	}

	first, err := svc.Quote(context.Background(), req)
	require.NoError(t, err)
	second, err := svc.Quote(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, first, second)

	a, err := json.Marshal(first)
	require.NoError(t, err)
	b, err := json.Marshal(second)
	require.NoError(t, err)
	assert.Equal(t, string(a), string(b))
}

func TestQuoteItemizesEquipmentAndCoach(t *testing.T) {
	coach := memory.CoachJohn
	q, err := newService().Quote(context.Background(), Request{
		CourtID:   memory.CourtIndoor2,
		Start:     monday.Add(10 * time.Hour),
		End:       monday.Add(11*time.Hour + 30*time.Minute),
		Equipment: []domain.EquipmentRequest{{EquipmentID: memory.EquipTennisRacket, Quantity: 2}},
		CoachID:   &coach,
	})
	require.NoError(t, err)

	assert.Equal(t, 1.5, q.DurationHours)
	assert.InDelta(t, 1.2, q.CourtMultiplier, 1e-9)
	assert.Equal(t, 108.0, q.CourtPrice)
	assert.Equal(t, 24.0, q.EquipmentPrice)
	assert.Equal(t, 60.0, q.CoachPrice)
	assert.Equal(t, 192.0, q.Subtotal)
	assert.Equal(t, 34.56, q.Tax)
	assert.Equal(t, 226.56, q.TotalPrice)

	require.Len(t, q.EquipmentDetails, 1)
	assert.Equal(t, EquipmentLine{
		EquipmentID:  memory.EquipTennisRacket,
		Name:         "Tennis Racket",
		Quantity:     2,
		PricePerHour: 8,
		TotalPrice:   24,
	}, q.EquipmentDetails[0])

	require.NotNil(t, q.CoachDetails)
	assert.Equal(t, "Coach John Smith", q.CoachDetails.Name)
	assert.Equal(t, 60.0, q.CoachDetails.TotalPrice)
}

func TestQuoteSkipsMissingEquipmentAndCoach(t *testing.T) {
	ghost := uuid.New()
	q, err := newService().Quote(context.Background(), Request{
		CourtID:   memory.CourtOutdoor1,
		Start:     monday.Add(10 * time.Hour),
		End:       monday.Add(11 * time.Hour),
		Equipment: []domain.EquipmentRequest{{EquipmentID: uuid.New(), Quantity: 3}},
		CoachID:   &ghost,
	})
	require.NoError(t, err)

	assert.Empty(t, q.EquipmentDetails)
	assert.Nil(t, q.CoachDetails)
	assert.Equal(t, 30.0, q.Subtotal)
	assert.Equal(t, 5.4, q.Tax)
	assert.Equal(t, 35.4, q.TotalPrice)
	assert.Empty(t, q.AppliedRules)
}

func TestQuoteErrors(t *testing.T) {
	svc := newService()

	_, err := svc.Quote(context.Background(), Request{
		CourtID: memory.CourtIndoor1,
		Start:   monday.Add(11 * time.Hour),
		End:     monday.Add(10 * time.Hour),
	})
	assert.ErrorIs(t, err, domain.ErrInvalidDuration)

	missing := uuid.New()
	_, err = svc.Quote(context.Background(), Request{
		CourtID: missing,
		Start:   monday.Add(10 * time.Hour),
		End:     monday.Add(11 * time.Hour),
	})
	require.ErrorIs(t, err, ErrCourtNotFound)

	var nf CourtNotFoundError
	require.True(t, errors.As(err, &nf))
	assert.Equal(t, missing, nf.CourtID)
}

func TestInactiveRulesAreIgnored(t *testing.T) {
	ctx := context.Background()
	store := memory.NewSeeded()

	rule, err := store.GetPricingRule(ctx, memory.RuleIndoor)
	require.NoError(t, err)
	rule.IsActive = false
	require.NoError(t, store.UpdatePricingRule(ctx, rule))

	q, err := New(store, Config{}).Quote(ctx, Request{
		CourtID: memory.CourtIndoor1,
		Start:   monday.Add(10 * time.Hour),
		End:     monday.Add(11 * time.Hour),
	})
	require.NoError(t, err)
	assert.Equal(t, 1.0, q.CourtMultiplier)
	assert.Equal(t, 50.0, q.CourtPrice)
}

func TestRuleApplies(t *testing.T) {
	rule := func(c domain.RuleConditions) *domain.PricingRule {
		return &domain.PricingRule{Name: "r", Multiplier: 2, Conditions: c}
	}
	at := func(day time.Time, hhmm string) time.Time {
		m, err := domain.ParseClock(hhmm)
		require.NoError(t, err)
		return day.Add(time.Duration(m) * time.Minute)
	}

	tests := []struct {
		name  string
		rule  *domain.PricingRule
		court domain.CourtType
		at    time.Time
		want  bool
	}{
		{"no facets", rule(domain.RuleConditions{}), domain.CourtOutdoor, at(monday, "03:00"), true},
		{"court type match", rule(domain.RuleConditions{CourtTypes: []domain.CourtType{domain.CourtIndoor}}), domain.CourtIndoor, at(monday, "10:00"), true},
		{"court type miss", rule(domain.RuleConditions{CourtTypes: []domain.CourtType{domain.CourtIndoor}}), domain.CourtOutdoor, at(monday, "10:00"), false},
		{"weekend on saturday", rule(domain.RuleConditions{DaysOfWeek: []int{0, 6}}), domain.CourtIndoor, at(saturday, "10:00"), true},
		{"weekend on monday", rule(domain.RuleConditions{DaysOfWeek: []int{0, 6}}), domain.CourtIndoor, at(monday, "10:00"), false},
		{"time range start", rule(domain.RuleConditions{TimeRanges: []domain.TimeRange{{StartTime: "18:00", EndTime: "21:00"}}}), domain.CourtIndoor, at(monday, "18:00"), true},
		{"time range end inclusive", rule(domain.RuleConditions{TimeRanges: []domain.TimeRange{{StartTime: "18:00", EndTime: "21:00"}}}), domain.CourtIndoor, at(monday, "21:00"), true},
		{"time range before", rule(domain.RuleConditions{TimeRanges: []domain.TimeRange{{StartTime: "18:00", EndTime: "21:00"}}}), domain.CourtIndoor, at(monday, "17:59"), false},
		{"second time range", rule(domain.RuleConditions{TimeRanges: []domain.TimeRange{{StartTime: "06:00", EndTime: "07:00"}, {StartTime: "12:00", EndTime: "13:00"}}}), domain.CourtIndoor, at(monday, "12:30"), true},
		{"date range inside", rule(domain.RuleConditions{DateRanges: []domain.DateRange{{StartDate: "2025-06-01", EndDate: "2025-06-16"}}}), domain.CourtIndoor, at(monday, "23:59"), true},
		{"date range outside", rule(domain.RuleConditions{DateRanges: []domain.DateRange{{StartDate: "2025-06-01", EndDate: "2025-06-15"}}}), domain.CourtIndoor, at(monday, "00:00"), false},
		{"all facets must match", rule(domain.RuleConditions{DaysOfWeek: []int{1}, TimeRanges: []domain.TimeRange{{StartTime: "06:00", EndTime: "09:00"}}}), domain.CourtIndoor, at(monday, "10:00"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, RuleApplies(tt.rule, tt.court, tt.at))
		})
	}
}

func TestRulesUseFacilityTimezone(t *testing.T) {
	ist := time.FixedZone("IST", 5*3600+1800)
	store := memory.NewSeeded()

	// 13:00 UTC Monday is 18:30 in the facility.
	req := Request{
		CourtID: memory.CourtOutdoor1,
		Start:   monday.Add(13 * time.Hour),
		End:     monday.Add(14 * time.Hour),
	}

	q, err := New(store, Config{Location: ist}).Quote(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, 1.5, q.CourtMultiplier)

	q, err = New(store, Config{Location: time.UTC}).Quote(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, 1.0, q.CourtMultiplier)
}

func TestZeroTaxRateIsHonoured(t *testing.T) {
	zero := 0.0
	svc := New(memory.NewSeeded(), Config{TaxRate: &zero, Location: time.UTC})
	req := Request{
		CourtID: memory.CourtIndoor1,
		Start:   monday.Add(10 * time.Hour),
		End:     monday.Add(11 * time.Hour),
	}

	q, err := svc.Quote(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, 0.0, svc.TaxRate())
	assert.Equal(t, 0.0, q.Tax)
	assert.Equal(t, q.Subtotal, q.TotalPrice)

	q, err = newService().Quote(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, DefaultTaxRate, newService().TaxRate())
	assert.Equal(t, round(q.Subtotal*DefaultTaxRate), q.Tax)
}
