package admin

import (
	"context"
	"testing"

	"github.com/go-redis/redismock/v9"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/A7k6h7i0/sports-facility-booking/internal/domain"
	"github.com/A7k6h7i0/sports-facility-booking/internal/repository/memory"
	redisrepo "github.com/A7k6h7i0/sports-facility-booking/internal/repository/redis"
)

func happyHour() domain.PricingRule {
	return domain.PricingRule{
		Name:       "Happy Hour",
		RuleType:   domain.RuleCustom,
		Multiplier: 0.9,
		Priority:   1,
		IsActive:   true,
		Conditions: domain.RuleConditions{
			DaysOfWeek: []int{1, 2, 3},
			TimeRanges: []domain.TimeRange{{StartTime: "14:00", EndTime: "16:00"}},
		},
	}
}

func TestRuleLifecycle(t *testing.T) {
	ctx := context.Background()
	svc := New(memory.NewSeeded(), nil)

	created, err := svc.CreateRule(ctx, happyHour())
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, created.ID)
	assert.False(t, created.CreatedAt.IsZero())

	rules, err := svc.ListRules(ctx)
	require.NoError(t, err)
	assert.Len(t, rules, 5)

	_, err = svc.CreateRule(ctx, happyHour())
	assert.ErrorIs(t, err, ErrRuleConflict)

	upd := happyHour()
	upd.Multiplier = 0.8
	updated, err := svc.UpdateRule(ctx, created.ID, upd)
	require.NoError(t, err)
	assert.Equal(t, 0.8, updated.Multiplier)
	assert.Equal(t, created.CreatedAt, updated.CreatedAt)

	got, err := svc.GetRule(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, 0.8, got.Multiplier)

	clash := happyHour()
	clash.Name = "Weekend Surcharge"
	_, err = svc.UpdateRule(ctx, created.ID, clash)
	assert.ErrorIs(t, err, ErrRuleConflict)

	require.NoError(t, svc.DeleteRule(ctx, created.ID))

	_, err = svc.GetRule(ctx, created.ID)
	assert.ErrorIs(t, err, ErrRuleNotFound)
	assert.ErrorIs(t, svc.DeleteRule(ctx, created.ID), ErrRuleNotFound)

	_, err = svc.UpdateRule(ctx, uuid.New(), happyHour())
	assert.ErrorIs(t, err, ErrRuleNotFound)
}

func TestCreateRuleValidates(t *testing.T) {
	svc := New(memory.NewSeeded(), nil)

	tests := []struct {
		name   string
		mutate func(r *domain.PricingRule)
	}{
		{"blank name", func(r *domain.PricingRule) { r.Name = " " }},
		{"unknown type", func(r *domain.PricingRule) { r.RuleType = "surge" }},
		{"negative multiplier", func(r *domain.PricingRule) { r.Multiplier = -1 }},
		{"bad weekday", func(r *domain.PricingRule) { r.Conditions.DaysOfWeek = []int{7} }},
		{"bad clock", func(r *domain.PricingRule) { r.Conditions.TimeRanges[0].EndTime = "25:00" }},
		{"reversed dates", func(r *domain.PricingRule) {
			r.Conditions.DateRanges = []domain.DateRange{{StartDate: "2025-12-31", EndDate: "2025-01-01"}}
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := happyHour()
			tt.mutate(&r)

			_, err := svc.CreateRule(context.Background(), r)
			assert.ErrorIs(t, err, ErrInvalidRule)
		})
	}
}

func TestTogglesInvalidateCache(t *testing.T) {
	ctx := context.Background()
	rdb, mock := redismock.NewClientMock()
	svc := New(memory.NewSeeded(), redisrepo.New(rdb))

	mock.ExpectDel(redisrepo.KeyCourt(memory.CourtIndoor1), redisrepo.KeyCourtList(true), redisrepo.KeyCourtList(false)).SetVal(3)
	mock.ExpectDel(redisrepo.KeyEquipment(memory.EquipBasketball), redisrepo.KeyEquipmentList(true), redisrepo.KeyEquipmentList(false)).SetVal(3)
	mock.ExpectDel(redisrepo.KeyCoach(memory.CoachMike), redisrepo.KeyCoachList(true), redisrepo.KeyCoachList(false)).SetVal(3)

	court, err := svc.ToggleCourt(ctx, memory.CourtIndoor1)
	require.NoError(t, err)
	assert.False(t, court.IsActive)

	item, err := svc.ToggleEquipment(ctx, memory.EquipBasketball)
	require.NoError(t, err)
	assert.False(t, item.IsActive)

	coach, err := svc.ToggleCoach(ctx, memory.CoachMike)
	require.NoError(t, err)
	assert.False(t, coach.IsActive)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestToggleMissing(t *testing.T) {
	ctx := context.Background()
	svc := New(memory.NewSeeded(), nil)

	_, err := svc.ToggleCourt(ctx, uuid.New())
	assert.ErrorIs(t, err, ErrCourtNotFound)

	_, err = svc.ToggleEquipment(ctx, uuid.New())
	assert.ErrorIs(t, err, ErrEquipmentNotFound)

	_, err = svc.ToggleCoach(ctx, uuid.New())
	assert.ErrorIs(t, err, ErrCoachNotFound)
}
