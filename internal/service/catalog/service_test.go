package catalog

import (
	"context"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/A7k6h7i0/sports-facility-booking/internal/domain"
	"github.com/A7k6h7i0/sports-facility-booking/internal/repository/memory"
	redisrepo "github.com/A7k6h7i0/sports-facility-booking/internal/repository/redis"
)

var monday = time.Date(2025, 6, 16, 0, 0, 0, 0, time.UTC)

func book(t *testing.T, store *memory.Store, court uuid.UUID, start time.Time, hours int, status domain.BookingStatus) uuid.UUID {
	t.Helper()
	b := &domain.Booking{
		ID:        uuid.New(),
		UserID:    "alice",
		CourtID:   court,
		StartTime: start,
		EndTime:   start.Add(time.Duration(hours) * time.Hour),
		Status:    status,
	}
	require.NoError(t, store.InsertBooking(context.Background(), b))
	return b.ID
}

func TestListsAndGets(t *testing.T) {
	ctx := context.Background()
	store := memory.NewSeeded()
	svc := New(store, nil, Config{})

	_, err := store.ToggleCourt(ctx, memory.CourtOutdoor2)
	require.NoError(t, err)

	all, err := svc.ListCourts(ctx, false)
	require.NoError(t, err)
	assert.Len(t, all, 4)

	active, err := svc.ListCourts(ctx, true)
	require.NoError(t, err)
	assert.Len(t, active, 3)

	court, err := svc.GetCourt(ctx, memory.CourtIndoor1)
	require.NoError(t, err)
	assert.Equal(t, "Indoor Court 1", court.Name)

	_, err = svc.GetCourt(ctx, uuid.New())
	assert.ErrorIs(t, err, ErrCourtNotFound)

	items, err := svc.ListEquipment(ctx, true)
	require.NoError(t, err)
	assert.Len(t, items, 4)

	_, err = svc.GetEquipment(ctx, uuid.New())
	assert.ErrorIs(t, err, ErrEquipmentNotFound)

	coaches, err := svc.ListCoaches(ctx, true)
	require.NoError(t, err)
	assert.Len(t, coaches, 3)

	coach, err := svc.GetCoach(ctx, memory.CoachSarah)
	require.NoError(t, err)
	assert.NotEmpty(t, coach.Availability)

	_, err = svc.GetCoach(ctx, uuid.New())
	assert.ErrorIs(t, err, ErrCoachNotFound)
}

func TestCourtSchedule(t *testing.T) {
	ctx := context.Background()
	store := memory.NewSeeded()
	svc := New(store, nil, Config{})

	late := book(t, store, memory.CourtIndoor1, monday.Add(18*time.Hour), 2, domain.BookingConfirmed)
	early := book(t, store, memory.CourtIndoor1, monday.Add(9*time.Hour), 1, domain.BookingPending)
	overnight := book(t, store, memory.CourtIndoor1, monday.Add(-time.Hour), 2, domain.BookingConfirmed)
	book(t, store, memory.CourtIndoor1, monday.Add(12*time.Hour), 1, domain.BookingCancelled)
	book(t, store, memory.CourtIndoor2, monday.Add(12*time.Hour), 1, domain.BookingConfirmed)
	book(t, store, memory.CourtIndoor1, monday.Add(24*time.Hour), 1, domain.BookingConfirmed)

	s, err := svc.CourtSchedule(ctx, memory.CourtIndoor1, "2025-06-16")
	require.NoError(t, err)

	ids := make([]uuid.UUID, 0, len(s.Busy))
	for _, slot := range s.Busy {
		ids = append(ids, slot.BookingID)
	}
	assert.Equal(t, []uuid.UUID{overnight, early, late}, ids)
	assert.Equal(t, domain.BookingPending, s.Busy[1].Status)

	_, err = svc.CourtSchedule(ctx, memory.CourtIndoor1, "16-06-2025")
	assert.ErrorIs(t, err, ErrInvalidDate)

	_, err = svc.CourtSchedule(ctx, uuid.New(), "2025-06-16")
	assert.ErrorIs(t, err, ErrCourtNotFound)
}

func TestCourtScheduleUsesFacilityDay(t *testing.T) {
	ctx := context.Background()
	store := memory.NewSeeded()
	ist := time.FixedZone("IST", 5*3600+1800)
	svc := New(store, nil, Config{Location: ist})

	// 20:00 UTC on the 16th is 01:30 on the 17th in the facility.
	id := book(t, store, memory.CourtIndoor1, monday.Add(20*time.Hour), 1, domain.BookingConfirmed)

	s, err := svc.CourtSchedule(ctx, memory.CourtIndoor1, "2025-06-16")
	require.NoError(t, err)
	assert.Empty(t, s.Busy)

	s, err = svc.CourtSchedule(ctx, memory.CourtIndoor1, "2025-06-17")
	require.NoError(t, err)
	require.Len(t, s.Busy, 1)
	assert.Equal(t, id, s.Busy[0].BookingID)
}

func TestCachedReadsSkipTheStore(t *testing.T) {
	ctx := context.Background()
	rdb, mock := redismock.NewClientMock()
	svc := New(memory.New(), redisrepo.New(rdb), Config{})

	id := uuid.New()
	mock.ExpectGet(redisrepo.KeyCourt(id)).SetVal(`{"id":"` + id.String() + `","name":"Cached Court","type":"indoor"}`)
	mock.ExpectGet(redisrepo.KeyCourt(id)).SetVal(`{"id":"` + id.String() + `","name":"Cached Court","type":"indoor"}`)
	mock.ExpectGet(redisrepo.KeyCourtSchedule(id, "2025-06-16")).SetVal(`{"court_id":"` + id.String() + `","date":"2025-06-16","busy":[]}`)

	court, err := svc.GetCourt(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "Cached Court", court.Name)

	s, err := svc.CourtSchedule(ctx, id, "2025-06-16")
	require.NoError(t, err)
	assert.Equal(t, id, s.CourtID)
	assert.Empty(t, s.Busy)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInvalidateSchedule(t *testing.T) {
	rdb, mock := redismock.NewClientMock()
	svc := New(memory.New(), redisrepo.New(rdb), Config{})
	id := uuid.New()

	mock.ExpectDel(redisrepo.KeyCourtSchedule(id, "2025-06-16")).SetVal(1)

	require.NoError(t, svc.InvalidateSchedule(context.Background(), id, []string{"2025-06-16"}))
	assert.NoError(t, mock.ExpectationsWereMet())

	assert.NoError(t, New(memory.New(), nil, Config{}).InvalidateSchedule(context.Background(), id, []string{"2025-06-16"}))
}
