package memory

import (
	"cmp"
	"context"
	"fmt"
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/A7k6h7i0/sports-facility-booking/internal/domain"
	"github.com/A7k6h7i0/sports-facility-booking/internal/repository"
)

type data struct {
	courts    map[uuid.UUID]domain.Court
	equipment map[uuid.UUID]domain.Equipment
	coaches   map[uuid.UUID]domain.Coach
	rules     map[uuid.UUID]domain.PricingRule
	bookings  map[uuid.UUID]domain.Booking
	seq       map[uuid.UUID]int64
	next      int64
}

func newData() *data {
	return &data{
		courts:    map[uuid.UUID]domain.Court{},
		equipment: map[uuid.UUID]domain.Equipment{},
		coaches:   map[uuid.UUID]domain.Coach{},
		rules:     map[uuid.UUID]domain.PricingRule{},
		bookings:  map[uuid.UUID]domain.Booking{},
		seq:       map[uuid.UUID]int64{},
	}
}

// clone is shallow per record. Records are replaced on write, never mutated
// in place, so sharing their slices between generations is safe.
func (d *data) clone() *data {
	return &data{
		courts:    maps.Clone(d.courts),
		equipment: maps.Clone(d.equipment),
		coaches:   maps.Clone(d.coaches),
		rules:     maps.Clone(d.rules),
		bookings:  maps.Clone(d.bookings),
		seq:       maps.Clone(d.seq),
		next:      d.next,
	}
}

// Store keeps all state in process. Atomic serializes transactions behind a
// single store-wide lock and publishes the working copy only on success.
type Store struct {
	mu  sync.RWMutex
	d   *data
	now func() time.Time
}

type Option func(*Store)

func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

func New(opts ...Option) *Store {
	s := &Store{d: newData(), now: time.Now}
	for _, o := range opts {
		o(s)
	}
	return s
}

// NewSeeded returns a store preloaded with the facility's reference data.
func NewSeeded(opts ...Option) *Store {
	s := New(opts...)
	fx := Seed()
	v := s.view(s.d)
	for _, c := range fx.Courts {
		v.putCourt(c)
	}
	for _, e := range fx.Equipment {
		v.putEquipment(e)
	}
	for _, c := range fx.Coaches {
		v.putCoach(c)
	}
	for _, r := range fx.Rules {
		v.putRule(r)
	}
	return s
}

func (s *Store) view(d *data) *view { return &view{d: d, now: s.now} }

func (s *Store) Atomic(ctx context.Context, fn func(ctx context.Context, tx repository.Tx) error) error {
	const op = "memory.Store.Atomic"

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%s:%w", op, err)
	}

	work := s.d.clone()
	if err := fn(ctx, s.view(work)); err != nil {
		return err
	}

	s.d = work

	return nil
}

func (s *Store) Close() {}

// Put helpers seed reference data. They bypass transactions.

func (s *Store) PutCourt(c domain.Court) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.view(s.d).putCourt(c)
}

func (s *Store) PutEquipment(e domain.Equipment) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.view(s.d).putEquipment(e)
}

func (s *Store) PutCoach(c domain.Coach) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.view(s.d).putCoach(c)
}

func (s *Store) PutRule(r domain.PricingRule) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.view(s.d).putRule(r)
}

func read[T any](s *Store, fn func(v *view) (T, error)) (T, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return fn(s.view(s.d))
}

func write[T any](ctx context.Context, s *Store, fn func(v *view) (T, error)) (T, error) {
	var out T
	err := s.Atomic(ctx, func(_ context.Context, tx repository.Tx) error {
		var err error
		out, err = fn(tx.(*view))
		return err
	})
	return out, err
}

func (s *Store) GetCourt(ctx context.Context, id uuid.UUID) (*domain.Court, error) {
	return read(s, func(v *view) (*domain.Court, error) { return v.GetCourt(ctx, id) })
}

func (s *Store) GetEquipment(ctx context.Context, id uuid.UUID) (*domain.Equipment, error) {
	return read(s, func(v *view) (*domain.Equipment, error) { return v.GetEquipment(ctx, id) })
}

func (s *Store) GetCoach(ctx context.Context, id uuid.UUID) (*domain.Coach, error) {
	return read(s, func(v *view) (*domain.Coach, error) { return v.GetCoach(ctx, id) })
}

func (s *Store) GetBooking(ctx context.Context, id uuid.UUID) (*domain.Booking, error) {
	return read(s, func(v *view) (*domain.Booking, error) { return v.GetBooking(ctx, id) })
}

func (s *Store) ActivePricingRules(ctx context.Context) ([]domain.PricingRule, error) {
	return read(s, func(v *view) ([]domain.PricingRule, error) { return v.ActivePricingRules(ctx) })
}

func (s *Store) OverlappingBookings(ctx context.Context, q repository.OverlapQuery) ([]domain.Booking, error) {
	return read(s, func(v *view) ([]domain.Booking, error) { return v.OverlappingBookings(ctx, q) })
}

func (s *Store) ListCourts(ctx context.Context, activeOnly bool) ([]domain.Court, error) {
	return read(s, func(v *view) ([]domain.Court, error) { return v.ListCourts(ctx, activeOnly) })
}

func (s *Store) ListEquipment(ctx context.Context, activeOnly bool) ([]domain.Equipment, error) {
	return read(s, func(v *view) ([]domain.Equipment, error) { return v.ListEquipment(ctx, activeOnly) })
}

func (s *Store) ListCoaches(ctx context.Context, activeOnly bool) ([]domain.Coach, error) {
	return read(s, func(v *view) ([]domain.Coach, error) { return v.ListCoaches(ctx, activeOnly) })
}

func (s *Store) ListPricingRules(ctx context.Context) ([]domain.PricingRule, error) {
	return read(s, func(v *view) ([]domain.PricingRule, error) { return v.ListPricingRules(ctx) })
}

func (s *Store) GetPricingRule(ctx context.Context, id uuid.UUID) (*domain.PricingRule, error) {
	return read(s, func(v *view) (*domain.PricingRule, error) { return v.GetPricingRule(ctx, id) })
}

func (s *Store) ListUserBookings(ctx context.Context, userID string) ([]domain.Booking, error) {
	return read(s, func(v *view) ([]domain.Booking, error) { return v.ListUserBookings(ctx, userID) })
}

func (s *Store) ListBookings(ctx context.Context, limit, offset int) ([]domain.Booking, error) {
	return read(s, func(v *view) ([]domain.Booking, error) { return v.ListBookings(ctx, limit, offset) })
}

func (s *Store) InsertBooking(ctx context.Context, b *domain.Booking) error {
	_, err := write(ctx, s, func(v *view) (struct{}, error) { return struct{}{}, v.InsertBooking(ctx, b) })
	return err
}

func (s *Store) SetBookingStatus(ctx context.Context, id uuid.UUID, status domain.BookingStatus) error {
	_, err := write(ctx, s, func(v *view) (struct{}, error) { return struct{}{}, v.SetBookingStatus(ctx, id, status) })
	return err
}

func (s *Store) ReserveEquipment(ctx context.Context, id uuid.UUID, qty int) error {
	_, err := write(ctx, s, func(v *view) (struct{}, error) { return struct{}{}, v.ReserveEquipment(ctx, id, qty) })
	return err
}

func (s *Store) ReleaseEquipment(ctx context.Context, id uuid.UUID, qty int) error {
	_, err := write(ctx, s, func(v *view) (struct{}, error) { return struct{}{}, v.ReleaseEquipment(ctx, id, qty) })
	return err
}

func (s *Store) CreatePricingRule(ctx context.Context, r *domain.PricingRule) error {
	_, err := write(ctx, s, func(v *view) (struct{}, error) { return struct{}{}, v.CreatePricingRule(ctx, r) })
	return err
}

func (s *Store) UpdatePricingRule(ctx context.Context, r *domain.PricingRule) error {
	_, err := write(ctx, s, func(v *view) (struct{}, error) { return struct{}{}, v.UpdatePricingRule(ctx, r) })
	return err
}

func (s *Store) DeletePricingRule(ctx context.Context, id uuid.UUID) error {
	_, err := write(ctx, s, func(v *view) (struct{}, error) { return struct{}{}, v.DeletePricingRule(ctx, id) })
	return err
}

func (s *Store) ToggleCourt(ctx context.Context, id uuid.UUID) (*domain.Court, error) {
	return write(ctx, s, func(v *view) (*domain.Court, error) { return v.ToggleCourt(ctx, id) })
}

func (s *Store) ToggleEquipment(ctx context.Context, id uuid.UUID) (*domain.Equipment, error) {
	return write(ctx, s, func(v *view) (*domain.Equipment, error) { return v.ToggleEquipment(ctx, id) })
}

func (s *Store) ToggleCoach(ctx context.Context, id uuid.UUID) (*domain.Coach, error) {
	return write(ctx, s, func(v *view) (*domain.Coach, error) { return v.ToggleCoach(ctx, id) })
}

// view implements repository.Tx over one generation of data. It does no
// locking; the owning Store does.
type view struct {
	d   *data
	now func() time.Time
}

func (v *view) stamp(id uuid.UUID) {
	if _, ok := v.d.seq[id]; !ok {
		v.d.next++
		v.d.seq[id] = v.d.next
	}
}

func (v *view) putCourt(c domain.Court) {
	v.d.courts[c.ID] = c
	v.stamp(c.ID)
}

func (v *view) putEquipment(e domain.Equipment) {
	v.d.equipment[e.ID] = e
	v.stamp(e.ID)
}

func (v *view) putCoach(c domain.Coach) {
	v.d.coaches[c.ID] = c
	v.stamp(c.ID)
}

func (v *view) putRule(r domain.PricingRule) {
	v.d.rules[r.ID] = r
	v.stamp(r.ID)
}

func (v *view) GetCourt(_ context.Context, id uuid.UUID) (*domain.Court, error) {
	c, ok := v.d.courts[id]
	if !ok {
		return nil, fmt.Errorf("memory.GetCourt:%w", repository.ErrNotFound)
	}
	c.Amenities = slices.Clone(c.Amenities)
	return &c, nil
}

func (v *view) GetEquipment(_ context.Context, id uuid.UUID) (*domain.Equipment, error) {
	e, ok := v.d.equipment[id]
	if !ok {
		return nil, fmt.Errorf("memory.GetEquipment:%w", repository.ErrNotFound)
	}
	return &e, nil
}

func (v *view) GetCoach(_ context.Context, id uuid.UUID) (*domain.Coach, error) {
	c, ok := v.d.coaches[id]
	if !ok {
		return nil, fmt.Errorf("memory.GetCoach:%w", repository.ErrNotFound)
	}
	c.Availability = slices.Clone(c.Availability)
	return &c, nil
}

func (v *view) GetBooking(_ context.Context, id uuid.UUID) (*domain.Booking, error) {
	b, ok := v.d.bookings[id]
	if !ok {
		return nil, fmt.Errorf("memory.GetBooking:%w", repository.ErrNotFound)
	}
	b = cloneBooking(b)
	return &b, nil
}

func (v *view) ActivePricingRules(ctx context.Context) ([]domain.PricingRule, error) {
	all, _ := v.ListPricingRules(ctx)
	out := all[:0]
	for _, r := range all {
		if r.IsActive {
			out = append(out, r)
		}
	}
	return out, nil
}

func (v *view) OverlappingBookings(_ context.Context, q repository.OverlapQuery) ([]domain.Booking, error) {
	if err := q.Validate(); err != nil {
		return nil, fmt.Errorf("memory.OverlappingBookings:%w", err)
	}

	var out []domain.Booking
	for _, b := range v.d.bookings {
		if q.Matches(&b) {
			out = append(out, cloneBooking(b))
		}
	}

	slices.SortFunc(out, func(a, b domain.Booking) int {
		return a.StartTime.Compare(b.StartTime)
	})

	return out, nil
}

func (v *view) InsertBooking(_ context.Context, b *domain.Booking) error {
	if _, ok := v.d.bookings[b.ID]; ok {
		return fmt.Errorf("memory.InsertBooking:%w", repository.ErrConflict)
	}

	if !b.EndTime.After(b.StartTime) {
		return fmt.Errorf("memory.InsertBooking:%w", domain.ErrInvalidDuration)
	}

	now := v.now()
	if b.CreatedAt.IsZero() {
		b.CreatedAt = now
	}
	b.UpdatedAt = now

	v.d.bookings[b.ID] = cloneBooking(*b)
	v.stamp(b.ID)

	return nil
}

func (v *view) SetBookingStatus(_ context.Context, id uuid.UUID, status domain.BookingStatus) error {
	b, ok := v.d.bookings[id]
	if !ok {
		return fmt.Errorf("memory.SetBookingStatus:%w", repository.ErrNotFound)
	}

	b.Status = status
	b.UpdatedAt = v.now()
	v.d.bookings[id] = b

	return nil
}

func (v *view) ReserveEquipment(_ context.Context, id uuid.UUID, qty int) error {
	e, ok := v.d.equipment[id]
	if !ok {
		return fmt.Errorf("memory.ReserveEquipment:%w", repository.ErrNotFound)
	}

	if qty < 0 || e.AvailableQuantity < qty {
		return fmt.Errorf("memory.ReserveEquipment:%w", repository.ErrInsufficientStock)
	}

	e.AvailableQuantity -= qty
	e.UpdatedAt = v.now()
	v.d.equipment[id] = e

	return nil
}

func (v *view) ReleaseEquipment(_ context.Context, id uuid.UUID, qty int) error {
	e, ok := v.d.equipment[id]
	if !ok {
		return fmt.Errorf("memory.ReleaseEquipment:%w", repository.ErrNotFound)
	}

	e.AvailableQuantity = min(e.TotalQuantity, e.AvailableQuantity+qty)
	e.UpdatedAt = v.now()
	v.d.equipment[id] = e

	return nil
}

func (v *view) byName(a, b string, ia, ib uuid.UUID) int {
	if c := cmp.Compare(a, b); c != 0 {
		return c
	}
	return cmp.Compare(v.d.seq[ia], v.d.seq[ib])
}

func (v *view) ListCourts(_ context.Context, activeOnly bool) ([]domain.Court, error) {
	var out []domain.Court
	for _, c := range v.d.courts {
		if activeOnly && !c.IsActive {
			continue
		}
		out = append(out, c)
	}
	slices.SortFunc(out, func(a, b domain.Court) int { return v.byName(a.Name, b.Name, a.ID, b.ID) })
	return out, nil
}

func (v *view) ListEquipment(_ context.Context, activeOnly bool) ([]domain.Equipment, error) {
	var out []domain.Equipment
	for _, e := range v.d.equipment {
		if activeOnly && !e.IsActive {
			continue
		}
		out = append(out, e)
	}
	slices.SortFunc(out, func(a, b domain.Equipment) int { return v.byName(a.Name, b.Name, a.ID, b.ID) })
	return out, nil
}

func (v *view) ListCoaches(_ context.Context, activeOnly bool) ([]domain.Coach, error) {
	var out []domain.Coach
	for _, c := range v.d.coaches {
		if activeOnly && !c.IsActive {
			continue
		}
		out = append(out, c)
	}
	slices.SortFunc(out, func(a, b domain.Coach) int { return v.byName(a.Name, b.Name, a.ID, b.ID) })
	return out, nil
}

// ListPricingRules orders by priority, highest first, then by creation.
func (v *view) ListPricingRules(_ context.Context) ([]domain.PricingRule, error) {
	out := make([]domain.PricingRule, 0, len(v.d.rules))
	for _, r := range v.d.rules {
		out = append(out, r)
	}
	slices.SortFunc(out, func(a, b domain.PricingRule) int {
		if c := cmp.Compare(b.Priority, a.Priority); c != 0 {
			return c
		}
		return cmp.Compare(v.d.seq[a.ID], v.d.seq[b.ID])
	})
	return out, nil
}

func (v *view) GetPricingRule(_ context.Context, id uuid.UUID) (*domain.PricingRule, error) {
	r, ok := v.d.rules[id]
	if !ok {
		return nil, fmt.Errorf("memory.GetPricingRule:%w", repository.ErrNotFound)
	}
	return &r, nil
}

func (v *view) nameTaken(name string, except uuid.UUID) bool {
	for id, r := range v.d.rules {
		if id != except && r.Name == name {
			return true
		}
	}
	return false
}

func (v *view) CreatePricingRule(_ context.Context, r *domain.PricingRule) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}

	if _, ok := v.d.rules[r.ID]; ok || v.nameTaken(r.Name, r.ID) {
		return fmt.Errorf("memory.CreatePricingRule:%w", repository.ErrConflict)
	}

	now := v.now()
	r.CreatedAt, r.UpdatedAt = now, now
	v.putRule(*r)

	return nil
}

func (v *view) UpdatePricingRule(_ context.Context, r *domain.PricingRule) error {
	cur, ok := v.d.rules[r.ID]
	if !ok {
		return fmt.Errorf("memory.UpdatePricingRule:%w", repository.ErrNotFound)
	}

	if v.nameTaken(r.Name, r.ID) {
		return fmt.Errorf("memory.UpdatePricingRule:%w", repository.ErrConflict)
	}

	r.CreatedAt = cur.CreatedAt
	r.UpdatedAt = v.now()
	v.d.rules[r.ID] = *r

	return nil
}

func (v *view) DeletePricingRule(_ context.Context, id uuid.UUID) error {
	if _, ok := v.d.rules[id]; !ok {
		return fmt.Errorf("memory.DeletePricingRule:%w", repository.ErrNotFound)
	}
	delete(v.d.rules, id)
	return nil
}

func (v *view) ToggleCourt(_ context.Context, id uuid.UUID) (*domain.Court, error) {
	c, ok := v.d.courts[id]
	if !ok {
		return nil, fmt.Errorf("memory.ToggleCourt:%w", repository.ErrNotFound)
	}
	c.IsActive = !c.IsActive
	c.UpdatedAt = v.now()
	v.d.courts[id] = c
	return &c, nil
}

func (v *view) ToggleEquipment(_ context.Context, id uuid.UUID) (*domain.Equipment, error) {
	e, ok := v.d.equipment[id]
	if !ok {
		return nil, fmt.Errorf("memory.ToggleEquipment:%w", repository.ErrNotFound)
	}
	e.IsActive = !e.IsActive
	e.UpdatedAt = v.now()
	v.d.equipment[id] = e
	return &e, nil
}

func (v *view) ToggleCoach(_ context.Context, id uuid.UUID) (*domain.Coach, error) {
	c, ok := v.d.coaches[id]
	if !ok {
		return nil, fmt.Errorf("memory.ToggleCoach:%w", repository.ErrNotFound)
	}
	c.IsActive = !c.IsActive
	c.UpdatedAt = v.now()
	v.d.coaches[id] = c
	return &c, nil
}

// newestFirst orders bookings by creation time, latest first.
func (v *view) newestFirst(out []domain.Booking) {
	slices.SortFunc(out, func(a, b domain.Booking) int {
		return cmp.Compare(v.d.seq[b.ID], v.d.seq[a.ID])
	})
}

func (v *view) ListUserBookings(_ context.Context, userID string) ([]domain.Booking, error) {
	var out []domain.Booking
	for _, b := range v.d.bookings {
		if b.UserID == userID {
			out = append(out, cloneBooking(b))
		}
	}
	v.newestFirst(out)
	return out, nil
}

func (v *view) ListBookings(_ context.Context, limit, offset int) ([]domain.Booking, error) {
	out := make([]domain.Booking, 0, len(v.d.bookings))
	for _, b := range v.d.bookings {
		out = append(out, cloneBooking(b))
	}
	v.newestFirst(out)

	if offset >= len(out) {
		return nil, nil
	}
	out = out[offset:]
	if limit > 0 && limit < len(out) {
		out = out[:limit]
	}

	return out, nil
}

func cloneBooking(b domain.Booking) domain.Booking {
	b.Equipment = slices.Clone(b.Equipment)
	b.Pricing.AppliedRules = slices.Clone(b.Pricing.AppliedRules)
	if b.Coach.CoachID != nil {
		id := *b.Coach.CoachID
		b.Coach.CoachID = &id
	}
	return b
}
