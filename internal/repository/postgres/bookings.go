package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/A7k6h7i0/sports-facility-booking/internal/domain"
	"github.com/A7k6h7i0/sports-facility-booking/internal/repository"
)

type BookingRepo struct {
	pool *pgxpool.Pool
	db   DB
}

func (r *BookingRepo) With(db DB) *BookingRepo {
	cp := *r
	cp.db = db
	return &cp
}

func (r *BookingRepo) handle() DB {
	if r.db != nil {
		return r.db
	}
	return r.pool
}

// bookingSelect folds the equipment lines into a JSON array so a booking is
// always read as one row.
const bookingSelect = `
	SELECT b.id, b.user_id, b.court_id, b.start_time, b.end_time,
		b.coach_id, b.coach_price_per_hour, b.pricing, b.status,
		b.customer_name, b.customer_email, b.customer_phone, b.created_at, b.updated_at,
		COALESCE((
			SELECT jsonb_agg(jsonb_build_object(
				'equipment_id', be.equipment_id,
				'quantity', be.quantity,
				'price_per_hour', be.price_per_hour
			) ORDER BY be.position)
			FROM booking_equipment be
			WHERE be.booking_id = b.id
		), '[]'::jsonb) AS equipment
	FROM bookings b`

func scanBooking(row pgx.Row) (*domain.Booking, error) {
	var b domain.Booking
	err := row.Scan(
		&b.ID, &b.UserID, &b.CourtID, &b.StartTime, &b.EndTime,
		&b.Coach.CoachID, &b.Coach.PricePerHour, &b.Pricing, &b.Status,
		&b.CustomerName, &b.CustomerEmail, &b.CustomerPhone, &b.CreatedAt, &b.UpdatedAt,
		&b.Equipment,
	)
	if err != nil {
		return nil, err
	}
	return &b, nil
}

func collectBookings(rows pgx.Rows, op string) ([]domain.Booking, error) {
	defer rows.Close()

	var out []domain.Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, wrapDBErr(op, err)
		}
		out = append(out, *b)
	}

	if err := rows.Err(); err != nil {
		return nil, wrapDBErr(op, err)
	}

	return out, nil
}

func (r *BookingRepo) GetBooking(ctx context.Context, id uuid.UUID) (*domain.Booking, error) {
	const op = "postgres.BookingRepo.GetBooking"

	b, err := scanBooking(r.handle().QueryRow(ctx, bookingSelect+` WHERE b.id = $1`, id))
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	return b, nil
}

// overlapFilters selects the resource column for each kind of OverlapQuery.
var overlapFilters = map[repository.ResourceKind]string{
	repository.ResourceCourt:     `b.court_id = $1`,
	repository.ResourceCoach:     `b.coach_id = $1`,
	repository.ResourceEquipment: `EXISTS (SELECT 1 FROM booking_equipment be WHERE be.booking_id = b.id AND be.equipment_id = $1)`,
}

// OverlappingBookings returns occupying bookings on the resource whose interval
// overlaps [q.Start, q.End), earliest first.
//
// Returns:
//   - error: repository.ErrInvalidQuery if the query fails validation.
func (r *BookingRepo) OverlappingBookings(ctx context.Context, q repository.OverlapQuery) ([]domain.Booking, error) {
	const op = "postgres.BookingRepo.OverlappingBookings"

	if err := q.Validate(); err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	statuses := make([]string, 0, len(domain.OccupyingStatuses))
	for _, s := range domain.OccupyingStatuses {
		statuses = append(statuses, string(s))
	}

	rows, err := r.handle().Query(ctx, bookingSelect+`
		WHERE `+overlapFilters[q.Resource.Kind]+`
			AND b.status = ANY($2)
			AND b.start_time < $4
			AND b.end_time > $3
			AND b.id <> $5
		ORDER BY b.start_time
	`, q.Resource.ID, statuses, q.Start, q.End, q.ExcludeID)
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	return collectBookings(rows, op)
}

// InsertBooking stores the booking row and its equipment lines in one batch.
// It must run inside a transaction to keep both sides together.
func (r *BookingRepo) InsertBooking(ctx context.Context, b *domain.Booking) error {
	const op = "postgres.BookingRepo.InsertBooking"

	batch := &pgx.Batch{}
	batch.Queue(`
		INSERT INTO bookings (
			id, user_id, court_id, start_time, end_time, coach_id, coach_price_per_hour,
			pricing, status, customer_name, customer_email, customer_phone
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING created_at, updated_at
	`, b.ID, b.UserID, b.CourtID, b.StartTime, b.EndTime, b.Coach.CoachID, b.Coach.PricePerHour,
		b.Pricing, b.Status, b.CustomerName, b.CustomerEmail, b.CustomerPhone,
	).QueryRow(func(row pgx.Row) error {
		return row.Scan(&b.CreatedAt, &b.UpdatedAt)
	})

	for i, e := range b.Equipment {
		batch.Queue(`
			INSERT INTO booking_equipment (booking_id, position, equipment_id, quantity, price_per_hour)
			VALUES ($1, $2, $3, $4, $5)
		`, b.ID, i, e.EquipmentID, e.Quantity, e.PricePerHour)
	}

	if err := r.handle().SendBatch(ctx, batch).Close(); err != nil {
		return wrapDBErr(op, err)
	}

	return nil
}

func (r *BookingRepo) SetBookingStatus(ctx context.Context, id uuid.UUID, status domain.BookingStatus) error {
	const op = "postgres.BookingRepo.SetBookingStatus"

	tag, err := r.handle().Exec(ctx, `
		UPDATE bookings SET status = $2, updated_at = now() WHERE id = $1
	`, id, status)
	if err != nil {
		return wrapDBErr(op, err)
	}

	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%s:%w", op, repository.ErrNotFound)
	}

	return nil
}

// ListUserBookings returns the user's bookings, newest first.
func (r *BookingRepo) ListUserBookings(ctx context.Context, userID string) ([]domain.Booking, error) {
	const op = "postgres.BookingRepo.ListUserBookings"

	rows, err := r.handle().Query(ctx, bookingSelect+`
		WHERE b.user_id = $1
		ORDER BY b.created_at DESC, b.id
	`, userID)
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	return collectBookings(rows, op)
}

// ListBookings pages through every booking, newest first. A non-positive
// limit returns all rows after offset.
func (r *BookingRepo) ListBookings(ctx context.Context, limit, offset int) ([]domain.Booking, error) {
	const op = "postgres.BookingRepo.ListBookings"

	var lim any
	if limit > 0 {
		lim = limit
	}

	rows, err := r.handle().Query(ctx, bookingSelect+`
		ORDER BY b.created_at DESC, b.id
		LIMIT $1 OFFSET $2
	`, lim, max(offset, 0))
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	return collectBookings(rows, op)
}
