package postgres

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/A7k6h7i0/sports-facility-booking/internal/domain"
)

type CourtRepo struct {
	pool *pgxpool.Pool
	db   DB
}

func (r *CourtRepo) With(db DB) *CourtRepo {
	cp := *r
	cp.db = db
	return &cp
}

func (r *CourtRepo) handle() DB {
	if r.db != nil {
		return r.db
	}
	return r.pool
}

const courtColumns = `id, name, type, sport, base_price_per_hour, is_active, capacity,
	description, amenities, created_at, updated_at`

func scanCourt(row pgx.Row) (*domain.Court, error) {
	var c domain.Court
	err := row.Scan(
		&c.ID, &c.Name, &c.Type, &c.Sport, &c.BasePricePerHour, &c.IsActive, &c.Capacity,
		&c.Description, &c.Amenities, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// GetCourt returns a court by id.
//
// Returns:
//   - error: repository.ErrNotFound if no court has the id.
func (r *CourtRepo) GetCourt(ctx context.Context, id uuid.UUID) (*domain.Court, error) {
	const op = "postgres.CourtRepo.GetCourt"

	c, err := scanCourt(r.handle().QueryRow(ctx, `SELECT `+courtColumns+` FROM courts WHERE id = $1`, id))
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	return c, nil
}

// ListCourts returns courts ordered by name, optionally only the active ones.
func (r *CourtRepo) ListCourts(ctx context.Context, activeOnly bool) ([]domain.Court, error) {
	const op = "postgres.CourtRepo.ListCourts"

	rows, err := r.handle().Query(ctx, `
		SELECT `+courtColumns+`
		FROM courts
		WHERE is_active OR NOT $1
		ORDER BY name, created_at
	`, activeOnly)
	if err != nil {
		return nil, wrapDBErr(op, err)
	}
	defer rows.Close()

	var out []domain.Court
	for rows.Next() {
		c, err := scanCourt(rows)
		if err != nil {
			return nil, wrapDBErr(op, err)
		}
		out = append(out, *c)
	}

	if err := rows.Err(); err != nil {
		return nil, wrapDBErr(op, err)
	}

	return out, nil
}

// ToggleCourt flips is_active and returns the updated court.
func (r *CourtRepo) ToggleCourt(ctx context.Context, id uuid.UUID) (*domain.Court, error) {
	const op = "postgres.CourtRepo.ToggleCourt"

	c, err := scanCourt(r.handle().QueryRow(ctx, `
		UPDATE courts
		SET is_active = NOT is_active, updated_at = now()
		WHERE id = $1
		RETURNING `+courtColumns, id))
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	return c, nil
}
