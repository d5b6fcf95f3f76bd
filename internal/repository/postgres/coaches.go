package postgres

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/A7k6h7i0/sports-facility-booking/internal/domain"
)

type CoachRepo struct {
	pool *pgxpool.Pool
	db   DB
}

func (r *CoachRepo) With(db DB) *CoachRepo {
	cp := *r
	cp.db = db
	return &cp
}

func (r *CoachRepo) handle() DB {
	if r.db != nil {
		return r.db
	}
	return r.pool
}

const coachColumns = `id, name, specialization, price_per_hour, is_active, availability,
	bio, experience, rating, created_at, updated_at`

// scanCoach decodes the availability JSONB column straight into the window slice.
func scanCoach(row pgx.Row) (*domain.Coach, error) {
	var c domain.Coach
	err := row.Scan(
		&c.ID, &c.Name, &c.Specialization, &c.PricePerHour, &c.IsActive, &c.Availability,
		&c.Bio, &c.Experience, &c.Rating, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *CoachRepo) GetCoach(ctx context.Context, id uuid.UUID) (*domain.Coach, error) {
	const op = "postgres.CoachRepo.GetCoach"

	c, err := scanCoach(r.handle().QueryRow(ctx, `SELECT `+coachColumns+` FROM coaches WHERE id = $1`, id))
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	return c, nil
}

func (r *CoachRepo) ListCoaches(ctx context.Context, activeOnly bool) ([]domain.Coach, error) {
	const op = "postgres.CoachRepo.ListCoaches"

	rows, err := r.handle().Query(ctx, `
		SELECT `+coachColumns+`
		FROM coaches
		WHERE is_active OR NOT $1
		ORDER BY name, created_at
	`, activeOnly)
	if err != nil {
		return nil, wrapDBErr(op, err)
	}
	defer rows.Close()

	var out []domain.Coach
	for rows.Next() {
		c, err := scanCoach(rows)
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

func (r *CoachRepo) ToggleCoach(ctx context.Context, id uuid.UUID) (*domain.Coach, error) {
	const op = "postgres.CoachRepo.ToggleCoach"

	c, err := scanCoach(r.handle().QueryRow(ctx, `
		UPDATE coaches
		SET is_active = NOT is_active, updated_at = now()
		WHERE id = $1
		RETURNING `+coachColumns, id))
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	return c, nil
}
