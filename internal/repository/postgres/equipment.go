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

type EquipmentRepo struct {
	pool *pgxpool.Pool
	db   DB
}

func (r *EquipmentRepo) With(db DB) *EquipmentRepo {
	cp := *r
	cp.db = db
	return &cp
}

func (r *EquipmentRepo) handle() DB {
	if r.db != nil {
		return r.db
	}
	return r.pool
}

const equipmentColumns = `id, name, category, price_per_hour, total_quantity, available_quantity,
	is_active, description, created_at, updated_at`

func scanEquipment(row pgx.Row) (*domain.Equipment, error) {
	var e domain.Equipment
	err := row.Scan(
		&e.ID, &e.Name, &e.Category, &e.PricePerHour, &e.TotalQuantity, &e.AvailableQuantity,
		&e.IsActive, &e.Description, &e.CreatedAt, &e.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &e, nil
}

func (r *EquipmentRepo) GetEquipment(ctx context.Context, id uuid.UUID) (*domain.Equipment, error) {
	const op = "postgres.EquipmentRepo.GetEquipment"

	e, err := scanEquipment(r.handle().QueryRow(ctx, `SELECT `+equipmentColumns+` FROM equipment WHERE id = $1`, id))
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	return e, nil
}

func (r *EquipmentRepo) ListEquipment(ctx context.Context, activeOnly bool) ([]domain.Equipment, error) {
	const op = "postgres.EquipmentRepo.ListEquipment"

	rows, err := r.handle().Query(ctx, `
		SELECT `+equipmentColumns+`
		FROM equipment
		WHERE is_active OR NOT $1
		ORDER BY name, created_at
	`, activeOnly)
	if err != nil {
		return nil, wrapDBErr(op, err)
	}
	defer rows.Close()

	var out []domain.Equipment
	for rows.Next() {
		e, err := scanEquipment(rows)
		if err != nil {
			return nil, wrapDBErr(op, err)
		}
		out = append(out, *e)
	}

	if err := rows.Err(); err != nil {
		return nil, wrapDBErr(op, err)
	}

	return out, nil
}

func (r *EquipmentRepo) ToggleEquipment(ctx context.Context, id uuid.UUID) (*domain.Equipment, error) {
	const op = "postgres.EquipmentRepo.ToggleEquipment"

	e, err := scanEquipment(r.handle().QueryRow(ctx, `
		UPDATE equipment
		SET is_active = NOT is_active, updated_at = now()
		WHERE id = $1
		RETURNING `+equipmentColumns, id))
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	return e, nil
}

// ReserveEquipment takes qty units out of available stock in one guarded
// statement.
//
// Returns:
//   - error: repository.ErrInsufficientStock if fewer than qty units are available.
//   - error: repository.ErrNotFound if the item does not exist.
func (r *EquipmentRepo) ReserveEquipment(ctx context.Context, id uuid.UUID, qty int) error {
	const op = "postgres.EquipmentRepo.ReserveEquipment"

	tag, err := r.handle().Exec(ctx, `
		UPDATE equipment
		SET available_quantity = available_quantity - $2, updated_at = now()
		WHERE id = $1 AND available_quantity >= $2
	`, id, qty)
	if err != nil {
		return wrapDBErr(op, err)
	}

	if tag.RowsAffected() == 1 {
		return nil
	}

	if err := r.exists(ctx, id); err != nil {
		return wrapDBErr(op, err)
	}

	return fmt.Errorf("%s:%w", op, repository.ErrInsufficientStock)
}

// ReleaseEquipment returns qty units to stock, capped at total stock.
func (r *EquipmentRepo) ReleaseEquipment(ctx context.Context, id uuid.UUID, qty int) error {
	const op = "postgres.EquipmentRepo.ReleaseEquipment"

	tag, err := r.handle().Exec(ctx, `
		UPDATE equipment
		SET available_quantity = LEAST(total_quantity, available_quantity + $2), updated_at = now()
		WHERE id = $1
	`, id, qty)
	if err != nil {
		return wrapDBErr(op, err)
	}

	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%s:%w", op, repository.ErrNotFound)
	}

	return nil
}

func (r *EquipmentRepo) exists(ctx context.Context, id uuid.UUID) error {
	var ok bool
	if err := r.handle().QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM equipment WHERE id = $1)`, id).Scan(&ok); err != nil {
		return err
	}
	if !ok {
		return repository.ErrNotFound
	}
	return nil
}
