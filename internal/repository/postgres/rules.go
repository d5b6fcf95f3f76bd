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

type RuleRepo struct {
	pool *pgxpool.Pool
	db   DB
}

func (r *RuleRepo) With(db DB) *RuleRepo {
	cp := *r
	cp.db = db
	return &cp
}

func (r *RuleRepo) handle() DB {
	if r.db != nil {
		return r.db
	}
	return r.pool
}

const ruleColumns = `id, name, description, rule_type, multiplier, conditions, priority,
	is_active, created_at, updated_at`

func scanRule(row pgx.Row) (*domain.PricingRule, error) {
	var p domain.PricingRule
	err := row.Scan(
		&p.ID, &p.Name, &p.Description, &p.RuleType, &p.Multiplier, &p.Conditions, &p.Priority,
		&p.IsActive, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *RuleRepo) listRules(ctx context.Context, op string, activeOnly bool) ([]domain.PricingRule, error) {
	rows, err := r.handle().Query(ctx, `
		SELECT `+ruleColumns+`
		FROM pricing_rules
		WHERE is_active OR NOT $1
		ORDER BY priority DESC, created_at
	`, activeOnly)
	if err != nil {
		return nil, wrapDBErr(op, err)
	}
	defer rows.Close()

	var out []domain.PricingRule
	for rows.Next() {
		p, err := scanRule(rows)
		if err != nil {
			return nil, wrapDBErr(op, err)
		}
		out = append(out, *p)
	}

	if err := rows.Err(); err != nil {
		return nil, wrapDBErr(op, err)
	}

	return out, nil
}

// ActivePricingRules returns rules with is_active set, highest priority first.
func (r *RuleRepo) ActivePricingRules(ctx context.Context) ([]domain.PricingRule, error) {
	return r.listRules(ctx, "postgres.RuleRepo.ActivePricingRules", true)
}

func (r *RuleRepo) ListPricingRules(ctx context.Context) ([]domain.PricingRule, error) {
	return r.listRules(ctx, "postgres.RuleRepo.ListPricingRules", false)
}

func (r *RuleRepo) GetPricingRule(ctx context.Context, id uuid.UUID) (*domain.PricingRule, error) {
	const op = "postgres.RuleRepo.GetPricingRule"

	p, err := scanRule(r.handle().QueryRow(ctx, `SELECT `+ruleColumns+` FROM pricing_rules WHERE id = $1`, id))
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	return p, nil
}

// CreatePricingRule inserts the rule, assigning an id when it has none, and
// fills in the timestamps.
//
// Returns:
//   - error: repository.ErrConflict if the name or id is taken.
func (r *RuleRepo) CreatePricingRule(ctx context.Context, p *domain.PricingRule) error {
	const op = "postgres.RuleRepo.CreatePricingRule"

	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}

	err := r.handle().QueryRow(ctx, `
		INSERT INTO pricing_rules (id, name, description, rule_type, multiplier, conditions, priority, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING created_at, updated_at
	`, p.ID, p.Name, p.Description, p.RuleType, p.Multiplier, p.Conditions, p.Priority, p.IsActive,
	).Scan(&p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return wrapDBErr(op, err)
	}

	return nil
}

func (r *RuleRepo) UpdatePricingRule(ctx context.Context, p *domain.PricingRule) error {
	const op = "postgres.RuleRepo.UpdatePricingRule"

	err := r.handle().QueryRow(ctx, `
		UPDATE pricing_rules
		SET name = $2, description = $3, rule_type = $4, multiplier = $5, conditions = $6,
			priority = $7, is_active = $8, updated_at = now()
		WHERE id = $1
		RETURNING created_at, updated_at
	`, p.ID, p.Name, p.Description, p.RuleType, p.Multiplier, p.Conditions, p.Priority, p.IsActive,
	).Scan(&p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return wrapDBErr(op, err)
	}

	return nil
}

func (r *RuleRepo) DeletePricingRule(ctx context.Context, id uuid.UUID) error {
	const op = "postgres.RuleRepo.DeletePricingRule"

	tag, err := r.handle().Exec(ctx, `DELETE FROM pricing_rules WHERE id = $1`, id)
	if err != nil {
		return wrapDBErr(op, err)
	}

	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%s:%w", op, repository.ErrNotFound)
	}

	return nil
}
