package admin

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/A7k6h7i0/sports-facility-booking/internal/domain"
	"github.com/A7k6h7i0/sports-facility-booking/internal/repository"
	redisrepo "github.com/A7k6h7i0/sports-facility-booking/internal/repository/redis"
	"github.com/A7k6h7i0/sports-facility-booking/internal/uow"
)

type Service struct {
	store repository.Store
	cache *redisrepo.Cache
	uow   *uow.UoW
}

func New(store repository.Store, cache *redisrepo.Cache) *Service {
	return &Service{
		store: store,
		cache: cache,
		uow:   uow.NewUoW(store),
	}
}

// ListRules returns every pricing rule, highest priority first.
func (s *Service) ListRules(ctx context.Context) ([]domain.PricingRule, error) {
	const op = "service.admin.ListRules"

	rules, err := s.store.ListPricingRules(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	return rules, nil
}

// GetRule returns a single pricing rule.
//
// Returns:
//   - error: admin.ErrRuleNotFound if the rule does not exist.
func (s *Service) GetRule(ctx context.Context, id uuid.UUID) (*domain.PricingRule, error) {
	const op = "service.admin.GetRule"

	rule, err := s.store.GetPricingRule(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%s:%w", op, ErrRuleNotFound)
		}
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	return rule, nil
}

// CreateRule validates and stores a new pricing rule. The rule receives a
// fresh ID and its timestamps.
//
// Parameters:
//   - ctx: request-scoped context.
//   - rule: the rule to create. Its ID is ignored.
//
// Returns:
//   - *domain.PricingRule: the stored rule.
//   - error: admin.ErrInvalidRule if validation fails.
//   - error: admin.ErrRuleConflict if another rule has the same name.
func (s *Service) CreateRule(ctx context.Context, rule domain.PricingRule) (*domain.PricingRule, error) {
	const op = "service.admin.CreateRule"

	if err := rule.Validate(); err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	rule.ID = uuid.New()

	err := s.uow.Do(ctx, func(ctx context.Context, tx repository.Tx, after func(uow.AfterCommit)) error {
		if err := tx.CreatePricingRule(ctx, &rule); err != nil {
			if errors.Is(err, repository.ErrConflict) {
				return fmt.Errorf("%s:%w", op, ErrRuleConflict)
			}
			return fmt.Errorf("%s:%w", op, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &rule, nil
}

// UpdateRule replaces every field of an existing rule.
//
// Returns:
//   - error: admin.ErrInvalidRule if validation fails.
//   - error: admin.ErrRuleNotFound if the rule does not exist.
//   - error: admin.ErrRuleConflict if another rule has the same name.
func (s *Service) UpdateRule(ctx context.Context, id uuid.UUID, rule domain.PricingRule) (*domain.PricingRule, error) {
	const op = "service.admin.UpdateRule"

	if err := rule.Validate(); err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	rule.ID = id

	err := s.uow.Do(ctx, func(ctx context.Context, tx repository.Tx, after func(uow.AfterCommit)) error {
		if err := tx.UpdatePricingRule(ctx, &rule); err != nil {
			switch {
			case errors.Is(err, repository.ErrNotFound):
				return fmt.Errorf("%s:%w", op, ErrRuleNotFound)
			case errors.Is(err, repository.ErrConflict):
				return fmt.Errorf("%s:%w", op, ErrRuleConflict)
			}
			return fmt.Errorf("%s:%w", op, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &rule, nil
}

// DeleteRule removes a pricing rule. Bookings keep the rules they were
// priced with.
//
// Returns:
//   - error: admin.ErrRuleNotFound if the rule does not exist.
func (s *Service) DeleteRule(ctx context.Context, id uuid.UUID) error {
	const op = "service.admin.DeleteRule"

	return s.uow.Do(ctx, func(ctx context.Context, tx repository.Tx, after func(uow.AfterCommit)) error {
		if err := tx.DeletePricingRule(ctx, id); err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return fmt.Errorf("%s:%w", op, ErrRuleNotFound)
			}
			return fmt.Errorf("%s:%w", op, err)
		}
		return nil
	})
}

// ToggleCourt flips the active flag of a court. Inactive courts fail every
// availability check but keep their bookings.
//
// Returns:
//   - error: admin.ErrCourtNotFound if the court does not exist.
func (s *Service) ToggleCourt(ctx context.Context, id uuid.UUID) (*domain.Court, error) {
	const op = "service.admin.ToggleCourt"

	var court *domain.Court

	err := s.uow.Do(ctx, func(ctx context.Context, tx repository.Tx, after func(uow.AfterCommit)) error {
		var err error
		court, err = tx.ToggleCourt(ctx, id)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return fmt.Errorf("%s:%w", op, ErrCourtNotFound)
			}
			return fmt.Errorf("%s:%w", op, err)
		}

		after(func(ctx context.Context) {
			_ = s.cache.InvalidateCourt(ctx, id)
		})

		return nil
	})

	return court, err
}

// ToggleEquipment flips the active flag of an equipment item.
//
// Returns:
//   - error: admin.ErrEquipmentNotFound if the item does not exist.
func (s *Service) ToggleEquipment(ctx context.Context, id uuid.UUID) (*domain.Equipment, error) {
	const op = "service.admin.ToggleEquipment"

	var item *domain.Equipment

	err := s.uow.Do(ctx, func(ctx context.Context, tx repository.Tx, after func(uow.AfterCommit)) error {
		var err error
		item, err = tx.ToggleEquipment(ctx, id)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return fmt.Errorf("%s:%w", op, ErrEquipmentNotFound)
			}
			return fmt.Errorf("%s:%w", op, err)
		}

		after(func(ctx context.Context) {
			_ = s.cache.InvalidateEquipment(ctx, id)
		})

		return nil
	})

	return item, err
}

// ToggleCoach flips the active flag of a coach.
//
// Returns:
//   - error: admin.ErrCoachNotFound if the coach does not exist.
func (s *Service) ToggleCoach(ctx context.Context, id uuid.UUID) (*domain.Coach, error) {
	const op = "service.admin.ToggleCoach"

	var coach *domain.Coach

	err := s.uow.Do(ctx, func(ctx context.Context, tx repository.Tx, after func(uow.AfterCommit)) error {
		var err error
		coach, err = tx.ToggleCoach(ctx, id)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return fmt.Errorf("%s:%w", op, ErrCoachNotFound)
			}
			return fmt.Errorf("%s:%w", op, err)
		}

		after(func(ctx context.Context) {
			_ = s.cache.InvalidateCoach(ctx, id)
		})

		return nil
	})

	return coach, err
}
