package admin

import (
	"errors"

	"github.com/A7k6h7i0/sports-facility-booking/internal/domain"
)

var (
	ErrRuleNotFound      = errors.New("pricing rule not found")
	ErrRuleConflict      = errors.New("pricing rule with this name already exists")
	ErrInvalidRule       = domain.ErrInvalidRule
	ErrCourtNotFound     = errors.New("court not found")
	ErrEquipmentNotFound = errors.New("equipment not found")
	ErrCoachNotFound     = errors.New("coach not found")
)
