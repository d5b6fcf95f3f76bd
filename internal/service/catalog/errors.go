package catalog

import (
	"errors"
)

var (
	ErrCourtNotFound     = errors.New("court not found")
	ErrEquipmentNotFound = errors.New("equipment not found")
	ErrCoachNotFound     = errors.New("coach not found")
	ErrInvalidDate       = errors.New("invalid date, want YYYY-MM-DD")
)
