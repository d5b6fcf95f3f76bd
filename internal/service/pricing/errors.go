package pricing

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

var ErrCourtNotFound = errors.New("court not found")

type CourtNotFoundError struct {
	CourtID uuid.UUID
}

func (e CourtNotFoundError) Error() string {
	return fmt.Sprintf("court not found: %s", e.CourtID)
}

func (e CourtNotFoundError) Is(target error) bool {
	return target == ErrCourtNotFound
}
