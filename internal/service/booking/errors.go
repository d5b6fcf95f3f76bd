package booking

import (
	"errors"
	"fmt"
	"time"

	"github.com/A7k6h7i0/sports-facility-booking/internal/service/availability"
)

var (
	ErrBookingNotFound     = errors.New("booking not found")
	ErrUnauthorized        = errors.New("not allowed to access this booking")
	ErrAlreadyCancelled    = errors.New("booking is already cancelled")
	ErrNotCancellable      = errors.New("booking can no longer be cancelled")
	ErrResourceUnavailable = errors.New("requested resources are not available")
	ErrTransactionAborted  = errors.New("booking transaction aborted, retry the request")
	ErrStoreFault          = errors.New("booking store failure")
	ErrRateLimited         = errors.New("too many booking requests")
)

// UnavailableError carries the itemized availability result that made a
// create fail.
type UnavailableError struct {
	Result *availability.Result
}

func (e UnavailableError) Error() string {
	if e.Result == nil || len(e.Result.Errors) == 0 {
		return ErrResourceUnavailable.Error()
	}
	return e.Result.Reason()
}

func (e UnavailableError) Is(target error) bool {
	return target == ErrResourceUnavailable
}

type RateLimitedError struct {
	RetryAfter time.Duration
}

func (e RateLimitedError) Error() string {
	return fmt.Sprintf("too many booking requests, retry in %s", e.RetryAfter)
}

func (e RateLimitedError) Is(target error) bool {
	return target == ErrRateLimited
}
