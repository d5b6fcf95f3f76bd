package domain

import (
	"errors"
	"time"
)

var ErrInvalidDuration = errors.New("end time must be after start time")

// Interval is a half-open time range [Start, End).
type Interval struct {
	Start time.Time
	End   time.Time
}

func NewInterval(start, end time.Time) (Interval, error) {
	if !end.After(start) {
		return Interval{}, ErrInvalidDuration
	}
	return Interval{Start: start, End: end}, nil
}

// Overlaps reports whether two half-open intervals share an instant.
// Touching endpoints do not overlap.
func (i Interval) Overlaps(o Interval) bool {
	return i.Start.Before(o.End) && i.End.After(o.Start)
}

func (i Interval) Hours() float64 {
	return i.End.Sub(i.Start).Hours()
}
