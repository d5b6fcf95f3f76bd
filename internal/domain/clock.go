package domain

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

const (
	MinutesPerDay = 24 * 60
	DateLayout    = "2006-01-02"
)

// ParseClock converts "HH:MM" to minutes since midnight. "24:00" is accepted
// so that a window can run to the end of the day.
func ParseClock(s string) (int, error) {
	hh, mm, ok := strings.Cut(s, ":")
	if !ok || len(hh) != 2 || len(mm) != 2 {
		return 0, fmt.Errorf("invalid clock %q: want HH:MM", s)
	}

	h, err := strconv.Atoi(hh)
	if err != nil {
		return 0, fmt.Errorf("invalid clock %q: %w", s, err)
	}

	m, err := strconv.Atoi(mm)
	if err != nil {
		return 0, fmt.Errorf("invalid clock %q: %w", s, err)
	}

	if h < 0 || m < 0 || m > 59 || h > 24 || (h == 24 && m != 0) {
		return 0, fmt.Errorf("invalid clock %q: out of range", s)
	}

	return h*60 + m, nil
}

// MinuteOfDay returns minutes elapsed since local midnight of t's location.
func MinuteOfDay(t time.Time) int {
	return t.Hour()*60 + t.Minute()
}

// DayStart returns midnight of the calendar day of t in t's location.
func DayStart(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// WeekdayName is used in user facing reasons.
func WeekdayName(day int) string {
	return time.Weekday(day).String()
}

// DatesSpanned lists the calendar dates in loc that iv touches, in order.
// The end instant itself is excluded, so a booking ending at midnight does
// not spill into the next day.
func DatesSpanned(iv Interval, loc *time.Location) []string {
	if loc == nil {
		loc = time.UTC
	}

	last := DayStart(iv.End.Add(-time.Nanosecond).In(loc))

	var out []string
	for d := DayStart(iv.Start.In(loc)); !d.After(last); d = d.AddDate(0, 0, 1) {
		out = append(out, d.Format(DateLayout))
	}

	return out
}

// DayInterval is the facility-local calendar day named by date ("2006-01-02").
func DayInterval(date string, loc *time.Location) (Interval, error) {
	if loc == nil {
		loc = time.UTC
	}

	start, err := time.ParseInLocation(DateLayout, date, loc)
	if err != nil {
		return Interval{}, fmt.Errorf("invalid date %q: want YYYY-MM-DD", date)
	}

	return Interval{Start: start, End: start.AddDate(0, 0, 1)}, nil
}
