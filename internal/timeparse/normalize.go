// Package timeparse converts heterogeneous date/time form input into a
// canonical absolute instant. Browsers disagree about the time input format:
// most produce 24-hour "HH:MM", some produce "HH:MM a.m./p.m.".
package timeparse

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ErrInvalidTimeInput marks input that does not resolve to a valid instant.
// Callers must not submit a mutation carrying such a value.
var ErrInvalidTimeInput = errors.New("invalid date or time, please use the standard format")

const layout = "2006-01-02T15:04"

// Normalize joins date ("YYYY-MM-DD") and timeOfDay ("HH:MM" or
// "HH:MM <period>") into an instant in loc, canonicalized to UTC.
//
// A period token containing 'p' lifts hours below 12 into the afternoon;
// one containing 'a' folds 12 back to midnight. Input already in 24-hour
// form passes through untouched apart from the concatenation.
func Normalize(date, timeOfDay string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.Local
	}

	tod := strings.TrimSpace(timeOfDay)
	if i := strings.IndexByte(tod, ' '); i >= 0 {
		clock := tod[:i]
		period := strings.ToLower(strings.TrimSpace(tod[i+1:]))

		hour, minute, ok := splitClock(clock)
		if !ok {
			return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidTimeInput, timeOfDay)
		}
		if strings.Contains(period, "p") && hour < 12 {
			hour += 12
		}
		if strings.Contains(period, "a") && hour == 12 {
			hour = 0
		}
		tod = fmt.Sprintf("%02d:%02d", hour, minute)
	}

	t, err := time.ParseInLocation(layout, date+"T"+tod, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q %q", ErrInvalidTimeInput, date, timeOfDay)
	}
	return t.UTC(), nil
}

func splitClock(s string) (hour, minute int, ok bool) {
	hh, mm, found := strings.Cut(s, ":")
	if !found {
		return 0, 0, false
	}
	h, err := strconv.Atoi(hh)
	if err != nil {
		return 0, 0, false
	}
	m, err := strconv.Atoi(mm)
	if err != nil {
		return 0, 0, false
	}
	return h, m, true
}
