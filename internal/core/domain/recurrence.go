package domain

import (
	"errors"
	"time"
)

// DefaultMaxOccurrences bounds a weekly series to two years.
const DefaultMaxOccurrences = 104

var (
	ErrRecurrenceEndBeforeStart = errors.New("recurrence end date is before the first occurrence")
	ErrTooManyOccurrences       = errors.New("recurrence produces too many occurrences")
)

// Occurrence is one interval of a recurring series.
type Occurrence struct {
	Index int       `json:"index"`
	Start time.Time `json:"start_time"`
	End   time.Time `json:"end_time"`
}

// WeeklyOccurrences expands [start, end) into one interval every 7 days,
// from start's date through until's date inclusive, keeping the wall-clock
// time of day in start's location. max <= 0 disables the bound.
func WeeklyOccurrences(start, end, until time.Time, max int) ([]Occurrence, error) {
	if !start.Before(end) {
		return nil, ErrInvalidInterval
	}
	loc := start.Location()
	lastDay := dateOf(until.In(loc))
	if lastDay.Before(dateOf(start)) {
		return nil, ErrRecurrenceEndBeforeStart
	}

	length := end.Sub(start)
	var out []Occurrence
	for week := 0; ; week++ {
		occStart := start.AddDate(0, 0, 7*week)
		if dateOf(occStart).After(lastDay) {
			break
		}
		if max > 0 && len(out) == max {
			return nil, ErrTooManyOccurrences
		}
		out = append(out, Occurrence{Index: week, Start: occStart, End: occStart.Add(length)})
	}
	return out, nil
}

func dateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
