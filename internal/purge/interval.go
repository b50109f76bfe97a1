package purge

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"cashbook/internal/core"
)

var ErrInvalidInterval = errors.New("invalid interval")

// Interval is the half-open range [Start, End).
type Interval struct {
	Start time.Time
	End   time.Time
}

// Contains reports whether t falls inside the interval.
func (i Interval) Contains(t time.Time) bool {
	return !t.Before(i.Start) && t.Before(i.End)
}

// Validate rejects empty and inverted intervals.
func (i Interval) Validate() error {
	if !i.End.After(i.Start) {
		return fmt.Errorf("%w: end %s is not after start %s", ErrInvalidInterval,
			i.End.Format(time.RFC3339), i.Start.Format(time.RFC3339))
	}
	return nil
}

func (i Interval) String() string {
	return fmt.Sprintf("[%s, %s)", i.Start.Format(time.RFC3339), i.End.Format(time.RFC3339))
}

func midnight(t time.Time, loc *time.Location) time.Time {
	t = t.In(loc)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
}

// nextMidnight is the exclusive end of the day containing t.
func nextMidnight(t time.Time, loc *time.Location) time.Time {
	m := midnight(t, loc)
	return time.Date(m.Year(), m.Month(), m.Day()+1, 0, 0, 0, 0, loc)
}

// Today covers the current local day.
func Today(now time.Time, loc *time.Location) Interval {
	return Interval{Start: midnight(now, loc), End: nextMidnight(now, loc)}
}

// ThisMonth covers the current local calendar month.
func ThisMonth(now time.Time, loc *time.Location) Interval {
	n := now.In(loc)
	return Interval{
		Start: time.Date(n.Year(), n.Month(), 1, 0, 0, 0, 0, loc),
		End:   time.Date(n.Year(), n.Month()+1, 1, 0, 0, 0, 0, loc),
	}
}

// AllTime is the widest interval, 1970-01-01 up to 3000-01-01.
func AllTime(loc *time.Location) Interval {
	return Interval{
		Start: time.Date(1970, time.January, 1, 0, 0, 0, 0, loc),
		End:   time.Date(3000, time.January, 1, 0, 0, 0, 0, loc),
	}
}

// DayInterval covers one YYYY-MM-DD day.
func DayInterval(day string, loc *time.Location) (Interval, error) {
	start, err := core.ParseDayIn(day, loc)
	if err != nil {
		return Interval{}, fmt.Errorf("%w: day %q", ErrInvalidInterval, day)
	}
	return Interval{Start: start, End: nextMidnight(start, loc)}, nil
}

// MonthInterval covers one YYYY-MM month.
func MonthInterval(month string, loc *time.Location) (Interval, error) {
	t, err := time.ParseInLocation("2006-01", strings.TrimSpace(month), loc)
	if err != nil {
		return Interval{}, fmt.Errorf("%w: month %q", ErrInvalidInterval, month)
	}
	return Interval{Start: t, End: time.Date(t.Year(), t.Month()+1, 1, 0, 0, 0, 0, loc)}, nil
}

// RangeInterval covers startDay through endDay, both inclusive.
func RangeInterval(startDay, endDay string, loc *time.Location) (Interval, error) {
	start, err := core.ParseDayIn(startDay, loc)
	if err != nil {
		return Interval{}, fmt.Errorf("%w: start %q", ErrInvalidInterval, startDay)
	}
	end, err := core.ParseDayIn(endDay, loc)
	if err != nil {
		return Interval{}, fmt.Errorf("%w: end %q", ErrInvalidInterval, endDay)
	}
	iv := Interval{Start: start, End: nextMidnight(end, loc)}
	if err := iv.Validate(); err != nil {
		return Interval{}, err
	}
	return iv, nil
}
