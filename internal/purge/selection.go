package purge

import (
	"errors"
	"fmt"
	"time"

	"cashbook/internal/core"
)

// Scope picks which collections a deletion touches.
type Scope string

const (
	ScopeAll       Scope = "all"
	ScopeTransfers Scope = "transfers"
	ScopeExpenses  Scope = "expenses"
)

var ErrInvalidScope = errors.New("invalid scope")

func ParseScope(s string) (Scope, error) {
	switch Scope(core.NormalizeName(s)) {
	case ScopeAll, "":
		return ScopeAll, nil
	case ScopeTransfers:
		return ScopeTransfers, nil
	case ScopeExpenses:
		return ScopeExpenses, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidScope, s)
	}
}

// Preset names the one-click deletions. Presets always cover both collections.
type Preset string

const (
	PresetToday     Preset = "today"
	PresetThisMonth Preset = "thisMonth"
	PresetAllTime   Preset = "allTime"
)

// Mode names the custom deletions.
type Mode string

const (
	ModeDay   Mode = "day"
	ModeMonth Mode = "month"
	ModeRange Mode = "range"
)

// Selection is a deletion request as submitted: either a preset, or a scope
// with a custom mode and its inputs.
type Selection struct {
	Preset Preset `json:"preset,omitempty"`
	Scope  string `json:"scope,omitempty"`
	Mode   Mode   `json:"mode,omitempty"`
	Day    string `json:"day,omitempty"`
	Month  string `json:"month,omitempty"`
	Start  string `json:"start,omitempty"`
	End    string `json:"end,omitempty"`
}

// Resolve turns a selection into a scope and interval.
func (s Selection) Resolve(now time.Time, loc *time.Location) (Scope, Interval, error) {
	if s.Preset != "" {
		switch s.Preset {
		case PresetToday:
			return ScopeAll, Today(now, loc), nil
		case PresetThisMonth:
			return ScopeAll, ThisMonth(now, loc), nil
		case PresetAllTime:
			return ScopeAll, AllTime(loc), nil
		default:
			return "", Interval{}, fmt.Errorf("%w: unknown preset %q", ErrInvalidInterval, s.Preset)
		}
	}

	scope, err := ParseScope(s.Scope)
	if err != nil {
		return "", Interval{}, err
	}
	var iv Interval
	switch s.Mode {
	case ModeDay:
		iv, err = DayInterval(s.Day, loc)
	case ModeMonth:
		iv, err = MonthInterval(s.Month, loc)
	case ModeRange:
		iv, err = RangeInterval(s.Start, s.End, loc)
	default:
		err = fmt.Errorf("%w: unknown mode %q", ErrInvalidInterval, s.Mode)
	}
	if err != nil {
		return "", Interval{}, err
	}
	return scope, iv, nil
}
