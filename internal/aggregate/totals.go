// Package aggregate derives the dashboard views from raw transfer and expense
// records. Every function is pure: the roster and clock come in as arguments
// and malformed records degrade to zero amounts or the current time.
package aggregate

import (
	"fmt"
	"time"

	"cashbook/internal/core"

	"github.com/shopspring/decimal"
)

// nameIndex maps normalized names to their display form.
func nameIndex(names []string) map[string]string {
	idx := make(map[string]string, len(names))
	for _, n := range names {
		idx[core.NormalizeName(n)] = n
	}
	return idx
}

// Totals sums every transfer into the grand total and into the bucket of its
// receiver when the receiver is tracked. Untracked receivers count only
// towards the grand total.
func Totals(transfers []core.TransferRecord, receivers []string) core.TotalsView {
	view := core.NewTotalsView(receivers)
	idx := nameIndex(receivers)
	for _, t := range transfers {
		amount := t.Amount.Value()
		view.Total = view.Total.Add(amount)
		if name, ok := idx[core.NormalizeName(t.Receiver)]; ok {
			view.ByReceiver[name] = view.ByReceiver[name].Add(amount)
		}
	}
	return view
}

// EmptyDaily returns the zero series for a month, the value shown when the
// underlying read fails.
func EmptyDaily(year int, month time.Month, receivers []string) core.DailySeries {
	n := core.DaysIn(year, month)
	series := core.DailySeries{Year: year, Month: month, Days: make([]core.DayBucket, n)}
	for i := range series.Days {
		bucket := core.DayBucket{Day: i + 1, ByPerson: make(map[string]decimal.Decimal, len(receivers))}
		for _, r := range receivers {
			bucket.ByPerson[r] = decimal.Zero
		}
		series.Days[i] = bucket
	}
	return series
}

// TransferTime picks the date of a transfer for the daily series: the first
// present of date, createdAt and timestamp. A field that is present but
// unreadable falls back to now, so undated transfers land in the current month.
func TransferTime(t core.TransferRecord, loc *time.Location, now time.Time) time.Time {
	return core.ResolveOr(core.FirstPresent(t.Date, t.CreatedAt, t.Timestamp), loc, now)
}

// Daily buckets transfers of the selected month by day and receiver.
// Transfers outside the month are ignored here but still count in Totals.
func Daily(transfers []core.TransferRecord, receivers []string, year int, month time.Month, loc *time.Location, now time.Time) (core.DailySeries, error) {
	if month < time.January || month > time.December {
		return core.DailySeries{}, fmt.Errorf("%w: %d", core.ErrInvalidMonth, month)
	}
	if loc == nil {
		loc = time.Local
	}
	series := EmptyDaily(year, month, receivers)
	idx := nameIndex(receivers)
	for _, t := range transfers {
		when := TransferTime(t, loc, now).In(loc)
		if when.Year() != year || when.Month() != month {
			continue
		}
		name, ok := idx[core.NormalizeName(t.Receiver)]
		if !ok {
			continue
		}
		bucket := series.Days[when.Day()-1]
		bucket.ByPerson[name] = bucket.ByPerson[name].Add(t.Amount.Value())
	}
	return series, nil
}

// Breakdown splits expenses by roster person and type. Every amount reaches
// Total; only matching name and type reach a person bucket.
func Breakdown(expenses []core.ExpenseRecord, names []string) core.ExpenseBreakdown {
	out := core.NewExpenseBreakdown(names)
	idx := nameIndex(names)
	for _, e := range expenses {
		amount := e.Amount.Value()
		out.Total = out.Total.Add(amount)

		name, ok := idx[core.NormalizeName(e.Name)]
		if !ok {
			continue
		}
		cat := out.ByPerson[name]
		switch core.NormalizeName(e.Type) {
		case "office":
			cat.Office = cat.Office.Add(amount)
		case "personal":
			cat.Personal = cat.Personal.Add(amount)
		default:
			continue
		}
		out.ByPerson[name] = cat
	}
	return out
}
