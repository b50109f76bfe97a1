package aggregate

import (
	"errors"
	"sort"
	"strings"
	"time"

	"cashbook/internal/core"
)

// DefaultFeedSize is how many entries the merged feed keeps.
const DefaultFeedSize = 20

// Filter selects which kinds of entries an activity listing shows.
type Filter string

const (
	FilterAll       Filter = "All"
	FilterTransfers Filter = "Transfers"
	FilterExpenses  Filter = "Expenses"
)

var ErrInvalidFilter = errors.New("invalid activity filter")

// ParseFilter accepts the filter names case-insensitively. Empty means all.
func ParseFilter(s string) (Filter, error) {
	switch core.NormalizeName(s) {
	case "", "all":
		return FilterAll, nil
	case "transfers", "transfer":
		return FilterTransfers, nil
	case "expenses", "expense":
		return FilterExpenses, nil
	default:
		return "", ErrInvalidFilter
	}
}

// TransferActivity normalizes a transfer into a feed entry.
func TransferActivity(t core.TransferRecord, loc *time.Location, now time.Time) core.Activity {
	sender := t.Sender
	if sender == "" {
		sender = core.DefaultSender
	}
	title := t.PaymentMethod
	if title == "" {
		title = "Transfer"
	}
	return core.Activity{
		Kind:      core.ActivityTransfer,
		ID:        t.ID,
		Name:      strings.TrimSpace(sender + " → " + t.Receiver),
		Title:     title,
		Amount:    t.Amount.Value(),
		Status:    core.StatusSuccess,
		Timestamp: core.ResolveOr(core.FirstPresent(t.Date, t.CreatedAt), loc, now),
	}
}

// ExpenseActivity normalizes an expense into a feed entry.
func ExpenseActivity(e core.ExpenseRecord, loc *time.Location, now time.Time) core.Activity {
	name := e.Name
	if name == "" {
		name = core.DefaultSender
	}
	title := e.Title
	switch {
	case title != "":
	case e.Type != "":
		title = e.Type + " Expense"
	default:
		title = "Expense"
	}
	return core.Activity{
		Kind:      core.ActivityExpense,
		ID:        e.ID,
		Name:      name,
		Title:     title,
		Amount:    e.Amount.Value(),
		Status:    core.StatusSuccess,
		Timestamp: core.ResolveOr(core.FirstPresent(e.CreatedAt, e.Date), loc, now),
	}
}

// Activity merges both snapshots, newest first, keeping at most limit entries.
// The result depends only on the two inputs, never on which arrived first.
func Activity(transfers []core.TransferRecord, expenses []core.ExpenseRecord, limit int, loc *time.Location, now time.Time) []core.Activity {
	if limit <= 0 {
		limit = DefaultFeedSize
	}
	if loc == nil {
		loc = time.Local
	}
	items := make([]core.Activity, 0, len(transfers)+len(expenses))
	for _, t := range transfers {
		items = append(items, TransferActivity(t, loc, now))
	}
	for _, e := range expenses {
		items = append(items, ExpenseActivity(e, loc, now))
	}
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].Timestamp.After(items[j].Timestamp)
	})
	if len(items) > limit {
		items = items[:limit]
	}
	return items
}

// FilterActivity keeps entries of the requested kind.
func FilterActivity(items []core.Activity, f Filter) []core.Activity {
	if f == FilterAll || f == "" {
		return items
	}
	kind := core.ActivityTransfer
	if f == FilterExpenses {
		kind = core.ActivityExpense
	}
	out := make([]core.Activity, 0, len(items))
	for _, it := range items {
		if it.Kind == kind {
			out = append(out, it)
		}
	}
	return out
}
