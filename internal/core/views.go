package core

import (
	"time"

	"github.com/shopspring/decimal"
)

// ActivityKind tags an activity entry with the collection it came from.
type ActivityKind string

const (
	ActivityTransfer ActivityKind = "transfer"
	ActivityExpense  ActivityKind = "expense"

	// StatusSuccess is the only status a stored record can have.
	StatusSuccess = "Success"
)

type (
	// TotalsView is the all-time transfer total plus one bucket per tracked receiver.
	TotalsView struct {
		Total      decimal.Decimal            `json:"total"`
		ByReceiver map[string]decimal.Decimal `json:"byReceiver"`
	}

	// DayBucket holds one day of the daily transfer series.
	DayBucket struct {
		Day      int                        `json:"day"`
		ByPerson map[string]decimal.Decimal `json:"byPerson"`
	}

	// DailySeries covers every day of one calendar month, in order.
	DailySeries struct {
		Year  int         `json:"year"`
		Month time.Month  `json:"month"`
		Days  []DayBucket `json:"days"`
	}

	// CategoryTotals splits a person's expenses by type.
	CategoryTotals struct {
		Office   decimal.Decimal `json:"office"`
		Personal decimal.Decimal `json:"personal"`
	}

	// ExpenseBreakdown is expenses per roster person and type. Total covers
	// every expense, matched or not.
	ExpenseBreakdown struct {
		ByPerson map[string]CategoryTotals `json:"byPerson"`
		Total    decimal.Decimal           `json:"total"`
	}

	// Activity is one normalized entry of the merged feed.
	Activity struct {
		Kind      ActivityKind    `json:"type"`
		ID        string          `json:"id"`
		Name      string          `json:"name"`
		Title     string          `json:"title"`
		Amount    decimal.Decimal `json:"amount"`
		Status    string          `json:"status"`
		Timestamp time.Time       `json:"timestamp"`
	}
)

// NewTotalsView returns a zero view with a bucket for every receiver.
func NewTotalsView(receivers []string) TotalsView {
	v := TotalsView{Total: decimal.Zero, ByReceiver: make(map[string]decimal.Decimal, len(receivers))}
	for _, r := range receivers {
		v.ByReceiver[r] = decimal.Zero
	}
	return v
}

// NewExpenseBreakdown returns a zero breakdown for names.
func NewExpenseBreakdown(names []string) ExpenseBreakdown {
	b := ExpenseBreakdown{Total: decimal.Zero, ByPerson: make(map[string]CategoryTotals, len(names))}
	for _, n := range names {
		b.ByPerson[n] = CategoryTotals{Office: decimal.Zero, Personal: decimal.Zero}
	}
	return b
}

// Clone returns a deep copy so cached views can be handed out safely.
func (v TotalsView) Clone() TotalsView {
	out := TotalsView{Total: v.Total, ByReceiver: make(map[string]decimal.Decimal, len(v.ByReceiver))}
	for k, d := range v.ByReceiver {
		out.ByReceiver[k] = d
	}
	return out
}

// Clone returns a deep copy of the series.
func (s DailySeries) Clone() DailySeries {
	out := DailySeries{Year: s.Year, Month: s.Month, Days: make([]DayBucket, len(s.Days))}
	for i, d := range s.Days {
		b := DayBucket{Day: d.Day, ByPerson: make(map[string]decimal.Decimal, len(d.ByPerson))}
		for k, v := range d.ByPerson {
			b.ByPerson[k] = v
		}
		out.Days[i] = b
	}
	return out
}

// Clone returns a deep copy of the breakdown.
func (b ExpenseBreakdown) Clone() ExpenseBreakdown {
	out := ExpenseBreakdown{Total: b.Total, ByPerson: make(map[string]CategoryTotals, len(b.ByPerson))}
	for k, v := range b.ByPerson {
		out.ByPerson[k] = v
	}
	return out
}

// Add applies amount to the total and, when known, to the receiver bucket.
func (v *TotalsView) Add(receiver string, amount decimal.Decimal) {
	v.Total = v.Total.Add(amount)
	for name, cur := range v.ByReceiver {
		if SameName(name, receiver) {
			v.ByReceiver[name] = cur.Add(amount)
			return
		}
	}
}

// Sum returns the per-category total for the person.
func (c CategoryTotals) Sum() decimal.Decimal {
	return c.Office.Add(c.Personal)
}
