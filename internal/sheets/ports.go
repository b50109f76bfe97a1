// Package sheets defines the export port for mirroring the expense history
// into a spreadsheet.
package sheets

import (
	"context"

	"github.com/shopspring/decimal"
)

// Header is the first row of every export.
var Header = []string{"Date", "Title", "Amount (PKR)", "Type", "Remarks", "Name"}

// ExportRow is one expense as written to the sheet.
type ExportRow struct {
	Date    string
	Title   string
	Amount  decimal.Decimal
	Type    string
	Remarks string
	Name    string
}

// Values returns the row cells in Header order. Amounts are written as
// numbers so the sheet can sum them.
func (r ExportRow) Values() []any {
	amount, _ := r.Amount.Float64()
	return []any{r.Date, r.Title, amount, r.Type, r.Remarks, r.Name}
}

// ExpenseExporter replaces the contents of a sheet tab with rows.
type ExpenseExporter interface {
	Export(ctx context.Context, sheet string, rows []ExportRow) (ref string, err error)
}
