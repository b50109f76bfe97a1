// Package memory is an in-process exporter that keeps the latest export of
// every sheet, for development and tests.
package memory

import (
	"context"
	"fmt"
	"sync"

	"cashbook/internal/sheets"
)

type Exporter struct {
	mu      sync.Mutex
	sheets  map[string][]sheets.ExportRow
	exports int
}

var _ sheets.ExpenseExporter = (*Exporter)(nil)

func New() *Exporter {
	return &Exporter{sheets: make(map[string][]sheets.ExportRow)}
}

// Export replaces the stored rows of sheet.
func (e *Exporter) Export(_ context.Context, sheet string, rows []sheets.ExportRow) (string, error) {
	if sheet == "" {
		return "", fmt.Errorf("missing sheet name")
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.sheets[sheet] = append([]sheets.ExportRow(nil), rows...)
	e.exports++
	return fmt.Sprintf("mem:%s:%d", sheet, len(rows)), nil
}

// Rows returns the last export of sheet.
func (e *Exporter) Rows(sheet string) []sheets.ExportRow {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]sheets.ExportRow(nil), e.sheets[sheet]...)
}

// Exports counts successful Export calls.
func (e *Exporter) Exports() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.exports
}
