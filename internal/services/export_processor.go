package services

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"cashbook/internal/core"
	"cashbook/internal/identity"
	"cashbook/internal/log"
	"cashbook/internal/sheets"
)

const exportDateLayout = "02-01-2006"

// ExportProcessorConfig holds configuration for the export processor.
type ExportProcessorConfig struct {
	// Interval between scheduled exports (default: 1h)
	Interval time.Duration

	// Sheet is the destination tab (default: "Expenses")
	Sheet string
}

func DefaultExportProcessorConfig() ExportProcessorConfig {
	return ExportProcessorConfig{
		Interval: time.Hour,
		Sheet:    "Expenses",
	}
}

// ExportResult describes the last export attempt.
type ExportResult struct {
	Ref  string    `json:"ref"`
	Rows int       `json:"rows"`
	At   time.Time `json:"at"`
	Err  string    `json:"error,omitempty"`
}

// ExportProcessor mirrors the full expense history into a sheet on a schedule
// and on demand.
type ExportProcessor struct {
	records  *RecordService
	roster   *identity.Roster
	exporter sheets.ExpenseExporter
	config   ExportProcessorConfig
	logger   *log.Logger

	exportMu sync.Mutex

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
	last    ExportResult
}

func NewExportProcessor(records *RecordService, roster *identity.Roster, exporter sheets.ExpenseExporter, config ExportProcessorConfig, logger *log.Logger) *ExportProcessor {
	if config.Interval <= 0 {
		config.Interval = DefaultExportProcessorConfig().Interval
	}
	if strings.TrimSpace(config.Sheet) == "" {
		config.Sheet = DefaultExportProcessorConfig().Sheet
	}
	if logger == nil {
		logger = log.Discard()
	}
	return &ExportProcessor{
		records:  records,
		roster:   roster,
		exporter: exporter,
		config:   config,
		logger:   logger.WithComponent(log.ComponentSheets),
	}
}

// Start begins the export loop. Returns an error if already running.
func (p *ExportProcessor) Start(ctx context.Context) error {
	p.mu.Lock()
	if p.running {
		p.mu.Unlock()
		return fmt.Errorf("export processor is already running")
	}
	p.running = true
	p.stopCh = make(chan struct{})
	p.doneCh = make(chan struct{})
	p.mu.Unlock()

	go p.runLoop(ctx)

	p.logger.InfoContext(ctx, "Export processor started",
		"interval", p.config.Interval,
		"sheet", p.config.Sheet)
	return nil
}

// Stop signals the loop and waits for it, or for ctx.
func (p *ExportProcessor) Stop(ctx context.Context) error {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return nil
	}
	stopCh, doneCh := p.stopCh, p.doneCh
	p.mu.Unlock()

	close(stopCh)

	select {
	case <-doneCh:
		p.logger.InfoContext(ctx, "Export processor stopped gracefully")
	case <-ctx.Done():
		p.logger.WarnContext(ctx, "Export processor stop timed out")
		return ctx.Err()
	}

	p.mu.Lock()
	p.running = false
	p.mu.Unlock()
	return nil
}

func (p *ExportProcessor) IsRunning() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.running
}

// Last returns the most recent export attempt.
func (p *ExportProcessor) Last() ExportResult {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.last
}

func (p *ExportProcessor) runLoop(ctx context.Context) {
	defer close(p.doneCh)

	ticker := time.NewTicker(p.config.Interval)
	defer ticker.Stop()

	p.exportScheduled(ctx)
	for {
		select {
		case <-p.stopCh:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.exportScheduled(ctx)
		}
	}
}

func (p *ExportProcessor) exportScheduled(ctx context.Context) {
	if _, err := p.ExportNow(ctx); err != nil {
		p.logger.ErrorContext(ctx, "Scheduled export failed", log.FieldError, err)
	}
}

// ExportNow writes the current expense history to the sheet. Concurrent
// calls are serialized.
func (p *ExportProcessor) ExportNow(ctx context.Context) (ExportResult, error) {
	p.exportMu.Lock()
	defer p.exportMu.Unlock()

	res := ExportResult{At: time.Now()}
	expenses, err := p.records.ExpenseHistory(ctx, "all")
	if err == nil {
		rows := ExportRows(expenses, p.roster, p.records.loc)
		res.Rows = len(rows)
		res.Ref, err = p.exporter.Export(ctx, p.config.Sheet, rows)
	}
	if err != nil {
		err = fmt.Errorf("export expenses: %w", err)
		res.Err = err.Error()
	}

	p.mu.Lock()
	p.last = res
	p.mu.Unlock()
	return res, err
}

func orNA(s string) string {
	if s = strings.TrimSpace(s); s == "" {
		return "N/A"
	}
	return s
}

// ExportRows converts expenses to sheet rows. The date is the expense day,
// or its creation time when the day is missing. Names come from the roster
// by email and fall back to the stored name.
func ExportRows(expenses []core.ExpenseRecord, roster *identity.Roster, loc *time.Location) []sheets.ExportRow {
	rows := make([]sheets.ExportRow, 0, len(expenses))
	for _, e := range expenses {
		date := ""
		if when, ok := core.FirstResolved(loc, e.Date, e.CreatedAt); ok {
			date = when.In(loc).Format(exportDateLayout)
		}
		name := e.Name
		if m, ok := roster.Lookup(e.Email); ok {
			name = m.Name
		}
		rows = append(rows, sheets.ExportRow{
			Date:    date,
			Title:   orNA(e.Title),
			Amount:  e.Amount.Value(),
			Type:    orNA(e.Type),
			Remarks: orNA(e.Remarks),
			Name:    orNA(name),
		})
	}
	return rows
}
