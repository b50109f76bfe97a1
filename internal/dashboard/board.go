package dashboard

import (
	"context"
	"sync"
	"time"

	"cashbook/internal/core"

	"golang.org/x/sync/errgroup"
)

// Tracker lets only the newest of overlapping requests publish its result.
type Tracker struct {
	mu      sync.Mutex
	issued  uint64
	applied uint64
}

// Begin issues a token newer than every earlier one.
func (t *Tracker) Begin() uint64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.issued++
	return t.issued
}

// Apply runs fn unless a newer token was applied already.
func (t *Tracker) Apply(token uint64, fn func()) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if token <= t.applied {
		return false
	}
	t.applied = token
	fn()
	return true
}

// Snapshot is the full set of dashboard views for one month.
type Snapshot struct {
	Generation uint64                `json:"generation"`
	Year       int                   `json:"year"`
	Month      time.Month            `json:"month"`
	Totals     core.TotalsView       `json:"totals"`
	Daily      core.DailySeries      `json:"daily"`
	Breakdown  core.ExpenseBreakdown `json:"breakdown"`
}

// Board holds the most recently published snapshot.
type Board struct {
	svc     *Service
	tracker Tracker

	mu   sync.RWMutex
	snap Snapshot
	have bool
}

func NewBoard(svc *Service) *Board {
	return &Board{svc: svc}
}

// Refresh loads every view and publishes them together. When a later Refresh
// has already published, this result is discarded and the newer snapshot is
// returned instead, provided it covers the same month.
func (b *Board) Refresh(ctx context.Context, year int, month time.Month) (Snapshot, error) {
	token := b.tracker.Begin()
	snap := Snapshot{Generation: b.svc.Generation(), Year: year, Month: month}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		snap.Totals = b.svc.Totals(gctx)
		return nil
	})
	g.Go(func() error {
		var err error
		snap.Daily, err = b.svc.Daily(gctx, year, month)
		return err
	})
	g.Go(func() error {
		snap.Breakdown = b.svc.Breakdown(gctx)
		return nil
	})
	if err := g.Wait(); err != nil {
		return Snapshot{}, err
	}

	b.tracker.Apply(token, func() {
		b.mu.Lock()
		b.snap, b.have = snap, true
		b.mu.Unlock()
	})
	if current, _ := b.Current(); current.Year == year && current.Month == month {
		return current, nil
	}
	return snap, nil
}

// Current returns the published snapshot, and false before the first Refresh.
func (b *Board) Current() (Snapshot, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.snap, b.have
}
