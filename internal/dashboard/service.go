// Package dashboard serves the admin dashboard views. Views are computed from
// full collection reads and cached per reload generation; a bump of the
// generation makes every later read refetch.
package dashboard

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"cashbook/internal/aggregate"
	"cashbook/internal/cache"
	"cashbook/internal/core"
	"cashbook/internal/identity"
	"cashbook/internal/log"
	"cashbook/internal/store"

	"github.com/shopspring/decimal"
)

const (
	defaultCacheSize = 64
	defaultCacheTTL  = 5 * time.Minute
)

type Service struct {
	store  store.RecordStore
	roster *identity.Roster
	loc    *time.Location
	now    func() time.Time
	logger *log.Logger

	generation atomic.Uint64
	totals     *cache.LRUCache[core.TotalsView]
	daily      *cache.LRUCache[core.DailySeries]
	breakdown  *cache.LRUCache[core.ExpenseBreakdown]
}

type Option func(*Service)

func WithLocation(loc *time.Location) Option {
	return func(s *Service) { s.loc = loc }
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func WithLogger(l *log.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// WithCacheManager registers the view caches for periodic expiry sweeps.
func WithCacheManager(m *cache.Manager) Option {
	return func(s *Service) {
		m.Register(s.totals)
		m.Register(s.daily)
		m.Register(s.breakdown)
	}
}

func NewService(st store.RecordStore, roster *identity.Roster, opts ...Option) *Service {
	s := &Service{
		store:     st,
		roster:    roster,
		loc:       time.Local,
		now:       time.Now,
		logger:    log.Discard(),
		totals:    cache.NewLRUCache[core.TotalsView](defaultCacheSize, defaultCacheTTL),
		daily:     cache.NewLRUCache[core.DailySeries](defaultCacheSize, defaultCacheTTL),
		breakdown: cache.NewLRUCache[core.ExpenseBreakdown](defaultCacheSize, defaultCacheTTL),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.WithComponent(log.ComponentDashboard)
	return s
}

// Generation is the current reload tick.
func (s *Service) Generation() uint64 { return s.generation.Load() }

// Reload advances the generation so every view is refetched on next read.
func (s *Service) Reload() uint64 {
	gen := s.generation.Add(1)
	s.totals.Clear()
	s.daily.Clear()
	s.breakdown.Clear()
	s.logger.Debug("Dashboard reload", log.FieldGeneration, gen)
	return gen
}

func totalsKey(gen uint64) string { return fmt.Sprintf("totals:%d", gen) }

func dailyKey(gen uint64, year int, month time.Month) string {
	return fmt.Sprintf("daily:%04d-%02d:%d", year, month, gen)
}

func breakdownKey(gen uint64) string { return fmt.Sprintf("breakdown:%d", gen) }

func (s *Service) skip(coll store.Collection) store.SkipFunc {
	return func(id string, err error) {
		s.logger.Warn("Skipping unreadable document",
			log.FieldCollection, string(coll),
			log.FieldDocID, id,
			log.FieldError, err)
	}
}

func (s *Service) transfers(ctx context.Context) ([]core.TransferRecord, error) {
	docs, err := s.store.ReadAll(ctx, store.Transfers)
	if err != nil {
		return nil, err
	}
	return store.DecodeTransfers(docs, s.skip(store.Transfers)), nil
}

func (s *Service) expenses(ctx context.Context) ([]core.ExpenseRecord, error) {
	docs, err := s.store.ReadAll(ctx, store.Expenses)
	if err != nil {
		return nil, err
	}
	return store.DecodeExpenses(docs, s.skip(store.Expenses)), nil
}

func (s *Service) fetchFailed(ctx context.Context, view string, err error, args ...any) {
	s.logger.ErrorContext(ctx, "Failed to load dashboard view",
		append([]any{log.FieldOperation, log.OpRead, "view", view, log.FieldError, err}, args...)...)
}

// Totals returns the all-time transfer totals per receiver. A read failure is
// logged and yields an all-zero view that is not cached.
func (s *Service) Totals(ctx context.Context) core.TotalsView {
	gen := s.Generation()
	if v, ok := s.totals.Get(totalsKey(gen)); ok {
		return v.Clone()
	}
	transfers, err := s.transfers(ctx)
	if err != nil {
		s.fetchFailed(ctx, "totals", err)
		return core.NewTotalsView(s.roster.Receivers())
	}
	v := aggregate.Totals(transfers, s.roster.Receivers())
	s.totals.Set(totalsKey(gen), v)
	return v.Clone()
}

// Daily returns the per-day transfer series of one month. Only an invalid
// month is reported as an error; read failures yield the zero series.
func (s *Service) Daily(ctx context.Context, year int, month time.Month) (core.DailySeries, error) {
	if month < time.January || month > time.December {
		return core.DailySeries{}, core.ErrInvalidMonth
	}
	gen := s.Generation()
	key := dailyKey(gen, year, month)
	if v, ok := s.daily.Get(key); ok {
		return v.Clone(), nil
	}
	receivers := s.roster.Receivers()
	transfers, err := s.transfers(ctx)
	if err != nil {
		s.fetchFailed(ctx, "daily", err, log.FieldYear, year, log.FieldMonth, int(month))
		return aggregate.EmptyDaily(year, month, receivers), nil
	}
	v, err := aggregate.Daily(transfers, receivers, year, month, s.loc, s.now())
	if err != nil {
		return core.DailySeries{}, err
	}
	s.daily.Set(key, v)
	return v.Clone(), nil
}

// Breakdown returns the office/personal split per roster member.
func (s *Service) Breakdown(ctx context.Context) core.ExpenseBreakdown {
	gen := s.Generation()
	if v, ok := s.breakdown.Get(breakdownKey(gen)); ok {
		return v.Clone()
	}
	expenses, err := s.expenses(ctx)
	if err != nil {
		s.fetchFailed(ctx, "breakdown", err)
		return core.NewExpenseBreakdown(s.roster.Names())
	}
	v := aggregate.Breakdown(expenses, s.roster.Names())
	s.breakdown.Set(breakdownKey(gen), v)
	return v.Clone()
}

// ApplyTransfer adds amount to the cached totals of the current generation so
// the dashboard reflects a new transfer before the next refetch. Cached daily
// series are dropped since the day of the transfer changed. It reports false
// when no totals are cached yet.
func (s *Service) ApplyTransfer(receiver string, amount decimal.Decimal) bool {
	s.daily.Clear()
	return s.totals.Update(totalsKey(s.Generation()), func(v core.TotalsView) core.TotalsView {
		v = v.Clone()
		v.Add(receiver, amount)
		return v
	})
}
