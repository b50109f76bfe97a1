// Package feed keeps the merged activity list live. It holds two
// subscriptions, one per collection, caches the latest snapshot of each and
// recomputes the merge whenever either side changes.
package feed

import (
	"context"
	"fmt"
	"sync"
	"time"

	"cashbook/internal/aggregate"
	"cashbook/internal/core"
	"cashbook/internal/log"
	"cashbook/internal/store"
)

const (
	// DefaultPageSize is how many newest records each subscription tracks.
	DefaultPageSize = 40

	transferOrderField = "date"
	expenseOrderField  = "createdAt"
)

// Options configures a Feed. Zero values pick the defaults.
type Options struct {
	PageSize int
	FeedSize int
	Location *time.Location
	Now      func() time.Time
	Logger   *log.Logger
	// OnError is told about subscription failures after they are logged.
	OnError func(coll store.Collection, err error)
}

// UpdateFunc receives every recomputed feed, in order. It may call Latest but
// must not call Close.
type UpdateFunc func(items []core.Activity)

type Feed struct {
	opts     Options
	onUpdate UpdateFunc

	emitMu sync.Mutex // serializes merge+emit so updates arrive in order

	mu        sync.Mutex
	transfers []core.TransferRecord
	expenses  []core.ExpenseRecord
	haveT     bool
	haveE     bool
	latest    []core.Activity
	closed    bool

	unsubs    []store.Unsubscribe
	closeOnce sync.Once
}

// Start opens both subscriptions. If the second one cannot be opened the
// first is released before the error is returned.
func Start(ctx context.Context, st store.RecordStore, opts Options, onUpdate UpdateFunc) (*Feed, error) {
	if opts.PageSize <= 0 {
		opts.PageSize = DefaultPageSize
	}
	if opts.FeedSize <= 0 {
		opts.FeedSize = aggregate.DefaultFeedSize
	}
	if opts.Location == nil {
		opts.Location = time.Local
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Logger == nil {
		opts.Logger = log.Discard()
	}
	opts.Logger = opts.Logger.WithComponent(log.ComponentFeed)
	if onUpdate == nil {
		onUpdate = func([]core.Activity) {}
	}

	f := &Feed{opts: opts, onUpdate: onUpdate}

	unsubT, err := st.Subscribe(ctx,
		store.Query{Collection: store.Transfers, OrderBy: transferOrderField, Desc: true, Limit: opts.PageSize},
		f.onTransfers, f.errorHandler(store.Transfers))
	if err != nil {
		return nil, fmt.Errorf("subscribe transfers: %w", err)
	}
	unsubE, err := st.Subscribe(ctx,
		store.Query{Collection: store.Expenses, OrderBy: expenseOrderField, Desc: true, Limit: opts.PageSize},
		f.onExpenses, f.errorHandler(store.Expenses))
	if err != nil {
		unsubT()
		return nil, fmt.Errorf("subscribe expenses: %w", err)
	}
	f.unsubs = []store.Unsubscribe{unsubT, unsubE}
	return f, nil
}

func (f *Feed) onTransfers(docs []store.Document) {
	recs := store.DecodeTransfers(docs, f.skip(store.Transfers))
	f.apply(func() {
		f.transfers = recs
		f.haveT = true
	})
}

func (f *Feed) onExpenses(docs []store.Document) {
	recs := store.DecodeExpenses(docs, f.skip(store.Expenses))
	f.apply(func() {
		f.expenses = recs
		f.haveE = true
	})
}

// apply replaces one side of the cache and re-merges. A side that has not
// delivered yet counts as empty.
func (f *Feed) apply(update func()) {
	f.emitMu.Lock()
	defer f.emitMu.Unlock()

	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return
	}
	update()
	if !f.haveT && !f.haveE {
		f.mu.Unlock()
		return
	}
	merged := aggregate.Activity(f.transfers, f.expenses, f.opts.FeedSize, f.opts.Location, f.opts.Now())
	f.latest = merged
	f.mu.Unlock()

	f.onUpdate(merged)
}

func (f *Feed) errorHandler(coll store.Collection) store.ErrorFunc {
	return func(err error) {
		f.opts.Logger.Error("Subscription failed",
			log.FieldCollection, string(coll),
			log.FieldOperation, log.OpSubscribe,
			log.FieldError, err)
		if f.opts.OnError != nil {
			f.opts.OnError(coll, err)
		}
	}
}

func (f *Feed) skip(coll store.Collection) store.SkipFunc {
	return func(id string, err error) {
		f.opts.Logger.Warn("Skipping unreadable document",
			log.FieldCollection, string(coll),
			log.FieldDocID, id,
			log.FieldError, err)
	}
}

// Latest returns the most recent merged feed, and false until either
// subscription has delivered.
func (f *Feed) Latest() ([]core.Activity, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.haveT && !f.haveE {
		return nil, false
	}
	return append([]core.Activity(nil), f.latest...), true
}

// Close releases both subscriptions exactly once. Snapshots that arrive
// afterwards are dropped.
func (f *Feed) Close() {
	f.closeOnce.Do(func() {
		f.mu.Lock()
		f.closed = true
		f.mu.Unlock()
		for _, unsub := range f.unsubs {
			unsub()
		}
	})
}
