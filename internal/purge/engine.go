package purge

import (
	"context"
	"errors"
	"fmt"
	"time"

	"cashbook/internal/identity"
	"cashbook/internal/log"
	"cashbook/internal/store"

	"golang.org/x/sync/errgroup"
)

var ErrForbidden = errors.New("only admin can remove data")

// Authorizer decides whether a caller may delete.
type Authorizer interface {
	IsAdmin(id identity.Identity) bool
}

// Outcome summarizes a deletion.
type Outcome struct {
	Scope     Scope    `json:"scope"`
	Interval  Interval `json:"-"`
	Transfers int      `json:"transfers"`
	Expenses  int      `json:"expenses"`
}

// Total is the number of removed records across collections.
func (o Outcome) Total() int { return o.Transfers + o.Expenses }

// Message is the confirmation shown to the admin.
func (o Outcome) Message() string {
	return fmt.Sprintf("Removed %d record(s).", o.Total())
}

type Engine struct {
	store     store.RecordStore
	auth      Authorizer
	batchSize int
	loc       *time.Location
	logger    *log.Logger
	onPurged  func(ctx context.Context, o Outcome)
}

type Option func(*Engine)

func WithBatchSize(n int) Option {
	return func(e *Engine) { e.batchSize = n }
}

func WithLocation(loc *time.Location) Option {
	return func(e *Engine) { e.loc = loc }
}

func WithLogger(l *log.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// OnPurged registers a hook run after records were removed, used to bump the
// dashboard reload generation.
func OnPurged(fn func(ctx context.Context, o Outcome)) Option {
	return func(e *Engine) { e.onPurged = fn }
}

func NewEngine(st store.RecordStore, auth Authorizer, opts ...Option) *Engine {
	e := &Engine{
		store:     st,
		auth:      auth,
		batchSize: DefaultBatchSize,
		loc:       time.Local,
		logger:    log.Discard(),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.logger = e.logger.WithComponent(log.ComponentPurge)
	return e
}

// Location is the zone presets and custom days are computed in.
func (e *Engine) Location() *time.Location { return e.loc }

// Perform deletes records of scope inside iv. Non-admin callers are rejected
// before the store is touched. For ScopeAll both collections are scanned
// concurrently and the counts summed.
func (e *Engine) Perform(ctx context.Context, who identity.Identity, scope Scope, iv Interval) (Outcome, error) {
	if !e.auth.IsAdmin(who) {
		e.logger.WarnContext(ctx, "Rejected deletion by non-admin", log.FieldEmail, who.Email)
		return Outcome{}, ErrForbidden
	}
	if err := iv.Validate(); err != nil {
		return Outcome{}, err
	}

	out := Outcome{Scope: scope, Interval: iv}
	transfers := func(ctx context.Context) error {
		res, err := DeleteWhere(ctx, e.store, store.Transfers, TransferMatcher(iv, e.loc), e.batchSize)
		out.Transfers = res.Deleted
		return err
	}
	expenses := func(ctx context.Context) error {
		res, err := DeleteWhere(ctx, e.store, store.Expenses, ExpenseMatcher(iv, e.loc), e.batchSize)
		out.Expenses = res.Deleted
		return err
	}

	var err error
	switch scope {
	case ScopeAll:
		// A failure in one collection does not cancel the other pass.
		var g errgroup.Group
		g.Go(func() error { return transfers(ctx) })
		g.Go(func() error { return expenses(ctx) })
		err = g.Wait()
	case ScopeTransfers:
		err = transfers(ctx)
	case ScopeExpenses:
		err = expenses(ctx)
	default:
		return Outcome{}, fmt.Errorf("%w: %q", ErrInvalidScope, scope)
	}

	fields := []any{
		log.FieldScope, string(scope),
		log.FieldStart, iv.Start.Format(time.RFC3339),
		log.FieldEnd, iv.End.Format(time.RFC3339),
		log.FieldCount, out.Total(),
		log.FieldEmail, who.Email,
	}
	// Anything already committed is gone, so views refresh even after a failure.
	if out.Total() > 0 || err == nil {
		if e.onPurged != nil {
			e.onPurged(ctx, out)
		}
	}
	if err != nil {
		e.logger.ErrorContext(ctx, "Deletion failed", append(fields, log.FieldError, err)...)
		return out, fmt.Errorf("failed to remove data: %w", err)
	}
	e.logger.InfoContext(ctx, "Deletion completed", fields...)
	return out, nil
}
