// Package worker runs background consumers that keep this instance in step
// with writes made elsewhere.
package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"cashbook/internal/amqp"
	"cashbook/internal/log"
	"cashbook/internal/store"
)

// ChangeSource delivers change events published by every instance.
type ChangeSource interface {
	ConsumeChanges(ctx context.Context, handler func(*amqp.ChangeMessage) error) error
	Origin() string
}

// Relay turns change events from other instances into local subscription
// refreshes. Events this instance published are ignored, since the store
// already notified its own subscribers.
type Relay struct {
	source   ChangeSource
	notifier store.Notifier
	onChange func(store.Change)
	logger   *log.Logger

	relayed atomic.Int64
	skipped atomic.Int64

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	doneCh  chan struct{}
}

// NewRelay builds a relay. onChange, when set, runs after every relayed
// event; the server uses it to reload dashboard views.
func NewRelay(source ChangeSource, notifier store.Notifier, onChange func(store.Change), logger *log.Logger) *Relay {
	if logger == nil {
		logger = log.Discard()
	}
	return &Relay{
		source:   source,
		notifier: notifier,
		onChange: onChange,
		logger:   logger.WithComponent(log.ComponentWorker),
	}
}

// HandleChange processes a single change event.
func (r *Relay) HandleChange(ctx context.Context, msg *amqp.ChangeMessage) error {
	if msg.Origin == r.source.Origin() {
		r.skipped.Add(1)
		return nil
	}
	if err := store.Check(msg.Collection); err != nil {
		return err
	}

	r.notifier.Notify(msg.Collection)
	if r.onChange != nil {
		r.onChange(msg.Change())
	}
	r.relayed.Add(1)

	r.logger.DebugContext(ctx, "Relayed change",
		log.FieldOperation, log.OpRelay,
		log.FieldCollection, string(msg.Collection),
		log.FieldCount, len(msg.IDs),
		"origin", msg.Origin)
	return nil
}

// Start consumes in the background until Stop or ctx ends.
func (r *Relay) Start(ctx context.Context) error {
	r.mu.Lock()
	if r.running {
		r.mu.Unlock()
		return fmt.Errorf("change relay is already running")
	}
	ctx, cancel := context.WithCancel(ctx)
	r.running = true
	r.cancel = cancel
	r.doneCh = make(chan struct{})
	done := r.doneCh
	r.mu.Unlock()

	go func() {
		defer close(done)
		err := r.source.ConsumeChanges(ctx, func(msg *amqp.ChangeMessage) error {
			return r.HandleChange(ctx, msg)
		})
		if err != nil && !errors.Is(err, context.Canceled) {
			r.logger.ErrorContext(ctx, "Change consumption failed", log.FieldError, err)
		}
		r.mu.Lock()
		r.running = false
		r.mu.Unlock()
	}()

	r.logger.InfoContext(ctx, "Change relay started", "origin", r.source.Origin())
	return nil
}

// Stop cancels consumption and waits for it to end, or for ctx.
func (r *Relay) Stop(ctx context.Context) error {
	r.mu.Lock()
	cancel, done := r.cancel, r.doneCh
	r.mu.Unlock()
	if cancel == nil {
		return nil
	}

	cancel()
	select {
	case <-done:
		r.logger.InfoContext(ctx, "Change relay stopped",
			"relayed", r.relayed.Load(),
			"skipped", r.skipped.Load())
		return nil
	case <-ctx.Done():
		r.logger.WarnContext(ctx, "Change relay stop timed out")
		return ctx.Err()
	}
}

func (r *Relay) IsRunning() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.running
}

// Relayed counts events from other instances that were applied.
func (r *Relay) Relayed() int64 { return r.relayed.Load() }
