package store

import (
	"context"

	"cashbook/internal/log"

	"github.com/google/uuid"
)

// Options shared by store backends.
type Options struct {
	Publisher ChangePublisher
	Logger    *log.Logger
	NewID     func() string
}

type Option func(*Options)

// WithPublisher fans committed writes out to other instances.
func WithPublisher(p ChangePublisher) Option {
	return func(o *Options) { o.Publisher = p }
}

func WithLogger(l *log.Logger) Option {
	return func(o *Options) { o.Logger = l }
}

// WithIDGenerator overrides document id generation.
func WithIDGenerator(fn func() string) Option {
	return func(o *Options) { o.NewID = fn }
}

// BuildOptions applies opts over the defaults.
func BuildOptions(opts ...Option) Options {
	o := Options{
		Logger: log.Discard(),
		NewID:  uuid.NewString,
	}
	for _, opt := range opts {
		opt(&o)
	}
	o.Logger = o.Logger.WithComponent(log.ComponentStore)
	return o
}

// Announce refreshes local subscriptions and publishes the change. A publish
// failure is logged, not returned: the write itself already succeeded.
func (o Options) Announce(ctx context.Context, n Notifier, c Change) {
	n.Notify(c.Collection)
	if o.Publisher == nil {
		return
	}
	if err := o.Publisher.PublishChange(ctx, c); err != nil {
		o.Logger.WarnContext(ctx, "Failed to publish change",
			log.FieldCollection, string(c.Collection),
			log.FieldCount, len(c.IDs),
			log.FieldError, err)
	}
}
