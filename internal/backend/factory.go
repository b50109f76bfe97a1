package backend

import (
	"context"
	"errors"
	"fmt"

	"cashbook/internal/amqp"
	"cashbook/internal/log"
	"cashbook/internal/store"
	"cashbook/internal/store/memory"
	"cashbook/internal/store/sqlite"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *log.Logger
	// dial is swapped in tests to avoid a broker.
	dial func(url, exchange string, logger *log.Logger) (*amqp.Client, error)
}

// NewFactory creates a new backend factory
func NewFactory(logger *log.Logger) Factory {
	if logger == nil {
		logger = log.Discard()
	}
	return &DefaultFactory{
		logger: logger.WithComponent(log.ComponentBackend),
		dial:   amqp.NewClient,
	}
}

// CreateBackend implements Factory.CreateBackend
func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*BackendResult, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	changes := f.connectRelay(config)
	opts := []store.Option{store.WithLogger(f.logger)}
	if changes != nil {
		opts = append(opts, store.WithPublisher(changes))
	}

	var (
		st  Store
		err error
	)
	switch config.Type {
	case SQLiteBackend:
		st, err = sqlite.Open(ctx, config.SQLiteDBPath, opts...)
		if err != nil {
			if changes != nil {
				_ = changes.Close()
			}
			return nil, fmt.Errorf("failed to initialize SQLite store: %w", err)
		}
		f.logger.Info("Initialized SQLite backend",
			"db_path", config.SQLiteDBPath,
			"amqp_enabled", changes != nil)
	case MemoryBackend:
		st = memory.New(opts...)
		f.logger.Info("Initialized memory backend", "amqp_enabled", changes != nil)
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}

	return &BackendResult{
		Store:   st,
		Changes: changes,
		Cleanup: cleanup(st, changes),
	}, nil
}

// connectRelay dials the broker when one is configured. Failure is not fatal:
// the instance keeps working on its own.
func (f *DefaultFactory) connectRelay(config Config) *amqp.Client {
	if config.AMQPURL == "" {
		return nil
	}
	client, err := f.dial(config.AMQPURL, config.AMQPExchange, f.logger)
	if err != nil {
		f.logger.Warn("Failed to initialize AMQP client, continuing without relay",
			log.FieldError, err)
		return nil
	}
	f.logger.Info("Initialized AMQP client", "exchange", config.AMQPExchange)
	return client
}

func cleanup(st Store, changes *amqp.Client) CleanupFunc {
	return func() error {
		var errs []error
		if changes != nil {
			if err := changes.Close(); err != nil {
				errs = append(errs, fmt.Errorf("close amqp client: %w", err))
			}
		}
		if err := st.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close store: %w", err))
		}
		return errors.Join(errs...)
	}
}
