package backend

import (
	"context"

	"cashbook/internal/amqp"
	"cashbook/internal/store"
)

// Store is a record store that also owns its subscription hub.
type Store interface {
	store.RecordStore
	Hub() *store.Hub
	Close() error
}

// CleanupFunc represents a cleanup function for resources
type CleanupFunc func() error

// BackendResult contains the store, the optional change relay client and a
// cleanup function releasing both.
type BackendResult struct {
	Store Store
	// Changes is nil when no AMQP URL is configured or the broker was
	// unreachable at startup.
	Changes *amqp.Client
	Cleanup CleanupFunc
}

// Factory creates backends based on configuration
type Factory interface {
	CreateBackend(ctx context.Context, config Config) (*BackendResult, error)
}

// Config holds configuration for backend creation
type Config struct {
	Type BackendType

	SQLiteDBPath string

	// Optional change relay shared by every backend type.
	AMQPURL      string
	AMQPExchange string
}

// BackendType represents the type of backend to use
type BackendType string

const (
	SQLiteBackend BackendType = "sqlite"
	MemoryBackend BackendType = "memory"
)

func (bt BackendType) String() string { return string(bt) }

// IsValid reports whether bt names a supported backend.
func (bt BackendType) IsValid() bool {
	switch bt {
	case SQLiteBackend, MemoryBackend:
		return true
	default:
		return false
	}
}
