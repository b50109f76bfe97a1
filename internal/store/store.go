// Package store defines the record store the rest of the service talks to:
// two document collections with full reads, ordered live subscriptions,
// inserts and batched deletes.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

// Collection names a document collection.
type Collection string

const (
	Transfers Collection = "transfer-history"
	Expenses  Collection = "expenses"
)

// MaxBatchOps is the provider ceiling on operations in one committed batch.
const MaxBatchOps = 500

var (
	ErrUnknownCollection = errors.New("unknown collection")
	ErrBatchTooLarge     = errors.New("batch exceeds operation limit")
	ErrBatchCommitted    = errors.New("batch already committed")
	ErrClosed            = errors.New("store closed")
)

// Collections lists the known collections.
func Collections() []Collection {
	return []Collection{Transfers, Expenses}
}

// Check returns ErrUnknownCollection for anything other than a known collection.
func Check(c Collection) error {
	switch c {
	case Transfers, Expenses:
		return nil
	default:
		return fmt.Errorf("%w: %q", ErrUnknownCollection, string(c))
	}
}

// Document is a stored record: its id plus the raw field map.
type Document struct {
	ID   string
	Data json.RawMessage
}

// Query describes a subscription: the newest Limit documents of Collection
// ordered by the OrderBy date field.
type Query struct {
	Collection Collection
	OrderBy    string
	Desc       bool
	Limit      int
}

type (
	// SnapshotFunc receives a full replacement snapshot on every change.
	SnapshotFunc func(docs []Document)
	// ErrorFunc receives subscription failures.
	ErrorFunc func(err error)
	// Unsubscribe stops a subscription. Calling it more than once is harmless.
	Unsubscribe func()
)

// RecordStore is the persistence boundary. Implementations must be safe for
// concurrent use.
type RecordStore interface {
	ReadAll(ctx context.Context, coll Collection) ([]Document, error)
	Subscribe(ctx context.Context, q Query, onSnapshot SnapshotFunc, onError ErrorFunc) (Unsubscribe, error)
	Insert(ctx context.Context, coll Collection, record any) (string, error)
	BeginBatch() Batch
}

// Batch groups deletes that commit together.
type Batch interface {
	Delete(coll Collection, id string)
	Len() int
	Commit(ctx context.Context) error
}

// Op names a change kind.
type Op string

const (
	OpInsert Op = "insert"
	OpDelete Op = "delete"
)

// Change describes a committed write, fanned out to other instances.
type Change struct {
	Collection Collection
	Op         Op
	IDs        []string
}

// ChangePublisher is notified after every successful write.
type ChangePublisher interface {
	PublishChange(ctx context.Context, c Change) error
}

// Notifier refreshes live subscriptions of a collection.
type Notifier interface {
	Notify(coll Collection)
}
