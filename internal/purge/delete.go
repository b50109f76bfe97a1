// Package purge removes records whose date falls inside an interval. It scans
// a whole collection, matches client-side and deletes in bounded batches.
package purge

import (
	"context"
	"fmt"
	"time"

	"cashbook/internal/core"
	"cashbook/internal/store"
)

// DefaultBatchSize stays under the provider's 500-operation batch ceiling.
const DefaultBatchSize = 450

// MatchFunc decides whether a document is deleted.
type MatchFunc func(doc store.Document) bool

// Result counts what one pass removed.
type Result struct {
	Deleted int
	Batches int
}

// DeleteWhere scans coll and deletes every matching document. Batches are
// committed strictly one after another; a trailing partial batch is committed
// at the end. On a commit error the scan stops and the documents committed so
// far are reported together with the error.
func DeleteWhere(ctx context.Context, st store.RecordStore, coll store.Collection, match MatchFunc, batchSize int) (Result, error) {
	if batchSize <= 0 || batchSize > store.MaxBatchOps {
		batchSize = DefaultBatchSize
	}
	docs, err := st.ReadAll(ctx, coll)
	if err != nil {
		return Result{}, fmt.Errorf("read %s: %w", coll, err)
	}

	var res Result
	batch := st.BeginBatch()
	commit := func() error {
		n := batch.Len()
		if err := batch.Commit(ctx); err != nil {
			return fmt.Errorf("commit %s batch %d: %w", coll, res.Batches+1, err)
		}
		res.Deleted += n
		res.Batches++
		batch = st.BeginBatch()
		return nil
	}

	for _, d := range docs {
		if !match(d) {
			continue
		}
		batch.Delete(coll, d.ID)
		if batch.Len() >= batchSize {
			if err := commit(); err != nil {
				return res, err
			}
		}
	}
	if batch.Len() > 0 {
		if err := commit(); err != nil {
			return res, err
		}
	}
	return res, nil
}

// TransferMatcher matches transfers by the first present of date, createdAt
// and timestamp. A present but unreadable date never matches.
func TransferMatcher(iv Interval, loc *time.Location) MatchFunc {
	return func(doc store.Document) bool {
		t, err := store.DecodeTransfer(doc)
		if err != nil {
			return false
		}
		when, ok := core.FirstPresent(t.Date, t.CreatedAt, t.Timestamp).Resolve(loc)
		return ok && iv.Contains(when)
	}
}

// ExpenseMatcher matches expenses by createdAt, or by date when createdAt does
// not resolve.
func ExpenseMatcher(iv Interval, loc *time.Location) MatchFunc {
	return func(doc store.Document) bool {
		e, err := store.DecodeExpense(doc)
		if err != nil {
			return false
		}
		when, ok := core.FirstResolved(loc, e.CreatedAt, e.Date)
		return ok && iv.Contains(when)
	}
}
