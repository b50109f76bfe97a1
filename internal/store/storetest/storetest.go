// Package storetest holds a behavioural suite every record store must pass.
package storetest

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"cashbook/internal/core"
	"cashbook/internal/store"
)

// Factory returns a fresh, empty store.
type Factory func(t *testing.T) store.RecordStore

// Run exercises reads, inserts, batches and subscriptions.
func Run(t *testing.T, newStore Factory) {
	t.Run("insert and read back", func(t *testing.T) { testInsertRead(t, newStore(t)) })
	t.Run("unknown collection", func(t *testing.T) { testUnknownCollection(t, newStore(t)) })
	t.Run("batch delete", func(t *testing.T) { testBatchDelete(t, newStore(t)) })
	t.Run("batch limit", func(t *testing.T) { testBatchLimit(t, newStore(t)) })
	t.Run("subscription snapshots", func(t *testing.T) { testSubscription(t, newStore(t)) })
}

func testInsertRead(t *testing.T, s store.RecordStore) {
	ctx := context.Background()
	rec := core.TransferRecord{
		Sender:   core.DefaultSender,
		Receiver: "Ibrar",
		Amount:   core.NumberAmount(500),
		Date:     core.StoredNow(time.Date(2024, 1, 5, 10, 0, 0, 0, time.UTC)),
	}
	id, err := s.Insert(ctx, store.Transfers, rec)
	if err != nil {
		t.Fatalf("Insert: %v", err)
	}
	if id == "" {
		t.Fatal("Insert returned empty id")
	}

	docs, err := s.ReadAll(ctx, store.Transfers)
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	if len(docs) != 1 || docs[0].ID != id {
		t.Fatalf("ReadAll = %+v, want one doc %s", docs, id)
	}
	got, err := store.DecodeTransfer(docs[0])
	if err != nil {
		t.Fatalf("DecodeTransfer: %v", err)
	}
	if got.Receiver != "Ibrar" || !got.Amount.Value().Equal(rec.Amount.Value()) {
		t.Fatalf("decoded %+v", got)
	}
	when, ok := core.ResolveTimestamp(got.Date)
	if !ok || !when.Equal(time.Date(2024, 1, 5, 10, 0, 0, 0, time.UTC)) {
		t.Fatalf("date = %v, %v", when, ok)
	}

	other, err := s.ReadAll(ctx, store.Expenses)
	if err != nil || len(other) != 0 {
		t.Fatalf("expenses = %v, %v; want empty", other, err)
	}
}

func testUnknownCollection(t *testing.T, s store.RecordStore) {
	ctx := context.Background()
	if _, err := s.ReadAll(ctx, "payments"); !errors.Is(err, store.ErrUnknownCollection) {
		t.Fatalf("ReadAll err = %v", err)
	}
	if _, err := s.Insert(ctx, "payments", map[string]any{}); !errors.Is(err, store.ErrUnknownCollection) {
		t.Fatalf("Insert err = %v", err)
	}
}

func seed(t *testing.T, s store.RecordStore, coll store.Collection, n int) []string {
	t.Helper()
	ids := make([]string, 0, n)
	for i := 0; i < n; i++ {
		id, err := s.Insert(context.Background(), coll, core.ExpenseRecord{
			Name:   "Ahmad",
			Title:  fmt.Sprintf("item %d", i),
			Amount: core.NumberAmount(float64(i + 1)),
		})
		if err != nil {
			t.Fatalf("seed: %v", err)
		}
		ids = append(ids, id)
	}
	return ids
}

func testBatchDelete(t *testing.T, s store.RecordStore) {
	ctx := context.Background()
	ids := seed(t, s, store.Expenses, 5)

	b := s.BeginBatch()
	b.Delete(store.Expenses, ids[0])
	b.Delete(store.Expenses, ids[3])
	b.Delete(store.Expenses, "missing")
	if b.Len() != 3 {
		t.Fatalf("Len = %d", b.Len())
	}
	if err := b.Commit(ctx); err != nil {
		t.Fatalf("Commit: %v", err)
	}
	if err := b.Commit(ctx); !errors.Is(err, store.ErrBatchCommitted) {
		t.Fatalf("second Commit = %v, want ErrBatchCommitted", err)
	}

	docs, _ := s.ReadAll(ctx, store.Expenses)
	if len(docs) != 3 {
		t.Fatalf("remaining = %d, want 3", len(docs))
	}
	for _, d := range docs {
		if d.ID == ids[0] || d.ID == ids[3] {
			t.Fatalf("document %s should be gone", d.ID)
		}
	}
}

func testBatchLimit(t *testing.T, s store.RecordStore) {
	b := s.BeginBatch()
	for i := 0; i <= store.MaxBatchOps; i++ {
		b.Delete(store.Transfers, fmt.Sprintf("id-%d", i))
	}
	if err := b.Commit(context.Background()); !errors.Is(err, store.ErrBatchTooLarge) {
		t.Fatalf("Commit = %v, want ErrBatchTooLarge", err)
	}
}

func testSubscription(t *testing.T, s store.RecordStore) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		_, err := s.Insert(ctx, store.Transfers, core.TransferRecord{
			Receiver: fmt.Sprintf("r%d", i),
			Amount:   core.NumberAmount(1),
			Date:     core.StoredNow(base.Add(time.Duration(i) * time.Hour)),
		})
		if err != nil {
			t.Fatal(err)
		}
	}

	snaps := make(chan []store.Document, 16)
	unsub, err := s.Subscribe(ctx, store.Query{Collection: store.Transfers, OrderBy: "date", Desc: true, Limit: 2},
		func(docs []store.Document) { snaps <- docs },
		func(err error) { t.Errorf("subscription error: %v", err) })
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	defer unsub()

	first := await(t, snaps, func(d []store.Document) bool { return len(d) == 2 })
	if r := receiverOf(t, first[0]); r != "r2" {
		t.Fatalf("newest = %s, want r2", r)
	}

	if _, err := s.Insert(ctx, store.Transfers, core.TransferRecord{
		Receiver: "late",
		Amount:   core.NumberAmount(1),
		Date:     core.StoredNow(base.Add(10 * time.Hour)),
	}); err != nil {
		t.Fatal(err)
	}
	await(t, snaps, func(d []store.Document) bool { return len(d) == 2 && receiverOf(t, d[0]) == "late" })

	unsub()
	unsub()
}

func await(t *testing.T, ch <-chan []store.Document, ok func([]store.Document) bool) []store.Document {
	t.Helper()
	deadline := time.After(5 * time.Second)
	for {
		select {
		case d := <-ch:
			if ok(d) {
				return d
			}
		case <-deadline:
			t.Fatal("timed out waiting for snapshot")
			return nil
		}
	}
}

func receiverOf(t *testing.T, d store.Document) string {
	t.Helper()
	rec, err := store.DecodeTransfer(d)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	return rec.Receiver
}
