package memory

import (
	"context"
	"testing"

	"cashbook/internal/store"
	"cashbook/internal/store/storetest"
)

func TestStoreConformance(t *testing.T) {
	storetest.Run(t, func(t *testing.T) store.RecordStore {
		s := New()
		t.Cleanup(func() { s.Close() })
		return s
	})
}

type recordingPublisher struct {
	changes []store.Change
}

func (p *recordingPublisher) PublishChange(_ context.Context, c store.Change) error {
	p.changes = append(p.changes, c)
	return nil
}

func TestStorePublishesChanges(t *testing.T) {
	pub := &recordingPublisher{}
	n := 0
	s := New(store.WithPublisher(pub), store.WithIDGenerator(func() string {
		n++
		return []string{"a", "b"}[n-1]
	}))
	defer s.Close()
	ctx := context.Background()

	if _, err := s.Insert(ctx, store.Expenses, map[string]any{"title": "x"}); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Insert(ctx, store.Expenses, map[string]any{"title": "y"}); err != nil {
		t.Fatal(err)
	}
	b := s.BeginBatch()
	b.Delete(store.Expenses, "a")
	b.Delete(store.Expenses, "zzz")
	if err := b.Commit(ctx); err != nil {
		t.Fatal(err)
	}

	if len(pub.changes) != 3 {
		t.Fatalf("changes = %+v", pub.changes)
	}
	last := pub.changes[2]
	if last.Op != store.OpDelete || len(last.IDs) != 1 || last.IDs[0] != "a" {
		t.Fatalf("delete change = %+v", last)
	}
}

func TestReadAllKeepsInsertionOrder(t *testing.T) {
	s := New()
	defer s.Close()
	ctx := context.Background()
	for _, id := range []string{"z", "a", "m"} {
		if err := s.Put(ctx, store.Transfers, id, map[string]any{"receiver": id}); err != nil {
			t.Fatal(err)
		}
	}
	docs, _ := s.ReadAll(ctx, store.Transfers)
	var got []string
	for _, d := range docs {
		got = append(got, d.ID)
	}
	if len(got) != 3 || got[0] != "z" || got[1] != "a" || got[2] != "m" {
		t.Fatalf("order = %v", got)
	}
}
