package purge

import (
	"context"
	"errors"
	"testing"
	"time"

	"cashbook/internal/core"
	"cashbook/internal/identity"
	"cashbook/internal/store"
	"cashbook/internal/store/memory"
)

type adminOnly string

func (a adminOnly) IsAdmin(id identity.Identity) bool { return id.Email == string(a) }

var (
	admin = identity.Identity{Email: "admin@admin.com"}
	user  = identity.Identity{Email: "ibrar@ibrar.com"}
)

func TestPerformRejectsNonAdminBeforeScanning(t *testing.T) {
	cs := &countingStore{RecordStore: memory.New()}
	called := false
	e := NewEngine(cs, adminOnly(admin.Email), OnPurged(func(context.Context, Outcome) { called = true }))

	_, err := e.Perform(context.Background(), user, ScopeAll, AllTime(time.UTC))
	if !errors.Is(err, ErrForbidden) {
		t.Fatalf("err = %v, want ErrForbidden", err)
	}
	if cs.reads != 0 || len(cs.commits) != 0 {
		t.Fatalf("store touched: reads=%d commits=%v", cs.reads, cs.commits)
	}
	if called {
		t.Fatal("reload hook should not run")
	}
}

func TestPerformTodayAcrossBothCollections(t *testing.T) {
	ctx := context.Background()
	now := time.Now()
	loc := time.Local
	yesterday := now.AddDate(0, 0, -1)

	ms := memory.New()
	defer ms.Close()
	insert := func(coll store.Collection, v any) {
		if _, err := ms.Insert(ctx, coll, v); err != nil {
			t.Fatal(err)
		}
	}
	insert(store.Transfers, core.TransferRecord{Receiver: "Ibrar", Amount: core.NumberAmount(1), Date: core.StoredNow(now)})
	insert(store.Transfers, core.TransferRecord{Receiver: "Ibrar", Amount: core.NumberAmount(1), Date: core.StoredNow(yesterday)})
	insert(store.Expenses, core.ExpenseRecord{Title: "a", Amount: core.NumberAmount(1), CreatedAt: core.StoredNow(now)})
	insert(store.Expenses, core.ExpenseRecord{Title: "b", Amount: core.NumberAmount(1), CreatedAt: core.StoredNow(yesterday)})

	var got Outcome
	e := NewEngine(ms, adminOnly(admin.Email), WithLocation(loc), OnPurged(func(_ context.Context, o Outcome) { got = o }))
	out, err := e.Perform(ctx, admin, ScopeAll, Today(now, loc))
	if err != nil {
		t.Fatal(err)
	}
	if out.Transfers != 1 || out.Expenses != 1 || out.Total() != 2 {
		t.Fatalf("outcome = %+v", out)
	}
	if out.Message() != "Removed 2 record(s)." {
		t.Fatalf("message = %q", out.Message())
	}
	if got.Total() != 2 {
		t.Fatalf("reload hook saw %+v", got)
	}

	for _, coll := range store.Collections() {
		docs, _ := ms.ReadAll(ctx, coll)
		if len(docs) != 1 {
			t.Fatalf("%s: %d left, want yesterday's record only", coll, len(docs))
		}
	}
}

func TestPerformSingleScope(t *testing.T) {
	ctx := context.Background()
	ms := memory.New()
	defer ms.Close()
	at := core.StoredNow(time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC))
	ms.Insert(ctx, store.Transfers, core.TransferRecord{Receiver: "Ibrar", Date: at})
	ms.Insert(ctx, store.Expenses, core.ExpenseRecord{Title: "x", CreatedAt: at})

	e := NewEngine(ms, adminOnly(admin.Email), WithLocation(time.UTC))
	out, err := e.Perform(ctx, admin, ScopeExpenses, AllTime(time.UTC))
	if err != nil {
		t.Fatal(err)
	}
	if out.Expenses != 1 || out.Transfers != 0 {
		t.Fatalf("outcome = %+v", out)
	}
	if docs, _ := ms.ReadAll(ctx, store.Transfers); len(docs) != 1 {
		t.Fatal("transfers should be untouched")
	}

	if _, err := e.Perform(ctx, admin, "people", AllTime(time.UTC)); !errors.Is(err, ErrInvalidScope) {
		t.Fatalf("err = %v, want ErrInvalidScope", err)
	}
	if _, err := e.Perform(ctx, admin, ScopeAll, Interval{}); !errors.Is(err, ErrInvalidInterval) {
		t.Fatalf("err = %v, want ErrInvalidInterval", err)
	}
}

func TestPerformReportsPartialFailure(t *testing.T) {
	ctx := context.Background()
	ms := memory.New()
	defer ms.Close()
	seedExpenses(t, ms, 500, time.Now())
	cs := &countingStore{RecordStore: ms, failAfter: 1}

	reloaded := false
	e := NewEngine(cs, adminOnly(admin.Email), OnPurged(func(context.Context, Outcome) { reloaded = true }))
	out, err := e.Perform(ctx, admin, ScopeExpenses, AllTime(time.Local))
	if err == nil {
		t.Fatal("expected failure")
	}
	if out.Expenses != 450 {
		t.Fatalf("committed = %d, want 450", out.Expenses)
	}
	if !reloaded {
		t.Fatal("views should reload after a partial deletion")
	}
}

// slowExpenses fails every transfer read and delays the expense read until
// the transfer pass has failed, watching ctx for cancellation meanwhile.
type slowExpenses struct {
	store.RecordStore
	failed chan struct{}
}

func (s *slowExpenses) ReadAll(ctx context.Context, coll store.Collection) ([]store.Document, error) {
	if coll == store.Transfers {
		close(s.failed)
		return nil, errors.New("transfers unavailable")
	}
	<-s.failed
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-time.After(50 * time.Millisecond):
	}
	return s.RecordStore.ReadAll(ctx, coll)
}

func TestPerformAllFinishesOtherCollectionOnFailure(t *testing.T) {
	ctx := context.Background()
	ms := memory.New()
	defer ms.Close()
	seedExpenses(t, ms, 3, time.Now())

	e := NewEngine(&slowExpenses{RecordStore: ms, failed: make(chan struct{})}, adminOnly(admin.Email))
	out, err := e.Perform(ctx, admin, ScopeAll, AllTime(time.Local))
	if err == nil {
		t.Fatal("expected the transfer failure to be reported")
	}
	if out.Expenses != 3 || out.Transfers != 0 {
		t.Fatalf("outcome = %+v, want the expense pass to complete", out)
	}
	if docs, _ := ms.ReadAll(ctx, store.Expenses); len(docs) != 0 {
		t.Fatalf("%d expenses left", len(docs))
	}
}
