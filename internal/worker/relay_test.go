package worker

import (
	"context"
	"sync"
	"testing"
	"time"

	"cashbook/internal/amqp"
	"cashbook/internal/store"
)

type fakeSource struct {
	origin string
	msgs   []*amqp.ChangeMessage
	errs   chan error
}

func (f *fakeSource) Origin() string { return f.origin }

func (f *fakeSource) ConsumeChanges(ctx context.Context, handler func(*amqp.ChangeMessage) error) error {
	for _, m := range f.msgs {
		err := handler(m)
		if f.errs != nil {
			f.errs <- err
		}
	}
	<-ctx.Done()
	return ctx.Err()
}

type recordingNotifier struct {
	mu    sync.Mutex
	colls []store.Collection
}

func (n *recordingNotifier) Notify(c store.Collection) {
	n.mu.Lock()
	n.colls = append(n.colls, c)
	n.mu.Unlock()
}

func (n *recordingNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.colls)
}

func TestRelay_HandleChange(t *testing.T) {
	src := &fakeSource{origin: "self"}
	n := &recordingNotifier{}
	var changes []store.Change
	r := NewRelay(src, n, func(c store.Change) { changes = append(changes, c) }, nil)
	ctx := context.Background()

	tests := []struct {
		name       string
		msg        *amqp.ChangeMessage
		wantErr    bool
		wantNotify int
	}{
		{"own change ignored", &amqp.ChangeMessage{Collection: store.Expenses, Op: store.OpInsert, Origin: "self"}, false, 0},
		{"other instance relayed", &amqp.ChangeMessage{Collection: store.Expenses, Op: store.OpInsert, Origin: "peer"}, false, 1},
		{"unknown collection rejected", &amqp.ChangeMessage{Collection: "users", Op: store.OpDelete, Origin: "peer"}, true, 1},
		{"delete relayed", &amqp.ChangeMessage{Collection: store.Transfers, Op: store.OpDelete, IDs: []string{"a"}, Origin: "peer"}, false, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := r.HandleChange(ctx, tt.msg)
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if n.count() != tt.wantNotify {
				t.Fatalf("notifications = %d, want %d", n.count(), tt.wantNotify)
			}
		})
	}
	if r.Relayed() != 2 || len(changes) != 2 || changes[1].Collection != store.Transfers {
		t.Fatalf("relayed = %d, changes = %+v", r.Relayed(), changes)
	}
}

func TestRelay_Lifecycle(t *testing.T) {
	src := &fakeSource{
		origin: "self",
		msgs:   []*amqp.ChangeMessage{{Collection: store.Expenses, Op: store.OpInsert, Origin: "peer"}},
		errs:   make(chan error, 1),
	}
	n := &recordingNotifier{}
	r := NewRelay(src, n, nil, nil)

	if err := r.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	if err := r.Start(context.Background()); err == nil {
		t.Fatal("second Start should fail")
	}

	select {
	case err := <-src.errs:
		if err != nil {
			t.Fatalf("handler err = %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("message not handled")
	}
	if n.count() != 1 {
		t.Fatalf("notifications = %d", n.count())
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := r.Stop(ctx); err != nil {
		t.Fatal(err)
	}
	if r.IsRunning() {
		t.Fatal("still running after Stop")
	}
}

func TestRelay_StopWithoutStart(t *testing.T) {
	r := NewRelay(&fakeSource{}, &recordingNotifier{}, nil, nil)
	if err := r.Stop(context.Background()); err != nil {
		t.Fatal(err)
	}
}
