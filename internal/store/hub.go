package store

import (
	"context"
	"sync"
)

// SourceFunc reads a whole collection for a subscription refresh.
type SourceFunc func(ctx context.Context, coll Collection) ([]Document, error)

// Hub keeps the live subscriptions of one store. Each subscription runs its
// own delivery goroutine, so snapshots for one subscriber never overlap and
// bursts of changes collapse into one refresh.
type Hub struct {
	source SourceFunc

	mu     sync.Mutex
	next   uint64
	subs   map[uint64]*subscription
	closed bool
}

type subscription struct {
	q       Query
	onSnap  SnapshotFunc
	onErr   ErrorFunc
	signal  chan struct{}
	done    chan struct{}
	stopped sync.Once
}

func NewHub(source SourceFunc) *Hub {
	return &Hub{source: source, subs: make(map[uint64]*subscription)}
}

// Subscribe registers q and schedules the initial snapshot. Deliveries stop
// when the returned Unsubscribe is called or ctx is done.
func (h *Hub) Subscribe(ctx context.Context, q Query, onSnap SnapshotFunc, onErr ErrorFunc) (Unsubscribe, error) {
	if err := Check(q.Collection); err != nil {
		return nil, err
	}
	sub := &subscription{
		q:      q,
		onSnap: onSnap,
		onErr:  onErr,
		signal: make(chan struct{}, 1),
		done:   make(chan struct{}),
	}

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return nil, ErrClosed
	}
	id := h.next
	h.next++
	h.subs[id] = sub
	h.mu.Unlock()

	sub.signal <- struct{}{}
	go h.run(ctx, id, sub)

	return func() { h.remove(id, sub) }, nil
}

func (h *Hub) remove(id uint64, sub *subscription) {
	sub.stopped.Do(func() { close(sub.done) })
	h.mu.Lock()
	delete(h.subs, id)
	h.mu.Unlock()
}

func (h *Hub) run(ctx context.Context, id uint64, sub *subscription) {
	defer h.remove(id, sub)
	for {
		select {
		case <-ctx.Done():
			return
		case <-sub.done:
			return
		case <-sub.signal:
		}

		docs, err := h.source(ctx, sub.q.Collection)

		select {
		case <-sub.done:
			return
		default:
		}
		if err != nil {
			if sub.onErr != nil {
				sub.onErr(err)
			}
			continue
		}
		sub.onSnap(OrderPage(docs, sub.q))
	}
}

// Notify schedules a refresh of every subscription on coll.
func (h *Hub) Notify(coll Collection) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, sub := range h.subs {
		if sub.q.Collection != coll {
			continue
		}
		select {
		case sub.signal <- struct{}{}:
		default:
		}
	}
}

// Len reports the number of live subscriptions.
func (h *Hub) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

// Close stops every subscription and rejects new ones.
func (h *Hub) Close() {
	h.mu.Lock()
	subs := h.subs
	h.subs = make(map[uint64]*subscription)
	h.closed = true
	h.mu.Unlock()
	for _, sub := range subs {
		sub.stopped.Do(func() { close(sub.done) })
	}
}
