package feed

import (
	"sync"

	"cashbook/internal/core"
)

// Broadcaster fans feed updates out to many listeners, such as websocket
// connections. A slow listener only ever sees the newest feed.
type Broadcaster struct {
	mu        sync.Mutex
	next      int
	listeners map[int]chan []core.Activity
	last      []core.Activity
	hasLast   bool
}

func NewBroadcaster() *Broadcaster {
	return &Broadcaster{listeners: make(map[int]chan []core.Activity)}
}

// Publish hands items to every listener, replacing anything they have not read yet.
func (b *Broadcaster) Publish(items []core.Activity) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.last, b.hasLast = items, true
	for _, ch := range b.listeners {
		offer(ch, items)
	}
}

func offer(ch chan []core.Activity, items []core.Activity) {
	select {
	case <-ch:
	default:
	}
	ch <- items
}

// Listen registers a listener. The current feed, if any, is queued right away.
// The returned cancel func closes the channel.
func (b *Broadcaster) Listen() (<-chan []core.Activity, func()) {
	ch := make(chan []core.Activity, 1)
	b.mu.Lock()
	id := b.next
	b.next++
	b.listeners[id] = ch
	if b.hasLast {
		ch <- b.last
	}
	b.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.listeners, id)
			b.mu.Unlock()
			close(ch)
		})
	}
}

// Listeners reports how many listeners are registered.
func (b *Broadcaster) Listeners() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.listeners)
}
