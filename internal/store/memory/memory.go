// Package memory is an in-process record store for development and tests.
package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"cashbook/internal/store"
)

type entry struct {
	data json.RawMessage
	seq  uint64
}

type Store struct {
	opts store.Options
	hub  *store.Hub

	mu   sync.RWMutex
	seq  uint64
	docs map[store.Collection]map[string]entry
}

var _ store.RecordStore = (*Store)(nil)

func New(opts ...store.Option) *Store {
	s := &Store{
		opts: store.BuildOptions(opts...),
		docs: make(map[store.Collection]map[string]entry),
	}
	for _, c := range store.Collections() {
		s.docs[c] = make(map[string]entry)
	}
	s.hub = store.NewHub(s.ReadAll)
	return s
}

// Hub exposes the subscription hub so remote changes can trigger refreshes.
func (s *Store) Hub() *store.Hub { return s.hub }

// Close stops all subscriptions.
func (s *Store) Close() error {
	s.hub.Close()
	return nil
}

// ReadAll returns the collection in insertion order.
func (s *Store) ReadAll(ctx context.Context, coll store.Collection) ([]store.Document, error) {
	if err := store.Check(coll); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	type row struct {
		id string
		e  entry
	}
	rows := make([]row, 0, len(s.docs[coll]))
	for id, e := range s.docs[coll] {
		rows = append(rows, row{id, e})
	}
	s.mu.RUnlock()

	sort.Slice(rows, func(i, j int) bool { return rows[i].e.seq < rows[j].e.seq })
	out := make([]store.Document, len(rows))
	for i, r := range rows {
		out[i] = store.Document{ID: r.id, Data: append(json.RawMessage(nil), r.e.data...)}
	}
	return out, nil
}

func (s *Store) Subscribe(ctx context.Context, q store.Query, onSnap store.SnapshotFunc, onErr store.ErrorFunc) (store.Unsubscribe, error) {
	return s.hub.Subscribe(ctx, q, onSnap, onErr)
}

// Insert stores record under a fresh id.
func (s *Store) Insert(ctx context.Context, coll store.Collection, record any) (string, error) {
	id := s.opts.NewID()
	if err := s.Put(ctx, coll, id, record); err != nil {
		return "", err
	}
	return id, nil
}

// Put stores record under id, replacing any existing document.
func (s *Store) Put(ctx context.Context, coll store.Collection, id string, record any) error {
	if err := store.Check(coll); err != nil {
		return err
	}
	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("encode %s document: %w", coll, err)
	}
	s.mu.Lock()
	s.seq++
	s.docs[coll][id] = entry{data: data, seq: s.seq}
	s.mu.Unlock()

	s.opts.Announce(ctx, s.hub, store.Change{Collection: coll, Op: store.OpInsert, IDs: []string{id}})
	return nil
}

func (s *Store) BeginBatch() store.Batch {
	return &batch{s: s}
}

type op struct {
	coll store.Collection
	id   string
}

type batch struct {
	s         *Store
	ops       []op
	committed bool
}

func (b *batch) Delete(coll store.Collection, id string) {
	b.ops = append(b.ops, op{coll, id})
}

func (b *batch) Len() int { return len(b.ops) }

// Commit applies every delete atomically. Deleting a missing id is a no-op.
func (b *batch) Commit(ctx context.Context) error {
	if b.committed {
		return store.ErrBatchCommitted
	}
	if len(b.ops) > store.MaxBatchOps {
		return fmt.Errorf("%w: %d > %d", store.ErrBatchTooLarge, len(b.ops), store.MaxBatchOps)
	}
	for _, o := range b.ops {
		if err := store.Check(o.coll); err != nil {
			return err
		}
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	touched := make(map[store.Collection][]string)
	b.s.mu.Lock()
	for _, o := range b.ops {
		if _, ok := b.s.docs[o.coll][o.id]; ok {
			delete(b.s.docs[o.coll], o.id)
			touched[o.coll] = append(touched[o.coll], o.id)
		}
	}
	b.s.mu.Unlock()
	b.committed = true

	for coll, ids := range touched {
		b.s.opts.Announce(ctx, b.s.hub, store.Change{Collection: coll, Op: store.OpDelete, IDs: ids})
	}
	return nil
}
