// Package sqlite is the durable record store: one documents table keyed by
// collection and id, with the raw JSON of every record.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"cashbook/internal/log"
	"cashbook/internal/store"

	_ "modernc.org/sqlite"
)

type Store struct {
	db   *sql.DB
	opts store.Options
	hub  *store.Hub
}

var _ store.RecordStore = (*Store)(nil)

// Open opens (creating if needed) the database at dbPath and migrates it.
func Open(ctx context.Context, dbPath string, opts ...store.Option) (*Store, error) {
	if dir := filepath.Dir(dbPath); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create db directory: %w", err)
		}
	}

	if err := RunMigrations(dbPath); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// A single connection serializes writers and avoids SQLITE_BUSY
	// between the two concurrent deletion passes.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	if _, err := db.ExecContext(ctx, "PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set busy timeout: %w", err)
	}

	s := &Store{db: db, opts: store.BuildOptions(opts...)}
	s.hub = store.NewHub(s.ReadAll)
	s.opts.Logger.InfoContext(ctx, "SQLite store ready", "path", dbPath)
	return s, nil
}

// Hub exposes the subscription hub so remote changes can trigger refreshes.
func (s *Store) Hub() *store.Hub { return s.hub }

// Ping checks the database connection.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Store) Close() error {
	s.hub.Close()
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

func (s *Store) ReadAll(ctx context.Context, coll store.Collection) ([]store.Document, error) {
	if err := store.Check(coll); err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, data FROM documents WHERE collection = ? ORDER BY seq`, string(coll))
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", coll, err)
	}
	defer rows.Close()

	var out []store.Document
	for rows.Next() {
		var id, data string
		if err := rows.Scan(&id, &data); err != nil {
			return nil, fmt.Errorf("scan %s: %w", coll, err)
		}
		out = append(out, store.Document{ID: id, Data: json.RawMessage(data)})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate %s: %w", coll, err)
	}
	return out, nil
}

func (s *Store) Subscribe(ctx context.Context, q store.Query, onSnap store.SnapshotFunc, onErr store.ErrorFunc) (store.Unsubscribe, error) {
	return s.hub.Subscribe(ctx, q, onSnap, onErr)
}

func (s *Store) Insert(ctx context.Context, coll store.Collection, record any) (string, error) {
	if err := store.Check(coll); err != nil {
		return "", err
	}
	data, err := json.Marshal(record)
	if err != nil {
		return "", fmt.Errorf("encode %s document: %w", coll, err)
	}
	id := s.opts.NewID()
	if _, err := s.db.ExecContext(ctx,
		`INSERT INTO documents (collection, id, data) VALUES (?, ?, ?)`,
		string(coll), id, string(data)); err != nil {
		return "", fmt.Errorf("insert %s: %w", coll, err)
	}

	s.opts.Logger.DebugContext(ctx, "Document inserted",
		log.FieldCollection, string(coll), log.FieldDocID, id)
	s.opts.Announce(ctx, s.hub, store.Change{Collection: coll, Op: store.OpInsert, IDs: []string{id}})
	return id, nil
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

// Commit runs every delete in one transaction.
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

	tx, err := b.s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin batch: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `DELETE FROM documents WHERE collection = ? AND id = ?`)
	if err != nil {
		return fmt.Errorf("prepare batch delete: %w", err)
	}
	defer stmt.Close()

	touched := make(map[store.Collection][]string)
	for _, o := range b.ops {
		res, err := stmt.ExecContext(ctx, string(o.coll), o.id)
		if err != nil {
			return fmt.Errorf("delete %s/%s: %w", o.coll, o.id, err)
		}
		if n, _ := res.RowsAffected(); n > 0 {
			touched[o.coll] = append(touched[o.coll], o.id)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit batch: %w", err)
	}
	b.committed = true

	for coll, ids := range touched {
		b.s.opts.Announce(ctx, b.s.hub, store.Change{Collection: coll, Op: store.OpDelete, IDs: ids})
	}
	return nil
}
