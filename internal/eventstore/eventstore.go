// Copyright 2026 Teradata
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//	http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package eventstore implements the durable, content-addressed event
// store with typed filter subscriptions (spec §4.1). Events are backed
// by a modernc.org/sqlite database file ("data.mdb") guarded by an
// exclusive PID-stamped lock file ("lock.mdb"), reclaimed at startup if
// stale.
package eventstore

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/nbd-wtf/go-nostr"
	"go.uber.org/zap"

	_ "modernc.org/sqlite"

	"github.com/tenex-chat/tui-sub004/internal/tenexlog"
)

// AdmitResult is the outcome of Ingest.
type AdmitResult int

const (
	Admitted AdmitResult = iota
	Duplicate
	Invalid
)

// ErrStoreLocked is returned by Open when a live holder's lock file is
// present.
var ErrStoreLocked = errors.New("eventstore: locked by a live holder")

// ErrFull names the condition of an exhausted backing store (disk full,
// quota reached). Ingest does not return it: a failed write, whatever
// its cause, is logged and reported as Invalid.
var ErrFull = errors.New("eventstore: store is full")

const coalesceInterval = 40 * time.Millisecond

// Store is the event store: a single sqlite-backed database guarded by
// a process-wide mutex around any open transaction, since modernc's
// sqlite driver is not safe for interleaved writer transactions across
// goroutines.
type Store struct {
	mu      sync.Mutex // guards all transactions (process-wide reclaim lock, spec §9)
	db      *sql.DB
	lock    *lockFile
	logger  *zap.Logger
	dataDir string

	subMu sync.Mutex
	subs  []*subscription
	tick  *time.Ticker
	done  chan struct{}
}

// Open opens (or creates) the event store rooted at dataDir, reclaiming
// a stale lock.mdb if no live holder exists.
func Open(dataDir string) (*Store, error) {
	lf, err := acquireLock(dataDir)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", dataDir+"/data.mdb?_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)")
	if err != nil {
		lf.release()
		return nil, fmt.Errorf("eventstore: open data.mdb: %w", err)
	}
	db.SetMaxOpenConns(1) // single-writer discipline backs the process-wide tx mutex

	if err := migrate(db); err != nil {
		db.Close()
		lf.release()
		return nil, fmt.Errorf("eventstore: migrate: %w", err)
	}

	s := &Store{
		db:      db,
		lock:    lf,
		logger:  tenexlog.Logger(),
		dataDir: dataDir,
		done:    make(chan struct{}),
	}
	s.tick = time.NewTicker(coalesceInterval)
	go s.coalesceLoop()
	return s, nil
}

func migrate(db *sql.DB) error {
	_, err := db.Exec(`
CREATE TABLE IF NOT EXISTS events (
	digest     TEXT PRIMARY KEY,
	kind       INTEGER NOT NULL,
	pubkey     TEXT NOT NULL,
	created_at INTEGER NOT NULL,
	content    TEXT NOT NULL,
	tags_json  TEXT NOT NULL,
	sig        TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_events_kind ON events(kind);
CREATE INDEX IF NOT EXISTS idx_events_pubkey ON events(pubkey);
CREATE INDEX IF NOT EXISTS idx_events_created_at ON events(created_at);
`)
	return err
}

// Close stops the coalescing loop and closes the database and lock.
// Takes s.mu so it cannot race an in-flight All/Count/Ingest call.
func (s *Store) Close() error {
	close(s.done)
	s.tick.Stop()
	s.mu.Lock()
	defer s.mu.Unlock()
	err := s.db.Close()
	s.lock.release()
	return err
}

// Ingest admits ev if its digest is not already stored. Signature
// validity is pre-checked by the producer (the session's relay client);
// this store only deduplicates and persists.
func (s *Store) Ingest(ev *nostr.Event) AdmitResult {
	if ev.ID == "" {
		return Invalid
	}

	tagsJSON, err := json.Marshal(ev.Tags)
	if err != nil {
		s.logger.Warn("eventstore: tag marshal failed", zap.String("id", ev.ID), zap.Error(err))
		return Invalid
	}

	s.mu.Lock()
	res, err := s.db.Exec(
		`INSERT OR IGNORE INTO events (digest, kind, pubkey, created_at, content, tags_json, sig) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		ev.ID, ev.Kind, ev.PubKey, int64(ev.CreatedAt), ev.Content, string(tagsJSON), ev.Sig,
	)
	s.mu.Unlock()
	if err != nil {
		s.logger.Error("eventstore: ingest failed", zap.String("id", ev.ID), zap.Error(err))
		return Invalid
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return Duplicate
	}

	s.notifySubscribers(ev)
	return Admitted
}

// LookupByDigest returns the event with the given hex digest, if any.
func (s *Store) LookupByDigest(digest string) (*nostr.Event, bool) {
	s.mu.Lock()
	row := s.db.QueryRow(`SELECT kind, pubkey, created_at, content, tags_json, sig FROM events WHERE digest = ?`, digest)
	ev, ok := scanEvent(row, digest)
	s.mu.Unlock()
	return ev, ok
}

type scannable interface {
	Scan(dest ...any) error
}

func scanEvent(row scannable, digest string) (*nostr.Event, bool) {
	var kind int
	var pubkey, content, tagsJSON, sig string
	var createdAt int64
	if err := row.Scan(&kind, &pubkey, &createdAt, &content, &tagsJSON, &sig); err != nil {
		return nil, false
	}
	var tags nostr.Tags
	_ = json.Unmarshal([]byte(tagsJSON), &tags)
	return &nostr.Event{
		ID:        digest,
		Kind:      kind,
		PubKey:    pubkey,
		CreatedAt: nostr.Timestamp(createdAt),
		Content:   content,
		Tags:      tags,
		Sig:       sig,
	}, true
}

// DataDir returns the directory this store is rooted at.
func (s *Store) DataDir() string { return s.dataDir }

// Count returns the number of events currently held, for diagnostics.
func (s *Store) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM events`).Scan(&n); err != nil {
		s.logger.Error("eventstore: count failed", zap.Error(err))
		return 0
	}
	return n
}

// All returns every event currently held, ordered by created_at. It
// backs internal/statecache's periodic snapshot: data.mdb remains the
// durable source of truth, the snapshot only shortcuts a cold-start
// replay.
func (s *Store) All() []*nostr.Event {
	type raw struct {
		kind      int
		pubkey    string
		createdAt int64
		content   string
		tagsJSON  string
		sig       string
		digest    string
	}

	s.mu.Lock()
	rows, err := s.db.Query(`SELECT kind, pubkey, created_at, content, tags_json, sig, digest FROM events ORDER BY created_at ASC`)
	if err != nil {
		s.mu.Unlock()
		s.logger.Error("eventstore: export failed", zap.Error(err))
		return nil
	}
	var rawRows []raw
	for rows.Next() {
		var r raw
		if err := rows.Scan(&r.kind, &r.pubkey, &r.createdAt, &r.content, &r.tagsJSON, &r.sig, &r.digest); err != nil {
			s.logger.Warn("eventstore: export scan failed", zap.Error(err))
			continue
		}
		rawRows = append(rawRows, r)
	}
	rows.Close()
	s.mu.Unlock()

	// Tag unmarshaling happens outside s.mu: it does not touch the
	// database, and holding the process-wide lock across it would block
	// Ingest for the whole export.
	out := make([]*nostr.Event, 0, len(rawRows))
	for _, r := range rawRows {
		var tags nostr.Tags
		_ = json.Unmarshal([]byte(r.tagsJSON), &tags)
		out = append(out, &nostr.Event{
			ID:        r.digest,
			Kind:      r.kind,
			PubKey:    r.pubkey,
			CreatedAt: nostr.Timestamp(r.createdAt),
			Content:   r.content,
			Tags:      tags,
			Sig:       r.sig,
		})
	}
	return out
}
