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

// Package trust holds the approved/blocked backend sets and the queue of
// pending approvals generated when an untrusted backend's status first
// appears.
package trust

import (
	"sort"
	"sync"

	"github.com/tenex-chat/tui-sub004/internal/domain"
)

const maxPending = 1000

// Decision is what the trust engine says about a newly-ingested
// ProjectStatus before it reaches the domain store.
type Decision int

const (
	// Admit means the status may enter the online set.
	Admit Decision = iota
	// Drop means the creator is blocked; discard silently.
	Drop
	// Enqueue means the creator is unknown; park a pending approval.
	Enqueue
)

// Engine tracks approved/blocked pubkeys and pending approvals. Trust
// state is persisted in the preferences file so it survives restarts;
// the façade saves Snapshot's sets through internal/prefs and restores
// them with SetTrustedBackends.
type Engine struct {
	mu sync.Mutex

	approved map[string]bool
	blocked  map[string]bool
	pending  []domain.PendingBackendApproval
}

// NewEngine builds an empty Engine.
func NewEngine() *Engine {
	return &Engine{
		approved: make(map[string]bool),
		blocked:  make(map[string]bool),
	}
}

// Classify decides what to do with a status from creator before it is
// applied to the domain store.
func (e *Engine) Classify(creator string) Decision {
	e.mu.Lock()
	defer e.mu.Unlock()
	switch {
	case e.blocked[creator]:
		return Drop
	case e.approved[creator]:
		return Admit
	default:
		return Enqueue
	}
}

// EnqueuePending records a pending approval, keyed uniquely on
// (backend, project). Best-effort: if the queue is full, the oldest
// non-kept entry is evicted without reordering the remainder.
func (e *Engine) EnqueuePending(p domain.PendingBackendApproval) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for i, existing := range e.pending {
		if existing.BackendPubkey == p.BackendPubkey && existing.ProjectAddress == p.ProjectAddress {
			e.pending[i] = p
			return
		}
	}
	if len(e.pending) >= maxPending {
		e.pending = e.pending[1:]
	}
	e.pending = append(e.pending, p)
}

// Approve removes pk from blocked, adds it to approved, and returns the
// pending approvals that originated from pk so the caller (the
// ingestion pipeline) can promote them into the domain store.
func (e *Engine) Approve(pk string) []domain.PendingBackendApproval {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.blocked, pk)
	e.approved[pk] = true

	var promoted []domain.PendingBackendApproval
	var kept []domain.PendingBackendApproval
	for _, p := range e.pending {
		if p.BackendPubkey == pk {
			promoted = append(promoted, p)
		} else {
			kept = append(kept, p)
		}
	}
	e.pending = kept
	return promoted
}

// Block removes pk from approved, adds it to blocked, and drops pk's
// pending approvals. Evicting its online statuses is left to the caller
// (ingest.Pipeline.BlockBackend).
func (e *Engine) Block(pk string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.approved, pk)
	e.blocked[pk] = true

	var kept []domain.PendingBackendApproval
	for _, p := range e.pending {
		if p.BackendPubkey != pk {
			kept = append(kept, p)
		}
	}
	e.pending = kept
}

// DrainPending snapshots and clears the pending queue.
func (e *Engine) DrainPending() []domain.PendingBackendApproval {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := e.pending
	e.pending = nil
	return out
}

// Snapshot is the trust state returned to the façade caller.
type Snapshot struct {
	Approved []string
	Blocked  []string
	Pending  []domain.PendingBackendApproval
}

// Snapshot returns approved (sorted), blocked (sorted), and pending
// (sorted by first-seen descending).
func (e *Engine) Snapshot() Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()

	approved := make([]string, 0, len(e.approved))
	for pk := range e.approved {
		approved = append(approved, pk)
	}
	sort.Strings(approved)

	blocked := make([]string, 0, len(e.blocked))
	for pk := range e.blocked {
		blocked = append(blocked, pk)
	}
	sort.Strings(blocked)

	pending := make([]domain.PendingBackendApproval, len(e.pending))
	copy(pending, e.pending)
	sort.SliceStable(pending, func(i, j int) bool {
		return pending[i].FirstSeenUnix > pending[j].FirstSeenUnix
	})

	return Snapshot{Approved: approved, Blocked: blocked, Pending: pending}
}

// SetTrustedBackends replaces the approved/blocked sets wholesale (used
// by the façade's set_trusted_backends surface).
func (e *Engine) SetTrustedBackends(approved, blocked []string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.approved = make(map[string]bool, len(approved))
	for _, pk := range approved {
		e.approved[pk] = true
	}
	e.blocked = make(map[string]bool, len(blocked))
	for _, pk := range blocked {
		e.blocked[pk] = true
	}
}
