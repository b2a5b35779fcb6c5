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

package eventstore

import (
	"sync"

	"github.com/nbd-wtf/go-nostr"
)

// Subscription is a stream handle yielding batches of newly-admitted
// events matching a filter. Batches are coalesced: all events admitted
// within one coalesceInterval window are delivered together. The
// stream is finite only when the store is closed.
type Subscription struct {
	Batches <-chan []*nostr.Event

	store *Store
	sub   *subscription
}

type subscription struct {
	filter  Filter
	out     chan []*nostr.Event
	pending struct {
		sync.Mutex
		events []*nostr.Event
	}
}

// Subscribe registers filter and returns a Subscription. The stream
// yields a batch each time one or more matching events are admitted
// after the subscription was created; prior events are not replayed
// (callers wanting backfill should Query first).
func (s *Store) Subscribe(filter Filter) *Subscription {
	sub := &subscription{
		filter: filter,
		out:    make(chan []*nostr.Event, 8),
	}
	s.subMu.Lock()
	s.subs = append(s.subs, sub)
	s.subMu.Unlock()

	return &Subscription{Batches: sub.out, store: s, sub: sub}
}

// Close unregisters the subscription; the channel is closed and no
// further batches are delivered.
func (h *Subscription) Close() {
	h.store.subMu.Lock()
	defer h.store.subMu.Unlock()
	for i, s := range h.store.subs {
		if s == h.sub {
			h.store.subs = append(h.store.subs[:i], h.store.subs[i+1:]...)
			close(s.out)
			return
		}
	}
}

func (s *Store) notifySubscribers(ev *nostr.Event) {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	for _, sub := range s.subs {
		if !sub.filter.matches(ev) {
			continue
		}
		sub.pending.Lock()
		sub.pending.events = append(sub.pending.events, ev)
		sub.pending.Unlock()
	}
}

func (s *Store) coalesceLoop() {
	for {
		select {
		case <-s.done:
			return
		case <-s.tick.C:
			s.flushAll()
		}
	}
}

func (s *Store) flushAll() {
	s.subMu.Lock()
	subs := make([]*subscription, len(s.subs))
	copy(subs, s.subs)
	s.subMu.Unlock()

	for _, sub := range subs {
		sub.pending.Lock()
		if len(sub.pending.events) == 0 {
			sub.pending.Unlock()
			continue
		}
		batch := sub.pending.events
		sub.pending.events = nil
		sub.pending.Unlock()

		select {
		case sub.out <- batch:
		default:
			// Consumer is behind; merge into the next flush rather than
			// drop, since store subscriptions must never lose events.
			sub.pending.Lock()
			sub.pending.events = append(batch, sub.pending.events...)
			sub.pending.Unlock()
		}
	}
}
