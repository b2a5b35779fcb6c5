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

package relay

import (
	"context"
	"sync"

	"github.com/nbd-wtf/go-nostr"
)

// Fake is an in-memory Client for session/façade tests: Publish
// records events instead of sending them anywhere, Subscribe replays
// whatever Fake.Feed pushes in. Close mirrors PoolClient's semantics of
// tearing down the current connection without precluding a later
// reconnect (ForceReconnect): subscriber channels are closed and
// forgotten rather than leaving the Fake permanently dead.
type Fake struct {
	mu          sync.Mutex
	Connected   []string
	Published   []*nostr.Event
	ConnectErr  error
	PublishErr  error
	subscribers []chan *nostr.Event
	closed      bool
}

// NewFake builds an empty Fake.
func NewFake() *Fake { return &Fake{} }

func (f *Fake) Connect(_ context.Context, urls []string) error {
	if f.ConnectErr != nil {
		return f.ConnectErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Connected = append(f.Connected, urls...)
	return nil
}

func (f *Fake) Subscribe(_ context.Context, _ nostr.Filter) (<-chan *nostr.Event, error) {
	ch := make(chan *nostr.Event, 64)
	f.mu.Lock()
	f.subscribers = append(f.subscribers, ch)
	f.mu.Unlock()
	return ch, nil
}

func (f *Fake) Publish(_ context.Context, ev *nostr.Event) error {
	if f.PublishErr != nil {
		return f.PublishErr
	}
	f.mu.Lock()
	f.Published = append(f.Published, ev)
	f.mu.Unlock()
	return nil
}

func (f *Fake) Sync(_ context.Context, _ nostr.Filter) error { return nil }

func (f *Fake) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, ch := range f.subscribers {
		close(ch)
	}
	f.subscribers = nil
	f.closed = true
	return nil
}

// Feed delivers ev to every active subscriber, simulating an inbound
// relay event.
func (f *Fake) Feed(ev *nostr.Event) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, ch := range f.subscribers {
		ch <- ev
	}
}

// Snapshot returns a copy of every event Published so far, safe to
// call concurrently with in-flight Publish calls.
func (f *Fake) Snapshot() []*nostr.Event {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*nostr.Event(nil), f.Published...)
}
