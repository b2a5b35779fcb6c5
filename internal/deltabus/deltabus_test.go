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

package deltabus

import (
	"sync"
	"testing"
	"time"

	"github.com/nbd-wtf/go-nostr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tenex-chat/tui-sub004/internal/domain"
	"github.com/tenex-chat/tui-sub004/internal/ingest"
	"github.com/tenex-chat/tui-sub004/internal/kinds"
	"github.com/tenex-chat/tui-sub004/internal/trust"
)

func newBus() (*Bus, *domain.Store) {
	store := domain.NewStore()
	pipeline := ingest.New(store, trust.NewEngine())
	return New(pipeline), store
}

type recorder struct {
	mu     sync.Mutex
	deltas []domain.Delta
}

func (r *recorder) callback(d domain.Delta) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.deltas = append(r.deltas, d)
}

func (r *recorder) snapshot() []domain.Delta {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]domain.Delta(nil), r.deltas...)
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	require.FailNow(t, "condition not met before deadline")
}

func TestNoCallbackNoListenerUntilRegistered(t *testing.T) {
	b, _ := newBus()
	assert.False(t, b.HasCallback())
}

func TestRelayEventProducesCallbackDelta(t *testing.T) {
	b, _ := newBus()
	rec := &recorder{}
	b.SetCallback(rec.callback)
	defer b.ClearCallback()

	b.FeedRelay(&nostr.Event{
		Kind:      kinds.Project,
		PubKey:    "pk",
		CreatedAt: 1,
		Tags:      nostr.Tags{{"d", "proj1"}},
	})

	waitFor(t, func() bool { return len(rec.snapshot()) == 1 })
	assert.Equal(t, domain.ProjectCreated, rec.snapshot()[0].Kind)
}

func TestChunkBypassesPipeline(t *testing.T) {
	b, _ := newBus()
	rec := &recorder{}
	b.SetCallback(rec.callback)
	defer b.ClearCallback()

	b.FeedChunk(domain.StreamChunk{AgentPubkey: "a", ConversationID: "c", Type: "text-delta", Text: "hi"})

	waitFor(t, func() bool { return len(rec.snapshot()) == 1 })
	d := rec.snapshot()[0]
	assert.Equal(t, domain.StreamChunkDelta, d.Kind)
	assert.Equal(t, "c", d.ConversationID)
	assert.Equal(t, "hi", d.StreamChunk.Text)
}

func TestFeedDeltaBypassesPipeline(t *testing.T) {
	b, _ := newBus()
	rec := &recorder{}
	b.SetCallback(rec.callback)
	defer b.ClearCallback()

	b.FeedDelta(domain.Delta{Kind: domain.ProjectStatusChanged, ProjectAddress: "31933:pk:proj1", IsOnline: false})

	waitFor(t, func() bool { return len(rec.snapshot()) == 1 })
	d := rec.snapshot()[0]
	assert.Equal(t, domain.ProjectStatusChanged, d.Kind)
	assert.Equal(t, "31933:pk:proj1", d.ProjectAddress)
	assert.False(t, d.IsOnline)
}

func TestClearCallbackStopsDelivery(t *testing.T) {
	b, _ := newBus()
	rec := &recorder{}
	b.SetCallback(rec.callback)
	b.ClearCallback()
	assert.False(t, b.HasCallback())

	b.FeedRelay(&nostr.Event{Kind: kinds.Project, PubKey: "pk", CreatedAt: 1, Tags: nostr.Tags{{"d", "p"}}})
	time.Sleep(50 * time.Millisecond)
	assert.Empty(t, rec.snapshot())
}

func TestOrderWithinRelayStreamPreserved(t *testing.T) {
	b, store := newBus()
	rec := &recorder{}
	b.SetCallback(rec.callback)
	defer b.ClearCallback()

	threadEv := &nostr.Event{ID: "t1", Kind: kinds.Note, CreatedAt: 1, Tags: nostr.Tags{{"a", "addr"}}}
	msgEv := &nostr.Event{ID: "m1", Kind: kinds.Note, CreatedAt: 2, Tags: nostr.Tags{{"e", "t1"}}}

	b.FeedRelay(threadEv)
	b.FeedRelay(msgEv)

	waitFor(t, func() bool { return len(rec.snapshot()) == 2 })
	deltas := rec.snapshot()
	assert.Equal(t, domain.ThreadAppeared, deltas[0].Kind)
	assert.Equal(t, domain.MessageArrived, deltas[1].Kind)
	assert.Len(t, store.ListMessages("t1"), 1)
}
