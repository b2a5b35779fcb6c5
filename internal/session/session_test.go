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

package session

import (
	"context"
	"testing"
	"time"

	"github.com/nbd-wtf/go-nostr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tenex-chat/tui-sub004/internal/bunker"
	"github.com/tenex-chat/tui-sub004/internal/deltabus"
	"github.com/tenex-chat/tui-sub004/internal/domain"
	"github.com/tenex-chat/tui-sub004/internal/eventstore"
	"github.com/tenex-chat/tui-sub004/internal/ingest"
	"github.com/tenex-chat/tui-sub004/internal/kinds"
	"github.com/tenex-chat/tui-sub004/internal/relay"
	"github.com/tenex-chat/tui-sub004/internal/trust"
)

func newTestSession(t *testing.T) (*Session, *relay.Fake, *eventstore.Store) {
	t.Helper()
	store, err := eventstore.Open(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	domainStore := domain.NewStore()
	pipeline := ingest.New(domainStore, trust.NewEngine())
	bus := deltabus.New(pipeline)

	fake := relay.NewFake()
	s := New(fake, func() relay.Client { return relay.NewFake() }, store, bus)
	t.Cleanup(s.Shutdown)
	return s, fake, store
}

func testIdentity() Identity {
	sk := nostr.GeneratePrivateKey()
	pk, _ := nostr.GetPublicKey(sk)
	return Identity{PrivateKeyHex: sk, PublicKeyHex: pk}
}

func TestConnectOpensStandingSubscriptionsAndSyncs(t *testing.T) {
	s, fake, _ := newTestSession(t)
	id := testIdentity()

	require.NoError(t, s.Connect(context.Background(), id, []string{"wss://relay.test"}))

	assert.Contains(t, fake.Connected, "wss://relay.test")
}

func TestPublishProfileSignsAndPublishes(t *testing.T) {
	s, fake, _ := newTestSession(t)
	id := testIdentity()
	require.NoError(t, s.Connect(context.Background(), id, []string{"wss://relay.test"}))

	digest, err := s.PublishProfile("Alice", "https://example.com/pic.png")
	require.NoError(t, err)
	assert.NotEmpty(t, digest)

	snap := fake.Snapshot()
	require.Len(t, snap, 1)
	assert.Equal(t, kinds.Profile, snap[0].Kind)
	assert.NotEmpty(t, snap[0].Sig)
}

func TestPublishThreadUsesUppercaseParentTagNotLowercase(t *testing.T) {
	s, fake, _ := newTestSession(t)
	id := testIdentity()
	require.NoError(t, s.Connect(context.Background(), id, []string{"wss://relay.test"}))

	digest, err := s.PublishThread(ThreadParams{
		ProjectAddress:       "31933:owner:proj1",
		Title:                "hello",
		Content:              "first post",
		ParentConversationID: "parent-id",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, digest)

	snap := fake.Snapshot()
	require.Len(t, snap, 1)
	for _, tag := range snap[0].Tags {
		assert.NotEqual(t, "e", tag[0], "thread root must not carry a lowercase e tag")
	}
}

func TestPublishMessageRoundTripsThroughIngestion(t *testing.T) {
	s, fake, store := newTestSession(t)
	id := testIdentity()
	require.NoError(t, s.Connect(context.Background(), id, []string{"wss://relay.test"}))

	digest, err := s.PublishMessage(MessageParams{
		ThreadID:       "thread-1",
		ProjectAddress: "31933:owner:proj1",
		Content:        "a reply",
	})
	require.NoError(t, err)

	_, ok := store.LookupByDigest(digest)
	assert.True(t, ok, "published message must be fed back through the event store")

	snap := fake.Snapshot()
	require.Len(t, snap, 1)
	assert.Equal(t, kinds.Note, snap[0].Kind)
}

func TestDeleteProjectTagsDeleted(t *testing.T) {
	s, fake, _ := newTestSession(t)
	id := testIdentity()
	require.NoError(t, s.Connect(context.Background(), id, []string{"wss://relay.test"}))

	_, err := s.DeleteProject(ProjectParams{ID: "proj1", Title: "Proj"})
	require.NoError(t, err)

	snap := fake.Snapshot()
	require.Len(t, snap, 1)
	found := false
	for _, tag := range snap[0].Tags {
		if tag[0] == "deleted" {
			found = true
		}
	}
	assert.True(t, found)
}

func TestRelayEventIsIngestedAndDeduplicated(t *testing.T) {
	s, fake, store := newTestSession(t)
	id := testIdentity()
	require.NoError(t, s.Connect(context.Background(), id, []string{"wss://relay.test"}))

	ev := &nostr.Event{ID: "ev-1", Kind: kinds.Profile, PubKey: id.PublicKeyHex, CreatedAt: nostr.Timestamp(time.Now().Unix()), Content: `{"name":"x"}`}
	fake.Feed(ev)
	fake.Feed(ev)

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if _, ok := store.LookupByDigest("ev-1"); ok {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}
	_, ok := store.LookupByDigest("ev-1")
	assert.True(t, ok)
}

func TestStartStopBunkerRoundTrip(t *testing.T) {
	s, _, _ := newTestSession(t)
	id := testIdentity()
	require.NoError(t, s.Connect(context.Background(), id, []string{"wss://relay.test"}))

	uri, err := s.StartBunker()
	require.NoError(t, err)
	assert.Contains(t, uri, "bunker://")

	require.NoError(t, s.StopBunker())
}

func TestBunkerResponseWithoutRunningBunkerErrors(t *testing.T) {
	s, _, _ := newTestSession(t)
	id := testIdentity()
	require.NoError(t, s.Connect(context.Background(), id, []string{"wss://relay.test"}))

	assert.Error(t, s.BunkerResponse("nope", true))
}

func TestAddBunkerAutoApproveRuleIsVisibleInList(t *testing.T) {
	s, _, _ := newTestSession(t)
	id := testIdentity()
	require.NoError(t, s.Connect(context.Background(), id, []string{"wss://relay.test"}))
	_, err := s.StartBunker()
	require.NoError(t, err)

	require.NoError(t, s.AddBunkerAutoApproveRule(bunker.AutoApproveRule{RequesterPubkey: "pk1", AnyKind: true}))

	rules, err := s.BunkerAutoApproveRules()
	require.NoError(t, err)
	require.Len(t, rules, 1)
	assert.Equal(t, "pk1", rules[0].RequesterPubkey)
}

func TestForceReconnectReestablishesSubscriptions(t *testing.T) {
	s, fake, _ := newTestSession(t)
	id := testIdentity()
	require.NoError(t, s.Connect(context.Background(), id, []string{"wss://relay.test"}))

	done := make(chan error, 1)
	require.NoError(t, s.ForceReconnect(done))
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("expected ForceReconnect to ack on done")
	}
	assert.GreaterOrEqual(t, len(fake.Connected), 2)
}

func TestCommandsAfterShutdownReturnError(t *testing.T) {
	s, _, _ := newTestSession(t)
	id := testIdentity()
	require.NoError(t, s.Connect(context.Background(), id, []string{"wss://relay.test"}))
	s.Shutdown()

	_, err := s.PublishProfile("x", "y")
	assert.Error(t, err)
}
