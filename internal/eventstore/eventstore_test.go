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
	"os"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/nbd-wtf/go-nostr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	dir := t.TempDir()
	s, err := Open(dir)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestIngestAndLookupByDigest(t *testing.T) {
	s := openTestStore(t)
	ev := &nostr.Event{ID: "deadbeef", Kind: 1, PubKey: "pk", CreatedAt: 100, Content: "hello"}

	require.Equal(t, Admitted, s.Ingest(ev))
	got, ok := s.LookupByDigest("deadbeef")
	require.True(t, ok)
	assert.Equal(t, "hello", got.Content)
}

func TestReingestIsDuplicate(t *testing.T) {
	s := openTestStore(t)
	ev := &nostr.Event{ID: "e1", Kind: 1, PubKey: "pk", CreatedAt: 100}
	require.Equal(t, Admitted, s.Ingest(ev))
	require.Equal(t, Duplicate, s.Ingest(ev))
}

func TestAllReturnsEveryEventOrderedByCreatedAt(t *testing.T) {
	s := openTestStore(t)
	require.Equal(t, Admitted, s.Ingest(&nostr.Event{ID: "e2", Kind: 1, PubKey: "pk", CreatedAt: 200}))
	require.Equal(t, Admitted, s.Ingest(&nostr.Event{ID: "e1", Kind: 1, PubKey: "pk", CreatedAt: 100}))

	all := s.All()
	require.Len(t, all, 2)
	assert.Equal(t, "e1", all[0].ID)
	assert.Equal(t, "e2", all[1].ID)
}

func TestQueryByKindAndAuthorMostRecentFirst(t *testing.T) {
	s := openTestStore(t)
	s.Ingest(&nostr.Event{ID: "a", Kind: 1, PubKey: "pk1", CreatedAt: 100})
	s.Ingest(&nostr.Event{ID: "b", Kind: 1, PubKey: "pk1", CreatedAt: 200})
	s.Ingest(&nostr.Event{ID: "c", Kind: 2, PubKey: "pk1", CreatedAt: 300})
	s.Ingest(&nostr.Event{ID: "d", Kind: 1, PubKey: "pk2", CreatedAt: 400})

	out, err := s.Query(Filter{Kinds: []int{1}, Authors: []string{"pk1"}})
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, "b", out[0].ID)
	assert.Equal(t, "a", out[1].ID)
}

func TestQueryByTagValue(t *testing.T) {
	s := openTestStore(t)
	s.Ingest(&nostr.Event{ID: "a", Kind: 1, CreatedAt: 1, Tags: nostr.Tags{{"a", "31933:pk:p1"}}})
	s.Ingest(&nostr.Event{ID: "b", Kind: 1, CreatedAt: 2, Tags: nostr.Tags{{"a", "31933:pk:p2"}}})

	out, err := s.Query(Filter{Tags: map[string][]string{"#a": {"31933:pk:p1"}}})
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, "a", out[0].ID)
}

func TestSubscribeReceivesNewlyAdmittedBatch(t *testing.T) {
	s := openTestStore(t)
	sub := s.Subscribe(Filter{Kinds: []int{1}})
	defer sub.Close()

	s.Ingest(&nostr.Event{ID: "a", Kind: 1, CreatedAt: 1})
	s.Ingest(&nostr.Event{ID: "b", Kind: 2, CreatedAt: 2}) // filtered out

	select {
	case batch := <-sub.Batches:
		require.Len(t, batch, 1)
		assert.Equal(t, "a", batch[0].ID)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for subscription batch")
	}
}

func TestReclaimsStaleLockFromDeadProcess(t *testing.T) {
	dir := t.TempDir()
	// A PID astronomically unlikely to be alive in the test sandbox.
	require.NoError(t, os.WriteFile(filepath.Join(dir, "lock.mdb"), []byte(strconv.Itoa(1<<30)), 0o600))

	s, err := Open(dir)
	require.NoError(t, err)
	defer s.Close()
}

func TestOpenFailsWhenLockedByLiveHolder(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "lock.mdb"), []byte(strconv.Itoa(os.Getpid())), 0o600))

	_, err := Open(dir)
	assert.ErrorIs(t, err, ErrStoreLocked)
}
