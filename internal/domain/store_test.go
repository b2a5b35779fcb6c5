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

package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUpsertProjectNewerWins(t *testing.T) {
	s := NewStore()
	_, changed := s.UpsertProject(Project{Address: "31933:pk:p1", Title: "v1", CreatedAt: 100})
	require.True(t, changed)
	_, changed = s.UpsertProject(Project{Address: "31933:pk:p1", Title: "older", CreatedAt: 50})
	require.False(t, changed)
	_, changed = s.UpsertProject(Project{Address: "31933:pk:p1", Title: "v2", CreatedAt: 200})
	require.True(t, changed)

	projects := s.ListProjects()
	require.Len(t, projects, 1)
	assert.Equal(t, "v2", projects[0].Title)
}

func TestOrphanMessageResolvesWhenThreadAppears(t *testing.T) {
	s := NewStore()
	_, ok := s.UpsertMessage(Message{ID: "m1", ThreadID: "t1", CreatedAt: 10})
	require.True(t, ok)
	assert.Empty(t, s.ListMessages("t1"))

	_, ok = s.UpsertThread(Thread{ID: "t1", ProjectATag: "31933:pk:p1", CreatedAt: 5})
	require.True(t, ok)

	msgs := s.ListMessages("t1")
	require.Len(t, msgs, 1)
	assert.Equal(t, "m1", msgs[0].ID)
	assert.False(t, msgs[0].Orphan)
}

func TestApplyOperationsStatusMonotoneAnyOrder(t *testing.T) {
	s1 := NewStore()
	events := []OperationsStatus{
		{ConversationID: "C", ActivePubkeys: []string{"A1"}, CreatedAt: 100},
		{ConversationID: "C", ActivePubkeys: nil, CreatedAt: 90},
		{ConversationID: "C", ActivePubkeys: []string{"A1", "A2"}, CreatedAt: 101},
	}
	for _, e := range events {
		s1.ApplyOperationsStatus(e)
	}
	assertActiveAgents(t, s1, "C", "A1", "A2")

	s2 := NewStore()
	reordered := []OperationsStatus{events[1], events[0], events[2]}
	for _, e := range reordered {
		s2.ApplyOperationsStatus(e)
	}
	assertActiveAgents(t, s2, "C", "A1", "A2")
}

func assertActiveAgents(t *testing.T, s *Store, conv string, want ...string) {
	t.Helper()
	got := s.ActiveAgents(conv)
	require.Len(t, got, len(want))
	gotSet := map[string]bool{}
	for _, pk := range got {
		gotSet[pk] = true
	}
	for _, w := range want {
		assert.True(t, gotSet[w], "expected %s active", w)
	}
}

func TestProjectStatusOnlineFlip(t *testing.T) {
	s := NewStore()
	_, changed := s.UpsertProjectStatus(ProjectStatus{ProjectAddress: "p1", Creator: "pkA", CreatedAt: 1000}, 1000)
	require.True(t, changed)
	assert.True(t, s.IsProjectOnline("p1", 1000))

	// Stale read later, without a new status, flips online -> false for
	// the query itself, but UpsertProjectStatus is not called again so
	// no delta is produced here; this just exercises IsProjectOnline.
	assert.False(t, s.IsProjectOnline("p1", 1000+400))
}

func TestHierarchyDescendantsAndRuntime(t *testing.T) {
	h := NewHierarchy()
	require.NoError(t, h.AddEdge("root", "c1"))
	require.NoError(t, h.AddEdge("root", "c2"))
	require.NoError(t, h.AddEdge("c1", "gc1"))

	err := h.AddEdge("gc1", "root")
	assert.Error(t, err, "expected cycle rejection")

	desc := h.Descendants("root")
	assert.ElementsMatch(t, []string{"c1", "c2", "gc1"}, desc)

	h.AddLeafRuntime("root", 10)
	h.AddLeafRuntime("c1", 20)
	h.AddLeafRuntime("c2", 5)
	h.AddLeafRuntime("gc1", 7)

	assert.Equal(t, int64(42), h.InclusiveRuntime("root"))
	assert.Equal(t, int64(27), h.InclusiveRuntime("c1"))
	assert.Equal(t, int64(5), h.InclusiveRuntime("c2"))
}

func TestSizesZeroOnFreshStore(t *testing.T) {
	s := NewStore()
	p, th, m := s.Sizes()
	assert.Zero(t, p)
	assert.Zero(t, th)
	assert.Zero(t, m)
}
