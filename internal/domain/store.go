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
	"sort"
	"sync"
)

const statusStaleAfterSecs = 300

// Store is the in-memory, reader-writer-locked holder of all derived
// domain state. Its lifetime is bounded by the session: it is wiped on
// logout.
type Store struct {
	mu sync.RWMutex

	projects map[string]Project // by address

	threads        map[string]Thread     // by thread id
	threadsByProj  map[string][]string   // project address -> thread ids, ordered by EffectiveLastActivity desc
	messages       map[string]Message    // by message id
	messagesByTh   map[string][]string   // thread id -> message ids, ordered by CreatedAt asc
	orphanMessages map[string][]string   // unknown thread id -> message ids awaiting that thread

	projectStatuses map[string]ProjectStatus // project address -> online status (approved backends only)

	opsStatuses   map[string]OperationsStatus // conversation id -> status
	lastOpsTS     map[string]int64            // conversation id -> last accepted created_at

	agentTracking map[AgentInstanceKey]int64 // key -> start unix

	profiles map[string]Profile // pubkey -> profile

	reports      map[string][]Report // project address -> reports, newest first
	lessons      map[string]Lesson   // digest -> lesson
	nudges       map[string]Nudge    // digest -> nudge
	mcpTools     map[string]MCPTool  // digest -> tool
	bookmarks    map[string]BookmarkList

	hierarchy *Hierarchy
	stats     *Statistics
}

// NewStore builds an empty Store.
func NewStore() *Store {
	return &Store{
		projects:        make(map[string]Project),
		threads:         make(map[string]Thread),
		threadsByProj:   make(map[string][]string),
		messages:        make(map[string]Message),
		messagesByTh:    make(map[string][]string),
		orphanMessages:  make(map[string][]string),
		projectStatuses: make(map[string]ProjectStatus),
		opsStatuses:     make(map[string]OperationsStatus),
		lastOpsTS:       make(map[string]int64),
		agentTracking:   make(map[AgentInstanceKey]int64),
		profiles:        make(map[string]Profile),
		reports:         make(map[string][]Report),
		lessons:         make(map[string]Lesson),
		nudges:          make(map[string]Nudge),
		mcpTools:        make(map[string]MCPTool),
		bookmarks:       make(map[string]BookmarkList),
		hierarchy:       NewHierarchy(),
		stats:           NewStatistics(),
	}
}

// Lock/Unlock/RLock/RUnlock expose the store's single reader-writer lock
// to callers that need to hold it across a batch (façade refresh, the
// delta-bus listener).
func (s *Store) Lock()    { s.mu.Lock() }
func (s *Store) Unlock()  { s.mu.Unlock() }
func (s *Store) RLock()   { s.mu.RLock() }
func (s *Store) RUnlock() { s.mu.RUnlock() }

// UpsertProject replaces the project at p.Address if p is newer, or
// inserts it if absent. Returns the delta to emit, and whether a change
// occurred.
func (s *Store) UpsertProject(p Project) (Delta, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, had := s.projects[p.Address]
	if had && existing.CreatedAt >= p.CreatedAt {
		return Delta{}, false
	}
	s.projects[p.Address] = p
	if had {
		return projectUpdated(p.Address), true
	}
	return projectCreated(p.Address), true
}

// UpsertThread inserts or updates a thread and re-sorts its project's
// thread index by EffectiveLastActivity descending.
func (s *Store) UpsertThread(t Thread) (Delta, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, existed := s.threads[t.ID]
	s.threads[t.ID] = t
	if !existed {
		ids := s.threadsByProj[t.ProjectATag]
		s.threadsByProj[t.ProjectATag] = append(ids, t.ID)
	}
	s.resortProjectThreads(t.ProjectATag)

	if orphans, ok := s.orphanMessages[t.ID]; ok {
		for _, mid := range orphans {
			m := s.messages[mid]
			m.Orphan = false
			s.messages[mid] = m
			s.insertMessageIndex(t.ID, mid)
		}
		delete(s.orphanMessages, t.ID)
	}

	return threadAppeared(t.ID, t.ProjectATag), true
}

func (s *Store) resortProjectThreads(projectAddr string) {
	ids := s.threadsByProj[projectAddr]
	sort.SliceStable(ids, func(i, j int) bool {
		return s.threads[ids[i]].EffectiveLastActivity > s.threads[ids[j]].EffectiveLastActivity
	})
	s.threadsByProj[projectAddr] = ids
}

// UpsertMessage inserts a message, indexing it under its thread if known
// or parking it as an orphan otherwise.
func (s *Store) UpsertMessage(m Message) (Delta, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, dup := s.messages[m.ID]; dup {
		return Delta{}, false
	}

	if _, known := s.threads[m.ThreadID]; known {
		m.Orphan = false
		s.messages[m.ID] = m
		s.insertMessageIndex(m.ThreadID, m.ID)
	} else {
		m.Orphan = true
		s.messages[m.ID] = m
		s.orphanMessages[m.ThreadID] = append(s.orphanMessages[m.ThreadID], m.ID)
	}

	if m.LLMRuntime > 0 {
		s.hierarchy.AddLeafRuntime(m.ThreadID, m.LLMRuntime)
	}

	return messageArrived(m.ThreadID, m.ID), true
}

func (s *Store) insertMessageIndex(threadID, messageID string) {
	ids := s.messagesByTh[threadID]
	ids = append(ids, messageID)
	sort.SliceStable(ids, func(i, j int) bool {
		return s.messages[ids[i]].CreatedAt < s.messages[ids[j]].CreatedAt
	})
	s.messagesByTh[threadID] = ids
}

// UpsertProjectStatus unconditionally upserts status into the
// online-status map; callers (the ingestion pipeline) must have already
// applied trust gating before calling this. nowUnix is used to decide
// whether the project's online-ness flipped as a result. Returns the
// delta to emit and whether online-ness changed.
func (s *Store) UpsertProjectStatus(status ProjectStatus, nowUnix int64) (Delta, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, had := s.projectStatuses[status.ProjectAddress]
	if had && existing.CreatedAt >= status.CreatedAt {
		return Delta{}, false
	}
	wasOnline := had && nowUnix-existing.CreatedAt < statusStaleAfterSecs
	s.projectStatuses[status.ProjectAddress] = status
	nowOnline := nowUnix-status.CreatedAt < statusStaleAfterSecs
	if wasOnline == nowOnline {
		return Delta{}, false
	}
	return projectStatusChanged(status.ProjectAddress, nowOnline), true
}

// EvictProjectStatus removes an online status for a project (used when a
// backend is blocked).
func (s *Store) EvictProjectStatus(projectAddress string) (Delta, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, had := s.projectStatuses[projectAddress]; !had {
		return Delta{}, false
	}
	delete(s.projectStatuses, projectAddress)
	return projectStatusChanged(projectAddress, false), true
}

// ProjectAddressesByCreator returns every project address whose current
// online status was last reported by creator pk. Used when blocking a
// backend, to find every status it contributed so each can be evicted.
func (s *Store) ProjectAddressesByCreator(pk string) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []string
	for addr, st := range s.projectStatuses {
		if st.Creator == pk {
			out = append(out, addr)
		}
	}
	return out
}

// IsProjectOnline reports whether a project has a fresh status from an
// approved backend (created_at within the last 5 minutes of nowUnix).
func (s *Store) IsProjectOnline(projectAddress string, nowUnix int64) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st, ok := s.projectStatuses[projectAddress]
	if !ok {
		return false
	}
	return nowUnix-st.CreatedAt < statusStaleAfterSecs
}

// ApplyOperationsStatus enforces the per-conversation strict time
// monotonicity invariant and updates the active-agent set.
func (s *Store) ApplyOperationsStatus(st OperationsStatus) (Delta, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	last, ok := s.lastOpsTS[st.ConversationID]
	if ok && st.CreatedAt <= last {
		return Delta{}, false
	}

	newSet := make(map[string]bool, len(st.ActivePubkeys))
	for _, pk := range st.ActivePubkeys {
		newSet[pk] = true
	}
	now := st.CreatedAt
	for key := range s.agentTracking {
		if key.ConversationID != st.ConversationID {
			continue
		}
		if !newSet[key.AgentPubkey] {
			delete(s.agentTracking, key)
		}
	}
	for pk := range newSet {
		key := AgentInstanceKey{ConversationID: st.ConversationID, AgentPubkey: pk}
		if _, already := s.agentTracking[key]; !already {
			s.agentTracking[key] = now
		}
	}

	s.lastOpsTS[st.ConversationID] = st.CreatedAt
	s.opsStatuses[st.ConversationID] = st
	return operationsStatusChanged(st.ConversationID), true
}

// ApplyConversationMetadata merges a kind-513 event's summary and
// scheduled flag onto an already-known thread. If the thread is not yet
// known, the metadata is dropped: it carries no content of its own
// worth retaining independently of the thread it annotates.
func (s *Store) ApplyConversationMetadata(threadID, summary string, isScheduled bool) (Delta, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.threads[threadID]
	if !ok {
		return Delta{}, false
	}
	t.Summary = summary
	t.HasSummary = true
	t.IsScheduled = isScheduled
	s.threads[threadID] = t
	return threadAppeared(threadID, t.ProjectATag), true
}

// UpsertProfile upserts a profile by pubkey, newest created_at wins.
func (s *Store) UpsertProfile(p Profile) (Delta, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, had := s.profiles[p.Pubkey]
	if had && existing.CreatedAt >= p.CreatedAt {
		return Delta{}, false
	}
	s.profiles[p.Pubkey] = p
	return profileUpdated(p.Pubkey), true
}

// UpsertLesson upserts a lesson by digest (content-addressed, so this is
// idempotent by construction).
func (s *Store) UpsertLesson(l Lesson) (Delta, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, dup := s.lessons[l.Digest]; dup {
		return Delta{}, false
	}
	s.lessons[l.Digest] = l
	return lessonAppeared(l.Digest), true
}

// UpsertMCPTool upserts a tool definition by digest.
func (s *Store) UpsertMCPTool(m MCPTool) (Delta, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, dup := s.mcpTools[m.Digest]; dup {
		return Delta{}, false
	}
	s.mcpTools[m.Digest] = m
	return mcpToolAppeared(m.Digest), true
}

// UpsertNudge upserts a nudge by digest.
func (s *Store) UpsertNudge(n Nudge) (Delta, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, dup := s.nudges[n.Digest]; dup {
		return Delta{}, false
	}
	s.nudges[n.Digest] = n
	return nudgeAppeared(n.Digest), true
}

// UpsertReport appends a report to its project's list, newest first.
func (s *Store) UpsertReport(r Report) (Delta, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	list := s.reports[r.ProjectAddress]
	for _, existing := range list {
		if existing.Digest == r.Digest {
			return Delta{}, false
		}
	}
	list = append([]Report{r}, list...)
	sort.SliceStable(list, func(i, j int) bool { return list[i].CreatedAt > list[j].CreatedAt })
	s.reports[r.ProjectAddress] = list
	return reportAppeared(r.ProjectAddress, r.Digest), true
}

// UpsertBookmarkList upserts a user's bookmark list, newest created_at wins.
func (s *Store) UpsertBookmarkList(b BookmarkList) (Delta, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, had := s.bookmarks[b.Pubkey]
	if had && existing.CreatedAt >= b.CreatedAt {
		return Delta{}, false
	}
	s.bookmarks[b.Pubkey] = b
	return bookmarkListUpdated(b.Pubkey), true
}

// --- Query operations (§4.6, §6) ---

// ListProjects returns every known project, order unspecified.
func (s *Store) ListProjects() []Project {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Project, 0, len(s.projects))
	for _, p := range s.projects {
		out = append(out, p)
	}
	return out
}

// ListThreads returns a project's threads ordered by EffectiveLastActivity desc.
func (s *Store) ListThreads(projectAddress string) []Thread {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := s.threadsByProj[projectAddress]
	out := make([]Thread, 0, len(ids))
	for _, id := range ids {
		out = append(out, s.threads[id])
	}
	return out
}

// ThreadByID looks up a thread by id.
func (s *Store) ThreadByID(id string) (Thread, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.threads[id]
	return t, ok
}

// ListMessages returns a thread's messages ordered by CreatedAt asc.
func (s *Store) ListMessages(threadID string) []Message {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := s.messagesByTh[threadID]
	out := make([]Message, 0, len(ids))
	for _, id := range ids {
		out = append(out, s.messages[id])
	}
	return out
}

// ProfileByPubkey looks up a profile; callers fall back to a formatted
// pubkey when ok is false.
func (s *Store) ProfileByPubkey(pk string) (Profile, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.profiles[pk]
	return p, ok
}

// ConversationRuntimeMs returns the inclusive LLM runtime for a
// conversation, in the same unit the "llm-runtime" tag values use.
// InclusiveRuntime writes the hierarchy's memo, so this takes the write
// lock.
func (s *Store) ConversationRuntimeMs(conversationID string) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hierarchy.InclusiveRuntime(conversationID)
}

// DescendantConversationIDs returns every node reachable from id via
// parent->child edges.
func (s *Store) DescendantConversationIDs(id string) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.hierarchy.Descendants(id)
}

// AddHierarchyEdge links a child conversation under a parent.
func (s *Store) AddHierarchyEdge(parent, child string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hierarchy.AddEdge(parent, child)
}

// ActiveAgents returns the pubkeys currently tracked as working on
// conversationID, order unspecified.
func (s *Store) ActiveAgents(conversationID string) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []string
	for key := range s.agentTracking {
		if key.ConversationID == conversationID {
			out = append(out, key.AgentPubkey)
		}
	}
	return out
}

// Reports returns a project's reports, newest first.
func (s *Store) Reports(projectAddress string) []Report {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Report, len(s.reports[projectAddress]))
	copy(out, s.reports[projectAddress])
	return out
}

// Stats exposes the rolling aggregate statistics tracker.
func (s *Store) Stats() *Statistics { return s.stats }

// Sizes returns the aggregate counts of projects, threads, and messages
// (used by the testable "zero after logout" invariant).
func (s *Store) Sizes() (projects, threads, messages int) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.projects), len(s.threads), len(s.messages)
}
