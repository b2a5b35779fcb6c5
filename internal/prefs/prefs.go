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

// Package prefs persists non-secret UI and trust state to
// preferences.json, drafts.json, and project_drafts.json. Every write
// is a whole-file atomic rewrite through a single in-memory structure
// guarded by a lock, per spec §5.
package prefs

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"sync"
)

// AudioSettings holds non-secret AI audio preferences; API keys for
// voice synthesis route through internal/secretstore instead.
type AudioSettings struct {
	Enabled bool   `json:"enabled"`
	Voice   string `json:"voice,omitempty"`
}

// Document is the on-disk shape of preferences.json.
type Document struct {
	ApprovedBackends []string      `json:"approved_backends"`
	BlockedBackends  []string      `json:"blocked_backends"`
	VisibleProjects  []string      `json:"visible_projects"`
	ArchivedThreads  []string      `json:"archived_thread_ids"`
	CollapsedThreads []string      `json:"collapsed_thread_ids"`
	HideScheduled    bool          `json:"hide_scheduled"`
	Audio            AudioSettings `json:"audio"`
}

// Store is the in-memory, lock-guarded holder of preferences.json.
type Store struct {
	mu   sync.Mutex
	path string
	doc  Document
}

// Open loads path if present, or starts from an empty Document.
func Open(path string) (*Store, error) {
	s := &Store{path: path}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return s, nil
		}
		return nil, err
	}
	if err := json.Unmarshal(data, &s.doc); err != nil {
		return nil, err
	}
	return s, nil
}

// Snapshot returns a copy of the current document.
func (s *Store) Snapshot() Document {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.doc
}

// Update applies fn to the in-memory document under lock and atomically
// rewrites preferences.json.
func (s *Store) Update(fn func(*Document)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(&s.doc)
	return atomicWriteJSON(s.path, s.doc)
}

// SetTrust replaces the approved/blocked backend sets, sorted for
// deterministic diffs.
func (s *Store) SetTrust(approved, blocked []string) error {
	return s.Update(func(d *Document) {
		d.ApprovedBackends = sortedCopy(approved)
		d.BlockedBackends = sortedCopy(blocked)
	})
}

// SetVisibleProjects replaces the visible-projects set.
func (s *Store) SetVisibleProjects(addrs []string) error {
	return s.Update(func(d *Document) { d.VisibleProjects = sortedCopy(addrs) })
}

// ArchiveThread adds a thread id to the archived set (idempotent).
func (s *Store) ArchiveThread(threadID string) error {
	return s.Update(func(d *Document) { d.ArchivedThreads = addUnique(d.ArchivedThreads, threadID) })
}

// UnarchiveThread removes a thread id from the archived set.
func (s *Store) UnarchiveThread(threadID string) error {
	return s.Update(func(d *Document) { d.ArchivedThreads = remove(d.ArchivedThreads, threadID) })
}

// SetCollapsedThreads replaces the collapsed-threads set.
func (s *Store) SetCollapsedThreads(ids []string) error {
	return s.Update(func(d *Document) { d.CollapsedThreads = sortedCopy(ids) })
}

// SetHideScheduled sets the hide-scheduled flag.
func (s *Store) SetHideScheduled(hide bool) error {
	return s.Update(func(d *Document) { d.HideScheduled = hide })
}

// SetAudioSettings replaces the non-secret audio settings.
func (s *Store) SetAudioSettings(a AudioSettings) error {
	return s.Update(func(d *Document) { d.Audio = a })
}

func sortedCopy(xs []string) []string {
	out := append([]string(nil), xs...)
	sort.Strings(out)
	return out
}

func addUnique(xs []string, v string) []string {
	for _, x := range xs {
		if x == v {
			return xs
		}
	}
	return append(append([]string(nil), xs...), v)
}

func remove(xs []string, v string) []string {
	out := make([]string, 0, len(xs))
	for _, x := range xs {
		if x != v {
			out = append(out, x)
		}
	}
	return out
}

// atomicWriteJSON marshals v and replaces path via a temp-file-then-
// rename so a crash mid-write never leaves a truncated document.
func atomicWriteJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return err
	}
	return os.Rename(tmpPath, path)
}
