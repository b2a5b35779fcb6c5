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

package prefs

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenMissingFileStartsEmpty(t *testing.T) {
	dir := t.TempDir()
	s, err := Open(filepath.Join(dir, "preferences.json"))
	require.NoError(t, err)
	assert.Empty(t, s.Snapshot().ApprovedBackends)
}

func TestSaveAndReloadRoundTrips(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "preferences.json")

	s, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, s.SetTrust([]string{"b2", "b1"}, []string{"evil"}))
	require.NoError(t, s.ArchiveThread("t1"))
	require.NoError(t, s.SetHideScheduled(true))

	reloaded, err := Open(path)
	require.NoError(t, err)
	snap := reloaded.Snapshot()
	assert.Equal(t, []string{"b1", "b2"}, snap.ApprovedBackends)
	assert.Equal(t, []string{"evil"}, snap.BlockedBackends)
	assert.Equal(t, []string{"t1"}, snap.ArchivedThreads)
	assert.True(t, snap.HideScheduled)
}

func TestArchiveThreadIsIdempotent(t *testing.T) {
	dir := t.TempDir()
	s, err := Open(filepath.Join(dir, "preferences.json"))
	require.NoError(t, err)
	require.NoError(t, s.ArchiveThread("t1"))
	require.NoError(t, s.ArchiveThread("t1"))
	assert.Equal(t, []string{"t1"}, s.Snapshot().ArchivedThreads)
}

func TestUnarchiveThreadRemovesEntry(t *testing.T) {
	dir := t.TempDir()
	s, err := Open(filepath.Join(dir, "preferences.json"))
	require.NoError(t, err)
	require.NoError(t, s.ArchiveThread("t1"))
	require.NoError(t, s.UnarchiveThread("t1"))
	assert.Empty(t, s.Snapshot().ArchivedThreads)
}

func TestAtomicWriteLeavesNoTempFilesBehind(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "preferences.json")
	s, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, s.SetHideScheduled(true))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "preferences.json", entries[0].Name())
}

func TestDraftStoreSetGetAndClear(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "drafts.json")

	d, err := OpenDrafts(path)
	require.NoError(t, err)
	require.NoError(t, d.Set("thread1", "hello world"))

	reloaded, err := OpenDrafts(path)
	require.NoError(t, err)
	text, ok := reloaded.Get("thread1")
	require.True(t, ok)
	assert.Equal(t, "hello world", text)

	require.NoError(t, reloaded.Set("thread1", ""))
	_, ok = reloaded.Get("thread1")
	assert.False(t, ok)
}

func TestProjectDraftStoreRoundTrips(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "project_drafts.json")

	d, err := OpenProjectDrafts(path)
	require.NoError(t, err)
	require.NoError(t, d.Set("31234:abc:proj", "new thread text"))

	all := d.All()
	assert.Equal(t, "new thread text", all["31234:abc:proj"])

	reloaded, err := OpenProjectDrafts(path)
	require.NoError(t, err)
	text, ok := reloaded.Get("31234:abc:proj")
	require.True(t, ok)
	assert.Equal(t, "new thread text", text)
}
