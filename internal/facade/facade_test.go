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

package facade

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/nbd-wtf/go-nostr"
	"github.com/nbd-wtf/go-nostr/nip19"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tenex-chat/tui-sub004/internal/domain"
	"github.com/tenex-chat/tui-sub004/internal/relay"
	"github.com/tenex-chat/tui-sub004/internal/session"
	"github.com/tenex-chat/tui-sub004/internal/tenexconfig"
)

func testConfig(t *testing.T) tenexconfig.Config {
	t.Helper()
	cfg := tenexconfig.Defaults()
	cfg.DataDir = t.TempDir()
	cfg.RelayURLs = []string{"wss://relay.test"}
	return cfg
}

func newTestFacade(t *testing.T) *Facade {
	t.Helper()
	f := New(testConfig(t), WithClientFactory(func() relay.Client { return relay.NewFake() }))
	t.Cleanup(func() {
		if f.State() == LoggedIn {
			f.Logout()
		}
	})
	return f
}

func testNsec(t *testing.T) string {
	t.Helper()
	sk := nostr.GeneratePrivateKey()
	nsec, err := nip19.EncodePrivateKey(sk)
	require.NoError(t, err)
	return nsec
}

func TestInitIsIdempotent(t *testing.T) {
	f := newTestFacade(t)
	require.NoError(t, f.Init())
	assert.Equal(t, Initialized, f.State())
	require.NoError(t, f.Init())
	assert.Equal(t, Initialized, f.State())
}

func TestLoginBeforeInitErrors(t *testing.T) {
	f := New(testConfig(t), WithClientFactory(func() relay.Client { return relay.NewFake() }))
	err := f.Login(testNsec(t))
	assert.Error(t, err)
}

func TestLoginWithBadNsecLeavesStateUnchanged(t *testing.T) {
	f := newTestFacade(t)
	require.NoError(t, f.Init())

	err := f.Login("not-an-nsec")
	assert.Error(t, err)
	assert.Equal(t, Initialized, f.State())
}

func TestLoginTransitionsToLoggedIn(t *testing.T) {
	f := newTestFacade(t)
	require.NoError(t, f.Init())

	require.NoError(t, f.Login(testNsec(t)))
	assert.Equal(t, LoggedIn, f.State())
}

func TestLogoutWipesEventStoreAndReinitializes(t *testing.T) {
	f := newTestFacade(t)
	require.NoError(t, f.Init())
	require.NoError(t, f.Login(testNsec(t)))

	_, err := f.Session().SaveProject(session.ProjectParams{ID: "proj1", Title: "Proj"})
	require.NoError(t, err)
	waitForProjects(t, f, 1)

	require.NoError(t, f.Logout())
	assert.Equal(t, Initialized, f.State())
	assert.Empty(t, f.ListProjects(), "domain store must be pristine after logout")

	dataFile := filepath.Join(f.cfg.DataDir, "data.mdb")
	info, statErr := os.Stat(dataFile)
	require.NoError(t, statErr)
	assert.Less(t, info.Size(), int64(64*1024), "recreated data.mdb should be a fresh, empty database")
}

func waitForProjects(t *testing.T, f *Facade, n int) []domain.Project {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if projects := f.ListProjects(); len(projects) >= n {
			return projects
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %d projects", n)
	return nil
}

func TestLogoutWhenNotLoggedInErrors(t *testing.T) {
	f := newTestFacade(t)
	require.NoError(t, f.Init())
	assert.Error(t, f.Logout())
}

func TestRefreshThrottlesRapidCalls(t *testing.T) {
	f := newTestFacade(t)
	require.NoError(t, f.Init())

	require.NoError(t, f.Refresh())
	start := time.Now()
	require.NoError(t, f.Refresh())
	assert.Less(t, time.Since(start), 100*time.Millisecond)
}

func TestTrustApproveBlockListRoundTrips(t *testing.T) {
	f := newTestFacade(t)
	require.NoError(t, f.Init())

	_, err := f.TrustApprove("pk1")
	require.NoError(t, err)
	require.NoError(t, f.TrustBlock("pk2"))

	snap, err := f.TrustList()
	require.NoError(t, err)
	assert.Contains(t, snap.Approved, "pk1")
	assert.Contains(t, snap.Blocked, "pk2")
}

func TestBunkerStartStopRequiresLogin(t *testing.T) {
	f := newTestFacade(t)
	require.NoError(t, f.Init())

	_, err := f.BunkerStart()
	assert.Error(t, err)

	require.NoError(t, f.Login(testNsec(t)))
	uri, err := f.BunkerStart()
	require.NoError(t, err)
	assert.Contains(t, uri, "bunker://")
	require.NoError(t, f.BunkerStop())
}

func TestListProjectsBeforeInitReturnsNil(t *testing.T) {
	f := New(testConfig(t), WithClientFactory(func() relay.Client { return relay.NewFake() }))
	assert.Nil(t, f.ListProjects())
}

func TestSetCallbackReceivesThreadDelta(t *testing.T) {
	f := newTestFacade(t)
	require.NoError(t, f.Init())
	require.NoError(t, f.Login(testNsec(t)))

	received := make(chan domain.Delta, 4)
	f.SetCallback(func(d domain.Delta) { received <- d })

	_, err := f.Session().PublishThread(session.ThreadParams{
		ProjectAddress: "31933:owner:proj1",
		Title:          "hello",
		Content:        "first post",
	})
	require.NoError(t, err)

	select {
	case d := <-received:
		assert.Equal(t, domain.ThreadAppeared, d.Kind)
	case <-time.After(2 * time.Second):
		t.Fatal("expected a ThreadAppeared delta")
	}
}
