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

package streamsocket

import (
	"net"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tenex-chat/tui-sub004/internal/domain"
)

func TestSocketPathPrefersXDGRuntimeDir(t *testing.T) {
	t.Setenv("XDG_RUNTIME_DIR", "/run/user/1000")
	assert.Equal(t, "/run/user/1000/tenex-stream.sock", SocketPath())
}

func TestSocketPathFallsBackToTempDir(t *testing.T) {
	t.Setenv("XDG_RUNTIME_DIR", "")
	assert.Equal(t, filepath.Join(os.TempDir(), "tenex-stream.sock"), SocketPath())
}

type chunkCollector struct {
	mu     sync.Mutex
	chunks []domain.StreamChunk
}

func (c *chunkCollector) sink(chunk domain.StreamChunk) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.chunks = append(c.chunks, chunk)
}

func (c *chunkCollector) snapshot() []domain.StreamChunk {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]domain.StreamChunk(nil), c.chunks...)
}

func waitForChunks(t *testing.T, c *chunkCollector, n int) []domain.StreamChunk {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if snap := c.snapshot(); len(snap) >= n {
			return snap
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %d chunks", n)
	return nil
}

func TestClientReadsNewlineDelimitedChunks(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.sock")
	ln, err := net.Listen("unix", path)
	require.NoError(t, err)
	defer ln.Close()

	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		conn.Write([]byte(`{"agent_pubkey":"pk1","conversation_id":"c1","data":{"type":"text-delta","text":"hel"}}` + "\n"))
		conn.Write([]byte(`{"agent_pubkey":"pk1","conversation_id":"c1","data":{"type":"text-delta","text":"lo"}}` + "\n"))
		time.Sleep(100 * time.Millisecond)
	}()

	collector := &chunkCollector{}
	client := Start(path, collector.sink)
	defer client.Stop()

	chunks := waitForChunks(t, collector, 2)
	assert.Equal(t, "pk1", chunks[0].AgentPubkey)
	assert.Equal(t, "c1", chunks[0].ConversationID)
	assert.Equal(t, "text-delta", chunks[0].Type)
	assert.Equal(t, "hel", chunks[0].Text)
	assert.Equal(t, "lo", chunks[1].Text)
}

func TestClientReconnectsAfterServerDrop(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.sock")
	ln, err := net.Listen("unix", path)
	require.NoError(t, err)
	defer ln.Close()

	collector := &chunkCollector{}
	client := Start(path, collector.sink)
	defer client.Stop()

	conn1, err := ln.Accept()
	require.NoError(t, err)
	conn1.Write([]byte(`{"agent_pubkey":"pk1","conversation_id":"c1","data":{"type":"text-delta","text":"first"}}` + "\n"))
	conn1.Close()

	waitForChunks(t, collector, 1)

	conn2, err := ln.Accept()
	require.NoError(t, err)
	defer conn2.Close()
	conn2.Write([]byte(`{"agent_pubkey":"pk1","conversation_id":"c1","data":{"type":"finish"}}` + "\n"))

	chunks := waitForChunks(t, collector, 2)
	assert.Equal(t, "finish", chunks[1].Type)
}

func TestClientToleratesNoListenerUntilOneAppears(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "late.sock")

	collector := &chunkCollector{}
	client := Start(path, collector.sink)
	defer client.Stop()

	time.Sleep(50 * time.Millisecond)

	ln, err := net.Listen("unix", path)
	require.NoError(t, err)
	defer ln.Close()

	conn, err := ln.Accept()
	require.NoError(t, err)
	defer conn.Close()
	conn.Write([]byte(`{"agent_pubkey":"pk2","conversation_id":"c2","data":{"type":"reasoning-delta","text":"thinking"}}` + "\n"))

	chunks := waitForChunks(t, collector, 1)
	assert.Equal(t, "pk2", chunks[0].AgentPubkey)
}

func TestMalformedLineIsSkippedNotFatal(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.sock")
	ln, err := net.Listen("unix", path)
	require.NoError(t, err)
	defer ln.Close()

	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		conn.Write([]byte("not json\n"))
		conn.Write([]byte(`{"agent_pubkey":"pk1","conversation_id":"c1","data":{"type":"finish"}}` + "\n"))
		time.Sleep(100 * time.Millisecond)
	}()

	collector := &chunkCollector{}
	client := Start(path, collector.sink)
	defer client.Stop()

	chunks := waitForChunks(t, collector, 1)
	assert.Equal(t, "finish", chunks[0].Type)
}
