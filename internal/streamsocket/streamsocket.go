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

// Package streamsocket connects to the local streaming-chunk producer
// over a unix domain socket, reads newline-delimited JSON, and
// reconnects on drop. Grounded on pkg/mcp/transport.StdioTransport's
// bufio.Reader.ReadBytes('\n') line protocol, adapted from a
// subprocess pipe to a dialed connection that can disappear and
// reappear.
package streamsocket

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"net"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/tenex-chat/tui-sub004/internal/domain"
	"github.com/tenex-chat/tui-sub004/internal/tenexlog"
)

const (
	socketName     = "tenex-stream.sock"
	initialBackoff = 200 * time.Millisecond
	maxBackoff     = 30 * time.Second
	dialTimeout    = 2 * time.Second
)

// SocketPath returns $XDG_RUNTIME_DIR/tenex-stream.sock, falling back
// to /tmp/tenex-stream.sock when the environment variable is unset.
func SocketPath() string {
	if dir := os.Getenv("XDG_RUNTIME_DIR"); dir != "" {
		return filepath.Join(dir, socketName)
	}
	return filepath.Join(os.TempDir(), socketName)
}

// wireChunk is one newline-delimited JSON line read from the socket.
type wireChunk struct {
	AgentPubkey    string `json:"agent_pubkey"`
	ConversationID string `json:"conversation_id"`
	Data           struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"data"`
}

// Sink receives one decoded chunk at a time, in line order.
type Sink func(domain.StreamChunk)

// Client maintains a persistent connection to the streaming socket,
// redelivering on drop with bounded exponential backoff.
type Client struct {
	path   string
	sink   Sink
	logger *zap.Logger

	mu     sync.Mutex
	conn   net.Conn
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// Start dials path in the background and delivers every decoded chunk
// to sink. Connection failures are retried forever with exponential
// backoff bounded by maxBackoff; call Stop to end the loop.
func Start(path string, sink Sink) *Client {
	ctx, cancel := context.WithCancel(context.Background())
	c := &Client{path: path, sink: sink, logger: tenexlog.Logger(), cancel: cancel}
	c.wg.Add(1)
	go c.run(ctx)
	return c
}

// Stop ends the reconnect loop and closes any live connection.
func (c *Client) Stop() {
	c.cancel()
	c.mu.Lock()
	if c.conn != nil {
		c.conn.Close()
	}
	c.mu.Unlock()
	c.wg.Wait()
}

func (c *Client) run(ctx context.Context) {
	defer c.wg.Done()
	backoff := initialBackoff
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		conn, err := net.DialTimeout("unix", c.path, dialTimeout)
		if err != nil {
			c.logger.Debug("streamsocket: dial failed, retrying", zap.String("path", c.path), zap.Error(err), zap.Duration("backoff", backoff))
			if !sleepOrDone(ctx, backoff) {
				return
			}
			backoff = nextBackoff(backoff)
			continue
		}

		backoff = initialBackoff
		c.mu.Lock()
		c.conn = conn
		c.mu.Unlock()

		c.readLoop(ctx, conn)

		c.mu.Lock()
		c.conn = nil
		c.mu.Unlock()
		conn.Close()
	}
}

// readLoop consumes newline-delimited JSON lines until the connection
// drops or ctx is canceled.
func (c *Client) readLoop(ctx context.Context, conn net.Conn) {
	reader := bufio.NewReader(conn)
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		line, err := reader.ReadBytes('\n')
		if len(line) > 0 {
			c.handleLine(line)
		}
		if err != nil {
			if err != io.EOF {
				c.logger.Warn("streamsocket: read error, reconnecting", zap.Error(err))
			}
			return
		}
	}
}

func (c *Client) handleLine(line []byte) {
	var w wireChunk
	if err := json.Unmarshal(line, &w); err != nil {
		c.logger.Warn("streamsocket: malformed chunk, skipping", zap.Error(err))
		return
	}
	c.sink(domain.StreamChunk{
		AgentPubkey:    w.AgentPubkey,
		ConversationID: w.ConversationID,
		Type:           w.Data.Type,
		Text:           w.Data.Text,
	})
}

func sleepOrDone(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-ctx.Done():
		return false
	}
}

func nextBackoff(cur time.Duration) time.Duration {
	next := cur * 2
	if next > maxBackoff {
		return maxBackoff
	}
	return next
}
