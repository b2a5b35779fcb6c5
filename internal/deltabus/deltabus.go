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

// Package deltabus fans ingestion deltas out to a single registered
// callback running on a dedicated listener goroutine, mirroring the
// teacher's pkg/communication.MessageBus subscriber-registry shape but
// narrowed to the façade's "at most one callback" contract: on first
// registration a listener goroutine is spawned, on clear it is joined.
package deltabus

import (
	"sync"
	"time"

	"github.com/nbd-wtf/go-nostr"
	"go.uber.org/zap"

	"github.com/tenex-chat/tui-sub004/internal/domain"
	"github.com/tenex-chat/tui-sub004/internal/ingest"
	"github.com/tenex-chat/tui-sub004/internal/tenexlog"
)

// Callback receives one delta at a time, in the order its source event
// was admitted. Implementations must not block indefinitely.
type Callback func(domain.Delta)

const channelBuffer = 256

// Bus owns the relay-stream and ephemeral-stream input channels, a
// pipeline to decode admitted events into deltas, and the single
// callback slot. The relay stream and ephemeral stream may interleave
// with each other, but order within each stream is preserved.
type Bus struct {
	pipeline *ingest.Pipeline
	logger   *zap.Logger

	relayCh     chan *nostr.Event
	ephemeralCh chan *nostr.Event
	chunkCh     chan domain.StreamChunk
	deltaCh     chan domain.Delta

	cbMu sync.Mutex
	cb   Callback
	done chan struct{}
	wg   sync.WaitGroup
}

// New builds a Bus over pipeline. No listener goroutine runs until a
// callback is registered via SetCallback.
func New(pipeline *ingest.Pipeline) *Bus {
	return &Bus{
		pipeline:    pipeline,
		logger:      tenexlog.Logger(),
		relayCh:     make(chan *nostr.Event, channelBuffer),
		ephemeralCh: make(chan *nostr.Event, channelBuffer),
		chunkCh:     make(chan domain.StreamChunk, channelBuffer),
		deltaCh:     make(chan domain.Delta, channelBuffer),
	}
}

// FeedRelay enqueues an event admitted from a relay subscription.
func (b *Bus) FeedRelay(ev *nostr.Event) {
	b.relayCh <- ev
}

// FeedEphemeral enqueues an event admitted out-of-band, e.g. an event
// the session signed and published itself.
func (b *Bus) FeedEphemeral(ev *nostr.Event) {
	b.ephemeralCh <- ev
}

// FeedChunk enqueues a streaming-socket chunk. Chunks never enter the
// event store; they are forwarded to the callback verbatim as a
// StreamChunkDelta.
func (b *Bus) FeedChunk(chunk domain.StreamChunk) {
	b.chunkCh <- chunk
}

// FeedDelta enqueues an already-computed delta, bypassing the
// ingestion pipeline. Used by housekeeping tasks (e.g. the stale
// project-status sweep) that mutate the domain store directly instead
// of through an admitted event.
func (b *Bus) FeedDelta(d domain.Delta) {
	b.deltaCh <- d
}

// SetCallback registers cb as the sole callback and starts the
// listener goroutine if one is not already running. Replacing an
// existing callback does not restart the listener.
func (b *Bus) SetCallback(cb Callback) {
	b.cbMu.Lock()
	defer b.cbMu.Unlock()

	b.cb = cb
	if b.done == nil {
		b.done = make(chan struct{})
		b.wg.Add(1)
		go b.listen(b.done)
	}
}

// ClearCallback unregisters the callback and joins the listener
// goroutine.
func (b *Bus) ClearCallback() {
	b.cbMu.Lock()
	done := b.done
	b.done = nil
	b.cb = nil
	b.cbMu.Unlock()

	if done == nil {
		return
	}
	close(done)
	b.wg.Wait()
}

// HasCallback reports whether a callback is currently registered.
func (b *Bus) HasCallback() bool {
	b.cbMu.Lock()
	defer b.cbMu.Unlock()
	return b.cb != nil
}

func (b *Bus) listen(done chan struct{}) {
	defer b.wg.Done()

	now := func() int64 { return time.Now().Unix() }

	for {
		select {
		case <-done:
			return
		case ev := <-b.relayCh:
			b.dispatchEvent(ev, now())
		case ev := <-b.ephemeralCh:
			b.dispatchEvent(ev, now())
		case chunk := <-b.chunkCh:
			b.invoke(domain.NewStreamChunkDelta(chunk))
		case d := <-b.deltaCh:
			b.invoke(d)
		}
	}
}

func (b *Bus) dispatchEvent(ev *nostr.Event, nowUnix int64) {
	deltas := b.pipeline.Process(ev, nowUnix)
	for _, d := range deltas {
		b.invoke(d)
	}
}

func (b *Bus) invoke(d domain.Delta) {
	b.cbMu.Lock()
	cb := b.cb
	b.cbMu.Unlock()
	if cb == nil {
		return
	}
	cb(d)
}
