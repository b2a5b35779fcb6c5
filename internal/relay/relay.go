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

// Package relay wires the session to the event network: connect,
// subscribe, publish, and set-reconciliation sync, implemented against
// github.com/nbd-wtf/go-nostr as an external, black-box wire protocol.
package relay

import (
	"context"
	"fmt"
	"sync"

	"github.com/nbd-wtf/go-nostr"
	"go.uber.org/zap"

	"github.com/tenex-chat/tui-sub004/internal/tenexlog"
)

// Client is the relay-facing capability the session drives. A real
// Client connects to one or more relay URLs over go-nostr; tests use a
// fake implementation.
type Client interface {
	Connect(ctx context.Context, urls []string) error
	Subscribe(ctx context.Context, filter nostr.Filter) (<-chan *nostr.Event, error)
	Publish(ctx context.Context, ev *nostr.Event) error
	Sync(ctx context.Context, filter nostr.Filter) error
	Close() error
}

// PoolClient is the production Client, backed by a live connection per
// relay URL.
type PoolClient struct {
	mu     sync.Mutex
	relays map[string]*nostr.Relay
	logger *zap.Logger
}

// NewPoolClient builds an unconnected PoolClient.
func NewPoolClient() *PoolClient {
	return &PoolClient{relays: make(map[string]*nostr.Relay), logger: tenexlog.Logger()}
}

// Connect dials every url, tolerating individual failures (a relay that
// is down at Connect time is simply absent from the pool; reconnect
// logic in the session retries it).
func (c *PoolClient) Connect(ctx context.Context, urls []string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	var firstErr error
	connected := 0
	for _, url := range urls {
		if _, already := c.relays[url]; already {
			connected++
			continue
		}
		r, err := nostr.RelayConnect(ctx, url)
		if err != nil {
			c.logger.Warn("relay: connect failed", zap.String("url", url), zap.Error(err))
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		c.relays[url] = r
		connected++
	}
	if connected == 0 && firstErr != nil {
		return fmt.Errorf("relay: connected to none of %d urls: %w", len(urls), firstErr)
	}
	return nil
}

// Subscribe fans out filter to every connected relay and merges their
// event streams into one channel.
func (c *PoolClient) Subscribe(ctx context.Context, filter nostr.Filter) (<-chan *nostr.Event, error) {
	c.mu.Lock()
	relays := make([]*nostr.Relay, 0, len(c.relays))
	for _, r := range c.relays {
		relays = append(relays, r)
	}
	c.mu.Unlock()

	if len(relays) == 0 {
		return nil, fmt.Errorf("relay: subscribe with no connected relays")
	}

	out := make(chan *nostr.Event, 64)
	var wg sync.WaitGroup
	for _, r := range relays {
		sub, err := r.Subscribe(ctx, nostr.Filters{filter})
		if err != nil {
			c.logger.Warn("relay: subscribe failed", zap.String("url", r.URL), zap.Error(err))
			continue
		}
		wg.Add(1)
		go func(sub *nostr.Subscription) {
			defer wg.Done()
			for ev := range sub.Events {
				select {
				case out <- ev:
				case <-ctx.Done():
					return
				}
			}
		}(sub)
	}
	go func() {
		wg.Wait()
		close(out)
	}()
	return out, nil
}

// Publish sends ev to every connected relay, tolerating per-relay
// failures; it succeeds if at least one relay accepted the event.
func (c *PoolClient) Publish(ctx context.Context, ev *nostr.Event) error {
	c.mu.Lock()
	relays := make([]*nostr.Relay, 0, len(c.relays))
	for _, r := range c.relays {
		relays = append(relays, r)
	}
	c.mu.Unlock()

	var firstErr error
	accepted := 0
	for _, r := range relays {
		if err := r.Publish(ctx, *ev); err != nil {
			c.logger.Warn("relay: publish failed", zap.String("url", r.URL), zap.Error(err))
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		accepted++
	}
	if accepted == 0 {
		if firstErr != nil {
			return fmt.Errorf("relay: publish rejected by all relays: %w", firstErr)
		}
		return fmt.Errorf("relay: publish with no connected relays")
	}
	return nil
}

// Sync opens a subscription for filter on every connected relay and
// closes it once the relay signals the end of its stored events. It does
// not read, compare or store the events that subscription returns, and
// does no negentropy exchange; events reach the local store only through
// Subscribe.
func (c *PoolClient) Sync(ctx context.Context, filter nostr.Filter) error {
	c.mu.Lock()
	relays := make([]*nostr.Relay, 0, len(c.relays))
	for _, r := range c.relays {
		relays = append(relays, r)
	}
	c.mu.Unlock()

	for _, r := range relays {
		sub, err := r.Subscribe(ctx, nostr.Filters{filter})
		if err != nil {
			c.logger.Warn("relay: sync subscribe failed", zap.String("url", r.URL), zap.Error(err))
			continue
		}
		go func(sub *nostr.Subscription) {
			<-sub.EndOfStoredEvents
			sub.Unsub()
		}(sub)
	}
	return nil
}

// Close disconnects every relay.
func (c *PoolClient) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for url, r := range c.relays {
		r.Close()
		delete(c.relays, url)
	}
	return nil
}
