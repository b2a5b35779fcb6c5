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

// Package session owns the relay client and signer identity for the
// logged-in user. A single worker goroutine multiplexes commands,
// relay notifications, and the bunker's sign-request channel so every
// interaction with the relay pool and the domain store is serialized,
// mirroring the teacher's pkg/scheduler lifecycle (stopCh + WaitGroup)
// combined with this runtime's own bunker.Service serve-loop idiom.
package session

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/nbd-wtf/go-nostr"
	"go.uber.org/zap"

	"github.com/tenex-chat/tui-sub004/internal/bunker"
	"github.com/tenex-chat/tui-sub004/internal/deltabus"
	"github.com/tenex-chat/tui-sub004/internal/eventstore"
	"github.com/tenex-chat/tui-sub004/internal/kinds"
	"github.com/tenex-chat/tui-sub004/internal/nostrcrypto"
	"github.com/tenex-chat/tui-sub004/internal/relay"
	"github.com/tenex-chat/tui-sub004/internal/tenexlog"
)

// Identity is the signer keypair the session publishes under.
type Identity = bunker.Identity

const signRequestBuffer = 32
const bunkerRequestBuffer = 16
const kindEncryptedDM = 4

// task is one unit of work run on the worker goroutine.
type task func(ctx context.Context)

// Session multiplexes commands, relay notifications, and bunker sign
// requests onto one dedicated worker goroutine. All exported methods
// are safe to call from any goroutine; each blocks until the worker
// has processed it (or the session has shut down).
type Session struct {
	client          relay.Client
	newBunkerClient func() relay.Client
	store           *eventstore.Store
	bus             *deltabus.Bus
	logger          *zap.Logger

	identity  Identity
	relayURLs []string

	bunkerSvc       *bunker.Service
	bunkerRequestCh chan bunker.SignRequest
	signRequests    chan bunker.SignRequest

	subCancel context.CancelFunc
	relayCh   chan *nostr.Event

	mailbox      chan task
	stopped      chan struct{}
	shutdownOnce sync.Once
	wg           sync.WaitGroup
}

// New builds an unconnected Session. client is typically a
// relay.PoolClient in production and a relay.Fake in tests.
// newBunkerClient builds the separate Client the bunker subsystem
// connects with: the bunker owns its own connection lifecycle
// (StopBunker must not tear down the session's standing subscriptions)
// so it cannot share client's Close.
func New(client relay.Client, newBunkerClient func() relay.Client, store *eventstore.Store, bus *deltabus.Bus) *Session {
	s := &Session{
		client:          client,
		newBunkerClient: newBunkerClient,
		store:           store,
		bus:             bus,
		logger:          tenexlog.Logger(),
		signRequests:    make(chan bunker.SignRequest, signRequestBuffer),
		mailbox:         make(chan task),
		stopped:         make(chan struct{}),
	}
	s.wg.Add(1)
	go s.run()
	return s
}

// SignRequests is the stream of bunker sign_event requests awaiting UI
// approval. The caller must drain it once a bunker is started.
func (s *Session) SignRequests() <-chan bunker.SignRequest { return s.signRequests }

// run is the single worker goroutine. Commands, relay deliveries, and
// bunker sign requests are all serialized through this one select
// loop; blocking operations inside a task are permissible because the
// worker is the only consumer of its own mailbox.
func (s *Session) run() {
	defer s.wg.Done()
	ctx := context.Background()
	for {
		select {
		case <-s.stopped:
			return
		case t := <-s.mailbox:
			t(ctx)
		case ev, ok := <-s.relayChOrNil():
			if !ok {
				continue
			}
			s.ingestRelayEvent(ev)
		case req, ok := <-s.bunkerRequestChOrNil():
			if !ok {
				continue
			}
			select {
			case s.signRequests <- req:
			default:
				s.logger.Warn("session: sign request dropped, UI not draining", zap.String("request_id", req.RequestID))
			}
		}
	}
}

// relayChOrNil returns the standing relay-event channel, or nil (which
// blocks forever in a select) when no subscriptions are active yet.
func (s *Session) relayChOrNil() <-chan *nostr.Event {
	if s.relayCh == nil {
		return nil
	}
	return s.relayCh
}

func (s *Session) bunkerRequestChOrNil() <-chan bunker.SignRequest {
	if s.bunkerRequestCh == nil {
		return nil
	}
	return s.bunkerRequestCh
}

func (s *Session) ingestRelayEvent(ev *nostr.Event) {
	switch s.store.Ingest(ev) {
	case eventstore.Admitted:
		s.bus.FeedRelay(ev)
	case eventstore.Duplicate:
	case eventstore.Invalid:
		s.logger.Warn("session: rejected invalid event", zap.String("id", ev.ID), zap.Int("kind", ev.Kind))
	}
}

// admitLocally writes a self-published event into the event store, the
// same durability path a relay-received copy would take, and forwards
// it to the delta bus as an ephemeral (not relay-sourced) admission.
func (s *Session) admitLocally(ev *nostr.Event) {
	switch s.store.Ingest(ev) {
	case eventstore.Admitted:
		s.bus.FeedEphemeral(ev)
	case eventstore.Duplicate:
	case eventstore.Invalid:
		s.logger.Warn("session: rejected self-published event", zap.String("id", ev.ID), zap.Int("kind", ev.Kind))
	}
}

// submit runs fn on the worker goroutine and blocks until it returns,
// or until the session has shut down.
func (s *Session) submit(fn func(ctx context.Context)) error {
	done := make(chan struct{})
	t := func(ctx context.Context) {
		fn(ctx)
		close(done)
	}
	select {
	case s.mailbox <- t:
	case <-s.stopped:
		return errShuttingDown
	}
	select {
	case <-done:
		return nil
	case <-s.stopped:
		return errShuttingDown
	}
}

var errShuttingDown = fmt.Errorf("session: shutting down")

// Connect dials relayURLs, opens the standing subscriptions described
// in the façade's kind table, and calls the client's Sync for each one
// (see relay.PoolClient.Sync for what that round does).
func (s *Session) Connect(ctx context.Context, identity Identity, relayURLs []string) error {
	return s.submit(func(ctx context.Context) {
		s.connect(ctx, identity, relayURLs)
	})
}

func (s *Session) connect(ctx context.Context, identity Identity, relayURLs []string) {
	s.identity = identity
	s.relayURLs = relayURLs

	if err := s.client.Connect(ctx, relayURLs); err != nil {
		s.logger.Error("session: connect failed", zap.Error(err))
		return
	}

	subCtx, cancel := context.WithCancel(context.Background())
	s.subCancel = cancel

	filters := s.standingFilters(identity.PublicKeyHex)
	merged := make(chan *nostr.Event, channelBuffer)
	for _, f := range filters {
		ch, err := s.client.Subscribe(subCtx, f)
		if err != nil {
			s.logger.Warn("session: subscribe failed", zap.Any("filter", f), zap.Error(err))
			continue
		}
		go forward(subCtx, ch, merged)
		if err := s.client.Sync(ctx, f); err != nil {
			s.logger.Warn("session: initial sync failed", zap.Any("filter", f), zap.Error(err))
		}
	}
	s.relayCh = merged
}

const channelBuffer = 256

// forward pipes every event from in into out until in closes or ctx is
// canceled. Used to fan the per-filter subscription channels the relay
// client returns into the session's single aggregate channel.
func forward(ctx context.Context, in <-chan *nostr.Event, out chan<- *nostr.Event) {
	for {
		select {
		case ev, ok := <-in:
			if !ok {
				return
			}
			select {
			case out <- ev:
			case <-ctx.Done():
				return
			}
		case <-ctx.Done():
			return
		}
	}
}

// standingFilters returns the subscriptions a session opens at Connect
// time: projects authored by the user, project-status and operations
// status events addressed to the user, global agent/tool/nudge
// definitions, reports, lessons, the user's profile, and kind-1
// threads/replies addressed to the user.
func (s *Session) standingFilters(userPubkey string) []nostr.Filter {
	return []nostr.Filter{
		{Kinds: []int{kinds.Project}, Authors: []string{userPubkey}},
		{Kinds: []int{kinds.ProjectStatus}, Tags: nostr.TagMap{"p": []string{userPubkey}}},
		{Kinds: []int{kinds.OperationsStatus}, Tags: nostr.TagMap{"p": []string{userPubkey}}},
		{Kinds: []int{kinds.AgentDefinition, kinds.MCPTool, kinds.Nudge}},
		{Kinds: []int{kinds.Report}},
		{Kinds: []int{kinds.Lesson}},
		{Kinds: []int{kinds.Profile}, Authors: []string{userPubkey}},
		{Kinds: []int{kinds.Note}, Tags: nostr.TagMap{"p": []string{userPubkey}}},
	}
}

// Disconnect unsubscribes and disconnects, acking on done.
func (s *Session) Disconnect(done chan<- error) error {
	return s.submit(func(ctx context.Context) {
		err := s.teardown()
		select {
		case done <- err:
		default:
		}
	})
}

func (s *Session) teardown() error {
	if s.subCancel != nil {
		s.subCancel()
		s.subCancel = nil
	}
	s.relayCh = nil
	return s.client.Close()
}

// ForceReconnect tears down and re-establishes the relay pool and all
// subscriptions. Always non-fatal: failure leaves the session
// disconnected and is reported via done rather than terminating the
// worker.
func (s *Session) ForceReconnect(done chan<- error) error {
	return s.submit(func(ctx context.Context) {
		if err := s.teardown(); err != nil {
			s.logger.Warn("session: force-reconnect teardown failed", zap.Error(err))
		}
		s.connect(ctx, s.identity, s.relayURLs)
		var err error
		if s.relayCh == nil {
			err = fmt.Errorf("session: force-reconnect: no active subscriptions after reconnect")
		}
		select {
		case done <- err:
		default:
		}
	})
}

// PublishProfile signs and publishes a kind-0 metadata event.
func (s *Session) PublishProfile(displayName, pictureURL string) (string, error) {
	var digest string
	var signErr error
	err := s.submit(func(ctx context.Context) {
		content, _ := json.Marshal(map[string]string{"name": displayName, "picture": pictureURL})
		ev := s.newEvent(kinds.Profile, string(content), nil)
		digest, signErr = s.signAndPublish(ctx, ev)
	})
	if err != nil {
		return "", err
	}
	return digest, signErr
}

// ThreadParams carries the fields for PublishThread.
type ThreadParams struct {
	ProjectAddress       string
	Title                string
	Content              string
	TargetedAgentPubkey  string
	NudgeOrSkillRefs     []string
	ParentConversationID string
	ForkSourceEventID    string
}

// PublishThread signs and publishes a kind-1 thread root.
func (s *Session) PublishThread(p ThreadParams) (string, error) {
	var digest string
	var signErr error
	err := s.submit(func(ctx context.Context) {
		// Thread roots never carry a lowercase "e" tag: the ingestion
		// pipeline disambiguates thread vs. reply on its presence, so
		// the parent-conversation link uses uppercase "E" instead.
		tags := nostr.Tags{{"a", p.ProjectAddress}, {"title", p.Title}}
		if p.TargetedAgentPubkey != "" {
			tags = append(tags, nostr.Tag{"p", p.TargetedAgentPubkey})
		}
		for _, ref := range p.NudgeOrSkillRefs {
			tags = append(tags, nostr.Tag{"q", ref})
		}
		if p.ParentConversationID != "" {
			tags = append(tags, nostr.Tag{"E", p.ParentConversationID})
		}
		if p.ForkSourceEventID != "" {
			tags = append(tags, nostr.Tag{"fork", p.ForkSourceEventID})
		}
		ev := s.newEvent(kinds.Note, p.Content, tags)
		digest, signErr = s.signAndPublish(ctx, ev)
	})
	if err != nil {
		return "", err
	}
	return digest, signErr
}

// MessageParams carries the fields for PublishMessage.
type MessageParams struct {
	ThreadID            string
	ProjectAddress      string
	Content             string
	TargetedAgentPubkey string
	ReplyToEventID      string
	NudgeOrSkillRefs    []string
	AskAnswerAuthor     string
}

// PublishMessage signs and publishes a kind-1 reply.
func (s *Session) PublishMessage(p MessageParams) (string, error) {
	var digest string
	var signErr error
	err := s.submit(func(ctx context.Context) {
		tags := nostr.Tags{{"e", p.ThreadID, "", "root"}, {"a", p.ProjectAddress}}
		if p.ReplyToEventID != "" && p.ReplyToEventID != p.ThreadID {
			tags = append(tags, nostr.Tag{"e", p.ReplyToEventID, "", "reply"})
		}
		if p.TargetedAgentPubkey != "" {
			tags = append(tags, nostr.Tag{"p", p.TargetedAgentPubkey})
		}
		if p.AskAnswerAuthor != "" {
			tags = append(tags, nostr.Tag{"p", p.AskAnswerAuthor, "", "ask-answer"})
		}
		for _, ref := range p.NudgeOrSkillRefs {
			tags = append(tags, nostr.Tag{"q", ref})
		}
		ev := s.newEvent(kinds.Note, p.Content, tags)
		digest, signErr = s.signAndPublish(ctx, ev)
	})
	if err != nil {
		return "", err
	}
	return digest, signErr
}

// ProjectParams carries the addressable fields of a kind-31933 project
// event.
type ProjectParams struct {
	ID        string
	Title     string
	AgentDefs []string
	ToolDefs  []string
}

// SaveProject publishes a new kind-31933 project.
func (s *Session) SaveProject(p ProjectParams) (string, error) {
	return s.publishProject(p, false)
}

// UpdateProject republishes a kind-31933 project under the same "d"
// tag; the relay network treats the latest as authoritative.
func (s *Session) UpdateProject(p ProjectParams) (string, error) {
	return s.publishProject(p, false)
}

// DeleteProject republishes the project with a "deleted" tag.
func (s *Session) DeleteProject(p ProjectParams) (string, error) {
	return s.publishProject(p, true)
}

func (s *Session) publishProject(p ProjectParams, deleted bool) (string, error) {
	var digest string
	var signErr error
	err := s.submit(func(ctx context.Context) {
		tags := nostr.Tags{{"d", p.ID}, {"title", p.Title}}
		for _, a := range p.AgentDefs {
			tags = append(tags, nostr.Tag{"agent", a})
		}
		for _, t := range p.ToolDefs {
			tags = append(tags, nostr.Tag{"tool", t})
		}
		if deleted {
			tags = append(tags, nostr.Tag{"deleted"})
		}
		ev := s.newEvent(kinds.Project, "", tags)
		digest, signErr = s.signAndPublish(ctx, ev)
	})
	if err != nil {
		return "", err
	}
	return digest, signErr
}

// BootProject publishes a kind-24000 boot request.
func (s *Session) BootProject(projectAddress, ownerPubkey string) error {
	return s.submit(func(ctx context.Context) {
		ev := s.newEvent(kinds.BootRequest, "", nostr.Tags{{"a", projectAddress}, {"p", ownerPubkey}})
		if _, err := s.signAndPublish(ctx, ev); err != nil {
			s.logger.Warn("session: boot project failed", zap.Error(err))
		}
	})
}

// UpdateAgentConfig publishes a kind-24020 agent configuration update.
func (s *Session) UpdateAgentConfig(projectAddress, agentPubkey, model string, tools []string) error {
	return s.submit(func(ctx context.Context) {
		tags := nostr.Tags{{"a", projectAddress}, {"p", agentPubkey}, {"model", model}}
		for _, t := range tools {
			tags = append(tags, nostr.Tag{"tool", t})
		}
		ev := s.newEvent(kinds.AgentConfig, "", tags)
		if _, err := s.signAndPublish(ctx, ev); err != nil {
			s.logger.Warn("session: update agent config failed", zap.Error(err))
		}
	})
}

// RegisterApnsToken sends a NIP-04 encrypted DM to backendPubkey
// registering (or deregistering) a push token.
func (s *Session) RegisterApnsToken(deviceToken string, enable bool, backendPubkey, deviceID string) error {
	return s.submit(func(ctx context.Context) {
		payload, _ := json.Marshal(map[string]any{
			"device_token": deviceToken,
			"enable":       enable,
			"device_id":    deviceID,
		})
		ciphertext, err := nostrcrypto.EncryptNip04(s.identity.PrivateKeyHex, backendPubkey, string(payload))
		if err != nil {
			s.logger.Warn("session: encrypt apns registration failed", zap.Error(err))
			return
		}
		ev := s.newEvent(kindEncryptedDM, ciphertext, nostr.Tags{{"p", backendPubkey}})
		if _, err := s.signAndPublish(ctx, ev); err != nil {
			s.logger.Warn("session: register apns token failed", zap.Error(err))
		}
	})
}

// StartBunker starts the NIP-46 remote-signer subsystem over the
// session's first relay URL.
func (s *Session) StartBunker() (string, error) {
	var uri string
	var startErr error
	err := s.submit(func(ctx context.Context) {
		if s.bunkerSvc != nil {
			uri = s.bunkerSvc.BunkerURI()
			return
		}
		if len(s.relayURLs) == 0 {
			startErr = fmt.Errorf("session: start bunker: not connected to any relay")
			return
		}
		s.bunkerRequestCh = make(chan bunker.SignRequest, bunkerRequestBuffer)
		svc, err := bunker.Start(ctx, s.identity, s.relayURLs[0], s.newBunkerClient(), s.bunkerRequestCh)
		if err != nil {
			startErr = err
			return
		}
		s.bunkerSvc = svc
		uri = svc.BunkerURI()
	})
	if err != nil {
		return "", err
	}
	return uri, startErr
}

// StopBunker stops the remote-signer subsystem.
func (s *Session) StopBunker() error {
	return s.submit(func(ctx context.Context) {
		if s.bunkerSvc == nil {
			return
		}
		s.bunkerSvc.Stop()
		s.bunkerSvc = nil
		s.bunkerRequestCh = nil
	})
}

// BunkerResponse resolves an outstanding sign_event request.
func (s *Session) BunkerResponse(requestID string, approved bool) error {
	var respondErr error
	err := s.submit(func(ctx context.Context) {
		if s.bunkerSvc == nil {
			respondErr = fmt.Errorf("session: bunker not running")
			return
		}
		respondErr = s.bunkerSvc.Respond(requestID, approved)
	})
	if err != nil {
		return err
	}
	return respondErr
}

// AddBunkerAutoApproveRule registers an auto-approve rule.
func (s *Session) AddBunkerAutoApproveRule(rule bunker.AutoApproveRule) error {
	return s.submit(func(ctx context.Context) {
		if s.bunkerSvc != nil {
			s.bunkerSvc.AddAutoApproveRule(rule)
		}
	})
}

// RemoveBunkerAutoApproveRule removes a matching auto-approve rule.
func (s *Session) RemoveBunkerAutoApproveRule(pubkey string, kind int, anyKind bool) error {
	return s.submit(func(ctx context.Context) {
		if s.bunkerSvc != nil {
			s.bunkerSvc.RemoveAutoApproveRule(pubkey, kind, anyKind)
		}
	})
}

// BunkerAutoApproveRules returns the currently registered rules.
func (s *Session) BunkerAutoApproveRules() ([]bunker.AutoApproveRule, error) {
	var rules []bunker.AutoApproveRule
	err := s.submit(func(ctx context.Context) {
		if s.bunkerSvc != nil {
			rules = s.bunkerSvc.AutoApproveRules()
		}
	})
	return rules, err
}

// BunkerAuditLog returns the bunker's processed-interaction log.
func (s *Session) BunkerAuditLog() ([]bunker.AuditEntry, error) {
	var entries []bunker.AuditEntry
	err := s.submit(func(ctx context.Context) {
		if s.bunkerSvc != nil {
			entries = s.bunkerSvc.AuditLog()
		}
	})
	return entries, err
}

// Shutdown terminates the session loop: the bunker (if running) is
// stopped, relays are disconnected, and the worker goroutine exits.
// No further commands may be submitted afterward.
func (s *Session) Shutdown() {
	s.shutdownOnce.Do(func() {
		s.submit(func(ctx context.Context) {
			if s.bunkerSvc != nil {
				s.bunkerSvc.Stop()
				s.bunkerSvc = nil
			}
			if err := s.teardown(); err != nil {
				s.logger.Warn("session: shutdown teardown failed", zap.Error(err))
			}
		})
		close(s.stopped)
		s.wg.Wait()
	})
}

func (s *Session) newEvent(kind int, content string, tags nostr.Tags) *nostr.Event {
	return &nostr.Event{
		PubKey:    s.identity.PublicKeyHex,
		CreatedAt: nostr.Timestamp(time.Now().Unix()),
		Kind:      kind,
		Tags:      tags,
		Content:   content,
	}
}

func (s *Session) signAndPublish(ctx context.Context, ev *nostr.Event) (string, error) {
	if err := ev.Sign(s.identity.PrivateKeyHex); err != nil {
		return "", fmt.Errorf("session: sign event: %w", err)
	}
	if err := s.client.Publish(ctx, ev); err != nil {
		return "", fmt.Errorf("session: publish event: %w", err)
	}
	s.admitLocally(ev)
	return ev.ID, nil
}
