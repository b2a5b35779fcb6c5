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

// Package bunker implements the NIP-46 remote-signer state machine: a
// dedicated goroutine subscribes for NostrConnect envelopes addressed
// to the user's pubkey, decrypts and routes each request, auto-approves
// low-risk methods, and forwards sign_event requests to the UI for
// approval with a timeout. Grounded on
// original_source/crates/tenex-core/src/nostr/bunker.rs, translated
// from its oneshot-channel-per-request design to Go channels.
package bunker

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/nbd-wtf/go-nostr"
	"go.uber.org/zap"

	"github.com/tenex-chat/tui-sub004/internal/kinds"
	"github.com/tenex-chat/tui-sub004/internal/nostrcrypto"
	"github.com/tenex-chat/tui-sub004/internal/relay"
	"github.com/tenex-chat/tui-sub004/internal/tenexlog"
)

// Identity is the keypair the bunker signs on behalf of.
type Identity struct {
	PrivateKeyHex string
	PublicKeyHex  string
}

// SignRequest is forwarded to the UI when a sign_event request needs
// human approval.
type SignRequest struct {
	RequestID       string
	RequesterPubkey string
	EventKind       int
	EventContent    string
	EventTagsJSON   string
}

// AuditEntry records one processed NIP-46 interaction.
type AuditEntry struct {
	TimestampMs         int64
	CompletedAtMs       int64
	RequestID           string
	SourceEventID       string
	RequesterPubkey     string
	RequestType         string
	EventKind           int
	HasEventKind        bool
	EventContentPreview string
	EventContentFull    string
	EventTagsJSON       string
	RequestPayloadJSON  string
	ResponsePayloadJSON string
	Decision            string
	ResponseTimeMs      int64
}

// AutoApproveRule auto-approves sign_event requests without prompting
// the UI. AnyKind true means "any kind from this pubkey".
type AutoApproveRule struct {
	RequesterPubkey string
	EventKind       int
	AnyKind         bool
}

const approvalTimeout = 60 * time.Second
const contentPreviewLen = 200

// Service owns the bunker's connection, pending-approval map, audit
// log, and auto-approve rules.
type Service struct {
	identity  Identity
	secret    string
	bunkerURI string
	client    relay.Client
	requestCh chan<- SignRequest
	logger    *zap.Logger

	mu          sync.Mutex
	pending     map[string]chan bool
	auditLog    []AuditEntry
	autoApprove []AutoApproveRule

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// Start connects client to relayURL, subscribes for NostrConnect
// envelopes addressed to identity's pubkey, and begins processing
// requests on a dedicated goroutine. requestCh receives SignRequest
// values that need UI approval; the caller must drain it.
func Start(ctx context.Context, identity Identity, relayURL string, client relay.Client, requestCh chan<- SignRequest) (*Service, error) {
	secret := uuid.NewString()
	bunkerURI := fmt.Sprintf("bunker://%s?relay=%s&secret=%s", identity.PublicKeyHex, url.QueryEscape(relayURL), secret)

	if err := client.Connect(ctx, []string{relayURL}); err != nil {
		return nil, fmt.Errorf("bunker: connect: %w", err)
	}

	filter := nostr.Filter{
		Kinds: []int{kinds.NostrConnect},
		Tags:  nostr.TagMap{"p": []string{identity.PublicKeyHex}},
		Since: timestampPtr(nostr.Timestamp(time.Now().Unix())),
	}
	events, err := client.Subscribe(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("bunker: subscribe: %w", err)
	}

	runCtx, cancel := context.WithCancel(ctx)
	s := &Service{
		identity:  identity,
		secret:    secret,
		bunkerURI: bunkerURI,
		client:    client,
		requestCh: requestCh,
		logger:    tenexlog.Logger(),
		pending:   make(map[string]chan bool),
		cancel:    cancel,
	}

	s.wg.Add(1)
	go s.serveLoop(runCtx, events)

	return s, nil
}

func timestampPtr(t nostr.Timestamp) *nostr.Timestamp { return &t }

// BunkerURI returns the connection string NIP-46 clients use.
func (s *Service) BunkerURI() string { return s.bunkerURI }

// AuditLog returns a copy of every processed interaction.
func (s *Service) AuditLog() []AuditEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]AuditEntry(nil), s.auditLog...)
}

// AddAutoApproveRule registers rule, ignoring exact duplicates.
func (s *Service) AddAutoApproveRule(rule AutoApproveRule) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.autoApprove {
		if r.RequesterPubkey == rule.RequesterPubkey && r.AnyKind == rule.AnyKind && r.EventKind == rule.EventKind {
			return
		}
	}
	s.autoApprove = append(s.autoApprove, rule)
}

// RemoveAutoApproveRule removes any rule matching pubkey and kind.
func (s *Service) RemoveAutoApproveRule(pubkey string, kind int, anyKind bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := s.autoApprove[:0]
	for _, r := range s.autoApprove {
		if r.RequesterPubkey == pubkey && r.AnyKind == anyKind && r.EventKind == kind {
			continue
		}
		out = append(out, r)
	}
	s.autoApprove = out
}

// AutoApproveRules returns a copy of every registered rule.
func (s *Service) AutoApproveRules() []AutoApproveRule {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]AutoApproveRule(nil), s.autoApprove...)
}

// Respond delivers the UI's approval decision for a pending sign_event
// request.
func (s *Service) Respond(requestID string, approved bool) error {
	s.mu.Lock()
	ch, ok := s.pending[requestID]
	if ok {
		delete(s.pending, requestID)
	}
	s.mu.Unlock()
	if !ok {
		return fmt.Errorf("bunker: no pending request with id %s", requestID)
	}
	select {
	case ch <- approved:
	default:
	}
	return nil
}

// Stop cancels the serve loop, rejects every pending request, and
// waits for the goroutine to exit.
func (s *Service) Stop() {
	s.cancel()
	s.mu.Lock()
	for id, ch := range s.pending {
		select {
		case ch <- false:
		default:
		}
		delete(s.pending, id)
	}
	s.mu.Unlock()
	s.wg.Wait()
	_ = s.client.Close()
}

func (s *Service) isAutoApproved(pubkey string, kind int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.autoApprove {
		if r.RequesterPubkey == pubkey && (r.AnyKind || r.EventKind == kind) {
			return true
		}
	}
	return false
}

func (s *Service) serveLoop(ctx context.Context, events <-chan *nostr.Event) {
	defer s.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			if ev.Kind == kinds.NostrConnect {
				s.handleEvent(ctx, ev)
			}
		}
	}
}

func (s *Service) handleEvent(ctx context.Context, ev *nostr.Event) {
	start := time.Now()
	receivedAtMs := start.UnixMilli()

	msgJSON, err := nostrcrypto.DecryptEnvelope(s.identity.PrivateKeyHex, ev.PubKey, ev.Content)
	if err != nil {
		s.logger.Warn("bunker: decrypt failed", zap.String("from", ev.PubKey), zap.Error(err))
		return
	}

	req, err := parseRequest(msgJSON)
	if err != nil {
		s.recordAudit(AuditEntry{
			TimestampMs: receivedAtMs, CompletedAtMs: receivedAtMs,
			RequestID: "<unparsed>", SourceEventID: ev.ID, RequesterPubkey: ev.PubKey,
			RequestType: "ParseError", RequestPayloadJSON: msgJSON, Decision: "error",
		})
		return
	}

	resp, decision, details := s.processRequest(ctx, ev.PubKey, req)
	elapsed := time.Since(start)

	respBytes, _ := json.Marshal(resp)
	s.recordAudit(AuditEntry{
		TimestampMs: receivedAtMs, CompletedAtMs: receivedAtMs + elapsed.Milliseconds(),
		RequestID: req.ID, SourceEventID: ev.ID, RequesterPubkey: ev.PubKey,
		RequestType: requestTypeName(req.Method), EventKind: details.kind, HasEventKind: details.hasKind,
		EventContentPreview: details.preview, EventContentFull: details.full, EventTagsJSON: details.tagsJSON,
		RequestPayloadJSON: msgJSON, ResponsePayloadJSON: string(respBytes),
		Decision: decision, ResponseTimeMs: elapsed.Milliseconds(),
	})

	s.sendResponse(ctx, ev.PubKey, resp)
}

func (s *Service) sendResponse(ctx context.Context, toPubkey string, resp rpcResponse) {
	payload, err := json.Marshal(resp)
	if err != nil {
		s.logger.Warn("bunker: marshal response failed", zap.Error(err))
		return
	}
	ciphertext, err := nostrcrypto.EncryptNip44(s.identity.PrivateKeyHex, toPubkey, string(payload))
	if err != nil {
		s.logger.Warn("bunker: encrypt response failed", zap.Error(err))
		return
	}
	ev := &nostr.Event{
		PubKey:    s.identity.PublicKeyHex,
		CreatedAt: nostr.Timestamp(time.Now().Unix()),
		Kind:      kinds.NostrConnect,
		Tags:      nostr.Tags{{"p", toPubkey}},
		Content:   ciphertext,
	}
	if err := ev.Sign(s.identity.PrivateKeyHex); err != nil {
		s.logger.Warn("bunker: sign response failed", zap.Error(err))
		return
	}
	if err := s.client.Publish(ctx, ev); err != nil {
		s.logger.Warn("bunker: publish response failed", zap.Error(err))
	}
}

type requestDetails struct {
	kind     int
	hasKind  bool
	preview  string
	full     string
	tagsJSON string
}

func (s *Service) processRequest(ctx context.Context, fromPubkey string, req rpcRequest) (rpcResponse, string, requestDetails) {
	switch req.Method {
	case methodConnect:
		if len(req.Params) > 1 && req.Params[1] != "" && req.Params[1] != s.secret {
			return errResponse(req.ID, "secret not match"), "error", requestDetails{}
		}
		return okResponse(req.ID, "ack"), "auto-approved", requestDetails{}

	case methodPing:
		return okResponse(req.ID, "pong"), "auto-approved", requestDetails{}

	case methodGetPublicKey:
		return okResponse(req.ID, s.identity.PublicKeyHex), "auto-approved", requestDetails{}

	case methodNip04Encrypt:
		return s.handleEncrypt(req, nostrcrypto.EncryptNip04)
	case methodNip04Decrypt:
		return s.handleDecrypt(req, nostrcrypto.DecryptNip04)
	case methodNip44Encrypt:
		return s.handleEncrypt(req, nostrcrypto.EncryptNip44)
	case methodNip44Decrypt:
		return s.handleDecrypt(req, func(sk, pk, ct string) (string, error) {
			return nostrcrypto.DecryptEnvelope(sk, pk, ct)
		})

	case methodSignEvent:
		return s.handleSignEvent(ctx, fromPubkey, req)

	default:
		return errResponse(req.ID, fmt.Sprintf("unsupported request: %s", req.Method)), "error", requestDetails{}
	}
}

func (s *Service) handleEncrypt(req rpcRequest, fn func(ourPrivkeyHex, theirPubkeyHex, plaintext string) (string, error)) (rpcResponse, string, requestDetails) {
	if len(req.Params) < 2 {
		return errResponse(req.ID, "missing params"), "error", requestDetails{}
	}
	ciphertext, err := fn(s.identity.PrivateKeyHex, req.Params[0], req.Params[1])
	if err != nil {
		return errResponse(req.ID, err.Error()), "error", requestDetails{}
	}
	return okResponse(req.ID, ciphertext), "auto-approved", requestDetails{}
}

func (s *Service) handleDecrypt(req rpcRequest, fn func(ourPrivkeyHex, theirPubkeyHex, ciphertext string) (string, error)) (rpcResponse, string, requestDetails) {
	if len(req.Params) < 2 {
		return errResponse(req.ID, "missing params"), "error", requestDetails{}
	}
	plaintext, err := fn(s.identity.PrivateKeyHex, req.Params[0], req.Params[1])
	if err != nil {
		return errResponse(req.ID, err.Error()), "error", requestDetails{}
	}
	return okResponse(req.ID, plaintext), "auto-approved", requestDetails{}
}

func (s *Service) handleSignEvent(ctx context.Context, fromPubkey string, req rpcRequest) (rpcResponse, string, requestDetails) {
	if len(req.Params) < 1 {
		return errResponse(req.ID, "missing params"), "error", requestDetails{}
	}
	unsigned, err := parseUnsignedEvent(req.Params[0])
	if err != nil {
		return errResponse(req.ID, "invalid unsigned event"), "error", requestDetails{}
	}

	details := requestDetails{kind: unsigned.Kind, hasKind: true, full: unsigned.Content}
	if len(unsigned.Content) > contentPreviewLen {
		details.preview = unsigned.Content[:contentPreviewLen] + "..."
	} else {
		details.preview = unsigned.Content
	}
	if tagsJSON, err := json.Marshal(unsigned.Tags); err == nil {
		details.tagsJSON = string(tagsJSON)
	}

	sign := func() (rpcResponse, string) {
		ev := unsignedToEvent(s.identity.PublicKeyHex, unsigned)
		if err := ev.Sign(s.identity.PrivateKeyHex); err != nil {
			return errResponse(req.ID, err.Error()), "error"
		}
		signedJSON, _ := json.Marshal(ev)
		return okResponse(req.ID, string(signedJSON)), ""
	}

	if s.isAutoApproved(fromPubkey, unsigned.Kind) {
		resp, errDecision := sign()
		if errDecision != "" {
			return resp, errDecision, details
		}
		return resp, "auto-approved", details
	}

	requestID := uuid.NewString()
	approvalCh := make(chan bool, 1)
	s.mu.Lock()
	s.pending[requestID] = approvalCh
	s.mu.Unlock()

	select {
	case s.requestCh <- SignRequest{
		RequestID:       requestID,
		RequesterPubkey: fromPubkey,
		EventKind:       unsigned.Kind,
		EventContent:    unsigned.Content,
		EventTagsJSON:   details.tagsJSON,
	}:
	default:
		s.mu.Lock()
		delete(s.pending, requestID)
		s.mu.Unlock()
		return errResponse(req.ID, "rejected"), "rejected", details
	}

	select {
	case approved := <-approvalCh:
		if !approved {
			return errResponse(req.ID, "rejected"), "rejected", details
		}
		resp, errDecision := sign()
		if errDecision != "" {
			return resp, errDecision, details
		}
		return resp, "approved", details
	case <-time.After(approvalTimeout):
		s.mu.Lock()
		delete(s.pending, requestID)
		s.mu.Unlock()
		return errResponse(req.ID, "timeout"), "timed-out", details
	case <-ctx.Done():
		return errResponse(req.ID, "rejected"), "rejected", details
	}
}

func unsignedToEvent(pubkey string, u unsignedEvent) *nostr.Event {
	tags := make(nostr.Tags, 0, len(u.Tags))
	for _, t := range u.Tags {
		tags = append(tags, nostr.Tag(t))
	}
	createdAt := u.CreatedAt
	if createdAt == 0 {
		createdAt = time.Now().Unix()
	}
	return &nostr.Event{
		PubKey:    pubkey,
		CreatedAt: nostr.Timestamp(createdAt),
		Kind:      u.Kind,
		Tags:      tags,
		Content:   u.Content,
	}
}

func (s *Service) recordAudit(entry AuditEntry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.auditLog = append(s.auditLog, entry)
}

func requestTypeName(method string) string {
	switch method {
	case methodConnect:
		return "Connect"
	case methodPing:
		return "Ping"
	case methodGetPublicKey:
		return "GetPublicKey"
	case methodSignEvent:
		return "SignEvent"
	case methodNip04Encrypt:
		return "Nip04Encrypt"
	case methodNip04Decrypt:
		return "Nip04Decrypt"
	case methodNip44Encrypt:
		return "Nip44Encrypt"
	case methodNip44Decrypt:
		return "Nip44Decrypt"
	default:
		return "Unknown"
	}
}
