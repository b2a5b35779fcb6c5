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

package bunker

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/nbd-wtf/go-nostr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tenex-chat/tui-sub004/internal/kinds"
	"github.com/tenex-chat/tui-sub004/internal/nostrcrypto"
	"github.com/tenex-chat/tui-sub004/internal/relay"
)

type keypair struct {
	sk string
	pk string
}

func newKeypair() keypair {
	sk := nostr.GeneratePrivateKey()
	pk, _ := nostr.GetPublicKey(sk)
	return keypair{sk: sk, pk: pk}
}

func startTestService(t *testing.T, user keypair, requestCh chan SignRequest) (*Service, *relay.Fake) {
	t.Helper()
	fake := relay.NewFake()
	s, err := Start(context.Background(), Identity{PrivateKeyHex: user.sk, PublicKeyHex: user.pk}, "wss://relay.test", fake, requestCh)
	require.NoError(t, err)
	t.Cleanup(s.Stop)
	return s, fake
}

func sendEnvelope(t *testing.T, fake *relay.Fake, user, client keypair, id, method string, params []string) {
	t.Helper()
	req := rpcRequest{ID: id, Method: method, Params: params}
	payload, err := json.Marshal(req)
	require.NoError(t, err)
	ciphertext, err := nostrcrypto.EncryptNip44(client.sk, user.pk, string(payload))
	require.NoError(t, err)
	fake.Feed(&nostr.Event{
		ID:        "src-" + id,
		PubKey:    client.pk,
		Kind:      kinds.NostrConnect,
		CreatedAt: nostr.Timestamp(time.Now().Unix()),
		Tags:      nostr.Tags{{"p", user.pk}},
		Content:   ciphertext,
	})
}

func waitForResponse(t *testing.T, fake *relay.Fake, client keypair, n int) rpcResponse {
	t.Helper()
	var snapshot []*nostr.Event
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		snapshot = fake.Snapshot()
		if len(snapshot) >= n {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}
	require.GreaterOrEqual(t, len(snapshot), n)
	ev := snapshot[n-1]
	plaintext, err := nostrcrypto.DecryptEnvelope(client.sk, ev.PubKey, ev.Content)
	require.NoError(t, err)
	var resp rpcResponse
	require.NoError(t, json.Unmarshal([]byte(plaintext), &resp))
	return resp
}

func TestPingIsAutoApproved(t *testing.T) {
	user := newKeypair()
	client := newKeypair()
	requestCh := make(chan SignRequest, 4)
	_, fake := startTestService(t, user, requestCh)

	sendEnvelope(t, fake, user, client, "r1", methodPing, nil)

	resp := waitForResponse(t, fake, client, 1)
	assert.Equal(t, "r1", resp.ID)
	assert.Equal(t, "pong", resp.Result)
	assert.Empty(t, resp.Error)
}

func TestGetPublicKeyReturnsIdentity(t *testing.T) {
	user := newKeypair()
	client := newKeypair()
	requestCh := make(chan SignRequest, 4)
	_, fake := startTestService(t, user, requestCh)

	sendEnvelope(t, fake, user, client, "r2", methodGetPublicKey, nil)

	resp := waitForResponse(t, fake, client, 1)
	assert.Equal(t, user.pk, resp.Result)
}

func TestConnectRejectsMismatchedSecret(t *testing.T) {
	user := newKeypair()
	client := newKeypair()
	requestCh := make(chan SignRequest, 4)
	_, fake := startTestService(t, user, requestCh)

	sendEnvelope(t, fake, user, client, "r3", methodConnect, []string{user.pk, "wrong-secret"})

	resp := waitForResponse(t, fake, client, 1)
	assert.NotEmpty(t, resp.Error)
}

func TestSignEventRequiresApprovalAndTimesOutIsNotTested(t *testing.T) {
	user := newKeypair()
	client := newKeypair()
	requestCh := make(chan SignRequest, 4)
	s, fake := startTestService(t, user, requestCh)

	unsigned, err := json.Marshal(unsignedEvent{Kind: 1, Content: "hello", Tags: [][]string{}, CreatedAt: time.Now().Unix()})
	require.NoError(t, err)
	sendEnvelope(t, fake, user, client, "r4", methodSignEvent, []string{string(unsigned)})

	var sr SignRequest
	select {
	case sr = <-requestCh:
	case <-time.After(2 * time.Second):
		t.Fatal("expected a SignRequest to be forwarded")
	}
	assert.Equal(t, client.pk, sr.RequesterPubkey)
	assert.Equal(t, 1, sr.EventKind)

	require.NoError(t, s.Respond(sr.RequestID, true))

	resp := waitForResponse(t, fake, client, 1)
	assert.Empty(t, resp.Error)
	var signed nostr.Event
	require.NoError(t, json.Unmarshal([]byte(resp.Result), &signed))
	assert.Equal(t, "hello", signed.Content)
	assert.NotEmpty(t, signed.Sig)
}

func TestSignEventRejectedByUser(t *testing.T) {
	user := newKeypair()
	client := newKeypair()
	requestCh := make(chan SignRequest, 4)
	s, fake := startTestService(t, user, requestCh)

	unsigned, err := json.Marshal(unsignedEvent{Kind: 1, Content: "no", Tags: [][]string{}, CreatedAt: time.Now().Unix()})
	require.NoError(t, err)
	sendEnvelope(t, fake, user, client, "r5", methodSignEvent, []string{string(unsigned)})

	sr := <-requestCh
	require.NoError(t, s.Respond(sr.RequestID, false))

	resp := waitForResponse(t, fake, client, 1)
	assert.Equal(t, "rejected", resp.Error)
}

func TestAutoApproveRuleSkipsUIRoundTrip(t *testing.T) {
	user := newKeypair()
	client := newKeypair()
	requestCh := make(chan SignRequest, 4)
	s, fake := startTestService(t, user, requestCh)
	s.AddAutoApproveRule(AutoApproveRule{RequesterPubkey: client.pk, AnyKind: true})

	unsigned, err := json.Marshal(unsignedEvent{Kind: 4200, Content: "tool", Tags: [][]string{}, CreatedAt: time.Now().Unix()})
	require.NoError(t, err)
	sendEnvelope(t, fake, user, client, "r6", methodSignEvent, []string{string(unsigned)})

	resp := waitForResponse(t, fake, client, 1)
	assert.Empty(t, resp.Error)
	assert.Len(t, requestCh, 0)
}

func TestRespondUnknownRequestIDErrors(t *testing.T) {
	user := newKeypair()
	requestCh := make(chan SignRequest, 4)
	s, _ := startTestService(t, user, requestCh)
	assert.Error(t, s.Respond("nonexistent", true))
}

func TestAuditLogRecordsEveryInteraction(t *testing.T) {
	user := newKeypair()
	client := newKeypair()
	requestCh := make(chan SignRequest, 4)
	s, fake := startTestService(t, user, requestCh)

	sendEnvelope(t, fake, user, client, "r7", methodPing, nil)
	waitForResponse(t, fake, client, 1)

	var entries []AuditEntry
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		entries = s.AuditLog()
		if len(entries) > 0 {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}
	require.Len(t, entries, 1)
	assert.Equal(t, "Ping", entries[0].RequestType)
	assert.Equal(t, "auto-approved", entries[0].Decision)
}
