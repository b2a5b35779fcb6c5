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

import "encoding/json"

// rpcRequest is the wire shape of a NIP-46 request envelope.
type rpcRequest struct {
	ID     string   `json:"id"`
	Method string   `json:"method"`
	Params []string `json:"params"`
}

// rpcResponse is the wire shape of a NIP-46 response envelope.
type rpcResponse struct {
	ID     string `json:"id"`
	Result string `json:"result,omitempty"`
	Error  string `json:"error,omitempty"`
}

const (
	methodConnect       = "connect"
	methodPing          = "ping"
	methodGetPublicKey  = "get_public_key"
	methodSignEvent     = "sign_event"
	methodNip04Encrypt  = "nip04_encrypt"
	methodNip04Decrypt  = "nip04_decrypt"
	methodNip44Encrypt  = "nip44_encrypt"
	methodNip44Decrypt  = "nip44_decrypt"
)

func parseRequest(msgJSON string) (rpcRequest, error) {
	var req rpcRequest
	if err := json.Unmarshal([]byte(msgJSON), &req); err != nil {
		return rpcRequest{}, err
	}
	return req, nil
}

func okResponse(id, result string) rpcResponse {
	return rpcResponse{ID: id, Result: result}
}

func errResponse(id, message string) rpcResponse {
	return rpcResponse{ID: id, Error: message}
}

// unsignedEvent is the shape of a sign_event request's first param.
type unsignedEvent struct {
	Kind      int        `json:"kind"`
	Content   string     `json:"content"`
	Tags      [][]string `json:"tags"`
	CreatedAt int64      `json:"created_at"`
}

func parseUnsignedEvent(raw string) (unsignedEvent, error) {
	var u unsignedEvent
	if err := json.Unmarshal([]byte(raw), &u); err != nil {
		return unsignedEvent{}, err
	}
	return u, nil
}
