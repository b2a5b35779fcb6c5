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

// Package kinds centralizes the event kind numbers this runtime understands.
package kinds

// Event kind numbers understood by the ingestion pipeline.
const (
	Profile              = 0
	Note                 = 1 // thread root or message reply, disambiguated by e-tag presence
	ConversationMetadata = 513
	Lesson               = 4129
	AgentDefinition      = 4199
	MCPTool              = 4200
	Nudge                = 4201
	BookmarkList         = 14202
	BootRequest          = 24000
	ProjectStatus        = 24010
	AgentConfig          = 24020
	// OperationsStatus and NostrConnect share the wire kind 24133: NIP-46
	// reserves it for remote-signer envelopes, and this runtime reuses it
	// for per-conversation operations statuses. Both are addressed to the
	// user's pubkey via a `p` tag, so the session's standing subscription
	// can receive remote-signer envelopes too; the ingestion pipeline
	// skips a kind-24133 event that does not decode as an operations
	// status. The bunker subsystem subscribes on its own relay client.
	OperationsStatus = 24133
	NostrConnect     = 24133
	StopOperations   = 24134
	BlossomAuth      = 24242
	Report           = 30023
	Project          = 31933
)

// Replaceable reports whether events of kind k are replaceable — only the
// latest by (kind, pubkey, d-tag) contributes to derived state.
func Replaceable(k int) bool {
	switch {
	case k == Project:
		return true
	case k == BookmarkList:
		return true
	case k >= 30000 && k < 40000:
		return true
	case k >= 10000 && k < 20000:
		return true
	default:
		return false
	}
}
