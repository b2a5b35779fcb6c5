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

package domain

// DeltaKind discriminates the variant held by a Delta.
type DeltaKind int

const (
	ProjectCreated DeltaKind = iota
	ProjectUpdated
	ThreadAppeared
	MessageArrived
	ProjectStatusChanged
	OperationsStatusChanged
	PendingBackendApprovalDelta
	ProfileUpdated
	LessonAppeared
	MCPToolAppeared
	NudgeAppeared
	ReportAppeared
	BookmarkListUpdated
	StreamChunkDelta
)

// Delta is a typed descriptor of a derived-state change, emitted to the
// callback bus in the order its source event was admitted.
type Delta struct {
	Kind DeltaKind

	ProjectAddress string
	ThreadID       string
	MessageID      string
	ConversationID string
	Pubkey         string

	IsOnline bool

	Pending PendingBackendApproval

	StreamChunk StreamChunk
}

// StreamChunk mirrors one line read from the local streaming socket.
type StreamChunk struct {
	AgentPubkey    string
	ConversationID string
	Type           string
	Text           string
}

func projectCreated(addr string) Delta { return Delta{Kind: ProjectCreated, ProjectAddress: addr} }
func projectUpdated(addr string) Delta { return Delta{Kind: ProjectUpdated, ProjectAddress: addr} }

func threadAppeared(threadID, projectATag string) Delta {
	return Delta{Kind: ThreadAppeared, ThreadID: threadID, ProjectAddress: projectATag}
}

func messageArrived(threadID, messageID string) Delta {
	return Delta{Kind: MessageArrived, ThreadID: threadID, MessageID: messageID}
}

func projectStatusChanged(addr string, online bool) Delta {
	return Delta{Kind: ProjectStatusChanged, ProjectAddress: addr, IsOnline: online}
}

func operationsStatusChanged(conversationID string) Delta {
	return Delta{Kind: OperationsStatusChanged, ConversationID: conversationID}
}

func pendingBackendApproval(p PendingBackendApproval) Delta {
	return Delta{Kind: PendingBackendApprovalDelta, Pending: p, ProjectAddress: p.ProjectAddress, Pubkey: p.BackendPubkey}
}

func profileUpdated(pubkey string) Delta { return Delta{Kind: ProfileUpdated, Pubkey: pubkey} }

func lessonAppeared(digest string) Delta { return Delta{Kind: LessonAppeared, MessageID: digest} }

func mcpToolAppeared(digest string) Delta { return Delta{Kind: MCPToolAppeared, MessageID: digest} }

func nudgeAppeared(digest string) Delta { return Delta{Kind: NudgeAppeared, MessageID: digest} }

func reportAppeared(projectAddr, digest string) Delta {
	return Delta{Kind: ReportAppeared, ProjectAddress: projectAddr, MessageID: digest}
}

func bookmarkListUpdated(pubkey string) Delta {
	return Delta{Kind: BookmarkListUpdated, Pubkey: pubkey}
}

// NewStreamChunkDelta wraps a streaming-socket chunk as a Delta. Stream
// chunks never enter the event store, so this is the one Delta variant
// constructed outside the domain store's upsert methods.
func NewStreamChunkDelta(chunk StreamChunk) Delta {
	return Delta{Kind: StreamChunkDelta, ConversationID: chunk.ConversationID, StreamChunk: chunk}
}
