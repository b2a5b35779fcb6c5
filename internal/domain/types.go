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

// Package domain holds the typed entities derived from the event network
// and the in-memory store that indexes them.
package domain

// Project is derived from kind 31933.
type Project struct {
	Address      string
	ID           string
	Title        string
	Pubkey       string
	Participants []string
	AgentDefs    []string
	ToolDefs     []string
	CreatedAt    int64
}

// Thread is a conversation root, derived from a kind-1 event with an "a"
// tag and no "e" tag.
type Thread struct {
	ID                    string
	Pubkey                string
	Title                 string
	Content               string
	ProjectATag           string
	CreatedAt             int64
	EffectiveLastActivity int64
	Summary               string
	HasSummary            bool
	IsScheduled           bool
	ParentConversationID  string
	HasParent             bool
}

// Message is derived from a kind-1 event that carries an "e" tag.
type Message struct {
	ID          string
	ThreadID    string
	Pubkey      string
	Content     string
	CreatedAt   int64
	PTags       []string
	QTags       []string
	ToolName    string
	HasTool     bool
	ToolArgs    string
	IsReasoning bool
	Orphan      bool
	LLMRuntime  int64
}

// AgentStatusEntry names one agent within a ProjectStatus.
type AgentStatusEntry struct {
	Pubkey string
	Name   string
}

// ProjectStatus is derived from kind 24010.
type ProjectStatus struct {
	ProjectAddress string
	Creator        string
	Agents         []AgentStatusEntry
	Models         map[string]string
	Tools          map[string][]string
	CreatedAt      int64
}

// OperationsStatus is derived from kind 24133.
type OperationsStatus struct {
	ConversationID string
	ActivePubkeys  []string
	CreatedAt      int64
}

// Lesson is derived from kind 4129.
type Lesson struct {
	Digest    string
	Pubkey    string
	Title     string
	Content   string
	CreatedAt int64
}

// MCPTool is derived from kind 4200.
type MCPTool struct {
	Digest    string
	Pubkey    string
	Name      string
	Content   string
	CreatedAt int64
}

// Nudge is derived from kind 4201.
type Nudge struct {
	Digest    string
	Pubkey    string
	Title     string
	Content   string
	CreatedAt int64
}

// Report is derived from kind 30023.
type Report struct {
	Digest         string
	ProjectAddress string
	Pubkey         string
	Title          string
	Content        string
	CreatedAt      int64
}

// Profile is derived from kind 0.
type Profile struct {
	Pubkey    string
	Name      string
	Picture   string
	CreatedAt int64
}

// BookmarkList is derived from kind 14202.
type BookmarkList struct {
	Pubkey    string
	Items     []string
	CreatedAt int64
}

// PendingBackendApproval records a project status received from an
// untrusted backend pubkey.
type PendingBackendApproval struct {
	BackendPubkey  string
	ProjectAddress string
	StatusSnapshot ProjectStatus
	FirstSeenUnix  int64
}

// AgentInstanceKey identifies an agent instance working on a conversation.
type AgentInstanceKey struct {
	ConversationID string
	AgentPubkey    string
}
