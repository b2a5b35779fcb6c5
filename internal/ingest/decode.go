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

// Package ingest decodes newly-admitted events into typed domain
// entities and applies them to the domain store, producing delta
// descriptors. Each kind maps to a pure decoder function through a
// fixed dispatch table, not inheritance.
package ingest

import (
	"encoding/json"
	"fmt"

	"github.com/nbd-wtf/go-nostr"

	"github.com/tenex-chat/tui-sub004/internal/domain"
	"github.com/tenex-chat/tui-sub004/internal/kinds"
)

func decodeProject(ev *nostr.Event) (domain.Project, error) {
	d, _ := firstTagValue(ev.Tags, "d")
	title, ok := firstTagValue(ev.Tags, "title")
	if !ok {
		title, ok = firstTagValue(ev.Tags, "name")
	}
	if !ok {
		title = d
	}
	return domain.Project{
		Address:      fmt.Sprintf("%d:%s:%s", kinds.Project, ev.PubKey, d),
		ID:           d,
		Title:        title,
		Pubkey:       ev.PubKey,
		Participants: tagValues(ev.Tags, "p"),
		AgentDefs:    tagValues(ev.Tags, "agent"),
		ToolDefs:     tagValues(ev.Tags, "tool"),
		CreatedAt:    int64(ev.CreatedAt),
	}, nil
}

// decodeThreadOrMessage disambiguates a kind-1 event: a reply ("e" tag
// present) is a Message, otherwise it is a Thread root (whose "a" tag,
// if any, names its project). Returns exactly one of the two non-nil.
func decodeThreadOrMessage(ev *nostr.Event) (*domain.Thread, *domain.Message) {
	if hasTag(ev.Tags, "e") {
		m := decodeMessage(ev)
		return nil, &m
	}
	t := decodeThread(ev)
	return &t, nil
}

func decodeThread(ev *nostr.Event) domain.Thread {
	title, ok := firstTagValue(ev.Tags, "title")
	if !ok {
		title = "Untitled"
	}
	projectATag, _ := firstTagValue(ev.Tags, "a")
	parent, hasParent := firstTagValue(ev.Tags, "E")

	return domain.Thread{
		ID:                    ev.ID,
		Pubkey:                ev.PubKey,
		Title:                 title,
		Content:               ev.Content,
		ProjectATag:           projectATag,
		CreatedAt:             int64(ev.CreatedAt),
		EffectiveLastActivity: int64(ev.CreatedAt),
		IsScheduled:           hasTag(ev.Tags, "scheduled"),
		ParentConversationID:  parent,
		HasParent:             hasParent,
	}
}

func decodeMessage(ev *nostr.Event) domain.Message {
	threadID, _ := firstTagValue(ev.Tags, "e")
	toolName, hasTool := firstTagValue(ev.Tags, "tool")
	toolArgs, _ := firstTagValue(ev.Tags, "tool-args")
	runtime, _ := tagInt64(ev.Tags, "llm-runtime")

	return domain.Message{
		ID:          ev.ID,
		ThreadID:    threadID,
		Pubkey:      ev.PubKey,
		Content:     ev.Content,
		CreatedAt:   int64(ev.CreatedAt),
		PTags:       tagValues(ev.Tags, "p"),
		QTags:       tagValues(ev.Tags, "q"),
		ToolName:    toolName,
		HasTool:     hasTool,
		ToolArgs:    toolArgs,
		IsReasoning: hasTag(ev.Tags, "reasoning"),
		LLMRuntime:  runtime,
	}
}

// decodeConversationMetadata decodes a kind-513 event: supplements a
// thread's summary and scheduled flag. Folded into domain.Thread rather
// than tracked as its own entity.
func decodeConversationMetadata(ev *nostr.Event) (threadID, summary string, isScheduled bool, ok bool) {
	threadID, ok = firstTagValue(ev.Tags, "e")
	if !ok {
		return "", "", false, false
	}
	return threadID, ev.Content, hasTag(ev.Tags, "scheduled"), true
}

func decodeProjectStatus(ev *nostr.Event) domain.ProjectStatus {
	projectAddr, _ := firstTagValue(ev.Tags, "a")

	var agents []domain.AgentStatusEntry
	models := make(map[string]string)
	tools := make(map[string][]string)

	for _, tag := range ev.Tags {
		if len(tag) < 2 {
			continue
		}
		switch tag[0] {
		case "agent":
			name := ""
			if len(tag) >= 3 {
				name = tag[2]
			}
			agents = append(agents, domain.AgentStatusEntry{Pubkey: tag[1], Name: name})
		case "model":
			if len(tag) >= 3 {
				models[tag[1]] = tag[2]
			}
		case "tool":
			if len(tag) >= 3 {
				tools[tag[1]] = append(tools[tag[1]], tag[2])
			}
		}
	}

	return domain.ProjectStatus{
		ProjectAddress: projectAddr,
		Creator:        ev.PubKey,
		Agents:         agents,
		Models:         models,
		Tools:          tools,
		CreatedAt:      int64(ev.CreatedAt),
	}
}

// decodeOperationsStatus decodes a kind-24133 event as an OperationsStatus.
// Returns ok=false if the event lacks the single "e" tag this entity
// requires — this is how the dispatch table disambiguates it from a
// NIP-46 NostrConnect envelope sharing the same wire kind, which carries
// no "e" tag.
func decodeOperationsStatus(ev *nostr.Event) (domain.OperationsStatus, bool) {
	conversationID, ok := firstTagValue(ev.Tags, "e")
	if !ok {
		return domain.OperationsStatus{}, false
	}
	return domain.OperationsStatus{
		ConversationID: conversationID,
		ActivePubkeys:  tagValues(ev.Tags, "p"),
		CreatedAt:      int64(ev.CreatedAt),
	}, true
}

func decodeLesson(ev *nostr.Event) domain.Lesson {
	title, _ := firstTagValue(ev.Tags, "title")
	return domain.Lesson{Digest: ev.ID, Pubkey: ev.PubKey, Title: title, Content: ev.Content, CreatedAt: int64(ev.CreatedAt)}
}

func decodeMCPTool(ev *nostr.Event) domain.MCPTool {
	name, _ := firstTagValue(ev.Tags, "name")
	return domain.MCPTool{Digest: ev.ID, Pubkey: ev.PubKey, Name: name, Content: ev.Content, CreatedAt: int64(ev.CreatedAt)}
}

func decodeNudge(ev *nostr.Event) domain.Nudge {
	title, _ := firstTagValue(ev.Tags, "title")
	return domain.Nudge{Digest: ev.ID, Pubkey: ev.PubKey, Title: title, Content: ev.Content, CreatedAt: int64(ev.CreatedAt)}
}

func decodeReport(ev *nostr.Event) domain.Report {
	title, _ := firstTagValue(ev.Tags, "title")
	projectAddr, _ := firstTagValue(ev.Tags, "a")
	return domain.Report{
		Digest:         ev.ID,
		ProjectAddress: projectAddr,
		Pubkey:         ev.PubKey,
		Title:          title,
		Content:        ev.Content,
		CreatedAt:      int64(ev.CreatedAt),
	}
}

type profileContent struct {
	Name    string `json:"name"`
	Picture string `json:"picture"`
}

func decodeProfile(ev *nostr.Event) domain.Profile {
	var pc profileContent
	_ = json.Unmarshal([]byte(ev.Content), &pc) // malformed content degrades to empty fields, not a decode failure
	return domain.Profile{Pubkey: ev.PubKey, Name: pc.Name, Picture: pc.Picture, CreatedAt: int64(ev.CreatedAt)}
}

func decodeBookmarkList(ev *nostr.Event) domain.BookmarkList {
	var items []string
	for _, tag := range ev.Tags {
		if len(tag) >= 2 && (tag[0] == "e" || tag[0] == "a") {
			items = append(items, tag[1])
		}
	}
	return domain.BookmarkList{Pubkey: ev.PubKey, Items: items, CreatedAt: int64(ev.CreatedAt)}
}
