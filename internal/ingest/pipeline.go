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

package ingest

import (
	"time"

	"github.com/nbd-wtf/go-nostr"
	"go.uber.org/zap"

	"github.com/tenex-chat/tui-sub004/internal/domain"
	"github.com/tenex-chat/tui-sub004/internal/kinds"
	"github.com/tenex-chat/tui-sub004/internal/tenexlog"
	"github.com/tenex-chat/tui-sub004/internal/trust"
)

// Pipeline applies admitted events to a domain.Store, consulting a
// trust.Engine for trust-gated entity types.
type Pipeline struct {
	store  *domain.Store
	trust  *trust.Engine
	logger *zap.Logger
}

// New builds a Pipeline over store and trustEngine.
func New(store *domain.Store, trustEngine *trust.Engine) *Pipeline {
	return &Pipeline{store: store, trust: trustEngine, logger: tenexlog.Logger()}
}

// Process decodes ev, dispatches to the entity-specific admission rule,
// and returns the deltas produced (zero or one, except hierarchy edges
// which never themselves emit a delta). nowUnix drives online/offline
// classification for ProjectStatus. Decode or admission failures are
// logged and swallowed: a single bad event must not poison the session.
func (p *Pipeline) Process(ev *nostr.Event, nowUnix int64) []domain.Delta {
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("ingest: recovered from panic decoding event",
				zap.String("id", ev.ID), zap.Int("kind", ev.Kind), zap.Any("panic", r))
		}
	}()

	switch ev.Kind {
	case kinds.Project:
		proj, err := decodeProject(ev)
		if err != nil {
			p.logger.Warn("ingest: bad project event", zap.String("id", ev.ID), zap.Error(err))
			return nil
		}
		return p.collect(p.store.UpsertProject(proj))

	case kinds.Note:
		thread, message := decodeThreadOrMessage(ev)
		if thread != nil {
			deltas := p.collect(p.store.UpsertThread(*thread))
			if thread.HasParent {
				p.linkHierarchy(thread.ParentConversationID, thread.ID)
			}
			return deltas
		}
		deltas := p.collect(p.store.UpsertMessage(*message))
		for _, q := range message.QTags {
			p.linkHierarchy(message.ThreadID, q)
		}
		p.recordMessageStats(*message)
		return deltas

	case kinds.ConversationMetadata:
		threadID, summary, scheduled, ok := decodeConversationMetadata(ev)
		if !ok {
			return nil
		}
		return p.collect(p.store.ApplyConversationMetadata(threadID, summary, scheduled))

	case kinds.ProjectStatus:
		status := decodeProjectStatus(ev)
		return p.applyProjectStatus(status, nowUnix)

	case kinds.OperationsStatus:
		status, ok := decodeOperationsStatus(ev)
		if !ok {
			// Shares its wire kind with NIP-46 NostrConnect; not every
			// kind-24133 event is an OperationsStatus.
			return nil
		}
		return p.collect(p.store.ApplyOperationsStatus(status))

	case kinds.Lesson:
		return p.collect(p.store.UpsertLesson(decodeLesson(ev)))

	case kinds.MCPTool:
		return p.collect(p.store.UpsertMCPTool(decodeMCPTool(ev)))

	case kinds.Nudge:
		return p.collect(p.store.UpsertNudge(decodeNudge(ev)))

	case kinds.Report:
		return p.collect(p.store.UpsertReport(decodeReport(ev)))

	case kinds.Profile:
		return p.collect(p.store.UpsertProfile(decodeProfile(ev)))

	case kinds.BookmarkList:
		return p.collect(p.store.UpsertBookmarkList(decodeBookmarkList(ev)))

	default:
		return nil
	}
}

// linkHierarchy records a parent->child edge in the runtime hierarchy
// graph, derived from a thread's "E" parent tag or a message's "q" tags.
// A rejected edge (self-edge, cycle) is logged and otherwise ignored: the
// hierarchy is best-effort derived state, not an admission gate.
func (p *Pipeline) linkHierarchy(parent, child string) {
	if parent == "" || child == "" {
		return
	}
	if err := p.store.AddHierarchyEdge(parent, child); err != nil {
		p.logger.Debug("ingest: skipped hierarchy edge", zap.String("parent", parent), zap.String("child", child), zap.Error(err))
	}
}

// recordMessageStats feeds a message's day and LLM runtime into the
// rolling Statistics tracker. Cost and token counters are not fed here:
// no ingested event currently carries a cost or token-count tag, so
// those two counters stay at zero until such a tag is defined.
func (p *Pipeline) recordMessageStats(m domain.Message) {
	stats := p.store.Stats()
	day := dayKey(m.CreatedAt)
	stats.AddMessage(day)
	if m.LLMRuntime > 0 {
		stats.AddRuntime(day, day == dayKey(time.Now().Unix()), m.LLMRuntime)
	}
}

func dayKey(unixSecs int64) string {
	return time.Unix(unixSecs, 0).UTC().Format("2006-01-02")
}

func (p *Pipeline) applyProjectStatus(status domain.ProjectStatus, nowUnix int64) []domain.Delta {
	switch p.trust.Classify(status.Creator) {
	case trust.Drop:
		return nil
	case trust.Admit:
		return p.collect(p.store.UpsertProjectStatus(status, nowUnix))
	case trust.Enqueue:
		p.trust.EnqueuePending(domain.PendingBackendApproval{
			BackendPubkey:  status.Creator,
			ProjectAddress: status.ProjectAddress,
			StatusSnapshot: status,
			FirstSeenUnix:  nowUnix,
		})
		return []domain.Delta{{
			Kind:           domain.PendingBackendApprovalDelta,
			ProjectAddress: status.ProjectAddress,
			Pubkey:         status.Creator,
			Pending: domain.PendingBackendApproval{
				BackendPubkey:  status.Creator,
				ProjectAddress: status.ProjectAddress,
				StatusSnapshot: status,
				FirstSeenUnix:  nowUnix,
			},
		}}
	default:
		return nil
	}
}

// ApproveBackend promotes any pending approvals from pk into the online
// set (if still fresh) and returns the deltas produced.
func (p *Pipeline) ApproveBackend(pk string, nowUnix int64) []domain.Delta {
	promoted := p.trust.Approve(pk)
	var deltas []domain.Delta
	for _, pending := range promoted {
		d, ok := p.store.UpsertProjectStatus(pending.StatusSnapshot, nowUnix)
		if ok {
			deltas = append(deltas, d)
		}
	}
	return deltas
}

// BlockBackend blocks pk and evicts any online status it previously
// contributed across every known project.
func (p *Pipeline) BlockBackend(pk string, projectAddresses []string) []domain.Delta {
	p.trust.Block(pk)
	var deltas []domain.Delta
	for _, addr := range projectAddresses {
		if d, ok := p.store.EvictProjectStatus(addr); ok {
			deltas = append(deltas, d)
		}
	}
	return deltas
}

func (p *Pipeline) collect(d domain.Delta, ok bool) []domain.Delta {
	if !ok {
		return nil
	}
	return []domain.Delta{d}
}

