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

package eventstore

import (
	"strings"

	"github.com/nbd-wtf/go-nostr"
)

// Filter selects events by kinds, authors, tag-value membership, and a
// since timestamp, with an upper-bound limit.
type Filter struct {
	Kinds   []int
	Authors []string
	Tags    map[string][]string // tag name (e.g. "#p") -> accepted values
	Since   int64
	Limit   int
}

func (f Filter) matches(ev *nostr.Event) bool {
	if len(f.Kinds) > 0 && !containsInt(f.Kinds, ev.Kind) {
		return false
	}
	if len(f.Authors) > 0 && !containsStr(f.Authors, ev.PubKey) {
		return false
	}
	if f.Since != 0 && int64(ev.CreatedAt) < f.Since {
		return false
	}
	for tagName, accepted := range f.Tags {
		name := strings.TrimPrefix(tagName, "#")
		if !tagMatchesAny(ev.Tags, name, accepted) {
			return false
		}
	}
	return true
}

func tagMatchesAny(tags nostr.Tags, name string, accepted []string) bool {
	for _, tag := range tags {
		if len(tag) < 2 || tag[0] != name {
			continue
		}
		for _, v := range accepted {
			if tag[1] == v {
				return true
			}
		}
	}
	return false
}

func containsInt(xs []int, v int) bool {
	for _, x := range xs {
		if x == v {
			return true
		}
	}
	return false
}

func containsStr(xs []string, v string) bool {
	for _, x := range xs {
		if x == v {
			return true
		}
	}
	return false
}

// Query returns events matching filter, most-recent-first, ties broken
// by digest, bounded by filter.Limit (0 means unlimited).
func (s *Store) Query(filter Filter) ([]*nostr.Event, error) {
	query := `SELECT digest, kind, pubkey, created_at, content, tags_json, sig FROM events WHERE 1=1`
	var args []any

	if len(filter.Kinds) > 0 {
		query += " AND kind IN (" + placeholders(len(filter.Kinds)) + ")"
		for _, k := range filter.Kinds {
			args = append(args, k)
		}
	}
	if len(filter.Authors) > 0 {
		query += " AND pubkey IN (" + placeholders(len(filter.Authors)) + ")"
		for _, a := range filter.Authors {
			args = append(args, a)
		}
	}
	if filter.Since != 0 {
		query += " AND created_at >= ?"
		args = append(args, filter.Since)
	}
	query += " ORDER BY created_at DESC, digest DESC"

	s.mu.Lock()
	rows, err := s.db.Query(query, args...)
	s.mu.Unlock()
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*nostr.Event
	for rows.Next() {
		var digest, pubkey, content, tagsJSON, sig string
		var kind int
		var createdAt int64
		if err := rows.Scan(&digest, &kind, &pubkey, &createdAt, &content, &tagsJSON, &sig); err != nil {
			return nil, err
		}
		ev, ok := scanEvent(rowValues{kind, pubkey, createdAt, content, tagsJSON, sig}, digest)
		if !ok {
			continue
		}
		if !filter.matches(ev) {
			continue
		}
		out = append(out, ev)
		if filter.Limit > 0 && len(out) >= filter.Limit {
			break
		}
	}
	return out, rows.Err()
}

// rowValues adapts already-scanned column values to the scannable
// interface so Query can reuse scanEvent's tag-decoding logic.
type rowValues struct {
	kind      int
	pubkey    string
	createdAt int64
	content   string
	tagsJSON  string
	sig       string
}

func (r rowValues) Scan(dest ...any) error {
	*dest[0].(*int) = r.kind
	*dest[1].(*string) = r.pubkey
	*dest[2].(*int64) = r.createdAt
	*dest[3].(*string) = r.content
	*dest[4].(*string) = r.tagsJSON
	*dest[5].(*string) = r.sig
	return nil
}

func placeholders(n int) string {
	b := make([]byte, 0, n*2)
	for i := 0; i < n; i++ {
		if i > 0 {
			b = append(b, ',')
		}
		b = append(b, '?')
	}
	return string(b)
}
