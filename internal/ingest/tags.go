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
	"strconv"

	"github.com/nbd-wtf/go-nostr"
)

// tagValues returns, in tag order, the value (position 1) of every tag
// named name.
func tagValues(tags nostr.Tags, name string) []string {
	var out []string
	for _, tag := range tags {
		if len(tag) >= 2 && tag[0] == name {
			out = append(out, tag[1])
		}
	}
	return out
}

// firstTagValue returns the value of the first tag named name.
func firstTagValue(tags nostr.Tags, name string) (string, bool) {
	for _, tag := range tags {
		if len(tag) >= 2 && tag[0] == name {
			return tag[1], true
		}
	}
	return "", false
}

// hasTag reports whether any tag named name exists, regardless of value.
func hasTag(tags nostr.Tags, name string) bool {
	for _, tag := range tags {
		if len(tag) >= 1 && tag[0] == name {
			return true
		}
	}
	return false
}

// tagInt64 parses the value of the first tag named name as a base-10
// integer.
func tagInt64(tags nostr.Tags, name string) (int64, bool) {
	v, ok := firstTagValue(tags, name)
	if !ok {
		return 0, false
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}
