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

// Package statecache snapshots the event store's contents to
// state_cache.bin, zstd-compressed, so a cold start can warm the
// in-memory domain projection without replaying data.mdb through a
// fresh sqlite connection first. data.mdb remains the durable source
// of truth; a missing or corrupt snapshot only costs a slower replay,
// never data loss.
package statecache

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/zstd"
	"github.com/nbd-wtf/go-nostr"
)

// Save writes events to path as a zstd-compressed JSON array, via a
// temp-file-then-rename so a crash mid-write never leaves a truncated
// snapshot.
func Save(path string, events []*nostr.Event) error {
	raw, err := json.Marshal(events)
	if err != nil {
		return fmt.Errorf("statecache: marshal: %w", err)
	}

	enc, err := zstd.NewWriter(nil)
	if err != nil {
		return fmt.Errorf("statecache: new encoder: %w", err)
	}
	defer enc.Close()
	compressed := enc.EncodeAll(raw, nil)

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("statecache: mkdir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("statecache: create temp: %w", err)
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(compressed); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("statecache: write: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("statecache: sync: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("statecache: close temp: %w", err)
	}
	return os.Rename(tmpPath, path)
}

// Load reads and decompresses a snapshot written by Save. A missing
// file is not an error: it returns a nil slice, signaling "no snapshot
// yet" to the caller.
func Load(path string) ([]*nostr.Event, error) {
	compressed, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("statecache: read: %w", err)
	}

	dec, err := zstd.NewReader(nil)
	if err != nil {
		return nil, fmt.Errorf("statecache: new decoder: %w", err)
	}
	defer dec.Close()
	raw, err := dec.DecodeAll(compressed, nil)
	if err != nil {
		return nil, fmt.Errorf("statecache: decode: %w", err)
	}

	var events []*nostr.Event
	if err := json.Unmarshal(raw, &events); err != nil {
		return nil, fmt.Errorf("statecache: unmarshal: %w", err)
	}
	return events, nil
}
