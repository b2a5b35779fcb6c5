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
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
)

type lockFile struct {
	path string
}

// acquireLock opens dataDir/lock.mdb exclusively, stamping it with this
// process's PID. If the file already exists, it reclaims it when the
// PID it names belongs to no live process; otherwise it fails with
// ErrStoreLocked.
func acquireLock(dataDir string) (*lockFile, error) {
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("eventstore: create data dir: %w", err)
	}
	path := filepath.Join(dataDir, "lock.mdb")

	if err := tryReclaimStale(path); err != nil {
		return nil, err
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o600)
	if err != nil {
		if os.IsExist(err) {
			return nil, ErrStoreLocked
		}
		return nil, fmt.Errorf("eventstore: create lock.mdb: %w", err)
	}
	defer f.Close()
	fmt.Fprintf(f, "%d", os.Getpid())

	return &lockFile{path: path}, nil
}

// tryReclaimStale removes path if it names a PID with no live process.
// Returns nil both when path is absent and when it was reclaimed; it
// never returns an error for a live holder — acquireLock's O_EXCL
// create does that by failing naturally.
func tryReclaimStale(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil // absent or unreadable: proceed to O_EXCL create
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		os.Remove(path) // unparsable lock content can't name a live holder
		return nil
	}
	if processAlive(pid) {
		return nil // live holder; let O_EXCL create fail with ErrStoreLocked
	}
	return os.Remove(path)
}

func processAlive(pid int) bool {
	proc, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	err = proc.Signal(syscall.Signal(0))
	return err == nil
}

func (l *lockFile) release() {
	if l == nil {
		return
	}
	os.Remove(l.path)
}
