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
package prefs

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/tenex-chat/tui-sub004/internal/tenexlog"
)

const watchDebounce = 200 * time.Millisecond

// Watcher reloads a Store's in-memory Document whenever preferences.json
// changes on disk, debouncing rapid-fire writes the way the teacher's
// pattern-library hot-reloader debounces editor autosaves.
type Watcher struct {
	fsw    *fsnotify.Watcher
	logger *zap.Logger

	stopCh chan struct{}
	doneCh chan struct{}

	debounceMu sync.Mutex
	timer      *time.Timer
}

// Watch starts watching s's backing file and invokes onChange with the
// freshly reloaded Document every time it changes externally. The
// returned Watcher must be closed to release the fsnotify handle.
func (s *Store) Watch(onChange func(Document)) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	dir := filepath.Dir(s.path)
	if err := fsw.Add(dir); err != nil {
		fsw.Close()
		return nil, err
	}

	w := &Watcher{
		fsw:    fsw,
		logger: tenexlog.Logger(),
		stopCh: make(chan struct{}),
		doneCh: make(chan struct{}),
	}
	go w.loop(s, onChange)
	return w, nil
}

func (w *Watcher) loop(s *Store, onChange func(Document)) {
	defer close(w.doneCh)
	for {
		select {
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if filepath.Clean(ev.Name) != filepath.Clean(s.path) {
				continue
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			w.debounce(func() { w.reload(s, onChange) })
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.logger.Warn("prefs: watcher error", zap.Error(err))
		case <-w.stopCh:
			return
		}
	}
}

func (w *Watcher) debounce(fn func()) {
	w.debounceMu.Lock()
	defer w.debounceMu.Unlock()
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(watchDebounce, fn)
}

func (w *Watcher) reload(s *Store, onChange func(Document)) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		w.logger.Warn("prefs: reload read failed", zap.Error(err))
		return
	}
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		w.logger.Warn("prefs: reload parse failed, keeping prior document", zap.Error(err))
		return
	}

	s.mu.Lock()
	s.doc = doc
	s.mu.Unlock()

	onChange(doc)
}

// Close stops the watcher and releases its fsnotify handle.
func (w *Watcher) Close() error {
	close(w.stopCh)
	<-w.doneCh
	w.debounceMu.Lock()
	if w.timer != nil {
		w.timer.Stop()
	}
	w.debounceMu.Unlock()
	return w.fsw.Close()
}
