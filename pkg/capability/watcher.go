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
package capability

import (
	"fmt"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/teradata-labs/remlc/internal/log"
)

// WatchEvent is a filesystem change surfaced by a WatcherHandle, shaped for
// consumers that only care about "something under this path changed" (the
// cmd/remlc watch subcommand's re-lowering trigger).
type WatchEvent struct {
	Path string
	Op   string
}

// WatcherHandle backs the fs.watcher.native / fs.watcher.recursive
// capabilities with a real fsnotify watch. It is only constructed once
// the registry has verified the caller is entitled to one of those
// capabilities — the capability gates access, the watcher performs it.
type WatcherHandle struct {
	watcher *fsnotify.Watcher
	events  chan WatchEvent
	done    chan struct{}
}

// NewWatcher opens a native OS filesystem watcher on path.
func NewWatcher(path string) (*WatcherHandle, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("capability: open watcher: %w", err)
	}
	if err := w.Add(path); err != nil {
		_ = w.Close()
		return nil, fmt.Errorf("capability: watch %q: %w", path, err)
	}
	h := &WatcherHandle{
		watcher: w,
		events:  make(chan WatchEvent, 16),
		done:    make(chan struct{}),
	}
	go h.pump()
	return h, nil
}

func (h *WatcherHandle) pump() {
	defer close(h.events)
	for {
		select {
		case ev, ok := <-h.watcher.Events:
			if !ok {
				return
			}
			select {
			case h.events <- WatchEvent{Path: ev.Name, Op: ev.Op.String()}:
			case <-h.done:
				return
			}
		case err, ok := <-h.watcher.Errors:
			if !ok {
				return
			}
			log.Warn("watcher error", zap.Error(err))
		case <-h.done:
			return
		}
	}
}

// Events returns the channel of filesystem change notifications. The
// channel is closed once Close is called and the underlying watcher
// drains.
func (h *WatcherHandle) Events() <-chan WatchEvent {
	return h.events
}

// Close stops the watcher and releases the OS handle.
func (h *WatcherHandle) Close() error {
	close(h.done)
	return h.watcher.Close()
}
