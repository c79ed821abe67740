// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.
package inbox

import (
	"context"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/rapidaai/voicemirror/pkg/commons"
)

// DefaultDebounce is the Open Question decision recorded in DESIGN.md:
// spec.md §9 notes "~100ms, not load-tested"; this module fixes it at
// 120ms as a named constant rather than an inline magic number.
const DefaultDebounce = 120 * time.Millisecond

// maxSeenIDs bounds the watcher's dedup set (spec.md §4.6 "bounded seen-id
// set (≤ 200)").
const maxSeenIDs = 200

// Kind classifies an emitted watcher event by sender prefix (spec.md §4.6
// "voice-* or literal claude -> AI message; anything else -> user message").
type Kind string

const (
	KindAIMessage   Kind = "ai-message"
	KindUserMessage Kind = "user-message"
)

// NewMessageEvent is emitted for every inbox message the watcher has not
// seen before.
type NewMessageEvent struct {
	Message Message
	Kind    Kind
}

// Watcher follows the inbox file with fsnotify, debounces bursts of
// writes, and emits one NewMessageEvent per message id not already in its
// seen set — seeded from the file's contents at startup so historical
// messages are not re-emitted (spec.md §4.6).
type Watcher struct {
	store    *Store
	logger   commons.Logger
	debounce time.Duration
	events   chan NewMessageEvent
	seen     []string // ordered, bounded ring of seen message ids
}

// NewWatcher seeds the seen-id set from store's current contents and
// returns a Watcher ready for Run.
func NewWatcher(store *Store, logger commons.Logger, debounce time.Duration) (*Watcher, error) {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	w := &Watcher{
		store:    store,
		logger:   logger,
		debounce: debounce,
		events:   make(chan NewMessageEvent, 64),
	}

	existing, err := store.All()
	if err != nil {
		return nil, err
	}
	for _, m := range existing {
		w.markSeen(m.ID)
	}
	return w, nil
}

// Events returns the channel new-message events are delivered on.
func (w *Watcher) Events() <-chan NewMessageEvent { return w.events }

// Run blocks, watching the inbox file until ctx is cancelled. Intended to
// be started with utils.Go from the host's setup code.
func (w *Watcher) Run(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer fw.Close()

	if err := fw.Add(w.store.Path()); err != nil {
		return err
	}

	var debounceTimer *time.Timer
	pending := false

	fire := func() {
		pending = false
		w.diff()
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			if !pending {
				pending = true
				debounceTimer = time.AfterFunc(w.debounce, fire)
			} else if debounceTimer != nil {
				debounceTimer.Reset(w.debounce)
			}
		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warnf("inbox watcher: fsnotify error: %v", err)
		}
	}
}

// diff re-reads the inbox and emits an event for every message whose id is
// not already in the seen set.
func (w *Watcher) diff() {
	msgs, err := w.store.All()
	if err != nil {
		w.logger.Warnf("inbox watcher: re-read failed: %v", err)
		return
	}
	for _, m := range msgs {
		if w.hasSeen(m.ID) {
			continue
		}
		w.markSeen(m.ID)
		select {
		case w.events <- NewMessageEvent{Message: m, Kind: classify(m.From)}:
		default:
			w.logger.Warnf("inbox watcher: event channel full, dropping %s", m.ID)
		}
	}
}

func classify(from string) Kind {
	lower := strings.ToLower(from)
	if lower == "claude" || strings.HasPrefix(lower, "voice-") {
		return KindAIMessage
	}
	return KindUserMessage
}

func (w *Watcher) hasSeen(id string) bool {
	for _, s := range w.seen {
		if s == id {
			return true
		}
	}
	return false
}

func (w *Watcher) markSeen(id string) {
	w.seen = append(w.seen, id)
	if len(w.seen) > maxSeenIDs {
		w.seen = w.seen[len(w.seen)-maxSeenIDs:]
	}
}
