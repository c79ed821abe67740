// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

// Package fswatch implements the project-tree watcher (spec.md §4.6):
// gitignore-filtered, debounced change coalescing over a project root,
// skipping high-churn directory segments, with dedicated recognizers for
// .git/index and .gitignore. Shares its coalesce-then-classify shape with
// internal/inbox's watcher, both grounded on spec.md §4.6's "shared
// pattern" paragraph.
package fswatch

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/rapidaai/voicemirror/pkg/commons"
	"github.com/rapidaai/voicemirror/pkg/utils"
)

// debounceWindow coalesces bursts of fs events into one emission (spec.md
// §4.6 "debounces (~100-150 ms)").
const debounceWindow = 130 * time.Millisecond

// skipSegments are high-churn directory path components never descended
// into or reported on (spec.md §4.6): node_modules entirely, but only the
// .git/objects and target/{debug,release} subtrees — .git/index itself must
// stay watched to drive fs-git-changed.
var skipSegments = map[string]bool{
	"node_modules": true,
}

var skipSubpaths = map[string]bool{
	".git/objects":   true,
	"target/debug":   true,
	"target/release": true,
}

// EventKind discriminates the three event families the watcher emits
// (spec.md §4.6).
type EventKind string

const (
	EventTreeChanged EventKind = "fs-tree-changed"
	EventFileChanged EventKind = "fs-file-changed"
	EventGitChanged  EventKind = "fs-git-changed"
)

// Event is one coalesced, classified change ready for delivery to the UI
// host.
type Event struct {
	Kind  EventKind
	Paths []string
}

// Watcher watches root for changes, debounces bursts, classifies them, and
// rebuilds its gitignore matcher whenever root/.gitignore changes.
type Watcher struct {
	root   string
	logger commons.Logger

	fsw *fsnotify.Watcher

	mu      sync.Mutex
	matcher *gitignoreMatcher

	events chan Event
}

// New starts watching root recursively (skipping high-churn segments) and
// returns a Watcher whose Events channel delivers coalesced changes.
func New(ctx context.Context, root string, logger commons.Logger) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	w := &Watcher{
		root:    root,
		logger:  logger,
		fsw:     fsw,
		matcher: loadGitignore(root, logger),
		events:  make(chan Event, 64),
	}

	if err := w.addTree(root); err != nil {
		fsw.Close()
		return nil, err
	}

	utils.Go(ctx, func() { w.loop(ctx) })
	return w, nil
}

// Events delivers coalesced, classified changes.
func (w *Watcher) Events() <-chan Event {
	return w.events
}

// Close stops the underlying fsnotify watcher.
func (w *Watcher) Close() error {
	return w.fsw.Close()
}

func (w *Watcher) addTree(root string) error {
	return filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil // best-effort; a transient stat error should not abort the whole walk
		}
		if !d.IsDir() {
			return nil
		}
		if path != root && w.shouldSkipDirPath(path) {
			return filepath.SkipDir
		}
		return w.fsw.Add(path)
	})
}

// shouldSkipDirPath reports whether path (root/.. included) is a directory
// never descended into.
func (w *Watcher) shouldSkipDirPath(path string) bool {
	rel, err := filepath.Rel(w.root, path)
	if err != nil {
		rel = path
	}
	return shouldSkipRel(filepath.ToSlash(rel))
}

// shouldSkipRel reports whether rel (root-relative, slash-separated) names
// a high-churn segment or subpath (spec.md §4.6).
func shouldSkipRel(rel string) bool {
	if skipSubpaths[rel] {
		return true
	}
	for sub := range skipSubpaths {
		if strings.HasPrefix(rel, sub+"/") {
			return true
		}
	}
	for _, seg := range strings.Split(rel, "/") {
		if skipSegments[seg] {
			return true
		}
	}
	return false
}

func (w *Watcher) loop(ctx context.Context) {
	pending := make(map[string]bool)
	var timer *time.Timer
	var timerC <-chan time.Time

	flush := func() {
		if len(pending) == 0 {
			return
		}
		w.classifyAndEmit(pending)
		pending = make(map[string]bool)
	}

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if w.shouldIgnore(ev.Name) {
				continue
			}
			pending[ev.Name] = true
			if timer == nil {
				timer = time.NewTimer(debounceWindow)
				timerC = timer.C
			} else {
				timer.Reset(debounceWindow)
			}

			if ev.Op&(fsnotify.Create) != 0 {
				if info, err := os.Stat(ev.Name); err == nil && info.IsDir() && !w.shouldSkipDirPath(ev.Name) {
					_ = w.fsw.Add(ev.Name)
				}
			}
		case <-timerC:
			flush()
			timerC = nil
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.logger.Warnf("fswatch: watcher error: %v", err)
		}
	}
}

func (w *Watcher) shouldIgnore(path string) bool {
	rel, err := filepath.Rel(w.root, path)
	if err != nil {
		rel = path
	}
	rel = filepath.ToSlash(rel)

	if rel == ".gitignore" || rel == ".git/index" {
		return false // these two are never filtered — they drive reclassification
	}
	if shouldSkipRel(rel) {
		return true
	}

	w.mu.Lock()
	m := w.matcher
	w.mu.Unlock()
	return m.matches(rel)
}

// classifyAndEmit turns the debounced path set into the spec's three
// event families, rebuilding the gitignore matcher first if .gitignore was
// among the touched paths (spec.md §4.6).
func (w *Watcher) classifyAndEmit(pending map[string]bool) {
	var touchedGitignore, touchedGitIndex bool
	files := make([]string, 0, len(pending))

	for path := range pending {
		rel, err := filepath.Rel(w.root, path)
		if err != nil {
			rel = path
		}
		rel = filepath.ToSlash(rel)
		switch rel {
		case ".gitignore":
			touchedGitignore = true
		case ".git/index":
			touchedGitIndex = true
		default:
			files = append(files, path)
		}
	}

	if touchedGitignore {
		w.mu.Lock()
		w.matcher = loadGitignore(w.root, w.logger)
		w.mu.Unlock()
	}
	if touchedGitIndex {
		w.emit(Event{Kind: EventGitChanged, Paths: []string{filepath.Join(w.root, ".git", "index")}})
	}
	if len(files) > 0 {
		w.emit(Event{Kind: EventFileChanged, Paths: files})
		w.emit(Event{Kind: EventTreeChanged, Paths: dirsOf(files)})
	}
}

func dirsOf(paths []string) []string {
	seen := make(map[string]bool, len(paths))
	var dirs []string
	for _, p := range paths {
		d := filepath.Dir(p)
		if !seen[d] {
			seen[d] = true
			dirs = append(dirs, d)
		}
	}
	return dirs
}

func (w *Watcher) emit(ev Event) {
	select {
	case w.events <- ev:
	default:
		w.logger.Warnf("fswatch: event queue full, dropping %s event", ev.Kind)
	}
}
