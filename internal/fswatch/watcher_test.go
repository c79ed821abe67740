// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.
package fswatch

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/rapidaai/voicemirror/pkg/commons"
)

func testLogger() commons.Logger {
	return commons.NewLogger(commons.Config{Level: "debug", Console: true})
}

func drainEvent(t *testing.T, w *Watcher) Event {
	t.Helper()
	select {
	case ev := <-w.Events():
		return ev
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for fswatch event")
		return Event{}
	}
}

func TestWatcher_FileChangeEmitsFileAndTreeEvents(t *testing.T) {
	dir := t.TempDir()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	w, err := New(ctx, dir, testLogger())
	require.NoError(t, err)
	defer w.Close()

	target := filepath.Join(dir, "main.go")
	require.NoError(t, os.WriteFile(target, []byte("package main"), 0o644))

	first := drainEvent(t, w)
	second := drainEvent(t, w)

	kinds := map[EventKind]Event{first.Kind: first, second.Kind: second}
	require.Contains(t, kinds, EventFileChanged)
	require.Contains(t, kinds, EventTreeChanged)
	require.Contains(t, kinds[EventFileChanged].Paths, target)
}

func TestWatcher_GitIndexChangeEmitsGitEvent(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(dir, ".git"), 0o755))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	w, err := New(ctx, dir, testLogger())
	require.NoError(t, err)
	defer w.Close()

	require.NoError(t, os.WriteFile(filepath.Join(dir, ".git", "index"), []byte("x"), 0o644))

	ev := drainEvent(t, w)
	require.Equal(t, EventGitChanged, ev.Kind)
}

func TestWatcher_IgnoresNodeModules(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "node_modules", "pkg"), 0o755))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	w, err := New(ctx, dir, testLogger())
	require.NoError(t, err)
	defer w.Close()

	require.NoError(t, os.WriteFile(filepath.Join(dir, "node_modules", "pkg", "index.js"), []byte("x"), 0o644))

	// A genuinely watched file proves the watcher is still alive; no event
	// for node_modules should have been queued ahead of it.
	require.NoError(t, os.WriteFile(filepath.Join(dir, "real.go"), []byte("package main"), 0o644))

	seenFileChanged := false
	deadline := time.After(2 * time.Second)
	for !seenFileChanged {
		select {
		case ev := <-w.Events():
			if ev.Kind == EventFileChanged {
				seenFileChanged = true
				for _, p := range ev.Paths {
					require.NotContains(t, p, "node_modules")
				}
			}
		case <-deadline:
			t.Fatal("timed out waiting for real.go change")
		}
	}
}

func TestGitignoreMatcher_MatchesPatterns(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".gitignore"), []byte("*.log\nbuild/\n"), 0o644))

	m := loadGitignore(dir, testLogger())
	require.True(t, m.matches("debug.log"))
	require.True(t, m.matches("build/output.bin"))
	require.False(t, m.matches("main.go"))
}
