// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.
package shell

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/rapidaai/voicemirror/pkg/commons"
)

func testLogger() commons.Logger {
	return commons.NewLogger(commons.Config{Level: "debug", Console: true})
}

func drainUntil(t *testing.T, rx <-chan Event, want EventType, id string) Event {
	t.Helper()
	deadline := time.After(5 * time.Second)
	for {
		select {
		case ev := <-rx:
			if ev.ID == id && ev.Type == want {
				return ev
			}
		case <-deadline:
			t.Fatalf("timed out waiting for %s event on %s", want, id)
		}
	}
}

func TestManager_SpawnSendInputAndKill(t *testing.T) {
	m := New(testLogger())
	rx := m.TakeEventRx()
	require.NotNil(t, rx)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	id, err := m.Spawn(ctx, 80, 24, t.TempDir())
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(id, "shell-"))

	require.NoError(t, m.SendInput(id, []byte("echo hi\n")))

	var sawOutput bool
	deadline := time.After(5 * time.Second)
	for !sawOutput {
		select {
		case ev := <-rx:
			if ev.ID == id && ev.Type == EventStdout && strings.Contains(ev.Text, "hi") {
				sawOutput = true
			}
		case <-deadline:
			t.Fatal("timed out waiting for echoed output")
		}
	}

	require.NoError(t, m.Kill(id))
	drainUntil(t, rx, EventExit, id)
}

func TestManager_TakeEventRxOnlyOnce(t *testing.T) {
	m := New(testLogger())
	first := m.TakeEventRx()
	require.NotNil(t, first)

	second := m.TakeEventRx()
	require.Nil(t, second)
}

func TestManager_ListReportsSpawnedSessions(t *testing.T) {
	m := New(testLogger())
	_ = m.TakeEventRx()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	id, err := m.Spawn(ctx, 100, 40, t.TempDir())
	require.NoError(t, err)

	infos := m.List()
	require.Len(t, infos, 1)
	require.Equal(t, id, infos[0].ID)
	require.Equal(t, uint16(100), infos[0].Cols)
	require.True(t, infos[0].Running)

	require.NoError(t, m.KillAll())
}

func TestManager_UnknownSessionOperationsError(t *testing.T) {
	m := New(testLogger())
	_ = m.TakeEventRx()

	require.Error(t, m.SendInput("shell-999", []byte("x")))
	require.Error(t, m.Resize("shell-999", 10, 10))
	require.Error(t, m.Kill("shell-999"))
}
