// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.
package inbox

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/rapidaai/voicemirror/pkg/commons"
)

func testLogger() commons.Logger {
	return commons.NewLogger(commons.Config{Level: "debug", Console: true})
}

func TestStore_AppendAndAll(t *testing.T) {
	dir := t.TempDir()
	s, err := NewStore(dir, testLogger())
	require.NoError(t, err)

	_, err = s.Append(Message{From: "alice", Message: "hi"})
	require.NoError(t, err)

	msgs, err := s.All()
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	require.Equal(t, "alice", msgs[0].From)
}

func TestStore_CapAt100EvictsOldest(t *testing.T) {
	dir := t.TempDir()
	s, err := NewStore(dir, testLogger())
	require.NoError(t, err)

	restore := stubNow(t)
	defer restore()

	for i := 0; i < 101; i++ {
		_, err := s.Append(Message{From: "bot", Message: "msg"})
		require.NoError(t, err)
		advanceNow(time.Second)
	}

	msgs, err := s.All()
	require.NoError(t, err)
	require.Len(t, msgs, MaxMessages)
}

func TestStore_EvictsMessagesOlderThan24h(t *testing.T) {
	dir := t.TempDir()
	s, err := NewStore(dir, testLogger())
	require.NoError(t, err)

	restore := stubNow(t)
	defer restore()

	_, err = s.Append(Message{From: "old", Message: "stale"})
	require.NoError(t, err)

	advanceNow(25 * time.Hour)

	_, err = s.Append(Message{From: "new", Message: "fresh"})
	require.NoError(t, err)

	msgs, err := s.All()
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	require.Equal(t, "new", msgs[0].From)
}

func TestStore_MarkRead(t *testing.T) {
	dir := t.TempDir()
	s, err := NewStore(dir, testLogger())
	require.NoError(t, err)

	m, err := s.Append(Message{From: "alice", Message: "hi"})
	require.NoError(t, err)

	require.NoError(t, s.MarkRead([]string{m.ID}, "bob"))

	msgs, err := s.All()
	require.NoError(t, err)
	require.Contains(t, msgs[0].ReadBy, "bob")
}

// stubNow replaces nowFunc with a controllable clock for deterministic
// boundary tests, restoring it on cleanup.
func stubNow(t *testing.T) func() {
	t.Helper()
	cur := time.Now()
	orig := nowFunc
	nowFunc = func() time.Time { return cur }
	return func() { nowFunc = orig }
}

func advanceNow(d time.Duration) {
	cur := nowFunc()
	next := cur.Add(d)
	nowFunc = func() time.Time { return next }
}
