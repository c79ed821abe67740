// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.
package memory

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/rapidaai/voicemirror/pkg/commons"
)

func testLogger() commons.Logger {
	return commons.NewLogger(commons.Config{Level: "debug", Console: true})
}

func TestStore_RememberSearchForget(t *testing.T) {
	dir := t.TempDir()
	s, err := NewStore(dir, testLogger())
	require.NoError(t, err)

	c, err := s.Remember("the launch deadline is March 5th", TierStable, "", "")
	require.NoError(t, err)

	results := s.Search("launch deadline", 0.1)
	require.NotEmpty(t, results)
	require.Equal(t, c.ID, results[0].Chunk.ID)

	removed, err := s.Forget(c.ID)
	require.NoError(t, err)
	require.True(t, removed)

	require.Empty(t, s.Search("launch deadline", 0.1))
}

func TestStore_ForgetBySubstring(t *testing.T) {
	dir := t.TempDir()
	s, err := NewStore(dir, testLogger())
	require.NoError(t, err)

	_, err = s.Remember("remember to water the plants", TierNotes, "", "")
	require.NoError(t, err)

	removed, err := s.Forget("water the plants")
	require.NoError(t, err)
	require.True(t, removed)
}

func TestStore_NotesExpireAndAreCleanedOnSearch(t *testing.T) {
	dir := t.TempDir()
	s, err := NewStore(dir, testLogger())
	require.NoError(t, err)

	restore := stubNow(t)
	defer restore()

	_, err = s.Remember("a transient note", TierNotes, "", "")
	require.NoError(t, err)

	advanceNow(25 * time.Hour)

	require.Empty(t, s.Search("transient note", 0.1))
}

func TestStore_CoreNeverExpires(t *testing.T) {
	dir := t.TempDir()
	s, err := NewStore(dir, testLogger())
	require.NoError(t, err)

	restore := stubNow(t)
	defer restore()

	_, err = s.Remember("core fact that never goes away", TierCore, "", "")
	require.NoError(t, err)

	advanceNow(365 * 24 * time.Hour)

	require.NotEmpty(t, s.Search("core fact", 0.1))
}

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
