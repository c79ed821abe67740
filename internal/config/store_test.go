// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.
package config

import (
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/rapidaai/voicemirror/pkg/commons"
)

func testLogger() commons.Logger {
	return commons.NewLogger(commons.Config{Level: "debug", Console: true})
}

func TestNewStore_SeedsDefaultsWhenMissing(t *testing.T) {
	dir := t.TempDir()
	store, err := NewStore(dir, testLogger())
	require.NoError(t, err)

	snap := store.Snapshot()
	require.Equal(t, "push_to_talk", snap.Voice.Mode)
	require.Equal(t, 15, snap.Behavior.AutoUnloadMinutes)
}

func TestStore_PatchDeepMergeRoundTrip(t *testing.T) {
	dir := t.TempDir()
	store, err := NewStore(dir, testLogger())
	require.NoError(t, err)

	before := store.Snapshot()

	patch := []byte(`{"voice":{"tts_voice":"aria"},"behavior":{"auto_unload_minutes":20}}`)
	after, err := store.Patch(patch)
	require.NoError(t, err)

	require.Equal(t, "aria", after.Voice.TTSVoice)
	require.Equal(t, 20, after.Behavior.AutoUnloadMinutes)
	// Untouched sections are preserved by the deep merge.
	require.Equal(t, before.Voice.Mode, after.Voice.Mode)
	require.Equal(t, before.Voice.SampleRateHz, after.Voice.SampleRateHz)

	// Round-trip property (spec.md §8): snapshot -> deep_merge -> serialize
	// -> parse -> snapshot yields an equal config.
	persisted := store.Snapshot()
	raw, err := json.Marshal(persisted)
	require.NoError(t, err)
	var reloaded Config
	require.NoError(t, json.Unmarshal(raw, &reloaded))
	require.Equal(t, persisted, reloaded)

	// File was written atomically and can be reloaded by a fresh store.
	reopened, err := NewStore(dir, testLogger())
	require.NoError(t, err)
	require.Equal(t, after.Voice.TTSVoice, reopened.Snapshot().Voice.TTSVoice)
}

func TestStore_PatchRejectsInvalidValue(t *testing.T) {
	dir := t.TempDir()
	store, err := NewStore(dir, testLogger())
	require.NoError(t, err)
	before := store.Snapshot()

	_, err = store.Patch([]byte(`{"voice":{"mode":"not_a_real_mode"}}`))
	require.Error(t, err)

	// Store left unchanged on failed patch.
	require.Equal(t, before, store.Snapshot())
}

func TestStore_PatchRejectsUnknownKey(t *testing.T) {
	dir := t.TempDir()
	store, err := NewStore(dir, testLogger())
	require.NoError(t, err)

	_, err = store.Patch([]byte(`{"voice":{"not_a_real_field":true}}`))
	require.Error(t, err)
}

func TestAtomicWriteJSON_WritesValidFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "config.json")
	require.NoError(t, atomicWriteJSON(path, Defaults()))

	store, err := NewStore(filepath.Dir(path), testLogger())
	require.NoError(t, err)
	require.Equal(t, Defaults().Version, store.Snapshot().Version)
}

func TestLoadProcessEnv_Defaults(t *testing.T) {
	env := LoadProcessEnv()
	require.NotEmpty(t, env.ConfigDir)
	require.NotEmpty(t, env.DataDir)
}
