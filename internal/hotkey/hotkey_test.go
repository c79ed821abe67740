// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.
package hotkey

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/rapidaai/voicemirror/pkg/commons"
)

func testLogger() commons.Logger {
	return commons.NewLogger(commons.Config{Level: "debug", Console: true})
}

func drainEvent(t *testing.T, m *Manager) Event {
	t.Helper()
	select {
	case ev := <-m.Events():
		return ev
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for hotkey event")
		return Event{}
	}
}

func requireNoEvent(t *testing.T, m *Manager) {
	t.Helper()
	select {
	case ev := <-m.Events():
		t.Fatalf("unexpected event: %+v", ev)
	case <-time.After(100 * time.Millisecond):
	}
}

func startManager(t *testing.T, backend *SyntheticBackend) (*Manager, context.CancelFunc) {
	t.Helper()
	m := New(backend, testLogger())
	ctx, cancel := context.WithCancel(context.Background())
	go func() { _ = m.Run(ctx) }()
	// let Run reach backend.Start before the test injects events.
	time.Sleep(10 * time.Millisecond)
	return m, cancel
}

func TestManager_PressThenReleaseEmitsBothTransitions(t *testing.T) {
	backend := NewSyntheticBackend()
	m, cancel := startManager(t, backend)
	defer cancel()

	require.NoError(t, m.SetBinding(SlotPTT, Binding{Kind: KindKeyboard, Code: 0x20}))
	require.True(t, backend.IsSuppressed(0x20))

	backend.Inject(RawEvent{Kind: KindKeyboard, Code: 0x20, Pressed: true})
	press := drainEvent(t, m)
	require.Equal(t, Event{Slot: SlotPTT, Type: EventPress}, press)

	backend.Inject(RawEvent{Kind: KindKeyboard, Code: 0x20, Pressed: false})
	release := drainEvent(t, m)
	require.Equal(t, Event{Slot: SlotPTT, Type: EventRelease}, release)
}

func TestManager_AutoRepeatPressesAreSwallowed(t *testing.T) {
	backend := NewSyntheticBackend()
	m, cancel := startManager(t, backend)
	defer cancel()

	require.NoError(t, m.SetBinding(SlotPTT, Binding{Kind: KindKeyboard, Code: 0x20}))

	backend.Inject(RawEvent{Kind: KindKeyboard, Code: 0x20, Pressed: true})
	drainEvent(t, m)

	// OS auto-repeat: the key is still down, more "pressed" events arrive.
	backend.Inject(RawEvent{Kind: KindKeyboard, Code: 0x20, Pressed: true})
	backend.Inject(RawEvent{Kind: KindKeyboard, Code: 0x20, Pressed: true})
	requireNoEvent(t, m)
}

func TestManager_ModifierHeldIgnoresTransition(t *testing.T) {
	backend := NewSyntheticBackend()
	m, cancel := startManager(t, backend)
	defer cancel()

	require.NoError(t, m.SetBinding(SlotPTT, Binding{Kind: KindKeyboard, Code: 0x20}))

	backend.Inject(RawEvent{Kind: KindKeyboard, Code: 0x20, Pressed: true, Modifiers: ModCtrl})
	requireNoEvent(t, m)
}

func TestManager_UnboundCodeIsIgnored(t *testing.T) {
	backend := NewSyntheticBackend()
	m, cancel := startManager(t, backend)
	defer cancel()

	require.NoError(t, m.SetBinding(SlotPTT, Binding{Kind: KindKeyboard, Code: 0x20}))

	backend.Inject(RawEvent{Kind: KindKeyboard, Code: 0x41, Pressed: true})
	requireNoEvent(t, m)
}

func TestManager_MouseBindingsAreNeverSuppressed(t *testing.T) {
	backend := NewSyntheticBackend()
	m, cancel := startManager(t, backend)
	defer cancel()

	require.NoError(t, m.SetBinding(SlotDictation, Binding{Kind: KindMouse, Code: 3}))
	require.False(t, backend.IsSuppressed(3))

	backend.Inject(RawEvent{Kind: KindMouse, Code: 3, Pressed: true})
	press := drainEvent(t, m)
	require.Equal(t, Event{Slot: SlotDictation, Type: EventPress}, press)
}

func TestManager_RebindingClearsDebounceState(t *testing.T) {
	backend := NewSyntheticBackend()
	m, cancel := startManager(t, backend)
	defer cancel()

	require.NoError(t, m.SetBinding(SlotPTT, Binding{Kind: KindKeyboard, Code: 0x20}))
	backend.Inject(RawEvent{Kind: KindKeyboard, Code: 0x20, Pressed: true})
	drainEvent(t, m)

	// Rebinding to a different code drops suppression for the old one and
	// resets debounce state for the slot.
	require.NoError(t, m.SetBinding(SlotPTT, Binding{Kind: KindKeyboard, Code: 0x41}))
	require.False(t, backend.IsSuppressed(0x20))
	require.True(t, backend.IsSuppressed(0x41))

	backend.Inject(RawEvent{Kind: KindKeyboard, Code: 0x41, Pressed: true})
	press := drainEvent(t, m)
	require.Equal(t, Event{Slot: SlotPTT, Type: EventPress}, press)
}
