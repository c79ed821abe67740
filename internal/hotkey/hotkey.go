// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

// Package hotkey implements the global push-to-talk / dictation key hook
// (spec.md §4.7): "a background thread installs OS-level keyboard + mouse
// hooks. Bindings are stored in two atomic slots (PTT, Dictation), each
// carrying (type ∈ {none, keyboard, mouse}, code)."
//
// No global keyboard/mouse hook library appears anywhere in the retrieved
// corpus (the teacher and its siblings are backend services; none installs
// an OS input hook) — Backend is the grounded boundary here, the same
// "stdlib-only interface, real backend deferred to a build tag" shape
// internal/voice/capture uses for its Device interface.
package hotkey

import (
	"context"
	"sync"
	"time"

	"github.com/rapidaai/voicemirror/pkg/commons"
	"github.com/rapidaai/voicemirror/pkg/utils"
)

// BindingKind discriminates what a slot is bound to.
type BindingKind string

const (
	KindNone     BindingKind = "none"
	KindKeyboard BindingKind = "keyboard"
	KindMouse    BindingKind = "mouse"
)

// Slot names one of the two binding slots spec.md §4.7 defines.
type Slot string

const (
	SlotPTT       Slot = "ptt"
	SlotDictation Slot = "dictation"
)

// Modifier is a bitmask of held modifier keys. Any modifier held while a
// binding's key transitions causes the hook to ignore the event entirely
// (spec.md §4.7 rule 1).
type Modifier uint8

const (
	ModCtrl Modifier = 1 << iota
	ModAlt
	ModShift
	ModWin
)

func (m Modifier) any() bool { return m != 0 }

// Binding is one slot's current assignment. A zero-value Binding (Kind ==
// KindNone) matches nothing.
type Binding struct {
	Kind BindingKind
	Code int
}

func (b Binding) matches(kind BindingKind, code int) bool {
	return b.Kind == kind && b.Code == code
}

// EventType distinguishes a key-down transition from a key-up transition.
type EventType string

const (
	EventPress   EventType = "press"
	EventRelease EventType = "release"
)

// Event is one debounced, modifier-filtered binding transition delivered to
// the UI host.
type Event struct {
	Slot Slot
	Type EventType
}

// RawEvent is what a Backend reports for every physical key/button
// transition, before slot matching, modifier filtering, or debounce.
type RawEvent struct {
	Kind      BindingKind
	Code      int
	Pressed   bool
	Modifiers Modifier
}

// Backend installs the actual OS-level hook and reports raw transitions on
// the channel passed to Start. It also carries out OS-level suppression of
// configured keyboard bindings (spec.md §4.7 rule 3); mouse bindings are
// never suppressed.
type Backend interface {
	Start(ctx context.Context, raw chan<- RawEvent) error
	// Suppress enables or disables OS-level suppression for a specific
	// keyboard code. Called only for KindKeyboard bindings.
	Suppress(code int, suppress bool) error
	Close() error
}

const heartbeatInterval = 60 * time.Second

// Manager owns the two binding slots, applies modifier-ignore and
// press/release debounce, and forwards the resulting Events to callers.
type Manager struct {
	logger  commons.Logger
	backend Backend

	mu       sync.RWMutex
	bindings map[Slot]Binding
	down     map[Slot]bool // debounce state: is the slot currently considered held

	events chan Event
}

// New constructs a Manager around backend. Call Run to start processing.
func New(backend Backend, logger commons.Logger) *Manager {
	return &Manager{
		logger:   logger,
		backend:  backend,
		bindings: make(map[Slot]Binding),
		down:     make(map[Slot]bool),
		events:   make(chan Event, 16),
	}
}

// Events delivers debounced press/release transitions.
func (m *Manager) Events() <-chan Event {
	return m.events
}

// SetBinding assigns slot's binding, clearing its debounce state and
// updating OS-level suppression (keyboard only; mouse bindings are never
// suppressed per spec.md §4.7).
func (m *Manager) SetBinding(slot Slot, b Binding) error {
	m.mu.Lock()
	prev, hadPrev := m.bindings[slot]
	m.bindings[slot] = b
	m.down[slot] = false
	m.mu.Unlock()

	if hadPrev && prev.Kind == KindKeyboard && !slotStillBound(m, prev) {
		if err := m.backend.Suppress(prev.Code, false); err != nil {
			return err
		}
	}
	if b.Kind == KindKeyboard {
		if err := m.backend.Suppress(b.Code, true); err != nil {
			return err
		}
	}
	return nil
}

// slotStillBound reports whether any remaining slot still holds the same
// keyboard code as prev, so suppression for a shared code is not dropped
// out from under the other slot.
func slotStillBound(m *Manager, prev Binding) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, b := range m.bindings {
		if b.Kind == KindKeyboard && b.Code == prev.Code {
			return true
		}
	}
	return false
}

// Binding returns slot's current assignment.
func (m *Manager) Binding(slot Slot) Binding {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.bindings[slot]
}

// Run installs the backend hook and processes raw transitions until ctx is
// cancelled. It also drives the 60s heartbeat log (spec.md §4.7).
func (m *Manager) Run(ctx context.Context) error {
	raw := make(chan RawEvent, 64)
	if err := m.backend.Start(ctx, raw); err != nil {
		return err
	}
	defer m.backend.Close()

	utils.Go(ctx, func() { m.heartbeat(ctx) })

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-raw:
			if !ok {
				return nil
			}
			m.handleRaw(ev)
		}
	}
}

func (m *Manager) handleRaw(raw RawEvent) {
	if raw.Modifiers.any() {
		return // rule 1: ignore while any modifier is held
	}

	slot, ok := m.matchSlot(raw.Kind, raw.Code)
	if !ok {
		return
	}

	m.mu.Lock()
	wasDown := m.down[slot]
	if raw.Pressed == wasDown {
		m.mu.Unlock()
		return // rule 2: only the initial press/release transition is reported
	}
	m.down[slot] = raw.Pressed
	m.mu.Unlock()

	evType := EventRelease
	if raw.Pressed {
		evType = EventPress
	}
	m.emit(Event{Slot: slot, Type: evType})
}

func (m *Manager) matchSlot(kind BindingKind, code int) (Slot, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for slot, b := range m.bindings {
		if b.matches(kind, code) {
			return slot, true
		}
	}
	return "", false
}

func (m *Manager) emit(ev Event) {
	select {
	case m.events <- ev:
	default:
		m.logger.Warnf("hotkey: event queue full, dropping %s transition for %s", ev.Type, ev.Slot)
	}
}

func (m *Manager) heartbeat(ctx context.Context) {
	ticker := time.NewTicker(heartbeatInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.logger.Infof("hotkey: hook alive, ptt=%s dictation=%s", m.Binding(SlotPTT).Kind, m.Binding(SlotDictation).Kind)
		}
	}
}
