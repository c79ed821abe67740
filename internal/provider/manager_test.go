// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.
package provider

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/rapidaai/voicemirror/pkg/commons"
)

type fakeProvider struct {
	id       string
	events   chan Event
	mu       sync.Mutex
	started  bool
	stopped  bool
	interrupted int
}

func newFakeProvider(id string) *fakeProvider {
	return &fakeProvider{id: id, events: make(chan Event, 16)}
}

func (f *fakeProvider) ID() string          { return f.id }
func (f *fakeProvider) Kind() Kind          { return KindAPI }
func (f *fakeProvider) DisplayName() string { return f.id }

func (f *fakeProvider) Start(ctx context.Context) error {
	f.mu.Lock()
	f.started = true
	f.mu.Unlock()
	f.events <- Event{Type: EventReady}
	return nil
}

func (f *fakeProvider) Stop(ctx context.Context) error {
	f.mu.Lock()
	f.stopped = true
	f.mu.Unlock()
	return nil
}

func (f *fakeProvider) Interrupt(ctx context.Context) error {
	f.mu.Lock()
	f.interrupted++
	f.mu.Unlock()
	return nil
}

func (f *fakeProvider) Send(ctx context.Context, text string) error {
	f.events <- Event{Type: EventResponse, FullText: "echo:" + text}
	return nil
}

func (f *fakeProvider) Events() <-chan Event          { return f.events }
func (f *fakeProvider) Resize(cols, rows uint16) error { return nil }

func testLogger() commons.Logger {
	return commons.NewLogger(commons.Config{Level: "debug", Console: true})
}

func TestManager_StartRejectsSecondConcurrentProvider(t *testing.T) {
	m := NewManager(testLogger())
	ctx := context.Background()

	require.NoError(t, m.Start(ctx, newFakeProvider("a")))
	err := m.Start(ctx, newFakeProvider("b"))
	require.Error(t, err)

	id, _, running := m.Active()
	require.True(t, running)
	require.Equal(t, "a", id)
}

func TestManager_StopBumpsGeneration(t *testing.T) {
	m := NewManager(testLogger())
	ctx := context.Background()

	before := m.Generation()
	require.NoError(t, m.Start(ctx, newFakeProvider("a")))
	require.NoError(t, m.Stop(ctx))
	after := m.Generation()

	require.Greater(t, after, before)
	_, _, running := m.Active()
	require.False(t, running)
}

func TestManager_SwitchReplacesActiveProvider(t *testing.T) {
	m := NewManager(testLogger())
	ctx := context.Background()

	first := newFakeProvider("a")
	require.NoError(t, m.Start(ctx, first))

	second := newFakeProvider("b")
	require.NoError(t, m.Switch(ctx, second))

	id, _, running := m.Active()
	require.True(t, running)
	require.Equal(t, "b", id)

	first.mu.Lock()
	stopped := first.stopped
	first.mu.Unlock()
	require.True(t, stopped)
}

func TestManager_EventsAreStampedWithGeneration(t *testing.T) {
	m := NewManager(testLogger())
	ctx := context.Background()
	p := newFakeProvider("a")
	require.NoError(t, m.Start(ctx, p))

	events := m.TakeEvents()
	select {
	case ev := <-events:
		require.Equal(t, EventReady, ev.Type)
		require.Equal(t, m.Generation(), ev.Generation)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for ready event")
	}
}

func TestManager_TakeEventsSecondCallReturnsNil(t *testing.T) {
	m := NewManager(testLogger())
	require.NotNil(t, m.TakeEvents())
	require.Nil(t, m.TakeEvents())
}

func TestManager_InterruptNoActiveProviderIsNoop(t *testing.T) {
	m := NewManager(testLogger())
	require.NoError(t, m.Interrupt(context.Background()))
}

func TestManager_SendWithNoActiveProviderErrors(t *testing.T) {
	m := NewManager(testLogger())
	err := m.Send(context.Background(), "hello")
	require.Error(t, err)
}
