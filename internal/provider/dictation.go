// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.
package provider

import (
	"context"
)

// dictationProvider is the no-op variant of Provider (spec.md §3:
// "Dictation" is one of the three Provider kinds). It exists so the
// manager always has a provider to hold when the user only wants raw
// speech-to-text delivered to the inbox, with no AI backend consuming it.
type dictationProvider struct {
	id     string
	events chan Event
}

// NewDictationProvider returns a provider that does nothing but stay
// "running": Send is a no-op, and it never emits anything beyond Ready.
func NewDictationProvider(id string) Provider {
	return &dictationProvider{id: id, events: make(chan Event, 1)}
}

func (d *dictationProvider) ID() string          { return d.id }
func (d *dictationProvider) Kind() Kind          { return KindDictation }
func (d *dictationProvider) DisplayName() string { return "Dictation (no AI backend)" }

func (d *dictationProvider) Start(ctx context.Context) error {
	d.events <- Event{Type: EventReady}
	return nil
}

func (d *dictationProvider) Stop(ctx context.Context) error {
	return nil
}

func (d *dictationProvider) Interrupt(ctx context.Context) error { return nil }

func (d *dictationProvider) Send(ctx context.Context, text string) error {
	// Dictation has nowhere to route text; this is intentionally a no-op.
	return nil
}

func (d *dictationProvider) Events() <-chan Event { return d.events }

func (d *dictationProvider) Resize(cols, rows uint16) error { return nil }
