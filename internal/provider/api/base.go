// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.
package api

import (
	"context"
	"sync"

	"github.com/rapidaai/voicemirror/internal/provider"
	"github.com/rapidaai/voicemirror/pkg/commons"
)

// Spec configures any API provider: model, base URL, optional key and the
// token budget its trimmer enforces (spec.md §3 "API provider").
type Spec struct {
	ID              string
	DisplayName     string
	Model           string
	BaseURL         string
	APIKey          string
	SystemPrompt    string
	HistoryMaxTokens int
}

// base holds the state every vendor backend shares: history, the event
// channel, and the in-flight request's cancel func. Grounded on the
// teacher's websocketExecutor struct (logger/history/mu/writeMu/done),
// generalized from a single websocket connection to "whatever in-flight
// HTTP/streaming call is running right now".
type base struct {
	spec    Spec
	logger  commons.Logger
	trimmer *trimmer

	mu      sync.Mutex
	history []provider.Message
	cancel  context.CancelFunc

	events chan provider.Event
}

func newBase(spec Spec, logger commons.Logger) base {
	b := base{
		spec:    spec,
		logger:  logger,
		trimmer: newTrimmer(spec.HistoryMaxTokens),
		events:  make(chan provider.Event, 256),
	}
	if spec.SystemPrompt != "" {
		b.history = append(b.history, provider.Message{Role: "system", Content: spec.SystemPrompt})
	}
	return b
}

func (b *base) ID() string          { return b.spec.ID }
func (b *base) Kind() provider.Kind { return provider.KindAPI }
func (b *base) DisplayName() string { return b.spec.DisplayName }

func (b *base) Events() <-chan provider.Event { return b.events }

func (b *base) Resize(cols, rows uint16) error { return nil }

func (b *base) emit(ev provider.Event) {
	select {
	case b.events <- ev:
	default:
		b.logger.Warnf("api provider %s: event channel full, dropping %s event", b.spec.ID, ev.Type)
	}
}

// Start is a no-op beyond emitting Ready: an API provider has no process
// to spawn, only an HTTP client to hold.
func (b *base) Start(ctx context.Context) error {
	b.emit(provider.Event{Type: provider.EventReady})
	return nil
}

// Stop cancels any in-flight request and clears history, mirroring the
// teacher's Close (reset history, release the connection).
func (b *base) Stop(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.cancel != nil {
		b.cancel()
		b.cancel = nil
	}
	b.history = nil
	if b.spec.SystemPrompt != "" {
		b.history = append(b.history, provider.Message{Role: "system", Content: b.spec.SystemPrompt})
	}
	return nil
}

// Interrupt cancels the in-flight request, if any. Idempotent.
func (b *base) Interrupt(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.cancel != nil {
		b.cancel()
		b.cancel = nil
	}
	return nil
}

// beginRequest records a fresh user turn, derives a cancellable context for
// the call about to be made, and returns the trimmed history to send.
func (b *base) beginRequest(ctx context.Context, userText string) (context.Context, []provider.Message) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.history = append(b.history, provider.Message{Role: "user", Content: userText})
	b.history = b.trimmer.trim(b.history)

	callCtx, cancel := context.WithCancel(ctx)
	b.cancel = cancel

	out := make([]provider.Message, len(b.history))
	copy(out, b.history)
	return callCtx, out
}

// endRequest appends the assistant's full reply to history and clears the
// cancel handle once the call completes (successfully or not).
func (b *base) endRequest(fullText string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.cancel = nil
	if fullText != "" {
		b.history = append(b.history, provider.Message{Role: "assistant", Content: fullText})
	}
}
