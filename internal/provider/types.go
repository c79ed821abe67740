// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

// Package provider implements the provider orchestrator (spec.md §4.2):
// a swappable AI backend — CLI tool wrapped in a PTY, HTTP/streaming API
// model, or the no-op dictation provider — plus the manager that enforces
// at-most-one-running semantics and the generation counter that lets
// consumers discard events from a backend that has since stopped.
//
// The event/envelope shape is grounded on the teacher's
// internal/agent/executor/llm/internal/websocket WSMessageType tagged
// union: a single Kind discriminant plus a payload struct per kind,
// instead of an interface hierarchy (spec.md §9: "tagged variants are the
// correct shape ... avoid reaching for inheritance hierarchies").
package provider

import (
	"context"
	"time"
)

// Kind identifies which of {CLI, API, Dictation} a Provider is.
type Kind string

const (
	KindCLI       Kind = "cli"
	KindAPI       Kind = "api"
	KindDictation Kind = "dictation"
)

// EventType is the tagged-union discriminant for Event, mirroring
// WSMessageType's string-constant style.
type EventType string

const (
	EventOutput      EventType = "output"       // raw PTY bytes
	EventExit        EventType = "exit"         // child process exited
	EventReady       EventType = "ready"        // ready-pattern matched
	EventError       EventType = "error"        // recoverable error
	EventStreamToken EventType = "stream_token" // one streamed token
	EventStreamEnd   EventType = "stream_end"   // streaming response complete
	EventResponse    EventType = "response"     // non-streamed full response
	EventToolCalls   EventType = "tool_calls"   // function-calling payload
)

// Event is emitted on the manager's buffered (256-entry) fan-out channel; the
// pump blocks when it is full. Exactly one of
// the payload fields is meaningful, selected by Type — the same shape as
// the teacher's WSResponse (Type + per-type payload), collapsed into one
// struct since Go has no sum types.
type Event struct {
	Type       EventType
	Generation uint64 // stamped by the manager; consumers must discard stale events
	Output     []byte
	ExitCode   int
	ErrMessage string
	Token      string
	FullText   string
	ToolCalls  []ToolCall
}

// ToolCall is one function-calling invocation requested by an API provider.
type ToolCall struct {
	ID        string
	Name      string
	Arguments string // raw JSON
}

// Message is one role-tagged entry in an API provider's conversation history.
type Message struct {
	Role    string // "user" | "assistant" | "system" | "tool"
	Content string
}

// Provider is the common trait every backend implements (spec.md §3
// "Provider"). Start/Stop/Interrupt/Send must be safe to call from any
// goroutine; Events returns the same channel on every call (the manager,
// not the provider, enforces the "drain once" rule).
type Provider interface {
	ID() string
	Kind() Kind
	DisplayName() string

	// Start launches the backend (spawns the PTY child, or simply marks
	// itself ready for an API/dictation provider) and begins emitting
	// Events. It must not block past initial setup — long-running work
	// happens in a background goroutine spawned with pkg/utils.Go.
	Start(ctx context.Context) error

	// Stop releases every resource acquired by Start (spec.md §9: "every
	// such resource must release on every exit path"). Idempotent.
	Stop(ctx context.Context) error

	// Interrupt asks the backend to stop whatever it is currently doing
	// (SIGINT-equivalent for CLI, cancel in-flight request for API).
	// Idempotent (spec.md §5 "Provider `interrupt` is idempotent").
	Interrupt(ctx context.Context) error

	// Send delivers one piece of user input: raw PTY bytes for a CLI
	// provider, or a chat turn for an API provider.
	Send(ctx context.Context, text string) error

	// Events returns the channel this provider emits on. Implementations
	// return the same channel across calls.
	Events() <-chan Event

	// Resize notifies a CLI provider's PTY of a terminal size change. A
	// no-op for API/dictation providers.
	Resize(cols, rows uint16) error
}

// readyWaitDelay is the "additional per-tool delay" spec.md §4.1 requires
// after the first ready-pattern match before emitting Ready, allowing the
// CLI tool's prompt to finish painting.
const readyWaitDelay = 150 * time.Millisecond
