// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.
package pipe

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/rapidaai/voicemirror/pkg/commons"
	"github.com/rapidaai/voicemirror/pkg/utils"
)

// Router owns the Client and runs the single background dispatch loop that
// correlates BrowserResponses to their waiters and fans UserMessage/Shutdown
// out to whichever voice_listen call is currently waiting (spec.md §4.4).
//
// Grounded on the teacher's websocketExecutor.responseListener background
// read loop plus its mu/writeMu lock split — generalized here into a
// waiters-map-vs-underlying-client split, since the router's own "send"
// path (BrowserRequest, VoiceSend, ListenStart) must never block behind the
// waiters-map lock (spec.md §4.4 "must not hold its waiter-map lock across
// any send").
type Router struct {
	logger commons.Logger
	client *Client

	waitersMu sync.Mutex
	waiters   map[string]chan BrowserResponseData

	messages chan UserMessageData
	shutdown chan struct{}

	closeOnce sync.Once
}

// NewRouter wraps an already-connected Client and starts its dispatch loop.
func NewRouter(ctx context.Context, client *Client, logger commons.Logger) *Router {
	r := &Router{
		logger:   logger,
		client:   client,
		waiters:  make(map[string]chan BrowserResponseData),
		messages: make(chan UserMessageData, 64),
		shutdown: make(chan struct{}),
	}
	utils.Go(ctx, func() { r.dispatchLoop() })
	return r
}

// dispatchLoop is the router's single reader of the underlying Client.
// It never sends on the Client (sends happen from SendX methods called by
// handlers), so there is no read/write interleaving to guard beyond the
// Client's own writeMu.
func (r *Router) dispatchLoop() {
	for {
		f, err := r.client.Recv()
		if err != nil {
			r.logger.Warnf("pipe router: connection closed: %v", err)
			close(r.shutdown)
			return
		}
		switch f.Type {
		case TypeBrowserResponse:
			var data BrowserResponseData
			if decErr := decode(f, &data); decErr != nil {
				r.logger.Errorf("pipe router: decode browser response: %v", decErr)
				continue
			}
			r.deliverBrowserResponse(data)
		case TypeUserMessage:
			var data UserMessageData
			if decErr := decode(f, &data); decErr != nil {
				r.logger.Errorf("pipe router: decode user message: %v", decErr)
				continue
			}
			select {
			case r.messages <- data:
			default:
				r.logger.Warnf("pipe router: message queue full, dropping message %s", data.ID)
			}
		case TypeShutdown:
			close(r.shutdown)
			return
		default:
			r.logger.Warnf("pipe router: unrecognized frame type %q", f.Type)
		}
	}
}

// RegisterWaiter must be called BEFORE SendBrowserRequest (spec.md §4.4
// "callers register a waiter before sending a request", preventing the
// race where the response arrives before the waiter exists).
func (r *Router) RegisterWaiter(requestID string) chan BrowserResponseData {
	ch := make(chan BrowserResponseData, 1)
	r.waitersMu.Lock()
	r.waiters[requestID] = ch
	r.waitersMu.Unlock()
	return ch
}

// RemoveWaiter unregisters a waiter without delivering to it — the caller
// must call this on timeout (spec.md invariant 4) to prevent a leak.
func (r *Router) RemoveWaiter(requestID string) {
	r.waitersMu.Lock()
	delete(r.waiters, requestID)
	r.waitersMu.Unlock()
}

func (r *Router) deliverBrowserResponse(data BrowserResponseData) {
	r.waitersMu.Lock()
	ch, ok := r.waiters[data.RequestID]
	if ok {
		delete(r.waiters, data.RequestID)
	}
	r.waitersMu.Unlock()

	if !ok {
		r.logger.Warnf("pipe router: browser response for unknown/expired request %s", data.RequestID)
		return
	}
	ch <- data
}

// SendBrowserRequest forwards a BrowserRequest frame. The caller must have
// already called RegisterWaiter for req.RequestID.
func (r *Router) SendBrowserRequest(req BrowserRequestData) error {
	return r.client.Send(TypeBrowserRequest, req)
}

// SendVoiceSend forwards a VoiceSend frame (voice_send tool, pipe path).
func (r *Router) SendVoiceSend(data VoiceSendData) error {
	return r.client.Send(TypeVoiceSend, data)
}

// SendListenStart announces a voice_listen call has begun waiting.
func (r *Router) SendListenStart(data ListenStartData) error {
	return r.client.Send(TypeListenStart, data)
}

// Messages returns the channel UserMessage frames are delivered on, for the
// active voice_listen call to filter by sender/thread.
func (r *Router) Messages() <-chan UserMessageData {
	return r.messages
}

// Disconnected reports whether the underlying connection has closed (EOF,
// Shutdown, or error) — callers use this to fall back to polling.
func (r *Router) Disconnected() <-chan struct{} {
	return r.shutdown
}

// Close shuts down the underlying Client. Idempotent.
func (r *Router) Close() error {
	var err error
	r.closeOnce.Do(func() { err = r.client.Close() })
	return err
}

func decode(f Frame, v interface{}) error {
	if len(f.Data) == 0 {
		return fmt.Errorf("pipe: empty payload for frame type %q", f.Type)
	}
	return json.Unmarshal(f.Data, v)
}
