// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

// Package handlers implements the per-tool MCP logic (spec.md §4.5):
// voice I/O via file+pipe, memory tiers, browser delegation, workflow API
// client. Each constructor returns a slice of registry.ToolDef ready to
// hand to registry.Registry.Define.
package handlers

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/rapidaai/voicemirror/internal/inbox"
	"github.com/rapidaai/voicemirror/internal/mcp/registry"
	"github.com/rapidaai/voicemirror/internal/pipe"
	"github.com/rapidaai/voicemirror/pkg/commons"
)

// VoiceGroup is the tool-group name the three voice tools below belong to.
const VoiceGroup = "voice"

// dedupeWindow is the "2-second window" spec.md §4.5 specifies for
// voice_send's (lowercased text -> hash) de-duplication.
const dedupeWindow = 2 * time.Second

// VoiceHandlers wires the inbox store, the optional pipe router (nil if
// disconnected), and dedup/listener-lock state shared by the voice tools.
type VoiceHandlers struct {
	store  *inbox.Store
	router *pipe.Router // nil if the pipe is not connected
	lock   *inbox.ListenerLock
	logger commons.Logger
	caller string // this MCP process's own sender id, to filter voice_inbox

	dedupeMu sync.Mutex
	recent   map[string]time.Time
}

// NewVoiceHandlers constructs the handler set. router may be nil (file-only
// fallback, spec.md §7 "if a pipe fails, the caller falls back to the
// file-based path").
func NewVoiceHandlers(store *inbox.Store, router *pipe.Router, lock *inbox.ListenerLock, callerID string, logger commons.Logger) *VoiceHandlers {
	return &VoiceHandlers{
		store:  store,
		router: router,
		lock:   lock,
		logger: logger,
		caller: callerID,
		recent: make(map[string]time.Time),
	}
}

// ToolDefs returns voice_send/voice_inbox/voice_listen ready for
// registry.Registry.Define.
func (h *VoiceHandlers) ToolDefs() []registry.ToolDef {
	return []registry.ToolDef{
		{
			Group: VoiceGroup,
			Tool: mcp.Tool{
				Name:        "voice_send",
				Description: "Send a text message to the user's inbox, delivered over the pipe if connected.",
				InputSchema: mcp.ToolInputSchema{
					Type: "object",
					Properties: map[string]interface{}{
						"message":   map[string]interface{}{"type": "string"},
						"thread_id": map[string]interface{}{"type": "string"},
					},
					Required: []string{"message"},
				},
			},
			Handler: h.handleVoiceSend,
		},
		{
			Group: VoiceGroup,
			Tool: mcp.Tool{
				Name:        "voice_inbox",
				Description: "Read the most recent inbox messages not sent by this process, oldest first.",
				InputSchema: mcp.ToolInputSchema{
					Type: "object",
					Properties: map[string]interface{}{
						"limit":      map[string]interface{}{"type": "integer"},
						"mark_read":  map[string]interface{}{"type": "boolean"},
					},
				},
			},
			Handler: h.handleVoiceInbox,
		},
		{
			Group: VoiceGroup,
			Tool: mcp.Tool{
				Name:        "voice_listen",
				Description: "Block until a new user message arrives, or until timeout_seconds elapses.",
				InputSchema: mcp.ToolInputSchema{
					Type: "object",
					Properties: map[string]interface{}{
						"sender":          map[string]interface{}{"type": "string"},
						"thread_id":       map[string]interface{}{"type": "string"},
						"timeout_seconds": map[string]interface{}{"type": "integer"},
					},
				},
			},
			Handler: h.handleVoiceListen,
		},
	}
}

func (h *VoiceHandlers) handleVoiceSend(ctx context.Context, args map[string]interface{}) (*mcp.CallToolResult, error) {
	message, _ := args["message"].(string)
	threadID, _ := args["thread_id"].(string)
	if strings.TrimSpace(message) == "" {
		return mcp.NewToolResultError("voice_send: message is required"), nil
	}

	if h.isDuplicate(message) {
		return mcp.NewToolResultText("duplicate message suppressed"), nil
	}

	msg, err := h.store.Append(inbox.Message{From: h.caller, Message: message, ThreadID: threadID})
	if err != nil {
		return nil, fmt.Errorf("voice_send: append to inbox: %w", err)
	}

	if h.router != nil {
		sendErr := h.router.SendVoiceSend(pipe.VoiceSendData{
			From:      h.caller,
			Message:   message,
			ThreadID:  threadID,
			Timestamp: msg.Timestamp,
		})
		if sendErr != nil {
			h.logger.Warnf("voice_send: pipe send failed, message persisted to inbox only: %v", sendErr)
		}
	}
	return mcp.NewToolResultText(fmt.Sprintf("sent (id=%s)", msg.ID)), nil
}

// isDuplicate reports whether an equal (case-folded) message was sent
// within dedupeWindow, and records this send for future checks.
func (h *VoiceHandlers) isDuplicate(message string) bool {
	sum := sha1.Sum([]byte(strings.ToLower(strings.TrimSpace(message))))
	key := hex.EncodeToString(sum[:])

	h.dedupeMu.Lock()
	defer h.dedupeMu.Unlock()

	now := time.Now()
	for k, t := range h.recent {
		if now.Sub(t) > dedupeWindow {
			delete(h.recent, k)
		}
	}
	if last, ok := h.recent[key]; ok && now.Sub(last) <= dedupeWindow {
		return true
	}
	h.recent[key] = now
	return false
}

func (h *VoiceHandlers) handleVoiceInbox(ctx context.Context, args map[string]interface{}) (*mcp.CallToolResult, error) {
	limit := 20
	if v, ok := args["limit"].(float64); ok && v > 0 {
		limit = int(v)
	}
	markRead, _ := args["mark_read"].(bool)

	all, err := h.store.All()
	if err != nil {
		return nil, fmt.Errorf("voice_inbox: %w", err)
	}

	var filtered []inbox.Message
	for _, m := range all {
		if m.From == h.caller {
			continue
		}
		filtered = append(filtered, m)
	}
	if len(filtered) > 500 {
		filtered = filtered[len(filtered)-500:]
	}
	if len(filtered) > limit {
		filtered = filtered[len(filtered)-limit:]
	}

	if markRead && len(filtered) > 0 {
		ids := make([]string, len(filtered))
		for i, m := range filtered {
			ids[i] = m.ID
		}
		if err := h.store.MarkRead(ids, h.caller); err != nil {
			h.logger.Warnf("voice_inbox: mark-read failed: %v", err)
		}
	}

	text := formatInbox(filtered)
	return mcp.NewToolResultText(text), nil
}

func formatInbox(msgs []inbox.Message) string {
	if len(msgs) == 0 {
		return "inbox is empty"
	}
	var b strings.Builder
	for _, m := range msgs {
		fmt.Fprintf(&b, "[%s] %s: %s\n", m.Timestamp, m.From, m.Message)
	}
	return b.String()
}
