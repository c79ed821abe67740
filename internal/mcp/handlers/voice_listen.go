// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.
package handlers

import (
	"context"
	"encoding/base64"
	"os"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/rapidaai/voicemirror/internal/inbox"
	"github.com/rapidaai/voicemirror/internal/pipe"
)

// maxListenTimeout bounds voice_listen's overall wait (spec.md §5
// "listener: ≤ 600 s").
const maxListenTimeout = 600 * time.Second

// lockRefreshInterval is how often the held listener lock is refreshed
// (spec.md §4.5 "refresh the lock every 30 s").
const lockRefreshInterval = 30 * time.Second

// pollInterval is how often the poll-path fallback re-reads the inbox
// (spec.md §4.5 "re-reads inbox every 5 s").
const pollInterval = 5 * time.Second

func (h *VoiceHandlers) handleVoiceListen(ctx context.Context, args map[string]interface{}) (*mcp.CallToolResult, error) {
	sender, _ := args["sender"].(string)
	threadID, _ := args["thread_id"].(string)

	timeout := maxListenTimeout
	if v, ok := args["timeout_seconds"].(float64); ok && v > 0 {
		requested := time.Duration(v) * time.Second
		if requested < timeout {
			timeout = requested
		}
	}

	if err := h.lock.Acquire(lockRefreshInterval + 5*time.Second); err != nil {
		// spec.md §7 "lock contention: surfaced to caller (voice_listen
		// refuses)" — scenario S6.
		return mcp.NewToolResultError(err.Error()), nil
	}
	defer h.lock.Release()

	listenCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	refreshTicker := time.NewTicker(lockRefreshInterval)
	defer refreshTicker.Stop()
	go func() {
		for {
			select {
			case <-listenCtx.Done():
				return
			case <-refreshTicker.C:
				_ = h.lock.Refresh(lockRefreshInterval + 5*time.Second)
			}
		}
	}()

	if h.router != nil {
		if err := h.router.SendListenStart(pipe.ListenStartData{Sender: sender, ThreadID: threadID}); err == nil {
			return h.listenViaPipe(listenCtx, sender, threadID)
		}
		h.logger.Warnf("voice_listen: pipe send failed, falling back to polling")
	}
	return h.listenViaPolling(listenCtx, sender, threadID)
}

func (h *VoiceHandlers) listenViaPipe(ctx context.Context, sender, threadID string) (*mcp.CallToolResult, error) {
	for {
		select {
		case <-ctx.Done():
			return mcp.NewToolResultError("voice_listen: timed out waiting for a message"), nil
		case <-h.router.Disconnected():
			h.logger.Warnf("voice_listen: pipe disconnected mid-wait, falling back to polling")
			return h.listenViaPolling(ctx, sender, threadID)
		case msg := <-h.router.Messages():
			if !matches(msg.From, msg.ThreadID, sender, threadID) {
				continue
			}
			return userMessageResult(msg), nil
		}
	}
}

func (h *VoiceHandlers) listenViaPolling(ctx context.Context, sender, threadID string) (*mcp.CallToolResult, error) {
	seen, err := h.store.All()
	if err != nil {
		return nil, err
	}
	known := make(map[string]bool, len(seen))
	for _, m := range seen {
		known[m.ID] = true
	}

	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return mcp.NewToolResultError("voice_listen: timed out waiting for a message"), nil
		case <-ticker.C:
			current, err := h.store.All()
			if err != nil {
				h.logger.Warnf("voice_listen: poll read failed: %v", err)
				continue
			}
			for _, m := range current {
				if known[m.ID] {
					continue
				}
				known[m.ID] = true
				if !matches(m.From, m.ThreadID, sender, threadID) {
					continue
				}
				return inboxMessageResult(m), nil
			}
		}
	}
}

func matches(from, thread, wantSender, wantThread string) bool {
	if wantSender != "" && !strings.EqualFold(from, wantSender) {
		return false
	}
	if wantThread != "" && thread != wantThread {
		return false
	}
	return true
}

func userMessageResult(msg pipe.UserMessageData) *mcp.CallToolResult {
	content := []mcp.Content{mcp.NewTextContent(msg.From + ": " + msg.Message)}
	if img, ok := imageContent(msg.ImageDataURL, msg.ImagePath); ok {
		content = append(content, img)
	}
	return &mcp.CallToolResult{Content: content}
}

func inboxMessageResult(m inbox.Message) *mcp.CallToolResult {
	content := []mcp.Content{mcp.NewTextContent(m.From + ": " + m.Message)}
	if img, ok := imageContent(m.ImageDataURL, m.ImagePath); ok {
		content = append(content, img)
	}
	return &mcp.CallToolResult{Content: content}
}

// imageContent emits the attached image as an "image" content block
// alongside the text (spec.md §4.5 "Image content, if present, is emitted
// as an additional image content block"), decoding a data URL directly or
// reading the referenced file for a bare path.
func imageContent(dataURL, path string) (mcp.Content, bool) {
	if dataURL != "" {
		mimeType, b64, ok := parseDataURL(dataURL)
		if ok {
			return mcp.NewImageContent(b64, mimeType), true
		}
	}
	if path != "" {
		raw, err := os.ReadFile(path)
		if err == nil {
			return mcp.NewImageContent(base64.StdEncoding.EncodeToString(raw), mimeTypeForPath(path)), true
		}
	}
	return nil, false
}

// parseDataURL splits "data:<mime>;base64,<payload>" into its mime type
// and base64 payload.
func parseDataURL(dataURL string) (mimeType, payload string, ok bool) {
	if !strings.HasPrefix(dataURL, "data:") {
		return "", "", false
	}
	rest := strings.TrimPrefix(dataURL, "data:")
	parts := strings.SplitN(rest, ",", 2)
	if len(parts) != 2 {
		return "", "", false
	}
	meta := strings.TrimSuffix(parts[0], ";base64")
	return meta, parts[1], true
}

func mimeTypeForPath(path string) string {
	switch {
	case strings.HasSuffix(path, ".png"):
		return "image/png"
	case strings.HasSuffix(path, ".jpg"), strings.HasSuffix(path, ".jpeg"):
		return "image/jpeg"
	case strings.HasSuffix(path, ".webp"):
		return "image/webp"
	default:
		return "application/octet-stream"
	}
}
