// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.
package handlers

import (
	"context"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/require"

	"github.com/rapidaai/voicemirror/internal/memory"
	"github.com/rapidaai/voicemirror/pkg/commons"
)

func newTestMemoryStore(t *testing.T) *memory.Store {
	t.Helper()
	s, err := memory.NewStore(t.TempDir(), commons.NewLogger(commons.Config{Level: "debug", Console: true}))
	require.NoError(t, err)
	return s
}

func TestMemoryHandlers_RememberThenSearch(t *testing.T) {
	store := newTestMemoryStore(t)
	h := NewMemoryHandlers(store)

	_, err := h.handleRemember(context.Background(), map[string]interface{}{
		"content": "the release is scheduled for August 1st",
		"tier":    "stable",
	})
	require.NoError(t, err)

	result, err := h.handleSearch(context.Background(), map[string]interface{}{"query": "release scheduled"})
	require.NoError(t, err)
	require.False(t, result.IsError)
	text := result.Content[0].(mcp.TextContent).Text
	require.Contains(t, text, "release is scheduled")
}

func TestMemoryHandlers_SearchWithNoMatchesReturnsMessage(t *testing.T) {
	store := newTestMemoryStore(t)
	h := NewMemoryHandlers(store)

	result, err := h.handleSearch(context.Background(), map[string]interface{}{"query": "nonexistent"})
	require.NoError(t, err)
	text := result.Content[0].(mcp.TextContent).Text
	require.Equal(t, "no matching memories", text)
}

func TestMemoryHandlers_ForgetRemovesChunk(t *testing.T) {
	store := newTestMemoryStore(t)
	h := NewMemoryHandlers(store)

	_, err := h.handleRemember(context.Background(), map[string]interface{}{"content": "water the office plants"})
	require.NoError(t, err)

	result, err := h.handleForget(context.Background(), map[string]interface{}{"content_or_id": "office plants"})
	require.NoError(t, err)
	text := result.Content[0].(mcp.TextContent).Text
	require.Equal(t, "forgotten", text)

	result, err = h.handleSearch(context.Background(), map[string]interface{}{"query": "office plants"})
	require.NoError(t, err)
	text = result.Content[0].(mcp.TextContent).Text
	require.Equal(t, "no matching memories", text)
}

func TestMemoryHandlers_ForgetMissingReturnsNotFoundMessage(t *testing.T) {
	store := newTestMemoryStore(t)
	h := NewMemoryHandlers(store)

	result, err := h.handleForget(context.Background(), map[string]interface{}{"content_or_id": "does-not-exist"})
	require.NoError(t, err)
	text := result.Content[0].(mcp.TextContent).Text
	require.Equal(t, "no matching chunk found", text)
}

func TestMemoryHandlers_FlushRecordsTopicsDecisionsActionItems(t *testing.T) {
	store := newTestMemoryStore(t)
	h := NewMemoryHandlers(store)

	result, err := h.handleFlush(context.Background(), map[string]interface{}{
		"summary":      "discussed Q3 roadmap",
		"topics":       []interface{}{"roadmap", "hiring"},
		"decisions":    []interface{}{"ship v2 in Q3"},
		"action_items": []interface{}{"draft hiring plan"},
	})
	require.NoError(t, err)
	text := result.Content[0].(mcp.TextContent).Text
	require.Contains(t, text, "flushed")

	found := h.store.Search("hiring plan", 0.1)
	require.NotEmpty(t, found)
}

func TestMemoryHandlers_RememberRequiresContent(t *testing.T) {
	store := newTestMemoryStore(t)
	h := NewMemoryHandlers(store)

	result, err := h.handleRemember(context.Background(), map[string]interface{}{"content": "  "})
	require.NoError(t, err)
	require.True(t, result.IsError)
}
