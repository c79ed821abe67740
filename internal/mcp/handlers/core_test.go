// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.
package handlers

import (
	"context"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/require"

	"github.com/rapidaai/voicemirror/internal/mcp/registry"
	"github.com/rapidaai/voicemirror/pkg/commons"
)

func newTestRegistry() *registry.Registry {
	reg := registry.New(commons.NewLogger(commons.Config{Level: "debug", Console: true}), 15*time.Minute)
	reg.Define(registry.ToolDef{
		Tool:    mcp.Tool{Name: "memory_search"},
		Group:   "memory",
		Handler: func(ctx context.Context, args map[string]interface{}) (*mcp.CallToolResult, error) { return nil, nil },
	})
	reg.Define(registry.ToolDef{
		Tool:    mcp.Tool{Name: "browser_navigate"},
		Group:   "browser",
		Handler: func(ctx context.Context, args map[string]interface{}) (*mcp.CallToolResult, error) { return nil, nil },
	}, "screen")
	reg.Define(registry.ToolDef{
		Tool:    mcp.Tool{Name: "screen_capture"},
		Group:   "screen",
		Handler: func(ctx context.Context, args map[string]interface{}) (*mcp.CallToolResult, error) { return nil, nil },
	})
	return reg
}

func TestCoreHandlers_LoadToolsLoadsTransitively(t *testing.T) {
	reg := newTestRegistry()
	h := NewCoreHandlers(reg)

	result, err := h.handleLoadTools(context.Background(), map[string]interface{}{"group": "browser"})
	require.NoError(t, err)
	require.False(t, result.IsError)

	statuses := reg.GroupStatuses()
	require.Equal(t, registry.StatusLoaded, statuses["browser"])
	require.Equal(t, registry.StatusLoaded, statuses["screen"])
}

func TestCoreHandlers_LoadToolsUnknownGroupErrors(t *testing.T) {
	reg := newTestRegistry()
	h := NewCoreHandlers(reg)

	result, err := h.handleLoadTools(context.Background(), map[string]interface{}{"group": "nonexistent"})
	require.NoError(t, err)
	require.True(t, result.IsError)
}

func TestCoreHandlers_UnloadToolsRefusesWhileDependedOn(t *testing.T) {
	reg := newTestRegistry()
	h := NewCoreHandlers(reg)

	_, err := h.handleLoadTools(context.Background(), map[string]interface{}{"group": "browser"})
	require.NoError(t, err)

	result, err := h.handleUnloadTools(context.Background(), map[string]interface{}{"group": "screen"})
	require.NoError(t, err)
	require.True(t, result.IsError)
	text := result.Content[0].(mcp.TextContent).Text
	require.Contains(t, text, "still depends on it")
}

func TestCoreHandlers_ListToolGroupsReportsEveryGroup(t *testing.T) {
	reg := newTestRegistry()
	h := NewCoreHandlers(reg)

	result, err := h.handleListToolGroups(context.Background(), map[string]interface{}{})
	require.NoError(t, err)
	text := result.Content[0].(mcp.TextContent).Text
	require.Contains(t, text, "memory: not_loaded")
	require.Contains(t, text, "browser: not_loaded")
	require.Contains(t, text, "screen: not_loaded")
}
