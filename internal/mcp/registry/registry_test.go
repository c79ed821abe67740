// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.
package registry

import (
	"context"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/require"

	"github.com/rapidaai/voicemirror/pkg/commons"
)

func testLogger() commons.Logger {
	return commons.NewLogger(commons.Config{Level: "debug", Console: true})
}

func noopHandler(ctx context.Context, args map[string]interface{}) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText("ok"), nil
}

func TestRegistry_LoadGroupTransitivelyLoadsDependencies(t *testing.T) {
	r := New(testLogger(), 15*time.Minute)
	r.Define(ToolDef{Tool: mcp.Tool{Name: "screen_capture"}, Group: "screen", Handler: noopHandler})
	r.Define(ToolDef{Tool: mcp.Tool{Name: "browser_click"}, Group: "browser", Handler: noopHandler}, "screen")

	require.NoError(t, r.LoadGroup("browser"))

	_, ok := r.Lookup("screen_capture")
	require.True(t, ok, "dependency group should be transitively loaded")
	_, ok = r.Lookup("browser_click")
	require.True(t, ok)
	require.True(t, r.TakeToolsChanged())
}

func TestRegistry_UnloadRefusedWhileDependentLoaded(t *testing.T) {
	r := New(testLogger(), 15*time.Minute)
	r.Define(ToolDef{Tool: mcp.Tool{Name: "screen_capture"}, Group: "screen", Handler: noopHandler})
	r.Define(ToolDef{Tool: mcp.Tool{Name: "browser_click"}, Group: "browser", Handler: noopHandler}, "screen")
	require.NoError(t, r.LoadGroup("browser"))

	err := r.UnloadGroup("screen")
	require.Error(t, err)
}

func TestRegistry_AutoUnloadSweepRespectsPin(t *testing.T) {
	r := New(testLogger(), 10*time.Millisecond)
	r.Define(ToolDef{Tool: mcp.Tool{Name: "memory_search"}, Group: "memory", Handler: noopHandler})
	r.Define(ToolDef{Tool: mcp.Tool{Name: "voice_send"}, Group: "voice", Handler: noopHandler})
	require.NoError(t, r.LoadGroup("memory"))
	require.NoError(t, r.LoadGroup("voice"))
	r.Pin("voice")

	time.Sleep(20 * time.Millisecond)
	r.SweepIdleGroups()

	_, ok := r.Lookup("memory_search")
	require.False(t, ok, "idle unpinned group should be swept")
	_, ok = r.Lookup("voice_send")
	require.True(t, ok, "pinned group should survive the sweep")
}

func TestRegistry_LookupFailsForUnloadedGroup(t *testing.T) {
	r := New(testLogger(), 15*time.Minute)
	r.Define(ToolDef{Tool: mcp.Tool{Name: "memory_search"}, Group: "memory", Handler: noopHandler})

	_, ok := r.Lookup("memory_search")
	require.False(t, ok)
}

func TestRegistry_ApplyEnabledGroupsSeedsAtStartup(t *testing.T) {
	r := New(testLogger(), 15*time.Minute)
	r.Define(ToolDef{Tool: mcp.Tool{Name: "memory_search"}, Group: "memory", Handler: noopHandler})

	r.ApplyEnabledGroups([]string{"memory"})

	_, ok := r.Lookup("memory_search")
	require.True(t, ok)
}
