// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.
package server

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/require"

	"github.com/rapidaai/voicemirror/internal/mcp/registry"
	"github.com/rapidaai/voicemirror/pkg/commons"
)

func testLogger() commons.Logger {
	return commons.NewLogger(commons.Config{Level: "debug", Console: true})
}

func newTestServer() (*Server, *registry.Registry) {
	reg := registry.New(testLogger(), 15*time.Minute)
	reg.Define(registry.ToolDef{
		Tool:  mcp.Tool{Name: "memory_forget", Description: "forget a memory chunk"},
		Group: "memory",
		IsDestructive: true,
		Handler: func(ctx context.Context, args map[string]interface{}) (*mcp.CallToolResult, error) {
			return mcp.NewToolResultText("forgotten"), nil
		},
	})
	reg.Define(registry.ToolDef{
		Tool:  mcp.Tool{Name: "load_tools"},
		Group: "core",
		Handler: func(ctx context.Context, args map[string]interface{}) (*mcp.CallToolResult, error) {
			group, _ := args["group"].(string)
			if err := reg.LoadGroup(group); err != nil {
				return nil, err
			}
			return mcp.NewToolResultText("Loaded tool group " + group), nil
		},
	})
	reg.ApplyEnabledGroups([]string{"core"})
	return New(reg, "voicemirror-mcp", "0.1.0", testLogger()), reg
}

func runLines(t *testing.T, s *Server, lines ...string) []map[string]interface{} {
	t.Helper()
	in := strings.NewReader(strings.Join(lines, "\n") + "\n")
	var out bytes.Buffer

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_ = s.Serve(ctx, in, &out)

	var results []map[string]interface{}
	scanner := bufio.NewScanner(&out)
	for scanner.Scan() {
		var m map[string]interface{}
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &m))
		results = append(results, m)
	}
	return results
}

func TestServer_DestructiveToolWithoutConfirmationDoesNotExecute(t *testing.T) {
	s, _ := newTestServer()
	out := runLines(t, s, `{"jsonrpc":"2.0","id":1,"method":"tools/call","params":{"name":"memory_forget","arguments":{"content_or_id":"chunk_abc"}}}`)

	require.Len(t, out, 1)
	result := out[0]["result"].(map[string]interface{})
	content := result["content"].([]interface{})[0].(map[string]interface{})
	require.Contains(t, content["text"], "CONFIRMATION REQUIRED")
}

func TestServer_DestructiveToolWithConfirmationExecutes(t *testing.T) {
	s, _ := newTestServer()
	out := runLines(t, s, `{"jsonrpc":"2.0","id":1,"method":"tools/call","params":{"name":"memory_forget","arguments":{"content_or_id":"chunk_abc","confirmed":true}}}`)

	require.Len(t, out, 1)
	result := out[0]["result"].(map[string]interface{})
	content := result["content"].([]interface{})[0].(map[string]interface{})
	require.Equal(t, "forgotten", content["text"])
}

func TestServer_NotificationsHaveNoReply(t *testing.T) {
	s, _ := newTestServer()
	out := runLines(t, s, `{"jsonrpc":"2.0","method":"initialized"}`)
	require.Empty(t, out)
}

func TestServer_ListChangedNotificationFollowsLoadGroup(t *testing.T) {
	s, reg := newTestServer()
	reg.Define(registry.ToolDef{
		Tool:  mcp.Tool{Name: "memory_search"},
		Group: "memory",
		Handler: func(ctx context.Context, args map[string]interface{}) (*mcp.CallToolResult, error) {
			return mcp.NewToolResultText("[]"), nil
		},
	})

	out := runLines(t, s, `{"jsonrpc":"2.0","id":1,"method":"tools/call","params":{"name":"load_tools","arguments":{"group":"memory"}}}`)

	require.Len(t, out, 2)
	require.NotNil(t, out[0]["result"])
	require.Equal(t, "notifications/tools/list_changed", out[1]["method"])
	require.Nil(t, out[1]["id"])
}
