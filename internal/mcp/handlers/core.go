// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.
package handlers

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/rapidaai/voicemirror/internal/mcp/registry"
)

// CoreGroup is the always-loaded-at-startup group these tools live in
// (spec.md §3 "load_tools/unload_tools/list_tool_groups are themselves
// always available").
const CoreGroup = "core"

// CoreHandlers exposes tool-group lifecycle management as tools.
type CoreHandlers struct {
	reg *registry.Registry
}

// NewCoreHandlers constructs the handler set.
func NewCoreHandlers(reg *registry.Registry) *CoreHandlers {
	return &CoreHandlers{reg: reg}
}

// ToolDefs returns load_tools/unload_tools/list_tool_groups ready for
// registry.Registry.Define.
func (h *CoreHandlers) ToolDefs() []registry.ToolDef {
	return []registry.ToolDef{
		{
			Group: CoreGroup,
			Tool: mcp.Tool{
				Name:        "load_tools",
				Description: "Load a tool group and its dependencies, making its tools callable.",
				InputSchema: mcp.ToolInputSchema{
					Type:       "object",
					Properties: map[string]interface{}{"group": map[string]interface{}{"type": "string"}},
					Required:   []string{"group"},
				},
			},
			Handler: h.handleLoadTools,
		},
		{
			Group: CoreGroup,
			Tool: mcp.Tool{
				Name:        "unload_tools",
				Description: "Unload a tool group, refusing if another loaded group still depends on it.",
				InputSchema: mcp.ToolInputSchema{
					Type:       "object",
					Properties: map[string]interface{}{"group": map[string]interface{}{"type": "string"}},
					Required:   []string{"group"},
				},
			},
			Handler: h.handleUnloadTools,
		},
		{
			Group: CoreGroup,
			Tool: mcp.Tool{
				Name:        "list_tool_groups",
				Description: "List every known tool group and its current lifecycle status.",
				InputSchema: mcp.ToolInputSchema{Type: "object"},
			},
			Handler: h.handleListToolGroups,
		},
	}
}

func (h *CoreHandlers) handleLoadTools(ctx context.Context, args map[string]interface{}) (*mcp.CallToolResult, error) {
	group, _ := args["group"].(string)
	if strings.TrimSpace(group) == "" {
		return mcp.NewToolResultError("load_tools: group is required"), nil
	}
	if err := h.reg.LoadGroup(group); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText("Loaded tool group " + group), nil
}

func (h *CoreHandlers) handleUnloadTools(ctx context.Context, args map[string]interface{}) (*mcp.CallToolResult, error) {
	group, _ := args["group"].(string)
	if strings.TrimSpace(group) == "" {
		return mcp.NewToolResultError("unload_tools: group is required"), nil
	}
	if err := h.reg.UnloadGroup(group); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText("Unloaded tool group " + group), nil
}

func (h *CoreHandlers) handleListToolGroups(ctx context.Context, args map[string]interface{}) (*mcp.CallToolResult, error) {
	statuses := h.reg.GroupStatuses()
	names := make([]string, 0, len(statuses))
	for name := range statuses {
		names = append(names, name)
	}
	sort.Strings(names)

	var b strings.Builder
	for _, name := range names {
		fmt.Fprintf(&b, "%s: %s\n", name, statuses[name])
	}
	if b.Len() == 0 {
		return mcp.NewToolResultText("no tool groups defined"), nil
	}
	return mcp.NewToolResultText(b.String()), nil
}
