// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.
package handlers

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/rapidaai/voicemirror/internal/mcp/registry"
	"github.com/rapidaai/voicemirror/internal/memory"
)

// MemoryGroup is the tool-group name for the four memory tools below.
const MemoryGroup = "memory"

// defaultMinScore is the cutoff used when the caller does not specify one.
const defaultMinScore = 0.15

// MemoryHandlers wires the tiered memory store into MCP tools.
type MemoryHandlers struct {
	store *memory.Store
}

// NewMemoryHandlers constructs the handler set.
func NewMemoryHandlers(store *memory.Store) *MemoryHandlers {
	return &MemoryHandlers{store: store}
}

// ToolDefs returns remember/search/forget/flush ready for
// registry.Registry.Define. memory_forget is destructive (spec.md §3
// "Tool" — "Destructive tools require confirmed: true").
func (h *MemoryHandlers) ToolDefs() []registry.ToolDef {
	return []registry.ToolDef{
		{
			Group: MemoryGroup,
			Tool: mcp.Tool{
				Name:        "memory_remember",
				Description: "Store a durable fact, decision, or note for later recall.",
				InputSchema: mcp.ToolInputSchema{
					Type: "object",
					Properties: map[string]interface{}{
						"content": map[string]interface{}{"type": "string"},
						"tier":    map[string]interface{}{"type": "string", "enum": []string{"core", "stable", "notes"}},
					},
					Required: []string{"content"},
				},
			},
			Handler: h.handleRemember,
		},
		{
			Group: MemoryGroup,
			Tool: mcp.Tool{
				Name:        "memory_search",
				Description: "Keyword-search remembered chunks, best matches first.",
				InputSchema: mcp.ToolInputSchema{
					Type: "object",
					Properties: map[string]interface{}{
						"query":     map[string]interface{}{"type": "string"},
						"min_score": map[string]interface{}{"type": "number"},
					},
					Required: []string{"query"},
				},
			},
			Handler: h.handleSearch,
		},
		{
			Group:         MemoryGroup,
			IsDestructive: true,
			Tool: mcp.Tool{
				Name:        "memory_forget",
				Description: "Remove a remembered chunk by id or content substring.",
				InputSchema: mcp.ToolInputSchema{
					Type: "object",
					Properties: map[string]interface{}{
						"content_or_id": map[string]interface{}{"type": "string"},
						"confirmed":     map[string]interface{}{"type": "boolean"},
					},
					Required: []string{"content_or_id"},
				},
			},
			Handler: h.handleForget,
		},
		{
			Group: MemoryGroup,
			Tool: mcp.Tool{
				Name:        "memory_flush",
				Description: "Bulk-record a conversation summary's topics, decisions, and action items.",
				InputSchema: mcp.ToolInputSchema{
					Type: "object",
					Properties: map[string]interface{}{
						"summary":      map[string]interface{}{"type": "string"},
						"topics":       map[string]interface{}{"type": "array", "items": map[string]interface{}{"type": "string"}},
						"decisions":    map[string]interface{}{"type": "array", "items": map[string]interface{}{"type": "string"}},
						"action_items": map[string]interface{}{"type": "array", "items": map[string]interface{}{"type": "string"}},
					},
					Required: []string{"summary"},
				},
			},
			Handler: h.handleFlush,
		},
	}
}

func (h *MemoryHandlers) handleRemember(ctx context.Context, args map[string]interface{}) (*mcp.CallToolResult, error) {
	content, _ := args["content"].(string)
	if strings.TrimSpace(content) == "" {
		return mcp.NewToolResultError("memory_remember: content is required"), nil
	}
	tier := memory.TierStable
	if v, ok := args["tier"].(string); ok && v != "" {
		tier = memory.Tier(v)
	}

	c, err := h.store.Remember(content, tier, "", "")
	if err != nil {
		return nil, fmt.Errorf("memory_remember: %w", err)
	}
	return mcp.NewToolResultText(fmt.Sprintf("remembered (id=%s, tier=%s)", c.ID, c.Tier)), nil
}

func (h *MemoryHandlers) handleSearch(ctx context.Context, args map[string]interface{}) (*mcp.CallToolResult, error) {
	query, _ := args["query"].(string)
	if strings.TrimSpace(query) == "" {
		return mcp.NewToolResultError("memory_search: query is required"), nil
	}
	minScore := defaultMinScore
	if v, ok := args["min_score"].(float64); ok {
		minScore = v
	}

	results := h.store.Search(query, minScore)
	if len(results) == 0 {
		return mcp.NewToolResultText("no matching memories"), nil
	}

	var b strings.Builder
	for _, r := range results {
		fmt.Fprintf(&b, "[%.2f] (%s, id=%s) %s\n", r.Score, r.Chunk.Tier, r.Chunk.ID, r.Chunk.Content)
	}
	return mcp.NewToolResultText(b.String()), nil
}

func (h *MemoryHandlers) handleForget(ctx context.Context, args map[string]interface{}) (*mcp.CallToolResult, error) {
	idOrSubstring, _ := args["content_or_id"].(string)
	if strings.TrimSpace(idOrSubstring) == "" {
		return mcp.NewToolResultError("memory_forget: content_or_id is required"), nil
	}

	removed, err := h.store.Forget(idOrSubstring)
	if err != nil {
		return nil, fmt.Errorf("memory_forget: %w", err)
	}
	if !removed {
		return mcp.NewToolResultText("no matching chunk found"), nil
	}
	return mcp.NewToolResultText("forgotten"), nil
}

func (h *MemoryHandlers) handleFlush(ctx context.Context, args map[string]interface{}) (*mcp.CallToolResult, error) {
	summary, _ := args["summary"].(string)
	topics := stringSlice(args["topics"])
	decisions := stringSlice(args["decisions"])
	actionItems := stringSlice(args["action_items"])

	created, err := h.store.Flush(topics, decisions, actionItems, summary)
	if err != nil {
		return nil, fmt.Errorf("memory_flush: %w", err)
	}
	return mcp.NewToolResultText(fmt.Sprintf("flushed %d chunks", len(created))), nil
}

func stringSlice(v interface{}) []string {
	raw, ok := v.([]interface{})
	if !ok {
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, item := range raw {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}
