// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.
package handlers

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/mark3labs/mcp-go/mcp"

	"github.com/rapidaai/voicemirror/internal/mcp/registry"
	"github.com/rapidaai/voicemirror/pkg/commons"
)

// WorkflowGroup is the tool-group name for every workflow_*/execution_*/
// tag_* tool.
const WorkflowGroup = "workflow"

// workflowRequestTimeout bounds every n8n REST call (spec.md §4.5's
// HTTP-client default range, narrowed to the automation-management surface).
const workflowRequestTimeout = 20 * time.Second

// defaultN8NBaseURL is n8n's default local REST API address (original
// source note: "n8n API runs at http://localhost:5678").
const defaultN8NBaseURL = "http://localhost:5678"

// n8nAPIKeyEnv and n8nAPIKeyFile are the two places an n8n API key is read
// from, matching the original handler's own comment verbatim ("API key
// from ~/.config/n8n/api_key or N8N_API_KEY env var").
const n8nAPIKeyEnv = "N8N_API_KEY"

// WorkflowHandlers is a REST client over a local n8n instance's public API
// (`/api/v1/...`), covering the workflow/execution/tag slice of the n8n
// tool surface. n8n authenticates with a single static API key header
// rather than a bearer token, so there is no per-request signing step.
type WorkflowHandlers struct {
	rest    *resty.Client
	baseURL string
	apiKey  string
	logger  commons.Logger
}

// NewWorkflowHandlers constructs the handler set. baseURL defaults to
// defaultN8NBaseURL when empty; apiKey is sent as n8n's X-N8N-API-KEY
// header on every request.
func NewWorkflowHandlers(rest *resty.Client, baseURL string, apiKey string, logger commons.Logger) *WorkflowHandlers {
	if baseURL == "" {
		baseURL = defaultN8NBaseURL
	}
	return &WorkflowHandlers{rest: rest, baseURL: strings.TrimRight(baseURL, "/"), apiKey: apiKey, logger: logger}
}

// LoadN8NAPIKey resolves the n8n API key the same way the original handler
// does: the N8N_API_KEY environment variable takes priority, falling back
// to ~/.config/n8n/api_key on disk. Returns "" if neither is set.
func LoadN8NAPIKey(logger commons.Logger) string {
	if key := os.Getenv(n8nAPIKeyEnv); key != "" {
		return key
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	raw, err := os.ReadFile(filepath.Join(home, ".config", "n8n", "api_key"))
	if err != nil {
		if !os.IsNotExist(err) {
			logger.Warnf("workflow client: could not read n8n api key file: %v", err)
		}
		return ""
	}
	return strings.TrimSpace(string(raw))
}

// ToolDefs returns the workflow_*/execution_*/tag_* tools ready for
// registry.Registry.Define.
func (h *WorkflowHandlers) ToolDefs() []registry.ToolDef {
	return []registry.ToolDef{
		{
			Group: WorkflowGroup,
			Tool: mcp.Tool{
				Name:        "workflow_list",
				Description: "List workflows on the configured n8n instance.",
				InputSchema: mcp.ToolInputSchema{
					Type:       "object",
					Properties: map[string]interface{}{"active_only": map[string]interface{}{"type": "boolean"}},
				},
			},
			Handler: h.handleList,
		},
		{
			Group: WorkflowGroup,
			Tool: mcp.Tool{
				Name:        "workflow_get",
				Description: "Fetch a single workflow's definition by id.",
				InputSchema: mcp.ToolInputSchema{
					Type:       "object",
					Properties: map[string]interface{}{"workflow_id": map[string]interface{}{"type": "string"}},
					Required:   []string{"workflow_id"},
				},
			},
			Handler: h.handleGet,
		},
		{
			Group: WorkflowGroup,
			Tool: mcp.Tool{
				Name:        "workflow_activate",
				Description: "Activate a workflow so its triggers start listening.",
				InputSchema: mcp.ToolInputSchema{
					Type:       "object",
					Properties: map[string]interface{}{"workflow_id": map[string]interface{}{"type": "string"}},
					Required:   []string{"workflow_id"},
				},
			},
			Handler: h.handleActivate,
		},
		{
			Group: WorkflowGroup,
			Tool: mcp.Tool{
				Name:        "workflow_deactivate",
				Description: "Deactivate a workflow, stopping its triggers.",
				InputSchema: mcp.ToolInputSchema{
					Type:       "object",
					Properties: map[string]interface{}{"workflow_id": map[string]interface{}{"type": "string"}},
					Required:   []string{"workflow_id"},
				},
			},
			Handler: h.handleDeactivate,
		},
		{
			Group:         WorkflowGroup,
			IsDestructive: true,
			Tool: mcp.Tool{
				Name:        "workflow_delete",
				Description: "Delete a workflow permanently.",
				InputSchema: mcp.ToolInputSchema{
					Type: "object",
					Properties: map[string]interface{}{
						"workflow_id": map[string]interface{}{"type": "string"},
						"confirmed":   map[string]interface{}{"type": "boolean"},
					},
					Required: []string{"workflow_id"},
				},
			},
			Handler: h.handleDelete,
		},
		{
			Group: WorkflowGroup,
			Tool: mcp.Tool{
				Name:        "execution_list",
				Description: "List recent executions for a workflow.",
				InputSchema: mcp.ToolInputSchema{
					Type:       "object",
					Properties: map[string]interface{}{"workflow_id": map[string]interface{}{"type": "string"}},
					Required:   []string{"workflow_id"},
				},
			},
			Handler: h.handleExecutionList,
		},
		{
			Group: WorkflowGroup,
			Tool: mcp.Tool{
				Name:        "execution_get",
				Description: "Fetch one execution's status and output by id.",
				InputSchema: mcp.ToolInputSchema{
					Type:       "object",
					Properties: map[string]interface{}{"execution_id": map[string]interface{}{"type": "string"}},
					Required:   []string{"execution_id"},
				},
			},
			Handler: h.handleExecutionGet,
		},
		{
			Group: WorkflowGroup,
			Tool: mcp.Tool{
				Name:        "tag_list",
				Description: "List the tags workflows can be grouped under.",
				InputSchema: mcp.ToolInputSchema{
					Type:       "object",
					Properties: map[string]interface{}{},
				},
			},
			Handler: h.handleTagList,
		},
	}
}

func (h *WorkflowHandlers) handleList(ctx context.Context, args map[string]interface{}) (*mcp.CallToolResult, error) {
	req := h.authedRequest(ctx)
	if activeOnly, _ := args["active_only"].(bool); activeOnly {
		req.SetQueryParam("active", "true")
	}
	var body map[string]interface{}
	resp, err := req.SetResult(&body).Get(h.baseURL + "/api/v1/workflows")
	if err != nil {
		return nil, fmt.Errorf("workflow_list: %w", err)
	}
	if resp.IsError() {
		return mcp.NewToolResultError(fmt.Sprintf("workflow_list: n8n returned %d", resp.StatusCode())), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("%v", body)), nil
}

func (h *WorkflowHandlers) handleGet(ctx context.Context, args map[string]interface{}) (*mcp.CallToolResult, error) {
	workflowID, _ := args["workflow_id"].(string)
	if strings.TrimSpace(workflowID) == "" {
		return mcp.NewToolResultError("workflow_get: workflow_id is required"), nil
	}
	var body map[string]interface{}
	resp, err := h.authedRequest(ctx).SetResult(&body).Get(h.baseURL + "/api/v1/workflows/" + workflowID)
	if err != nil {
		return nil, fmt.Errorf("workflow_get: %w", err)
	}
	if resp.IsError() {
		return mcp.NewToolResultError(fmt.Sprintf("workflow_get: n8n returned %d", resp.StatusCode())), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("%v", body)), nil
}

func (h *WorkflowHandlers) handleActivate(ctx context.Context, args map[string]interface{}) (*mcp.CallToolResult, error) {
	return h.postAction(ctx, args, "workflow_activate", "/activate")
}

func (h *WorkflowHandlers) handleDeactivate(ctx context.Context, args map[string]interface{}) (*mcp.CallToolResult, error) {
	return h.postAction(ctx, args, "workflow_deactivate", "/deactivate")
}

func (h *WorkflowHandlers) postAction(ctx context.Context, args map[string]interface{}, toolName, suffix string) (*mcp.CallToolResult, error) {
	workflowID, _ := args["workflow_id"].(string)
	if strings.TrimSpace(workflowID) == "" {
		return mcp.NewToolResultError(toolName + ": workflow_id is required"), nil
	}
	var body map[string]interface{}
	resp, err := h.authedRequest(ctx).SetResult(&body).Post(h.baseURL + "/api/v1/workflows/" + workflowID + suffix)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", toolName, err)
	}
	if resp.IsError() {
		return mcp.NewToolResultError(fmt.Sprintf("%s: n8n returned %d", toolName, resp.StatusCode())), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("%v", body)), nil
}

func (h *WorkflowHandlers) handleDelete(ctx context.Context, args map[string]interface{}) (*mcp.CallToolResult, error) {
	workflowID, _ := args["workflow_id"].(string)
	if strings.TrimSpace(workflowID) == "" {
		return mcp.NewToolResultError("workflow_delete: workflow_id is required"), nil
	}
	resp, err := h.authedRequest(ctx).Delete(h.baseURL + "/api/v1/workflows/" + workflowID)
	if err != nil {
		return nil, fmt.Errorf("workflow_delete: %w", err)
	}
	if resp.IsError() {
		return mcp.NewToolResultError(fmt.Sprintf("workflow_delete: n8n returned %d", resp.StatusCode())), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("workflow %s deleted", workflowID)), nil
}

func (h *WorkflowHandlers) handleExecutionList(ctx context.Context, args map[string]interface{}) (*mcp.CallToolResult, error) {
	workflowID, _ := args["workflow_id"].(string)
	if strings.TrimSpace(workflowID) == "" {
		return mcp.NewToolResultError("execution_list: workflow_id is required"), nil
	}
	var body map[string]interface{}
	resp, err := h.authedRequest(ctx).
		SetQueryParam("workflowId", workflowID).
		SetResult(&body).
		Get(h.baseURL + "/api/v1/executions")
	if err != nil {
		return nil, fmt.Errorf("execution_list: %w", err)
	}
	if resp.IsError() {
		return mcp.NewToolResultError(fmt.Sprintf("execution_list: n8n returned %d", resp.StatusCode())), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("%v", body)), nil
}

func (h *WorkflowHandlers) handleExecutionGet(ctx context.Context, args map[string]interface{}) (*mcp.CallToolResult, error) {
	executionID, _ := args["execution_id"].(string)
	if strings.TrimSpace(executionID) == "" {
		return mcp.NewToolResultError("execution_get: execution_id is required"), nil
	}
	var body map[string]interface{}
	resp, err := h.authedRequest(ctx).SetResult(&body).Get(h.baseURL + "/api/v1/executions/" + executionID)
	if err != nil {
		return nil, fmt.Errorf("execution_get: %w", err)
	}
	if resp.IsError() {
		return mcp.NewToolResultError(fmt.Sprintf("execution_get: n8n returned %d", resp.StatusCode())), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("%v", body)), nil
}

func (h *WorkflowHandlers) handleTagList(ctx context.Context, args map[string]interface{}) (*mcp.CallToolResult, error) {
	var body map[string]interface{}
	resp, err := h.authedRequest(ctx).SetResult(&body).Get(h.baseURL + "/api/v1/tags")
	if err != nil {
		return nil, fmt.Errorf("tag_list: %w", err)
	}
	if resp.IsError() {
		return mcp.NewToolResultError(fmt.Sprintf("tag_list: n8n returned %d", resp.StatusCode())), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("%v", body)), nil
}

// authedRequest attaches n8n's X-N8N-API-KEY header to a fresh request.
// The resty client itself enforces workflowRequestTimeout via its
// configured Timeout.
func (h *WorkflowHandlers) authedRequest(ctx context.Context) *resty.Request {
	return h.rest.R().SetContext(ctx).SetHeader("X-N8N-API-KEY", h.apiKey)
}
