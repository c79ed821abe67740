// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

// Package server implements the MCP JSON-RPC-over-stdio dispatch loop
// (spec.md §4.3/§6): line-delimited JSON-RPC 2.0, one request per line, no
// Content-Length framing. The wire types come from
// github.com/mark3labs/mcp-go/mcp; the loop itself, the destructive-
// confirmation gate, and the list-changed notification timing are
// hand-written because mcp-go's own server runtime assumes a different
// lifecycle than this spec's auto-unload/confirmation-gate semantics
// (SPEC_FULL.md §4).
package server

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"runtime/debug"
	"sync"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/rapidaai/voicemirror/internal/mcp/registry"
	"github.com/rapidaai/voicemirror/pkg/commons"
)

const protocolVersion = "2024-11-05"

// request is the line-delimited JSON-RPC 2.0 envelope (spec.md §6).
type request struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id,omitempty"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

type response struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id,omitempty"`
	Result  interface{}     `json:"result,omitempty"`
	Error   *rpcError       `json:"error,omitempty"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// Server is the stdio JSON-RPC dispatch loop over a Registry.
type Server struct {
	logger   commons.Logger
	reg      *registry.Registry
	name     string
	version  string

	writeMu sync.Mutex
	out     io.Writer
}

// New returns a Server over reg; Serve supplies the reader and writer
// (ordinarily os.Stdin/os.Stdout).
func New(reg *registry.Registry, name, version string, logger commons.Logger) *Server {
	return &Server{reg: reg, name: name, version: version, logger: logger}
}

// Serve blocks reading newline-delimited requests from in until EOF
// (spec.md §7 "Only stdin EOF of the MCP server is a clean shutdown
// trigger") or ctx is cancelled.
func (s *Server) Serve(ctx context.Context, in io.Reader, out io.Writer) error {
	s.out = out
	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 0, 64*1024), 16<<20)

	for scanner.Scan() {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		s.handleLine(ctx, append([]byte(nil), line...))
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("mcp server: read loop: %w", err)
	}
	return nil
}

// handleLine decodes and dispatches one request, recovering and logging
// any panic that escapes dispatch; a panicking tool handler is converted
// to an error result by invoke (spec.md §7 "Any unexpected panic in a
// handler is caught at the dispatch boundary"). After a tools/call result
// it writes notifications/tools/list_changed if the tool set changed.
func (s *Server) handleLine(ctx context.Context, line []byte) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Errorf("mcp server: recovered panic dispatching request: %v\n%s", r, debug.Stack())
		}
	}()

	var req request
	if err := json.Unmarshal(line, &req); err != nil {
		s.writeError(nil, -32700, fmt.Sprintf("parse error: %v", err))
		return
	}

	isNotification := len(req.ID) == 0
	result, rpcErr := s.dispatch(ctx, req)

	if isNotification {
		return // notifications never receive a reply (spec.md §6)
	}
	if rpcErr != nil {
		s.writeError(req.ID, rpcErr.Code, rpcErr.Message)
		return
	}
	s.writeResult(req.ID, result)
	if req.Method == "tools/call" && s.reg.TakeToolsChanged() {
		s.writeNotification("notifications/tools/list_changed", nil)
	}
}

func (s *Server) dispatch(ctx context.Context, req request) (interface{}, *rpcError) {
	switch req.Method {
	case "initialize":
		return s.handleInitialize(), nil
	case "initialized", "notifications/cancelled":
		return nil, nil // no-op, no reply (spec.md §4.3)
	case "tools/list":
		return map[string]interface{}{"tools": s.reg.Loaded()}, nil
	case "tools/call":
		return s.handleToolsCall(ctx, req.Params)
	default:
		return nil, &rpcError{Code: -32601, Message: fmt.Sprintf("method not found: %s", req.Method)}
	}
}

func (s *Server) handleInitialize() map[string]interface{} {
	return map[string]interface{}{
		"protocolVersion": protocolVersion,
		"capabilities": map[string]interface{}{
			"tools": map[string]interface{}{"listChanged": true},
		},
		"serverInfo": map[string]interface{}{
			"name":    s.name,
			"version": s.version,
		},
	}
}

type toolsCallParams struct {
	Name      string                 `json:"name"`
	Arguments map[string]interface{} `json:"arguments"`
}

func (s *Server) handleToolsCall(ctx context.Context, raw json.RawMessage) (interface{}, *rpcError) {
	var params toolsCallParams
	if err := json.Unmarshal(raw, &params); err != nil {
		return nil, &rpcError{Code: -32602, Message: fmt.Sprintf("invalid params: %v", err)}
	}

	def, ok := s.reg.Lookup(params.Name)
	if !ok {
		return nil, &rpcError{Code: -32602, Message: fmt.Sprintf("unknown or unloaded tool: %s", params.Name)}
	}

	if def.IsDestructive && !confirmed(params.Arguments) {
		return confirmationRequiredResult(params.Name), nil
	}

	result, err := s.invoke(ctx, def, params.Arguments)
	s.reg.RecordCall(params.Name)
	s.reg.SweepIdleGroups()

	if err != nil {
		return &mcp.CallToolResult{
			Content: []mcp.Content{mcp.NewTextContent(fmt.Sprintf("tool %s failed: %v", params.Name, err))},
			IsError: true,
		}, nil
	}

	return result, nil
}

// invoke recovers a panicking handler into an error, converting spec.md
// §7's "Fatal" category at the single-tool granularity it actually applies
// to: one tool's failure never takes down the server.
func (s *Server) invoke(ctx context.Context, def registry.ToolDef, args map[string]interface{}) (result *mcp.CallToolResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return def.Handler(ctx, args)
}

func confirmed(args map[string]interface{}) bool {
	v, ok := args["confirmed"]
	if !ok {
		return false
	}
	b, ok := v.(bool)
	return ok && b
}

func confirmationRequiredResult(toolName string) *mcp.CallToolResult {
	msg := fmt.Sprintf(
		"CONFIRMATION REQUIRED: %s is destructive and was not executed. Re-invoke with {\"confirmed\": true} to proceed.",
		toolName,
	)
	return &mcp.CallToolResult{
		Content: []mcp.Content{mcp.NewTextContent(msg)},
		IsError: false,
	}
}

func (s *Server) writeResult(id json.RawMessage, result interface{}) {
	s.write(response{JSONRPC: "2.0", ID: id, Result: result})
}

func (s *Server) writeError(id json.RawMessage, code int, message string) {
	s.write(response{JSONRPC: "2.0", ID: id, Error: &rpcError{Code: code, Message: message}})
}

// writeNotification sends a JSON-RPC notification (no id field, no reply
// expected) — used for notifications/tools/list_changed (spec.md §4.3).
func (s *Server) writeNotification(method string, params interface{}) {
	s.write(struct {
		JSONRPC string      `json:"jsonrpc"`
		Method  string      `json:"method"`
		Params  interface{} `json:"params,omitempty"`
	}{JSONRPC: "2.0", Method: method, Params: params})
}

func (s *Server) write(v interface{}) {
	raw, err := json.Marshal(v)
	if err != nil {
		s.logger.Errorf("mcp server: failed to marshal response: %v", err)
		return
	}
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	if _, err := s.out.Write(append(raw, '\n')); err != nil {
		s.logger.Errorf("mcp server: failed to write response: %v", err)
	}
}
