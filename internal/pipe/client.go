// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.
package pipe

import (
	"context"
	"fmt"
	"net"
	"sync"

	"github.com/rapidaai/voicemirror/pkg/commons"
)

// Client is the MCP-process-side connection to the host. It is uniquely
// owned by a Router (spec.md §9 "the pipe client is uniquely owned by the
// router"); handlers never touch it directly. Write access is serialized by
// writeMu, matching the teacher's websocketExecutor.writeMu split from its
// read-side mu (internal/agent/executor/llm/internal/websocket).
type Client struct {
	logger  commons.Logger
	conn    net.Conn
	writeMu sync.Mutex
}

// Connect dials the pipe named by the PIPE_NAME environment variable
// (spec.md §6). Returns (nil, err) if the pipe is absent or unreachable —
// callers fall back to the file-based path (spec.md §7 "transient IO
// error").
func Connect(ctx context.Context, pipeName string, logger commons.Logger) (*Client, error) {
	if pipeName == "" {
		return nil, fmt.Errorf("pipe: PIPE_NAME not set")
	}
	conn, err := Dial(ctx, pipeName)
	if err != nil {
		return nil, err
	}
	return &Client{logger: logger, conn: conn}, nil
}

// NewClient wraps an already-established connection, used by tests and by
// callers that obtained conn via their own Listen/Dial call.
func NewClient(conn net.Conn, logger commons.Logger) *Client {
	return &Client{logger: logger, conn: conn}
}

// Send writes one frame. Safe for concurrent callers.
func (c *Client) Send(t MessageType, payload interface{}) error {
	f, err := Encode(t, payload)
	if err != nil {
		return err
	}
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return WriteFrame(c.conn, f)
}

// Recv blocks for the next frame from the peer.
func (c *Client) Recv() (Frame, error) {
	return ReadFrame(c.conn)
}

// Close releases the underlying connection. Idempotent-enough for the
// single call site (Router.Close); double-close returns an error the
// caller discards.
func (c *Client) Close() error {
	return c.conn.Close()
}
