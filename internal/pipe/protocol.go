// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

// Package pipe implements the duplex IPC transport between the MCP process
// and the UI host (spec.md §4.4/§6): a length-prefixed JSON frame stream
// correlating browser-action requests/responses by id and fanning out
// user messages to whichever voice_listen call is waiting.
//
// The envelope shape is grounded on the teacher's WSRequest/WSResponse
// tagged-union pair (internal/agent/executor/llm/internal/websocket), ported
// from a websocket connection to a unix-domain-socket/named-pipe byte
// stream with 4-byte length-prefixed framing instead of websocket framing.
package pipe

import "encoding/json"

// MessageType is the tagged-union discriminant for every Frame exchanged
// over the pipe, in either direction (spec.md §4.4 "two message families").
type MessageType string

const (
	// MCP -> App
	TypeVoiceSend      MessageType = "voice_send"
	TypeListenStart    MessageType = "listen_start"
	TypeBrowserRequest MessageType = "browser_request"

	// App -> MCP
	TypeUserMessage     MessageType = "user_message"
	TypeBrowserResponse MessageType = "browser_response"
	TypeShutdown        MessageType = "shutdown"
)

// Frame is the single envelope shape carried over the wire: a Type
// discriminant plus a raw JSON payload, decoded into the matching Data*
// struct by the caller once Type is known. Mirrors WSRequest/WSResponse
// collapsed into one struct, since Go has no sum types (spec.md §9).
type Frame struct {
	Type MessageType     `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// VoiceSendData is the MCP->App payload asking the host to deliver a
// synthesized utterance or text message to the active provider.
type VoiceSendData struct {
	From      string `json:"from"`
	Message   string `json:"message"`
	ThreadID  string `json:"thread_id,omitempty"`
	Timestamp string `json:"timestamp"`
}

// ListenStartData announces that a voice_listen call has begun waiting for
// a UserMessage addressed to (Sender, ThreadID).
type ListenStartData struct {
	Sender   string `json:"sender"`
	ThreadID string `json:"thread_id,omitempty"`
}

// BrowserRequestData is one correlated browser-action request (spec.md §3
// "Browser request correlation").
type BrowserRequestData struct {
	RequestID string                 `json:"request_id"`
	Action    string                 `json:"action"`
	Arguments map[string]interface{} `json:"arguments,omitempty"`
}

// UserMessageData is the App->MCP delivery of a new inbox message, used
// both to satisfy a waiting voice_listen and to seed the file-backed inbox.
type UserMessageData struct {
	ID           string `json:"id"`
	From         string `json:"from"`
	Message      string `json:"message"`
	ThreadID     string `json:"thread_id,omitempty"`
	Timestamp    string `json:"timestamp"`
	ImagePath    string `json:"image_path,omitempty"`
	ImageDataURL string `json:"image_data_url,omitempty"`
}

// BrowserResponseData answers a previously-registered BrowserRequestData by
// RequestID (spec.md invariant 4).
type BrowserResponseData struct {
	RequestID string      `json:"request_id"`
	Success   bool        `json:"success"`
	Result    interface{} `json:"result,omitempty"`
	Error     string      `json:"error,omitempty"`
}

// Encode wraps a typed payload into a Frame ready for WriteFrame.
func Encode(t MessageType, payload interface{}) (Frame, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return Frame{}, err
	}
	return Frame{Type: t, Data: raw}, nil
}
