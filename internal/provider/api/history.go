// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

// Package api implements the HTTP/streaming API provider variant (spec.md
// §3 "API provider"): one file per vendor backend, each holding its own
// HTTP client, model id, conversation history and pending-request
// cancellation handle. Grounded directly on
// pkg/clients/integration/integration_client.go's per-provider dispatch
// shape (one method per vendor, switched by provider name there; one
// Provider implementation per vendor here), ported from the teacher's
// gRPC-proxied vendor clients to native vendor SDKs.
package api

import (
	"github.com/pkoukk/tiktoken-go"

	"github.com/rapidaai/voicemirror/internal/provider"
)

// trimmer bounds an API provider's conversation history to a token budget
// before every request. The teacher's gRPC-proxied chat calls leave
// trimming to the remote integration service; here the history lives
// entirely in-process, so this module must do it itself — the one place
// this package adds something with no teacher equivalent (see DESIGN.md).
type trimmer struct {
	enc      *tiktoken.Tiktoken
	maxTokens int
}

// newTrimmer builds a trimmer for maxTokens, falling back to a
// conservative byte-length estimate if the encoding table can't be loaded
// (e.g. no network access to tiktoken-go's bundled BPE ranks).
func newTrimmer(maxTokens int) *trimmer {
	if maxTokens <= 0 {
		maxTokens = 8000
	}
	enc, _ := tiktoken.GetEncoding("cl100k_base")
	return &trimmer{enc: enc, maxTokens: maxTokens}
}

func (t *trimmer) tokenCount(s string) int {
	if t.enc != nil {
		return len(t.enc.Encode(s, nil, nil))
	}
	// ~4 characters per token is the standard fallback estimate.
	return len(s) / 4
}

// trim drops the oldest messages (preserving any leading system message)
// until the remaining history's estimated token count fits the budget.
func (t *trimmer) trim(history []provider.Message) []provider.Message {
	total := 0
	for _, m := range history {
		total += t.tokenCount(m.Content)
	}
	if total <= t.maxTokens {
		return history
	}

	var system *provider.Message
	rest := history
	if len(history) > 0 && history[0].Role == "system" {
		system = &history[0]
		rest = history[1:]
	}

	kept := make([]provider.Message, 0, len(rest))
	running := 0
	if system != nil {
		running += t.tokenCount(system.Content)
	}
	for i := len(rest) - 1; i >= 0; i-- {
		c := t.tokenCount(rest[i].Content)
		if running+c > t.maxTokens && len(kept) > 0 {
			break
		}
		running += c
		kept = append([]provider.Message{rest[i]}, kept...)
	}

	if system != nil {
		return append([]provider.Message{*system}, kept...)
	}
	return kept
}
