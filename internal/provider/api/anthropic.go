// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.
package api

import (
	"context"
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/rapidaai/voicemirror/internal/provider"
	"github.com/rapidaai/voicemirror/pkg/commons"
	"github.com/rapidaai/voicemirror/pkg/utils"
)

const DefaultAnthropicModel = "claude-3-5-sonnet-latest"

type anthropicProvider struct {
	base
	client anthropic.Client
}

// NewAnthropicProvider builds an API provider backed by Anthropic's Claude
// models via github.com/anthropics/anthropic-sdk-go, streaming token
// deltas onto the provider event channel the same way the teacher's
// cartesiaTTS reads its websocket in a background goroutine.
func NewAnthropicProvider(spec Spec, logger commons.Logger) provider.Provider {
	opts := []option.RequestOption{}
	if spec.APIKey != "" {
		opts = append(opts, option.WithAPIKey(spec.APIKey))
	}
	if spec.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(spec.BaseURL))
	}
	if spec.Model == "" {
		spec.Model = DefaultAnthropicModel
	}
	return &anthropicProvider{
		base:   newBase(spec, logger),
		client: anthropic.NewClient(opts...),
	}
}

func (p *anthropicProvider) Send(ctx context.Context, text string) error {
	callCtx, history := p.beginRequest(ctx, text)

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(p.spec.Model),
		MaxTokens: 2048,
		Messages:  toAnthropicMessages(history),
	}

	utils.Go(ctx, func() {
		stream := p.client.Messages.NewStreaming(callCtx, params)
		var full string
		for stream.Next() {
			event := stream.Current()
			if delta, ok := event.AsAny().(anthropic.ContentBlockDeltaEvent); ok {
				if text := delta.Delta.Text; text != "" {
					full += text
					p.emit(provider.Event{Type: provider.EventStreamToken, Token: text})
				}
			}
		}
		if err := stream.Err(); err != nil {
			p.emit(provider.Event{Type: provider.EventError, ErrMessage: fmt.Sprintf("anthropic: %v", err)})
		}
		p.endRequest(full)
		p.emit(provider.Event{Type: provider.EventStreamEnd, FullText: full})
	})
	return nil
}

func toAnthropicMessages(history []provider.Message) []anthropic.MessageParam {
	out := make([]anthropic.MessageParam, 0, len(history))
	for _, m := range history {
		switch m.Role {
		case "user":
			out = append(out, anthropic.NewUserMessage(anthropic.NewTextBlock(m.Content)))
		case "assistant":
			out = append(out, anthropic.NewAssistantMessage(anthropic.NewTextBlock(m.Content)))
		}
	}
	return out
}
