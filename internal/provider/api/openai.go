// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.
package api

import (
	"context"
	"fmt"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/rapidaai/voicemirror/internal/provider"
	"github.com/rapidaai/voicemirror/pkg/commons"
	"github.com/rapidaai/voicemirror/pkg/utils"
)

const DefaultOpenAIModel = "gpt-4o-mini"

type openAIProvider struct {
	base
	client openai.Client
}

// NewOpenAIProvider builds an API provider backed by OpenAI's chat
// completions API via github.com/openai/openai-go.
func NewOpenAIProvider(spec Spec, logger commons.Logger) provider.Provider {
	opts := []option.RequestOption{}
	if spec.APIKey != "" {
		opts = append(opts, option.WithAPIKey(spec.APIKey))
	}
	if spec.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(spec.BaseURL))
	}
	if spec.Model == "" {
		spec.Model = DefaultOpenAIModel
	}
	return &openAIProvider{
		base:   newBase(spec, logger),
		client: openai.NewClient(opts...),
	}
}

func (p *openAIProvider) Send(ctx context.Context, text string) error {
	callCtx, history := p.beginRequest(ctx, text)

	params := openai.ChatCompletionNewParams{
		Model:    openai.ChatModel(p.spec.Model),
		Messages: toOpenAIMessages(history),
	}

	utils.Go(ctx, func() {
		stream := p.client.Chat.Completions.NewStreaming(callCtx, params)
		acc := openai.ChatCompletionAccumulator{}
		var full string
		for stream.Next() {
			chunk := stream.Current()
			acc.AddChunk(chunk)
			if len(chunk.Choices) > 0 {
				if delta := chunk.Choices[0].Delta.Content; delta != "" {
					full += delta
					p.emit(provider.Event{Type: provider.EventStreamToken, Token: delta})
				}
			}
		}
		if err := stream.Err(); err != nil {
			p.emit(provider.Event{Type: provider.EventError, ErrMessage: fmt.Sprintf("openai: %v", err)})
		}
		p.endRequest(full)
		p.emit(provider.Event{Type: provider.EventStreamEnd, FullText: full})
	})
	return nil
}

func toOpenAIMessages(history []provider.Message) []openai.ChatCompletionMessageParamUnion {
	out := make([]openai.ChatCompletionMessageParamUnion, 0, len(history))
	for _, m := range history {
		switch m.Role {
		case "system":
			out = append(out, openai.SystemMessage(m.Content))
		case "user":
			out = append(out, openai.UserMessage(m.Content))
		case "assistant":
			out = append(out, openai.AssistantMessage(m.Content))
		}
	}
	return out
}
