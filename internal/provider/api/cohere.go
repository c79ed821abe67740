// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.
package api

import (
	"context"
	"fmt"
	"io"

	coherego "github.com/cohere-ai/cohere-go/v2"
	cohereclient "github.com/cohere-ai/cohere-go/v2/client"
	"github.com/cohere-ai/cohere-go/v2/option"

	"github.com/rapidaai/voicemirror/internal/provider"
	"github.com/rapidaai/voicemirror/pkg/commons"
	"github.com/rapidaai/voicemirror/pkg/utils"
)

const DefaultCohereModel = "command-r-plus"

type cohereProvider struct {
	base
	client *cohereclient.Client
}

// NewCohereProvider builds an API provider backed by Cohere's chat API via
// github.com/cohere-ai/cohere-go/v2, splitting history the way Cohere's
// v1 chat endpoint requires: preamble (system) / chat_history / message
// (the last user turn).
func NewCohereProvider(spec Spec, logger commons.Logger) provider.Provider {
	if spec.Model == "" {
		spec.Model = DefaultCohereModel
	}
	opts := []option.RequestOption{cohereclient.WithToken(spec.APIKey)}
	if spec.BaseURL != "" {
		opts = append(opts, cohereclient.WithBaseURL(spec.BaseURL))
	}
	return &cohereProvider{
		base:   newBase(spec, logger),
		client: cohereclient.NewClient(opts...),
	}
}

func (p *cohereProvider) Send(ctx context.Context, text string) error {
	callCtx, history := p.beginRequest(ctx, text)

	preamble, chatHistory, message := splitCohereMessages(history)
	req := &coherego.ChatStreamRequest{
		Message: message,
		Model:   &p.spec.Model,
	}
	if preamble != "" {
		req.Preamble = &preamble
	}
	if len(chatHistory) > 0 {
		req.ChatHistory = chatHistory
	}

	utils.Go(ctx, func() {
		stream, err := p.client.ChatStream(callCtx, req)
		if err != nil {
			p.emit(provider.Event{Type: provider.EventError, ErrMessage: fmt.Sprintf("cohere: %v", err)})
			p.endRequest("")
			return
		}
		defer stream.Close()

		var full string
		for {
			event, err := stream.Recv()
			if err == io.EOF {
				break
			}
			if err != nil {
				p.emit(provider.Event{Type: provider.EventError, ErrMessage: fmt.Sprintf("cohere: %v", err)})
				break
			}
			if event.TextGeneration != nil {
				full += event.TextGeneration.Text
				p.emit(provider.Event{Type: provider.EventStreamToken, Token: event.TextGeneration.Text})
			}
		}
		p.endRequest(full)
		p.emit(provider.Event{Type: provider.EventStreamEnd, FullText: full})
	})
	return nil
}

// splitCohereMessages maps this module's flat role-tagged history onto
// Cohere's preamble/chat_history/message split (grounded on
// lookatitude-beluga-ai's cohere provider buildRequest).
func splitCohereMessages(history []provider.Message) (preamble string, chatHistory []*coherego.ChatMessage, message string) {
	var rest []provider.Message
	for i, m := range history {
		if i == 0 && m.Role == "system" {
			preamble = m.Content
			continue
		}
		rest = append(rest, m)
	}
	if len(rest) == 0 {
		return preamble, nil, ""
	}
	last := rest[len(rest)-1]
	message = last.Content
	for _, m := range rest[:len(rest)-1] {
		role := coherego.ChatMessageRoleUser
		if m.Role == "assistant" {
			role = coherego.ChatMessageRoleChatbot
		}
		chatHistory = append(chatHistory, &coherego.ChatMessage{Role: role, Message: m.Content})
	}
	return preamble, chatHistory, message
}
