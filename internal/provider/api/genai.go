// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.
package api

import (
	"context"
	"fmt"

	"google.golang.org/genai"

	"github.com/rapidaai/voicemirror/internal/provider"
	"github.com/rapidaai/voicemirror/pkg/commons"
	"github.com/rapidaai/voicemirror/pkg/utils"
)

const DefaultGeminiModel = "gemini-2.0-flash"

type geminiProvider struct {
	base
	client *genai.Client
}

// NewGeminiProvider builds an API provider backed by Google's Gemini
// models via google.golang.org/genai.
func NewGeminiProvider(spec Spec, logger commons.Logger) (provider.Provider, error) {
	if spec.Model == "" {
		spec.Model = DefaultGeminiModel
	}
	cc := &genai.ClientConfig{APIKey: spec.APIKey, Backend: genai.BackendGeminiAPI}
	if spec.BaseURL != "" {
		cc.HTTPOptions = genai.HTTPOptions{BaseURL: spec.BaseURL}
	}
	client, err := genai.NewClient(context.Background(), cc)
	if err != nil {
		return nil, fmt.Errorf("creating gemini client: %w", err)
	}
	return &geminiProvider{base: newBase(spec, logger), client: client}, nil
}

func (p *geminiProvider) Send(ctx context.Context, text string) error {
	callCtx, history := p.beginRequest(ctx, text)

	contents, cfg := toGeminiRequest(history)

	utils.Go(ctx, func() {
		var full string
		for resp, err := range p.client.Models.GenerateContentStream(callCtx, p.spec.Model, contents, cfg) {
			if err != nil {
				p.emit(provider.Event{Type: provider.EventError, ErrMessage: fmt.Sprintf("gemini: %v", err)})
				break
			}
			delta := resp.Text()
			if delta != "" {
				full += delta
				p.emit(provider.Event{Type: provider.EventStreamToken, Token: delta})
			}
		}
		p.endRequest(full)
		p.emit(provider.Event{Type: provider.EventStreamEnd, FullText: full})
	})
	return nil
}

func toGeminiRequest(history []provider.Message) ([]*genai.Content, *genai.GenerateContentConfig) {
	cfg := &genai.GenerateContentConfig{}
	var contents []*genai.Content
	for _, m := range history {
		switch m.Role {
		case "system":
			cfg.SystemInstruction = genai.NewContentFromText(m.Content, genai.RoleUser)
		case "user":
			contents = append(contents, genai.NewContentFromText(m.Content, genai.RoleUser))
		case "assistant":
			contents = append(contents, genai.NewContentFromText(m.Content, genai.RoleModel))
		}
	}
	return contents, cfg
}
