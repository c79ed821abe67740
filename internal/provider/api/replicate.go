// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.
package api

import (
	"context"
	"fmt"
	"strings"

	"github.com/replicate/replicate-go"

	"github.com/rapidaai/voicemirror/internal/provider"
	"github.com/rapidaai/voicemirror/pkg/commons"
	"github.com/rapidaai/voicemirror/pkg/utils"
)

const DefaultReplicateModel = "meta/meta-llama-3-70b-instruct"

type replicateProvider struct {
	base
	client *replicate.Client
}

// NewReplicateProvider builds an API provider backed by Replicate's
// predictions API via github.com/replicate/replicate-go. Unlike the other
// vendor backends, Replicate's run call does not hand back a token
// stream: it polls a prediction until it lands in a terminal state, so
// this provider emits one EventStreamEnd rather than incremental
// EventStreamToken events.
func NewReplicateProvider(spec Spec, logger commons.Logger) (provider.Provider, error) {
	if spec.Model == "" {
		spec.Model = DefaultReplicateModel
	}
	opts := []replicate.ClientOption{replicate.WithToken(spec.APIKey)}
	if spec.BaseURL != "" {
		opts = append(opts, replicate.WithBaseURL(spec.BaseURL))
	}
	client, err := replicate.NewClient(opts...)
	if err != nil {
		return nil, fmt.Errorf("creating replicate client: %w", err)
	}
	return &replicateProvider{base: newBase(spec, logger), client: client}, nil
}

func (p *replicateProvider) Send(ctx context.Context, text string) error {
	callCtx, history := p.beginRequest(ctx, text)

	input := replicate.PredictionInput{
		"prompt":        text,
		"system_prompt": systemPromptOf(history),
	}

	utils.Go(ctx, func() {
		output, err := p.client.Run(callCtx, p.spec.Model, input, nil)
		if err != nil {
			p.emit(provider.Event{Type: provider.EventError, ErrMessage: fmt.Sprintf("replicate: %v", err)})
			p.endRequest("")
			return
		}
		full := joinReplicateOutput(output)
		p.endRequest(full)
		p.emit(provider.Event{Type: provider.EventStreamEnd, FullText: full})
	})
	return nil
}

func systemPromptOf(history []provider.Message) string {
	if len(history) > 0 && history[0].Role == "system" {
		return history[0].Content
	}
	return ""
}

// joinReplicateOutput flattens the run output, which may come back as a
// single string or a list of string tokens depending on the model.
func joinReplicateOutput(output any) string {
	switch v := output.(type) {
	case string:
		return v
	case []string:
		return strings.Join(v, "")
	case []any:
		var b strings.Builder
		for _, part := range v {
			if s, ok := part.(string); ok {
				b.WriteString(s)
			}
		}
		return b.String()
	default:
		return fmt.Sprintf("%v", v)
	}
}
