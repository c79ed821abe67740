// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.
package api

import (
	"context"
	"fmt"

	awssdk "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"
	"github.com/aws/smithy-go/logging"

	"github.com/rapidaai/voicemirror/internal/provider"
	"github.com/rapidaai/voicemirror/pkg/commons"
	"github.com/rapidaai/voicemirror/pkg/utils"
)

const DefaultBedrockModel = "anthropic.claude-3-5-sonnet-20241022-v2:0"

// BedrockCredential carries the three fields the teacher's own Bedrock
// caller (api/integration-api/internal/callers/bedrock/bedrock.go)
// resolves from a stored credential record.
type BedrockCredential struct {
	Region          string
	AccessKeyID     string
	SecretAccessKey string
}

type bedrockProvider struct {
	base
	cred BedrockCredential
}

// NewBedrockProvider builds an API provider backed by AWS Bedrock's
// Converse Stream API, grounded directly on the teacher's own Bedrock
// caller: aws-sdk-go-v2/config.LoadDefaultConfig with a static credentials
// provider and a config-level logger adapter.
func NewBedrockProvider(spec Spec, cred BedrockCredential, logger commons.Logger) provider.Provider {
	if spec.Model == "" {
		spec.Model = DefaultBedrockModel
	}
	return &bedrockProvider{base: newBase(spec, logger), cred: cred}
}

// Logf adapts this provider's logger to the smithy-go logging.Logger
// interface the teacher's bedrock caller implements on itself.
func (p *bedrockProvider) Logf(classification logging.Classification, format string, v ...interface{}) {
	p.logger.Debugf(format, v...)
}

func (p *bedrockProvider) client(ctx context.Context) (*bedrockruntime.Client, error) {
	cfg, err := config.LoadDefaultConfig(ctx,
		config.WithRegion(p.cred.Region),
		config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(p.cred.AccessKeyID, p.cred.SecretAccessKey, ""),
		),
		config.WithLogger(p),
	)
	if err != nil {
		return nil, fmt.Errorf("resolving bedrock credentials: %w", err)
	}
	return bedrockruntime.NewFromConfig(cfg), nil
}

func (p *bedrockProvider) Send(ctx context.Context, text string) error {
	callCtx, history := p.beginRequest(ctx, text)

	client, err := p.client(callCtx)
	if err != nil {
		p.endRequest("")
		p.emit(provider.Event{Type: provider.EventError, ErrMessage: err.Error()})
		return err
	}

	input := &bedrockruntime.ConverseStreamInput{
		ModelId:  awssdk.String(p.spec.Model),
		Messages: toBedrockMessages(history),
	}

	utils.Go(ctx, func() {
		out, err := client.ConverseStream(callCtx, input)
		if err != nil {
			p.emit(provider.Event{Type: provider.EventError, ErrMessage: fmt.Sprintf("bedrock: %v", err)})
			p.endRequest("")
			return
		}

		var full string
		stream := out.GetStream()
		defer stream.Close()
		for event := range stream.Events() {
			delta, ok := event.(*types.ConverseStreamOutputMemberContentBlockDelta)
			if !ok {
				continue
			}
			textDelta, ok := delta.Value.Delta.(*types.ContentBlockDeltaMemberText)
			if !ok {
				continue
			}
			full += textDelta.Value
			p.emit(provider.Event{Type: provider.EventStreamToken, Token: textDelta.Value})
		}
		if err := stream.Err(); err != nil {
			p.emit(provider.Event{Type: provider.EventError, ErrMessage: fmt.Sprintf("bedrock stream: %v", err)})
		}
		p.endRequest(full)
		p.emit(provider.Event{Type: provider.EventStreamEnd, FullText: full})
	})
	return nil
}

func toBedrockMessages(history []provider.Message) []types.Message {
	out := make([]types.Message, 0, len(history))
	for _, m := range history {
		var role types.ConversationRole
		switch m.Role {
		case "user":
			role = types.ConversationRoleUser
		case "assistant":
			role = types.ConversationRoleAssistant
		default:
			continue
		}
		out = append(out, types.Message{
			Role:    role,
			Content: []types.ContentBlock{&types.ContentBlockMemberText{Value: m.Content}},
		})
	}
	return out
}
