// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.
package stt

import (
	"context"
	"fmt"
	"strings"

	speech "cloud.google.com/go/speech/apiv1"
	speechpb "cloud.google.com/go/speech/apiv1/speechpb"

	"github.com/rapidaai/voicemirror/pkg/commons"
)

type googleEngine struct {
	logger   commons.Logger
	client   *speech.Client
	language string
}

// NewGoogleEngine builds the Google Cloud Speech-to-Text backend.
func NewGoogleEngine(ctx context.Context, language string, logger commons.Logger) (Engine, error) {
	client, err := speech.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("google stt: new client: %w", err)
	}
	if language == "" {
		language = "en-US"
	}
	return &googleEngine{logger: logger, client: client, language: language}, nil
}

func (e *googleEngine) Name() string { return "google" }

func (e *googleEngine) Transcribe(ctx context.Context, pcm []byte, sampleRateHz int) (string, error) {
	resp, err := e.client.Recognize(ctx, &speechpb.RecognizeRequest{
		Config: &speechpb.RecognitionConfig{
			Encoding:        speechpb.RecognitionConfig_LINEAR16,
			SampleRateHertz: int32(sampleRateHz),
			LanguageCode:    e.language,
		},
		Audio: &speechpb.RecognitionAudio{
			AudioSource: &speechpb.RecognitionAudio_Content{Content: pcm},
		},
	})
	if err != nil {
		return "", fmt.Errorf("google stt: recognize: %w", err)
	}

	var b strings.Builder
	for _, result := range resp.Results {
		if len(result.Alternatives) == 0 {
			continue
		}
		if b.Len() > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(result.Alternatives[0].Transcript)
	}
	return strings.TrimSpace(b.String()), nil
}

func (e *googleEngine) Close() error {
	return e.client.Close()
}
