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

	"github.com/deepgram/deepgram-go-sdk/v3/pkg/client/interfaces"
	prerecorded "github.com/deepgram/deepgram-go-sdk/v3/pkg/client/prerecorded"

	"github.com/rapidaai/voicemirror/pkg/commons"
)

const DefaultDeepgramModel = "nova-2"

type deepgramEngine struct {
	logger commons.Logger
	client *prerecorded.Client
	model  string
}

// NewDeepgramEngine builds the default STT engine (config.VoiceConfig
// .STTEngine == "deepgram"), backed by Deepgram's prerecorded
// transcription API — a one-shot call over the whole utterance buffer,
// matching this module's blocking Engine contract directly rather than
// the teacher's live-streaming cartesia STT transformer.
func NewDeepgramEngine(apiKey, model string, logger commons.Logger) (Engine, error) {
	if model == "" {
		model = DefaultDeepgramModel
	}
	client := prerecorded.New(&interfaces.ClientOptions{APIKey: apiKey})
	return &deepgramEngine{logger: logger, client: client, model: model}, nil
}

func (e *deepgramEngine) Name() string { return "deepgram" }

func (e *deepgramEngine) Transcribe(ctx context.Context, pcm []byte, sampleRateHz int) (string, error) {
	resp, err := e.client.FromMemory(ctx, pcm, &interfaces.PreRecordedTranscriptionOptions{
		Model:      e.model,
		Encoding:   "linear16",
		SampleRate: sampleRateHz,
		Channels:   1,
		SmartFormat: true,
	})
	if err != nil {
		return "", fmt.Errorf("deepgram transcribe: %w", err)
	}

	var b strings.Builder
	for _, ch := range resp.Results.Channels {
		if len(ch.Alternatives) == 0 {
			continue
		}
		if b.Len() > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(ch.Alternatives[0].Transcript)
	}
	return strings.TrimSpace(b.String()), nil
}

func (e *deepgramEngine) Close() error {
	e.logger.Debug("deepgram: engine closed")
	return nil
}
