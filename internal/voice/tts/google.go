// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.
package tts

import (
	"context"
	"fmt"

	texttospeech "cloud.google.com/go/texttospeech/apiv1"
	texttospeechpb "cloud.google.com/go/texttospeech/apiv1/texttospeechpb"

	"github.com/rapidaai/voicemirror/pkg/commons"
)

type googleEngine struct {
	logger   commons.Logger
	client   *texttospeech.Client
	voice    string
	language string
	sampleHz int
}

// NewGoogleEngine builds the Google Cloud Text-to-Speech backend.
func NewGoogleEngine(ctx context.Context, voice, language string, sampleRateHz int, logger commons.Logger) (Engine, error) {
	client, err := texttospeech.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("google tts: new client: %w", err)
	}
	if language == "" {
		language = "en-US"
	}
	return &googleEngine{logger: logger, client: client, voice: voice, language: language, sampleHz: sampleRateHz}, nil
}

func (e *googleEngine) Name() string { return "google" }

func (e *googleEngine) Synthesize(ctx context.Context, text string) (<-chan []byte, <-chan error) {
	audioCh := make(chan []byte, 4)
	errc := make(chan error, 1)

	go func() {
		defer close(audioCh)
		defer close(errc)

		resp, err := e.client.SynthesizeSpeech(ctx, &texttospeechpb.SynthesizeSpeechRequest{
			Input: &texttospeechpb.SynthesisInput{
				InputSource: &texttospeechpb.SynthesisInput_Text{Text: text},
			},
			Voice: &texttospeechpb.VoiceSelectionParams{
				LanguageCode: e.language,
				Name:         e.voice,
			},
			AudioConfig: &texttospeechpb.AudioConfig{
				AudioEncoding:   texttospeechpb.AudioEncoding_LINEAR16,
				SampleRateHertz: int32(e.sampleHz),
			},
		})
		if err != nil {
			errc <- fmt.Errorf("google tts: synthesize: %w", err)
			return
		}

		data := resp.AudioContent
		const chunkSize = 3200
		for i := 0; i < len(data); i += chunkSize {
			end := i + chunkSize
			if end > len(data) {
				end = len(data)
			}
			select {
			case audioCh <- data[i:end]:
			case <-ctx.Done():
				return
			}
		}
	}()

	return audioCh, errc
}

func (e *googleEngine) Close() error {
	return e.client.Close()
}
