// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.
package stt

import (
	"context"
	"fmt"

	"github.com/Microsoft/cognitive-services-speech-sdk-go/audio"
	"github.com/Microsoft/cognitive-services-speech-sdk-go/speech"

	"github.com/rapidaai/voicemirror/pkg/commons"
)

type azureEngine struct {
	logger   commons.Logger
	key      string
	region   string
	language string
}

// NewAzureEngine builds the Azure Cognitive Services STT backend.
func NewAzureEngine(key, region, language string, logger commons.Logger) (Engine, error) {
	if language == "" {
		language = "en-US"
	}
	return &azureEngine{logger: logger, key: key, region: region, language: language}, nil
}

func (e *azureEngine) Name() string { return "azure" }

func (e *azureEngine) Transcribe(ctx context.Context, pcm []byte, sampleRateHz int) (string, error) {
	speechConfig, err := speech.NewSpeechConfigFromSubscription(e.key, e.region)
	if err != nil {
		return "", fmt.Errorf("azure stt: speech config: %w", err)
	}
	defer speechConfig.Close()
	speechConfig.SetSpeechRecognitionLanguage(e.language)

	format, err := audio.GetDefaultInputFormat()
	if err != nil {
		return "", fmt.Errorf("azure stt: input format: %w", err)
	}
	defer format.Close()

	stream, err := audio.CreatePushAudioInputStreamFromFormat(format)
	if err != nil {
		return "", fmt.Errorf("azure stt: push stream: %w", err)
	}
	defer stream.Close()

	audioConfig, err := audio.NewAudioConfigFromStreamInput(stream)
	if err != nil {
		return "", fmt.Errorf("azure stt: audio config: %w", err)
	}
	defer audioConfig.Close()

	recognizer, err := speech.NewSpeechRecognizerFromConfig(speechConfig, audioConfig)
	if err != nil {
		return "", fmt.Errorf("azure stt: recognizer: %w", err)
	}
	defer recognizer.Close()

	if err := stream.Write(pcm); err != nil {
		return "", fmt.Errorf("azure stt: write pcm: %w", err)
	}
	stream.CloseStream()

	outcome := <-recognizer.RecognizeOnceAsync()
	if outcome.Error != nil {
		return "", fmt.Errorf("azure stt: recognize: %w", outcome.Error)
	}
	return outcome.Result.Text, nil
}

func (e *azureEngine) Close() error {
	e.logger.Debug("azure stt: engine closed")
	return nil
}
