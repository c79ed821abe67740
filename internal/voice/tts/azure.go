// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.
package tts

import (
	"context"
	"fmt"

	"github.com/Microsoft/cognitive-services-speech-sdk-go/speech"

	"github.com/rapidaai/voicemirror/pkg/commons"
)

type azureEngine struct {
	logger commons.Logger
	key    string
	region string
	voice  string
}

// NewAzureEngine builds the Azure Cognitive Services TTS backend.
func NewAzureEngine(key, region, voice string, logger commons.Logger) Engine {
	if voice == "" {
		voice = "en-US-AriaNeural"
	}
	return &azureEngine{logger: logger, key: key, region: region, voice: voice}
}

func (e *azureEngine) Name() string { return "azure" }

func (e *azureEngine) Synthesize(ctx context.Context, text string) (<-chan []byte, <-chan error) {
	audioCh := make(chan []byte, 4)
	errc := make(chan error, 1)

	go func() {
		defer close(audioCh)
		defer close(errc)

		speechConfig, err := speech.NewSpeechConfigFromSubscription(e.key, e.region)
		if err != nil {
			errc <- fmt.Errorf("azure tts: speech config: %w", err)
			return
		}
		defer speechConfig.Close()
		speechConfig.SetSpeechSynthesisVoiceName(e.voice)

		synthesizer, err := speech.NewSpeechSynthesizerFromConfig(speechConfig, nil)
		if err != nil {
			errc <- fmt.Errorf("azure tts: synthesizer: %w", err)
			return
		}
		defer synthesizer.Close()

		outcome := <-synthesizer.SpeakTextAsync(text)
		if outcome.Error != nil {
			errc <- fmt.Errorf("azure tts: speak: %w", outcome.Error)
			return
		}
		defer outcome.Result.Close()

		data := outcome.Result.AudioData
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

func (e *azureEngine) Close() error {
	e.logger.Debug("azure tts: engine closed")
	return nil
}
