// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.
package tts

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/rapidaai/voicemirror/pkg/commons"
)

const DefaultCartesiaModel = "sonic-english"

type cartesiaPayload struct {
	ContextID string `json:"context_id"`
	Data      string `json:"data"`
	Done      bool   `json:"done"`
}

type cartesiaEngine struct {
	mu       sync.Mutex
	logger   commons.Logger
	url      string
	apiKey   string
	voiceID  string
	model    string
	sampleHz int
}

// NewCartesiaEngine builds the default TTS backend
// (config.VoiceConfig.TTSEngine == "cartesia"), ported in idiom from
// the teacher's transformer/cartesia/tts.go websocket transformer.
func NewCartesiaEngine(apiKey, voiceID, model string, sampleRateHz int, logger commons.Logger) Engine {
	if model == "" {
		model = DefaultCartesiaModel
	}
	return &cartesiaEngine{
		logger:   logger,
		url:      "wss://api.cartesia.ai/tts/websocket",
		apiKey:   apiKey,
		voiceID:  voiceID,
		model:    model,
		sampleHz: sampleRateHz,
	}
}

func (e *cartesiaEngine) Name() string { return "cartesia" }

func (e *cartesiaEngine) Synthesize(ctx context.Context, text string) (<-chan []byte, <-chan error) {
	audio := make(chan []byte, 4)
	errc := make(chan error, 1)

	go func() {
		defer close(audio)
		defer close(errc)

		header := map[string][]string{"Cartesia-Version": {"2024-06-10"}, "X-API-Key": {e.apiKey}}
		conn, _, err := websocket.DefaultDialer.DialContext(ctx, e.url, header)
		if err != nil {
			errc <- fmt.Errorf("cartesia tts: dial: %w", err)
			return
		}
		defer conn.Close()

		contextID := uuid.NewString()
		req := map[string]interface{}{
			"model_id":   e.model,
			"transcript": text,
			"voice": map[string]interface{}{
				"mode": "id",
				"id":   e.voiceID,
			},
			"output_format": map[string]interface{}{
				"container":   "raw",
				"encoding":    "pcm_s16le",
				"sample_rate": e.sampleHz,
			},
			"context_id": contextID,
		}
		if err := conn.WriteJSON(req); err != nil {
			errc <- fmt.Errorf("cartesia tts: write request: %w", err)
			return
		}

		for {
			select {
			case <-ctx.Done():
				return
			default:
			}
			_, msg, err := conn.ReadMessage()
			if err != nil {
				errc <- fmt.Errorf("cartesia tts: read: %w", err)
				return
			}
			var payload cartesiaPayload
			if err := json.Unmarshal(msg, &payload); err != nil {
				e.logger.Errorf("cartesia tts: invalid json: %v", err)
				continue
			}
			if payload.Done {
				return
			}
			if payload.Data == "" {
				continue
			}
			decoded, err := base64.StdEncoding.DecodeString(payload.Data)
			if err != nil {
				e.logger.Errorf("cartesia tts: decode audio: %v", err)
				continue
			}
			select {
			case audio <- decoded:
			case <-ctx.Done():
				return
			}
		}
	}()

	return audio, errc
}

func (e *cartesiaEngine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return nil
}
