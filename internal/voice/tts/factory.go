// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.
package tts

import (
	"context"
	"fmt"

	"github.com/rapidaai/voicemirror/pkg/commons"
)

// Credentials carries whichever fields a given engine needs; unused
// fields are ignored by other backends.
type Credentials struct {
	APIKey     string
	Region     string
	Voice      string
	Language   string
	SampleRate int
}

// New dispatches to the configured TTS backend by name
// (config.VoiceConfig.TTSEngine: "cartesia" | "azure" | "google").
func New(ctx context.Context, engine string, cred Credentials, logger commons.Logger) (Engine, error) {
	switch engine {
	case "cartesia":
		return NewCartesiaEngine(cred.APIKey, cred.Voice, "", cred.SampleRate, logger), nil
	case "azure":
		return NewAzureEngine(cred.APIKey, cred.Region, cred.Voice, logger), nil
	case "google":
		return NewGoogleEngine(ctx, cred.Voice, cred.Language, cred.SampleRate, logger)
	default:
		return nil, fmt.Errorf("unknown tts engine %q", engine)
	}
}
