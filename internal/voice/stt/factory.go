// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.
package stt

import (
	"context"
	"fmt"

	"github.com/rapidaai/voicemirror/pkg/commons"
)

// Credentials carries whichever fields a given engine needs; unused
// fields are ignored by other backends.
type Credentials struct {
	APIKey   string
	Region   string
	Language string
	Model    string
}

// New dispatches to the configured STT backend by name
// (config.VoiceConfig.STTEngine: "deepgram" | "azure" | "google").
func New(ctx context.Context, engine string, cred Credentials, logger commons.Logger) (Engine, error) {
	switch engine {
	case "deepgram":
		return NewDeepgramEngine(cred.APIKey, cred.Model, logger)
	case "azure":
		return NewAzureEngine(cred.APIKey, cred.Region, cred.Language, logger)
	case "google":
		return NewGoogleEngine(ctx, cred.Language, logger)
	default:
		return nil, fmt.Errorf("unknown stt engine %q", engine)
	}
}
