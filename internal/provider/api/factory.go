// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.
package api

import (
	"fmt"

	"github.com/rapidaai/voicemirror/internal/provider"
	"github.com/rapidaai/voicemirror/pkg/commons"
)

// Vendor names recognized by New. These are matched against a
// ProviderPreset's Extra["vendor"] field for kind=api presets.
const (
	VendorAnthropic = "anthropic"
	VendorOpenAI    = "openai"
	VendorCohere    = "cohere"
	VendorBedrock   = "bedrock"
	VendorGemini    = "gemini"
	VendorReplicate = "replicate"
)

// New dispatches to the vendor-specific constructor by name, the same
// switch-on-name shape the teacher's integration client uses to pick a
// caller implementation (pkg/clients/integration/integration_client.go).
func New(vendor string, spec Spec, logger commons.Logger) (provider.Provider, error) {
	switch vendor {
	case VendorAnthropic:
		return NewAnthropicProvider(spec, logger), nil
	case VendorOpenAI:
		return NewOpenAIProvider(spec, logger), nil
	case VendorCohere:
		return NewCohereProvider(spec, logger), nil
	case VendorBedrock:
		return nil, fmt.Errorf("vendor %q requires bedrock credentials: use NewBedrockProvider directly", vendor)
	case VendorGemini:
		return NewGeminiProvider(spec, logger)
	case VendorReplicate:
		return NewReplicateProvider(spec, logger)
	default:
		return nil, fmt.Errorf("unknown api provider vendor %q", vendor)
	}
}
