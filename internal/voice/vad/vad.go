// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

// Package vad classifies short audio windows as speech or silence
// (spec.md §2/§4.1's "VAD"). Two backends implement Detector: an
// energy-threshold-with-hysteresis default and an optional
// streamer45/silero-vad-go ONNX-model backend, selected by
// config.VoiceConfig.VADBackend ("energy" | "silero").
package vad

// Detector classifies one chunk of mono float32 PCM samples as speech.
// Implementations are stateful (hysteresis/hangover), so a Detector
// instance is owned by a single pipeline session, matching the "single
// owner" rule spec.md §6 applies to voice engines.
type Detector interface {
	// Detect reports whether this chunk is classified as speech, folding
	// in whatever hangover/hysteresis state the backend tracks.
	Detect(samples []float32) (bool, error)
	// Reset clears accumulated state (called on RecordingStop/session end).
	Reset()
}
