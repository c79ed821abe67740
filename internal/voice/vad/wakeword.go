// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.
package vad

import "strings"

// WakeWordDetector gates WakeWord-mode transitions ahead of the regular
// Detector (SPEC_FULL.md §6, supplemented from
// original_source/voice-core/src/wake_word/oww.rs's three-stage ONNX
// pipeline). This module ships the stub path described there: when no
// wake-word model is available it falls back to the phrase never
// triggering on its own and instead defers entirely to energy-based
// speech onset, exactly as the original's non-onnx build does.
type WakeWordDetector struct {
	phrase  string
	enabled bool
}

// NewWakeWordDetector builds a detector for the configured phrase. A
// model-backed implementation (mel-spectrogram -> embedding -> classifier)
// is future work; this module is the always-available fallback the
// original falls back to when its onnx feature is unavailable.
func NewWakeWordDetector(phrase string, enabled bool) *WakeWordDetector {
	return &WakeWordDetector{phrase: strings.ToLower(strings.TrimSpace(phrase)), enabled: enabled}
}

// Triggered never fires on audio alone in the stub path; transcript is
// checked instead when a partial STT result is available, mirroring the
// "energy-based detection as a fallback (never triggers wake word)" note
// in the original's oww.rs header comment.
func (w *WakeWordDetector) Triggered(partialTranscript string) bool {
	if !w.enabled || w.phrase == "" {
		return false
	}
	return strings.Contains(strings.ToLower(partialTranscript), w.phrase)
}
