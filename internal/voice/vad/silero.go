// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.
package vad

import (
	"fmt"

	"github.com/streamer45/silero-vad-go/speech"
)

// SileroDetector wraps the Silero ONNX VAD model as an alternate backend
// (config.VoiceConfig.VADBackend == "silero"), for deployments that ship
// the model file and want a learned classifier instead of energy
// thresholding.
type SileroDetector struct {
	detector *speech.Detector
}

// NewSileroDetector loads the Silero model from modelPath at the given
// sample rate and detection threshold.
func NewSileroDetector(modelPath string, sampleRate int, threshold float32) (*SileroDetector, error) {
	d, err := speech.NewDetector(speech.DetectorConfig{
		ModelPath:            modelPath,
		SampleRate:           sampleRate,
		Threshold:            threshold,
		MinSilenceDurationMs: 100,
		SpeechPadMs:          30,
	})
	if err != nil {
		return nil, fmt.Errorf("loading silero vad model: %w", err)
	}
	return &SileroDetector{detector: d}, nil
}

func (d *SileroDetector) Detect(samples []float32) (bool, error) {
	segments, err := d.detector.Detect(samples)
	if err != nil {
		return false, fmt.Errorf("silero vad: %w", err)
	}
	return len(segments) > 0, nil
}

func (d *SileroDetector) Reset() {
	d.detector.Reset()
}
