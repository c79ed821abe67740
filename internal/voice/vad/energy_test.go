// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.
package vad

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func silentChunk(n int) []float32 {
	return make([]float32, n)
}

func loudChunk(n int) []float32 {
	out := make([]float32, n)
	for i := range out {
		out[i] = 0.8
	}
	return out
}

func TestEnergyDetector_ClassifiesLoudAsSpeech(t *testing.T) {
	d := NewEnergyDetector(0.1, 0)
	speaking, err := d.Detect(loudChunk(320))
	assert.NoError(t, err)
	assert.True(t, speaking)
}

func TestEnergyDetector_ClassifiesSilenceAsSilence(t *testing.T) {
	d := NewEnergyDetector(0.1, 0)
	speaking, err := d.Detect(silentChunk(320))
	assert.NoError(t, err)
	assert.False(t, speaking)
}

func TestEnergyDetector_HangoverHoldsThroughBriefDip(t *testing.T) {
	d := NewEnergyDetector(0.1, 2)
	speaking, _ := d.Detect(loudChunk(320))
	assert.True(t, speaking)

	// Two silent chunks within hangover window still read as speaking.
	speaking, _ = d.Detect(silentChunk(320))
	assert.True(t, speaking)
	speaking, _ = d.Detect(silentChunk(320))
	assert.True(t, speaking)

	// Hangover exhausted: now silence.
	speaking, _ = d.Detect(silentChunk(320))
	assert.False(t, speaking)
}

func TestEnergyDetector_ResetClearsHangover(t *testing.T) {
	d := NewEnergyDetector(0.1, 5)
	d.Detect(loudChunk(320))
	d.Reset()
	speaking, _ := d.Detect(silentChunk(320))
	assert.False(t, speaking)
}
