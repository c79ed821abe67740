// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.
package capture

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rapidaai/voicemirror/internal/voice/ringbuffer"
)

func TestDownmix_StereoAverages(t *testing.T) {
	out := downmix([]float32{1, 1, 0, 0}, 2)
	assert.Equal(t, []float32{1, 0}, out)
}

func TestDownmix_MonoIsCopy(t *testing.T) {
	out := downmix([]float32{0.5, 0.25}, 1)
	assert.Equal(t, []float32{0.5, 0.25}, out)
}

func TestCapturer_PushesChunksIntoRingBuffer(t *testing.T) {
	device := NewSyntheticDevice(TargetSampleRateHz, 1)
	buf := ringbuffer.New(ringbuffer.DefaultCapacity)
	c, err := New(device, buf)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- c.Run(ctx) }()

	device.Push(make([]float32, ChunkSamples))
	device.Push(make([]float32, ChunkSamples))

	require.Eventually(t, func() bool {
		return buf.Len() >= ChunkSamples
	}, time.Second, 5*time.Millisecond)

	cancel()
	<-done
}
