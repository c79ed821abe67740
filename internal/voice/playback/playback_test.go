// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.
package playback

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memDevice struct {
	mu     sync.Mutex
	frames [][]byte
}

func (d *memDevice) Write(frame []byte) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.frames = append(d.frames, frame)
	return nil
}
func (d *memDevice) Close() error { return nil }

func TestClampVolume_BoundsToRange(t *testing.T) {
	assert.Equal(t, 0.0, ClampVolume(-1))
	assert.Equal(t, 2.0, ClampVolume(3))
	assert.Equal(t, 1.5, ClampVolume(1.5))
}

func TestSink_PlayDrainsAllChunksOnCleanClose(t *testing.T) {
	dev := &memDevice{}
	sink := NewSink(dev, 1.0)

	audio := make(chan []byte, 2)
	audio <- []byte{1, 0}
	audio <- []byte{2, 0}
	close(audio)

	completed := sink.Play(context.Background(), audio)
	assert.True(t, completed)
	assert.Len(t, dev.frames, 2)
}

func TestSink_CancelStopsBeforeDraining(t *testing.T) {
	dev := &memDevice{}
	sink := NewSink(dev, 1.0)

	audio := make(chan []byte)
	done := make(chan bool, 1)
	go func() { done <- sink.Play(context.Background(), audio) }()

	audio <- []byte{1, 0}
	sink.Cancel()

	var completed bool
	select {
	case completed = <-done:
	case audio <- []byte{2, 0}:
		completed = <-done
	}
	assert.False(t, completed)
	assert.Len(t, dev.frames, 1)
}

func TestApplyGain_ScalesAndClamps(t *testing.T) {
	// int16 value 10000, multiplied by 10, should clamp at int16 max.
	pcm := []byte{byte(10000), byte(10000 >> 8)}
	out := applyGain(pcm, 10.0)
	require.Len(t, out, 2)
	scaled := int16(uint16(out[0]) | uint16(out[1])<<8)
	assert.Equal(t, int16(32767), scaled)
}

func TestApplyGain_UnityGainIsNoop(t *testing.T) {
	pcm := []byte{1, 2, 3, 4}
	out := applyGain(pcm, 1.0)
	assert.Equal(t, pcm, out)
}
