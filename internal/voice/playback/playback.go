// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

// Package playback implements the TTS output path (spec.md §4.1 "speak"
// step 3-4): a cancellable software sink that appends synthesized PCM
// chunks as they arrive from a bounded channel, checking the cancel
// flag between chunks and draining before reporting completion.
//
// Framing conventions (bytes-per-sample, WAV header shape) are grounded
// on the teacher's internal_recorder.createWAVFile
// (api/assistant-api/internal/audio/recorder/internal/
// default_audio_recorder.go) — reused here for the same LINEAR16 PCM
// layout, not for file persistence. No audio-output device library
// appears in the corpus, so — like internal/voice/capture's Device —
// the Sink is a stdlib-only interface; a real backend is a build-tagged
// concern outside this module's scope.
package playback

import (
	"context"
	"sync/atomic"
)

// Device is an opened output stream. A real backend writes frames to a
// physical speaker; tests use an in-memory stand-in.
type Device interface {
	Write(frame []byte) error
	Close() error
}

// MinVolume and MaxVolume bound the playback volume clamp (spec.md
// §4.1 "Volume clamped [0, 2]").
const (
	MinVolume = 0.0
	MaxVolume = 2.0
)

// ClampVolume restricts v to [MinVolume, MaxVolume].
func ClampVolume(v float64) float64 {
	if v < MinVolume {
		return MinVolume
	}
	if v > MaxVolume {
		return MaxVolume
	}
	return v
}

// Sink drains a channel of PCM chunks to a Device, applying a volume
// gain and honoring cooperative cancellation between chunks.
type Sink struct {
	device    Device
	volume    float64
	cancelled atomic.Bool
}

// NullDevice discards every frame, the headless/no-real-backend stand-in
// for Device — the same role capture.SyntheticDevice plays for capture.
type NullDevice struct{}

func (NullDevice) Write(frame []byte) error { return nil }
func (NullDevice) Close() error             { return nil }

// NewSink wraps device with the given initial volume (clamped).
func NewSink(device Device, volume float64) *Sink {
	return &Sink{device: device, volume: ClampVolume(volume)}
}

// SetVolume updates the gain applied to subsequent chunks.
func (s *Sink) SetVolume(v float64) {
	s.volume = ClampVolume(v)
}

// Cancel requests playback stop at the next chunk boundary. Safe to call
// concurrently with Play (barge-in path).
func (s *Sink) Cancel() {
	s.cancelled.Store(true)
}

// Play drains audio until the channel closes, ctx is cancelled, or Cancel
// is called. Returns true if playback completed naturally (channel
// closed without cancellation), false if it was cut short.
func (s *Sink) Play(ctx context.Context, audio <-chan []byte) bool {
	s.cancelled.Store(false)
	for {
		select {
		case chunk, ok := <-audio:
			if !ok {
				return true
			}
			if s.cancelled.Load() {
				return false
			}
			if err := s.device.Write(applyGain(chunk, s.volume)); err != nil {
				return false
			}
		case <-ctx.Done():
			return false
		}
		if s.cancelled.Load() {
			return false
		}
	}
}

// applyGain scales 16-bit little-endian PCM samples by gain, clamping to
// avoid wraparound on amplification.
func applyGain(pcm []byte, gain float64) []byte {
	if gain == 1.0 {
		return pcm
	}
	out := make([]byte, len(pcm))
	for i := 0; i+1 < len(pcm); i += 2 {
		sample := int16(uint16(pcm[i]) | uint16(pcm[i+1])<<8)
		scaled := float64(sample) * gain
		if scaled > 32767 {
			scaled = 32767
		} else if scaled < -32768 {
			scaled = -32768
		}
		s16 := int16(scaled)
		out[i] = byte(s16)
		out[i+1] = byte(s16 >> 8)
	}
	return out
}
