// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.
package capture

import (
	"context"
	"sync"
)

// SyntheticDevice is an in-process Device backed by a queue of
// pre-supplied frames, used by tests and by headless/CI runs of the
// pipeline where no physical input device is available.
type SyntheticDevice struct {
	sampleRate int
	channels   int

	mu     sync.Mutex
	frames [][]float32
	notify chan struct{}
	closed bool
}

// NewSyntheticDevice builds a device reporting the given native rate and
// channel count, with no frames queued yet.
func NewSyntheticDevice(sampleRateHz, channels int) *SyntheticDevice {
	return &SyntheticDevice{
		sampleRate: sampleRateHz,
		channels:   channels,
		notify:     make(chan struct{}, 1),
	}
}

// Push queues a frame to be returned by a future Read call.
func (d *SyntheticDevice) Push(frame []float32) {
	d.mu.Lock()
	d.frames = append(d.frames, frame)
	d.mu.Unlock()
	select {
	case d.notify <- struct{}{}:
	default:
	}
}

func (d *SyntheticDevice) Read(ctx context.Context) ([]float32, error) {
	for {
		d.mu.Lock()
		if len(d.frames) > 0 {
			frame := d.frames[0]
			d.frames = d.frames[1:]
			d.mu.Unlock()
			return frame, nil
		}
		closed := d.closed
		d.mu.Unlock()
		if closed {
			return nil, context.Canceled
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-d.notify:
		}
	}
}

func (d *SyntheticDevice) SampleRateHz() int { return d.sampleRate }
func (d *SyntheticDevice) Channels() int     { return d.channels }

func (d *SyntheticDevice) Close() error {
	d.mu.Lock()
	d.closed = true
	d.mu.Unlock()
	select {
	case d.notify <- struct{}{}:
	default:
	}
	return nil
}
