// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

// Package ringbuffer implements the audio staging buffer between the
// capture callback and the processing loop (spec.md §2/§4.1): a fixed
// capacity single-producer/single-consumer float32 ring that drops the
// oldest samples on overrun rather than ever blocking the producer.
//
// Modeled after the teacher's audioRecorder's own mutex-guarded short
// critical sections (api/assistant-api/internal/audio/recorder/internal/
// default_audio_recorder.go push/Persist) — a plain mutex around a small
// slice copy, not a lock-free structure, since spec.md §9 calls the
// lock-free requirement "ish" and accepts "internal short critical
// section" as sufficient (spec.md §6 concurrency notes).
package ringbuffer

import "sync"

// DefaultCapacity is 10 seconds of mono audio at 16kHz (spec.md §2).
const DefaultCapacity = 160_000

// Buffer is a fixed-capacity SPSC float32 ring. The zero value is not
// usable; construct with New.
type Buffer struct {
	mu       sync.Mutex
	data     []float32
	capacity int
	// head is the index of the oldest unread sample; tail is one past the
	// newest written sample. size is the number of valid samples currently
	// stored, always <= capacity.
	head, tail, size int
	dropped          uint64
}

// New constructs a ring buffer with the given sample capacity. A
// non-positive capacity falls back to DefaultCapacity.
func New(capacity int) *Buffer {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Buffer{data: make([]float32, capacity), capacity: capacity}
}

// Write appends samples, dropping the oldest stored samples first if the
// buffer would overflow. Never blocks: this is the producer path, called
// from the audio capture callback, and must return immediately (spec.md
// §4.1 capture path notes).
func (b *Buffer) Write(samples []float32) {
	if len(samples) == 0 {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	// If the incoming chunk alone exceeds capacity, keep only its tail.
	if len(samples) >= b.capacity {
		b.dropped += uint64(b.size + len(samples) - b.capacity)
		samples = samples[len(samples)-b.capacity:]
		b.head, b.tail, b.size = 0, 0, 0
	}

	for _, s := range samples {
		if b.size == b.capacity {
			// Overrun: drop the oldest sample to make room.
			b.head = (b.head + 1) % b.capacity
			b.size--
			b.dropped++
		}
		b.data[b.tail] = s
		b.tail = (b.tail + 1) % b.capacity
		b.size++
	}
}

// Drain removes and returns up to max samples, oldest first. Returns
// fewer than max (possibly zero) if the buffer holds less.
func (b *Buffer) Drain(max int) []float32 {
	b.mu.Lock()
	defer b.mu.Unlock()

	n := b.size
	if max > 0 && max < n {
		n = max
	}
	if n == 0 {
		return nil
	}

	out := make([]float32, n)
	for i := 0; i < n; i++ {
		out[i] = b.data[(b.head+i)%b.capacity]
	}
	b.head = (b.head + n) % b.capacity
	b.size -= n
	return out
}

// Len reports the number of samples currently buffered.
func (b *Buffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.size
}

// Dropped reports the cumulative count of samples discarded to overrun.
func (b *Buffer) Dropped() uint64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.dropped
}

// Reset discards all buffered samples without touching the dropped
// counter (used between Recording sessions, not on error recovery).
func (b *Buffer) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.head, b.tail, b.size = 0, 0, 0
}
