// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

// Package stt implements the speech-to-text engine trait and its
// vendor backends (spec.md §4.1 "STT call"). Unlike the teacher's
// transformer/cartesia STT, which streams partial transcripts over a
// long-lived websocket connection for a live call, this module's engine
// contract is a single blocking call over one recorded utterance buffer
// (spec.md: "STT call: runs on a blocking worker ... On return the
// engine is restored"). Each backend still opens its vendor connection
// the way the teacher's transformer does; it just surfaces one final
// transcript rather than a stream of partials.
package stt

import "context"

// Engine transcribes one recorded utterance. Implementations are not
// required to be safe for concurrent Transcribe calls — the voice
// pipeline takes the engine out of its mutex for the duration of a call
// so only one Transcribe runs at a time per engine instance (spec.md
// §4.1, §6 ownership notes).
type Engine interface {
	Name() string
	Transcribe(ctx context.Context, pcm []byte, sampleRateHz int) (string, error)
	Close() error
}
