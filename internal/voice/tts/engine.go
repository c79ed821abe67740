// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

// Package tts implements the text-to-speech engine trait and its
// vendor backends (spec.md §4.1 "TTS call"). The Cartesia backend is
// ported in idiom from the teacher's transformer/cartesia/tts.go
// websocket streaming transformer, rewritten against this module's
// channel-based Synthesize contract instead of the teacher's
// OnSpeech/OnComplete callback options struct.
package tts

import "context"

// Engine synthesizes one phrase of text to a stream of linear16 PCM
// chunks. The returned audio channel is closed when synthesis completes
// or the context is cancelled; at most one error is ever sent on the
// error channel before it closes.
type Engine interface {
	Name() string
	Synthesize(ctx context.Context, text string) (audio <-chan []byte, errc <-chan error)
	Close() error
}
