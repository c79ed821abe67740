// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.
package pipeline

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rapidaai/voicemirror/internal/voice/capture"
	"github.com/rapidaai/voicemirror/internal/voice/playback"
	"github.com/rapidaai/voicemirror/internal/voice/ringbuffer"
	"github.com/rapidaai/voicemirror/internal/voice/stt"
	"github.com/rapidaai/voicemirror/internal/voice/tts"
	"github.com/rapidaai/voicemirror/pkg/commons"
	"github.com/rapidaai/voicemirror/pkg/utils"
)

// pollInterval matches spec.md §4.1's "polls ring buffer every ~40ms".
const pollInterval = 40 * time.Millisecond

// restoreWait bounds how long speak() waits for an in-flight speak to
// release the TTS engine before barging in (spec.md §4.1 step 1).
const restoreWait = 2 * time.Second

// Config carries the pipeline's construction-time dependencies.
type Config struct {
	SampleRateHz       int
	SilenceTimeout     time.Duration
	PhraseSplitEnabled bool
	InitialMode        Mode
	InitialVolume      float64
}

// Pipeline is the voice state machine of spec.md §4.1. It exclusively
// owns the capture stream, engines, and recording buffer (spec.md §3
// ownership note); external speak/stop calls go through its public
// surface only.
type Pipeline struct {
	logger commons.Logger
	cfg    Config

	state atomic.Int32
	mode  atomic.Int32

	ring     *ringbuffer.Buffer
	capturer *capture.Capturer
	detector Detector

	sttMu  sync.Mutex
	sttEng stt.Engine

	ttsMu  sync.Mutex
	ttsEng tts.Engine
	sink   *playback.Sink

	events chan Event

	recMu        sync.Mutex
	recordingBuf []float32

	forceStop   atomic.Bool
	speakCancel atomic.Bool
	speaking    atomic.Bool

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// Detector is the subset of vad.Detector this package depends on,
// declared locally so pipeline doesn't import vad's concrete backends.
type Detector interface {
	Detect(samples []float32) (bool, error)
	Reset()
}

// New builds a pipeline over the given capture/detector/engine/sink
// dependencies. Construction does not start any goroutines; call Start.
func New(logger commons.Logger, cfg Config, ring *ringbuffer.Buffer, capturer *capture.Capturer, detector Detector, sttEng stt.Engine, ttsEng tts.Engine, sink *playback.Sink) *Pipeline {
	p := &Pipeline{
		logger:   logger,
		cfg:      cfg,
		ring:     ring,
		capturer: capturer,
		detector: detector,
		sttEng:   sttEng,
		ttsEng:   ttsEng,
		sink:     sink,
		events:   make(chan Event, 64),
	}
	p.state.Store(int32(Idle))
	p.mode.Store(int32(cfg.InitialMode))
	return p
}

func (p *Pipeline) State() State { return State(p.state.Load()) }
func (p *Pipeline) Mode() Mode   { return Mode(p.mode.Load()) }

// SetMode changes the listening mode. A mode change may transition
// Idle<->Listening but never interrupts Recording/Processing/Speaking
// (spec.md §3).
func (p *Pipeline) SetMode(m Mode) {
	p.mode.Store(int32(m))
	switch p.State() {
	case Idle:
		if m == WakeWord {
			p.transition(Idle, Listening, func() { p.emit(Event{Type: EventStateChange, State: Listening}) })
		}
	case Listening:
		if m != WakeWord {
			p.transition(Listening, Idle, func() { p.emit(Event{Type: EventStateChange, State: Idle}) })
		}
	}
}

func (p *Pipeline) Events() <-chan Event { return p.events }

func (p *Pipeline) emit(e Event) {
	select {
	case p.events <- e:
	default:
		p.logger.Warnf("voice pipeline: event channel full, dropping %s", e.Type)
	}
}

// transition performs a compare-and-swap state change and, only on
// success, runs the side effect. Returns whether the transition fired.
func (p *Pipeline) transition(from, to State, sideEffect func()) bool {
	if !p.state.CompareAndSwap(int32(from), int32(to)) {
		return false
	}
	if sideEffect != nil {
		sideEffect()
	}
	return true
}

// Start launches the capture and processing loops. Call Stop to tear
// down; Start is not safe to call twice without an intervening Stop.
func (p *Pipeline) Start(ctx context.Context) {
	runCtx, cancel := context.WithCancel(ctx)
	p.cancel = cancel

	if p.Mode() == WakeWord {
		p.state.Store(int32(Listening))
	}

	p.wg.Add(2)
	utils.Go(runCtx, func() {
		defer p.wg.Done()
		if err := p.capturer.Run(runCtx); err != nil {
			p.logger.Errorf("voice pipeline: capture stopped: %v", err)
			p.emit(Event{Type: EventError, ErrMessage: fmt.Sprintf("capture: %v", err)})
		}
	})
	utils.Go(runCtx, func() {
		defer p.wg.Done()
		p.processingLoop(runCtx)
	})
}

// Stop cancels the capture/processing goroutines and waits for them to
// exit.
func (p *Pipeline) Stop() {
	if p.cancel != nil {
		p.cancel()
	}
	p.wg.Wait()
}

func (p *Pipeline) processingLoop(ctx context.Context) {
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	var lastSpeechAt time.Time
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		switch p.State() {
		case Listening:
			chunk := p.ring.Drain(p.ring.Len())
			if len(chunk) == 0 {
				continue
			}
			speaking, err := p.detector.Detect(chunk)
			if err != nil {
				p.logger.Errorf("voice pipeline: vad error: %v", err)
				continue
			}
			if speaking {
				p.startRecording(RecordingContinuous)
			}

		case Recording:
			chunk := p.ring.Drain(p.ring.Len())
			if len(chunk) > 0 {
				p.recMu.Lock()
				p.recordingBuf = append(p.recordingBuf, chunk...)
				p.recMu.Unlock()
				speaking, _ := p.detector.Detect(chunk)
				if speaking {
					lastSpeechAt = time.Now()
				}
			}
			silenceTimeout := p.cfg.SilenceTimeout
			if silenceTimeout <= 0 {
				silenceTimeout = 2 * time.Second
			}
			silenceElapsed := !lastSpeechAt.IsZero() && time.Since(lastSpeechAt) >= silenceTimeout
			if p.forceStop.Load() || silenceElapsed {
				p.forceStop.Store(false)
				p.stopRecording(ctx)
				lastSpeechAt = time.Time{}
			}

		default:
			// Discard audio in Idle/Processing/Speaking to prevent overrun
			// (spec.md §4.1 processing loop note).
			p.ring.Drain(p.ring.Len())
		}
	}
}

// Speak implements spec.md §4.1's TTS call algorithm. text may be spoken
// from any current state (the "*" row of the transition table): an
// already-Speaking call is barged in first, then the new one proceeds.
func (p *Pipeline) Speak(ctx context.Context, text string) error {
	if text == "" {
		return nil
	}

	if p.speaking.Load() {
		p.speakCancel.Store(true)
		if p.sink != nil {
			p.sink.Cancel()
		}
		if !p.waitEngineRestored(restoreWait) {
			return fmt.Errorf("voice pipeline: previous speak call did not release the tts engine within %s", restoreWait)
		}
	}

	p.state.Store(int32(Speaking))
	p.emit(Event{Type: EventSpeakingStart, State: Speaking})
	p.speaking.Store(true)
	p.speakCancel.Store(false)

	p.ttsMu.Lock()
	eng := p.ttsEng
	p.ttsMu.Unlock()

	if eng == nil {
		p.restoreFromSpeaking()
		return fmt.Errorf("voice pipeline: no tts engine configured")
	}

	for _, phrase := range tts.SplitPhrases(text, p.cfg.PhraseSplitEnabled) {
		if p.speakCancel.Load() {
			break
		}

		synthCtx, cancelSynth := context.WithCancel(ctx)
		audio, errc := eng.Synthesize(synthCtx, phrase)
		completed := true
		if p.sink != nil {
			completed = p.sink.Play(ctx, audio)
		} else {
			for range audio {
			}
		}
		if !completed {
			cancelSynth()
		}
		err := <-errc
		cancelSynth()
		if err != nil {
			p.logger.Errorf("voice pipeline: tts synthesis failed: %v", err)
			p.emit(Event{Type: EventError, ErrMessage: fmt.Sprintf("tts: %v", err)})
			break
		}
		if !completed {
			break
		}
	}

	p.restoreFromSpeaking()
	return nil
}

// StopSpeaking cancels an in-flight Speak call without starting a new
// recording, the host's `stop_speaking` surface (spec.md §6).
func (p *Pipeline) StopSpeaking() {
	if !p.speaking.Load() {
		return
	}
	p.speakCancel.Store(true)
	if p.sink != nil {
		p.sink.Cancel()
	}
}

// waitEngineRestored polls for an in-flight Speak call to finish,
// bounded by timeout (spec.md §4.1 step 1 "wait (bounded) for engine to
// be restored").
func (p *Pipeline) waitEngineRestored(timeout time.Duration) bool {
	deadline := time.Now().Add(timeout)
	for p.speaking.Load() {
		if time.Now().After(deadline) {
			return false
		}
		time.Sleep(5 * time.Millisecond)
	}
	return true
}

// restoreFromSpeaking releases the speaking flag and emits SpeakingEnd
// exactly once per Speak call, independent of whether the CAS-transition
// out of Speaking succeeds: a concurrent barge-in may have already moved
// the state to Recording, in which case the transition is a no-op but
// SpeakingEnd still fires (spec.md §4.1 step 4, invariant 3).
func (p *Pipeline) restoreFromSpeaking() {
	p.speaking.Store(false)
	next := Idle
	if p.Mode() == WakeWord {
		next = Listening
	}
	p.transition(Speaking, next, nil)
	p.emit(Event{Type: EventSpeakingEnd, State: p.State()})
}

// PTTPress begins a manual recording from Idle, or barges in from
// Speaking (cancel TTS, clear buffer, start Recording).
func (p *Pipeline) PTTPress() {
	switch p.State() {
	case Idle, Listening:
		p.startRecording(RecordingManual)
	case Speaking:
		p.speakCancel.Store(true)
		if p.sink != nil {
			p.sink.Cancel()
		}
		if p.transition(Speaking, Recording, nil) {
			p.resetRecordingBuf()
			if p.detector != nil {
				p.detector.Reset()
			}
			p.emit(Event{Type: EventRecordingStart, RecordingKind: RecordingManual, State: Recording})
		}
	}
}

// PTTRelease signals the processing loop to stop recording at its next
// tick (force-stop flag, spec.md §4.1 Recording row).
func (p *Pipeline) PTTRelease() {
	p.forceStop.Store(true)
}

// ToggleKey implements Toggle mode's single-key start/stop.
func (p *Pipeline) ToggleKey() {
	switch p.State() {
	case Idle:
		p.startRecording(RecordingManual)
	case Recording:
		p.forceStop.Store(true)
	}
}

func (p *Pipeline) startRecording(kind RecordingKind) {
	from := p.State()
	if from != Idle && from != Listening {
		return
	}
	if p.transition(from, Recording, nil) {
		p.resetRecordingBuf()
		p.detector.Reset()
		p.emit(Event{Type: EventRecordingStart, RecordingKind: kind, State: Recording})
	}
}

func (p *Pipeline) resetRecordingBuf() {
	p.recMu.Lock()
	p.recordingBuf = p.recordingBuf[:0]
	p.recMu.Unlock()
}

// stopRecording drains the recording buffer, transitions to Processing,
// and runs STT on a blocking worker (spec.md §4.1).
func (p *Pipeline) stopRecording(ctx context.Context) {
	if !p.transition(Recording, Processing, nil) {
		return
	}
	p.emit(Event{Type: EventRecordingStop, State: Processing})

	p.recMu.Lock()
	samples := make([]float32, len(p.recordingBuf))
	copy(samples, p.recordingBuf)
	p.recMu.Unlock()

	utils.Go(ctx, func() {
		pcm := floatsToLinear16(samples)

		p.sttMu.Lock()
		eng := p.sttEng
		p.sttMu.Unlock()

		var text string
		var err error
		if eng != nil {
			text, err = eng.Transcribe(ctx, pcm, p.cfg.SampleRateHz)
		}
		if err != nil {
			p.logger.Errorf("voice pipeline: stt failed: %v", err)
			p.emit(Event{Type: EventError, ErrMessage: fmt.Sprintf("stt: %v", err)})
		} else if text != "" {
			p.emit(Event{Type: EventTranscription, Text: text})
		}

		next := Idle
		if p.Mode() == WakeWord {
			next = Listening
		}
		if p.transition(Processing, next, nil) {
			p.emit(Event{Type: EventStateChange, State: next})
		}
	})
}

func floatsToLinear16(samples []float32) []byte {
	out := make([]byte, len(samples)*2)
	for i, s := range samples {
		v := s
		if v > 1 {
			v = 1
		} else if v < -1 {
			v = -1
		}
		i16 := int16(v * 32767)
		out[i*2] = byte(i16)
		out[i*2+1] = byte(i16 >> 8)
	}
	return out
}
