// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.
package pipeline

// EventType tags the pipeline's emitted event union, mirroring the same
// "avoid inheritance hierarchies" tagged-union shape used by
// internal/provider.Event (spec.md §9).
type EventType string

const (
	EventStateChange    EventType = "state_change"
	EventRecordingStart EventType = "recording_start"
	EventRecordingStop  EventType = "recording_stop"
	EventTranscription  EventType = "transcription"
	EventSpeakingStart  EventType = "speaking_start"
	EventSpeakingEnd    EventType = "speaking_end"
	EventError          EventType = "error"
)

// Event is the pipeline's single event struct carrying every possible
// payload field, populated according to Type.
type Event struct {
	Type          EventType
	State         State
	RecordingKind RecordingKind
	Text          string
	ErrMessage    string
}
