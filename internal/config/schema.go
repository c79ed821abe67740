// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

// Package config holds the process-wide hierarchical configuration record
// (spec.md §3 "Config"): a single flat record with defaulted sections,
// deserialized at startup, mutated by deep-merge patch, and persisted
// atomically. It mirrors the teacher's config.AppConfig struct-centric
// pattern (api/integration-api/config/config.go), generalized from a
// static service config to a patchable, snapshot-cloned store.
package config

// WakeWordConfig controls the optional wake-word detection stage ahead of
// the energy-threshold VAD (SPEC_FULL.md §6, supplemented from
// original_source/voice-core/src/wake_word/oww.rs).
type WakeWordConfig struct {
	Enabled   bool    `mapstructure:"enabled" json:"enabled"`
	Phrase    string  `mapstructure:"phrase" json:"phrase"`
	Threshold float64 `mapstructure:"threshold" json:"threshold" validate:"gte=0,lte=1"`
}

// VoiceConfig controls capture, VAD, STT and TTS engine selection.
type VoiceConfig struct {
	Mode               string  `mapstructure:"mode" json:"mode" validate:"oneof=push_to_talk toggle wake_word"`
	InputDevice        string  `mapstructure:"input_device" json:"input_device"`
	OutputDevice       string  `mapstructure:"output_device" json:"output_device"`
	SampleRateHz       int     `mapstructure:"sample_rate_hz" json:"sample_rate_hz" validate:"required"`
	VADBackend         string  `mapstructure:"vad_backend" json:"vad_backend" validate:"oneof=energy silero"`
	VADThreshold       float64 `mapstructure:"vad_threshold" json:"vad_threshold"`
	VADHangoverMs      int     `mapstructure:"vad_hangover_ms" json:"vad_hangover_ms"`
	STTEngine          string  `mapstructure:"stt_engine" json:"stt_engine" validate:"oneof=deepgram azure google"`
	TTSEngine          string  `mapstructure:"tts_engine" json:"tts_engine" validate:"oneof=cartesia azure google"`
	TTSVoice           string  `mapstructure:"tts_voice" json:"tts_voice"`
	PlaybackVolume     float64 `mapstructure:"playback_volume" json:"playback_volume" validate:"gte=0,lte=2"`
	PhraseSplitEnabled bool    `mapstructure:"phrase_split_enabled" json:"phrase_split_enabled"`
	WakeWord           WakeWordConfig `mapstructure:"wake_word" json:"wake_word"`
}

// AppearanceConfig covers purely cosmetic UI-host state; carried here only
// because spec.md §3 lists "appearance" as a recognized config section —
// the GUI shell itself is out of scope (spec.md §1).
type AppearanceConfig struct {
	Theme      string `mapstructure:"theme" json:"theme"`
	AccentHex  string `mapstructure:"accent_hex" json:"accent_hex"`
}

// BehaviorConfig controls orchestration-level toggles.
type BehaviorConfig struct {
	AutoUnloadMinutes   int  `mapstructure:"auto_unload_minutes" json:"auto_unload_minutes" validate:"gte=5,lte=30"`
	ConfirmDestructive  bool `mapstructure:"confirm_destructive" json:"confirm_destructive"`
	InboxDebounceMillis int  `mapstructure:"inbox_debounce_millis" json:"inbox_debounce_millis"`
}

// WindowConfig is carried for the same reason as AppearanceConfig.
type WindowConfig struct {
	Width    int  `mapstructure:"width" json:"width"`
	Height   int  `mapstructure:"height" json:"height"`
	Maximized bool `mapstructure:"maximized" json:"maximized"`
}

// ProviderPreset is one entry in the `ai.providers` list: a named, reusable
// provider launch configuration (spec.md §3 "Provider").
type ProviderPreset struct {
	ID          string            `mapstructure:"id" json:"id" validate:"required"`
	Kind        string            `mapstructure:"kind" json:"kind" validate:"oneof=cli api dictation"`
	DisplayName string            `mapstructure:"display_name" json:"display_name"`
	Command     string            `mapstructure:"command" json:"command"`
	Args        []string          `mapstructure:"args" json:"args"`
	ReadyPatterns []string        `mapstructure:"ready_patterns" json:"ready_patterns"`
	BaseURL     string            `mapstructure:"base_url" json:"base_url"`
	Model       string            `mapstructure:"model" json:"model"`
	APIKeyEnv   string            `mapstructure:"api_key_env" json:"api_key_env"`
	Extra       map[string]string `mapstructure:"extra" json:"extra"`
}

// AIConfig holds the provider manager's defaults and presets.
type AIConfig struct {
	DefaultProvider string           `mapstructure:"default_provider" json:"default_provider"`
	Providers       []ProviderPreset `mapstructure:"providers" json:"providers"`
	HistoryMaxTokens int             `mapstructure:"history_max_tokens" json:"history_max_tokens"`
}

// ProjectEntry is one watched project-tree root (internal/fswatch).
type ProjectEntry struct {
	Path   string `mapstructure:"path" json:"path" validate:"required"`
	Label  string `mapstructure:"label" json:"label"`
}

// Config is the whole process-wide record. Every recognized key is
// enumerated here; unknown keys are rejected at decode time (SPEC_FULL.md
// §3, spec.md §9 "reject unknown keys on deserialization").
type Config struct {
	Version    int              `mapstructure:"version" json:"version"`
	Voice      VoiceConfig      `mapstructure:"voice" json:"voice"`
	Appearance AppearanceConfig `mapstructure:"appearance" json:"appearance"`
	Behavior   BehaviorConfig   `mapstructure:"behavior" json:"behavior"`
	Window     WindowConfig     `mapstructure:"window" json:"window"`
	AI         AIConfig         `mapstructure:"ai" json:"ai"`
	Projects   []ProjectEntry   `mapstructure:"projects" json:"projects"`
}

// Defaults returns the config seeded before any file or patch is applied.
func Defaults() Config {
	return Config{
		Version: 1,
		Voice: VoiceConfig{
			Mode:               "push_to_talk",
			SampleRateHz:       16000,
			VADBackend:         "energy",
			VADThreshold:       0.02,
			VADHangoverMs:      300,
			STTEngine:          "deepgram",
			TTSEngine:          "cartesia",
			PlaybackVolume:     1.0,
			PhraseSplitEnabled: true,
			WakeWord: WakeWordConfig{
				Enabled:   false,
				Phrase:    "hey assistant",
				Threshold: 0.5,
			},
		},
		Appearance: AppearanceConfig{Theme: "system"},
		Behavior: BehaviorConfig{
			AutoUnloadMinutes:   15,
			ConfirmDestructive:  true,
			InboxDebounceMillis: 120,
		},
		Window: WindowConfig{Width: 1024, Height: 720},
		AI: AIConfig{
			DefaultProvider:  "claude",
			HistoryMaxTokens: 8000,
		},
	}
}
