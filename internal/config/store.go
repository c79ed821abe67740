// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.
package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"

	"github.com/rapidaai/voicemirror/pkg/commons"
)

// Store is the process-wide config holder (spec.md §3 "Config" / §5
// "reader-preferring lock"). Readers call Snapshot and get back a shallow
// copy of the struct — no read path ever blocks while holding the store's
// lock, matching spec.md §5's "read paths must never await while holding
// it". Writers call Patch, which deep-merges, validates, persists
// atomically, and only then swaps the in-memory copy.
type Store struct {
	mu       sync.RWMutex
	current  Config
	path     string
	logger   commons.Logger
	validate *validator.Validate
}

// NewStore loads {configDir}/config.json if present, seeding from
// Defaults() otherwise, validates the result, and returns a ready Store.
// Grounded on the teacher's InitConfig/GetApplicationConfig pair
// (api/integration-api/config/config.go) but file-backed rather than
// env-backed, per spec.md §6 "Config file".
func NewStore(configDir string, logger commons.Logger) (*Store, error) {
	path := filepath.Join(configDir, "config.json")
	s := &Store{
		path:     path,
		logger:   logger,
		validate: validator.New(),
	}

	cfg := Defaults()
	raw, err := os.ReadFile(path)
	switch {
	case err == nil:
		decoded, decErr := decodeStrict(raw)
		if decErr != nil {
			logger.Warnf("config file %s is unreadable (%v); reverting to defaults", path, decErr)
		} else {
			cfg = decoded
		}
	case os.IsNotExist(err):
		logger.Infof("no config file at %s, seeding defaults", path)
	default:
		return nil, fmt.Errorf("reading config file %s: %w", path, err)
	}

	if err := s.validate.Struct(&cfg); err != nil {
		return nil, fmt.Errorf("default/loaded config failed validation: %w", err)
	}

	s.current = cfg
	return s, nil
}

// decodeStrict unmarshals JSON into a generic map first so that unknown
// top-level keys can be rejected (spec.md §9: "reject unknown keys on
// deserialization"), then uses mapstructure (matching the teacher's decode
// library) to populate the typed Config.
func decodeStrict(raw []byte) (Config, error) {
	var generic map[string]interface{}
	dec := json.NewDecoder(bytes.NewReader(raw))
	if err := dec.Decode(&generic); err != nil {
		return Config{}, err
	}

	cfg := Defaults()
	decoderCfg := &mapstructure.DecoderConfig{
		Result:           &cfg,
		TagName:          "mapstructure",
		ErrorUnused:      true,
		WeaklyTypedInput: true,
	}
	decoder, err := mapstructure.NewDecoder(decoderCfg)
	if err != nil {
		return Config{}, err
	}
	if err := decoder.Decode(generic); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Snapshot returns a copy of the current config struct. The copy is
// shallow: its slice and map fields share backing storage with the store's
// current value. Safe to call from any goroutine; never blocks on a writer
// for long (RWMutex read lock).
func (s *Store) Snapshot() Config {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// Patch deep-merges a partial JSON document into the current config,
// validates the result, persists it atomically (temp+rename), and only
// then installs it as the new current snapshot. On any failure the store
// is left unchanged (spec.md §8 round-trip property).
func (s *Store) Patch(patch []byte) (Config, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	base, err := toGenericMap(s.current)
	if err != nil {
		return Config{}, fmt.Errorf("snapshotting current config: %w", err)
	}

	var patchMap map[string]interface{}
	if err := json.Unmarshal(patch, &patchMap); err != nil {
		return Config{}, fmt.Errorf("invalid config patch: %w", err)
	}

	merged := deepMerge(base, patchMap)
	mergedJSON, err := json.Marshal(merged)
	if err != nil {
		return Config{}, fmt.Errorf("re-marshaling merged config: %w", err)
	}

	next, err := decodeStrict(mergedJSON)
	if err != nil {
		return Config{}, fmt.Errorf("decoding merged config: %w", err)
	}
	if err := s.validate.Struct(&next); err != nil {
		return Config{}, fmt.Errorf("merged config failed validation: %w", err)
	}

	if err := atomicWriteJSON(s.path, next); err != nil {
		return Config{}, fmt.Errorf("persisting config: %w", err)
	}

	s.current = next
	s.logger.Infof("config patched and persisted to %s", s.path)
	return next, nil
}

func toGenericMap(cfg Config) (map[string]interface{}, error) {
	raw, err := json.Marshal(cfg)
	if err != nil {
		return nil, err
	}
	var m map[string]interface{}
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, err
	}
	return m, nil
}

// deepMerge recursively merges src into dst: where both hold a map under
// the same key the two maps are merged, otherwise the src value replaces
// the dst value. It returns a new map without mutating either argument.
func deepMerge(dst, src map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(dst))
	for k, v := range dst {
		out[k] = v
	}
	for k, sv := range src {
		if dv, ok := out[k]; ok {
			dstMap, dstIsMap := dv.(map[string]interface{})
			srcMap, srcIsMap := sv.(map[string]interface{})
			if dstIsMap && srcIsMap {
				out[k] = deepMerge(dstMap, srcMap)
				continue
			}
		}
		out[k] = sv
	}
	return out
}

// atomicWriteJSON writes v as indented JSON to path via write-temp+rename,
// matching spec.md §3/§9's atomic persistence requirement for the config,
// inbox, and memory index files.
func atomicWriteJSON(path string, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, ".config-*.tmp")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmpPath, path)
}

// bootstrapEnv returns a viper instance layering OS environment overrides
// atop the file-backed Store, for the handful of process-level settings
// (pipe name, enabled groups, data/config dir) that are read once at
// startup rather than through Patch. Grounded on the teacher's
// viper.NewWithOptions(viper.KeyDelimiter("__")) bootstrap
// (api/integration-api/config/config.go InitConfig).
func bootstrapEnv() *viper.Viper {
	v := viper.NewWithOptions(viper.KeyDelimiter("__"))
	v.SetDefault("CONFIG_DIR", "")
	v.SetDefault("DATA_DIR", "")
	v.SetDefault("PIPE_NAME", "")
	v.SetDefault("ENABLED_GROUPS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.AutomaticEnv()
	return v
}

// ProcessEnv is the set of external inputs read once from the OS
// environment at process start (spec.md §6: PIPE_NAME, ENABLED_GROUPS are
// "the MCP process's external inputs").
type ProcessEnv struct {
	ConfigDir     string
	DataDir       string
	PipeName      string
	EnabledGroups string
	LogLevel      string
}

// LoadProcessEnv reads the process-level environment inputs via viper,
// applying platform-appropriate defaults for ConfigDir/DataDir when unset.
func LoadProcessEnv() ProcessEnv {
	v := bootstrapEnv()
	env := ProcessEnv{
		ConfigDir:     v.GetString("CONFIG_DIR"),
		DataDir:       v.GetString("DATA_DIR"),
		PipeName:      v.GetString("PIPE_NAME"),
		EnabledGroups: v.GetString("ENABLED_GROUPS"),
		LogLevel:      v.GetString("LOG_LEVEL"),
	}
	if env.ConfigDir == "" {
		env.ConfigDir = defaultAppDir("config")
	}
	if env.DataDir == "" {
		env.DataDir = defaultAppDir("data")
	}
	return env
}

func defaultAppDir(kind string) string {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	return filepath.Join(home, ".voicemirror", kind)
}
