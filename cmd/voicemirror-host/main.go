// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

// Command voicemirror-host wires together the UI-facing side of the
// system (spec.md §6): the provider manager, the voice pipeline, the
// filesystem inbox, the project-tree watcher, the hotkey hook, the shell
// terminal manager, and the duplex pipe server the spawned MCP process
// connects back to. Modeled on the teacher's errgroup-driven concurrent
// Initialize (internal/provider/manager.go's startLocked) generalized from
// one provider's startup to this process's whole subsystem set.
package main

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/rapidaai/voicemirror/internal/config"
	"github.com/rapidaai/voicemirror/internal/diag"
	"github.com/rapidaai/voicemirror/internal/fswatch"
	"github.com/rapidaai/voicemirror/internal/hotkey"
	"github.com/rapidaai/voicemirror/internal/inbox"
	"github.com/rapidaai/voicemirror/internal/pipe"
	"github.com/rapidaai/voicemirror/internal/provider"
	providerapi "github.com/rapidaai/voicemirror/internal/provider/api"
	"github.com/rapidaai/voicemirror/internal/shell"
	"github.com/rapidaai/voicemirror/internal/voice/capture"
	"github.com/rapidaai/voicemirror/internal/voice/pipeline"
	"github.com/rapidaai/voicemirror/internal/voice/playback"
	"github.com/rapidaai/voicemirror/internal/voice/ringbuffer"
	"github.com/rapidaai/voicemirror/internal/voice/stt"
	"github.com/rapidaai/voicemirror/internal/voice/tts"
	"github.com/rapidaai/voicemirror/internal/voice/vad"
	"github.com/rapidaai/voicemirror/pkg/commons"
)

func main() {
	env := config.LoadProcessEnv()
	logger := commons.NewLogger(commons.Config{
		Level:      env.LogLevel,
		Console:    true,
		FilePath:   filepath.Join(env.DataDir, "host.log"),
		MaxSizeMB:  20,
		MaxBackups: 5,
		MaxAgeDays: 14,
	})

	if err := run(env, logger); err != nil {
		logger.Fatalf("voicemirror-host: %v", err)
	}
}

func run(env config.ProcessEnv, logger commons.Logger) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		logger.Infof("voicemirror-host: shutdown signal received")
		cancel()
	}()

	store, err := config.NewStore(env.ConfigDir, logger)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	cfg := store.Snapshot()

	pipeName := env.PipeName
	if pipeName == "" {
		pipeName = defaultPipeName(env.DataDir)
	}

	providerMgr := provider.NewManager(logger)
	voicePipeline, err := buildPipeline(cfg, logger)
	if err != nil {
		return fmt.Errorf("building voice pipeline: %w", err)
	}

	inboxStore, err := inbox.NewStore(env.DataDir, logger)
	if err != nil {
		return fmt.Errorf("opening inbox store: %w", err)
	}
	inboxWatcher, err := inbox.NewWatcher(inboxStore, logger, time.Duration(cfg.Behavior.InboxDebounceMillis)*time.Millisecond)
	if err != nil {
		return fmt.Errorf("starting inbox watcher: %w", err)
	}

	hotkeyMgr := hotkey.New(hotkey.NewSyntheticBackend(), logger)
	shellMgr := shell.New(logger)
	shellEvents := shellMgr.TakeEventRx()
	providerEvents := providerMgr.TakeEvents()

	diagSrv := diag.New(logger, providerMgr, voicePipeline, nil)

	return runSubsystems(ctx, logger, cfg, pipeName, providerMgr, voicePipeline, inboxWatcher, hotkeyMgr, shellEvents, providerEvents, diagSrv)
}

// buildPipeline constructs the voice pipeline from the config snapshot.
// Capture/playback use the headless stand-ins (capture.SyntheticDevice,
// playback.NullDevice): no real audio device library exists anywhere in
// the retrieved corpus, so a physical backend is a build-tagged concern
// left outside this module, matching internal/voice/capture's own
// documented boundary.
func buildPipeline(cfg config.Config, logger commons.Logger) (*pipeline.Pipeline, error) {
	ring := ringbuffer.New(ringbuffer.DefaultCapacity)

	device := capture.NewSyntheticDevice(cfg.Voice.SampleRateHz, 1)
	capturer, err := capture.New(device, ring)
	if err != nil {
		return nil, fmt.Errorf("constructing capturer: %w", err)
	}

	detector := buildDetector(cfg)

	ctx := context.Background()
	sttEng, err := stt.New(ctx, cfg.Voice.STTEngine, stt.Credentials{
		APIKey: os.Getenv("STT_API_KEY"),
		Region: os.Getenv("STT_REGION"),
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("constructing stt engine %q: %w", cfg.Voice.STTEngine, err)
	}
	ttsEng, err := tts.New(ctx, cfg.Voice.TTSEngine, tts.Credentials{
		APIKey:     os.Getenv("TTS_API_KEY"),
		Region:     os.Getenv("TTS_REGION"),
		Voice:      cfg.Voice.TTSVoice,
		SampleRate: cfg.Voice.SampleRateHz,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("constructing tts engine %q: %w", cfg.Voice.TTSEngine, err)
	}

	sink := playback.NewSink(playback.NullDevice{}, cfg.Voice.PlaybackVolume)

	pcfg := pipeline.Config{
		SampleRateHz:       cfg.Voice.SampleRateHz,
		SilenceTimeout:     time.Duration(cfg.Voice.VADHangoverMs) * time.Millisecond,
		PhraseSplitEnabled: cfg.Voice.PhraseSplitEnabled,
		InitialMode:        parseMode(cfg.Voice.Mode),
		InitialVolume:      cfg.Voice.PlaybackVolume,
	}
	return pipeline.New(logger, pcfg, ring, capturer, detector, sttEng, ttsEng, sink), nil
}

// buildDetector picks the VAD backend named by cfg.Voice.VADBackend,
// falling back to the energy detector (spec.md §2's default) if silero's
// model path isn't configured.
func buildDetector(cfg config.Config) pipeline.Detector {
	hangoverChunks := cfg.Voice.VADHangoverMs / 80
	if hangoverChunks < 1 {
		hangoverChunks = 1
	}

	if cfg.Voice.VADBackend == "silero" {
		if modelPath := os.Getenv("SILERO_MODEL_PATH"); modelPath != "" {
			if d, err := vad.NewSileroDetector(modelPath, cfg.Voice.SampleRateHz, float32(cfg.Voice.VADThreshold)); err == nil {
				return d
			}
		}
	}
	return vad.NewEnergyDetector(float32(cfg.Voice.VADThreshold), hangoverChunks)
}

func parseMode(mode string) pipeline.Mode {
	switch mode {
	case "toggle":
		return pipeline.Toggle
	case "wake_word":
		return pipeline.WakeWord
	default:
		return pipeline.PushToTalk
	}
}

func defaultPipeName(dataDir string) string {
	return filepath.Join(dataDir, fmt.Sprintf("voicemirror-%s.sock", uuid.NewString()[:8]))
}

// buildProvider turns a config preset into a Provider instance (spec.md §3
// "Provider"): a cli-kind preset spawns a PTY subprocess, an api-kind
// preset dispatches to the vendor-specific HTTP/streaming client, and
// dictation requires no backend at all.
func buildProvider(preset config.ProviderPreset, logger commons.Logger) (provider.Provider, error) {
	switch preset.Kind {
	case "cli":
		return provider.NewCLIProvider(provider.CLISpec{
			ID:            preset.ID,
			DisplayName:   preset.DisplayName,
			Command:       preset.Command,
			Args:          preset.Args,
			ReadyPatterns: preset.ReadyPatterns,
		}, logger), nil
	case "dictation":
		return provider.NewDictationProvider(preset.ID), nil
	case "api":
		vendor := preset.Extra["vendor"]
		spec := providerapi.Spec{
			ID:               preset.ID,
			DisplayName:      preset.DisplayName,
			Model:            preset.Model,
			BaseURL:          preset.BaseURL,
			APIKey:           os.Getenv(preset.APIKeyEnv),
			HistoryMaxTokens: 8000,
		}
		return providerapi.New(vendor, spec, logger)
	default:
		return nil, fmt.Errorf("unknown provider kind %q for preset %q", preset.Kind, preset.ID)
	}
}

func defaultProviderPreset(cfg config.Config) (config.ProviderPreset, bool) {
	for _, p := range cfg.AI.Providers {
		if p.ID == cfg.AI.DefaultProvider {
			return p, true
		}
	}
	return config.ProviderPreset{}, false
}

// spawnMCPProcess launches the sibling voicemirror-mcp binary with the
// pipe capability and startup tool-group list as its only external inputs
// (spec.md §6: "PIPE_NAME ... ENABLED_GROUPS ... are the MCP process's
// external inputs").
func spawnMCPProcess(ctx context.Context, pipeName, enabledGroups string, logger commons.Logger) (*exec.Cmd, error) {
	exePath, err := os.Executable()
	if err != nil {
		return nil, fmt.Errorf("resolving own executable path: %w", err)
	}
	mcpPath := filepath.Join(filepath.Dir(exePath), "voicemirror-mcp")
	cmd := exec.CommandContext(ctx, mcpPath)
	cmd.Env = append(os.Environ(),
		"PIPE_NAME="+pipeName,
		"ENABLED_GROUPS="+enabledGroups,
	)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("spawning mcp process %s: %w", mcpPath, err)
	}
	logger.Infof("voicemirror-host: spawned mcp process pid=%d", cmd.Process.Pid)
	return cmd, nil
}

func runSubsystems(
	ctx context.Context,
	logger commons.Logger,
	cfg config.Config,
	pipeName string,
	providerMgr *provider.Manager,
	voicePipeline *pipeline.Pipeline,
	inboxWatcher *inbox.Watcher,
	hotkeyMgr *hotkey.Manager,
	shellEvents <-chan shell.Event,
	providerEvents <-chan provider.Event,
	diagSrv *diag.Server,
) error {
	g, gctx := errgroup.WithContext(ctx)

	listener, err := pipe.Listen(pipeName)
	if err != nil {
		return fmt.Errorf("listening on pipe %s: %w", pipeName, err)
	}
	g.Go(func() error {
		<-gctx.Done()
		return listener.Close()
	})
	g.Go(func() error { return acceptPipeConnections(gctx, listener, logger) })

	g.Go(func() error {
		voicePipeline.Start(gctx)
		<-gctx.Done()
		voicePipeline.Stop()
		return nil
	})
	g.Go(func() error { return inboxWatcher.Run(gctx) })
	g.Go(func() error { return hotkeyMgr.Run(gctx) })
	g.Go(func() error { drainShellEvents(gctx, shellEvents, logger); return nil })
	g.Go(func() error { drainProviderEvents(gctx, providerEvents, logger); return nil })

	for _, proj := range cfg.Projects {
		proj := proj
		watcher, err := fswatch.New(gctx, proj.Path, logger)
		if err != nil {
			logger.Warnf("voicemirror-host: could not watch project %q (%s): %v", proj.Label, proj.Path, err)
			continue
		}
		g.Go(func() error { drainProjectEvents(gctx, proj.Label, watcher, logger); return nil })
	}

	if diagPort := diagPortFromEnv(); diagPort > 0 {
		g.Go(func() error { return diagSrv.Run(gctx, diagPort) })
	}

	enabledGroups := "voice,memory,core"
	cmd, err := spawnMCPProcess(gctx, pipeName, enabledGroups, logger)
	if err != nil {
		return err
	}
	g.Go(func() error {
		err := cmd.Wait()
		if gctx.Err() != nil {
			return nil // expected: context cancellation already killed the child
		}
		return err
	})

	if preset, ok := defaultProviderPreset(cfg); ok {
		p, err := buildProvider(preset, logger)
		if err != nil {
			logger.Warnf("voicemirror-host: could not build default provider %q: %v", preset.ID, err)
		} else if err := providerMgr.Start(gctx, p); err != nil {
			logger.Warnf("voicemirror-host: could not start default provider %q: %v", preset.ID, err)
		}
	}

	return g.Wait()
}

// acceptPipeConnections accepts the (single, at a time) duplex connection
// from the spawned MCP process and routes its browser/voice requests; a
// dropped connection is logged and the loop continues accepting the next
// one rather than tearing down the whole host process.
func acceptPipeConnections(ctx context.Context, listener net.Listener, logger commons.Logger) error {
	for {
		conn, err := listener.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			logger.Warnf("voicemirror-host: pipe accept error: %v", err)
			continue
		}
		client := pipe.NewClient(conn, logger)
		router := pipe.NewRouter(ctx, client, logger)
		go handlePipeRouter(ctx, router, logger)
	}
}

// handlePipeRouter drains UserMessage frames the MCP process forwards
// (spec.md §4.4) until the connection drops or ctx is cancelled. Browser
// delegation and listen-start acknowledgement are the UI frontend's
// responsibility, outside this Go backend's scope; this loop only logs
// what it observes so operators can see the bridge is alive.
func handlePipeRouter(ctx context.Context, router *pipe.Router, logger commons.Logger) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-router.Disconnected():
			logger.Infof("voicemirror-host: pipe connection closed")
			return
		case msg, ok := <-router.Messages():
			if !ok {
				return
			}
			logger.Debugf("voicemirror-host: user message from %s: %s", msg.From, msg.Message)
		}
	}
}

func drainProjectEvents(ctx context.Context, label string, watcher *fswatch.Watcher, logger commons.Logger) {
	defer watcher.Close()
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-watcher.Events():
			if !ok {
				return
			}
			logger.Debugf("fswatch: project %q %s (%d paths)", label, ev.Kind, len(ev.Paths))
		}
	}
}

func drainShellEvents(ctx context.Context, events <-chan shell.Event, logger commons.Logger) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			logger.Debugf("shell: session %s %s", ev.ID, ev.Type)
		}
	}
}

// drainProviderEvents logs the active provider's fanned-out events
// (spec.md §4.2). The UI-facing delivery of these events (streaming
// tokens to the renderer) is outside this Go backend's scope; this loop
// only keeps the channel drained so the fan-out pump never blocks.
func drainProviderEvents(ctx context.Context, events <-chan provider.Event, logger commons.Logger) {
	if events == nil {
		return
	}
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			logger.Debugf("provider: %s (generation=%d)", ev.Type, ev.Generation)
		}
	}
}

func diagPortFromEnv() int {
	v := os.Getenv("DIAG_PORT")
	if v == "" {
		return 0
	}
	port, err := strconv.Atoi(v)
	if err != nil {
		return 0
	}
	return port
}
