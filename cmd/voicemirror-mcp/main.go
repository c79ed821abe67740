// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

// Command voicemirror-mcp is the tool-server process spec.md §6 spawns
// separately from the host: it dials the pipe the host listens on, builds
// the file-backed memory store and the tool-group registry, and serves
// line-delimited JSON-RPC 2.0 over stdio until stdin closes.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/rapidaai/voicemirror/internal/config"
	"github.com/rapidaai/voicemirror/internal/inbox"
	"github.com/rapidaai/voicemirror/internal/mcp/handlers"
	"github.com/rapidaai/voicemirror/internal/mcp/registry"
	"github.com/rapidaai/voicemirror/internal/mcp/server"
	"github.com/rapidaai/voicemirror/internal/memory"
	"github.com/rapidaai/voicemirror/internal/pipe"
	"github.com/rapidaai/voicemirror/pkg/clients"
	"github.com/rapidaai/voicemirror/pkg/commons"
)

// autoUnloadDefault is the auto-unload sweep's fallback threshold when the
// config store doesn't set behavior.auto_unload_minutes (validated
// [5,30] in internal/config, so this only covers a missing/zero read).
const autoUnloadDefault = 15 * time.Minute

// idleSweepInterval is how often the registry checks for idle tool groups
// to unload (spec.md §4.3 "after every tool call the server scans").
const idleSweepInterval = time.Minute

func main() {
	env := config.LoadProcessEnv()
	logger := commons.NewLogger(commons.Config{
		Level:      env.LogLevel,
		Console:    false, // this process's stdout/stdin are the JSON-RPC wire
		FilePath:   filepath.Join(env.DataDir, "mcp.log"),
		MaxSizeMB:  20,
		MaxBackups: 5,
		MaxAgeDays: 14,
	})

	if err := run(env, logger); err != nil {
		logger.Fatalf("voicemirror-mcp: %v", err)
	}
}

func run(env config.ProcessEnv, logger commons.Logger) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		logger.Infof("voicemirror-mcp: shutdown signal received")
		cancel()
	}()

	if env.PipeName == "" {
		return fmt.Errorf("PIPE_NAME is required to start the mcp process")
	}

	store, err := config.NewStore(env.ConfigDir, logger)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	cfg := store.Snapshot()

	var router *pipe.Router
	conn, err := pipe.Dial(ctx, env.PipeName)
	if err != nil {
		// spec.md §7: a pipe dial failure falls back to file-only tools
		// rather than aborting the whole process.
		logger.Warnf("voicemirror-mcp: could not dial pipe %s, falling back to file-only mode: %v", env.PipeName, err)
	} else {
		client := pipe.NewClient(conn, logger)
		router = pipe.NewRouter(ctx, client, logger)
	}

	inboxStore, err := inbox.NewStore(env.DataDir, logger)
	if err != nil {
		return fmt.Errorf("opening inbox store: %w", err)
	}
	listenerLock := inbox.NewListenerLock(env.DataDir)

	memStore, err := memory.NewStore(env.DataDir, logger)
	if err != nil {
		return fmt.Errorf("opening memory store: %w", err)
	}

	autoUnloadAfter := autoUnloadDefault
	if cfg.Behavior.AutoUnloadMinutes > 0 {
		autoUnloadAfter = time.Duration(cfg.Behavior.AutoUnloadMinutes) * time.Minute
	}
	reg := registry.New(logger, autoUnloadAfter)

	restClient := clients.NewInternalClient(logger, 20*time.Second)
	n8nBaseURL := os.Getenv("N8N_BASE_URL")
	n8nAPIKey := handlers.LoadN8NAPIKey(logger)

	voiceHandlers := handlers.NewVoiceHandlers(inboxStore, router, listenerLock, callerID(), logger)
	memoryHandlers := handlers.NewMemoryHandlers(memStore)
	browserHandlers := handlers.NewBrowserHandlers(router, restClient.REST(), logger)
	workflowHandlers := handlers.NewWorkflowHandlers(restClient.REST(), n8nBaseURL, n8nAPIKey, logger)
	coreHandlers := handlers.NewCoreHandlers(reg)

	for _, def := range voiceHandlers.ToolDefs() {
		reg.Define(def)
	}
	for _, def := range memoryHandlers.ToolDefs() {
		reg.Define(def)
	}
	for _, def := range browserHandlers.ToolDefs() {
		reg.Define(def)
	}
	for _, def := range workflowHandlers.ToolDefs() {
		reg.Define(def)
	}
	for _, def := range coreHandlers.ToolDefs() {
		reg.Define(def)
	}
	reg.Pin(handlers.CoreGroup)

	reg.ApplyEnabledGroups(splitGroups(env.EnabledGroups))

	go runIdleSweep(ctx, reg)

	srv := server.New(reg, "voicemirror-mcp", "0.1.0", logger)
	return srv.Serve(ctx, os.Stdin, os.Stdout)
}

// callerID identifies this MCP process's own sender id in voice_inbox, so
// it can filter out the message it itself just delivered via voice_send
// (spec.md §4.5).
func callerID() string {
	host, err := os.Hostname()
	if err != nil || host == "" {
		host = "voicemirror-mcp"
	}
	return fmt.Sprintf("%s-%d", host, os.Getpid())
}

func splitGroups(csv string) []string {
	if csv == "" {
		return nil
	}
	parts := strings.Split(csv, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func runIdleSweep(ctx context.Context, reg *registry.Registry) {
	ticker := time.NewTicker(idleSweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			reg.SweepIdleGroups()
		}
	}
}
