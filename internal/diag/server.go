// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

// Package diag is the ambient localhost diagnostics surface (SPEC_FULL.md
// "Ambient HTTP surface"): off by default, exposing the provider manager's
// and voice pipeline's current state as JSON for operator tooling. It also
// carries the speak_text/stop_speaking slice of spec.md §6's host IPC
// surface, since this server is the only process-external entry point this
// backend exposes for the UI to reach the voice pipeline.
// Grounded on the teacher's own
// api/assistant-api/router/healthcheck.go (gin.Engine, route groups) and
// the gin-contrib/cors dependency the teacher already carries; unlike the
// teacher this server never binds beyond 127.0.0.1.
package diag

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/rapidaai/voicemirror/internal/mcp/registry"
	"github.com/rapidaai/voicemirror/internal/provider"
	"github.com/rapidaai/voicemirror/internal/voice/pipeline"
	"github.com/rapidaai/voicemirror/pkg/commons"
)

// ProviderState is what manager's Active/Generation report.
type ProviderState struct {
	ID         string `json:"id"`
	Kind       string `json:"kind"`
	Running    bool   `json:"running"`
	Generation uint64 `json:"generation"`
}

// PipelineState is the voice pipeline's current mode/state pair.
type PipelineState struct {
	State string `json:"state"`
	Mode  string `json:"mode"`
}

// Server is the optional localhost diagnostics HTTP server.
type Server struct {
	logger      commons.Logger
	engine      *gin.Engine
	httpSrv     *http.Server
	providerMgr *provider.Manager
	pipeline    *pipeline.Pipeline
	registry    *registry.Registry
}

// New builds a diagnostics Server. Any of providerMgr/pipe/reg may be nil;
// the corresponding endpoint then reports an empty state rather than
// panicking, since not every process wires every subsystem (the MCP
// process, for instance, has no voice pipeline).
func New(logger commons.Logger, providerMgr *provider.Manager, pipe *pipeline.Pipeline, reg *registry.Registry) *Server {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(cors.New(cors.Config{
		AllowOrigins: []string{"http://127.0.0.1", "http://localhost"},
		AllowMethods: []string{"GET", "POST"},
		AllowHeaders: []string{"Content-Type"},
	}))

	s := &Server{logger: logger, engine: engine, providerMgr: providerMgr, pipeline: pipe, registry: reg}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.engine.GET("/healthz", s.healthz)
	s.engine.GET("/readiness", s.readiness)
	diagGroup := s.engine.Group("/diag")
	{
		diagGroup.GET("/provider", s.diagProvider)
		diagGroup.GET("/pipeline", s.diagPipeline)
		diagGroup.GET("/tool-groups", s.diagToolGroups)
	}
	voiceGroup := s.engine.Group("/voice")
	{
		voiceGroup.POST("/speak", s.voiceSpeak)
		voiceGroup.POST("/stop-speaking", s.voiceStopSpeaking)
	}
}

func (s *Server) healthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) readiness(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ready"})
}

func (s *Server) diagProvider(c *gin.Context) {
	if s.providerMgr == nil {
		c.JSON(http.StatusOK, ProviderState{})
		return
	}
	id, kind, running := s.providerMgr.Active()
	c.JSON(http.StatusOK, ProviderState{
		ID:         id,
		Kind:       string(kind),
		Running:    running,
		Generation: s.providerMgr.Generation(),
	})
}

func (s *Server) diagPipeline(c *gin.Context) {
	if s.pipeline == nil {
		c.JSON(http.StatusOK, PipelineState{})
		return
	}
	c.JSON(http.StatusOK, PipelineState{
		State: s.pipeline.State().String(),
		Mode:  s.pipeline.Mode().String(),
	})
}

// speakRequest is the body of the host's speak_text command (spec.md §6).
type speakRequest struct {
	Text string `json:"text"`
}

// voiceSpeak implements the host's speak_text command surface, handing the
// request straight to the pipeline's Speak call (spec.md §4.1 step 1-4).
func (s *Server) voiceSpeak(c *gin.Context) {
	if s.pipeline == nil {
		c.JSON(http.StatusOK, gin.H{"success": false, "error": "voice pipeline not configured"})
		return
	}
	var req speakRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": err.Error()})
		return
	}
	if err := s.pipeline.Speak(c.Request.Context(), req.Text); err != nil {
		c.JSON(http.StatusOK, gin.H{"success": false, "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// voiceStopSpeaking implements the host's stop_speaking command surface.
func (s *Server) voiceStopSpeaking(c *gin.Context) {
	if s.pipeline == nil {
		c.JSON(http.StatusOK, gin.H{"success": false, "error": "voice pipeline not configured"})
		return
	}
	s.pipeline.StopSpeaking()
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (s *Server) diagToolGroups(c *gin.Context) {
	if s.registry == nil {
		c.JSON(http.StatusOK, gin.H{})
		return
	}
	c.JSON(http.StatusOK, s.registry.GroupStatuses())
}

// Run binds to 127.0.0.1:port and serves until ctx is cancelled.
// Deliberately never binds 0.0.0.0 or "": this surface has no auth.
func (s *Server) Run(ctx context.Context, port int) error {
	s.httpSrv = &http.Server{
		Addr:    fmt.Sprintf("127.0.0.1:%d", port),
		Handler: s.engine,
	}

	errCh := make(chan error, 1)
	go func() { errCh <- s.httpSrv.ListenAndServe() }()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return s.httpSrv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if err == http.ErrServerClosed {
			return nil
		}
		return err
	}
}
