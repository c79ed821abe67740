// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.
package diag

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/require"

	"github.com/rapidaai/voicemirror/internal/mcp/registry"
	"github.com/rapidaai/voicemirror/internal/voice/pipeline"
	"github.com/rapidaai/voicemirror/internal/voice/playback"
	"github.com/rapidaai/voicemirror/pkg/commons"
)

func testLogger() commons.Logger {
	return commons.NewLogger(commons.Config{Level: "debug", Console: true})
}

func TestServer_HealthzAndReadiness(t *testing.T) {
	s := New(testLogger(), nil, nil, nil)
	srv := httptest.NewServer(s.engine)
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp2, err := http.Get(srv.URL + "/readiness")
	require.NoError(t, err)
	defer resp2.Body.Close()
	require.Equal(t, http.StatusOK, resp2.StatusCode)
}

func TestServer_DiagEndpointsToleratesNilSubsystems(t *testing.T) {
	s := New(testLogger(), nil, nil, nil)
	srv := httptest.NewServer(s.engine)
	defer srv.Close()

	for _, path := range []string{"/diag/provider", "/diag/pipeline", "/diag/tool-groups"} {
		resp, err := http.Get(srv.URL + path)
		require.NoError(t, err)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		resp.Body.Close()
	}
}

type instantTTSEngine struct{}

func (instantTTSEngine) Name() string { return "instant" }
func (instantTTSEngine) Synthesize(ctx context.Context, text string) (<-chan []byte, <-chan error) {
	audio := make(chan []byte, 1)
	errc := make(chan error, 1)
	audio <- []byte{1, 2}
	close(audio)
	close(errc)
	return audio, errc
}
func (instantTTSEngine) Close() error { return nil }

func TestServer_VoiceSpeakAndStopSpeaking(t *testing.T) {
	sink := playback.NewSink(playback.NullDevice{}, 1.0)
	p := pipeline.New(testLogger(), pipeline.Config{InitialMode: pipeline.PushToTalk}, nil, nil, nil, nil, instantTTSEngine{}, sink)

	s := New(testLogger(), nil, p, nil)
	srv := httptest.NewServer(s.engine)
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/voice/speak", "application/json", bytes.NewBufferString(`{"text":"hello there."}`))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var body map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	require.Equal(t, true, body["success"])

	resp2, err := http.Post(srv.URL+"/voice/stop-speaking", "application/json", nil)
	require.NoError(t, err)
	defer resp2.Body.Close()
	require.Equal(t, http.StatusOK, resp2.StatusCode)
}

func TestServer_VoiceSpeakTolerateNilPipeline(t *testing.T) {
	s := New(testLogger(), nil, nil, nil)
	srv := httptest.NewServer(s.engine)
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/voice/speak", "application/json", bytes.NewBufferString(`{"text":"hi"}`))
	require.NoError(t, err)
	defer resp.Body.Close()
	var body map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	require.Equal(t, false, body["success"])
}

func TestServer_DiagToolGroupsReportsRegistryState(t *testing.T) {
	reg := registry.New(testLogger(), 15*time.Minute)
	reg.Define(registry.ToolDef{Tool: mcp.Tool{Name: "noop"}, Group: "memory"})
	require.NoError(t, reg.LoadGroup("memory"))

	s := New(testLogger(), nil, nil, reg)
	srv := httptest.NewServer(s.engine)
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/diag/tool-groups")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var statuses map[string]registry.GroupStatus
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&statuses))
	require.Contains(t, statuses, "memory")
}
