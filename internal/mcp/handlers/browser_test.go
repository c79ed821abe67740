// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.
package handlers

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-resty/resty/v2"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/require"

	"github.com/rapidaai/voicemirror/internal/pipe"
	"github.com/rapidaai/voicemirror/pkg/commons"
)

func testBrowserLogger() commons.Logger {
	return commons.NewLogger(commons.Config{Level: "debug", Console: true})
}

// fakeBrowserHost answers every BrowserRequest on conn with a successful
// BrowserResponse echoing the action name as the result.
func fakeBrowserHost(t *testing.T, conn net.Conn) {
	t.Helper()
	go func() {
		for {
			f, err := pipe.ReadFrame(conn)
			if err != nil {
				return
			}
			if f.Type != pipe.TypeBrowserRequest {
				continue
			}
			var req pipe.BrowserRequestData
			require.NoError(t, json.Unmarshal(f.Data, &req))
			resp, _ := pipe.Encode(pipe.TypeBrowserResponse, pipe.BrowserResponseData{
				RequestID: req.RequestID,
				Success:   true,
				Result:    req.Action,
			})
			_ = pipe.WriteFrame(conn, resp)
		}
	}()
}

func TestBrowserHandlers_DelegateRoundTrip(t *testing.T) {
	a, b := net.Pipe()
	defer a.Close()
	defer b.Close()
	fakeBrowserHost(t, b)

	router := pipe.NewRouter(context.Background(), pipe.NewClient(a, testBrowserLogger()), testBrowserLogger())
	h := NewBrowserHandlers(router, resty.New(), testBrowserLogger())

	result, err := h.delegate("browser_navigate")(context.Background(), map[string]interface{}{
		"arguments": map[string]interface{}{"url": "https://example.com"},
	})
	require.NoError(t, err)
	require.False(t, result.IsError)
	require.Equal(t, "browser_navigate", result.Content[0].(mcp.TextContent).Text)
}

func TestBrowserHandlers_DelegateWithoutRouterErrors(t *testing.T) {
	h := NewBrowserHandlers(nil, resty.New(), testBrowserLogger())
	result, err := h.delegate("browser_navigate")(context.Background(), map[string]interface{}{})
	require.NoError(t, err)
	require.True(t, result.IsError)
}

func TestBrowserHandlers_SearchParsesResultLinks(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html><body><a class="result-link" href="https://example.com/a">Example A</a></body></html>`))
	}))
	defer srv.Close()

	h := NewBrowserHandlers(nil, resty.New(), testBrowserLogger())
	h.searchURL = srv.URL

	result, err := h.handleBrowserSearch(context.Background(), map[string]interface{}{"query": "example"})
	require.NoError(t, err)
	text := result.Content[0].(mcp.TextContent).Text
	require.Contains(t, text, "untrusted")
	require.Contains(t, text, "Example A")
	require.Contains(t, text, "https://example.com/a")
}

func TestBrowserHandlers_FetchTruncatesLongBodies(t *testing.T) {
	long := make([]byte, fetchMaxBytes+500)
	for i := range long {
		long[i] = 'x'
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(long)
	}))
	defer srv.Close()

	h := NewBrowserHandlers(nil, resty.New(), testBrowserLogger())

	result, err := h.handleBrowserFetch(context.Background(), map[string]interface{}{"url": srv.URL})
	require.NoError(t, err)
	text := result.Content[0].(mcp.TextContent).Text
	require.Contains(t, text, "[truncated]")
	require.LessOrEqual(t, len(text), fetchMaxBytes+len(untrustedWebAdvisory)+30)
}

func TestBrowserHandlers_FetchRejectsNonHTTPURL(t *testing.T) {
	h := NewBrowserHandlers(nil, resty.New(), testBrowserLogger())
	result, err := h.handleBrowserFetch(context.Background(), map[string]interface{}{"url": "file:///etc/passwd"})
	require.NoError(t, err)
	require.True(t, result.IsError)
}
