// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.
package pipe

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/rapidaai/voicemirror/pkg/commons"
)

func testLogger() commons.Logger {
	return commons.NewLogger(commons.Config{Level: "debug", Console: true})
}

// fakeHost plays the role of the UI host on the other end of the pipe: it
// reads BrowserRequest frames and, for this test, echoes back a matching
// BrowserResponse.
func fakeHost(t *testing.T, conn net.Conn) {
	t.Helper()
	go func() {
		for {
			f, err := ReadFrame(conn)
			if err != nil {
				return
			}
			if f.Type == TypeBrowserRequest {
				var req BrowserRequestData
				require.NoError(t, decode(f, &req))
				resp, _ := Encode(TypeBrowserResponse, BrowserResponseData{
					RequestID: req.RequestID,
					Success:   true,
					Result:    "ok",
				})
				_ = WriteFrame(conn, resp)
			}
		}
	}()
}

func TestRouter_BrowserRequestResponseCorrelation(t *testing.T) {
	a, b := net.Pipe()
	defer a.Close()
	defer b.Close()

	fakeHost(t, b)

	client := &Client{logger: testLogger(), conn: a}
	router := NewRouter(context.Background(), client, testLogger())

	waiter := router.RegisterWaiter("req-1")
	require.NoError(t, router.SendBrowserRequest(BrowserRequestData{RequestID: "req-1", Action: "screenshot"}))

	select {
	case resp := <-waiter:
		require.True(t, resp.Success)
		require.Equal(t, "req-1", resp.RequestID)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for browser response")
	}
}

func TestRouter_RemoveWaiterOnTimeoutLeavesNoEntry(t *testing.T) {
	a, b := net.Pipe()
	defer a.Close()
	defer b.Close()

	client := &Client{logger: testLogger(), conn: a}
	router := NewRouter(context.Background(), client, testLogger())

	_ = router.RegisterWaiter("req-2")
	router.RemoveWaiter("req-2")

	router.waitersMu.Lock()
	_, exists := router.waiters["req-2"]
	router.waitersMu.Unlock()
	require.False(t, exists)
}

func TestRouter_UserMessageFannedOut(t *testing.T) {
	a, b := net.Pipe()
	defer a.Close()
	defer b.Close()

	client := &Client{logger: testLogger(), conn: a}
	router := NewRouter(context.Background(), client, testLogger())

	go func() {
		f, _ := Encode(TypeUserMessage, UserMessageData{ID: "u1", From: "alice", Message: "hello"})
		_ = WriteFrame(b, f)
	}()

	select {
	case msg := <-router.Messages():
		require.Equal(t, "u1", msg.ID)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for fanned-out user message")
	}
}
