// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.
package provider

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestCLIProvider_ReadyPatternAndInterrupt(t *testing.T) {
	if testing.Short() {
		t.Skip("spawns a real subprocess")
	}

	spec := CLISpec{
		ID:            "sh-echo",
		DisplayName:   "sh",
		Command:       "/bin/sh",
		Args:          []string{"-c", "echo READY_MARKER; cat"},
		ReadyPatterns: []string{"READY_MARKER"},
	}
	logger := testLogger()
	p := NewCLIProvider(spec, logger)

	require.NoError(t, p.Start(context.Background()))
	defer p.Stop(context.Background())

	sawReady := false
	deadline := time.After(3 * time.Second)
	for !sawReady {
		select {
		case ev := <-p.Events():
			if ev.Type == EventReady {
				sawReady = true
			}
		case <-deadline:
			t.Fatal("timed out waiting for ready event")
		}
	}

	require.NoError(t, p.Interrupt(context.Background()))
}

func TestCLIProvider_StopReleasesResources(t *testing.T) {
	if testing.Short() {
		t.Skip("spawns a real subprocess")
	}

	spec := CLISpec{
		ID:      "sh-sleep",
		Command: "/bin/sh",
		Args:    []string{"-c", "sleep 30"},
	}
	p := NewCLIProvider(spec, testLogger())
	require.NoError(t, p.Start(context.Background()))
	require.NoError(t, p.Stop(context.Background()))
	// A second Stop must not panic or error on already-released resources.
	require.NoError(t, p.Stop(context.Background()))
}
