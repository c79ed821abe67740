// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.
package commons

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestNewLogger_ConsoleOnly(t *testing.T) {
	logger := NewLogger(Config{Level: "debug", Console: true})
	require.NotNil(t, logger)

	logger.Infof("hello %s", "world")
	logger.Debugw("debug entry", "key", "value")
	logger.Benchmark("unit-test-op", 5*time.Millisecond)
}

func TestLogger_With(t *testing.T) {
	logger := NewLogger(Config{Level: "info", Console: true})
	scoped := logger.With("component", "test")
	require.NotNil(t, scoped)
	scoped.Infof("scoped message")
}

func TestOrDefault(t *testing.T) {
	require.Equal(t, orDefault(0, 50), 50)
	require.Equal(t, orDefault(10, 50), 10)
}
