// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.
package vad

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWakeWordDetector_TriggersOnPhraseMatch(t *testing.T) {
	w := NewWakeWordDetector("Hey Assistant", true)
	assert.True(t, w.Triggered("okay hey assistant can you help"))
}

func TestWakeWordDetector_DisabledNeverTriggers(t *testing.T) {
	w := NewWakeWordDetector("Hey Assistant", false)
	assert.False(t, w.Triggered("hey assistant"))
}

func TestWakeWordDetector_NoMatchWhenPhraseAbsent(t *testing.T) {
	w := NewWakeWordDetector("Hey Assistant", true)
	assert.False(t, w.Triggered("what time is it"))
}
