// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.
package tts

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSplitPhrases_SplitsOnSentenceBoundaries(t *testing.T) {
	got := SplitPhrases("Hello there. How are you? Great!", true)
	assert.Equal(t, []string{"Hello there.", "How are you?", "Great!"}, got)
}

func TestSplitPhrases_DisabledReturnsWholeText(t *testing.T) {
	got := SplitPhrases("Hello there. How are you?", false)
	assert.Equal(t, []string{"Hello there. How are you?"}, got)
}

func TestSplitPhrases_NoBoundaryReturnsOnePhrase(t *testing.T) {
	got := SplitPhrases("no punctuation here", true)
	assert.Equal(t, []string{"no punctuation here"}, got)
}

func TestSplitPhrases_EmptyReturnsNil(t *testing.T) {
	assert.Nil(t, SplitPhrases("   ", true))
}
