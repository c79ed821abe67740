// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.
package tts

import (
	"regexp"
	"strconv"
	"strings"

	"moul.io/number-to-words"
)

var sentenceBoundary = regexp.MustCompile(`([.!?]+)(\s+|$)`)

// SplitPhrases splits text on sentence boundaries for streaming synthesis
// (spec.md §4.1 "Split input into phrases (sentence boundaries,
// configurable)"). Punctuation stays attached to the preceding phrase.
// Returns a single-element slice unchanged when there is no boundary, so
// callers can treat the one-phrase and multi-phrase cases uniformly.
func SplitPhrases(text string, enabled bool) []string {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	if !enabled {
		return []string{text}
	}

	var phrases []string
	last := 0
	for _, loc := range sentenceBoundary.FindAllStringSubmatchIndex(text, -1) {
		end := loc[3] // end of the punctuation group
		phrase := strings.TrimSpace(text[last:end])
		if phrase != "" {
			phrases = append(phrases, phrase)
		}
		last = loc[1] // past the trailing whitespace
	}
	if last < len(text) {
		if rest := strings.TrimSpace(text[last:]); rest != "" {
			phrases = append(phrases, rest)
		}
	}
	if len(phrases) == 0 {
		return []string{text}
	}
	return phrases
}

var numberPattern = regexp.MustCompile(`\b\d+\b`)

// NormalizeNumbers rewrites standalone integers as words so engines that
// don't do their own number expansion (e.g. a raw phrase fed straight to
// a streaming synthesizer) speak "twenty three" rather than "two three".
func NormalizeNumbers(text string) string {
	return numberPattern.ReplaceAllStringFunc(text, func(match string) string {
		n, err := strconv.Atoi(match)
		if err != nil {
			return match
		}
		words, err := numbertowords.IntegerToWords(n)
		if err != nil {
			return match
		}
		return words
	})
}
