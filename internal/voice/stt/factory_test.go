// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.
package stt

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDefaultDeepgramModel_IsNonEmpty(t *testing.T) {
	assert.NotEmpty(t, DefaultDeepgramModel)
}
