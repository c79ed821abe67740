// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.
package ringbuffer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuffer_WriteAndDrainPreservesOrder(t *testing.T) {
	b := New(8)
	b.Write([]float32{1, 2, 3})
	require.Equal(t, 3, b.Len())

	out := b.Drain(10)
	assert.Equal(t, []float32{1, 2, 3}, out)
	assert.Equal(t, 0, b.Len())
}

func TestBuffer_OverrunDropsOldest(t *testing.T) {
	b := New(4)
	b.Write([]float32{1, 2, 3, 4})
	b.Write([]float32{5, 6})

	require.Equal(t, 4, b.Len())
	assert.Equal(t, []float32{3, 4, 5, 6}, b.Drain(4))
	assert.Equal(t, uint64(2), b.Dropped())
}

func TestBuffer_WriteNeverBlocksOnOversizedChunk(t *testing.T) {
	b := New(4)
	b.Write([]float32{1, 2, 3, 4, 5, 6, 7})
	assert.Equal(t, []float32{4, 5, 6, 7}, b.Drain(10))
}

func TestBuffer_PartialDrainLeavesRemainder(t *testing.T) {
	b := New(8)
	b.Write([]float32{1, 2, 3, 4})
	assert.Equal(t, []float32{1, 2}, b.Drain(2))
	assert.Equal(t, []float32{3, 4}, b.Drain(10))
}

func TestBuffer_ResetClearsWithoutTouchingDroppedCounter(t *testing.T) {
	b := New(2)
	b.Write([]float32{1, 2, 3})
	assert.Equal(t, uint64(1), b.Dropped())
	b.Reset()
	assert.Equal(t, 0, b.Len())
	assert.Equal(t, uint64(1), b.Dropped())
}
