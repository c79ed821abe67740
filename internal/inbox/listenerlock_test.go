// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.
package inbox

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestListenerLock_ExclusionAcrossInstances(t *testing.T) {
	dir := t.TempDir()
	a := NewListenerLock(dir)
	b := NewListenerLock(dir)

	require.NoError(t, a.Acquire(30*time.Second))
	err := b.Acquire(30 * time.Second)
	require.Error(t, err)
	require.Contains(t, err.Error(), "already listening")
}

func TestListenerLock_ReleaseAllowsReacquire(t *testing.T) {
	dir := t.TempDir()
	a := NewListenerLock(dir)
	b := NewListenerLock(dir)

	require.NoError(t, a.Acquire(30*time.Second))
	require.NoError(t, a.Release())
	require.NoError(t, b.Acquire(30*time.Second))
}

func TestListenerLock_ExpiredLockCanBeReacquired(t *testing.T) {
	dir := t.TempDir()
	a := NewListenerLock(dir)
	b := NewListenerLock(dir)

	require.NoError(t, a.Acquire(1*time.Millisecond))
	time.Sleep(5 * time.Millisecond)
	require.NoError(t, b.Acquire(30*time.Second))
}
