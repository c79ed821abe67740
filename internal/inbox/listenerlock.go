// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.
package inbox

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
)

// ListenerLock is the cross-process mutual-exclusion file preventing two
// voice_listen calls from concurrently consuming user messages (spec.md §3
// "Listener lock", §6 "{data_dir}/listener_lock.json").
type ListenerLock struct {
	path       string
	instanceID string
}

type listenerLockShape struct {
	InstanceID string    `json:"instance_id"`
	AcquiredAt time.Time `json:"acquired_at"`
	ExpiresAt  time.Time `json:"expires_at"`
}

// NewListenerLock returns a ListenerLock rooted at {dataDir}/listener_lock.json.
func NewListenerLock(dataDir string) *ListenerLock {
	return &ListenerLock{
		path:       filepath.Join(dataDir, "listener_lock.json"),
		instanceID: uuid.NewString(),
	}
}

// Acquire claims the lock for ttl, failing if another instance's
// still-unexpired lock is present (spec.md invariant 5, scenario S6).
func (l *ListenerLock) Acquire(ttl time.Duration) error {
	if existing, err := readListenerLock(l.path); err == nil {
		if existing.InstanceID != l.instanceID && time.Now().Before(existing.ExpiresAt) {
			return fmt.Errorf("voice_listen: another instance (%s) is already listening", existing.InstanceID)
		}
	}
	return l.writeLocked(ttl)
}

// Refresh extends the lock's expiry — callers must invoke this every 30s
// while holding the lock (spec.md §4.5 "refresh the lock every 30 s").
func (l *ListenerLock) Refresh(ttl time.Duration) error {
	return l.writeLocked(ttl)
}

// Release removes the lock file if it is still owned by this instance.
// Safe to call even if the lock already expired or was never acquired.
func (l *ListenerLock) Release() error {
	existing, err := readListenerLock(l.path)
	if err != nil {
		return nil
	}
	if existing.InstanceID != l.instanceID {
		return nil
	}
	if rmErr := os.Remove(l.path); rmErr != nil && !os.IsNotExist(rmErr) {
		return fmt.Errorf("listener lock: remove: %w", rmErr)
	}
	return nil
}

func (l *ListenerLock) writeLocked(ttl time.Duration) error {
	now := time.Now()
	shape := listenerLockShape{
		InstanceID: l.instanceID,
		AcquiredAt: now,
		ExpiresAt:  now.Add(ttl),
	}
	raw, err := json.MarshalIndent(shape, "", "  ")
	if err != nil {
		return fmt.Errorf("listener lock: marshal: %w", err)
	}
	dir := filepath.Dir(l.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("listener lock: mkdir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".listener_lock-*.tmp")
	if err != nil {
		return fmt.Errorf("listener lock: create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("listener lock: write: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return err
	}
	if err := os.Rename(tmpPath, l.path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("listener lock: rename: %w", err)
	}
	return nil
}

func readListenerLock(path string) (listenerLockShape, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return listenerLockShape{}, err
	}
	var shape listenerLockShape
	if err := json.Unmarshal(raw, &shape); err != nil {
		return listenerLockShape{}, err
	}
	return shape, nil
}
