// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

// Package inbox implements the shared JSON message queue between voice
// capture and the active provider (spec.md §3 "Inbox message", §6 "Inbox
// file"): a single {data_dir}/inbox.json file, capped at 100 entries and
// 24h of age, written with temp+rename for cross-process read atomicity
// (spec.md invariant 6).
package inbox

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/rapidaai/voicemirror/pkg/commons"
)

const (
	// MaxMessages is the FIFO cap on stored messages (spec.md §3, boundary
	// test "Inbox capped at 100 messages; the 101st write evicts the oldest").
	MaxMessages = 100
	// MaxAge evicts anything older on every write/read (spec.md §3).
	MaxAge = 24 * time.Hour
)

// Message is one entry in the inbox (spec.md §3 "Inbox message").
type Message struct {
	ID           string   `json:"id"`
	From         string   `json:"from"`
	Message      string   `json:"message"`
	Timestamp    string   `json:"timestamp"` // RFC3339
	ThreadID     string   `json:"thread_id,omitempty"`
	ReadBy       []string `json:"read_by,omitempty"`
	ReplyTo      string   `json:"reply_to,omitempty"`
	ImagePath    string   `json:"image_path,omitempty"`
	ImageDataURL string   `json:"image_data_url,omitempty"`
}

type fileShape struct {
	Messages []Message `json:"messages"`
}

// Store is the file-backed inbox. Multiple processes may read; every
// writer serializes through the in-process mutex and persists with
// temp+rename (spec.md §5 "writers always temp+rename").
type Store struct {
	path   string
	logger commons.Logger
	mu     sync.Mutex
}

// NewStore returns a Store rooted at {dataDir}/inbox.json, creating an
// empty file if none exists.
func NewStore(dataDir string, logger commons.Logger) (*Store, error) {
	path := filepath.Join(dataDir, "inbox.json")
	s := &Store{path: path, logger: logger}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		if err := s.writeLocked(fileShape{Messages: []Message{}}); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// Path returns the backing file's path, for the fsnotify watcher to follow.
func (s *Store) Path() string { return s.path }

// Append adds msg (assigning an id and timestamp if unset), evicts
// messages older than MaxAge, trims to MaxMessages (oldest first), and
// persists atomically. Returns the assigned message.
func (s *Store) Append(msg Message) (Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if msg.ID == "" {
		msg.ID = uuid.NewString()
	}
	if msg.Timestamp == "" {
		msg.Timestamp = nowFunc().UTC().Format(time.RFC3339)
	}

	shape, err := s.readLocked()
	if err != nil {
		return Message{}, err
	}
	shape.Messages = append(shape.Messages, msg)
	shape.Messages = evict(shape.Messages)

	if err := s.writeLocked(shape); err != nil {
		return Message{}, err
	}
	return msg, nil
}

// All returns every non-expired message, oldest first, without mutating
// read-by state.
func (s *Store) All() ([]Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	shape, err := s.readLocked()
	if err != nil {
		return nil, err
	}
	return evict(shape.Messages), nil
}

// MarkRead appends reader to the ReadBy set of the messages in ids,
// persisting the result.
func (s *Store) MarkRead(ids []string, reader string) error {
	if len(ids) == 0 {
		return nil
	}
	want := make(map[string]bool, len(ids))
	for _, id := range ids {
		want[id] = true
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	shape, err := s.readLocked()
	if err != nil {
		return err
	}
	for i := range shape.Messages {
		if !want[shape.Messages[i].ID] {
			continue
		}
		if !containsStr(shape.Messages[i].ReadBy, reader) {
			shape.Messages[i].ReadBy = append(shape.Messages[i].ReadBy, reader)
		}
	}
	return s.writeLocked(shape)
}

func containsStr(haystack []string, needle string) bool {
	for _, v := range haystack {
		if v == needle {
			return true
		}
	}
	return false
}

// evict drops messages older than MaxAge, then trims to the newest
// MaxMessages entries (oldest dropped first — FIFO eviction).
func evict(msgs []Message) []Message {
	cutoff := nowFunc().Add(-MaxAge)
	kept := make([]Message, 0, len(msgs))
	for _, m := range msgs {
		ts, err := time.Parse(time.RFC3339, m.Timestamp)
		if err == nil && ts.Before(cutoff) {
			continue
		}
		kept = append(kept, m)
	}
	sort.SliceStable(kept, func(i, j int) bool { return kept[i].Timestamp < kept[j].Timestamp })
	if len(kept) > MaxMessages {
		kept = kept[len(kept)-MaxMessages:]
	}
	return kept
}

func (s *Store) readLocked() (fileShape, error) {
	raw, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return fileShape{Messages: []Message{}}, nil
	}
	if err != nil {
		return fileShape{}, fmt.Errorf("inbox: read %s: %w", s.path, err)
	}
	var shape fileShape
	if err := json.Unmarshal(raw, &shape); err != nil {
		// Spec invariant 6: a corrupt read must not propagate as a corrupt
		// write. Revert to an empty inbox rather than fail the caller.
		s.logger.Warnf("inbox: %s is unparseable (%v), reverting to empty", s.path, err)
		return fileShape{Messages: []Message{}}, nil
	}
	return shape, nil
}

// writeLocked persists shape via temp+rename (spec.md invariant 6).
func (s *Store) writeLocked(shape fileShape) error {
	raw, err := json.MarshalIndent(shape, "", "  ")
	if err != nil {
		return fmt.Errorf("inbox: marshal: %w", err)
	}
	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, ".inbox-*.tmp")
	if err != nil {
		return fmt.Errorf("inbox: create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("inbox: write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("inbox: close temp file: %w", err)
	}
	if err := os.Rename(tmpPath, s.path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("inbox: rename temp file: %w", err)
	}
	return nil
}

// nowFunc is a seam for tests; production always uses time.Now.
var nowFunc = time.Now
