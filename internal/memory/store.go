// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

// Package memory implements the tiered long-term memory store (spec.md §3
// "Memory chunk", §4.5 "Memory tools", §6 "Memory store"): a file-backed
// chunk index with per-tier TTL, keyword search scoring, and a rendered
// MEMORY.md / daily log.
package memory

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/rapidaai/voicemirror/pkg/commons"
)

// Tier is one of the three retention classes (spec.md §3 "Memory chunk").
type Tier string

const (
	TierCore   Tier = "core"   // never expires
	TierStable Tier = "stable" // 7 days
	TierNotes  Tier = "notes"  // 24 hours
)

// TTL returns tier's retention window, or false for TierCore (no expiry).
func (t Tier) TTL() (time.Duration, bool) {
	switch t {
	case TierNotes:
		return 24 * time.Hour, true
	case TierStable:
		return 7 * 24 * time.Hour, true
	default:
		return 0, false
	}
}

// Chunk is one stored memory entry (spec.md §3).
type Chunk struct {
	ID         string     `json:"id"`
	Content    string     `json:"content"`
	Tier       Tier       `json:"tier"`
	CreatedAt  time.Time  `json:"created_at"`
	ExpiresAt  *time.Time `json:"expires_at,omitempty"`
	SourceFile string     `json:"source_file,omitempty"`
	LineRange  string     `json:"line_range,omitempty"`
}

type indexShape struct {
	Chunks []Chunk `json:"chunks"`
}

// Store is the file-backed memory index plus rendered markdown logs.
type Store struct {
	indexPath string
	mdPath    string
	dailyDir  string
	logger    commons.Logger
	renderer  *Renderer

	mu     sync.Mutex
	chunks []Chunk
}

// NewStore loads {dataDir}/memory/index.json (creating an empty index if
// absent) and prepares the MEMORY.md / daily/ paths.
func NewStore(dataDir string, logger commons.Logger) (*Store, error) {
	memDir := filepath.Join(dataDir, "memory")
	if err := os.MkdirAll(filepath.Join(memDir, "daily"), 0o755); err != nil {
		return nil, fmt.Errorf("memory: mkdir %s: %w", memDir, err)
	}

	s := &Store{
		indexPath: filepath.Join(memDir, "index.json"),
		mdPath:    filepath.Join(memDir, "MEMORY.md"),
		dailyDir:  filepath.Join(memDir, "daily"),
		logger:    logger,
		renderer:  NewRenderer(),
	}

	raw, err := os.ReadFile(s.indexPath)
	switch {
	case os.IsNotExist(err):
		s.chunks = []Chunk{}
	case err != nil:
		return nil, fmt.Errorf("memory: read index: %w", err)
	default:
		var shape indexShape
		if jsonErr := json.Unmarshal(raw, &shape); jsonErr != nil {
			logger.Warnf("memory: index %s unparseable (%v), starting empty", s.indexPath, jsonErr)
			s.chunks = []Chunk{}
		} else {
			s.chunks = shape.Chunks
		}
	}
	return s, nil
}

// Remember appends a new chunk with tier-derived expiry, persists the
// index, and appends a rendered line to MEMORY.md (spec.md §4.5 "remember").
func (s *Store) Remember(content string, tier Tier, source string, lineRange string) (Chunk, error) {
	now := nowFunc()
	c := Chunk{
		ID:         uuid.NewString(),
		Content:    content,
		Tier:       tier,
		CreatedAt:  now,
		SourceFile: source,
		LineRange:  lineRange,
	}
	if ttl, has := tier.TTL(); has {
		expiry := now.Add(ttl)
		c.ExpiresAt = &expiry
	}

	s.mu.Lock()
	s.chunks = append(s.chunks, c)
	err := s.persistLocked()
	s.mu.Unlock()
	if err != nil {
		return Chunk{}, err
	}

	if err := s.renderer.AppendLine(s.mdPath, c); err != nil {
		s.logger.Warnf("memory: failed to append MEMORY.md line: %v", err)
	}
	return c, nil
}

// Forget removes the chunk matching id exactly, or — if no exact id match
// exists — the first chunk whose content contains id as a substring
// (spec.md §4.5 "forget accepts chunk id or substring").
func (s *Store) Forget(idOrSubstring string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := -1
	for i, c := range s.chunks {
		if c.ID == idOrSubstring {
			idx = i
			break
		}
	}
	if idx == -1 {
		for i, c := range s.chunks {
			if containsFold(c.Content, idOrSubstring) {
				idx = i
				break
			}
		}
	}
	if idx == -1 {
		return false, nil
	}
	s.chunks = append(s.chunks[:idx], s.chunks[idx+1:]...)
	return true, s.persistLocked()
}

// Flush bulk-writes topics/decisions/action-items as stable-tier chunks
// and summary as stable (spec.md §4.5 "flush").
func (s *Store) Flush(topics, decisions, actionItems []string, summary string) ([]Chunk, error) {
	var created []Chunk
	add := func(content string) error {
		if content == "" {
			return nil
		}
		c, err := s.Remember(content, TierStable, "", "")
		if err != nil {
			return err
		}
		created = append(created, c)
		return nil
	}
	for _, t := range topics {
		if err := add("topic: " + t); err != nil {
			return created, err
		}
	}
	for _, d := range decisions {
		if err := add("decision: " + d); err != nil {
			return created, err
		}
	}
	for _, a := range actionItems {
		if err := add("action item: " + a); err != nil {
			return created, err
		}
	}
	if err := add("summary: " + summary); err != nil {
		return created, err
	}

	if err := s.renderer.AppendDaily(s.dailyDir, nowFunc(), summary, topics, decisions, actionItems); err != nil {
		s.logger.Warnf("memory: failed to append daily log: %v", err)
	}
	return created, nil
}

// cleanupLocked drops every chunk whose ExpiresAt has passed. Called at the
// top of every Search (spec.md §4.5 "TTL cleanup runs on every search").
func (s *Store) cleanupLocked() bool {
	now := nowFunc()
	kept := s.chunks[:0:0]
	changed := false
	for _, c := range s.chunks {
		if c.ExpiresAt != nil && now.After(*c.ExpiresAt) {
			changed = true
			continue
		}
		kept = append(kept, c)
	}
	s.chunks = kept
	return changed
}

func (s *Store) persistLocked() error {
	raw, err := json.MarshalIndent(indexShape{Chunks: s.chunks}, "", "  ")
	if err != nil {
		return fmt.Errorf("memory: marshal index: %w", err)
	}
	dir := filepath.Dir(s.indexPath)
	tmp, err := os.CreateTemp(dir, ".index-*.tmp")
	if err != nil {
		return fmt.Errorf("memory: create temp index: %w", err)
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("memory: write temp index: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return err
	}
	if err := os.Rename(tmpPath, s.indexPath); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("memory: rename temp index: %w", err)
	}
	return nil
}

var nowFunc = time.Now

func containsFold(haystack, needle string) bool {
	return strings.Contains(strings.ToLower(haystack), strings.ToLower(needle))
}
