// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.
package memory

import (
	"math"
	"sort"
	"strings"
)

// Scored pairs a Chunk with its search score.
type Scored struct {
	Chunk Chunk
	Score float64
}

// Search runs TTL cleanup, then scores every remaining chunk against
// query's keywords (spec.md §4.5 "search"):
//
//	score = coverage*0.7 + log1p(hits)*0.03 + exact-phrase-bonus(0.3)
//
// filtered by minScore and sorted descending.
func (s *Store) Search(query string, minScore float64) []Scored {
	s.mu.Lock()
	s.cleanupLocked()
	if err := s.persistLocked(); err != nil {
		s.logger.Warnf("memory: search cleanup failed to persist: %v", err)
	}
	chunks := make([]Chunk, len(s.chunks))
	copy(chunks, s.chunks)
	s.mu.Unlock()

	keywords := tokenize(query)
	if len(keywords) == 0 {
		return nil
	}

	var results []Scored
	for _, c := range chunks {
		score := scoreChunk(c.Content, query, keywords)
		if score >= minScore {
			results = append(results, Scored{Chunk: c, Score: score})
		}
	}
	sort.SliceStable(results, func(i, j int) bool { return results[i].Score > results[j].Score })
	return results
}

func scoreChunk(content, query string, keywords []string) float64 {
	lowerContent := strings.ToLower(content)

	covered := 0
	hits := 0
	for _, kw := range keywords {
		n := strings.Count(lowerContent, kw)
		if n > 0 {
			covered++
			hits += n
		}
	}
	if covered == 0 {
		return 0
	}

	coverage := float64(covered) / float64(len(keywords))
	score := coverage*0.7 + math.Log1p(float64(hits))*0.03

	if strings.Contains(lowerContent, strings.ToLower(strings.TrimSpace(query))) {
		score += 0.3
	}
	return score
}

func tokenize(s string) []string {
	fields := strings.Fields(strings.ToLower(s))
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		trimmed := strings.Trim(f, ".,!?;:\"'()[]{}")
		if trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
