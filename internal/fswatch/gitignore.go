// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.
package fswatch

import (
	"bufio"
	"os"
	"path/filepath"
	"strings"

	"github.com/rapidaai/voicemirror/pkg/commons"
)

// gitignoreMatcher is a minimal single-file .gitignore matcher:
// filepath.Match glob semantics over each non-blank, non-comment pattern.
// A trailing "/" is stripped before matching, so such a pattern matches
// files as well as directories. No .gitignore-matcher library appears
// anywhere in the retrieved corpus (DESIGN.md), so this is a deliberately
// small stdlib implementation, not a full gitignore spec (no negation, no
// nested .gitignore files).
type gitignoreMatcher struct {
	patterns []string
}

// loadGitignore reads root/.gitignore, tolerating its absence.
func loadGitignore(root string, logger commons.Logger) *gitignoreMatcher {
	f, err := os.Open(filepath.Join(root, ".gitignore"))
	if err != nil {
		return &gitignoreMatcher{}
	}
	defer f.Close()

	var patterns []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		patterns = append(patterns, line)
	}
	if err := scanner.Err(); err != nil {
		logger.Warnf("fswatch: failed reading .gitignore: %v", err)
	}
	return &gitignoreMatcher{patterns: patterns}
}

// matches reports whether rel (a root-relative, slash-separated path)
// should be ignored.
func (m *gitignoreMatcher) matches(rel string) bool {
	if m == nil {
		return false
	}
	base := filepath.Base(rel)
	for _, p := range m.patterns {
		pattern := strings.TrimSuffix(p, "/")
		if ok, _ := filepath.Match(pattern, base); ok {
			return true
		}
		if ok, _ := filepath.Match(pattern, rel); ok {
			return true
		}
		if strings.HasPrefix(rel, pattern+"/") {
			return true
		}
	}
	return false
}
