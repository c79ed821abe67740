// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.
package memory

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/flosch/pongo2/v6"
)

const memoryLineTemplate = `- [{{ created }}] ({{ tier }}) {{ content }}
`

const dailyTemplate = `## {{ date }}

**Summary:** {{ summary }}
{% if topics %}
**Topics:**
{% for t in topics %}- {{ t }}
{% endfor %}{% endif %}{% if decisions %}
**Decisions:**
{% for d in decisions %}- {{ d }}
{% endfor %}{% endif %}{% if action_items %}
**Action items:**
{% for a in action_items %}- {{ a }}
{% endfor %}{% endif %}
`

// Renderer owns the compiled pongo2 templates used to append human-
// readable markdown alongside the JSON index (spec.md §4.5/§6 "MEMORY.md",
// "daily/YYYY-MM-DD.md").
type Renderer struct {
	lineTpl  *pongo2.Template
	dailyTpl *pongo2.Template
}

// NewRenderer compiles both templates once at construction time.
func NewRenderer() *Renderer {
	line, err := pongo2.FromString(memoryLineTemplate)
	if err != nil {
		panic(fmt.Sprintf("memory: invalid built-in line template: %v", err))
	}
	daily, err := pongo2.FromString(dailyTemplate)
	if err != nil {
		panic(fmt.Sprintf("memory: invalid built-in daily template: %v", err))
	}
	return &Renderer{lineTpl: line, dailyTpl: daily}
}

// AppendLine renders one chunk as a markdown bullet and appends it to path.
func (r *Renderer) AppendLine(path string, c Chunk) error {
	out, err := r.lineTpl.Execute(pongo2.Context{
		"created": c.CreatedAt.UTC().Format(time.RFC3339),
		"tier":    string(c.Tier),
		"content": c.Content,
	})
	if err != nil {
		return fmt.Errorf("memory: render line: %w", err)
	}
	return appendFile(path, out)
}

// AppendDaily renders a day's flush summary and appends it to
// {dailyDir}/YYYY-MM-DD.md.
func (r *Renderer) AppendDaily(dailyDir string, day time.Time, summary string, topics, decisions, actionItems []string) error {
	out, err := r.dailyTpl.Execute(pongo2.Context{
		"date":         day.UTC().Format("2006-01-02"),
		"summary":      summary,
		"topics":       topics,
		"decisions":    decisions,
		"action_items": actionItems,
	})
	if err != nil {
		return fmt.Errorf("memory: render daily: %w", err)
	}
	path := filepath.Join(dailyDir, day.UTC().Format("2006-01-02")+".md")
	return appendFile(path, out)
}

func appendFile(path, content string) error {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("memory: open %s: %w", path, err)
	}
	defer f.Close()
	if _, err := f.WriteString(content); err != nil {
		return fmt.Errorf("memory: append %s: %w", path, err)
	}
	return nil
}
