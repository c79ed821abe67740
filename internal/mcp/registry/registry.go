// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

// Package registry implements the MCP tool-group registry (spec.md §3
// "Tool group"/"Tool", §4.3 "Registry"): dynamically loadable/unloadable
// tool groups with a dependency graph, destructive-op confirmation gating,
// and an idle auto-unload sweep.
package registry

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/rapidaai/voicemirror/pkg/commons"
)

// HandlerFunc is the per-tool invocation logic. args is the decoded
// "arguments" object from a tools/call request.
type HandlerFunc func(ctx context.Context, args map[string]interface{}) (*mcp.CallToolResult, error)

// ToolDef is one registrable tool (spec.md §3 "Tool").
type ToolDef struct {
	Tool         mcp.Tool
	Group        string
	IsDestructive bool
	Handler      HandlerFunc
}

// GroupStatus mirrors spec.md §3's three-state tool-group lifecycle.
type GroupStatus string

const (
	StatusNotLoaded       GroupStatus = "not_loaded"
	StatusLoaded          GroupStatus = "loaded"
	StatusLoadedAtStartup GroupStatus = "loaded_at_startup"
)

// Registry holds every known tool definition, the currently-loaded group
// set, the group dependency graph, and each group's last-called timestamp
// for the auto-unload sweep.
//
// Grounded on the teacher's provider-name routing tables
// (pkg/clients/integration/integration_client.go's map-keyed dispatch),
// generalized here from a flat name->client map to a dependency-aware
// group graph.
type Registry struct {
	logger commons.Logger

	mu           sync.Mutex
	allTools     map[string]ToolDef   // tool name -> def, across every group
	groupTools   map[string][]string  // group -> tool names in it
	dependsOn    map[string][]string  // group -> groups it depends on
	loaded       map[string]GroupStatus
	pinned       map[string]bool
	lastCalled   map[string]time.Time
	toolsChanged bool

	autoUnloadAfter time.Duration
}

// New returns an empty Registry. Call Define for every tool before serving.
func New(logger commons.Logger, autoUnloadAfter time.Duration) *Registry {
	return &Registry{
		logger:          logger,
		allTools:        make(map[string]ToolDef),
		groupTools:      make(map[string][]string),
		dependsOn:       make(map[string][]string),
		loaded:          make(map[string]GroupStatus),
		pinned:          make(map[string]bool),
		lastCalled:      make(map[string]time.Time),
		autoUnloadAfter: autoUnloadAfter,
	}
}

// Define registers one tool under group, declaring the groups group
// depends on (e.g. "browser" depends on "screen").
func (r *Registry) Define(def ToolDef, dependsOnGroups ...string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.allTools[def.Tool.Name] = def
	r.groupTools[def.Group] = appendUnique(r.groupTools[def.Group], def.Tool.Name)
	if _, exists := r.loaded[def.Group]; !exists {
		r.loaded[def.Group] = StatusNotLoaded
	}
	for _, dep := range dependsOnGroups {
		r.dependsOn[def.Group] = appendUnique(r.dependsOn[def.Group], dep)
	}
}

// ApplyEnabledGroups seeds the loaded-group set at startup from a
// comma-separated ENABLED_GROUPS list (spec.md §6).
func (r *Registry) ApplyEnabledGroups(csv []string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, g := range csv {
		if _, known := r.groupTools[g]; !known {
			r.logger.Warnf("mcp registry: ENABLED_GROUPS names unknown group %q, ignoring", g)
			continue
		}
		r.loaded[g] = StatusLoadedAtStartup
	}
}

// Pin exempts group from the auto-unload sweep.
func (r *Registry) Pin(group string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pinned[group] = true
}

// LoadGroup transitively loads group and every group it depends on,
// marking tools changed (spec.md §4.3 "load_group").
func (r *Registry) LoadGroup(group string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.loadGroupLocked(group)
}

func (r *Registry) loadGroupLocked(group string) error {
	if _, known := r.groupTools[group]; !known {
		return fmt.Errorf("mcp registry: unknown tool group %q", group)
	}
	for _, dep := range r.dependsOn[group] {
		if r.loaded[dep] == StatusNotLoaded {
			if err := r.loadGroupLocked(dep); err != nil {
				return err
			}
		}
	}
	if r.loaded[group] == StatusNotLoaded {
		r.loaded[group] = StatusLoaded
		r.toolsChanged = true
	}
	r.lastCalled[group] = nowFunc()
	return nil
}

// UnloadGroup unloads group, refusing if another still-loaded group
// reverse-depends on it (spec.md §4.3 "respects reverse dependencies").
func (r *Registry) UnloadGroup(group string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.unloadGroupLocked(group)
}

func (r *Registry) unloadGroupLocked(group string) error {
	if status := r.loaded[group]; status == StatusNotLoaded {
		return nil
	}
	for dependent, deps := range r.dependsOn {
		if r.loaded[dependent] == StatusNotLoaded {
			continue
		}
		for _, d := range deps {
			if d == group {
				return fmt.Errorf("mcp registry: cannot unload %q: %q still depends on it", group, dependent)
			}
		}
	}
	r.loaded[group] = StatusNotLoaded
	delete(r.lastCalled, group)
	r.toolsChanged = true
	return nil
}

// Loaded reports every currently-loaded tool definition (spec.md §4.3
// "tools/list returns currently-loaded tools").
func (r *Registry) Loaded() []mcp.Tool {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []mcp.Tool
	for group, status := range r.loaded {
		if status == StatusNotLoaded {
			continue
		}
		for _, name := range r.groupTools[group] {
			out = append(out, r.allTools[name].Tool)
		}
	}
	return out
}

// GroupStatuses reports every known group's current lifecycle state
// (spec.md §4.3 "list_tool_groups").
func (r *Registry) GroupStatuses() map[string]GroupStatus {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make(map[string]GroupStatus, len(r.loaded))
	for group, status := range r.loaded {
		out[group] = status
	}
	return out
}

// Lookup returns the definition for name if its group is currently loaded.
func (r *Registry) Lookup(name string) (ToolDef, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	def, ok := r.allTools[name]
	if !ok {
		return ToolDef{}, false
	}
	if r.loaded[def.Group] == StatusNotLoaded {
		return ToolDef{}, false
	}
	return def, true
}

// RecordCall stamps the calling tool's group as just-used, for the
// auto-unload sweep that the server runs via SweepIdleGroups after every
// tool call (spec.md §4.3 "After every tool call the server scans for
// groups whose last_called is older than the auto-unload threshold").
func (r *Registry) RecordCall(toolName string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	def, ok := r.allTools[toolName]
	if !ok {
		return
	}
	r.lastCalled[def.Group] = nowFunc()
}

// SweepIdleGroups unloads every non-pinned group whose last call predates
// the auto-unload threshold.
func (r *Registry) SweepIdleGroups() {
	r.mu.Lock()
	defer r.mu.Unlock()

	cutoff := nowFunc().Add(-r.autoUnloadAfter)
	for group, last := range r.lastCalled {
		if r.pinned[group] {
			continue
		}
		if last.Before(cutoff) {
			r.logger.Infof("mcp registry: auto-unloading idle group %q", group)
			_ = r.unloadGroupLocked(group)
		}
	}
}

// TakeToolsChanged returns whether the tool set has changed since the last
// call and resets the flag (spec.md §4.3 "sets the server's tools_changed
// flag").
func (r *Registry) TakeToolsChanged() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	changed := r.toolsChanged
	r.toolsChanged = false
	return changed
}

func appendUnique(list []string, v string) []string {
	for _, existing := range list {
		if existing == v {
			return list
		}
	}
	return append(list, v)
}

var nowFunc = time.Now
