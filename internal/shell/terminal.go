// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

// Package shell implements the independent PTY terminal sessions the UI
// host can spawn alongside a CLI provider (spec.md §4.8): each session owns
// a PTY, forwards output on a shared event channel, and is addressed by a
// "shell-N" id. Grounded on internal/provider/cli.go's PTY-over-creack/pty
// shape (command spawn, background read loop, waitLoop emitting an exit
// event) but generalized from one fixed provider spec to arbitrary
// on-demand sessions.
package shell

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"sync"
	"sync/atomic"

	"github.com/creack/pty"

	"github.com/rapidaai/voicemirror/pkg/commons"
	"github.com/rapidaai/voicemirror/pkg/utils"
)

// readChunkBytes is the forwarding granularity for session output (spec.md
// §4.8: "forwards output in 4KB chunks").
const readChunkBytes = 4096

// EventType discriminates the two event kinds a session reports.
type EventType string

const (
	EventStdout EventType = "stdout"
	EventExit   EventType = "exit"
)

// Event is one session's output chunk or terminal exit, tagged with the
// session id so a single shared channel can multiplex every session.
type Event struct {
	ID   string
	Type EventType
	Text string
	Code int
}

// Info is a session's externally-visible state, returned by List.
type Info struct {
	ID      string
	Cols    uint16
	Rows    uint16
	Cwd     string
	Running bool
}

type session struct {
	id   string
	cmd  *exec.Cmd
	ptmx *os.File

	writeMu sync.Mutex

	cols, rows uint16
	cwd        string

	mu      sync.Mutex
	running bool
}

// Manager owns every spawned PTY session and the single event channel they
// all forward onto.
type Manager struct {
	logger commons.Logger

	mu       sync.Mutex
	sessions map[string]*session
	nextID   int64

	events    chan Event
	eventsTaken atomic.Bool
}

// New returns an empty Manager. Run background session readers with a
// cancellable ctx so Kill/KillAll can unwind cleanly on shutdown.
func New(logger commons.Logger) *Manager {
	return &Manager{
		logger:   logger,
		sessions: make(map[string]*session),
		events:   make(chan Event, 256),
	}
}

// TakeEventRx hands the receive end of the shared event channel to the one
// caller responsible for draining it (spec.md §4.8's once-only
// take_event_rx), mirroring the provider manager's single-consumer event
// handoff. The second call logs and returns nil rather than handing out a
// channel nobody else will ever read from correctly.
func (m *Manager) TakeEventRx() <-chan Event {
	if !m.eventsTaken.CompareAndSwap(false, true) {
		m.logger.Warnf("shell: TakeEventRx called more than once, ignoring")
		return nil
	}
	return m.events
}

// Spawn starts a new shell session inside a PTY of the given size and
// working directory, returning its "shell-N" id.
func (m *Manager) Spawn(ctx context.Context, cols, rows uint16, cwd string) (string, error) {
	if cols == 0 {
		cols = 120
	}
	if rows == 0 {
		rows = 32
	}

	shellCmd := os.Getenv("SHELL")
	if shellCmd == "" {
		shellCmd = "/bin/sh"
	}
	cmd := exec.Command(shellCmd)
	cmd.Dir = cwd
	cmd.Env = append(os.Environ(), "TERM=xterm-256color")

	ptmx, err := pty.StartWithSize(cmd, &pty.Winsize{Cols: cols, Rows: rows})
	if err != nil {
		return "", fmt.Errorf("shell: opening pty: %w", err)
	}

	id := m.allocateID()
	sess := &session{id: id, cmd: cmd, ptmx: ptmx, cols: cols, rows: rows, cwd: cwd, running: true}

	m.mu.Lock()
	m.sessions[id] = sess
	m.mu.Unlock()

	readCtx, cancel := context.WithCancel(ctx)
	utils.Go(readCtx, func() { m.readLoop(sess) })
	utils.Go(readCtx, func() { m.waitLoop(sess, cancel) })

	return id, nil
}

func (m *Manager) allocateID() string {
	n := atomic.AddInt64(&m.nextID, 1)
	return fmt.Sprintf("shell-%d", n)
}

func (m *Manager) readLoop(sess *session) {
	buf := make([]byte, readChunkBytes)
	for {
		n, err := sess.ptmx.Read(buf)
		if n > 0 {
			m.emit(Event{ID: sess.id, Type: EventStdout, Text: string(buf[:n])})
		}
		if err != nil {
			return
		}
	}
}

func (m *Manager) waitLoop(sess *session, cancel context.CancelFunc) {
	defer cancel()
	err := sess.cmd.Wait()
	code := 0
	if exitErr, ok := err.(*exec.ExitError); ok {
		code = exitErr.ExitCode()
	}
	sess.mu.Lock()
	sess.running = false
	sess.mu.Unlock()
	m.emit(Event{ID: sess.id, Type: EventExit, Code: code})
}

func (m *Manager) emit(ev Event) {
	select {
	case m.events <- ev:
	default:
		m.logger.Warnf("shell: event channel full, dropping %s event for %s", ev.Type, ev.ID)
	}
}

// SendInput writes data to the named session's PTY.
func (m *Manager) SendInput(id string, data []byte) error {
	sess, err := m.lookup(id)
	if err != nil {
		return err
	}
	sess.writeMu.Lock()
	defer sess.writeMu.Unlock()
	_, err = sess.ptmx.Write(data)
	return err
}

// Resize changes the named session's PTY dimensions.
func (m *Manager) Resize(id string, cols, rows uint16) error {
	sess, err := m.lookup(id)
	if err != nil {
		return err
	}
	if err := pty.Setsize(sess.ptmx, &pty.Winsize{Cols: cols, Rows: rows}); err != nil {
		return fmt.Errorf("shell: resizing %s: %w", id, err)
	}
	sess.mu.Lock()
	sess.cols, sess.rows = cols, rows
	sess.mu.Unlock()
	return nil
}

// Kill terminates the named session and releases its PTY.
func (m *Manager) Kill(id string) error {
	sess, err := m.lookup(id)
	if err != nil {
		return err
	}
	return killSession(sess)
}

func killSession(sess *session) error {
	var errs []error
	if sess.cmd != nil && sess.cmd.Process != nil {
		if err := sess.cmd.Process.Kill(); err != nil {
			errs = append(errs, err)
		}
	}
	if err := sess.ptmx.Close(); err != nil {
		errs = append(errs, err)
	}
	if len(errs) > 0 {
		return fmt.Errorf("shell: kill %s errors: %v", sess.id, errs)
	}
	return nil
}

// KillAll terminates every live session, returning the first error
// encountered (if any) after attempting every one.
func (m *Manager) KillAll() error {
	m.mu.Lock()
	sessions := make([]*session, 0, len(m.sessions))
	for _, sess := range m.sessions {
		sessions = append(sessions, sess)
	}
	m.mu.Unlock()

	var first error
	for _, sess := range sessions {
		if err := killSession(sess); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// List reports every session's current state.
func (m *Manager) List() []Info {
	m.mu.Lock()
	sessions := make([]*session, 0, len(m.sessions))
	for _, sess := range m.sessions {
		sessions = append(sessions, sess)
	}
	m.mu.Unlock()

	out := make([]Info, 0, len(sessions))
	for _, sess := range sessions {
		sess.mu.Lock()
		out = append(out, Info{ID: sess.id, Cols: sess.cols, Rows: sess.rows, Cwd: sess.cwd, Running: sess.running})
		sess.mu.Unlock()
	}
	return out
}

func (m *Manager) lookup(id string) (*session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	sess, ok := m.sessions[id]
	if !ok {
		return nil, fmt.Errorf("shell: unknown session %q", id)
	}
	return sess, nil
}
