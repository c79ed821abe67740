// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.
package provider

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/rapidaai/voicemirror/pkg/commons"
)

// Manager owns the single active Provider (spec.md §3 invariant: "at most
// one provider is running per manager"). Grounded on the teacher's
// websocketExecutor connection lifecycle (mutex-guarded state, a `done`-style
// shutdown signal, errgroup-driven concurrent Initialize), generalized from
// one fixed connection type to a swappable provider slot with a
// stop-then-start `Switch`.
type Manager struct {
	logger commons.Logger

	mu         sync.Mutex
	active     Provider
	running    bool
	starting   bool
	generation uint64

	fanOut      chan Event
	eventsTaken atomic.Bool
	cancelFan   context.CancelFunc
}

// NewManager builds an idle Manager with no active provider.
func NewManager(logger commons.Logger) *Manager {
	return &Manager{
		logger: logger,
		fanOut: make(chan Event, 256),
	}
}

// Generation returns the current generation counter (spec.md invariant 2:
// "After `stop`, `manager.generation` strictly exceeds its value before the
// call").
func (m *Manager) Generation() uint64 {
	return atomic.LoadUint64(&m.generation)
}

// TakeEvents hands the receive end of the manager's fanned-out event
// stream to the one caller responsible for draining it (spec.md §4.2's
// once-only take_event_rx), mirroring internal/shell/terminal.go's
// TakeEventRx. The second call logs and returns nil rather than handing
// out a channel nobody else will ever read from correctly. Every Event
// carries the generation it was stamped with; consumers should discard any
// event whose Generation is below Manager.Generation() at delivery time.
func (m *Manager) TakeEvents() <-chan Event {
	if !m.eventsTaken.CompareAndSwap(false, true) {
		m.logger.Warnf("provider manager: TakeEvents called more than once, ignoring")
		return nil
	}
	return m.fanOut
}

// Start launches p as the active provider. Fails if another provider is
// already running — callers wanting hot-swap semantics must use Switch.
func (m *Manager) Start(ctx context.Context, p Provider) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.running {
		return fmt.Errorf("provider manager: %s is already running; use Switch to replace it", m.active.ID())
	}
	if m.starting {
		return fmt.Errorf("provider manager: a start is already in progress")
	}
	m.starting = true
	defer func() { m.starting = false }()

	return m.startLocked(ctx, p)
}

// startLocked assumes m.mu is held. It runs the provider's Start under an
// errgroup (the pattern the teacher's Initialize uses for
// connection-establish + history-fetch) and starts the fan-out pump only
// after Start has returned without error.
func (m *Manager) startLocked(ctx context.Context, p Provider) error {
	fanCtx, cancel := context.WithCancel(context.Background())

	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return p.Start(gCtx)
	})
	if err := g.Wait(); err != nil {
		cancel()
		return fmt.Errorf("starting provider %s: %w", p.ID(), err)
	}

	m.active = p
	m.running = true
	m.cancelFan = cancel
	gen := atomic.AddUint64(&m.generation, 1)

	go m.pump(fanCtx, p, gen)

	m.logger.Infof("provider manager: started %s (kind=%s, generation=%d)", p.ID(), p.Kind(), gen)
	return nil
}

// pump copies events from the active provider onto the shared fan-out
// channel, stamping each with the generation it belongs to, until fanCtx is
// cancelled (by Stop) or the provider's channel closes (the provider exited
// on its own).
func (m *Manager) pump(fanCtx context.Context, p Provider, gen uint64) {
	for {
		select {
		case <-fanCtx.Done():
			return
		case ev, ok := <-p.Events():
			if !ok {
				return
			}
			ev.Generation = gen
			select {
			case m.fanOut <- ev:
			case <-fanCtx.Done():
				return
			}
		}
	}
}

// Stop stops the active provider, if any, and bumps the generation
// counter so in-flight events from it are recognized as stale by
// consumers. Safe to call when nothing is running.
func (m *Manager) Stop(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stopLocked(ctx)
}

func (m *Manager) stopLocked(ctx context.Context) error {
	if !m.running {
		atomic.AddUint64(&m.generation, 1)
		return nil
	}

	if m.cancelFan != nil {
		m.cancelFan()
	}
	err := m.active.Stop(ctx)
	m.active = nil
	m.running = false
	atomic.AddUint64(&m.generation, 1)

	if err != nil {
		m.logger.Errorf("provider manager: error stopping provider: %v", err)
		return fmt.Errorf("stopping provider: %w", err)
	}
	return nil
}

// Switch stops whichever provider is running (if any) and starts next,
// bumping the generation exactly once for the stop and relying on
// startLocked's own bump for the new provider — matching spec.md §3's
// "`switch` ... stops first, bumping the generation".
func (m *Manager) Switch(ctx context.Context, next Provider) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.stopLocked(ctx); err != nil {
		return err
	}
	return m.startLocked(ctx, next)
}

// Interrupt forwards to the active provider, if any. No-op otherwise
// (idempotent by construction: interrupting nothing is a successful no-op).
func (m *Manager) Interrupt(ctx context.Context) error {
	m.mu.Lock()
	active := m.active
	m.mu.Unlock()
	if active == nil {
		return nil
	}
	return active.Interrupt(ctx)
}

// Send forwards user input to the active provider. Returns an error if
// nothing is running.
func (m *Manager) Send(ctx context.Context, text string) error {
	m.mu.Lock()
	active := m.active
	m.mu.Unlock()
	if active == nil {
		return fmt.Errorf("provider manager: no active provider")
	}
	return active.Send(ctx, text)
}

// Active returns the id/kind of the currently running provider, or ("",""
// , false) if none.
func (m *Manager) Active() (id string, kind Kind, running bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.running || m.active == nil {
		return "", "", false
	}
	return m.active.ID(), m.active.Kind(), true
}
