package task

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/pathrace/observer/internal/connection"
)

// Manager owns one connection supervisor per game and fans every
// inbound event into a single (gameID, event) stream. Per-socket order
// is preserved; events from different games interleave arbitrarily.
type Manager struct {
	cfg    Config
	logger *slog.Logger
	runID  uuid.UUID

	mu          sync.RWMutex
	supervisors map[string]*connection.Supervisor
	closed      bool

	events chan GameEvent
}

// NewManager creates a task connection manager.
func NewManager(cfg Config, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.EventBufferSize == 0 {
		cfg.EventBufferSize = DefaultConfig().EventBufferSize
	}

	return &Manager{
		cfg:         cfg,
		logger:      logger,
		runID:       uuid.New(),
		supervisors: make(map[string]*connection.Supervisor),
		events:      make(chan GameEvent, cfg.EventBufferSize),
	}
}

// RunID identifies this observation run.
func (m *Manager) RunID() uuid.UUID {
	return m.runID
}

// Events returns the fan-in channel of raw game events.
func (m *Manager) Events() <-chan GameEvent {
	return m.events
}

// ConnectToTask opens one supervisor per game id and waits for every
// first attempt to settle. All attempts run concurrently; partial
// connectivity is a valid outcome. An error is returned only when zero
// games connect, listing each game's failure.
func (m *Manager) ConnectToTask(ctx context.Context, gameIDs []string) error {
	if len(gameIDs) == 0 {
		return fmt.Errorf("connect to task: no game ids")
	}

	sups := make([]*connection.Supervisor, len(gameIDs))
	for i, id := range gameIDs {
		sups[i] = m.supervisorFor(id)
	}

	results := make([]error, len(gameIDs))
	var wg sync.WaitGroup
	for i, sup := range sups {
		wg.Add(1)
		go func(i int, sup *connection.Supervisor) {
			defer wg.Done()
			sup.Connect(ctx)
			results[i] = sup.WaitReady(ctx)
		}(i, sup)
	}
	wg.Wait()

	connected := 0
	var failures []string
	for i, err := range results {
		if err == nil {
			connected++
			continue
		}
		failures = append(failures, fmt.Sprintf("%s: %v", gameIDs[i], err))
	}

	m.logger.Info("task connect settled",
		"games", len(gameIDs),
		"connected", connected,
		"failed", len(failures),
	)

	if connected == 0 {
		return fmt.Errorf("connect to task: no games connected: %s",
			strings.Join(failures, "; "))
	}
	return nil
}

// RetryConnection bounces exactly one game's connection without
// touching the others. The retry budget starts fresh.
func (m *Manager) RetryConnection(ctx context.Context, gameID string) error {
	m.mu.RLock()
	sup, ok := m.supervisors[gameID]
	m.mu.RUnlock()
	if !ok {
		return fmt.Errorf("retry connection: unknown game %q", gameID)
	}

	sup.Disconnect()
	sup.Connect(ctx)
	return sup.WaitReady(ctx)
}

// DisconnectFromTask tears down every supervisor and closes the event
// stream. Supervisors stay tracked so that per-game statuses remain
// queryable for historical display.
func (m *Manager) DisconnectFromTask() {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	m.closed = true
	sups := make([]*connection.Supervisor, 0, len(m.supervisors))
	for _, sup := range m.supervisors {
		sups = append(sups, sup)
	}
	m.mu.Unlock()

	for _, sup := range sups {
		sup.Disconnect()
	}
	close(m.events)

	m.logger.Info("task disconnected", "games", len(sups))
}

// TaskStatus derives a single aggregate status from the per-game
// statuses. Connecting outranks partial, error and disconnected in
// display priority but never outranks connected.
func (m *Manager) TaskStatus() Status {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if len(m.supervisors) == 0 {
		return StatusDisconnected
	}

	var connected, connecting, errored int
	for _, sup := range m.supervisors {
		switch sup.Status().State {
		case connection.StateConnected:
			connected++
		case connection.StateConnecting:
			connecting++
		case connection.StateError:
			errored++
		}
	}

	var agg Status
	switch {
	case connected == len(m.supervisors):
		agg = StatusConnected
	case connected > 0:
		agg = StatusPartial
	case errored > 0:
		agg = StatusError
	default:
		agg = StatusDisconnected
	}

	if connecting > 0 && agg != StatusConnected {
		return StatusConnecting
	}
	return agg
}

// GameStatuses returns a snapshot of every tracked game's status.
func (m *Manager) GameStatuses() map[string]connection.Status {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make(map[string]connection.Status, len(m.supervisors))
	for id, sup := range m.supervisors {
		out[id] = sup.Status()
	}
	return out
}

// Stats returns current connection statistics.
func (m *Manager) Stats() Stats {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s := Stats{Tracked: len(m.supervisors)}
	for _, sup := range m.supervisors {
		if sup.Status().State == connection.StateConnected {
			s.Connected++
		}
	}
	return s
}

// supervisorFor returns the game's supervisor, creating and wiring it
// on first use.
func (m *Manager) supervisorFor(gameID string) *connection.Supervisor {
	m.mu.Lock()
	defer m.mu.Unlock()

	if sup, ok := m.supervisors[gameID]; ok {
		return sup
	}

	cfg := m.cfg.Supervisor
	cfg.GameID = gameID
	cfg.URL = gameURL(m.cfg.SocketURL, gameID)

	sup := connection.NewSupervisor(cfg, m.logger)
	sup.OnMessage(func(msg connection.TimestampedMessage) {
		m.forward(gameID, msg)
	})
	sup.OnStatusChange(func(st connection.Status) {
		m.logger.Debug("game status changed",
			"game_id", gameID,
			"state", st.State,
			"error", st.Error,
			"attempts", st.ReconnectAttempts,
		)
	})

	m.supervisors[gameID] = sup
	return sup
}

// forward places one game's event onto the fan-in channel without
// blocking other games.
func (m *Manager) forward(gameID string, msg connection.TimestampedMessage) {
	m.mu.RLock()
	closed := m.closed
	m.mu.RUnlock()
	if closed {
		return
	}

	ev := GameEvent{
		GameID:     gameID,
		Data:       msg.Data,
		ReceivedAt: msg.ReceivedAt,
	}

	select {
	case m.events <- ev:
	default:
		m.logger.Warn("event buffer full, dropping event", "game_id", gameID)
	}
}

func gameURL(base, gameID string) string {
	return strings.TrimRight(base, "/") + "/games/" + gameID
}
