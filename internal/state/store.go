package state

import (
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/pathrace/observer/internal/event"
)

// Listener observes task state changes. It is called synchronously
// with an immutable snapshot: once on subscription and once after
// every change.
type Listener func(Snapshot)

// Store holds the reconstructed task state and the subscription bus.
// Mutation happens entirely inside synchronous, lock-held calls, so
// readers never observe a half-applied event.
type Store struct {
	logger *slog.Logger

	mu    sync.RWMutex
	games map[string]*gameState
	facts taskFacts

	mode          RenderingMode
	viewingCursor int
	currentCursor int

	listeners map[uuid.UUID]Listener
}

// NewStore creates an empty task state store in live mode.
func NewStore(logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		logger:    logger,
		games:     make(map[string]*gameState),
		mode:      ModeLive,
		listeners: make(map[uuid.UUID]Listener),
	}
}

// Apply folds one game's event into the store, creating the game's
// sequence lazily, and notifies subscribers when state changed.
func (s *Store) Apply(gameID string, ev event.Event) {
	s.mu.Lock()
	g, ok := s.games[gameID]
	if !ok {
		g = newGameState(gameID)
		s.games[gameID] = g
	}

	changed := g.apply(ev, &s.facts, s.logger.With("game_id", gameID))
	s.refreshCursorsLocked()

	var snap Snapshot
	var listeners []Listener
	if changed {
		snap = s.snapshotLocked()
		listeners = s.listenersLocked()
	}
	s.mu.Unlock()

	for _, l := range listeners {
		s.notify(l, snap)
	}
}

// Snapshot returns an immutable copy of the current task state.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshotLocked()
}

// Subscribe registers a listener, invokes it once immediately with the
// current snapshot, and returns an unsubscribe function.
func (s *Store) Subscribe(l Listener) func() {
	s.mu.Lock()
	id := uuid.New()
	s.listeners[id] = l
	snap := s.snapshotLocked()
	s.mu.Unlock()

	s.notify(l, snap)

	return func() {
		s.mu.Lock()
		delete(s.listeners, id)
		s.mu.Unlock()
	}
}

// SetViewingCursor moves the stepping cursor, clamped into
// [0, currentCursor]. Out-of-range requests never error and never
// change the rendering mode.
func (s *Store) SetViewingCursor(index int) {
	s.mu.Lock()
	if index < 0 {
		index = 0
	}
	if index > s.currentCursor {
		index = s.currentCursor
	}
	changed := index != s.viewingCursor
	s.viewingCursor = index

	var snap Snapshot
	var listeners []Listener
	if changed {
		snap = s.snapshotLocked()
		listeners = s.listenersLocked()
	}
	s.mu.Unlock()

	for _, l := range listeners {
		s.notify(l, snap)
	}
}

// EnterSteppingMode switches to replay without moving the cursor.
func (s *Store) EnterSteppingMode() {
	s.setMode(ModeStepping)
}

// EnterLiveMode resumes tracking the latest move: the viewing cursor
// snaps to the current cursor.
func (s *Store) EnterLiveMode() {
	s.setMode(ModeLive)
}

func (s *Store) setMode(mode RenderingMode) {
	s.mu.Lock()
	changed := s.mode != mode
	s.mode = mode
	if mode == ModeLive && s.viewingCursor != s.currentCursor {
		s.viewingCursor = s.currentCursor
		changed = true
	}

	var snap Snapshot
	var listeners []Listener
	if changed {
		snap = s.snapshotLocked()
		listeners = s.listenersLocked()
	}
	s.mu.Unlock()

	for _, l := range listeners {
		s.notify(l, snap)
	}
}

// refreshCursorsLocked recomputes the current cursor (highest applied
// move index across all games) and keeps the viewing cursor valid.
func (s *Store) refreshCursorsLocked() {
	cur := 0
	for _, g := range s.games {
		if n := len(g.seq.Pages) - 1; n > cur {
			cur = n
		}
	}
	s.currentCursor = cur

	if s.mode == ModeLive {
		s.viewingCursor = cur
	} else if s.viewingCursor > cur {
		s.viewingCursor = cur
	}
}

func (s *Store) snapshotLocked() Snapshot {
	games := make(map[string]GameSequence, len(s.games))
	for id, g := range s.games {
		games[id] = g.seq.clone()
	}
	return Snapshot{
		StartPage:          s.facts.startPage,
		TargetPage:         s.facts.targetPage,
		ShortestPathLength: cloneInt(s.facts.shortestPathLength),
		Mode:               s.mode,
		ViewingCursor:      s.viewingCursor,
		CurrentCursor:      s.currentCursor,
		Games:              games,
	}
}

func (s *Store) listenersLocked() []Listener {
	out := make([]Listener, 0, len(s.listeners))
	for _, l := range s.listeners {
		out = append(out, l)
	}
	return out
}

// notify invokes one listener, isolating panics so a failing listener
// cannot block the others or corrupt state.
func (s *Store) notify(l Listener, snap Snapshot) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("state listener panicked", "panic", r)
		}
	}()
	l(snap)
}
