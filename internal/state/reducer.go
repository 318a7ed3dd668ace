package state

import (
	"log/slog"

	"github.com/pathrace/observer/internal/event"
)

// maxPendingMoves bounds the reorder buffer for out-of-order move
// events. Overflow drops the lowest buffered index rather than ever
// appending out of order.
const maxPendingMoves = 32

// taskFacts are the shared, write-once task-level facts.
type taskFacts struct {
	startPage          string
	targetPage         string
	shortestPathLength *int
}

// gameState folds one game's events into its sequence. All methods are
// called with the store's lock held.
type gameState struct {
	seq     GameSequence
	pending map[int]event.MoveCompleted
}

func newGameState(gameID string) *gameState {
	return &gameState{
		seq: GameSequence{
			GameID: gameID,
			Status: GameNotStarted,
		},
		pending: make(map[int]event.MoveCompleted),
	}
}

// apply folds one event into the sequence and reports whether state
// changed. The switch is total: unrecognized kinds are logged and
// ignored, never fatal.
func (g *gameState) apply(ev event.Event, facts *taskFacts, logger *slog.Logger) bool {
	switch ev := ev.(type) {
	case event.ConnectionEstablished:
		return g.applyBootstrap(ev, facts, logger)
	case event.GameStarted:
		return g.applyStart(ev, facts)
	case event.MoveCompleted:
		return g.applyMove(ev, facts, logger)
	case event.OptimalPathsUpdated:
		return g.enrich(ev.Page, ev.Paths, ev.Distance, facts, logger)
	case event.GameFinished:
		return g.applyFinish(ev, logger)
	case event.Unknown:
		logger.Debug("ignoring unknown event type", "type", ev.Type)
		return false
	default:
		logger.Debug("ignoring unhandled event kind")
		return false
	}
}

// applyStart resets the sequence to a single move-0 page.
func (g *gameState) applyStart(ev event.GameStarted, facts *taskFacts) bool {
	recordTaskPages(facts, ev.StartPage, ev.TargetPage)

	g.seq.Status = GameInProgress
	g.seq.Success = false
	g.seq.Pages = []PageState{{
		GameID:      g.seq.GameID,
		PageTitle:   ev.StartPage,
		MoveIndex:   0,
		IsStartPage: true,
		// Zero-length race: the start page is also the target.
		IsTargetPage: ev.StartPage == ev.TargetPage,
	}}
	g.pending = make(map[int]event.MoveCompleted)
	return true
}

// applyMove appends the next page, buffering out-of-order arrivals.
func (g *gameState) applyMove(ev event.MoveCompleted, facts *taskFacts, logger *slog.Logger) bool {
	next := len(g.seq.Pages)

	switch {
	case next == 0:
		// No start page yet; hold the move until the sequence exists.
		g.buffer(ev, logger)
		return false

	case ev.MoveIndex < next:
		logger.Debug("dropping duplicate move",
			"move_index", ev.MoveIndex,
			"page", ev.Page,
		)
		return false

	case ev.MoveIndex > next:
		g.buffer(ev, logger)
		return false
	}

	g.appendMove(ev, facts)
	g.drainPending(facts)
	return true
}

// buffer holds an out-of-order move keyed by its index, dropping the
// lowest buffered index when the bound is exceeded (the gap below it
// is unrecoverable from this stream).
func (g *gameState) buffer(ev event.MoveCompleted, logger *slog.Logger) {
	g.pending[ev.MoveIndex] = ev

	if len(g.pending) <= maxPendingMoves {
		return
	}

	lowest := -1
	for idx := range g.pending {
		if lowest == -1 || idx < lowest {
			lowest = idx
		}
	}
	logger.Warn("move reorder buffer overflow, dropping move",
		"move_index", lowest,
		"page", g.pending[lowest].Page,
	)
	delete(g.pending, lowest)
}

func (g *gameState) appendMove(ev event.MoveCompleted, facts *taskFacts) {
	prev := g.seq.Pages[len(g.seq.Pages)-1]
	g.seq.Pages = append(g.seq.Pages, PageState{
		GameID:       g.seq.GameID,
		PageTitle:    ev.Page,
		MoveIndex:    len(g.seq.Pages),
		VisitedFrom:  prev.PageTitle,
		IsTargetPage: facts.targetPage != "" && ev.Page == facts.targetPage,
	})
	if g.seq.Status == GameNotStarted {
		g.seq.Status = GameInProgress
	}
}

// drainPending appends buffered moves that became contiguous.
func (g *gameState) drainPending(facts *taskFacts) {
	for {
		ev, ok := g.pending[len(g.seq.Pages)]
		if !ok {
			return
		}
		delete(g.pending, ev.MoveIndex)
		g.appendMove(ev, facts)
	}
}

// applyBootstrap reconstructs the sequence from a connection-time
// snapshot. It keeps whichever of snapshot and live sequence is
// longer; it never truncates state already derived from live events.
func (g *gameState) applyBootstrap(ev event.ConnectionEstablished, facts *taskFacts, logger *slog.Logger) bool {
	snap := ev.Snapshot
	if snap == nil {
		logger.Debug("connection established without snapshot")
		return false
	}

	recordTaskPages(facts, snap.StartPage, snap.TargetPage)

	entries := snap.MoveCount + 1
	if len(snap.History) < entries {
		if len(snap.History) > 0 {
			logger.Warn("snapshot history shorter than move count",
				"move_count", snap.MoveCount,
				"history_len", len(snap.History),
			)
		}
		entries = len(snap.History)
	}

	changed := false
	if entries > len(g.seq.Pages) {
		// Solver fields already attached by live events survive the
		// rebuild: the snapshot may predate them.
		carried := make(map[string]PageState, len(g.seq.Pages))
		for _, p := range g.seq.Pages {
			if p.OptimalPaths != nil || p.DistanceToTarget != nil {
				carried[p.PageTitle] = p
			}
		}

		pages := make([]PageState, entries)
		for i := 0; i < entries; i++ {
			title := snap.History[i]
			p := PageState{
				GameID:       g.seq.GameID,
				PageTitle:    title,
				MoveIndex:    i,
				IsStartPage:  i == 0,
				IsTargetPage: facts.targetPage != "" && title == facts.targetPage,
			}
			if i > 0 {
				p.VisitedFrom = snap.History[i-1]
			}
			if prev, ok := carried[title]; ok {
				p.OptimalPaths = clonePaths(prev.OptimalPaths)
				p.DistanceToTarget = cloneInt(prev.DistanceToTarget)
			}
			pages[i] = p
		}
		g.seq.Pages = pages
		g.recomputeDistanceChanges()
		if g.seq.Status != GameFinished {
			g.seq.Status = GameInProgress
		}
		g.pending = make(map[int]event.MoveCompleted)
		changed = true
	}

	for page, res := range snap.SolverResults {
		if g.enrich(page, res.Paths, res.Distance, facts, logger) {
			changed = true
		}
	}
	return changed
}

// enrich attaches solver results to every page sharing the title.
// Results are page-keyed, so a page reached twice gets the same
// enrichment; a title no entry matches is a no-op (re-delivery or the
// next bootstrap snapshot is the recovery path).
func (g *gameState) enrich(page string, paths [][]string, distance int, facts *taskFacts, logger *slog.Logger) bool {
	matched := false
	for i := range g.seq.Pages {
		if g.seq.Pages[i].PageTitle != page {
			continue
		}
		d := distance
		g.seq.Pages[i].OptimalPaths = clonePaths(paths)
		g.seq.Pages[i].DistanceToTarget = &d
		matched = true
	}
	if !matched {
		logger.Debug("solver update for unvisited page", "page", page)
		return false
	}

	g.recomputeDistanceChanges()

	if facts.shortestPathLength == nil && facts.startPage != "" && page == facts.startPage {
		d := distance
		facts.shortestPathLength = &d
	}
	return true
}

// recomputeDistanceChanges refreshes per-move distance deltas wherever
// both endpoints are known. Idempotent, so late and repeated solver
// arrivals converge to the same values.
func (g *gameState) recomputeDistanceChanges() {
	for i := 1; i < len(g.seq.Pages); i++ {
		prev := g.seq.Pages[i-1].DistanceToTarget
		cur := g.seq.Pages[i].DistanceToTarget
		if prev == nil || cur == nil {
			continue
		}
		change := *prev - *cur
		g.seq.Pages[i].DistanceChange = &change
	}
}

// applyFinish marks the game terminal. The sequence length stays
// authoritative over the event's move total.
func (g *gameState) applyFinish(ev event.GameFinished, logger *slog.Logger) bool {
	if moves := len(g.seq.Pages) - 1; moves >= 0 && ev.TotalMoves != moves {
		logger.Warn("finish event move total disagrees with sequence",
			"total_moves", ev.TotalMoves,
			"sequence_moves", moves,
		)
	}

	if g.seq.Status == GameFinished && g.seq.Success == ev.Success {
		return false
	}
	g.seq.Status = GameFinished
	g.seq.Success = ev.Success
	return true
}

// recordTaskPages sets the task-level start/target pair once; first
// writer wins, later values never overwrite.
func recordTaskPages(facts *taskFacts, start, target string) {
	if facts.startPage == "" && start != "" {
		facts.startPage = start
	}
	if facts.targetPage == "" && target != "" {
		facts.targetPage = target
	}
}
