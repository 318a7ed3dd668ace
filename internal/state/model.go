package state

// GameStatus is one player's lifecycle within the task.
type GameStatus string

const (
	GameNotStarted GameStatus = "not_started"
	GameInProgress GameStatus = "in_progress"
	GameFinished   GameStatus = "finished"
)

// RenderingMode selects between tracking the latest move and replaying
// an earlier one.
type RenderingMode string

const (
	ModeLive     RenderingMode = "live"
	ModeStepping RenderingMode = "stepping"
)

// PageState is one game's state at one move. Identity (page title and
// move index) is immutable after creation; only the solver fields are
// enriched in place when results arrive.
type PageState struct {
	GameID       string
	PageTitle    string
	MoveIndex    int
	IsStartPage  bool
	IsTargetPage bool

	// VisitedFrom is the previous page's title, empty for move 0.
	VisitedFrom string

	// Solver enrichment, page-keyed: every entry sharing a title gets
	// the same values. Nil until the solver reports.
	OptimalPaths     [][]string
	DistanceToTarget *int

	// DistanceChange is previous distance minus this one: positive
	// means the move got closer to the target. Nil when either
	// distance is unknown.
	DistanceChange *int
}

// GameSequence is one player's ordered navigation history. Pages is
// append-only with strictly increasing, gapless move indexes starting
// at 0.
type GameSequence struct {
	GameID  string
	Status  GameStatus
	Success bool
	Pages   []PageState
}

// Snapshot is an immutable view of the whole task. Callers may retain
// it; it shares no memory with the store.
type Snapshot struct {
	StartPage          string
	TargetPage         string
	ShortestPathLength *int

	Mode          RenderingMode
	ViewingCursor int
	CurrentCursor int

	Games map[string]GameSequence
}

// Game is a convenience accessor; ok reports whether the game exists.
func (s Snapshot) Game(gameID string) (GameSequence, bool) {
	g, ok := s.Games[gameID]
	return g, ok
}

func (g GameSequence) clone() GameSequence {
	out := g
	out.Pages = make([]PageState, len(g.Pages))
	for i, p := range g.Pages {
		out.Pages[i] = p.clone()
	}
	return out
}

func (p PageState) clone() PageState {
	out := p
	out.OptimalPaths = clonePaths(p.OptimalPaths)
	out.DistanceToTarget = cloneInt(p.DistanceToTarget)
	out.DistanceChange = cloneInt(p.DistanceChange)
	return out
}

func clonePaths(paths [][]string) [][]string {
	if paths == nil {
		return nil
	}
	out := make([][]string, len(paths))
	for i, p := range paths {
		out[i] = append([]string(nil), p...)
	}
	return out
}

func cloneInt(v *int) *int {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}
