package event

// Type discriminants carried in the wire envelope.
const (
	TypeConnectionEstablished = "connection_established"
	TypeGameStarted           = "game_started"
	TypeMoveCompleted         = "move_completed"
	TypeOptimalPathsUpdated   = "optimal_paths_updated"
	TypeGameFinished          = "game_finished"
)

// Event is the tagged union of all game event kinds.
type Event interface {
	// EventGameID returns the game this event belongs to.
	EventGameID() string

	kind() string
}

// SolverResult holds shortest-path data for one page.
type SolverResult struct {
	Paths    [][]string // each path is a sequence of titles ending at the target
	Distance int        // moves remaining to the target
}

// ConnectionEstablished is the handshake acknowledgment. Snapshot is
// nil when the game accumulated no state before the socket connected.
type ConnectionEstablished struct {
	GameID   string
	Snapshot *Snapshot
}

// Snapshot summarizes a game's state at connection time.
type Snapshot struct {
	MoveCount   int
	History     []string // page titles in move order; index 0 is the start page
	CurrentPage string
	StartPage   string
	TargetPage  string

	// SolverResults holds already-known shortest-path data keyed by page title.
	SolverResults map[string]SolverResult
}

// GameStarted resets a game to its start page.
type GameStarted struct {
	GameID     string
	StartPage  string
	TargetPage string
}

// MoveCompleted records one navigation step.
type MoveCompleted struct {
	GameID    string
	Page      string
	FromPage  string
	MoveIndex int
}

// OptimalPathsUpdated carries solver results for one page. It is keyed
// by page title, not move index: the same page reached twice gets the
// same enrichment.
type OptimalPathsUpdated struct {
	GameID   string
	Page     string
	Paths    [][]string
	Distance int
}

// GameFinished marks a game terminal.
type GameFinished struct {
	GameID     string
	Success    bool
	TotalMoves int
}

// Unknown preserves an unrecognized type for diagnostics.
type Unknown struct {
	GameID string
	Type   string
}

func (e ConnectionEstablished) EventGameID() string { return e.GameID }
func (e GameStarted) EventGameID() string           { return e.GameID }
func (e MoveCompleted) EventGameID() string         { return e.GameID }
func (e OptimalPathsUpdated) EventGameID() string   { return e.GameID }
func (e GameFinished) EventGameID() string          { return e.GameID }
func (e Unknown) EventGameID() string               { return e.GameID }

func (ConnectionEstablished) kind() string { return TypeConnectionEstablished }
func (GameStarted) kind() string           { return TypeGameStarted }
func (MoveCompleted) kind() string         { return TypeMoveCompleted }
func (OptimalPathsUpdated) kind() string   { return TypeOptimalPathsUpdated }
func (GameFinished) kind() string          { return TypeGameFinished }
func (e Unknown) kind() string             { return e.Type }
