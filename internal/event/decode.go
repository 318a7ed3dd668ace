package event

import (
	"encoding/json"
	"fmt"
)

// envelope is the outer wire format common to all messages.
type envelope struct {
	Type   string          `json:"type"`
	GameID string          `json:"game_id"`
	Ts     int64           `json:"ts,omitempty"`
	Msg    json.RawMessage `json:"msg"`
}

// Wire types for JSON parsing

type connectionEstablishedWire struct {
	Snapshot *struct {
		MoveCount   int      `json:"move_count"`
		History     []string `json:"history"`
		CurrentPage string   `json:"current_page"`
		StartPage   string   `json:"start_page"`
		TargetPage  string   `json:"target_page"`
		Solver      []struct {
			Page     string     `json:"page"`
			Paths    [][]string `json:"optimal_paths"`
			Distance int        `json:"distance_to_target"`
		} `json:"solver_results"`
	} `json:"snapshot"`
}

type gameStartedWire struct {
	StartPage  string `json:"start_page"`
	TargetPage string `json:"target_page"`
}

type moveCompletedWire struct {
	Page      string `json:"page"`
	FromPage  string `json:"from_page"`
	MoveIndex int    `json:"move_index"`
}

type optimalPathsWire struct {
	Page     string     `json:"page"`
	Paths    [][]string `json:"optimal_paths"`
	Distance int        `json:"distance_to_target"`
}

type gameFinishedWire struct {
	Success    bool `json:"success"`
	TotalMoves int  `json:"total_moves"`
}

// ExtractType returns the envelope type without a full parse. Used by
// consumers that only need the discriminant (e.g. the archive journal).
func ExtractType(data []byte) (string, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return "", err
	}
	return env.Type, nil
}

// Decode validates a raw payload and converts it into a typed event.
// Unrecognized types return Unknown with a nil error; malformed
// payloads return an error.
func Decode(data []byte) (Event, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("parse envelope: %w", err)
	}
	if env.GameID == "" {
		return nil, fmt.Errorf("envelope type %q missing game_id", env.Type)
	}

	switch env.Type {
	case TypeConnectionEstablished:
		return decodeConnectionEstablished(env)
	case TypeGameStarted:
		return decodeGameStarted(env)
	case TypeMoveCompleted:
		return decodeMoveCompleted(env)
	case TypeOptimalPathsUpdated:
		return decodeOptimalPaths(env)
	case TypeGameFinished:
		return decodeGameFinished(env)
	default:
		return Unknown{GameID: env.GameID, Type: env.Type}, nil
	}
}

func decodeConnectionEstablished(env envelope) (Event, error) {
	var wire connectionEstablishedWire
	if len(env.Msg) > 0 {
		if err := json.Unmarshal(env.Msg, &wire); err != nil {
			return nil, fmt.Errorf("parse connection_established: %w", err)
		}
	}

	ev := ConnectionEstablished{GameID: env.GameID}
	if wire.Snapshot == nil {
		return ev, nil
	}

	snap := &Snapshot{
		MoveCount:   wire.Snapshot.MoveCount,
		History:     wire.Snapshot.History,
		CurrentPage: wire.Snapshot.CurrentPage,
		StartPage:   wire.Snapshot.StartPage,
		TargetPage:  wire.Snapshot.TargetPage,
	}
	if len(wire.Snapshot.Solver) > 0 {
		snap.SolverResults = make(map[string]SolverResult, len(wire.Snapshot.Solver))
		for _, r := range wire.Snapshot.Solver {
			if r.Page == "" {
				continue
			}
			snap.SolverResults[r.Page] = SolverResult{
				Paths:    r.Paths,
				Distance: r.Distance,
			}
		}
	}
	ev.Snapshot = snap
	return ev, nil
}

func decodeGameStarted(env envelope) (Event, error) {
	var wire gameStartedWire
	if err := json.Unmarshal(env.Msg, &wire); err != nil {
		return nil, fmt.Errorf("parse game_started: %w", err)
	}
	if wire.StartPage == "" {
		return nil, fmt.Errorf("game_started for %s missing start_page", env.GameID)
	}
	if wire.TargetPage == "" {
		return nil, fmt.Errorf("game_started for %s missing target_page", env.GameID)
	}
	return GameStarted{
		GameID:     env.GameID,
		StartPage:  wire.StartPage,
		TargetPage: wire.TargetPage,
	}, nil
}

func decodeMoveCompleted(env envelope) (Event, error) {
	var wire moveCompletedWire
	if err := json.Unmarshal(env.Msg, &wire); err != nil {
		return nil, fmt.Errorf("parse move_completed: %w", err)
	}
	if wire.Page == "" {
		return nil, fmt.Errorf("move_completed for %s missing page", env.GameID)
	}
	if wire.MoveIndex < 1 {
		return nil, fmt.Errorf("move_completed for %s has invalid move_index %d", env.GameID, wire.MoveIndex)
	}
	return MoveCompleted{
		GameID:    env.GameID,
		Page:      wire.Page,
		FromPage:  wire.FromPage,
		MoveIndex: wire.MoveIndex,
	}, nil
}

func decodeOptimalPaths(env envelope) (Event, error) {
	var wire optimalPathsWire
	if err := json.Unmarshal(env.Msg, &wire); err != nil {
		return nil, fmt.Errorf("parse optimal_paths_updated: %w", err)
	}
	if wire.Page == "" {
		return nil, fmt.Errorf("optimal_paths_updated for %s missing page", env.GameID)
	}
	return OptimalPathsUpdated{
		GameID:   env.GameID,
		Page:     wire.Page,
		Paths:    wire.Paths,
		Distance: wire.Distance,
	}, nil
}

func decodeGameFinished(env envelope) (Event, error) {
	var wire gameFinishedWire
	if err := json.Unmarshal(env.Msg, &wire); err != nil {
		return nil, fmt.Errorf("parse game_finished: %w", err)
	}
	return GameFinished{
		GameID:     env.GameID,
		Success:    wire.Success,
		TotalMoves: wire.TotalMoves,
	}, nil
}
