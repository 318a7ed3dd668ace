package task

import (
	"time"

	"github.com/pathrace/observer/internal/connection"
)

// Status is the aggregate connection status of a task.
type Status string

const (
	StatusDisconnected Status = "disconnected"
	StatusConnecting   Status = "connecting"
	StatusConnected    Status = "connected"
	StatusPartial      Status = "partial"
	StatusError        Status = "error"
)

// GameEvent is a raw event from one game's socket, tagged with its
// origin for the fan-in consumer.
type GameEvent struct {
	GameID     string
	Data       []byte
	ReceivedAt time.Time
}

// Config configures the task connection manager.
type Config struct {
	// SocketURL is the base websocket URL; a game's feed lives at
	// SocketURL + "/games/" + gameID.
	SocketURL string

	// Supervisor is the per-game supervisor template. GameID and URL
	// are filled in per game.
	Supervisor connection.SupervisorConfig

	// EventBufferSize is the capacity of the fan-in event channel.
	EventBufferSize int
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		Supervisor:      connection.DefaultSupervisorConfig(),
		EventBufferSize: 1000,
	}
}

// Stats provides statistics about the task's connections.
type Stats struct {
	Tracked   int
	Connected int
}
