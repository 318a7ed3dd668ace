package connection

import (
	"errors"
	"time"
)

// Errors
var (
	ErrNotConnected     = errors.New("not connected")
	ErrStaleConnection  = errors.New("connection stale (no ping)")
	ErrHandshakeTimeout = errors.New("handshake timeout")
	ErrAlreadyClosed    = errors.New("already closed")
	ErrRetriesExhausted = errors.New("retry attempts exhausted")
)

// State is the supervisor's connection state.
type State string

const (
	StateDisconnected State = "disconnected"
	StateConnecting   State = "connecting"
	StateConnected    State = "connected"
	StateError        State = "error"
)

// Status is a point-in-time view of one game's connection.
type Status struct {
	State             State
	Error             string // human-readable, set when State is error
	ReconnectAttempts int
}

// TimestampedMessage wraps raw message data with receive timestamp.
type TimestampedMessage struct {
	Data       []byte    // Raw message bytes from the socket
	ReceivedAt time.Time // Local timestamp when ReadMessage() returned
}

// observeCommand is the handshake request sent after dialing. The
// server answers with a connection_established event.
type observeCommand struct {
	Cmd    string `json:"cmd"`
	GameID string `json:"game_id"`
}

// ClientConfig configures a single socket client.
type ClientConfig struct {
	URL              string        // Full websocket URL for one game's feed
	HandshakeTimeout time.Duration // Dial deadline
	PingTimeout      time.Duration // Max time without ping before considering connection stale
	WriteTimeout     time.Duration // Write deadline for sends
	BufferSize       int           // Message channel buffer size
}

// DefaultClientConfig returns sensible defaults.
func DefaultClientConfig() ClientConfig {
	return ClientConfig{
		HandshakeTimeout: 10 * time.Second,
		PingTimeout:      60 * time.Second,
		WriteTimeout:     5 * time.Second,
		BufferSize:       1000,
	}
}

// SupervisorConfig configures a per-game connection supervisor.
type SupervisorConfig struct {
	GameID string
	URL    string // Full websocket URL for this game's feed

	ConnectTimeout time.Duration // Window for dial + handshake ack, counted against the retry budget
	RetryAttempts  int           // Automatic retries after a failed attempt or lost connection
	RetryDelay     time.Duration // Fixed wait between attempts

	PingTimeout  time.Duration
	WriteTimeout time.Duration
	BufferSize   int
}

// DefaultSupervisorConfig returns sensible defaults.
func DefaultSupervisorConfig() SupervisorConfig {
	return SupervisorConfig{
		ConnectTimeout: 10 * time.Second,
		RetryAttempts:  5,
		RetryDelay:     2 * time.Second,
		PingTimeout:    60 * time.Second,
		WriteTimeout:   5 * time.Second,
		BufferSize:     1000,
	}
}

func (c SupervisorConfig) clientConfig() ClientConfig {
	cc := ClientConfig{
		URL:              c.URL,
		HandshakeTimeout: c.ConnectTimeout,
		PingTimeout:      c.PingTimeout,
		WriteTimeout:     c.WriteTimeout,
		BufferSize:       c.BufferSize,
	}
	def := DefaultClientConfig()
	if cc.HandshakeTimeout == 0 {
		cc.HandshakeTimeout = def.HandshakeTimeout
	}
	if cc.PingTimeout == 0 {
		cc.PingTimeout = def.PingTimeout
	}
	if cc.WriteTimeout == 0 {
		cc.WriteTimeout = def.WriteTimeout
	}
	if cc.BufferSize == 0 {
		cc.BufferSize = def.BufferSize
	}
	return cc
}
