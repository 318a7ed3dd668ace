package connection

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// MessageHandler receives inbound messages in socket receipt order.
type MessageHandler func(TimestampedMessage)

// StatusHandler is invoked on every status transition.
type StatusHandler func(Status)

var errSocketClosed = errors.New("socket closed")

// Supervisor owns the lifecycle of one game's socket: it dials,
// completes the observe handshake, delivers messages in receipt order,
// and retries lost connections up to a bounded budget with a fixed
// delay. After the budget is exhausted it settles in the error state
// until the caller initiates a new Connect.
type Supervisor struct {
	cfg    SupervisorConfig
	logger *slog.Logger

	mu       sync.Mutex
	status   Status
	running  bool
	done     chan struct{} // closed by Disconnect; recreated per Connect
	ready    chan struct{} // closed once the first attempt settles
	readyErr error

	// Callback fence. Disconnect sets closed under cbMu so that no
	// handler runs after Disconnect returns.
	cbMu      sync.Mutex
	closed    bool
	onMessage MessageHandler
	onStatus  []StatusHandler
}

// NewSupervisor creates a supervisor for one game's feed.
func NewSupervisor(cfg SupervisorConfig, logger *slog.Logger) *Supervisor {
	if logger == nil {
		logger = slog.Default()
	}
	def := DefaultSupervisorConfig()
	if cfg.ConnectTimeout == 0 {
		cfg.ConnectTimeout = def.ConnectTimeout
	}
	if cfg.RetryAttempts == 0 {
		cfg.RetryAttempts = def.RetryAttempts
	}
	if cfg.RetryDelay == 0 {
		cfg.RetryDelay = def.RetryDelay
	}

	return &Supervisor{
		cfg:    cfg,
		logger: logger.With("game_id", cfg.GameID),
		status: Status{State: StateDisconnected},
	}
}

// OnMessage registers the message handler. Must be called before Connect.
func (s *Supervisor) OnMessage(h MessageHandler) {
	s.cbMu.Lock()
	defer s.cbMu.Unlock()
	s.onMessage = h
}

// OnStatusChange registers a handler invoked on every status transition.
// Must be called before Connect.
func (s *Supervisor) OnStatusChange(h StatusHandler) {
	s.cbMu.Lock()
	defer s.cbMu.Unlock()
	s.onStatus = append(s.onStatus, h)
}

// Status returns the current connection status.
func (s *Supervisor) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// Connect starts the supervision loop. It returns immediately; use
// WaitReady for the outcome of the first attempt. Calling Connect on a
// supervisor that settled in error resets the retry budget.
func (s *Supervisor) Connect(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = true
	s.done = make(chan struct{})
	s.ready = make(chan struct{})
	s.readyErr = nil
	done, ready := s.done, s.ready
	s.mu.Unlock()

	s.cbMu.Lock()
	s.closed = false
	s.cbMu.Unlock()

	go s.run(ctx, done, ready)
	return nil
}

// WaitReady blocks until the first connect attempt settles: nil when
// the handshake completed, the attempt's error otherwise. Retries keep
// running in the background either way.
func (s *Supervisor) WaitReady(ctx context.Context) error {
	s.mu.Lock()
	ready := s.ready
	s.mu.Unlock()
	if ready == nil {
		return ErrNotConnected
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-ready:
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.readyErr
}

// signalReady records the outcome of the first attempt for the Connect
// cycle that owns ready. Later attempts leave the recorded outcome alone.
func (s *Supervisor) signalReady(ready chan struct{}, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ready != ready {
		return
	}
	select {
	case <-ready:
		return
	default:
	}
	s.readyErr = err
	close(ready)
}

// Disconnect stops supervision and suppresses all further callbacks
// before returning. Pending retry timers are cancelled.
func (s *Supervisor) Disconnect() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	close(s.done)
	s.mu.Unlock()

	// Fence: any in-flight callback finishes, none start after this.
	s.cbMu.Lock()
	s.closed = true
	s.cbMu.Unlock()

	s.setState(StateDisconnected, "", 0)
}

// run is the supervision loop: one session per iteration, bounded
// fixed-delay retry between failed iterations.
func (s *Supervisor) run(ctx context.Context, done, ready chan struct{}) {
	attempts := 0

	for {
		s.setState(StateConnecting, "", attempts)

		err := s.session(ctx, done, ready)

		// A session that reached connected earns a fresh retry budget
		// when it later drops.
		if s.Status().State == StateConnected {
			attempts = 0
		}

		if stopped(ctx, done) {
			// Explicit Disconnect or context cancellation; Disconnect
			// already published the final state.
			return
		}
		if err == nil {
			err = errSocketClosed
		}

		s.signalReady(ready, err)

		s.logger.Warn("connection lost", "error", err, "attempts", attempts)

		if attempts >= s.cfg.RetryAttempts {
			s.logger.Error("retry attempts exhausted, giving up",
				"attempts", attempts,
			)
			s.setState(StateError, fmt.Sprintf("%v: %v", ErrRetriesExhausted, err), attempts)
			s.mu.Lock()
			s.running = false
			s.mu.Unlock()
			return
		}
		s.setState(StateError, err.Error(), attempts)
		attempts++

		s.setState(StateDisconnected, err.Error(), attempts)

		select {
		case <-done:
			return
		case <-ctx.Done():
			return
		case <-time.After(s.cfg.RetryDelay):
		}
	}
}

// session runs one dial-handshake-read cycle. It returns the failure
// reason, or nil when the socket closed cleanly or a stop was requested.
func (s *Supervisor) session(ctx context.Context, done, ready chan struct{}) error {
	cli := NewClient(s.cfg.clientConfig(), s.logger)
	defer cli.Close()

	if err := cli.Connect(ctx); err != nil {
		return fmt.Errorf("dial: %w", err)
	}

	if err := cli.SendJSON(observeCommand{Cmd: "observe", GameID: s.cfg.GameID}); err != nil {
		return fmt.Errorf("send observe: %w", err)
	}

	// The handshake completes when the server's first event arrives
	// within the connect window.
	handshake := time.NewTimer(s.cfg.ConnectTimeout)
	defer handshake.Stop()

	var first TimestampedMessage
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return nil
	case err := <-cli.Errors():
		return err
	case <-handshake.C:
		return ErrHandshakeTimeout
	case msg, ok := <-cli.Messages():
		if !ok {
			return errSocketClosed
		}
		first = msg
	}

	// A first payload that is not an event envelope means we are
	// talking to the wrong endpoint or protocol version.
	if err := checkEnvelope(first.Data); err != nil {
		return fmt.Errorf("handshake decode: %w", err)
	}

	s.setState(StateConnected, "", 0)
	s.signalReady(ready, nil)
	s.logger.Info("game feed connected")

	s.deliver(first)

	for {
		select {
		case <-done:
			return nil
		case <-ctx.Done():
			return nil
		case err := <-cli.Errors():
			return err
		case msg, ok := <-cli.Messages():
			if !ok {
				return errSocketClosed
			}
			s.deliver(msg)
		}
	}
}

// deliver invokes the message handler unless Disconnect already fenced
// callbacks off.
func (s *Supervisor) deliver(msg TimestampedMessage) {
	s.cbMu.Lock()
	defer s.cbMu.Unlock()
	if s.closed || s.onMessage == nil {
		return
	}
	s.onMessage(msg)
}

// setState publishes a status transition to registered handlers.
func (s *Supervisor) setState(state State, errMsg string, attempts int) {
	s.mu.Lock()
	prev := s.status
	s.status = Status{State: state, Error: errMsg, ReconnectAttempts: attempts}
	status := s.status
	s.mu.Unlock()

	if prev == status {
		return
	}

	s.cbMu.Lock()
	defer s.cbMu.Unlock()
	if s.closed && state != StateDisconnected {
		return
	}
	for _, h := range s.onStatus {
		h(status)
	}
}

// checkEnvelope verifies that data parses as an event envelope.
func checkEnvelope(data []byte) error {
	var env struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &env); err != nil {
		return err
	}
	if env.Type == "" {
		return errors.New("missing type discriminant")
	}
	return nil
}

func stopped(ctx context.Context, done chan struct{}) bool {
	select {
	case <-done:
		return true
	case <-ctx.Done():
		return true
	default:
		return false
	}
}
