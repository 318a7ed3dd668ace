package task

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/pathrace/observer/internal/connection"
)

// taskServer serves one websocket feed per game path. Games listed in
// silent upgrade but never complete the observe handshake.
func taskServer(t *testing.T, silent map[string]bool) *httptest.Server {
	upgrader := websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool { return true },
	}

	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gameID := strings.TrimPrefix(r.URL.Path, "/games/")

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Logf("upgrade error: %v", err)
			return
		}
		defer conn.Close()

		if silent[gameID] {
			for {
				if _, _, err := conn.ReadMessage(); err != nil {
					return
				}
			}
		}

		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
		ack := `{"type":"connection_established","game_id":"` + gameID + `","msg":{}}`
		if err := conn.WriteMessage(websocket.TextMessage, []byte(ack)); err != nil {
			return
		}

		move := `{"type":"move_completed","game_id":"` + gameID + `","msg":{"page":"B","from_page":"A","move_index":1}}`
		if err := conn.WriteMessage(websocket.TextMessage, []byte(move)); err != nil {
			return
		}

		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
}

func testManagerConfig(server *httptest.Server) Config {
	cfg := DefaultConfig()
	cfg.SocketURL = "ws" + strings.TrimPrefix(server.URL, "http")
	cfg.Supervisor = connection.SupervisorConfig{
		ConnectTimeout: 200 * time.Millisecond,
		RetryAttempts:  1,
		RetryDelay:     20 * time.Millisecond,
		PingTimeout:    30 * time.Second,
		WriteTimeout:   time.Second,
		BufferSize:     100,
	}
	cfg.EventBufferSize = 100
	return cfg
}

func waitForTaskStatus(t *testing.T, m *Manager, want Status) {
	t.Helper()
	deadline := time.After(3 * time.Second)
	for {
		if m.TaskStatus() == want {
			return
		}
		select {
		case <-deadline:
			t.Fatalf("task status = %q, want %q", m.TaskStatus(), want)
		case <-time.After(10 * time.Millisecond):
		}
	}
}

func TestManager_ConnectToTask(t *testing.T) {
	server := taskServer(t, nil)
	defer server.Close()

	m := NewManager(testManagerConfig(server), nil)
	defer m.DisconnectFromTask()

	if err := m.ConnectToTask(context.Background(), []string{"g1", "g2"}); err != nil {
		t.Fatalf("ConnectToTask failed: %v", err)
	}

	if got := m.TaskStatus(); got != StatusConnected {
		t.Errorf("task status = %q, want %q", got, StatusConnected)
	}
	if stats := m.Stats(); stats.Tracked != 2 || stats.Connected != 2 {
		t.Errorf("stats = %+v, want 2 tracked, 2 connected", stats)
	}
}

func TestManager_ConnectToTask_Partial(t *testing.T) {
	server := taskServer(t, map[string]bool{"g2": true})
	defer server.Close()

	m := NewManager(testManagerConfig(server), nil)
	defer m.DisconnectFromTask()

	// g2 never completes the handshake; the call still succeeds because
	// g1 connected.
	if err := m.ConnectToTask(context.Background(), []string{"g1", "g2"}); err != nil {
		t.Fatalf("ConnectToTask failed: %v", err)
	}

	// Once g2's retry budget runs out the aggregate settles on partial.
	waitForTaskStatus(t, m, StatusPartial)

	statuses := m.GameStatuses()
	if statuses["g1"].State != connection.StateConnected {
		t.Errorf("g1 state = %q, want connected", statuses["g1"].State)
	}
	if statuses["g2"].State != connection.StateError {
		t.Errorf("g2 state = %q, want error", statuses["g2"].State)
	}
	if statuses["g2"].Error == "" {
		t.Error("g2 missing error message")
	}
}

func TestManager_TaskStatus_ConnectingOutranksPartial(t *testing.T) {
	server := taskServer(t, map[string]bool{"g2": true})
	defer server.Close()

	cfg := testManagerConfig(server)
	// Keep g2's first attempt in flight long enough to observe it.
	cfg.Supervisor.ConnectTimeout = 3 * time.Second
	m := NewManager(cfg, nil)
	defer m.DisconnectFromTask()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- m.ConnectToTask(ctx, []string{"g1", "g2"}) }()

	// Once g1 is connected the aggregate would be partial, but the
	// in-flight g2 handshake holds it at connecting.
	deadline := time.After(3 * time.Second)
	for {
		if m.GameStatuses()["g1"].State == connection.StateConnected {
			if got := m.TaskStatus(); got != StatusConnecting {
				t.Fatalf("task status = %q, want %q while g2 is still connecting", got, StatusConnecting)
			}
			break
		}
		select {
		case <-deadline:
			t.Fatal("g1 never connected")
		case <-time.After(5 * time.Millisecond):
		}
	}

	cancel()
	select {
	case err := <-done:
		// g1 connected, so the aggregate call succeeds.
		if err != nil {
			t.Fatalf("ConnectToTask failed: %v", err)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("ConnectToTask never returned")
	}
}

func TestManager_TaskStatus_ConnectingNeverOutranksConnected(t *testing.T) {
	server := taskServer(t, nil)
	defer server.Close()

	m := NewManager(testManagerConfig(server), nil)
	defer m.DisconnectFromTask()

	if err := m.ConnectToTask(context.Background(), []string{"g1", "g2"}); err != nil {
		t.Fatalf("ConnectToTask failed: %v", err)
	}

	// With every game connected nothing is in flight; the aggregate
	// reports connected, not connecting.
	if got := m.TaskStatus(); got != StatusConnected {
		t.Errorf("task status = %q, want %q", got, StatusConnected)
	}
}

func TestManager_ConnectToTask_AllFail(t *testing.T) {
	server := taskServer(t, map[string]bool{"g1": true, "g2": true})
	defer server.Close()

	m := NewManager(testManagerConfig(server), nil)
	defer m.DisconnectFromTask()

	err := m.ConnectToTask(context.Background(), []string{"g1", "g2"})
	if err == nil {
		t.Fatal("ConnectToTask = nil, want error when zero games connect")
	}
	for _, id := range []string{"g1", "g2"} {
		if !strings.Contains(err.Error(), id) {
			t.Errorf("error %q missing failure for %s", err, id)
		}
	}

	// Once every retry budget runs out the aggregate settles on error.
	waitForTaskStatus(t, m, StatusError)
}

func TestManager_ConnectToTask_NoGames(t *testing.T) {
	m := NewManager(Config{SocketURL: "ws://localhost:1"}, nil)
	if err := m.ConnectToTask(context.Background(), nil); err == nil {
		t.Fatal("ConnectToTask = nil, want error for empty game list")
	}
}

func TestManager_EventsFanIn(t *testing.T) {
	server := taskServer(t, nil)
	defer server.Close()

	m := NewManager(testManagerConfig(server), nil)
	defer m.DisconnectFromTask()

	if err := m.ConnectToTask(context.Background(), []string{"g1", "g2"}); err != nil {
		t.Fatalf("ConnectToTask failed: %v", err)
	}

	// Each game delivers its handshake ack plus one move.
	perGame := make(map[string][]string)
	timeout := time.After(3 * time.Second)
	for len(perGame["g1"])+len(perGame["g2"]) < 4 {
		select {
		case ev := <-m.Events():
			var env struct {
				Type string `json:"type"`
			}
			if err := json.Unmarshal(ev.Data, &env); err != nil {
				t.Fatalf("malformed event: %v", err)
			}
			perGame[ev.GameID] = append(perGame[ev.GameID], env.Type)
			if ev.ReceivedAt.IsZero() {
				t.Error("event missing receive timestamp")
			}
		case <-timeout:
			t.Fatalf("events received so far: %v", perGame)
		}
	}

	want := []string{"connection_established", "move_completed"}
	for _, id := range []string{"g1", "g2"} {
		got := perGame[id]
		if len(got) != len(want) {
			t.Fatalf("%s events = %v, want %v", id, got, want)
		}
		for i := range want {
			if got[i] != want[i] {
				t.Errorf("%s event %d = %q, want %q (socket order)", id, i, got[i], want[i])
			}
		}
	}
}

func TestManager_RetryConnection(t *testing.T) {
	server := taskServer(t, nil)
	defer server.Close()

	m := NewManager(testManagerConfig(server), nil)
	defer m.DisconnectFromTask()

	if err := m.ConnectToTask(context.Background(), []string{"g1"}); err != nil {
		t.Fatalf("ConnectToTask failed: %v", err)
	}

	if err := m.RetryConnection(context.Background(), "g1"); err != nil {
		t.Fatalf("RetryConnection failed: %v", err)
	}
	waitForTaskStatus(t, m, StatusConnected)
}

func TestManager_RetryConnection_UnknownGame(t *testing.T) {
	m := NewManager(Config{SocketURL: "ws://localhost:1"}, nil)
	if err := m.RetryConnection(context.Background(), "nope"); err == nil {
		t.Fatal("RetryConnection = nil, want error for untracked game")
	}
}

func TestManager_TaskStatus_Empty(t *testing.T) {
	m := NewManager(Config{SocketURL: "ws://localhost:1"}, nil)
	if got := m.TaskStatus(); got != StatusDisconnected {
		t.Errorf("task status = %q, want %q", got, StatusDisconnected)
	}
}

func TestManager_DisconnectFromTask(t *testing.T) {
	server := taskServer(t, nil)
	defer server.Close()

	m := NewManager(testManagerConfig(server), nil)

	if err := m.ConnectToTask(context.Background(), []string{"g1"}); err != nil {
		t.Fatalf("ConnectToTask failed: %v", err)
	}

	m.DisconnectFromTask()

	// The event stream terminates.
	deadline := time.After(2 * time.Second)
	for {
		select {
		case _, ok := <-m.Events():
			if !ok {
				if got := m.TaskStatus(); got != StatusDisconnected {
					t.Errorf("task status = %q, want %q", got, StatusDisconnected)
				}
				// Idempotent.
				m.DisconnectFromTask()
				return
			}
		case <-deadline:
			t.Fatal("event channel never closed")
		}
	}
}

func TestGameURL(t *testing.T) {
	tests := []struct {
		base string
		want string
	}{
		{"ws://host:8080", "ws://host:8080/games/g1"},
		{"ws://host:8080/", "ws://host:8080/games/g1"},
	}
	for _, tt := range tests {
		if got := gameURL(tt.base, "g1"); got != tt.want {
			t.Errorf("gameURL(%q) = %q, want %q", tt.base, got, tt.want)
		}
	}
}
