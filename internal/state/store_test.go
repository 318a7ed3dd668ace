package state

import (
	"testing"

	"github.com/pathrace/observer/internal/event"
)

func TestStore_SubscribeImmediateSnapshot(t *testing.T) {
	s := NewStore(testLogger())
	s.Apply("g1", event.GameStarted{GameID: "g1", StartPage: "A", TargetPage: "Z"})

	var got []Snapshot
	unsub := s.Subscribe(func(snap Snapshot) {
		got = append(got, snap)
	})
	defer unsub()

	if len(got) != 1 {
		t.Fatalf("listener called %d times on subscribe, want 1", len(got))
	}
	if _, ok := got[0].Game("g1"); !ok {
		t.Error("initial snapshot missing existing game")
	}
}

func TestStore_NotifyOnChangeOnly(t *testing.T) {
	s := NewStore(testLogger())

	calls := 0
	unsub := s.Subscribe(func(Snapshot) { calls++ })
	defer unsub()

	s.Apply("g1", event.GameStarted{GameID: "g1", StartPage: "A", TargetPage: "Z"})
	s.Apply("g1", event.Unknown{GameID: "g1", Type: "heartbeat"})

	// Initial call plus one change; the unknown event is a no-op.
	if calls != 2 {
		t.Errorf("listener calls = %d, want 2", calls)
	}
}

func TestStore_Unsubscribe(t *testing.T) {
	s := NewStore(testLogger())

	calls := 0
	unsub := s.Subscribe(func(Snapshot) { calls++ })
	unsub()

	s.Apply("g1", event.GameStarted{GameID: "g1", StartPage: "A", TargetPage: "Z"})

	if calls != 1 {
		t.Errorf("listener calls = %d, want 1 (initial only)", calls)
	}
}

func TestStore_ListenerPanicIsolated(t *testing.T) {
	s := NewStore(testLogger())

	s.Subscribe(func(Snapshot) { panic("listener bug") })

	calls := 0
	s.Subscribe(func(Snapshot) { calls++ })

	s.Apply("g1", event.GameStarted{GameID: "g1", StartPage: "A", TargetPage: "Z"})

	if calls != 2 {
		t.Errorf("surviving listener calls = %d, want 2", calls)
	}
	// The store itself must stay usable.
	if _, ok := s.Snapshot().Game("g1"); !ok {
		t.Error("store state lost after listener panic")
	}
}

func TestStore_CursorTracksLongestGame(t *testing.T) {
	s := NewStore(testLogger())

	s.Apply("g1", event.GameStarted{GameID: "g1", StartPage: "A", TargetPage: "Z"})
	s.Apply("g2", event.GameStarted{GameID: "g2", StartPage: "A", TargetPage: "Z"})
	s.Apply("g1", event.MoveCompleted{GameID: "g1", Page: "B", FromPage: "A", MoveIndex: 1})
	s.Apply("g1", event.MoveCompleted{GameID: "g1", Page: "C", FromPage: "B", MoveIndex: 2})
	s.Apply("g2", event.MoveCompleted{GameID: "g2", Page: "B", FromPage: "A", MoveIndex: 1})

	snap := s.Snapshot()
	if snap.CurrentCursor != 2 {
		t.Errorf("CurrentCursor = %d, want 2", snap.CurrentCursor)
	}
	if snap.Mode != ModeLive || snap.ViewingCursor != 2 {
		t.Errorf("live mode cursor = %d, want pinned to 2", snap.ViewingCursor)
	}
}

func TestStore_SetViewingCursorClampsAndKeepsMode(t *testing.T) {
	s := NewStore(testLogger())

	s.Apply("g1", event.GameStarted{GameID: "g1", StartPage: "A", TargetPage: "Z"})
	s.Apply("g1", event.MoveCompleted{GameID: "g1", Page: "B", FromPage: "A", MoveIndex: 1})
	s.Apply("g1", event.MoveCompleted{GameID: "g1", Page: "C", FromPage: "B", MoveIndex: 2})

	s.EnterSteppingMode()

	s.SetViewingCursor(-5)
	if snap := s.Snapshot(); snap.ViewingCursor != 0 {
		t.Errorf("ViewingCursor = %d, want clamp to 0", snap.ViewingCursor)
	}

	s.SetViewingCursor(99)
	if snap := s.Snapshot(); snap.ViewingCursor != 2 {
		t.Errorf("ViewingCursor = %d, want clamp to 2", snap.ViewingCursor)
	}

	s.SetViewingCursor(1)
	snap := s.Snapshot()
	if snap.ViewingCursor != 1 {
		t.Errorf("ViewingCursor = %d, want 1", snap.ViewingCursor)
	}
	if snap.Mode != ModeStepping {
		t.Errorf("Mode = %q, cursor moves must not change the mode", snap.Mode)
	}
}

func TestStore_SteppingCursorHoldsDuringNewMoves(t *testing.T) {
	s := NewStore(testLogger())

	s.Apply("g1", event.GameStarted{GameID: "g1", StartPage: "A", TargetPage: "Z"})
	s.Apply("g1", event.MoveCompleted{GameID: "g1", Page: "B", FromPage: "A", MoveIndex: 1})

	s.EnterSteppingMode()
	s.SetViewingCursor(0)

	s.Apply("g1", event.MoveCompleted{GameID: "g1", Page: "C", FromPage: "B", MoveIndex: 2})

	snap := s.Snapshot()
	if snap.ViewingCursor != 0 {
		t.Errorf("ViewingCursor = %d, want 0 while stepping", snap.ViewingCursor)
	}
	if snap.CurrentCursor != 2 {
		t.Errorf("CurrentCursor = %d, want 2", snap.CurrentCursor)
	}
}

func TestStore_EnterLiveModeSnapsCursor(t *testing.T) {
	s := NewStore(testLogger())

	s.Apply("g1", event.GameStarted{GameID: "g1", StartPage: "A", TargetPage: "Z"})
	s.Apply("g1", event.MoveCompleted{GameID: "g1", Page: "B", FromPage: "A", MoveIndex: 1})

	s.EnterSteppingMode()
	s.SetViewingCursor(0)
	s.EnterLiveMode()

	snap := s.Snapshot()
	if snap.Mode != ModeLive {
		t.Errorf("Mode = %q, want %q", snap.Mode, ModeLive)
	}
	if snap.ViewingCursor != snap.CurrentCursor {
		t.Errorf("ViewingCursor = %d, want %d", snap.ViewingCursor, snap.CurrentCursor)
	}
}

func TestStore_SnapshotIsolation(t *testing.T) {
	s := NewStore(testLogger())

	s.Apply("g1", event.GameStarted{GameID: "g1", StartPage: "A", TargetPage: "Z"})
	s.Apply("g1", event.OptimalPathsUpdated{GameID: "g1", Page: "A", Paths: [][]string{{"A", "Z"}}, Distance: 1})

	snap := s.Snapshot()
	g := snap.Games["g1"]
	g.Pages[0].PageTitle = "mutated"
	g.Pages[0].OptimalPaths[0][0] = "mutated"
	*g.Pages[0].DistanceToTarget = 99

	fresh := mustGame(t, s, "g1")
	if fresh.Pages[0].PageTitle != "A" {
		t.Error("snapshot mutation leaked into store page title")
	}
	if fresh.Pages[0].OptimalPaths[0][0] != "A" {
		t.Error("snapshot mutation leaked into store solver paths")
	}
	if *fresh.Pages[0].DistanceToTarget != 1 {
		t.Error("snapshot mutation leaked into store distance")
	}
}
