package room_test

import (
	"testing"
	"time"

	"github.com/lucas/castlerush/internal/room"
	"github.com/lucas/castlerush/internal/room/testutil"
)

// These tests exercise the Room through its real actor loop (Run) and
// public channel-based API, unlike room_test.go's white-box tests which
// call handleJoin/handleGameplayCommand directly while Run is not active.

func TestOrchestrator_TwoPlayersReadyReachCountdown(t *testing.T) {
	r, broadcaster := testutil.NewTestRoom(t)
	cancel := testutil.StartRoom(t, r)
	defer cancel()

	aliceID, _ := testutil.JoinTestPlayer(t, r, "Alice", []string{"militia", "archer"})
	bobID, _ := testutil.JoinTestPlayer(t, r, "Bob", []string{"knight"})

	r.Submit(aliceID, room.CommandReady, "")
	r.Submit(bobID, room.CommandReady, "")

	deadline := time.After(time.Second)
	for {
		if r.Phase() == room.PhaseCountdown {
			break
		}
		select {
		case <-deadline:
			t.Fatalf("room never reached countdown, phase = %v", r.Phase())
		case <-time.After(5 * time.Millisecond):
		}
	}

	if _, ok := broadcaster.LastOfType("phase_change"); !ok {
		t.Error("expected a phase_change broadcast")
	}
}

func TestOrchestrator_SnapshotReflectsJoinedPlayers(t *testing.T) {
	r, _ := testutil.NewTestRoom(t)
	cancel := testutil.StartRoom(t, r)
	defer cancel()

	testutil.JoinTestPlayer(t, r, "Alice", []string{"militia"})

	view := r.Snapshot()
	if len(view.Players) != 1 {
		t.Fatalf("snapshot has %d players, want 1", len(view.Players))
	}
	if view.Phase != room.PhaseWaiting {
		t.Errorf("phase = %v, want waiting", view.Phase)
	}
}

func TestOrchestrator_LeaveDuringWaitingLeavesRoomEmpty(t *testing.T) {
	r, _ := testutil.NewTestRoom(t)
	cancel := testutil.StartRoom(t, r)
	defer cancel()

	sessionID, _ := testutil.JoinTestPlayer(t, r, "Alice", nil)
	r.Leave(sessionID)

	deadline := time.After(time.Second)
	for {
		view := r.Snapshot()
		if len(view.Players) == 0 {
			return
		}
		select {
		case <-deadline:
			t.Fatal("timed out waiting for leave to be processed")
		case <-time.After(5 * time.Millisecond):
		}
	}
}
