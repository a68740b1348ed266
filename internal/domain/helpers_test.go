package domain

import (
	"fmt"
	"testing"
)

// identityRand deals roles in join order.
type identityRand struct{}

func (identityRand) Perm(n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = i
	}
	return out
}

func (identityRand) Intn(int) int { return 0 }

func testRules() Rules {
	return Rules{MinPlayers: 4, MaxPlayers: 20, MaxNameLength: 20, PlayAgain: PlayAgainAll}
}

// newTestRoom creates a lobby with n players named p1..pn.
func newTestRoom(t *testing.T, cfg RoomConfig, n int) *Room {
	t.Helper()
	if cfg.Capacity == 0 {
		cfg.Capacity = n
	}
	room, err := NewRoom("test", cfg, testRules())
	if err != nil {
		t.Fatalf("NewRoom: %v", err)
	}
	for i := 1; i <= n; i++ {
		id := fmt.Sprintf("p%d", i)
		if _, err := room.AddPlayer(id, "Player "+id); err != nil {
			t.Fatalf("AddPlayer(%s): %v", id, err)
		}
	}
	return room
}

// startedRoom deals roles in join order and opens the first night.
func startedRoom(t *testing.T, cfg RoomConfig, n int) *Room {
	t.Helper()
	room := newTestRoom(t, cfg, n)
	if err := room.AssignRoles(identityRand{}); err != nil {
		t.Fatalf("AssignRoles: %v", err)
	}
	if err := room.BeginNight(); err != nil {
		t.Fatalf("BeginNight: %v", err)
	}
	return room
}

func mustPlayer(t *testing.T, room *Room, id string) *Player {
	t.Helper()
	p, err := room.GetPlayer(id)
	if err != nil {
		t.Fatalf("GetPlayer(%s): %v", id, err)
	}
	return p
}

// readyAll marks every living player ready in the given phase.
func readyAll(t *testing.T, room *Room, phase Phase) {
	t.Helper()
	var quorum bool
	for _, p := range room.LivingPlayers() {
		var err error
		_, quorum, err = room.MarkReady(p.ID, phase)
		if err != nil {
			t.Fatalf("MarkReady(%s): %v", p.ID, err)
		}
	}
	if !quorum {
		t.Fatal("expected ready quorum")
	}
}
