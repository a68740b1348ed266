package domain

import (
	"errors"
	"testing"
)

// dayRoom returns a room in the day phase with five living players:
// p1 wolf, p2 healer, p3..p5 villagers.
func dayRoom(t *testing.T) *Room {
	t.Helper()
	room := startedRoom(t, RoomConfig{Capacity: 5, Wolves: 1, Healers: 1}, 5)

	room.CastWolfVote("p1", "p3")
	room.DecideHealer("p2", true, "")
	if _, err := room.FinalizeNight(); err != nil {
		t.Fatalf("FinalizeNight: %v", err)
	}

	if _, _, err := room.MarkReady("p1", PhaseDay); !errors.Is(err, ErrWrongPhase) {
		t.Fatalf("ready for night during announcement: got %v", err)
	}
	readyAll(t, room, PhaseAnnouncement)
	if err := room.BeginDay(); err != nil {
		t.Fatalf("BeginDay: %v", err)
	}
	return room
}

func vote(t *testing.T, room *Room, votes map[string]string) {
	t.Helper()
	for voter, target := range votes {
		if _, err := room.CastDayVote(voter, target); err != nil {
			t.Fatalf("CastDayVote(%s -> %s): %v", voter, target, err)
		}
	}
}

func TestDayVoteTieMeansNoElimination(t *testing.T) {
	room := dayRoom(t)

	vote(t, room, map[string]string{
		"p1": "p3", "p2": "p3",
		"p3": "p4", "p5": "p4",
		"p4": "p1",
	})
	if !room.AllDayVotesIn() {
		t.Fatal("all votes should be in")
	}

	outcome, err := room.ResolveDay()
	if err != nil {
		t.Fatalf("ResolveDay: %v", err)
	}
	if outcome.Eliminated != "" || len(outcome.Deaths) != 0 {
		t.Fatalf("2-2-1 split eliminated %q", outcome.Eliminated)
	}
	if len(room.LivingPlayers()) != 5 {
		t.Error("nobody should have died")
	}
}

func TestDayVoteMajorityEliminates(t *testing.T) {
	room := dayRoom(t)

	vote(t, room, map[string]string{
		"p1": "p3", "p2": "p3", "p4": "p3",
		"p3": "p4", "p5": SkipVote,
	})

	outcome, err := room.ResolveDay()
	if err != nil {
		t.Fatalf("ResolveDay: %v", err)
	}
	if outcome.Eliminated != "p3" || outcome.Skips != 1 || outcome.Voters != 5 {
		t.Fatalf("outcome = %+v", outcome)
	}
	if room.IsAlive("p3") {
		t.Error("p3 should be dead")
	}
	if _, err := room.CastDayVote("p1", "p4"); !errors.Is(err, ErrWrongPhase) {
		t.Fatalf("vote after resolution: got %v", err)
	}
}

func TestDayVoteSubMajority(t *testing.T) {
	room := dayRoom(t)

	// Two of five is the most votes but not more than half.
	vote(t, room, map[string]string{
		"p1": "p3", "p2": "p3",
		"p3": SkipVote, "p4": SkipVote, "p5": SkipVote,
	})

	outcome, _ := room.ResolveDay()
	if outcome.Eliminated != "" {
		t.Fatalf("sub-majority eliminated %q", outcome.Eliminated)
	}
}

func TestDayVoteValidation(t *testing.T) {
	room := dayRoom(t)

	if _, err := room.CastDayVote("p1", "p1"); !errors.Is(err, ErrInvalidTarget) {
		t.Fatalf("self vote: got %v", err)
	}
	if _, err := room.CastDayVote("p1", "ghost"); !errors.Is(err, ErrInvalidTarget) {
		t.Fatalf("unknown target: got %v", err)
	}

	mustPlayer(t, room, "p5").Alive = false
	if _, err := room.CastDayVote("p5", "p1"); !errors.Is(err, ErrNotAuthorized) {
		t.Fatalf("dead voter: got %v", err)
	}
	if _, err := room.CastDayVote("p1", "p5"); !errors.Is(err, ErrInvalidTarget) {
		t.Fatalf("dead target: got %v", err)
	}
}

func TestDayRevoteOverwrites(t *testing.T) {
	room := dayRoom(t)

	room.CastDayVote("p1", "p3")
	progress, err := room.CastDayVote("p1", "p4")
	if err != nil {
		t.Fatalf("CastDayVote: %v", err)
	}
	if progress.Voted != 1 || room.DayVotes["p1"] != "p4" {
		t.Fatalf("progress=%+v votes=%v", progress, room.DayVotes)
	}
}

func TestDepartureMidVoteShrinksVoterBase(t *testing.T) {
	room := dayRoom(t)

	vote(t, room, map[string]string{
		"p1": "p3", "p2": "p3", "p4": "p3", "p3": "p4",
	})
	if room.AllDayVotesIn() {
		t.Fatal("p5 has not voted yet")
	}

	room.RemovePlayer("p5")
	if !room.AllDayVotesIn() {
		t.Fatal("departure should complete the vote")
	}

	outcome, _ := room.ResolveDay()
	if outcome.Voters != 4 || outcome.Eliminated != "p3" {
		t.Fatalf("outcome = %+v", outcome)
	}
}

func TestDayLoverCascade(t *testing.T) {
	room := dayRoom(t)
	room.Lovers = &LoverPair{First: "p3", Second: "p4"}

	vote(t, room, map[string]string{
		"p1": "p3", "p2": "p3", "p5": "p3",
		"p3": "p1", "p4": "p1",
	})

	outcome, _ := room.ResolveDay()
	if len(outcome.Deaths) != 2 || outcome.Deaths[1].PlayerID != "p4" {
		t.Fatalf("deaths = %+v", outcome.Deaths)
	}
}

func TestReadyForNight(t *testing.T) {
	room := dayRoom(t)
	for _, p := range room.LivingPlayers() {
		room.CastDayVote(p.ID, SkipVote)
	}
	room.ResolveDay()

	readyAll(t, room, PhaseDay)
	if err := room.BeginNight(); err != nil {
		t.Fatalf("BeginNight: %v", err)
	}
	if room.NightCount != 2 || room.Phase != PhaseNight {
		t.Errorf("night=%d phase=%s", room.NightCount, room.Phase)
	}
}
