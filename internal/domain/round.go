package domain

import (
	"fmt"
	"time"
)

// RandomSource is the subset of *rand.Rand used to deal roles
type RandomSource interface {
	Perm(n int) []int
	Intn(n int) int
}

// AssignRoles deals secret roles to every player and moves the room to
// role reveal. Wolves come first in a random permutation, then at most one
// of each enabled special role, and everybody else is a villager.
func (r *Room) AssignRoles(rng RandomSource) error {
	if r.Phase != PhaseLobby {
		return ErrWrongPhase
	}

	n := len(r.Players)
	if n < r.MinPlayers() {
		return fmt.Errorf("%w: need %d, have %d", ErrNotEnoughPlayers, r.MinPlayers(), n)
	}

	for _, player := range r.Players {
		player.ResetForNewGame()
		player.Role = RoleVillager
	}

	order := rng.Perm(n)
	wolves := min(r.Config.Wolves, n/2)

	next := 0
	for ; next < wolves; next++ {
		r.Players[order[next]].Role = RoleWolf
	}

	for _, role := range specialRoles {
		if r.enabledCount(role) == 0 {
			continue
		}
		if next >= n {
			break
		}
		r.Players[order[next]].Role = role
		next++
	}

	r.resetGameState()
	r.StartedAt = time.Now()
	r.setPhase(PhaseRoleReveal)

	return nil
}

// enabledCount returns how many of a special role the creator asked for.
func (r *Room) enabledCount(role Role) int {
	switch role {
	case RoleMatchmaker:
		return r.Config.Matchmakers
	case RoleClairvoyant:
		return r.Config.Clairvoyants
	case RoleHealerPoisoner:
		return r.Config.Healers
	}
	return 0
}

// resetGameState clears all per-game fields.
func (r *Room) resetGameState() {
	r.NightStage = StageNone
	r.NightVotes = make(map[string]string)
	r.DayVotes = make(map[string]string)
	r.PendingKill = ""
	r.PendingPoison = ""
	r.HealerUsed = false
	r.PoisonerUsed = false
	r.Lovers = nil
	r.DeathLog = nil
	r.NightCount = 0
	r.DayResolved = false
	r.ReadyForNextGame = make(map[string]bool)
	r.Winner = ""
	r.EndedAt = time.Time{}
}

// Teammates returns the other wolves for a wolf, nil for everyone else
func (r *Room) Teammates(playerID string) []PlayerInfo {
	p, err := r.GetPlayer(playerID)
	if err != nil || !p.IsWolf() {
		return nil
	}

	var mates []PlayerInfo
	for _, other := range r.Players {
		if other.ID != playerID && other.IsWolf() {
			mates = append(mates, other.ToInfo())
		}
	}
	return mates
}

// PlayAgainProgress reports how close a finished room is to starting over
type PlayAgainProgress struct {
	Ready    int `json:"ready"`
	Eligible int `json:"eligible"`
	Needed   int `json:"needed"`
}

// isEligibleForNextGame reports whether the player counts toward the quorum.
func (r *Room) isEligibleForNextGame(p *Player) bool {
	switch r.Rules.PlayAgain {
	case PlayAgainAll:
		return true
	case PlayAgainSurvivors:
		return p.Alive || r.ReadyForNextGame[p.ID]
	}
	return false
}

// OptInNextGame records that the player wants another game
func (r *Room) OptInNextGame(playerID string) (PlayAgainProgress, error) {
	if r.Phase != PhaseGameOver || r.Rules.PlayAgain == PlayAgainOff {
		return PlayAgainProgress{}, ErrWrongPhase
	}

	p, err := r.GetPlayer(playerID)
	if err != nil {
		return PlayAgainProgress{}, err
	}
	if !r.isEligibleForNextGame(p) {
		return PlayAgainProgress{}, fmt.Errorf("%w: only survivors can start another game", ErrNotAuthorized)
	}

	r.ReadyForNextGame[playerID] = true

	return r.PlayAgainProgress(), nil
}

// PlayAgainProgress returns the current opt-in counts
func (r *Room) PlayAgainProgress() PlayAgainProgress {
	progress := PlayAgainProgress{Needed: r.MinPlayers()}
	for _, p := range r.Players {
		if !r.isEligibleForNextGame(p) {
			continue
		}
		progress.Eligible++
		if r.ReadyForNextGame[p.ID] {
			progress.Ready++
		}
	}
	return progress
}

// PlayAgainReady reports whether every eligible player opted in and there
// are enough of them for a new game
func (r *Room) PlayAgainReady() bool {
	if r.Phase != PhaseGameOver || r.Rules.PlayAgain == PlayAgainOff {
		return false
	}
	progress := r.PlayAgainProgress()
	return progress.Eligible > 0 && progress.Ready == progress.Eligible && progress.Ready >= progress.Needed
}

// ResetForNextGame drops players who did not opt in and returns the room to
// the lobby. It returns the removed players.
func (r *Room) ResetForNextGame() ([]*Player, error) {
	if !r.PlayAgainReady() {
		return nil, ErrWrongPhase
	}

	kept := make([]*Player, 0, len(r.Players))
	var removed []*Player
	for _, p := range r.Players {
		if r.ReadyForNextGame[p.ID] {
			p.ResetForNewGame()
			kept = append(kept, p)
		} else {
			removed = append(removed, p)
		}
	}
	r.Players = kept

	r.resetGameState()
	r.StartedAt = time.Time{}
	r.setPhase(PhaseLobby)

	return removed, nil
}
