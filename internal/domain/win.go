package domain

import (
	"sort"
	"time"
)

// EvaluateWinner decides the game from the living head count. The checks run
// in a fixed order: too few players left, wolves at parity, wolves gone.
func EvaluateWinner(wolves, others int) (Faction, bool) {
	switch {
	case wolves+others < 3:
		if wolves > 0 {
			return FactionWolves, true
		}
		return FactionVillagers, true
	case wolves >= others:
		return FactionWolves, true
	case wolves == 0:
		return FactionVillagers, true
	}
	return "", false
}

// CheckWinner evaluates the room's living players
func (r *Room) CheckWinner() (Faction, bool) {
	if !r.Phase.InGame() {
		return "", false
	}

	wolves, others := 0, 0
	for _, p := range r.LivingPlayers() {
		if p.IsWolf() {
			wolves++
		} else {
			others++
		}
	}
	return EvaluateWinner(wolves, others)
}

// EndGame marks the room finished. It returns false if the game had already
// ended, so callers run their end-of-game work exactly once.
func (r *Room) EndGame(winner Faction) bool {
	if !r.Phase.InGame() {
		return false
	}

	r.Winner = winner
	r.NightVotes = make(map[string]string)
	r.DayVotes = make(map[string]string)
	r.PendingKill = ""
	r.PendingPoison = ""
	r.ReadyForNextGame = make(map[string]bool)
	r.EndedAt = time.Now()
	r.setPhase(PhaseGameOver)

	return true
}

// FinalPlayer is a row of the game-over roster
type FinalPlayer struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Role    Role   `json:"role"`
	Alive   bool   `json:"alive"`
	Won     bool   `json:"won"`
	LoverID string `json:"loverId,omitempty"`
}

// FinalRoster orders players for the game-over screen: winners first, then
// by role, then the living before the dead, then join order.
func (r *Room) FinalRoster() []FinalPlayer {
	roster := make([]FinalPlayer, 0, len(r.Players))
	for _, p := range r.Players {
		roster = append(roster, FinalPlayer{
			ID:      p.ID,
			Name:    p.Name,
			Role:    p.Role,
			Alive:   p.Alive,
			Won:     p.Role != "" && p.Role.Faction() == r.Winner,
			LoverID: p.LoverID,
		})
	}

	sort.SliceStable(roster, func(i, j int) bool {
		a, b := roster[i], roster[j]
		if a.Won != b.Won {
			return a.Won
		}
		if ra, rb := a.Role.displayRank(), b.Role.displayRank(); ra != rb {
			return ra < rb
		}
		if a.Alive != b.Alive {
			return a.Alive
		}
		return false
	})

	return roster
}

// GameSummary is the archived record of a finished game
type GameSummary struct {
	RoomID    string        `json:"roomId"`
	Winner    Faction       `json:"winner"`
	Nights    int           `json:"nights"`
	Players   []FinalPlayer `json:"players"`
	Deaths    []Death       `json:"deaths"`
	StartedAt time.Time     `json:"startedAt"`
	EndedAt   time.Time     `json:"endedAt"`
}

// Summarize captures the finished game for the archive
func (r *Room) Summarize() GameSummary {
	deaths := make([]Death, len(r.DeathLog))
	copy(deaths, r.DeathLog)

	return GameSummary{
		RoomID:    r.ID,
		Winner:    r.Winner,
		Nights:    r.NightCount,
		Players:   r.FinalRoster(),
		Deaths:    deaths,
		StartedAt: r.StartedAt,
		EndedAt:   r.EndedAt,
	}
}
