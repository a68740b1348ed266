package domain

import "time"

// DeathCause explains how a player died
type DeathCause string

const (
	CauseWolves     DeathCause = "WOLVES"
	CausePoison     DeathCause = "POISON"
	CauseHeartbreak DeathCause = "HEARTBREAK"
	CauseVote       DeathCause = "VOTE"
)

// Death is an entry of the room's death log
type Death struct {
	PlayerID  string     `json:"playerId"`
	Name      string     `json:"name"`
	Role      Role       `json:"role"`
	Cause     DeathCause `json:"cause"`
	Night     int        `json:"night"`
	Timestamp time.Time  `json:"timestamp"`
}

// kill marks a living player dead and returns the death entry.
func (r *Room) kill(playerID string, cause DeathCause) (Death, bool) {
	p, err := r.GetPlayer(playerID)
	if err != nil || !p.Alive {
		return Death{}, false
	}

	p.Alive = false
	return Death{
		PlayerID:  p.ID,
		Name:      p.Name,
		Role:      p.Role,
		Cause:     cause,
		Night:     r.NightCount,
		Timestamp: time.Now(),
	}, true
}

// applyDeaths kills the given players, follows the lover cascade and appends
// everything to the death log.
func (r *Room) applyDeaths(victims []string, causes []DeathCause) []Death {
	var deaths []Death
	var died []string
	for i, id := range victims {
		if d, ok := r.kill(id, causes[i]); ok {
			deaths = append(deaths, d)
			died = append(died, id)
		}
	}

	for _, id := range LoverCascade(died, r.Lovers, r.IsAlive) {
		if d, ok := r.kill(id, CauseHeartbreak); ok {
			deaths = append(deaths, d)
		}
	}

	r.DeathLog = append(r.DeathLog, deaths...)
	return deaths
}
