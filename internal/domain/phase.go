package domain

// Phase represents the current top-level phase of a room
type Phase string

const (
	PhaseLobby        Phase = "LOBBY"        // Waiting for players to join
	PhaseRoleReveal   Phase = "ROLE_REVEAL"  // Players read their secret roles
	PhaseNight        Phase = "NIGHT"        // Special roles act in turn
	PhaseAnnouncement Phase = "ANNOUNCEMENT" // Night deaths are revealed
	PhaseDay          Phase = "DAY"          // Public vote to eliminate a suspect
	PhaseGameOver     Phase = "GAME_OVER"    // Winner decided, waiting for play again
)

// NightStage is the sub-step of a night, valid only while in PhaseNight
type NightStage string

const (
	StageNone           NightStage = "NONE"
	StageMatchmaking    NightStage = "MATCHMAKING"
	StageClairvoyance   NightStage = "CLAIRVOYANCE"
	StageWolfVote       NightStage = "WOLF_VOTE"
	StageHealerDecision NightStage = "HEALER_DECISION"
)

// nightStages lists night stages in the order they are played.
var nightStages = []NightStage{StageMatchmaking, StageClairvoyance, StageWolfVote, StageHealerDecision}

// String returns the string representation of the phase
func (p Phase) String() string {
	return string(p)
}

// InGame reports whether a game is being played in this phase.
func (p Phase) InGame() bool {
	switch p {
	case PhaseRoleReveal, PhaseNight, PhaseAnnouncement, PhaseDay:
		return true
	}
	return false
}

// CanTransitionTo checks if a transition from current phase to target phase is valid
func (p Phase) CanTransitionTo(target Phase) bool {
	validTransitions := map[Phase][]Phase{
		PhaseLobby:        {PhaseRoleReveal},
		PhaseRoleReveal:   {PhaseNight, PhaseGameOver},
		PhaseNight:        {PhaseAnnouncement, PhaseGameOver},
		PhaseAnnouncement: {PhaseDay, PhaseGameOver},
		PhaseDay:          {PhaseNight, PhaseGameOver},
		PhaseGameOver:     {PhaseLobby},
	}

	allowed, ok := validTransitions[p]
	if !ok {
		return false
	}

	for _, phase := range allowed {
		if phase == target {
			return true
		}
	}
	return false
}
