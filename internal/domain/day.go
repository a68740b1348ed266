package domain

import "fmt"

// MarkReady records a living player's ready signal. Ready is accepted during
// the announcement (to start the day) and after the day vote resolved (to
// start the night). It returns true once every living player is ready.
func (r *Room) MarkReady(playerID string, phase Phase) (ReadyProgress, bool, error) {
	switch {
	case phase == PhaseAnnouncement && r.Phase == PhaseAnnouncement:
	case phase == PhaseDay && r.Phase == PhaseDay && r.DayResolved:
	default:
		return ReadyProgress{}, false, ErrWrongPhase
	}

	p, err := r.GetPlayer(playerID)
	if err != nil {
		return ReadyProgress{}, false, err
	}
	if !p.Alive {
		return ReadyProgress{}, false, fmt.Errorf("%w: the dead cannot take part", ErrNotAuthorized)
	}

	r.Ready[playerID] = true
	return r.ReadyProgress(), r.ReadyQuorum(), nil
}

// ReadyProgress counts the living players who are ready
func (r *Room) ReadyProgress() ReadyProgress {
	progress := ReadyProgress{}
	for _, p := range r.LivingPlayers() {
		progress.Total++
		if r.Ready[p.ID] {
			progress.Ready++
		}
	}
	return progress
}

// ReadyQuorum reports whether every living player is ready
func (r *Room) ReadyQuorum() bool {
	progress := r.ReadyProgress()
	return progress.Total > 0 && progress.Ready == progress.Total
}

// BeginDay opens the day vote
func (r *Room) BeginDay() error {
	if r.Phase != PhaseAnnouncement {
		return ErrWrongPhase
	}

	r.DayVotes = make(map[string]string)
	r.DayResolved = false
	r.setPhase(PhaseDay)

	return nil
}

// CastDayVote records a vote for a living player or SkipVote. Voting again
// replaces the previous vote.
func (r *Room) CastDayVote(voterID, targetID string) (VoteProgress, error) {
	if r.Phase != PhaseDay || r.DayResolved {
		return VoteProgress{}, ErrWrongPhase
	}

	voter, err := r.GetPlayer(voterID)
	if err != nil {
		return VoteProgress{}, err
	}
	if !voter.Alive {
		return VoteProgress{}, fmt.Errorf("%w: the dead cannot vote", ErrNotAuthorized)
	}
	if targetID != SkipVote {
		if _, err := r.requireTarget(voterID, targetID); err != nil {
			return VoteProgress{}, err
		}
	}

	r.DayVotes[voterID] = targetID
	return r.DayVoteProgress(), nil
}

// DayVoteProgress counts the living players who voted
func (r *Room) DayVoteProgress() VoteProgress {
	progress := VoteProgress{}
	for _, p := range r.LivingPlayers() {
		progress.Voters++
		if _, ok := r.DayVotes[p.ID]; ok {
			progress.Voted++
		}
	}
	return progress
}

// AllDayVotesIn reports whether every living player voted
func (r *Room) AllDayVotesIn() bool {
	if r.Phase != PhaseDay || r.DayResolved {
		return false
	}
	progress := r.DayVoteProgress()
	return progress.Voters > 0 && progress.Voted == progress.Voters
}

// DayOutcome is the result of a day vote
type DayOutcome struct {
	Results    []VoteResult `json:"results"`
	Skips      int          `json:"skips"`
	Voters     int          `json:"voters"`
	Eliminated string       `json:"eliminated,omitempty"`
	Deaths     []Death      `json:"deaths"`
}

// ResolveDay tallies the day vote and eliminates the majority choice
func (r *Room) ResolveDay() (DayOutcome, error) {
	if r.Phase != PhaseDay || r.DayResolved {
		return DayOutcome{}, ErrWrongPhase
	}

	results, skips := r.TallyVotes(r.DayVotes)
	outcome := DayOutcome{
		Results: results,
		Skips:   skips,
		Voters:  len(r.LivingPlayers()),
	}

	if target, ok := Majority(results, outcome.Voters); ok {
		outcome.Eliminated = target
		outcome.Deaths = r.applyDeaths([]string{target}, []DeathCause{CauseVote})
	}

	r.DayResolved = true
	r.Ready = make(map[string]bool)

	return outcome, nil
}
