package domain

import (
	"fmt"
	"sort"
)

// BeginNight starts the next night and selects its first stage. When no
// stage applies the night is immediately complete.
func (r *Room) BeginNight() error {
	switch {
	case r.Phase == PhaseRoleReveal:
	case r.Phase == PhaseDay && r.DayResolved:
	default:
		return ErrWrongPhase
	}

	r.NightCount++
	r.NightVotes = make(map[string]string)
	r.PendingKill = ""
	r.PendingPoison = ""
	r.DayResolved = false
	r.setPhase(PhaseNight)
	r.NightStage = r.nextStage(StageNone)

	return nil
}

// NightComplete reports whether every night stage was played and the night
// can be finalized.
func (r *Room) NightComplete() bool {
	return r.Phase == PhaseNight && r.NightStage == StageNone
}

// stageApplies reports whether the stage has a living actor tonight.
func (r *Room) stageApplies(stage NightStage) bool {
	switch stage {
	case StageMatchmaking:
		return r.NightCount == 1 && r.Lovers == nil &&
			len(r.LivingWithRole(RoleMatchmaker)) > 0 && len(r.LivingPlayers()) >= 3
	case StageClairvoyance:
		return len(r.LivingWithRole(RoleClairvoyant)) > 0 && len(r.LivingPlayers()) >= 2
	case StageWolfVote:
		return len(r.LivingWithRole(RoleWolf)) > 0
	case StageHealerDecision:
		return len(r.LivingWithRole(RoleHealerPoisoner)) > 0 && !(r.HealerUsed && r.PoisonerUsed)
	}
	return false
}

// nextStage returns the first applicable stage after the given one.
func (r *Room) nextStage(after NightStage) NightStage {
	start := 0
	for i, stage := range nightStages {
		if stage == after {
			start = i + 1
			break
		}
	}

	for _, stage := range nightStages[start:] {
		if r.stageApplies(stage) {
			return stage
		}
	}
	return StageNone
}

func (r *Room) advanceNight() {
	r.NightStage = r.nextStage(r.NightStage)
}

// StageActors returns the players expected to act in the current stage
func (r *Room) StageActors() []*Player {
	if r.Phase != PhaseNight {
		return nil
	}
	switch r.NightStage {
	case StageMatchmaking:
		return r.LivingWithRole(RoleMatchmaker)
	case StageClairvoyance:
		return r.LivingWithRole(RoleClairvoyant)
	case StageWolfVote:
		return r.LivingWithRole(RoleWolf)
	case StageHealerDecision:
		return r.LivingWithRole(RoleHealerPoisoner)
	}
	return nil
}

// requireStage checks phase, stage and that the actor is a living holder of
// the role.
func (r *Room) requireStage(stage NightStage, actorID string, role Role) (*Player, error) {
	if r.Phase != PhaseNight || r.NightStage != stage {
		return nil, ErrWrongPhase
	}
	actor, err := r.GetPlayer(actorID)
	if err != nil {
		return nil, ErrNotAuthorized
	}
	if !actor.Alive || actor.Role != role {
		return nil, ErrNotAuthorized
	}
	return actor, nil
}

// requireTarget checks that the target is alive and not the actor.
func (r *Room) requireTarget(actorID, targetID string) (*Player, error) {
	if targetID == actorID {
		return nil, fmt.Errorf("%w: cannot target yourself", ErrInvalidTarget)
	}
	target, err := r.GetPlayer(targetID)
	if err != nil || !target.Alive {
		return nil, fmt.Errorf("%w: target must be a living player", ErrInvalidTarget)
	}
	return target, nil
}

// ChooseLovers links two players on the first night
func (r *Room) ChooseLovers(actorID, firstID, secondID string) (*LoverPair, error) {
	if _, err := r.requireStage(StageMatchmaking, actorID, RoleMatchmaker); err != nil {
		return nil, err
	}
	if firstID == secondID {
		return nil, fmt.Errorf("%w: lovers must be two different players", ErrInvalidTarget)
	}

	first, err := r.requireTarget(actorID, firstID)
	if err != nil {
		return nil, err
	}
	second, err := r.requireTarget(actorID, secondID)
	if err != nil {
		return nil, err
	}

	r.Lovers = &LoverPair{First: first.ID, Second: second.ID}
	first.LoverID = second.ID
	second.LoverID = first.ID
	r.advanceNight()

	return r.Lovers, nil
}

// Divine reveals to the clairvoyant whether the target is a wolf
func (r *Room) Divine(actorID, targetID string) (*Player, error) {
	if _, err := r.requireStage(StageClairvoyance, actorID, RoleClairvoyant); err != nil {
		return nil, err
	}

	target, err := r.requireTarget(actorID, targetID)
	if err != nil {
		return nil, err
	}

	r.advanceNight()
	return target, nil
}

// TallyEntry is one row of a vote tally
type TallyEntry struct {
	PlayerID  string `json:"playerId"`
	Name      string `json:"name"`
	VoteCount int    `json:"voteCount"`
}

// WolfTally is the running state of the wolf vote, shown to wolves only
type WolfTally struct {
	Entries  []TallyEntry `json:"entries"`
	Voted    int          `json:"voted"`
	Wolves   int          `json:"wolves"`
	Resolved bool         `json:"resolved"`
	TargetID string       `json:"targetId,omitempty"`
}

// CastWolfVote records a wolf's choice of victim. The kill resolves only
// when every living wolf named the same living target.
func (r *Room) CastWolfVote(actorID, targetID string) (WolfTally, error) {
	if _, err := r.requireStage(StageWolfVote, actorID, RoleWolf); err != nil {
		return WolfTally{}, err
	}
	if _, err := r.requireTarget(actorID, targetID); err != nil {
		return WolfTally{}, err
	}

	r.NightVotes[actorID] = targetID

	tally := r.wolfTally()
	if target, ok := r.wolfConsensus(); ok {
		tally.Resolved = true
		tally.TargetID = target
		r.PendingKill = target
		r.NightVotes = make(map[string]string)
		r.advanceNight()
	}

	return tally, nil
}

// wolfTally counts the votes of living wolves for living targets.
func (r *Room) wolfTally() WolfTally {
	wolves := r.LivingWithRole(RoleWolf)
	counts := make(map[string]int)
	tally := WolfTally{Wolves: len(wolves)}

	for _, w := range wolves {
		target, ok := r.NightVotes[w.ID]
		if !ok || !r.IsAlive(target) {
			continue
		}
		tally.Voted++
		counts[target]++
	}

	for _, p := range r.Players {
		if n := counts[p.ID]; n > 0 {
			tally.Entries = append(tally.Entries, TallyEntry{PlayerID: p.ID, Name: p.Name, VoteCount: n})
		}
	}
	sort.SliceStable(tally.Entries, func(i, j int) bool {
		return tally.Entries[i].VoteCount > tally.Entries[j].VoteCount
	})

	return tally
}

// wolfConsensus returns the victim if all living wolves agree.
func (r *Room) wolfConsensus() (string, bool) {
	wolves := r.LivingWithRole(RoleWolf)
	if len(wolves) == 0 {
		return "", false
	}

	target := ""
	for _, w := range wolves {
		vote, ok := r.NightVotes[w.ID]
		if !ok || !r.IsAlive(vote) {
			return "", false
		}
		if target == "" {
			target = vote
		} else if vote != target {
			return "", false
		}
	}
	return target, true
}

// HealerPrompt is what the healer-poisoner sees when their stage begins
type HealerPrompt struct {
	VictimID   string       `json:"victimId,omitempty"`
	VictimName string       `json:"victimName,omitempty"`
	CanHeal    bool         `json:"canHeal"`
	CanPoison  bool         `json:"canPoison"`
	Targets    []PlayerInfo `json:"targets"`
}

// HealerPrompt builds the prompt for the given healer
func (r *Room) HealerPrompt(actorID string) HealerPrompt {
	prompt := HealerPrompt{
		CanPoison: !r.PoisonerUsed,
	}
	if victim, err := r.GetPlayer(r.PendingKill); err == nil && victim.Alive {
		prompt.VictimID = victim.ID
		prompt.VictimName = victim.Name
		prompt.CanHeal = !r.HealerUsed
	}
	for _, p := range r.LivingPlayers() {
		if p.ID != actorID {
			prompt.Targets = append(prompt.Targets, p.ToInfo())
		}
	}
	return prompt
}

// HealerResult reports which potions took effect
type HealerResult struct {
	HealedID   string `json:"healedId,omitempty"`
	PoisonedID string `json:"poisonedId,omitempty"`
}

// DecideHealer applies the healer-poisoner's choice. Each potion works once
// per game; asking for a spent potion has no effect.
func (r *Room) DecideHealer(actorID string, heal bool, poisonID string) (HealerResult, error) {
	if _, err := r.requireStage(StageHealerDecision, actorID, RoleHealerPoisoner); err != nil {
		return HealerResult{}, err
	}

	poison := poisonID != "" && !r.PoisonerUsed
	if poison {
		if _, err := r.requireTarget(actorID, poisonID); err != nil {
			return HealerResult{}, err
		}
	}

	var result HealerResult
	if heal && !r.HealerUsed && r.IsAlive(r.PendingKill) {
		r.HealerUsed = true
		result.HealedID = r.PendingKill
		r.PendingKill = ""
	}
	if poison {
		r.PoisonerUsed = true
		r.PendingPoison = poisonID
		result.PoisonedID = poisonID
	}

	r.advanceNight()
	return result, nil
}

// RecheckNight re-evaluates the current stage after a player left. It
// returns true when the stage changed.
func (r *Room) RecheckNight() bool {
	if r.Phase != PhaseNight || r.NightStage == StageNone {
		return false
	}

	if r.NightStage == StageWolfVote {
		if target, ok := r.wolfConsensus(); ok {
			r.PendingKill = target
			r.NightVotes = make(map[string]string)
			r.advanceNight()
			return true
		}
	}

	if !r.stageApplies(r.NightStage) {
		r.advanceNight()
		return true
	}
	return false
}

// NightOutcome is the result of a finished night
type NightOutcome struct {
	Night  int     `json:"night"`
	Deaths []Death `json:"deaths"`
}

// FinalizeNight applies the night's kills and moves to the announcement
func (r *Room) FinalizeNight() (NightOutcome, error) {
	if !r.NightComplete() {
		return NightOutcome{}, ErrWrongPhase
	}

	var victims []string
	var causes []DeathCause
	if r.PendingKill != "" {
		victims = append(victims, r.PendingKill)
		causes = append(causes, CauseWolves)
	}
	if r.PendingPoison != "" && r.PendingPoison != r.PendingKill {
		victims = append(victims, r.PendingPoison)
		causes = append(causes, CausePoison)
	}

	outcome := NightOutcome{
		Night:  r.NightCount,
		Deaths: r.applyDeaths(victims, causes),
	}

	r.PendingKill = ""
	r.PendingPoison = ""
	r.NightVotes = make(map[string]string)
	r.setPhase(PhaseAnnouncement)

	return outcome, nil
}
