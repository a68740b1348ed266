package domain

import "sort"

// SkipVote is the day vote for nobody
const SkipVote = "skip"

// VoteResult represents the voting results for display
type VoteResult struct {
	PlayerID  string   `json:"playerId"`
	Name      string   `json:"name"`
	VoteCount int      `json:"voteCount"`
	VotedBy   []string `json:"votedBy"` // names of voters
}

// VoteProgress is broadcast after each day vote (without revealing who)
type VoteProgress struct {
	Voted  int `json:"voted"`
	Voters int `json:"voters"`
}

// ReadyProgress is broadcast while waiting for a ready quorum
type ReadyProgress struct {
	Ready int `json:"ready"`
	Total int `json:"total"`
}

// TallyVotes counts votes cast by living voters for living targets. Skips
// are counted separately. Results are sorted by vote count, then join order.
func (r *Room) TallyVotes(votes map[string]string) ([]VoteResult, int) {
	counts := make(map[string]int)
	voters := make(map[string][]string)
	skips := 0

	for _, voter := range r.Players {
		target, ok := votes[voter.ID]
		if !ok || !voter.Alive {
			continue
		}
		if target == SkipVote {
			skips++
			continue
		}
		if !r.IsAlive(target) {
			continue
		}
		counts[target]++
		voters[target] = append(voters[target], voter.Name)
	}

	results := make([]VoteResult, 0, len(counts))
	for _, p := range r.Players {
		if n := counts[p.ID]; n > 0 {
			results = append(results, VoteResult{
				PlayerID:  p.ID,
				Name:      p.Name,
				VoteCount: n,
				VotedBy:   voters[p.ID],
			})
		}
	}
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].VoteCount > results[j].VoteCount
	})

	return results, skips
}

// Majority returns the player eliminated by a sorted tally: the unique top
// candidate, and only with more than half of the voters behind them.
func Majority(results []VoteResult, voters int) (string, bool) {
	if len(results) == 0 {
		return "", false
	}
	top := results[0]
	if len(results) > 1 && results[1].VoteCount == top.VoteCount {
		return "", false
	}
	if top.VoteCount <= voters/2 {
		return "", false
	}
	return top.PlayerID, true
}
