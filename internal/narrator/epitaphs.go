package narrator

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"sync"

	"werewolves/internal/domain"
)

// Epitaph lines by cause of death. %s is the victim's name.
var epitaphs = map[domain.DeathCause][]string{
	domain.CauseWolves: {
		"Claw marks lead from the well to where %s was found at dawn.",
		"The howling stopped just before sunrise. %s did not wake.",
		"Only a torn cloak remains of %s at the edge of the woods.",
		"%s left the door unbarred for a single night. It was enough.",
		"The church bell rang thirteen times for %s.",
	},
	domain.CausePoison: {
		"%s drank from the wrong cup and never set it down.",
		"A bitter smell lingered over the bed of %s.",
		"The herbalist's shelf is one vial lighter, and %s is gone.",
	},
	domain.CauseHeartbreak: {
		"%s could not bear a world without their beloved.",
		"They found %s holding a faded ribbon, heart stilled by grief.",
		"Two graves now, side by side. %s followed where love led.",
	},
	domain.CauseVote: {
		"The village raised its torches, and %s was led to the gallows.",
		"%s protested to the very end. The crowd did not listen.",
		"The rope creaked in the wind long after %s fell silent.",
	},
}

// Epitaphs narrates with a fixed list of lines and needs no network
type Epitaphs struct {
	mu     sync.Mutex
	intn   func(n int) int
	recent map[string]bool
}

// NewEpitaphs creates a builtin narrator. intn picks a line at random and
// defaults to math/rand.
func NewEpitaphs(intn func(n int) int) *Epitaphs {
	if intn == nil {
		intn = rand.Intn
	}
	return &Epitaphs{
		intn:   intn,
		recent: make(map[string]bool),
	}
}

// Narrate implements the narrator with one line per death
func (e *Epitaphs) Narrate(_ context.Context, deaths []domain.Death, _ []domain.Death) (string, error) {
	if len(deaths) == 0 {
		return "", nil
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	lines := make([]string, 0, len(deaths))
	for _, d := range deaths {
		lines = append(lines, fmt.Sprintf(e.pick(d.Cause), d.Name))
	}
	return strings.Join(lines, " "), nil
}

// pick returns a line for the cause, avoiding lines told recently
func (e *Epitaphs) pick(cause domain.DeathCause) string {
	options, ok := epitaphs[cause]
	if !ok {
		return "%s is no more."
	}

	// Try to find a line that was not used lately
	for attempts := 0; attempts < len(options)*2; attempts++ {
		line := options[e.intn(len(options))]
		if !e.recent[line] {
			e.recent[line] = true
			return line
		}
	}

	// Every line was used: start over
	for _, line := range options {
		delete(e.recent, line)
	}
	line := options[e.intn(len(options))]
	e.recent[line] = true
	return line
}
