// Package narrator turns the deaths of a night or a day vote into a short
// story for the room.
package narrator

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"werewolves/internal/config"
	"werewolves/internal/domain"
)

// Narrator tells a story about fresh deaths given the public death history
type Narrator interface {
	Narrate(ctx context.Context, deaths []domain.Death, history []domain.Death) (string, error)
}

// New builds the narrator selected by the configuration. It returns nil
// when narration is disabled.
func New(cfg config.NarratorConfig, logger *slog.Logger) (Narrator, error) {
	switch cfg.Provider {
	case "", "none":
		logger.Info("narrator disabled")
		return nil, nil
	case "builtin":
		logger.Info("narrator: builtin epitaphs")
		return NewEpitaphs(nil), nil
	}

	model, err := newModel(cfg)
	if err != nil {
		return nil, fmt.Errorf("narrator %s: %w", cfg.Provider, err)
	}

	logger.Info("narrator: language model", "provider", cfg.Provider, "model", cfg.Model, "url", cfg.URL)
	return NewStoryteller(model, WithTemperature(cfg.Temperature)), nil
}

// describe renders a death as one line of public history
func describe(d domain.Death) string {
	switch d.Cause {
	case domain.CauseWolves:
		return fmt.Sprintf("Night %d: %s the %s was killed by the wolves.", d.Night, d.Name, roleName(d.Role))
	case domain.CausePoison:
		return fmt.Sprintf("Night %d: %s the %s was poisoned.", d.Night, d.Name, roleName(d.Role))
	case domain.CauseHeartbreak:
		return fmt.Sprintf("Night %d: %s the %s died of a broken heart.", d.Night, d.Name, roleName(d.Role))
	case domain.CauseVote:
		return fmt.Sprintf("Day %d: %s the %s was hanged by the village.", d.Night, d.Name, roleName(d.Role))
	}
	return fmt.Sprintf("%s the %s died.", d.Name, roleName(d.Role))
}

func roleName(role domain.Role) string {
	return strings.ToLower(strings.ReplaceAll(string(role), "_", "-"))
}

func names(deaths []domain.Death) string {
	parts := make([]string, 0, len(deaths))
	for _, d := range deaths {
		parts = append(parts, d.Name)
	}
	return strings.Join(parts, " and ")
}
