package domain

import (
	"strings"
	"time"
	"unicode/utf8"
)

// ChatMessage is a message in the graveyard chat
type ChatMessage struct {
	PlayerID  string    `json:"playerId"`
	Name      string    `json:"name"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
}

// PostMortemMessage validates a message from an eliminated player and
// returns it with the IDs of every eliminated player who should receive it.
// Text is trimmed and cut to maxLength runes.
func (r *Room) PostMortemMessage(playerID, text string, maxLength int) (*ChatMessage, []string, error) {
	if !r.Phase.InGame() && r.Phase != PhaseGameOver {
		return nil, nil, ErrWrongPhase
	}

	sender, err := r.GetPlayer(playerID)
	if err != nil {
		return nil, nil, err
	}
	if sender.Alive {
		return nil, nil, ErrNotAuthorized
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return nil, nil, ErrEmptyMessage
	}
	if maxLength > 0 && utf8.RuneCountInString(text) > maxLength {
		text = strings.TrimSpace(string([]rune(text)[:maxLength]))
	}

	var recipients []string
	for _, p := range r.Players {
		if !p.Alive {
			recipients = append(recipients, p.ID)
		}
	}

	return &ChatMessage{
		PlayerID:  sender.ID,
		Name:      sender.Name,
		Text:      text,
		Timestamp: time.Now(),
	}, recipients, nil
}
