package domain

import "time"

// Player represents a participant in a room
type Player struct {
	ID       string    `json:"id"`
	Name     string    `json:"name"`
	Role     Role      `json:"role,omitempty"`
	Alive    bool      `json:"alive"`
	LoverID  string    `json:"loverId,omitempty"`
	JoinedAt time.Time `json:"joinedAt"`
}

// NewPlayer creates a new player with the given ID and name
func NewPlayer(id, name string) *Player {
	return &Player{
		ID:       id,
		Name:     name,
		Alive:    true,
		JoinedAt: time.Now(),
	}
}

// ResetForNewGame clears everything a finished game left on the player
func (p *Player) ResetForNewGame() {
	p.Role = ""
	p.Alive = true
	p.LoverID = ""
}

// IsWolf returns true if the player holds the wolf role
func (p *Player) IsWolf() bool {
	return p.Role.IsWolf()
}

// PlayerInfo is the public view of a player. Role is only set once it is
// publicly known.
type PlayerInfo struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Alive bool   `json:"alive"`
	Role  Role   `json:"role,omitempty"`
}

// ToInfo converts a Player to PlayerInfo (without role)
func (p *Player) ToInfo() PlayerInfo {
	return PlayerInfo{
		ID:    p.ID,
		Name:  p.Name,
		Alive: p.Alive,
	}
}

// ToPublicInfo converts a Player to PlayerInfo, revealing the role of the dead.
func (p *Player) ToPublicInfo() PlayerInfo {
	info := p.ToInfo()
	if !p.Alive {
		info.Role = p.Role
	}
	return info
}
