package domain

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"
)

// PlayAgainPolicy decides who must opt in before a finished room starts over
type PlayAgainPolicy string

const (
	PlayAgainAll       PlayAgainPolicy = "all"       // every current participant
	PlayAgainSurvivors PlayAgainPolicy = "survivors" // every participant alive at game end
	PlayAgainOff       PlayAgainPolicy = "off"       // room is deleted after the game
)

// Rules holds server-wide game parameters fixed when a room is created
type Rules struct {
	MinPlayers    int             `json:"minPlayers"`
	MaxPlayers    int             `json:"maxPlayers"`
	MaxNameLength int             `json:"maxNameLength"`
	PlayAgain     PlayAgainPolicy `json:"playAgain"`
}

// DefaultRules returns the default game rules
func DefaultRules() Rules {
	return Rules{
		MinPlayers:    4,
		MaxPlayers:    20,
		MaxNameLength: 20,
		PlayAgain:     PlayAgainAll,
	}
}

// RoomConfig is chosen by the creator and never changes afterwards
type RoomConfig struct {
	Capacity     int `json:"capacity"`
	Wolves       int `json:"wolves"`
	Healers      int `json:"healers"`
	Clairvoyants int `json:"clairvoyants"`
	Matchmakers  int `json:"matchmakers"`
}

// MinPlayers returns the smallest population a game can start with.
func (c RoomConfig) MinPlayers(rules Rules) int {
	return max(rules.MinPlayers, c.Wolves+2)
}

// Validate checks the configuration against the server rules
func (c RoomConfig) Validate(rules Rules) error {
	if c.Wolves < 1 {
		return fmt.Errorf("%w: at least one wolf is required", ErrInvalidConfig)
	}
	if c.Healers < 0 || c.Clairvoyants < 0 || c.Matchmakers < 0 {
		return fmt.Errorf("%w: role counts cannot be negative", ErrInvalidConfig)
	}
	if minPlayers := c.MinPlayers(rules); c.Capacity < minPlayers {
		return fmt.Errorf("%w: capacity must be at least %d", ErrInvalidConfig, minPlayers)
	}
	if rules.MaxPlayers > 0 && c.Capacity > rules.MaxPlayers {
		return fmt.Errorf("%w: capacity cannot exceed %d", ErrInvalidConfig, rules.MaxPlayers)
	}
	return nil
}

// LoverPair links two players so that they die together
type LoverPair struct {
	First  string `json:"first"`
	Second string `json:"second"`
}

// Contains reports whether the player is one of the lovers
func (l *LoverPair) Contains(playerID string) bool {
	return l != nil && (l.First == playerID || l.Second == playerID)
}

// Partner returns the other lover, or "" if the player is not a lover
func (l *LoverPair) Partner(playerID string) string {
	switch {
	case l == nil:
		return ""
	case l.First == playerID:
		return l.Second
	case l.Second == playerID:
		return l.First
	}
	return ""
}

// Room is one isolated game with its own players and state
type Room struct {
	ID         string     `json:"id"`
	Config     RoomConfig `json:"config"`
	Rules      Rules      `json:"rules"`
	Phase      Phase      `json:"phase"`
	NightStage NightStage `json:"nightStage"`
	Players    []*Player  `json:"players"` // join order

	NightVotes    map[string]string `json:"-"` // wolf -> target
	DayVotes      map[string]string `json:"-"` // voter -> target or SkipVote
	PendingKill   string            `json:"-"`
	PendingPoison string            `json:"-"`
	HealerUsed    bool              `json:"-"`
	PoisonerUsed  bool              `json:"-"`
	Lovers        *LoverPair        `json:"-"`
	DeathLog      []Death           `json:"deathLog"`
	NightCount    int               `json:"nightCount"`

	// Ready holds the announcement->day and day->night quorum.
	Ready            map[string]bool `json:"-"`
	DayResolved      bool            `json:"-"`
	ReadyForNextGame map[string]bool `json:"-"`

	Winner    Faction   `json:"winner,omitempty"`
	Epoch     uint64    `json:"epoch"`
	CreatedAt time.Time `json:"createdAt"`
	StartedAt time.Time `json:"startedAt,omitempty"`
	EndedAt   time.Time `json:"endedAt,omitempty"`
}

// NewRoom creates a new room in the lobby
func NewRoom(id string, cfg RoomConfig, rules Rules) (*Room, error) {
	if strings.TrimSpace(id) == "" {
		return nil, fmt.Errorf("%w: room name is required", ErrInvalidConfig)
	}
	if err := cfg.Validate(rules); err != nil {
		return nil, err
	}

	return &Room{
		ID:               id,
		Config:           cfg,
		Rules:            rules,
		Phase:            PhaseLobby,
		NightStage:       StageNone,
		Players:          make([]*Player, 0, cfg.Capacity),
		NightVotes:       make(map[string]string),
		DayVotes:         make(map[string]string),
		Ready:            make(map[string]bool),
		ReadyForNextGame: make(map[string]bool),
		CreatedAt:        time.Now(),
	}, nil
}

// NormalizeName trims a display name and checks its length
func NormalizeName(name string, maxLength int) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", fmt.Errorf("%w: name is required", ErrInvalidName)
	}
	if maxLength > 0 && utf8.RuneCountInString(name) > maxLength {
		return "", fmt.Errorf("%w: name is longer than %d characters", ErrInvalidName, maxLength)
	}
	return name, nil
}

// setPhase moves the room to a new phase. Every call invalidates pending
// timers scheduled against the previous phase.
func (r *Room) setPhase(phase Phase) {
	r.Phase = phase
	if phase != PhaseNight {
		r.NightStage = StageNone
	}
	r.Ready = make(map[string]bool)
	r.Epoch++
}

// MinPlayers returns the smallest population a game can start with
func (r *Room) MinPlayers() int {
	return r.Config.MinPlayers(r.Rules)
}

// AddPlayer adds a player to the room. Joining a finished room enrols the
// player into the next game.
func (r *Room) AddPlayer(playerID, name string) (*Player, error) {
	name, err := NormalizeName(name, r.Rules.MaxNameLength)
	if err != nil {
		return nil, err
	}

	switch r.Phase {
	case PhaseLobby:
	case PhaseGameOver:
		if r.Rules.PlayAgain == PlayAgainOff {
			return nil, ErrGameAlreadyStarted
		}
	default:
		return nil, ErrGameAlreadyStarted
	}

	if _, err := r.GetPlayer(playerID); err == nil {
		return nil, ErrAlreadyInRoom
	}
	if len(r.Players) >= r.Config.Capacity {
		return nil, ErrRoomFull
	}

	player := NewPlayer(playerID, name)
	r.Players = append(r.Players, player)
	if r.Phase == PhaseGameOver {
		r.ReadyForNextGame[playerID] = true
	}

	return player, nil
}

// RemovePlayer removes a player and every pending reference to them
func (r *Room) RemovePlayer(playerID string) (*Player, error) {
	idx := r.indexOf(playerID)
	if idx < 0 {
		return nil, ErrPlayerNotFound
	}

	player := r.Players[idx]
	r.Players = append(r.Players[:idx], r.Players[idx+1:]...)

	delete(r.NightVotes, playerID)
	delete(r.DayVotes, playerID)
	delete(r.Ready, playerID)
	delete(r.ReadyForNextGame, playerID)
	if r.PendingKill == playerID {
		r.PendingKill = ""
	}
	if r.PendingPoison == playerID {
		r.PendingPoison = ""
	}

	return player, nil
}

// GetPlayer returns a player by ID
func (r *Room) GetPlayer(playerID string) (*Player, error) {
	if idx := r.indexOf(playerID); idx >= 0 {
		return r.Players[idx], nil
	}
	return nil, ErrPlayerNotFound
}

func (r *Room) indexOf(playerID string) int {
	for i, p := range r.Players {
		if p.ID == playerID {
			return i
		}
	}
	return -1
}

// IsAlive reports whether the player is present and alive
func (r *Room) IsAlive(playerID string) bool {
	p, err := r.GetPlayer(playerID)
	return err == nil && p.Alive
}

// IsEmpty reports whether every player has left
func (r *Room) IsEmpty() bool {
	return len(r.Players) == 0
}

// IsFull reports whether the room reached its capacity
func (r *Room) IsFull() bool {
	return len(r.Players) >= r.Config.Capacity
}

// CanStart checks if a game can be started
func (r *Room) CanStart() bool {
	return r.Phase == PhaseLobby && len(r.Players) >= r.MinPlayers() && len(r.Players) <= r.Config.Capacity
}

// LivingPlayers returns the living players in join order
func (r *Room) LivingPlayers() []*Player {
	living := make([]*Player, 0, len(r.Players))
	for _, p := range r.Players {
		if p.Alive {
			living = append(living, p)
		}
	}
	return living
}

// LivingWithRole returns living players holding the role
func (r *Room) LivingWithRole(role Role) []*Player {
	var out []*Player
	for _, p := range r.Players {
		if p.Alive && p.Role == role {
			out = append(out, p)
		}
	}
	return out
}

// PlayerIDs returns all player IDs in join order
func (r *Room) PlayerIDs() []string {
	ids := make([]string, 0, len(r.Players))
	for _, p := range r.Players {
		ids = append(ids, p.ID)
	}
	return ids
}

// Roster returns the public roster. Roles of the dead are public, and every
// role is public once the game is over.
func (r *Room) Roster() []PlayerInfo {
	players := make([]PlayerInfo, 0, len(r.Players))
	for _, p := range r.Players {
		info := p.ToPublicInfo()
		if r.Phase == PhaseGameOver {
			info.Role = p.Role
		}
		players = append(players, info)
	}
	return players
}

// LivingRoster returns the living players without roles
func (r *Room) LivingRoster() []PlayerInfo {
	players := make([]PlayerInfo, 0, len(r.Players))
	for _, p := range r.LivingPlayers() {
		players = append(players, p.ToInfo())
	}
	return players
}

// TargetsFor returns the living players an actor may pick, excluding the
// actor
func (r *Room) TargetsFor(actorID string) []PlayerInfo {
	targets := make([]PlayerInfo, 0, len(r.Players))
	for _, p := range r.LivingPlayers() {
		if p.ID != actorID {
			targets = append(targets, p.ToInfo())
		}
	}
	return targets
}

// Summary returns the lobby listing entry for the room
func (r *Room) Summary() RoomSummary {
	return RoomSummary{
		ID:        r.ID,
		Players:   len(r.Players),
		Capacity:  r.Config.Capacity,
		Wolves:    r.Config.Wolves,
		Phase:     r.Phase,
		CreatedAt: r.CreatedAt,
	}
}

// RoomSummary describes a room in the lobby listing
type RoomSummary struct {
	ID        string    `json:"id"`
	Players   int       `json:"players"`
	Capacity  int       `json:"capacity"`
	Wolves    int       `json:"wolves"`
	Phase     Phase     `json:"phase"`
	CreatedAt time.Time `json:"createdAt"`
}
