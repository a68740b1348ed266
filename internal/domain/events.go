package domain

import "time"

// EventType represents the type of game event
type EventType string

const (
	EventPlayerJoined      EventType = "PLAYER_JOINED"
	EventPlayerLeft        EventType = "PLAYER_LEFT"
	EventRosterUpdate      EventType = "ROSTER_UPDATE"
	EventRoleAssigned      EventType = "ROLE_ASSIGNED"
	EventNightStarted      EventType = "NIGHT_STARTED"
	EventNightStage        EventType = "NIGHT_STAGE"
	EventMatchmakerPrompt  EventType = "MATCHMAKER_PROMPT"
	EventLoversPaired      EventType = "LOVERS_PAIRED"
	EventClairvoyantPrompt EventType = "CLAIRVOYANT_PROMPT"
	EventClairvoyantResult EventType = "CLAIRVOYANT_RESULT"
	EventWolfPrompt        EventType = "WOLF_PROMPT"
	EventWolfTally         EventType = "WOLF_TALLY"
	EventHealerPrompt      EventType = "HEALER_PROMPT"
	EventHealerResult      EventType = "HEALER_RESULT"
	EventDeathAnnounced    EventType = "DEATH_ANNOUNCED"
	EventNoDeaths          EventType = "NO_DEATHS"
	EventPlayerEliminated  EventType = "PLAYER_ELIMINATED"
	EventReadyProgress     EventType = "READY_PROGRESS"
	EventDayStarted        EventType = "DAY_STARTED"
	EventDayVoteProgress   EventType = "DAY_VOTE_PROGRESS"
	EventDayResult         EventType = "DAY_RESULT"
	EventGameOver          EventType = "GAME_OVER"
	EventPlayAgainProgress EventType = "PLAY_AGAIN_PROGRESS"
	EventNewGameStarting   EventType = "NEW_GAME_STARTING"
	EventPlayerRemoved     EventType = "PLAYER_REMOVED"
	EventChatMessage       EventType = "CHAT_MESSAGE"
	EventStory             EventType = "STORY"
	EventRoomClosed        EventType = "ROOM_CLOSED"
	EventError             EventType = "ERROR"
)

// GameEvent represents an event that occurred in a room
type GameEvent struct {
	Type      EventType   `json:"type"`
	RoomID    string      `json:"roomId"`
	PlayerID  string      `json:"playerId,omitempty"` // If event is player-specific
	Payload   interface{} `json:"payload,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
}

// NewEvent creates a new room-wide event
func NewEvent(eventType EventType, roomID string, payload interface{}) *GameEvent {
	return &GameEvent{
		Type:      eventType,
		RoomID:    roomID,
		Payload:   payload,
		Timestamp: time.Now(),
	}
}

// NewPlayerEvent creates a new player-specific event
func NewPlayerEvent(eventType EventType, roomID, playerID string, payload interface{}) *GameEvent {
	return &GameEvent{
		Type:      eventType,
		RoomID:    roomID,
		PlayerID:  playerID,
		Payload:   payload,
		Timestamp: time.Now(),
	}
}

// Payload types for different events

// RosterPayload is sent when membership or public state changes
type RosterPayload struct {
	Phase      Phase        `json:"phase"`
	Players    []PlayerInfo `json:"players"`
	Capacity   int          `json:"capacity"`
	MinPlayers int          `json:"minPlayers"`
}

// PlayerChangePayload is sent when a player joins or leaves
type PlayerChangePayload struct {
	PlayerID string `json:"playerId"`
	Name     string `json:"name"`
}

// RoleAssignedPayload is sent to each player with their role
type RoleAssignedPayload struct {
	Role         Role         `json:"role"`
	Teammates    []PlayerInfo `json:"teammates,omitempty"` // only for wolves
	DelaySeconds int          `json:"delaySeconds"`
}

// NightStartedPayload is broadcast at nightfall
type NightStartedPayload struct {
	Night int `json:"night"`
}

// NightStagePayload tells everyone which role is acting
type NightStagePayload struct {
	Night int        `json:"night"`
	Stage NightStage `json:"stage"`
}

// PromptPayload asks a role holder to pick targets
type PromptPayload struct {
	Stage   NightStage   `json:"stage"`
	Targets []PlayerInfo `json:"targets"`
}

// LoversPayload tells a lover who their partner is
type LoversPayload struct {
	PartnerID   string `json:"partnerId"`
	PartnerName string `json:"partnerName"`
}

// ClairvoyantResultPayload reveals whether the target is a wolf
type ClairvoyantResultPayload struct {
	TargetID string `json:"targetId"`
	Name     string `json:"name"`
	IsWolf   bool   `json:"isWolf"`
}

// DeathAnnouncedPayload lists the deaths of a night or a day vote
type DeathAnnouncedPayload struct {
	Deaths  []Death      `json:"deaths"`
	Players []PlayerInfo `json:"players"`
}

// NoDeathsPayload is broadcast when a night claims no victim
type NoDeathsPayload struct {
	Night int `json:"night"`
}

// EliminatedPayload is sent privately to a player who died
type EliminatedPayload struct {
	Cause DeathCause `json:"cause"`
}

// ReadyPayload reports a ready quorum's progress
type ReadyPayload struct {
	Phase Phase `json:"phase"`
	ReadyProgress
}

// DayStartedPayload opens the day vote
type DayStartedPayload struct {
	Players []PlayerInfo `json:"players"`
}

// GameOverPayload is sent individually to every player
type GameOverPayload struct {
	Winner    Faction       `json:"winner"`
	Players   []FinalPlayer `json:"players"`
	Deaths    []Death       `json:"deaths"`
	PlayAgain bool          `json:"playAgain"`
}

// NewGamePayload announces that a new game is about to be dealt
type NewGamePayload struct {
	DelaySeconds int          `json:"delaySeconds"`
	Players      []PlayerInfo `json:"players"`
}

// StoryPayload carries narrator text
type StoryPayload struct {
	Text string `json:"text"`
}

// RoomClosedPayload is sent when a room is deleted
type RoomClosedPayload struct {
	Reason string `json:"reason"`
}

// ErrorPayload is sent when an error occurs
type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
