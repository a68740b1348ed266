package ws

import (
	"encoding/json"
	"errors"
	"time"

	"werewolves/internal/app"
	"werewolves/internal/domain"
)

// MessageType represents the type of WebSocket message
type MessageType string

// Client → Server message types
const (
	MsgListRooms        MessageType = "list_rooms"
	MsgCreateRoom       MessageType = "create_room"
	MsgJoinRoom         MessageType = "join_room"
	MsgMatchmakerChoice MessageType = "matchmaker_choice"
	MsgSeerChoice       MessageType = "seer_choice"
	MsgWolfVote         MessageType = "wolf_vote"
	MsgHealerDecision   MessageType = "healer_decision"
	MsgDayVote          MessageType = "day_vote"
	MsgReadyForDay      MessageType = "ready_for_day"
	MsgReadyForNight    MessageType = "ready_for_night"
	MsgPlayAgain        MessageType = "play_again"
	MsgPostMortemChat   MessageType = "post_mortem_chat"
	MsgPing             MessageType = "ping"
)

// Server → Client message types. Game notifications are sent as
// domain.GameEvent values.
const (
	MsgConnected MessageType = "connected"
	MsgRoomList  MessageType = "room_list"
	MsgError     MessageType = "error"
	MsgPong      MessageType = "pong"
)

// ClientMessage represents a message from client to server
type ClientMessage struct {
	Type    MessageType     `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// ServerMessage represents a message from server to client
type ServerMessage struct {
	Type      MessageType `json:"type"`
	Payload   interface{} `json:"payload,omitempty"`
	Timestamp string      `json:"timestamp"`
}

// NewServerMessage creates a new server message with current timestamp
func NewServerMessage(msgType MessageType, payload interface{}) *ServerMessage {
	return &ServerMessage{
		Type:      msgType,
		Payload:   payload,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
}

// Client message payloads

// CreateRoomPayload is the payload for create_room message
type CreateRoomPayload struct {
	Name         string `json:"name"`
	Room         string `json:"room"`
	Capacity     int    `json:"capacity"`
	Wolves       int    `json:"wolves"`
	Healers      int    `json:"healers"`
	Clairvoyants int    `json:"clairvoyants"`
	Matchmakers  int    `json:"matchmakers"`
}

// Config returns the room configuration the creator asked for
func (p CreateRoomPayload) Config() domain.RoomConfig {
	return domain.RoomConfig{
		Capacity:     p.Capacity,
		Wolves:       p.Wolves,
		Healers:      p.Healers,
		Clairvoyants: p.Clairvoyants,
		Matchmakers:  p.Matchmakers,
	}
}

// JoinRoomPayload is the payload for join_room message
type JoinRoomPayload struct {
	Name string `json:"name"`
	Room string `json:"room"`
}

// RoomPayload names the room an intent is for
type RoomPayload struct {
	Room string `json:"room"`
}

// MatchmakerChoicePayload is the payload for matchmaker_choice message
type MatchmakerChoicePayload struct {
	Room   string `json:"room"`
	First  string `json:"first"`
	Second string `json:"second"`
}

// TargetPayload is the payload for seer_choice, wolf_vote and day_vote
type TargetPayload struct {
	Room   string `json:"room"`
	Target string `json:"target"`
}

// HealerDecisionPayload is the payload for healer_decision message
type HealerDecisionPayload struct {
	Room         string `json:"room"`
	Heal         bool   `json:"heal"`
	PoisonTarget string `json:"poisonTarget,omitempty"`
}

// ChatPayload is the payload for post_mortem_chat message
type ChatPayload struct {
	Room    string `json:"room"`
	Message string `json:"message"`
}

// Server message payloads

// ConnectedPayload is sent when the socket opens and after every successful
// create or join
type ConnectedPayload struct {
	PlayerID string        `json:"playerId"`
	Room     *app.RoomView `json:"room,omitempty"`
}

// RoomListPayload is the payload for room_list message
type RoomListPayload struct {
	Rooms []domain.RoomSummary `json:"rooms"`
}

// ErrorPayload is the payload for error message
type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Error codes
const (
	ErrCodeInvalidMessage     = "INVALID_MESSAGE"
	ErrCodeRoomNotFound       = "ROOM_NOT_FOUND"
	ErrCodeRoomFull           = "ROOM_FULL"
	ErrCodeDuplicateRoom      = "DUPLICATE_ROOM"
	ErrCodeGameAlreadyStarted = "GAME_ALREADY_STARTED"
	ErrCodeWrongPhase         = "WRONG_PHASE"
	ErrCodeNotAuthorized      = "NOT_AUTHORIZED"
	ErrCodeInvalidTarget      = "INVALID_TARGET"
	ErrCodeNotInRoom          = "NOT_IN_ROOM"
	ErrCodeAlreadyInRoom      = "ALREADY_IN_ROOM"
	ErrCodeInvalidConfig      = "INVALID_CONFIG"
	ErrCodeInvalidName        = "INVALID_NAME"
	ErrCodeEmptyMessage       = "EMPTY_MESSAGE"
	ErrCodeInternalError      = "INTERNAL_ERROR"
)

var (
	errInvalidPayload = errors.New("invalid payload")
	errUnknownType    = errors.New("unknown message type")
	errNotInRoom      = errors.New("not in this room")
)

var errorCodes = []struct {
	err  error
	code string
}{
	{errInvalidPayload, ErrCodeInvalidMessage},
	{errUnknownType, ErrCodeInvalidMessage},
	{errNotInRoom, ErrCodeNotInRoom},
	{domain.ErrPlayerNotFound, ErrCodeNotInRoom},
	{domain.ErrRoomNotFound, ErrCodeRoomNotFound},
	{domain.ErrRoomFull, ErrCodeRoomFull},
	{domain.ErrDuplicateRoom, ErrCodeDuplicateRoom},
	{domain.ErrGameAlreadyStarted, ErrCodeGameAlreadyStarted},
	{domain.ErrWrongPhase, ErrCodeWrongPhase},
	{domain.ErrNotAuthorized, ErrCodeNotAuthorized},
	{domain.ErrInvalidTarget, ErrCodeInvalidTarget},
	{domain.ErrAlreadyInRoom, ErrCodeAlreadyInRoom},
	{domain.ErrInvalidConfig, ErrCodeInvalidConfig},
	{domain.ErrNotEnoughPlayers, ErrCodeInvalidConfig},
	{domain.ErrInvalidName, ErrCodeInvalidName},
	{domain.ErrEmptyMessage, ErrCodeEmptyMessage},
}

// ErrorCode maps an intent error to the code sent to the client
func ErrorCode(err error) string {
	for _, entry := range errorCodes {
		if errors.Is(err, entry.err) {
			return entry.code
		}
	}
	return ErrCodeInternalError
}
