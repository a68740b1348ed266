package domain

import "errors"

// Domain errors
var (
	ErrRoomNotFound       = errors.New("room not found")
	ErrRoomFull           = errors.New("room is full")
	ErrDuplicateRoom      = errors.New("room already exists")
	ErrGameAlreadyStarted = errors.New("game already started")
	ErrWrongPhase         = errors.New("action not allowed in current phase")
	ErrNotAuthorized      = errors.New("not authorized to perform this action")
	ErrInvalidTarget      = errors.New("invalid target")
	ErrPlayerNotFound     = errors.New("player not found")
	ErrAlreadyInRoom      = errors.New("player already in room")
	ErrNotEnoughPlayers   = errors.New("not enough players to start")
	ErrInvalidConfig      = errors.New("invalid room configuration")
	ErrInvalidName        = errors.New("invalid name")
	ErrEmptyMessage       = errors.New("message cannot be empty")
)
