package app

import (
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"werewolves/internal/domain"
)

const (
	// StaleRoomTimeout is how long a finished room may idle before cleanup
	StaleRoomTimeout = 2 * time.Hour

	cleanupInterval = 10 * time.Minute
)

// GameHub manages all active room sessions
type GameHub struct {
	sessions map[string]*RoomSession
	mu       sync.RWMutex
	opts     Options
	logger   *slog.Logger
	done     chan struct{}
	stopOnce sync.Once
}

// NewGameHub creates a new game hub
func NewGameHub(opts Options, logger *slog.Logger) *GameHub {
	hub := &GameHub{
		sessions: make(map[string]*RoomSession),
		opts:     opts.withDefaults(),
		logger:   logger,
		done:     make(chan struct{}),
	}

	// Start cleanup goroutine
	go hub.cleanupLoop()

	return hub
}

// Rules returns the rules every new room is created with
func (h *GameHub) Rules() domain.Rules {
	return h.opts.Rules
}

// CreateRoom creates a room with its creator already seated. The session is
// published only after the creator joined, so nobody can empty it first.
func (h *GameHub) CreateRoom(roomID string, cfg domain.RoomConfig, playerID, name string, client ClientConnection) (*RoomSession, domain.PlayerInfo, error) {
	room, err := domain.NewRoom(roomID, cfg, h.opts.Rules)
	if err != nil {
		return nil, domain.PlayerInfo{}, err
	}
	creator, err := room.AddPlayer(playerID, name)
	if err != nil {
		return nil, domain.PlayerInfo{}, err
	}

	h.mu.Lock()
	if _, exists := h.sessions[roomID]; exists {
		h.mu.Unlock()
		return nil, domain.PlayerInfo{}, fmt.Errorf("%w: %s", domain.ErrDuplicateRoom, roomID)
	}
	session := NewRoomSession(room, h.opts, h.logger, h.removeSession)
	session.seat(creator, client)
	h.sessions[roomID] = session
	h.mu.Unlock()

	h.logger.Info("room created", "room", roomID, "capacity", cfg.Capacity, "wolves", cfg.Wolves, "creator", playerID)

	return session, creator.ToInfo(), nil
}

// JoinRoom adds a player to an existing room
func (h *GameHub) JoinRoom(roomID, playerID, name string, client ClientConnection) (*RoomSession, domain.PlayerInfo, error) {
	session, err := h.GetSession(roomID)
	if err != nil {
		return nil, domain.PlayerInfo{}, err
	}

	info, err := session.Join(playerID, name, client)
	if err != nil {
		return nil, domain.PlayerInfo{}, err
	}
	return session, info, nil
}

// GetSession returns a room session by ID
func (h *GameHub) GetSession(roomID string) (*RoomSession, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	session, ok := h.sessions[roomID]
	if !ok {
		return nil, domain.ErrRoomNotFound
	}

	return session, nil
}

// ListRooms returns the rooms still accepting players, sorted by ID
func (h *GameHub) ListRooms() []domain.RoomSummary {
	rooms := make([]domain.RoomSummary, 0)
	for _, session := range h.snapshot() {
		summary := session.Summary()
		if summary.Phase == domain.PhaseLobby {
			rooms = append(rooms, summary)
		}
	}

	sort.Slice(rooms, func(i, j int) bool {
		return rooms[i].ID < rooms[j].ID
	})
	return rooms
}

// DeleteSession removes a room session
func (h *GameHub) DeleteSession(roomID string) {
	h.mu.RLock()
	session, ok := h.sessions[roomID]
	h.mu.RUnlock()

	if ok {
		h.removeSession(session)
	}
}

// removeSession unregisters the session if it is still the one stored under
// its ID, then closes it outside the hub lock.
func (h *GameHub) removeSession(session *RoomSession) {
	h.mu.Lock()
	current, ok := h.sessions[session.ID()]
	if ok && current == session {
		delete(h.sessions, session.ID())
	}
	h.mu.Unlock()

	session.Close()
	if ok && current == session {
		h.logger.Info("room deleted", "room", session.ID())
	}
}

// GetSessionCount returns the number of active sessions
func (h *GameHub) GetSessionCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.sessions)
}

// GetTotalPlayerCount returns the total number of players across all sessions
func (h *GameHub) GetTotalPlayerCount() int {
	total := 0
	for _, session := range h.snapshot() {
		total += session.GetPlayerCount()
	}
	return total
}

// snapshot copies the session list so callers can lock sessions without
// holding the hub lock.
func (h *GameHub) snapshot() []*RoomSession {
	h.mu.RLock()
	defer h.mu.RUnlock()

	sessions := make([]*RoomSession, 0, len(h.sessions))
	for _, session := range h.sessions {
		sessions = append(sessions, session)
	}
	return sessions
}

// Close shuts down the hub and all sessions
func (h *GameHub) Close() {
	h.stopOnce.Do(func() { close(h.done) })

	h.mu.Lock()
	sessions := h.sessions
	h.sessions = make(map[string]*RoomSession)
	h.mu.Unlock()

	for _, session := range sessions {
		session.Close()
	}
}

// cleanupLoop periodically cleans up stale rooms
func (h *GameHub) cleanupLoop() {
	ticker := time.NewTicker(cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-h.done:
			return
		case <-ticker.C:
			h.cleanupStaleRooms(time.Now())
		}
	}
}

// cleanupStaleRooms removes empty rooms and finished rooms nobody restarted
func (h *GameHub) cleanupStaleRooms(now time.Time) int {
	removed := 0
	for _, session := range h.snapshot() {
		empty := session.GetPlayerCount() == 0
		ended := session.EndedAt()
		idle := session.GetPhase() == domain.PhaseGameOver && !ended.IsZero() && now.Sub(ended) > StaleRoomTimeout

		if empty || idle {
			h.removeSession(session)
			h.logger.Info("stale room cleaned up", "room", session.ID())
			removed++
		}
	}
	return removed
}
