package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"werewolves/internal/domain"
	"werewolves/internal/history"
)

// Response is a standard API response
type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   *ErrorInfo  `json:"error,omitempty"`
}

// ErrorInfo contains error details
type ErrorInfo struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// RoomListResponse is the response for listing joinable rooms
type RoomListResponse struct {
	Rooms []domain.RoomSummary `json:"rooms"`
}

// HistoryResponse is the response for the game archive
type HistoryResponse struct {
	Games []history.Game `json:"games"`
	Total int            `json:"total"`
}

// HealthResponse is the response for health check
type HealthResponse struct {
	Status  string `json:"status"`
	History string `json:"history,omitempty"`
}

// StatsResponse is the response for stats endpoint
type StatsResponse struct {
	ActiveRooms  int `json:"activeRooms"`
	TotalPlayers int `json:"totalPlayers"`
	GamesPlayed  int `json:"gamesPlayed,omitempty"`
}

const maxHistoryLimit = 100

// handleListRooms handles GET /api/rooms
func (s *Server) handleListRooms(w http.ResponseWriter, r *http.Request) {
	s.sendSuccess(w, &RoomListResponse{Rooms: s.hub.ListRooms()})
}

// handleGetRoom handles GET /api/rooms/{roomId}
func (s *Server) handleGetRoom(w http.ResponseWriter, r *http.Request) {
	roomID := mux.Vars(r)["roomId"]

	session, err := s.hub.GetSession(roomID)
	if err != nil {
		if errors.Is(err, domain.ErrRoomNotFound) {
			s.sendError(w, http.StatusNotFound, "ROOM_NOT_FOUND", "Room not found")
		} else {
			s.sendError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Internal server error")
		}
		return
	}

	// The public view never carries living players' roles
	view := session.View("")
	s.sendSuccess(w, &view)
}

// handleHistory handles GET /api/history?limit=N
func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		s.sendError(w, http.StatusNotFound, "HISTORY_DISABLED", "Game history is disabled")
		return
	}

	limit := history.DefaultLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			s.sendError(w, http.StatusBadRequest, "INVALID_LIMIT", "limit must be a positive integer")
			return
		}
		limit = min(n, maxHistoryLimit)
	}

	games, err := s.history.Recent(r.Context(), limit)
	if err != nil {
		s.logger.Error("history query failed", "error", err)
		s.sendError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Internal server error")
		return
	}
	total, err := s.history.Count(r.Context())
	if err != nil {
		s.logger.Error("history count failed", "error", err)
		s.sendError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Internal server error")
		return
	}

	s.sendSuccess(w, &HistoryResponse{Games: games, Total: total})
}

// handleHealth handles GET /api/health
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := &HealthResponse{Status: "ok"}
	if pinger, ok := s.history.(interface {
		Ping(ctx context.Context) error
	}); ok {
		resp.History = "ok"
		if err := pinger.Ping(r.Context()); err != nil {
			s.logger.Warn("history ping failed", "error", err)
			resp.History = "unavailable"
		}
	}
	s.sendSuccess(w, resp)
}

// handleStats handles GET /api/stats
func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	resp := &StatsResponse{
		ActiveRooms:  s.hub.GetSessionCount(),
		TotalPlayers: s.hub.GetTotalPlayerCount(),
	}
	if s.history != nil {
		if n, err := s.history.Count(r.Context()); err == nil {
			resp.GamesPlayed = n
		}
	}
	s.sendSuccess(w, resp)
}

// sendSuccess sends a successful JSON response
func (s *Server) sendSuccess(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(&Response{
		Success: true,
		Data:    data,
	})
}

// sendError sends an error JSON response
func (s *Server) sendError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(&Response{
		Success: false,
		Error: &ErrorInfo{
			Code:    code,
			Message: message,
		},
	})
}
