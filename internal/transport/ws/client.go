package ws

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"werewolves/internal/app"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period (must be less than pongWait)
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer
	maxMessageSize = 4096

	// Size of the send channel buffer
	sendBufferSize = 256
)

// Client is one websocket connection. It belongs to at most one room at a
// time.
type Client struct {
	conn     *websocket.Conn
	hub      *app.GameHub
	playerID string
	send     chan []byte
	done     chan struct{}
	logger   *slog.Logger
	tracer   trace.Tracer
	mu       sync.Mutex
	closed   bool

	sessionMu sync.Mutex
	session   *app.RoomSession
}

// NewClient creates a new WebSocket client
func NewClient(conn *websocket.Conn, hub *app.GameHub, playerID string, logger *slog.Logger, tracer trace.Tracer) *Client {
	return &Client{
		conn:     conn,
		hub:      hub,
		playerID: playerID,
		send:     make(chan []byte, sendBufferSize),
		done:     make(chan struct{}),
		logger:   logger.With("playerID", playerID),
		tracer:   tracer,
	}
}

// GetPlayerID returns the player ID for this client
func (c *Client) GetPlayerID() string {
	return c.playerID
}

// Send implements app.ClientConnection interface
func (c *Client) Send(message interface{}) error {
	data, err := json.Marshal(message)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil
	}

	select {
	case c.send <- data:
		return nil
	default:
		// Buffer full, message dropped
		c.logger.Warn("send buffer full, message dropped")
		return nil
	}
}

// LeftRoom implements app.ClientConnection interface
func (c *Client) LeftRoom(roomID string) {
	c.sessionMu.Lock()
	defer c.sessionMu.Unlock()

	if c.session != nil && c.session.ID() == roomID {
		c.session = nil
	}
}

// Close closes the connection
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil
	}

	c.closed = true
	close(c.done)
	return c.conn.Close()
}

// Run starts the client's read and write pumps
func (c *Client) Run() {
	go c.writePump()
	c.readPump()
}

// readPump pumps messages from the WebSocket connection
func (c *Client) readPump() {
	defer func() {
		c.leaveCurrentRoom()
		c.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.logger.Debug("websocket read error", "error", err)
			}
			break
		}

		c.handleMessage(message)
	}
}

// writePump pumps messages from the send channel to the WebSocket connection
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case <-c.done:
			return
		case message := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))

			w, err := c.conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			w.Write(message)

			// Add queued messages to the current websocket message
			n := len(c.send)
			for i := 0; i < n; i++ {
				w.Write([]byte{'\n'})
				w.Write(<-c.send)
			}

			if err := w.Close(); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// handleMessage decodes and dispatches one intent inside a span. Failures
// go back to this client only.
func (c *Client) handleMessage(data []byte) {
	var msg ClientMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		c.sendError(ErrCodeInvalidMessage, "Invalid message format")
		return
	}

	ctx, span := c.tracer.Start(context.Background(), "ws."+string(msg.Type),
		trace.WithSpanKind(trace.SpanKindServer),
		trace.WithAttributes(attribute.String("player.id", c.playerID)),
	)
	defer span.End()

	if err := c.dispatch(ctx, msg); err != nil {
		code := ErrorCode(err)
		span.RecordError(err)
		span.SetStatus(codes.Error, code)
		c.logger.Debug("intent rejected", "type", msg.Type, "code", code, "error", err)
		c.sendError(code, err.Error())
	}
}

// dispatch runs one intent. ctx carries the intent's span.
func (c *Client) dispatch(ctx context.Context, msg ClientMessage) error {
	switch msg.Type {
	case MsgPing:
		c.sendPong()
		return nil
	case MsgListRooms:
		c.Send(NewServerMessage(MsgRoomList, &RoomListPayload{Rooms: c.hub.ListRooms()}))
		return nil
	case MsgCreateRoom:
		return c.handleCreateRoom(ctx, msg.Payload)
	case MsgJoinRoom:
		return c.handleJoinRoom(ctx, msg.Payload)
	case MsgMatchmakerChoice:
		var p MatchmakerChoicePayload
		return c.withRoom(ctx, msg.Payload, &p, func() string { return p.Room }, func(s *app.RoomSession) error {
			return s.ChooseLovers(c.playerID, p.First, p.Second)
		})
	case MsgSeerChoice:
		var p TargetPayload
		return c.withRoom(ctx, msg.Payload, &p, func() string { return p.Room }, func(s *app.RoomSession) error {
			return s.Divine(c.playerID, p.Target)
		})
	case MsgWolfVote:
		var p TargetPayload
		return c.withRoom(ctx, msg.Payload, &p, func() string { return p.Room }, func(s *app.RoomSession) error {
			return s.WolfVote(c.playerID, p.Target)
		})
	case MsgHealerDecision:
		var p HealerDecisionPayload
		return c.withRoom(ctx, msg.Payload, &p, func() string { return p.Room }, func(s *app.RoomSession) error {
			return s.HealerDecision(c.playerID, p.Heal, p.PoisonTarget)
		})
	case MsgDayVote:
		var p TargetPayload
		return c.withRoom(ctx, msg.Payload, &p, func() string { return p.Room }, func(s *app.RoomSession) error {
			return s.DayVote(c.playerID, p.Target)
		})
	case MsgReadyForDay:
		var p RoomPayload
		return c.withRoom(ctx, msg.Payload, &p, func() string { return p.Room }, func(s *app.RoomSession) error {
			return s.ReadyForDay(c.playerID)
		})
	case MsgReadyForNight:
		var p RoomPayload
		return c.withRoom(ctx, msg.Payload, &p, func() string { return p.Room }, func(s *app.RoomSession) error {
			return s.ReadyForNight(c.playerID)
		})
	case MsgPlayAgain:
		var p RoomPayload
		return c.withRoom(ctx, msg.Payload, &p, func() string { return p.Room }, func(s *app.RoomSession) error {
			return s.PlayAgain(c.playerID)
		})
	case MsgPostMortemChat:
		var p ChatPayload
		return c.withRoom(ctx, msg.Payload, &p, func() string { return p.Room }, func(s *app.RoomSession) error {
			return s.PostMortemChat(c.playerID, p.Message)
		})
	}
	return fmt.Errorf("%w: %q", errUnknownType, msg.Type)
}

// handleCreateRoom handles a create_room message
func (c *Client) handleCreateRoom(ctx context.Context, raw json.RawMessage) error {
	var p CreateRoomPayload
	if err := decode(raw, &p); err != nil {
		return err
	}

	c.leaveCurrentRoom()
	session, _, err := c.hub.CreateRoom(p.Room, p.Config(), c.playerID, p.Name, c)
	if err != nil {
		return err
	}

	tagRoom(ctx, session)
	c.enter(session)
	return nil
}

// handleJoinRoom handles a join_room message
func (c *Client) handleJoinRoom(ctx context.Context, raw json.RawMessage) error {
	var p JoinRoomPayload
	if err := decode(raw, &p); err != nil {
		return err
	}

	if current := c.currentSession(); current != nil && current.ID() == p.Room {
		tagRoom(ctx, current)
		c.enter(current)
		return nil
	}

	c.leaveCurrentRoom()
	session, _, err := c.hub.JoinRoom(p.Room, c.playerID, p.Name, c)
	if err != nil {
		return err
	}

	tagRoom(ctx, session)
	c.enter(session)
	return nil
}

// withRoom decodes the payload and runs the intent against the client's
// current room, which must match the room named in the payload if any.
func (c *Client) withRoom(ctx context.Context, raw json.RawMessage, payload interface{}, room func() string, intent func(*app.RoomSession) error) error {
	if err := decode(raw, payload); err != nil {
		return err
	}

	session := c.currentSession()
	if session == nil {
		return errNotInRoom
	}
	if name := room(); name != "" && name != session.ID() {
		return fmt.Errorf("%w: %s", errNotInRoom, name)
	}

	tagRoom(ctx, session)
	return intent(session)
}

// tagRoom records the room an intent acted on in the intent's span
func tagRoom(ctx context.Context, session *app.RoomSession) {
	trace.SpanFromContext(ctx).SetAttributes(attribute.String("room.id", session.ID()))
}

func (c *Client) enter(session *app.RoomSession) {
	c.sessionMu.Lock()
	c.session = session
	c.sessionMu.Unlock()

	view := session.View(c.playerID)
	c.Send(NewServerMessage(MsgConnected, &ConnectedPayload{
		PlayerID: c.playerID,
		Room:     &view,
	}))
}

func (c *Client) currentSession() *app.RoomSession {
	c.sessionMu.Lock()
	defer c.sessionMu.Unlock()
	return c.session
}

// leaveCurrentRoom departs from the current room, if any
func (c *Client) leaveCurrentRoom() {
	c.sessionMu.Lock()
	session := c.session
	c.session = nil
	c.sessionMu.Unlock()

	if session == nil {
		return
	}
	if err := session.Leave(c.playerID); err != nil {
		c.logger.Debug("leave failed", "room", session.ID(), "error", err)
	}
}

func decode(raw json.RawMessage, v interface{}) error {
	if len(raw) == 0 {
		return fmt.Errorf("%w: missing payload", errInvalidPayload)
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("%w: %v", errInvalidPayload, err)
	}
	return nil
}

// sendConnected greets a freshly opened socket
func (c *Client) sendConnected() {
	c.Send(NewServerMessage(MsgConnected, &ConnectedPayload{PlayerID: c.playerID}))
}

// sendError sends an error message to the client
func (c *Client) sendError(code, message string) {
	payload := &ErrorPayload{
		Code:    code,
		Message: message,
	}

	msg := NewServerMessage(MsgError, payload)
	c.Send(msg)
}

// sendPong sends a pong message in response to ping
func (c *Client) sendPong() {
	msg := NewServerMessage(MsgPong, nil)
	c.Send(msg)
}
