package ws

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"werewolves/internal/app"
	"werewolves/internal/domain"
)

const readTimeout = 2 * time.Second

type frame struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type testConn struct {
	t      *testing.T
	conn   *websocket.Conn
	frames chan frame
}

func newTestServer(t *testing.T) (*httptest.Server, *app.GameHub) {
	t.Helper()
	return newTracedServer(t, noop.NewTracerProvider().Tracer("test"))
}

func newTracedServer(t *testing.T, tracer trace.Tracer) (*httptest.Server, *app.GameHub) {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	hub := app.NewGameHub(app.Options{}, logger)
	srv := httptest.NewServer(NewHandler(hub, logger, tracer))
	t.Cleanup(func() {
		srv.Close()
		hub.Close()
	})
	return srv, hub
}

func dial(t *testing.T, srv *httptest.Server) *testConn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	tc := &testConn{t: t, conn: conn, frames: make(chan frame, 64)}
	go tc.readLoop()
	t.Cleanup(func() { conn.Close() })
	return tc
}

func (c *testConn) readLoop() {
	defer close(c.frames)
	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			return
		}
		// Queued messages share one websocket frame, one per line
		for _, line := range bytes.Split(data, []byte{'\n'}) {
			var f frame
			if err := json.Unmarshal(line, &f); err == nil {
				c.frames <- f
			}
		}
	}
}

func (c *testConn) send(msgType MessageType, payload interface{}) {
	c.t.Helper()
	msg := map[string]interface{}{"type": msgType}
	if payload != nil {
		msg["payload"] = payload
	}
	if err := c.conn.WriteJSON(msg); err != nil {
		c.t.Fatalf("write %s: %v", msgType, err)
	}
}

// expect skips frames until one of the wanted type arrives.
func (c *testConn) expect(msgType string) frame {
	c.t.Helper()
	deadline := time.After(readTimeout)
	for {
		select {
		case f, ok := <-c.frames:
			if !ok {
				c.t.Fatalf("connection closed waiting for %s", msgType)
			}
			if f.Type == msgType {
				return f
			}
		case <-deadline:
			c.t.Fatalf("timed out waiting for %s", msgType)
		}
	}
}

func (c *testConn) expectError(code string) {
	c.t.Helper()
	f := c.expect(string(MsgError))
	var p ErrorPayload
	if err := json.Unmarshal(f.Payload, &p); err != nil {
		c.t.Fatal(err)
	}
	if p.Code != code {
		c.t.Fatalf("error code = %s (%s), want %s", p.Code, p.Message, code)
	}
}

func connected(t *testing.T, f frame) ConnectedPayload {
	t.Helper()
	var p ConnectedPayload
	if err := json.Unmarshal(f.Payload, &p); err != nil {
		t.Fatal(err)
	}
	return p
}

func TestConnectAssignsPlayerID(t *testing.T) {
	srv, _ := newTestServer(t)

	a := dial(t, srv)
	b := dial(t, srv)

	pa := connected(t, a.expect(string(MsgConnected)))
	pb := connected(t, b.expect(string(MsgConnected)))
	if pa.PlayerID == "" || pa.PlayerID == pb.PlayerID {
		t.Fatalf("player ids %q and %q", pa.PlayerID, pb.PlayerID)
	}
	if pa.Room != nil {
		t.Fatal("fresh connection should not be in a room")
	}
}

func TestCreateListAndJoin(t *testing.T) {
	srv, hub := newTestServer(t)

	host := dial(t, srv)
	host.expect(string(MsgConnected))
	host.send(MsgCreateRoom, CreateRoomPayload{Name: "Ada", Room: "den", Capacity: 5, Wolves: 1})

	view := connected(t, host.expect(string(MsgConnected)))
	if view.Room == nil || view.Room.Room.ID != "den" || view.Room.You == nil || view.Room.You.Name != "Ada" {
		t.Fatalf("create view = %+v", view.Room)
	}

	guest := dial(t, srv)
	guest.expect(string(MsgConnected))
	guest.send(MsgListRooms, nil)

	var list RoomListPayload
	if err := json.Unmarshal(guest.expect(string(MsgRoomList)).Payload, &list); err != nil {
		t.Fatal(err)
	}
	if len(list.Rooms) != 1 || list.Rooms[0].ID != "den" || list.Rooms[0].Players != 1 {
		t.Fatalf("rooms = %+v", list.Rooms)
	}

	guest.send(MsgJoinRoom, JoinRoomPayload{Name: "Bob", Room: "den"})
	joined := connected(t, guest.expect(string(MsgConnected)))
	if joined.Room == nil || len(joined.Room.Players) != 2 {
		t.Fatalf("join view = %+v", joined.Room)
	}

	host.expect(string(domain.EventPlayerJoined))
	if n := hub.GetTotalPlayerCount(); n != 2 {
		t.Fatalf("players = %d", n)
	}
}

func TestIntentErrors(t *testing.T) {
	srv, _ := newTestServer(t)

	c := dial(t, srv)
	c.expect(string(MsgConnected))

	c.send(MsgJoinRoom, JoinRoomPayload{Name: "Bob", Room: "nowhere"})
	c.expectError(ErrCodeRoomNotFound)

	c.send(MsgWolfVote, TargetPayload{Target: "x"})
	c.expectError(ErrCodeNotInRoom)

	c.send("bogus", nil)
	c.expectError(ErrCodeInvalidMessage)

	c.send(MsgCreateRoom, nil)
	c.expectError(ErrCodeInvalidMessage)

	c.send(MsgCreateRoom, CreateRoomPayload{Name: "Ada", Room: "den", Capacity: 5})
	c.expectError(ErrCodeInvalidConfig)

	if err := c.conn.WriteMessage(websocket.TextMessage, []byte("{not json")); err != nil {
		t.Fatal(err)
	}
	c.expectError(ErrCodeInvalidMessage)
}

func TestWrongRoomRejected(t *testing.T) {
	srv, _ := newTestServer(t)

	c := dial(t, srv)
	c.expect(string(MsgConnected))
	c.send(MsgCreateRoom, CreateRoomPayload{Name: "Ada", Room: "den", Capacity: 5, Wolves: 1})
	c.expect(string(MsgConnected))

	c.send(MsgReadyForDay, RoomPayload{Room: "elsewhere"})
	c.expectError(ErrCodeNotInRoom)

	c.send(MsgReadyForDay, RoomPayload{Room: "den"})
	c.expectError(ErrCodeWrongPhase)
}

func TestPingPong(t *testing.T) {
	srv, _ := newTestServer(t)

	c := dial(t, srv)
	c.expect(string(MsgConnected))
	c.send(MsgPing, nil)
	c.expect(string(MsgPong))
}

func TestDisconnectLeavesRoom(t *testing.T) {
	srv, hub := newTestServer(t)

	host := dial(t, srv)
	host.expect(string(MsgConnected))
	host.send(MsgCreateRoom, CreateRoomPayload{Name: "Ada", Room: "den", Capacity: 5, Wolves: 1})
	host.expect(string(MsgConnected))

	guest := dial(t, srv)
	guest.expect(string(MsgConnected))
	guest.send(MsgJoinRoom, JoinRoomPayload{Name: "Bob", Room: "den"})
	guest.expect(string(MsgConnected))
	host.expect(string(domain.EventPlayerJoined))

	guest.conn.Close()
	host.expect(string(domain.EventPlayerLeft))

	host.conn.Close()
	deadline := time.Now().Add(readTimeout)
	for hub.GetSessionCount() != 0 {
		if time.Now().After(deadline) {
			t.Fatal("empty room was not removed")
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestSwitchingRoomsLeavesPrevious(t *testing.T) {
	srv, hub := newTestServer(t)

	c := dial(t, srv)
	c.expect(string(MsgConnected))
	c.send(MsgCreateRoom, CreateRoomPayload{Name: "Ada", Room: "one", Capacity: 5, Wolves: 1})
	c.expect(string(MsgConnected))
	c.send(MsgCreateRoom, CreateRoomPayload{Name: "Ada", Room: "two", Capacity: 5, Wolves: 1})
	c.expect(string(MsgConnected))

	if _, err := hub.GetSession("one"); !errors.Is(err, domain.ErrRoomNotFound) {
		t.Fatalf("first room still open: %v", err)
	}
	if _, err := hub.GetSession("two"); err != nil {
		t.Fatal(err)
	}
}

func TestErrorCode(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{domain.ErrRoomFull, ErrCodeRoomFull},
		{fmt.Errorf("wrapped: %w", domain.ErrInvalidTarget), ErrCodeInvalidTarget},
		{domain.ErrNotEnoughPlayers, ErrCodeInvalidConfig},
		{domain.ErrPlayerNotFound, ErrCodeNotInRoom},
		{errUnknownType, ErrCodeInvalidMessage},
		{errors.New("boom"), ErrCodeInternalError},
	}

	for _, tt := range tests {
		if got := ErrorCode(tt.err); got != tt.want {
			t.Errorf("ErrorCode(%v) = %s, want %s", tt.err, got, tt.want)
		}
	}
}

func TestIntentSpansCarryRoom(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	provider := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	t.Cleanup(func() { provider.Shutdown(context.Background()) })
	srv, _ := newTracedServer(t, provider.Tracer("test"))

	c := dial(t, srv)
	c.expect(string(MsgConnected))
	c.send(MsgCreateRoom, CreateRoomPayload{Name: "Ada", Room: "den", Capacity: 5, Wolves: 1})
	c.expect(string(MsgConnected))
	c.send(MsgReadyForDay, RoomPayload{Room: "den"})
	c.expectError(ErrCodeWrongPhase)

	// Spans end after the reply is queued
	spans := map[string]sdktrace.ReadOnlySpan{}
	deadline := time.Now().Add(readTimeout)
	for len(spans) < 2 && time.Now().Before(deadline) {
		for _, span := range recorder.Ended() {
			spans[span.Name()] = span
		}
		time.Sleep(5 * time.Millisecond)
	}

	roomOf := func(span sdktrace.ReadOnlySpan) string {
		for _, kv := range span.Attributes() {
			if kv.Key == attribute.Key("room.id") {
				return kv.Value.AsString()
			}
		}
		return ""
	}

	create, ok := spans["ws."+string(MsgCreateRoom)]
	if !ok {
		t.Fatalf("no create span in %v", spans)
	}
	if roomOf(create) != "den" || create.Status().Code == codes.Error {
		t.Fatalf("create span room=%q status=%v", roomOf(create), create.Status())
	}

	ready, ok := spans["ws."+string(MsgReadyForDay)]
	if !ok {
		t.Fatalf("no ready span in %v", spans)
	}
	if roomOf(ready) != "den" || ready.Status().Code != codes.Error || ready.Status().Description != ErrCodeWrongPhase {
		t.Fatalf("ready span room=%q status=%v", roomOf(ready), ready.Status())
	}
}
