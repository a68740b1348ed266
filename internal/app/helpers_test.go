package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"werewolves/internal/domain"
)

const waitTimeout = 2 * time.Second

// orderedRand deals roles in join order.
type orderedRand struct{}

func (orderedRand) Perm(n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = i
	}
	return out
}

func (orderedRand) Intn(int) int { return 0 }

type fakeTimer struct {
	sched   *fakeScheduler
	delay   time.Duration
	fn      func()
	stopped bool
	fired   bool
}

func (t *fakeTimer) Stop() bool {
	t.sched.mu.Lock()
	defer t.sched.mu.Unlock()
	pending := !t.stopped && !t.fired
	t.stopped = true
	return pending
}

// fakeScheduler only runs timers when the test says so.
type fakeScheduler struct {
	mu     sync.Mutex
	timers []*fakeTimer
}

func (s *fakeScheduler) AfterFunc(d time.Duration, f func()) Timer {
	s.mu.Lock()
	defer s.mu.Unlock()
	t := &fakeTimer{sched: s, delay: d, fn: f}
	s.timers = append(s.timers, t)
	return t
}

// pending returns the timers that were neither stopped nor fired.
func (s *fakeScheduler) pending() []*fakeTimer {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*fakeTimer
	for _, t := range s.timers {
		if !t.stopped && !t.fired {
			out = append(out, t)
		}
	}
	return out
}

// fireAll runs every pending timer once, in scheduling order. Timers
// scheduled while firing wait for the next call.
func (s *fakeScheduler) fireAll() int {
	timers := s.pending()
	s.mu.Lock()
	for _, t := range timers {
		t.fired = true
	}
	s.mu.Unlock()

	for _, t := range timers {
		t.fn()
	}
	return len(timers)
}

// last returns the most recently scheduled timer.
func (s *fakeScheduler) last(t *testing.T) *fakeTimer {
	t.Helper()
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.timers) == 0 {
		t.Fatal("no timer scheduled")
	}
	return s.timers[len(s.timers)-1]
}

// recordingClient keeps every event it receives.
type recordingClient struct {
	id     string
	mu     sync.Mutex
	events []*domain.GameEvent
	left   []string
}

func newClient(id string) *recordingClient {
	return &recordingClient{id: id}
}

func (c *recordingClient) Send(message interface{}) error {
	event, ok := message.(*domain.GameEvent)
	if !ok {
		return fmt.Errorf("unexpected message %T", message)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, event)
	return nil
}

func (c *recordingClient) GetPlayerID() string { return c.id }

func (c *recordingClient) LeftRoom(roomID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.left = append(c.left, roomID)
}

func (c *recordingClient) count(eventType domain.EventType) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, e := range c.events {
		if e.Type == eventType {
			n++
		}
	}
	return n
}

func (c *recordingClient) latest(eventType domain.EventType) *domain.GameEvent {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := len(c.events) - 1; i >= 0; i-- {
		if c.events[i].Type == eventType {
			return c.events[i]
		}
	}
	return nil
}

// waitFor blocks until the client received n events of the type and returns
// the latest one.
func (c *recordingClient) waitFor(t *testing.T, eventType domain.EventType, n int) *domain.GameEvent {
	t.Helper()
	deadline := time.Now().Add(waitTimeout)
	for time.Now().Before(deadline) {
		if c.count(eventType) >= n {
			return c.latest(eventType)
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("%s: timed out waiting for %d %s events (got %d)", c.id, n, eventType, c.count(eventType))
	return nil
}

func (c *recordingClient) waitLeft(t *testing.T, roomID string) {
	t.Helper()
	deadline := time.Now().Add(waitTimeout)
	for time.Now().Before(deadline) {
		c.mu.Lock()
		for _, id := range c.left {
			if id == roomID {
				c.mu.Unlock()
				return
			}
		}
		c.mu.Unlock()
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("%s: never left room %s", c.id, roomID)
}

type fakeRecorder struct {
	games chan domain.GameSummary
}

func (r *fakeRecorder) RecordGame(_ context.Context, summary domain.GameSummary) error {
	r.games <- summary
	return nil
}

type fakeNarrator struct {
	text string
}

func (n fakeNarrator) Narrate(_ context.Context, deaths, _ []domain.Death) (string, error) {
	return fmt.Sprintf("%s (%d)", n.text, len(deaths)), nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testOptions(sched *fakeScheduler) Options {
	return Options{
		Rules: domain.Rules{
			MinPlayers:    4,
			MaxPlayers:    20,
			MaxNameLength: 20,
			PlayAgain:     domain.PlayAgainAll,
		},
		Scheduler: sched,
		NewRand:   func() domain.RandomSource { return orderedRand{} },
	}
}

type table struct {
	hub     *GameHub
	session *RoomSession
	sched   *fakeScheduler
	clients map[string]*recordingClient
}

func (tb *table) client(id string) *recordingClient {
	return tb.clients[id]
}

// newTable creates room "r" and fills it with players p1..pn. The room's
// capacity is n, so the auto start timer is pending afterwards.
func newTable(t *testing.T, opts Options, cfg domain.RoomConfig, n int) *table {
	t.Helper()
	sched := opts.Scheduler.(*fakeScheduler)
	hub := NewGameHub(opts, discardLogger())
	t.Cleanup(hub.Close)

	cfg.Capacity = n
	tb := &table{hub: hub, sched: sched, clients: make(map[string]*recordingClient)}
	for i := 1; i <= n; i++ {
		id := fmt.Sprintf("p%d", i)
		client := newClient(id)
		tb.clients[id] = client

		var err error
		if i == 1 {
			tb.session, _, err = hub.CreateRoom("r", cfg, id, "Player "+id, client)
		} else {
			_, _, err = hub.JoinRoom("r", id, "Player "+id, client)
		}
		if err != nil {
			t.Fatalf("join %s: %v", id, err)
		}
	}
	return tb
}

// startTable deals roles and opens the first night. With one wolf and one
// healer p1 is the wolf and p2 the healer.
func startTable(t *testing.T, opts Options, cfg domain.RoomConfig, n int) *table {
	t.Helper()
	tb := newTable(t, opts, cfg, n)
	if fired := tb.sched.fireAll(); fired != 1 {
		t.Fatalf("expected auto start timer, fired %d", fired)
	}
	if fired := tb.sched.fireAll(); fired != 1 {
		t.Fatalf("expected role reveal timer, fired %d", fired)
	}
	if phase := tb.session.GetPhase(); phase != domain.PhaseNight {
		t.Fatalf("phase = %s, want NIGHT", phase)
	}
	return tb
}

func mustOK(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatal(err)
	}
}
