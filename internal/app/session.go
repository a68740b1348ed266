package app

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"werewolves/internal/domain"
)

const (
	timerAutoStart  = "auto_start"
	timerRoleReveal = "role_reveal"
	timerNextNight  = "next_night"
	timerNewRound   = "new_round"
	timerGameOver   = "game_over"

	eventQueueSize = 256
	recordTimeout  = 5 * time.Second
)

// ClientConnection represents a connected client
type ClientConnection interface {
	Send(message interface{}) error
	GetPlayerID() string
	// LeftRoom tells the client it no longer belongs to the room.
	LeftRoom(roomID string)
}

// RoomSession wraps a room with concurrency control and client management.
// Every mutation runs under mu; events are queued under mu and delivered in
// order by a single goroutine.
type RoomSession struct {
	room      *domain.Room
	mu        sync.RWMutex
	clients   map[string]ClientConnection // playerID -> client
	clientsMu sync.RWMutex
	opts      Options
	rng       domain.RandomSource
	logger    *slog.Logger

	timers          map[string]Timer
	closed          bool
	removeRequested bool
	onRemove        func(*RoomSession)

	// Event channel for broadcasting
	events  chan *domain.GameEvent
	drained chan struct{}
}

// NewRoomSession creates a new room session. onRemove is called, without
// the session lock held, when the room asks to be deleted.
func NewRoomSession(room *domain.Room, opts Options, logger *slog.Logger, onRemove func(*RoomSession)) *RoomSession {
	opts = opts.withDefaults()
	session := &RoomSession{
		room:     room,
		clients:  make(map[string]ClientConnection),
		opts:     opts,
		rng:      opts.NewRand(),
		logger:   logger.With("room", room.ID),
		timers:   make(map[string]Timer),
		onRemove: onRemove,
		events:   make(chan *domain.GameEvent, eventQueueSize),
		drained:  make(chan struct{}),
	}

	// Start event broadcaster
	go session.eventLoop()

	return session
}

// ID returns the room identifier
func (s *RoomSession) ID() string {
	return s.room.ID
}

// Summary returns the lobby listing entry for the room
func (s *RoomSession) Summary() domain.RoomSummary {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.room.Summary()
}

// GetPlayerCount returns the number of players
func (s *RoomSession) GetPlayerCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.room.Players)
}

// GetPhase returns the current phase
func (s *RoomSession) GetPhase() domain.Phase {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.room.Phase
}

// EndedAt returns when the last game ended, zero while one is running
func (s *RoomSession) EndedAt() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.room.EndedAt
}

// IsClosed reports whether the session was shut down
func (s *RoomSession) IsClosed() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.closed
}

// RoomView is the room state as seen by one player
type RoomView struct {
	Room       domain.RoomSummary  `json:"room"`
	Config     domain.RoomConfig   `json:"config"`
	NightStage domain.NightStage   `json:"nightStage"`
	Night      int                 `json:"night"`
	Players    []domain.PlayerInfo `json:"players"`
	You        *SelfView           `json:"you,omitempty"`
}

// SelfView is what a player knows about themself
type SelfView struct {
	ID        string              `json:"id"`
	Name      string              `json:"name"`
	Role      domain.Role         `json:"role,omitempty"`
	Alive     bool                `json:"alive"`
	LoverID   string              `json:"loverId,omitempty"`
	Teammates []domain.PlayerInfo `json:"teammates,omitempty"`
}

// View returns the room state for a player. An empty playerID gives the
// public view.
func (s *RoomSession) View(playerID string) RoomView {
	s.mu.RLock()
	defer s.mu.RUnlock()

	view := RoomView{
		Room:       s.room.Summary(),
		Config:     s.room.Config,
		NightStage: s.room.NightStage,
		Night:      s.room.NightCount,
		Players:    s.room.Roster(),
	}
	if p, err := s.room.GetPlayer(playerID); err == nil {
		view.You = &SelfView{
			ID:        p.ID,
			Name:      p.Name,
			Role:      p.Role,
			Alive:     p.Alive,
			LoverID:   p.LoverID,
			Teammates: s.room.Teammates(p.ID),
		}
	}
	return view
}

// RegisterClient registers a client connection for a player
func (s *RoomSession) RegisterClient(playerID string, client ClientConnection) {
	s.clientsMu.Lock()
	defer s.clientsMu.Unlock()
	s.clients[playerID] = client
}

// UnregisterClient removes a client connection
func (s *RoomSession) UnregisterClient(playerID string) {
	s.clientsMu.Lock()
	defer s.clientsMu.Unlock()
	delete(s.clients, playerID)
}

// detachClient unregisters the client unless the player reconnected with
// another one in the meantime.
func (s *RoomSession) detachClient(client ClientConnection) {
	s.clientsMu.Lock()
	if current, ok := s.clients[client.GetPlayerID()]; ok && current == client {
		delete(s.clients, client.GetPlayerID())
	}
	s.clientsMu.Unlock()
	client.LeftRoom(s.room.ID)
}

// lockOpen takes the session lock, failing if the room was deleted.
func (s *RoomSession) lockOpen() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return domain.ErrRoomNotFound
	}
	return nil
}

// unlock releases the session lock and then deletes the room if a
// transition asked for it.
func (s *RoomSession) unlock() {
	remove := s.removeRequested && !s.closed
	s.removeRequested = false
	s.mu.Unlock()

	if !remove {
		return
	}
	if s.onRemove != nil {
		s.onRemove(s)
	} else {
		s.Close()
	}
}

// Join adds a player to the room
func (s *RoomSession) Join(playerID, name string, client ClientConnection) (domain.PlayerInfo, error) {
	if err := s.lockOpen(); err != nil {
		return domain.PlayerInfo{}, err
	}
	defer s.unlock()

	joiningFinished := s.room.Phase == domain.PhaseGameOver
	player, err := s.room.AddPlayer(playerID, name)
	if err != nil {
		return domain.PlayerInfo{}, err
	}
	if client != nil {
		s.RegisterClient(playerID, client)
	}

	s.logger.Info("player joined", "playerID", playerID, "name", player.Name, "players", len(s.room.Players))
	s.queueEvent(domain.NewEvent(domain.EventPlayerJoined, s.room.ID, &domain.PlayerChangePayload{
		PlayerID: player.ID,
		Name:     player.Name,
	}))
	s.queueRoster()

	switch {
	case joiningFinished:
		s.queueEvent(domain.NewEvent(domain.EventPlayAgainProgress, s.room.ID, s.room.PlayAgainProgress()))
		s.maybeStartNewRound()
	case s.room.IsFull():
		s.schedule(timerAutoStart, s.opts.Timings.AutoStart, s.autoStart)
	}

	return player.ToInfo(), nil
}

// seat registers a player the room was created with and announces them
func (s *RoomSession) seat(player *domain.Player, client ClientConnection) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if client != nil {
		s.RegisterClient(player.ID, client)
	}
	s.queueEvent(domain.NewEvent(domain.EventPlayerJoined, s.room.ID, &domain.PlayerChangePayload{
		PlayerID: player.ID,
		Name:     player.Name,
	}))
	s.queueRoster()
}

// Leave removes a player. The room is deleted when it becomes empty;
// otherwise every waiting condition is re-evaluated without the player.
func (s *RoomSession) Leave(playerID string) error {
	if err := s.lockOpen(); err != nil {
		return err
	}
	defer s.unlock()

	player, err := s.room.RemovePlayer(playerID)
	if err != nil {
		return err
	}
	s.UnregisterClient(playerID)

	s.logger.Info("player left", "playerID", playerID, "name", player.Name, "phase", s.room.Phase)

	if s.room.IsEmpty() {
		s.removeRequested = true
		return nil
	}

	s.queueEvent(domain.NewEvent(domain.EventPlayerLeft, s.room.ID, &domain.PlayerChangePayload{
		PlayerID: player.ID,
		Name:     player.Name,
	}))
	s.queueRoster()
	s.recheck()

	return nil
}

// recheck resolves whatever the room was waiting for if the current
// population already satisfies it.
func (s *RoomSession) recheck() {
	if s.room.Phase.InGame() && s.checkWinner() {
		return
	}

	switch s.room.Phase {
	case domain.PhaseNight:
		if s.room.RecheckNight() {
			s.continueNight()
		}
	case domain.PhaseAnnouncement:
		if s.room.ReadyQuorum() {
			s.startDay()
		}
	case domain.PhaseDay:
		switch {
		case s.room.AllDayVotesIn():
			s.resolveDay()
		case s.room.DayResolved && s.room.ReadyQuorum():
			s.startNight()
		}
	case domain.PhaseGameOver:
		s.maybeStartNewRound()
	}
}

// ChooseLovers handles the matchmaker's pick
func (s *RoomSession) ChooseLovers(playerID, firstID, secondID string) error {
	if err := s.lockOpen(); err != nil {
		return err
	}
	defer s.unlock()

	pair, err := s.room.ChooseLovers(playerID, firstID, secondID)
	if err != nil {
		return err
	}

	for _, id := range []string{pair.First, pair.Second} {
		partner, _ := s.room.GetPlayer(pair.Partner(id))
		s.queueEvent(domain.NewPlayerEvent(domain.EventLoversPaired, s.room.ID, id, &domain.LoversPayload{
			PartnerID:   partner.ID,
			PartnerName: partner.Name,
		}))
	}
	s.continueNight()

	return nil
}

// Divine handles the clairvoyant's pick
func (s *RoomSession) Divine(playerID, targetID string) error {
	if err := s.lockOpen(); err != nil {
		return err
	}
	defer s.unlock()

	target, err := s.room.Divine(playerID, targetID)
	if err != nil {
		return err
	}

	s.queueEvent(domain.NewPlayerEvent(domain.EventClairvoyantResult, s.room.ID, playerID, &domain.ClairvoyantResultPayload{
		TargetID: target.ID,
		Name:     target.Name,
		IsWolf:   target.IsWolf(),
	}))
	s.continueNight()

	return nil
}

// WolfVote handles a wolf's vote. The running tally goes to wolves only.
func (s *RoomSession) WolfVote(playerID, targetID string) error {
	if err := s.lockOpen(); err != nil {
		return err
	}
	defer s.unlock()

	tally, err := s.room.CastWolfVote(playerID, targetID)
	if err != nil {
		return err
	}

	for _, wolf := range s.room.LivingWithRole(domain.RoleWolf) {
		s.queueEvent(domain.NewPlayerEvent(domain.EventWolfTally, s.room.ID, wolf.ID, tally))
	}
	if tally.Resolved {
		s.continueNight()
	}

	return nil
}

// HealerDecision handles the healer-poisoner's choice
func (s *RoomSession) HealerDecision(playerID string, heal bool, poisonID string) error {
	if err := s.lockOpen(); err != nil {
		return err
	}
	defer s.unlock()

	result, err := s.room.DecideHealer(playerID, heal, poisonID)
	if err != nil {
		return err
	}

	s.queueEvent(domain.NewPlayerEvent(domain.EventHealerResult, s.room.ID, playerID, result))
	s.continueNight()

	return nil
}

// ReadyForDay records that a player finished reading the announcement
func (s *RoomSession) ReadyForDay(playerID string) error {
	if err := s.lockOpen(); err != nil {
		return err
	}
	defer s.unlock()

	progress, quorum, err := s.room.MarkReady(playerID, domain.PhaseAnnouncement)
	if err != nil {
		return err
	}

	s.queueEvent(domain.NewEvent(domain.EventReadyProgress, s.room.ID, &domain.ReadyPayload{
		Phase:         domain.PhaseAnnouncement,
		ReadyProgress: progress,
	}))
	if quorum {
		s.startDay()
	}

	return nil
}

// DayVote handles a day vote
func (s *RoomSession) DayVote(playerID, targetID string) error {
	if err := s.lockOpen(); err != nil {
		return err
	}
	defer s.unlock()

	progress, err := s.room.CastDayVote(playerID, targetID)
	if err != nil {
		return err
	}

	// Broadcast vote progress (without revealing who voted for whom)
	s.queueEvent(domain.NewEvent(domain.EventDayVoteProgress, s.room.ID, progress))
	if s.room.AllDayVotesIn() {
		s.resolveDay()
	}

	return nil
}

// ReadyForNight records that a player wants the next night to begin
func (s *RoomSession) ReadyForNight(playerID string) error {
	if err := s.lockOpen(); err != nil {
		return err
	}
	defer s.unlock()

	progress, quorum, err := s.room.MarkReady(playerID, domain.PhaseDay)
	if err != nil {
		return err
	}

	s.queueEvent(domain.NewEvent(domain.EventReadyProgress, s.room.ID, &domain.ReadyPayload{
		Phase:         domain.PhaseDay,
		ReadyProgress: progress,
	}))
	if quorum {
		s.startNight()
	}

	return nil
}

// PlayAgain records a player's wish to play another game
func (s *RoomSession) PlayAgain(playerID string) error {
	if err := s.lockOpen(); err != nil {
		return err
	}
	defer s.unlock()

	progress, err := s.room.OptInNextGame(playerID)
	if err != nil {
		return err
	}

	s.queueEvent(domain.NewEvent(domain.EventPlayAgainProgress, s.room.ID, progress))
	s.maybeStartNewRound()

	return nil
}

// PostMortemChat relays a message between eliminated players
func (s *RoomSession) PostMortemChat(playerID, text string) error {
	if err := s.lockOpen(); err != nil {
		return err
	}
	defer s.unlock()

	msg, recipients, err := s.room.PostMortemMessage(playerID, text, s.opts.MaxChatLength)
	if err != nil {
		return err
	}

	for _, id := range recipients {
		s.queueEvent(domain.NewPlayerEvent(domain.EventChatMessage, s.room.ID, id, msg))
	}

	return nil
}

// autoStart starts a lobby that is still full when the autostart delay
// ends (caller must hold lock)
func (s *RoomSession) autoStart() {
	if !s.room.IsFull() {
		s.logger.Debug("autostart skipped, room no longer full", "players", len(s.room.Players))
		return
	}
	s.startGame()
}

// startGame deals roles and schedules the first night (caller must hold lock)
func (s *RoomSession) startGame() {
	if !s.room.CanStart() {
		s.logger.Debug("game start skipped", "players", len(s.room.Players), "phase", s.room.Phase)
		return
	}

	if err := s.room.AssignRoles(s.rng); err != nil {
		s.logger.Error("failed to assign roles", "error", err)
		return
	}

	delay := int(s.opts.Timings.RoleReveal.Seconds())
	for _, p := range s.room.Players {
		s.queueEvent(domain.NewPlayerEvent(domain.EventRoleAssigned, s.room.ID, p.ID, &domain.RoleAssignedPayload{
			Role:         p.Role,
			Teammates:    s.room.Teammates(p.ID),
			DelaySeconds: delay,
		}))
	}
	s.queueRoster()

	s.logger.Info("game started", "players", len(s.room.Players))

	s.schedule(timerRoleReveal, s.opts.Timings.RoleReveal, s.startNight)
}

// startNight begins the next night (caller must hold lock)
func (s *RoomSession) startNight() {
	if err := s.room.BeginNight(); err != nil {
		s.logger.Debug("night start skipped", "phase", s.room.Phase, "error", err)
		return
	}

	s.queueEvent(domain.NewEvent(domain.EventNightStarted, s.room.ID, &domain.NightStartedPayload{
		Night: s.room.NightCount,
	}))
	s.queueRoster()
	s.continueNight()
}

// continueNight prompts the current stage or finalizes a finished night
// (caller must hold lock)
func (s *RoomSession) continueNight() {
	if s.room.NightComplete() {
		s.finalizeNight()
		return
	}

	stage := s.room.NightStage
	s.queueEvent(domain.NewEvent(domain.EventNightStage, s.room.ID, &domain.NightStagePayload{
		Night: s.room.NightCount,
		Stage: stage,
	}))

	for _, actor := range s.room.StageActors() {
		var eventType domain.EventType
		var payload interface{} = &domain.PromptPayload{
			Stage:   stage,
			Targets: s.room.TargetsFor(actor.ID),
		}

		switch stage {
		case domain.StageMatchmaking:
			eventType = domain.EventMatchmakerPrompt
		case domain.StageClairvoyance:
			eventType = domain.EventClairvoyantPrompt
		case domain.StageWolfVote:
			eventType = domain.EventWolfPrompt
		case domain.StageHealerDecision:
			eventType = domain.EventHealerPrompt
			payload = s.room.HealerPrompt(actor.ID)
		}

		s.queueEvent(domain.NewPlayerEvent(eventType, s.room.ID, actor.ID, payload))
	}
}

// finalizeNight applies the night's deaths (caller must hold lock)
func (s *RoomSession) finalizeNight() {
	outcome, err := s.room.FinalizeNight()
	if err != nil {
		s.logger.Error("failed to finalize night", "error", err)
		return
	}

	if len(outcome.Deaths) == 0 {
		s.queueEvent(domain.NewEvent(domain.EventNoDeaths, s.room.ID, &domain.NoDeathsPayload{
			Night: outcome.Night,
		}))
	}
	s.announceDeaths(outcome.Deaths)
}

// startDay opens the day vote (caller must hold lock)
func (s *RoomSession) startDay() {
	if err := s.room.BeginDay(); err != nil {
		s.logger.Debug("day start skipped", "phase", s.room.Phase, "error", err)
		return
	}

	s.queueEvent(domain.NewEvent(domain.EventDayStarted, s.room.ID, &domain.DayStartedPayload{
		Players: s.room.LivingRoster(),
	}))
}

// resolveDay tallies the day vote (caller must hold lock)
func (s *RoomSession) resolveDay() {
	outcome, err := s.room.ResolveDay()
	if err != nil {
		s.logger.Error("failed to resolve day", "error", err)
		return
	}

	s.queueEvent(domain.NewEvent(domain.EventDayResult, s.room.ID, outcome))
	if outcome.Eliminated == "" {
		return
	}

	if s.announceDeaths(outcome.Deaths) {
		return
	}
	s.schedule(timerNextNight, s.opts.Timings.NextNight, s.startNight)
}

// announceDeaths broadcasts deaths and checks for a winner. Victims are told
// privately only if the game goes on. It returns true if the game ended.
func (s *RoomSession) announceDeaths(deaths []domain.Death) bool {
	if len(deaths) > 0 {
		s.queueEvent(domain.NewEvent(domain.EventDeathAnnounced, s.room.ID, &domain.DeathAnnouncedPayload{
			Deaths:  deaths,
			Players: s.room.Roster(),
		}))
	}
	s.queueRoster()

	if s.checkWinner() {
		return true
	}

	for _, d := range deaths {
		s.queueEvent(domain.NewPlayerEvent(domain.EventPlayerEliminated, s.room.ID, d.PlayerID, &domain.EliminatedPayload{
			Cause: d.Cause,
		}))
	}
	s.narrate(deaths)

	return false
}

// checkWinner ends the game if a faction won (caller must hold lock)
func (s *RoomSession) checkWinner() bool {
	winner, over := s.room.CheckWinner()
	if !over {
		return false
	}
	s.endGame(winner)
	return true
}

// endGame runs the end-of-game procedure once (caller must hold lock)
func (s *RoomSession) endGame(winner domain.Faction) {
	if !s.room.EndGame(winner) {
		return
	}

	playAgain := s.room.Rules.PlayAgain != domain.PlayAgainOff
	summary := s.room.Summarize()
	payload := &domain.GameOverPayload{
		Winner:    winner,
		Players:   summary.Players,
		Deaths:    summary.Deaths,
		PlayAgain: playAgain,
	}

	// Sent to each player individually
	for _, p := range s.room.Players {
		s.queueEvent(domain.NewPlayerEvent(domain.EventGameOver, s.room.ID, p.ID, payload))
	}
	s.queueRoster()

	s.logger.Info("game over", "winner", winner, "nights", s.room.NightCount)
	s.record(summary)

	if !playAgain {
		s.schedule(timerGameOver, s.opts.Timings.GameOverTTL, s.expire)
	}
}

// expire closes a finished room (caller must hold lock)
func (s *RoomSession) expire() {
	s.queueEvent(domain.NewEvent(domain.EventRoomClosed, s.room.ID, &domain.RoomClosedPayload{
		Reason: "game over",
	}))
	s.removeRequested = true
}

// maybeStartNewRound resets the room once the play-again quorum is met
// (caller must hold lock)
func (s *RoomSession) maybeStartNewRound() {
	if !s.room.PlayAgainReady() {
		return
	}

	removed, err := s.room.ResetForNextGame()
	if err != nil {
		s.logger.Error("failed to reset room", "error", err)
		return
	}

	for _, p := range removed {
		s.queueEvent(domain.NewPlayerEvent(domain.EventPlayerRemoved, s.room.ID, p.ID, &domain.RoomClosedPayload{
			Reason: "not in next game",
		}))
	}
	s.queueEvent(domain.NewEvent(domain.EventNewGameStarting, s.room.ID, &domain.NewGamePayload{
		DelaySeconds: int(s.opts.Timings.NewRound.Seconds()),
		Players:      s.room.Roster(),
	}))
	s.queueRoster()

	s.logger.Info("new game starting", "players", len(s.room.Players), "removed", len(removed))

	s.schedule(timerNewRound, s.opts.Timings.NewRound, s.startGame)
}

// schedule runs fn under the session lock after delay, unless the room
// changed phase or closed in the meantime (caller must hold lock)
func (s *RoomSession) schedule(name string, delay time.Duration, fn func()) {
	if t, ok := s.timers[name]; ok {
		t.Stop()
	}

	epoch := s.room.Epoch
	s.timers[name] = s.opts.Scheduler.AfterFunc(delay, func() {
		s.mu.Lock()
		defer s.unlock()

		if s.closed || s.room.Epoch != epoch {
			s.logger.Debug("stale timer ignored", "timer", name, "epoch", epoch)
			return
		}
		delete(s.timers, name)
		fn()
	})
}

// narrate asks the narrator for a story about the deaths without holding
// the lock (caller must hold lock)
func (s *RoomSession) narrate(deaths []domain.Death) {
	if s.opts.Narrator == nil || len(deaths) == 0 {
		return
	}

	history := make([]domain.Death, len(s.room.DeathLog))
	copy(history, s.room.DeathLog)
	fresh := make([]domain.Death, len(deaths))
	copy(fresh, deaths)

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), s.opts.NarratorTimeout)
		defer cancel()

		text, err := s.opts.Narrator.Narrate(ctx, fresh, history)
		if err != nil {
			s.logger.Warn("narrator failed", "error", err)
			return
		}
		if text == "" {
			return
		}

		s.mu.Lock()
		defer s.mu.Unlock()
		if s.closed {
			return
		}
		s.queueEvent(domain.NewEvent(domain.EventStory, s.room.ID, &domain.StoryPayload{Text: text}))
	}()
}

// record archives a finished game in the background
func (s *RoomSession) record(summary domain.GameSummary) {
	if s.opts.Recorder == nil {
		return
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), recordTimeout)
		defer cancel()

		if err := s.opts.Recorder.RecordGame(ctx, summary); err != nil {
			s.logger.Error("failed to record game", "error", err)
		}
	}()
}

// queueRoster broadcasts the public roster (caller must hold lock)
func (s *RoomSession) queueRoster() {
	s.queueEvent(domain.NewEvent(domain.EventRosterUpdate, s.room.ID, &domain.RosterPayload{
		Phase:      s.room.Phase,
		Players:    s.room.Roster(),
		Capacity:   s.room.Config.Capacity,
		MinPlayers: s.room.MinPlayers(),
	}))
}

// queueEvent adds an event to the broadcast queue (caller must hold lock)
func (s *RoomSession) queueEvent(event *domain.GameEvent) {
	select {
	case s.events <- event:
	default:
		s.logger.Warn("event queue full, dropping event", "type", event.Type)
	}
}

// eventLoop processes events and broadcasts to clients until the session
// is closed and the queue is drained
func (s *RoomSession) eventLoop() {
	defer close(s.drained)
	for event := range s.events {
		s.broadcastEvent(event)
	}
}

// broadcastEvent sends an event to appropriate clients
func (s *RoomSession) broadcastEvent(event *domain.GameEvent) {
	s.clientsMu.RLock()
	var targets []ClientConnection
	if event.PlayerID != "" {
		// If player-specific, send only to that player
		if client, ok := s.clients[event.PlayerID]; ok {
			targets = append(targets, client)
		}
	} else {
		for _, client := range s.clients {
			targets = append(targets, client)
		}
	}
	s.clientsMu.RUnlock()

	for _, client := range targets {
		if err := client.Send(event); err != nil {
			s.logger.Debug("failed to send to client", "playerID", client.GetPlayerID(), "error", err)
		}
	}

	// Both notices end the recipients' membership
	if event.Type == domain.EventRoomClosed || event.Type == domain.EventPlayerRemoved {
		for _, client := range targets {
			s.detachClient(client)
		}
	}
}

// Close shuts down the session. Pending timers are stopped and queued
// events are still delivered.
func (s *RoomSession) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}
	s.closed = true

	for name, t := range s.timers {
		t.Stop()
		delete(s.timers, name)
	}
	close(s.events)
}

// Drained is closed once every queued event has been delivered after Close
func (s *RoomSession) Drained() <-chan struct{} {
	return s.drained
}
