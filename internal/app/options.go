package app

import (
	"context"
	"crypto/rand"
	"encoding/binary"
	mathrand "math/rand"
	"time"

	"werewolves/internal/domain"
)

// Recorder archives finished games
type Recorder interface {
	RecordGame(ctx context.Context, summary domain.GameSummary) error
}

// Narrator turns fresh deaths into a short story for the room
type Narrator interface {
	Narrate(ctx context.Context, deaths []domain.Death, history []domain.Death) (string, error)
}

// Timings are the fixed delays of the game flow
type Timings struct {
	AutoStart   time.Duration // room full -> roles dealt
	RoleReveal  time.Duration // roles dealt -> first night
	NextNight   time.Duration // day elimination -> next night
	NewRound    time.Duration // play-again quorum -> roles dealt
	GameOverTTL time.Duration // game over -> room deleted, when play again is off
}

// DefaultTimings returns the default delays
func DefaultTimings() Timings {
	return Timings{
		AutoStart:   3 * time.Second,
		RoleReveal:  10 * time.Second,
		NextNight:   5 * time.Second,
		NewRound:    3 * time.Second,
		GameOverTTL: 60 * time.Second,
	}
}

// Options configures every room created by a hub
type Options struct {
	Rules           domain.Rules
	Timings         Timings
	MaxChatLength   int
	NarratorTimeout time.Duration

	Scheduler Scheduler
	Recorder  Recorder // optional
	Narrator  Narrator // optional
	NewRand   func() domain.RandomSource
}

func (o Options) withDefaults() Options {
	if o.Rules == (domain.Rules{}) {
		o.Rules = domain.DefaultRules()
	}
	if o.Timings == (Timings{}) {
		o.Timings = DefaultTimings()
	}
	if o.MaxChatLength == 0 {
		o.MaxChatLength = 200
	}
	if o.NarratorTimeout == 0 {
		o.NarratorTimeout = 20 * time.Second
	}
	if o.Scheduler == nil {
		o.Scheduler = RealScheduler{}
	}
	if o.NewRand == nil {
		o.NewRand = NewSeededRand
	}
	return o
}

// NewSeededRand returns a math/rand generator seeded from crypto/rand
func NewSeededRand() domain.RandomSource {
	var seed [8]byte
	if _, err := rand.Read(seed[:]); err != nil {
		return mathrand.New(mathrand.NewSource(time.Now().UnixNano()))
	}
	return mathrand.New(mathrand.NewSource(int64(binary.LittleEndian.Uint64(seed[:]))))
}
