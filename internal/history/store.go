// Package history archives finished games in sqlite.
package history

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"

	"werewolves/internal/domain"
)

const schema = `
CREATE TABLE IF NOT EXISTS game (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	room_id TEXT NOT NULL,
	winner TEXT NOT NULL,
	nights INTEGER NOT NULL DEFAULT 0,
	started_at INTEGER NOT NULL,
	ended_at INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS game_player (
	game_id INTEGER NOT NULL,
	position INTEGER NOT NULL,
	player_id TEXT NOT NULL,
	name TEXT NOT NULL,
	role TEXT NOT NULL,
	is_alive INTEGER NOT NULL,
	won INTEGER NOT NULL,
	lover_id TEXT NOT NULL DEFAULT '',
	FOREIGN KEY (game_id) REFERENCES game(id),
	UNIQUE(game_id, position)
);
CREATE TABLE IF NOT EXISTS game_death (
	game_id INTEGER NOT NULL,
	position INTEGER NOT NULL,
	player_id TEXT NOT NULL,
	name TEXT NOT NULL,
	role TEXT NOT NULL,
	cause TEXT NOT NULL,
	night INTEGER NOT NULL,
	died_at INTEGER NOT NULL,
	FOREIGN KEY (game_id) REFERENCES game(id),
	UNIQUE(game_id, position)
);
CREATE INDEX IF NOT EXISTS game_ended_at ON game(ended_at);
`

// DefaultLimit is the number of games Recent returns when asked for none
const DefaultLimit = 20

// Store is the finished-game archive
type Store struct {
	db     *sqlx.DB
	logger *slog.Logger
}

// Game is an archived game with its final roster and death log
type Game struct {
	ID        int64                `json:"id"`
	RoomID    string               `json:"roomId"`
	Winner    domain.Faction       `json:"winner"`
	Nights    int                  `json:"nights"`
	StartedAt time.Time            `json:"startedAt"`
	EndedAt   time.Time            `json:"endedAt"`
	Players   []domain.FinalPlayer `json:"players"`
	Deaths    []domain.Death       `json:"deaths"`
}

type gameRow struct {
	ID        int64  `db:"id"`
	RoomID    string `db:"room_id"`
	Winner    string `db:"winner"`
	Nights    int    `db:"nights"`
	StartedAt int64  `db:"started_at"`
	EndedAt   int64  `db:"ended_at"`
}

type playerRow struct {
	GameID   int64  `db:"game_id"`
	Position int    `db:"position"`
	PlayerID string `db:"player_id"`
	Name     string `db:"name"`
	Role     string `db:"role"`
	IsAlive  bool   `db:"is_alive"`
	Won      bool   `db:"won"`
	LoverID  string `db:"lover_id"`
}

type deathRow struct {
	GameID   int64  `db:"game_id"`
	Position int    `db:"position"`
	PlayerID string `db:"player_id"`
	Name     string `db:"name"`
	Role     string `db:"role"`
	Cause    string `db:"cause"`
	Night    int    `db:"night"`
	DiedAt   int64  `db:"died_at"`
}

// Open connects to the sqlite database and creates the schema
func Open(dsn string, logger *slog.Logger) (*Store, error) {
	db, err := sqlx.Connect("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("connect history db: %w", err)
	}
	// A single connection keeps a shared in-memory database alive.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("init history schema: %w", err)
	}

	return &Store{db: db, logger: logger}, nil
}

// Close closes the database
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping checks the database connection
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// RecordGame stores a finished game
func (s *Store) RecordGame(ctx context.Context, summary domain.GameSummary) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.NamedExecContext(ctx, `
		INSERT INTO game (room_id, winner, nights, started_at, ended_at)
		VALUES (:room_id, :winner, :nights, :started_at, :ended_at)`,
		gameRow{
			RoomID:    summary.RoomID,
			Winner:    string(summary.Winner),
			Nights:    summary.Nights,
			StartedAt: toMillis(summary.StartedAt),
			EndedAt:   toMillis(summary.EndedAt),
		})
	if err != nil {
		return fmt.Errorf("insert game: %w", err)
	}
	gameID, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("game id: %w", err)
	}

	for i, p := range summary.Players {
		if _, err := tx.NamedExecContext(ctx, `
			INSERT INTO game_player (game_id, position, player_id, name, role, is_alive, won, lover_id)
			VALUES (:game_id, :position, :player_id, :name, :role, :is_alive, :won, :lover_id)`,
			playerRow{
				GameID:   gameID,
				Position: i,
				PlayerID: p.ID,
				Name:     p.Name,
				Role:     string(p.Role),
				IsAlive:  p.Alive,
				Won:      p.Won,
				LoverID:  p.LoverID,
			}); err != nil {
			return fmt.Errorf("insert player %s: %w", p.ID, err)
		}
	}

	for i, d := range summary.Deaths {
		if _, err := tx.NamedExecContext(ctx, `
			INSERT INTO game_death (game_id, position, player_id, name, role, cause, night, died_at)
			VALUES (:game_id, :position, :player_id, :name, :role, :cause, :night, :died_at)`,
			deathRow{
				GameID:   gameID,
				Position: i,
				PlayerID: d.PlayerID,
				Name:     d.Name,
				Role:     string(d.Role),
				Cause:    string(d.Cause),
				Night:    d.Night,
				DiedAt:   toMillis(d.Timestamp),
			}); err != nil {
			return fmt.Errorf("insert death %s: %w", d.PlayerID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}

	s.logger.Info("game recorded", "room", summary.RoomID, "gameID", gameID, "winner", summary.Winner)
	return nil
}

// Recent returns the most recently finished games, newest first
func (s *Store) Recent(ctx context.Context, limit int) ([]Game, error) {
	if limit <= 0 {
		limit = DefaultLimit
	}

	var rows []gameRow
	if err := s.db.SelectContext(ctx, &rows, `
		SELECT id, room_id, winner, nights, started_at, ended_at
		FROM game
		ORDER BY ended_at DESC, id DESC
		LIMIT ?`, limit); err != nil {
		return nil, fmt.Errorf("select games: %w", err)
	}

	games := make([]Game, 0, len(rows))
	for _, row := range rows {
		game, err := s.load(ctx, row)
		if err != nil {
			return nil, err
		}
		games = append(games, game)
	}
	return games, nil
}

// load attaches the roster and death log to a game row.
func (s *Store) load(ctx context.Context, row gameRow) (Game, error) {
	game := Game{
		ID:        row.ID,
		RoomID:    row.RoomID,
		Winner:    domain.Faction(row.Winner),
		Nights:    row.Nights,
		StartedAt: fromMillis(row.StartedAt),
		EndedAt:   fromMillis(row.EndedAt),
		Players:   make([]domain.FinalPlayer, 0),
		Deaths:    make([]domain.Death, 0),
	}

	var players []playerRow
	if err := s.db.SelectContext(ctx, &players, `
		SELECT game_id, position, player_id, name, role, is_alive, won, lover_id
		FROM game_player WHERE game_id = ? ORDER BY position`, row.ID); err != nil {
		return Game{}, fmt.Errorf("select players of game %d: %w", row.ID, err)
	}
	for _, p := range players {
		game.Players = append(game.Players, domain.FinalPlayer{
			ID:      p.PlayerID,
			Name:    p.Name,
			Role:    domain.Role(p.Role),
			Alive:   p.IsAlive,
			Won:     p.Won,
			LoverID: p.LoverID,
		})
	}

	var deaths []deathRow
	if err := s.db.SelectContext(ctx, &deaths, `
		SELECT game_id, position, player_id, name, role, cause, night, died_at
		FROM game_death WHERE game_id = ? ORDER BY position`, row.ID); err != nil {
		return Game{}, fmt.Errorf("select deaths of game %d: %w", row.ID, err)
	}
	for _, d := range deaths {
		game.Deaths = append(game.Deaths, domain.Death{
			PlayerID:  d.PlayerID,
			Name:      d.Name,
			Role:      domain.Role(d.Role),
			Cause:     domain.DeathCause(d.Cause),
			Night:     d.Night,
			Timestamp: fromMillis(d.DiedAt),
		})
	}

	return game, nil
}

// Count returns the number of archived games
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM game`); err != nil {
		return 0, fmt.Errorf("count games: %w", err)
	}
	return n, nil
}

func toMillis(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixMilli()
}

func fromMillis(ms int64) time.Time {
	if ms == 0 {
		return time.Time{}
	}
	return time.UnixMilli(ms).UTC()
}
