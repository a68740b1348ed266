package config

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	"werewolves/internal/domain"
)

// Config holds all application configuration
type Config struct {
	Server    ServerConfig
	Game      GameConfig
	Logging   LoggingConfig
	History   HistoryConfig
	Narrator  NarratorConfig
	Telemetry TelemetryConfig
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	Port string `env:"PORT" envDefault:"8080"`
	Host string `env:"HOST" envDefault:"0.0.0.0"`
	Env  string `env:"ENV" envDefault:"development"` // "development" or "production"
}

// GameConfig holds game-related configuration
type GameConfig struct {
	MinPlayers      int           `env:"MIN_PLAYERS" envDefault:"4"`
	MaxPlayers      int           `env:"MAX_PLAYERS" envDefault:"20"`
	MaxNameLength   int           `env:"MAX_NAME_LENGTH" envDefault:"20"`
	MaxChatLength   int           `env:"MAX_CHAT_LENGTH" envDefault:"200"`
	AutoStartDelay  time.Duration `env:"AUTO_START_DELAY" envDefault:"3s"`
	RoleRevealDelay time.Duration `env:"ROLE_REVEAL_DELAY" envDefault:"10s"`
	NextNightDelay  time.Duration `env:"NEXT_NIGHT_DELAY" envDefault:"5s"`
	NewRoundDelay   time.Duration `env:"NEW_ROUND_DELAY" envDefault:"3s"`
	GameOverTTL     time.Duration `env:"GAME_OVER_TTL" envDefault:"60s"`
	PlayAgainPolicy string        `env:"PLAY_AGAIN_POLICY" envDefault:"all"` // "all", "survivors" or "off"
}

// LoggingConfig holds logging-related configuration
type LoggingConfig struct {
	Level  string `env:"LOG_LEVEL" envDefault:"info"`
	Format string `env:"LOG_FORMAT" envDefault:"text"` // "json" or "text"
}

// HistoryConfig holds the finished-game archive settings
type HistoryConfig struct {
	Enabled bool   `env:"HISTORY_ENABLED" envDefault:"true"`
	DSN     string `env:"HISTORY_DSN" envDefault:"file::memory:?cache=shared"`
}

// NarratorConfig selects the storyteller that comments on deaths
type NarratorConfig struct {
	Provider    string        `env:"NARRATOR_PROVIDER" envDefault:"builtin"` // builtin, none, ollama, openai, claude, gemini, openai-compatible
	Model       string        `env:"NARRATOR_MODEL"`
	URL         string        `env:"NARRATOR_URL"`
	APIKey      string        `env:"NARRATOR_API_KEY"`
	Temperature float64       `env:"NARRATOR_TEMPERATURE" envDefault:"0.8"`
	Timeout     time.Duration `env:"NARRATOR_TIMEOUT" envDefault:"20s"`
}

// TelemetryConfig holds OpenTelemetry settings. Tracing is off without an
// endpoint.
type TelemetryConfig struct {
	Endpoint    string `env:"OTEL_ENDPOINT"`
	ServiceName string `env:"OTEL_SERVICE_NAME" envDefault:"werewolves"`
}

// Load reads optional dotenv files and then parses the environment. Missing
// dotenv files are ignored.
func Load(dotenvFiles ...string) (*Config, error) {
	for _, file := range dotenvFiles {
		if err := godotenv.Load(file); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("load %s: %w", file, err)
		}
	}

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects settings the game cannot run with
func (c *Config) Validate() error {
	if c.Game.MinPlayers < 3 {
		return fmt.Errorf("MIN_PLAYERS must be at least 3, got %d", c.Game.MinPlayers)
	}
	if c.Game.MaxPlayers < c.Game.MinPlayers {
		return fmt.Errorf("MAX_PLAYERS (%d) is below MIN_PLAYERS (%d)", c.Game.MaxPlayers, c.Game.MinPlayers)
	}
	switch domain.PlayAgainPolicy(c.Game.PlayAgainPolicy) {
	case domain.PlayAgainAll, domain.PlayAgainSurvivors, domain.PlayAgainOff:
	default:
		return fmt.Errorf("unknown PLAY_AGAIN_POLICY %q", c.Game.PlayAgainPolicy)
	}
	return nil
}

// Rules converts the game settings into room rules
func (c *Config) Rules() domain.Rules {
	return domain.Rules{
		MinPlayers:    c.Game.MinPlayers,
		MaxPlayers:    c.Game.MaxPlayers,
		MaxNameLength: c.Game.MaxNameLength,
		PlayAgain:     domain.PlayAgainPolicy(c.Game.PlayAgainPolicy),
	}
}

// IsDevelopment returns true if running in development mode
func (c *Config) IsDevelopment() bool {
	return c.Server.Env == "development"
}

// IsProduction returns true if running in production mode
func (c *Config) IsProduction() bool {
	return c.Server.Env == "production"
}

// GetAddr returns the server address in host:port format
func (c *Config) GetAddr() string {
	return c.Server.Host + ":" + c.Server.Port
}
