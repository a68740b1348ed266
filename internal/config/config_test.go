package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"werewolves/internal/domain"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Server.Port != "8080" || cfg.GetAddr() != "0.0.0.0:8080" {
		t.Errorf("addr = %s", cfg.GetAddr())
	}
	if cfg.Game.MinPlayers != 4 || cfg.Game.RoleRevealDelay != 10*time.Second {
		t.Errorf("game = %+v", cfg.Game)
	}
	if cfg.Narrator.Provider != "builtin" {
		t.Errorf("narrator provider = %q", cfg.Narrator.Provider)
	}
	if !cfg.IsDevelopment() {
		t.Error("expected development by default")
	}

	rules := cfg.Rules()
	if rules.PlayAgain != domain.PlayAgainAll || rules.MaxPlayers != 20 {
		t.Errorf("rules = %+v", rules)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("PORT", "9999")
	t.Setenv("NEXT_NIGHT_DELAY", "250ms")
	t.Setenv("PLAY_AGAIN_POLICY", "survivors")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Port != "9999" {
		t.Errorf("port = %s", cfg.Server.Port)
	}
	if cfg.Game.NextNightDelay != 250*time.Millisecond {
		t.Errorf("next night delay = %s", cfg.Game.NextNightDelay)
	}
	if cfg.Rules().PlayAgain != domain.PlayAgainSurvivors {
		t.Errorf("policy = %s", cfg.Rules().PlayAgain)
	}
}

func TestLoadParseError(t *testing.T) {
	t.Setenv("MIN_PLAYERS", "many")

	_, err := Load()
	if err == nil || !strings.Contains(err.Error(), "parse env:") {
		t.Fatalf("expected parse env error, got %v", err)
	}
}

func TestLoadRejectsUnknownPolicy(t *testing.T) {
	t.Setenv("PLAY_AGAIN_POLICY", "sometimes")

	if _, err := Load(); err == nil {
		t.Fatal("expected error")
	}
}

func TestLoadDotenv(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, ".env")
	if err := os.WriteFile(file, []byte("LOG_FORMAT=json\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("LOG_FORMAT", "")
	os.Unsetenv("LOG_FORMAT")

	cfg, err := Load(filepath.Join(dir, "missing.env"), file)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Logging.Format != "json" {
		t.Errorf("format = %q", cfg.Logging.Format)
	}
}
