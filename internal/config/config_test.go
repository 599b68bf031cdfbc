package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.BotName != "Davila" {
		t.Errorf("expected default bot name Davila, got %q", cfg.BotName)
	}
	if cfg.RedirectPath != "/" {
		t.Errorf("expected default redirect path /, got %q", cfg.RedirectPath)
	}
	if cfg.RequestTimeout != 0 {
		t.Errorf("expected no request timeout by default, got %v", cfg.RequestTimeout)
	}
	if cfg.OverlapPolicy != OverlapAllow {
		t.Errorf("expected overlap policy allow, got %q", cfg.OverlapPolicy)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("CHAT_SERVICE_URL", "http://chat.internal:9000")
	t.Setenv("REQUEST_TIMEOUT", "15")
	t.Setenv("SESSION_TTL", "2h")
	t.Setenv("OVERLAP_POLICY", " IGNORE ")
	t.Setenv("ALLOWED_ORIGINS", "example.com, , chat.example.com")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.ChatServiceURL != "http://chat.internal:9000" {
		t.Errorf("unexpected chat service url %q", cfg.ChatServiceURL)
	}
	if cfg.RequestTimeout != 15*time.Second {
		t.Errorf("expected bare seconds to parse, got %v", cfg.RequestTimeout)
	}
	if cfg.SessionTTL != 2*time.Hour {
		t.Errorf("expected 2h ttl, got %v", cfg.SessionTTL)
	}
	if cfg.OverlapPolicy != OverlapIgnore {
		t.Errorf("expected normalized ignore policy, got %q", cfg.OverlapPolicy)
	}
	if len(cfg.AllowedOrigins) != 2 || cfg.AllowedOrigins[1] != "chat.example.com" {
		t.Errorf("unexpected allowed origins %v", cfg.AllowedOrigins)
	}
}

func TestLoadFileThenEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "chatwidget.yaml")
	body := "bot_name: Robo\nport: \"9090\"\nrequest_timeout: 30s\nlog:\n  format: json\n"
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("PORT", "7070")

	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile failed: %v", err)
	}
	if cfg.BotName != "Robo" {
		t.Errorf("expected bot name from file, got %q", cfg.BotName)
	}
	if cfg.Port != "7070" {
		t.Errorf("expected env to override file port, got %q", cfg.Port)
	}
	if cfg.RequestTimeout != 30*time.Second {
		t.Errorf("expected 30s timeout from file, got %v", cfg.RequestTimeout)
	}
	if cfg.Log.Format != "json" {
		t.Errorf("expected json log format, got %q", cfg.Log.Format)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	cases := map[string]func(c *Config){
		"relative url":   func(c *Config) { c.ChatServiceURL = "/api" },
		"empty port":     func(c *Config) { c.Port = "" },
		"blank bot name": func(c *Config) { c.BotName = "  " },
		"redirect path":  func(c *Config) { c.RedirectPath = "login" },
		"overlap policy": func(c *Config) { c.OverlapPolicy = "queue" },
		"negative ttl":   func(c *Config) { c.SessionTTL = -time.Second },
		"log format":     func(c *Config) { c.Log.Format = "xml" },
	}
	for name, mutate := range cases {
		cfg := Default()
		mutate(cfg)
		if err := cfg.Validate(); err == nil {
			t.Errorf("%s: expected validation error", name)
		}
	}
}

func TestLoadReportsInvalidEnv(t *testing.T) {
	t.Setenv("OVERLAP_POLICY", "queue")
	_, err := Load()
	if err == nil || !strings.Contains(err.Error(), "OVERLAP_POLICY") {
		t.Fatalf("expected OVERLAP_POLICY error, got %v", err)
	}
}

func TestSlogLevel(t *testing.T) {
	if got := (LogConfig{Level: "debug"}).SlogLevel(); got != slog.LevelDebug {
		t.Errorf("expected debug, got %v", got)
	}
	if got := (LogConfig{Level: "nonsense"}).SlogLevel(); got != slog.LevelInfo {
		t.Errorf("expected info fallback, got %v", got)
	}
}
