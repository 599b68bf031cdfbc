// Package config provides application configuration.
package config

import (
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Overlap policies for a chat submit that arrives while another is in flight.
const (
	OverlapAllow  = "allow"
	OverlapIgnore = "ignore"
)

// Config holds all application configuration.
type Config struct {
	ChatServiceURL string        `yaml:"chat_service_url"`
	Port           string        `yaml:"port"`
	SessionDBPath  string        `yaml:"session_db_path"`
	SessionTTL     time.Duration `yaml:"session_ttl"`
	BotName        string        `yaml:"bot_name"`
	RedirectPath   string        `yaml:"redirect_path"`
	RequestTimeout time.Duration `yaml:"request_timeout"` // 0 = no deadline
	OverlapPolicy  string        `yaml:"overlap_policy"`
	AllowedOrigins []string      `yaml:"allowed_origins"`
	Log            LogConfig     `yaml:"log"`
}

// LogConfig controls the slog handler built at startup.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // "json" or "text"
}

// Default returns the configuration used when nothing is set.
func Default() *Config {
	return &Config{
		ChatServiceURL: "http://localhost:5000",
		Port:           "8080",
		SessionDBPath:  "./data/session.db",
		SessionTTL:     24 * time.Hour,
		BotName:        "Davila",
		RedirectPath:   "/",
		OverlapPolicy:  OverlapAllow,
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	return LoadFile("")
}

// LoadFile reads an optional YAML file and then applies environment overrides.
// An empty path skips the file.
func LoadFile(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config file %s: %w", path, err)
		}
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

func (c *Config) applyEnv() {
	c.ChatServiceURL = getEnv("CHAT_SERVICE_URL", c.ChatServiceURL)
	c.Port = getEnv("PORT", c.Port)
	c.SessionDBPath = getEnv("SESSION_DB_PATH", c.SessionDBPath)
	c.SessionTTL = getEnvDuration("SESSION_TTL", c.SessionTTL)
	c.BotName = getEnv("BOT_NAME", c.BotName)
	c.RedirectPath = getEnv("REDIRECT_PATH", c.RedirectPath)
	c.RequestTimeout = getEnvDuration("REQUEST_TIMEOUT", c.RequestTimeout)
	c.OverlapPolicy = strings.ToLower(strings.TrimSpace(getEnv("OVERLAP_POLICY", c.OverlapPolicy)))
	c.AllowedOrigins = getEnvList("ALLOWED_ORIGINS", c.AllowedOrigins)
	c.Log.Level = getEnv("LOG_LEVEL", c.Log.Level)
	c.Log.Format = getEnv("LOG_FORMAT", c.Log.Format)
}

// Validate checks that all required configuration fields are set.
func (c *Config) Validate() error {
	if c.ChatServiceURL == "" {
		return fmt.Errorf("CHAT_SERVICE_URL cannot be empty")
	}
	u, err := url.Parse(c.ChatServiceURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("CHAT_SERVICE_URL must be an absolute URL, got %q", c.ChatServiceURL)
	}
	if c.Port == "" {
		return fmt.Errorf("PORT cannot be empty")
	}
	if c.SessionDBPath == "" {
		return fmt.Errorf("SESSION_DB_PATH cannot be empty")
	}
	if c.SessionTTL <= 0 {
		return fmt.Errorf("SESSION_TTL must be > 0")
	}
	if strings.TrimSpace(c.BotName) == "" {
		return fmt.Errorf("BOT_NAME cannot be empty")
	}
	if !strings.HasPrefix(c.RedirectPath, "/") {
		return fmt.Errorf("REDIRECT_PATH must start with /")
	}
	if c.RequestTimeout < 0 {
		return fmt.Errorf("REQUEST_TIMEOUT must be >= 0")
	}
	switch c.OverlapPolicy {
	case OverlapAllow, OverlapIgnore:
	default:
		return fmt.Errorf("OVERLAP_POLICY must be %q or %q, got %q", OverlapAllow, OverlapIgnore, c.OverlapPolicy)
	}
	switch c.Log.Format {
	case "json", "text":
	default:
		return fmt.Errorf("LOG_FORMAT must be json or text, got %q", c.Log.Format)
	}
	return nil
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return n
}

// getEnvDuration accepts Go durations ("30s") or bare seconds ("30").
func getEnvDuration(key string, fallback time.Duration) time.Duration {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	value = strings.TrimSpace(value)
	if d, err := time.ParseDuration(value); err == nil {
		return d
	}
	if secs := getEnvInt(key, -1); secs >= 0 {
		return time.Duration(secs) * time.Second
	}
	return fallback
}

func getEnvList(key string, fallback []string) []string {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// SlogLevel maps the configured level name onto a slog level.
// Unknown names fall back to info.
func (l LogConfig) SlogLevel() slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(l.Level))); err != nil {
		return slog.LevelInfo
	}
	return level
}
