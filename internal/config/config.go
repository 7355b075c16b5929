package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Config contains all runtime settings for the family chat service.
type Config struct {
	BindAddr         string
	ShutdownTimeout  time.Duration
	MetricsNamespace string

	AllowAnyOrigin bool

	// Family data lives under DataDir unless the individual paths override it.
	DataDir    string
	FamilyFile string
	KeyFile    string
	SQLitePath string

	// DATABASE_URL switches the conversation log from sqlite to postgres.
	DatabaseURL string

	CompletionMode    string
	OllamaURL         string
	OllamaModel       string
	CompletionTimeout time.Duration

	ResponseCacheTTL time.Duration

	MaxMessageChars          int
	SessionInactivityTimeout time.Duration
}

// Load reads environment variables and applies safe defaults.
func Load() (Config, error) {
	cfg := Config{
		BindAddr:                 envOrDefault("APP_BIND_ADDR", ":8080"),
		MetricsNamespace:         envOrDefault("APP_METRICS_NAMESPACE", "adinav"),
		AllowAnyOrigin:           false,
		DataDir:                  envOrDefault("FAMILY_DATA_DIR", "family_data"),
		FamilyFile:               stringsTrimSpace("FAMILY_FILE"),
		KeyFile:                  stringsTrimSpace("FAMILY_KEY_FILE"),
		SQLitePath:               stringsTrimSpace("FAMILY_SQLITE_PATH"),
		DatabaseURL:              stringsTrimSpace("DATABASE_URL"),
		CompletionMode:           envOrDefault("COMPLETION_MODE", "auto"),
		OllamaURL:                envOrDefault("OLLAMA_URL", "http://localhost:11434"),
		OllamaModel:              envOrDefault("OLLAMA_MODEL", "gpt-oss:20b"),
		CompletionTimeout:        30 * time.Second,
		ResponseCacheTTL:         5 * time.Minute,
		MaxMessageChars:          1000,
		SessionInactivityTimeout: 30 * time.Minute,
		ShutdownTimeout:          15 * time.Second,
	}

	var err error
	cfg.ShutdownTimeout, err = durationFromEnv("APP_SHUTDOWN_TIMEOUT", cfg.ShutdownTimeout)
	if err != nil {
		return Config{}, err
	}
	cfg.CompletionTimeout, err = durationFromEnv("COMPLETION_TIMEOUT", cfg.CompletionTimeout)
	if err != nil {
		return Config{}, err
	}
	cfg.ResponseCacheTTL, err = durationFromEnv("RESPONSE_CACHE_TTL", cfg.ResponseCacheTTL)
	if err != nil {
		return Config{}, err
	}
	cfg.SessionInactivityTimeout, err = durationFromEnv("APP_SESSION_INACTIVITY_TIMEOUT", cfg.SessionInactivityTimeout)
	if err != nil {
		return Config{}, err
	}
	cfg.MaxMessageChars, err = intFromEnv("APP_MAX_MESSAGE_CHARS", cfg.MaxMessageChars)
	if err != nil {
		return Config{}, err
	}
	cfg.AllowAnyOrigin, err = boolFromEnv("APP_ALLOW_ANY_ORIGIN", cfg.AllowAnyOrigin)
	if err != nil {
		return Config{}, err
	}

	if cfg.FamilyFile == "" {
		cfg.FamilyFile = filepath.Join(cfg.DataDir, "family_members.json")
	}
	if cfg.KeyFile == "" {
		cfg.KeyFile = filepath.Join(cfg.DataDir, "encryption.key")
	}
	if cfg.SQLitePath == "" {
		cfg.SQLitePath = filepath.Join(cfg.DataDir, "secure_conversations.db")
	}

	if cfg.CompletionTimeout <= 0 {
		return Config{}, fmt.Errorf("COMPLETION_TIMEOUT must be positive")
	}
	if cfg.ResponseCacheTTL <= 0 {
		return Config{}, fmt.Errorf("RESPONSE_CACHE_TTL must be positive")
	}
	if cfg.SessionInactivityTimeout < 5*time.Second {
		return Config{}, fmt.Errorf("APP_SESSION_INACTIVITY_TIMEOUT must be at least 5s")
	}
	if cfg.MaxMessageChars <= 0 {
		return Config{}, fmt.Errorf("APP_MAX_MESSAGE_CHARS must be positive")
	}

	return cfg, nil
}

func envOrDefault(key, fallback string) string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return v
}

func stringsTrimSpace(key string) string {
	return strings.TrimSpace(os.Getenv(key))
}

func durationFromEnv(key string, fallback time.Duration) (time.Duration, error) {
	v := stringsTrimSpace(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s parse error: %w", key, err)
	}
	return d, nil
}

func intFromEnv(key string, fallback int) (int, error) {
	v := stringsTrimSpace(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s parse error: %w", key, err)
	}
	return n, nil
}

func boolFromEnv(key string, fallback bool) (bool, error) {
	v := strings.ToLower(stringsTrimSpace(key))
	if v == "" {
		return fallback, nil
	}
	switch v {
	case "1", "true", "t", "yes", "y", "on":
		return true, nil
	case "0", "false", "f", "no", "n", "off":
		return false, nil
	default:
		return false, fmt.Errorf("%s parse error: expected bool", key)
	}
}
