package config

import (
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type Config struct {
	HTTPAddr    string        `env:"HTTP_ADDR" envDefault:":8090"`
	ReadTimeout time.Duration `env:"HTTP_READ_TIMEOUT" envDefault:"15s"`
	// 0 = no write deadline; the SSE stream needs the connection open
	// indefinitely.
	WriteTimeout time.Duration `env:"HTTP_WRITE_TIMEOUT" envDefault:"0s"`
	IdleTimeout  time.Duration `env:"HTTP_IDLE_TIMEOUT" envDefault:"120s"`

	AuthToken string `env:"AUTH_TOKEN"`
	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`

	// Settings persistence: "file" or "postgres".
	SettingsBackend string `env:"SETTINGS_BACKEND" envDefault:"file"`
	SettingsFile    string `env:"SETTINGS_FILE" envDefault:"./settings.json"`
	DatabaseURL     string `env:"DATABASE_URL"`

	MaxUploadBytes int64         `env:"MAX_UPLOAD_BYTES" envDefault:"33554432"` // 32 MiB
	RequestTimeout time.Duration `env:"STT_REQUEST_TIMEOUT" envDefault:"60s"`
	EventRingSize  int           `env:"EVENT_RING_SIZE" envDefault:"256"`

	// Default provider credentials/models, used until persisted settings
	// override them.
	GeminiAPIKey    string `env:"GEMINI_API_KEY"`
	GeminiModel     string `env:"GEMINI_MODEL"`
	WhisperAPIKey   string `env:"WHISPER_API_KEY"`
	WhisperEndpoint string `env:"WHISPER_ENDPOINT"`
	WhisperModel    string `env:"WHISPER_MODEL"`
}

// Overrides holds CLI flag values that take priority over env vars.
type Overrides struct {
	EnvFile         string
	HTTPAddr        string
	LogLevel        string
	SettingsBackend string
	SettingsFile    string
	DatabaseURL     string
}

// Load reads configuration from .env file, environment variables, and
// CLI overrides. Priority: CLI flags > environment variables > .env file
// > struct defaults.
func Load(overrides Overrides) (*Config, error) {
	// Load .env file (silent if missing)
	envFile := overrides.EnvFile
	if envFile == "" {
		envFile = ".env"
	}
	if _, err := os.Stat(envFile); err == nil {
		_ = godotenv.Load(envFile)
	}

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}

	// Apply CLI overrides (non-empty values win)
	if overrides.HTTPAddr != "" {
		cfg.HTTPAddr = overrides.HTTPAddr
	}
	if overrides.LogLevel != "" {
		cfg.LogLevel = overrides.LogLevel
	}
	if overrides.SettingsBackend != "" {
		cfg.SettingsBackend = overrides.SettingsBackend
	}
	if overrides.SettingsFile != "" {
		cfg.SettingsFile = overrides.SettingsFile
	}
	if overrides.DatabaseURL != "" {
		cfg.DatabaseURL = overrides.DatabaseURL
	}

	switch cfg.SettingsBackend {
	case "file":
	case "postgres":
		if cfg.DatabaseURL == "" {
			return nil, fmt.Errorf("SETTINGS_BACKEND=postgres requires DATABASE_URL")
		}
	default:
		return nil, fmt.Errorf("unknown SETTINGS_BACKEND %q (want file or postgres)", cfg.SettingsBackend)
	}

	return cfg, nil
}
