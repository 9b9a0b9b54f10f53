package config

import "testing"

func TestLoad(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		cfg, err := Load(Overrides{EnvFile: "nonexistent.env"})
		if err != nil {
			t.Fatalf("Load: %v", err)
		}
		if cfg.HTTPAddr != ":8090" {
			t.Errorf("HTTPAddr = %q, want :8090", cfg.HTTPAddr)
		}
		if cfg.LogLevel != "info" {
			t.Errorf("LogLevel = %q, want info", cfg.LogLevel)
		}
		if cfg.SettingsBackend != "file" {
			t.Errorf("SettingsBackend = %q, want file", cfg.SettingsBackend)
		}
		if cfg.SettingsFile != "./settings.json" {
			t.Errorf("SettingsFile = %q, want ./settings.json", cfg.SettingsFile)
		}
		if cfg.MaxUploadBytes != 33554432 {
			t.Errorf("MaxUploadBytes = %d, want 32 MiB", cfg.MaxUploadBytes)
		}
		if cfg.WriteTimeout != 0 {
			t.Errorf("WriteTimeout = %v, want 0 (SSE)", cfg.WriteTimeout)
		}
	})

	t.Run("env vars override defaults", func(t *testing.T) {
		t.Setenv("HTTP_ADDR", ":9999")
		t.Setenv("LOG_LEVEL", "debug")

		cfg, err := Load(Overrides{EnvFile: "nonexistent.env"})
		if err != nil {
			t.Fatalf("Load: %v", err)
		}
		if cfg.HTTPAddr != ":9999" {
			t.Errorf("HTTPAddr = %q, want :9999", cfg.HTTPAddr)
		}
		if cfg.LogLevel != "debug" {
			t.Errorf("LogLevel = %q, want debug", cfg.LogLevel)
		}
	})

	t.Run("cli overrides win over env", func(t *testing.T) {
		t.Setenv("HTTP_ADDR", ":9999")

		cfg, err := Load(Overrides{EnvFile: "nonexistent.env", HTTPAddr: ":7777"})
		if err != nil {
			t.Fatalf("Load: %v", err)
		}
		if cfg.HTTPAddr != ":7777" {
			t.Errorf("HTTPAddr = %q, want :7777", cfg.HTTPAddr)
		}
	})

	t.Run("postgres backend requires database url", func(t *testing.T) {
		t.Setenv("DATABASE_URL", "")

		_, err := Load(Overrides{EnvFile: "nonexistent.env", SettingsBackend: "postgres"})
		if err == nil {
			t.Fatal("Load succeeded without DATABASE_URL")
		}
	})

	t.Run("postgres backend with database url", func(t *testing.T) {
		cfg, err := Load(Overrides{
			EnvFile:         "nonexistent.env",
			SettingsBackend: "postgres",
			DatabaseURL:     "postgres://localhost/stt",
		})
		if err != nil {
			t.Fatalf("Load: %v", err)
		}
		if cfg.SettingsBackend != "postgres" {
			t.Errorf("SettingsBackend = %q, want postgres", cfg.SettingsBackend)
		}
	})

	t.Run("unknown backend rejected", func(t *testing.T) {
		_, err := Load(Overrides{EnvFile: "nonexistent.env", SettingsBackend: "etcd"})
		if err == nil {
			t.Fatal("Load accepted unknown backend")
		}
	})
}
