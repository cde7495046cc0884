// Copyright 2026 The Petrel Authors
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/petrel-chat/petrel/lib/config"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		name string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"error", slog.LevelError},
	}
	for _, test := range tests {
		level, err := ParseLevel(test.name)
		if err != nil {
			t.Fatalf("ParseLevel(%q) error: %v", test.name, err)
		}
		if level != test.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", test.name, level, test.want)
		}
	}

	if _, err := ParseLevel("loud"); err == nil {
		t.Error("expected error for unknown level")
	}
}

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("writing config: %v", err)
	}
	return path
}

func TestConfigFlagsLoad(t *testing.T) {
	t.Setenv("PETREL_PROFILE", "")

	path := writeConfigFile(t, `
server:
  url: wss://chat.example.com/stream
  default_channel: chan-9
profiles:
  staging:
    server:
      url: wss://staging.example.com/stream
`)

	t.Run("base config", func(t *testing.T) {
		flags := ConfigFlags{Path: path}
		cfg, err := flags.Load()
		if err != nil {
			t.Fatalf("Load() error: %v", err)
		}
		if cfg.Server.URL != "wss://chat.example.com/stream" {
			t.Errorf("URL = %q", cfg.Server.URL)
		}
		if cfg.Server.DefaultChannel != "chan-9" {
			t.Errorf("DefaultChannel = %q", cfg.Server.DefaultChannel)
		}
	})

	t.Run("profile flag", func(t *testing.T) {
		flags := ConfigFlags{Path: path, Profile: "staging"}
		cfg, err := flags.Load()
		if err != nil {
			t.Fatalf("Load() error: %v", err)
		}
		if cfg.Server.URL != "wss://staging.example.com/stream" {
			t.Errorf("URL = %q, want the staging override", cfg.Server.URL)
		}
		if cfg.Server.DefaultChannel != "chan-9" {
			t.Errorf("DefaultChannel = %q, want the base value to survive", cfg.Server.DefaultChannel)
		}
	})

	t.Run("unknown profile", func(t *testing.T) {
		flags := ConfigFlags{Path: path, Profile: "production"}
		if _, err := flags.Load(); err == nil {
			t.Fatal("expected error for undefined profile")
		}
	})

	t.Run("missing explicit file", func(t *testing.T) {
		flags := ConfigFlags{Path: filepath.Join(t.TempDir(), "absent.yaml")}
		if _, err := flags.Load(); err == nil {
			t.Fatal("expected error for missing explicit config file")
		}
	})

	t.Run("invalid values rejected", func(t *testing.T) {
		bad := writeConfigFile(t, "output:\n  log_level: loud\n")
		flags := ConfigFlags{Path: bad}
		if _, err := flags.Load(); err == nil {
			t.Fatal("expected validation error for bad log level")
		}
	})
}

func TestSessionConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Server.URL = "wss://chat.example.com/stream"
	cfg.Session.CallTimeout = "45s"
	cfg.Session.InitialBackoff = "2s"
	cfg.Session.MaxBackoff = "1m"
	cfg.Session.EventBuffer = 16

	clientConfig, err := SessionConfig(cfg)
	if err != nil {
		t.Fatalf("SessionConfig() error: %v", err)
	}
	if clientConfig.URL != cfg.Server.URL {
		t.Errorf("URL = %q", clientConfig.URL)
	}
	if clientConfig.CallTimeout != 45*time.Second {
		t.Errorf("CallTimeout = %v", clientConfig.CallTimeout)
	}
	if clientConfig.InitialBackoff != 2*time.Second {
		t.Errorf("InitialBackoff = %v", clientConfig.InitialBackoff)
	}
	if clientConfig.MaxBackoff != time.Minute {
		t.Errorf("MaxBackoff = %v", clientConfig.MaxBackoff)
	}
	if clientConfig.EventBuffer != 16 {
		t.Errorf("EventBuffer = %d", clientConfig.EventBuffer)
	}
}

func TestSessionConfigBadDuration(t *testing.T) {
	cfg := config.Default()
	cfg.Session.CallTimeout = "soon"

	_, err := SessionConfig(cfg)
	if err == nil {
		t.Fatal("expected error for unparseable duration")
	}
	if !strings.Contains(err.Error(), "session.call_timeout") {
		t.Errorf("error %q does not name the field", err)
	}
}
