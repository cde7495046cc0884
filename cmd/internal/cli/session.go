// Copyright 2026 The Petrel Authors
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/petrel-chat/petrel/chat"
	"github.com/petrel-chat/petrel/lib/config"
	"github.com/petrel-chat/petrel/lib/credential"
)

// SessionConfig builds a chat client configuration from the tool
// configuration. The token is not loaded here; [Dial] attaches it.
func SessionConfig(cfg *config.Config) (chat.ClientConfig, error) {
	clientConfig := chat.ClientConfig{
		URL:         cfg.Server.URL,
		EventBuffer: cfg.Session.EventBuffer,
	}

	for _, field := range []struct {
		name   string
		value  string
		target *time.Duration
	}{
		{"session.call_timeout", cfg.Session.CallTimeout, &clientConfig.CallTimeout},
		{"session.initial_backoff", cfg.Session.InitialBackoff, &clientConfig.InitialBackoff},
		{"session.max_backoff", cfg.Session.MaxBackoff, &clientConfig.MaxBackoff},
	} {
		if field.value == "" {
			continue
		}
		duration, err := time.ParseDuration(field.value)
		if err != nil {
			return chat.ClientConfig{}, fmt.Errorf("%s: %w", field.name, err)
		}
		*field.target = duration
	}

	return clientConfig, nil
}

// Dial loads the access token named by the configuration and opens a
// session. The token file may be sealed (petrel-credentials), plain,
// or "-" for stdin.
func Dial(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*chat.Session, error) {
	if cfg.Server.URL == "" {
		return nil, fmt.Errorf("no server URL configured (set server.url in the config file or pass --url)")
	}

	clientConfig, err := SessionConfig(cfg)
	if err != nil {
		return nil, err
	}

	token, err := credential.LoadToken(cfg.Server.TokenFile)
	if err != nil {
		return nil, err
	}
	defer token.Close()

	clientConfig.Token = token.String()
	clientConfig.Logger = logger

	return chat.Connect(ctx, clientConfig)
}
