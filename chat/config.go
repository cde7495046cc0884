// Copyright 2026 The Petrel Authors
// SPDX-License-Identifier: Apache-2.0

package chat

import (
	"crypto/tls"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"github.com/petrel-chat/petrel/lib/clock"
)

// Defaults applied by Connect for ClientConfig fields left zero.
const (
	// DefaultInitialBackoff is the delay before the first reconnect
	// attempt.
	DefaultInitialBackoff = time.Second

	// DefaultMaxBackoff caps the reconnect delay.
	DefaultMaxBackoff = 30 * time.Second

	// DefaultBackoffMultiplier is the per-attempt delay growth.
	DefaultBackoffMultiplier = 2.0

	// DefaultCallTimeout bounds one call from write to result.
	DefaultCallTimeout = 30 * time.Second

	// DefaultHandshakeTimeout bounds one connection attempt: dial,
	// upgrade, and the server's hello.
	DefaultHandshakeTimeout = 10 * time.Second

	// DefaultPingInterval is how often the session pings an idle
	// connection.
	DefaultPingInterval = 30 * time.Second

	// DefaultPongTimeout is how long a connection may stay silent
	// before the session declares it dead.
	DefaultPongTimeout = 60 * time.Second

	// DefaultEventBuffer is the capacity of the Events channel.
	DefaultEventBuffer = 64
)

// writeTimeout bounds a single frame write. Not configurable: a
// write that cannot complete in this window means the connection is
// dead in all but name.
const writeTimeout = 10 * time.Second

// ClientConfig configures Connect. URL and Token are required; every
// other field has a working default. Connect copies the config and
// never mutates the caller's value.
type ClientConfig struct {
	// URL locates the backend stream endpoint. Schemes wss and https
	// dial with TLS; ws and http dial in the clear. Anything else is
	// a ConfigError.
	URL string

	// Token is the bearer credential. It rides the stream-open
	// request and every call, and is never logged.
	Token string

	// Logger receives session diagnostics. Defaults to
	// slog.Default().
	Logger *slog.Logger

	// TLS overrides the TLS client configuration for wss and https
	// URLs. Nil uses the platform defaults.
	TLS *tls.Config

	// Clock drives backoff waits, call timeouts, and keepalive
	// pings. Defaults to clock.Real(). Network read deadlines stay
	// on wall time regardless.
	Clock clock.Clock

	// InitialBackoff is the delay before the first reconnect
	// attempt.
	InitialBackoff time.Duration

	// MaxBackoff caps the reconnect delay however many attempts
	// fail.
	MaxBackoff time.Duration

	// BackoffMultiplier is the per-attempt delay growth. Must be at
	// least 1 when set.
	BackoffMultiplier float64

	// CallTimeout bounds each call from write to result.
	CallTimeout time.Duration

	// HandshakeTimeout bounds one connection attempt.
	HandshakeTimeout time.Duration

	// PingInterval is how often the session pings an idle
	// connection.
	PingInterval time.Duration

	// PongTimeout is how long a connection may stay silent before
	// the session severs it and reconnects.
	PongTimeout time.Duration

	// EventBuffer is the Events channel capacity. When the buffer is
	// full the session stops reading the connection until the
	// application catches up; events are never dropped client-side.
	EventBuffer int
}

// validate checks the required fields and returns the websocket dial
// URL. All failures are ConfigErrors; nothing here touches the
// network.
func (c *ClientConfig) validate() (string, error) {
	dialURL, err := dialTarget(c.URL)
	if err != nil {
		return "", err
	}
	if c.Token == "" {
		return "", &ConfigError{Field: "Token", Reason: "must not be empty"}
	}
	if c.BackoffMultiplier != 0 && c.BackoffMultiplier < 1 {
		return "", &ConfigError{Field: "BackoffMultiplier", Reason: "must be at least 1"}
	}
	return dialURL, nil
}

// withDefaults returns a copy with zero fields filled in.
func (c ClientConfig) withDefaults() ClientConfig {
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
	if c.Clock == nil {
		c.Clock = clock.Real()
	}
	if c.InitialBackoff <= 0 {
		c.InitialBackoff = DefaultInitialBackoff
	}
	if c.MaxBackoff <= 0 {
		c.MaxBackoff = DefaultMaxBackoff
	}
	if c.BackoffMultiplier == 0 {
		c.BackoffMultiplier = DefaultBackoffMultiplier
	}
	if c.CallTimeout <= 0 {
		c.CallTimeout = DefaultCallTimeout
	}
	if c.HandshakeTimeout <= 0 {
		c.HandshakeTimeout = DefaultHandshakeTimeout
	}
	if c.PingInterval <= 0 {
		c.PingInterval = DefaultPingInterval
	}
	if c.PongTimeout <= 0 {
		c.PongTimeout = DefaultPongTimeout
	}
	if c.EventBuffer <= 0 {
		c.EventBuffer = DefaultEventBuffer
	}
	return c
}

// dialTarget validates the endpoint URL and rewrites it to the
// websocket scheme the dialer wants.
func dialTarget(rawURL string) (string, error) {
	if rawURL == "" {
		return "", &ConfigError{Field: "URL", Reason: "must not be empty"}
	}
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return "", &ConfigError{Field: "URL", Reason: err.Error()}
	}
	switch parsed.Scheme {
	case "wss", "ws":
	case "https":
		parsed.Scheme = "wss"
	case "http":
		parsed.Scheme = "ws"
	default:
		return "", &ConfigError{
			Field:  "URL",
			Reason: fmt.Sprintf("unsupported scheme %q (want ws, wss, http, or https)", parsed.Scheme),
		}
	}
	if parsed.Host == "" {
		return "", &ConfigError{Field: "URL", Reason: "missing host"}
	}
	return parsed.String(), nil
}
