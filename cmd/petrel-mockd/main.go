// Copyright 2026 The Petrel Authors
// SPDX-License-Identifier: Apache-2.0

// Petrel-mockd is a standalone mock Petrel backend for developing and
// testing bots without a real chat network. It speaks the full stream
// protocol: bearer-checked websocket upgrade, hello frame, CBOR call
// and result frames, and pushed events.
//
// By default every send succeeds with a generated message id and
// nothing is pushed. --echo replays sent messages and actions back as
// events to every connection, so two terminals running petrel-watch
// against the mock can talk to each other. --scenario loads a JSONC
// script of response overrides (error codes, delays, dropped calls)
// and timed event pushes for exercising client failure handling.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/pflag"

	"github.com/petrel-chat/petrel/cmd/internal/cli"
	"github.com/petrel-chat/petrel/lib/process"
	"github.com/petrel-chat/petrel/lib/version"
)

func main() {
	if err := run(); err != nil {
		process.Fatal(err)
	}
}

func run() error {
	var (
		listen       string
		token        string
		scenarioPath string
		echo         bool
		pingInterval time.Duration
		idleTimeout  time.Duration
		logLevel     string
	)

	flagSet := pflag.NewFlagSet("petrel-mockd", pflag.ContinueOnError)
	flagSet.StringVar(&listen, "listen", "127.0.0.1:8787", "address to listen on")
	flagSet.StringVar(&token, "token", "petrel-dev", "bearer token the mock accepts")
	flagSet.StringVar(&scenarioPath, "scenario", "", "JSONC scenario file scripting responses and events")
	flagSet.BoolVar(&echo, "echo", false, "replay sent messages and actions back as events")
	flagSet.DurationVar(&pingInterval, "ping", 30*time.Second, "keepalive ping interval")
	flagSet.DurationVar(&idleTimeout, "idle-timeout", 90*time.Second, "drop connections silent for this long")
	flagSet.StringVar(&logLevel, "log-level", "info", "log level: debug, info, warn, error")
	flagSet.BoolP("help", "h", false, "show help")

	if len(os.Args) > 1 && os.Args[1] == "--version" {
		version.Print("petrel-mockd")
		return nil
	}

	if err := flagSet.Parse(os.Args[1:]); err != nil {
		if err == pflag.ErrHelp {
			printHelp(flagSet)
			return nil
		}
		return err
	}
	if help, _ := flagSet.GetBool("help"); help {
		printHelp(flagSet)
		return nil
	}
	if args := flagSet.Args(); len(args) > 0 {
		return fmt.Errorf("unexpected argument: %s", args[0])
	}

	level, err := cli.ParseLevel(logLevel)
	if err != nil {
		return err
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	sc := &scenario{}
	if scenarioPath != "" {
		if sc, err = loadScenario(scenarioPath); err != nil {
			return err
		}
	}
	if echo {
		sc.Echo = true
	}

	server := newMockServer(token, sc, logger, pingInterval, idleTimeout)
	httpServer := &http.Server{
		Addr:              listen,
		Handler:           server,
		ReadHeaderTimeout: 5 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	serveDone := make(chan error, 1)
	go func() {
		serveDone <- httpServer.ListenAndServe()
	}()

	logger.Info("mock backend listening",
		"addr", listen,
		"echo", sc.Echo,
		"responses", len(sc.Responses),
		"events", len(sc.Events),
	)

	select {
	case err := <-serveDone:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn("shutdown", "error", err)
	}
	server.closeAll()

	if err := <-serveDone; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func printHelp(flagSet *pflag.FlagSet) {
	fmt.Fprintf(os.Stderr, `Standalone mock Petrel backend.

Any Petrel client can connect to it: sends succeed with generated
message ids unless a scenario script overrides them.

Usage:
  petrel-mockd [flags]

Examples:
  # Local echo server for interactive testing
  petrel-mockd --echo

  # Scripted failures for client hardening
  petrel-mockd --scenario flaky.jsonc --log-level debug

Point a client at it:
  petrel-send --url http://127.0.0.1:8787 --token-file <(echo petrel-dev) --channel chan-1 hello

Flags:
`)
	flagSet.SetOutput(os.Stderr)
	flagSet.PrintDefaults()
}
