// Copyright 2026 The Petrel Authors
// SPDX-License-Identifier: Apache-2.0

// Petrel-watch is an interactive terminal viewer for the event
// stream: a live scrolling log with fuzzy filtering and a send box,
// for poking at channels while developing against a backend (real or
// petrel-mockd).
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
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
		configFlags cli.ConfigFlags
		urlFlag     string
		tokenFile   string
		channel     string
		logOutput   string
	)

	flagSet := pflag.NewFlagSet("petrel-watch", pflag.ContinueOnError)
	configFlags.AddFlags(flagSet)
	flagSet.StringVar(&urlFlag, "url", "", "stream URL (overrides server.url)")
	flagSet.StringVar(&tokenFile, "token-file", "", "token file (overrides server.token_file)")
	flagSet.StringVar(&channel, "channel", "", "channel to send to initially")
	flagSet.StringVar(&logOutput, "log-output", "", "write JSON log records to this file")
	flagSet.BoolP("help", "h", false, "show help")

	if len(os.Args) > 1 && os.Args[1] == "--version" {
		version.Print("petrel-watch")
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

	cfg, err := configFlags.Load()
	if err != nil {
		return err
	}
	if urlFlag != "" {
		cfg.Server.URL = urlFlag
	}
	if tokenFile != "" {
		cfg.Server.TokenFile = tokenFile
	}

	// The alt-screen TUI owns the terminal, so session logs go to a
	// file or nowhere; stderr would corrupt the display.
	logger := slog.New(slog.DiscardHandler)
	if logOutput != "" {
		handler, closeLog, err := openFileLogHandler(logOutput)
		if err != nil {
			return fmt.Errorf("cannot open log file %s: %w", logOutput, err)
		}
		defer closeLog()
		logger = slog.New(handler)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	session, err := cli.Dial(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer session.Close()

	program := tea.NewProgram(
		newModel(session, channel, defaultTheme, colorProfile(cfg.Output.Color)),
		tea.WithAltScreen(),
		tea.WithMouseCellMotion(),
	)

	final, err := program.Run()
	if err != nil {
		return err
	}

	// A session that died under the TUI (rather than by our Close)
	// reports why after the alt screen is gone.
	session.Close()
	if m, ok := final.(model); ok && m.closeErr != nil {
		return m.closeErr
	}
	return nil
}

// openFileLogHandler creates a JSON slog handler writing to the given
// path. Returns the handler and a cleanup that closes the file.
func openFileLogHandler(path string) (slog.Handler, func(), error) {
	file, err := os.Create(path)
	if err != nil {
		return nil, nil, err
	}
	handler := slog.NewJSONHandler(file, &slog.HandlerOptions{Level: slog.LevelDebug})
	return handler, func() { file.Close() }, nil
}

func printHelp(flagSet *pflag.FlagSet) {
	fmt.Fprintf(os.Stderr, `Watch the event stream in an interactive terminal viewer.

The log scrolls live; ctrl+f filters it fuzzily by channel, sender,
or text. The bottom line sends: plain text goes to the current
channel, /me sends an action, /msg <user> a private message,
/channel <id> switches the target, /quit exits.

Usage:
  petrel-watch [flags]

Examples:
  # Watch and chat using the configured server
  petrel-watch --channel chan-1

  # Two terminals talking through a local mock backend
  petrel-mockd --echo &
  petrel-watch --url http://127.0.0.1:8787 --token-file <(echo petrel-dev) --channel chan-1

  # Keep session logs for post-mortem debugging
  petrel-watch --log-output watch.jsonl

Flags:
`)
	flagSet.SetOutput(os.Stderr)
	flagSet.PrintDefaults()
}
