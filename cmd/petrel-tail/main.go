// Copyright 2026 The Petrel Authors
// SPDX-License-Identifier: Apache-2.0

// Petrel-tail subscribes to the event stream and prints each event as
// a line on stdout, as text or JSON. Stream outages show up inline as
// resume markers. With --record the payload events are also appended
// to a capture file for later petrel-replay.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/pflag"

	"github.com/petrel-chat/petrel/chat"
	"github.com/petrel-chat/petrel/cmd/internal/cli"
	"github.com/petrel-chat/petrel/lib/capture"
	"github.com/petrel-chat/petrel/lib/config"
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
		jsonLines   bool
		record      string
		logLevel    string
	)

	flagSet := pflag.NewFlagSet("petrel-tail", pflag.ContinueOnError)
	configFlags.AddFlags(flagSet)
	flagSet.StringVar(&urlFlag, "url", "", "stream URL (overrides server.url)")
	flagSet.StringVar(&tokenFile, "token-file", "", "token file (overrides server.token_file)")
	flagSet.StringVar(&channel, "channel", "", "only show events for this channel")
	flagSet.BoolVar(&jsonLines, "json", false, "print JSON lines instead of text")
	flagSet.StringVar(&record, "record", "", "write a capture file (bare --record picks a name under capture.directory)")
	flagSet.Lookup("record").NoOptDefVal = "auto"
	flagSet.StringVar(&logLevel, "log-level", "", "log level: debug, info, warn, error")
	flagSet.BoolP("help", "h", false, "show help")

	if len(os.Args) > 1 && os.Args[1] == "--version" {
		version.Print("petrel-tail")
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
	if logLevel != "" {
		cfg.Output.LogLevel = logLevel
	}

	logger, err := cli.NewLogger(cfg.Output)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	session, err := cli.Dial(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer session.Close()

	var recorder *capture.Writer
	if record != "" {
		path, err := resolveRecordPath(record, cfg)
		if err != nil {
			return err
		}
		file, err := os.Create(path)
		if err != nil {
			return fmt.Errorf("creating capture file: %w", err)
		}
		defer file.Close()

		tag, err := capture.ParseCompression(cfg.Capture.Compression)
		if err != nil {
			return err
		}
		recorder, err = capture.NewWriter(file, capture.WithCompression(tag))
		if err != nil {
			return err
		}
		logger.Info("recording events", "path", path, "compression", tag)
	}

	// Close the session when the signal context fires; the event
	// channel then drains and closes, ending the loop below.
	go func() {
		<-ctx.Done()
		session.Close()
	}()

	tailErr := tail(session.Events(), os.Stdout, recorder, tailOptions{
		JSON:    jsonLines,
		Channel: channel,
		Now:     time.Now,
	})

	if recorder != nil {
		if err := recorder.Close(); err != nil && tailErr == nil {
			tailErr = err
		}
	}
	if tailErr != nil {
		return tailErr
	}

	// A session that died on its own (rather than by our Close above)
	// reports why.
	return session.Err()
}

// tailOptions controls the output of the tail loop.
type tailOptions struct {
	// JSON switches output from text lines to JSON lines.
	JSON bool

	// Channel, when set, drops events from other channels. Private
	// and stream-level events are dropped too, since they carry no
	// channel.
	Channel string

	// Now supplies timestamps for display and recording.
	Now func() time.Time
}

// tail prints events from the channel until it closes. The channel
// filter applies to the recording as well, so a recorded file matches
// what was shown.
func tail(events <-chan chat.Event, out io.Writer, recorder *capture.Writer, options tailOptions) error {
	encoder := json.NewEncoder(out)

	for event := range events {
		now := options.Now()

		if event.Resumed() {
			if options.JSON {
				if err := encoder.Encode(cli.NewResumeLine(now, event.Generation)); err != nil {
					return err
				}
			} else {
				if _, err := fmt.Fprintln(out, cli.FormatResume(now, event.Generation)); err != nil {
					return err
				}
			}
			continue
		}

		payload := event.Payload
		if payload == nil {
			continue
		}
		if options.Channel != "" && payload.ChannelID() != options.Channel {
			continue
		}

		if recorder != nil {
			record := capture.Record{Seq: event.Seq, At: now.UnixMilli(), Event: payload}
			if err := recorder.Append(record); err != nil {
				return fmt.Errorf("recording event: %w", err)
			}
		}

		if options.JSON {
			if err := encoder.Encode(cli.NewEventLine(now, event.Seq, payload)); err != nil {
				return err
			}
		} else {
			if _, err := fmt.Fprintln(out, cli.FormatEvent(now, payload)); err != nil {
				return err
			}
		}
	}

	return nil
}

// resolveRecordPath turns the --record value into a file path. The
// sentinel "auto" picks a timestamped name under the configured
// capture directory.
func resolveRecordPath(value string, cfg *config.Config) (string, error) {
	if value != "auto" {
		return value, nil
	}
	if cfg.Capture.Directory == "" {
		return "", fmt.Errorf("bare --record needs capture.directory in the config")
	}
	if err := cfg.EnsurePaths(); err != nil {
		return "", err
	}
	name := "petrel-" + time.Now().Format("20060102-150405") + ".cap"
	return filepath.Join(cfg.Capture.Directory, name), nil
}

func printHelp(flagSet *pflag.FlagSet) {
	fmt.Fprintf(os.Stderr, `Stream events to stdout.

Usage:
  petrel-tail [flags]

Examples:
  # Watch everything as text
  petrel-tail

  # One channel, machine-readable
  petrel-tail --channel chan-42 --json | jq .text

  # Record while watching (replay later with petrel-replay)
  petrel-tail --record=standup.cap

Flags:
`)
	flagSet.SetOutput(os.Stderr)
	flagSet.PrintDefaults()
}
