// Copyright 2026 The Petrel Authors
// SPDX-License-Identifier: Apache-2.0

// Petrel-replay reads a capture file written by petrel-tail --record
// and prints the events it holds. Segment digests are verified as the
// file is read, so a corrupt or truncated capture fails loudly rather
// than replaying half-garbage.
//
// Timestamps shown are the recorded arrival times, not the current
// clock. With --timing the replay sleeps to reproduce the original
// inter-event gaps.
package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/pflag"

	"github.com/petrel-chat/petrel/cmd/internal/cli"
	"github.com/petrel-chat/petrel/lib/capture"
	"github.com/petrel-chat/petrel/lib/codec"
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
		jsonLines bool
		diag      bool
		channel   string
		timing    bool
	)

	flagSet := pflag.NewFlagSet("petrel-replay", pflag.ContinueOnError)
	flagSet.BoolVar(&jsonLines, "json", false, "print JSON lines instead of text")
	flagSet.BoolVar(&diag, "diag", false, "print each event in CBOR diagnostic notation")
	flagSet.StringVar(&channel, "channel", "", "only show events for this channel")
	flagSet.BoolVar(&timing, "timing", false, "sleep between events to reproduce the recorded pacing")
	flagSet.BoolP("help", "h", false, "show help")

	if len(os.Args) > 1 && os.Args[1] == "--version" {
		version.Print("petrel-replay")
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

	args := flagSet.Args()
	if len(args) != 1 {
		printHelp(flagSet)
		return fmt.Errorf("expected exactly one capture file argument")
	}

	var input io.Reader
	if args[0] == "-" {
		input = os.Stdin
	} else {
		file, err := os.Open(args[0])
		if err != nil {
			return err
		}
		defer file.Close()
		input = file
	}

	count, err := replay(input, os.Stdout, replayOptions{
		JSON:    jsonLines,
		Diag:    diag,
		Channel: channel,
		Sleep:   sleepFunc(timing),
	})
	if err != nil {
		return err
	}

	fmt.Fprintf(os.Stderr, "replayed %d events\n", count)
	return nil
}

// replayOptions controls replay output.
type replayOptions struct {
	// JSON switches output from text lines to JSON lines.
	JSON bool

	// Diag prints CBOR diagnostic notation instead of formatted
	// lines.
	Diag bool

	// Channel, when set, drops events from other channels.
	Channel string

	// Sleep, when non-nil, is called with the recorded gap before
	// each event after the first.
	Sleep func(time.Duration)
}

// sleepFunc returns the pacing function for --timing, or nil for
// immediate replay.
func sleepFunc(timing bool) func(time.Duration) {
	if !timing {
		return nil
	}
	return time.Sleep
}

// replay streams records from a capture and writes them to out,
// returning how many events were shown. Digest verification happens
// inside the capture reader; any integrity failure surfaces as an
// error here.
func replay(input io.Reader, out io.Writer, options replayOptions) (int, error) {
	reader, err := capture.NewReader(input)
	if err != nil {
		return 0, err
	}

	encoder := json.NewEncoder(out)
	count := 0
	var lastAt int64

	for {
		record, err := reader.Next()
		if errors.Is(err, io.EOF) {
			return count, nil
		}
		if err != nil {
			return count, err
		}

		if options.Channel != "" && record.Event.ChannelID() != options.Channel {
			continue
		}

		if options.Sleep != nil && count > 0 && record.At > lastAt {
			options.Sleep(time.Duration(record.At-lastAt) * time.Millisecond)
		}
		lastAt = record.At

		at := time.UnixMilli(record.At)
		switch {
		case options.Diag:
			encoded, err := codec.Marshal(record.Event)
			if err != nil {
				return count, fmt.Errorf("re-encoding event %d: %w", record.Seq, err)
			}
			notation, err := codec.Diagnose(encoded)
			if err != nil {
				return count, fmt.Errorf("diagnosing event %d: %w", record.Seq, err)
			}
			if _, err := fmt.Fprintf(out, "%d %s\n", record.Seq, notation); err != nil {
				return count, err
			}
		case options.JSON:
			if err := encoder.Encode(cli.NewEventLine(at, record.Seq, record.Event)); err != nil {
				return count, err
			}
		default:
			if _, err := fmt.Fprintln(out, cli.FormatEvent(at, record.Event)); err != nil {
				return count, err
			}
		}

		count++
	}
}

func printHelp(flagSet *pflag.FlagSet) {
	fmt.Fprintf(os.Stderr, `Replay a capture file.

Usage:
  petrel-replay [flags] <file.cap>
  petrel-replay [flags] -        # read the capture from stdin

Examples:
  # Print a capture as text
  petrel-replay standup.cap

  # Reproduce the original pacing
  petrel-replay --timing standup.cap

  # Inspect the raw event encoding
  petrel-replay --diag standup.cap

Flags:
`)
	flagSet.SetOutput(os.Stderr)
	flagSet.PrintDefaults()
}
