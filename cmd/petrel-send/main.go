// Copyright 2026 The Petrel Authors
// SPDX-License-Identifier: Apache-2.0

// Petrel-send is a one-shot message sender: it connects, delivers a
// single message or action, prints the server-assigned handle, and
// exits. The message text comes from the arguments, or from stdin
// when no arguments are given.
//
// With --markdown the text is parsed as CommonMark and sent with a
// rich-content block tree alongside the plain rendering.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/pflag"

	"github.com/petrel-chat/petrel/chat"
	"github.com/petrel-chat/petrel/cmd/internal/cli"
	"github.com/petrel-chat/petrel/content"
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
		user        string
		action      bool
		markdown    bool
		replyTo     string
		tagFlags    []string
		logLevel    string
	)

	flagSet := pflag.NewFlagSet("petrel-send", pflag.ContinueOnError)
	configFlags.AddFlags(flagSet)
	flagSet.StringVar(&urlFlag, "url", "", "stream URL (overrides server.url)")
	flagSet.StringVar(&tokenFile, "token-file", "", "token file (overrides server.token_file)")
	flagSet.StringVar(&channel, "channel", "", "channel to send to (default server.default_channel)")
	flagSet.StringVar(&user, "user", "", "send privately to this user instead of a channel")
	flagSet.BoolVar(&action, "action", false, "send an emote-style action instead of a message")
	flagSet.BoolVar(&markdown, "markdown", false, "parse the text as markdown and attach the block tree")
	flagSet.StringVar(&replyTo, "reply-to", "", "thread the message under this message handle")
	flagSet.StringArrayVar(&tagFlags, "tag", nil, "attach a key=value tag (repeatable)")
	flagSet.StringVar(&logLevel, "log-level", "", "log level: debug, info, warn, error")
	flagSet.BoolP("help", "h", false, "show help")

	if len(os.Args) > 1 && os.Args[1] == "--version" {
		version.Print("petrel-send")
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

	text, err := messageText(flagSet.Args(), os.Stdin)
	if err != nil {
		return err
	}

	tags, err := parseTags(tagFlags)
	if err != nil {
		return err
	}

	if action && (markdown || replyTo != "" || len(tags) > 0) {
		return fmt.Errorf("--markdown, --reply-to, and --tag apply to messages, not actions")
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

	if user == "" {
		if channel == "" {
			channel = cfg.Server.DefaultChannel
		}
		if channel == "" {
			return fmt.Errorf("no channel given (pass --channel or set server.default_channel)")
		}
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

	options := &chat.MessageOptions{
		ReplyTo: chat.MessageHandle(replyTo),
		Tags:    tags,
	}
	if markdown {
		options.Root = content.FromMarkdown(text)
	}

	switch {
	case user != "" && action:
		return session.PerformPrivateAction(ctx, user, text)
	case user != "":
		handle, err := session.SendPrivateMessage(ctx, user, text, options)
		if err != nil {
			return err
		}
		fmt.Println(handle)
	case action:
		return session.PerformAction(ctx, channel, text)
	default:
		handle, err := session.SendMessage(ctx, channel, text, options)
		if err != nil {
			return err
		}
		fmt.Println(handle)
	}

	return nil
}

// messageText joins the positional arguments into the message text,
// falling back to stdin when none are given. A single "-" argument
// reads stdin explicitly.
func messageText(args []string, stdin io.Reader) (string, error) {
	if len(args) > 0 && !(len(args) == 1 && args[0] == "-") {
		return strings.Join(args, " "), nil
	}

	data, err := io.ReadAll(stdin)
	if err != nil {
		return "", fmt.Errorf("reading message from stdin: %w", err)
	}
	text := strings.TrimRight(string(data), "\n")
	if text == "" {
		return "", fmt.Errorf("empty message (pass text as arguments or pipe it to stdin)")
	}
	return text, nil
}

// parseTags converts repeated key=value flags into a tag map. The
// value may itself contain "="; only the first one splits.
func parseTags(flags []string) (map[string]string, error) {
	if len(flags) == 0 {
		return nil, nil
	}
	tags := make(map[string]string, len(flags))
	for _, flag := range flags {
		key, value, found := strings.Cut(flag, "=")
		if !found || key == "" {
			return nil, fmt.Errorf("invalid tag %q (want key=value)", flag)
		}
		tags[key] = value
	}
	return tags, nil
}

func printHelp(flagSet *pflag.FlagSet) {
	fmt.Fprintf(os.Stderr, `Send a single message or action and exit.

Usage:
  petrel-send [flags] <text>...
  echo "text" | petrel-send [flags]

Examples:
  # Send to the configured default channel
  petrel-send "deploy finished"

  # Send a markdown message to a specific channel
  petrel-send --channel chan-42 --markdown "build **green** again"

  # Reply in a thread with a tag
  petrel-send --reply-to m-17 --tag origin=ci "rerun passed"

  # Emote in a channel
  petrel-send --action "waves"

  # Direct message a user
  petrel-send --user u-7 "your build is ready"

Flags:
`)
	flagSet.SetOutput(os.Stderr)
	flagSet.PrintDefaults()
}
