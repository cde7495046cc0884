// Copyright 2026 The Petrel Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"
	"strings"
)

type inputKind int

const (
	inputMessage inputKind = iota
	inputAction
	inputPrivate
	inputSwitchChannel
	inputQuit
)

// parsedInput is what the send box produced: a message for the wire,
// or a local control command.
type parsedInput struct {
	kind   inputKind
	target string
	text   string
}

// parseInput interprets the send box content. Plain text goes to the
// current channel; a few slash commands cover the rest of the client
// surface:
//
//	/channel <id>      switch the send target
//	/me <text>         channel action
//	/msg <user> <text> private message
//	/quit              exit
func parseInput(value, channel string) (parsedInput, error) {
	if !strings.HasPrefix(value, "/") {
		if channel == "" {
			return parsedInput{}, fmt.Errorf("no channel selected (use /channel <id>)")
		}
		return parsedInput{kind: inputMessage, target: channel, text: value}, nil
	}

	command, rest, _ := strings.Cut(value[1:], " ")
	rest = strings.TrimSpace(rest)

	switch command {
	case "quit":
		return parsedInput{kind: inputQuit}, nil

	case "channel":
		if rest == "" {
			return parsedInput{}, fmt.Errorf("usage: /channel <id>")
		}
		return parsedInput{kind: inputSwitchChannel, target: rest}, nil

	case "me":
		if channel == "" {
			return parsedInput{}, fmt.Errorf("no channel selected (use /channel <id>)")
		}
		if rest == "" {
			return parsedInput{}, fmt.Errorf("usage: /me <text>")
		}
		return parsedInput{kind: inputAction, target: channel, text: rest}, nil

	case "msg":
		user, text, _ := strings.Cut(rest, " ")
		text = strings.TrimSpace(text)
		if user == "" || text == "" {
			return parsedInput{}, fmt.Errorf("usage: /msg <user> <text>")
		}
		return parsedInput{kind: inputPrivate, target: user, text: text}, nil
	}

	return parsedInput{}, fmt.Errorf("unknown command /%s", command)
}
