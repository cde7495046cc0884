// Copyright 2026 The Petrel Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/tidwall/jsonc"

	"github.com/petrel-chat/petrel/wire"
)

// scenario scripts the mock's behavior. Authored as JSONC (JSON
// extended with comments and trailing commas). A zero scenario answers
// every call with success and pushes nothing.
type scenario struct {
	// Echo replays sent messages and actions back as events, so one
	// client sees its own traffic and several clients see each other's.
	Echo bool `json:"echo"`

	// Responses override the default call handling. The first matching
	// rule wins; a rule with a times limit stops matching once spent.
	Responses []*responseRule `json:"responses"`

	// Events are pushed to every connection on a timer.
	Events []*eventScript `json:"events"`

	// mu serializes rule matching across connections; a match may
	// consume one use of a limited rule.
	mu sync.Mutex
}

// responseRule overrides the response to calls of one method.
type responseRule struct {
	// Method selects the calls this rule answers. Required.
	Method string `json:"method"`

	// ChannelID restricts the rule to calls targeting one channel.
	// Empty matches every call of the method.
	ChannelID string `json:"channel_id"`

	// Code is the result status. Empty means ok.
	Code string `json:"code"`

	// Message is the human-readable detail on a non-ok result.
	Message string `json:"message"`

	// MessageID overrides the generated id on an ok send result.
	MessageID string `json:"message_id"`

	// Delay postpones the result by a duration string ("250ms", "2s").
	Delay string `json:"delay"`

	// Drop swallows the call without answering, so clients exercise
	// their call timeout. Mutually exclusive with Code.
	Drop bool `json:"drop"`

	// Times limits how many calls the rule answers. Zero means
	// unlimited.
	Times int `json:"times"`

	delay     time.Duration
	remaining int
}

// eventScript pushes one event to every connection on a timer. Timers
// run per connection, relative to its accept time.
type eventScript struct {
	// After delays the first push. Duration string.
	After string `json:"after"`

	// Every repeats the push at this interval. Duration string. At
	// least one of After and Every must be set.
	Every string `json:"every"`

	// Type is the event to push: message, private_message, action,
	// private_action, participant_joined, or participant_left.
	Type string `json:"type"`

	// ChannelID is the target channel for channel-scoped types.
	ChannelID string `json:"channel_id"`

	// SenderID and SenderName identify the synthetic sender. SenderID
	// defaults to "u-mock".
	SenderID   string `json:"sender_id"`
	SenderName string `json:"sender_name"`

	// Text is the message or action body.
	Text string `json:"text"`

	after time.Duration
	every time.Duration
}

// loadScenario reads and parses a scenario file.
func loadScenario(path string) (*scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading scenario: %w", err)
	}
	parsed, err := parseScenario(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return parsed, nil
}

// parseScenario strips JSONC comments and trailing commas, unmarshals,
// and validates.
func parseScenario(data []byte) (*scenario, error) {
	stripped := jsonc.ToJSON(data)

	var parsed scenario
	if err := json.Unmarshal(stripped, &parsed); err != nil {
		return nil, fmt.Errorf("parsing scenario: %w", err)
	}
	if err := parsed.validate(); err != nil {
		return nil, err
	}
	return &parsed, nil
}

// validate checks every rule and script, filling their derived
// fields. Errors name the offending entry by index.
func (s *scenario) validate() error {
	for i, rule := range s.Responses {
		if err := rule.validate(); err != nil {
			return fmt.Errorf("scenario responses[%d]: %w", i, err)
		}
	}
	for i, script := range s.Events {
		if err := script.validate(); err != nil {
			return fmt.Errorf("scenario events[%d]: %w", i, err)
		}
	}
	return nil
}

func (r *responseRule) validate() error {
	if r.Method == "" {
		return errors.New("missing method")
	}
	if r.Drop && r.Code != "" {
		return errors.New("drop and code are mutually exclusive")
	}
	if r.Times < 0 {
		return errors.New("times must not be negative")
	}
	if r.Delay != "" {
		parsed, err := time.ParseDuration(r.Delay)
		if err != nil {
			return fmt.Errorf("invalid delay %q: %w", r.Delay, err)
		}
		if parsed < 0 {
			return fmt.Errorf("invalid delay %q: must not be negative", r.Delay)
		}
		r.delay = parsed
	}
	r.remaining = r.Times
	return nil
}

func (e *eventScript) validate() error {
	if e.After == "" && e.Every == "" {
		return errors.New("need after or every")
	}
	if e.After != "" {
		parsed, err := time.ParseDuration(e.After)
		if err != nil {
			return fmt.Errorf("invalid after %q: %w", e.After, err)
		}
		if parsed < 0 {
			return fmt.Errorf("invalid after %q: must not be negative", e.After)
		}
		e.after = parsed
	}
	if e.Every != "" {
		parsed, err := time.ParseDuration(e.Every)
		if err != nil {
			return fmt.Errorf("invalid every %q: %w", e.Every, err)
		}
		if parsed <= 0 {
			return fmt.Errorf("invalid every %q: must be positive", e.Every)
		}
		e.every = parsed
	}
	if e.SenderID == "" {
		e.SenderID = "u-mock"
	}

	switch e.Type {
	case "message", "action":
		if e.ChannelID == "" {
			return fmt.Errorf("%s event needs channel_id", e.Type)
		}
		if e.Text == "" {
			return fmt.Errorf("%s event needs text", e.Type)
		}
	case "private_message", "private_action":
		if e.Text == "" {
			return fmt.Errorf("%s event needs text", e.Type)
		}
	case "participant_joined", "participant_left":
		if e.ChannelID == "" {
			return fmt.Errorf("%s event needs channel_id", e.Type)
		}
	case "":
		return errors.New("missing type")
	default:
		return fmt.Errorf("unsupported type %q", e.Type)
	}
	return nil
}

// match returns the first live rule for the call, consuming one use of
// a limited rule. Nil means default handling.
func (s *scenario) match(method wire.Method, channelID string) *responseRule {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, rule := range s.Responses {
		if rule.Method != string(method) {
			continue
		}
		if rule.ChannelID != "" && rule.ChannelID != channelID {
			continue
		}
		if rule.Times > 0 {
			if rule.remaining == 0 {
				continue
			}
			rule.remaining--
		}
		return rule
	}
	return nil
}

// event builds the wire event this script pushes. Only called for
// types validate accepted.
func (e *eventScript) event() *wire.Event {
	sender := wire.User{ID: e.SenderID, DisplayName: e.SenderName}
	switch e.Type {
	case "message":
		return &wire.Event{
			Type:    wire.EventMessage,
			Message: &wire.MessageEvent{ChannelID: e.ChannelID, Sender: sender, Text: e.Text},
		}
	case "private_message":
		return &wire.Event{
			Type:           wire.EventPrivateMessage,
			PrivateMessage: &wire.PrivateMessageEvent{Sender: sender, Text: e.Text},
		}
	case "action":
		return &wire.Event{
			Type:   wire.EventAction,
			Action: &wire.ActionEvent{ChannelID: e.ChannelID, Sender: sender, Text: e.Text},
		}
	case "private_action":
		return &wire.Event{
			Type:          wire.EventPrivateAction,
			PrivateAction: &wire.PrivateActionEvent{Sender: sender, Text: e.Text},
		}
	case "participant_joined":
		return &wire.Event{
			Type:              wire.EventParticipantJoined,
			ParticipantJoined: &wire.ParticipantJoinedEvent{ChannelID: e.ChannelID, User: sender},
		}
	case "participant_left":
		return &wire.Event{
			Type:            wire.EventParticipantLeft,
			ParticipantLeft: &wire.ParticipantLeftEvent{ChannelID: e.ChannelID, User: sender},
		}
	}
	return nil
}
