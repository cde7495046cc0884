// Copyright 2026 The Petrel Authors
// SPDX-License-Identifier: Apache-2.0

package wire

import "fmt"

// EventType discriminates server push events.
type EventType string

const (
	// EventMessage is a message posted in a channel the bot is in.
	EventMessage EventType = "message"

	// EventPrivateMessage is a direct message to the bot.
	EventPrivateMessage EventType = "private_message"

	// EventAction is an emote-style action in a channel.
	EventAction EventType = "action"

	// EventPrivateAction is an emote-style action sent directly to
	// the bot.
	EventPrivateAction EventType = "private_action"

	// EventCommand is a message that parsed as a bot command.
	EventCommand EventType = "command"

	// EventMention is a channel message that mentioned the bot.
	EventMention EventType = "mention"

	// EventParticipantJoined reports a user joining a channel.
	EventParticipantJoined EventType = "participant_joined"

	// EventParticipantLeft reports a user leaving a channel.
	EventParticipantLeft EventType = "participant_left"

	// EventStreamError reports a server-side stream fault that did
	// not sever the connection.
	EventStreamError EventType = "stream_error"
)

// Event is the tagged union carried by event frames: Type names the
// variant, and exactly one matching payload pointer is set. Unknown
// types decode cleanly (all payloads nil) and are skipped by
// receivers.
type Event struct {
	Type EventType `cbor:"type"`

	Message           *MessageEvent           `cbor:"message,omitempty"`
	PrivateMessage    *PrivateMessageEvent    `cbor:"private_message,omitempty"`
	Action            *ActionEvent            `cbor:"action,omitempty"`
	PrivateAction     *PrivateActionEvent     `cbor:"private_action,omitempty"`
	Command           *CommandEvent           `cbor:"command,omitempty"`
	Mention           *MentionEvent           `cbor:"mention,omitempty"`
	ParticipantJoined *ParticipantJoinedEvent `cbor:"participant_joined,omitempty"`
	ParticipantLeft   *ParticipantLeftEvent   `cbor:"participant_left,omitempty"`
	StreamError       *StreamErrorEvent       `cbor:"stream_error,omitempty"`
}

// User identifies a chat participant.
type User struct {
	// ID is the backend's stable identity for the user.
	ID string `cbor:"id"`

	// DisplayName is the user's current presentation name.
	DisplayName string `cbor:"display_name,omitempty"`
}

// MessageEvent is a message posted in a channel.
type MessageEvent struct {
	ChannelID string `cbor:"channel_id"`
	Sender    User   `cbor:"sender"`
	Text      string `cbor:"text"`

	// Root carries the rich-content form when the backend supports
	// one. Text remains the authoritative plain rendering.
	Root *Block `cbor:"root,omitempty"`

	// MessageID is the server-assigned message identity, when the
	// backend has one.
	MessageID string `cbor:"message_id,omitempty"`
}

// PrivateMessageEvent is a direct message to the bot.
type PrivateMessageEvent struct {
	Sender    User   `cbor:"sender"`
	Text      string `cbor:"text"`
	Root      *Block `cbor:"root,omitempty"`
	MessageID string `cbor:"message_id,omitempty"`
}

// ActionEvent is an emote-style action in a channel.
type ActionEvent struct {
	ChannelID string `cbor:"channel_id"`
	Sender    User   `cbor:"sender"`
	Text      string `cbor:"text"`
}

// PrivateActionEvent is an emote-style action sent directly to the
// bot.
type PrivateActionEvent struct {
	Sender User   `cbor:"sender"`
	Text   string `cbor:"text"`
}

// CommandEvent is a channel message the server parsed as a command
// invocation ("!roll 2d6" becomes Command "roll", Arg "2d6").
type CommandEvent struct {
	ChannelID string `cbor:"channel_id"`
	Sender    User   `cbor:"sender"`
	Command   string `cbor:"command"`
	Arg       string `cbor:"arg,omitempty"`
}

// MentionEvent is a channel message that mentioned the bot, with the
// mention itself stripped from Text.
type MentionEvent struct {
	ChannelID string `cbor:"channel_id"`
	Sender    User   `cbor:"sender"`
	Text      string `cbor:"text"`
}

// ParticipantJoinedEvent reports a user joining a channel.
type ParticipantJoinedEvent struct {
	ChannelID string `cbor:"channel_id"`
	User      User   `cbor:"user"`
}

// ParticipantLeftEvent reports a user leaving a channel.
type ParticipantLeftEvent struct {
	ChannelID string `cbor:"channel_id"`
	User      User   `cbor:"user"`
}

// StreamErrorEvent reports a server-side stream fault that did not
// sever the connection, such as a dropped backend shard.
type StreamErrorEvent struct {
	Code    Code   `cbor:"code"`
	Message string `cbor:"message,omitempty"`
}

// Validate checks that a known event type carries its matching
// payload. Unknown types pass so receivers can skip them.
func (e *Event) Validate() error {
	switch e.Type {
	case EventMessage:
		if e.Message == nil {
			return missingPayload(e.Type)
		}
	case EventPrivateMessage:
		if e.PrivateMessage == nil {
			return missingPayload(e.Type)
		}
	case EventAction:
		if e.Action == nil {
			return missingPayload(e.Type)
		}
	case EventPrivateAction:
		if e.PrivateAction == nil {
			return missingPayload(e.Type)
		}
	case EventCommand:
		if e.Command == nil {
			return missingPayload(e.Type)
		}
	case EventMention:
		if e.Mention == nil {
			return missingPayload(e.Type)
		}
	case EventParticipantJoined:
		if e.ParticipantJoined == nil {
			return missingPayload(e.Type)
		}
	case EventParticipantLeft:
		if e.ParticipantLeft == nil {
			return missingPayload(e.Type)
		}
	case EventStreamError:
		if e.StreamError == nil {
			return missingPayload(e.Type)
		}
	case "":
		return fmt.Errorf("%w: missing event type", ErrInvalidEvent)
	}
	return nil
}

func missingPayload(eventType EventType) error {
	return fmt.Errorf("%w: %s event missing payload", ErrInvalidEvent, eventType)
}

// Known reports whether the event's type is one this client
// understands. Unknown events validate but carry no payload to act
// on.
func (e *Event) Known() bool {
	switch e.Type {
	case EventMessage, EventPrivateMessage, EventAction, EventPrivateAction,
		EventCommand, EventMention, EventParticipantJoined,
		EventParticipantLeft, EventStreamError:
		return true
	}
	return false
}

// ChannelID returns the channel a channel-scoped event belongs to,
// or "" for private and stream-level events. Used by tools that
// group or filter by channel.
func (e *Event) ChannelID() string {
	switch e.Type {
	case EventMessage:
		if e.Message != nil {
			return e.Message.ChannelID
		}
	case EventAction:
		if e.Action != nil {
			return e.Action.ChannelID
		}
	case EventCommand:
		if e.Command != nil {
			return e.Command.ChannelID
		}
	case EventMention:
		if e.Mention != nil {
			return e.Mention.ChannelID
		}
	case EventParticipantJoined:
		if e.ParticipantJoined != nil {
			return e.ParticipantJoined.ChannelID
		}
	case EventParticipantLeft:
		if e.ParticipantLeft != nil {
			return e.ParticipantLeft.ChannelID
		}
	}
	return ""
}
