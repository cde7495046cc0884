// Copyright 2026 The Petrel Authors
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"fmt"
	"time"

	"github.com/petrel-chat/petrel/wire"
)

// FormatEvent renders one stream event as a single plain-text line,
// the shared output format of petrel-tail and petrel-replay.
func FormatEvent(at time.Time, event *wire.Event) string {
	stamp := at.Format("15:04:05")

	switch event.Type {
	case wire.EventMessage:
		payload := event.Message
		return fmt.Sprintf("%s [%s] <%s> %s", stamp, payload.ChannelID, SenderName(payload.Sender), payload.Text)
	case wire.EventPrivateMessage:
		payload := event.PrivateMessage
		return fmt.Sprintf("%s [private] <%s> %s", stamp, SenderName(payload.Sender), payload.Text)
	case wire.EventAction:
		payload := event.Action
		return fmt.Sprintf("%s [%s] * %s %s", stamp, payload.ChannelID, SenderName(payload.Sender), payload.Text)
	case wire.EventPrivateAction:
		payload := event.PrivateAction
		return fmt.Sprintf("%s [private] * %s %s", stamp, SenderName(payload.Sender), payload.Text)
	case wire.EventCommand:
		payload := event.Command
		line := fmt.Sprintf("%s [%s] <%s> !%s", stamp, payload.ChannelID, SenderName(payload.Sender), payload.Command)
		if payload.Arg != "" {
			line += " " + payload.Arg
		}
		return line
	case wire.EventMention:
		payload := event.Mention
		return fmt.Sprintf("%s [%s] <%s> (mention) %s", stamp, payload.ChannelID, SenderName(payload.Sender), payload.Text)
	case wire.EventParticipantJoined:
		payload := event.ParticipantJoined
		return fmt.Sprintf("%s [%s] * %s joined", stamp, payload.ChannelID, SenderName(payload.User))
	case wire.EventParticipantLeft:
		payload := event.ParticipantLeft
		return fmt.Sprintf("%s [%s] * %s left", stamp, payload.ChannelID, SenderName(payload.User))
	case wire.EventStreamError:
		payload := event.StreamError
		line := fmt.Sprintf("%s [stream] error: %s", stamp, payload.Code)
		if payload.Message != "" {
			line += ": " + payload.Message
		}
		return line
	default:
		return fmt.Sprintf("%s (unknown event type %q)", stamp, string(event.Type))
	}
}

// FormatResume renders the synthetic stream-resumed marker line.
func FormatResume(at time.Time, generation uint64) string {
	return fmt.Sprintf("%s -- stream resumed (generation %d) --", at.Format("15:04:05"), generation)
}

// SenderName returns the label for a user: the display name when set,
// otherwise the stable ID.
func SenderName(user wire.User) string {
	if user.DisplayName != "" {
		return user.DisplayName
	}
	return user.ID
}

// EventLine is the flattened JSON-lines form of one stream event,
// shared by petrel-tail --json and petrel-replay --json.
type EventLine struct {
	At   string `json:"at"`
	Seq  uint64 `json:"seq,omitempty"`
	Type string `json:"type"`

	// Generation is set on stream_resumed markers, which always carry
	// a generation of at least one.
	Generation uint64 `json:"generation,omitempty"`

	Channel    string `json:"channel,omitempty"`
	Sender     string `json:"sender,omitempty"`
	SenderName string `json:"sender_name,omitempty"`
	Text       string `json:"text,omitempty"`
	Command    string `json:"command,omitempty"`
	Arg        string `json:"arg,omitempty"`
	Code       string `json:"code,omitempty"`
	Message    string `json:"message,omitempty"`
}

// NewEventLine flattens a stream event for JSON-lines output.
func NewEventLine(at time.Time, seq uint64, event *wire.Event) EventLine {
	line := EventLine{
		At:      at.UTC().Format(time.RFC3339Nano),
		Seq:     seq,
		Type:    string(event.Type),
		Channel: event.ChannelID(),
	}

	switch event.Type {
	case wire.EventMessage:
		line.Sender = event.Message.Sender.ID
		line.SenderName = event.Message.Sender.DisplayName
		line.Text = event.Message.Text
	case wire.EventPrivateMessage:
		line.Sender = event.PrivateMessage.Sender.ID
		line.SenderName = event.PrivateMessage.Sender.DisplayName
		line.Text = event.PrivateMessage.Text
	case wire.EventAction:
		line.Sender = event.Action.Sender.ID
		line.SenderName = event.Action.Sender.DisplayName
		line.Text = event.Action.Text
	case wire.EventPrivateAction:
		line.Sender = event.PrivateAction.Sender.ID
		line.SenderName = event.PrivateAction.Sender.DisplayName
		line.Text = event.PrivateAction.Text
	case wire.EventCommand:
		line.Sender = event.Command.Sender.ID
		line.SenderName = event.Command.Sender.DisplayName
		line.Command = event.Command.Command
		line.Arg = event.Command.Arg
	case wire.EventMention:
		line.Sender = event.Mention.Sender.ID
		line.SenderName = event.Mention.Sender.DisplayName
		line.Text = event.Mention.Text
	case wire.EventParticipantJoined:
		line.Sender = event.ParticipantJoined.User.ID
		line.SenderName = event.ParticipantJoined.User.DisplayName
	case wire.EventParticipantLeft:
		line.Sender = event.ParticipantLeft.User.ID
		line.SenderName = event.ParticipantLeft.User.DisplayName
	case wire.EventStreamError:
		line.Code = string(event.StreamError.Code)
		line.Message = event.StreamError.Message
	}

	return line
}

// NewResumeLine builds the JSON-lines form of the stream-resumed
// marker.
func NewResumeLine(at time.Time, generation uint64) EventLine {
	return EventLine{
		At:         at.UTC().Format(time.RFC3339Nano),
		Type:       "stream_resumed",
		Generation: generation,
	}
}
