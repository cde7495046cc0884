// Copyright 2026 The Petrel Authors
// SPDX-License-Identifier: Apache-2.0

package wire

// Method names a call operation. Methods are wire constants.
type Method string

const (
	// MethodSendMessage posts a message to a channel.
	MethodSendMessage Method = "send_message"

	// MethodSendPrivateMessage sends a direct message to a user.
	MethodSendPrivateMessage Method = "send_private_message"

	// MethodPerformAction posts an emote-style action to a channel.
	MethodPerformAction Method = "perform_action"

	// MethodPerformPrivateAction sends an emote-style action directly
	// to a user.
	MethodPerformPrivateAction Method = "perform_private_action"
)

// SendMessageRequest is the body of a send_message call.
type SendMessageRequest struct {
	// ChannelID addresses the target channel.
	ChannelID string `cbor:"channel_id"`

	// Text is the plain rendering of the message. Always set, even
	// when Root carries rich content, so text-only backends and
	// notification surfaces have something to show.
	Text string `cbor:"text"`

	// Root optionally carries the rich-content form of the message.
	Root *Block `cbor:"root,omitempty"`

	// ReplyTo references the message this one replies to, when the
	// backend supports threading.
	ReplyTo string `cbor:"reply_to,omitempty"`

	// Tags attach free-form metadata the server passes through to
	// other clients (thread hints, client names).
	Tags map[string]string `cbor:"tags,omitempty"`
}

// SendMessageResponse is the body of an ok result for send_message
// and send_private_message.
type SendMessageResponse struct {
	// MessageID is the server-assigned identity of the delivered
	// message.
	MessageID string `cbor:"message_id"`
}

// SendPrivateMessageRequest is the body of a send_private_message
// call.
type SendPrivateMessageRequest struct {
	// UserID addresses the recipient.
	UserID string `cbor:"user_id"`

	// Text is the plain rendering of the message.
	Text string `cbor:"text"`

	// Root optionally carries the rich-content form of the message.
	Root *Block `cbor:"root,omitempty"`

	// ReplyTo references the message this one replies to.
	ReplyTo string `cbor:"reply_to,omitempty"`

	// Tags attach free-form metadata.
	Tags map[string]string `cbor:"tags,omitempty"`
}

// PerformActionRequest is the body of a perform_action call. Actions
// have no rich-content form and no server-assigned identity.
type PerformActionRequest struct {
	// ChannelID addresses the target channel.
	ChannelID string `cbor:"channel_id"`

	// Text is the action text ("waves", "rolls a 7").
	Text string `cbor:"text"`
}

// PerformPrivateActionRequest is the body of a perform_private_action
// call.
type PerformPrivateActionRequest struct {
	// UserID addresses the recipient.
	UserID string `cbor:"user_id"`

	// Text is the action text.
	Text string `cbor:"text"`
}
