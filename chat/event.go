// Copyright 2026 The Petrel Authors
// SPDX-License-Identifier: Apache-2.0

package chat

import "github.com/petrel-chat/petrel/wire"

// EventStreamResumed is the type of the synthetic event delivered
// after a reconnect. It never appears on the wire; it marks the point
// in the event sequence where a connection was lost and events may
// have been missed.
const EventStreamResumed wire.EventType = "stream_resumed"

// Event is one entry in the session's event sequence: a backend
// event, or a synthetic stream-resumed marker.
type Event struct {
	// Type discriminates the event. EventStreamResumed for synthetic
	// markers; a wire event type otherwise.
	Type wire.EventType

	// Generation is the stream generation that delivered the event.
	// The first connection is generation 0; each reconnect
	// increments it.
	Generation uint64

	// Seq is the backend's stream position for the event. Zero for
	// synthetic markers, which have no wire presence.
	Seq uint64

	// Payload is the decoded wire event. Nil for synthetic markers.
	Payload *wire.Event
}

// Resumed reports whether the event is a synthetic reconnection
// marker rather than a backend event.
func (e Event) Resumed() bool { return e.Type == EventStreamResumed }

// ChannelID returns the channel the event belongs to, or "" for
// events without channel scope, including synthetic markers.
func (e Event) ChannelID() string {
	if e.Payload == nil {
		return ""
	}
	return e.Payload.ChannelID()
}
