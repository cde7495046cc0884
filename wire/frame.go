// Copyright 2026 The Petrel Authors
// SPDX-License-Identifier: Apache-2.0

package wire

import (
	"errors"
	"fmt"

	"github.com/petrel-chat/petrel/lib/codec"
)

// FrameType discriminates the frame envelope. Receivers skip frames
// with types they do not recognize.
type FrameType string

const (
	// FrameHello is the server's first frame on a new connection.
	FrameHello FrameType = "hello"

	// FrameCall is a client request.
	FrameCall FrameType = "call"

	// FrameResult answers a call.
	FrameResult FrameType = "result"

	// FrameEvent is a server push.
	FrameEvent FrameType = "event"
)

// Validation sentinels. Wrapped with detail by Validate; match with
// errors.Is.
var (
	ErrInvalidFrame = errors.New("wire: invalid frame")
	ErrInvalidEvent = errors.New("wire: invalid event")
)

// Frame is the envelope for every message on a Petrel stream. Field
// applicability depends on Type; Validate enforces it.
type Frame struct {
	// Type selects the envelope variant.
	Type FrameType `cbor:"t"`

	// ID correlates a result with its call. Assigned by the client,
	// unique within a connection.
	ID string `cbor:"id,omitempty"`

	// Token is the bearer credential on a call frame. Never set on
	// any other frame type, and never recorded in captures.
	Token string `cbor:"token,omitempty"`

	// Method names the operation of a call frame.
	Method Method `cbor:"method,omitempty"`

	// Code is the status of a result frame.
	Code Code `cbor:"code,omitempty"`

	// Message is human-readable detail on a non-ok result.
	Message string `cbor:"message,omitempty"`

	// Seq is the stream position of an event frame. Strictly
	// increasing within one connection.
	Seq uint64 `cbor:"seq,omitempty"`

	// Event is the payload of an event frame.
	Event *Event `cbor:"event,omitempty"`

	// Body carries the method payload of a call, the response payload
	// of an ok result, or server details on a hello.
	Body codec.RawMessage `cbor:"body,omitempty"`
}

// Validate checks structural invariants for the frame's type. It does
// not decode Body; payload validation happens when the body is
// decoded against its method's request or response type.
func (f *Frame) Validate() error {
	switch f.Type {
	case FrameHello:
		return nil

	case FrameCall:
		if f.ID == "" {
			return fmt.Errorf("%w: call frame missing id", ErrInvalidFrame)
		}
		if f.Method == "" {
			return fmt.Errorf("%w: call frame missing method", ErrInvalidFrame)
		}
		return nil

	case FrameResult:
		if f.ID == "" {
			return fmt.Errorf("%w: result frame missing id", ErrInvalidFrame)
		}
		if f.Code == "" {
			return fmt.Errorf("%w: result frame missing code", ErrInvalidFrame)
		}
		return nil

	case FrameEvent:
		if f.Event == nil {
			return fmt.Errorf("%w: event frame missing payload", ErrInvalidFrame)
		}
		return f.Event.Validate()

	case "":
		return fmt.Errorf("%w: missing frame type", ErrInvalidFrame)

	default:
		// Unknown types are valid on the wire; receivers skip them.
		return nil
	}
}

// HelloBody is the payload of a hello frame.
type HelloBody struct {
	// ServerVersion identifies the server build, for diagnostics.
	ServerVersion string `cbor:"server_version,omitempty"`

	// SessionID names the server-side session, for log correlation.
	SessionID string `cbor:"session_id,omitempty"`
}
