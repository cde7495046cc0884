// Copyright 2026 The Petrel Authors
// SPDX-License-Identifier: Apache-2.0

package chat

import (
	"errors"
	"fmt"

	"github.com/petrel-chat/petrel/wire"
)

// ErrClosed is returned by session operations after Close.
var ErrClosed = errors.New("chat: session is closed")

// errSevered voids in-flight calls when their connection dies. The
// call may or may not have reached the backend; the caller decides
// whether to retry.
var errSevered = errors.New("stream severed while the call was in flight")

// ConfigError reports an invalid ClientConfig field. Connect returns
// it before touching the network.
type ConfigError struct {
	// Field is the ClientConfig field that failed validation.
	Field string

	// Reason describes the problem.
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("chat: invalid config: %s: %s", e.Field, e.Reason)
}

// ConnectionError reports a failure to establish a connection:
// unreachable host, TLS failure, or a broken handshake. The session
// retries these during reconnection; Connect returns them directly.
type ConnectionError struct {
	// URL is the dial target.
	URL string

	// Err is the underlying failure.
	Err error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("chat: connecting to %s: %v", e.URL, e.Err)
}

func (e *ConnectionError) Unwrap() error { return e.Err }

// TransportError reports that an established connection failed under
// an operation, or that a call was refused because the stream is
// down. The call's fate is unknown; it may or may not have reached
// the backend.
type TransportError struct {
	// Op is the operation that hit the failure.
	Op string

	// Err is the underlying cause. Nil when the call was refused
	// because the session was already reconnecting.
	Err error
}

func (e *TransportError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("chat: %s: stream is down, reconnecting", e.Op)
	}
	return fmt.Sprintf("chat: %s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// AuthError reports a rejected credential. Terminal: the same token
// would be rejected again, so the session never retries after one.
type AuthError struct {
	// Message is the backend's rejection detail, when it sent one.
	Message string
}

func (e *AuthError) Error() string {
	if e.Message == "" {
		return "chat: authentication rejected"
	}
	return fmt.Sprintf("chat: authentication rejected: %s", e.Message)
}

// RPCError reports a call the backend received and refused. The
// stream stays up; only the one call failed.
type RPCError struct {
	// Code is the backend's status code.
	Code wire.Code

	// Message is the backend's human-readable detail.
	Message string
}

func (e *RPCError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("chat: call failed: %s", e.Code)
	}
	return fmt.Sprintf("chat: call failed: %s: %s", e.Code, e.Message)
}

// DecodeError reports a malformed inbound frame. Fatal to the stream
// generation that produced it: the session drops the connection and
// resynchronizes through a reconnect rather than guessing where the
// next frame starts.
type DecodeError struct {
	// Generation is the stream generation that received the bad
	// frame.
	Generation uint64

	// Err is the decoder's complaint.
	Err error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("chat: malformed frame on generation %d: %v", e.Generation, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// IsConfigError reports whether err is a ConfigError.
func IsConfigError(err error) bool {
	var configError *ConfigError
	return errors.As(err, &configError)
}

// IsConnectionError reports whether err is a ConnectionError.
func IsConnectionError(err error) bool {
	var connectionError *ConnectionError
	return errors.As(err, &connectionError)
}

// IsAuthError reports whether err is an AuthError.
func IsAuthError(err error) bool {
	var authError *AuthError
	return errors.As(err, &authError)
}

// IsTransportError reports whether err is a TransportError.
func IsTransportError(err error) bool {
	var transportError *TransportError
	return errors.As(err, &transportError)
}

// IsRPCError reports whether err is an RPCError.
func IsRPCError(err error) bool {
	var rpcError *RPCError
	return errors.As(err, &rpcError)
}

// IsDecodeError reports whether err is a DecodeError.
func IsDecodeError(err error) bool {
	var decodeError *DecodeError
	return errors.As(err, &decodeError)
}

// resultError maps a result frame's status to the error taxonomy.
// Unauthenticated becomes AuthError: the token is bad and no retry
// can fix it. Unavailable and deadline_exceeded become
// TransportError: the channel, not the call, is suspect. Every other
// non-ok code is an RPCError scoped to the one call.
func resultError(op string, code wire.Code, message string) error {
	switch code {
	case wire.CodeOK:
		return nil
	case wire.CodeUnauthenticated:
		return &AuthError{Message: message}
	case wire.CodeUnavailable, wire.CodeDeadlineExceeded:
		detail := string(code)
		if message != "" {
			detail += ": " + message
		}
		return &TransportError{Op: op, Err: errors.New("backend reported " + detail)}
	default:
		return &RPCError{Code: code, Message: message}
	}
}
