// Copyright 2026 The Petrel Authors
// SPDX-License-Identifier: Apache-2.0

// Package netutil provides connection error classification shared by
// the chat session and the mock backend.
//
// [IsExpectedCloseError] distinguishes normal connection teardown from
// errors worth surfacing. The session reader hits these constantly: a
// deliberate Close, a server restart, or a dropped TCP connection all
// surface as read errors, and only some of them deserve a warning.
package netutil

import (
	"errors"
	"io"
	"net"
	"syscall"

	"github.com/gorilla/websocket"
)

// IsExpectedCloseError reports whether err is a normal connection
// termination: EOF, closed connection, broken pipe, connection reset,
// or a clean WebSocket close handshake. These occur during ordinary
// teardown when one side disconnects and the other side's in-flight
// read or write fails as a result.
//
// Abnormal WebSocket closes (policy violation, internal server error)
// are not expected; they indicate a protocol-level failure and should
// reach the caller intact.
func IsExpectedCloseError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, io.EOF) || errors.Is(err, net.ErrClosed) {
		return true
	}
	if websocket.IsCloseError(err,
		websocket.CloseNormalClosure,
		websocket.CloseGoingAway,
		websocket.CloseNoStatusReceived) {
		return true
	}
	var errno syscall.Errno
	if errors.As(err, &errno) {
		return errno == syscall.EPIPE || errno == syscall.ECONNRESET
	}
	return false
}
