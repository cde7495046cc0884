// Copyright 2026 The Petrel Authors
// SPDX-License-Identifier: Apache-2.0

package chat

import (
	"fmt"

	"github.com/petrel-chat/petrel/wire"
)

// Call correlation. Every call frame carries a session-unique ID and
// the result frame echoes it back. IDs count up monotonically for the
// life of the session, never resetting on reconnect, so a result that
// straggles in from a previous generation can never match a call from
// the current one.

// callResult is what a waiter receives: the result frame, or the
// teardown error that voided the call.
type callResult struct {
	frame *wire.Frame
	err   error
}

// pendingCall tracks one in-flight call.
type pendingCall struct {
	op     string
	result chan callResult
}

// callTicket is everything a caller needs to finish one call: the
// assigned ID, the connection and generation it went out on, and the
// channel its result arrives on.
type callTicket struct {
	id         string
	conn       *streamConn
	generation uint64
	result     chan callResult
}

// registerCall allocates a call ID and waiter on the current
// connection. Fails with ErrClosed after Close and with a
// TransportError while the stream is down; calls never queue across
// an outage.
func (s *Session) registerCall(op string) (callTicket, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch s.state {
	case StateClosed:
		return callTicket{}, ErrClosed
	case StateReconnecting:
		return callTicket{}, &TransportError{Op: op}
	}
	ticket := callTicket{
		id:         fmt.Sprintf("c-%d", s.nextCallID.Add(1)),
		conn:       s.conn,
		generation: s.generation,
		result:     make(chan callResult, 1),
	}
	s.pending[ticket.id] = pendingCall{op: op, result: ticket.result}
	return ticket, nil
}

// dropCall forgets a pending call once its waiter has stopped
// waiting. If the result ever arrives it is discarded as stale.
func (s *Session) dropCall(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.pending, id)
}

// resolveCall hands a result frame to its waiter. Results nobody is
// waiting for (the call timed out, was cancelled, or died with an
// earlier generation) are stale; they are logged and dropped.
func (s *Session) resolveCall(frame *wire.Frame) {
	s.mu.Lock()
	call, known := s.pending[frame.ID]
	if known {
		delete(s.pending, frame.ID)
	}
	s.mu.Unlock()
	if !known {
		s.logger.Debug("chat discarding stale result", "call_id", frame.ID, "code", frame.Code)
		return
	}
	call.result <- callResult{frame: frame}
}

// failPendingLocked voids every in-flight call. fail builds the
// error from the call's operation name. Caller holds s.mu.
func (s *Session) failPendingLocked(fail func(op string) error) {
	for _, call := range s.pending {
		call.result <- callResult{err: fail(call.op)}
	}
	clear(s.pending)
}
