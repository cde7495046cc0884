// Copyright 2026 The Petrel Authors
// SPDX-License-Identifier: Apache-2.0

package chat

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"sync"
	"sync/atomic"

	"github.com/petrel-chat/petrel/lib/clock"
	"github.com/petrel-chat/petrel/lib/codec"
	"github.com/petrel-chat/petrel/lib/netutil"
	"github.com/petrel-chat/petrel/wire"
)

// State is the session lifecycle phase.
type State int

const (
	// StateConnected means a live stream is up and calls flow.
	StateConnected State = iota

	// StateReconnecting means the stream is down and the session is
	// redialing with backoff. Calls fail fast; events pause.
	StateReconnecting

	// StateClosed means the session is finished, by Close or by a
	// terminal error. There are no transitions out.
	StateClosed
)

// String returns the lowercase state name.
func (s State) String() string {
	switch s {
	case StateConnected:
		return "connected"
	case StateReconnecting:
		return "reconnecting"
	case StateClosed:
		return "closed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// MessageHandle identifies a message the backend accepted. Feed it to
// MessageOptions.ReplyTo to thread a reply onto it.
type MessageHandle string

// MessageOptions carries the optional parts of a message send. A nil
// options pointer sends plain text.
type MessageOptions struct {
	// Root attaches structured content. The plain Text still rides
	// along for frontends that cannot render the block tree.
	Root *wire.Block

	// ReplyTo references the message this one replies to.
	ReplyTo MessageHandle

	// Tags attaches free-form key/value metadata.
	Tags map[string]string
}

// Session is a live, authenticated stream to a Petrel backend.
//
// A session is one logical stream over any number of physical
// connections. When a connection dies the session moves to
// StateReconnecting, fails the in-flight calls, redials with jittered
// exponential backoff, and on success delivers exactly one
// EventStreamResumed marker before any event from the new connection.
// Events within one generation arrive in backend order; the marker is
// the only signal that events may have been missed in between.
//
// All methods are safe for concurrent use.
type Session struct {
	config  ClientConfig
	dialURL string
	logger  *slog.Logger
	clk     clock.Clock

	// runCtx governs everything the session does after Connect
	// returns. Close cancels it.
	runCtx    context.Context
	runCancel context.CancelFunc

	events chan Event
	done   chan struct{}

	closeOnce sync.Once

	// rng jitters reconnect delays. Run goroutine only.
	rng *rand.Rand

	nextCallID atomic.Uint64

	mu         sync.Mutex
	state      State
	conn       *streamConn
	generation uint64
	hello      wire.HelloBody
	pending    map[string]pendingCall
	err        error
}

// Connect validates config, dials the backend, authenticates, and
// returns a running session. ctx bounds this first dial only; the
// session manages its own lifetime afterwards.
//
// Errors: ConfigError for a bad config (nothing dialed), AuthError
// for a rejected token, ConnectionError for everything in between.
func Connect(ctx context.Context, config ClientConfig) (*Session, error) {
	dialURL, err := config.validate()
	if err != nil {
		return nil, err
	}
	config = config.withDefaults()

	runCtx, runCancel := context.WithCancel(context.Background())
	s := &Session{
		config:    config,
		dialURL:   dialURL,
		logger:    config.Logger,
		clk:       config.Clock,
		runCtx:    runCtx,
		runCancel: runCancel,
		events:    make(chan Event, config.EventBuffer),
		done:      make(chan struct{}),
		rng:       rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())),
		state:     StateConnected,
		pending:   make(map[string]pendingCall),
	}

	conn, err := dialStream(ctx, dialURL, config.Token, &s.config)
	if err != nil {
		runCancel()
		return nil, err
	}
	s.conn = conn
	s.hello = conn.hello
	s.logger.Debug("chat session connected",
		"url", dialURL,
		"server_version", conn.hello.ServerVersion,
		"session_id", conn.hello.SessionID)

	go s.run(conn)
	return s, nil
}

// Events returns the session's event sequence. The channel closes
// when the session ends; events buffered before the end stay
// readable. When the buffer fills, the session stops reading the
// connection rather than dropping events.
func (s *Session) Events() <-chan Event { return s.events }

// State returns the current lifecycle phase.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Generation returns the current stream generation: 0 for the first
// connection, incremented by each successful reconnect.
func (s *Session) Generation() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.generation
}

// Hello returns the backend's handshake details for the current
// connection.
func (s *Session) Hello() wire.HelloBody {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hello
}

// Err returns the terminal error that ended the session: an
// AuthError when the backend rejected the credential during a
// reconnect, nil while the session runs and after a plain Close.
func (s *Session) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Close ends the session: the connection drops, in-flight calls fail
// with ErrClosed, and the Events channel closes. Idempotent; the
// second and later calls are no-ops. Always returns nil.
func (s *Session) Close() error {
	s.closeOnce.Do(func() {
		s.mu.Lock()
		s.state = StateClosed
		s.mu.Unlock()
		s.runCancel()
		<-s.done
	})
	return nil
}

// SendMessage posts text to a channel and returns the backend's
// handle for the accepted message.
//
// Errors: RPCError when the backend refuses the call, AuthError when
// it rejects the token, TransportError when the stream is down or
// fails mid-call, ErrClosed after Close.
func (s *Session) SendMessage(ctx context.Context, channelID, text string, options *MessageOptions) (MessageHandle, error) {
	request := wire.SendMessageRequest{ChannelID: channelID, Text: text}
	if options != nil {
		request.Root = options.Root
		request.ReplyTo = string(options.ReplyTo)
		request.Tags = options.Tags
	}
	var response wire.SendMessageResponse
	if err := s.call(ctx, wire.MethodSendMessage, request, &response); err != nil {
		return "", err
	}
	return MessageHandle(response.MessageID), nil
}

// SendPrivateMessage sends a direct message to a user and returns
// the backend's handle for it. Errors as for SendMessage.
func (s *Session) SendPrivateMessage(ctx context.Context, userID, text string, options *MessageOptions) (MessageHandle, error) {
	request := wire.SendPrivateMessageRequest{UserID: userID, Text: text}
	if options != nil {
		request.Root = options.Root
		request.ReplyTo = string(options.ReplyTo)
		request.Tags = options.Tags
	}
	var response wire.SendMessageResponse
	if err := s.call(ctx, wire.MethodSendPrivateMessage, request, &response); err != nil {
		return "", err
	}
	return MessageHandle(response.MessageID), nil
}

// PerformAction posts an emote-style action to a channel. Actions
// carry no handle; the backend acknowledges and that is all. Errors
// as for SendMessage.
func (s *Session) PerformAction(ctx context.Context, channelID, text string) error {
	request := wire.PerformActionRequest{ChannelID: channelID, Text: text}
	return s.call(ctx, wire.MethodPerformAction, request, nil)
}

// PerformPrivateAction sends an emote-style action directly to a
// user. Errors as for SendMessage.
func (s *Session) PerformPrivateAction(ctx context.Context, userID, text string) error {
	request := wire.PerformPrivateActionRequest{UserID: userID, Text: text}
	return s.call(ctx, wire.MethodPerformPrivateAction, request, nil)
}

// call runs one request/response exchange on the current connection:
// register, write, wait. response may be nil for calls whose result
// carries no body.
func (s *Session) call(ctx context.Context, method wire.Method, request, response any) error {
	op := string(method)
	payload, err := codec.Marshal(request)
	if err != nil {
		return fmt.Errorf("chat: encoding %s request: %w", op, err)
	}

	ticket, err := s.registerCall(op)
	if err != nil {
		return err
	}

	frame := withToken(wire.Frame{
		Type:   wire.FrameCall,
		ID:     ticket.id,
		Method: method,
		Body:   payload,
	}, s.config.Token)
	if err := ticket.conn.writeFrame(&frame); err != nil {
		s.dropCall(ticket.id)
		s.failGeneration(ticket.generation, fmt.Errorf("writing %s call: %w", op, err))
		return &TransportError{Op: op, Err: err}
	}

	select {
	case result := <-ticket.result:
		if result.err != nil {
			return result.err
		}
		if err := resultError(op, result.frame.Code, result.frame.Message); err != nil {
			if IsTransportError(err) {
				// The backend says the channel is suspect. Treat it
				// like a local transport failure and resync.
				s.failGeneration(ticket.generation, fmt.Errorf("backend reported %s for %s", result.frame.Code, op))
			}
			return err
		}
		if response == nil || len(result.frame.Body) == 0 {
			return nil
		}
		if err := codec.Unmarshal(result.frame.Body, response); err != nil {
			return &DecodeError{Generation: ticket.generation, Err: fmt.Errorf("%s response body: %w", op, err)}
		}
		return nil

	case <-s.clk.After(s.config.CallTimeout):
		s.dropCall(ticket.id)
		s.failGeneration(ticket.generation, fmt.Errorf("%s call timed out after %s", op, s.config.CallTimeout))
		return &TransportError{Op: op, Err: fmt.Errorf("no result within %s", s.config.CallTimeout)}

	case <-ctx.Done():
		s.dropCall(ticket.id)
		return ctx.Err()
	}
}

// failGeneration severs the connection that carried the given
// generation. Late observers of the same failure, and failures
// reported against an already-replaced generation, are no-ops; any
// number of concurrent callers collapse into one reconnect cycle.
func (s *Session) failGeneration(generation uint64, cause error) {
	s.mu.Lock()
	if s.state != StateConnected || s.generation != generation || s.conn == nil {
		s.mu.Unlock()
		return
	}
	conn := s.conn
	s.mu.Unlock()

	s.logger.Warn("chat severing stream", "generation", generation, "cause", cause)
	conn.close()
}

// run owns the session lifecycle. It watches the current connection,
// and when the connection dies it tears the generation down, fails
// the in-flight calls, and redials until it has a new stream or the
// session ends. Every state transition happens on this goroutine.
func (s *Session) run(conn *streamConn) {
	defer close(s.done)

	generation := uint64(0)
	for {
		readDone := make(chan error, 1)
		go func() {
			readDone <- s.readLoop(conn, generation)
		}()
		stopPing := make(chan struct{})
		pingDone := make(chan struct{})
		go func() {
			defer close(pingDone)
			s.keepalive(conn, stopPing)
		}()

		var cause error
		select {
		case cause = <-readDone:
		case <-s.runCtx.Done():
			conn.close()
			<-readDone
		}
		close(stopPing)
		<-pingDone
		conn.close()

		if s.runCtx.Err() != nil {
			s.finish(nil)
			return
		}

		// The generation is dead. Fail its calls and go find a new
		// connection.
		s.mu.Lock()
		s.state = StateReconnecting
		s.conn = nil
		s.failPendingLocked(func(op string) error {
			return &TransportError{Op: op, Err: errSevered}
		})
		s.mu.Unlock()
		if netutil.IsExpectedCloseError(cause) {
			// Our own teardown after failGeneration, which already
			// logged the real cause, or a clean server goodbye.
			s.logger.Debug("chat stream closed", "generation", generation, "cause", cause)
		} else {
			s.logger.Warn("chat stream severed", "generation", generation, "error", cause)
		}

		next := s.redial(&generation)
		if next == nil {
			return
		}
		conn = next
	}
}

// redial reestablishes the stream: jittered exponential backoff,
// fresh dial, repeat until success, a terminal auth rejection, or
// Close. On success it installs the new connection, bumps the
// generation, and delivers the stream-resumed marker before any
// event from the new connection. Returns nil when the session ended
// instead.
func (s *Session) redial(generation *uint64) *streamConn {
	for attempt := 1; ; attempt++ {
		delay := nextBackoffDelay(
			s.config.InitialBackoff,
			s.config.MaxBackoff,
			s.config.BackoffMultiplier,
			attempt,
			s.rng,
		)
		s.logger.Info("chat reconnecting", "attempt", attempt, "delay", delay)
		select {
		case <-s.clk.After(delay):
		case <-s.runCtx.Done():
			s.finish(nil)
			return nil
		}

		conn, err := dialStream(s.runCtx, s.dialURL, s.config.Token, &s.config)
		if err != nil {
			if s.runCtx.Err() != nil {
				s.finish(nil)
				return nil
			}
			if IsAuthError(err) {
				// The credential is no longer welcome. Retrying
				// cannot help, so the session ends with the cause
				// on Err.
				s.logger.Error("chat credential rejected during reconnect", "error", err)
				s.finish(err)
				return nil
			}
			s.logger.Warn("chat reconnect failed", "attempt", attempt, "error", err)
			continue
		}

		*generation++
		s.mu.Lock()
		s.conn = conn
		s.generation = *generation
		s.hello = conn.hello
		s.state = StateConnected
		s.mu.Unlock()
		s.logger.Info("chat stream resumed",
			"generation", *generation,
			"session_id", conn.hello.SessionID)

		marker := Event{Type: EventStreamResumed, Generation: *generation}
		select {
		case s.events <- marker:
		case <-s.runCtx.Done():
			conn.close()
			s.finish(nil)
			return nil
		}
		return conn
	}
}

// finish ends the session: terminal state, voided calls, closed
// events channel. Runs on the run goroutine, exactly once, as its
// last act.
func (s *Session) finish(cause error) {
	s.runCancel()
	s.mu.Lock()
	s.state = StateClosed
	s.conn = nil
	if cause != nil && s.err == nil {
		s.err = cause
	}
	s.failPendingLocked(func(string) error { return ErrClosed })
	s.mu.Unlock()
	close(s.events)
}

// readLoop drains one connection: results resolve calls, events go
// to the application in arrival order, anything malformed kills the
// generation. Returns the error that ended the connection.
func (s *Session) readLoop(conn *streamConn, generation uint64) error {
	for {
		data, err := conn.readMessage()
		if err != nil {
			return err
		}
		var frame wire.Frame
		if err := codec.Unmarshal(data, &frame); err != nil {
			return &DecodeError{Generation: generation, Err: err}
		}
		switch frame.Type {
		case wire.FrameResult:
			if err := frame.Validate(); err != nil {
				return &DecodeError{Generation: generation, Err: err}
			}
			s.resolveCall(&frame)

		case wire.FrameEvent:
			if err := frame.Validate(); err != nil {
				return &DecodeError{Generation: generation, Err: err}
			}
			event := Event{
				Type:       frame.Event.Type,
				Generation: generation,
				Seq:        frame.Seq,
				Payload:    frame.Event,
			}
			select {
			case s.events <- event:
			case <-s.runCtx.Done():
				return s.runCtx.Err()
			}

		case wire.FrameHello:
			// A duplicate hello is harmless. Drop it.

		default:
			s.logger.Debug("chat skipping unknown frame", "type", frame.Type)
		}
	}
}

// keepalive pings the connection on a steady interval. Pongs extend
// the read deadline in the connection's pong handler; when they
// stop, the deadline expires and the read loop fails the
// generation.
func (s *Session) keepalive(conn *streamConn, stop <-chan struct{}) {
	ticker := s.clk.NewTicker(s.config.PingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			if err := conn.writePing(); err != nil {
				return
			}
		case <-stop:
			return
		}
	}
}
