// Copyright 2026 The Petrel Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/petrel-chat/petrel/lib/codec"
	"github.com/petrel-chat/petrel/lib/netutil"
	"github.com/petrel-chat/petrel/lib/version"
	"github.com/petrel-chat/petrel/wire"
)

// writeTimeout bounds a single frame or control write.
const writeTimeout = 10 * time.Second

// echoSender is the synthetic author of echoed traffic.
var echoSender = wire.User{ID: "u-mock", DisplayName: "mock"}

// mockServer speaks the Petrel stream protocol: bearer-checked
// websocket upgrade, hello frame, CBOR call and result frames, and
// pushed events. One instance serves any number of concurrent
// connections; scenario rule state is shared across all of them.
type mockServer struct {
	token        string
	scenario     *scenario
	logger       *slog.Logger
	pingInterval time.Duration
	idleTimeout  time.Duration

	upgrader websocket.Upgrader

	// sessions numbers accepted connections for hello session ids.
	// messages numbers generated message ids, shared across
	// connections the way a real backend's would be.
	sessions atomic.Uint64
	messages atomic.Uint64

	mu    sync.Mutex
	conns map[*mockConn]struct{}
}

func newMockServer(token string, sc *scenario, logger *slog.Logger, pingInterval, idleTimeout time.Duration) *mockServer {
	return &mockServer{
		token:        token,
		scenario:     sc,
		logger:       logger,
		pingInterval: pingInterval,
		idleTimeout:  idleTimeout,
		conns:        make(map[*mockConn]struct{}),
	}
}

// ServeHTTP accepts one client stream: credential check, upgrade,
// hello, then the read loop until the connection dies.
func (s *mockServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Header.Get("Authorization") != "Bearer "+s.token {
		s.logger.Warn("rejecting stream open with bad credential", "remote", r.RemoteAddr)
		http.Error(w, "bad token", http.StatusUnauthorized)
		return
	}
	ws, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote the error response.
		s.logger.Warn("websocket upgrade failed", "remote", r.RemoteAddr, "error", err)
		return
	}

	sessionID := fmt.Sprintf("mock-%d", s.sessions.Add(1))
	logger := s.logger.With("session", sessionID, "remote", r.RemoteAddr)
	conn := newMockConn(ws, logger)
	defer conn.close()

	helloBody, err := codec.Marshal(wire.HelloBody{
		ServerVersion: "petrel-mockd " + version.Info(),
		SessionID:     sessionID,
	})
	if err != nil {
		logger.Error("encoding hello", "error", err)
		return
	}

	// Hello and registration happen atomically with respect to
	// broadcasts: an echoed event never precedes a connection's hello,
	// and a connection whose hello the client has seen never misses a
	// later broadcast.
	s.mu.Lock()
	if err := conn.writeFrame(&wire.Frame{Type: wire.FrameHello, Body: helloBody}); err != nil {
		s.mu.Unlock()
		logger.Warn("writing hello", "error", err)
		return
	}
	s.conns[conn] = struct{}{}
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		delete(s.conns, conn)
		s.mu.Unlock()
	}()

	logger.Info("session connected")
	s.startSchedules(conn)
	go s.pingLoop(conn, logger)

	s.readLoop(conn, logger)
	logger.Info("session disconnected")
}

// readLoop consumes frames until the connection dies. It runs on the
// HTTP handler goroutine, and per-call work happens inline: a scripted
// delay holds up later calls on the same connection, which is the
// point of scripting one.
func (s *mockServer) readLoop(conn *mockConn, logger *slog.Logger) {
	extend := func() {
		conn.ws.SetReadDeadline(time.Now().Add(s.idleTimeout))
	}
	extend()
	conn.ws.SetPongHandler(func(string) error {
		extend()
		return nil
	})

	for {
		messageType, data, err := conn.ws.ReadMessage()
		if err != nil {
			if netutil.IsExpectedCloseError(err) {
				logger.Debug("read loop ended", "error", err)
			} else {
				logger.Warn("read loop failed", "error", err)
			}
			return
		}
		extend()
		if messageType != websocket.BinaryMessage {
			continue
		}
		s.handleData(conn, data, logger)
	}
}

// handleData routes one inbound binary message. Junk and non-call
// frames are dropped; a real backend would do the same rather than
// sever the stream over them.
func (s *mockServer) handleData(conn *mockConn, data []byte, logger *slog.Logger) {
	var frame wire.Frame
	if err := codec.Unmarshal(data, &frame); err != nil {
		logger.Warn("dropping undecodable frame", "error", err)
		return
	}
	if frame.Type != wire.FrameCall {
		return
	}
	if err := frame.Validate(); err != nil {
		logger.Warn("dropping invalid call", "error", err)
		return
	}
	if frame.Token != s.token {
		logger.Warn("call with bad credential", "method", frame.Method)
		conn.sendResult(frame.ID, wire.CodeUnauthenticated, "bad token", nil)
		return
	}

	if rule := s.scenario.match(frame.Method, callChannel(frame.Body)); rule != nil {
		s.applyRule(conn, &frame, rule, logger)
		return
	}
	s.handleCall(conn, &frame, logger)
}

// applyRule answers a call according to a matched scenario rule.
func (s *mockServer) applyRule(conn *mockConn, frame *wire.Frame, rule *responseRule, logger *slog.Logger) {
	if rule.delay > 0 {
		time.Sleep(rule.delay)
	}
	if rule.Drop {
		logger.Info("dropping call per scenario", "method", frame.Method, "id", frame.ID)
		return
	}

	code := wire.Code(rule.Code)
	if code == "" {
		code = wire.CodeOK
	}
	logger.Info("scripted result", "method", frame.Method, "code", code)
	if !code.OK() {
		conn.sendResult(frame.ID, code, rule.Message, nil)
		return
	}

	switch frame.Method {
	case wire.MethodSendMessage, wire.MethodSendPrivateMessage:
		messageID := rule.MessageID
		if messageID == "" {
			messageID = s.nextMessageID()
		}
		conn.sendResult(frame.ID, wire.CodeOK, "", wire.SendMessageResponse{MessageID: messageID})
	default:
		conn.sendResult(frame.ID, wire.CodeOK, "", nil)
	}
}

// handleCall is the default handling when no rule matched: sends
// succeed with a generated message id, actions succeed with an empty
// body, unknown methods fail with not_found. Echo mode replays the
// traffic as events.
func (s *mockServer) handleCall(conn *mockConn, frame *wire.Frame, logger *slog.Logger) {
	switch frame.Method {
	case wire.MethodSendMessage:
		var request wire.SendMessageRequest
		if err := codec.Unmarshal(frame.Body, &request); err != nil {
			conn.sendResult(frame.ID, wire.CodeInvalidArgument, "malformed send_message body", nil)
			return
		}
		if request.ChannelID == "" || request.Text == "" {
			conn.sendResult(frame.ID, wire.CodeInvalidArgument, "send_message needs channel_id and text", nil)
			return
		}
		messageID := s.nextMessageID()
		logger.Info("message accepted", "channel", request.ChannelID, "message_id", messageID)
		conn.sendResult(frame.ID, wire.CodeOK, "", wire.SendMessageResponse{MessageID: messageID})
		if s.scenario.Echo {
			s.broadcast(&wire.Event{
				Type: wire.EventMessage,
				Message: &wire.MessageEvent{
					ChannelID: request.ChannelID,
					Sender:    echoSender,
					Text:      request.Text,
					Root:      request.Root,
					MessageID: messageID,
				},
			})
		}

	case wire.MethodSendPrivateMessage:
		var request wire.SendPrivateMessageRequest
		if err := codec.Unmarshal(frame.Body, &request); err != nil {
			conn.sendResult(frame.ID, wire.CodeInvalidArgument, "malformed send_private_message body", nil)
			return
		}
		if request.UserID == "" || request.Text == "" {
			conn.sendResult(frame.ID, wire.CodeInvalidArgument, "send_private_message needs user_id and text", nil)
			return
		}
		messageID := s.nextMessageID()
		logger.Info("private message accepted", "user", request.UserID, "message_id", messageID)
		conn.sendResult(frame.ID, wire.CodeOK, "", wire.SendMessageResponse{MessageID: messageID})
		if s.scenario.Echo {
			// Private traffic echoes to the sending connection only.
			conn.sendEvent(&wire.Event{
				Type: wire.EventPrivateMessage,
				PrivateMessage: &wire.PrivateMessageEvent{
					Sender:    echoSender,
					Text:      request.Text,
					Root:      request.Root,
					MessageID: messageID,
				},
			})
		}

	case wire.MethodPerformAction:
		var request wire.PerformActionRequest
		if err := codec.Unmarshal(frame.Body, &request); err != nil {
			conn.sendResult(frame.ID, wire.CodeInvalidArgument, "malformed perform_action body", nil)
			return
		}
		if request.ChannelID == "" || request.Text == "" {
			conn.sendResult(frame.ID, wire.CodeInvalidArgument, "perform_action needs channel_id and text", nil)
			return
		}
		logger.Info("action accepted", "channel", request.ChannelID)
		conn.sendResult(frame.ID, wire.CodeOK, "", nil)
		if s.scenario.Echo {
			s.broadcast(&wire.Event{
				Type:   wire.EventAction,
				Action: &wire.ActionEvent{ChannelID: request.ChannelID, Sender: echoSender, Text: request.Text},
			})
		}

	case wire.MethodPerformPrivateAction:
		var request wire.PerformPrivateActionRequest
		if err := codec.Unmarshal(frame.Body, &request); err != nil {
			conn.sendResult(frame.ID, wire.CodeInvalidArgument, "malformed perform_private_action body", nil)
			return
		}
		if request.UserID == "" || request.Text == "" {
			conn.sendResult(frame.ID, wire.CodeInvalidArgument, "perform_private_action needs user_id and text", nil)
			return
		}
		logger.Info("private action accepted", "user", request.UserID)
		conn.sendResult(frame.ID, wire.CodeOK, "", nil)
		if s.scenario.Echo {
			conn.sendEvent(&wire.Event{
				Type:          wire.EventPrivateAction,
				PrivateAction: &wire.PrivateActionEvent{Sender: echoSender, Text: request.Text},
			})
		}

	default:
		logger.Warn("unknown method", "method", frame.Method)
		conn.sendResult(frame.ID, wire.CodeNotFound, fmt.Sprintf("unknown method %q", frame.Method), nil)
	}
}

func (s *mockServer) nextMessageID() string {
	return fmt.Sprintf("m-%d", s.messages.Add(1))
}

// broadcast pushes one event to every live connection, each stamped
// with that connection's own sequence number.
func (s *mockServer) broadcast(event *wire.Event) {
	s.mu.Lock()
	conns := make([]*mockConn, 0, len(s.conns))
	for conn := range s.conns {
		conns = append(conns, conn)
	}
	s.mu.Unlock()

	for _, conn := range conns {
		conn.sendEvent(event)
	}
}

// startSchedules launches the scenario's event scripts against one
// connection. Timers run relative to accept time and stop when the
// connection closes.
func (s *mockServer) startSchedules(conn *mockConn) {
	for _, script := range s.scenario.Events {
		go runSchedule(conn, script)
	}
}

func runSchedule(conn *mockConn, script *eventScript) {
	delay := script.after
	if script.After == "" {
		delay = script.every
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()

	for {
		select {
		case <-conn.closed:
			return
		case <-timer.C:
			conn.sendEvent(script.event())
			if script.every <= 0 {
				return
			}
			timer.Reset(script.every)
		}
	}
}

// pingLoop keeps idle connections alive. Clients answer with pongs,
// which extend the read deadline in readLoop's pong handler.
func (s *mockServer) pingLoop(conn *mockConn, logger *slog.Logger) {
	ticker := time.NewTicker(s.pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-conn.closed:
			return
		case <-ticker.C:
			deadline := time.Now().Add(writeTimeout)
			if err := conn.ws.WriteControl(websocket.PingMessage, nil, deadline); err != nil {
				logger.Debug("ping failed", "error", err)
				return
			}
		}
	}
}

// closeAll severs every live connection. Used at shutdown after the
// listener stops accepting.
func (s *mockServer) closeAll() {
	s.mu.Lock()
	conns := make([]*mockConn, 0, len(s.conns))
	for conn := range s.conns {
		conns = append(conns, conn)
	}
	s.mu.Unlock()

	for _, conn := range conns {
		conn.close()
	}
}

// callChannel extracts the target channel from a call body for rule
// matching. Bodies without one (private sends) yield "".
func callChannel(body codec.RawMessage) string {
	if len(body) == 0 {
		return ""
	}
	var peek struct {
		ChannelID string `cbor:"channel_id"`
	}
	if err := codec.Unmarshal(body, &peek); err != nil {
		return ""
	}
	return peek.ChannelID
}

// mockConn is the server side of one accepted stream. Writes are
// serialized; the read loop owns reads. Event sequence numbers count
// per connection, as the protocol requires.
type mockConn struct {
	ws     *websocket.Conn
	logger *slog.Logger

	seq atomic.Uint64

	writeMu   sync.Mutex
	closed    chan struct{}
	closeOnce sync.Once
}

func newMockConn(ws *websocket.Conn, logger *slog.Logger) *mockConn {
	return &mockConn{ws: ws, logger: logger, closed: make(chan struct{})}
}

// writeFrame marshals and sends one frame. Safe for concurrent use.
func (c *mockConn) writeFrame(frame *wire.Frame) error {
	data, err := codec.Marshal(frame)
	if err != nil {
		return fmt.Errorf("encoding %s frame: %w", frame.Type, err)
	}
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if err := c.ws.SetWriteDeadline(time.Now().Add(writeTimeout)); err != nil {
		return err
	}
	return c.ws.WriteMessage(websocket.BinaryMessage, data)
}

// sendResult answers a call. Write failures are logged, not returned:
// when a result cannot be written the read loop is about to notice the
// dead connection anyway.
func (c *mockConn) sendResult(id string, code wire.Code, message string, body any) {
	frame := wire.Frame{Type: wire.FrameResult, ID: id, Code: code, Message: message}
	if body != nil {
		encoded, err := codec.Marshal(body)
		if err != nil {
			c.logger.Error("encoding result body", "error", err)
			return
		}
		frame.Body = encoded
	}
	if err := c.writeFrame(&frame); err != nil {
		c.logger.Debug("writing result", "error", err)
	}
}

// sendEvent pushes one event with the connection's next sequence
// number.
func (c *mockConn) sendEvent(event *wire.Event) {
	frame := wire.Frame{Type: wire.FrameEvent, Seq: c.seq.Add(1), Event: event}
	if err := c.writeFrame(&frame); err != nil {
		c.logger.Debug("writing event", "error", err)
	}
}

// close severs the connection and stops its schedule and ping
// goroutines. Idempotent.
func (c *mockConn) close() {
	c.closeOnce.Do(func() {
		close(c.closed)
		c.ws.Close()
	})
}
