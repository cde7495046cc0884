// Copyright 2026 The Petrel Authors
// SPDX-License-Identifier: Apache-2.0

package chat

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/petrel-chat/petrel/lib/codec"
	"github.com/petrel-chat/petrel/lib/testutil"
	"github.com/petrel-chat/petrel/wire"
)

const testToken = "tok-sandpiper"

// testServer is a scripted Petrel backend. Every accepted websocket
// gets the hello frame and is then handed to the test through accept;
// the test drives the conversation from there.
type testServer struct {
	t          *testing.T
	httpServer *httptest.Server
	conns      chan *serverConn
	rejectAuth atomic.Bool

	// withholdHello upgrades connections but never greets them,
	// leaving the client parked in its handshake wait.
	withholdHello atomic.Bool

	mu     sync.Mutex
	opened []*serverConn
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	server := &testServer{t: t, conns: make(chan *serverConn, 8)}
	server.httpServer = httptest.NewServer(http.HandlerFunc(server.handle))
	t.Cleanup(server.shutdown)
	return server
}

func newTLSTestServer(t *testing.T) *testServer {
	t.Helper()
	server := &testServer{t: t, conns: make(chan *serverConn, 8)}
	server.httpServer = httptest.NewTLSServer(http.HandlerFunc(server.handle))
	t.Cleanup(server.shutdown)
	return server
}

// url returns the endpoint with an http or https scheme, so tests
// exercise the client's scheme rewrite.
func (s *testServer) url() string { return s.httpServer.URL }

// clientTLS returns a TLS config trusting the server's certificate,
// or nil for plain servers.
func (s *testServer) clientTLS() *tls.Config {
	certificate := s.httpServer.Certificate()
	if certificate == nil {
		return nil
	}
	pool := x509.NewCertPool()
	pool.AddCert(certificate)
	return &tls.Config{RootCAs: pool}
}

// handle runs on the HTTP server's goroutines, so it must never call
// Fatal on t.
func (s *testServer) handle(w http.ResponseWriter, r *http.Request) {
	if s.rejectAuth.Load() || r.Header.Get("Authorization") != "Bearer "+testToken {
		http.Error(w, "bad token", http.StatusUnauthorized)
		return
	}
	upgrader := websocket.Upgrader{}
	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.t.Logf("server: upgrade failed: %v", err)
		return
	}
	conn := &serverConn{t: s.t, ws: ws}
	if !s.withholdHello.Load() {
		conn.writeFrame(wire.Frame{
			Type: wire.FrameHello,
			Body: mustMarshal(s.t, wire.HelloBody{ServerVersion: "petrel-test", SessionID: "sess-1"}),
		})
	}
	s.mu.Lock()
	s.opened = append(s.opened, conn)
	s.mu.Unlock()
	s.conns <- conn
}

// accept returns the next connection the server accepted.
func (s *testServer) accept() *serverConn {
	s.t.Helper()
	return testutil.RequireReceive(s.t, s.conns, 5*time.Second, "server: waiting for a connection")
}

// acceptNone asserts that no new connection arrives within d.
func (s *testServer) acceptNone(d time.Duration) {
	s.t.Helper()
	select {
	case <-s.conns:
		s.t.Fatalf("server: unexpected extra connection")
	case <-time.After(d):
	}
}

func (s *testServer) shutdown() {
	s.mu.Lock()
	opened := s.opened
	s.opened = nil
	s.mu.Unlock()
	for _, conn := range opened {
		conn.close()
	}
	s.httpServer.Close()
}

// serverConn is the server side of one accepted stream.
type serverConn struct {
	t  *testing.T
	ws *websocket.Conn

	closeOnce sync.Once
}

func (c *serverConn) writeFrame(frame wire.Frame) {
	data, err := codec.Marshal(&frame)
	if err != nil {
		c.t.Errorf("server: encoding frame: %v", err)
		return
	}
	if err := c.ws.WriteMessage(websocket.BinaryMessage, data); err != nil {
		c.t.Logf("server: write failed: %v", err)
	}
}

func (c *serverConn) readFrame() (wire.Frame, error) {
	var frame wire.Frame
	c.ws.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, data, err := c.ws.ReadMessage()
	if err != nil {
		return frame, err
	}
	err = codec.Unmarshal(data, &frame)
	return frame, err
}

// expectCall reads the next frame and asserts it is a call of the
// given method carrying the test credential. Test goroutine only.
func (c *serverConn) expectCall(method wire.Method) wire.Frame {
	c.t.Helper()
	frame, err := c.readFrame()
	if err != nil {
		c.t.Fatalf("server: reading call: %v", err)
	}
	if frame.Type != wire.FrameCall {
		c.t.Fatalf("server: got %s frame, want call", frame.Type)
	}
	if frame.Method != method {
		c.t.Fatalf("server: got method %s, want %s", frame.Method, method)
	}
	if frame.Token != testToken {
		c.t.Fatalf("server: call carried token %q, want %q", frame.Token, testToken)
	}
	return frame
}

func (c *serverConn) sendResult(id string, code wire.Code, message string, body any) {
	frame := wire.Frame{Type: wire.FrameResult, ID: id, Code: code, Message: message}
	if body != nil {
		frame.Body = mustMarshal(c.t, body)
	}
	c.writeFrame(frame)
}

func (c *serverConn) sendEvent(seq uint64, event *wire.Event) {
	c.writeFrame(wire.Frame{Type: wire.FrameEvent, Seq: seq, Event: event})
}

// sendRaw injects arbitrary bytes as one binary message.
func (c *serverConn) sendRaw(data []byte) {
	if err := c.ws.WriteMessage(websocket.BinaryMessage, data); err != nil {
		c.t.Logf("server: raw write failed: %v", err)
	}
}

// goaway says goodbye with a clean close frame. Unlike close, the
// client sees a graceful handshake rather than a dropped connection.
func (c *serverConn) goaway() {
	deadline := time.Now().Add(time.Second)
	message := websocket.FormatCloseMessage(websocket.CloseGoingAway, "restarting")
	if err := c.ws.WriteControl(websocket.CloseMessage, message, deadline); err != nil {
		c.t.Logf("server: close frame failed: %v", err)
	}
}

func (c *serverConn) close() {
	c.closeOnce.Do(func() { c.ws.Close() })
}

func mustMarshal(t *testing.T, v any) codec.RawMessage {
	data, err := codec.Marshal(v)
	if err != nil {
		t.Errorf("marshal: %v", err)
	}
	return data
}

// startSession connects a session to the server and returns it along
// with the server side of its first connection.
func startSession(t *testing.T, server *testServer, adjust func(*ClientConfig)) (*Session, *serverConn) {
	t.Helper()
	config := ClientConfig{
		URL:    server.url(),
		Token:  testToken,
		Logger: slog.New(slog.DiscardHandler),
	}
	if adjust != nil {
		adjust(&config)
	}
	session, err := Connect(context.Background(), config)
	if err != nil {
		t.Fatalf("Connect: %v", err)
	}
	t.Cleanup(func() { session.Close() })
	return session, server.accept()
}

// fastReconnect shrinks the backoff so reconnect tests run in real
// time.
func fastReconnect(config *ClientConfig) {
	config.InitialBackoff = 5 * time.Millisecond
	config.MaxBackoff = 25 * time.Millisecond
}

func messageEvent(channelID, text string) *wire.Event {
	return &wire.Event{
		Type: wire.EventMessage,
		Message: &wire.MessageEvent{
			ChannelID: channelID,
			Sender:    wire.User{ID: "u-7", DisplayName: "ada"},
			Text:      text,
		},
	}
}

// nextEvent receives one event or fails the test.
func nextEvent(t *testing.T, session *Session) Event {
	t.Helper()
	return testutil.RequireReceive(t, session.Events(), 5*time.Second, "waiting for an event")
}

// waitForState polls until the session reaches the wanted state.
func waitForState(t *testing.T, session *Session, want State) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if session.State() == want {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("session stuck in %v, want %v", session.State(), want)
}

type sendOutcome struct {
	handle MessageHandle
	err    error
}

// sendAsync issues SendMessage on its own goroutine so the test
// goroutine is free to play the server side.
func sendAsync(session *Session, channelID, text string) <-chan sendOutcome {
	outcome := make(chan sendOutcome, 1)
	go func() {
		handle, err := session.SendMessage(context.Background(), channelID, text, nil)
		outcome <- sendOutcome{handle: handle, err: err}
	}()
	return outcome
}

func awaitSend(t *testing.T, outcome <-chan sendOutcome) sendOutcome {
	t.Helper()
	return testutil.RequireReceive(t, outcome, 5*time.Second, "call never returned")
}

// logRecorder is a slog handler that keeps every record so tests can
// assert on what the session logged, and at which level.
type logRecorder struct {
	mu      sync.Mutex
	records []slog.Record
}

func (r *logRecorder) Enabled(context.Context, slog.Level) bool { return true }

func (r *logRecorder) Handle(_ context.Context, record slog.Record) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records = append(r.records, record.Clone())
	return nil
}

func (r *logRecorder) WithAttrs([]slog.Attr) slog.Handler { return r }
func (r *logRecorder) WithGroup(string) slog.Handler      { return r }

// logged reports whether a record with the given level and message was
// seen.
func (r *logRecorder) logged(level slog.Level, message string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, record := range r.records {
		if record.Level == level && record.Message == message {
			return true
		}
	}
	return false
}
