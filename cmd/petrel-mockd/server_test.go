// Copyright 2026 The Petrel Authors
// SPDX-License-Identifier: Apache-2.0

// The tests here wire the real client library to the mock over a
// loopback listener, covering both at once: the mock must satisfy a
// strict client, and the client must survive everything a scenario
// can script.

package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/petrel-chat/petrel/chat"
	"github.com/petrel-chat/petrel/lib/testutil"
	"github.com/petrel-chat/petrel/wire"
)

const testToken = "tok-mockd"

// startMock hosts a mockServer on a loopback listener and returns its
// URL.
func startMock(t *testing.T, sc *scenario) string {
	t.Helper()
	if sc == nil {
		sc = &scenario{}
	}
	if err := sc.validate(); err != nil {
		t.Fatalf("scenario: %v", err)
	}
	server := newMockServer(testToken, sc, slog.New(slog.DiscardHandler), 30*time.Second, 90*time.Second)
	httpServer := httptest.NewServer(server)
	t.Cleanup(func() {
		server.closeAll()
		httpServer.Close()
	})
	return httpServer.URL
}

// connect opens a real client session against the mock, with backoff
// shrunk so reconnect tests run in real time.
func connect(t *testing.T, url string, adjust func(*chat.ClientConfig)) *chat.Session {
	t.Helper()
	config := chat.ClientConfig{
		URL:            url,
		Token:          testToken,
		Logger:         slog.New(slog.DiscardHandler),
		InitialBackoff: 5 * time.Millisecond,
		MaxBackoff:     25 * time.Millisecond,
	}
	if adjust != nil {
		adjust(&config)
	}
	session, err := chat.Connect(context.Background(), config)
	if err != nil {
		t.Fatalf("Connect: %v", err)
	}
	t.Cleanup(func() { session.Close() })
	return session
}

// nextEvent receives one event or fails the test.
func nextEvent(t *testing.T, session *chat.Session) chat.Event {
	t.Helper()
	return testutil.RequireReceive(t, session.Events(), 5*time.Second, "waiting for an event")
}

// awaitResume drains events until the stream-resumed marker arrives.
// Calls made after the marker land on the new connection.
func awaitResume(t *testing.T, session *chat.Session) chat.Event {
	t.Helper()
	for {
		event := nextEvent(t, session)
		if event.Resumed() {
			return event
		}
	}
}

func TestMockSessionRoundTrip(t *testing.T) {
	url := startMock(t, nil)
	session := connect(t, url, nil)

	hello := session.Hello()
	if !strings.HasPrefix(hello.ServerVersion, "petrel-mockd") {
		t.Errorf("ServerVersion = %q, want a petrel-mockd prefix", hello.ServerVersion)
	}
	if hello.SessionID != "mock-1" {
		t.Errorf("SessionID = %q, want mock-1", hello.SessionID)
	}

	handle, err := session.SendMessage(context.Background(), "chan-1", "hi", nil)
	if err != nil {
		t.Fatalf("SendMessage: %v", err)
	}
	if handle != "m-1" {
		t.Errorf("first handle = %q, want m-1", handle)
	}
	handle, err = session.SendMessage(context.Background(), "chan-1", "again", nil)
	if err != nil {
		t.Fatalf("SendMessage: %v", err)
	}
	if handle != "m-2" {
		t.Errorf("second handle = %q, want m-2", handle)
	}

	if err := session.PerformAction(context.Background(), "chan-1", "waves"); err != nil {
		t.Errorf("PerformAction: %v", err)
	}
	if _, err := session.SendPrivateMessage(context.Background(), "u-9", "psst", nil); err != nil {
		t.Errorf("SendPrivateMessage: %v", err)
	}
	if err := session.PerformPrivateAction(context.Background(), "u-9", "waves"); err != nil {
		t.Errorf("PerformPrivateAction: %v", err)
	}
}

func TestMockRejectsBadToken(t *testing.T) {
	url := startMock(t, nil)

	_, err := chat.Connect(context.Background(), chat.ClientConfig{
		URL:    url,
		Token:  "wrong",
		Logger: slog.New(slog.DiscardHandler),
	})
	if err == nil {
		t.Fatalf("Connect succeeded with a bad token")
	}
	if !chat.IsAuthError(err) {
		t.Errorf("error = %v, want an AuthError", err)
	}
}

func TestMockRejectsEmptySend(t *testing.T) {
	url := startMock(t, nil)
	session := connect(t, url, nil)

	_, err := session.SendMessage(context.Background(), "", "hi", nil)
	if !chat.IsRPCError(err) {
		t.Fatalf("error = %v, want an RPCError", err)
	}
	var rpcErr *chat.RPCError
	errors.As(err, &rpcErr)
	if rpcErr.Code != wire.CodeInvalidArgument {
		t.Errorf("code = %s, want invalid_argument", rpcErr.Code)
	}
}

func TestMockEchoBroadcasts(t *testing.T) {
	url := startMock(t, &scenario{Echo: true})
	speaker := connect(t, url, nil)
	listener := connect(t, url, nil)

	text := testutil.UniqueID("hello")
	handle, err := speaker.SendMessage(context.Background(), "chan-1", text, nil)
	if err != nil {
		t.Fatalf("SendMessage: %v", err)
	}

	for _, session := range []*chat.Session{speaker, listener} {
		event := nextEvent(t, session)
		if event.Type != wire.EventMessage {
			t.Fatalf("event type = %s, want message", event.Type)
		}
		message := event.Payload.Message
		if message.ChannelID != "chan-1" || message.Text != text {
			t.Errorf("echoed payload = %+v", message)
		}
		if message.MessageID != string(handle) {
			t.Errorf("echoed message id = %q, want %q", message.MessageID, handle)
		}
	}
}

func TestMockEchoPrivateStaysPrivate(t *testing.T) {
	url := startMock(t, &scenario{Echo: true})
	speaker := connect(t, url, nil)
	listener := connect(t, url, nil)

	text := testutil.UniqueID("psst")
	if _, err := speaker.SendPrivateMessage(context.Background(), "u-9", text, nil); err != nil {
		t.Fatalf("SendPrivateMessage: %v", err)
	}

	event := nextEvent(t, speaker)
	if event.Type != wire.EventPrivateMessage {
		t.Fatalf("speaker event type = %s, want private_message", event.Type)
	}
	if event.Payload.PrivateMessage.Text != text {
		t.Errorf("speaker payload = %+v", event.Payload.PrivateMessage)
	}

	select {
	case event := <-listener.Events():
		t.Errorf("private echo leaked to another connection: %+v", event)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestMockScriptedMessageID(t *testing.T) {
	sc := &scenario{Responses: []*responseRule{
		{Method: "send_message", ChannelID: "chan-1", MessageID: "m-42"},
	}}
	url := startMock(t, sc)
	session := connect(t, url, nil)

	handle, err := session.SendMessage(context.Background(), "chan-1", "hi", nil)
	if err != nil {
		t.Fatalf("SendMessage: %v", err)
	}
	if handle != "m-42" {
		t.Errorf("handle = %q, want the scripted m-42", handle)
	}

	// Other channels fall through to generated ids.
	handle, err = session.SendMessage(context.Background(), "chan-2", "hi", nil)
	if err != nil {
		t.Fatalf("SendMessage: %v", err)
	}
	if handle != "m-1" {
		t.Errorf("handle = %q, want m-1", handle)
	}
}

func TestMockScriptedRPCError(t *testing.T) {
	sc := &scenario{Responses: []*responseRule{
		{Method: "perform_action", Code: "permission_denied", Message: "bots cannot do that"},
	}}
	url := startMock(t, sc)
	session := connect(t, url, nil)

	err := session.PerformAction(context.Background(), "chan-1", "waves")
	var rpcErr *chat.RPCError
	if !errors.As(err, &rpcErr) {
		t.Fatalf("error = %v, want an RPCError", err)
	}
	if rpcErr.Code != wire.CodePermissionDenied || rpcErr.Message != "bots cannot do that" {
		t.Errorf("rpc error = %+v", rpcErr)
	}

	// A refused call leaves the stream alone.
	if state := session.State(); state != chat.StateConnected {
		t.Errorf("state = %v, want connected", state)
	}
	if generation := session.Generation(); generation != 0 {
		t.Errorf("generation = %d, want 0", generation)
	}
	if _, err := session.SendMessage(context.Background(), "chan-1", "still here", nil); err != nil {
		t.Errorf("SendMessage after refused call: %v", err)
	}
}

func TestMockScriptedOutage(t *testing.T) {
	sc := &scenario{Responses: []*responseRule{
		{Method: "send_message", Code: "unavailable", Message: "maintenance window", Times: 1},
	}}
	url := startMock(t, sc)
	session := connect(t, url, nil)

	_, err := session.SendMessage(context.Background(), "chan-1", "first", nil)
	if !chat.IsTransportError(err) {
		t.Fatalf("error = %v, want a TransportError", err)
	}

	marker := awaitResume(t, session)
	if marker.Generation != 1 {
		t.Errorf("resume generation = %d, want 1", marker.Generation)
	}

	handle, err := session.SendMessage(context.Background(), "chan-1", "second", nil)
	if err != nil {
		t.Fatalf("SendMessage after recovery: %v", err)
	}
	if handle != "m-1" {
		t.Errorf("handle = %q, want m-1 (the scripted failure consumes no id)", handle)
	}
}

func TestMockScheduledEvent(t *testing.T) {
	sc := &scenario{Events: []*eventScript{{
		After:     "10ms",
		Type:      "message",
		ChannelID: "chan-9",
		SenderID:  "u-clock",
		Text:      "welcome",
	}}}
	url := startMock(t, sc)
	session := connect(t, url, nil)

	event := nextEvent(t, session)
	if event.Type != wire.EventMessage {
		t.Fatalf("event type = %s, want message", event.Type)
	}
	message := event.Payload.Message
	if message.ChannelID != "chan-9" || message.Text != "welcome" || message.Sender.ID != "u-clock" {
		t.Errorf("scheduled payload = %+v", message)
	}
	if event.Seq != 1 {
		t.Errorf("seq = %d, want 1", event.Seq)
	}
}

func TestMockRepeatingEvents(t *testing.T) {
	sc := &scenario{Events: []*eventScript{{
		Every:     "15ms",
		Type:      "action",
		ChannelID: "chan-9",
		Text:      "ticks",
	}}}
	url := startMock(t, sc)
	session := connect(t, url, nil)

	first := nextEvent(t, session)
	second := nextEvent(t, session)
	if first.Type != wire.EventAction || second.Type != wire.EventAction {
		t.Fatalf("event types = %s, %s, want action", first.Type, second.Type)
	}
	if second.Seq != first.Seq+1 {
		t.Errorf("sequence went %d then %d, want consecutive", first.Seq, second.Seq)
	}
}

func TestMockDelayedResponse(t *testing.T) {
	sc := &scenario{Responses: []*responseRule{
		{Method: "perform_action", Delay: "30ms"},
	}}
	url := startMock(t, sc)
	session := connect(t, url, nil)

	start := time.Now()
	if err := session.PerformAction(context.Background(), "chan-1", "waits"); err != nil {
		t.Fatalf("PerformAction: %v", err)
	}
	if elapsed := time.Since(start); elapsed < 30*time.Millisecond {
		t.Errorf("call returned after %v, want at least the scripted 30ms", elapsed)
	}
}

func TestMockDroppedCallTimesOut(t *testing.T) {
	sc := &scenario{Responses: []*responseRule{
		{Method: "send_message", Drop: true, Times: 1},
	}}
	url := startMock(t, sc)
	session := connect(t, url, func(config *chat.ClientConfig) {
		config.CallTimeout = 50 * time.Millisecond
	})

	_, err := session.SendMessage(context.Background(), "chan-1", "lost", nil)
	if !chat.IsTransportError(err) {
		t.Fatalf("error = %v, want a TransportError", err)
	}

	awaitResume(t, session)
	if _, err := session.SendMessage(context.Background(), "chan-1", "retry", nil); err != nil {
		t.Fatalf("SendMessage after timeout: %v", err)
	}
}
