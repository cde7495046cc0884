// Copyright 2026 The Petrel Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"strings"
	"testing"
	"time"

	"github.com/petrel-chat/petrel/wire"
)

func TestParseScenarioJSONC(t *testing.T) {
	source := `
// Flaky backend: one maintenance failure, then the default takes over.
{
	"echo": true,
	"responses": [
		{"method": "send_message", "channel_id": "chan-1", "code": "unavailable", "message": "maintenance", "times": 1},
		{"method": "perform_action", "delay": "250ms"},
	],
	"events": [
		/* a clock that ticks into chan-1 */
		{"every": "30s", "type": "message", "channel_id": "chan-1", "sender_name": "clock", "text": "tick"},
	],
}
`
	sc, err := parseScenario([]byte(source))
	if err != nil {
		t.Fatalf("parseScenario: %v", err)
	}

	if !sc.Echo {
		t.Errorf("Echo = false, want true")
	}
	if len(sc.Responses) != 2 {
		t.Fatalf("got %d responses, want 2", len(sc.Responses))
	}
	first := sc.Responses[0]
	if first.Method != "send_message" || first.ChannelID != "chan-1" || first.Code != "unavailable" {
		t.Errorf("first rule = %+v", first)
	}
	if first.remaining != 1 {
		t.Errorf("first rule remaining = %d, want 1", first.remaining)
	}
	if sc.Responses[1].delay != 250*time.Millisecond {
		t.Errorf("second rule delay = %v, want 250ms", sc.Responses[1].delay)
	}

	if len(sc.Events) != 1 {
		t.Fatalf("got %d events, want 1", len(sc.Events))
	}
	script := sc.Events[0]
	if script.every != 30*time.Second {
		t.Errorf("every = %v, want 30s", script.every)
	}
	if script.SenderID != "u-mock" {
		t.Errorf("SenderID = %q, want the u-mock default", script.SenderID)
	}
	if script.SenderName != "clock" {
		t.Errorf("SenderName = %q, want clock", script.SenderName)
	}
}

func TestParseScenarioErrors(t *testing.T) {
	tests := []struct {
		name   string
		source string
		want   string
	}{
		{
			name:   "missing method",
			source: `{"responses": [{"code": "ok"}]}`,
			want:   "responses[0]: missing method",
		},
		{
			name:   "drop and code conflict",
			source: `{"responses": [{"method": "send_message", "drop": true, "code": "internal"}]}`,
			want:   "drop and code are mutually exclusive",
		},
		{
			name:   "bad delay",
			source: `{"responses": [{"method": "send_message"}, {"method": "send_message", "delay": "soon"}]}`,
			want:   `responses[1]: invalid delay "soon"`,
		},
		{
			name:   "negative times",
			source: `{"responses": [{"method": "send_message", "times": -1}]}`,
			want:   "times must not be negative",
		},
		{
			name:   "event missing timer",
			source: `{"events": [{"type": "message", "channel_id": "chan-1", "text": "hi"}]}`,
			want:   "events[0]: need after or every",
		},
		{
			name:   "event missing type",
			source: `{"events": [{"after": "1s"}]}`,
			want:   "missing type",
		},
		{
			name:   "event unsupported type",
			source: `{"events": [{"after": "1s", "type": "topic_changed"}]}`,
			want:   `unsupported type "topic_changed"`,
		},
		{
			name:   "message event missing channel",
			source: `{"events": [{"after": "1s", "type": "message", "text": "hi"}]}`,
			want:   "message event needs channel_id",
		},
		{
			name:   "bad every",
			source: `{"events": [{"every": "0s", "type": "message", "channel_id": "chan-1", "text": "hi"}]}`,
			want:   `invalid every "0s"`,
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			_, err := parseScenario([]byte(test.source))
			if err == nil {
				t.Fatalf("parseScenario accepted %s", test.source)
			}
			if !strings.Contains(err.Error(), test.want) {
				t.Errorf("error = %v, want mention of %q", err, test.want)
			}
		})
	}
}

func TestScenarioMatchConsumesLimitedRules(t *testing.T) {
	sc := &scenario{Responses: []*responseRule{
		{Method: "send_message", Code: "unavailable", Times: 1},
		{Method: "send_message", MessageID: "m-fixed"},
	}}
	if err := sc.validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}

	first := sc.match(wire.MethodSendMessage, "chan-1")
	if first == nil || first.Code != "unavailable" {
		t.Fatalf("first match = %+v, want the limited unavailable rule", first)
	}
	second := sc.match(wire.MethodSendMessage, "chan-1")
	if second == nil || second.MessageID != "m-fixed" {
		t.Fatalf("second match = %+v, want the fallthrough rule", second)
	}
	third := sc.match(wire.MethodSendMessage, "chan-1")
	if third != second {
		t.Errorf("unlimited rule stopped matching")
	}
}

func TestScenarioMatchChannelScope(t *testing.T) {
	sc := &scenario{Responses: []*responseRule{
		{Method: "send_message", ChannelID: "chan-1", Code: "permission_denied"},
	}}
	if err := sc.validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}

	if rule := sc.match(wire.MethodSendMessage, "chan-1"); rule == nil {
		t.Errorf("rule did not match its own channel")
	}
	if rule := sc.match(wire.MethodSendMessage, "chan-2"); rule != nil {
		t.Errorf("rule matched a different channel: %+v", rule)
	}
	if rule := sc.match(wire.MethodPerformAction, "chan-1"); rule != nil {
		t.Errorf("rule matched a different method: %+v", rule)
	}
}

func TestEventScriptBuildsEvents(t *testing.T) {
	tests := []struct {
		script eventScript
		want   wire.EventType
	}{
		{eventScript{After: "1s", Type: "message", ChannelID: "chan-1", Text: "hi"}, wire.EventMessage},
		{eventScript{After: "1s", Type: "private_message", Text: "psst"}, wire.EventPrivateMessage},
		{eventScript{After: "1s", Type: "action", ChannelID: "chan-1", Text: "waves"}, wire.EventAction},
		{eventScript{After: "1s", Type: "private_action", Text: "waves"}, wire.EventPrivateAction},
		{eventScript{After: "1s", Type: "participant_joined", ChannelID: "chan-1"}, wire.EventParticipantJoined},
		{eventScript{After: "1s", Type: "participant_left", ChannelID: "chan-1"}, wire.EventParticipantLeft},
	}

	for _, test := range tests {
		t.Run(string(test.want), func(t *testing.T) {
			script := test.script
			if err := script.validate(); err != nil {
				t.Fatalf("validate: %v", err)
			}
			event := script.event()
			if event == nil {
				t.Fatalf("event() = nil")
			}
			if event.Type != test.want {
				t.Errorf("type = %s, want %s", event.Type, test.want)
			}
			if err := event.Validate(); err != nil {
				t.Errorf("built event fails validation: %v", err)
			}
		})
	}
}
