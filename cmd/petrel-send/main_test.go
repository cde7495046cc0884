// Copyright 2026 The Petrel Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"strings"
	"testing"
)

func TestMessageText(t *testing.T) {
	t.Run("joins arguments", func(t *testing.T) {
		text, err := messageText([]string{"deploy", "finished"}, strings.NewReader(""))
		if err != nil {
			t.Fatalf("messageText() error: %v", err)
		}
		if text != "deploy finished" {
			t.Errorf("text = %q", text)
		}
	})

	t.Run("falls back to stdin", func(t *testing.T) {
		text, err := messageText(nil, strings.NewReader("from a pipe\n"))
		if err != nil {
			t.Fatalf("messageText() error: %v", err)
		}
		if text != "from a pipe" {
			t.Errorf("text = %q", text)
		}
	})

	t.Run("dash reads stdin", func(t *testing.T) {
		text, err := messageText([]string{"-"}, strings.NewReader("explicit"))
		if err != nil {
			t.Fatalf("messageText() error: %v", err)
		}
		if text != "explicit" {
			t.Errorf("text = %q", text)
		}
	})

	t.Run("preserves interior newlines", func(t *testing.T) {
		text, err := messageText(nil, strings.NewReader("line one\nline two\n"))
		if err != nil {
			t.Fatalf("messageText() error: %v", err)
		}
		if text != "line one\nline two" {
			t.Errorf("text = %q", text)
		}
	})

	t.Run("empty input", func(t *testing.T) {
		if _, err := messageText(nil, strings.NewReader("\n")); err == nil {
			t.Fatal("expected error for empty message")
		}
	})
}

func TestParseTags(t *testing.T) {
	tags, err := parseTags([]string{"origin=ci", "run=42", "note=a=b"})
	if err != nil {
		t.Fatalf("parseTags() error: %v", err)
	}
	want := map[string]string{"origin": "ci", "run": "42", "note": "a=b"}
	if len(tags) != len(want) {
		t.Fatalf("tags = %v", tags)
	}
	for key, value := range want {
		if tags[key] != value {
			t.Errorf("tags[%q] = %q, want %q", key, tags[key], value)
		}
	}
}

func TestParseTagsRejectsMalformed(t *testing.T) {
	for _, bad := range []string{"novalue", "=orphan"} {
		if _, err := parseTags([]string{bad}); err == nil {
			t.Errorf("parseTags(%q) did not fail", bad)
		}
	}
}

func TestParseTagsEmpty(t *testing.T) {
	tags, err := parseTags(nil)
	if err != nil {
		t.Fatalf("parseTags(nil) error: %v", err)
	}
	if tags != nil {
		t.Errorf("tags = %v, want nil", tags)
	}
}
