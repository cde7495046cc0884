// Copyright 2026 The Petrel Authors
// SPDX-License-Identifier: Apache-2.0

package chat

import (
	"math/rand/v2"
	"testing"
	"time"
)

func TestNextBackoffDelayGrowth(t *testing.T) {
	// A nil rng pins the jitter factor to 0.5.
	cases := []struct {
		attempt int
		want    time.Duration
	}{
		{1, time.Second},       // first attempt is exact
		{2, time.Second},       // 2s * 0.5
		{3, 2 * time.Second},   // 4s * 0.5
		{4, 4 * time.Second},   // 8s * 0.5
		{6, 15 * time.Second},  // 32s capped to 30s, * 0.5
		{12, 15 * time.Second}, // deep attempts hold at the cap
	}
	for _, c := range cases {
		got := nextBackoffDelay(time.Second, 30*time.Second, 2.0, c.attempt, nil)
		if got != c.want {
			t.Errorf("attempt %d: got %v, want %v", c.attempt, got, c.want)
		}
	}
}

func TestNextBackoffDelayFirstAttemptExact(t *testing.T) {
	rng := rand.New(rand.NewPCG(3, 4))
	got := nextBackoffDelay(250*time.Millisecond, 5*time.Second, 2.0, 1, rng)
	if got != 250*time.Millisecond {
		t.Fatalf("attempt 1 = %v, want the initial delay exactly", got)
	}
}

func TestNextBackoffDelayJitterRange(t *testing.T) {
	rng := rand.New(rand.NewPCG(1, 2))
	for range 200 {
		delay := nextBackoffDelay(time.Second, 30*time.Second, 2.0, 4, rng)
		// Attempt 4 has an 8s base; jitter keeps it in [4s, 12s).
		if delay < 4*time.Second || delay >= 12*time.Second {
			t.Fatalf("delay %v outside jitter bounds", delay)
		}
	}
}

func TestNextBackoffDelayClampsShrinkingMultiplier(t *testing.T) {
	got := nextBackoffDelay(time.Second, 30*time.Second, 0.25, 5, nil)
	if got != 500*time.Millisecond {
		t.Fatalf("got %v, want 500ms from a clamped multiplier", got)
	}
}

func TestNextBackoffDelayZeroInitial(t *testing.T) {
	if got := nextBackoffDelay(0, 30*time.Second, 2.0, 3, nil); got != 0 {
		t.Fatalf("got %v, want 0", got)
	}
}
