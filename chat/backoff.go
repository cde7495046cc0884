// Copyright 2026 The Petrel Authors
// SPDX-License-Identifier: Apache-2.0

package chat

import (
	"math"
	"math/rand/v2"
	"time"
)

// nextBackoffDelay returns the reconnect delay for attempt N
// (1-based). The first attempt waits exactly initial; later attempts
// grow by multiplier, capped at maxDelay, then jittered to a uniform
// factor in [0.5, 1.5). A nil rng pins the factor to 0.5 for
// deterministic tests.
func nextBackoffDelay(initial, maxDelay time.Duration, multiplier float64, attempt int, rng *rand.Rand) time.Duration {
	if attempt <= 1 {
		return initial
	}
	if initial <= 0 {
		return 0
	}
	if multiplier < 1 {
		multiplier = 1
	}
	delay := float64(initial) * math.Pow(multiplier, float64(attempt-1))
	if maxDelay > 0 && delay > float64(maxDelay) {
		delay = float64(maxDelay)
	}
	factor := 0.5
	if rng != nil {
		factor = 0.5 + rng.Float64()
	}
	return time.Duration(delay * factor)
}
