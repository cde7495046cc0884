// Copyright 2026 The Petrel Authors
// SPDX-License-Identifier: Apache-2.0

// Package clock provides an injectable time abstraction for testability.
//
// Production code accepts a Clock interface instead of calling time.Now,
// time.After, time.NewTicker, time.AfterFunc, or time.Sleep directly.
// In production, Real() provides the standard library behavior. In
// tests, Fake() provides a deterministic clock that advances only when
// Advance is called.
//
// The chat session is the main consumer: reconnect backoff delays and
// the keepalive ping interval both run on an injected Clock, so
// reconnection tests walk through multi-second backoff schedules
// without ever sleeping for real.
//
// # Wiring Pattern
//
// Add a Clock field to structs that use time:
//
//	type Session struct {
//	    clock clock.Clock
//	    // ...
//	}
//
// In production:
//
//	s := &Session{clock: clock.Real()}
//
// In tests:
//
//	c := clock.Fake(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
//	s := &Session{clock: c}
//	// ... start goroutines ...
//	c.WaitForTimers(1)        // wait for the backoff sleep to register
//	c.Advance(2 * time.Second) // fire it deterministically
//
// # FakeClock Synchronization
//
// When a goroutine calls Sleep, After, NewTicker, or AfterFunc on a
// FakeClock, it registers a pending timer. Use WaitForTimers to block
// until a specific number of timers are registered before calling
// Advance. This removes the race between timer registration and time
// advancement that plagues tests using real time.Sleep for
// synchronization.
package clock
