// Copyright 2026 The Petrel Authors
// SPDX-License-Identifier: Apache-2.0

// Package chat maintains an authenticated session against a Petrel
// backend.
//
// [Connect] dials the backend, authenticates, and returns a running
// [Session]. The session owns one logical stream across any number of
// physical connections: when a connection dies it redials with
// jittered exponential backoff, and marks the visible gap in the
// event sequence with a synthetic [EventStreamResumed] event, exactly
// one per outage. Calls issued while the stream is down fail fast
// with a [TransportError] instead of queueing.
//
// A minimal client:
//
//	session, err := chat.Connect(ctx, chat.ClientConfig{
//		URL:   "wss://chat.example.com/stream",
//		Token: token,
//	})
//	if err != nil {
//		return err
//	}
//	defer session.Close()
//
//	handle, err := session.SendMessage(ctx, "chan-1", "hello", nil)
//	if err != nil {
//		return err
//	}
//
//	for event := range session.Events() {
//		if event.Resumed() {
//			// Events may have been missed while reconnecting.
//			continue
//		}
//		handleEvent(event)
//	}
//
// Failures carry one of a small set of types: [ConfigError],
// [ConnectionError], [AuthError], [TransportError], [RPCError], and
// [DecodeError], plus the [ErrClosed] sentinel after [Session.Close].
// [AuthError] is terminal; the session never redials with a
// credential the backend has rejected.
package chat
