// Copyright 2026 The Petrel Authors
// SPDX-License-Identifier: Apache-2.0

// Package wire defines the Petrel chat protocol: the CBOR frame
// envelope exchanged over a stream connection, the request and
// response payloads for calls, the event taxonomy the server pushes,
// and the rich-content block tree.
//
// Every message on the wire is one [Frame]. The frame type selects
// which envelope fields are meaningful:
//
//   - hello: sent once by the server after a successful upgrade,
//     before anything else. Carries HelloBody.
//   - call: a client request. Carries ID (correlation), Token
//     (per-call credential), Method, and a method-specific Body.
//   - result: the server's answer to a call. Carries the originating
//     ID, a status Code, an optional Message, and an optional Body.
//   - event: a server push. Carries Seq (stream position) and Event.
//
// Unknown frame types are skipped by receivers so the protocol can
// grow without breaking deployed clients. Unknown envelope fields are
// ignored by the CBOR decoder for the same reason.
//
// All types here are pure data with validation; connection handling,
// retry policy, and error mapping live in package chat.
package wire
