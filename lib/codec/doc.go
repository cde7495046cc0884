// Copyright 2026 The Petrel Authors
// SPDX-License-Identifier: Apache-2.0

// Package codec provides Petrel's standard CBOR encoding configuration.
//
// CBOR is the only serialization format on the Petrel wire: every frame
// exchanged over a chat stream is one CBOR map, and capture files store
// batches of frames as CBOR arrays. JSON appears only at the edges
// (mock scenario files, CLI --json output) and never on the wire.
//
// This package holds the shared encoding and decoding modes so that the
// client, the tools, and the mock server all produce identical bytes
// for identical frames. The encoder uses Core Deterministic Encoding
// (RFC 8949 §4.2): sorted map keys, smallest integer encoding, no
// indefinite-length items. Determinism matters beyond tidiness here:
// capture segment digests are computed over encoded bytes, so the same
// batch of events must always encode to the same segment.
//
// For buffer-oriented operations (frames, capture segments):
//
//	data, err := codec.Marshal(value)
//	err = codec.Unmarshal(data, &value)
//
// For stream-oriented operations (reading a recorded frame sequence):
//
//	decoder := codec.NewDecoder(file)
//
// # Struct Tag Rules
//
// Wire types use `cbor` struct tags exclusively: a frame is never
// marshaled to JSON, and its short single-letter keys ("t", "id") are
// a wire contract, not a Go naming choice. Types that also cross a
// JSON boundary (mock scenarios, CLI output) use `json` tags and rely
// on fxamacker/cbor reading them as fallback. Never put both tags on
// the same field.
package codec
