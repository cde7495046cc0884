// Copyright 2026 The Petrel Authors
// SPDX-License-Identifier: Apache-2.0

package capture

import (
	"github.com/zeebo/blake3"

	"github.com/petrel-chat/petrel/wire"
)

const (
	// magic identifies a Petrel capture file. The trailing digit is
	// the major format generation, bumped only for layout changes
	// that old readers cannot skip.
	magic = "PTRLCAP1"

	// formatVersion is the current minor format version, stored in
	// the byte after the magic.
	formatVersion = 1
)

// segmentDomainKey is the 32-byte BLAKE3 key for segment digests. The
// value is the ASCII domain name zero-padded to 32 bytes: readable in
// hex dumps, and domain-separated so a capture digest can never
// collide with a hash computed in another context.
var segmentDomainKey = [32]byte{
	'p', 'e', 't', 'r', 'e', 'l', '.', 'c', 'a', 'p', 't', 'u', 'r', 'e', '.',
	's', 'e', 'g', 'm', 'e', 'n', 't', 0, 0, 0, 0, 0, 0, 0, 0, 0, 0,
}

// Record is one captured stream event: the event itself plus the
// stream position and wall-clock arrival time needed to replay it
// faithfully.
type Record struct {
	// Seq is the server-assigned stream sequence number the event
	// arrived with.
	Seq uint64 `cbor:"seq"`

	// At is the arrival time in Unix milliseconds.
	At int64 `cbor:"at"`

	// Event is the event payload as received.
	Event *wire.Event `cbor:"event"`
}

// segmentDigest computes the keyed BLAKE3 digest of an uncompressed
// segment payload.
func segmentDigest(payload []byte) [32]byte {
	hasher, err := blake3.NewKeyed(segmentDomainKey[:])
	if err != nil {
		// NewKeyed fails only on wrong key length, which the fixed
		// array rules out.
		panic("capture: BLAKE3 keyed hash initialization failed: " + err.Error())
	}
	hasher.Write(payload)
	var digest [32]byte
	copy(digest[:], hasher.Sum(nil))
	return digest
}
