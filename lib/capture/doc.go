// Copyright 2026 The Petrel Authors
// SPDX-License-Identifier: Apache-2.0

// Package capture reads and writes Petrel capture files: durable
// recordings of the event stream a session received, used by
// petrel-tail --record and played back by petrel-replay.
//
// A capture file is a magic header followed by self-contained
// segments. Each segment is a compressed CBOR batch of [Record]
// values with a keyed BLAKE3 digest of the uncompressed payload:
//
//	"PTRLCAP1"            8-byte magic
//	version               1 byte
//	segment...            repeated until EOF
//
//	segment:
//	  compression tag     1 byte (none, lz4, zstd)
//	  compressed length   4 bytes big-endian
//	  uncompressed length 4 bytes big-endian
//	  payload             compressed CBOR array of records
//	  digest              32-byte keyed BLAKE3 of uncompressed payload
//
// The digest is keyed with a fixed domain key so capture segment
// digests can never collide with hashes computed in other contexts.
// Verification happens on read, after decompression; a mismatch means
// the file was truncated or corrupted and the segment is rejected.
//
// Compression defaults to zstd (event batches are text-heavy and
// compress well). LZ4 is available for recording hosts where CPU is
// tighter than disk. Segments that do not shrink are stored raw with
// the none tag, so pre-compressed payloads never grow the file.
//
// [Writer] batches records and flushes a segment per batch; [Reader]
// streams records back one at a time. Both operate on plain io
// interfaces, so captures can be piped as well as stored.
package capture
