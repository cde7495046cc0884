// Copyright 2026 The Petrel Authors
// SPDX-License-Identifier: Apache-2.0

package capture

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/petrel-chat/petrel/lib/codec"
)

// maxSegmentSize bounds segment allocation when reading, so a corrupt
// length field cannot exhaust memory. Far above any real segment: a
// batch of 64 events is kilobytes, not gigabytes.
const maxSegmentSize = 1 << 30

// Reader streams records back out of a capture. Reader is not safe
// for concurrent use.
type Reader struct {
	reader io.Reader
	batch  []Record
	index  int
}

// NewReader validates the capture header of r and returns a Reader
// positioned at the first record.
func NewReader(r io.Reader) (*Reader, error) {
	header := make([]byte, len(magic)+1)
	if _, err := io.ReadFull(r, header); err != nil {
		return nil, fmt.Errorf("capture: reading file header: %w", err)
	}
	if string(header[:len(magic)]) != magic {
		return nil, fmt.Errorf("capture: not a capture file")
	}
	if version := header[len(magic)]; version != formatVersion {
		return nil, fmt.Errorf("capture: unsupported format version %d", version)
	}
	return &Reader{reader: r}, nil
}

// Next returns the next record, or io.EOF after the last one. Any
// other error means the capture is corrupt or truncated mid-segment.
func (r *Reader) Next() (Record, error) {
	for r.index >= len(r.batch) {
		if err := r.loadSegment(); err != nil {
			return Record{}, err
		}
	}
	record := r.batch[r.index]
	r.index++
	return record, nil
}

// loadSegment reads, verifies, and decodes the next segment into
// r.batch. Returns io.EOF cleanly at a segment boundary.
func (r *Reader) loadSegment() error {
	var header [9]byte
	if _, err := io.ReadFull(r.reader, header[:]); err != nil {
		if errors.Is(err, io.EOF) {
			return io.EOF
		}
		return fmt.Errorf("capture: truncated segment header: %w", err)
	}

	tag := CompressionTag(header[0])
	compressedSize := binary.BigEndian.Uint32(header[1:5])
	uncompressedSize := binary.BigEndian.Uint32(header[5:9])
	if compressedSize > maxSegmentSize || uncompressedSize > maxSegmentSize {
		return fmt.Errorf("capture: segment claims %d bytes, exceeding the %d byte limit",
			max(compressedSize, uncompressedSize), maxSegmentSize)
	}

	compressed := make([]byte, compressedSize)
	if _, err := io.ReadFull(r.reader, compressed); err != nil {
		return fmt.Errorf("capture: truncated segment payload: %w", err)
	}

	var digest [32]byte
	if _, err := io.ReadFull(r.reader, digest[:]); err != nil {
		return fmt.Errorf("capture: truncated segment digest: %w", err)
	}

	payload, err := decompressSegment(compressed, tag, int(uncompressedSize))
	if err != nil {
		return fmt.Errorf("capture: %w", err)
	}
	if segmentDigest(payload) != digest {
		return fmt.Errorf("capture: segment digest mismatch (corrupted or truncated file)")
	}

	var batch []Record
	if err := codec.Unmarshal(payload, &batch); err != nil {
		return fmt.Errorf("capture: decoding batch: %w", err)
	}
	if len(batch) == 0 {
		return fmt.Errorf("capture: empty segment")
	}

	r.batch = batch
	r.index = 0
	return nil
}
