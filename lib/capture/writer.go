// Copyright 2026 The Petrel Authors
// SPDX-License-Identifier: Apache-2.0

package capture

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/petrel-chat/petrel/lib/codec"
)

// DefaultBatchSize is the number of records collected into one
// segment before it is flushed. Larger batches compress better;
// smaller batches lose less on a crash.
const DefaultBatchSize = 64

// Writer appends records to a capture stream. Records are batched and
// written as compressed, digest-protected segments. Writer is not
// safe for concurrent use.
type Writer struct {
	writer      io.Writer
	compression CompressionTag
	batchSize   int
	batch       []Record
	closed      bool
}

// WriterOption configures a Writer.
type WriterOption func(*Writer)

// WithCompression selects the segment compression algorithm. The
// default is zstd.
func WithCompression(tag CompressionTag) WriterOption {
	return func(w *Writer) { w.compression = tag }
}

// WithBatchSize sets the number of records per segment. The default
// is DefaultBatchSize.
func WithBatchSize(n int) WriterOption {
	return func(w *Writer) {
		if n > 0 {
			w.batchSize = n
		}
	}
}

// NewWriter writes the capture header to w and returns a Writer that
// appends segments to it. The underlying writer is not closed by
// Writer.Close; the caller owns it.
func NewWriter(w io.Writer, options ...WriterOption) (*Writer, error) {
	writer := &Writer{
		writer:      w,
		compression: CompressionZstd,
		batchSize:   DefaultBatchSize,
	}
	for _, option := range options {
		option(writer)
	}

	header := append([]byte(magic), formatVersion)
	if _, err := w.Write(header); err != nil {
		return nil, fmt.Errorf("capture: writing file header: %w", err)
	}
	return writer, nil
}

// Append adds a record to the current batch, flushing a segment when
// the batch is full.
func (w *Writer) Append(record Record) error {
	if w.closed {
		return fmt.Errorf("capture: writer is closed")
	}
	w.batch = append(w.batch, record)
	if len(w.batch) >= w.batchSize {
		return w.Flush()
	}
	return nil
}

// Flush writes the current batch as a segment. A no-op when the batch
// is empty. Call before handing the underlying writer to anything
// that expects complete segments.
func (w *Writer) Flush() error {
	if len(w.batch) == 0 {
		return nil
	}

	payload, err := codec.Marshal(w.batch)
	if err != nil {
		return fmt.Errorf("capture: encoding batch: %w", err)
	}
	w.batch = w.batch[:0]

	tag := w.compression
	compressed, err := compressSegment(payload, tag)
	if err != nil {
		if err != errIncompressible {
			return fmt.Errorf("capture: compressing segment: %w", err)
		}
		tag = CompressionNone
		compressed = payload
	}

	digest := segmentDigest(payload)

	var header [9]byte
	header[0] = byte(tag)
	binary.BigEndian.PutUint32(header[1:5], uint32(len(compressed)))
	binary.BigEndian.PutUint32(header[5:9], uint32(len(payload)))

	if _, err := w.writer.Write(header[:]); err != nil {
		return fmt.Errorf("capture: writing segment header: %w", err)
	}
	if _, err := w.writer.Write(compressed); err != nil {
		return fmt.Errorf("capture: writing segment payload: %w", err)
	}
	if _, err := w.writer.Write(digest[:]); err != nil {
		return fmt.Errorf("capture: writing segment digest: %w", err)
	}
	return nil
}

// Close flushes the pending batch and marks the writer closed. The
// underlying writer is left open. Close is idempotent.
func (w *Writer) Close() error {
	if w.closed {
		return nil
	}
	err := w.Flush()
	w.closed = true
	return err
}
