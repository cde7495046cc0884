// Copyright 2026 The Petrel Authors
// SPDX-License-Identifier: Apache-2.0

package capture

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"
	"testing"

	"github.com/petrel-chat/petrel/wire"
)

func sampleRecord(seq uint64) Record {
	return Record{
		Seq: seq,
		At:  1767225600000 + int64(seq),
		Event: &wire.Event{
			Type: wire.EventMessage,
			Message: &wire.MessageEvent{
				ChannelID: "chan-1",
				Sender:    wire.User{ID: "u-1", DisplayName: "ada"},
				Text:      fmt.Sprintf("message number %d with enough repetition to compress", seq),
			},
		},
	}
}

func writeCapture(t *testing.T, count int, options ...WriterOption) []byte {
	t.Helper()
	var file bytes.Buffer
	writer, err := NewWriter(&file, options...)
	if err != nil {
		t.Fatalf("NewWriter: %v", err)
	}
	for seq := uint64(1); seq <= uint64(count); seq++ {
		if err := writer.Append(sampleRecord(seq)); err != nil {
			t.Fatalf("Append(%d): %v", seq, err)
		}
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	return file.Bytes()
}

func readAll(t *testing.T, data []byte) []Record {
	t.Helper()
	reader, err := NewReader(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("NewReader: %v", err)
	}
	var records []Record
	for {
		record, err := reader.Next()
		if errors.Is(err, io.EOF) {
			return records
		}
		if err != nil {
			t.Fatalf("Next: %v", err)
		}
		records = append(records, record)
	}
}

func TestRoundtripAllCompressions(t *testing.T) {
	for _, tag := range []CompressionTag{CompressionNone, CompressionLZ4, CompressionZstd} {
		t.Run(tag.String(), func(t *testing.T) {
			data := writeCapture(t, 10, WithCompression(tag))
			records := readAll(t, data)

			if len(records) != 10 {
				t.Fatalf("read %d records, want 10", len(records))
			}
			for i, record := range records {
				wantSeq := uint64(i + 1)
				if record.Seq != wantSeq {
					t.Errorf("record %d: seq = %d, want %d", i, record.Seq, wantSeq)
				}
				if record.Event == nil || record.Event.Message == nil {
					t.Fatalf("record %d: missing event payload", i)
				}
				if got := record.Event.Message.ChannelID; got != "chan-1" {
					t.Errorf("record %d: channel = %q", i, got)
				}
			}
		})
	}
}

func TestMultipleSegmentsPreserveOrder(t *testing.T) {
	data := writeCapture(t, 5, WithBatchSize(2))
	records := readAll(t, data)

	if len(records) != 5 {
		t.Fatalf("read %d records, want 5", len(records))
	}
	for i, record := range records {
		if record.Seq != uint64(i+1) {
			t.Errorf("record %d out of order: seq %d", i, record.Seq)
		}
	}
}

func TestCloseFlushesPartialBatch(t *testing.T) {
	// Batch size far above the record count: nothing flushes until
	// Close.
	data := writeCapture(t, 3, WithBatchSize(100))
	records := readAll(t, data)
	if len(records) != 3 {
		t.Fatalf("read %d records, want 3", len(records))
	}
}

func TestAppendAfterCloseFails(t *testing.T) {
	var file bytes.Buffer
	writer, err := NewWriter(&file)
	if err != nil {
		t.Fatalf("NewWriter: %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := writer.Append(sampleRecord(1)); err == nil {
		t.Error("Append after Close should fail")
	}
	if err := writer.Close(); err != nil {
		t.Errorf("second Close should be a no-op, got %v", err)
	}
}

func TestEmptyCapture(t *testing.T) {
	data := writeCapture(t, 0)
	records := readAll(t, data)
	if len(records) != 0 {
		t.Fatalf("read %d records from empty capture, want 0", len(records))
	}
}

func TestRejectsWrongMagic(t *testing.T) {
	if _, err := NewReader(strings.NewReader("NOTACAPX\x01rest")); err == nil {
		t.Error("NewReader should reject a wrong magic")
	}
}

func TestRejectsUnsupportedVersion(t *testing.T) {
	if _, err := NewReader(strings.NewReader(magic + "\x7f")); err == nil {
		t.Error("NewReader should reject an unsupported version")
	}
}

func TestRejectsTruncatedFile(t *testing.T) {
	data := writeCapture(t, 4)

	// Cut inside the first segment payload.
	truncated := data[:len(data)-20]

	reader, err := NewReader(bytes.NewReader(truncated))
	if err != nil {
		t.Fatalf("NewReader: %v", err)
	}
	if _, err := reader.Next(); err == nil || errors.Is(err, io.EOF) {
		t.Errorf("Next on truncated capture = %v, want a truncation error", err)
	}
}

func TestRejectsCorruptedDigest(t *testing.T) {
	data := writeCapture(t, 4)

	// The digest is the final 32 bytes of the single segment.
	corrupted := bytes.Clone(data)
	corrupted[len(corrupted)-1] ^= 0xFF

	reader, err := NewReader(bytes.NewReader(corrupted))
	if err != nil {
		t.Fatalf("NewReader: %v", err)
	}
	_, err = reader.Next()
	if err == nil {
		t.Fatal("Next on corrupted capture should fail")
	}
	if !strings.Contains(err.Error(), "digest mismatch") {
		t.Errorf("error %v does not name the digest mismatch", err)
	}
}

func TestParseCompression(t *testing.T) {
	for name, want := range map[string]CompressionTag{
		"none": CompressionNone,
		"lz4":  CompressionLZ4,
		"zstd": CompressionZstd,
	} {
		got, err := ParseCompression(name)
		if err != nil {
			t.Errorf("ParseCompression(%q): %v", name, err)
		}
		if got != want {
			t.Errorf("ParseCompression(%q) = %v, want %v", name, got, want)
		}
		if got.String() != name {
			t.Errorf("%v.String() = %q, want %q", got, got.String(), name)
		}
	}

	if _, err := ParseCompression("brotli"); err == nil {
		t.Error("ParseCompression should reject unknown names")
	}
}
