package fdb

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
)

// fixtureEntry describes one entry written by buildFixture.
type fixtureEntry struct {
	// patch adjusts the payload header after defaults are filled.
	patch            func(*payloadHeader)
	name             string
	data             []byte
	image            ImageHeader
	time             uint64
	uncompressedSize uint32
	typ              EntryType
	compression      Compression
	noPayload        bool
}

// plainEntry returns an uncompressed generic entry.
func plainEntry(name string, data string) fixtureEntry {
	return fixtureEntry{name: name, typ: EntryTypeNormal, data: []byte(data)}
}

// zlibEntry returns a zlib-compressed generic entry.
func zlibEntry(tb testing.TB, name string, plain []byte) fixtureEntry {
	tb.Helper()

	packed, err := deflateZlib(plain)
	if err != nil {
		tb.Fatalf("deflateZlib: %v", err)
	}

	return fixtureEntry{
		name:             name,
		typ:              EntryTypeNormal,
		compression:      CompressionZlib,
		data:             packed,
		uncompressedSize: uint32(len(plain)), //nolint:gosec // test data
	}
}

// buildFixture serializes entries into an FDB archive image.
func buildFixture(tb testing.TB, entries []fixtureEntry) []byte {
	tb.Helper()

	var blob []byte
	for _, e := range entries {
		blob = append(blob, e.name...)
		blob = append(blob, 0)
	}

	n := len(entries)
	indexSize := fileHeaderSize + n*entryRecordSize + n*4 + 4 + len(blob)

	var payloads []byte
	records := make([]EntryRecord, n)
	for i, e := range entries {
		records[i] = EntryRecord{Type: e.typ, Time: e.time}
		if e.noPayload {
			continue
		}

		records[i].Offset = uint32(indexSize + len(payloads)) //nolint:gosec // test data

		hdr := payloadHeader{
			headerSize:  payloadHeaderSize,
			entryType:   e.typ,
			compression: e.compression,
			time:        e.time,
			nameLength:  uint32(len(e.name)), //nolint:gosec // test data
		}

		if e.compression == CompressionNone {
			hdr.uncompressedSize = uint32(len(e.data)) //nolint:gosec // test data
		} else {
			hdr.uncompressedSize = e.uncompressedSize
			hdr.compressedSize = uint32(len(e.data)) //nolint:gosec // test data
		}

		if e.patch != nil {
			e.patch(&hdr)
		}

		payloads = appendPayloadHeader(payloads, hdr)
		payloads = append(payloads, e.name...)
		if e.typ == EntryTypeImage {
			payloads = appendImageHeader(payloads, e.image)
		}

		payloads = append(payloads, e.data...)
	}

	out := appendFileHeader(nil, fileHeader{magic: Magic, entryCount: uint32(n)}) //nolint:gosec // test data
	for _, rec := range records {
		out = appendEntryRecord(out, rec)
	}

	for _, e := range entries {
		out = appendUint32(out, uint32(len(e.name))) //nolint:gosec // test data
	}

	out = appendUint32(out, uint32(len(blob))) //nolint:gosec // test data
	out = append(out, blob...)
	return append(out, payloads...)
}

// writeFixture writes an archive built from entries to a temp file.
func writeFixture(tb testing.TB, entries []fixtureEntry) string {
	tb.Helper()

	path := filepath.Join(tb.TempDir(), "test.fdb")
	if err := os.WriteFile(path, buildFixture(tb, entries), 0o600); err != nil {
		tb.Fatalf("write fixture: %v", err)
	}

	return path
}

// openFixture parses an in-memory archive built from entries.
func openFixture(tb testing.TB, entries []fixtureEntry, opts Options) *Archive {
	tb.Helper()

	return openFixtureBytes(tb, buildFixture(tb, entries), opts)
}

// openFixtureBytes parses a raw archive image.
func openFixtureBytes(tb testing.TB, data []byte, opts Options) *Archive {
	tb.Helper()

	a, err := NewArchive(bytes.NewReader(data), int64(len(data)), opts)
	if err != nil {
		tb.Fatalf("NewArchive: %v", err)
	}

	tb.Cleanup(func() { _ = a.Close() })
	return a
}

func appendUint32(dst []byte, v uint32) []byte {
	return append(dst, byte(v), byte(v>>8), byte(v>>16), byte(v>>24))
}

// newPlainFile returns a detached uncompressed generic File.
func newPlainFile(name string, data []byte) *File {
	f := &File{name: name, kind: KindGeneric}
	f.setPayload(data, CompressionNone, 0)
	return f
}
