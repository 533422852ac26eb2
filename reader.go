// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/fdb

package fdb

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"iter"
	"log/slog"
	"os"
	"sync"

	"golang.org/x/text/encoding"
)

// indexBufferSize is a sequential read buffer for index parsing.
const indexBufferSize = 64 * 1024

// Archive provides read-only access to a parsed FDB file.
//
// All methods are safe for concurrent use. Reads share one seek cursor and
// are serialized by an internal mutex.
type Archive struct {
	// rs is the backing stream; its cursor is guarded by mu.
	rs io.ReadSeeker
	// file is set when Archive owns an *os.File opened via Open.
	file *os.File
	// logger receives debug and warning events.
	logger *slog.Logger
	// decoder is attached to materialized image entries.
	decoder ImageDecoder
	// records stores the entry table in archive order.
	records []EntryRecord
	// names stores normalized names, one per record.
	names []string
	// size is total source size in bytes, or negative when unknown.
	size int64
	// mu guards rs, records, names, and closed.
	mu sync.Mutex
	// maxCompressedSize and maxNameLength are Get validation limits.
	maxCompressedSize uint32
	maxNameLength     uint32
	// closed reports whether Close was already called.
	closed bool
}

// Open opens an FDB file by path and parses its index.
func Open(path string) (*Archive, error) {
	return OpenWithOptions(path, Options{})
}

// OpenWithOptions opens an FDB file by path and parses its index using explicit options.
func OpenWithOptions(path string, opts Options) (*Archive, error) {
	f, size, err := openFileWithSize(path)
	if err != nil {
		return nil, err
	}

	a, err := NewArchive(f, size, opts)
	if err != nil {
		_ = f.Close()
		return nil, err
	}

	a.file = f
	return a, nil
}

// NewArchive parses an FDB index from rs. size is the total stream size used
// to bound index and payload reads; a negative size is measured by seeking
// to the end of rs. The archive does not close rs.
func NewArchive(rs io.ReadSeeker, size int64, opts Options) (*Archive, error) {
	if rs == nil {
		return nil, ErrNilReader
	}

	if size < 0 {
		end, err := rs.Seek(0, io.SeekEnd)
		if err != nil {
			return nil, fmt.Errorf("measure stream size: %w", err)
		}

		size = end
	}

	opts.applyDefaults()

	a := &Archive{
		rs:                rs,
		size:              size,
		logger:            opts.Logger,
		decoder:           opts.ImageDecoder,
		maxCompressedSize: opts.MaxCompressedSize,
		maxNameLength:     opts.MaxNameLength,
	}

	if err := a.parse(opts.NameEncoding); err != nil {
		return nil, err
	}

	a.logger.Debug("opened FDB archive", "entries", len(a.records), "size", size)
	return a, nil
}

// Close releases the backing file and clears the index. It is idempotent.
func (a *Archive) Close() error {
	if a == nil {
		return nil
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if a.closed {
		return nil
	}

	a.closed = true
	a.records = nil
	a.names = nil
	a.rs = nil
	if a.file != nil {
		err := a.file.Close()
		a.file = nil
		return err
	}

	return nil
}

// Size returns the number of entries; zero for nil or closed archives.
func (a *Archive) Size() int {
	if a == nil {
		return 0
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	return len(a.records)
}

// Index returns the position of the entry with exactly the given normalized name.
func (a *Archive) Index(name string) (int, bool) {
	if a == nil || name == "" {
		return -1, false
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	for i := range a.names {
		if a.names[i] == name {
			return i, true
		}
	}

	return -1, false
}

// Records returns a copy of the entry table.
func (a *Archive) Records() []EntryRecord {
	if a == nil {
		return nil
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	out := make([]EntryRecord, len(a.records))
	copy(out, a.records)
	return out
}

// Names returns a copy of the normalized name table.
func (a *Archive) Names() []string {
	if a == nil {
		return nil
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	out := make([]string, len(a.names))
	copy(out, a.names)
	return out
}

// Info returns entry metadata without reading the payload. Entries without
// payload report zero sizes and CompressionNone.
func (a *Archive) Info(i int) (FileInfo, error) {
	if a == nil {
		return FileInfo{}, ErrNilReader
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	rec, name, err := a.entryLocked(i)
	if err != nil {
		return FileInfo{}, err
	}

	info := FileInfo{Name: name, Type: rec.Type, Time: rec.Time}
	if !rec.HasPayload() {
		return info, nil
	}

	hdr, err := a.readPayloadHeaderLocked(rec.Offset)
	if err != nil {
		return info, fmt.Errorf("entry %d (%s): %w", i, name, err)
	}

	info.Compression = hdr.compression
	info.CompressedSize = hdr.compressedSize
	info.UncompressedSize = hdr.uncompressedSize
	return info, nil
}

// Get materializes entry i. Entries failing validation return a nil File
// and an error wrapping ErrInvalidEntry.
func (a *Archive) Get(i int) (*File, error) {
	if a == nil {
		return nil, ErrNilReader
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	rec, name, err := a.entryLocked(i)
	if err != nil {
		return nil, err
	}

	if !rec.HasPayload() {
		return nil, fmt.Errorf("entry %d (%s): %w", i, name, ErrNoPayload)
	}

	hdr, err := a.readPayloadHeaderLocked(rec.Offset)
	if err != nil {
		return nil, fmt.Errorf("entry %d (%s): %w", i, name, err)
	}

	if err := a.validatePayload(rec, hdr); err != nil {
		a.logger.Debug("rejected entry", "index", i, "name", name, "error", err)
		return nil, fmt.Errorf("entry %d (%s): %w", i, name, err)
	}

	// The embedded name duplicates the name table.
	if _, err := a.rs.Seek(int64(hdr.nameLength), io.SeekCurrent); err != nil {
		return nil, fmt.Errorf("entry %d (%s): skip name: %w", i, name, err)
	}

	var image ImageHeader
	if rec.Type == EntryTypeImage {
		var raw [imageHeaderSize]byte
		if _, err := io.ReadFull(a.rs, raw[:]); err != nil {
			return nil, fmt.Errorf("entry %d (%s): read image header: %w", i, name, err)
		}

		image = decodeImageHeader(raw[:])
	}

	data := make([]byte, hdr.payloadSize())
	if _, err := io.ReadFull(a.rs, data); err != nil {
		return nil, fmt.Errorf("entry %d (%s): read payload: %w", i, name, err)
	}

	f := newArchiveFile(name, rec, hdr, data)
	if f.kind == KindImage {
		f.image = image
		f.decoder = a.decoder
	}

	return f, nil
}

// GetByName materializes the entry with the given normalized name.
func (a *Archive) GetByName(name string) (*File, error) {
	i, ok := a.Index(name)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrEntryNotFound, name)
	}

	return a.Get(i)
}

// Infos iterates metadata of all entries in archive order.
func (a *Archive) Infos() iter.Seq2[FileInfo, error] {
	return func(yield func(FileInfo, error) bool) {
		for i := range a.Size() {
			if !yield(a.Info(i)) {
				return
			}
		}
	}
}

// Files iterates all entries in archive order, materializing each one.
// Entries failing validation yield a nil File and the error.
func (a *Archive) Files() iter.Seq2[*File, error] {
	return func(yield func(*File, error) bool) {
		for i := range a.Size() {
			if !yield(a.Get(i)) {
				return
			}
		}
	}
}

// entryLocked returns record and name at i. Caller holds mu.
func (a *Archive) entryLocked(i int) (EntryRecord, string, error) {
	if a.closed {
		return EntryRecord{}, "", ErrClosed
	}

	if i < 0 || i >= len(a.records) {
		return EntryRecord{}, "", fmt.Errorf("%w: %d of %d", ErrIndexOutOfRange, i, len(a.records))
	}

	return a.records[i], a.names[i], nil
}

// readPayloadHeaderLocked seeks to offset and reads the payload header. Caller holds mu.
func (a *Archive) readPayloadHeaderLocked(offset uint32) (payloadHeader, error) {
	if _, err := a.rs.Seek(int64(offset), io.SeekStart); err != nil {
		return payloadHeader{}, fmt.Errorf("seek payload: %w", err)
	}

	var raw [payloadHeaderSize]byte
	if _, err := io.ReadFull(a.rs, raw[:]); err != nil {
		return payloadHeader{}, fmt.Errorf("read payload header: %w", err)
	}

	return decodePayloadHeader(raw[:]), nil
}

// validatePayload checks payload header length fields before they are trusted.
func (a *Archive) validatePayload(rec EntryRecord, hdr payloadHeader) error {
	switch {
	case hdr.uncompressedSize&poisonSizeBit != 0:
		return fmt.Errorf("%w: uncompressed size %#x has poison bit set", ErrInvalidEntry, hdr.uncompressedSize)
	case hdr.uncompressedSize == 0:
		return fmt.Errorf("%w: zero uncompressed size", ErrInvalidEntry)
	case hdr.compressedSize > a.maxCompressedSize:
		return fmt.Errorf("%w: compressed size %d exceeds %d", ErrInvalidEntry, hdr.compressedSize, a.maxCompressedSize)
	case hdr.nameLength > a.maxNameLength:
		return fmt.Errorf("%w: embedded name length %d exceeds %d", ErrInvalidEntry, hdr.nameLength, a.maxNameLength)
	}

	end := uint64(rec.Offset) + payloadHeaderSize + uint64(hdr.nameLength) + uint64(hdr.payloadSize())
	if rec.Type == EntryTypeImage {
		end += imageHeaderSize
	}

	if end > uint64(a.size) {
		return fmt.Errorf("%w: payload ends at %d beyond archive size %d", ErrInvalidEntry, end, a.size)
	}

	return nil
}

// parse reads the file header, entry table, and name table.
func (a *Archive) parse(enc encoding.Encoding) error {
	if _, err := a.rs.Seek(0, io.SeekStart); err != nil {
		return fmt.Errorf("seek header: %w", err)
	}

	br := bufio.NewReaderSize(a.rs, indexBufferSize)

	var raw [fileHeaderSize]byte
	if _, err := io.ReadFull(br, raw[:]); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return fmt.Errorf("%w: short header", ErrInvalidHeader)
		}

		return fmt.Errorf("read header: %w", err)
	}

	hdr := decodeFileHeader(raw[:])
	if hdr.magic != Magic {
		return fmt.Errorf("%w: magic %#08x", ErrInvalidHeader, hdr.magic)
	}

	if hdr.entryCount == 0 {
		return ErrEmptyArchive
	}

	// Each entry needs a record and a name length; the name blob needs its size field.
	indexSize := uint64(hdr.entryCount)*(entryRecordSize+4) + 4
	if indexSize > uint64(a.size)-fileHeaderSize {
		return fmt.Errorf("%w: %d entries exceed file size %d", ErrInvalidHeader, hdr.entryCount, a.size)
	}

	count := int(hdr.entryCount)
	table := make([]byte, count*entryRecordSize)
	if _, err := io.ReadFull(br, table); err != nil {
		return fmt.Errorf("read entry table: %w", err)
	}

	a.records = make([]EntryRecord, count)
	for i := range a.records {
		a.records[i] = decodeEntryRecord(table[i*entryRecordSize:])
	}

	lengths := make([]byte, count*4)
	if _, err := io.ReadFull(br, lengths); err != nil {
		return fmt.Errorf("read name lengths: %w", err)
	}

	var blobSize [4]byte
	if _, err := io.ReadFull(br, blobSize[:]); err != nil {
		return fmt.Errorf("read name blob size: %w", err)
	}

	total := binary.LittleEndian.Uint32(blobSize[:])
	if uint64(total) > uint64(a.size)-fileHeaderSize-indexSize {
		return fmt.Errorf("%w: name blob of %d bytes exceeds file size", ErrInvalidNameTable, total)
	}

	blob := make([]byte, total)
	if _, err := io.ReadFull(br, blob); err != nil {
		return fmt.Errorf("read name blob: %w", err)
	}

	names, err := splitNames(blob, lengths, count, enc)
	if err != nil {
		return err
	}

	a.names = names
	return nil
}

// splitNames cuts NUL-separated names from blob using the length table,
// copies, decodes, and normalizes each one.
func splitNames(blob []byte, lengths []byte, count int, enc encoding.Encoding) ([]string, error) {
	var dec *encoding.Decoder
	if enc != nil {
		dec = enc.NewDecoder()
	}

	names := make([]string, count)
	var off uint64
	for i := range count {
		n := uint64(binary.LittleEndian.Uint32(lengths[i*4:]))
		end := off + n
		if end > uint64(len(blob)) {
			return nil, fmt.Errorf("%w: name %d (%d bytes at %d) exceeds blob of %d bytes", ErrInvalidNameTable, i, n, off, len(blob))
		}

		raw := blob[off:end]
		if dec != nil {
			decoded, err := dec.Bytes(raw)
			if err != nil {
				return nil, fmt.Errorf("%w: decode name %d: %w", ErrInvalidNameTable, i, err)
			}

			raw = decoded
		}

		names[i] = NormalizeName(string(raw))
		off = end + 1
	}

	return names, nil
}
