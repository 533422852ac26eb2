// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/fdb

package fdb

import (
	"errors"
	"fmt"
	"io"
	"math"
	"os"

	"github.com/woozymasta/fdb/redux"
)

// Kind selects the File variant.
type Kind uint8

// File variants.
const (
	// KindGeneric is a plain data entry.
	KindGeneric Kind = iota
	// KindImage is an image entry with ImageHeader metadata.
	KindImage
)

// File is one materialized entry. It owns its name and buffer and stays
// valid after the archive is closed.
//
// The buffer holds CompressedSize bytes while Compression is not
// CompressionNone, and UncompressedSize bytes once it is.
//
// File is not safe for concurrent Decompress/Compress calls.
type File struct {
	decoder        ImageDecoder
	name           string
	data           []byte
	time           uint64
	image          ImageHeader
	size           uint32
	compressedSize uint32
	compression    Compression
	kind           Kind
}

// newArchiveFile builds a File from a validated payload header and payload bytes.
func newArchiveFile(name string, rec EntryRecord, hdr payloadHeader, data []byte) *File {
	f := &File{
		name: name,
		time: rec.Time,
		kind: KindGeneric,
	}

	if rec.Type == EntryTypeImage {
		f.kind = KindImage
	}

	f.setPayload(data, hdr.compression, hdr.uncompressedSize)
	return f
}

// LoadFile reads a local file into a new generic entry named by the
// normalized name. An empty name is derived from path.
func LoadFile(path string, name string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	if uint64(len(data)) > math.MaxUint32 {
		return nil, fmt.Errorf("read %s: file exceeds 4 GiB", path)
	}

	if name == "" {
		name = nameFromPath(path)
	} else {
		name = NormalizeName(name)
	}

	f := &File{name: name, kind: KindGeneric}
	f.setPayload(data, CompressionNone, 0)
	return f, nil
}

// Name returns the normalized entry name.
func (f *File) Name() string { return f.name }

// Kind returns the entry variant.
func (f *File) Kind() Kind { return f.kind }

// IsImage reports whether the entry is an image entry.
func (f *File) IsImage() bool { return f.kind == KindImage }

// Time returns the raw 64-bit entry timestamp.
func (f *File) Time() uint64 { return f.time }

// Compression returns current compression state.
func (f *File) Compression() Compression { return f.compression }

// UncompressedSize returns the payload size after decompression.
func (f *File) UncompressedSize() uint32 { return f.size }

// CompressedSize returns the compressed payload size; zero when uncompressed.
func (f *File) CompressedSize() uint32 { return f.compressedSize }

// Size returns the current buffer length.
func (f *File) Size() int { return len(f.data) }

// Bytes returns the current buffer. Callers must not modify it.
func (f *File) Bytes() []byte { return f.data }

// Image returns image metadata; ok is false for generic entries.
func (f *File) Image() (ImageHeader, bool) {
	return f.image, f.kind == KindImage
}

// Decompress converts the buffer to plaintext. It is a no-op for
// uncompressed entries. On failure the buffer, sizes, and compression
// state are left unchanged.
func (f *File) Decompress() error {
	if f.compression == CompressionNone {
		return nil
	}

	plain, image, err := f.plaintext()
	if err != nil {
		return err
	}

	f.image = image
	f.setPayload(plain, CompressionNone, 0)
	return nil
}

// Compress re-encodes the buffer with target compression, decompressing
// first when needed. Only CompressionNone and CompressionZlib targets are
// supported. On failure the entry is left unchanged.
func (f *File) Compress(target Compression) error {
	switch target {
	case CompressionNone:
		return f.Decompress()
	case CompressionZlib:
	default:
		return fmt.Errorf("%w: compress %s to %s", ErrUnsupportedCompression, f.name, target)
	}

	plain, image, err := f.plaintext()
	if err != nil {
		return err
	}

	packed, err := deflateZlib(plain)
	if err != nil {
		return fmt.Errorf("compress %s: %w", f.name, err)
	}

	f.image = image
	f.setPayload(packed, CompressionZlib, uint32(len(plain))) //nolint:gosec // plaintext bounded by uint32 size fields
	return nil
}

// ToFile writes the entry to path. With decompressFirst it attempts
// Decompress before writing; export fails with ErrCompressed if the entry
// is still compressed. Image entries get a synthesized header when path
// ends with ".tga", ".bmp", or ".dds".
func (f *File) ToFile(path string, decompressFirst bool) error {
	if decompressFirst {
		_ = f.Decompress()
	}

	if f.compression != CompressionNone {
		return fmt.Errorf("export %s: %w (%s)", f.name, ErrCompressed, f.compression)
	}

	header := f.exportHeader(path)

	out, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		return fmt.Errorf("export %s: %w", f.name, err)
	}

	_, writeErr := f.writeExport(out, header)
	closeErr := out.Close()
	if writeErr != nil {
		return fmt.Errorf("export %s: %w", f.name, writeErr)
	}

	if closeErr != nil {
		return fmt.Errorf("export %s: close: %w", f.name, closeErr)
	}

	return nil
}

// Export writes the plaintext entry to w, prefixed by the image header
// selected by dest's extension. It does not decompress.
func (f *File) Export(w io.Writer, dest string) (int64, error) {
	if f.compression != CompressionNone {
		return 0, fmt.Errorf("export %s: %w (%s)", f.name, ErrCompressed, f.compression)
	}

	return f.writeExport(w, f.exportHeader(dest))
}

// exportHeader returns the synthesized container header for dest, if any.
func (f *File) exportHeader(dest string) []byte {
	if f.kind != KindImage {
		return nil
	}

	return imageExportHeader(dest, f.name, f.image)
}

// writeExport writes header and buffer.
func (f *File) writeExport(w io.Writer, header []byte) (int64, error) {
	var total int64
	if len(header) > 0 {
		n, err := w.Write(header)
		total += int64(n)
		if err != nil {
			return total, err
		}
	}

	n, err := w.Write(f.data)
	total += int64(n)
	return total, err
}

// plaintext decodes the buffer without mutating f.
func (f *File) plaintext() ([]byte, ImageHeader, error) {
	switch f.compression {
	case CompressionNone:
		return f.data, f.image, nil
	case CompressionZlib:
		plain, err := inflateZlib(f.data, f.size)
		if err != nil {
			return nil, f.image, fmt.Errorf("decompress %s: %w", f.name, err)
		}

		return plain, f.image, nil
	case CompressionRedux:
		return f.decodeRedux()
	default:
		return nil, f.image, fmt.Errorf("%w: decompress %s from %s", ErrUnsupportedCompression, f.name, f.compression)
	}
}

// decodeRedux decodes an image payload through the attached ImageDecoder.
func (f *File) decodeRedux() ([]byte, ImageHeader, error) {
	if f.kind != KindImage {
		return nil, f.image, fmt.Errorf("%w: redux on non-image entry %s", ErrUnsupportedCompression, f.name)
	}

	if f.decoder == nil {
		return nil, f.image, fmt.Errorf("decompress %s: %w", f.name, ErrCodecUnavailable)
	}

	img, err := f.decoder.Decode(f.data)
	if err != nil {
		if errors.Is(err, redux.ErrUnavailable) {
			return nil, f.image, fmt.Errorf("decompress %s: %w: %w", f.name, ErrCodecUnavailable, err)
		}

		return nil, f.image, fmt.Errorf("decompress %s: %w: %w", f.name, ErrCorruptStream, err)
	}

	if len(img.Data) == 0 {
		return nil, f.image, fmt.Errorf("decompress %s: %w: empty image", f.name, ErrCorruptStream)
	}

	return img.Data, ImageHeader{
		PixelFormat: PixelFormat(img.PixelFormat),
		Width:       img.Width,
		Height:      img.Height,
		MipmapCount: img.MipmapCount,
	}, nil
}

// setPayload replaces buffer and size fields for the given compression.
func (f *File) setPayload(data []byte, c Compression, uncompressedSize uint32) {
	f.data = data
	f.compression = c
	if c == CompressionNone {
		f.size = uint32(len(data)) //nolint:gosec // bounded by uint32 size fields
		f.compressedSize = 0
		return
	}

	f.size = uncompressedSize
	f.compressedSize = uint32(len(data)) //nolint:gosec // bounded by uint32 size fields
}
