// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/fdb

package fdb

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/klauspost/compress/zlib"
)

// inflatePreallocLimit bounds output preallocation trusted from size fields.
const inflatePreallocLimit = 64 << 20

// inflateZlib decodes a complete zlib stream into a new buffer using
// fixed-size output chunks. src is never modified. Output must be exactly
// expected bytes and the stream must consume all of src.
func inflateZlib(src []byte, expected uint32) ([]byte, error) {
	if len(src) == 0 && expected == 0 {
		return []byte{}, nil
	}

	br := bytes.NewReader(src)
	zr, err := zlib.NewReader(br)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCorruptStream, err)
	}
	defer func() { _ = zr.Close() }()

	out := make([]byte, 0, min(int64(expected), inflatePreallocLimit))
	chunk := make([]byte, codecChunkSize)
	for {
		n, readErr := zr.Read(chunk)
		if n > 0 {
			if uint64(len(out))+uint64(n) > uint64(expected) {
				return nil, fmt.Errorf("%w: output exceeds %d bytes", ErrSizeMismatch, expected)
			}

			out = append(out, chunk[:n]...)
		}

		if errors.Is(readErr, io.EOF) {
			break
		}

		if readErr != nil {
			return nil, fmt.Errorf("%w: %w", ErrCorruptStream, readErr)
		}
	}

	if br.Len() != 0 {
		return nil, fmt.Errorf("%w: %d trailing bytes after stream end", ErrCorruptStream, br.Len())
	}

	if uint64(len(out)) != uint64(expected) {
		return nil, fmt.Errorf("%w: got %d bytes, want %d", ErrSizeMismatch, len(out), expected)
	}

	return out, nil
}

// deflateZlib encodes src at best compression, feeding fixed-size chunks.
func deflateZlib(src []byte) ([]byte, error) {
	var buf bytes.Buffer
	zw, err := zlib.NewWriterLevel(&buf, zlib.BestCompression)
	if err != nil {
		return nil, fmt.Errorf("create zlib writer: %w", err)
	}

	for off := 0; off < len(src); off += codecChunkSize {
		end := min(off+codecChunkSize, len(src))
		if _, err := zw.Write(src[off:end]); err != nil {
			_ = zw.Close()
			return nil, fmt.Errorf("deflate: %w", err)
		}
	}

	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("finish deflate: %w", err)
	}

	return buf.Bytes(), nil
}
