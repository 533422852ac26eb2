// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/fdb

package fdb

import (
	"errors"
	"fmt"
)

// Sentinel errors for FDB operations. Use errors.Is in callers.
var (
	// ErrInvalidHeader means the archive is missing or has a bad magic header.
	ErrInvalidHeader = errors.New("invalid FDB file: missing or bad header")
	// ErrEmptyArchive means the archive header declares zero entries.
	ErrEmptyArchive = errors.New("FDB archive has no entries")
	// ErrInvalidNameTable means name lengths do not fit into the name blob.
	ErrInvalidNameTable = errors.New("invalid FDB name table")
	// ErrNilReader means the archive or its backing stream is nil.
	ErrNilReader = errors.New("reader is nil")
	// ErrClosed means the archive is already closed.
	ErrClosed = errors.New("archive already closed")
	// ErrIndexOutOfRange means the entry index is outside of the entry table.
	ErrIndexOutOfRange = errors.New("entry index out of range")
	// ErrEntryNotFound means no entry has the requested name.
	ErrEntryNotFound = errors.New("entry not found")
	// ErrInvalidEntry means entry length fields failed validation.
	ErrInvalidEntry = errors.New("invalid entry")
	// ErrNoPayload means the entry table slot has no payload (offset 0).
	ErrNoPayload = fmt.Errorf("%w: no payload", ErrInvalidEntry)
	// ErrUnsupportedCompression means the compression kind is declared but not implemented.
	ErrUnsupportedCompression = errors.New("unsupported compression")
	// ErrCodecUnavailable means no image decoder is configured or it failed to load.
	ErrCodecUnavailable = errors.New("image codec unavailable")
	// ErrCorruptStream means compressed payload could not be decoded.
	ErrCorruptStream = errors.New("corrupt compressed stream")
	// ErrSizeMismatch means decoded payload size differs from the recorded size.
	ErrSizeMismatch = errors.New("decoded size mismatch")
	// ErrCompressed means export requires plaintext but entry is still compressed.
	ErrCompressed = errors.New("entry is still compressed")
	// ErrInvalidExtractPath means entry name is invalid for extraction destination.
	ErrInvalidExtractPath = errors.New("invalid extract path")
	// ErrInvalidRules means one or more selection rules are invalid.
	ErrInvalidRules = errors.New("invalid selection rules")
)

// UnmappedFormatError is the panic value raised when a DDS header is requested
// for a pixel format code that has no DDS pixel format block.
type UnmappedFormatError struct {
	// Name is the entry name being exported.
	Name string
	// PixelFormat is the unmapped internal pixel format code.
	PixelFormat PixelFormat
}

// Error implements error.
func (e *UnmappedFormatError) Error() string {
	return fmt.Sprintf("fdb: no DDS pixel format for code %d (entry %q)", e.PixelFormat, e.Name)
}
