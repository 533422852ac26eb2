// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/fdb

package redux

import "errors"

// Sentinel errors for redux decoding. Use errors.Is in callers.
var (
	// ErrUnavailable means the native module could not be loaded or was released.
	ErrUnavailable = errors.New("redux module unavailable")
	// ErrUnsupportedPlatform means no native binding exists for this GOOS/GOARCH.
	ErrUnsupportedPlatform = errors.New("redux module not supported on this platform")
	// ErrMissingSymbol means a required module entry point could not be resolved.
	ErrMissingSymbol = errors.New("redux module entry point missing")
	// ErrDecode means the module reported a nonzero decode status.
	ErrDecode = errors.New("redux decode failed")
	// ErrEmptyOutput means the module produced no image bytes.
	ErrEmptyOutput = errors.New("redux decode produced no output")
	// ErrEmptyInput means there is nothing to decode.
	ErrEmptyInput = errors.New("redux input is empty")
)
