// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/fdb

package fdb

import (
	"path/filepath"
	"strings"
)

// NormalizeName converts an archive entry name to canonical lookup form.
// It converts "\" to "/", strips any leading run of "/" and "." characters,
// and lower-cases ASCII letters. The result is never longer than raw and
// NormalizeName is idempotent.
func NormalizeName(raw string) string {
	start := 0
	for start < len(raw) && isLeadingNameJunk(raw[start]) {
		start++
	}

	raw = raw[start:]
	if !needsNameRewrite(raw) {
		return raw
	}

	out := make([]byte, len(raw))
	for i := 0; i < len(raw); i++ {
		out[i] = normalizeNameByte(raw[i])
	}

	return string(out)
}

// nameFromPath derives an entry name from a local file path.
func nameFromPath(path string) string {
	return NormalizeName(filepath.ToSlash(path))
}

// isLeadingNameJunk reports whether b belongs to the stripped leading run.
func isLeadingNameJunk(b byte) bool {
	return b == '/' || b == '\\' || b == '.'
}

// needsNameRewrite reports whether name has bytes changed by normalization.
func needsNameRewrite(name string) bool {
	return strings.IndexFunc(name, func(r rune) bool {
		return r == '\\' || (r >= 'A' && r <= 'Z')
	}) >= 0
}

// normalizeNameByte rewrites one byte; multi-byte UTF-8 sequences pass through.
func normalizeNameByte(b byte) byte {
	switch {
	case b == '\\':
		return '/'
	case b >= 'A' && b <= 'Z':
		return b + ('a' - 'A')
	default:
		return b
	}
}
