// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/fdb

package fdb

import (
	"fmt"
	"hash/fnv"
	"path"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"
)

// maxSanitizedSegmentLen limits one path segment to common filesystem-safe length.
const maxSanitizedSegmentLen = 240

// reservedDeviceNames lists Windows device names in lower case.
var reservedDeviceNames = map[string]struct{}{
	"aux": {}, "con": {}, "nul": {}, "prn": {}, "clock$": {}, "conin$": {}, "conout$": {},
	"com1": {}, "com2": {}, "com3": {}, "com4": {}, "com5": {}, "com6": {}, "com7": {}, "com8": {}, "com9": {},
	"lpt1": {}, "lpt2": {}, "lpt3": {}, "lpt4": {}, "lpt5": {}, "lpt6": {}, "lpt7": {}, "lpt8": {}, "lpt9": {},
}

// SanitizeName rewrites one entry name to a filesystem-safe relative slash path.
// It returns an empty string for names that normalize to nothing.
func SanitizeName(name string) (string, error) {
	normalized := NormalizeName(name)
	if normalized == "" {
		return "", nil
	}

	sanitized := sanitizeRelativePath(normalized)
	if _, err := normalizeExtractEntryPath(sanitized); err != nil {
		return "", err
	}

	return sanitized, nil
}

// sanitizeNames rewrites normalized entry names to unique filesystem-safe
// relative paths. Colliding results get a "~N" suffix before the extension.
func sanitizeNames(names []string) ([]string, error) {
	out := make([]string, len(names))
	claimed := outputPaths{next: make(map[string]int, len(names))}

	for i, name := range names {
		unique := claimed.claim(sanitizeRelativePath(name))
		if _, err := normalizeExtractEntryPath(unique); err != nil {
			return nil, fmt.Errorf("sanitize name %s: %w", name, err)
		}

		out[i] = unique
	}

	return out, nil
}

// sanitizeRelativePath sanitizes each segment of a relative slash-separated path.
func sanitizeRelativePath(relativePath string) string {
	parts := strings.Split(relativePath, "/")
	sanitized := make([]string, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" || part == "." {
			continue
		}

		sanitized = append(sanitized, sanitizePathSegment(part))
	}

	if len(sanitized) == 0 {
		return "_"
	}

	return strings.Join(sanitized, "/")
}

// sanitizePathSegment sanitizes one path segment for broad filesystem compatibility.
func sanitizePathSegment(segment string) string {
	if segment == ".." {
		return "_"
	}

	sanitized := strings.Map(func(r rune) rune {
		if isUnsafePathRune(r) {
			return '_'
		}

		return r
	}, segment)

	sanitized = strings.TrimRight(sanitized, ". ")
	switch {
	case sanitized == "":
		sanitized = "_"
	case isReservedDeviceName(sanitized):
		sanitized = "_" + sanitized
	}

	return shortenSegment(sanitized, maxSanitizedSegmentLen)
}

// isUnsafePathRune reports whether r cannot appear in a portable file name.
func isUnsafePathRune(r rune) bool {
	if unicode.IsControl(r) || unicode.In(r, unicode.Cf) {
		return true
	}

	// U+FFFD marks bytes that failed name decoding.
	return r == '\uFFFD' || strings.ContainsRune(`<>:"/\|?*`, r)
}

// isReservedDeviceName reports whether a lower-case segment names a Windows
// device, with or without an extension.
func isReservedDeviceName(segment string) bool {
	stem, _, _ := strings.Cut(segment, ".")
	_, ok := reservedDeviceNames[strings.TrimRight(stem, " ")]
	return ok
}

// outputPaths tracks claimed output paths and the next suffix per base path.
type outputPaths struct {
	next map[string]int
}

// claim returns p, or p with the lowest free "~N" suffix when p is taken.
func (o *outputPaths) claim(p string) string {
	n, taken := o.next[p]
	if !taken {
		o.next[p] = 2
		return p
	}

	dir, file := path.Split(p)
	for ; ; n++ {
		candidate := dir + suffixedSegment(file, n)
		if _, taken := o.next[candidate]; taken {
			continue
		}

		o.next[p] = n + 1
		o.next[candidate] = 2
		return candidate
	}
}

// suffixedSegment inserts "~n" before the extension of file within the segment limit.
func suffixedSegment(file string, n int) string {
	ext := path.Ext(file)
	tag := "~" + strconv.Itoa(n)
	limit := max(maxSanitizedSegmentLen-len(ext)-len(tag), 1)

	return shortenSegment(strings.TrimSuffix(file, ext), limit) + tag + ext
}

// shortenSegment cuts value to at most limit bytes on a rune boundary,
// ending with a hash of the full value so distinct long names stay distinct.
func shortenSegment(value string, limit int) string {
	if len(value) <= limit {
		return value
	}

	h := fnv.New32a()
	_, _ = h.Write([]byte(value))
	tag := fmt.Sprintf("~%08x", h.Sum32())
	if limit <= len(tag) {
		tag = ""
	}

	cut := limit - len(tag)
	for cut > 0 && !utf8.RuneStart(value[cut]) {
		cut--
	}

	return value[:cut] + tag
}
