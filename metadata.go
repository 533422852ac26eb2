// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/fdb

package fdb

import (
	"fmt"
	"os"
)

// ListEntries opens an FDB and returns metadata of every entry without
// reading payloads. The first per-entry failure aborts the listing.
func ListEntries(path string, opts Options) ([]FileInfo, error) {
	a, err := OpenWithOptions(path, opts)
	if err != nil {
		return nil, err
	}
	defer func() { _ = a.Close() }()

	out := make([]FileInfo, 0, a.Size())
	for info, err := range a.Infos() {
		if err != nil {
			return nil, err
		}

		out = append(out, info)
	}

	return out, nil
}

// openFileWithSize opens a file and returns a handle plus current size.
func openFileWithSize(path string) (*os.File, int64, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, fmt.Errorf("open FDB: %w", err)
	}

	fi, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, 0, fmt.Errorf("stat: %w", err)
	}

	return f, fi.Size(), nil
}
