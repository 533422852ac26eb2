// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/fdb

//go:build !((darwin || freebsd || linux || netbsd || windows) && (amd64 || arm64))

package redux

import "fmt"

// LoadNative reports that no native binding exists for this platform.
func LoadNative(path string) (Module, error) {
	return nil, fmt.Errorf("%w: %s", ErrUnsupportedPlatform, path)
}
