// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/fdb

//go:build (darwin || freebsd || linux || netbsd) && (amd64 || arm64)

package redux

import "github.com/ebitengine/purego"

// dlLibrary is a library opened with dlopen.
type dlLibrary struct {
	handle uintptr
}

func openLibrary(path string) (library, error) {
	handle, err := purego.Dlopen(path, purego.RTLD_NOW|purego.RTLD_GLOBAL)
	if err != nil {
		return nil, err
	}

	return &dlLibrary{handle: handle}, nil
}

func (l *dlLibrary) symbol(name string) (uintptr, error) {
	return purego.Dlsym(l.handle, name)
}

func (l *dlLibrary) close() error {
	return purego.Dlclose(l.handle)
}
