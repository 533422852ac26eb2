// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/fdb

//go:build windows && (amd64 || arm64)

package redux

import "golang.org/x/sys/windows"

// winLibrary is a DLL opened with LoadLibrary.
type winLibrary struct {
	dll *windows.DLL
}

func openLibrary(path string) (library, error) {
	dll, err := windows.LoadDLL(path)
	if err != nil {
		return nil, err
	}

	return &winLibrary{dll: dll}, nil
}

func (l *winLibrary) symbol(name string) (uintptr, error) {
	proc, err := l.dll.FindProc(name)
	if err != nil {
		return 0, err
	}

	return proc.Addr(), nil
}

func (l *winLibrary) close() error {
	return l.dll.Release()
}
