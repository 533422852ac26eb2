// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/fdb

//go:build (darwin || freebsd || linux || netbsd || windows) && (amd64 || arm64)

package redux

import (
	"encoding/binary"
	"fmt"
	"runtime"
	"sync"
	"unsafe"

	"github.com/ebitengine/purego"
)

// Module entry points.
const (
	symDecompress    = "reduxHandleDecompress"
	symCallbackSet   = "reduxCallbackSet"
	symGetOutputDesc = "reduxHandleGetOutputDesc"

	callbackSlotBuffer   = 6
	callbackSlotComplete = 7
)

// Native memory layout, 4-byte packed as the module expects.
const (
	ptrSize = unsafe.Sizeof(uintptr(0))
	// descSize is {ptr, u32, u16 width, u16 height, u8 mips, u8 format, u16 pad}.
	descSize = ptrSize + 12
	// blockFilenameOffset follows desc, 3 pointers and 3 u32 counters.
	blockFilenameOffset = descSize + 3*ptrSize + 12
	// blockSize adds the filename pointer and the has-data flag.
	blockSize = blockFilenameOffset + ptrSize + 4
	// statusSizeOffset is the size_t field after three u32 fields.
	statusSizeOffset = (12 + ptrSize - 1) / ptrSize * ptrSize
)

// library is an opened shared library.
type library interface {
	symbol(name string) (uintptr, error)
	close() error
}

// nativeModule calls into a loaded redux shared library.
type nativeModule struct {
	lib           library
	decompress    uintptr
	getOutputDesc uintptr
}

// nativeCall links one in-flight Decompress to its callbacks.
type nativeCall struct {
	module *nativeModule
	cb     Callbacks
	pinner *runtime.Pinner
}

var (
	// nativeCalls maps control block address to in-flight call.
	nativeCalls sync.Map
	// trampolinesOnce creates C callback trampolines once per process.
	trampolinesOnce    sync.Once
	bufferTrampoline   uintptr
	completeTrampoline uintptr
)

// LoadNative opens the redux module at path and resolves its entry points.
func LoadNative(path string) (Module, error) {
	lib, err := openLibrary(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}

	m, err := newNativeModule(lib)
	if err != nil {
		_ = lib.close()
		return nil, err
	}

	return m, nil
}

func newNativeModule(lib library) (*nativeModule, error) {
	symbols := [...]string{symDecompress, symCallbackSet, symGetOutputDesc}
	var addrs [len(symbols)]uintptr
	for i, name := range symbols {
		addr, err := lib.symbol(name)
		if err != nil || addr == 0 {
			return nil, fmt.Errorf("%w: %s", ErrMissingSymbol, name)
		}

		addrs[i] = addr
	}

	trampolinesOnce.Do(func() {
		bufferTrampoline = purego.NewCallback(onNativeBuffer)
		completeTrampoline = purego.NewCallback(onNativeComplete)
	})

	purego.SyscallN(addrs[1], callbackSlotComplete, completeTrampoline)
	purego.SyscallN(addrs[1], callbackSlotBuffer, bufferTrampoline)

	return &nativeModule{
		lib:           lib,
		decompress:    addrs[0],
		getOutputDesc: addrs[2],
	}, nil
}

// Decompress implements Module.
func (m *nativeModule) Decompress(src []byte, cb Callbacks) int32 {
	if len(src) == 0 {
		return -1
	}

	var pinner runtime.Pinner
	defer pinner.Unpin()

	block := make([]byte, blockSize)
	filename := []byte("dummy\x00")
	pinner.Pin(&block[0])
	pinner.Pin(&filename[0])
	pinner.Pin(&src[0])
	putNativePointer(block[blockFilenameOffset:], uintptr(unsafe.Pointer(&filename[0])))

	key := uintptr(unsafe.Pointer(&block[0]))
	nativeCalls.Store(key, &nativeCall{module: m, cb: cb, pinner: &pinner})
	defer nativeCalls.Delete(key)

	status, _, _ := purego.SyscallN(m.decompress, uintptr(unsafe.Pointer(&src[0])), uintptr(len(src)), key)
	runtime.KeepAlive(block)
	runtime.KeepAlive(filename)
	runtime.KeepAlive(src)

	return int32(status) //nolint:gosec // C int status
}

// Close implements Module.
func (m *nativeModule) Close() error {
	return m.lib.close()
}

// describe asks the module for the output description of stream index.
func (m *nativeModule) describe(handle uintptr, index uintptr) Desc {
	var pinner runtime.Pinner
	defer pinner.Unpin()

	raw := make([]byte, descSize)
	pinner.Pin(&raw[0])
	purego.SyscallN(m.getOutputDesc, handle, index, uintptr(unsafe.Pointer(&raw[0])))

	return decodeNativeDesc(raw)
}

// onNativeBuffer is the module buffer callback:
// void* cb(int handle, DATA** data, int index, int mipLevel, status* st).
func onNativeBuffer(handle uintptr, dataPtr uintptr, index uintptr, level uintptr, status uintptr) uintptr {
	call := lookupNativeCall(dataPtr)
	if call == nil || status == 0 {
		return 0
	}

	pageSize := *(*uintptr)(unsafe.Pointer(status + statusSizeOffset)) //nolint:govet // C-owned memory
	describe := func() Desc {
		return call.module.describe(handle, index)
	}

	buf := call.cb.Buffer(int(int32(level)), uint32(pageSize), describe) //nolint:gosec // C int and size_t
	if len(buf) == 0 {
		return 0
	}

	call.pinner.Pin(&buf[0])
	return uintptr(unsafe.Pointer(&buf[0]))
}

// onNativeComplete is the module completion callback: void cb(int, DATA** data, int).
func onNativeComplete(_ uintptr, dataPtr uintptr, _ uintptr) uintptr {
	if call := lookupNativeCall(dataPtr); call != nil {
		call.cb.Complete()
	}

	return 0
}

// lookupNativeCall dereferences DATA** and returns the matching call.
func lookupNativeCall(dataPtr uintptr) *nativeCall {
	if dataPtr == 0 {
		return nil
	}

	key := *(*uintptr)(unsafe.Pointer(dataPtr)) //nolint:govet // C-owned memory
	v, ok := nativeCalls.Load(key)
	if !ok {
		return nil
	}

	return v.(*nativeCall) //nolint:forcetypeassert // map holds only *nativeCall
}

// decodeNativeDesc reads the packed output description.
func decodeNativeDesc(raw []byte) Desc {
	return Desc{
		Width:       binary.LittleEndian.Uint16(raw[ptrSize+4:]),
		Height:      binary.LittleEndian.Uint16(raw[ptrSize+6:]),
		MipmapCount: raw[ptrSize+8],
		PixelFormat: raw[ptrSize+9],
	}
}

// putNativePointer stores a pointer-sized little-endian value.
func putNativePointer(dst []byte, v uintptr) {
	if ptrSize == 8 {
		binary.LittleEndian.PutUint64(dst, uint64(v))
		return
	}

	binary.LittleEndian.PutUint32(dst, uint32(v))
}
