// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/fdb

package redux

import "fmt"

// Desc is the output description the module reports for the first mip level.
type Desc struct {
	Width       uint16
	Height      uint16
	MipmapCount uint8
	PixelFormat uint8
}

// Callbacks receive synchronous requests from a Module during Decompress.
type Callbacks interface {
	// Buffer returns the destination for the next page of decoded bytes.
	// describe is only meaningful for level 0.
	Buffer(level int, pageSize uint32, describe func() Desc) []byte
	// Complete signals that decoding finished.
	Complete()
}

// Module is a loaded redux decoder.
type Module interface {
	// Decompress decodes src, driving cb on the calling goroutine, and returns
	// the module status (zero on success).
	Decompress(src []byte, cb Callbacks) int32
	// Close releases the module.
	Close() error
}

// Image is a decoded redux image.
type Image struct {
	// Data holds all decoded mip levels.
	Data []byte
	// Width is the width rounded up to a power of two.
	Width uint32
	// Height is the height rounded up to a power of two.
	Height uint32
	// MipmapCount is the number of decoded mip levels.
	MipmapCount uint8
	// PixelFormat is the archive pixel format code (see RemapPixelFormat).
	PixelFormat uint32
}

// session tracks buffers handed to the module for one Decompress call.
type session struct {
	image     []byte
	staging   []byte
	width     uint32
	height    uint32
	imageSize uint32
	total     uint32
	pageSize  uint32
	format    uint32
	mipmaps   uint8
	started   bool
	done      bool
}

// Buffer implements Callbacks.
func (s *session) Buffer(level int, pageSize uint32, describe func() Desc) []byte {
	if level == 0 || !s.started {
		desc := describe()
		s.width = NextPowerOfTwo(uint32(desc.Width))
		s.height = NextPowerOfTwo(uint32(desc.Height))
		s.mipmaps = desc.MipmapCount
		s.format = RemapPixelFormat(desc.PixelFormat)
		s.imageSize = ImageSize(s.format, s.mipmaps, s.width, s.height)
		s.image = nil
		s.staging = nil
		s.total = 0
		s.started = true

		if s.imageSize > 0 {
			s.image = make([]byte, s.imageSize)
		}
	} else {
		s.total += s.pageSize
	}

	s.pageSize = pageSize
	if s.staging == nil && uint64(s.total)+uint64(pageSize) > uint64(len(s.image)) {
		s.staging = make([]byte, pageSize)
	}

	if s.staging != nil {
		if uint32(len(s.staging)) < pageSize {
			s.staging = make([]byte, pageSize)
		}

		return s.staging[:pageSize]
	}

	return s.image[s.total : s.total+pageSize]
}

// Complete implements Callbacks.
func (s *session) Complete() {
	s.staging = nil
	s.done = true
}

// result returns the decoded image once the module finished.
func (s *session) result() (Image, error) {
	if !s.started || s.imageSize == 0 {
		return Image{}, ErrEmptyOutput
	}

	if !s.done {
		return Image{}, fmt.Errorf("%w: module did not signal completion", ErrDecode)
	}

	return Image{
		Data:        s.image,
		Width:       s.width,
		Height:      s.height,
		MipmapCount: s.mipmaps,
		PixelFormat: s.format,
	}, nil
}
