// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/fdb

package redux

// NextPowerOfTwo rounds v up to the next power of two; zero stays zero.
func NextPowerOfTwo(v uint32) uint32 {
	if v == 0 {
		return 0
	}

	p := uint32(1)
	for p < v && p != 0 {
		p <<= 1
	}

	return p
}

// RemapPixelFormat converts a module pixel format to the archive pixel format code.
// Unknown module formats map to 0.
func RemapPixelFormat(moduleFormat uint8) uint32 {
	switch moduleFormat {
	case 0, 4:
		return 4
	case 1:
		return 5
	case 8:
		return 3
	case 9:
		return 7
	case 16, 20:
		return 2
	case 17:
		return 8
	case 21:
		return 6
	case 24:
		return 1
	default:
		return 0
	}
}

// ImageSize returns decoded byte size of all mip levels for an archive pixel format.
// Raw formats use bytes-per-pixel; DXT-class formats use 4x4 blocks.
// Unknown formats yield zero.
func ImageSize(format uint32, mipmapCount uint8, width uint32, height uint32) uint32 {
	levels := max(int(mipmapCount), 1)

	var size uint64
	for range levels {
		w := uint64(width)
		h := uint64(height)

		switch format {
		case 1, 2:
			size += 2 * max(w, 1) * max(h, 1)
		case 3:
			size += 3 * max(w, 1) * max(h, 1)
		case 4:
			size += 4 * max(w, 1) * max(h, 1)
		case 5, 6:
			size += max(w, 4) * max(h, 4) / 2
		case 7, 8:
			size += max(w, 4) * max(h, 4)
		}

		width >>= 1
		height >>= 1
	}

	if size > uint64(^uint32(0)) {
		return 0
	}

	return uint32(size)
}
