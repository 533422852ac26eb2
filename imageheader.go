// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/fdb

package fdb

import (
	"encoding/binary"
	"strings"
)

// Synthesized container header sizes.
const (
	tgaHeaderSize     = 18
	bmpFileHeaderSize = 14
	bmpInfoHeaderSize = 40
	ddsHeaderSize     = 124
	ddsPixelFmtSize   = 32
)

// DDS header and pixel format flags.
const (
	ddsMagic = 0x20534444 // "DDS "

	ddsdTexture    = 0x00001007 // CAPS | HEIGHT | WIDTH | PIXELFORMAT
	ddsdMipmap     = 0x00020000
	ddsdLinearSize = 0x00080000

	ddscapsTexture = 0x00001000
	ddscapsMipmap  = 0x00400008 // COMPLEX | MIPMAP

	ddpfAlphaPixels = 0x00000001
	ddpfFourCC      = 0x00000004
	ddpfRGBA        = 0x00000041 // RGB | ALPHAPIXELS

	fourCCDXT1 = 0x31545844 // "DXT1"
	fourCCDXT5 = 0x35545844 // "DXT5"
)

// ddsPixelFormat is the DDS_PIXELFORMAT block.
type ddsPixelFormat struct {
	flags   uint32
	fourCC  uint32
	rgbBits uint32
	rMask   uint32
	gMask   uint32
	bMask   uint32
	aMask   uint32
}

// ddsPixelFormats maps internal pixel format codes to DDS pixel format blocks.
var ddsPixelFormats = map[PixelFormat]ddsPixelFormat{
	PixelFormatA8R8G8B8: {
		flags: ddpfRGBA, rgbBits: 32,
		rMask: 0x00ff0000, gMask: 0x0000ff00, bMask: 0x000000ff, aMask: 0xff000000,
	},
	PixelFormatDXT1:      {flags: ddpfFourCC, fourCC: fourCCDXT1},
	PixelFormatDXT1Alpha: {flags: ddpfFourCC | ddpfAlphaPixels, fourCC: fourCCDXT1},
	PixelFormatDXT5:      {flags: ddpfFourCC, fourCC: fourCCDXT5},
}

// imageExportHeader selects a header by case-sensitive suffix of dest.
// Unrecognized extensions get no header.
func imageExportHeader(dest string, name string, h ImageHeader) []byte {
	switch {
	case strings.HasSuffix(dest, ".tga"):
		return tgaHeader(h)
	case strings.HasSuffix(dest, ".bmp"):
		return bmpHeader(h)
	case strings.HasSuffix(dest, ".dds"):
		return ddsHeader(name, h)
	default:
		return nil
	}
}

// tgaHeader builds an uncompressed 32-bit true-color TGA header.
func tgaHeader(h ImageHeader) []byte {
	b := make([]byte, tgaHeaderSize)
	b[2] = 2 // uncompressed RGB

	binary.LittleEndian.PutUint16(b[12:14], uint16(h.Width))  //nolint:gosec // TGA field is 16-bit
	binary.LittleEndian.PutUint16(b[14:16], uint16(h.Height)) //nolint:gosec // TGA field is 16-bit

	b[16] = 32   // bits per pixel
	b[17] = 0x20 // top-left origin
	return b
}

// bmpHeader builds BITMAPFILEHEADER + BITMAPINFOHEADER with top-down rows.
func bmpHeader(h ImageHeader) []byte {
	const headersSize = bmpFileHeaderSize + bmpInfoHeaderSize

	b := make([]byte, headersSize)
	b[0], b[1] = 'B', 'M'
	fileSize := uint64(headersSize) + uint64(h.Width)*uint64(h.Height)*uint64(h.MipmapCount)
	binary.LittleEndian.PutUint32(b[2:6], uint32(fileSize)) //nolint:gosec // BMP size field is 32-bit
	binary.LittleEndian.PutUint32(b[10:14], headersSize)

	ih := b[bmpFileHeaderSize:]
	binary.LittleEndian.PutUint32(ih[0:4], bmpInfoHeaderSize)
	binary.LittleEndian.PutUint32(ih[4:8], h.Width)
	binary.LittleEndian.PutUint32(ih[8:12], uint32(-int32(h.Height))) //nolint:gosec // negative height is top-down
	binary.LittleEndian.PutUint16(ih[12:14], 1)
	binary.LittleEndian.PutUint16(ih[14:16], uint16(h.MipmapCount)*8)
	binary.LittleEndian.PutUint32(ih[24:28], h.Width)
	binary.LittleEndian.PutUint32(ih[28:32], h.Height)
	return b
}

// ddsHeader builds the DDS magic and header. It panics with
// *UnmappedFormatError for pixel formats without a DDS mapping.
func ddsHeader(name string, h ImageHeader) []byte {
	pf, ok := ddsPixelFormats[h.PixelFormat]
	if !ok {
		panic(&UnmappedFormatError{Name: name, PixelFormat: h.PixelFormat})
	}

	flags := uint32(ddsdTexture | ddsdLinearSize)
	caps := uint32(ddscapsTexture)
	if h.MipmapCount > 1 {
		flags |= ddsdMipmap
		caps |= ddscapsMipmap
	}

	linearSize := h.Width * 32
	if h.PixelFormat == PixelFormatDXT5 {
		linearSize = h.Width * 64 * 8
	}

	b := make([]byte, 4+ddsHeaderSize)
	binary.LittleEndian.PutUint32(b[0:4], ddsMagic)

	hdr := b[4:]
	binary.LittleEndian.PutUint32(hdr[0:4], ddsHeaderSize)
	binary.LittleEndian.PutUint32(hdr[4:8], flags)
	binary.LittleEndian.PutUint32(hdr[8:12], h.Height)
	binary.LittleEndian.PutUint32(hdr[12:16], h.Width)
	binary.LittleEndian.PutUint32(hdr[16:20], linearSize)
	binary.LittleEndian.PutUint32(hdr[24:28], uint32(h.MipmapCount))

	// 11 reserved dwords precede the pixel format block at 72.
	pfb := hdr[72 : 72+ddsPixelFmtSize]
	binary.LittleEndian.PutUint32(pfb[0:4], ddsPixelFmtSize)
	binary.LittleEndian.PutUint32(pfb[4:8], pf.flags)
	binary.LittleEndian.PutUint32(pfb[8:12], pf.fourCC)
	binary.LittleEndian.PutUint32(pfb[12:16], pf.rgbBits)
	binary.LittleEndian.PutUint32(pfb[16:20], pf.rMask)
	binary.LittleEndian.PutUint32(pfb[20:24], pf.gMask)
	binary.LittleEndian.PutUint32(pfb[24:28], pf.bMask)
	binary.LittleEndian.PutUint32(pfb[28:32], pf.aMask)

	binary.LittleEndian.PutUint32(hdr[104:108], caps)
	return b
}
