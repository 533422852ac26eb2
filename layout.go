// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/fdb

package fdb

import "encoding/binary"

// Packed on-disk record sizes (little-endian, 4-byte packing).
const (
	fileHeaderSize    = 8
	entryRecordSize   = 16
	payloadHeaderSize = 32
	imageHeaderSize   = 16
)

// fileHeader is the fixed archive header.
type fileHeader struct {
	magic      uint32
	entryCount uint32
}

// payloadHeader is the fixed record preceding every entry payload.
type payloadHeader struct {
	headerSize       uint32
	entryType        EntryType
	compression      Compression
	uncompressedSize uint32
	compressedSize   uint32
	time             uint64
	nameLength       uint32
}

// payloadSize returns the number of payload bytes stored after the headers.
func (h payloadHeader) payloadSize() uint32 {
	if h.compression == CompressionNone {
		return h.uncompressedSize
	}

	return h.compressedSize
}

func decodeFileHeader(b []byte) fileHeader {
	_ = b[fileHeaderSize-1]
	return fileHeader{
		magic:      binary.LittleEndian.Uint32(b[0:4]),
		entryCount: binary.LittleEndian.Uint32(b[4:8]),
	}
}

func appendFileHeader(dst []byte, h fileHeader) []byte {
	dst = binary.LittleEndian.AppendUint32(dst, h.magic)
	return binary.LittleEndian.AppendUint32(dst, h.entryCount)
}

func decodeEntryRecord(b []byte) EntryRecord {
	_ = b[entryRecordSize-1]
	return EntryRecord{
		Type:   EntryType(binary.LittleEndian.Uint32(b[0:4])),
		Time:   binary.LittleEndian.Uint64(b[4:12]),
		Offset: binary.LittleEndian.Uint32(b[12:16]),
	}
}

func appendEntryRecord(dst []byte, r EntryRecord) []byte {
	dst = binary.LittleEndian.AppendUint32(dst, uint32(r.Type))
	dst = binary.LittleEndian.AppendUint64(dst, r.Time)
	return binary.LittleEndian.AppendUint32(dst, r.Offset)
}

func decodePayloadHeader(b []byte) payloadHeader {
	_ = b[payloadHeaderSize-1]
	return payloadHeader{
		headerSize:       binary.LittleEndian.Uint32(b[0:4]),
		entryType:        EntryType(binary.LittleEndian.Uint32(b[4:8])),
		compression:      Compression(binary.LittleEndian.Uint32(b[8:12])),
		uncompressedSize: binary.LittleEndian.Uint32(b[12:16]),
		compressedSize:   binary.LittleEndian.Uint32(b[16:20]),
		time:             binary.LittleEndian.Uint64(b[20:28]),
		nameLength:       binary.LittleEndian.Uint32(b[28:32]),
	}
}

func appendPayloadHeader(dst []byte, h payloadHeader) []byte {
	dst = binary.LittleEndian.AppendUint32(dst, h.headerSize)
	dst = binary.LittleEndian.AppendUint32(dst, uint32(h.entryType))
	dst = binary.LittleEndian.AppendUint32(dst, uint32(h.compression))
	dst = binary.LittleEndian.AppendUint32(dst, h.uncompressedSize)
	dst = binary.LittleEndian.AppendUint32(dst, h.compressedSize)
	dst = binary.LittleEndian.AppendUint64(dst, h.time)
	return binary.LittleEndian.AppendUint32(dst, h.nameLength)
}

// decodeImageHeader reads the image sub-header; the 3 trailing bytes are reserved.
func decodeImageHeader(b []byte) ImageHeader {
	_ = b[imageHeaderSize-1]
	return ImageHeader{
		PixelFormat: PixelFormat(binary.LittleEndian.Uint32(b[0:4])),
		Width:       binary.LittleEndian.Uint32(b[4:8]),
		Height:      binary.LittleEndian.Uint32(b[8:12]),
		MipmapCount: b[12],
	}
}

func appendImageHeader(dst []byte, h ImageHeader) []byte {
	dst = binary.LittleEndian.AppendUint32(dst, uint32(h.PixelFormat))
	dst = binary.LittleEndian.AppendUint32(dst, h.Width)
	dst = binary.LittleEndian.AppendUint32(dst, h.Height)
	return append(dst, h.MipmapCount, 0, 0, 0)
}
