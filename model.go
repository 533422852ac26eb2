// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/fdb

package fdb

import (
	"log/slog"

	"github.com/woozymasta/fdb/redux"
	"github.com/woozymasta/pathrules"
	"golang.org/x/text/encoding"
)

// Format limits.
const (
	// Magic is the FDB file header magic.
	Magic uint32 = 0x46444201
	// DefaultMaxCompressedSize is the largest compressed payload accepted by Get.
	DefaultMaxCompressedSize = 256 << 20
	// DefaultMaxNameLength is the largest embedded entry name accepted by Get.
	DefaultMaxNameLength = 512

	// poisonSizeBit marks corrupted uncompressed size fields.
	poisonSizeBit = 1 << 31
	// codecChunkSize is the inflate/deflate output chunk size.
	codecChunkSize = 10 * 1024
)

// EntryType is the entry type tag stored in entry table and payload header.
type EntryType uint32

// Entry type tags.
const (
	EntryTypeUnknown EntryType = 0
	EntryTypeNormal  EntryType = 1
	EntryTypeImage   EntryType = 2
)

// String returns a short type name.
func (t EntryType) String() string {
	switch t {
	case EntryTypeNormal:
		return "normal"
	case EntryTypeImage:
		return "image"
	default:
		return "unknown"
	}
}

// Compression is the payload compression kind.
type Compression uint32

// Compression kinds. Only none and zlib are handled in-process; redux
// requires an external image decoder, rle and lzo always fail.
const (
	CompressionNone  Compression = 0
	CompressionRLE   Compression = 1
	CompressionLZO   Compression = 2
	CompressionZlib  Compression = 3
	CompressionRedux Compression = 4
)

// String returns a short compression name.
func (c Compression) String() string {
	switch c {
	case CompressionNone:
		return "none"
	case CompressionRLE:
		return "rle"
	case CompressionLZO:
		return "lzo"
	case CompressionZlib:
		return "zlib"
	case CompressionRedux:
		return "redux"
	default:
		return "unknown"
	}
}

// PixelFormat is the internal image pixel format code.
type PixelFormat uint32

// Pixel format codes with a DDS mapping.
const (
	PixelFormatA8R8G8B8  PixelFormat = 4
	PixelFormatDXT1      PixelFormat = 5
	PixelFormatDXT1Alpha PixelFormat = 6
	PixelFormatDXT5      PixelFormat = 8
)

// EntryRecord is one parsed entry table record.
type EntryRecord struct {
	// Type is the entry type tag.
	Type EntryType `json:"type" yaml:"type"`
	// Time is the raw 64-bit entry timestamp.
	Time uint64 `json:"time,omitempty" yaml:"time,omitempty"`
	// Offset is the absolute payload header offset; zero means no payload.
	Offset uint32 `json:"offset" yaml:"offset"`
}

// HasPayload reports whether the record points to a payload.
func (r EntryRecord) HasPayload() bool {
	return r.Offset != 0
}

// FileInfo is a metadata snapshot of one entry read without its payload.
type FileInfo struct {
	// Name is the normalized entry name.
	Name string `json:"name" yaml:"name"`
	// Type is the entry type tag from entry table.
	Type EntryType `json:"type" yaml:"type"`
	// Time is the raw 64-bit entry timestamp.
	Time uint64 `json:"time,omitempty" yaml:"time,omitempty"`
	// Compression is the payload compression kind.
	Compression Compression `json:"compression" yaml:"compression"`
	// CompressedSize is the stored compressed payload size.
	CompressedSize uint32 `json:"compressed_size" yaml:"compressed_size"`
	// UncompressedSize is the payload size after decompression.
	UncompressedSize uint32 `json:"uncompressed_size" yaml:"uncompressed_size"`
}

// ImageHeader is image metadata carried by image entries.
type ImageHeader struct {
	// PixelFormat is the internal pixel format code.
	PixelFormat PixelFormat `json:"pixel_format" yaml:"pixel_format"`
	// Width is the image width in pixels.
	Width uint32 `json:"width" yaml:"width"`
	// Height is the image height in pixels.
	Height uint32 `json:"height" yaml:"height"`
	// MipmapCount is the number of mip levels.
	MipmapCount uint8 `json:"mipmap_count" yaml:"mipmap_count"`
}

// ImageDecoder decodes redux-compressed image payloads.
// *redux.Codec implements it.
type ImageDecoder interface {
	Decode(src []byte) (redux.Image, error)
}

// Options configures archive open and entry materialization.
type Options struct {
	// Logger receives debug and warning events; nil discards them.
	Logger *slog.Logger `json:"-" yaml:"-"`
	// ImageDecoder is attached to image entries for redux decompression.
	ImageDecoder ImageDecoder `json:"-" yaml:"-"`
	// NameEncoding decodes raw name table bytes to UTF-8; nil keeps bytes as is.
	NameEncoding encoding.Encoding `json:"-" yaml:"-"`
	// MaxCompressedSize rejects entries with larger compressed size.
	// Default is 256 MiB.
	MaxCompressedSize uint32 `json:"max_compressed_size,omitempty" yaml:"max_compressed_size,omitempty"`
	// MaxNameLength rejects entries with longer embedded names.
	// Default is 512 bytes.
	MaxNameLength uint32 `json:"max_name_length,omitempty" yaml:"max_name_length,omitempty"`
}

// ExtractOptions configures Extract behavior.
type ExtractOptions struct {
	// OnEntryDone is called after one entry is fully written to disk.
	OnEntryDone func(info FileInfo, written int64, outputPath string) `json:"-" yaml:"-"`
	// Rules select entries by normalized name; empty rules select all entries.
	Rules []pathrules.Rule `json:"rules,omitempty" yaml:"rules,omitempty"`
	// MatcherOptions control rule matching.
	MatcherOptions pathrules.MatcherOptions `json:"matcher_options,omitzero" yaml:"matcher_options,omitzero"`
	// MaxWorkers is number of extraction workers (zero means GOMAXPROCS).
	MaxWorkers int `json:"max_workers,omitempty" yaml:"max_workers,omitempty"`
	// RawNames disables output path sanitization.
	RawNames bool `json:"raw_names,omitempty" yaml:"raw_names,omitempty"`
	// KeepCompressed writes payloads as stored instead of decompressing them.
	// Image headers are not synthesized for entries that stay compressed.
	KeepCompressed bool `json:"keep_compressed,omitempty" yaml:"keep_compressed,omitempty"`
	// SkipUndecodable skips entries whose payload cannot be decompressed
	// instead of failing the whole extraction.
	SkipUndecodable bool `json:"skip_undecodable,omitempty" yaml:"skip_undecodable,omitempty"`
}

// ExtractResult contains extraction statistics.
type ExtractResult struct {
	// Written is the number of files written.
	Written int `json:"written" yaml:"written"`
	// Skipped is the number of selected entries without usable payload.
	Skipped int `json:"skipped,omitempty" yaml:"skipped,omitempty"`
	// Bytes is the total number of bytes written.
	Bytes int64 `json:"bytes,omitempty" yaml:"bytes,omitempty"`
}

// applyDefaults fills zero-valued archive options with defaults.
func (opts *Options) applyDefaults() {
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.DiscardHandler)
	}

	if opts.MaxCompressedSize == 0 {
		opts.MaxCompressedSize = DefaultMaxCompressedSize
	}

	if opts.MaxNameLength == 0 {
		opts.MaxNameLength = DefaultMaxNameLength
	}
}

// applyDefaults fills zero-valued extract options with defaults.
func (opts *ExtractOptions) applyDefaults() {
	// Untouched matcher options match case-insensitively.
	if opts.MatcherOptions.DefaultAction == pathrules.ActionUnknown {
		opts.MatcherOptions.CaseInsensitive = true
		opts.MatcherOptions.DefaultAction = defaultSelectAction(opts.Rules)
	}
}
