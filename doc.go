// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/fdb

/*
Package fdb reads FDB archives: a flat table of named entries, each either a
generic data blob or an image with pixel format, dimensions, and mipmap
count. Payloads are stored raw, zlib-compressed, or packed with the
proprietary redux image codec.

Opening an archive parses only the index. Entries are materialized on demand
by Get, which validates the payload header before trusting any length field.
A materialized File owns its buffer and outlives the archive.

# Reading

	a, err := fdb.Open("textures.fdb")
	if err != nil {
	    return err
	}
	defer a.Close()

	for info, err := range a.Infos() {
	    if err != nil {
	        return err
	    }
	    fmt.Println(info.Name, info.Compression, info.UncompressedSize)
	}

	f, err := a.GetByName("ui/logo.tga")
	if err != nil {
	    return err
	}
	if err := f.ToFile("logo.tga", true); err != nil {
	    return err
	}

Names are normalized on load: leading '/', '\' and '.' are dropped,
backslashes become slashes, and ASCII letters are lowercased. Index and
GetByName match the normalized form exactly.

# Images

Image payloads are exported with a synthesized container header chosen by
the destination extension: ".tga", ".bmp", or ".dds". Redux-compressed
images need a decoder, normally the runtime-loaded native codec:

	codec := redux.New(redux.WithLogger(logger))
	defer codec.Close()

	a, err := fdb.OpenWithOptions("textures.fdb", fdb.Options{
	    Logger:       logger,
	    ImageDecoder: codec,
	})

Without a decoder, decompressing a redux entry fails with
ErrCodecUnavailable and the entry stays unchanged.

# Extracting

	res, err := a.Extract(ctx, "out/", fdb.ExtractOptions{
	    Rules: []pathrules.Rule{
	        {Action: pathrules.ActionInclude, Pattern: "ui/**"},
	    },
	    MaxWorkers:      4,
	    SkipUndecodable: true,
	})

Output names are sanitized by default; set RawNames to keep archive names.
Archives with legacy code-page names can be decoded with
Options.NameEncoding, for example charmap.Windows1252.
*/
package fdb
