// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/fdb

package fdb

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"
)

// extractWorkItem stores one selected entry with prepared output relative paths.
type extractWorkItem struct {
	name    string
	relPath string
	relDir  string
	record  EntryRecord
	index   int
}

// extractCounters accumulates ExtractResult across workers.
type extractCounters struct {
	result ExtractResult
	mu     sync.Mutex
}

func (c *extractCounters) written(n int64) {
	c.mu.Lock()
	c.result.Written++
	c.result.Bytes += n
	c.mu.Unlock()
}

func (c *extractCounters) skipped() {
	c.mu.Lock()
	c.result.Skipped++
	c.mu.Unlock()
}

// Extract writes selected entries to dstDir, decompressing them and
// synthesizing image headers by output extension. Entries without usable
// payload are skipped. Extraction is parallelized by MaxWorkers; on failure
// it returns the first encountered error and the counts reached so far.
//
// Writes run on worker goroutines, so an image entry exported to a ".dds"
// path with an unmapped pixel format panics with *UnmappedFormatError and
// terminates the process; callers cannot recover it.
func (a *Archive) Extract(ctx context.Context, dstDir string, opts ExtractOptions) (ExtractResult, error) {
	if a == nil {
		return ExtractResult{}, ErrNilReader
	}

	opts.applyDefaults()

	selected, err := a.Select(opts.Rules, opts.MatcherOptions)
	if err != nil {
		return ExtractResult{}, err
	}

	if len(selected) == 0 {
		return ExtractResult{}, nil
	}

	workItems, err := a.prepareExtractWorkItems(selected, opts.RawNames)
	if err != nil {
		return ExtractResult{}, err
	}

	dstRootAbs, err := filepath.Abs(dstDir)
	if err != nil {
		return ExtractResult{}, fmt.Errorf("resolve output dir: %w", err)
	}

	if err := os.MkdirAll(dstRootAbs, 0o750); err != nil {
		return ExtractResult{}, fmt.Errorf("create output dir: %w", err)
	}

	if err := prepareExtractDirs(dstRootAbs, workItems); err != nil {
		return ExtractResult{}, err
	}

	workers := opts.MaxWorkers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	var counters extractCounters
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for _, task := range workItems {
		if gctx.Err() != nil {
			break
		}

		g.Go(func() error {
			return a.extractPreparedEntry(gctx, dstRootAbs, task, &opts, &counters)
		})
	}

	err = g.Wait()
	if err == nil {
		err = ctx.Err()
	}

	a.logger.Debug("extracted FDB entries",
		"written", counters.result.Written,
		"skipped", counters.result.Skipped,
		"bytes", counters.result.Bytes,
	)

	return counters.result, err
}

// prepareExtractWorkItems resolves selected indexes into output relative paths.
func (a *Archive) prepareExtractWorkItems(selected []int, rawNames bool) ([]extractWorkItem, error) {
	records := a.Records()
	names := a.Names()
	if len(records) == 0 {
		return nil, ErrClosed
	}

	selectedNames := make([]string, len(selected))
	for i, idx := range selected {
		selectedNames[i] = names[idx]
	}

	if !rawNames {
		sanitized, err := sanitizeNames(selectedNames)
		if err != nil {
			return nil, err
		}

		selectedNames = sanitized
	}

	workItems := make([]extractWorkItem, 0, len(selected))
	for i, idx := range selected {
		normalizedPath, err := normalizeExtractEntryPath(selectedNames[i])
		if err != nil {
			return nil, fmt.Errorf("entry %d (%s): %w", idx, names[idx], err)
		}

		relPath := filepath.FromSlash(normalizedPath)
		relDir := filepath.Dir(relPath)
		if relDir == "." {
			relDir = ""
		}

		workItems = append(workItems, extractWorkItem{
			index:   idx,
			name:    names[idx],
			record:  records[idx],
			relPath: relPath,
			relDir:  relDir,
		})
	}

	return workItems, nil
}

// prepareExtractDirs creates all unique parent directories needed by work items.
func prepareExtractDirs(dstRootAbs string, workItems []extractWorkItem) error {
	seen := make(map[string]struct{}, len(workItems))
	for _, task := range workItems {
		if task.relDir == "" {
			continue
		}

		dirPath := filepath.Join(dstRootAbs, task.relDir)
		if _, exists := seen[dirPath]; exists {
			continue
		}

		seen[dirPath] = struct{}{}
		if err := os.MkdirAll(dirPath, 0o750); err != nil {
			return fmt.Errorf("create output directory %s: %w", dirPath, err)
		}
	}

	return nil
}

// extractPreparedEntry materializes and writes one prepared work item.
func (a *Archive) extractPreparedEntry(
	ctx context.Context,
	dstRootAbs string,
	task extractWorkItem,
	opts *ExtractOptions,
	counters *extractCounters,
) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	f, err := a.Get(task.index)
	if err != nil {
		if errors.Is(err, ErrInvalidEntry) {
			a.logger.Warn("skipped entry", "index", task.index, "name", task.name, "error", err)
			counters.skipped()
			return nil
		}

		return err
	}

	info := FileInfo{
		Name:             f.Name(),
		Type:             task.record.Type,
		Time:             f.Time(),
		Compression:      f.Compression(),
		CompressedSize:   f.CompressedSize(),
		UncompressedSize: f.UncompressedSize(),
	}

	if !opts.KeepCompressed {
		if err := f.Decompress(); err != nil {
			if !opts.SkipUndecodable {
				return err
			}

			a.logger.Warn("skipped undecodable entry", "index", task.index, "name", task.name, "error", err)
			counters.skipped()
			return nil
		}
	}

	outPath := filepath.Join(dstRootAbs, task.relPath)
	out, err := os.OpenFile(outPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		return fmt.Errorf("open %s: %w", task.name, err)
	}

	var written int64
	var writeErr error
	if f.Compression() == CompressionNone {
		written, writeErr = f.Export(out, outPath)
	} else {
		var n int
		n, writeErr = out.Write(f.Bytes())
		written = int64(n)
	}

	closeErr := out.Close()
	if writeErr != nil {
		return fmt.Errorf("write %s: %w", task.name, writeErr)
	}

	if closeErr != nil {
		return fmt.Errorf("close %s: %w", task.name, closeErr)
	}

	counters.written(written)
	if opts.OnEntryDone != nil {
		opts.OnEntryDone(info, written, outPath)
	}

	return nil
}

// normalizeExtractEntryPath normalizes entry path and rejects absolute/traversal inputs.
func normalizeExtractEntryPath(entryPath string) (string, error) {
	raw := strings.TrimSpace(entryPath)
	if raw == "" {
		return "", ErrInvalidExtractPath
	}

	if strings.ContainsRune(raw, 0) {
		return "", ErrInvalidExtractPath
	}

	if strings.HasPrefix(raw, `/`) || strings.HasPrefix(raw, `\`) {
		return "", ErrInvalidExtractPath
	}

	raw = strings.ReplaceAll(raw, `\`, `/`)
	if hasWindowsAbsDrivePrefix(raw) {
		return "", ErrInvalidExtractPath
	}

	parts := strings.Split(raw, `/`)
	cleanParts := make([]string, 0, len(parts))
	for _, part := range parts {
		switch part {
		case "", ".":
			continue
		case "..":
			return "", ErrInvalidExtractPath
		default:
			cleanParts = append(cleanParts, part)
		}
	}

	if len(cleanParts) == 0 {
		return "", ErrInvalidExtractPath
	}

	return strings.Join(cleanParts, `/`), nil
}

// hasWindowsAbsDrivePrefix reports whether path starts with drive-root prefix like C:/.
func hasWindowsAbsDrivePrefix(path string) bool {
	if len(path) < 3 {
		return false
	}

	return isASCIIAlpha(path[0]) && path[1] == ':' && path[2] == '/'
}

// isASCIIAlpha reports whether byte is ASCII latin letter.
func isASCIIAlpha(b byte) bool {
	return (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z')
}
