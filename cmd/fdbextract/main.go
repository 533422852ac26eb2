// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/fdb

// Command fdbextract lists and extracts FDB archives.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"log/slog"
	"maps"
	"os"
	"os/signal"
	"slices"
	"strings"
	"text/tabwriter"

	"github.com/woozymasta/fdb"
	"github.com/woozymasta/fdb/redux"
	"github.com/woozymasta/pathrules"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/korean"
	"golang.org/x/text/encoding/traditionalchinese"
)

// errUsage reports invalid command line arguments.
var errUsage = errors.New("usage: fdbextract [flags] <archive.fdb>")

// nameEncodings maps -encoding values to legacy code pages.
var nameEncodings = map[string]encoding.Encoding{
	"cp437":        charmap.CodePage437,
	"cp850":        charmap.CodePage850,
	"windows-1250": charmap.Windows1250,
	"windows-1251": charmap.Windows1251,
	"windows-1252": charmap.Windows1252,
	"euc-kr":       korean.EUCKR,
	"big5":         traditionalchinese.Big5,
}

type config struct {
	archive        string
	outDir         string
	encoding       string
	reduxPath      string
	rules          []pathrules.Rule
	workers        int
	list           bool
	rawNames       bool
	keepCompressed bool
	strict         bool
	verbose        bool
}

// ruleFlag appends rules with a fixed action, keeping command line order.
type ruleFlag struct {
	rules  *[]pathrules.Rule
	action pathrules.Action
}

func (f ruleFlag) String() string { return "" }

func (f ruleFlag) Set(pattern string) error {
	*f.rules = append(*f.rules, pathrules.Rule{Action: f.action, Pattern: pattern})
	return nil
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return
		}
		log.Fatal(err) //nolint:gocritic // stop is best-effort on exit
	}
}

// run executes the command with args excluding the program name.
func run(ctx context.Context, args []string, stdout io.Writer, stderr io.Writer) error {
	cfg, err := parseFlags(args, stderr)
	if err != nil {
		return err
	}

	level := slog.LevelInfo
	if cfg.verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level}))

	opts := fdb.Options{Logger: logger}
	if cfg.encoding != "" {
		enc, ok := nameEncodings[strings.ToLower(cfg.encoding)]
		if !ok {
			return fmt.Errorf("unknown name encoding %q", cfg.encoding)
		}
		opts.NameEncoding = enc
	}

	if !cfg.list && !cfg.keepCompressed {
		codecOpts := []redux.Option{redux.WithLogger(logger)}
		if cfg.reduxPath != "" {
			codecOpts = append(codecOpts, redux.WithLibraryPath(cfg.reduxPath))
		}

		codec := redux.New(codecOpts...)
		defer func() { _ = codec.Close() }()
		opts.ImageDecoder = codec
	}

	a, err := fdb.OpenWithOptions(cfg.archive, opts)
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	if cfg.list {
		return listEntries(a, cfg.rules, stdout)
	}

	res, err := a.Extract(ctx, cfg.outDir, fdb.ExtractOptions{
		Rules:           cfg.rules,
		MaxWorkers:      cfg.workers,
		RawNames:        cfg.rawNames,
		KeepCompressed:  cfg.keepCompressed,
		SkipUndecodable: !cfg.strict,
		OnEntryDone: func(info fdb.FileInfo, written int64, outputPath string) {
			logger.Debug("extracted", "name", info.Name, "bytes", written, "path", outputPath)
		},
	})
	if err != nil {
		return err
	}

	logger.Info("extraction finished",
		"archive", cfg.archive,
		"written", res.Written,
		"skipped", res.Skipped,
		"bytes", res.Bytes,
	)
	return nil
}

// parseFlags parses args into config.
func parseFlags(args []string, output io.Writer) (config, error) {
	var cfg config

	fs := flag.NewFlagSet("fdbextract", flag.ContinueOnError)
	fs.SetOutput(output)
	fs.StringVar(&cfg.outDir, "o", ".", "output directory")
	fs.BoolVar(&cfg.list, "list", false, "list entries instead of extracting")
	fs.Var(ruleFlag{rules: &cfg.rules, action: pathrules.ActionInclude}, "include", "include pattern (repeatable)")
	fs.Var(ruleFlag{rules: &cfg.rules, action: pathrules.ActionExclude}, "exclude", "exclude pattern (repeatable)")
	fs.BoolVar(&cfg.rawNames, "raw", false, "keep archive names instead of sanitizing output paths")
	fs.BoolVar(&cfg.keepCompressed, "keep-compressed", false, "write payloads as stored without decompression")
	fs.BoolVar(&cfg.strict, "strict", false, "fail on undecodable entries instead of skipping them")
	fs.IntVar(&cfg.workers, "workers", 0, "extraction workers (0 means GOMAXPROCS)")
	fs.StringVar(&cfg.encoding, "encoding", "", "legacy name encoding: "+encodingNames())
	fs.StringVar(&cfg.reduxPath, "redux", "", "path to the redux native module (default "+redux.LibraryName()+")")
	fs.BoolVar(&cfg.verbose, "v", false, "verbose logging")

	if err := fs.Parse(args); err != nil {
		return config{}, err
	}

	if fs.NArg() != 1 {
		fs.Usage()
		return config{}, errUsage
	}

	cfg.archive = fs.Arg(0)
	return cfg, nil
}

// listEntries prints metadata of entries selected by rules.
func listEntries(a *fdb.Archive, rules []pathrules.Rule, stdout io.Writer) error {
	selected, err := a.Select(rules, pathrules.MatcherOptions{})
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(stdout, 0, 4, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "NAME\tTYPE\tCOMPRESSION\tSTORED\tSIZE")
	for _, i := range selected {
		info, err := a.Info(i)
		if err != nil {
			return err
		}

		_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%d\n",
			info.Name, info.Type, info.Compression, info.CompressedSize, info.UncompressedSize)
	}

	return tw.Flush()
}

// encodingNames returns a comma-separated list of supported encodings.
func encodingNames() string {
	return strings.Join(slices.Sorted(maps.Keys(nameEncodings)), ", ")
}
