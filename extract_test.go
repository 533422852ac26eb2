package fdb

import (
	"bytes"
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/woozymasta/pathrules"
)

func extractFixture(t *testing.T) *Archive {
	t.Helper()

	return openFixture(t, []fixtureEntry{
		plainEntry(`Docs\Readme.txt`, "readme"),
		zlibEntry(t, "data/big.bin", bytes.Repeat([]byte("big"), 10000)),
		{
			name:  "tex/wall.dds",
			typ:   EntryTypeImage,
			image: ImageHeader{PixelFormat: PixelFormatDXT1, Width: 4, Height: 4, MipmapCount: 1},
			data:  make([]byte, 8),
		},
		{name: "gap.bin", typ: EntryTypeNormal, noPayload: true},
		{name: "tex/packed.dds", typ: EntryTypeImage, compression: CompressionRedux,
			data: []byte{1, 2, 3}, uncompressedSize: 16},
	}, Options{})
}

func TestArchive_Extract(t *testing.T) {
	t.Parallel()

	a := extractFixture(t)
	dst := t.TempDir()

	var mu sync.Mutex
	done := map[string]int64{}
	res, err := a.Extract(context.Background(), dst, ExtractOptions{
		MaxWorkers:      2,
		SkipUndecodable: true,
		OnEntryDone: func(info FileInfo, written int64, _ string) {
			mu.Lock()
			done[info.Name] = written
			mu.Unlock()
		},
	})
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}

	if res.Written != 3 || res.Skipped != 2 {
		t.Fatalf("result=%+v, want 3 written / 2 skipped", res)
	}

	readme, err := os.ReadFile(filepath.Join(dst, "docs", "readme.txt"))
	if err != nil || string(readme) != "readme" {
		t.Fatalf("readme=%q, %v", readme, err)
	}

	big, err := os.ReadFile(filepath.Join(dst, "data", "big.bin"))
	if err != nil || !bytes.Equal(big, bytes.Repeat([]byte("big"), 10000)) {
		t.Fatalf("big.bin not decompressed: len=%d, %v", len(big), err)
	}

	wall, err := os.ReadFile(filepath.Join(dst, "tex", "wall.dds"))
	if err != nil {
		t.Fatal(err)
	}
	if len(wall) != 128+8 || string(wall[:4]) != "DDS " {
		t.Fatalf("wall.dds missing synthesized header: len=%d", len(wall))
	}

	if _, err := os.Stat(filepath.Join(dst, "tex", "packed.dds")); !errors.Is(err, os.ErrNotExist) {
		t.Fatal("undecodable entry must not be written")
	}

	if done["tex/wall.dds"] != 136 || len(done) != 3 {
		t.Fatalf("OnEntryDone calls=%v", done)
	}
	if res.Bytes != 6+30000+136 {
		t.Fatalf("Bytes=%d", res.Bytes)
	}
}

func TestArchive_ExtractUndecodableFails(t *testing.T) {
	t.Parallel()

	a := extractFixture(t)
	_, err := a.Extract(context.Background(), t.TempDir(), ExtractOptions{MaxWorkers: 1})
	if !errors.Is(err, ErrCodecUnavailable) {
		t.Fatalf("expected ErrCodecUnavailable, got %v", err)
	}
}

func TestArchive_ExtractKeepCompressed(t *testing.T) {
	t.Parallel()

	a := extractFixture(t)
	dst := t.TempDir()

	res, err := a.Extract(context.Background(), dst, ExtractOptions{
		KeepCompressed: true,
		Rules: []pathrules.Rule{
			{Action: pathrules.ActionInclude, Pattern: "tex/**"},
			{Action: pathrules.ActionInclude, Pattern: "data/**"},
		},
	})
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if res.Written != 3 {
		t.Fatalf("result=%+v", res)
	}

	packed, err := os.ReadFile(filepath.Join(dst, "tex", "packed.dds"))
	if err != nil || !bytes.Equal(packed, []byte{1, 2, 3}) {
		t.Fatalf("packed.dds=%v, %v", packed, err)
	}

	f, err := a.GetByName("data/big.bin")
	if err != nil {
		t.Fatal(err)
	}
	big, err := os.ReadFile(filepath.Join(dst, "data", "big.bin"))
	if err != nil || !bytes.Equal(big, f.Bytes()) {
		t.Fatal("big.bin must be written as stored")
	}

	if _, err := os.Stat(filepath.Join(dst, "docs")); !errors.Is(err, os.ErrNotExist) {
		t.Fatal("unselected entry was extracted")
	}
}

func TestArchive_ExtractSanitizesNames(t *testing.T) {
	t.Parallel()

	a := openFixture(t, []fixtureEntry{
		plainEntry("dir/con.txt", "device"),
		plainEntry("dir/a..b/../x.txt", "traversal"),
	}, Options{})
	dst := t.TempDir()

	if _, err := a.Extract(context.Background(), dst, ExtractOptions{}); err != nil {
		t.Fatalf("Extract: %v", err)
	}

	if _, err := os.Stat(filepath.Join(dst, "dir", "_con.txt")); err != nil {
		t.Fatalf("reserved name not sanitized: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dst, "dir", "a..b", "_", "x.txt")); err != nil {
		t.Fatalf("traversal segment not sanitized: %v", err)
	}
}

func TestArchive_ExtractRawNamesRejectsTraversal(t *testing.T) {
	t.Parallel()

	a := openFixture(t, []fixtureEntry{plainEntry("a/../../escape.txt", "x")}, Options{})
	_, err := a.Extract(context.Background(), t.TempDir(), ExtractOptions{RawNames: true})
	if !errors.Is(err, ErrInvalidExtractPath) {
		t.Fatalf("expected ErrInvalidExtractPath, got %v", err)
	}
}

func TestArchive_ExtractCanceled(t *testing.T) {
	t.Parallel()

	a := extractFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := a.Extract(ctx, t.TempDir(), ExtractOptions{SkipUndecodable: true})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestArchive_ExtractClosed(t *testing.T) {
	t.Parallel()

	a := extractFixture(t)
	_ = a.Close()

	if _, err := a.Extract(context.Background(), t.TempDir(), ExtractOptions{}); !errors.Is(err, ErrClosed) {
		t.Fatalf("expected ErrClosed, got %v", err)
	}
}

func TestArchive_ExtractUnmappedDDSFormatTerminates(t *testing.T) {
	t.Parallel()

	if os.Getenv("FDB_EXTRACT_UNMAPPED") == "1" {
		a := openFixture(t, []fixtureEntry{{
			name:  "tex/a.dds",
			typ:   EntryTypeImage,
			image: ImageHeader{PixelFormat: PixelFormat(3), Width: 4, Height: 4, MipmapCount: 1},
			data:  make([]byte, 8),
		}}, Options{})

		defer func() {
			if recover() != nil {
				os.Exit(3)
			}
		}()

		_, _ = a.Extract(context.Background(), t.TempDir(), ExtractOptions{MaxWorkers: 1})
		os.Exit(0)
	}

	cmd := exec.Command(os.Args[0], "-test.run=^TestArchive_ExtractUnmappedDDSFormatTerminates$")
	cmd.Env = append(os.Environ(), "FDB_EXTRACT_UNMAPPED=1")
	out, err := cmd.CombinedOutput()

	var exitErr *exec.ExitError
	if !errors.As(err, &exitErr) {
		t.Fatalf("expected the child process to crash, got %v\n%s", err, out)
	}
	if exitErr.ExitCode() == 3 {
		t.Fatal("worker panic must not reach the caller's recover")
	}
	if !strings.Contains(string(out), "no DDS pixel format for code 3") {
		t.Fatalf("missing panic message:\n%s", out)
	}
}
