// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/uebundle

package uebundle

import (
	"archive/tar"
	"archive/zip"
	"bytes"
	"compress/gzip"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

func TestDetectArchiveFormat(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		in   string
		want ArchiveFormat
	}{
		{in: "mod.zip", want: FormatZip},
		{in: "MOD.ZIP", want: FormatZip},
		{in: "/some/dir/mod.rar", want: FormatRar},
		{in: "mod.tar", want: FormatTar},
		{in: "mod.tar.gz", want: FormatTarGz},
		{in: "mod.tgz", want: FormatTarGz},
		{in: "mod.tar.zst", want: FormatTarZst},
		{in: "mod.tar.lz4", want: FormatTarLz4},
	}

	for _, tc := range testCases {
		got, err := DetectArchiveFormat(tc.in)
		if err != nil {
			t.Fatalf("DetectArchiveFormat(%q): %v", tc.in, err)
		}
		if got != tc.want {
			t.Fatalf("DetectArchiveFormat(%q)=%v, want %v", tc.in, got, tc.want)
		}
	}
}

func TestDetectArchiveFormat_Unsupported(t *testing.T) {
	t.Parallel()

	for _, in := range []string{"mod.7z", "mod.pak", "mod", "mod.gz"} {
		if _, err := DetectArchiveFormat(in); !errors.Is(err, ErrInvalidFormat) {
			t.Fatalf("DetectArchiveFormat(%q): expected ErrInvalidFormat, got %v", in, err)
		}
	}
}

func TestArchiveFormatString(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		format ArchiveFormat
		want   string
	}{
		{format: FormatZip, want: "zip"},
		{format: FormatRar, want: "rar"},
		{format: FormatTar, want: "tar"},
		{format: FormatTarGz, want: "tar.gz"},
		{format: FormatTarZst, want: "tar.zst"},
		{format: FormatTarLz4, want: "tar.lz4"},
		{format: ArchiveFormat(0), want: "unknown"},
	}

	for _, tc := range testCases {
		if got := tc.format.String(); got != tc.want {
			t.Fatalf("ArchiveFormat(%d).String()=%q, want %q", tc.format, got, tc.want)
		}
	}
}

type zipFixtureEntry struct {
	name    string
	data    []byte
	dir     bool
	nonUTF8 bool
}

// buildZipFixture writes a zip archive with the given entries and returns its path.
func buildZipFixture(t *testing.T, entries []zipFixtureEntry) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "fixture.zip")
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create zip: %v", err)
	}

	zw := zip.NewWriter(f)
	for _, e := range entries {
		if e.dir {
			if _, err := zw.Create(e.name + "/"); err != nil {
				_ = f.Close()
				t.Fatalf("create zip dir entry %q: %v", e.name, err)
			}

			continue
		}

		w, err := zw.CreateHeader(&zip.FileHeader{
			Name:    e.name,
			Method:  zip.Deflate,
			NonUTF8: e.nonUTF8,
		})
		if err != nil {
			_ = f.Close()
			t.Fatalf("create zip entry %q: %v", e.name, err)
		}
		if _, err := w.Write(e.data); err != nil {
			_ = f.Close()
			t.Fatalf("write zip entry %q: %v", e.name, err)
		}
	}

	if err := zw.Close(); err != nil {
		_ = f.Close()
		t.Fatalf("close zip writer: %v", err)
	}
	if err := f.Close(); err != nil {
		t.Fatalf("close zip: %v", err)
	}

	return path
}

func TestStageZip(t *testing.T) {
	t.Parallel()

	archive := buildZipFixture(t, []zipFixtureEntry{
		{name: "Paks", dir: true},
		{name: "Paks/Main.pak", data: []byte("pak bytes")},
		{name: "Paks/Main.utoc", data: []byte("utoc bytes")},
		{name: "readme.txt", data: []byte("hello")},
	})

	scratch, err := Stage(context.Background(), archive, StageOptions{})
	if err != nil {
		t.Fatalf("Stage: %v", err)
	}
	defer func() { _ = scratch.Close() }()

	testCases := []struct {
		path string
		want []byte
	}{
		{path: "Paks/Main.pak", want: []byte("pak bytes")},
		{path: "Paks/Main.utoc", want: []byte("utoc bytes")},
		{path: "readme.txt", want: []byte("hello")},
	}

	for _, tc := range testCases {
		got, err := os.ReadFile(filepath.Join(scratch.Dir(), filepath.FromSlash(tc.path)))
		if err != nil {
			t.Fatalf("read %s: %v", tc.path, err)
		}
		if !bytes.Equal(got, tc.want) {
			t.Fatalf("%s=%q, want %q", tc.path, got, tc.want)
		}
	}
}

func TestStageZip_RejectsTraversalFileEntry(t *testing.T) {
	t.Parallel()

	archive := buildZipFixture(t, []zipFixtureEntry{
		{name: "ok.txt", data: []byte("ok")},
		{name: "../evil.txt", data: []byte("evil")},
	})

	parent := t.TempDir()
	_, err := Stage(context.Background(), archive, StageOptions{Dir: parent})
	if !errors.Is(err, ErrInvalidExtractPath) {
		t.Fatalf("expected ErrInvalidExtractPath, got %v", err)
	}

	// A failed stage abandons its scratch directory in place.
	left, err := os.ReadDir(parent)
	if err != nil {
		t.Fatalf("read parent dir: %v", err)
	}
	if len(left) != 1 {
		t.Fatalf("len(left)=%d, want 1 abandoned scratch dir", len(left))
	}
}

func TestStageZip_SkipsInvalidDirEntry(t *testing.T) {
	t.Parallel()

	archive := buildZipFixture(t, []zipFixtureEntry{
		{name: "..", dir: true},
		{name: "data", dir: true},
		{name: "data/file.pak", data: []byte("x")},
	})

	scratch, err := Stage(context.Background(), archive, StageOptions{})
	if err != nil {
		t.Fatalf("Stage: %v", err)
	}
	defer func() { _ = scratch.Close() }()

	if _, err := os.Stat(filepath.Join(scratch.Dir(), "data", "file.pak")); err != nil {
		t.Fatalf("stat staged file: %v", err)
	}
}

func TestStageZip_DecodesLegacyNames(t *testing.T) {
	t.Parallel()

	// 0x82 is é in code page 437.
	rawName := "caf" + string([]byte{0x82}) + ".txt"
	archive := buildZipFixture(t, []zipFixtureEntry{
		{name: rawName, data: []byte("coffee"), nonUTF8: true},
	})

	scratch, err := Stage(context.Background(), archive, StageOptions{})
	if err != nil {
		t.Fatalf("Stage: %v", err)
	}
	defer func() { _ = scratch.Close() }()

	got, err := os.ReadFile(filepath.Join(scratch.Dir(), "café.txt"))
	if err != nil {
		t.Fatalf("read decoded name: %v", err)
	}
	if !bytes.Equal(got, []byte("coffee")) {
		t.Fatalf("content=%q, want coffee", got)
	}
}

type tarFixtureEntry struct {
	name string
	data []byte
	link string
	dir  bool
}

// buildTarFixture writes a tar archive, wrapped by the requested compression,
// and returns its path.
func buildTarFixture(t *testing.T, fileName string, format ArchiveFormat, entries []tarFixtureEntry) string {
	t.Helper()

	var raw bytes.Buffer
	tw := tar.NewWriter(&raw)
	for _, e := range entries {
		switch {
		case e.dir:
			if err := tw.WriteHeader(&tar.Header{Name: e.name, Typeflag: tar.TypeDir, Mode: 0o755}); err != nil {
				t.Fatalf("write tar dir %q: %v", e.name, err)
			}
		case e.link != "":
			if err := tw.WriteHeader(&tar.Header{Name: e.name, Typeflag: tar.TypeSymlink, Linkname: e.link, Mode: 0o777}); err != nil {
				t.Fatalf("write tar symlink %q: %v", e.name, err)
			}
		default:
			hdr := &tar.Header{Name: e.name, Typeflag: tar.TypeReg, Mode: 0o644, Size: int64(len(e.data))}
			if err := tw.WriteHeader(hdr); err != nil {
				t.Fatalf("write tar header %q: %v", e.name, err)
			}
			if _, err := tw.Write(e.data); err != nil {
				t.Fatalf("write tar data %q: %v", e.name, err)
			}
		}
	}
	if err := tw.Close(); err != nil {
		t.Fatalf("close tar writer: %v", err)
	}

	path := filepath.Join(t.TempDir(), fileName)
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create archive: %v", err)
	}

	switch format {
	case FormatTarGz:
		gz := gzip.NewWriter(f)
		if _, err := gz.Write(raw.Bytes()); err != nil {
			t.Fatalf("gzip write: %v", err)
		}
		if err := gz.Close(); err != nil {
			t.Fatalf("gzip close: %v", err)
		}
	case FormatTarZst:
		zw, err := zstd.NewWriter(f)
		if err != nil {
			t.Fatalf("zstd writer: %v", err)
		}
		if _, err := zw.Write(raw.Bytes()); err != nil {
			t.Fatalf("zstd write: %v", err)
		}
		if err := zw.Close(); err != nil {
			t.Fatalf("zstd close: %v", err)
		}
	case FormatTarLz4:
		lw := lz4.NewWriter(f)
		if _, err := lw.Write(raw.Bytes()); err != nil {
			t.Fatalf("lz4 write: %v", err)
		}
		if err := lw.Close(); err != nil {
			t.Fatalf("lz4 close: %v", err)
		}
	default:
		if _, err := f.Write(raw.Bytes()); err != nil {
			t.Fatalf("tar write: %v", err)
		}
	}

	if err := f.Close(); err != nil {
		t.Fatalf("close archive: %v", err)
	}

	return path
}

func TestStageTarFamily(t *testing.T) {
	t.Parallel()

	entries := []tarFixtureEntry{
		{name: "data/", dir: true},
		{name: "data/Main.pak", data: []byte("pak bytes")},
		{name: "readme.txt", data: []byte("hello")},
		{name: "link", link: "readme.txt"},
	}

	testCases := []struct {
		fileName string
		format   ArchiveFormat
	}{
		{fileName: "fixture.tar", format: FormatTar},
		{fileName: "fixture.tar.gz", format: FormatTarGz},
		{fileName: "fixture.tar.zst", format: FormatTarZst},
		{fileName: "fixture.tar.lz4", format: FormatTarLz4},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.format.String(), func(t *testing.T) {
			t.Parallel()

			archive := buildTarFixture(t, tc.fileName, tc.format, entries)

			scratch, err := Stage(context.Background(), archive, StageOptions{})
			if err != nil {
				t.Fatalf("Stage: %v", err)
			}
			defer func() { _ = scratch.Close() }()

			got, err := os.ReadFile(filepath.Join(scratch.Dir(), "data", "Main.pak"))
			if err != nil {
				t.Fatalf("read staged pak: %v", err)
			}
			if !bytes.Equal(got, []byte("pak bytes")) {
				t.Fatalf("staged pak=%q, want pak bytes", got)
			}

			if _, err := os.ReadFile(filepath.Join(scratch.Dir(), "readme.txt")); err != nil {
				t.Fatalf("read staged readme: %v", err)
			}

			if _, err := os.Lstat(filepath.Join(scratch.Dir(), "link")); !errors.Is(err, os.ErrNotExist) {
				t.Fatalf("symlink must not be staged, lstat err=%v", err)
			}
		})
	}
}

func TestStageTar_RejectsTraversalFileEntry(t *testing.T) {
	t.Parallel()

	archive := buildTarFixture(t, "evil.tar", FormatTar, []tarFixtureEntry{
		{name: "../evil.txt", data: []byte("evil")},
	})

	_, err := Stage(context.Background(), archive, StageOptions{})
	if !errors.Is(err, ErrInvalidExtractPath) {
		t.Fatalf("expected ErrInvalidExtractPath, got %v", err)
	}
}

func TestStage_MissingArchive(t *testing.T) {
	t.Parallel()

	_, err := Stage(context.Background(), filepath.Join(t.TempDir(), "missing.zip"), StageOptions{})
	if !errors.Is(err, ErrFileNotFound) {
		t.Fatalf("expected ErrFileNotFound, got %v", err)
	}
}

func TestStage_DirectoryArchive(t *testing.T) {
	t.Parallel()

	dir := filepath.Join(t.TempDir(), "fake.zip")
	if err := os.MkdirAll(dir, 0o750); err != nil {
		t.Fatalf("mkdir: %v", err)
	}

	_, err := Stage(context.Background(), dir, StageOptions{})
	if !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("expected ErrInvalidArgument, got %v", err)
	}
}

func TestStage_UnsupportedExtension(t *testing.T) {
	t.Parallel()

	_, err := Stage(context.Background(), "mod.7z", StageOptions{})
	if !errors.Is(err, ErrInvalidFormat) {
		t.Fatalf("expected ErrInvalidFormat, got %v", err)
	}
}

func TestScratchClose(t *testing.T) {
	t.Parallel()

	archive := buildZipFixture(t, []zipFixtureEntry{
		{name: "a.txt", data: []byte("a")},
	})

	scratch, err := Stage(context.Background(), archive, StageOptions{})
	if err != nil {
		t.Fatalf("Stage: %v", err)
	}

	dir := scratch.Dir()
	if _, err := os.Stat(dir); err != nil {
		t.Fatalf("stat scratch dir: %v", err)
	}

	if err := scratch.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if _, err := os.Stat(dir); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("scratch dir must be removed, stat err=%v", err)
	}
	if scratch.Dir() != "" {
		t.Fatalf("Dir()=%q after Close, want empty", scratch.Dir())
	}

	if err := scratch.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}
}

func TestScratchKeep(t *testing.T) {
	t.Parallel()

	archive := buildZipFixture(t, []zipFixtureEntry{
		{name: "a.txt", data: []byte("a")},
	})

	parent := t.TempDir()
	scratch, err := Stage(context.Background(), archive, StageOptions{Dir: parent})
	if err != nil {
		t.Fatalf("Stage: %v", err)
	}

	dir := scratch.Keep()
	if dir != scratch.Dir() {
		t.Fatalf("Keep()=%q, Dir()=%q", dir, scratch.Dir())
	}

	if err := scratch.Close(); err != nil {
		t.Fatalf("Close after Keep: %v", err)
	}
	if _, err := os.Stat(dir); err != nil {
		t.Fatalf("kept dir must survive Close: %v", err)
	}
}

func TestStage_KeepOption(t *testing.T) {
	t.Parallel()

	archive := buildZipFixture(t, []zipFixtureEntry{
		{name: "a.txt", data: []byte("a")},
	})

	parent := t.TempDir()
	scratch, err := Stage(context.Background(), archive, StageOptions{Dir: parent, Keep: true})
	if err != nil {
		t.Fatalf("Stage: %v", err)
	}

	dir := scratch.Dir()
	if err := scratch.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if _, err := os.Stat(dir); err != nil {
		t.Fatalf("Keep option must suppress cleanup: %v", err)
	}
}
