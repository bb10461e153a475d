// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/uebundle

package uebundle

import (
	"archive/tar"
	"archive/zip"
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
	"golang.org/x/text/encoding"
)

// ArchiveFormat identifies a supported source archive format.
type ArchiveFormat uint8

// Supported archive formats, detected strictly by file name extension.
const (
	FormatZip ArchiveFormat = iota + 1
	FormatRar
	FormatTar
	FormatTarGz
	FormatTarZst
	FormatTarLz4
)

// String returns short lowercase format name.
func (f ArchiveFormat) String() string {
	switch f {
	case FormatZip:
		return "zip"
	case FormatRar:
		return "rar"
	case FormatTar:
		return "tar"
	case FormatTarGz:
		return "tar.gz"
	case FormatTarZst:
		return "tar.zst"
	case FormatTarLz4:
		return "tar.lz4"
	default:
		return "unknown"
	}
}

// DetectArchiveFormat detects the archive format strictly by file name
// extension, case-insensitive. No content sniffing is performed; an
// unsupported extension fails with ErrInvalidFormat.
func DetectArchiveFormat(path string) (ArchiveFormat, error) {
	name := strings.ToLower(filepath.Base(path))

	switch {
	case strings.HasSuffix(name, ".zip"):
		return FormatZip, nil
	case strings.HasSuffix(name, ".rar"):
		return FormatRar, nil
	case strings.HasSuffix(name, ".tar.gz"), strings.HasSuffix(name, ".tgz"):
		return FormatTarGz, nil
	case strings.HasSuffix(name, ".tar.zst"):
		return FormatTarZst, nil
	case strings.HasSuffix(name, ".tar.lz4"):
		return FormatTarLz4, nil
	case strings.HasSuffix(name, ".tar"):
		return FormatTar, nil
	default:
		return 0, fmt.Errorf("%w: unsupported archive type %q", ErrInvalidFormat, filepath.Ext(name))
	}
}

// Scratch is an ephemeral staging directory holding extracted archive
// contents. Close removes the directory unless ownership was transferred
// to the caller with Keep.
type Scratch struct {
	dir  string
	keep bool
}

// Dir returns the staging directory path, empty after Close.
func (s *Scratch) Dir() string { return s.dir }

// Keep transfers directory ownership to the caller: automatic removal is
// suppressed and the caller becomes responsible for cleanup. Returns the
// directory path.
func (s *Scratch) Keep() string {
	s.keep = true
	return s.dir
}

// Close removes the staging directory. It is idempotent and a no-op after
// Keep.
func (s *Scratch) Close() error {
	if s.keep || s.dir == "" {
		return nil
	}

	dir := s.dir
	s.dir = ""
	if err := os.RemoveAll(dir); err != nil {
		return fmt.Errorf("%w: remove scratch dir: %w", ErrIO, err)
	}

	return nil
}

// Stage materializes the contents of archivePath into a freshly created
// scratch directory. Zip and tar family archives are unpacked in-process;
// rar goes through the external tool. A failed stage returns the error and
// leaves whatever was already written; no partial-cleanup retry is
// attempted.
func Stage(ctx context.Context, archivePath string, opts StageOptions) (*Scratch, error) {
	opts.applyDefaults()

	format, err := DetectArchiveFormat(archivePath)
	if err != nil {
		return nil, err
	}

	info, err := os.Stat(archivePath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrFileNotFound, archivePath)
		}

		return nil, fmt.Errorf("%w: stat %s: %w", ErrIO, archivePath, err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%w: %s is a directory", ErrInvalidArgument, archivePath)
	}

	dir, err := os.MkdirTemp(opts.Dir, "uebundle-*")
	if err != nil {
		return nil, fmt.Errorf("%w: create scratch dir: %w", ErrIO, err)
	}

	switch format {
	case FormatZip:
		err = stageZip(ctx, archivePath, dir, opts.ZipNameEncoding)
	case FormatRar:
		err = stageRar(ctx, archivePath, dir, opts.RarTool)
	default:
		err = stageTar(ctx, archivePath, dir, format)
	}
	if err != nil {
		return nil, err
	}

	return &Scratch{dir: dir, keep: opts.Keep}, nil
}

// stageZip copies zip entries into destDir preserving internal relative
// paths and creating parent directories as needed.
func stageZip(ctx context.Context, archivePath, destDir string, nameEncoding encoding.Encoding) error {
	zr, err := zip.OpenReader(archivePath)
	if err != nil {
		return fmt.Errorf("%w: open zip %s: %w", ErrIO, archivePath, err)
	}
	defer func() { _ = zr.Close() }()

	copyBuf := make([]byte, DefaultCopyBuffer)
	for _, entry := range zr.File {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		name := decodeZipEntryName(entry, nameEncoding)

		if entry.FileInfo().IsDir() {
			normalized, normErr := normalizeExtractEntryPath(name)
			if normErr != nil {
				continue
			}

			dirPath := filepath.Join(destDir, filepath.FromSlash(normalized))
			if err := os.MkdirAll(dirPath, 0o750); err != nil {
				return fmt.Errorf("%w: create directory for zip entry %q: %w", ErrIO, entry.Name, err)
			}

			continue
		}

		normalized, normErr := normalizeExtractEntryPath(name)
		if normErr != nil {
			return fmt.Errorf("%w: zip entry %q", ErrInvalidExtractPath, entry.Name)
		}

		rc, err := entry.Open()
		if err != nil {
			return fmt.Errorf("%w: open zip entry %q: %w", ErrIO, entry.Name, err)
		}

		err = stageEntryFile(destDir, normalized, rc, copyBuf)
		_ = rc.Close()
		if err != nil {
			return err
		}
	}

	return nil
}

// decodeZipEntryName decodes legacy flagged entry names with the configured
// encoding. Names already flagged UTF-8 pass through unchanged; a decode
// failure keeps the raw name.
func decodeZipEntryName(entry *zip.File, enc encoding.Encoding) string {
	if !entry.NonUTF8 || enc == nil {
		return entry.Name
	}

	decoded, err := enc.NewDecoder().String(entry.Name)
	if err != nil || decoded == "" {
		return entry.Name
	}

	return decoded
}

// stageTar streams tar entries into destDir, decompressing by format.
// Symlinks, devices and other special entries are not staged.
func stageTar(ctx context.Context, archivePath, destDir string, format ArchiveFormat) error {
	file, err := os.Open(archivePath)
	if err != nil {
		return fmt.Errorf("%w: open %s: %w", ErrIO, archivePath, err)
	}
	defer func() { _ = file.Close() }()

	var src io.Reader = file
	switch format {
	case FormatTarGz:
		gz, gzErr := gzip.NewReader(file)
		if gzErr != nil {
			return fmt.Errorf("%w: gzip reader for %s: %w", ErrInvalidFormat, archivePath, gzErr)
		}
		defer func() { _ = gz.Close() }()
		src = gz
	case FormatTarZst:
		zr, zstdErr := zstd.NewReader(file)
		if zstdErr != nil {
			return fmt.Errorf("%w: zstd reader for %s: %w", ErrInvalidFormat, archivePath, zstdErr)
		}
		defer zr.Close()
		src = zr
	case FormatTarLz4:
		src = lz4.NewReader(file)
	}

	copyBuf := make([]byte, DefaultCopyBuffer)
	tr := tar.NewReader(src)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		hdr, err := tr.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("%w: read tar entry: %w", ErrInvalidFormat, err)
		}

		switch hdr.Typeflag {
		case tar.TypeDir:
			normalized, normErr := normalizeExtractEntryPath(hdr.Name)
			if normErr != nil {
				continue
			}

			dirPath := filepath.Join(destDir, filepath.FromSlash(normalized))
			if err := os.MkdirAll(dirPath, 0o750); err != nil {
				return fmt.Errorf("%w: create directory for tar entry %q: %w", ErrIO, hdr.Name, err)
			}
		case tar.TypeReg:
			normalized, normErr := normalizeExtractEntryPath(hdr.Name)
			if normErr != nil {
				return fmt.Errorf("%w: tar entry %q", ErrInvalidExtractPath, hdr.Name)
			}

			if err := stageEntryFile(destDir, normalized, tr, copyBuf); err != nil {
				return err
			}
		}
	}
}

// stageEntryFile writes one archive entry stream under destDir.
func stageEntryFile(destDir, relPath string, src io.Reader, copyBuf []byte) error {
	outPath := filepath.Join(destDir, filepath.FromSlash(relPath))
	if err := os.MkdirAll(filepath.Dir(outPath), 0o750); err != nil {
		return fmt.Errorf("%w: create parent directory for %s: %w", ErrIO, relPath, err)
	}

	file, err := os.OpenFile(outPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		return fmt.Errorf("%w: create %s: %w", ErrIO, relPath, err)
	}

	_, copyErr := copyExtractData(file, src, copyBuf)
	closeErr := file.Close()
	if copyErr != nil {
		return fmt.Errorf("%w: write %s: %w", ErrIO, relPath, copyErr)
	}
	if closeErr != nil {
		return fmt.Errorf("%w: close %s: %w", ErrIO, relPath, closeErr)
	}

	return nil
}
