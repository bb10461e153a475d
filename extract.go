// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/uebundle

package uebundle

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// Extractor lists and extracts game-archive containers through injected
// reader capabilities. A capability left nil fails only the calls that
// need it.
type Extractor struct {
	readers Readers
}

// NewExtractor returns an Extractor backed by the given reader capabilities.
func NewExtractor(readers Readers) *Extractor {
	return &Extractor{readers: readers}
}

// ListPak returns the full interior path listing of one pak container,
// sorted and deduplicated. No content bytes are read.
func (e *Extractor) ListPak(path string, opts ListOptions) ([]AssetPath, error) {
	if e == nil || e.readers.Pak == nil {
		return nil, ErrNoPakReader
	}

	key, err := ParseAESKey(opts.AESKey)
	if err != nil {
		return nil, err
	}

	if err := requireFile(path); err != nil {
		return nil, err
	}

	reportProgress(opts.Progress, ProgressEvent{Message: "Opening pak file", Total: 1})

	container, err := e.readers.Pak.OpenPak(path, key)
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %w", ErrPak, path, err)
	}
	defer func() { _ = container.Close() }()

	reportProgress(opts.Progress, ProgressEvent{Percentage: 20, Message: "Reading file list", Total: 1})

	interior, err := container.List()
	if err != nil {
		return nil, fmt.Errorf("%w: list %s: %w", ErrPak, path, err)
	}

	total := uint64(len(interior))
	reportProgress(opts.Progress, ProgressEvent{
		Percentage: 30,
		Message:    fmt.Sprintf("Found %d files", total),
		Total:      total,
	})

	assets := make([]AssetPath, 0, len(interior))
	var processed uint64
	for _, entry := range interior {
		processed++
		reportProgress(opts.Progress, ProgressEvent{
			Percentage: phasePercentage(30, 70, processed, total),
			Message:    "Listing: " + entry,
			Processed:  processed,
			Total:      total,
		})

		if strings.TrimSpace(entry) == "" {
			continue
		}

		assets = append(assets, NewAssetPath(entry))
	}

	assets = SortedUnique(assets)
	reportProgress(opts.Progress, ProgressEvent{
		Percentage: 100,
		Message:    fmt.Sprintf("Completed - found %d assets", len(assets)),
		Processed:  processed,
		Total:      processed,
	})

	return assets, nil
}

// ListUtoc returns the asset paths visible in one IoStore container: chunks
// carrying an interior path whose extension is on the asset allow-list,
// sorted and deduplicated.
func (e *Extractor) ListUtoc(path string, opts ListOptions) ([]AssetPath, error) {
	if e == nil || e.readers.IoStore == nil {
		return nil, ErrNoIoStoreReader
	}

	key, err := ParseAESKey(opts.AESKey)
	if err != nil {
		return nil, err
	}

	if err := requireFile(path); err != nil {
		return nil, err
	}

	reportProgress(opts.Progress, ProgressEvent{Message: "Opening utoc file", Total: 1})

	var keys map[string][]byte
	if key != nil {
		// The empty GUID addresses the container's primary key.
		keys = map[string][]byte{"": key}
	}

	reportProgress(opts.Progress, ProgressEvent{Percentage: 10, Message: "Parsing utoc structure", Total: 1})

	container, err := e.readers.IoStore.OpenIoStore(path, keys)
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %w", ErrUtoc, path, err)
	}
	defer func() { _ = container.Close() }()

	reportProgress(opts.Progress, ProgressEvent{Percentage: 30, Message: "Extracting file listing", Total: 1})

	chunks, err := container.Chunks()
	if err != nil {
		return nil, fmt.Errorf("%w: chunks %s: %w", ErrUtoc, path, err)
	}

	total := uint64(len(chunks))
	reportProgress(opts.Progress, ProgressEvent{
		Percentage: 60,
		Message:    fmt.Sprintf("Found %d chunks", total),
		Total:      total,
	})

	assets := make([]AssetPath, 0, len(chunks))
	var processed uint64
	for _, chunk := range chunks {
		processed++
		reportProgress(opts.Progress, ProgressEvent{
			Percentage: phasePercentage(60, 35, processed, total),
			Message:    fmt.Sprintf("Processing chunk %d", processed),
			Processed:  processed,
			Total:      total,
		})

		if chunk.Path == "" {
			continue
		}

		asset := NewAssetPath(chunk.Path)
		if !isAssetPath(asset) {
			continue
		}

		assets = append(assets, asset)
	}

	assets = SortedUnique(assets)
	reportProgress(opts.Progress, ProgressEvent{
		Percentage: 100,
		Message:    fmt.Sprintf("Completed - found %d assets", len(assets)),
		Processed:  processed,
		Total:      processed,
	})

	return assets, nil
}

// ResolveAssets resolves one classification into its authoritative asset
// listing. A bundle pair reads the utoc side only; when that listing is
// empty the full pak listing is used instead, with no asset-extension
// filter, under the same bundle key. Both sides empty is a zero-asset
// result, not an error.
func (e *Extractor) ResolveAssets(c BundleClassification, opts ListOptions) (BundleAssets, error) {
	switch c.Kind() {
	case ClassSoloPak:
		pak, _ := c.Pak()
		assets, err := e.ListPak(pak.Path, opts)
		if err != nil {
			return BundleAssets{}, err
		}

		return BundleAssets{Key: pak.Key + ".pak", Assets: assets}, nil
	case ClassSoloUtoc:
		utoc, _ := c.Utoc()
		assets, err := e.ListUtoc(utoc.Path, opts)
		if err != nil {
			return BundleAssets{}, err
		}

		return BundleAssets{Key: utoc.Key + ".utoc", Assets: assets}, nil
	case ClassBundlePair:
		utoc, _ := c.Utoc()
		key := utoc.Key + ".utoc"

		assets, err := e.ListUtoc(utoc.Path, opts)
		if err != nil {
			return BundleAssets{}, err
		}
		if len(assets) > 0 {
			return BundleAssets{Key: key, Assets: assets}, nil
		}

		pak, _ := c.Pak()
		pakAssets, err := e.ListPak(pak.Path, opts)
		if err != nil {
			return BundleAssets{}, err
		}

		return BundleAssets{Key: key, Assets: pakAssets, UsedPakFallback: true}, nil
	default:
		return BundleAssets{}, fmt.Errorf("%w: empty bundle classification", ErrInvalidArgument)
	}
}

// UnpackPak extracts pak content entries into outputDir and returns the
// interior paths of everything written, sorted and deduplicated. Interior
// paths are filtered by IncludePatterns, stripped of StripPrefix, and
// rewritten to filesystem-safe names unless RawNames is set.
func (e *Extractor) UnpackPak(ctx context.Context, path, outputDir string, opts UnpackOptions) ([]AssetPath, error) {
	if e == nil || e.readers.Pak == nil {
		return nil, ErrNoPakReader
	}

	opts.applyDefaults()

	key, err := ParseAESKey(opts.AESKey)
	if err != nil {
		return nil, err
	}

	matcher, err := newIncludeMatcher(opts.IncludePatterns)
	if err != nil {
		return nil, err
	}

	if err := requireFile(path); err != nil {
		return nil, err
	}

	dstRootAbs, err := filepath.Abs(outputDir)
	if err != nil {
		return nil, fmt.Errorf("%w: resolve output dir: %w", ErrIO, err)
	}
	if err := os.MkdirAll(dstRootAbs, 0o750); err != nil {
		return nil, fmt.Errorf("%w: create output dir: %w", ErrIO, err)
	}

	perEntryProgress := opts.Progress
	if opts.Quiet {
		perEntryProgress = nil
	}

	reportProgress(opts.Progress, ProgressEvent{Message: "Opening pak file", Total: 1})

	container, err := e.readers.Pak.OpenPak(path, key)
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %w", ErrPak, path, err)
	}
	defer func() { _ = container.Close() }()

	reportProgress(opts.Progress, ProgressEvent{Percentage: 20, Message: "Reading file list", Total: 1})

	interior, err := container.List()
	if err != nil {
		return nil, fmt.Errorf("%w: list %s: %w", ErrPak, path, err)
	}

	selected := make([]string, 0, len(interior))
	for _, entry := range interior {
		if strings.TrimSpace(entry) == "" {
			continue
		}
		if matcher.Match(entry) {
			selected = append(selected, entry)
		}
	}

	total := uint64(len(selected))
	reportProgress(opts.Progress, ProgressEvent{
		Percentage: 30,
		Message:    fmt.Sprintf("Found %d files to unpack", total),
		Total:      total,
	})

	sanitizer := newNameSanitizer()
	copyBuf := make([]byte, DefaultCopyBuffer)
	unpacked := make([]AssetPath, 0, len(selected))

	var processed uint64
	for _, entry := range selected {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		processed++
		reportProgress(perEntryProgress, ProgressEvent{
			Percentage: phasePercentage(30, 70, processed, total),
			Message:    "Unpacking: " + entry,
			Processed:  processed,
			Total:      total,
		})

		relPath, err := prepareUnpackEntryPath(entry, opts.StripPrefix, opts.RawNames, sanitizer)
		if err != nil {
			return nil, err
		}

		data, err := container.Read(entry)
		if err != nil {
			return nil, fmt.Errorf("%w: read %s: %w", ErrPak, entry, err)
		}

		outPath := filepath.Join(dstRootAbs, filepath.FromSlash(relPath))
		written, err := writeUnpackedFile(outPath, data, opts.Force, copyBuf)
		if err != nil {
			return nil, err
		}

		if opts.OnEntryDone != nil {
			opts.OnEntryDone(entry, outPath, written)
		}

		unpacked = append(unpacked, NewAssetPath(entry))
	}

	unpacked = SortedUnique(unpacked)
	reportProgress(opts.Progress, ProgressEvent{
		Percentage: 100,
		Message:    fmt.Sprintf("Completed - unpacked %d files", len(unpacked)),
		Processed:  processed,
		Total:      processed,
	})

	return unpacked, nil
}

// prepareUnpackEntryPath strips the configured prefix from one interior
// entry and produces its relative output path.
func prepareUnpackEntryPath(entry, stripPrefix string, rawNames bool, sanitizer *nameSanitizer) (string, error) {
	stripped := stripInteriorPrefix(entry, stripPrefix)

	if rawNames {
		normalized, err := normalizeExtractEntryPath(stripped)
		if err != nil {
			return "", fmt.Errorf("normalize entry path %s: %w", entry, err)
		}

		return normalized, nil
	}

	return sanitizer.sanitize(stripped)
}

// writeUnpackedFile writes one entry payload to outPath, creating parent
// directories as needed. Without force an existing file fails the write.
func writeUnpackedFile(outPath string, data []byte, force bool, copyBuf []byte) (int64, error) {
	if err := os.MkdirAll(filepath.Dir(outPath), 0o750); err != nil {
		return 0, fmt.Errorf("%w: create output directory: %w", ErrIO, err)
	}

	flags := os.O_WRONLY | os.O_CREATE | os.O_EXCL
	if force {
		flags = os.O_WRONLY | os.O_CREATE | os.O_TRUNC
	}

	file, err := os.OpenFile(outPath, flags, 0o600)
	if err != nil {
		return 0, fmt.Errorf("%w: open %s: %w", ErrIO, outPath, err)
	}

	written, copyErr := copyExtractData(file, bytes.NewReader(data), copyBuf)
	closeErr := file.Close()
	if copyErr != nil {
		return written, fmt.Errorf("%w: write %s: %w", ErrIO, outPath, copyErr)
	}
	if closeErr != nil {
		return written, fmt.Errorf("%w: close %s: %w", ErrIO, outPath, closeErr)
	}

	return written, nil
}

// copyExtractData copies one entry stream to output file using fixed buffer.
func copyExtractData(dst *os.File, src io.Reader, buf []byte) (int64, error) {
	if len(buf) == 0 {
		return 0, io.ErrShortBuffer
	}

	var total int64
	for {
		readN, readErr := src.Read(buf)
		if readN > 0 {
			writeN, writeErr := dst.Write(buf[:readN])
			total += int64(writeN)

			if writeErr != nil {
				return total, writeErr
			}

			if writeN != readN {
				return total, io.ErrShortWrite
			}
		}

		if readErr == nil {
			continue
		}

		if readErr == io.EOF {
			return total, nil
		}

		return total, readErr
	}
}

// requireFile verifies path names an existing regular file before handing
// it to a reader capability.
func requireFile(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("%w: %s", ErrFileNotFound, path)
		}

		return fmt.Errorf("%w: stat %s: %w", ErrIO, path, err)
	}
	if info.IsDir() {
		return fmt.Errorf("%w: %s is a directory", ErrInvalidArgument, path)
	}

	return nil
}

// reportProgress emits one event when a sink is configured.
func reportProgress(sink ProgressSink, ev ProgressEvent) {
	if sink != nil {
		sink.OnProgress(ev)
	}
}

// phasePercentage maps processed/total onto the [base, base+span] progress
// band, truncating like the per-entry counters it narrates.
func phasePercentage(base, span uint8, processed, total uint64) uint8 {
	if total == 0 {
		return base
	}

	return base + uint8(float64(processed)/float64(total)*float64(span))
}
