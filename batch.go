// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/uebundle

package uebundle

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"path/filepath"
	"sync"
)

// BundleResultMap maps bundle keys to their resolved asset lists. Each
// list is sorted and duplicate-free; the key set carries no ordering.
type BundleResultMap map[string][]AssetPath

// EncodeJSON writes the result map to w as a JSON object of the form
// {"bundle_key": ["path", ...], ...} with keys in sorted order.
func (m BundleResultMap) EncodeJSON(w io.Writer, pretty bool) error {
	enc := json.NewEncoder(w)
	if pretty {
		enc.SetIndent("", "  ")
	}

	if err := enc.Encode(m); err != nil {
		return fmt.Errorf("%w: encode result map: %w", ErrSerialization, err)
	}

	return nil
}

// batchUnit is one scheduled work item.
type batchUnit struct {
	// resolve produces the unit's bundle assets.
	resolve func() (BundleAssets, error)
	// path names the unit in warnings and progress events.
	path string
	// omitEmpty drops a zero-asset result instead of recording it.
	omitEmpty bool
}

// ProcessFiles resolves an explicit list of container files concurrently.
// The kind of each file is inferred from its extension; an unsupported
// extension fails that unit with ErrInvalidFormat. Pak files of the same
// stem are not paired in this mode, so no pak fallback applies. Failed
// units are reported through OnWarning and excluded from the map.
func (e *Extractor) ProcessFiles(ctx context.Context, files []string, opts BatchOptions) (BundleResultMap, error) {
	units := make([]batchUnit, 0, len(files))
	for _, file := range files {
		path := file
		kind, ok := containerKindOf(filepath.Base(path))
		if !ok {
			units = append(units, batchUnit{
				path: path,
				resolve: func() (BundleAssets, error) {
					return BundleAssets{}, fmt.Errorf("%w: unsupported container extension %q", ErrInvalidFormat, filepath.Ext(path))
				},
			})

			continue
		}

		stem := stemOf(filepath.Base(path))
		switch kind {
		case KindPak:
			units = append(units, batchUnit{
				path:      path,
				omitEmpty: true,
				resolve: func() (BundleAssets, error) {
					assets, err := e.ListPak(path, opts.List)
					if err != nil {
						return BundleAssets{}, err
					}

					return BundleAssets{Key: stem + ".pak", Assets: assets}, nil
				},
			})
		case KindUtoc:
			units = append(units, batchUnit{
				path: path,
				resolve: func() (BundleAssets, error) {
					assets, err := e.ListUtoc(path, opts.List)
					if err != nil {
						return BundleAssets{}, err
					}

					return BundleAssets{Key: stem + ".utoc", Assets: assets}, nil
				},
			})
		}
	}

	return runBatch(ctx, units, opts)
}

// ProcessFolder discovers and classifies every container under root, then
// resolves each classification concurrently. The pak of a bundle pair is
// consulted only when its utoc listing comes back empty. Solo-pak units
// with an empty listing are omitted from the map; utoc-sourced keys are
// recorded even when empty. Failed units are reported through OnWarning
// and excluded from the map.
func (e *Extractor) ProcessFolder(ctx context.Context, root string, opts BatchOptions) (BundleResultMap, error) {
	discovered, err := Discover(root)
	if err != nil {
		return nil, err
	}

	classes := Classify(discovered)

	units := make([]batchUnit, 0, len(classes))
	for _, c := range classes {
		class := c
		units = append(units, batchUnit{
			path:      classificationPath(class),
			omitEmpty: class.Kind() == ClassSoloPak,
			resolve: func() (BundleAssets, error) {
				return e.ResolveAssets(class, opts.List)
			},
		})
	}

	return runBatch(ctx, units, opts)
}

// ProcessArchive stages an archive into a scratch directory and processes
// the staged tree like ProcessFolder. The scratch directory is removed on
// every return path regardless of the staging Keep flag.
func (e *Extractor) ProcessArchive(ctx context.Context, archivePath string, opts BatchOptions) (BundleResultMap, error) {
	stageOpts := opts.Stage
	stageOpts.Keep = false

	scratch, err := Stage(ctx, archivePath, stageOpts)
	if err != nil {
		return nil, err
	}
	defer func() { _ = scratch.Close() }()

	return e.ProcessFolder(ctx, scratch.Dir(), opts)
}

// classificationPath names the unit consulted first, for warnings.
func classificationPath(c BundleClassification) string {
	if utoc, ok := c.Utoc(); ok {
		return utoc.Path
	}

	pak, _ := c.Pak()
	return pak.Path
}

// runBatch executes units with a bounded fan-out and a join-all barrier.
// Cancellation gates unit start only: units already running finish, every
// worker is joined, and the partial map is returned alongside ctx.Err().
func runBatch(ctx context.Context, units []batchUnit, opts BatchOptions) (BundleResultMap, error) {
	opts.applyDefaults()

	results := make(BundleResultMap, len(units))
	if len(units) == 0 {
		return results, ctx.Err()
	}

	workers := opts.MaxWorkers
	if workers <= 0 || workers > len(units) {
		workers = len(units)
	}

	var (
		mu        sync.Mutex
		processed uint64
	)
	total := uint64(len(units))

	taskCh := make(chan batchUnit, len(units))

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Go(func() {
			for unit := range taskCh {
				if ctx.Err() != nil {
					continue
				}

				assets, err := unit.resolve()

				mu.Lock()
				if err == nil && (len(assets.Assets) > 0 || !unit.omitEmpty) {
					results[assets.Key] = assets.Assets
				}
				processed++
				done := processed
				mu.Unlock()

				if err != nil && opts.OnWarning != nil {
					opts.OnWarning(unit.path, err)
				}

				reportProgress(opts.Progress, ProgressEvent{
					Percentage: roundPercentage(done, total),
					Message:    unit.path,
					Processed:  done,
					Total:      total,
				})
			}
		})
	}

	for _, unit := range units {
		taskCh <- unit
	}
	close(taskCh)
	wg.Wait()

	return results, ctx.Err()
}

// roundPercentage computes round(processed/total*100).
func roundPercentage(processed, total uint64) uint8 {
	if total == 0 {
		return 100
	}

	return uint8(math.Round(float64(processed) / float64(total) * 100))
}
