// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/uebundle

package uebundle

import (
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"
)

// Discover walks root recursively and returns a ContainerUnit for every
// regular file whose extension is pak or utoc, matched case-insensitively.
// Other files are ignored and no file content is read. Directory symlinks
// are not followed.
func Discover(root string) ([]ContainerUnit, error) {
	var units []ContainerUnit

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.Type().IsRegular() {
			return nil
		}

		kind, ok := containerKindOf(d.Name())
		if !ok {
			return nil
		}

		units = append(units, ContainerUnit{
			Path: path,
			Key:  stemOf(d.Name()),
			Kind: kind,
		})

		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: walk %s: %w", ErrIO, root, err)
	}

	return units, nil
}

// containerKindOf maps a file name to a container kind by extension.
func containerKindOf(name string) (ContainerKind, bool) {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".pak":
		return KindPak, true
	case ".utoc":
		return KindUtoc, true
	default:
		return 0, false
	}
}

// stemOf returns the file name without its final extension.
func stemOf(name string) string {
	return strings.TrimSuffix(name, filepath.Ext(name))
}

// Classify groups units by stem (case-sensitive exact match) and assigns
// every bundle key exactly one classification: a stem present as both pak
// and utoc forms a pair, a single kind stays solo. When several files of
// the same kind share a stem the first discovered wins.
func Classify(units []ContainerUnit) map[string]BundleClassification {
	paks := make(map[string]ContainerUnit)
	utocs := make(map[string]ContainerUnit)

	for _, u := range units {
		switch u.Kind {
		case KindPak:
			if _, ok := paks[u.Key]; !ok {
				paks[u.Key] = u
			}
		case KindUtoc:
			if _, ok := utocs[u.Key]; !ok {
				utocs[u.Key] = u
			}
		}
	}

	classes := make(map[string]BundleClassification, len(paks)+len(utocs))
	for key, pak := range paks {
		if utoc, ok := utocs[key]; ok {
			classes[key] = PairedBundle(pak, utoc)
			continue
		}
		classes[key] = SoloPak(pak)
	}
	for key, utoc := range utocs {
		if _, ok := paks[key]; ok {
			continue
		}
		classes[key] = SoloUtoc(utoc)
	}

	return classes
}
