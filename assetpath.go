// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/uebundle

package uebundle

import (
	"slices"
	"strings"
)

// AssetPath is a normalized interior path of one asset inside a container,
// e.g. "/Game/Characters/Hero/Hero.uasset". Values built via NewAssetPath
// never contain backslashes. Equality and ordering are ordinal on the
// underlying string.
type AssetPath string

// NewAssetPath builds an AssetPath from a raw interior path, converting
// every backslash to a forward slash.
func NewAssetPath(raw string) AssetPath {
	return AssetPath(strings.ReplaceAll(raw, `\`, "/"))
}

// String returns the underlying path string.
func (p AssetPath) String() string {
	return string(p)
}

// FileName returns the final path segment.
func (p AssetPath) FileName() string {
	s := string(p)
	if idx := strings.LastIndexByte(s, '/'); idx >= 0 {
		return s[idx+1:]
	}

	return s
}

// Parent returns the path without its final segment, empty when the path
// has a single segment.
func (p AssetPath) Parent() AssetPath {
	s := string(p)
	if idx := strings.LastIndexByte(s, '/'); idx > 0 {
		return AssetPath(s[:idx])
	}

	return ""
}

// Extension returns the substring after the last dot of the final segment
// with case preserved, empty when the segment has no extension.
func (p AssetPath) Extension() string {
	name := p.FileName()
	idx := strings.LastIndexByte(name, '.')
	if idx <= 0 || idx == len(name)-1 {
		return ""
	}

	return name[idx+1:]
}

// HasExtension reports whether the path extension equals ext
// (case-insensitive, leading dot in ext ignored).
func (p AssetPath) HasExtension(ext string) bool {
	ext = strings.TrimPrefix(ext, ".")
	if ext == "" {
		return false
	}

	return strings.EqualFold(p.Extension(), ext)
}

// HasPrefix reports whether the path starts with prefix (ordinal).
func (p AssetPath) HasPrefix(prefix string) bool {
	return strings.HasPrefix(string(p), prefix)
}

// SortedUnique returns a sorted copy of paths with duplicates removed.
// The input slice is not modified.
func SortedUnique(paths []AssetPath) []AssetPath {
	out := slices.Clone(paths)
	slices.Sort(out)

	return slices.Compact(out)
}
