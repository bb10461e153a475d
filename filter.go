// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/uebundle

package uebundle

import (
	"fmt"
	"strings"

	"github.com/woozymasta/pathrules"
)

// assetExtensions is the fixed allow-list applied to utoc chunk paths.
var assetExtensions = map[string]struct{}{
	"uasset":  {},
	"umap":    {},
	"bnk":     {},
	"json":    {},
	"wem":     {},
	"fbx":     {},
	"obj":     {},
	"glb":     {},
	"gltf":    {},
	"ini":     {},
	"wav":     {},
	"mp3":     {},
	"ogg":     {},
	"uplugin": {},
	"usf":     {},
}

// isAssetPath reports whether the interior path carries an asset-like extension.
func isAssetPath(p AssetPath) bool {
	ext := strings.ToLower(p.Extension())
	if ext == "" {
		return false
	}

	_, ok := assetExtensions[ext]
	return ok
}

// FilterAssetExtensions keeps paths whose extension matches at least one of
// exts (case-insensitive, leading dots in exts ignored).
func FilterAssetExtensions(paths []AssetPath, exts []string) []AssetPath {
	out := make([]AssetPath, 0, len(paths))
	for _, p := range paths {
		for _, ext := range exts {
			if p.HasExtension(ext) {
				out = append(out, p)
				break
			}
		}
	}

	return out
}

// includeMatcher holds compiled include glob patterns for unpack selection.
// A nil matcher selects every path.
type includeMatcher struct {
	matcher *pathrules.Matcher
}

// newIncludeMatcher compiles include patterns, dropping empty ones.
func newIncludeMatcher(patterns []string) (*includeMatcher, error) {
	rules := make([]pathrules.Rule, 0, len(patterns))
	for _, pattern := range patterns {
		pattern = normalizePathForMatching(pattern)
		if pattern == "" {
			continue
		}

		rules = append(rules, pathrules.Rule{
			Action:  pathrules.ActionInclude,
			Pattern: pattern,
		})
	}
	if len(rules) == 0 {
		return nil, nil
	}

	matcher, err := pathrules.NewMatcher(rules, pathrules.MatcherOptions{
		CaseInsensitive: true,
		DefaultAction:   pathrules.ActionExclude,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: compile patterns: %w", ErrInvalidIncludePattern, err)
	}

	return &includeMatcher{matcher: matcher}, nil
}

// Match reports whether an interior path is selected for extraction.
func (m *includeMatcher) Match(path string) bool {
	if m == nil || m.matcher == nil {
		return true
	}

	candidate := NormalizePath(path)
	if candidate == "" {
		return false
	}

	return m.matcher.Included(candidate, false)
}
