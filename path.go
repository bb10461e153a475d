// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/uebundle

package uebundle

import (
	"path"
	"path/filepath"
	"strings"
)

// NormalizePath converts an interior/input path to normalized slash-separated form.
// It trims spaces, accepts both "/" and "\", removes leading "./" and "/", and cleans "." segments.
func NormalizePath(raw string) string {
	raw = normalizePathForMatching(raw)
	raw = strings.TrimPrefix(raw, "/")
	raw = path.Clean("/" + raw)
	raw = strings.TrimPrefix(raw, "/")
	if raw == "." {
		return ""
	}

	return strings.TrimSuffix(raw, "/")
}

// normalizePathForMatching normalizes user/input paths for matcher use.
func normalizePathForMatching(path string) string {
	path = strings.TrimSpace(path)
	path = strings.ReplaceAll(path, `\`, `/`)
	path = strings.TrimPrefix(path, "./")
	return path
}

// AssetStylePath rewrites one extracted file path to asset-style form.
// When the path contains a segment equal to "Content" (case-insensitive)
// with at least one segment before it, the result starts one segment
// before that occurrence. Otherwise the path relative to baseDir is used
// when expressible, and the bare file name as the last resort.
// The function is total: every input yields a value.
func AssetStylePath(pathValue, baseDir string) AssetPath {
	slashed := filepath.ToSlash(pathValue)
	segments := strings.Split(slashed, "/")
	for i := 1; i < len(segments); i++ {
		if strings.EqualFold(segments[i], "Content") {
			return AssetPath(strings.Join(segments[i-1:], "/"))
		}
	}

	if baseDir != "" {
		rel, err := filepath.Rel(baseDir, pathValue)
		if err == nil && rel != "." && !strings.HasPrefix(rel, "..") {
			return AssetPath(filepath.ToSlash(rel))
		}
	}

	if idx := strings.LastIndexByte(slashed, '/'); idx >= 0 {
		return AssetPath(slashed[idx+1:])
	}

	return AssetPath(slashed)
}

// stripInteriorPrefix removes prefix from the front of an interior path on
// a segment boundary. Non-matching paths are returned unchanged.
func stripInteriorPrefix(interior, prefix string) string {
	p := strings.ReplaceAll(interior, `\`, "/")
	pre := strings.TrimSuffix(strings.ReplaceAll(prefix, `\`, "/"), "/")
	if pre == "" {
		return p
	}
	if p == pre {
		return ""
	}
	if strings.HasPrefix(p, pre+"/") {
		return p[len(pre)+1:]
	}

	return p
}

// normalizeExtractEntryPath normalizes an interior path and rejects absolute/traversal inputs.
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
