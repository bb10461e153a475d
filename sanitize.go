// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/uebundle

package uebundle

import (
	"fmt"
	"hash/fnv"
	"path"
	"strconv"
	"strings"
	"unicode"
)

const (
	// maxSanitizedSegmentLen limits one path segment to common filesystem-safe length.
	maxSanitizedSegmentLen = 240
)

var (
	// reservedDOSNames contains case-insensitive reserved DOS/Windows device names.
	reservedDOSNames = map[string]struct{}{
		"aux":     {},
		"clock$":  {},
		"com1":    {},
		"com2":    {},
		"com3":    {},
		"com4":    {},
		"com5":    {},
		"com6":    {},
		"com7":    {},
		"com8":    {},
		"com9":    {},
		"con":     {},
		"config$": {},
		"kbd$":    {},
		"keybd$":  {},
		"lpt1":    {},
		"lpt2":    {},
		"lpt3":    {},
		"lpt4":    {},
		"lpt5":    {},
		"lpt6":    {},
		"lpt7":    {},
		"lpt8":    {},
		"lpt9":    {},
		"lst":     {},
		"mouse$":  {},
		"nul":     {},
		"prn":     {},
		"screen$": {},
	}
)

// SanitizePath rewrites one path to deterministic filesystem-safe slash-separated form.
func SanitizePath(pathValue string) (string, error) {
	normalizedPath := NormalizePath(pathValue)
	if normalizedPath == "" {
		return "", nil
	}

	sanitized, err := sanitizeRelativePath(normalizedPath)
	if err != nil {
		return "", err
	}

	if _, err := normalizeExtractEntryPath(sanitized); err != nil {
		return "", err
	}

	return sanitized, nil
}

// nameSanitizer rewrites interior paths into unique filesystem-safe output names.
type nameSanitizer struct {
	used       map[string]struct{}
	nextSuffix map[string]int
}

func newNameSanitizer() *nameSanitizer {
	return &nameSanitizer{
		used:       make(map[string]struct{}),
		nextSuffix: make(map[string]int),
	}
}

// sanitize rewrites one interior path and resolves collisions against names
// already produced by this sanitizer.
func (s *nameSanitizer) sanitize(interiorPath string) (string, error) {
	relativePath := interiorPath
	normalizedPath, err := normalizeExtractEntryPath(interiorPath)
	if err == nil {
		relativePath = normalizedPath
	} else {
		// Keep sanitize resilient for mangled/obfuscated names:
		// convert slash style and sanitize segment-by-segment instead of failing hard.
		relativePath = strings.ReplaceAll(relativePath, `\`, `/`)
	}

	sanitized, err := sanitizeRelativePath(relativePath)
	if err != nil {
		return "", fmt.Errorf("sanitize path %s: %w", interiorPath, err)
	}

	sanitized, err = makeSanitizedPathUnique(sanitized, s.used, s.nextSuffix)
	if err != nil {
		return "", fmt.Errorf("sanitize path %s: %w", interiorPath, err)
	}

	if _, err := normalizeExtractEntryPath(sanitized); err != nil {
		return "", fmt.Errorf("sanitize path %s: %w", interiorPath, err)
	}

	return sanitized, nil
}

// sanitizeRelativePath sanitizes each segment of relative slash-separated path.
func sanitizeRelativePath(relativePath string) (string, error) {
	parts := strings.Split(relativePath, "/")
	sanitized := make([]string, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" || part == "." {
			continue
		}

		segment, err := sanitizePathSegment(part)
		if err != nil {
			return "", err
		}

		sanitized = append(sanitized, segment)
	}
	if len(sanitized) == 0 {
		return "_", nil
	}

	return strings.Join(sanitized, "/"), nil
}

// sanitizePathSegment sanitizes one path segment for broad filesystem compatibility.
func sanitizePathSegment(segment string) (string, error) {
	segment = strings.TrimSpace(segment)
	if segment == "" {
		return "_", nil
	}
	rawReserved := isReservedDeviceName(segment)

	var b strings.Builder
	b.Grow(len(segment))
	for _, r := range segment {
		if isUnsafeControlCharRune(r) || strings.ContainsRune(`<>:"/\|?*`, r) {
			b.WriteRune('_')
			continue
		}

		b.WriteRune(r)
	}

	sanitized := strings.TrimRight(b.String(), ". ")
	if sanitized == "" {
		sanitized = "_"
	}

	base := sanitized
	if dot := strings.IndexByte(base, '.'); dot >= 0 {
		base = base[:dot]
	}
	if rawReserved || isReservedDeviceName(base) {
		sanitized = "_" + sanitized
	}

	if len(sanitized) > maxSanitizedSegmentLen {
		sanitized = shortenSegmentDeterministic(sanitized, maxSanitizedSegmentLen)
	}
	if sanitized == "" {
		return "", ErrInvalidExtractPath
	}

	return sanitized, nil
}

// isUnsafeControlCharRune reports whether rune is unsafe for file names and should be replaced.
func isUnsafeControlCharRune(r rune) bool {
	if unicode.IsControl(r) || unicode.In(r, unicode.Cf) {
		return true
	}

	// U+FFFD often appears from invalid byte sequences in mangled names.
	return r == '�'
}

// isReservedDeviceName reports whether name matches reserved DOS/Windows device identifier.
func isReservedDeviceName(name string) bool {
	candidate := strings.TrimSpace(name)
	candidate = strings.TrimRight(candidate, ". :")
	candidate = strings.ToLower(candidate)
	if dot := strings.IndexByte(candidate, '.'); dot >= 0 {
		candidate = candidate[:dot]
	}
	candidate = strings.TrimRight(candidate, ". :")
	if candidate == "" {
		return false
	}

	_, ok := reservedDOSNames[candidate]
	return ok
}

// makeSanitizedPathUnique resolves collisions by adding deterministic numeric suffix.
func makeSanitizedPathUnique(pathValue string, used map[string]struct{}, nextSuffix map[string]int) (string, error) {
	key := strings.ToLower(pathValue)
	if _, exists := used[key]; !exists {
		used[key] = struct{}{}
		return pathValue, nil
	}

	dir := path.Dir(pathValue)
	name := path.Base(pathValue)
	startIdx := 2
	if savedIdx, exists := nextSuffix[key]; exists && savedIdx > startIdx {
		startIdx = savedIdx
	}

	for idx := startIdx; idx < 1000000; idx++ {
		candidateName := withNumericSuffix(name, idx)
		candidate := candidateName
		if dir != "." {
			candidate = dir + "/" + candidateName
		}

		candidateKey := strings.ToLower(candidate)
		if _, exists := used[candidateKey]; exists {
			continue
		}

		used[candidateKey] = struct{}{}
		nextSuffix[key] = idx + 1
		return candidate, nil
	}

	return "", ErrInvalidExtractPath
}

// withNumericSuffix appends "~N" before extension and preserves max segment length.
func withNumericSuffix(name string, n int) string {
	ext := path.Ext(name)
	base := strings.TrimSuffix(name, ext)
	suffix := "~" + strconv.Itoa(n)
	allowedBaseLen := max(maxSanitizedSegmentLen-len(ext)-len(suffix), 1)
	if len(base) > allowedBaseLen {
		base = shortenSegmentDeterministic(base, allowedBaseLen)
	}

	return base + suffix + ext
}

// shortenSegmentDeterministic shortens long segment while preserving deterministic identity suffix.
func shortenSegmentDeterministic(value string, maxLen int) string {
	if len(value) <= maxLen {
		return value
	}
	if maxLen <= 10 {
		return value[:maxLen]
	}

	h := fnv.New32a()
	_, _ = h.Write([]byte(value))
	hashPart := fmt.Sprintf("~%08x", h.Sum32())
	prefixLen := max(maxLen-len(hashPart), 1)

	return value[:prefixLen] + hashPart
}
