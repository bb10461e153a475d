// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/uebundle

package uebundle

import (
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
)

// Default extraction tuning values.
const (
	// DefaultStripPrefix is the interior path prefix removed from pak output paths.
	DefaultStripPrefix = "../../../"
	// DefaultCopyBuffer is the per-worker buffer size for staging and unpack copies.
	DefaultCopyBuffer = 64 * 1024
)

// ContainerKind identifies the container generation of a discovered file.
type ContainerKind uint8

// Container generations.
const (
	// KindPak marks a legacy single-file container.
	KindPak ContainerKind = iota + 1
	// KindUtoc marks a modern IoStore table-of-contents container.
	KindUtoc
)

// String returns the lowercase container extension for the kind.
func (k ContainerKind) String() string {
	switch k {
	case KindPak:
		return "pak"
	case KindUtoc:
		return "utoc"
	default:
		return "unknown"
	}
}

// ContainerUnit is one discovered container file.
type ContainerUnit struct {
	// Path is the filesystem path of the container file.
	Path string `json:"path" yaml:"path"`
	// Key is the file stem used for pak/utoc pairing.
	Key string `json:"key" yaml:"key"`
	// Kind is the container generation.
	Kind ContainerKind `json:"kind" yaml:"kind"`
}

// ClassificationKind tags one BundleClassification variant.
type ClassificationKind uint8

// Bundle classification variants.
const (
	// ClassSoloPak marks a pak with no same-stem utoc counterpart.
	ClassSoloPak ClassificationKind = iota + 1
	// ClassSoloUtoc marks a utoc with no same-stem pak counterpart.
	ClassSoloUtoc
	// ClassBundlePair marks a pak and utoc sharing one stem.
	ClassBundlePair
)

// String returns the classification variant name.
func (k ClassificationKind) String() string {
	switch k {
	case ClassSoloPak:
		return "solo_pak"
	case ClassSoloUtoc:
		return "solo_utoc"
	case ClassBundlePair:
		return "bundle_pair"
	default:
		return "unknown"
	}
}

// BundleClassification is a closed variant over the three bundle shapes.
// Construct values only via SoloPak, SoloUtoc, or PairedBundle.
type BundleClassification struct {
	pak  ContainerUnit
	utoc ContainerUnit
	kind ClassificationKind
}

// SoloPak classifies a pak unit with no utoc counterpart.
func SoloPak(u ContainerUnit) BundleClassification {
	return BundleClassification{kind: ClassSoloPak, pak: u}
}

// SoloUtoc classifies a utoc unit with no pak counterpart.
func SoloUtoc(u ContainerUnit) BundleClassification {
	return BundleClassification{kind: ClassSoloUtoc, utoc: u}
}

// PairedBundle classifies a pak and utoc sharing one stem.
func PairedBundle(pak, utoc ContainerUnit) BundleClassification {
	return BundleClassification{kind: ClassBundlePair, pak: pak, utoc: utoc}
}

// Kind returns the classification variant tag.
func (c BundleClassification) Kind() ClassificationKind {
	return c.kind
}

// Key returns the bundle stem shared by the classified units.
func (c BundleClassification) Key() string {
	switch c.kind {
	case ClassSoloPak:
		return c.pak.Key
	default:
		return c.utoc.Key
	}
}

// Pak returns the pak unit when this classification carries one.
func (c BundleClassification) Pak() (ContainerUnit, bool) {
	if c.kind == ClassSoloPak || c.kind == ClassBundlePair {
		return c.pak, true
	}

	return ContainerUnit{}, false
}

// Utoc returns the utoc unit when this classification carries one.
func (c BundleClassification) Utoc() (ContainerUnit, bool) {
	if c.kind == ClassSoloUtoc || c.kind == ClassBundlePair {
		return c.utoc, true
	}

	return ContainerUnit{}, false
}

// ProgressEvent is one advisory extraction progress notification.
type ProgressEvent struct {
	// Message is a short phase or per-entry narration line.
	Message string `json:"message" yaml:"message"`
	// Processed is the number of completed items so far.
	Processed uint64 `json:"processed" yaml:"processed"`
	// Total is the number of items expected for the current phase.
	Total uint64 `json:"total" yaml:"total"`
	// Percentage is the advisory completion estimate, 0..100.
	Percentage uint8 `json:"percentage" yaml:"percentage"`
}

// ProgressSink receives progress events. Sinks passed to batch operations
// are called from multiple workers and must be safe for concurrent use.
type ProgressSink interface {
	OnProgress(ev ProgressEvent)
}

// ProgressFunc adapts a plain function to the ProgressSink interface.
type ProgressFunc func(ev ProgressEvent)

// OnProgress calls the wrapped function.
func (f ProgressFunc) OnProgress(ev ProgressEvent) {
	if f != nil {
		f(ev)
	}
}

// BundleAssets is the resolved asset list for one bundle.
type BundleAssets struct {
	// Key is the bundle stem with a synthetic .pak or .utoc suffix
	// reflecting the source path family used for resolution.
	Key string `json:"key" yaml:"key"`
	// Assets is the sorted, deduplicated interior path list.
	Assets []AssetPath `json:"assets" yaml:"assets"`
	// UsedPakFallback reports that the utoc side yielded nothing and the
	// paired pak listing was used instead.
	UsedPakFallback bool `json:"used_pak_fallback,omitempty" yaml:"used_pak_fallback,omitempty"`
}

// ListOptions configures container listing calls.
type ListOptions struct {
	// Progress receives phase and per-entry events for this call.
	Progress ProgressSink `json:"-" yaml:"-"`
	// AESKey is an optional hex decryption key for encrypted containers.
	AESKey string `json:"aes_key,omitempty" yaml:"aes_key,omitempty"`
}

// UnpackOptions configures pak content extraction to disk.
type UnpackOptions struct {
	// Progress receives phase and per-entry events for this call.
	Progress ProgressSink `json:"-" yaml:"-"`
	// OnEntryDone is called after one interior file is fully written.
	OnEntryDone func(interiorPath, outputPath string, written int64) `json:"-" yaml:"-"`
	// AESKey is an optional hex decryption key for encrypted containers.
	AESKey string `json:"aes_key,omitempty" yaml:"aes_key,omitempty"`
	// StripPrefix is removed from the front of each interior path before
	// the output path is built. Empty means DefaultStripPrefix.
	StripPrefix string `json:"strip_prefix,omitempty" yaml:"strip_prefix,omitempty"`
	// IncludePatterns limits extraction to interior paths matching at
	// least one glob pattern; empty extracts everything.
	IncludePatterns []string `json:"include_patterns,omitempty" yaml:"include_patterns,omitempty"`
	// Force overwrites existing output files.
	Force bool `json:"force,omitempty" yaml:"force,omitempty"`
	// Quiet suppresses per-entry progress events; phase events still fire.
	Quiet bool `json:"quiet,omitempty" yaml:"quiet,omitempty"`
	// RawNames disables output path sanitization.
	// When false (default), interior names are rewritten to filesystem-safe output paths.
	RawNames bool `json:"raw_names,omitempty" yaml:"raw_names,omitempty"`
}

// StageOptions configures archive staging.
type StageOptions struct {
	// ZipNameEncoding decodes zip entry names written without the UTF-8
	// flag. Nil means IBM code page 437.
	ZipNameEncoding encoding.Encoding `json:"-" yaml:"-"`
	// Dir is the parent directory for the scratch directory.
	// Empty means the system temporary directory.
	Dir string `json:"dir,omitempty" yaml:"dir,omitempty"`
	// RarTool overrides rar executable discovery with an explicit path.
	RarTool string `json:"rar_tool,omitempty" yaml:"rar_tool,omitempty"`
	// Keep suppresses scratch cleanup on Close; ownership of the directory
	// passes to the caller.
	Keep bool `json:"keep,omitempty" yaml:"keep,omitempty"`
}

// BatchOptions configures parallel batch extraction.
type BatchOptions struct {
	// Progress receives one event after each completed unit.
	Progress ProgressSink `json:"-" yaml:"-"`
	// OnWarning is called for every unit that failed and was excluded
	// from the result map.
	OnWarning func(path string, err error) `json:"-" yaml:"-"`
	// List is applied to every per-unit listing call.
	List ListOptions `json:"list,omitzero" yaml:"list,omitzero"`
	// Stage is applied when the batch stages an archive first. The Keep
	// flag is ignored there; batch staging always cleans up.
	Stage StageOptions `json:"stage,omitzero" yaml:"stage,omitzero"`
	// MaxWorkers bounds the parallel fan-out (zero means one worker per unit).
	MaxWorkers int `json:"max_workers,omitempty" yaml:"max_workers,omitempty"`
}

// applyDefaults fills zero-valued unpack options with defaults.
func (opts *UnpackOptions) applyDefaults() {
	if opts.StripPrefix == "" {
		opts.StripPrefix = DefaultStripPrefix
	}
}

// applyDefaults fills zero-valued stage options with defaults.
func (opts *StageOptions) applyDefaults() {
	if opts.ZipNameEncoding == nil {
		opts.ZipNameEncoding = charmap.CodePage437
	}
}

// applyDefaults fills zero-valued batch options with defaults.
func (opts *BatchOptions) applyDefaults() {
	if opts.MaxWorkers < 0 {
		opts.MaxWorkers = 0
	}
}
