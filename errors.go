// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/uebundle

package uebundle

import "errors"

// Sentinel errors for bundle resolution and extraction. Use errors.Is in callers.
var (
	// ErrIO means a generic filesystem or subprocess failure.
	ErrIO = errors.New("io failure")
	// ErrPak means the pak container failed to open or parse.
	ErrPak = errors.New("pak container failure")
	// ErrUtoc means the utoc container failed to open or parse.
	ErrUtoc = errors.New("utoc container failure")
	// ErrInvalidAESKey means the AES key string is not valid hex of a supported length.
	ErrInvalidAESKey = errors.New("invalid AES key")
	// ErrFileNotFound means the input path does not exist.
	ErrFileNotFound = errors.New("file not found")
	// ErrInvalidFormat means the file extension names no supported archive or container type.
	ErrInvalidFormat = errors.New("invalid or unsupported format")
	// ErrInvalidArgument means an input value is malformed or out of range.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrSerialization means result encoding failed.
	ErrSerialization = errors.New("serialization failure")
	// ErrRarToolNotFound means no rar executable was located via env, known paths, or PATH.
	ErrRarToolNotFound = errors.New("rar tool not found")
	// ErrNoPakReader means no pak reader capability is configured.
	ErrNoPakReader = errors.New("no pak reader configured")
	// ErrNoIoStoreReader means no iostore reader capability is configured.
	ErrNoIoStoreReader = errors.New("no iostore reader configured")
	// ErrInvalidExtractPath means an interior path is invalid for an extraction destination.
	ErrInvalidExtractPath = errors.New("invalid extract path")
	// ErrInvalidIncludePattern means one or more include patterns are invalid.
	ErrInvalidIncludePattern = errors.New("invalid include patterns")
)
