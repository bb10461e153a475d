// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/uebundle

package uebundle

import (
	"encoding/hex"
	"fmt"
	"strings"
)

// PakContainer is an opened legacy pak container.
type PakContainer interface {
	// List returns interior path strings in container order.
	List() ([]string, error)
	// Read returns the decompressed content of one interior path.
	Read(interiorPath string) ([]byte, error)
	// Close releases the container handle.
	Close() error
}

// PakOpener opens legacy pak containers. key holds parsed AES key bytes,
// nil for unencrypted containers.
type PakOpener interface {
	OpenPak(path string, key []byte) (PakContainer, error)
}

// ChunkRecord is one IoStore chunk surfaced by the reader capability.
type ChunkRecord struct {
	// ID is the chunk identifier in reader-native form.
	ID string `json:"id" yaml:"id"`
	// Path is the interior path when the chunk carries one, empty otherwise.
	Path string `json:"path,omitempty" yaml:"path,omitempty"`
	// CompressedSize is the stored chunk size in bytes.
	CompressedSize uint64 `json:"compressed_size,omitempty" yaml:"compressed_size,omitempty"`
	// UncompressedSize is the chunk payload size in bytes.
	UncompressedSize uint64 `json:"uncompressed_size,omitempty" yaml:"uncompressed_size,omitempty"`
}

// IoStoreContainer is an opened IoStore (utoc+ucas) container.
type IoStoreContainer interface {
	// Chunks returns every chunk record in container order.
	Chunks() ([]ChunkRecord, error)
	// Close releases the container handle.
	Close() error
}

// IoStoreOpener opens IoStore containers. keys maps key GUIDs to parsed
// AES key bytes; the empty GUID addresses the primary key; nil or empty
// means an unencrypted container.
type IoStoreOpener interface {
	OpenIoStore(path string, keys map[string][]byte) (IoStoreContainer, error)
}

// Readers carries the injected container reader capabilities. A capability
// left nil fails only the calls that need it.
type Readers struct {
	// Pak reads legacy single-file containers.
	Pak PakOpener
	// IoStore reads modern split containers.
	IoStore IoStoreOpener
}

// ParseAESKey parses an optional hex AES key string. An empty string
// yields a nil key. An optional 0x prefix is accepted; the decoded key
// must be 16, 24, or 32 bytes.
func ParseAESKey(s string) ([]byte, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}

	s = strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X")
	key, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("%w: %q is not valid hex", ErrInvalidAESKey, s)
	}

	switch len(key) {
	case 16, 24, 32:
		return key, nil
	default:
		return nil, fmt.Errorf("%w: unsupported key length %d bytes", ErrInvalidAESKey, len(key))
	}
}
