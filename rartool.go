// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/uebundle

package uebundle

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"runtime"
	"strings"
)

// rarToolEnvVar overrides RAR tool discovery when set to an existing file.
const rarToolEnvVar = "RAR_TOOL_PATH"

// FindRarTool locates an external RAR extraction tool. Lookup order: the
// RAR_TOOL_PATH environment variable, well-known install locations for the
// current OS, then a PATH lookup of rar and unrar. Returns
// ErrRarToolNotFound when nothing is found.
func FindRarTool() (string, error) {
	if env := os.Getenv(rarToolEnvVar); env != "" {
		if info, err := os.Stat(env); err == nil && !info.IsDir() {
			return env, nil
		}
	}

	for _, candidate := range wellKnownRarPaths() {
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return candidate, nil
		}
	}

	for _, name := range []string{"rar", "unrar"} {
		if path, err := exec.LookPath(name); err == nil {
			return path, nil
		}
	}

	return "", ErrRarToolNotFound
}

// wellKnownRarPaths returns fixed install locations checked before PATH.
func wellKnownRarPaths() []string {
	switch runtime.GOOS {
	case "windows":
		return []string{
			`C:\Program Files\WinRAR\rar.exe`,
			`C:\Program Files\WinRAR\unrar.exe`,
			`C:\Program Files (x86)\WinRAR\rar.exe`,
			`C:\Program Files (x86)\WinRAR\unrar.exe`,
			`C:\WinRAR\rar.exe`,
		}
	case "darwin":
		return []string{
			"/opt/homebrew/bin/rar",
			"/opt/homebrew/bin/unrar",
			"/usr/local/bin/rar",
			"/usr/local/bin/unrar",
		}
	default:
		return []string{
			"/usr/bin/rar",
			"/usr/bin/unrar",
			"/usr/local/bin/rar",
			"/usr/local/bin/unrar",
		}
	}
}

// stageRar extracts a rar archive into destDir through the external tool.
// An empty toolOverride triggers discovery.
func stageRar(ctx context.Context, archivePath, destDir, toolOverride string) error {
	tool := toolOverride
	if tool == "" {
		found, err := FindRarTool()
		if err != nil {
			return err
		}

		tool = found
	}

	return runRarExtract(ctx, tool, archivePath, destDir)
}

// runRarExtract invokes "<tool> x -y <archive> <dest>" and blocks until the
// subprocess exits. A non-zero exit is a hard failure carrying captured
// standard-error text.
func runRarExtract(ctx context.Context, tool, archivePath, destDir string) error {
	var stderr bytes.Buffer

	cmd := exec.CommandContext(ctx, tool, "x", "-y", archivePath, destDir)
	cmd.Stdout = io.Discard
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return fmt.Errorf("%w: rar extraction failed: %s: %w", ErrIO, msg, err)
		}

		return fmt.Errorf("%w: rar extraction failed: %w", ErrIO, err)
	}

	return nil
}
