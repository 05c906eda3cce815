// Copyright 2025, the lingosync contributors
// SPDX-License-Identifier: AGPL-3.0-only

package scanner

import (
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// FindProjectRoot picks a stable root directory for source locations.
// Preference order:
//  1. git toplevel directory
//  2. nearest parent directory that contains go.mod
//  3. wd itself
func FindProjectRoot(wd string) string {
	if root := gitTopLevel(wd); root != "" {
		return root
	}

	if root := nearestGoModDir(wd); root != "" {
		return root
	}

	return wd
}

func gitTopLevel(wd string) string {
	cmd := exec.Command("git", "rev-parse", "--show-toplevel")
	cmd.Dir = wd

	out, err := cmd.Output()
	if err != nil {
		return ""
	}

	root := strings.TrimSpace(string(out))
	if root == "" {
		return ""
	}

	return filepath.Clean(root)
}

func nearestGoModDir(start string) string {
	dir := filepath.Clean(start)
	for {
		if fi, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil && !fi.IsDir() {
			return dir
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}

		dir = parent
	}
}
