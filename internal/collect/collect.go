// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package collect walks a workspace tree and gathers source files for
// inclusion in chat context.
package collect

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// File is a collected workspace file: its path relative to the workspace
// root (forward slashes on every platform) and its full content.
type File struct {
	Path    string
	Content string
}

// excludeRule is a single parsed exclusion token. Tokens containing a
// dot match file names exactly; all others match directory names at any
// depth.
type excludeRule struct {
	name  string
	isDir bool
}

// parseExcludes splits a whitespace-separated exclusion string into rules.
// node_modules is always excluded, even when not listed.
func parseExcludes(spec string) []excludeRule {
	rules := []excludeRule{{name: "node_modules", isDir: true}}
	for _, tok := range strings.Fields(spec) {
		if strings.Contains(tok, ".") {
			rules = append(rules, excludeRule{name: tok})
		} else {
			rules = append(rules, excludeRule{name: tok, isDir: true})
		}
	}
	return rules
}

// Collect walks root and returns every file whose name ends in one of the
// given extensions (given without a leading dot), skipping excluded
// directories and files. Results come back sorted case-insensitively by
// relative path. Any unreadable file fails the whole collection.
func Collect(root string, fileTypes []string, excludeSpec string) ([]File, error) {
	rules := parseExcludes(excludeSpec)

	var files []File
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return fmt.Errorf("failed to walk %s: %w", path, err)
		}

		name := d.Name()
		if d.IsDir() {
			if path != root && isExcludedDir(name, rules) {
				return filepath.SkipDir
			}
			return nil
		}

		if isExcludedFile(name, rules) || !matchesType(name, fileTypes) {
			return nil
		}

		content, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", path, err)
		}

		rel, err := filepath.Rel(root, path)
		if err != nil {
			return fmt.Errorf("failed to resolve %s: %w", path, err)
		}

		files = append(files, File{
			Path:    filepath.ToSlash(rel),
			Content: string(content),
		})
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(files, func(i, j int) bool {
		li, lj := strings.ToLower(files[i].Path), strings.ToLower(files[j].Path)
		if li != lj {
			return li < lj
		}
		return files[i].Path < files[j].Path
	})
	return files, nil
}

func isExcludedDir(name string, rules []excludeRule) bool {
	for _, r := range rules {
		if r.isDir && r.name == name {
			return true
		}
	}
	return false
}

func isExcludedFile(name string, rules []excludeRule) bool {
	for _, r := range rules {
		if !r.isDir && r.name == name {
			return true
		}
	}
	return false
}

func matchesType(name string, fileTypes []string) bool {
	for _, ext := range fileTypes {
		if strings.HasSuffix(name, "."+ext) {
			return true
		}
	}
	return false
}
