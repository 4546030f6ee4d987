// Package library finds media files under a root directory and names the
// temporary files trackstrip writes beside them.
package library

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"sort"
	"strings"
)

// TempPrefix starts every in-flight output file name.
const TempPrefix = ".trackstrip-"

// TempSuffix ends every in-flight output file name.
const TempSuffix = ".tmp"

// Options controls discovery.
type Options struct {
	// Extensions are lower-case with a leading dot.
	Extensions []string
	// SkipDirs are directory names pruned wherever they appear (case-insensitive).
	SkipDirs []string
	// OnError is called for unreadable entries below the root; they are skipped.
	OnError func(path string, err error)
}

// Discover walks root and returns matching files sorted lexicographically.
// Hidden files and directories are ignored, which also excludes temp files.
// A root that is itself a matching file yields just that file.
func Discover(root string, opts Options) ([]string, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("discover %s: %w", root, err)
	}
	if !info.IsDir() {
		if !HasExtension(root, opts.Extensions) {
			return nil, fmt.Errorf("discover %s: not a %s file", root, strings.Join(opts.Extensions, "/"))
		}
		return []string{root}, nil
	}

	var files []string
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == root {
				return err
			}
			if opts.OnError != nil {
				opts.OnError(path, err)
			}
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		name := d.Name()
		if d.IsDir() {
			if path != root && (strings.HasPrefix(name, ".") || skipDir(name, opts.SkipDirs)) {
				return filepath.SkipDir
			}
			return nil
		}
		if strings.HasPrefix(name, ".") || !d.Type().IsRegular() {
			return nil
		}
		if HasExtension(name, opts.Extensions) {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("discover %s: %w", root, err)
	}
	sort.Strings(files)
	return files, nil
}

// HasExtension reports whether path ends in one of exts, ignoring case.
func HasExtension(path string, exts []string) bool {
	return slices.Contains(exts, strings.ToLower(filepath.Ext(path)))
}

func skipDir(name string, skip []string) bool {
	for _, s := range skip {
		if strings.EqualFold(name, s) {
			return true
		}
	}
	return false
}

// TempPath returns the hidden temp file used while rewriting target.
func TempPath(target string) string {
	return filepath.Join(filepath.Dir(target), TempPrefix+filepath.Base(target)+TempSuffix)
}

// IsTempFile reports whether path names a trackstrip temp file.
func IsTempFile(path string) bool {
	name := filepath.Base(path)
	return strings.HasPrefix(name, TempPrefix) && strings.HasSuffix(name, TempSuffix)
}

// RemoveStaleTemps deletes leftover temp files under root, for example after
// a crash mid-remux, and returns the paths removed.
func RemoveStaleTemps(root string) ([]string, error) {
	var removed []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == root {
				return err
			}
			return nil
		}
		if d.IsDir() || !IsTempFile(path) {
			return nil
		}
		if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("remove stale temp %s: %w", path, err)
		}
		removed = append(removed, path)
		return nil
	})
	if err != nil {
		return removed, err
	}
	return removed, nil
}
