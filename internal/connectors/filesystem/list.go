package filesystem

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
)

// SupportedExtensions are the file extensions listed for import. The
// extractor is still chosen by file signature.
var SupportedExtensions = []string{".pdf", ".docx", ".txt", ".md", ".markdown"}

// IsSupported reports whether path has a supported extension.
func IsSupported(path string) bool {
	return slices.Contains(SupportedExtensions, strings.ToLower(filepath.Ext(path)))
}

// List returns the supported, non-hidden files under root, sorted.
// Paths are absolute.
func List(root string) ([]string, error) {
	root, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("root path error: %w", err)
	}
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("root path error: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("root path error: %s is not a directory", root)
	}

	var paths []string
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if path != root && isHidden(d.Name()) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.Type().IsRegular() && IsSupported(path) {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk %s: %w", root, err)
	}

	slices.Sort(paths)
	return paths, nil
}

// Expand resolves file URIs and paths to absolute paths, replacing each
// directory with the supported files it contains. Paths that do not exist
// are kept so the import can report them.
func Expand(paths []string) ([]string, error) {
	var out []string
	for _, p := range paths {
		path, err := filepath.Abs(ResolvePath(p))
		if err != nil {
			return nil, fmt.Errorf("invalid path %s: %w", p, err)
		}
		if info, err := os.Stat(path); err == nil && info.IsDir() {
			files, err := List(path)
			if err != nil {
				return nil, err
			}
			out = append(out, files...)
			continue
		}
		out = append(out, path)
	}
	return out, nil
}

// isHidden reports whether any element of path starts with a dot.
// "." and ".." are not hidden.
func isHidden(path string) bool {
	for _, part := range strings.Split(filepath.ToSlash(path), "/") {
		if part == "" || part == "." || part == ".." {
			continue
		}
		if strings.HasPrefix(part, ".") {
			return true
		}
	}
	return false
}
