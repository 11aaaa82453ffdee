package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// AbsRoot returns the resource directory.
func (f *File) AbsRoot(r Resource) string {
	if filepath.IsAbs(r.Root) {
		return filepath.Clean(r.Root)
	}
	return filepath.Join(f.projectRoot, r.Root)
}

// Files lists the catalogs and templates of r as slash-separated paths
// relative to its root, sorted. Excluded globs and the staging area are
// skipped.
func (f *File) Files(r Resource) ([]string, error) {
	root := f.AbsRoot(r)
	exclude := append([]string(nil), r.Exclude...)
	if rel, err := filepath.Rel(root, f.StagingRoot); err == nil && rel != "." && !strings.HasPrefix(rel, "..") {
		exclude = append(exclude, filepath.ToSlash(rel)+"/**")
	}
	for _, ex := range exclude {
		if !doublestar.ValidatePattern(ex) {
			return nil, fmt.Errorf("resource %q: invalid exclude pattern %q", r.Name, ex)
		}
	}

	fsys := os.DirFS(root)
	seen := make(map[string]bool)
	var out []string
	for _, pattern := range []string{f.Convention.TranslationPattern, f.Convention.TemplatePattern} {
		matches, err := doublestar.Glob(fsys, "**/"+pattern, doublestar.WithFilesOnly())
		if err != nil {
			return nil, fmt.Errorf("resource %q: scanning %s: %w", r.Name, root, err)
		}
		for _, m := range matches {
			if seen[m] || excluded(m, exclude) {
				continue
			}
			seen[m] = true
			out = append(out, m)
		}
	}
	sort.Strings(out)
	return out, nil
}

func excluded(p string, patterns []string) bool {
	for _, pattern := range patterns {
		if ok, _ := doublestar.Match(pattern, p); ok {
			return true
		}
	}
	return false
}
