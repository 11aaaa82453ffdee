// Package lockfile implements potstats.lock, a lock file that tracks
// MD5 checksums of each translation file together with its template, per
// resource. Incremental runs only rescore the files whose pair changed
// since the last recorded run.
//
// The lock file is stored in the staging root as potstats.lock.
package lockfile

import (
	"crypto/md5"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

// LockFileName is the default lock file name.
const LockFileName = "potstats.lock"

// Version is the lock file format version.
const Version = 1

// ---------------------------------------------------------------------------
// Types
// ---------------------------------------------------------------------------

// LockFile represents the potstats.lock file structure.
type LockFile struct {
	Version   int                          `yaml:"version"`
	Checksums map[string]map[string]string `yaml:"checksums"` // resource -> file -> md5

	mu   sync.Mutex `yaml:"-"`
	path string     `yaml:"-"`
}

// ---------------------------------------------------------------------------
// Loading and saving
// ---------------------------------------------------------------------------

// Load reads a lock file from the given directory.
// Returns an empty lock file if the file doesn't exist.
func Load(dir string) (*LockFile, error) {
	path := filepath.Join(dir, LockFileName)
	lf := &LockFile{
		Version:   Version,
		Checksums: make(map[string]map[string]string),
		path:      path,
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return lf, nil
		}
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, lf); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	if lf.Version > Version {
		return nil, fmt.Errorf("%s: unsupported version %d", path, lf.Version)
	}
	lf.path = path

	if lf.Checksums == nil {
		lf.Checksums = make(map[string]map[string]string)
	}

	return lf, nil
}

// Save writes the lock file to disk, creating its directory.
func (lf *LockFile) Save() error {
	lf.mu.Lock()
	defer lf.mu.Unlock()

	if lf.path == "" {
		return fmt.Errorf("lock file path not set")
	}

	data, err := yaml.Marshal(lf)
	if err != nil {
		return fmt.Errorf("marshaling lock file: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(lf.path), 0755); err != nil {
		return fmt.Errorf("creating %s: %w", filepath.Dir(lf.path), err)
	}
	if err := os.WriteFile(lf.path, data, 0644); err != nil {
		return fmt.Errorf("writing %s: %w", lf.path, err)
	}

	return nil
}

// Path returns the lock file path.
func (lf *LockFile) Path() string {
	return lf.path
}

// ---------------------------------------------------------------------------
// Checksum operations
// ---------------------------------------------------------------------------

// Hash computes the MD5 hex digest of a string.
func Hash(s string) string {
	return fmt.Sprintf("%x", md5.Sum([]byte(s)))
}

// HashFiles computes one MD5 over the contents of paths, in order. A
// missing file hashes as empty, so a file appearing later counts as a
// change.
func HashFiles(paths ...string) (string, error) {
	h := md5.New()
	for _, p := range paths {
		f, err := os.Open(p)
		if os.IsNotExist(err) {
			h.Write([]byte{0})
			continue
		}
		if err != nil {
			return "", err
		}
		_, err = io.Copy(h, f)
		f.Close()
		if err != nil {
			return "", fmt.Errorf("hashing %s: %w", p, err)
		}
		h.Write([]byte{0})
	}
	return fmt.Sprintf("%x", h.Sum(nil)), nil
}

// FileKey builds the key of a catalog: its slash-separated path inside
// the resource.
func FileKey(filePath string) string {
	return filepath.ToSlash(filePath)
}

// IsChanged reports whether the checksum recorded for key differs from
// sum. Unknown resources and keys count as changed.
func (lf *LockFile) IsChanged(resource, key, sum string) bool {
	lf.mu.Lock()
	defer lf.mu.Unlock()

	keys, ok := lf.Checksums[resource]
	if !ok {
		return true
	}
	old, ok := keys[key]
	if !ok {
		return true
	}
	return old != sum
}

// Update records the checksum of key after a successful run.
func (lf *LockFile) Update(resource, key, sum string) {
	lf.mu.Lock()
	defer lf.mu.Unlock()

	if lf.Checksums[resource] == nil {
		lf.Checksums[resource] = make(map[string]string)
	}
	lf.Checksums[resource][key] = sum
}

// Clean removes entries from the lock file that are no longer present in
// the current set of keys. This prevents stale entries from accumulating.
func (lf *LockFile) Clean(resource string, currentKeys []string) {
	lf.mu.Lock()
	defer lf.mu.Unlock()

	existing := lf.Checksums[resource]
	if existing == nil {
		return
	}

	valid := make(map[string]bool, len(currentKeys))
	for _, k := range currentKeys {
		valid[k] = true
	}

	for k := range existing {
		if !valid[k] {
			delete(existing, k)
		}
	}
}

// RemoveResource removes all checksums for a resource.
func (lf *LockFile) RemoveResource(resource string) {
	lf.mu.Lock()
	defer lf.mu.Unlock()
	delete(lf.Checksums, resource)
}

// ---------------------------------------------------------------------------
// Stats
// ---------------------------------------------------------------------------

// Stats returns the number of resources and total keys in the lock file.
func (lf *LockFile) Stats() (resources, keys int) {
	lf.mu.Lock()
	defer lf.mu.Unlock()

	resources = len(lf.Checksums)
	for _, m := range lf.Checksums {
		keys += len(m)
	}
	return
}

// Resources returns the sorted resource names.
func (lf *LockFile) Resources() []string {
	lf.mu.Lock()
	defer lf.mu.Unlock()

	names := make([]string, 0, len(lf.Checksums))
	for t := range lf.Checksums {
		names = append(names, t)
	}
	sort.Strings(names)
	return names
}

// Summary returns a human-readable summary string.
func (lf *LockFile) Summary() string {
	resources, keys := lf.Stats()
	if resources == 0 {
		return "empty"
	}

	var parts []string
	for _, t := range lf.Resources() {
		lf.mu.Lock()
		n := len(lf.Checksums[t])
		lf.mu.Unlock()
		parts = append(parts, fmt.Sprintf("%s: %d files", t, n))
	}
	return fmt.Sprintf("%d resources, %d files (%s)", resources, keys, strings.Join(parts, ", "))
}
