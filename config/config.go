// Package config loads the .potstats.yaml configuration file.
//
// The file lives in the project root and declares the resources whose
// statistics are tracked. Without it a single resource rooted at the
// project root is assumed. A .env file next to it and POTSTATS_*
// environment variables override the storage and staging settings.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/minios-linux/potstats/pathconv"
)

// ---------------------------------------------------------------------------
// YAML schema
// ---------------------------------------------------------------------------

// File is the top-level .potstats.yaml structure.
type File struct {
	// StagingRoot is where merged copies are written (default
	// ".potstats/staging"). Relative paths are relative to the project root.
	StagingRoot string `yaml:"staging_root,omitempty"`
	// SourceLang is the language templates are written in (default "en").
	SourceLang string `yaml:"source_lang,omitempty"`

	Merge      Merge               `yaml:"merge,omitempty"`
	Convention pathconv.Convention `yaml:"convention,omitempty"`
	Database   Database            `yaml:"database,omitempty"`
	Redis      Redis               `yaml:"redis,omitempty"`

	// Resources is the list of tracked resources.
	Resources []Resource `yaml:"resources,omitempty"`

	projectRoot string
}

// Merge selects how translation files are reconciled with templates.
type Merge struct {
	// Tool is "msgmerge" (default) or "builtin".
	Tool string `yaml:"tool,omitempty"`
	// Path overrides the msgmerge binary.
	Path    string        `yaml:"path,omitempty"`
	NoFuzzy bool          `yaml:"no_fuzzy,omitempty"`
	Timeout time.Duration `yaml:"timeout,omitempty"`
}

// Database selects the statistics store.
type Database struct {
	// Driver is "sqlite3" (default), "postgres" or "memory".
	Driver string `yaml:"driver,omitempty"`
	// DSN defaults to .potstats/stats.db for sqlite3 and is required for
	// postgres.
	DSN string `yaml:"dsn,omitempty"`
}

// Redis enables the listing cache when URL is set.
type Redis struct {
	URL string        `yaml:"url,omitempty"`
	TTL time.Duration `yaml:"ttl,omitempty"`
}

// Resource is one tracked set of catalogs.
type Resource struct {
	// Name identifies the resource in the store and the staging area.
	Name string `yaml:"name"`
	// Root is the directory scanned for catalogs, relative to the project
	// root (default ".").
	Root string `yaml:"root,omitempty"`
	// SourceLang overrides the global source language.
	SourceLang string `yaml:"source_lang,omitempty"`
	// Exclude lists globs, relative to Root, of files to ignore.
	Exclude []string `yaml:"exclude,omitempty"`
}

const (
	MergeToolMsgmerge = "msgmerge"
	MergeToolBuiltin  = "builtin"

	DriverSQLite   = "sqlite3"
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

// ---------------------------------------------------------------------------
// Loading
// ---------------------------------------------------------------------------

// FileName is the config file name.
const FileName = ".potstats.yaml"

// stateDir holds the default database and staging area.
const stateDir = ".potstats"

// LoadFile loads .potstats.yaml from rootDir, applies .env and environment
// overrides, fills defaults and validates the result. A missing file is
// not an error.
func LoadFile(rootDir string) (*File, error) {
	absRoot, err := filepath.Abs(rootDir)
	if err != nil {
		return nil, err
	}
	path := filepath.Join(absRoot, FileName)

	var f File
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &f); err != nil {
			return nil, fmt.Errorf("parsing %s: %w", path, err)
		}
	case errors.Is(err, fs.ErrNotExist):
	default:
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	if err := loadDotEnv(absRoot); err != nil {
		return nil, err
	}
	f.applyEnv()
	f.projectRoot = absRoot
	if err := f.resolve(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return &f, nil
}

// loadDotEnv exports variables from rootDir/.env without overriding the
// ones already set.
func loadDotEnv(rootDir string) error {
	path := filepath.Join(rootDir, ".env")
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("loading %s: %w", path, err)
	}
	return nil
}

func (f *File) applyEnv() {
	override := func(dst *string, key string) {
		if v, ok := os.LookupEnv(key); ok && v != "" {
			*dst = v
		}
	}
	override(&f.StagingRoot, "POTSTATS_STAGING_ROOT")
	override(&f.Merge.Tool, "POTSTATS_MERGE_TOOL")
	override(&f.Database.Driver, "POTSTATS_DB_DRIVER")
	override(&f.Database.DSN, "POTSTATS_DB_DSN")
	override(&f.Redis.URL, "POTSTATS_REDIS_URL")
}

func (f *File) resolve() error {
	// Defaults
	if f.SourceLang == "" {
		f.SourceLang = "en"
	}
	if f.StagingRoot == "" {
		f.StagingRoot = filepath.Join(stateDir, "staging")
	}
	if !filepath.IsAbs(f.StagingRoot) {
		f.StagingRoot = filepath.Join(f.projectRoot, f.StagingRoot)
	}
	if f.Merge.Tool == "" {
		f.Merge.Tool = MergeToolMsgmerge
	}
	if f.Database.Driver == "" {
		f.Database.Driver = DriverSQLite
	}
	if f.Database.Driver == DriverSQLite && f.Database.DSN == "" {
		f.Database.DSN = filepath.Join(f.projectRoot, stateDir, "stats.db")
	}
	f.Convention = f.Convention.WithDefaults()

	// Validate
	switch f.Merge.Tool {
	case MergeToolMsgmerge, MergeToolBuiltin:
	default:
		return fmt.Errorf("unknown merge tool %q (valid: msgmerge, builtin)", f.Merge.Tool)
	}
	if f.Merge.Timeout < 0 {
		return fmt.Errorf("negative merge timeout %s", f.Merge.Timeout)
	}
	switch f.Database.Driver {
	case DriverSQLite, DriverMemory:
	case DriverPostgres:
		if f.Database.DSN == "" {
			return errors.New("database driver postgres needs a dsn")
		}
	default:
		return fmt.Errorf("unknown database driver %q (valid: sqlite3, postgres, memory)", f.Database.Driver)
	}
	if err := f.Convention.Validate(); err != nil {
		return fmt.Errorf("convention: %w", err)
	}

	if len(f.Resources) == 0 {
		f.Resources = []Resource{{Name: filepath.Base(f.projectRoot), Root: "."}}
	}
	seen := make(map[string]bool)
	for i := range f.Resources {
		r := &f.Resources[i]
		if r.Name == "" {
			return fmt.Errorf("resource #%d has no name", i+1)
		}
		if seen[r.Name] {
			return fmt.Errorf("duplicate resource %q", r.Name)
		}
		seen[r.Name] = true
		if r.Root == "" {
			r.Root = "."
		}
		if r.SourceLang == "" {
			r.SourceLang = f.SourceLang
		}
	}
	return nil
}

// ProjectRoot returns the absolute directory the file was loaded from.
func (f *File) ProjectRoot() string {
	return f.projectRoot
}

// LockPath returns the incremental-run lock file location.
func (f *File) LockPath() string {
	return filepath.Join(f.StagingRoot, "potstats.lock")
}

// Resource returns the resource called name.
func (f *File) Resource(name string) (Resource, bool) {
	for _, r := range f.Resources {
		if r.Name == name {
			return r, true
		}
	}
	return Resource{}, false
}
