// Package manager computes and records translation statistics for one
// resource: it resolves language files, stages them merged against the
// resource's template, scores them and upserts the results.
package manager

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/rs/zerolog"

	"github.com/minios-linux/potstats/langmeta"
	"github.com/minios-linux/potstats/merge"
	"github.com/minios-linux/potstats/pathconv"
	"github.com/minios-linux/potstats/stats"
	"github.com/minios-linux/potstats/store"
)

var (
	// ErrFileNotFound means no translation file of the resource resolves
	// to the requested language.
	ErrFileNotFound = errors.New("translation file not found")
	// ErrNoSourceTemplate means the resource has no template to merge
	// against.
	ErrNoSourceTemplate = errors.New("resource has no source template")
)

// Merger stages a translation file reconciled with a template.
type Merger interface {
	Merge(ctx context.Context, resource, rel, translation, template string) merge.Outcome
}

// Registry resolves language codes and aliases.
type Registry interface {
	Lookup(code string) (langmeta.Language, error)
}

// Options configure a Manager.
type Options struct {
	// Root is the directory the file set's paths are relative to.
	Root string
	// Resource identifies the resource in the staging area and in the
	// repository.
	Resource string
	// SourceLang is the language the template is written in.
	SourceLang string

	Merger     Merger
	Registry   Registry
	Repository store.Repository
	Logger     zerolog.Logger
}

// Manager is safe for concurrent use. It keeps no state besides its
// inputs; records live in the repository.
type Manager struct {
	files *pathconv.FileSet
	opts  Options
	log   zerolog.Logger
}

// New returns a Manager for files. A nil Registry uses langmeta.Default
// and a nil Repository an in-memory one. Misnamed files, duplicate
// languages and extra templates are logged.
func New(files *pathconv.FileSet, opts Options) *Manager {
	if opts.Registry == nil {
		opts.Registry = langmeta.Default
	}
	if opts.Repository == nil {
		opts.Repository = store.NewMemory()
	}
	m := &Manager{
		files: files,
		opts:  opts,
		log:   opts.Logger.With().Str("resource", opts.Resource).Logger(),
	}

	conv := files.Convention()
	for _, lang := range files.Languages() {
		if err := conv.Check(lang); err != nil {
			file, _ := files.FileFor(lang)
			m.log.Warn().Err(err).Str("file", file).Msg("file does not follow the naming convention")
		}
	}
	for lang, paths := range files.Conflicts() {
		m.log.Warn().Str("lang", lang).Strs("files", paths).Str("using", paths[0]).Msg("several files for one language")
	}
	if tmpls := files.Templates(); len(tmpls) > 1 {
		m.log.Warn().Strs("templates", tmpls).Str("using", tmpls[0]).Msg("several templates")
	}
	return m
}

// Resource returns the resource identifier.
func (m *Manager) Resource() string {
	return m.opts.Resource
}

// SourceLang returns the language of the template.
func (m *Manager) SourceLang() string {
	return m.opts.SourceLang
}

// TranslationFileFor returns the file of lang, the lexicographically
// first one when several exist.
func (m *Manager) TranslationFileFor(lang string) (string, bool) {
	return m.files.FileFor(lang)
}

// Languages returns the sorted languages that have a translation file.
func (m *Manager) Languages() []string {
	return m.files.Languages()
}

// SourceTemplate returns the template files are merged against.
func (m *Manager) SourceTemplate() (string, bool) {
	return m.files.SourceTemplate()
}

// Templates returns every template of the resource.
func (m *Manager) Templates() []string {
	return m.files.Templates()
}

// Conflicts returns languages backed by more than one file.
func (m *Manager) Conflicts() map[string][]string {
	return m.files.Conflicts()
}

// ComputeStats merges the file of lang against the template and scores it.
// Unknown languages and a missing template are errors; an unreadable file
// is not, it yields stats with HadError set.
func (m *Manager) ComputeStats(ctx context.Context, lang string) (stats.Stats, error) {
	rel, ok := m.files.FileFor(lang)
	if !ok {
		return stats.Stats{}, fmt.Errorf("%w: %s", ErrFileNotFound, lang)
	}
	tmpl, ok := m.files.SourceTemplate()
	if !ok {
		return stats.Stats{}, ErrNoSourceTemplate
	}
	if m.opts.Merger == nil {
		return stats.Stats{}, errors.New("no merger configured")
	}

	log := m.log.With().Str("lang", lang).Str("file", rel).Logger()
	out := m.opts.Merger.Merge(ctx, m.opts.Resource, rel,
		filepath.Join(m.opts.Root, rel), filepath.Join(m.opts.Root, tmpl))
	if !out.Merged {
		log.Info().Msg("scoring unmerged copy")
	}

	s, err := stats.Score(out.OutputPath, out.Merged)
	if err != nil {
		log.Warn().Err(err).Str("staged", out.OutputPath).Msg("could not score")
	}
	return s, nil
}

// RecordStats computes the stats of lang and stores them, creating the
// record on first use. The record is keyed by file name, not language.
func (m *Manager) RecordStats(ctx context.Context, lang string) (*store.Record, error) {
	s, err := m.ComputeStats(ctx, lang)
	if err != nil {
		return nil, err
	}
	rel, _ := m.files.FileFor(lang)
	return m.upsert(ctx, lang, rel, s)
}

func (m *Manager) upsert(ctx context.Context, lang, rel string, s stats.Stats) (*store.Record, error) {
	repo := m.opts.Repository
	rec, err := repo.FindOne(ctx, m.opts.Resource, rel)
	if err != nil {
		return nil, fmt.Errorf("finding record for %s: %w", rel, err)
	}
	if rec == nil {
		rec = &store.Record{
			ResourceID:   m.opts.Resource,
			FileName:     rel,
			LanguageCode: lang,
			Language:     m.resolve(lang),
		}
		rec.SetStats(s)
		err = repo.Create(ctx, rec)
		if err == nil {
			return rec, nil
		}
		if !errors.Is(err, store.ErrConflict) {
			return nil, fmt.Errorf("creating record for %s: %w", rel, err)
		}
		// Lost a race with another writer; update its record instead.
		m.log.Debug().Str("file", rel).Msg("record created concurrently, updating")
		rec, err = repo.FindOne(ctx, m.opts.Resource, rel)
		if err != nil {
			return nil, fmt.Errorf("finding record for %s: %w", rel, err)
		}
		if rec == nil {
			return nil, fmt.Errorf("record for %s vanished after conflict", rel)
		}
	}

	rec.LanguageCode = lang
	rec.SetStats(s)
	if err := repo.Save(ctx, rec); err != nil {
		return nil, fmt.Errorf("saving record for %s: %w", rel, err)
	}
	return rec, nil
}

func (m *Manager) resolve(lang string) *string {
	l, err := m.opts.Registry.Lookup(lang)
	if err != nil {
		m.log.Debug().Err(err).Str("lang", lang).Msg("language not in registry")
		return nil
	}
	return &l.Code
}

// StatsFor returns the stored record of lang, or nil if none was recorded.
// A language whose file left the set is looked up by its stored language
// code, so records of renamed or removed files stay reachable.
func (m *Manager) StatsFor(ctx context.Context, lang string) (*store.Record, error) {
	if rel, ok := m.files.FileFor(lang); ok {
		return m.opts.Repository.FindOne(ctx, m.opts.Resource, rel)
	}
	recs, err := m.opts.Repository.ListOrderedByCompleteness(ctx, m.opts.Resource)
	if err != nil {
		return nil, err
	}
	for _, rec := range recs {
		if rec.LanguageCode == lang {
			return rec, nil
		}
	}
	return nil, nil
}

// AllStats returns the stored records of the resource, most complete
// first, ties broken by language and file name.
func (m *Manager) AllStats(ctx context.Context) ([]*store.Record, error) {
	recs, err := m.opts.Repository.ListOrderedByCompleteness(ctx, m.opts.Resource)
	if err != nil {
		return nil, err
	}
	store.SortByCompleteness(recs)
	return recs, nil
}

// PurgeStats deletes every stored record of the resource.
func (m *Manager) PurgeStats(ctx context.Context) error {
	return m.opts.Repository.DeleteAllFor(ctx, m.opts.Resource)
}

// RecordAll records every language whose file passes filter (nil records
// all). A language that cannot be computed is recorded with HadError set
// so listings stay complete; repository errors stop the run.
func (m *Manager) RecordAll(ctx context.Context, filter func(lang, file string) bool) ([]*store.Record, error) {
	var out []*store.Record
	for _, lang := range m.files.Languages() {
		if err := ctx.Err(); err != nil {
			return out, err
		}
		rel, _ := m.files.FileFor(lang)
		if filter != nil && !filter(lang, rel) {
			continue
		}
		s, err := m.ComputeStats(ctx, lang)
		if err != nil {
			m.log.Warn().Err(err).Str("lang", lang).Msg("recording as failed")
			s = stats.Failed(false)
		}
		rec, err := m.upsert(ctx, lang, rel, s)
		if err != nil {
			return out, err
		}
		out = append(out, rec)
	}
	return out, nil
}
