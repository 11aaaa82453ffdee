package pathconv

import (
	"sort"
)

// FileSet is the immutable list of files belonging to one resource. Paths
// are kept as given, normally relative to the resource root.
type FileSet struct {
	conv         Convention
	paths        []string
	translations []string
}

// NewFileSet copies paths into a FileSet classified by conv.
func NewFileSet(paths []string, conv Convention) *FileSet {
	fs := &FileSet{
		conv:  conv,
		paths: append([]string(nil), paths...),
	}
	for _, p := range fs.paths {
		if conv.IsTranslation(p) && !conv.IsTemplate(p) {
			fs.translations = append(fs.translations, p)
		}
	}
	sort.Strings(fs.translations)
	return fs
}

// Convention returns the convention the set was classified with.
func (fs *FileSet) Convention() Convention {
	return fs.conv
}

// TranslationFiles returns the translation files, sorted ascending. The
// order is the tie-break between files of the same language and the
// display order of listings.
func (fs *FileSet) TranslationFiles() []string {
	return append([]string(nil), fs.translations...)
}

// SourceTemplate returns the first template in the order given.
func (fs *FileSet) SourceTemplate() (string, bool) {
	for _, p := range fs.paths {
		if fs.conv.IsTemplate(p) {
			return p, true
		}
	}
	return "", false
}

// Templates returns every template in the order given. More than one is a
// misconfigured resource; SourceTemplate uses the first.
func (fs *FileSet) Templates() []string {
	var out []string
	for _, p := range fs.paths {
		if fs.conv.IsTemplate(p) {
			out = append(out, p)
		}
	}
	return out
}

// LanguageOf returns the language identifier of p.
func (fs *FileSet) LanguageOf(p string) string {
	return fs.conv.LanguageOf(p)
}

// FileFor returns the translation file of lang. When several files resolve
// to the same language the lexicographically first one wins; see Conflicts.
func (fs *FileSet) FileFor(lang string) (string, bool) {
	for _, p := range fs.translations {
		if fs.conv.LanguageOf(p) == lang {
			return p, true
		}
	}
	return "", false
}

// Languages returns the distinct language identifiers, sorted.
func (fs *FileSet) Languages() []string {
	seen := make(map[string]bool, len(fs.translations))
	var langs []string
	for _, p := range fs.translations {
		lang := fs.conv.LanguageOf(p)
		if !seen[lang] {
			seen[lang] = true
			langs = append(langs, lang)
		}
	}
	sort.Strings(langs)
	return langs
}

// Conflicts returns the languages backed by more than one translation
// file, each with its files in sorted order.
func (fs *FileSet) Conflicts() map[string][]string {
	byLang := make(map[string][]string)
	for _, p := range fs.translations {
		lang := fs.conv.LanguageOf(p)
		byLang[lang] = append(byLang[lang], p)
	}
	for lang, files := range byLang {
		if len(files) < 2 {
			delete(byLang, lang)
		}
	}
	return byLang
}
