// Package pathconv maps the file paths of a resource to language
// identifiers using naming conventions, and answers questions about a
// resource's set of catalog files.
//
// Two layouts are recognised:
//
//	locale/de/LC_MESSAGES/app.po   -> "de"  (directory before LC_MESSAGES)
//	po/pt_BR.po                    -> "pt_BR" (base name minus the suffix)
//
// The identifier is advisory: it is used to group and order files, and
// is only matched against a language registry when stats are persisted.
package pathconv

import (
	"errors"
	"fmt"
	"path"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// ErrMalformedLanguage reports an identifier that cannot be a language code,
// typically because a file name does not follow the suffix convention.
var ErrMalformedLanguage = errors.New("malformed language identifier")

// Convention describes how catalog files are named.
type Convention struct {
	// MessagesDir is the directory name whose parent names the language.
	MessagesDir string `yaml:"messages_dir,omitempty"`
	// SuffixLen is how many trailing bytes of a base name are dropped to get
	// the language ("de.po" -> "de" with 3).
	SuffixLen int `yaml:"suffix_len,omitempty"`
	// TranslationPattern matches translation file base names.
	TranslationPattern string `yaml:"translation_pattern,omitempty"`
	// TemplatePattern matches source template base names.
	TemplatePattern string `yaml:"template_pattern,omitempty"`
}

// DefaultConvention is the gettext layout: "*.po" translations, "*.pot"
// templates, LC_MESSAGES directories and a three byte ".po" suffix.
func DefaultConvention() Convention {
	return Convention{
		MessagesDir:        "LC_MESSAGES",
		SuffixLen:          3,
		TranslationPattern: "*.po",
		TemplatePattern:    "*.pot",
	}
}

// WithDefaults fills unset fields from DefaultConvention.
func (c Convention) WithDefaults() Convention {
	d := DefaultConvention()
	if c.MessagesDir == "" {
		c.MessagesDir = d.MessagesDir
	}
	if c.SuffixLen <= 0 {
		c.SuffixLen = d.SuffixLen
	}
	if c.TranslationPattern == "" {
		c.TranslationPattern = d.TranslationPattern
	}
	if c.TemplatePattern == "" {
		c.TemplatePattern = d.TemplatePattern
	}
	return c
}

// Validate checks that the patterns are well-formed globs.
func (c Convention) Validate() error {
	for _, p := range []string{c.TranslationPattern, c.TemplatePattern} {
		if !doublestar.ValidatePattern(p) {
			return fmt.Errorf("invalid pattern %q", p)
		}
	}
	return nil
}

// LanguageOf returns the language identifier of a catalog path.
func (c Convention) LanguageOf(p string) string {
	segments := strings.Split(filepath.ToSlash(p), "/")
	for i, seg := range segments {
		if seg != c.MessagesDir {
			continue
		}
		// Nothing before the messages directory: no language segment.
		if i == 0 {
			return ""
		}
		return segments[i-1]
	}

	base := path.Base(filepath.ToSlash(p))
	if len(base) <= c.SuffixLen {
		return ""
	}
	return base[:len(base)-c.SuffixLen]
}

// Check reports whether lang looks like a language code. Anything that
// still carries path separators, dots or whitespace came from a file that
// does not follow the convention.
func (c Convention) Check(lang string) error {
	if lang == "" {
		return fmt.Errorf("%w: empty", ErrMalformedLanguage)
	}
	if strings.ContainsAny(lang, `/\. `+"\t") {
		return fmt.Errorf("%w: %q", ErrMalformedLanguage, lang)
	}
	return nil
}

// IsTranslation reports whether p names a translation file.
func (c Convention) IsTranslation(p string) bool {
	return c.match(c.TranslationPattern, p)
}

// IsTemplate reports whether p names a source template.
func (c Convention) IsTemplate(p string) bool {
	return c.match(c.TemplatePattern, p)
}

func (c Convention) match(pattern, p string) bool {
	ok, err := doublestar.Match(pattern, path.Base(filepath.ToSlash(p)))
	return err == nil && ok
}
