// Package langmeta is the language registry: native names and flags of
// known languages, and best-effort resolution of the codes found in
// catalog paths (pt_BR, de-de, iw, ...) to registry entries.
package langmeta

import (
	"errors"
	"fmt"
	"strings"

	"golang.org/x/text/language"
)

// ErrUnknownLanguage is returned by Lookup for codes not in the registry.
var ErrUnknownLanguage = errors.New("unknown language")

// Meta describes language display metadata.
type Meta struct {
	Name string
	Flag string
}

// Language is a resolved registry entry.
type Language struct {
	// Code is the canonical registry key, e.g. "pt-BR".
	Code string
	Meta
}

// Registry contains canonical language metadata keyed by BCP 47 code.
var Registry = map[string]Meta{
	"af":    {Name: "Afrikaans", Flag: "🇿🇦"},
	"ar":    {Name: "العربية", Flag: "🇸🇦"},
	"az":    {Name: "Azərbaycanca", Flag: "🇦🇿"},
	"be":    {Name: "Беларуская", Flag: "🇧🇾"},
	"bg":    {Name: "Български", Flag: "🇧🇬"},
	"bn":    {Name: "বাংলা", Flag: "🇧🇩"},
	"bs":    {Name: "Bosanski", Flag: "🇧🇦"},
	"ca":    {Name: "Català", Flag: "🇪🇸"},
	"cs":    {Name: "Čeština", Flag: "🇨🇿"},
	"cy":    {Name: "Cymraeg", Flag: "🇬🇧"},
	"da":    {Name: "Dansk", Flag: "🇩🇰"},
	"de":    {Name: "Deutsch", Flag: "🇩🇪"},
	"de-AT": {Name: "Deutsch (Österreich)", Flag: "🇦🇹"},
	"de-CH": {Name: "Deutsch (Schweiz)", Flag: "🇨🇭"},
	"el":    {Name: "Ελληνικά", Flag: "🇬🇷"},
	"en":    {Name: "English", Flag: "🇺🇸"},
	"en-GB": {Name: "English (UK)", Flag: "🇬🇧"},
	"en-US": {Name: "English (US)", Flag: "🇺🇸"},
	"eo":    {Name: "Esperanto", Flag: ""},
	"es":    {Name: "Español", Flag: "🇪🇸"},
	"es-MX": {Name: "Español (México)", Flag: "🇲🇽"},
	"et":    {Name: "Eesti", Flag: "🇪🇪"},
	"eu":    {Name: "Euskara", Flag: "🇪🇸"},
	"fa":    {Name: "فارسی", Flag: "🇮🇷"},
	"fi":    {Name: "Suomi", Flag: "🇫🇮"},
	"fr":    {Name: "Français", Flag: "🇫🇷"},
	"fr-CA": {Name: "Français (Canada)", Flag: "🇨🇦"},
	"ga":    {Name: "Gaeilge", Flag: "🇮🇪"},
	"gl":    {Name: "Galego", Flag: "🇪🇸"},
	"he":    {Name: "עברית", Flag: "🇮🇱"},
	"hi":    {Name: "हिन्दी", Flag: "🇮🇳"},
	"hr":    {Name: "Hrvatski", Flag: "🇭🇷"},
	"hu":    {Name: "Magyar", Flag: "🇭🇺"},
	"id":    {Name: "Bahasa Indonesia", Flag: "🇮🇩"},
	"is":    {Name: "Íslenska", Flag: "🇮🇸"},
	"it":    {Name: "Italiano", Flag: "🇮🇹"},
	"ja":    {Name: "日本語", Flag: "🇯🇵"},
	"ka":    {Name: "ქართული", Flag: "🇬🇪"},
	"kk":    {Name: "Қазақ тілі", Flag: "🇰🇿"},
	"ko":    {Name: "한국어", Flag: "🇰🇷"},
	"lt":    {Name: "Lietuvių", Flag: "🇱🇹"},
	"lv":    {Name: "Latviešu", Flag: "🇱🇻"},
	"mk":    {Name: "Македонски", Flag: "🇲🇰"},
	"ms":    {Name: "Bahasa Melayu", Flag: "🇲🇾"},
	"nb":    {Name: "Norsk bokmål", Flag: "🇳🇴"},
	"nl":    {Name: "Nederlands", Flag: "🇳🇱"},
	"nn":    {Name: "Norsk nynorsk", Flag: "🇳🇴"},
	"pl":    {Name: "Polski", Flag: "🇵🇱"},
	"pt":    {Name: "Português", Flag: "🇵🇹"},
	"pt-BR": {Name: "Português (Brasil)", Flag: "🇧🇷"},
	"ro":    {Name: "Română", Flag: "🇷🇴"},
	"ru":    {Name: "Русский", Flag: "🇷🇺"},
	"sk":    {Name: "Slovenčina", Flag: "🇸🇰"},
	"sl":    {Name: "Slovenščina", Flag: "🇸🇮"},
	"sq":    {Name: "Shqip", Flag: "🇦🇱"},
	"sr":    {Name: "Српски", Flag: "🇷🇸"},
	"sv":    {Name: "Svenska", Flag: "🇸🇪"},
	"ta":    {Name: "தமிழ்", Flag: "🇮🇳"},
	"th":    {Name: "ไทย", Flag: "🇹🇭"},
	"tr":    {Name: "Türkçe", Flag: "🇹🇷"},
	"uk":    {Name: "Українська", Flag: "🇺🇦"},
	"vi":    {Name: "Tiếng Việt", Flag: "🇻🇳"},
	"zh":    {Name: "中文", Flag: "🇨🇳"},
	"zh-CN": {Name: "简体中文", Flag: "🇨🇳"},
	"zh-TW": {Name: "繁體中文", Flag: "🇹🇼"},
}

// canonicalize turns gettext-style codes into BCP 47 form: underscores
// become hyphens, the language is lower case and a region upper case.
// A gettext "@modifier" is dropped.
func canonicalize(code string) string {
	normalized := strings.TrimSpace(code)
	if idx := strings.IndexAny(normalized, ".@"); idx >= 0 {
		normalized = normalized[:idx]
	}
	normalized = strings.ReplaceAll(normalized, "_", "-")
	if normalized == "" {
		return ""
	}
	parts := strings.Split(normalized, "-")
	parts[0] = strings.ToLower(parts[0])
	if len(parts) >= 2 && len(parts[1]) == 2 {
		parts[1] = strings.ToUpper(parts[1])
	}
	return strings.Join(parts, "-")
}

// Lookup resolves a code or alias to a registry entry. It tries, in order:
// the code as given, its canonical form, the form golang.org/x/text gives
// it (which maps deprecated codes such as "iw" to "he"), and finally the
// base language ("fr-LU" -> "fr").
func Lookup(code string) (Language, error) {
	if m, ok := Registry[code]; ok {
		return Language{Code: code, Meta: m}, nil
	}
	normalized := canonicalize(code)
	if m, ok := Registry[normalized]; ok {
		return Language{Code: normalized, Meta: m}, nil
	}

	tag, err := language.Parse(normalized)
	if err != nil {
		return Language{}, fmt.Errorf("%w: %q", ErrUnknownLanguage, code)
	}
	if m, ok := Registry[tag.String()]; ok {
		return Language{Code: tag.String(), Meta: m}, nil
	}
	if region, conf := tag.Region(); conf == language.Exact {
		base, _ := tag.Base()
		key := base.String() + "-" + region.String()
		if m, ok := Registry[key]; ok {
			return Language{Code: key, Meta: m}, nil
		}
	}
	base, _ := tag.Base()
	if m, ok := Registry[base.String()]; ok {
		return Language{Code: base.String(), Meta: m}, nil
	}
	return Language{}, fmt.Errorf("%w: %q", ErrUnknownLanguage, code)
}

// Resolve returns display metadata for code, falling back to the code
// itself as the name.
func Resolve(code string) Meta {
	if l, err := Lookup(code); err == nil {
		return l.Meta
	}
	return Meta{Name: code}
}

// Registrar is the language registry as seen by callers that only need
// lookups.
type Registrar interface {
	Lookup(code string) (Language, error)
}

// Default is the built-in registry.
var Default Registrar = builtin{}

type builtin struct{}

func (builtin) Lookup(code string) (Language, error) {
	return Lookup(code)
}
