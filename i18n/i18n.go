// Package i18n translates potstats' own user-facing strings.
//
// Translations are embedded from locales/{lang}/LC_MESSAGES/potstats.po
// and loaded with Init. Before Init, T and N return their input.
package i18n

import (
	"embed"
	"os"
	"strings"

	"github.com/leonelquinteros/gotext"
)

//go:embed all:locales
var locales embed.FS

const domain = "potstats"

var (
	locale *gotext.Locale
	lang   string
)

// Init loads the catalog of language l. An empty l is taken from
// LANGUAGE, LC_ALL, LC_MESSAGES and LANG, in that order.
func Init(l string) {
	if l == "" {
		l = detectLanguage()
	}
	lang = l
	locale = gotext.NewLocaleFSWithPath(l, locales, "locales")
	locale.AddDomain(domain)
	locale.SetDomain(domain)
}

// Lang returns the language passed to or detected by Init.
func Lang() string {
	return lang
}

// T translates msgid. Before Init, or without a translation, msgid is
// returned unchanged. Format verbs are left for the caller.
func T(msgid string) string {
	if locale == nil {
		return msgid
	}
	return locale.Get(msgid)
}

// N translates a message with plural forms, picking the form for n.
func N(singular, plural string, n int) string {
	if locale == nil {
		if n == 1 {
			return singular
		}
		return plural
	}
	return locale.GetN(singular, plural, n)
}

// detectLanguage follows GNU gettext: LANGUAGE > LC_ALL > LC_MESSAGES > LANG.
func detectLanguage() string {
	for _, env := range []string{"LANGUAGE", "LC_ALL", "LC_MESSAGES", "LANG"} {
		val := os.Getenv(env)
		if val == "" {
			continue
		}
		// LANGUAGE is a colon-separated list.
		if env == "LANGUAGE" {
			val, _, _ = strings.Cut(val, ":")
		}
		// "ru_RU.UTF-8" -> "ru_RU"
		val, _, _ = strings.Cut(val, ".")
		if val == "C" || val == "POSIX" || val == "" {
			continue
		}
		return val
	}
	return "en"
}
