// Package i18n localizes the dstrans command-line messages.
//
// Catalogs are gettext .po files embedded from locales/{lang}/LC_MESSAGES
// and read with gotext. Dataset content is never passed through here.
package i18n

import (
	"embed"
	"os"
	"strings"

	"github.com/leonelquinteros/gotext"
)

// Directory structure: locales/{lang}/LC_MESSAGES/dstrans.po
//
//go:embed all:locales
var locales embed.FS

const (
	domain = "dstrans"

	// LangEnv selects the message language ahead of the locale variables.
	LangEnv = "DSTRANS_LANG"
)

// po is the gotext locale object used for translations.
var po *gotext.Locale

// Init loads the catalog for lang. If lang is empty it is taken from
// DSTRANS_LANG, then LANGUAGE, LC_ALL, LC_MESSAGES and LANG.
func Init(lang string) {
	if lang == "" {
		lang = detectLanguage()
	}

	po = gotext.NewLocaleFSWithPath(lang, locales, "locales")
	po.AddDomain(domain)
	po.SetDomain(domain)
}

// T translates msgid, or returns it unchanged.
func T(msgid string) string {
	if po == nil {
		return msgid
	}
	return po.Get(msgid)
}

// N translates a message with plural forms.
func N(singular, plural string, n int) string {
	if po == nil {
		if n == 1 {
			return singular
		}
		return plural
	}
	return po.GetN(singular, plural, n)
}

// localeVars are read in order. The first two may hold colon-separated
// preference lists.
var localeVars = []string{LangEnv, "LANGUAGE", "LC_ALL", "LC_MESSAGES", "LANG"}

func detectLanguage() string {
	for _, name := range localeVars {
		entries := []string{os.Getenv(name)}
		if name == LangEnv || name == "LANGUAGE" {
			entries = strings.Split(entries[0], ":")
		}
		for _, entry := range entries {
			if lang := localeLanguage(entry); lang != "" {
				return lang
			}
		}
	}
	return "en"
}

// localeLanguage reduces "ru_RU.UTF-8@latin" to "ru_RU". The C and POSIX
// locales yield "".
func localeLanguage(locale string) string {
	lang, _, _ := strings.Cut(locale, "@")
	lang, _, _ = strings.Cut(lang, ".")
	lang = strings.TrimSpace(lang)
	if lang == "C" || lang == "POSIX" {
		return ""
	}
	return lang
}
