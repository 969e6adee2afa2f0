// Package i18n translates the user-facing messages of textrans.
//
// Messages are looked up with gotext in .po catalogs embedded from
// locales/{lang}/LC_MESSAGES/textrans.po. Without Init, or for a language
// with no catalog, T and N return the English text.
//
// Usage:
//
//	i18n.Init("") // LANGUAGE, LC_ALL, LC_MESSAGES, LANG
//	logInfo("%s", i18n.T("Translation complete"))
//	logWarning(i18n.N("%d chunk failed", "%d chunks failed", n), n)
package i18n

import (
	"embed"
	"io/fs"
	"os"
	"sort"
	"strings"

	"github.com/leonelquinteros/gotext"
)

//go:embed all:locales
var locales embed.FS

const domain = "textrans"

var (
	po   *gotext.Locale
	lang string
)

// Init selects the message catalog. An empty lang is detected from the
// environment. Call it once at startup.
func Init(l string) {
	if l == "" {
		l = detectLanguage()
	}
	lang = l
	po = gotext.NewLocaleFSWithPath(l, locales, "locales")
	po.AddDomain(domain)
	po.SetDomain(domain)
}

// Lang returns the language passed to or detected by Init.
func Lang() string {
	if lang == "" {
		return "en"
	}
	return lang
}

// Available returns the languages with an embedded catalog, sorted.
func Available() []string {
	entries, err := fs.ReadDir(locales, "locales")
	if err != nil {
		return nil
	}
	var out []string
	for _, e := range entries {
		if e.IsDir() {
			out = append(out, e.Name())
		}
	}
	sort.Strings(out)
	return out
}

// T translates msgid, or returns it unchanged.
func T(msgid string) string {
	if po == nil {
		return msgid
	}
	return po.Get(msgid)
}

// N translates a message with plural forms using the catalog's plural rule.
func N(singular, plural string, n int) string {
	if po == nil {
		if n == 1 {
			return singular
		}
		return plural
	}
	return po.GetN(singular, plural, n)
}

// detectLanguage follows the GNU gettext priority:
// LANGUAGE > LC_ALL > LC_MESSAGES > LANG.
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
		// ru_RU.UTF-8 -> ru_RU
		if i := strings.IndexByte(val, '.'); i >= 0 {
			val = val[:i]
		}
		if val == "" || val == "C" || val == "POSIX" {
			continue
		}
		return val
	}
	return "en"
}
