// Package langmeta provides a shared language metadata registry
// (English and native names, emoji flags) used for language validation
// and CLI output.
package langmeta

import (
	"fmt"
	"sort"
	"strings"
)

// Auto is the source language value that asks the provider to detect it.
const Auto = "auto"

// Meta describes language display metadata.
type Meta struct {
	English string
	Native  string
	Flag    string
}

// Registry contains canonical language metadata.
// Locale variants are resolved in Resolve() via normalization and base fallback.
var Registry = map[string]Meta{
	"af":    {English: "Afrikaans", Native: "Afrikaans", Flag: "🇿🇦"},
	"am":    {English: "Amharic", Native: "አማርኛ", Flag: "🇪🇹"},
	"ar":    {English: "Arabic", Native: "العربية", Flag: "🇸🇦"},
	"ar-EG": {English: "Arabic (Egypt)", Native: "العربية (مصر)", Flag: "🇪🇬"},
	"az":    {English: "Azerbaijani", Native: "Azərbaycanca", Flag: "🇦🇿"},
	"be":    {English: "Belarusian", Native: "Беларуская", Flag: "🇧🇾"},
	"bg":    {English: "Bulgarian", Native: "Български", Flag: "🇧🇬"},
	"bn":    {English: "Bengali", Native: "বাংলা", Flag: "🇧🇩"},
	"bs":    {English: "Bosnian", Native: "Bosanski", Flag: "🇧🇦"},
	"ca":    {English: "Catalan", Native: "Català", Flag: "🇪🇸"},
	"cs":    {English: "Czech", Native: "Čeština", Flag: "🇨🇿"},
	"cy":    {English: "Welsh", Native: "Cymraeg", Flag: "🇬🇧"},
	"da":    {English: "Danish", Native: "Dansk", Flag: "🇩🇰"},
	"de":    {English: "German", Native: "Deutsch", Flag: "🇩🇪"},
	"de-AT": {English: "German (Austria)", Native: "Deutsch (Österreich)", Flag: "🇦🇹"},
	"de-CH": {English: "German (Switzerland)", Native: "Deutsch (Schweiz)", Flag: "🇨🇭"},
	"el":    {English: "Greek", Native: "Ελληνικά", Flag: "🇬🇷"},
	"en":    {English: "English", Native: "English", Flag: "🇺🇸"},
	"en-AU": {English: "English (Australia)", Native: "English (Australia)", Flag: "🇦🇺"},
	"en-CA": {English: "English (Canada)", Native: "English (Canada)", Flag: "🇨🇦"},
	"en-GB": {English: "English (UK)", Native: "English (UK)", Flag: "🇬🇧"},
	"en-IN": {English: "English (India)", Native: "English (India)", Flag: "🇮🇳"},
	"en-US": {English: "English (US)", Native: "English (US)", Flag: "🇺🇸"},
	"es":    {English: "Spanish", Native: "Español", Flag: "🇪🇸"},
	"es-AR": {English: "Spanish (Argentina)", Native: "Español (Argentina)", Flag: "🇦🇷"},
	"es-MX": {English: "Spanish (Mexico)", Native: "Español (México)", Flag: "🇲🇽"},
	"et":    {English: "Estonian", Native: "Eesti", Flag: "🇪🇪"},
	"eu":    {English: "Basque", Native: "Euskara", Flag: "🇪🇸"},
	"fa":    {English: "Persian", Native: "فارسی", Flag: "🇮🇷"},
	"fi":    {English: "Finnish", Native: "Suomi", Flag: "🇫🇮"},
	"fr":    {English: "French", Native: "Français", Flag: "🇫🇷"},
	"fr-BE": {English: "French (Belgium)", Native: "Français (Belgique)", Flag: "🇧🇪"},
	"fr-CA": {English: "French (Canada)", Native: "Français (Canada)", Flag: "🇨🇦"},
	"fr-CH": {English: "French (Switzerland)", Native: "Français (Suisse)", Flag: "🇨🇭"},
	"ga":    {English: "Irish", Native: "Gaeilge", Flag: "🇮🇪"},
	"gl":    {English: "Galician", Native: "Galego", Flag: "🇪🇸"},
	"gu":    {English: "Gujarati", Native: "ગુજરાતી", Flag: "🇮🇳"},
	"he":    {English: "Hebrew", Native: "עברית", Flag: "🇮🇱"},
	"hi":    {English: "Hindi", Native: "हिन्दी", Flag: "🇮🇳"},
	"hr":    {English: "Croatian", Native: "Hrvatski", Flag: "🇭🇷"},
	"hu":    {English: "Hungarian", Native: "Magyar", Flag: "🇭🇺"},
	"hy":    {English: "Armenian", Native: "Հայերեն", Flag: "🇦🇲"},
	"id":    {English: "Indonesian", Native: "Bahasa Indonesia", Flag: "🇮🇩"},
	"is":    {English: "Icelandic", Native: "Íslenska", Flag: "🇮🇸"},
	"it":    {English: "Italian", Native: "Italiano", Flag: "🇮🇹"},
	"ja":    {English: "Japanese", Native: "日本語", Flag: "🇯🇵"},
	"ka":    {English: "Georgian", Native: "ქართული", Flag: "🇬🇪"},
	"kk":    {English: "Kazakh", Native: "Қазақ тілі", Flag: "🇰🇿"},
	"km":    {English: "Khmer", Native: "ខ្មែរ", Flag: "🇰🇭"},
	"ko":    {English: "Korean", Native: "한국어", Flag: "🇰🇷"},
	"lo":    {English: "Lao", Native: "ລາວ", Flag: "🇱🇦"},
	"lt":    {English: "Lithuanian", Native: "Lietuvių", Flag: "🇱🇹"},
	"lv":    {English: "Latvian", Native: "Latviešu", Flag: "🇱🇻"},
	"mk":    {English: "Macedonian", Native: "Македонски", Flag: "🇲🇰"},
	"ml":    {English: "Malayalam", Native: "മലയാളം", Flag: "🇮🇳"},
	"mn":    {English: "Mongolian", Native: "Монгол", Flag: "🇲🇳"},
	"mr":    {English: "Marathi", Native: "मराठी", Flag: "🇮🇳"},
	"ms":    {English: "Malay", Native: "Bahasa Melayu", Flag: "🇲🇾"},
	"mt":    {English: "Maltese", Native: "Malti", Flag: "🇲🇹"},
	"my":    {English: "Burmese", Native: "မြန်မာ", Flag: "🇲🇲"},
	"ne":    {English: "Nepali", Native: "नेपाली", Flag: "🇳🇵"},
	"nl":    {English: "Dutch", Native: "Nederlands", Flag: "🇳🇱"},
	"nl-BE": {English: "Dutch (Belgium)", Native: "Nederlands (België)", Flag: "🇧🇪"},
	"nb":    {English: "Norwegian Bokmål", Native: "Norsk bokmål", Flag: "🇳🇴"},
	"nn":    {English: "Norwegian Nynorsk", Native: "Norsk nynorsk", Flag: "🇳🇴"},
	"no":    {English: "Norwegian", Native: "Norsk", Flag: "🇳🇴"},
	"pa":    {English: "Punjabi", Native: "ਪੰਜਾਬੀ", Flag: "🇮🇳"},
	"pl":    {English: "Polish", Native: "Polski", Flag: "🇵🇱"},
	"ps":    {English: "Pashto", Native: "پښتو", Flag: "🇦🇫"},
	"pt":    {English: "Portuguese", Native: "Português", Flag: "🇵🇹"},
	"pt-BR": {English: "Portuguese (Brazil)", Native: "Português (Brasil)", Flag: "🇧🇷"},
	"pt-PT": {English: "Portuguese (Portugal)", Native: "Português (Portugal)", Flag: "🇵🇹"},
	"ro":    {English: "Romanian", Native: "Română", Flag: "🇷🇴"},
	"ru":    {English: "Russian", Native: "Русский", Flag: "🇷🇺"},
	"si":    {English: "Sinhala", Native: "සිංහල", Flag: "🇱🇰"},
	"sk":    {English: "Slovak", Native: "Slovenčina", Flag: "🇸🇰"},
	"sl":    {English: "Slovenian", Native: "Slovenščina", Flag: "🇸🇮"},
	"sq":    {English: "Albanian", Native: "Shqip", Flag: "🇦🇱"},
	"sr":    {English: "Serbian", Native: "Српски", Flag: "🇷🇸"},
	"sv":    {English: "Swedish", Native: "Svenska", Flag: "🇸🇪"},
	"sw":    {English: "Swahili", Native: "Kiswahili", Flag: "🇹🇿"},
	"ta":    {English: "Tamil", Native: "தமிழ்", Flag: "🇮🇳"},
	"te":    {English: "Telugu", Native: "తెలుగు", Flag: "🇮🇳"},
	"th":    {English: "Thai", Native: "ไทย", Flag: "🇹🇭"},
	"tr":    {English: "Turkish", Native: "Türkçe", Flag: "🇹🇷"},
	"uk":    {English: "Ukrainian", Native: "Українська", Flag: "🇺🇦"},
	"ur":    {English: "Urdu", Native: "اردو", Flag: "🇵🇰"},
	"uz":    {English: "Uzbek", Native: "O'zbek", Flag: "🇺🇿"},
	"vi":    {English: "Vietnamese", Native: "Tiếng Việt", Flag: "🇻🇳"},
	"xh":    {English: "Xhosa", Native: "isiXhosa", Flag: "🇿🇦"},
	"yo":    {English: "Yoruba", Native: "Yorùbá", Flag: "🇳🇬"},
	"zh":    {English: "Chinese", Native: "中文", Flag: "🇨🇳"},
	"zh-CN": {English: "Chinese (Simplified)", Native: "简体中文", Flag: "🇨🇳"},
	"zh-TW": {English: "Chinese (Traditional)", Native: "繁體中文", Flag: "🇹🇼"},
	"zu":    {English: "Zulu", Native: "isiZulu", Flag: "🇿🇦"},
}

func canonicalize(lang string) string {
	normalized := strings.ReplaceAll(strings.TrimSpace(lang), "_", "-")
	if normalized == "" {
		return ""
	}
	parts := strings.Split(normalized, "-")
	parts[0] = strings.ToLower(parts[0])
	if len(parts) >= 2 {
		parts[1] = strings.ToUpper(parts[1])
	}
	return strings.Join(parts, "-")
}

// Resolve returns best-effort language metadata for language codes,
// supporting variants like pt_BR, pt-BR, and locale fallbacks.
func Resolve(lang string) Meta {
	if m, ok := lookupCode(lang); ok {
		return m
	}
	return Meta{English: lang, Native: lang}
}

func lookupCode(lang string) (Meta, bool) {
	if m, ok := Registry[lang]; ok {
		return m, true
	}
	normalized := canonicalize(lang)
	if m, ok := Registry[normalized]; ok {
		return m, true
	}
	if parts := strings.SplitN(normalized, "-", 2); len(parts) == 2 {
		if m, ok := Registry[parts[0]]; ok {
			return m, true
		}
	}
	return Meta{}, false
}

// EnglishName returns the English name of a language code, or the code
// itself when it is unknown.
func EnglishName(code string) string {
	return Resolve(code).English
}

// Lookup accepts a language code (any case, "_" or "-" separators) or a
// language name in English or in the language itself, and returns the
// canonical code.
func Lookup(s string) (string, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", false
	}
	if _, ok := lookupCode(s); ok {
		return canonicalize(s), true
	}
	for code, m := range Registry {
		if strings.EqualFold(m.English, s) || strings.EqualFold(m.Native, s) {
			return code, true
		}
	}
	return "", false
}

// Parse validates a language argument and returns its canonical code.
// When allowAuto is set, "auto" (any case) is accepted as-is.
func Parse(s string, allowAuto bool) (string, error) {
	if allowAuto && strings.EqualFold(strings.TrimSpace(s), Auto) {
		return Auto, nil
	}
	if strings.TrimSpace(s) == "" {
		return "", fmt.Errorf("language is required")
	}
	code, ok := Lookup(s)
	if !ok {
		return "", fmt.Errorf("unknown language %q (run 'textrans languages' for the list)", s)
	}
	return code, nil
}

// Codes returns all registry codes, sorted.
func Codes() []string {
	codes := make([]string, 0, len(Registry))
	for code := range Registry {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}
