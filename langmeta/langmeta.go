// Package langmeta maps language codes to the names used in translation
// prompts and CLI output.
package langmeta

import "strings"

// Meta describes a language.
type Meta struct {
	// Name is the English name, as written into prompts.
	Name string
	// Native is the language's own name, for display.
	Native string
}

// Registry contains canonical language metadata.
// Locale variants are resolved in Resolve() via normalization and base fallback.
var Registry = map[string]Meta{
	"af":    {Name: "Afrikaans", Native: "Afrikaans"},
	"ar":    {Name: "Arabic", Native: "العربية"},
	"bg":    {Name: "Bulgarian", Native: "Български"},
	"bn":    {Name: "Bengali", Native: "বাংলা"},
	"ca":    {Name: "Catalan", Native: "Català"},
	"cs":    {Name: "Czech", Native: "Čeština"},
	"cy":    {Name: "Welsh", Native: "Cymraeg"},
	"da":    {Name: "Danish", Native: "Dansk"},
	"de":    {Name: "German", Native: "Deutsch"},
	"de-AT": {Name: "Austrian German", Native: "Deutsch (Österreich)"},
	"de-CH": {Name: "Swiss German", Native: "Deutsch (Schweiz)"},
	"el":    {Name: "Greek", Native: "Ελληνικά"},
	"en":    {Name: "English", Native: "English"},
	"en-GB": {Name: "British English", Native: "English (UK)"},
	"en-US": {Name: "American English", Native: "English (US)"},
	"es":    {Name: "Spanish", Native: "Español"},
	"es-MX": {Name: "Mexican Spanish", Native: "Español (México)"},
	"et":    {Name: "Estonian", Native: "Eesti"},
	"eu":    {Name: "Basque", Native: "Euskara"},
	"fa":    {Name: "Persian", Native: "فارسی"},
	"fi":    {Name: "Finnish", Native: "Suomi"},
	"fo":    {Name: "Faroese", Native: "Føroyskt"},
	"fr":    {Name: "French", Native: "Français"},
	"fr-CA": {Name: "Canadian French", Native: "Français (Canada)"},
	"ga":    {Name: "Irish", Native: "Gaeilge"},
	"gl":    {Name: "Galician", Native: "Galego"},
	"he":    {Name: "Hebrew", Native: "עברית"},
	"hi":    {Name: "Hindi", Native: "हिन्दी"},
	"hr":    {Name: "Croatian", Native: "Hrvatski"},
	"hu":    {Name: "Hungarian", Native: "Magyar"},
	"id":    {Name: "Indonesian", Native: "Bahasa Indonesia"},
	"is":    {Name: "Icelandic", Native: "Íslenska"},
	"it":    {Name: "Italian", Native: "Italiano"},
	"ja":    {Name: "Japanese", Native: "日本語"},
	"ko":    {Name: "Korean", Native: "한국어"},
	"lt":    {Name: "Lithuanian", Native: "Lietuvių"},
	"lv":    {Name: "Latvian", Native: "Latviešu"},
	"ms":    {Name: "Malay", Native: "Bahasa Melayu"},
	"mt":    {Name: "Maltese", Native: "Malti"},
	"nb":    {Name: "Norwegian Bokmål", Native: "Norsk bokmål"},
	"nl":    {Name: "Dutch", Native: "Nederlands"},
	"nn":    {Name: "Norwegian Nynorsk", Native: "Norsk nynorsk"},
	"no":    {Name: "Norwegian", Native: "Norsk"},
	"pl":    {Name: "Polish", Native: "Polski"},
	"pt":    {Name: "Portuguese", Native: "Português"},
	"pt-BR": {Name: "Brazilian Portuguese", Native: "Português (Brasil)"},
	"ro":    {Name: "Romanian", Native: "Română"},
	"ru":    {Name: "Russian", Native: "Русский"},
	"sk":    {Name: "Slovak", Native: "Slovenčina"},
	"sl":    {Name: "Slovenian", Native: "Slovenščina"},
	"sq":    {Name: "Albanian", Native: "Shqip"},
	"sr":    {Name: "Serbian", Native: "Српски"},
	"sv":    {Name: "Swedish", Native: "Svenska"},
	"sw":    {Name: "Swahili", Native: "Kiswahili"},
	"ta":    {Name: "Tamil", Native: "தமிழ்"},
	"th":    {Name: "Thai", Native: "ไทย"},
	"tr":    {Name: "Turkish", Native: "Türkçe"},
	"uk":    {Name: "Ukrainian", Native: "Українська"},
	"ur":    {Name: "Urdu", Native: "اردو"},
	"vi":    {Name: "Vietnamese", Native: "Tiếng Việt"},
	"zh":    {Name: "Chinese", Native: "中文"},
	"zh-CN": {Name: "Simplified Chinese", Native: "简体中文"},
	"zh-TW": {Name: "Traditional Chinese", Native: "繁體中文"},
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
// The second result is false when lang is not a known code.
func Resolve(lang string) (Meta, bool) {
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
	return Meta{Name: lang, Native: lang}, false
}

// Name returns the English name for a language code. Anything that is not
// a known code, including full names like "Danish", is returned trimmed.
func Name(lang string) string {
	m, _ := Resolve(lang)
	return strings.TrimSpace(m.Name)
}

// Label formats a language for display, e.g. "Danish (Dansk) [da]".
func Label(lang string) string {
	m, ok := Resolve(lang)
	if !ok {
		return lang
	}
	if m.Native == m.Name {
		return m.Name + " [" + lang + "]"
	}
	return m.Name + " (" + m.Native + ") [" + lang + "]"
}
