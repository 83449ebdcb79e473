package language

import "strings"

// codes maps display names to ISO 639-1 codes as understood by Whisper.
var codes = map[string]string{
	"English":            "en",
	"Spanish":            "es",
	"French":             "fr",
	"German":             "de",
	"Italian":            "it",
	"Portuguese":         "pt",
	"Dutch":              "nl",
	"Russian":            "ru",
	"Ukrainian":          "uk",
	"Polish":             "pl",
	"Czech":              "cs",
	"Slovak":             "sk",
	"Hungarian":          "hu",
	"Romanian":           "ro",
	"Bulgarian":          "bg",
	"Serbian":            "sr",
	"Croatian":           "hr",
	"Slovenian":          "sl",
	"Bosnian":            "bs",
	"Albanian":           "sq",
	"Greek":              "el",
	"Turkish":            "tr",
	"Swedish":            "sv",
	"Norwegian":          "no",
	"Danish":             "da",
	"Finnish":            "fi",
	"Icelandic":          "is",
	"Lithuanian":         "lt",
	"Latvian":            "lv",
	"Estonian":           "et",
	"Irish":              "ga",
	"Welsh":              "cy",
	"Catalan":            "ca",
	"Galician":           "gl",
	"Basque":             "eu",
	"Arabic":             "ar",
	"Hebrew":             "he",
	"Persian (Farsi)":    "fa",
	"Pashto":             "ps",
	"Kurdish":            "ku",
	"Azerbaijani":        "az",
	"Armenian":           "hy",
	"Georgian":           "ka",
	"Kazakh":             "kk",
	"Uzbek":              "uz",
	"Hindi":              "hi",
	"Urdu":               "ur",
	"Bengali":            "bn",
	"Punjabi":            "pa",
	"Marathi":            "mr",
	"Gujarati":           "gu",
	"Tamil":              "ta",
	"Telugu":             "te",
	"Kannada":            "kn",
	"Malayalam":          "ml",
	"Sinhala":            "si",
	"Nepali":             "ne",
	"Chinese":            "zh",
	"Japanese":           "ja",
	"Korean":             "ko",
	"Vietnamese":         "vi",
	"Thai":               "th",
	"Lao":                "lo",
	"Khmer":              "km",
	"Burmese":            "my",
	"Mongolian":          "mn",
	"Indonesian":         "id",
	"Malay":              "ms",
	"Filipino (Tagalog)": "tl",
	"Swahili":            "sw",
	"Amharic":            "am",
	"Somali":             "so",
	"Yoruba":             "yo",
	"Hausa":              "ha",
	"Zulu":               "zu",
	"Afrikaans":          "af",
	"Haitian Creole":     "ht",
}

var names map[string]string

func init() {
	names = make(map[string]string, len(codes))
	for name, code := range codes {
		names[code] = name
	}
}

// Code resolves a display name to its ISO code.
func Code(name string) (string, bool) {
	code, ok := codes[CleanName(name)]
	return code, ok
}

// Name resolves an ISO code back to a display name.
func Name(code string) (string, bool) {
	name, ok := names[strings.ToLower(strings.TrimSpace(code))]
	return name, ok
}

// SourceNames lists every selectable source language, Auto-Detect first.
func SourceNames() []string {
	out := make([]string, 0, len(codes)+1)
	out = append(out, "Auto-Detect")
	for name := range codes {
		out = append(out, name)
	}
	return out
}

// TargetNames lists the display names offered as translation targets.
func TargetNames() []string {
	return []string{
		"🇺🇸 American English",
		"🇬🇧 British English",
		"🇪🇸 Spanish",
		"🇫🇷 French",
		"🇩🇪 German",
		"🇮🇹 Italian",
		"🇵🇹 Portuguese",
		"🇧🇷 Brazilian Portuguese",
		"🇳🇱 Dutch",
		"🇷🇺 Russian",
		"🇵🇱 Polish",
		"🇨🇿 Czech",
		"🇭🇺 Hungarian",
		"🇬🇷 Greek",
		"🇹🇷 Turkish",
		"🇸🇪 Swedish",
		"🇳🇴 Norwegian",
		"🇩🇰 Danish",
		"🇫🇮 Finnish",
		"🇯🇵 Japanese",
		"🇨🇳 Mandarin Chinese",
		"🇰🇷 Korean",
		"🇻🇳 Vietnamese",
		"🇹🇭 Thai",
		"🇮🇩 Indonesian",
		"🇮🇳 Hindi",
		"🇦🇪 Arabic",
		"🇮🇱 Hebrew",
		"🇮🇷 Persian (Farsi)",
		"🇭🇹 Haitian Creole",
		"🇿🇦 Afrikaans",
		"🇹🇿 Swahili",
	}
}

// CleanName strips flag emoji and regional descriptors so the name can be
// used in a translation prompt.
func CleanName(name string) string {
	var b strings.Builder
	for _, r := range name {
		if r >= 0x1F1E6 && r <= 0x1F1FF {
			continue
		}
		b.WriteRune(r)
	}
	cleaned := strings.TrimSpace(b.String())
	switch {
	case strings.Contains(cleaned, "American English"),
		strings.Contains(cleaned, "British English"):
		return "English"
	case strings.Contains(cleaned, "Mandarin Chinese"):
		return "Chinese"
	case strings.Contains(cleaned, "Brazilian Portuguese"):
		return "Portuguese"
	}
	return cleaned
}

// Resolve turns either an ISO code or a display name into a clean display
// name for prompting. Unknown inputs pass through cleaned.
func Resolve(nameOrCode string) string {
	nameOrCode = strings.TrimSpace(nameOrCode)
	if n, ok := Name(nameOrCode); ok {
		return n
	}
	return CleanName(nameOrCode)
}
