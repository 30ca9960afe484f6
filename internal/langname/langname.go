// Package langname maps ISO 639-1 language codes to human-readable English
// display names for console output.
package langname

import "strings"

// names covers the languages the translation backends commonly report.
var names = map[string]string{
	"af": "Afrikaans",
	"ar": "Arabic",
	"bg": "Bulgarian",
	"bn": "Bengali",
	"ca": "Catalan",
	"cs": "Czech",
	"cy": "Welsh",
	"da": "Danish",
	"de": "German",
	"el": "Greek",
	"en": "English",
	"es": "Spanish",
	"et": "Estonian",
	"fa": "Persian",
	"fi": "Finnish",
	"fr": "French",
	"ga": "Irish",
	"he": "Hebrew",
	"hi": "Hindi",
	"hr": "Croatian",
	"hu": "Hungarian",
	"id": "Indonesian",
	"is": "Icelandic",
	"it": "Italian",
	"ja": "Japanese",
	"ko": "Korean",
	"la": "Latin",
	"lt": "Lithuanian",
	"lv": "Latvian",
	"mk": "Macedonian",
	"ms": "Malay",
	"nl": "Dutch",
	"no": "Norwegian",
	"pl": "Polish",
	"pt": "Portuguese",
	"ro": "Romanian",
	"ru": "Russian",
	"sk": "Slovak",
	"sl": "Slovenian",
	"sq": "Albanian",
	"sr": "Serbian",
	"sv": "Swedish",
	"sw": "Swahili",
	"ta": "Tamil",
	"te": "Telugu",
	"th": "Thai",
	"tl": "Tagalog",
	"tr": "Turkish",
	"uk": "Ukrainian",
	"ur": "Urdu",
	"vi": "Vietnamese",
	"zh": "Chinese",
}

// Name returns the English display name for an ISO 639-1 code. Unknown codes
// fall back to the uppercased code so callers always get something printable.
func Name(code string) string {
	if n, ok := names[strings.ToLower(code)]; ok {
		return n
	}
	return strings.ToUpper(code)
}

// Known reports whether the code has a display name.
func Known(code string) bool {
	_, ok := names[strings.ToLower(code)]
	return ok
}

// Codes returns all known ISO 639-1 codes in unspecified order.
func Codes() []string {
	out := make([]string, 0, len(names))
	for c := range names {
		out = append(out, c)
	}
	return out
}
