package pipeline

// fallbackTarget is the language translated toward when the speaker is
// already using the default target language.
const fallbackTarget = "en"

// TargetLanguage resolves which language an utterance should be translated
// into. Speaking any language other than defaultTarget translates toward
// defaultTarget; speaking defaultTarget itself translates toward English.
// Pure and stateless.
func TargetLanguage(source, defaultTarget string) string {
	if source == defaultTarget {
		return fallbackTarget
	}
	return defaultTarget
}
