// Package translate defines the Service interface for machine-translation
// backends.
//
// A Service performs two request/response operations: translating text
// between two named languages, and detecting the language of a text with a
// confidence score. The latter backs the second tier of the pipeline's
// language-detection chain, so a Service must report honest confidence
// values rather than defaulting to 1.0.
//
// Implementations must be safe for concurrent use and must normalize every
// transport or API fault into a returned error; nothing may panic across
// the pipeline boundary.
package translate

import "context"

// Request describes one translation call.
type Request struct {
	// Text is the source text to translate.
	Text string

	// Source is the ISO-639-1 code of the text's language.
	Source string

	// Target is the ISO-639-1 code to translate into.
	Target string
}

// Result holds the outcome of a translation call.
type Result struct {
	// Text is the translated text.
	Text string
}

// Detection holds the outcome of a language-detection call.
type Detection struct {
	// Language is the detected ISO-639-1 code.
	Language string

	// Confidence is the backend's trust in the guess, in [0, 1].
	Confidence float64
}

// Service is the abstraction over any translation backend.
type Service interface {
	// Translate converts req.Text from req.Source to req.Target. Callers
	// are expected not to invoke Translate when Source equals Target; the
	// pipeline short-circuits that case without a service call.
	Translate(ctx context.Context, req Request) (Result, error)

	// Detect returns the backend's best guess at the language of text
	// together with a confidence score.
	Detect(ctx context.Context, text string) (Detection, error)
}
