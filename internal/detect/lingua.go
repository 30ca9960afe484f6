package detect

import (
	"context"
	"strings"

	"github.com/pemistahl/lingua-go"
)

// minOfflineConfidence is the lowest confidence at which the offline tier
// commits to a language instead of deferring to the fallback service.
const minOfflineConfidence = 0.9

// LinguaDetector is the offline detection tier, backed by lingua's
// statistical language models. Construction loads the models and is
// expensive; construct once and reuse.
type LinguaDetector struct {
	detector lingua.LanguageDetector
}

var _ Detector = (*LinguaDetector)(nil)

// NewLinguaDetector builds an offline detector covering all languages lingua
// supports.
func NewLinguaDetector() *LinguaDetector {
	return &LinguaDetector{
		detector: lingua.NewLanguageDetectorBuilder().
			FromAllLanguages().
			WithPreloadedLanguageModels().
			Build(),
	}
}

// DetectLanguage implements Detector. Short or mixed-language text for which
// lingua cannot produce a confident answer yields ErrAmbiguous so the chain
// can consult its fallback tier.
func (d *LinguaDetector) DetectLanguage(ctx context.Context, text string) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}
	if strings.TrimSpace(text) == "" {
		return Result{}, ErrAmbiguous
	}

	lang, ok := d.detector.DetectLanguageOf(text)
	if !ok {
		return Result{}, ErrAmbiguous
	}
	conf := d.detector.ComputeLanguageConfidence(text, lang)
	if conf < minOfflineConfidence {
		return Result{}, ErrAmbiguous
	}
	return Result{
		Language:   strings.ToLower(lang.IsoCode639_1().String()),
		Confidence: conf,
	}, nil
}
