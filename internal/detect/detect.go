// Package detect identifies the language of transcribed text.
//
// Detection runs as a two-tier chain: a fast offline detector first, then a
// translation-service fallback for text the offline tier cannot classify
// confidently. The fallback result is only accepted when its confidence
// strictly exceeds the configured threshold.
package detect

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/voxlate/voxlate/pkg/provider/translate"
)

// ErrAmbiguous is returned by a Detector that cannot classify the text with
// enough certainty to commit to a language.
var ErrAmbiguous = errors.New("detect: language ambiguous")

// ErrUnknownLanguage is returned by the Chain when every tier has been
// exhausted without an accepted result.
var ErrUnknownLanguage = errors.New("detect: unknown language")

// Result is an identified language with the detector's confidence in it.
type Result struct {
	// Language is the lowercase ISO 639-1 code.
	Language string
	// Confidence is the detector's certainty in [0, 1].
	Confidence float64
}

// Detector identifies the language of a piece of text.
type Detector interface {
	// DetectLanguage returns the language of text or ErrAmbiguous when the
	// detector cannot commit to one.
	DetectLanguage(ctx context.Context, text string) (Result, error)
}

// Chain runs an offline detector first and falls back to the translation
// service when the offline tier is ambiguous or fails.
type Chain struct {
	offline  Detector
	fallback translate.Service
}

// NewChain builds a detection chain. offline may be nil, in which case every
// request goes straight to the fallback service.
func NewChain(offline Detector, fallback translate.Service) (*Chain, error) {
	if fallback == nil {
		return nil, errors.New("detect: fallback service must not be nil")
	}
	return &Chain{offline: offline, fallback: fallback}, nil
}

// DetectLanguage identifies the language of text.
//
// The offline tier's answer is taken as-is when it commits to a language. The
// fallback tier's answer is accepted only when its confidence strictly
// exceeds threshold; a detection at exactly the threshold is rejected. The
// threshold is supplied per call so runtime configuration changes apply to
// the next detection. When no tier produces an accepted result the error is
// ErrUnknownLanguage.
func (c *Chain) DetectLanguage(ctx context.Context, text string, threshold float64) (Result, error) {
	if c.offline != nil {
		res, err := c.offline.DetectLanguage(ctx, text)
		if err == nil {
			return res, nil
		}
		if !errors.Is(err, ErrAmbiguous) {
			slog.Warn("detect: offline tier failed, falling back", "err", err)
		}
	}

	det, err := c.fallback.Detect(ctx, text)
	if err != nil {
		return Result{}, fmt.Errorf("detect: fallback detection: %w", err)
	}
	if det.Confidence <= threshold {
		slog.Warn("detect: fallback confidence below threshold",
			"language", det.Language,
			"confidence", det.Confidence,
			"threshold", threshold)
		return Result{}, ErrUnknownLanguage
	}
	return Result{Language: det.Language, Confidence: det.Confidence}, nil
}
