// Package mock provides a test double for the translate package.
//
// Translations are looked up in the Translations map keyed by
// "source→target:text"; unknown keys echo the input text uppercased so
// tests can still observe that a translation happened. Every call is
// recorded for inspection.
package mock

import (
	"context"
	"strings"
	"sync"

	"github.com/voxlate/voxlate/pkg/provider/translate"
)

// Key builds the Translations lookup key for a request.
func Key(source, target, text string) string {
	return source + "→" + target + ":" + text
}

// Service is a mock implementation of translate.Service.
type Service struct {
	mu sync.Mutex

	// Translations maps Key(source, target, text) to the translated text.
	Translations map[string]string

	// TranslateErr, if non-nil, is returned from every Translate call.
	TranslateErr error

	// Detection and DetectErr are returned from every Detect call.
	Detection translate.Detection
	DetectErr error

	// TranslateCalls and DetectCalls record every invocation.
	TranslateCalls []translate.Request
	DetectCalls    []string
}

var _ translate.Service = (*Service)(nil)

// Translate records the call and returns the scripted translation.
func (s *Service) Translate(ctx context.Context, req translate.Request) (translate.Result, error) {
	if err := ctx.Err(); err != nil {
		return translate.Result{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.TranslateCalls = append(s.TranslateCalls, req)
	if s.TranslateErr != nil {
		return translate.Result{}, s.TranslateErr
	}
	if text, ok := s.Translations[Key(req.Source, req.Target, req.Text)]; ok {
		return translate.Result{Text: text}, nil
	}
	return translate.Result{Text: strings.ToUpper(req.Text)}, nil
}

// Detect records the call and returns the scripted detection.
func (s *Service) Detect(ctx context.Context, text string) (translate.Detection, error) {
	if err := ctx.Err(); err != nil {
		return translate.Detection{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.DetectCalls = append(s.DetectCalls, text)
	if s.DetectErr != nil {
		return translate.Detection{}, s.DetectErr
	}
	return s.Detection, nil
}

// TranslateCallCount returns the number of recorded Translate calls.
func (s *Service) TranslateCallCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.TranslateCalls)
}
