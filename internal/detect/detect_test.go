package detect

import (
	"context"
	"errors"
	"testing"

	"github.com/voxlate/voxlate/pkg/provider/translate"
	translatemock "github.com/voxlate/voxlate/pkg/provider/translate/mock"
)

// stubDetector is a scripted offline tier.
type stubDetector struct {
	res Result
	err error
}

func (s *stubDetector) DetectLanguage(ctx context.Context, text string) (Result, error) {
	return s.res, s.err
}

// TestChain_OfflineResultWins verifies a confident offline answer is used
// without consulting the fallback.
func TestChain_OfflineResultWins(t *testing.T) {
	offline := &stubDetector{res: Result{Language: "es", Confidence: 0.95}}
	fallback := &translatemock.Service{Detection: translate.Detection{Language: "fr", Confidence: 0.99}}

	c, err := NewChain(offline, fallback)
	if err != nil {
		t.Fatalf("NewChain: %v", err)
	}
	res, err := c.DetectLanguage(context.Background(), "hola mundo", 0.8)
	if err != nil {
		t.Fatalf("DetectLanguage: %v", err)
	}
	if res.Language != "es" {
		t.Errorf("language = %q, want es", res.Language)
	}
	if len(fallback.DetectCalls) != 0 {
		t.Errorf("fallback consulted %d times, want 0", len(fallback.DetectCalls))
	}
}

// TestChain_AmbiguousFallsBack consults the fallback when the offline tier
// cannot commit.
func TestChain_AmbiguousFallsBack(t *testing.T) {
	offline := &stubDetector{err: ErrAmbiguous}
	fallback := &translatemock.Service{Detection: translate.Detection{Language: "pt", Confidence: 0.92}}

	c, err := NewChain(offline, fallback)
	if err != nil {
		t.Fatalf("NewChain: %v", err)
	}
	res, err := c.DetectLanguage(context.Background(), "obrigado", 0.8)
	if err != nil {
		t.Fatalf("DetectLanguage: %v", err)
	}
	if res.Language != "pt" {
		t.Errorf("language = %q, want pt", res.Language)
	}
	if len(fallback.DetectCalls) != 1 {
		t.Errorf("fallback consulted %d times, want 1", len(fallback.DetectCalls))
	}
}

// TestChain_LowConfidenceRejected rejects fallback detections at or below the
// threshold.
func TestChain_LowConfidenceRejected(t *testing.T) {
	fallback := &translatemock.Service{Detection: translate.Detection{Language: "de", Confidence: 0.5}}

	c, err := NewChain(nil, fallback)
	if err != nil {
		t.Fatalf("NewChain: %v", err)
	}
	_, err = c.DetectLanguage(context.Background(), "hm", 0.8)
	if !errors.Is(err, ErrUnknownLanguage) {
		t.Fatalf("err = %v, want ErrUnknownLanguage", err)
	}
}

// TestChain_ExactThresholdRejected verifies the comparison is strict: a
// detection exactly at the threshold is not accepted.
func TestChain_ExactThresholdRejected(t *testing.T) {
	fallback := &translatemock.Service{Detection: translate.Detection{Language: "de", Confidence: 0.8}}

	c, err := NewChain(nil, fallback)
	if err != nil {
		t.Fatalf("NewChain: %v", err)
	}
	_, err = c.DetectLanguage(context.Background(), "hm", 0.8)
	if !errors.Is(err, ErrUnknownLanguage) {
		t.Fatalf("err = %v, want ErrUnknownLanguage", err)
	}
}

// TestChain_JustAboveThresholdAccepted accepts a detection strictly above the
// threshold.
func TestChain_JustAboveThresholdAccepted(t *testing.T) {
	fallback := &translatemock.Service{Detection: translate.Detection{Language: "de", Confidence: 0.81}}

	c, err := NewChain(nil, fallback)
	if err != nil {
		t.Fatalf("NewChain: %v", err)
	}
	res, err := c.DetectLanguage(context.Background(), "hallo welt", 0.8)
	if err != nil {
		t.Fatalf("DetectLanguage: %v", err)
	}
	if res.Language != "de" {
		t.Errorf("language = %q, want de", res.Language)
	}
}

// TestChain_FallbackFaultPropagates surfaces fallback service errors.
func TestChain_FallbackFaultPropagates(t *testing.T) {
	fault := errors.New("service down")
	fallback := &translatemock.Service{DetectErr: fault}

	c, err := NewChain(nil, fallback)
	if err != nil {
		t.Fatalf("NewChain: %v", err)
	}
	_, err = c.DetectLanguage(context.Background(), "hola", 0.8)
	if !errors.Is(err, fault) {
		t.Fatalf("err = %v, want wrapped %v", err, fault)
	}
}

// TestChain_OfflineFaultFallsBack treats an unexpected offline failure the
// same as ambiguity.
func TestChain_OfflineFaultFallsBack(t *testing.T) {
	offline := &stubDetector{err: errors.New("model not loaded")}
	fallback := &translatemock.Service{Detection: translate.Detection{Language: "it", Confidence: 0.9}}

	c, err := NewChain(offline, fallback)
	if err != nil {
		t.Fatalf("NewChain: %v", err)
	}
	res, err := c.DetectLanguage(context.Background(), "ciao", 0.8)
	if err != nil {
		t.Fatalf("DetectLanguage: %v", err)
	}
	if res.Language != "it" {
		t.Errorf("language = %q, want it", res.Language)
	}
}

// TestNewChain_Validation rejects bad construction arguments.
func TestNewChain_Validation(t *testing.T) {
	if _, err := NewChain(nil, nil); err == nil {
		t.Fatal("expected error for nil fallback")
	}
}

// TestChain_ThresholdVariesPerCall verifies the same detection flips between
// accepted and rejected as the caller-supplied threshold changes.
func TestChain_ThresholdVariesPerCall(t *testing.T) {
	fallback := &translatemock.Service{Detection: translate.Detection{Language: "es", Confidence: 0.85}}

	c, err := NewChain(nil, fallback)
	if err != nil {
		t.Fatalf("NewChain: %v", err)
	}

	res, err := c.DetectLanguage(context.Background(), "vale", 0.8)
	if err != nil {
		t.Fatalf("DetectLanguage at threshold 0.8: %v", err)
	}
	if res.Language != "es" {
		t.Errorf("language = %q, want es", res.Language)
	}

	_, err = c.DetectLanguage(context.Background(), "vale", 0.9)
	if !errors.Is(err, ErrUnknownLanguage) {
		t.Fatalf("err at threshold 0.9 = %v, want ErrUnknownLanguage", err)
	}
}
