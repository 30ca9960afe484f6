package app_test

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	sdkmetric "go.opentelemetry.io/otel/sdk/metric"

	"github.com/voxlate/voxlate/internal/app"
	"github.com/voxlate/voxlate/internal/config"
	"github.com/voxlate/voxlate/internal/detect"
	"github.com/voxlate/voxlate/internal/observe"
	"github.com/voxlate/voxlate/internal/pipeline"
	"github.com/voxlate/voxlate/pkg/audio"
	audiomock "github.com/voxlate/voxlate/pkg/audio/mock"
	"github.com/voxlate/voxlate/pkg/provider/stt"
	sttmock "github.com/voxlate/voxlate/pkg/provider/stt/mock"
	translatemock "github.com/voxlate/voxlate/pkg/provider/translate/mock"
	ttsmock "github.com/voxlate/voxlate/pkg/provider/tts/mock"
)

// testConfig returns a minimal valid config for tests.
func testConfig() *config.Config {
	cfg := &config.Config{
		Server: config.ServerConfig{LogLevel: config.LogInfo},
		Providers: config.ProvidersConfig{
			STT:       config.ProviderEntry{Name: "vosk"},
			Translate: config.ProviderEntry{Name: "googleweb"},
			TTS:       config.ProviderEntry{Name: "coqui"},
		},
	}
	if err := config.Validate(cfg); err != nil {
		panic(err)
	}
	return cfg
}

// stubDetector commits to a fixed language for every input.
type stubDetector struct {
	lang string
}

func (d *stubDetector) DetectLanguage(ctx context.Context, text string) (detect.Result, error) {
	return detect.Result{Language: d.lang, Confidence: 0.99}, nil
}

func testMetrics(t *testing.T) *observe.Metrics {
	t.Helper()
	mp := sdkmetric.NewMeterProvider()
	t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })
	m, err := observe.NewMetrics(mp)
	if err != nil {
		t.Fatalf("NewMetrics: %v", err)
	}
	return m
}

// syncBuffer is a goroutine-safe writer for capturing console output while
// the pipeline is still running.
type syncBuffer struct {
	mu  sync.Mutex
	buf strings.Builder
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func testProviders(source *audiomock.Source) *app.Providers {
	return &app.Providers{
		Recognizer:  &sttmock.Recognizer{DefaultText: "hola"},
		Translator:  &translatemock.Service{},
		Synthesizer: &ttsmock.Synthesizer{},
		Source:      source,
		Player:      &audiomock.Player{},
	}
}

func TestNew_WithMocks(t *testing.T) {
	t.Parallel()

	application, err := app.New(
		context.Background(),
		testConfig(),
		testProviders(&audiomock.Source{}),
		app.WithMetrics(testMetrics(t)),
		app.WithOfflineDetector(&stubDetector{lang: "es"}),
	)
	if err != nil {
		t.Fatalf("New() returned error: %v", err)
	}
	if application == nil {
		t.Fatal("New() returned nil app")
	}
	if application.Coordinator().DefaultTargetLanguage() != config.DefaultTargetLanguage {
		t.Errorf("default target = %q, want %q",
			application.Coordinator().DefaultTargetLanguage(), config.DefaultTargetLanguage)
	}
}

func TestNew_MissingProviders(t *testing.T) {
	t.Parallel()

	_, err := app.New(context.Background(), testConfig(), &app.Providers{})
	if err == nil {
		t.Fatal("expected error for empty providers")
	}
}

// TestRun_EndToEnd feeds one Spanish utterance through the whole pipeline
// and checks the console block and spoken output.
func TestRun_EndToEnd(t *testing.T) {
	t.Parallel()

	source := &audiomock.Source{Script: []audiomock.ListenResult{
		{Utterance: &audio.Utterance{Samples: []float32{0.1}, SampleRate: 16000, CapturedAt: time.Now()}},
	}}
	providers := testProviders(source)
	providers.Translator = &translatemock.Service{
		Translations: map[string]string{
			translatemock.Key("es", "en", "hola"): "hello",
		},
	}

	out := &syncBuffer{}
	reporter := pipeline.NewConsoleReporter(out)

	application, err := app.New(
		context.Background(),
		testConfig(), // default target "es": Spanish speech goes to English
		providers,
		app.WithMetrics(testMetrics(t)),
		app.WithOfflineDetector(&stubDetector{lang: "es"}),
		app.WithReporter(reporter),
	)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- application.Run(ctx) }()

	deadline := time.After(5 * time.Second)
	for {
		if strings.Contains(out.String(), "[ENGLISH] hello") {
			break
		}
		select {
		case <-deadline:
			t.Fatalf("translated output never appeared; console so far:\n%s", out.String())
		case <-time.After(10 * time.Millisecond):
		}
	}
	cancel()

	select {
	case err := <-done:
		if err != nil && err != context.Canceled {
			t.Errorf("Run returned %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not stop after cancellation")
	}

	synth := providers.Synthesizer.(*ttsmock.Synthesizer)
	calls := synth.Calls()
	if len(calls) != 1 || calls[0].Text != "hello" || calls[0].Language != "en" {
		t.Errorf("speak calls = %+v, want one call with (hello, en)", calls)
	}

	if err := application.Shutdown(context.Background()); err != nil {
		t.Errorf("Shutdown: %v", err)
	}
	if !source.Closed {
		t.Error("audio source not closed on shutdown")
	}
	if !synth.Closed() {
		t.Error("synthesizer not closed on shutdown")
	}
}

// blockingRecognizer ignores ctx and blocks until released, standing in for
// a synchronous native inference call.
type blockingRecognizer struct {
	started chan struct{}
	release chan struct{}
	once    sync.Once
}

func (r *blockingRecognizer) Transcribe(ctx context.Context, u *audio.Utterance) (string, error) {
	r.once.Do(func() { close(r.started) })
	<-r.release
	return "", stt.ErrUnintelligible
}

// TestRun_AbandonsStuckLoopAfterGrace cancels while the coordinator is stuck
// inside a recognizer call that never observes ctx: Run must still return
// within the grace window instead of blocking forever.
func TestRun_AbandonsStuckLoopAfterGrace(t *testing.T) {
	t.Parallel()

	recognizer := &blockingRecognizer{
		started: make(chan struct{}),
		release: make(chan struct{}),
	}
	t.Cleanup(func() { close(recognizer.release) })

	source := &audiomock.Source{Script: []audiomock.ListenResult{
		{Utterance: &audio.Utterance{Samples: []float32{0.1}, SampleRate: 16000, CapturedAt: time.Now()}},
	}}
	providers := testProviders(source)
	providers.Recognizer = recognizer

	application, err := app.New(
		context.Background(),
		testConfig(),
		providers,
		app.WithMetrics(testMetrics(t)),
		app.WithOfflineDetector(&stubDetector{lang: "es"}),
		app.WithReporter(&syncReporter{}),
		app.WithLoopGrace(50*time.Millisecond),
	)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- application.Run(ctx) }()

	select {
	case <-recognizer.started:
	case <-time.After(5 * time.Second):
		t.Fatal("recognizer never entered its blocking call")
	}
	cancel()

	select {
	case err := <-done:
		if err != nil && err != context.Canceled {
			t.Errorf("Run returned %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run still blocked after cancellation despite the grace window")
	}
}

// syncReporter is a no-op reporter safe for concurrent use.
type syncReporter struct{}

func (syncReporter) Utterance(lang, text string)   {}
func (syncReporter) Translation(lang, text string) {}
func (syncReporter) NoTranslation()                {}
func (syncReporter) TranslationFailed()            {}
func (syncReporter) Unknown(text string)           {}
func (syncReporter) Done()                         {}

// TestShutdown_Idempotent runs Shutdown twice without error.
func TestShutdown_Idempotent(t *testing.T) {
	t.Parallel()

	application, err := app.New(
		context.Background(),
		testConfig(),
		testProviders(&audiomock.Source{}),
		app.WithMetrics(testMetrics(t)),
		app.WithOfflineDetector(&stubDetector{lang: "es"}),
	)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := application.Shutdown(context.Background()); err != nil {
		t.Errorf("first Shutdown: %v", err)
	}
	if err := application.Shutdown(context.Background()); err != nil {
		t.Errorf("second Shutdown: %v", err)
	}
}

// TestShutdown_DeadlineExceeded skips remaining closers when the context is
// already expired.
func TestShutdown_DeadlineExceeded(t *testing.T) {
	t.Parallel()

	application, err := app.New(
		context.Background(),
		testConfig(),
		testProviders(&audiomock.Source{}),
		app.WithMetrics(testMetrics(t)),
		app.WithOfflineDetector(&stubDetector{lang: "es"}),
	)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := application.Shutdown(ctx); err == nil {
		t.Error("expected context error from expired shutdown deadline")
	}
}
