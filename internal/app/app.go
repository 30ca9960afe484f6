// Package app wires all Voxlate subsystems into a running application.
//
// The App struct owns the full lifecycle: New creates and connects the
// capture loop, queue, and coordinator, Run executes both pipeline loops
// (plus the optional metrics endpoint), and Shutdown tears everything down
// in order.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/voxlate/voxlate/internal/config"
	"github.com/voxlate/voxlate/internal/detect"
	"github.com/voxlate/voxlate/internal/observe"
	"github.com/voxlate/voxlate/internal/pipeline"
	"github.com/voxlate/voxlate/pkg/audio"
	"github.com/voxlate/voxlate/pkg/provider/stt"
	"github.com/voxlate/voxlate/pkg/provider/translate"
	"github.com/voxlate/voxlate/pkg/provider/tts"
)

// readHeaderTimeout bounds how long the metrics server waits for request
// headers.
const readHeaderTimeout = 5 * time.Second

// defaultLoopGrace bounds how long Run waits for the pipeline loops to stop
// after cancellation. A loop stuck in a synchronous native call (whisper.cpp
// or Vosk inference does not observe ctx) is abandoned after this window so
// the process can still exit.
const defaultLoopGrace = 10 * time.Second

// Providers holds one interface value per provider slot, populated by
// main.go via the config registry. Synthesizer may be nil when spoken output
// is disabled.
type Providers struct {
	Recognizer  stt.Recognizer
	Translator  translate.Service
	Synthesizer tts.Synthesizer
	Source      audio.Source
	Player      audio.Player
}

// App owns all subsystem lifetimes and orchestrates the translation pipeline.
type App struct {
	cfg       *config.Config
	providers *Providers

	queue    *UtteranceQueueHandle
	capture  *pipeline.Capture
	coord    *pipeline.Coordinator
	metrics  *observe.Metrics
	reporter pipeline.Reporter
	offline  detect.Detector

	metricsSrv *http.Server
	loopGrace  time.Duration

	// closers are called in order during Shutdown.
	closers []func() error

	// stopOnce guards the Shutdown path.
	stopOnce sync.Once
}

// UtteranceQueueHandle re-exports the pipeline queue so callers of New can
// inspect depth without importing the pipeline package.
type UtteranceQueueHandle = pipeline.UtteranceQueue

// Option is a functional option for New. Use these to inject test doubles.
type Option func(*App)

// WithMetrics injects a Metrics instance instead of using the package-level
// default. Tests use this to avoid polluting the global meter provider.
func WithMetrics(m *observe.Metrics) Option {
	return func(a *App) { a.metrics = m }
}

// WithReporter replaces the console reporter.
func WithReporter(r pipeline.Reporter) Option {
	return func(a *App) { a.reporter = r }
}

// WithOfflineDetector replaces the statistical offline detection tier.
// Tests inject a stub here to avoid loading the language models.
func WithOfflineDetector(d detect.Detector) Option {
	return func(a *App) { a.offline = d }
}

// WithLoopGrace overrides how long Run waits for the pipeline loops to stop
// after cancellation before abandoning them. Defaults to 10 s.
func WithLoopGrace(d time.Duration) Option {
	return func(a *App) { a.loopGrace = d }
}

// New creates an App by wiring the capture loop, queue, detection chain, and
// coordinator together. The providers struct comes from main.go (populated
// via the config registry).
func New(ctx context.Context, cfg *config.Config, providers *Providers, opts ...Option) (*App, error) {
	if providers == nil {
		return nil, errors.New("app: providers must not be nil")
	}
	if providers.Recognizer == nil {
		return nil, errors.New("app: recognizer provider is required")
	}
	if providers.Translator == nil {
		return nil, errors.New("app: translator provider is required")
	}
	if providers.Source == nil {
		return nil, errors.New("app: audio source is required")
	}

	a := &App{
		cfg:       cfg,
		providers: providers,
	}
	for _, o := range opts {
		o(a)
	}
	if a.metrics == nil {
		a.metrics = observe.DefaultMetrics()
	}
	if a.reporter == nil {
		a.reporter = pipeline.NewConsoleReporter(os.Stdout)
	}
	if a.loopGrace <= 0 {
		a.loopGrace = defaultLoopGrace
	}

	// Detection chain: offline statistical tier plus the translation
	// service's own detection, gated by the configured confidence threshold.
	if a.offline == nil {
		a.offline = detect.NewLinguaDetector()
	}
	chain, err := detect.NewChain(a.offline, providers.Translator)
	if err != nil {
		return nil, fmt.Errorf("app: build detection chain: %w", err)
	}

	a.queue = pipeline.NewUtteranceQueue()
	a.capture = pipeline.NewCapture(providers.Source, a.queue, a.metrics)

	synth := providers.Synthesizer
	if !cfg.SpeechEnabled() {
		synth = nil
	}
	coord, err := pipeline.NewCoordinator(
		a.queue,
		providers.Recognizer,
		chain,
		providers.Translator,
		synth,
		a.reporter,
		a.metrics,
		cfg.Pipeline.DefaultTargetLanguage,
		cfg.ConfidenceThreshold(),
	)
	if err != nil {
		return nil, fmt.Errorf("app: build coordinator: %w", err)
	}
	a.coord = coord

	// The synthesizer owns its player and closes it; only close the player
	// directly when no synthesizer wraps it.
	a.closers = append(a.closers, providers.Source.Close)
	if synth != nil {
		a.closers = append(a.closers, synth.Close)
	} else if providers.Player != nil {
		a.closers = append(a.closers, providers.Player.Close)
	}

	if cfg.Server.MetricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		a.metricsSrv = &http.Server{
			Addr:              cfg.Server.MetricsAddr,
			Handler:           mux,
			ReadHeaderTimeout: readHeaderTimeout,
		}
	}

	return a, nil
}

// Coordinator exposes the pipeline coordinator for runtime control
// (SetDefaultTargetLanguage, TranslateText, LastDetectedLanguage).
func (a *App) Coordinator() *pipeline.Coordinator {
	return a.coord
}

// Queue exposes the utterance queue, mainly for depth inspection.
func (a *App) Queue() *UtteranceQueueHandle {
	return a.queue
}

// Run starts the capture and processing loops (plus the metrics endpoint
// when configured) and blocks until ctx is cancelled or a loop fails.
func (a *App) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return a.capture.Run(ctx)
	})
	g.Go(func() error {
		return a.coord.Run(ctx)
	})

	if a.metricsSrv != nil {
		g.Go(func() error {
			slog.Info("metrics endpoint listening", "addr", a.metricsSrv.Addr)
			if err := a.metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("app: metrics server: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), readHeaderTimeout)
			defer cancel()
			return a.metricsSrv.Shutdown(shutdownCtx)
		})
	}

	slog.Info("pipeline running",
		"default_target", a.coord.DefaultTargetLanguage(),
		"speech", a.providers.Synthesizer != nil && a.cfg.SpeechEnabled())

	done := make(chan error, 1)
	go func() { done <- g.Wait() }()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
	}

	// Cancelled: give the loops a grace window to finish their current
	// utterance. A loop stuck in a native call that ignores ctx is abandoned
	// (the goroutine leaks) so shutdown can still proceed.
	select {
	case err := <-done:
		return err
	case <-time.After(a.loopGrace):
		slog.Warn("app: pipeline loops still running after grace window, abandoning",
			"grace", a.loopGrace)
		return ctx.Err()
	}
}

// Shutdown tears down all subsystems in order. It respects the context
// deadline: if ctx expires before all closers finish, remaining closers are
// skipped and the context error is returned.
func (a *App) Shutdown(ctx context.Context) error {
	var shutdownErr error
	a.stopOnce.Do(func() {
		slog.Info("shutting down", "closers", len(a.closers), "queued", a.queue.Len())

		for i, closer := range a.closers {
			select {
			case <-ctx.Done():
				slog.Warn("shutdown deadline exceeded", "remaining", len(a.closers)-i)
				shutdownErr = ctx.Err()
				return
			default:
			}
			if err := closer(); err != nil {
				slog.Warn("closer error", "index", i, "err", err)
			}
		}

		slog.Info("shutdown complete")
	})
	return shutdownErr
}
