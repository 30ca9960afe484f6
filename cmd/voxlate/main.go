// Command voxlate is the main entry point for the Voxlate speech translator.
package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/voxlate/voxlate/internal/app"
	"github.com/voxlate/voxlate/internal/config"
	"github.com/voxlate/voxlate/internal/langname"
	"github.com/voxlate/voxlate/internal/observe"
	"github.com/voxlate/voxlate/pkg/audio"
	"github.com/voxlate/voxlate/pkg/audio/portaudio"
	"github.com/voxlate/voxlate/pkg/provider/stt"
	"github.com/voxlate/voxlate/pkg/provider/stt/vosk"
	"github.com/voxlate/voxlate/pkg/provider/stt/whisper"
	"github.com/voxlate/voxlate/pkg/provider/stt/whispercpp"
	"github.com/voxlate/voxlate/pkg/provider/translate"
	"github.com/voxlate/voxlate/pkg/provider/translate/googleweb"
	oaitranslate "github.com/voxlate/voxlate/pkg/provider/translate/openai"
	"github.com/voxlate/voxlate/pkg/provider/tts"
	"github.com/voxlate/voxlate/pkg/provider/tts/coqui"
)

func main() {
	os.Exit(run())
}

func run() int {
	// ── CLI flags ──────────────────────────────────────────────────────────────
	configPath := flag.String("config", "config.yaml", "path to the YAML configuration file")
	targetLang := flag.String("target", "", "default target language code (skips the interactive prompt)")
	flag.Parse()

	// ── Load configuration ────────────────────────────────────────────────────
	cfg, err := config.Load(*configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			fmt.Fprintf(os.Stderr, "voxlate: config file %q not found — copy configs/example.yaml to get started\n", *configPath)
		} else {
			fmt.Fprintf(os.Stderr, "voxlate: %v\n", err)
		}
		return 1
	}

	// ── Logger ────────────────────────────────────────────────────────────────
	logger := newLogger(cfg.Server.LogLevel)
	slog.SetDefault(logger)

	slog.Info("voxlate starting",
		"config", *configPath,
		"log_level", cfg.Server.LogLevel,
		"metrics_addr", cfg.Server.MetricsAddr,
	)

	// ── Telemetry ─────────────────────────────────────────────────────────────
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	otelShutdown, err := observe.InitProvider(ctx, observe.ProviderConfig{ServiceName: "voxlate"})
	if err != nil {
		slog.Error("failed to initialise telemetry", "err", err)
		return 1
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := otelShutdown(shutdownCtx); err != nil {
			slog.Warn("telemetry shutdown error", "err", err)
		}
	}()

	// ── Provider registry ─────────────────────────────────────────────────────
	reg := config.NewRegistry()
	registerBuiltinProviders(reg)

	// ── Instantiate providers ─────────────────────────────────────────────────
	providers, err := buildProviders(cfg, reg)
	if err != nil {
		slog.Error("failed to build providers", "err", err)
		return 1
	}

	// ── Default target language ───────────────────────────────────────────────
	// A -target flag skips the prompt; an empty prompt answer keeps the
	// configured default.
	target := strings.ToLower(strings.TrimSpace(*targetLang))
	if target == "" {
		target = promptTargetLanguage(cfg.Pipeline.DefaultTargetLanguage)
	}
	if !langname.Known(target) {
		slog.Warn("unrecognised target language code, continuing anyway", "code", target)
	}
	cfg.Pipeline.DefaultTargetLanguage = target

	// ── Startup summary ───────────────────────────────────────────────────────
	printStartupSummary(cfg)

	application, err := app.New(ctx, cfg, providers)
	if err != nil {
		slog.Error("failed to initialise application", "err", err)
		return 1
	}

	slog.Info("listening — press Ctrl+C to shut down")

	if err := application.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("run error", "err", err)
		return 1
	}

	// ── Graceful shutdown ─────────────────────────────────────────────────────
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	slog.Info("shutdown signal received, stopping…")

	if err := application.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown error", "err", err)
		return 1
	}
	slog.Info("goodbye")
	return 0
}

// ── Provider wiring ───────────────────────────────────────────────────────────

// builtinProviders maps provider category names to the implementations that
// ship with Voxlate. Used for startup logging.
var builtinProviders = map[string][]string{
	"stt":       {"whisper", "whispercpp", "vosk"},
	"translate": {"googleweb", "openai"},
	"tts":       {"coqui"},
	"audio":     {"portaudio"},
}

// registerBuiltinProviders wires all built-in provider factories into reg.
// Each factory receives a config.ProviderEntry and constructs the appropriate
// provider from the real implementation packages.
func registerBuiltinProviders(reg *config.Registry) {
	// ── STT ───────────────────────────────────────────────────────────────────

	reg.RegisterSTT("whisper", func(entry config.ProviderEntry) (stt.Recognizer, error) {
		var opts []whisper.Option
		if entry.Model != "" {
			opts = append(opts, whisper.WithModel(entry.Model))
		}
		if lang := optString(entry.Options, "language"); lang != "" {
			opts = append(opts, whisper.WithLanguage(lang))
		}
		return whisper.New(entry.BaseURL, opts...)
	})

	reg.RegisterSTT("whispercpp", func(entry config.ProviderEntry) (stt.Recognizer, error) {
		modelPath := entry.Model
		if modelPath == "" {
			modelPath = optString(entry.Options, "model_path")
		}
		var opts []whispercpp.Option
		if lang := optString(entry.Options, "language"); lang != "" {
			opts = append(opts, whispercpp.WithLanguage(lang))
		}
		if threads := optInt(entry.Options, "threads"); threads > 0 {
			opts = append(opts, whispercpp.WithThreads(uint(threads)))
		}
		return whispercpp.New(modelPath, opts...)
	})

	reg.RegisterSTT("vosk", func(entry config.ProviderEntry) (stt.Recognizer, error) {
		modelPath := entry.Model
		if modelPath == "" {
			modelPath = optString(entry.Options, "model_path")
		}
		var opts []vosk.Option
		if rate := optInt(entry.Options, "sample_rate"); rate > 0 {
			opts = append(opts, vosk.WithSampleRate(rate))
		}
		return vosk.New(modelPath, opts...)
	})

	// ── Translate ─────────────────────────────────────────────────────────────

	reg.RegisterTranslate("googleweb", func(entry config.ProviderEntry) (translate.Service, error) {
		var opts []googleweb.Option
		if entry.BaseURL != "" {
			opts = append(opts, googleweb.WithBaseURL(entry.BaseURL))
		}
		return googleweb.New(opts...), nil
	})

	reg.RegisterTranslate("openai", func(entry config.ProviderEntry) (translate.Service, error) {
		var opts []oaitranslate.Option
		if entry.BaseURL != "" {
			opts = append(opts, oaitranslate.WithBaseURL(entry.BaseURL))
		}
		return oaitranslate.New(entry.APIKey, entry.Model, opts...)
	})

	// ── TTS ───────────────────────────────────────────────────────────────────

	reg.RegisterTTS("coqui", func(entry config.ProviderEntry, player audio.Player) (tts.Synthesizer, error) {
		var opts []coqui.Option
		if rate := optFloat(entry.Options, "rate"); rate > 0 {
			opts = append(opts, coqui.WithRate(rate))
		}
		if speaker := optString(entry.Options, "speaker"); speaker != "" {
			opts = append(opts, coqui.WithSpeaker(speaker))
		}
		return coqui.New(entry.BaseURL, player, opts...)
	})

	// ── Audio ─────────────────────────────────────────────────────────────────

	reg.RegisterAudio("portaudio", func(entry config.ProviderEntry) (config.AudioDevices, error) {
		var srcOpts []portaudio.SourceOption
		if rate := optInt(entry.Options, "sample_rate"); rate > 0 {
			srcOpts = append(srcOpts, portaudio.WithSampleRate(rate))
		}
		if threshold := optFloat(entry.Options, "onset_threshold"); threshold > 0 {
			srcOpts = append(srcOpts, portaudio.WithOnsetThreshold(threshold))
		}
		source, err := portaudio.NewSource(srcOpts...)
		if err != nil {
			return config.AudioDevices{}, err
		}

		var playOpts []portaudio.PlayerOption
		if volume := optFloat(entry.Options, "volume"); volume > 0 {
			playOpts = append(playOpts, portaudio.WithVolume(volume))
		}
		player, err := portaudio.NewPlayer(playOpts...)
		if err != nil {
			_ = source.Close()
			return config.AudioDevices{}, err
		}
		return config.AudioDevices{Source: source, Player: player}, nil
	})

	// Debug log of all registered providers.
	for kind, names := range builtinProviders {
		for _, name := range names {
			slog.Debug("registered provider", "kind", kind, "name", name)
		}
	}
}

// buildProviders instantiates all providers named in cfg using the registry
// and returns them in an [app.Providers] struct for the application to consume.
func buildProviders(cfg *config.Config, reg *config.Registry) (*app.Providers, error) {
	ps := &app.Providers{}

	// STT and translate are mandatory (config validation enforced the names).
	recognizer, err := reg.CreateSTT(cfg.Providers.STT)
	if err != nil {
		return nil, fmt.Errorf("create stt provider %q: %w", cfg.Providers.STT.Name, err)
	}
	ps.Recognizer = recognizer
	slog.Info("provider created", "kind", "stt", "name", cfg.Providers.STT.Name)

	translator, err := reg.CreateTranslate(cfg.Providers.Translate)
	if err != nil {
		return nil, fmt.Errorf("create translate provider %q: %w", cfg.Providers.Translate.Name, err)
	}
	ps.Translator = translator
	slog.Info("provider created", "kind", "translate", "name", cfg.Providers.Translate.Name)

	// Audio devices. The portaudio pair is the default when nothing is named.
	audioEntry := cfg.Providers.Audio
	if audioEntry.Name == "" {
		audioEntry.Name = "portaudio"
	}
	devices, err := reg.CreateAudio(audioEntry)
	if err != nil {
		return nil, fmt.Errorf("create audio provider %q: %w", audioEntry.Name, err)
	}
	ps.Source = devices.Source
	ps.Player = devices.Player
	slog.Info("provider created", "kind", "audio", "name", audioEntry.Name)

	// TTS is optional; spoken output is skipped when no synthesizer is named.
	if name := cfg.Providers.TTS.Name; name != "" {
		synth, err := reg.CreateTTS(cfg.Providers.TTS, devices.Player)
		if err != nil {
			return nil, fmt.Errorf("create tts provider %q: %w", name, err)
		}
		ps.Synthesizer = synth
		slog.Info("provider created", "kind", "tts", "name", name)
	}

	return ps, nil
}

// ── Target language prompt ────────────────────────────────────────────────────

// promptTargetLanguage asks on stdin for the default target language and
// returns the entered ISO 639-1 code. An empty answer keeps fallback.
func promptTargetLanguage(fallback string) string {
	fmt.Println("Popular codes: en, es, fr, de, it, pt, ja, zh")
	fmt.Printf("Default target language [%s — %s]: ", fallback, langname.Name(fallback))

	reader := bufio.NewReader(os.Stdin)
	line, err := reader.ReadString('\n')
	if err != nil {
		// Non-interactive stdin (pipe, service unit): keep the default.
		fmt.Println()
		return fallback
	}
	answer := strings.ToLower(strings.TrimSpace(line))
	if answer == "" {
		return fallback
	}
	return answer
}

// ── Startup summary ───────────────────────────────────────────────────────────

func printStartupSummary(cfg *config.Config) {
	fmt.Println("╔═══════════════════════════════════════╗")
	fmt.Println("║         Voxlate — startup summary     ║")
	fmt.Println("╠═══════════════════════════════════════╣")
	printProvider("STT", cfg.Providers.STT.Name, cfg.Providers.STT.Model)
	printProvider("Translate", cfg.Providers.Translate.Name, cfg.Providers.Translate.Model)
	printProvider("TTS", cfg.Providers.TTS.Name, cfg.Providers.TTS.Model)
	printProvider("Audio", cfg.Providers.Audio.Name, "")
	fmt.Printf("║  Target language : %-19s ║\n", cfg.Pipeline.DefaultTargetLanguage+" — "+langname.Name(cfg.Pipeline.DefaultTargetLanguage))
	if cfg.SpeechEnabled() {
		fmt.Printf("║  Spoken output   : %-19s ║\n", "enabled")
	} else {
		fmt.Printf("║  Spoken output   : %-19s ║\n", "(disabled)")
	}
	if cfg.Server.MetricsAddr != "" {
		fmt.Printf("║  Metrics addr    : %-19s ║\n", cfg.Server.MetricsAddr)
	}
	fmt.Println("╚═══════════════════════════════════════╝")

	target := cfg.Pipeline.DefaultTargetLanguage
	fmt.Printf("Speech in %s is translated to English; everything else to %s.\n",
		langname.Name(target), langname.Name(target))
}

func printProvider(kind, name, model string) {
	value := name
	if value == "" {
		value = "(not configured)"
	} else if model != "" {
		value = name + " / " + model
	}
	if len(value) > 19 {
		value = value[:16] + "…"
	}
	fmt.Printf("║  %-12s    : %-19s ║\n", kind, value)
}

// ── Logger ─────────────────────────────────────────────────────────────────────

func newLogger(level config.LogLevel) *slog.Logger {
	var lvl slog.Level
	switch level {
	case config.LogDebug:
		lvl = slog.LevelDebug
	case config.LogWarn:
		lvl = slog.LevelWarn
	case config.LogError:
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}

// ── Helpers ───────────────────────────────────────────────────────────────────

// optString extracts a string value from a provider Options map[string]any.
// Returns "" if the map is nil, the key is absent, or the value is not a string.
func optString(opts map[string]any, key string) string {
	if opts == nil {
		return ""
	}
	s, _ := opts[key].(string)
	return s
}

// optInt extracts an integer option. YAML decodes whole numbers as int.
func optInt(opts map[string]any, key string) int {
	if opts == nil {
		return 0
	}
	switch v := opts[key].(type) {
	case int:
		return v
	case float64:
		return int(v)
	}
	return 0
}

// optFloat extracts a float option, accepting int-shaped YAML values too.
func optFloat(opts map[string]any, key string) float64 {
	if opts == nil {
		return 0
	}
	switch v := opts[key].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	}
	return 0
}
