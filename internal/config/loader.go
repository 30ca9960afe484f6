package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"

	"gopkg.in/yaml.v3"
)

// ValidProviderNames lists known provider names per provider kind.
// Used by [Validate] to warn about unrecognised provider names.
var ValidProviderNames = map[string][]string{
	"stt":       {"whisper", "whispercpp", "vosk"},
	"translate": {"googleweb", "openai"},
	"tts":       {"coqui"},
	"audio":     {"portaudio"},
}

// Load reads the YAML configuration file at path and returns a validated
// [Config]. It is a convenience wrapper around [LoadFromReader] and
// [Validate].
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %q: %w", path, err)
	}
	defer f.Close()

	cfg, err := LoadFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return cfg, nil
}

// LoadFromReader decodes a YAML config from r and validates the result.
// Useful in tests where configs are constructed from string literals.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := &Config{}
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that cfg contains a coherent set of values and fills in
// defaults for unset pipeline fields. It returns a joined error listing all
// validation failures found.
func Validate(cfg *Config) error {
	var errs []error

	// Server
	if cfg.Server.LogLevel != "" && !cfg.Server.LogLevel.IsValid() {
		errs = append(errs, fmt.Errorf("server.log_level %q is invalid; valid values: debug, info, warn, error", cfg.Server.LogLevel))
	}

	// Pipeline defaults and ranges.
	if cfg.Pipeline.DefaultTargetLanguage == "" {
		cfg.Pipeline.DefaultTargetLanguage = DefaultTargetLanguage
	}
	if n := len(cfg.Pipeline.DefaultTargetLanguage); n < 2 || n > 3 {
		errs = append(errs, fmt.Errorf("pipeline.default_target_language %q is not an ISO 639-1 code", cfg.Pipeline.DefaultTargetLanguage))
	}
	if t := cfg.Pipeline.DetectionConfidenceThreshold; t != nil && (*t < 0 || *t > 1) {
		errs = append(errs, fmt.Errorf("pipeline.detection_confidence_threshold %v is out of range [0, 1]", *t))
	}

	// Provider name validation — warn for unknown provider names.
	validateProviderName("stt", cfg.Providers.STT.Name)
	validateProviderName("translate", cfg.Providers.Translate.Name)
	validateProviderName("tts", cfg.Providers.TTS.Name)
	validateProviderName("audio", cfg.Providers.Audio.Name)

	// Required providers.
	if cfg.Providers.STT.Name == "" {
		errs = append(errs, errors.New("providers.stt.name is required"))
	}
	if cfg.Providers.Translate.Name == "" {
		errs = append(errs, errors.New("providers.translate.name is required"))
	}
	if cfg.SpeechEnabled() && cfg.Providers.TTS.Name == "" {
		errs = append(errs, errors.New("pipeline.speak is enabled but providers.tts is not configured"))
	}

	return errors.Join(errs...)
}

// validateProviderName logs a warning if name is non-empty and not found in
// the [ValidProviderNames] list for the given kind.
func validateProviderName(kind, name string) {
	if name == "" {
		return
	}
	known, ok := ValidProviderNames[kind]
	if !ok {
		return
	}
	if slices.Contains(known, name) {
		return
	}
	slog.Warn("unknown provider name — may be a typo or third-party provider",
		"kind", kind,
		"name", name,
		"known", known,
	)
}
