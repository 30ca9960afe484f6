// Package config provides the configuration schema, loader, and provider
// registry for the Voxlate translation pipeline.
package config

// LogLevel controls log verbosity.
type LogLevel string

const (
	LogDebug LogLevel = "debug"
	LogInfo  LogLevel = "info"
	LogWarn  LogLevel = "warn"
	LogError LogLevel = "error"
)

// IsValid reports whether l is a recognised log level.
func (l LogLevel) IsValid() bool {
	switch l {
	case LogDebug, LogInfo, LogWarn, LogError:
		return true
	}
	return false
}

// Defaults applied by [Validate] when the corresponding field is unset.
const (
	// DefaultTargetLanguage is the default translation target.
	DefaultTargetLanguage = "es"

	// DefaultDetectionConfidenceThreshold gates fallback language detection.
	DefaultDetectionConfidenceThreshold = 0.8
)

// Config is the root configuration structure for Voxlate.
// It is typically loaded from a YAML file using [Load] or [LoadFromReader].
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Pipeline  PipelineConfig  `yaml:"pipeline"`
	Providers ProvidersConfig `yaml:"providers"`
}

// ServerConfig holds logging and telemetry settings.
type ServerConfig struct {
	// LogLevel controls verbosity.
	LogLevel LogLevel `yaml:"log_level"`

	// MetricsAddr is the TCP address the Prometheus /metrics endpoint
	// listens on (e.g., ":9090"). Empty disables the endpoint.
	MetricsAddr string `yaml:"metrics_addr"`
}

// PipelineConfig holds the translation pipeline's tunables.
type PipelineConfig struct {
	// DefaultTargetLanguage is the ISO 639-1 code utterances are translated
	// into (unless the speaker is already using it). Defaults to "es".
	DefaultTargetLanguage string `yaml:"default_target_language"`

	// DetectionConfidenceThreshold gates the fallback language detector: a
	// detection is accepted only when its confidence strictly exceeds this
	// value. Defaults to 0.8.
	DetectionConfidenceThreshold *float64 `yaml:"detection_confidence_threshold"`

	// Speak enables spoken output of translations. Defaults to true when a
	// TTS provider is configured.
	Speak *bool `yaml:"speak"`
}

// ProvidersConfig declares which provider implementation to use for each
// pipeline stage. Each field selects a named provider registered in the
// [Registry].
type ProvidersConfig struct {
	STT       ProviderEntry `yaml:"stt"`
	Translate ProviderEntry `yaml:"translate"`
	TTS       ProviderEntry `yaml:"tts"`
	Audio     ProviderEntry `yaml:"audio"`
}

// ProviderEntry is the common configuration block shared by all provider
// types. The Name field is used to look up the constructor in the [Registry].
type ProviderEntry struct {
	// Name selects the registered provider implementation (e.g., "whisper",
	// "googleweb", "coqui").
	Name string `yaml:"name"`

	// APIKey is the authentication key for the provider's API if any.
	APIKey string `yaml:"api_key"`

	// BaseURL overrides the provider's default API endpoint.
	// Leave empty to use the provider's built-in default.
	BaseURL string `yaml:"base_url"`

	// Model selects a specific model within the provider (e.g., a model
	// file path for vosk/whispercpp or "gpt-4o-mini" for openai).
	Model string `yaml:"model"`

	// Options holds provider-specific configuration values not covered by
	// the standard fields above. Values may be strings, numbers, booleans,
	// or nested maps.
	Options map[string]any `yaml:"options"`
}

// SpeechEnabled reports whether spoken output is on: explicitly via
// pipeline.speak, or implicitly by configuring a TTS provider.
func (c *Config) SpeechEnabled() bool {
	if c.Pipeline.Speak != nil {
		return *c.Pipeline.Speak
	}
	return c.Providers.TTS.Name != ""
}

// ConfidenceThreshold returns the configured detection confidence threshold
// or the default.
func (c *Config) ConfidenceThreshold() float64 {
	if c.Pipeline.DetectionConfidenceThreshold != nil {
		return *c.Pipeline.DetectionConfidenceThreshold
	}
	return DefaultDetectionConfidenceThreshold
}
