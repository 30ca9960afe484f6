// Package coqui provides a tts.Synthesizer backed by a locally-running
// standard Coqui TTS server (ghcr.io/coqui-ai/tts-cpu). Synthesis is performed
// via GET /api/tts with URL query parameters; the voice catalogue is retrieved
// from GET /details. The returned WAV is decoded and played through an
// injected audio.Player.
//
// Typical usage:
//
//	s, err := coqui.New("http://localhost:5002", player,
//	    coqui.WithTimeout(15*time.Second),
//	    coqui.WithRate(1.1),
//	)
//	err = s.Speak(ctx, "Hola mundo", "es")
package coqui

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/voxlate/voxlate/pkg/audio"
	"github.com/voxlate/voxlate/pkg/provider/tts"
)

// Compile-time interface assertion.
var _ tts.Synthesizer = (*Synthesizer)(nil)

const (
	defaultTimeout  = 30 * time.Second
	apiTTSEndpoint  = "/api/tts"
	detailsEndpoint = "/details"
)

// Option is a functional option for configuring a Coqui Synthesizer.
type Option func(*Synthesizer)

// WithTimeout sets the per-request HTTP timeout for calls to the TTS server.
// Defaults to 30 s if not set.
func WithTimeout(d time.Duration) Option {
	return func(s *Synthesizer) {
		s.httpClient.Timeout = d
	}
}

// WithRate sets the playback rate multiplier. Values above 1.0 speed speech
// up, values below slow it down. Defaults to 1.0.
func WithRate(rate float64) Option {
	return func(s *Synthesizer) {
		if rate > 0 {
			s.rate = rate
		}
	}
}

// WithSpeaker pins the speaker_id sent to the server, bypassing per-language
// voice selection. Useful for single-voice multi-speaker models.
func WithSpeaker(id string) Option {
	return func(s *Synthesizer) {
		s.speakerID = id
	}
}

// Synthesizer implements tts.Synthesizer backed by a standard Coqui TTS
// server. It is safe for concurrent use.
type Synthesizer struct {
	serverURL  string
	httpClient *http.Client
	player     audio.Player
	rate       float64
	speakerID  string

	mu     sync.Mutex
	voices []tts.Voice // cached catalogue; nil until first fetch
}

// New creates a new Coqui Synthesizer that targets the TTS server at
// serverURL (e.g., "http://localhost:5002") and plays synthesised audio
// through player. serverURL and player must be non-empty.
func New(serverURL string, player audio.Player, opts ...Option) (*Synthesizer, error) {
	if serverURL == "" {
		return nil, errors.New("coqui: serverURL must not be empty")
	}
	if player == nil {
		return nil, errors.New("coqui: player must not be nil")
	}
	s := &Synthesizer{
		serverURL: strings.TrimRight(serverURL, "/"),
		player:    player,
		rate:      1.0,
		httpClient: &http.Client{
			Timeout: defaultTimeout,
		},
	}
	for _, o := range opts {
		o(s)
	}
	return s, nil
}

// Speak synthesises text in the given ISO 639-1 language and plays the result
// through the configured player. It blocks until playback finishes or ctx is
// cancelled.
func (s *Synthesizer) Speak(ctx context.Context, text, language string) error {
	if strings.TrimSpace(text) == "" {
		return errors.New("coqui: empty text")
	}

	speaker := s.speakerID
	if speaker == "" {
		v, ok, err := s.voiceFor(ctx, language)
		if err != nil {
			return err
		}
		if ok {
			speaker = v.ID
		}
	}

	params := url.Values{}
	params.Set("text", text)
	if speaker != "" {
		params.Set("speaker_id", speaker)
	}
	if language != "" {
		params.Set("language_id", language)
	}

	reqURL := s.serverURL + apiTTSEndpoint + "?" + params.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return fmt.Errorf("coqui: create tts request: %w", err)
	}
	req.Header.Set("Accept", "audio/wav")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("coqui: GET %s: %w", apiTTSEndpoint, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("coqui: GET %s returned status %d", apiTTSEndpoint, resp.StatusCode)
	}

	wav, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("coqui: read WAV response: %w", err)
	}

	info, err := parseWAV(wav)
	if err != nil {
		return err
	}
	if info.Channels != 1 {
		return fmt.Errorf("coqui: expected mono WAV, got %d channels", info.Channels)
	}

	samples := audio.PCM16ToFloat32(wav[info.DataOffset:])
	playRate := int(float64(info.SampleRate) * s.rate)
	if playRate <= 0 {
		playRate = info.SampleRate
	}
	if err := s.player.Play(ctx, samples, playRate); err != nil {
		return fmt.Errorf("coqui: play synthesised audio: %w", err)
	}
	return nil
}

// Voices retrieves the voice catalogue from the Coqui server via GET /details.
// For multi-speaker models it returns one Voice per speaker; for
// single-speaker models it returns a single Voice identified by the model
// name. The model language, when reported, is attached to every voice.
func (s *Synthesizer) Voices(ctx context.Context) ([]tts.Voice, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.serverURL+detailsEndpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("coqui: create details request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("coqui: GET %s: %w", detailsEndpoint, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("coqui: GET %s returned status %d", detailsEndpoint, resp.StatusCode)
	}

	var details detailsResponse
	if err := json.NewDecoder(resp.Body).Decode(&details); err != nil {
		return nil, fmt.Errorf("coqui: decode details response: %w", err)
	}

	lang := details.Language
	if lang == "" {
		lang = modelLanguage(details.ModelName)
	}

	if len(details.Speakers) > 0 {
		speakers := make([]string, len(details.Speakers))
		copy(speakers, details.Speakers)
		sort.Strings(speakers)

		voices := make([]tts.Voice, 0, len(speakers))
		for _, spk := range speakers {
			voices = append(voices, tts.Voice{ID: spk, Name: spk, Language: lang})
		}
		return voices, nil
	}

	name := details.ModelName
	if name == "" {
		name = "default"
	}
	return []tts.Voice{{ID: name, Name: name, Language: lang}}, nil
}

// Close releases the synthesizer's audio output.
func (s *Synthesizer) Close() error {
	return s.player.Close()
}

// voiceFor returns the catalogue voice matching the given language, fetching
// and caching the catalogue on first use. A failed fetch is not fatal: the
// server may be a single-voice model without /details support, in which case
// synthesis proceeds without a speaker_id.
func (s *Synthesizer) voiceFor(ctx context.Context, language string) (tts.Voice, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.voices == nil {
		voices, err := s.Voices(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return tts.Voice{}, false, ctx.Err()
			}
			s.voices = []tts.Voice{}
			return tts.Voice{}, false, nil
		}
		s.voices = voices
	}
	v, ok := tts.SelectVoice(s.voices, language)
	return v, ok, nil
}

// detailsResponse is the JSON body returned by GET /details. Speakers is nil
// for single-speaker models and non-nil for multi-speaker models.
type detailsResponse struct {
	ModelName string   `json:"model_name"`
	Language  string   `json:"language"`
	Speakers  []string `json:"speakers"`
}

// modelLanguage extracts the language segment from a Coqui model name of the
// form "tts_models/<lang>/<dataset>/<model>". Returns "" if the name does not
// follow that layout.
func modelLanguage(modelName string) string {
	parts := strings.Split(modelName, "/")
	if len(parts) >= 2 && len(parts[1]) >= 2 && len(parts[1]) <= 3 {
		return parts[1]
	}
	return ""
}

// wavInfo holds the format metadata extracted from a RIFF/WAVE header.
type wavInfo struct {
	DataOffset int // byte offset of the first PCM sample
	SampleRate int // samples per second (e.g., 22050, 44100, 48000)
	Channels   int // 1 = mono, 2 = stereo
}

// parseWAV scans the RIFF/WAVE container in wav and returns the data offset
// and audio format from the "fmt " sub-chunk. This is more robust than
// hardcoding a fixed 44-byte offset because the fmt chunk size may vary.
func parseWAV(wav []byte) (wavInfo, error) {
	if len(wav) < 12 {
		return wavInfo{}, errors.New("coqui: WAV response too short to be a valid RIFF file")
	}
	if string(wav[0:4]) != "RIFF" {
		return wavInfo{}, errors.New("coqui: WAV response missing RIFF header")
	}
	if string(wav[8:12]) != "WAVE" {
		return wavInfo{}, errors.New("coqui: WAV response missing WAVE identifier")
	}

	var info wavInfo
	foundFmt := false

	// Walk RIFF chunks starting immediately after the 12-byte RIFF/WAVE header.
	offset := 12
	for offset+8 <= len(wav) {
		chunkID := string(wav[offset : offset+4])
		chunkSize := int(binary.LittleEndian.Uint32(wav[offset+4 : offset+8]))

		switch chunkID {
		case "fmt ":
			if chunkSize >= 16 && offset+8+16 <= len(wav) {
				fmtData := wav[offset+8:]
				info.Channels = int(binary.LittleEndian.Uint16(fmtData[2:4]))
				info.SampleRate = int(binary.LittleEndian.Uint32(fmtData[4:8]))
				foundFmt = true
			}
		case "data":
			info.DataOffset = offset + 8
			if !foundFmt {
				// fmt chunk should appear before data, but be lenient.
				info.SampleRate = 22050
				info.Channels = 1
			}
			return info, nil
		}

		// Advance past this chunk (chunks are word-aligned: pad by 1 if odd size).
		offset += 8 + chunkSize
		if chunkSize%2 != 0 {
			offset++
		}
	}
	return wavInfo{}, errors.New("coqui: WAV response missing data chunk")
}
