// Package whisper provides a whisper-server-backed speech recognizer.
//
// It connects to a running whisper.cpp server binary (which exposes a REST
// API at POST /inference) and submits each utterance as one batch inference
// request: the utterance's PCM is wrapped in a RIFF/WAV container and
// uploaded as multipart/form-data.
//
// Usage:
//
//	r, err := whisper.New("http://localhost:8080",
//	    whisper.WithLanguage("auto"),
//	    whisper.WithTimeout(30*time.Second),
//	)
//	text, err := r.Transcribe(ctx, utterance)
package whisper

import (
	"bytes"
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/voxlate/voxlate/pkg/audio"
	"github.com/voxlate/voxlate/pkg/provider/stt"
)

const (
	inferenceEndpoint = "/inference"

	// defaultLanguage "auto" lets whisper detect the spoken language, which
	// is what the translation pipeline wants: recognition must not be
	// biased toward any one language.
	defaultLanguage = "auto"

	defaultTimeout = 30 * time.Second
)

// Compile-time assertion that Recognizer implements stt.Recognizer.
var _ stt.Recognizer = (*Recognizer)(nil)

// Option is a functional option for configuring a Recognizer.
type Option func(*Recognizer)

// WithModel sets the model identifier forwarded to the whisper server
// (e.g., "base", "small"). When empty the server uses whichever model it
// was started with — this is the default.
func WithModel(model string) Option {
	return func(r *Recognizer) { r.model = model }
}

// WithLanguage sets the language hint sent to the server (e.g., "en",
// "de", or "auto" for detection). Defaults to "auto".
func WithLanguage(lang string) Option {
	return func(r *Recognizer) { r.language = lang }
}

// WithTimeout sets the per-request HTTP timeout. Defaults to 30 s.
func WithTimeout(d time.Duration) Option {
	return func(r *Recognizer) { r.httpClient.Timeout = d }
}

// Recognizer implements stt.Recognizer backed by a whisper-server HTTP
// endpoint. It is safe for concurrent use.
type Recognizer struct {
	serverURL  string
	model      string
	language   string
	httpClient *http.Client
}

// New creates a Recognizer that targets the whisper server at serverURL
// (e.g., "http://localhost:8080"). serverURL must be non-empty.
func New(serverURL string, opts ...Option) (*Recognizer, error) {
	if serverURL == "" {
		return nil, errors.New("whisper: serverURL must not be empty")
	}
	r := &Recognizer{
		serverURL:  strings.TrimRight(serverURL, "/"),
		language:   defaultLanguage,
		httpClient: &http.Client{Timeout: defaultTimeout},
	}
	for _, o := range opts {
		o(r)
	}
	return r, nil
}

// Transcribe uploads the utterance as a WAV file and returns the
// transcribed text. A blank transcript maps to [stt.ErrUnintelligible].
func (r *Recognizer) Transcribe(ctx context.Context, u *audio.Utterance) (string, error) {
	if u == nil || len(u.Samples) == 0 {
		return "", stt.ErrUnintelligible
	}

	wav := encodeWAV(audio.Float32ToPCM16(u.Samples), u.SampleRate, 1)

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)

	fw, err := mw.CreateFormFile("file", "audio.wav")
	if err != nil {
		return "", fmt.Errorf("whisper: create form file: %w", err)
	}
	if _, err := fw.Write(wav); err != nil {
		return "", fmt.Errorf("whisper: write wav data: %w", err)
	}
	if r.language != "" {
		if err := mw.WriteField("language", r.language); err != nil {
			return "", fmt.Errorf("whisper: write language field: %w", err)
		}
	}
	if r.model != "" {
		if err := mw.WriteField("model", r.model); err != nil {
			return "", fmt.Errorf("whisper: write model field: %w", err)
		}
	}
	if err := mw.Close(); err != nil {
		return "", fmt.Errorf("whisper: close multipart writer: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.serverURL+inferenceEndpoint, &body)
	if err != nil {
		return "", fmt.Errorf("whisper: create request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("whisper: http request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("whisper: server returned HTTP %d", resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("whisper: read response body: %w", err)
	}

	var result struct {
		Text string `json:"text"`
	}
	if err := json.Unmarshal(data, &result); err != nil {
		return "", fmt.Errorf("whisper: parse JSON response: %w", err)
	}

	text := strings.TrimSpace(result.Text)
	if text == "" {
		return "", stt.ErrUnintelligible
	}
	return text, nil
}

// encodeWAV wraps raw 16-bit signed little-endian PCM data in a standard
// RIFF/WAV container suitable for direct inclusion in a multipart upload.
func encodeWAV(pcm []byte, sampleRate, channels int) []byte {
	const bps = 16
	byteRate := sampleRate * channels * bps / 8
	blockAlign := channels * bps / 8
	dataSize := len(pcm)

	buf := make([]byte, 44+dataSize)

	// RIFF chunk descriptor
	copy(buf[0:4], "RIFF")
	binary.LittleEndian.PutUint32(buf[4:8], uint32(36+dataSize)) // file size − 8
	copy(buf[8:12], "WAVE")

	// fmt sub-chunk
	copy(buf[12:16], "fmt ")
	binary.LittleEndian.PutUint32(buf[16:20], 16)                 // sub-chunk size (PCM)
	binary.LittleEndian.PutUint16(buf[20:22], 1)                  // audio format: PCM
	binary.LittleEndian.PutUint16(buf[22:24], uint16(channels))   // num channels
	binary.LittleEndian.PutUint32(buf[24:28], uint32(sampleRate)) // sample rate
	binary.LittleEndian.PutUint32(buf[28:32], uint32(byteRate))   // byte rate
	binary.LittleEndian.PutUint16(buf[32:34], uint16(blockAlign)) // block align
	binary.LittleEndian.PutUint16(buf[34:36], uint16(bps))        // bits per sample

	// data sub-chunk
	copy(buf[36:40], "data")
	binary.LittleEndian.PutUint32(buf[40:44], uint32(dataSize))
	copy(buf[44:], pcm)

	return buf
}
