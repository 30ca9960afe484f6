// Package googleweb provides a translate.Service backed by the
// unauthenticated Google web-translation endpoint (translate_a/single with
// client=gtx). It is the same endpoint the googletrans family of clients
// uses: no API key, best-effort availability, generous but unspecified
// rate limits. Suitable for personal devices; not for production fleets.
//
// The endpoint replies with a heterogeneous nested JSON array rather than
// an object. Translation segments live at index 0, the detected source
// language at index 2, and the detection confidence at index 6.
package googleweb

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/voxlate/voxlate/pkg/provider/translate"
)

const (
	defaultBaseURL = "https://translate.googleapis.com"
	singleEndpoint = "/translate_a/single"
	defaultTimeout = 15 * time.Second
)

// Compile-time assertion that Client implements translate.Service.
var _ translate.Service = (*Client)(nil)

// Option is a functional option for configuring a Client.
type Option func(*Client)

// WithBaseURL overrides the default endpoint host. Used by tests and by
// deployments that front the endpoint with a proxy.
func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = strings.TrimRight(u, "/") }
}

// WithTimeout sets the per-request HTTP timeout. Defaults to 15 s.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.httpClient.Timeout = d }
}

// Client implements translate.Service against the Google web endpoint.
// It is safe for concurrent use.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// New creates a Client. No credentials are required.
func New(opts ...Option) *Client {
	c := &Client{
		baseURL:    defaultBaseURL,
		httpClient: &http.Client{Timeout: defaultTimeout},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Translate requests a translation of req.Text from req.Source to
// req.Target and concatenates the returned segments.
func (c *Client) Translate(ctx context.Context, req translate.Request) (translate.Result, error) {
	if req.Text == "" {
		return translate.Result{}, errors.New("googleweb: empty text")
	}
	source := req.Source
	if source == "" {
		source = "auto"
	}

	payload, err := c.call(ctx, source, req.Target, req.Text)
	if err != nil {
		return translate.Result{}, err
	}

	segments, ok := payload[0].([]any)
	if !ok {
		return translate.Result{}, errors.New("googleweb: response missing translation segments")
	}
	var b strings.Builder
	for _, seg := range segments {
		parts, ok := seg.([]any)
		if !ok || len(parts) == 0 {
			continue
		}
		if s, ok := parts[0].(string); ok {
			b.WriteString(s)
		}
	}
	if b.Len() == 0 {
		return translate.Result{}, errors.New("googleweb: empty translation")
	}
	return translate.Result{Text: b.String()}, nil
}

// Detect asks the endpoint to identify the language of text by submitting
// it with sl=auto and reading the detected language and confidence fields.
func (c *Client) Detect(ctx context.Context, text string) (translate.Detection, error) {
	if text == "" {
		return translate.Detection{}, errors.New("googleweb: empty text")
	}

	payload, err := c.call(ctx, "auto", "en", text)
	if err != nil {
		return translate.Detection{}, err
	}

	if len(payload) < 3 {
		return translate.Detection{}, errors.New("googleweb: response missing detected language")
	}
	lang, ok := payload[2].(string)
	if !ok || lang == "" {
		return translate.Detection{}, errors.New("googleweb: response missing detected language")
	}

	// Confidence lives at index 6 and may be null for trivial inputs.
	var confidence float64
	if len(payload) > 6 {
		if v, ok := payload[6].(float64); ok {
			confidence = v
		}
	}

	return translate.Detection{Language: lang, Confidence: confidence}, nil
}

// call performs one translate_a/single request and decodes the top-level
// JSON array.
func (c *Client) call(ctx context.Context, source, target, text string) ([]any, error) {
	params := url.Values{}
	params.Set("client", "gtx")
	params.Set("sl", source)
	params.Set("tl", target)
	params.Set("dt", "t")
	params.Set("q", text)

	reqURL := c.baseURL + singleEndpoint + "?" + params.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("googleweb: create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("googleweb: http request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("googleweb: endpoint returned HTTP %d", resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("googleweb: read response: %w", err)
	}

	var payload []any
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, fmt.Errorf("googleweb: parse response: %w", err)
	}
	if len(payload) == 0 {
		return nil, errors.New("googleweb: empty response")
	}
	return payload, nil
}
