// Package openai provides a translation service backed by an OpenAI
// chat-completion model.
package openai

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	oai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/packages/param"
	"github.com/openai/openai-go/shared"

	"github.com/voxlate/voxlate/pkg/provider/translate"
)

const translateSystemPrompt = "You are a translation engine. Translate the " +
	"user's text from %s to %s. Reply with the translated text only, no " +
	"quotes, no explanations."

const detectSystemPrompt = "You are a language identification engine. " +
	"Identify the language of the user's text. Reply with exactly two " +
	"tokens separated by a single space: the ISO 639-1 code and your " +
	"confidence between 0 and 1. Example: \"es 0.93\"."

// Service implements translate.Service using the OpenAI chat API.
type Service struct {
	client oai.Client
	model  string
}

var _ translate.Service = (*Service)(nil)

// config holds optional configuration for the service.
type config struct {
	baseURL string
	timeout time.Duration
}

// Option is a functional option for Service.
type Option func(*config)

// WithBaseURL overrides the default OpenAI API base URL.
func WithBaseURL(url string) Option {
	return func(c *config) {
		c.baseURL = url
	}
}

// WithTimeout sets a per-request HTTP timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *config) {
		c.timeout = d
	}
}

// New constructs a new OpenAI translation Service.
func New(apiKey string, model string, opts ...Option) (*Service, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("openai: apiKey must not be empty")
	}
	if model == "" {
		return nil, fmt.Errorf("openai: model must not be empty")
	}

	cfg := &config{}
	for _, o := range opts {
		o(cfg)
	}

	reqOpts := []option.RequestOption{
		option.WithAPIKey(apiKey),
	}
	if cfg.baseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(cfg.baseURL))
	}
	if cfg.timeout > 0 {
		reqOpts = append(reqOpts, option.WithHTTPClient(&http.Client{
			Timeout: cfg.timeout,
		}))
	}

	client := oai.NewClient(reqOpts...)
	return &Service{client: client, model: model}, nil
}

// Translate implements translate.Service.
func (s *Service) Translate(ctx context.Context, req translate.Request) (translate.Result, error) {
	if strings.TrimSpace(req.Text) == "" {
		return translate.Result{}, fmt.Errorf("openai: empty text")
	}
	source := req.Source
	if source == "" {
		source = "the source language"
	}

	system := fmt.Sprintf(translateSystemPrompt, source, req.Target)
	content, err := s.complete(ctx, system, req.Text)
	if err != nil {
		return translate.Result{}, err
	}
	text := strings.TrimSpace(content)
	if text == "" {
		return translate.Result{}, fmt.Errorf("openai: empty translation")
	}
	return translate.Result{Text: text}, nil
}

// Detect implements translate.Service.
func (s *Service) Detect(ctx context.Context, text string) (translate.Detection, error) {
	if strings.TrimSpace(text) == "" {
		return translate.Detection{}, fmt.Errorf("openai: empty text")
	}

	content, err := s.complete(ctx, detectSystemPrompt, text)
	if err != nil {
		return translate.Detection{}, err
	}
	return parseDetection(content)
}

// complete sends a single system+user exchange and returns the reply content.
func (s *Service) complete(ctx context.Context, system, user string) (string, error) {
	params := oai.ChatCompletionNewParams{
		Model: shared.ChatModel(s.model),
		Messages: []oai.ChatCompletionMessageParamUnion{
			oai.SystemMessage(system),
			oai.UserMessage(user),
		},
		Temperature: param.NewOpt(0.0),
	}

	resp, err := s.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("openai: chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("openai: empty choices in response")
	}
	return resp.Choices[0].Message.Content, nil
}

// parseDetection parses a "code confidence" reply, tolerating extra
// whitespace and a missing confidence token.
func parseDetection(content string) (translate.Detection, error) {
	fields := strings.Fields(strings.ToLower(content))
	if len(fields) == 0 {
		return translate.Detection{}, fmt.Errorf("openai: empty detection reply")
	}

	code := strings.Trim(fields[0], "\"'.,")
	if len(code) < 2 || len(code) > 3 {
		return translate.Detection{}, fmt.Errorf("openai: malformed detection reply %q", content)
	}

	det := translate.Detection{Language: code}
	if len(fields) > 1 {
		conf, err := strconv.ParseFloat(strings.Trim(fields[1], "\"'.,"), 64)
		if err != nil {
			return translate.Detection{}, fmt.Errorf("openai: malformed confidence in reply %q", content)
		}
		det.Confidence = conf
	}
	return det, nil
}
