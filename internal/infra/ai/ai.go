package ai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"google.golang.org/genai"

	"github.com/Spok95/maos-da-obra/internal/apperr"
)

var ErrEmpty = errors.New("ai: empty response")

// Prompt - один запрос к модели.
type Prompt struct {
	System string
	Text   string
	// JSON - просить ответ строго в application/json.
	JSON bool
}

type Generator interface {
	Generate(ctx context.Context, p Prompt) (string, error)
}

// Client - Generator поверх Gemini. Без ключа клиент создаётся, но каждый вызов
// возвращает ConfigurationError.
type Client struct {
	gc    *genai.Client
	model string
}

type Option func(*genai.ClientConfig)

// WithBaseURL перенаправляет запросы (тесты, прокси).
func WithBaseURL(url string, hc *http.Client) Option {
	return func(c *genai.ClientConfig) {
		c.HTTPOptions.BaseURL = url
		c.HTTPClient = hc
	}
}

func New(ctx context.Context, apiKey, model string, opts ...Option) (*Client, error) {
	if model == "" {
		model = "gemini-2.0-flash"
	}
	if apiKey == "" {
		return &Client{model: model}, nil
	}
	cfg := &genai.ClientConfig{APIKey: apiKey, Backend: genai.BackendGeminiAPI}
	for _, o := range opts {
		o(cfg)
	}
	gc, err := genai.NewClient(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("ai: new client: %w", err)
	}
	return &Client{gc: gc, model: model}, nil
}

func (c *Client) Generate(ctx context.Context, p Prompt) (string, error) {
	if c.gc == nil {
		return "", apperr.NotConfigured("GEMINI_API_KEY")
	}
	cfg := &genai.GenerateContentConfig{Temperature: genai.Ptr[float32](0.4)}
	if p.System != "" {
		cfg.SystemInstruction = genai.NewContentFromText(p.System, genai.RoleUser)
	}
	if p.JSON {
		cfg.ResponseMIMEType = "application/json"
	}

	resp, err := c.gc.Models.GenerateContent(ctx, c.model, genai.Text(p.Text), cfg)
	if err != nil {
		return "", &apperr.NetworkError{Op: "ai", Err: err}
	}
	out := strings.TrimSpace(resp.Text())
	if out == "" {
		return "", ErrEmpty
	}
	return out, nil
}
