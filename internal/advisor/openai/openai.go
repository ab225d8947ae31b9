package openai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"advisory-trading-bot/internal/advisor"
	"advisory-trading-bot/internal/api"
	"advisory-trading-bot/internal/store"
	"advisory-trading-bot/internal/trace"
	"advisory-trading-bot/internal/types"
)

const (
	defaultEndpoint = "https://api.openai.com/v1/chat/completions"
	defaultModel    = "gpt-4-turbo-preview"
)

// Advisor asks an OpenAI chat model for a sentiment call.
type Advisor struct {
	cfg      *store.Config
	client   *api.Client
	endpoint string
	apiKey   string
	retry    *api.RetryConfig
}

type Option func(*Advisor)

func WithEndpoint(url string) Option { return func(a *Advisor) { a.endpoint = url } }
func WithAPIKey(key string) Option   { return func(a *Advisor) { a.apiKey = key } }
func WithRetry(rc *api.RetryConfig) Option {
	return func(a *Advisor) { a.retry = rc }
}

// New reads OPENAI_API_KEY and, if set, OPENAI_API_ENDPOINT.
func New(cfg *store.Config, opts ...Option) *Advisor {
	a := &Advisor{
		cfg:      cfg,
		endpoint: defaultEndpoint,
		apiKey:   os.Getenv("OPENAI_API_KEY"),
	}
	if ep := os.Getenv("OPENAI_API_ENDPOINT"); ep != "" {
		a.endpoint = ep
	}
	for _, o := range opts {
		o(a)
	}
	a.client = api.NewClient(
		api.WithTimeout(time.Duration(cfg.Advisor.TimeoutSeconds)*time.Second),
		api.WithLogging(true),
	)
	return a
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

func (a *Advisor) Evaluate(ctx context.Context, headlines []types.NewsItem, snap types.Snapshot, price float64) (types.AdvisorySignal, error) {
	ctx, span := trace.StartSpan(ctx, "openai-api-call")
	defer span.End()

	if a.apiKey == "" {
		return types.AdvisorySignal{}, errors.New("OPENAI_API_KEY missing")
	}

	model := a.cfg.Advisor.Model
	if model == "" {
		model = defaultModel
	}
	body := map[string]any{
		"model": model,
		"messages": []map[string]string{
			{"role": "system", "content": advisor.SystemPrompt},
			{"role": "user", "content": advisor.BuildPrompt(headlines, snap, price)},
		},
		"temperature":     a.cfg.Advisor.Temperature,
		"max_tokens":      a.cfg.Advisor.MaxTokens,
		"response_format": map[string]string{"type": "json_object"},
	}

	req := api.NewRequest(http.MethodPost, a.endpoint).
		WithContext(ctx).
		WithBody(body).
		WithHeader("Authorization", "Bearer "+a.apiKey)

	resp, err := a.client.DoWithRetry(req, a.retry)
	if err != nil {
		return types.AdvisorySignal{}, fmt.Errorf("openai: %w", err)
	}

	var r chatResponse
	if err := resp.ParseJSON(&r); err != nil {
		return types.AdvisorySignal{}, fmt.Errorf("openai: %w", err)
	}
	if len(r.Choices) == 0 {
		return types.AdvisorySignal{}, fmt.Errorf("openai: no choices: %w", advisor.ErrInvalidAdvisorySignal)
	}

	return advisor.ParseSignal(strings.TrimSpace(r.Choices[0].Message.Content))
}
