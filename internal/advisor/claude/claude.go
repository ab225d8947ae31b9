package claude

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
	defaultEndpoint  = "https://api.anthropic.com/v1/messages"
	defaultModel     = "claude-3-5-sonnet-latest"
	anthropicVersion = "2023-06-01"
)

// Advisor implements the advisory call on the Anthropic Messages API.
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

// New reads CLAUDE_API_KEY. Set CLAUDE_API_ENDPOINT to go through a proxy.
func New(cfg *store.Config, opts ...Option) *Advisor {
	a := &Advisor{
		cfg:      cfg,
		endpoint: defaultEndpoint,
		apiKey:   os.Getenv("CLAUDE_API_KEY"),
	}
	if ep := os.Getenv("CLAUDE_API_ENDPOINT"); ep != "" {
		a.endpoint = ep
	}
	for _, o := range opts {
		o(a)
	}
	a.client = api.NewClient(
		api.WithTimeout(time.Duration(cfg.Advisor.TimeoutSeconds)*time.Second),
		api.WithHeader("anthropic-version", anthropicVersion),
		api.WithLogging(true),
	)
	return a
}

type messagesResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
}

func (a *Advisor) Evaluate(ctx context.Context, headlines []types.NewsItem, snap types.Snapshot, price float64) (types.AdvisorySignal, error) {
	ctx, span := trace.StartSpan(ctx, "claude-api-call")
	defer span.End()

	if a.apiKey == "" {
		return types.AdvisorySignal{}, errors.New("CLAUDE_API_KEY missing")
	}

	model := a.cfg.Advisor.Model
	if model == "" {
		model = defaultModel
	}
	body := map[string]any{
		"model":       model,
		"system":      advisor.SystemPrompt,
		"max_tokens":  a.cfg.Advisor.MaxTokens,
		"temperature": a.cfg.Advisor.Temperature,
		"messages": []map[string]string{
			{"role": "user", "content": advisor.BuildPrompt(headlines, snap, price)},
		},
	}

	req := api.NewRequest(http.MethodPost, a.endpoint).
		WithContext(ctx).
		WithBody(body).
		WithHeader("x-api-key", a.apiKey)

	resp, err := a.client.DoWithRetry(req, a.retry)
	if err != nil {
		return types.AdvisorySignal{}, fmt.Errorf("claude: %w", err)
	}

	var r messagesResponse
	if err := resp.ParseJSON(&r); err != nil {
		return types.AdvisorySignal{}, fmt.Errorf("claude: %w", err)
	}

	var text strings.Builder
	for _, c := range r.Content {
		if c.Type == "text" {
			text.WriteString(c.Text)
		}
	}
	if text.Len() == 0 {
		return types.AdvisorySignal{}, fmt.Errorf("claude: empty content: %w", advisor.ErrInvalidAdvisorySignal)
	}
	return advisor.ParseSignal(text.String())
}
