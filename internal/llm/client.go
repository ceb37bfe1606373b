package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// Config points the client at any OpenAI-compatible chat completions API.
type Config struct {
	APIKey     string
	BaseURL    string
	Model      string
	Timeout    time.Duration
	MaxRetries int
}

// Options tunes one completion. Zero fields fall back to client defaults.
type Options struct {
	Model       string
	System      string
	Temperature float64
	MaxTokens   int
}

var ErrEmptyCompletion = errors.New("llm: empty completion")

// Client wraps openai-go for single-prompt completions.
type Client struct {
	api     openai.Client
	model   string
	timeout time.Duration
	log     *slog.Logger
}

func NewClient(cfg Config, log *slog.Logger) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("llm: api key required")
	}
	if cfg.Model == "" {
		return nil, errors.New("llm: model required")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 20 * time.Second
	}
	if log == nil {
		log = slog.Default()
	}
	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithRequestTimeout(cfg.Timeout),
		option.WithMaxRetries(cfg.MaxRetries),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(strings.TrimRight(cfg.BaseURL, "/")+"/"))
	}
	return &Client{
		api:     openai.NewClient(opts...),
		model:   cfg.Model,
		timeout: cfg.Timeout,
		log:     log.With("component", "llm"),
	}, nil
}

// Complete sends prompt as a single user message and returns the trimmed reply.
func (c *Client) Complete(ctx context.Context, prompt string, o Options) (string, error) {
	model := o.Model
	if model == "" {
		model = c.model
	}

	var msgs []openai.ChatCompletionMessageParamUnion
	if o.System != "" {
		msgs = append(msgs, openai.SystemMessage(o.System))
	}
	msgs = append(msgs, openai.UserMessage(prompt))

	params := openai.ChatCompletionNewParams{
		Model:    openai.ChatModel(model),
		Messages: msgs,
	}
	if o.Temperature > 0 {
		params.Temperature = openai.Float(o.Temperature)
	}
	if o.MaxTokens > 0 {
		params.MaxTokens = openai.Int(int64(o.MaxTokens))
	}

	start := time.Now()
	resp, err := c.api.Chat.Completions.New(ctx, params)
	if err != nil {
		var apiErr *openai.Error
		if errors.As(err, &apiErr) {
			c.log.Warn("completion rejected", "model", model, "status", apiErr.StatusCode)
		}
		return "", fmt.Errorf("llm: completion: %w", err)
	}
	c.log.Debug("completion done", "model", model, "duration_ms", time.Since(start).Milliseconds())

	if len(resp.Choices) == 0 {
		return "", ErrEmptyCompletion
	}
	out := strings.TrimSpace(resp.Choices[0].Message.Content)
	if out == "" {
		return "", ErrEmptyCompletion
	}
	return out, nil
}
