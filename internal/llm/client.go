// Package llm wraps an OpenAI-compatible chat completion endpoint for resume insights and OCR.
package llm

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

// ErrEmptyResponse is returned when the model answers with no choices or blank content.
var ErrEmptyResponse = errors.New("llm returned an empty response")

// Config configures a Client.
type Config struct {
	APIKey        string
	BaseURL       string
	Model         string
	MaxTokens     int
	Temperature   float32
	Timeout       time.Duration
	MaxRetries    int
	InitialDelay  time.Duration
	BackoffFactor float64
}

// Client sends chat completions with retry on transient failures.
type Client struct {
	client        *openai.Client
	model         string
	maxTokens     int
	temperature   float32
	maxRetries    int
	initialDelay  time.Duration
	backoffFactor float64
	logger        *zap.Logger
}

// New creates a Client from cfg. logger may be nil.
func New(cfg Config, logger *zap.Logger) (*Client, error) {
	if cfg.Model == "" {
		return nil, fmt.Errorf("llm model is required")
	}
	config := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		config.BaseURL = cfg.BaseURL
	}
	if cfg.Timeout > 0 {
		config.HTTPClient = &http.Client{Timeout: cfg.Timeout}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	c := &Client{
		client:        openai.NewClientWithConfig(config),
		model:         cfg.Model,
		maxTokens:     cfg.MaxTokens,
		temperature:   cfg.Temperature,
		maxRetries:    cfg.MaxRetries,
		initialDelay:  cfg.InitialDelay,
		backoffFactor: cfg.BackoffFactor,
		logger:        logger,
	}
	if c.maxRetries < 0 {
		c.maxRetries = 0
	}
	if c.initialDelay <= 0 {
		c.initialDelay = 500 * time.Millisecond
	}
	if c.backoffFactor < 1 {
		c.backoffFactor = 2
	}
	return c, nil
}

// Model returns the default chat model.
func (c *Client) Model() string {
	return c.model
}

// Complete sends a system and user message to the default model and returns the reply text.
func (c *Client) Complete(ctx context.Context, system, user string) (string, error) {
	messages := []openai.ChatCompletionMessage{
		{Role: openai.ChatMessageRoleSystem, Content: system},
		{Role: openai.ChatMessageRoleUser, Content: user},
	}
	return c.send(ctx, c.model, messages)
}

// DescribeImage sends prompt and an image data URL (data:image/png;base64,...) to a vision model.
// An empty model uses the default one.
func (c *Client) DescribeImage(ctx context.Context, model, prompt, imageURL string) (string, error) {
	if model == "" {
		model = c.model
	}
	messages := []openai.ChatCompletionMessage{{
		Role: openai.ChatMessageRoleUser,
		MultiContent: []openai.ChatMessagePart{
			{Type: openai.ChatMessagePartTypeText, Text: prompt},
			{Type: openai.ChatMessagePartTypeImageURL, ImageURL: &openai.ChatMessageImageURL{
				URL:    imageURL,
				Detail: openai.ImageURLDetailHigh,
			}},
		},
	}}
	return c.send(ctx, model, messages)
}

func (c *Client) send(ctx context.Context, model string, messages []openai.ChatCompletionMessage) (string, error) {
	req := openai.ChatCompletionRequest{
		Model:       model,
		Messages:    messages,
		MaxTokens:   c.maxTokens,
		Temperature: c.temperature,
	}

	var resp openai.ChatCompletionResponse
	err := c.withRetry(ctx, func() error {
		var err error
		resp, err = c.client.CreateChatCompletion(ctx, req)
		return err
	})
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", ErrEmptyResponse
	}
	content := strings.TrimSpace(resp.Choices[0].Message.Content)
	if content == "" {
		return "", ErrEmptyResponse
	}
	c.logger.Debug("chat completion",
		zap.String("model", model),
		zap.Int("prompt_tokens", resp.Usage.PromptTokens),
		zap.Int("completion_tokens", resp.Usage.CompletionTokens))
	return content, nil
}

func (c *Client) withRetry(ctx context.Context, fn func() error) error {
	delay := c.initialDelay
	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		lastErr = fn()
		if lastErr == nil {
			return nil
		}
		if !isRetryable(lastErr) {
			return lastErr
		}
		if attempt < c.maxRetries {
			c.logger.Warn("chat completion failed, retrying",
				zap.Int("attempt", attempt+1), zap.Duration("backoff", delay), zap.Error(lastErr))
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
				delay = time.Duration(float64(delay) * c.backoffFactor)
			}
		}
	}
	return fmt.Errorf("max retries exceeded: %w", lastErr)
}

func isRetryable(err error) bool {
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.HTTPStatusCode {
		case http.StatusTooManyRequests,
			http.StatusInternalServerError,
			http.StatusBadGateway,
			http.StatusServiceUnavailable,
			http.StatusGatewayTimeout:
			return true
		}
		return false
	}
	var reqErr *openai.RequestError
	return errors.As(err, &reqErr)
}
