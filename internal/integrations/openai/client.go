package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"studentcare-chat/internal/domain"
)

const (
	defaultBaseURL      = "https://api.openai.com/v1"
	defaultTimeout      = 30 * time.Second
	defaultMaxRetries   = 2
	defaultRetryBackoff = 500 * time.Millisecond
)

// chatRequest is the request shape for the Chat Completions endpoint.
type chatRequest struct {
	Model            string               `json:"model"`
	Messages         []domain.ChatMessage `json:"messages"`
	Temperature      float64              `json:"temperature"`
	MaxTokens        int                  `json:"max_tokens,omitempty"`
	PresencePenalty  float64              `json:"presence_penalty"`
	FrequencyPenalty float64              `json:"frequency_penalty"`
}

// chatResponse is the minimal response shape returned by the Chat Completions endpoint.
type chatResponse struct {
	ID      string `json:"id"`
	Model   string `json:"model"`
	Choices []struct {
		Index   int                `json:"index"`
		Message domain.ChatMessage `json:"message"`
	} `json:"choices"`
	Usage domain.Usage `json:"usage"`
}

// Client is a focused OpenAI-compatible client for chat completions.
type Client struct {
	apiKey       string
	baseURL      string
	httpClient   *http.Client
	timeout      time.Duration
	maxRetries   int
	retryBackoff time.Duration
}

type Option func(*Client)

func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		c.baseURL = strings.TrimSpace(baseURL)
	}
}

func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// WithTimeout bounds every attempt. It is ignored when WithHTTPClient supplies
// a client that already has a timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithMaxRetries sets how many extra attempts a transport failure gets.
func WithMaxRetries(n int) Option {
	return func(c *Client) {
		if n >= 0 {
			c.maxRetries = n
		}
	}
}

func WithRetryBackoff(d time.Duration) Option {
	return func(c *Client) {
		if d >= 0 {
			c.retryBackoff = d
		}
	}
}

// NewClient creates a Client. The key is not validated here; callers decide
// whether the configuration is usable before issuing calls.
func NewClient(apiKey string, opts ...Option) (*Client, error) {
	c := &Client{
		apiKey:       apiKey,
		baseURL:      defaultBaseURL,
		timeout:      defaultTimeout,
		maxRetries:   defaultMaxRetries,
		retryBackoff: defaultRetryBackoff,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.baseURL != "" {
		if _, err := url.ParseRequestURI(c.baseURL); err != nil {
			return nil, fmt.Errorf("openai: invalid base url %q: %w", c.baseURL, err)
		}
	}
	if c.httpClient == nil {
		c.httpClient = &http.Client{Timeout: c.timeout}
	} else if c.httpClient.Timeout == 0 {
		hc := *c.httpClient
		hc.Timeout = c.timeout
		c.httpClient = &hc
	}
	return c, nil
}

func chatURL(baseURL string) string {
	base := strings.TrimRight(baseURL, "/")
	if base == "" {
		base = defaultBaseURL
	}
	if strings.HasSuffix(base, "/v1") {
		return base + "/chat/completions"
	}
	return base + "/v1/chat/completions"
}

// Complete issues a chat completion. Transport failures are retried up to
// maxRetries times; HTTP error responses are returned immediately as
// *ProviderError.
func (c *Client) Complete(ctx context.Context, in domain.CompletionRequest) (domain.Completion, error) {
	if in.Model == "" {
		return domain.Completion{}, errors.New("openai: model must not be empty")
	}
	body, err := json.Marshal(chatRequest{
		Model:            in.Model,
		Messages:         in.Messages,
		Temperature:      in.Temperature,
		MaxTokens:        in.MaxTokens,
		PresencePenalty:  in.PresencePenalty,
		FrequencyPenalty: in.FrequencyPenalty,
	})
	if err != nil {
		return domain.Completion{}, fmt.Errorf("openai: marshal request: %w", err)
	}

	endpoint := chatURL(c.baseURL)
	var raw []byte
	for attempt := 0; ; attempt++ {
		raw, err = c.post(ctx, endpoint, body)
		if err == nil {
			break
		}
		var te *TransportError
		if !errors.As(err, &te) || attempt >= c.maxRetries || ctx.Err() != nil {
			return domain.Completion{}, err
		}
		if waitErr := sleepCtx(ctx, c.retryBackoff*time.Duration(attempt+1)); waitErr != nil {
			return domain.Completion{}, err
		}
	}

	var payload chatResponse
	if err := json.Unmarshal(raw, &payload); err != nil {
		return domain.Completion{}, fmt.Errorf("openai: decode response: %w", err)
	}
	out := domain.Completion{Model: payload.Model, Usage: payload.Usage}
	if len(payload.Choices) > 0 {
		out.Content = payload.Choices[0].Message.Content
	}
	return out, nil
}

func (c *Client) post(ctx context.Context, endpoint string, body []byte) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("openai: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	res, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &TransportError{Op: "send request", Timeout: isTimeout(err), Err: err}
	}
	defer func() { _ = res.Body.Close() }()

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		buf, _ := io.ReadAll(io.LimitReader(res.Body, 4096))
		return nil, newProviderError(res.StatusCode, buf)
	}

	// The completion was already produced, so a broken body is not retried.
	buf, err := io.ReadAll(io.LimitReader(res.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("openai: read response body: %w", err)
	}
	return buf, nil
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
