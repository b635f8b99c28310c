// Package textgen implements the client for the external text-generation API.
// The hub renders plain-text prompts (daily intel, nudges, exam alerts) and
// sends them here; the API returns the finished message for delivery.
package textgen

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/cortex-hub/cortex-study-hub/internal/domain/shared"
	"github.com/cortex-hub/cortex-study-hub/pkg/circuitbreaker"
	"github.com/cortex-hub/cortex-study-hub/pkg/retry"
)

// ══════════════════════════════════════════════════════════════════════════════
// CONFIGURATION
// ══════════════════════════════════════════════════════════════════════════════

// ClientConfig contains configuration for the text-generation client.
type ClientConfig struct {
	// BaseURL is the text-generation API base URL
	BaseURL string

	// APIKey is the bearer token for authentication
	APIKey string

	// Model is the model identifier sent with every request
	Model string

	// MaxTokens caps the length of generated output
	MaxTokens int

	// Temperature controls output randomness
	Temperature float64

	// Timeout is the HTTP request timeout. Generation is slow compared to a
	// normal API call, so this is deliberately generous.
	Timeout time.Duration

	// RateLimiterConfig for API rate limiting
	RateLimiterConfig RateLimiterConfig

	// Logger for structured logging
	Logger *slog.Logger

	// Debug enables debug logging
	Debug bool
}

// DefaultClientConfig returns sensible defaults.
func DefaultClientConfig(baseURL, apiKey string) ClientConfig {
	return ClientConfig{
		BaseURL:           baseURL,
		APIKey:            apiKey,
		Model:             "default",
		MaxTokens:         1024,
		Temperature:       0.7,
		Timeout:           90 * time.Second,
		RateLimiterConfig: DefaultRateLimiterConfig(),
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// REQUEST / RESPONSE TYPES
// ══════════════════════════════════════════════════════════════════════════════

// GenerationRequest contains the prompt and per-request overrides.
type GenerationRequest struct {
	Prompt      string  `json:"prompt"`
	Model       string  `json:"model,omitempty"`
	MaxTokens   int     `json:"max_tokens,omitempty"`
	Temperature float64 `json:"temperature,omitempty"`
}

// GenerationResult is the parsed API response.
type GenerationResult struct {
	Text         string `json:"text"`
	Model        string `json:"model"`
	FinishReason string `json:"finish_reason"`
	Usage        Usage  `json:"usage"`
}

// Usage reports token consumption for a request.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

type apiErrorResponse struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

// ══════════════════════════════════════════════════════════════════════════════
// CLIENT
// ══════════════════════════════════════════════════════════════════════════════

// Client is the text-generation API client. Calls go through a rate limiter,
// a circuit breaker, and a retrier, in that order.
type Client struct {
	config      ClientConfig
	httpClient  *http.Client
	logger      *slog.Logger
	rateLimiter *RateLimiter
	breaker     *circuitbreaker.CircuitBreaker
	retrier     *retry.Retrier
}

// NewClient creates a new text-generation client.
func NewClient(config ClientConfig) *Client {
	if config.Logger == nil {
		config.Logger = slog.Default()
	}
	if config.Timeout <= 0 {
		config.Timeout = 90 * time.Second
	}

	c := &Client{
		config: config,
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
		logger:      config.Logger,
		rateLimiter: NewRateLimiter(config.RateLimiterConfig),
		retrier:     retry.TextGenRetrier(),
	}

	c.breaker = circuitbreaker.TextGenBreaker(func(name string, from, to circuitbreaker.State) {
		config.Logger.Warn("circuit breaker state change",
			"breaker", name,
			"from", from.String(),
			"to", to.String(),
		)
	})

	return c
}

// ══════════════════════════════════════════════════════════════════════════════
// GENERATION OPERATIONS
// ══════════════════════════════════════════════════════════════════════════════

// Generate sends a prompt and returns the full generation result.
func (c *Client) Generate(ctx context.Context, req GenerationRequest) (*GenerationResult, error) {
	if req.Prompt == "" {
		return nil, shared.WrapError("textgen", "Generate", shared.ErrValidation, "prompt cannot be empty", nil)
	}

	if req.Model == "" {
		req.Model = c.config.Model
	}
	if req.MaxTokens <= 0 {
		req.MaxTokens = c.config.MaxTokens
	}
	if req.Temperature == 0 {
		req.Temperature = c.config.Temperature
	}

	var result *GenerationResult
	err := c.retrier.Do(ctx, func(ctx context.Context) error {
		return c.breaker.Execute(ctx, func(ctx context.Context) error {
			res, err := c.doGenerate(ctx, req)
			if err != nil {
				return err
			}
			result = res
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	return result, nil
}

// GenerateText is a convenience method that returns only the generated text.
func (c *Client) GenerateText(ctx context.Context, prompt string) (string, error) {
	result, err := c.Generate(ctx, GenerationRequest{Prompt: prompt})
	if err != nil {
		return "", err
	}
	return result.Text, nil
}

// IsHealthy checks whether the API is reachable.
func (c *Client) IsHealthy(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.config.BaseURL+"/v1/health", nil)
	if err != nil {
		return false
	}
	req.Header.Set("Authorization", "Bearer "+c.config.APIKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()

	return resp.StatusCode == http.StatusOK
}

// ══════════════════════════════════════════════════════════════════════════════
// HTTP INTERNALS
// ══════════════════════════════════════════════════════════════════════════════

// doGenerate performs one API call. Errors are classified for the retrier:
// retryable wraps carry through, permanent ones short-circuit.
func (c *Client) doGenerate(ctx context.Context, genReq GenerationRequest) (*GenerationResult, error) {
	if err := c.rateLimiter.Allow(ctx); err != nil {
		var rlErr *RateLimitError
		if errors.As(err, &rlErr) {
			return nil, retry.Retryable(shared.WrapError("textgen", "Generate", shared.ErrRateLimited, "client-side rate limit reached", err))
		}
		return nil, err
	}

	body, err := json.Marshal(genReq)
	if err != nil {
		return nil, retry.Permanent(fmt.Errorf("marshal request: %w", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.BaseURL+"/v1/generate", bytes.NewReader(body))
	if err != nil {
		return nil, retry.Permanent(fmt.Errorf("create request: %w", err))
	}
	req.Header.Set("Authorization", "Bearer "+c.config.APIKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	if c.config.Debug {
		c.logger.Debug("textgen api call", "model", genReq.Model, "prompt_len", len(genReq.Prompt))
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, retry.Permanent(shared.ErrTextGenTimeout)
		}
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, retry.Retryable(shared.ErrTextGenTimeout)
		}
		return nil, retry.Retryable(shared.WrapError("textgen", "Request", shared.ErrServiceUnavailable, "text generation request failed", err))
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, retry.Retryable(fmt.Errorf("read response: %w", err))
	}

	if resp.StatusCode != http.StatusOK {
		return nil, c.classifyHTTPError(resp, respBody)
	}

	var result GenerationResult
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, retry.Permanent(shared.WrapError("textgen", "Parse", shared.ErrInvalidFormat, "invalid response from text generation API", err))
	}
	if result.Text == "" {
		return nil, retry.Permanent(shared.ErrTextGenInvalidResponse)
	}

	c.logger.Debug("textgen api response",
		"model", result.Model,
		"tokens", result.Usage.TotalTokens,
		"duration", time.Since(start),
	)

	return &result, nil
}

func (c *Client) classifyHTTPError(resp *http.Response, body []byte) error {
	var apiErr apiErrorResponse
	message := string(body)
	if json.Unmarshal(body, &apiErr) == nil && apiErr.Error.Message != "" {
		message = apiErr.Error.Message
	}

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		c.rateLimiter.RecordRateLimitHit(parseRetryAfter(resp))
		return retry.Retryable(shared.WrapError("textgen", "Request", shared.ErrRateLimited, message, shared.ErrTextGenRateLimited))

	case resp.StatusCode == http.StatusRequestTimeout:
		return retry.Retryable(shared.ErrTextGenTimeout)

	case resp.StatusCode >= 500:
		return retry.Retryable(shared.WrapError("textgen", "Request", shared.ErrServiceUnavailable, message, shared.ErrTextGenUnavailable))

	default:
		// 4xx other than 408/429 will not get better on retry
		return retry.Permanent(shared.WrapError("textgen", "Request", shared.ErrExternalService,
			fmt.Sprintf("text generation API returned %d: %s", resp.StatusCode, message), nil))
	}
}

// parseRetryAfter reads the Retry-After header in seconds.
func parseRetryAfter(resp *http.Response) time.Duration {
	header := resp.Header.Get("Retry-After")
	if header == "" {
		return 0
	}

	var seconds int
	if _, err := fmt.Sscanf(header, "%d", &seconds); err != nil || seconds <= 0 {
		return 0
	}
	return time.Duration(seconds) * time.Second
}
