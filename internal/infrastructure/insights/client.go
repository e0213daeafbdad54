package insights

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/foodlens/backend/internal/domain"
)

const (
	DefaultBaseURL = "https://api.groq.com/openai/v1"
	DefaultModel   = "llama-3.3-70b-versatile"

	defaultTimeout    = 20 * time.Second
	defaultMaxRetries = 2
	defaultRetryDelay = 1500 * time.Millisecond

	maxIngredientsTextLength = 500
	maxResponseBytes         = 1 << 20
)

var errRateLimited = errors.New("insights provider rate limited the request")

// ClientConfig holds configuration for the chat-completions client
type ClientConfig struct {
	BaseURL    string
	APIKey     string
	Model      string
	Timeout    time.Duration
	MaxRetries int
	// RetryDelay is multiplied by the attempt number between rate-limited attempts
	RetryDelay time.Duration
	Logger     *slog.Logger
}

// Client generates product commentary with an OpenAI-compatible
// chat-completions endpoint
type Client struct {
	baseURL    string
	apiKey     string
	model      string
	maxRetries int
	retryDelay time.Duration
	httpClient *http.Client
	logger     *slog.Logger
	tracer     trace.Tracer
}

// New returns a Client when an API key is configured and Disabled otherwise
func New(config ClientConfig) domain.InsightGenerator {
	if strings.TrimSpace(config.APIKey) == "" {
		return Disabled{Reason: "insights API key not configured"}
	}
	return NewClient(config)
}

// NewClient creates a chat-completions client
func NewClient(config ClientConfig) *Client {
	if config.BaseURL == "" {
		config.BaseURL = DefaultBaseURL
	}
	if config.Model == "" {
		config.Model = DefaultModel
	}
	if config.Timeout == 0 {
		config.Timeout = defaultTimeout
	}
	if config.MaxRetries < 0 {
		config.MaxRetries = 0
	} else if config.MaxRetries == 0 {
		config.MaxRetries = defaultMaxRetries
	}
	if config.RetryDelay == 0 {
		config.RetryDelay = defaultRetryDelay
	}

	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Client{
		baseURL:    strings.TrimRight(config.BaseURL, "/"),
		apiKey:     config.APIKey,
		model:      config.Model,
		maxRetries: config.MaxRetries,
		retryDelay: config.RetryDelay,
		httpClient: &http.Client{Timeout: config.Timeout},
		logger:     logger.With("component", "insights"),
		tracer:     otel.Tracer("foodlens-insights"),
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type responseFormat struct {
	Type string `json:"type"`
}

type chatRequest struct {
	Model          string         `json:"model"`
	Messages       []chatMessage  `json:"messages"`
	ResponseFormat responseFormat `json:"response_format"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

// Generate asks the model for commentary. It never fails: problems are
// reported as an Insights value with status "error".
func (c *Client) Generate(ctx context.Context, product *domain.NormalizedProduct, analysis *domain.AnalysisResult) *domain.Insights {
	ctx, span := c.tracer.Start(ctx, "insights.generate",
		trace.WithAttributes(attribute.String("insights.model", c.model)))
	defer span.End()

	if product == nil || analysis == nil {
		return &domain.Insights{Status: domain.InsightsError, Reason: "no analyzed product"}
	}

	content, err := c.complete(ctx, buildPrompt(product, analysis))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		c.logger.Warn("insights generation failed", "barcode", product.Product.Code, "error", err)
		return &domain.Insights{Status: domain.InsightsError, Reason: err.Error()}
	}

	var insights domain.Insights
	if err := json.Unmarshal([]byte(content), &insights); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "invalid model output")
		return &domain.Insights{Status: domain.InsightsError, Reason: fmt.Sprintf("decode model output: %v", err)}
	}
	insights.Status = ""
	insights.Reason = ""

	return &insights
}

// complete sends the prompt, retrying with a linear delay while rate limited
func (c *Client) complete(ctx context.Context, prompt string) (string, error) {
	body, err := json.Marshal(chatRequest{
		Model:          c.model,
		Messages:       []chatMessage{{Role: "user", Content: prompt}},
		ResponseFormat: responseFormat{Type: "json_object"},
	})
	if err != nil {
		return "", fmt.Errorf("encode request: %w", err)
	}

	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			delay := c.retryDelay * time.Duration(attempt)
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(delay):
			}
		}

		content, err := c.doRequest(ctx, body)
		if err == nil {
			return content, nil
		}
		lastErr = err
		if !errors.Is(err, errRateLimited) {
			return "", err
		}
		c.logger.Debug("insights rate limited, retrying", "attempt", attempt+1)
	}

	return "", lastErr
}

func (c *Client) doRequest(ctx context.Context, body []byte) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return "", errRateLimited
	case resp.StatusCode != http.StatusOK:
		return "", fmt.Errorf("insights provider returned status %d", resp.StatusCode)
	}

	var parsed chatResponse
	if err := json.Unmarshal(payload, &parsed); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	if len(parsed.Choices) == 0 {
		return "", errors.New("insights provider returned no choices")
	}

	return parsed.Choices[0].Message.Content, nil
}
