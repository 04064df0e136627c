// Package llm provides a client for an OpenAI-compatible chat completion API.
package llm

import (
	"context"
	"errors"
	"fitcoach-go/internal/config"
	"fitcoach-go/pkg/log"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/sashabaranov/go-openai"
	"golang.org/x/time/rate"
)

var (
	// ErrUnavailable is returned when the backend is not configured, has
	// rejected our credentials, or is cooling down after a rate limit.
	ErrUnavailable = errors.New("completion backend unavailable")
	// ErrRateLimited is returned when the local hourly budget is spent.
	ErrRateLimited = errors.New("completion backend rate limited locally")
	// ErrEmptyResponse is returned when the backend answers with no text.
	ErrEmptyResponse = errors.New("completion backend returned no content")
)

// rateLimitCooldown is how long the client stays unavailable after the API
// answers 429.
const rateLimitCooldown = 5 * time.Minute

// Message is a single role-tagged chat message.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// GenerationParams overrides the configured generation defaults for one call.
type GenerationParams struct {
	Temperature *float64
	MaxTokens   *int
}

// Params is a shorthand for building GenerationParams.
func Params(maxTokens int, temperature float64) *GenerationParams {
	return &GenerationParams{Temperature: &temperature, MaxTokens: &maxTokens}
}

// Client is a stateless request/response completion service.
type Client interface {
	// Available reports whether calls are worth attempting right now.
	Available() bool
	// Model returns the configured model identifier.
	Model() string
	// Complete sends messages and returns the trimmed reply text.
	Complete(ctx context.Context, messages []Message, gen *GenerationParams) (string, error)
}

type openaiClient struct {
	cfg     config.LLMConfig
	client  *openai.Client
	limiter *rate.Limiter

	mu            sync.Mutex
	authFailed    bool
	disabledUntil time.Time
}

// NewClient creates a Client from the llm config section.
func NewClient(cfg config.LLMConfig) Client {
	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = cfg.BaseURL
	}
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	clientConfig.HTTPClient = &http.Client{Timeout: timeout}

	perHour := cfg.RateLimitPerHour
	if perHour <= 0 {
		perHour = 50
	}

	if strings.TrimSpace(cfg.APIKey) == "" {
		log.Warnf("LLM api key not configured, completion backend disabled")
	}

	return &openaiClient{
		cfg:     cfg,
		client:  openai.NewClientWithConfig(clientConfig),
		limiter: rate.NewLimiter(rate.Every(time.Hour/time.Duration(perHour)), perHour),
	}
}

func (c *openaiClient) Model() string {
	return c.cfg.Model
}

func (c *openaiClient) Available() bool {
	if strings.TrimSpace(c.cfg.APIKey) == "" {
		return false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.authFailed {
		return false
	}
	return !time.Now().Before(c.disabledUntil)
}

func (c *openaiClient) Complete(ctx context.Context, messages []Message, gen *GenerationParams) (string, error) {
	if !c.Available() {
		return "", ErrUnavailable
	}
	if !c.limiter.Allow() {
		log.Warnf("Skipping completion request, local rate limit reached")
		return "", ErrRateLimited
	}

	req := openai.ChatCompletionRequest{
		Model:       c.cfg.Model,
		Messages:    make([]openai.ChatCompletionMessage, 0, len(messages)),
		MaxTokens:   c.cfg.Generation.MaxTokens,
		Temperature: float32(c.cfg.Generation.Temperature),
	}
	for _, m := range messages {
		req.Messages = append(req.Messages, openai.ChatCompletionMessage{Role: m.Role, Content: m.Content})
	}
	if gen != nil {
		if gen.MaxTokens != nil {
			req.MaxTokens = *gen.MaxTokens
		}
		if gen.Temperature != nil {
			req.Temperature = float32(*gen.Temperature)
		}
	}

	resp, err := c.client.CreateChatCompletion(ctx, req)
	if err != nil {
		c.recordFailure(err)
		return "", fmt.Errorf("failed to call chat completion api: %w", err)
	}

	log.Infow("Completion API usage",
		"model", resp.Model,
		"messageCount", len(messages),
		"promptTokens", resp.Usage.PromptTokens,
		"completionTokens", resp.Usage.CompletionTokens,
		"totalTokens", resp.Usage.TotalTokens,
	)

	if len(resp.Choices) == 0 {
		return "", ErrEmptyResponse
	}
	content := strings.TrimSpace(resp.Choices[0].Message.Content)
	if content == "" {
		return "", ErrEmptyResponse
	}
	return content, nil
}

// recordFailure updates availability from the HTTP status of a failed call.
func (c *openaiClient) recordFailure(err error) {
	status := statusCode(err)
	c.mu.Lock()
	defer c.mu.Unlock()
	switch status {
	case http.StatusUnauthorized:
		log.Error("Completion API rejected credentials, disabling backend", err)
		c.authFailed = true
	case http.StatusTooManyRequests:
		log.Error("Completion API rate limit exceeded, cooling down", err)
		c.disabledUntil = time.Now().Add(rateLimitCooldown)
	default:
		log.Error("Completion API request failed", err)
	}
}

func statusCode(err error) int {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.HTTPStatusCode
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return reqErr.HTTPStatusCode
	}
	return 0
}
