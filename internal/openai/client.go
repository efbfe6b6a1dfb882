package openai

import (
	"context"
	"errors"
	"net"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"github.com/talentsift/talentsift/internal/domain"
)

const (
	// DefaultEmbeddingModel is the OpenAI model used for generating embeddings
	DefaultEmbeddingModel = string(openai.SmallEmbedding3)
	// DefaultGenerativeModel is the chat model used for scoring
	DefaultGenerativeModel = openai.GPT4oMini
	// DefaultEmbeddingDimensions is the expected dimension of embeddings
	DefaultEmbeddingDimensions = 1536
	// DefaultMaxRetries bounds retries of transient provider failures
	DefaultMaxRetries = 3
	// DefaultBackoff is the initial retry delay; it doubles per attempt
	DefaultBackoff = 2 * time.Second
	// DefaultTimeout bounds a single provider call
	DefaultTimeout = 60 * time.Second
)

var (
	// ErrEmptyText is returned when text is empty
	ErrEmptyText = errors.New("text cannot be empty")
	// ErrEmptyPrompt is returned when a generation prompt is empty
	ErrEmptyPrompt = errors.New("prompt cannot be empty")
)

// EmbeddingAPI defines the interface for embedding generation
type EmbeddingAPI interface {
	CreateEmbeddings(ctx context.Context, text string) ([]float32, error)
}

// ChatAPI defines the interface for chat completion
type ChatAPI interface {
	CreateChatCompletion(ctx context.Context, prompt string, jsonMode bool) (string, error)
}

// Config holds provider client configuration
type Config struct {
	APIKey              string
	EmbeddingModel      string
	GenerativeModel     string
	EmbeddingDimensions int
	MaxRetries          int
	Backoff             time.Duration
	Timeout             time.Duration
}

// Client wraps the OpenAI API for both embeddings and generation. Transient
// failures (rate limits, timeouts, network errors) are retried with bounded
// exponential backoff; a terminal domain.ProviderError surfaces once the
// budget is exhausted.
type Client struct {
	api        EmbeddingAPI
	chat       ChatAPI
	dimensions int
	maxRetries int
	backoff    time.Duration
	timeout    time.Duration
}

// OpenAIAdapter adapts the upstream SDK client to the narrow API interfaces.
type OpenAIAdapter struct {
	client    *openai.Client
	embedding openai.EmbeddingModel
	chatModel string
}

func NewOpenAIAdapter(apiKey, embeddingModel, chatModel string) *OpenAIAdapter {
	if embeddingModel == "" {
		embeddingModel = DefaultEmbeddingModel
	}
	if chatModel == "" {
		chatModel = DefaultGenerativeModel
	}
	return &OpenAIAdapter{
		client:    openai.NewClient(apiKey),
		embedding: openai.EmbeddingModel(embeddingModel),
		chatModel: chatModel,
	}
}

// CreateEmbeddings calls the OpenAI API to create embeddings
func (a *OpenAIAdapter) CreateEmbeddings(ctx context.Context, text string) ([]float32, error) {
	resp, err := a.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input: []string{text},
		Model: a.embedding,
	})
	if err != nil {
		return nil, err
	}

	if len(resp.Data) == 0 {
		return nil, errors.New("no embedding data returned")
	}

	return resp.Data[0].Embedding, nil
}

// CreateChatCompletion runs a single-turn chat completion at temperature
// zero so scoring output is as reproducible as the provider allows.
func (a *OpenAIAdapter) CreateChatCompletion(ctx context.Context, prompt string, jsonMode bool) (string, error) {
	req := openai.ChatCompletionRequest{
		Model: a.chatModel,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		Temperature: 0,
	}
	if jsonMode {
		req.ResponseFormat = &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		}
	}

	resp, err := a.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", err
	}

	if len(resp.Choices) == 0 {
		return "", errors.New("no completion choices returned")
	}

	return resp.Choices[0].Message.Content, nil
}

// NewClient creates a new provider client using defaults.
func NewClient(apiKey string) *Client {
	return NewClientWithConfig(Config{APIKey: apiKey})
}

// NewClientWithConfig creates a new provider client with explicit configuration.
func NewClientWithConfig(cfg Config) *Client {
	dimensions := cfg.EmbeddingDimensions
	if dimensions <= 0 {
		dimensions = DefaultEmbeddingDimensions
	}
	maxRetries := cfg.MaxRetries
	if maxRetries <= 0 {
		maxRetries = DefaultMaxRetries
	}
	backoff := cfg.Backoff
	if backoff <= 0 {
		backoff = DefaultBackoff
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	adapter := NewOpenAIAdapter(cfg.APIKey, cfg.EmbeddingModel, cfg.GenerativeModel)
	return &Client{
		api:        adapter,
		chat:       adapter,
		dimensions: dimensions,
		maxRetries: maxRetries,
		backoff:    backoff,
		timeout:    timeout,
	}
}

// GenerateEmbedding generates an embedding for the given text
func (c *Client) GenerateEmbedding(ctx context.Context, text string) ([]float32, error) {
	if text == "" {
		return nil, ErrEmptyText
	}

	var embedding []float32
	err := c.withRetry(ctx, "embed", func(callCtx context.Context) error {
		var err error
		embedding, err = c.api.CreateEmbeddings(callCtx, text)
		return err
	})
	if err != nil {
		return nil, err
	}

	if c.dimensions > 0 && len(embedding) != c.dimensions {
		return nil, &domain.ProviderError{
			Op:   "embed",
			Kind: domain.ProviderErrorResponse,
			Err:  errors.New("embedding has wrong dimensions"),
		}
	}

	return embedding, nil
}

// GenerateText sends a prompt to the generative model and returns raw text.
func (c *Client) GenerateText(ctx context.Context, prompt string) (string, error) {
	return c.generate(ctx, prompt, false)
}

// GenerateJSON sends a prompt and asks the model to respond with a single
// JSON object.
func (c *Client) GenerateJSON(ctx context.Context, prompt string) (string, error) {
	return c.generate(ctx, prompt, true)
}

func (c *Client) generate(ctx context.Context, prompt string, jsonMode bool) (string, error) {
	if prompt == "" {
		return "", ErrEmptyPrompt
	}

	var out string
	err := c.withRetry(ctx, "generate", func(callCtx context.Context) error {
		var err error
		out, err = c.chat.CreateChatCompletion(callCtx, prompt, jsonMode)
		return err
	})
	if err != nil {
		return "", err
	}
	return out, nil
}

// withRetry runs fn with a per-call timeout, retrying transient failures
// with exponential backoff up to the retry budget.
func (c *Client) withRetry(ctx context.Context, op string, fn func(context.Context) error) error {
	delay := c.backoff
	attempts := 0

	for {
		attempts++

		callCtx := ctx
		var cancel context.CancelFunc
		if c.timeout > 0 {
			callCtx, cancel = context.WithTimeout(ctx, c.timeout)
		}
		err := fn(callCtx)
		if cancel != nil {
			cancel()
		}
		if err == nil {
			return nil
		}

		provErr := &domain.ProviderError{
			Op:       op,
			Kind:     classifyError(err),
			Attempts: attempts,
			Err:      err,
		}

		if !provErr.Transient() || attempts > c.maxRetries {
			return provErr
		}

		select {
		case <-ctx.Done():
			provErr.Err = ctx.Err()
			provErr.Kind = domain.ProviderErrorTimeout
			return provErr
		case <-time.After(delay):
		}
		delay *= 2
	}
}

// classifyError maps SDK and transport errors onto the provider error taxonomy.
func classifyError(err error) domain.ProviderErrorKind {
	if errors.Is(err, context.DeadlineExceeded) {
		return domain.ProviderErrorTimeout
	}
	if errors.Is(err, context.Canceled) {
		return domain.ProviderErrorTimeout
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.HTTPStatusCode == 429:
			return domain.ProviderErrorRateLimit
		case apiErr.HTTPStatusCode == 401 || apiErr.HTTPStatusCode == 403:
			return domain.ProviderErrorAuth
		case apiErr.HTTPStatusCode >= 500:
			return domain.ProviderErrorNetwork
		default:
			return domain.ProviderErrorResponse
		}
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		if netErr.Timeout() {
			return domain.ProviderErrorTimeout
		}
		return domain.ProviderErrorNetwork
	}

	return domain.ProviderErrorResponse
}
