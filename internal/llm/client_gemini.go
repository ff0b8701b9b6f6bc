package llm

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"google.golang.org/genai"

	"facetforge/internal/logging"
)

// GeminiConfig holds configuration for the Gemini backend.
type GeminiConfig struct {
	APIKey string
	// BaseURL overrides the API endpoint. Empty uses the SDK default.
	BaseURL string
	Model   string
	// Timeout bounds a single call. Zero disables the per-call deadline.
	Timeout     time.Duration
	Temperature float32
	// JSONMode asks the API for an application/json response.
	JSONMode bool
}

// DefaultGeminiModel is used when no model override is configured.
const DefaultGeminiModel = "gemini-2.5-flash"

// DefaultGeminiConfig returns sensible defaults.
func DefaultGeminiConfig(apiKey string) GeminiConfig {
	return GeminiConfig{
		APIKey:      apiKey,
		Model:       DefaultGeminiModel,
		Timeout:     120 * time.Second,
		Temperature: 0.7,
		JSONMode:    true,
	}
}

// GeminiClient implements Backend over the Google GenAI SDK.
type GeminiClient struct {
	client      *genai.Client
	model       string
	timeout     time.Duration
	temperature float32
	jsonMode    bool
}

// NewGeminiClient creates a Gemini backend. It fails with ErrMissingAPIKey
// when cfg carries no credential.
func NewGeminiClient(ctx context.Context, cfg GeminiConfig) (*GeminiClient, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, ErrMissingAPIKey
	}

	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = DefaultGeminiModel
	}

	clientCfg := &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if cfg.BaseURL != "" {
		clientCfg.HTTPOptions = genai.HTTPOptions{BaseURL: cfg.BaseURL}
	}

	client, err := genai.NewClient(ctx, clientCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}

	logging.Boot("Gemini backend ready (model=%s)", model)
	return &GeminiClient{
		client:      client,
		model:       model,
		timeout:     cfg.Timeout,
		temperature: cfg.Temperature,
		jsonMode:    cfg.JSONMode,
	}, nil
}

// Model returns the configured model name.
func (c *GeminiClient) Model() string {
	return c.model
}

// Complete sends prompt and returns the text of the first candidate.
func (c *GeminiClient) Complete(ctx context.Context, prompt string) (string, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	config := &genai.GenerateContentConfig{
		Temperature: genai.Ptr(c.temperature),
	}
	if c.jsonMode {
		config.ResponseMIMEType = "application/json"
	}

	resp, err := c.client.Models.GenerateContent(ctx, c.model, genai.Text(prompt), config)
	if err != nil {
		return "", classifyGeminiError(err)
	}
	return firstCandidateText(resp), nil
}

// firstCandidateText concatenates the text parts of the first candidate.
func firstCandidateText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 {
		return ""
	}
	content := resp.Candidates[0].Content
	if content == nil {
		return ""
	}
	var sb strings.Builder
	for _, part := range content.Parts {
		if part == nil || part.Thought {
			continue
		}
		sb.WriteString(part.Text)
	}
	return sb.String()
}

// classifyGeminiError maps SDK and transport failures onto the package
// sentinels, keeping the original error in the chain.
func classifyGeminiError(err error) error {
	if errors.Is(err, context.Canceled) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %w", ErrNetwork, err)
	}

	if code, status, msg, ok := apiErrorFields(err); ok {
		switch {
		case code == http.StatusUnauthorized || code == http.StatusForbidden,
			strings.Contains(msg, "API key not valid"):
			return fmt.Errorf("%w: %w", ErrInvalidAPIKey, err)
		case code == http.StatusTooManyRequests || status == "RESOURCE_EXHAUSTED":
			return fmt.Errorf("%w: %w", ErrRateLimited, err)
		case code == http.StatusServiceUnavailable || code == http.StatusGatewayTimeout,
			code == http.StatusBadGateway:
			return fmt.Errorf("%w: %w", ErrNetwork, err)
		}
		return fmt.Errorf("gemini API error: %w", err)
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return fmt.Errorf("%w: %w", ErrNetwork, err)
	}
	return fmt.Errorf("gemini request failed: %w", err)
}

func apiErrorFields(err error) (code int, status, message string, ok bool) {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.Code, apiErr.Status, apiErr.Message, true
	}
	var apiErrPtr *genai.APIError
	if errors.As(err, &apiErrPtr) && apiErrPtr != nil {
		return apiErrPtr.Code, apiErrPtr.Status, apiErrPtr.Message, true
	}
	return 0, "", "", false
}
