// internal/generation/client.go
package generation

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"banking-assistant/internal/common/config"
	apperrors "banking-assistant/internal/common/errors"
	"banking-assistant/internal/common/validation"
	"banking-assistant/internal/models"
)

const generatePath = "/api/ai/generate"

// responseSchema is the contract of the generation service reply.
const responseSchema = `{
	"type": "object",
	"required": ["text"],
	"properties": {
		"text": {"type": "string", "minLength": 1},
		"confidence": {"type": "number", "minimum": 0, "maximum": 1},
		"sources": {"type": "array", "items": {"type": "string"}}
	}
}`

type Logger interface {
	Info(msg string, fields map[string]interface{})
	Error(msg string, fields map[string]interface{})
}

// Generator produces an answer for an assembled prompt.
type Generator interface {
	Generate(ctx context.Context, req Request) (*Result, error)
}

type Request struct {
	Prompt   string
	Language models.Language
	Intent   models.IntentKind
}

type Result struct {
	Text string
	// Confidence is nil when the service did not report one.
	Confidence *float64
	Sources    []string
}

// Client calls the external generation service over HTTP.
type Client struct {
	baseURL     string
	apiKey      string
	model       string
	maxTokens   int
	temperature float64
	timeout     time.Duration
	client      *http.Client
	logger      Logger
}

func NewClient(cfg config.GenerationConfig, log Logger) *Client {
	return &Client{
		baseURL:     strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:      cfg.APIKey,
		model:       cfg.Model,
		maxTokens:   cfg.MaxTokens,
		temperature: cfg.Temperature,
		timeout:     config.GetDuration(cfg.Timeout),
		// the per-call context carries the deadline
		client: &http.Client{},
		logger: log,
	}
}

type apiRequest struct {
	Prompt      string  `json:"prompt"`
	Language    string  `json:"language"`
	Intent      string  `json:"intent"`
	Model       string  `json:"model,omitempty"`
	MaxTokens   int     `json:"max_tokens"`
	Temperature float64 `json:"temperature"`
}

type apiResponse struct {
	Text       string   `json:"text"`
	Confidence *float64 `json:"confidence"`
	Sources    []string `json:"sources"`
}

// Generate sends one request. Failures come back as GENERATION_FAILED or
// GENERATION_TIMEOUT errors; the caller decides on the fallback.
func (c *Client) Generate(ctx context.Context, req Request) (*Result, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	body, err := json.Marshal(apiRequest{
		Prompt:      req.Prompt,
		Language:    string(req.Language),
		Intent:      string(req.Intent),
		Model:       c.model,
		MaxTokens:   c.maxTokens,
		Temperature: c.temperature,
	})
	if err != nil {
		return nil, apperrors.NewGenerationFailedError(err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+generatePath, bytes.NewReader(body))
	if err != nil {
		return nil, apperrors.NewGenerationFailedError(err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	start := time.Now()
	resp, err := c.client.Do(httpReq)
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, apperrors.NewGenerationTimeoutError(err)
		}
		return nil, apperrors.NewGenerationFailedError(err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, apperrors.NewGenerationTimeoutError(err)
		}
		return nil, apperrors.NewGenerationFailedError(err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, apperrors.NewGenerationFailedError(fmt.Errorf("status %d", resp.StatusCode))
	}

	result, err := validation.ValidateJSON(responseSchema, raw)
	if err != nil {
		return nil, apperrors.NewGenerationFailedError(err)
	}
	if !result.Valid {
		return nil, apperrors.NewGenerationFailedError(fmt.Errorf("invalid response: %s", strings.Join(result.GetErrorMessages(), "; ")))
	}

	var parsed apiResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, apperrors.NewGenerationFailedError(err)
	}
	if strings.TrimSpace(parsed.Text) == "" {
		return nil, apperrors.NewGenerationFailedError(errors.New("empty text"))
	}

	c.logger.Info("Generation completed", map[string]interface{}{
		"intent":   req.Intent,
		"language": req.Language,
		"duration": time.Since(start).String(),
	})
	return &Result{Text: strings.TrimSpace(parsed.Text), Confidence: parsed.Confidence, Sources: parsed.Sources}, nil
}
