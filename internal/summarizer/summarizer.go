// Package summarizer generates video summaries from transcripts via an
// OpenAI-compatible chat completions endpoint.
package summarizer

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
	"unicode/utf8"

	apperrors "github.com/vidigest/backend/internal/errors"
)

const (
	defaultBaseURL = "https://api.openai.com/v1"
	defaultModel   = "gpt-4o-mini"
	requestTimeout = 120 * time.Second
	maxTranscript  = 120000 // bytes sent to the model; longer transcripts are truncated
)

var (
	// ErrMissingAPIKey is returned when no API key is configured
	ErrMissingAPIKey = errors.New("summarizer api key not configured")
	// ErrEmptyTranscript is returned when there is nothing to summarize
	ErrEmptyTranscript = errors.New("transcript is empty")
	// ErrEmptySummary is returned when the model produces no content
	ErrEmptySummary = errors.New("model returned an empty summary")
)

// Config holds configuration for the summarizer client
type Config struct {
	// BaseURL is the API root (default: the OpenAI endpoint). Any
	// chat-completions compatible server works, e.g. a local llama.cpp.
	BaseURL string
	// APIKey is the bearer token sent with each request
	APIKey string
	// Model is the chat model name
	Model string
	// PromptPath optionally points at a JSON prompt template file
	PromptPath string
}

// Client calls a chat completions API to summarize transcripts
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	model      string
	template   *PromptTemplate
}

// NewClient creates a summarizer client. The prompt template is loaded from
// cfg.PromptPath when set, falling back to the built-in template.
func NewClient(cfg *Config) (*Client, error) {
	if cfg == nil || cfg.APIKey == "" {
		return nil, ErrMissingAPIKey
	}

	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	model := cfg.Model
	if model == "" {
		model = defaultModel
	}

	template, err := LoadPromptTemplate(cfg.PromptPath)
	if err != nil {
		return nil, err
	}

	return &Client{
		httpClient: &http.Client{
			Timeout: requestTimeout,
		},
		baseURL:  strings.TrimRight(baseURL, "/"),
		apiKey:   cfg.APIKey,
		model:    model,
		template: template,
	}, nil
}

// chatRequest is the request body for the chat completions endpoint
type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// chatResponse is the subset of the completions response we need
type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

// Summarize produces a summary of the transcript. The source URL is included
// in the prompt so the model can mention it when relevant.
func (c *Client) Summarize(ctx context.Context, transcript, sourceURL string) (string, error) {
	transcript = strings.TrimSpace(transcript)
	if transcript == "" {
		return "", ErrEmptyTranscript
	}
	if len(transcript) > maxTranscript {
		cut := maxTranscript
		for cut > 0 && !utf8.RuneStart(transcript[cut]) {
			cut--
		}
		transcript = transcript[:cut]
	}

	reqBody := chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: c.template.System},
			{Role: "user", Content: c.template.Render(transcript, sourceURL)},
		},
		Temperature: c.template.Temperature,
	}

	payload, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("failed to encode request: %w", err)
	}

	// Transient completions failures (rate limits, gateway errors) are
	// retried with backoff; everything else surfaces immediately.
	return apperrors.RetryWithResult(ctx, apperrors.SummaryRetryConfig(), func(ctx context.Context) (string, error) {
		return c.complete(ctx, payload)
	})
}

func (c *Client) complete(ctx context.Context, payload []byte) (string, error) {
	endpoint := c.baseURL + "/chat/completions"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("summary request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}

	var chatResp chatResponse
	if err := json.Unmarshal(body, &chatResp); err != nil {
		return "", fmt.Errorf("failed to parse response: %w", err)
	}

	if chatResp.Error != nil {
		return "", fmt.Errorf("completion error (%s): %s", chatResp.Error.Type, chatResp.Error.Message)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}
	if len(chatResp.Choices) == 0 {
		return "", ErrEmptySummary
	}

	summary := strings.TrimSpace(chatResp.Choices[0].Message.Content)
	if summary == "" {
		return "", ErrEmptySummary
	}
	return summary, nil
}
