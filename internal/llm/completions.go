package llm

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
)

const defaultBaseURL = "https://api.openai.com/v1"

// CompletionsConfig holds the settings for the chat-completions client.
type CompletionsConfig struct {
	BaseURL         string // defaults to the public OpenAI endpoint
	APIKey          string
	Model           string
	FallbackModel   string // optional second candidate when Model is unknown
	Temperature     float64
	MaxOutputTokens int
}

// CompletionsClient calls the provider's chat-completions endpoint. It tries
// the configured model first and falls back exactly once when the provider
// reports the model as unknown.
type CompletionsClient struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string

	// model is overwritten with whichever candidate last produced a reply,
	// so a known-bad primary is not retried for the life of the process.
	// Read and written without synchronization: a race wastes at most one
	// fallback attempt and never corrupts data.
	model string

	fallbackModel   string
	temperature     float64
	maxOutputTokens int
}

var _ Client = (*CompletionsClient)(nil)

func NewCompletionsClient(cfg CompletionsConfig) (*CompletionsClient, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("missing OpenAI API key: set the OPENAI_API_KEY environment variable or configure it in .env")
	}
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &CompletionsClient{
		httpClient:      &http.Client{Timeout: 90 * time.Second},
		baseURL:         strings.TrimRight(baseURL, "/"),
		apiKey:          cfg.APIKey,
		model:           cfg.Model,
		fallbackModel:   cfg.FallbackModel,
		temperature:     cfg.Temperature,
		maxOutputTokens: cfg.MaxOutputTokens,
	}, nil
}

// GetCompletion submits the history to each candidate model in order and
// returns the first reply. Only a "model not found" condition moves on to the
// next candidate; any other failure is returned immediately.
func (c *CompletionsClient) GetCompletion(ctx context.Context, history []Turn) (string, error) {
	var lastNotFound string

	for _, model := range c.candidateModels() {
		text, err := c.complete(ctx, model, history)
		if err != nil {
			if errors.Is(err, errModelNotFound) {
				lastNotFound = model
				continue
			}
			return "", err
		}
		if model != c.model {
			c.model = model
		}
		return text, nil
	}

	return "", fmt.Errorf(
		"the configured model %q could not be found or is inaccessible: update OPENAI_MODEL or set OPENAI_FALLBACK_MODEL to a model your API key can use",
		lastNotFound,
	)
}

func (c *CompletionsClient) candidateModels() []string {
	candidates := []string{c.model}
	if c.fallbackModel != "" && c.fallbackModel != c.model {
		candidates = append(candidates, c.fallbackModel)
	}
	return candidates
}

func (c *CompletionsClient) complete(ctx context.Context, model string, history []Turn) (string, error) {
	reqBody := map[string]interface{}{
		"model":       model,
		"messages":    history,
		"temperature": c.temperature,
		"max_tokens":  c.maxOutputTokens,
	}
	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return "", &ProviderError{Class: "RequestError", Message: err.Error()}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(bodyBytes))
	if err != nil {
		return "", &ProviderError{Class: "RequestError", Message: err.Error()}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", &ProviderError{Class: "APIConnectionError", Message: err.Error()}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", &ProviderError{Class: "APIConnectionError", Message: err.Error()}
	}
	if resp.StatusCode >= 300 {
		return "", statusError(resp.StatusCode, raw)
	}

	var parsed completionsResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return "", &ProviderError{Class: "MalformedResponseError", Message: err.Error()}
	}
	return extractCompletionText(parsed)
}

// completionsResponse keeps message content raw because the provider returns
// either a flat string or a list of typed fragments.
type completionsResponse struct {
	Choices []struct {
		Message struct {
			Content json.RawMessage `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

func extractCompletionText(parsed completionsResponse) (string, error) {
	if len(parsed.Choices) == 0 {
		return "", ErrEmptyResponse
	}
	content := parsed.Choices[0].Message.Content
	if len(content) == 0 || string(content) == "null" {
		return "", ErrEmptyResponse
	}

	var flat string
	if err := json.Unmarshal(content, &flat); err == nil {
		flat = strings.TrimSpace(flat)
		if flat == "" {
			return "", ErrEmptyResponse
		}
		return flat, nil
	}

	var parts []struct {
		Text string `json:"text"`
	}
	if err := json.Unmarshal(content, &parts); err != nil {
		return "", &ProviderError{Class: "MalformedResponseError", Message: "unexpected message content shape"}
	}
	var sb strings.Builder
	for _, part := range parts {
		sb.WriteString(part.Text)
	}
	text := strings.TrimSpace(sb.String())
	if text == "" {
		return "", ErrEmptyResponse
	}
	return text, nil
}
