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

// ResponsesConfig holds the settings for the responses-API client.
type ResponsesConfig struct {
	BaseURL         string // defaults to the public OpenAI endpoint
	APIKey          string
	Model           string
	MaxOutputTokens int
}

// ResponsesClient calls the provider's responses endpoint. It issues exactly
// one call against the configured model; there is no fallback.
type ResponsesClient struct {
	httpClient      *http.Client
	baseURL         string
	apiKey          string
	model           string
	maxOutputTokens int
}

var _ Client = (*ResponsesClient)(nil)

func NewResponsesClient(cfg ResponsesConfig) (*ResponsesClient, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("missing OpenAI API key: set the OPENAI_API_KEY environment variable or configure it in .env")
	}
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &ResponsesClient{
		httpClient:      &http.Client{Timeout: 90 * time.Second},
		baseURL:         strings.TrimRight(baseURL, "/"),
		apiKey:          cfg.APIKey,
		model:           cfg.Model,
		maxOutputTokens: cfg.MaxOutputTokens,
	}, nil
}

type responsesContentItem struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type responsesInputItem struct {
	Role    string                 `json:"role"`
	Content []responsesContentItem `json:"content"`
}

// formatTurn wraps a history turn in the content-type tag the responses API
// expects: assistant turns carry output_text, everything else input_text.
func formatTurn(turn Turn) responsesInputItem {
	contentType := "input_text"
	if turn.Role == RoleAssistant {
		contentType = "output_text"
	}
	return responsesInputItem{
		Role:    turn.Role,
		Content: []responsesContentItem{{Type: contentType, Text: turn.Content}},
	}
}

func (c *ResponsesClient) GetCompletion(ctx context.Context, history []Turn) (string, error) {
	input := make([]responsesInputItem, 0, len(history))
	for _, turn := range history {
		input = append(input, formatTurn(turn))
	}

	reqBody := map[string]interface{}{
		"model":             c.model,
		"input":             input,
		"max_output_tokens": c.maxOutputTokens,
	}
	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return "", &ProviderError{Class: "RequestError", Message: err.Error()}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/responses", bytes.NewReader(bodyBytes))
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
		err := statusError(resp.StatusCode, raw)
		if errors.Is(err, errModelNotFound) {
			// No fallback here: an unknown model is just another provider error.
			return "", &ProviderError{Class: "NotFoundError", Message: fmt.Sprintf("model %q could not be found or is inaccessible", c.model)}
		}
		return "", err
	}

	var parsed responsesResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return "", &ProviderError{Class: "MalformedResponseError", Message: err.Error()}
	}
	return extractResponseText(parsed)
}

type responsesResponse struct {
	OutputText string `json:"output_text"`
	Output     []struct {
		Content []struct {
			Text string `json:"text"`
		} `json:"content"`
	} `json:"output"`
}

// extractResponseText prefers the flat output_text shortcut and otherwise
// concatenates every non-empty fragment from the structured output list.
func extractResponseText(parsed responsesResponse) (string, error) {
	if text := strings.TrimSpace(parsed.OutputText); text != "" {
		return text, nil
	}

	var sb strings.Builder
	for _, output := range parsed.Output {
		for _, item := range output.Content {
			sb.WriteString(item.Text)
		}
	}
	text := strings.TrimSpace(sb.String())
	if text == "" {
		return "", ErrEmptyResponse
	}
	return text, nil
}
