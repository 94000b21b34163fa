package llm

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

// ErrEmptyResponse is returned when the provider reply contains no text
// content after extraction.
var ErrEmptyResponse = errors.New("provider response did not contain text content")

// errModelNotFound marks a provider "model not found" condition. The
// completions client treats it as retryable with the fallback model; it never
// escapes GetCompletion.
var errModelNotFound = errors.New("model not found")

// ProviderError normalizes transport, protocol and provider-side failures
// into a single error kind carrying the provider's error class and message.
type ProviderError struct {
	Class   string
	Message string
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("OpenAI API error (%s): %s", e.Class, e.Message)
}

type apiErrorBody struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
		Code    string `json:"code"`
	} `json:"error"`
}

// statusError maps a non-2xx provider response onto the local error taxonomy.
// HTTP 404 and the model_not_found error code both signal a bad model name.
func statusError(status int, raw []byte) error {
	var body apiErrorBody
	_ = json.Unmarshal(raw, &body)

	if status == http.StatusNotFound || body.Error.Code == "model_not_found" {
		return errModelNotFound
	}

	class := body.Error.Type
	if class == "" {
		class = fmt.Sprintf("APIStatusError %d", status)
	}
	message := body.Error.Message
	if message == "" {
		message = string(raw)
	}
	return &ProviderError{Class: class, Message: message}
}
