package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

type completionsRequest struct {
	Model    string `json:"model"`
	Messages []Turn `json:"messages"`
}

func newCompletionsServer(t *testing.T, handler func(w http.ResponseWriter, req completionsRequest)) (*httptest.Server, *[]string) {
	t.Helper()
	var models []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("Expected path /chat/completions, got %s", r.URL.Path)
		}
		var req completionsRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("Failed to decode request body: %v", err)
		}
		models = append(models, req.Model)
		handler(w, req)
	}))
	t.Cleanup(srv.Close)
	return srv, &models
}

func mustCompletionsClient(t *testing.T, cfg CompletionsConfig) *CompletionsClient {
	t.Helper()
	client, err := NewCompletionsClient(cfg)
	if err != nil {
		t.Fatalf("NewCompletionsClient failed: %v", err)
	}
	return client
}

func writeFlatReply(w http.ResponseWriter, text string) {
	json.NewEncoder(w).Encode(map[string]interface{}{
		"choices": []map[string]interface{}{
			{"message": map[string]interface{}{"content": text}},
		},
	})
}

func writeModelNotFound(w http.ResponseWriter) {
	w.WriteHeader(http.StatusNotFound)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"error": map[string]interface{}{
			"message": "The model does not exist",
			"type":    "invalid_request_error",
			"code":    "model_not_found",
		},
	})
}

func TestCompletionsClient_MissingAPIKey(t *testing.T) {
	_, err := NewCompletionsClient(CompletionsConfig{Model: "m"})
	if err == nil {
		t.Fatal("Expected constructor error for missing API key")
	}
	if !strings.Contains(err.Error(), "OPENAI_API_KEY") {
		t.Errorf("Expected error to mention OPENAI_API_KEY, got %q", err)
	}
}

func TestCompletionsClient_FlatContent(t *testing.T) {
	srv, _ := newCompletionsServer(t, func(w http.ResponseWriter, req completionsRequest) {
		writeFlatReply(w, "  hello there  ")
	})

	client := mustCompletionsClient(t, CompletionsConfig{BaseURL: srv.URL, APIKey: "k", Model: "primary"})
	text, err := client.GetCompletion(context.Background(), []Turn{{Role: RoleUser, Content: "hi"}})
	if err != nil {
		t.Fatalf("GetCompletion failed: %v", err)
	}
	if text != "hello there" {
		t.Errorf("Expected trimmed reply 'hello there', got %q", text)
	}
}

func TestCompletionsClient_FragmentListContent(t *testing.T) {
	srv, _ := newCompletionsServer(t, func(w http.ResponseWriter, req completionsRequest) {
		json.NewEncoder(w).Encode(map[string]interface{}{
			"choices": []map[string]interface{}{
				{"message": map[string]interface{}{"content": []map[string]string{
					{"type": "text", "text": "part one "},
					{"type": "text", "text": ""},
					{"type": "text", "text": "part two"},
				}}},
			},
		})
	})

	client := mustCompletionsClient(t, CompletionsConfig{BaseURL: srv.URL, APIKey: "k", Model: "primary"})
	text, err := client.GetCompletion(context.Background(), []Turn{{Role: RoleUser, Content: "hi"}})
	if err != nil {
		t.Fatalf("GetCompletion failed: %v", err)
	}
	if text != "part one part two" {
		t.Errorf("Expected concatenated fragments, got %q", text)
	}
}

func TestCompletionsClient_FallbackAndStickiness(t *testing.T) {
	srv, models := newCompletionsServer(t, func(w http.ResponseWriter, req completionsRequest) {
		if req.Model == "primary" {
			writeModelNotFound(w)
			return
		}
		writeFlatReply(w, "from fallback")
	})

	client := mustCompletionsClient(t, CompletionsConfig{
		BaseURL: srv.URL, APIKey: "k", Model: "primary", FallbackModel: "fallback",
	})

	text, err := client.GetCompletion(context.Background(), []Turn{{Role: RoleUser, Content: "hi"}})
	if err != nil {
		t.Fatalf("GetCompletion failed: %v", err)
	}
	if text != "from fallback" {
		t.Errorf("Expected fallback reply, got %q", text)
	}

	if _, err := client.GetCompletion(context.Background(), []Turn{{Role: RoleUser, Content: "again"}}); err != nil {
		t.Fatalf("Second GetCompletion failed: %v", err)
	}

	want := []string{"primary", "fallback", "fallback"}
	if len(*models) != len(want) {
		t.Fatalf("Expected %d provider calls, got %d: %v", len(want), len(*models), *models)
	}
	for i, m := range want {
		if (*models)[i] != m {
			t.Errorf("Call %d: expected model %q, got %q", i, m, (*models)[i])
		}
	}
}

func TestCompletionsClient_AllCandidatesNotFound(t *testing.T) {
	srv, _ := newCompletionsServer(t, func(w http.ResponseWriter, req completionsRequest) {
		writeModelNotFound(w)
	})

	client := mustCompletionsClient(t, CompletionsConfig{
		BaseURL: srv.URL, APIKey: "k", Model: "primary", FallbackModel: "fallback",
	})

	_, err := client.GetCompletion(context.Background(), []Turn{{Role: RoleUser, Content: "hi"}})
	if err == nil {
		t.Fatal("Expected error when all candidates are unknown")
	}
	if !strings.Contains(err.Error(), "fallback") {
		t.Errorf("Expected error to name the last attempted model, got %q", err)
	}
}

func TestCompletionsClient_ProviderErrorFailsImmediately(t *testing.T) {
	srv, models := newCompletionsServer(t, func(w http.ResponseWriter, req completionsRequest) {
		w.WriteHeader(http.StatusInternalServerError)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"error": map[string]interface{}{
				"message": "overloaded",
				"type":    "server_error",
			},
		})
	})

	client := mustCompletionsClient(t, CompletionsConfig{
		BaseURL: srv.URL, APIKey: "k", Model: "primary", FallbackModel: "fallback",
	})

	_, err := client.GetCompletion(context.Background(), []Turn{{Role: RoleUser, Content: "hi"}})
	if err == nil {
		t.Fatal("Expected provider error")
	}

	var provErr *ProviderError
	if !errors.As(err, &provErr) {
		t.Fatalf("Expected *ProviderError, got %T: %v", err, err)
	}
	if provErr.Class != "server_error" {
		t.Errorf("Expected class 'server_error', got %q", provErr.Class)
	}
	if len(*models) != 1 {
		t.Errorf("Expected no fallback attempt after a non-404 error, got %d calls", len(*models))
	}
}

func TestCompletionsClient_EmptyContent(t *testing.T) {
	tests := []struct {
		name string
		body map[string]interface{}
	}{
		{"blank string", map[string]interface{}{
			"choices": []map[string]interface{}{
				{"message": map[string]interface{}{"content": "   "}},
			},
		}},
		{"null content", map[string]interface{}{
			"choices": []map[string]interface{}{
				{"message": map[string]interface{}{"content": nil}},
			},
		}},
		{"empty fragment list", map[string]interface{}{
			"choices": []map[string]interface{}{
				{"message": map[string]interface{}{"content": []map[string]string{}}},
			},
		}},
		{"no choices", map[string]interface{}{
			"choices": []map[string]interface{}{},
		}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			srv, _ := newCompletionsServer(t, func(w http.ResponseWriter, req completionsRequest) {
				json.NewEncoder(w).Encode(tc.body)
			})

			client := mustCompletionsClient(t, CompletionsConfig{BaseURL: srv.URL, APIKey: "k", Model: "primary"})
			_, err := client.GetCompletion(context.Background(), []Turn{{Role: RoleUser, Content: "hi"}})
			if !errors.Is(err, ErrEmptyResponse) {
				t.Errorf("Expected ErrEmptyResponse, got %v", err)
			}
		})
	}
}
