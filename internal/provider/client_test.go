package provider

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func completionsServer(t *testing.T, capture *map[string]any, reply string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		var req map[string]any
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if capture != nil {
			*capture = req
		}
		json.NewEncoder(w).Encode(map[string]any{
			"model": req["model"],
			"choices": []map[string]any{
				{"message": map[string]any{"role": "assistant", "content": reply}, "finish_reason": "stop"},
			},
			"usage": map[string]any{"prompt_tokens": 12, "completion_tokens": 7, "total_tokens": 19},
		})
	}))
}

func TestClient_Invoke(t *testing.T) {
	var captured map[string]any
	server := completionsServer(t, &captured, "a fine draft")
	defer server.Close()

	client := NewClient(server.URL, "secret", "llama3", nil)
	resp, err := client.Invoke(context.Background(), &InvokeRequest{
		System:  "You write blog posts.",
		Prompt:  "Write about channels.",
		Context: map[string]any{"tone": "casual"},
	})
	if err != nil {
		t.Fatalf("Invoke: %v", err)
	}

	if resp.Text != "a fine draft" {
		t.Errorf("text: %q", resp.Text)
	}
	if resp.Model != "llama3" {
		t.Errorf("model: %q, want the default", resp.Model)
	}
	if resp.Usage.TotalTokens != 19 {
		t.Errorf("usage: %+v", resp.Usage)
	}

	messages := captured["messages"].([]any)
	if len(messages) != 2 {
		t.Fatalf("messages: %v", messages)
	}
	system := messages[0].(map[string]any)
	if system["role"] != "system" || system["content"] != "You write blog posts." {
		t.Errorf("system message: %v", system)
	}
	user := messages[1].(map[string]any)["content"].(string)
	if !strings.Contains(user, "Write about channels.") || !strings.Contains(user, `"tone":"casual"`) {
		t.Errorf("user message missing prompt or context: %q", user)
	}
}

func TestClient_Invoke_ModelOverride(t *testing.T) {
	var captured map[string]any
	server := completionsServer(t, &captured, "ok")
	defer server.Close()

	client := NewClient(server.URL, "", "llama3", nil)
	temp := 0.1
	_, err := client.Invoke(context.Background(), &InvokeRequest{
		Prompt:      "hi",
		Model:       "mistral",
		Temperature: &temp,
	})
	if err != nil {
		t.Fatalf("Invoke: %v", err)
	}
	if captured["model"] != "mistral" {
		t.Errorf("model: %v", captured["model"])
	}
	if captured["temperature"] != 0.1 {
		t.Errorf("temperature: %v", captured["temperature"])
	}
}

func TestClient_Invoke_AuthHeader(t *testing.T) {
	var gotAuth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]any{"content": "ok"}},
			},
		})
	}))
	defer server.Close()

	client := NewClient(server.URL, "sk-test", "llama3", nil)
	if _, err := client.Invoke(context.Background(), &InvokeRequest{Prompt: "hi"}); err != nil {
		t.Fatalf("Invoke: %v", err)
	}
	if gotAuth != "Bearer sk-test" {
		t.Errorf("auth header: %q", gotAuth)
	}
}

func TestClient_Invoke_APIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error": "model not loaded"}`, http.StatusServiceUnavailable)
	}))
	defer server.Close()

	client := NewClient(server.URL, "", "llama3", nil)
	_, err := client.Invoke(context.Background(), &InvokeRequest{Prompt: "hi"})
	if err == nil || !strings.Contains(err.Error(), "503") {
		t.Fatalf("expected status error, got %v", err)
	}
}

func TestClient_Invoke_NoChoices(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"choices": []any{}})
	}))
	defer server.Close()

	client := NewClient(server.URL, "", "llama3", nil)
	if _, err := client.Invoke(context.Background(), &InvokeRequest{Prompt: "hi"}); err == nil {
		t.Fatal("expected error for empty choices")
	}
}
