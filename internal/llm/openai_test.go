package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

type capturedRequest struct {
	Model          string `json:"model"`
	ResponseFormat *struct {
		Type string `json:"type"`
	} `json:"response_format"`
	Messages []struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	} `json:"messages"`
}

func newFakeOpenAI(t *testing.T, answer string, got *capturedRequest) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chat/completions" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(got); err != nil {
			t.Errorf("decode request: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"id":     "chatcmpl-test",
			"object": "chat.completion",
			"model":  got.Model,
			"choices": []map[string]interface{}{
				{"index": 0, "finish_reason": "stop", "message": map[string]string{"role": "assistant", "content": answer}},
			},
		})
	}))
}

func TestOpenAIClient_Chat(t *testing.T) {
	var got capturedRequest
	srv := newFakeOpenAI(t, "olá", &got)
	defer srv.Close()

	c := NewOpenAIClient(Options{APIKey: "test", BaseURL: srv.URL + "/v1"})
	answer, err := c.Chat(context.Background(), []Message{
		{Role: RoleSystem, Content: "sys"},
		{Role: "doctor", Content: "hello"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if answer != "olá" {
		t.Errorf("expected answer 'olá', got %q", answer)
	}
	if got.Model != "gpt-4o-mini" {
		t.Errorf("expected default chat model, got %q", got.Model)
	}
	if len(got.Messages) != 2 || got.Messages[1].Role != RoleUser {
		t.Errorf("expected unknown role coerced to user, got %+v", got.Messages)
	}
}

func TestOpenAIClient_SummarizeRequestsJSON(t *testing.T) {
	var got capturedRequest
	srv := newFakeOpenAI(t, `{"symptoms":[]}`, &got)
	defer srv.Close()

	c := NewOpenAIClient(Options{APIKey: "test", BaseURL: srv.URL + "/v1", ChatModel: "chat-model", SummaryModel: "summary-model"})
	answer, err := c.Summarize(context.Background(), "system", "prompt")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if answer != `{"symptoms":[]}` {
		t.Errorf("unexpected answer %q", answer)
	}
	if got.Model != "summary-model" {
		t.Errorf("expected summary model, got %q", got.Model)
	}
	if got.ResponseFormat == nil || got.ResponseFormat.Type != "json_object" {
		t.Errorf("expected json_object response format, got %+v", got.ResponseFormat)
	}
}

func TestOpenAIClient_ChatError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":{"message":"boom","type":"server_error"}}`, http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := NewOpenAIClient(Options{APIKey: "test", BaseURL: srv.URL + "/v1"})
	if _, err := c.Chat(context.Background(), []Message{{Role: RoleUser, Content: "x"}}); err == nil {
		t.Fatal("expected error from failing endpoint")
	}
}
