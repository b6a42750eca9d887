package moonshot

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestComplete(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		var req struct {
			Model    string `json:"model"`
			Messages []struct {
				Role    string `json:"role"`
				Content string `json:"content"`
			} `json:"messages"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if req.Model != defaultModel {
			t.Errorf("unexpected model %s", req.Model)
		}
		if len(req.Messages) != 2 || req.Messages[1].Content != "alice: ship it" {
			t.Errorf("unexpected messages %+v", req.Messages)
		}

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id":"1","object":"chat.completion","choices":[{"index":0,"message":{"role":"assistant","content":"  Alice wants to ship.  "},"finish_reason":"stop"}]}`))
	}))
	defer server.Close()

	client := NewClient("key", "", server.URL)
	got, err := client.Complete(context.Background(), "summarize", "alice: ship it", 100)
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if got != "Alice wants to ship." {
		t.Errorf("unexpected answer %q", got)
	}
}

func TestComplete_NoChoices(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id":"1","object":"chat.completion","choices":[]}`))
	}))
	defer server.Close()

	_, err := NewClient("key", "m", server.URL).Complete(context.Background(), "s", "u", 10)
	if err == nil {
		t.Fatal("expected error")
	}
}
