package mcp

import (
	"context"
	"testing"
)

func TestClient_RecentRunsAndErrors(t *testing.T) {
	_, api := newFakeAPI(t)
	client := NewClient(api.URL + "/")

	if _, err := client.RecentRuns(context.Background(), 5); err == nil {
		t.Error("Expected 404 error for unknown route")
	}

	result, err := client.Run(context.Background())
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if result.RunID != "run-1" || result.MessageCount != 4 {
		t.Errorf("Unexpected result %+v", result)
	}
}

func TestClient_Unreachable(t *testing.T) {
	client := NewClient("http://127.0.0.1:1")

	if _, err := client.BufferSummary(context.Background()); err == nil {
		t.Error("Expected connection error")
	}
}
