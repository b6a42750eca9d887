package mcp

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/devricklin/feishu-digest-bot/internal/biz/domain"
)

// fakeAPI mimics the digest admin API
type fakeAPI struct {
	channels map[string][]string
	lastBody string
}

func newFakeAPI(t *testing.T) (*fakeAPI, *httptest.Server) {
	api := &fakeAPI{channels: map[string][]string{"important": {"annonces"}, "excluded": {}}}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/api/digest/preview":
			w.Write([]byte("preview hours=" + r.URL.Query().Get("hours") + " last=" + r.URL.Query().Get("last")))
		case r.URL.Path == "/api/digest/run" && r.Method == http.MethodPost:
			json.NewEncoder(w).Encode(domain.DigestResult{
				RunID:        "run-1",
				Status:       domain.DigestStatusFailed,
				Kind:         domain.KindDeliveryTimeout,
				Error:        "context deadline exceeded",
				Sink:         "smtp",
				MessageCount: 4,
			})
		case r.URL.Path == "/api/buffer/summary":
			json.NewEncoder(w).Encode(map[string]interface{}{
				"summaries": []domain.ChannelSummary{{
					Category:     domain.CategoryGeneral,
					Channel:      "dev",
					MessageCount: 2,
					FirstMessage: time.Date(2025, 1, 5, 8, 0, 0, 0, time.UTC),
					LastMessage:  time.Date(2025, 1, 5, 9, 0, 0, 0, time.UTC),
				}},
				"total": 2,
			})
		case strings.HasPrefix(r.URL.Path, "/api/channels/"):
			list, name, _ := strings.Cut(strings.TrimPrefix(r.URL.Path, "/api/channels/"), "/")
			switch r.Method {
			case http.MethodGet:
				var entries []domain.ChannelEntry
				for _, n := range api.channels[list] {
					entries = append(entries, domain.ChannelEntry{List: domain.ChannelList(list), Name: n})
				}
				json.NewEncoder(w).Encode(map[string]interface{}{"channels": entries})
			case http.MethodPost:
				body, _ := io.ReadAll(r.Body)
				api.lastBody = string(body)
				var req struct {
					Name string `json:"name"`
				}
				json.Unmarshal(body, &req)
				api.channels[list] = append(api.channels[list], req.Name)
				sort.Strings(api.channels[list])
				json.NewEncoder(w).Encode(map[string]interface{}{"success": true, "channel": domain.ChannelEntry{Name: req.Name}})
			case http.MethodDelete:
				if name == "missing" {
					w.WriteHeader(http.StatusInternalServerError)
					w.Write([]byte(`{"error":"database is locked"}`))
					return
				}
				json.NewEncoder(w).Encode(map[string]interface{}{"success": true})
			}
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(server.Close)
	return api, server
}

func TestHandlePreview(t *testing.T) {
	_, api := newFakeAPI(t)
	s := NewServer(NewClient(api.URL))

	_, out, err := s.handlePreview(context.Background(), nil, PreviewInput{Hours: 24})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if out.Report != "preview hours=24 last=" {
		t.Errorf("Unexpected report %q", out.Report)
	}

	_, out, _ = s.handlePreview(context.Background(), nil, PreviewInput{Last: -1})
	if out.Error == "" {
		t.Error("Expected error for negative last")
	}
}

func TestHandleRun_ReportsFailureKind(t *testing.T) {
	_, api := newFakeAPI(t)
	s := NewServer(NewClient(api.URL))

	_, out, err := s.handleRun(context.Background(), nil, RunInput{})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if out.Status != "failed" || out.Kind != string(domain.KindDeliveryTimeout) {
		t.Errorf("Unexpected output %+v", out)
	}
	if !strings.Contains(out.Message, "kept for the next run") {
		t.Errorf("Unexpected message %q", out.Message)
	}
}

func TestHandleBufferSummary(t *testing.T) {
	_, api := newFakeAPI(t)
	s := NewServer(NewClient(api.URL))

	_, out, _ := s.handleBufferSummary(context.Background(), nil, BufferSummaryInput{})
	if out.Total != 2 || len(out.Channels) != 1 {
		t.Fatalf("Unexpected output %+v", out)
	}
	if out.Channels[0].FirstMessage != "2025-01-05T08:00:00Z" {
		t.Errorf("Unexpected first message %q", out.Channels[0].FirstMessage)
	}
}

func TestHandleChannels(t *testing.T) {
	fake, api := newFakeAPI(t)
	s := NewServer(NewClient(api.URL))
	ctx := context.Background()

	_, added, _ := s.handleAddChannel(ctx, nil, ChannelInput{List: "Important", Name: "#releases"})
	if !added.Success {
		t.Fatalf("Add failed: %s", added.Error)
	}
	if !strings.Contains(fake.lastBody, `"added_by":"mcp"`) {
		t.Errorf("Expected added_by mcp, got %s", fake.lastBody)
	}

	_, listed, _ := s.handleListChannels(ctx, nil, ListChannelsInput{List: "important"})
	if strings.Join(listed.Channels, ",") != "annonces,releases" {
		t.Errorf("Unexpected channels %v", listed.Channels)
	}

	_, removed, _ := s.handleRemoveChannel(ctx, nil, ChannelInput{List: "excluded", Name: "missing"})
	if removed.Success || !strings.Contains(removed.Error, "HTTP 500") {
		t.Errorf("Expected HTTP error, got %+v", removed)
	}

	_, bad, _ := s.handleAddChannel(ctx, nil, ChannelInput{List: "favorites", Name: "dev"})
	if bad.Success || bad.Error == "" {
		t.Errorf("Expected invalid list error, got %+v", bad)
	}

	_, empty, _ := s.handleAddChannel(ctx, nil, ChannelInput{List: "excluded", Name: " # "})
	if empty.Error != "name is required" {
		t.Errorf("Expected name error, got %+v", empty)
	}
}

func TestServer_ToolsOverTransport(t *testing.T) {
	_, api := newFakeAPI(t)
	s := NewServer(NewClient(api.URL))
	ctx := context.Background()

	clientTransport, serverTransport := mcp.NewInMemoryTransports()
	serverSession, err := s.GetServer().Connect(ctx, serverTransport, nil)
	if err != nil {
		t.Fatalf("Server connect failed: %v", err)
	}
	defer serverSession.Close()

	client := mcp.NewClient(&mcp.Implementation{Name: "test-client", Version: "v0.0.1"}, nil)
	session, err := client.Connect(ctx, clientTransport, nil)
	if err != nil {
		t.Fatalf("Client connect failed: %v", err)
	}
	defer session.Close()

	tools, err := session.ListTools(ctx, nil)
	if err != nil {
		t.Fatalf("ListTools failed: %v", err)
	}
	var names []string
	for _, tool := range tools.Tools {
		names = append(names, tool.Name)
	}
	sort.Strings(names)
	want := "digest_add_channel,digest_buffer_summary,digest_list_channels,digest_preview,digest_remove_channel,digest_run"
	if strings.Join(names, ",") != want {
		t.Errorf("Unexpected tools %v", names)
	}

	res, err := session.CallTool(ctx, &mcp.CallToolParams{
		Name:      "digest_preview",
		Arguments: map[string]any{"last": 3},
	})
	if err != nil {
		t.Fatalf("CallTool failed: %v", err)
	}
	if res.IsError || len(res.Content) == 0 {
		t.Fatalf("Unexpected result %+v", res)
	}
	text, ok := res.Content[0].(*mcp.TextContent)
	if !ok || !strings.Contains(text.Text, "last=3") {
		t.Errorf("Unexpected content %+v", res.Content[0])
	}
}
