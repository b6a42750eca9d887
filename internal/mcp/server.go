package mcp

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/devricklin/feishu-digest-bot/internal/biz/domain"
)

// DigestMCPServer exposes the digest admin API as MCP tools
type DigestMCPServer struct {
	server *mcp.Server
	client *Client
}

// NewServer creates a new digest MCP server backed by the admin API client
func NewServer(client *Client) *DigestMCPServer {
	server := mcp.NewServer(&mcp.Implementation{
		Name:    "digest-tools",
		Version: "v1.0.0",
	}, nil)

	s := &DigestMCPServer{
		server: server,
		client: client,
	}

	// Register tools
	s.registerTools()

	return s
}

// registerTools registers all digest MCP tools
func (s *DigestMCPServer) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "digest_preview",
		Description: "Render the digest of the messages collected so far without sending it. Optionally limit to the last hours or to the last N messages per channel.",
	}, s.handlePreview)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "digest_run",
		Description: "Build and deliver the digest now. Delivered messages are cleared from the buffer; on failure they are kept for the next run.",
	}, s.handleRun)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "digest_buffer_summary",
		Description: "Show how many messages are waiting in each channel, with the first and last message time.",
	}, s.handleBufferSummary)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "digest_list_channels",
		Description: "List the channels on the important or excluded list.",
	}, s.handleListChannels)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "digest_add_channel",
		Description: "Add a channel to the important list (shown in full) or the excluded list (never collected). A channel is on at most one list.",
	}, s.handleAddChannel)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "digest_remove_channel",
		Description: "Remove a channel from the important or excluded list.",
	}, s.handleRemoveChannel)
}

// Run starts the MCP server with stdio transport
func (s *DigestMCPServer) Run(ctx context.Context) error {
	return s.server.Run(ctx, &mcp.StdioTransport{})
}

// GetServer returns the underlying MCP server
func (s *DigestMCPServer) GetServer() *mcp.Server {
	return s.server
}

// PreviewInput selects the preview window
type PreviewInput struct {
	Hours int `json:"hours,omitempty" jsonschema:"only include messages from the last hours"`
	Last  int `json:"last,omitempty" jsonschema:"only include the last N messages of each channel"`
}

// PreviewOutput contains the rendered report
type PreviewOutput struct {
	Report string `json:"report"`
	Error  string `json:"error,omitempty"`
}

func (s *DigestMCPServer) handlePreview(ctx context.Context, req *mcp.CallToolRequest, input PreviewInput) (*mcp.CallToolResult, PreviewOutput, error) {
	if input.Hours < 0 || input.Last < 0 {
		return nil, PreviewOutput{Error: "hours and last must not be negative"}, nil
	}
	report, err := s.client.Preview(ctx, input.Hours, input.Last)
	if err != nil {
		return nil, PreviewOutput{Error: err.Error()}, nil
	}
	return nil, PreviewOutput{Report: report}, nil
}

// RunInput is empty - no input needed
type RunInput struct{}

// RunOutput summarizes a digest run
type RunOutput struct {
	RunID        string   `json:"run_id,omitempty"`
	Status       string   `json:"status"`
	Kind         string   `json:"kind,omitempty"`
	Message      string   `json:"message"`
	MessageCount int      `json:"message_count"`
	SnapshotPath string   `json:"snapshot_path,omitempty"`
	Warnings     []string `json:"warnings,omitempty"`
	Error        string   `json:"error,omitempty"`
}

func (s *DigestMCPServer) handleRun(ctx context.Context, req *mcp.CallToolRequest, input RunInput) (*mcp.CallToolResult, RunOutput, error) {
	result, err := s.client.Run(ctx)
	if err != nil {
		return nil, RunOutput{Status: string(domain.DigestStatusFailed), Error: err.Error()}, nil
	}
	return nil, RunOutput{
		RunID:        result.RunID,
		Status:       string(result.Status),
		Kind:         string(result.Kind),
		Message:      describeRun(result),
		MessageCount: result.MessageCount,
		SnapshotPath: result.SnapshotPath,
		Warnings:     result.Warnings,
		Error:        result.Error,
	}, nil
}

// describeRun returns a one-line outcome for the operator
func describeRun(r *domain.DigestResult) string {
	switch r.Status {
	case domain.DigestStatusSuccess:
		return fmt.Sprintf("Digest delivered via %s with %d messages", r.Sink, r.MessageCount)
	case domain.DigestStatusSkipped:
		return "Nothing collected, delivery skipped"
	default:
		return fmt.Sprintf("Digest failed (%s), messages kept for the next run", r.Kind)
	}
}

// BufferSummaryInput is empty - no input needed
type BufferSummaryInput struct{}

// ChannelCount is the buffer state of one channel
type ChannelCount struct {
	Category     string `json:"category"`
	Channel      string `json:"channel"`
	MessageCount int    `json:"message_count"`
	FirstMessage string `json:"first_message,omitempty"`
	LastMessage  string `json:"last_message,omitempty"`
}

// BufferSummaryOutput contains per-channel counts
type BufferSummaryOutput struct {
	Channels []ChannelCount `json:"channels"`
	Total    int            `json:"total"`
	Error    string         `json:"error,omitempty"`
}

func (s *DigestMCPServer) handleBufferSummary(ctx context.Context, req *mcp.CallToolRequest, input BufferSummaryInput) (*mcp.CallToolResult, BufferSummaryOutput, error) {
	summary, err := s.client.BufferSummary(ctx)
	if err != nil {
		return nil, BufferSummaryOutput{Error: err.Error()}, nil
	}
	channels := make([]ChannelCount, 0, len(summary.Summaries))
	for _, sum := range summary.Summaries {
		count := ChannelCount{
			Category:     string(sum.Category),
			Channel:      sum.Channel,
			MessageCount: sum.MessageCount,
		}
		if !sum.FirstMessage.IsZero() {
			count.FirstMessage = sum.FirstMessage.Format(time.RFC3339)
			count.LastMessage = sum.LastMessage.Format(time.RFC3339)
		}
		channels = append(channels, count)
	}
	return nil, BufferSummaryOutput{Channels: channels, Total: summary.Total}, nil
}

// ListChannelsInput selects the list
type ListChannelsInput struct {
	List string `json:"list" jsonschema:"the list to show: important or excluded"`
}

// ListChannelsOutput contains the channel names of a list
type ListChannelsOutput struct {
	List     string   `json:"list"`
	Channels []string `json:"channels"`
	Error    string   `json:"error,omitempty"`
}

func (s *DigestMCPServer) handleListChannels(ctx context.Context, req *mcp.CallToolRequest, input ListChannelsInput) (*mcp.CallToolResult, ListChannelsOutput, error) {
	list, err := parseList(input.List)
	if err != nil {
		return nil, ListChannelsOutput{Error: err.Error()}, nil
	}

	entries, err := s.client.ListChannels(ctx, string(list))
	if err != nil {
		return nil, ListChannelsOutput{List: string(list), Error: err.Error()}, nil
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name)
	}
	return nil, ListChannelsOutput{List: string(list), Channels: names}, nil
}

// ChannelInput names a channel on a list
type ChannelInput struct {
	List string `json:"list" jsonschema:"the list: important or excluded"`
	Name string `json:"name" jsonschema:"the channel name, with or without a leading #"`
}

// ChannelOutput is the output of channel list changes
type ChannelOutput struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
}

func (s *DigestMCPServer) handleAddChannel(ctx context.Context, req *mcp.CallToolRequest, input ChannelInput) (*mcp.CallToolResult, ChannelOutput, error) {
	list, name, err := parseChannelInput(input)
	if err != nil {
		return nil, ChannelOutput{Error: err.Error()}, nil
	}

	if _, err := s.client.AddChannel(ctx, string(list), name); err != nil {
		return nil, ChannelOutput{Error: err.Error()}, nil
	}
	return nil, ChannelOutput{Success: true, Message: fmt.Sprintf("Channel %s added to the %s list", name, list)}, nil
}

func (s *DigestMCPServer) handleRemoveChannel(ctx context.Context, req *mcp.CallToolRequest, input ChannelInput) (*mcp.CallToolResult, ChannelOutput, error) {
	list, name, err := parseChannelInput(input)
	if err != nil {
		return nil, ChannelOutput{Error: err.Error()}, nil
	}

	if err := s.client.RemoveChannel(ctx, string(list), name); err != nil {
		return nil, ChannelOutput{Error: err.Error()}, nil
	}
	return nil, ChannelOutput{Success: true, Message: fmt.Sprintf("Channel %s removed from the %s list", name, list)}, nil
}

func parseList(list string) (domain.ChannelList, error) {
	l := domain.ChannelList(strings.ToLower(strings.TrimSpace(list)))
	if !l.Valid() {
		return "", fmt.Errorf("list must be %q or %q, got %q", domain.ListImportant, domain.ListExcluded, list)
	}
	return l, nil
}

func parseChannelInput(input ChannelInput) (domain.ChannelList, string, error) {
	list, err := parseList(input.List)
	if err != nil {
		return "", "", err
	}
	name := domain.NormalizeChannelName(input.Name)
	if name == "" {
		return "", "", fmt.Errorf("name is required")
	}
	return list, name, nil
}
