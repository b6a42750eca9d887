package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/devricklin/feishu-digest-bot/internal/biz/domain"
)

// Client is the HTTP client for the digest admin API
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a new MCP client
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			// A run includes the delivery timeout
			Timeout: 90 * time.Second,
		},
	}
}

// BufferSummary is the per-channel overview of the buffer
type BufferSummary struct {
	Summaries []domain.ChannelSummary `json:"summaries"`
	Total     int                     `json:"total"`
}

// ============ Digest ============

// Preview renders the current buffer. hours and last are ignored when zero.
func (c *Client) Preview(ctx context.Context, hours, last int) (string, error) {
	query := url.Values{}
	if hours > 0 {
		query.Set("hours", strconv.Itoa(hours))
	}
	if last > 0 {
		query.Set("last", strconv.Itoa(last))
	}
	path := "/api/digest/preview"
	if len(query) > 0 {
		path += "?" + query.Encode()
	}

	resp, err := c.do(ctx, http.MethodGet, path, nil)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}
	return string(body), nil
}

// Run runs the digest job now
func (c *Client) Run(ctx context.Context) (*domain.DigestResult, error) {
	var result domain.DigestResult
	if err := c.post(ctx, "/api/digest/run", nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// RecentRuns returns the latest digest runs
func (c *Client) RecentRuns(ctx context.Context, limit int) ([]*domain.DigestResult, error) {
	var result struct {
		Runs []*domain.DigestResult `json:"runs"`
	}
	if err := c.get(ctx, fmt.Sprintf("/api/digest/runs?limit=%d", limit), &result); err != nil {
		return nil, err
	}
	return result.Runs, nil
}

// ============ Buffer ============

// BufferSummary gets the per-channel counts of the buffer
func (c *Client) BufferSummary(ctx context.Context) (*BufferSummary, error) {
	var result BufferSummary
	if err := c.get(ctx, "/api/buffer/summary", &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// ============ Channels ============

// ListChannels gets the channels of a list
func (c *Client) ListChannels(ctx context.Context, list string) ([]*domain.ChannelEntry, error) {
	var result struct {
		Channels []*domain.ChannelEntry `json:"channels"`
	}
	if err := c.get(ctx, "/api/channels/"+url.PathEscape(list), &result); err != nil {
		return nil, err
	}
	return result.Channels, nil
}

// AddChannel adds a channel to a list
func (c *Client) AddChannel(ctx context.Context, list, name string) (*domain.ChannelEntry, error) {
	body := map[string]string{"name": name, "added_by": "mcp"}
	var result struct {
		Channel *domain.ChannelEntry `json:"channel"`
	}
	if err := c.post(ctx, "/api/channels/"+url.PathEscape(list), body, &result); err != nil {
		return nil, err
	}
	return result.Channel, nil
}

// RemoveChannel removes a channel from a list
func (c *Client) RemoveChannel(ctx context.Context, list, name string) error {
	resp, err := c.do(ctx, http.MethodDelete, fmt.Sprintf("/api/channels/%s/%s", url.PathEscape(list), url.PathEscape(name)), nil)
	if err != nil {
		return err
	}
	resp.Body.Close()
	return nil
}

// ============ HTTP Helpers ============

func (c *Client) get(ctx context.Context, path string, result interface{}) error {
	resp, err := c.do(ctx, http.MethodGet, path, nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	return decode(resp, result)
}

func (c *Client) post(ctx context.Context, path string, body interface{}, result interface{}) error {
	var reader io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal body: %w", err)
		}
		reader = bytes.NewReader(jsonBody)
	}

	resp, err := c.do(ctx, http.MethodPost, path, reader)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	return decode(resp, result)
}

// do sends the request and turns non-200 responses into errors
func (c *Client) do(ctx context.Context, method, path string, body io.Reader) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("HTTP %s failed: %w", method, err)
	}

	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		respBody, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("HTTP %d: %s", resp.StatusCode, strings.TrimSpace(string(respBody)))
	}
	return resp, nil
}

func decode(resp *http.Response, result interface{}) error {
	if result == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
