package api

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// Health is the server's health and tool-connectivity report.
type Health struct {
	Status        string   `json:"status"`
	MCPConnected  bool     `json:"mcp_connected"`
	MCPToolsCount int      `json:"mcp_tools_count"`
	MCPTools      []string `json:"mcp_tools"`
	TradingMode   string   `json:"trading_mode,omitempty"`
	ClaudeModel   string   `json:"claude_model,omitempty"`
}

// Health performs a one-shot health check.
func (c *Client) Health(ctx context.Context) (Health, error) {
	var health Health
	if err := c.getJSON(ctx, "/health", &health); err != nil {
		return Health{}, err
	}
	return health, nil
}

// getJSON performs a GET and unmarshals the JSON response into v.
func (c *Client) getJSON(ctx context.Context, path string, v interface{}) error {
	req, err := http.NewRequestWithContext(ctx, "GET", c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("API error: %s - %s", resp.Status, string(body))
	}

	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("failed to unmarshal response: %w", err)
	}
	return nil
}
