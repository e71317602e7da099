package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// Trading modes accepted by the server.
const (
	ModeDemo = "demo"
	ModeReal = "real"
)

// Settings is the server's runtime settings resource. It is independent
// of session and message state.
type Settings struct {
	TradingMode     string `json:"trading_mode"`
	ClaudeModel     string `json:"claude_model"`
	ClaudeMaxTokens int    `json:"claude_max_tokens"`
}

// SettingsPatch is a partial settings update; nil fields are left
// unchanged by the server.
type SettingsPatch struct {
	TradingMode     *string `json:"trading_mode,omitempty"`
	ClaudeModel     *string `json:"claude_model,omitempty"`
	ClaudeMaxTokens *int    `json:"claude_max_tokens,omitempty"`
}

// Settings fetches the current server settings.
func (c *Client) Settings(ctx context.Context) (Settings, error) {
	var settings Settings
	if err := c.getJSON(ctx, "/api/settings", &settings); err != nil {
		return Settings{}, err
	}
	return settings, nil
}

// UpdateSettings applies a partial update and returns the new state.
func (c *Client) UpdateSettings(ctx context.Context, patch SettingsPatch) (Settings, error) {
	jsonData, err := json.Marshal(patch)
	if err != nil {
		return Settings{}, fmt.Errorf("failed to marshal settings patch: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "PUT", c.baseURL+"/api/settings", bytes.NewBuffer(jsonData))
	if err != nil {
		return Settings{}, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Settings{}, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return Settings{}, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		// The server reports validation failures as {"detail": ...}.
		var apiErr struct {
			Detail string `json:"detail"`
		}
		if json.Unmarshal(body, &apiErr) == nil && apiErr.Detail != "" {
			return Settings{}, fmt.Errorf("failed to update settings: %s", apiErr.Detail)
		}
		return Settings{}, fmt.Errorf("API error: %s - %s", resp.Status, string(body))
	}

	var settings Settings
	if err := json.Unmarshal(body, &settings); err != nil {
		return Settings{}, fmt.Errorf("failed to unmarshal response: %w", err)
	}
	return settings, nil
}
