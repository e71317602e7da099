package app

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"KISChat/internal/api"
)

const requestTimeout = 10 * time.Second

// handleCommand handles slash commands. The boolean reports whether the
// loop should exit.
func (a *App) handleCommand(ctx context.Context, cmd string) (bool, error) {
	parts := strings.Fields(cmd)
	if len(parts) == 0 {
		return false, nil
	}

	switch parts[0] {
	case "/quit", "/exit":
		return true, nil

	case "/new":
		sess := a.sessions.CreateSession()
		fmt.Printf("Started new session: %s\n", sess.ID)
		return false, nil

	case "/sessions":
		activeID := a.sessions.ActiveID()
		fmt.Println("\nSessions:")
		for i, sess := range a.sessions.Sessions() {
			current := ""
			if sess.ID == activeID {
				current = " (current)"
			}
			fmt.Printf("%d. %s - %s, %d messages%s\n", i+1, sess.ID, sess.Title, sess.MessageCount, current)
		}
		fmt.Println()
		return false, nil

	case "/select":
		if len(parts) < 2 {
			return false, fmt.Errorf("usage: /select <session-id>")
		}
		a.sessions.SelectSession(parts[1])
		active := a.sessions.Active()
		fmt.Printf("Active session: %s (%s)\n", active.Title, active.ID)
		return false, nil

	case "/delete":
		if len(parts) < 2 {
			return false, fmt.Errorf("usage: /delete <session-id>")
		}
		a.sessions.DeleteSession(parts[1])
		active := a.sessions.Active()
		fmt.Printf("Deleted. Active session: %s (%s)\n", active.Title, active.ID)
		return false, nil

	case "/settings":
		reqCtx, cancel := context.WithTimeout(ctx, requestTimeout)
		defer cancel()
		settings, err := a.client.Settings(reqCtx)
		if err != nil {
			return false, fmt.Errorf("failed to fetch settings: %w", err)
		}
		fmt.Printf("\ntrading_mode:      %s\n", settings.TradingMode)
		fmt.Printf("claude_model:      %s\n", settings.ClaudeModel)
		fmt.Printf("claude_max_tokens: %d\n\n", settings.ClaudeMaxTokens)
		return false, nil

	case "/set":
		if len(parts) < 3 {
			return false, fmt.Errorf("usage: /set <trading_mode|claude_model|claude_max_tokens> <value>")
		}
		patch, err := buildSettingsPatch(parts[1], parts[2])
		if err != nil {
			return false, err
		}
		reqCtx, cancel := context.WithTimeout(ctx, requestTimeout)
		defer cancel()
		settings, err := a.client.UpdateSettings(reqCtx, patch)
		if err != nil {
			return false, err
		}
		fmt.Printf("Settings updated: mode=%s model=%s max_tokens=%d\n",
			settings.TradingMode, settings.ClaudeModel, settings.ClaudeMaxTokens)
		return false, nil

	case "/health":
		reqCtx, cancel := context.WithTimeout(ctx, requestTimeout)
		defer cancel()
		health, err := a.client.Health(reqCtx)
		if err != nil {
			return false, fmt.Errorf("health check failed: %w", err)
		}
		fmt.Printf("\nStatus: %s\n", health.Status)
		fmt.Printf("MCP connected: %v (%d tools)\n", health.MCPConnected, health.MCPToolsCount)
		for _, tool := range health.MCPTools {
			fmt.Printf("  - %s\n", tool)
		}
		if health.TradingMode != "" {
			fmt.Printf("Trading mode: %s\n", health.TradingMode)
		}
		if health.ClaudeModel != "" {
			fmt.Printf("Model: %s\n", health.ClaudeModel)
		}
		fmt.Println()
		return false, nil

	case "/help":
		fmt.Println("Available commands:")
		fmt.Println("  /quit, /exit             - Exit the assistant")
		fmt.Println("  /new                     - Start a new chat session")
		fmt.Println("  /sessions                - List sessions")
		fmt.Println("  /select <session-id>     - Switch to another session")
		fmt.Println("  /delete <session-id>     - Delete a session")
		fmt.Println("  /settings                - Show server settings")
		fmt.Println("  /set <field> <value>     - Update a server setting")
		fmt.Println("  /health                  - Check server and tool connectivity")
		fmt.Println("  /help                    - Show this help message")
		fmt.Println("Press Ctrl-C to cancel a streaming response.")
		return false, nil

	default:
		return false, nil
	}
}

// buildSettingsPatch maps a /set command onto a partial update.
func buildSettingsPatch(field, value string) (api.SettingsPatch, error) {
	var patch api.SettingsPatch
	switch field {
	case "trading_mode":
		if value != api.ModeDemo && value != api.ModeReal {
			return patch, fmt.Errorf("trading_mode must be %q or %q", api.ModeDemo, api.ModeReal)
		}
		patch.TradingMode = &value
	case "claude_model":
		patch.ClaudeModel = &value
	case "claude_max_tokens":
		n, err := strconv.Atoi(value)
		if err != nil || n <= 0 {
			return patch, fmt.Errorf("claude_max_tokens must be a positive integer")
		}
		patch.ClaudeMaxTokens = &n
	default:
		return patch, fmt.Errorf("unknown setting: %s", field)
	}
	return patch, nil
}
