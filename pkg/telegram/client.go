// Package telegram provides a minimal client for the Telegram Bot API
// sendMessage method, used by the Telegram notification channel.
package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// DefaultHost is the public Bot API host.
const DefaultHost = "https://api.telegram.org"

// ParseModeMarkdownV2 requests MarkdownV2 rendering of the message.
const ParseModeMarkdownV2 = "MarkdownV2"

// Client sends messages on behalf of one bot token.
type Client struct {
	host   string
	token  string
	client *http.Client
}

// NewClient creates a client for the given bot token. An empty host
// falls back to DefaultHost.
func NewClient(host, token string) *Client {
	if host == "" {
		host = DefaultHost
	}
	return &Client{
		host:   strings.TrimRight(host, "/"),
		token:  token,
		client: &http.Client{Timeout: 30 * time.Second},
	}
}

// sendMessageRequest is the payload for the sendMessage method.
type sendMessageRequest struct {
	ChatID    int64  `json:"chat_id"`
	Text      string `json:"text"`
	ParseMode string `json:"parse_mode,omitempty"`
}

// apiResponse is the common Bot API envelope. A missing or false "ok"
// means the call failed regardless of the HTTP status.
type apiResponse struct {
	OK          bool   `json:"ok"`
	Description string `json:"description"`
}

// SendMessage posts text to the given chat. It returns an error when
// the request fails, the API responds with a non-200 status, or the
// response body lacks a truthy "ok" field.
func (c *Client) SendMessage(ctx context.Context, chatID int64, text, parseMode string) error {
	url := fmt.Sprintf("%s/bot%s/sendMessage", c.host, c.token)

	body, err := json.Marshal(sendMessageRequest{
		ChatID:    chatID,
		Text:      text,
		ParseMode: parseMode,
	})
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	var apiResp apiResponse
	if err := json.NewDecoder(resp.Body).Decode(&apiResp); err != nil {
		return fmt.Errorf("decode response (status %s): %w", resp.Status, err)
	}
	if !apiResp.OK {
		if apiResp.Description != "" {
			return fmt.Errorf("telegram API error: %s (status %s)", apiResp.Description, resp.Status)
		}
		return fmt.Errorf("telegram API error: status %s", resp.Status)
	}
	return nil
}
