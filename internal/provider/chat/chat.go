// Package chat implements the Messenger provider interface over a
// Slack-compatible chat.postMessage HTTP API.
package chat

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/reviewflow/reviewflow/internal/provider"
)

const defaultBaseURL = "https://slack.com/api"

// Client posts messages through the chat provider's HTTP API.
type Client struct {
	httpClient *http.Client
	baseURL    string
	token      string
}

var _ provider.Messenger = (*Client)(nil)

// New creates a new chat client authenticated with a bot token.
func New(token string) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: 15 * time.Second},
		baseURL:    defaultBaseURL,
		token:      token,
	}
}

// SetBaseURL overrides the API base URL. Intended for tests.
func (c *Client) SetBaseURL(baseURL string) {
	c.baseURL = baseURL
}

// SendDirect sends a direct message to a chat user. Direct messages use the
// user id as the channel, which the provider resolves to a DM conversation.
func (c *Client) SendDirect(ctx context.Context, userID, text string) (string, error) {
	return c.postMessage(ctx, userID, text)
}

// SendToChannel sends a message to a channel.
func (c *Client) SendToChannel(ctx context.Context, channelID, text string) (string, error) {
	return c.postMessage(ctx, channelID, text)
}

func (c *Client) postMessage(ctx context.Context, channel, text string) (string, error) {
	payload := map[string]string{
		"channel": channel,
		"text":    text,
	}
	encoded, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("encode message: %w", err)
	}

	url := c.baseURL + "/chat.postMessage"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(encoded))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json; charset=utf-8")
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", fmt.Errorf("chat api: status %d: %s", resp.StatusCode, string(body))
	}

	var result struct {
		OK    bool   `json:"ok"`
		TS    string `json:"ts"`
		Error string `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	if !result.OK {
		return "", fmt.Errorf("chat api error: %s", result.Error)
	}

	return result.TS, nil
}
