package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/stash-sh/stash/internal/logger"
	"github.com/stash-sh/stash/internal/utils"
)

const (
	defaultAPIBase = "https://api.telegram.org"
	sendTimeout    = 5 * time.Second
)

// Client sends replies through the bot API. Replies are best effort:
// callers log failures and move on.
type Client struct {
	http    *http.Client
	baseURL string
	token   string
	logger  logger.Logger
}

// NewClient creates a reply client for a bot token. baseURL is
// overridable for tests; empty means the public API.
func NewClient(token, baseURL string, log logger.Logger) *Client {
	if baseURL == "" {
		baseURL = defaultAPIBase
	}
	return &Client{
		http:    &http.Client{Timeout: sendTimeout},
		baseURL: baseURL,
		token:   token,
		logger:  log,
	}
}

type sendMessageRequest struct {
	ChatID int64  `json:"chat_id"`
	Text   string `json:"text"`
}

type apiResponse struct {
	OK          bool   `json:"ok"`
	Description string `json:"description"`
}

// SendMessage posts a plain-text message to a chat.
func (c *Client) SendMessage(ctx context.Context, chatID int64, text string) error {
	payload, err := json.Marshal(sendMessageRequest{ChatID: chatID, Text: text})
	if err != nil {
		return fmt.Errorf("encode sendMessage: %w", err)
	}

	url := fmt.Sprintf("%s/bot%s/sendMessage", c.baseURL, c.token)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build sendMessage request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("sendMessage: %w", err)
	}
	defer utils.Close(resp.Body)

	var body apiResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return fmt.Errorf("decode sendMessage response: %w", err)
	}
	if !body.OK {
		return fmt.Errorf("sendMessage rejected: %s", body.Description)
	}
	return nil
}
