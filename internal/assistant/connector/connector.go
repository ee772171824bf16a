package connector

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"mail_agent/internal/assistant"
	"mail_agent/internal/config"
)

// Client executes email actions against the third-party connector
// service. One POST per action, API-key authenticated.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

func New(cfg config.Connector) *Client {
	return &Client{
		baseURL: cfg.BaseURL,
		apiKey:  cfg.APIKey,
		http: &http.Client{
			Timeout: cfg.Timeout,
		},
	}
}

type executeRequest struct {
	Params json.RawMessage `json:"params"`
}

type executeResponse struct {
	Data  json.RawMessage `json:"data"`
	Error string          `json:"error,omitempty"`
}

// Execute runs one action with the given JSON parameters and returns
// the connector's raw response payload.
func (c *Client) Execute(ctx context.Context, action assistant.Action, params json.RawMessage) (string, error) {
	const op = "assistant.connector.Execute"

	if len(params) == 0 {
		params = json.RawMessage(`{}`)
	}

	body, err := json.Marshal(executeRequest{Params: params})
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	url := fmt.Sprintf("%s/v1/actions/%s/execute", c.baseURL, action)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-API-Key", c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%s: connector returned %d: %s", op, resp.StatusCode, raw)
	}

	var execResp executeResponse
	if err := json.Unmarshal(raw, &execResp); err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	if execResp.Error != "" {
		return "", fmt.Errorf("%s: action %s failed: %s", op, action, execResp.Error)
	}

	return string(execResp.Data), nil
}
