package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// WebhookClient posts call outcomes to an external endpoint. Delivery is
// best effort and never affects the persisted result.
type WebhookClient struct {
	url    string
	client *http.Client
}

func NewWebhookClient(url string) *WebhookClient {
	return &WebhookClient{
		url: url,
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

type outcomeNotification struct {
	ID       int64     `json:"id"`
	Number   string    `json:"number,omitempty"`
	CalledAt time.Time `json:"calledAt"`
	Result   int       `json:"result"`
}

func (c *WebhookClient) NotifyResult(ctx context.Context, id int64, number string, calledAt time.Time, result int) error {
	reqBody, err := json.Marshal(outcomeNotification{
		ID:       id,
		Number:   number,
		CalledAt: calledAt.UTC(),
		Result:   result,
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(reqBody))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("unexpected status code: %d body=%q", resp.StatusCode, string(body))
	}
	return nil
}
