package queue

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const defaultPublishBase = "https://qstash.upstash.io/v2/publish/"

// QStash publishes JSON messages to an Upstash QStash topic URL. The broker
// retries delivery to the destination and forwards the configured bearer
// secret so the receiving worker can authenticate the callback.
type QStash struct {
	token         string
	publishURL    string
	forwardBearer string
	httpClient    *http.Client
}

func NewQStash(token, destinationURL, forwardSecret string) (*QStash, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, fmt.Errorf("missing qstash token")
	}

	parsed, err := url.Parse(strings.TrimSpace(destinationURL))
	if err != nil {
		return nil, fmt.Errorf("parse qstash destination: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return nil, fmt.Errorf("qstash destination must be http(s)")
	}

	return &QStash{
		token:         token,
		publishURL:    defaultPublishBase + parsed.String(),
		forwardBearer: strings.TrimSpace(forwardSecret),
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
	}, nil
}

func (q *QStash) PublishJSON(ctx context.Context, body any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("encode qstash payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, q.publishURL, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build qstash publish request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+q.token)
	if q.forwardBearer != "" {
		req.Header.Set("Upstash-Forward-Authorization", "Bearer "+q.forwardBearer)
	}

	resp, err := q.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("qstash publish request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		return fmt.Errorf("qstash publish failed with status %d: %s", resp.StatusCode, strings.TrimSpace(string(snippet)))
	}

	return nil
}
