package measurementapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/nerrad567/ttn-relay/internal/infrastructure/config"
)

// Client posts measurements to the API.
//
// Safe for concurrent use.
type Client struct {
	url        string
	token      string
	httpClient *http.Client
}

type measurementRequest struct {
	SensorID    uint32  `json:"sensor_id"`
	Temperature float32 `json:"temperature"`
}

// New creates a Client for cfg using httpClient for transport.
func New(cfg config.APIConfig, httpClient *http.Client) *Client {
	return &Client{
		url:        strings.TrimRight(cfg.BaseURL, "/") + "/measurements",
		token:      cfg.APIToken,
		httpClient: httpClient,
	}
}

// Submit sends one water temperature reading for sensorID.
func (c *Client) Submit(ctx context.Context, sensorID uint32, temperature float32) error {
	body, err := json.Marshal(measurementRequest{
		SensorID:    sensorID,
		Temperature: temperature,
	})
	if err != nil {
		return fmt.Errorf("%w: encoding body: %w", ErrRequestFailed, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("%w: %w", ErrRequestFailed, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrRequestFailed, err)
	}
	defer resp.Body.Close()
	// Drain body to allow connection reuse
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusCreated {
		return &StatusError{StatusCode: resp.StatusCode, Status: resp.Status}
	}
	return nil
}
