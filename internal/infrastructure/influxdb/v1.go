package influxdb

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/nerrad567/ttn-relay/internal/infrastructure/config"
)

// maxErrorBody bounds how much of an error response is kept.
const maxErrorBody = 512

// v1Writer posts to the InfluxDB 1.x /write endpoint with basic auth.
type v1Writer struct {
	writeURL   string
	pingURL    string
	user       string
	pass       string
	httpClient *http.Client
}

func newV1Writer(cfg config.InfluxDBConfig, httpClient *http.Client) *v1Writer {
	base := strings.TrimRight(cfg.BaseURL, "/")
	return &v1Writer{
		writeURL:   base + "/write?db=" + url.QueryEscape(cfg.DB),
		pingURL:    base + "/ping",
		user:       cfg.User,
		pass:       cfg.Pass,
		httpClient: httpClient,
	}
}

func (w *v1Writer) writeLine(ctx context.Context, line string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.writeURL, strings.NewReader(line))
	if err != nil {
		return fmt.Errorf("%w: %w", ErrWriteFailed, err)
	}
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	req.SetBasicAuth(w.user, w.pass)

	resp, err := w.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrWriteFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &StatusError{
			StatusCode: resp.StatusCode,
			Status:     resp.Status,
			Body:       strings.TrimSpace(string(body)),
		}
	}
	// Drain body to allow connection reuse
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

func (w *v1Writer) ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, w.pingURL, nil)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrUnhealthy, err)
	}
	resp, err := w.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrUnhealthy, err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode/100 != 2 {
		return fmt.Errorf("%w: HTTP %d", ErrUnhealthy, resp.StatusCode)
	}
	return nil
}

func (w *v1Writer) close() {}
