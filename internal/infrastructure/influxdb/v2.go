package influxdb

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"

	"github.com/nerrad567/ttn-relay/internal/infrastructure/config"
)

// v2Writer writes through the official client's blocking write API,
// which posts to /api/v2/write?org=&bucket= with token auth.
type v2Writer struct {
	client   influxdb2.Client
	writeAPI api.WriteAPIBlocking
}

func newV2Writer(cfg config.InfluxDB2Config, httpClient *http.Client) *v2Writer {
	client := influxdb2.NewClientWithOptions(
		strings.TrimRight(cfg.BaseURL, "/"),
		cfg.APIToken,
		influxdb2.DefaultOptions().SetHTTPClient(httpClient),
	)
	return &v2Writer{
		client:   client,
		writeAPI: client.WriteAPIBlocking(cfg.Org, cfg.Bucket),
	}
}

func (w *v2Writer) writeLine(ctx context.Context, line string) error {
	if err := w.writeAPI.WriteRecord(ctx, line); err != nil {
		return fmt.Errorf("%w: %w", ErrWriteFailed, err)
	}
	return nil
}

func (w *v2Writer) ping(ctx context.Context) error {
	healthy, err := w.client.Ping(ctx)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrUnhealthy, err)
	}
	if !healthy {
		return ErrUnhealthy
	}
	return nil
}

func (w *v2Writer) close() {
	w.client.Close()
}
