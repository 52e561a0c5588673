// Package httpclient builds the outbound HTTP client shared by the sinks.
package httpclient

import (
	"net"
	"net/http"
	"time"

	"github.com/nerrad567/ttn-relay/internal/infrastructure/config"
)

const defaultTimeout = 5 * time.Second

// New returns an *http.Client bounded by the configured timeouts.
//
// Connect bounds dialling and the TLS handshake, Read bounds the wait
// for response headers, and the sum of all three caps the whole request.
// Zero values fall back to 5 seconds.
func New(cfg config.HTTPTimeoutConfig) *http.Client {
	connect := orDefault(cfg.GetConnectTimeout())
	read := orDefault(cfg.GetReadTimeout())
	write := orDefault(cfg.GetWriteTimeout())

	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.DialContext = (&net.Dialer{
		Timeout:   connect,
		KeepAlive: 30 * time.Second,
	}).DialContext
	transport.TLSHandshakeTimeout = connect
	transport.ResponseHeaderTimeout = read

	return &http.Client{
		Transport: transport,
		Timeout:   connect + write + read,
	}
}

func orDefault(d time.Duration) time.Duration {
	if d <= 0 {
		return defaultTimeout
	}
	return d
}
