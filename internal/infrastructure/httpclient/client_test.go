package httpclient

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nerrad567/ttn-relay/internal/infrastructure/config"
)

func TestNew_Timeouts(t *testing.T) {
	c := New(config.HTTPTimeoutConfig{Connect: 2, Read: 3, Write: 4})

	assert.Equal(t, 9*time.Second, c.Timeout)
	tr, ok := c.Transport.(*http.Transport)
	require.True(t, ok)
	assert.Equal(t, 3*time.Second, tr.ResponseHeaderTimeout)
	assert.Equal(t, 2*time.Second, tr.TLSHandshakeTimeout)
}

func TestNew_Defaults(t *testing.T) {
	c := New(config.HTTPTimeoutConfig{})
	assert.Equal(t, 15*time.Second, c.Timeout)
}

func TestNew_ResponseHeaderTimeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
	}))
	defer srv.Close()
	defer close(release)

	c := New(config.HTTPTimeoutConfig{Connect: 1, Read: 1, Write: 1})
	tr := c.Transport.(*http.Transport)
	tr.ResponseHeaderTimeout = 50 * time.Millisecond

	start := time.Now()
	_, err := c.Get(srv.URL)
	require.Error(t, err)
	assert.Less(t, time.Since(start), 2*time.Second)
}
