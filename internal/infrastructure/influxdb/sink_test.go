package influxdb

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nerrad567/ttn-relay/internal/infrastructure/config"
)

type request struct {
	method string
	path   string
	query  map[string]string
	auth   string
	user   string
	pass   string
	body   string
}

type recorder struct {
	mu       sync.Mutex
	requests []request
	status   int
}

func (r *recorder) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	body, _ := io.ReadAll(req.Body)
	user, pass, _ := req.BasicAuth()
	q := map[string]string{}
	for k := range req.URL.Query() {
		q[k] = req.URL.Query().Get(k)
	}

	r.mu.Lock()
	r.requests = append(r.requests, request{
		method: req.Method,
		path:   req.URL.Path,
		query:  q,
		auth:   req.Header.Get("Authorization"),
		user:   user,
		pass:   pass,
		body:   string(body),
	})
	status := r.status
	r.mu.Unlock()

	if req.URL.Path == "/ping" {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	if status >= 400 {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(`{"code":"internal error","message":"boom"}`))
		return
	}
	w.WriteHeader(status)
}

func (r *recorder) last(t *testing.T) request {
	t.Helper()
	r.mu.Lock()
	defer r.mu.Unlock()
	require.NotEmpty(t, r.requests)
	return r.requests[len(r.requests)-1]
}

func newRecorder(t *testing.T, status int) (*recorder, *httptest.Server) {
	t.Helper()
	rec := &recorder{status: status}
	srv := httptest.NewServer(rec)
	t.Cleanup(srv.Close)
	return rec, srv
}

var (
	testTags   = map[string]string{"sensor_id": "7", "dev_eui": "0004A30B001F1A2B", "sensor_type": "dragino"}
	testFields = map[string]any{"water_temp": Decimal{26.1, 2}, "voltage": Decimal{2.885, 3}}
	testLine   = "temperature,dev_eui=0004A30B001F1A2B,sensor_id=7,sensor_type=dragino voltage=2.885,water_temp=26.10"
)

func TestNew_NotConfigured(t *testing.T) {
	_, err := New(&config.Config{}, http.DefaultClient)
	assert.ErrorIs(t, err, ErrNotConfigured)
}

func TestNew_V2TakesPrecedence(t *testing.T) {
	cfg := &config.Config{
		InfluxDB:  &config.InfluxDBConfig{BaseURL: "http://v1:8086", DB: "db"},
		InfluxDB2: &config.InfluxDB2Config{BaseURL: "http://v2:8086", Org: "o", Bucket: "b", Measurement: "water"},
	}
	sink, err := New(cfg, http.DefaultClient)
	require.NoError(t, err)
	defer sink.Close()

	assert.Equal(t, NameV2, sink.Name())
	assert.Equal(t, "water", sink.Measurement())
}

func TestSink_V1Write(t *testing.T) {
	rec, srv := newRecorder(t, http.StatusNoContent)
	sink, err := New(&config.Config{
		InfluxDB: &config.InfluxDBConfig{BaseURL: srv.URL + "/", User: "relay", Pass: "pw", DB: "gfroerli"},
	}, srv.Client())
	require.NoError(t, err)
	assert.Equal(t, NameV1, sink.Name())
	assert.Equal(t, DefaultMeasurement, sink.Measurement())

	require.NoError(t, sink.Write(context.Background(), testTags, testFields))

	got := rec.last(t)
	assert.Equal(t, http.MethodPost, got.method)
	assert.Equal(t, "/write", got.path)
	assert.Equal(t, "gfroerli", got.query["db"])
	assert.Equal(t, "relay", got.user)
	assert.Equal(t, "pw", got.pass)
	assert.Equal(t, testLine, got.body)

	require.NoError(t, sink.Ping(context.Background()))
	assert.Equal(t, "/ping", rec.last(t).path)
}

func TestSink_V1WriteError(t *testing.T) {
	_, srv := newRecorder(t, http.StatusInternalServerError)
	sink, err := New(&config.Config{
		InfluxDB: &config.InfluxDBConfig{BaseURL: srv.URL, DB: "gfroerli"},
	}, srv.Client())
	require.NoError(t, err)

	err = sink.Write(context.Background(), testTags, testFields)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrWriteFailed)

	var statusErr *StatusError
	require.True(t, errors.As(err, &statusErr))
	assert.Equal(t, http.StatusInternalServerError, statusErr.StatusCode)
	assert.Contains(t, statusErr.Body, "boom")
}

func TestSink_WriteUnsupportedField(t *testing.T) {
	rec, srv := newRecorder(t, http.StatusNoContent)
	sink, err := New(&config.Config{
		InfluxDB: &config.InfluxDBConfig{BaseURL: srv.URL, DB: "gfroerli"},
	}, srv.Client())
	require.NoError(t, err)

	err = sink.Write(context.Background(), testTags, map[string]any{"water_temp": []float64{26.1}})
	assert.ErrorIs(t, err, ErrWriteFailed)
	assert.ErrorIs(t, err, ErrUnsupportedField)

	rec.mu.Lock()
	defer rec.mu.Unlock()
	assert.Empty(t, rec.requests, "nothing is sent for an unencodable point")
}

func TestSink_WriteStartup(t *testing.T) {
	rec, srv := newRecorder(t, http.StatusNoContent)
	sink, err := New(&config.Config{
		InfluxDB: &config.InfluxDBConfig{BaseURL: srv.URL, DB: "gfroerli", Measurement: "water"},
	}, srv.Client())
	require.NoError(t, err)

	at := time.Unix(1760000000, 0)
	require.NoError(t, sink.WriteStartup(context.Background(), "ttn-relay", at))

	got := rec.last(t)
	assert.Equal(t, "/write", got.path)
	assert.Equal(t, "startup,service=ttn-relay value=1760000000i", got.body,
		"marker ignores the configured measurement")
}

func TestSink_WriteStartupError(t *testing.T) {
	_, srv := newRecorder(t, http.StatusInternalServerError)
	sink, err := New(&config.Config{
		InfluxDB: &config.InfluxDBConfig{BaseURL: srv.URL, DB: "gfroerli"},
	}, srv.Client())
	require.NoError(t, err)

	err = sink.WriteStartup(context.Background(), "ttn-relay", time.Now())
	assert.ErrorIs(t, err, ErrWriteFailed)
	assert.Contains(t, err.Error(), NameV1)
}

func TestSink_V2Write(t *testing.T) {
	rec, srv := newRecorder(t, http.StatusNoContent)
	sink, err := New(&config.Config{
		InfluxDB2: &config.InfluxDB2Config{BaseURL: srv.URL, Org: "coredump", APIToken: "tok", Bucket: "gfroerli"},
	}, srv.Client())
	require.NoError(t, err)
	defer sink.Close()

	require.NoError(t, sink.Write(context.Background(), testTags, testFields))

	got := rec.last(t)
	assert.Equal(t, http.MethodPost, got.method)
	assert.Equal(t, "/api/v2/write", got.path)
	assert.Equal(t, "coredump", got.query["org"])
	assert.Equal(t, "gfroerli", got.query["bucket"])
	assert.Equal(t, "Token tok", got.auth)
	assert.Contains(t, got.body, testLine)
}

func TestSink_V2WriteError(t *testing.T) {
	_, srv := newRecorder(t, http.StatusBadRequest)
	sink, err := New(&config.Config{
		InfluxDB2: &config.InfluxDB2Config{BaseURL: srv.URL, Org: "o", Bucket: "b"},
	}, srv.Client())
	require.NoError(t, err)
	defer sink.Close()

	err = sink.Write(context.Background(), testTags, testFields)
	assert.ErrorIs(t, err, ErrWriteFailed)
}

func TestSink_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	sink, err := New(&config.Config{
		InfluxDB: &config.InfluxDBConfig{BaseURL: url, DB: "db"},
	}, http.DefaultClient)
	require.NoError(t, err)

	assert.ErrorIs(t, sink.Write(context.Background(), testTags, testFields), ErrWriteFailed)
	assert.ErrorIs(t, sink.Ping(context.Background()), ErrUnhealthy)
}

func TestSink_CloseNil(t *testing.T) {
	var s *Sink
	s.Close()
}
