package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nerrad567/ttn-relay/internal/infrastructure/config"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

// TestRun_InvalidConfig verifies run fails with an invalid config path.
func TestRun_InvalidConfig(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err := run(ctx, "/nonexistent/path/config.yaml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "loading config")
}

// TestRun_ValidationFailure verifies an invalid config is fatal.
func TestRun_ValidationFailure(t *testing.T) {
	path := writeConfig(t, `
mqtt:
  broker:
    host: ""
api:
  base_url: "https://api.example.com"
`)

	err := run(context.Background(), path)
	require.Error(t, err)
	assert.ErrorIs(t, err, config.ErrInvalidConfig)
}

// TestRun_ShutsDownWhileReconnecting verifies that cancellation ends run
// cleanly while the broker is unreachable.
func TestRun_ShutsDownWhileReconnecting(t *testing.T) {
	path := writeConfig(t, `
mqtt:
  broker:
    host: "127.0.0.1"
    port: 1
    tls: false
  reconnect:
    delay: 60
api:
  base_url: "http://127.0.0.1:1/api"
logging:
  level: error
sensors:
  "0004A30B001F1A2B":
    sensor_type: dragino
    sensor_id: 7
`)

	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- run(ctx, path) }()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(15 * time.Second):
		t.Fatal("run did not return after cancellation")
	}
}

func TestGetConfigPath(t *testing.T) {
	t.Setenv(configEnv, "")
	assert.Equal(t, defaultConfigPath, getConfigPath(""))

	t.Setenv(configEnv, "/etc/ttnrelay/config.yaml")
	assert.Equal(t, "/etc/ttnrelay/config.yaml", getConfigPath(""))
	assert.Equal(t, "./local.yaml", getConfigPath("./local.yaml"))
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestVersionCmd(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Equal(t, "dev (commit unknown, built unknown)\n", out)
}

func TestDecodeCmd_Dragino(t *testing.T) {
	out, err := execute(t, "decode", "--codec", "dragino", "--sensor-id", "7",
		"--dev-eui", "0004A30B001F1A2B", "0b45010500000000000000")
	require.NoError(t, err)

	assert.Contains(t, out, "frame:          dragino_v1\n")
	assert.Contains(t, out, "water_temp:     26.10 °C\n")
	assert.Contains(t, out, "voltage:        2.885 V\n")
	assert.NotContains(t, out, "enclosure_temp")
	assert.Contains(t, out,
		"temperature,dev_eui=0004A30B001F1A2B,sensor_id=7,sensor_type=dragino "+
			"airtime_ms=0i,receiving_gateway_count=0i,voltage=2.885,water_temp=26.10\n")
}

func TestDecodeCmd_Gfroerli(t *testing.T) {
	// 20.0, 10.5, 50.25, 3.1 as little endian float32
	out, err := execute(t, "decode", "--codec", "gfroerli_v1", "0000a041000028410000494266664640")
	require.NoError(t, err)

	assert.Contains(t, out, "water_temp:     20.00 °C\n")
	assert.Contains(t, out, "enclosure_temp: 10.50 °C\n")
	assert.Contains(t, out, "enclosure_humi: 50.25 %RH\n")
	assert.Contains(t, out, "voltage:        3.100 V\n")
}

func TestDecodeCmd_Errors(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		wantErr string
	}{
		{"unknown codec", []string{"decode", "--codec", "heltec", "00"}, "unsupported codec"},
		{"bad hex", []string{"decode", "zz"}, "invalid hex payload"},
		{"wrong length", []string{"decode", "0b4501"}, "to be 11 bytes, but was 3"},
		{"unsupported channel", []string{"decode", "--codec", "gfroerli", "--channel", "2", "00"}, "unsupported codec"},
		{"missing payload", []string{"decode"}, "accepts 1 arg"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := execute(t, tt.args...)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
