package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/brocaar/lorawan"
	"gopkg.in/yaml.v3"
)

// ErrInvalidConfig is wrapped by every validation failure returned from Load.
// It is the fatal startup error; nothing downstream recovers from it.
var ErrInvalidConfig = errors.New("config: invalid configuration")

// Sensor type names accepted in the sensors section.
const (
	SensorTypeDragino  = "dragino"
	SensorTypeGfroerli = "gfroerli"
)

// Config is the root configuration structure for the TTN relay.
// All configuration is loaded from YAML and can be overridden by environment variables.
type Config struct {
	MQTT      MQTTConfig              `yaml:"mqtt"`
	API       APIConfig               `yaml:"api"`
	InfluxDB  *InfluxDBConfig         `yaml:"influxdb"`
	InfluxDB2 *InfluxDB2Config        `yaml:"influxdb2"`
	HTTP      HTTPConfig              `yaml:"http"`
	Logging   LoggingConfig           `yaml:"logging"`
	Metrics   MetricsConfig           `yaml:"metrics"`
	Sensors   map[string]SensorConfig `yaml:"sensors"`
}

// MQTTConfig contains the TTN MQTT broker connection settings.
type MQTTConfig struct {
	Broker      MQTTBrokerConfig    `yaml:"broker"`
	Auth        MQTTAuthConfig      `yaml:"auth"`
	Application string              `yaml:"application"`
	QoS         int                 `yaml:"qos"`
	KeepAlive   int                 `yaml:"keep_alive"`
	Reconnect   MQTTReconnectConfig `yaml:"reconnect"`
}

// MQTTBrokerConfig contains MQTT broker connection details.
type MQTTBrokerConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	TLS      bool   `yaml:"tls"`
	ClientID string `yaml:"client_id"`
}

// MQTTAuthConfig contains MQTT authentication credentials.
// For TTN v3 the username is the application ID and the password an API key.
type MQTTAuthConfig struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// MQTTReconnectConfig contains MQTT reconnection settings.
type MQTTReconnectConfig struct {
	// Delay is the fixed wait between reconnect attempts, in seconds.
	Delay int `yaml:"delay"`
}

// APIConfig contains the measurement API settings.
type APIConfig struct {
	BaseURL  string `yaml:"base_url"`
	APIToken string `yaml:"api_token"`
}

// InfluxDBConfig contains InfluxDB 1.x write settings.
type InfluxDBConfig struct {
	BaseURL     string `yaml:"base_url"`
	User        string `yaml:"user"`
	Pass        string `yaml:"pass"`
	DB          string `yaml:"db"`
	Measurement string `yaml:"measurement"`
}

// InfluxDB2Config contains InfluxDB 2.x write settings.
// When present it takes precedence over InfluxDBConfig.
type InfluxDB2Config struct {
	BaseURL     string `yaml:"base_url"`
	Org         string `yaml:"org"`
	APIToken    string `yaml:"api_token"`
	Bucket      string `yaml:"bucket"`
	Measurement string `yaml:"measurement"`
}

// HTTPConfig contains outbound HTTP settings shared by both sinks.
type HTTPConfig struct {
	Timeouts HTTPTimeoutConfig `yaml:"timeouts"`
}

// HTTPTimeoutConfig contains HTTP timeouts in seconds.
type HTTPTimeoutConfig struct {
	Connect int `yaml:"connect"`
	Read    int `yaml:"read"`
	Write   int `yaml:"write"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// MetricsConfig contains the Prometheus endpoint settings.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Listen  string `yaml:"listen"`
}

// SensorConfig maps one DevEUI to its sensor settings.
type SensorConfig struct {
	// SensorType is the payload codec family: "dragino" or "gfroerli".
	SensorType string `yaml:"sensor_type"`

	// SensorID is the measurement API sensor ID.
	SensorID uint32 `yaml:"sensor_id"`

	// SendToAPI controls submission to the measurement API. Defaults to true.
	// With false, data is only written to InfluxDB.
	SendToAPI *bool `yaml:"send_to_api"`
}

// SubmitToAPI resolves the send_to_api default.
func (s SensorConfig) SubmitToAPI() bool {
	return s.SendToAPI == nil || *s.SendToAPI
}

// Load reads configuration from a YAML file and applies environment variable overrides.
//
// The configuration loading order is:
//  1. Default values (hardcoded)
//  2. YAML file values (override defaults)
//  3. Environment variables (override file values)
//
// Environment variables follow the pattern: TTNRELAY_SECTION_KEY
// For example: TTNRELAY_MQTT_PASSWORD, TTNRELAY_API_TOKEN
func Load(path string) (*Config, error) {
	cfg := defaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// defaultConfig returns a Config with sensible defaults.
func defaultConfig() *Config {
	return &Config{
		MQTT: MQTTConfig{
			Broker: MQTTBrokerConfig{
				Host:     "eu1.cloud.thethings.network",
				Port:     8883,
				TLS:      true,
				ClientID: "ttn-relay",
			},
			Application: "+",
			QoS:         1,
			KeepAlive:   20,
			Reconnect: MQTTReconnectConfig{
				Delay: 5,
			},
		},
		HTTP: HTTPConfig{
			Timeouts: HTTPTimeoutConfig{
				Connect: 5,
				Read:    5,
				Write:   5,
			},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
		Metrics: MetricsConfig{
			Listen: ":9102",
		},
	}
}

// applyEnvOverrides applies environment variable overrides to the configuration.
// Secrets are expected to arrive this way rather than through the file.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("TTNRELAY_MQTT_HOST"); v != "" {
		cfg.MQTT.Broker.Host = v
	}
	if v := os.Getenv("TTNRELAY_MQTT_USERNAME"); v != "" {
		cfg.MQTT.Auth.Username = v
	}
	if v := os.Getenv("TTNRELAY_MQTT_PASSWORD"); v != "" {
		cfg.MQTT.Auth.Password = v
	}
	if v := os.Getenv("TTNRELAY_API_TOKEN"); v != "" {
		cfg.API.APIToken = v
	}
	if v := os.Getenv("TTNRELAY_INFLUXDB_PASSWORD"); v != "" && cfg.InfluxDB != nil {
		cfg.InfluxDB.Pass = v
	}
	if v := os.Getenv("TTNRELAY_INFLUXDB2_TOKEN"); v != "" && cfg.InfluxDB2 != nil {
		cfg.InfluxDB2.APIToken = v
	}
}

// Validate checks the configuration for errors.
// All problems are reported at once; the returned error wraps ErrInvalidConfig.
func (c *Config) Validate() error {
	var errs []string

	if c.MQTT.Broker.Host == "" {
		errs = append(errs, "mqtt.broker.host is required")
	}
	if c.MQTT.Broker.ClientID == "" {
		errs = append(errs, "mqtt.broker.client_id is required for the persistent session")
	}
	if c.MQTT.Broker.Port < 1 || c.MQTT.Broker.Port > 65535 {
		errs = append(errs, "mqtt.broker.port must be between 1 and 65535")
	}
	if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
		errs = append(errs, "mqtt.qos must be 0, 1, or 2")
	}
	if c.MQTT.Reconnect.Delay <= 0 {
		errs = append(errs, "mqtt.reconnect.delay must be positive")
	}
	if strings.ContainsAny(c.MQTT.Application, "/#") {
		errs = append(errs, "mqtt.application must be a single topic level")
	}

	errs = append(errs, validateURL("api.base_url", c.API.BaseURL)...)

	if c.InfluxDB != nil {
		errs = append(errs, validateURL("influxdb.base_url", c.InfluxDB.BaseURL)...)
		if c.InfluxDB.DB == "" {
			errs = append(errs, "influxdb.db is required")
		}
	}
	if c.InfluxDB2 != nil {
		errs = append(errs, validateURL("influxdb2.base_url", c.InfluxDB2.BaseURL)...)
		if c.InfluxDB2.Org == "" {
			errs = append(errs, "influxdb2.org is required")
		}
		if c.InfluxDB2.Bucket == "" {
			errs = append(errs, "influxdb2.bucket is required")
		}
	}

	if c.Metrics.Enabled && c.Metrics.Listen == "" {
		errs = append(errs, "metrics.listen is required when metrics are enabled")
	}

	devEUIs := make([]string, 0, len(c.Sensors))
	for devEUI := range c.Sensors {
		devEUIs = append(devEUIs, devEUI)
	}
	sort.Strings(devEUIs)
	for _, devEUI := range devEUIs {
		if devEUI == "" {
			errs = append(errs, "sensors: empty DevEUI key")
			continue
		}
		var eui lorawan.EUI64
		if err := eui.UnmarshalText([]byte(devEUI)); err != nil {
			errs = append(errs, fmt.Sprintf("sensors.%s is not a 16 digit hex DevEUI", devEUI))
		}
		switch st := c.Sensors[devEUI].SensorType; st {
		case SensorTypeDragino, SensorTypeGfroerli:
		default:
			errs = append(errs, fmt.Sprintf("sensors.%s.sensor_type %q is not one of dragino, gfroerli", devEUI, st))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidConfig, strings.Join(errs, "; "))
	}

	return nil
}

func validateURL(key, raw string) []string {
	if raw == "" {
		return []string{key + " is required"}
	}
	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return []string{key + " must be an absolute URL"}
	}
	return nil
}

// GetReconnectDelay returns the MQTT reconnect delay as a Duration.
func (c *Config) GetReconnectDelay() time.Duration {
	return time.Duration(c.MQTT.Reconnect.Delay) * time.Second
}

// GetKeepAlive returns the MQTT keepalive interval as a Duration.
func (c *Config) GetKeepAlive() time.Duration {
	return time.Duration(c.MQTT.KeepAlive) * time.Second
}

// GetConnectTimeout returns the HTTP connect timeout as a Duration.
func (c HTTPTimeoutConfig) GetConnectTimeout() time.Duration {
	return time.Duration(c.Connect) * time.Second
}

// GetReadTimeout returns the HTTP read timeout as a Duration.
func (c HTTPTimeoutConfig) GetReadTimeout() time.Duration {
	return time.Duration(c.Read) * time.Second
}

// GetWriteTimeout returns the HTTP write timeout as a Duration.
func (c HTTPTimeoutConfig) GetWriteTimeout() time.Duration {
	return time.Duration(c.Write) * time.Second
}
