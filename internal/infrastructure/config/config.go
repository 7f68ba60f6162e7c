package config

import (
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration structure for json2mqtt.
// All configuration is loaded from YAML and can be overridden by environment variables.
type Config struct {
	HTTP    HTTPConfig    `yaml:"http"`
	MQTT    MQTTConfig    `yaml:"mqtt"`
	Ops     OpsConfig     `yaml:"ops"`
	Logging LoggingConfig `yaml:"logging"`
}

// HTTPConfig contains the gateway listener settings.
type HTTPConfig struct {
	// IP is the bind address. Empty means all interfaces.
	IP   string `yaml:"ip"`
	Port int    `yaml:"port"`

	// MaxPayload is the exclusive upper bound on the declared Content-Length
	// of an accepted request, in bytes.
	MaxPayload int64 `yaml:"max_payload"`

	Timeouts HTTPTimeoutConfig `yaml:"timeouts"`
}

// HTTPTimeoutConfig contains HTTP timeout settings in seconds.
type HTTPTimeoutConfig struct {
	Read  int `yaml:"read"`
	Write int `yaml:"write"`
	Idle  int `yaml:"idle"`
}

// MQTTConfig contains MQTT broker connection and publish settings.
type MQTTConfig struct {
	Hostname string `yaml:"hostname"`
	Port     int    `yaml:"port"`

	// Timeout is the keep-alive interval in seconds.
	Timeout int `yaml:"timeout"`

	// Topic is the single destination for every accepted payload.
	Topic    string `yaml:"topic"`
	ClientID string `yaml:"client_id"`
	QoS      int    `yaml:"qos"`
	Retained bool   `yaml:"retained"`

	// PublishTimeout bounds a single publish, in seconds.
	PublishTimeout int `yaml:"publish_timeout"`

	// StatusTopic, when set, receives retained online/offline messages and
	// carries the Last Will.
	StatusTopic string `yaml:"status_topic"`

	TLS       bool                `yaml:"tls"`
	Username  string              `yaml:"username"`
	Password  string              `yaml:"password"`
	Reconnect MQTTReconnectConfig `yaml:"reconnect"`
}

// MQTTReconnectConfig contains MQTT reconnection settings in seconds.
type MQTTReconnectConfig struct {
	InitialDelay int `yaml:"initial_delay"`
	MaxDelay     int `yaml:"max_delay"`
}

// OpsConfig contains settings for the operations listener
// (health, metrics, version).
type OpsConfig struct {
	Enabled bool   `yaml:"enabled"`
	IP      string `yaml:"ip"`
	Port    int    `yaml:"port"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// Load reads configuration from a YAML file and applies environment variable overrides.
//
// The configuration loading order is:
//  1. Default values (hardcoded)
//  2. YAML file values (override defaults)
//  3. Environment variables (override file values)
//
// Environment variables follow the pattern: JSON2MQTT_SECTION_KEY
// For example: JSON2MQTT_MQTT_HOSTNAME, JSON2MQTT_HTTP_PORT
//
// Parameters:
//   - path: Path to the YAML configuration file
//
// Returns:
//   - *Config: Loaded and validated configuration
//   - error: If file cannot be read, parsed, or validation fails
func Load(path string) (*Config, error) {
	cfg := defaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	if err := applyEnvOverrides(cfg); err != nil {
		return nil, fmt.Errorf("applying environment overrides: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// Default returns the configuration used when no file values are present.
func Default() *Config {
	return defaultConfig()
}

func defaultConfig() *Config {
	return &Config{
		HTTP: HTTPConfig{
			IP:         "",
			Port:       80,
			MaxPayload: 2048,
			Timeouts: HTTPTimeoutConfig{
				Read:  10,
				Write: 10,
				Idle:  60,
			},
		},
		MQTT: MQTTConfig{
			Hostname:       "localhost",
			Port:           1883,
			Timeout:        60,
			Topic:          "default/topic",
			ClientID:       "json2mqtt",
			QoS:            0,
			PublishTimeout: 5,
			Reconnect: MQTTReconnectConfig{
				InitialDelay: 1,
				MaxDelay:     60,
			},
		},
		Ops: OpsConfig{
			Enabled: true,
			IP:      "127.0.0.1",
			Port:    9090,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
	}
}

// applyEnvOverrides applies environment variable overrides to the configuration.
// Environment variables follow the pattern: JSON2MQTT_SECTION_KEY
func applyEnvOverrides(cfg *Config) error {
	// HTTP
	if v := os.Getenv("JSON2MQTT_HTTP_IP"); v != "" {
		cfg.HTTP.IP = v
	}
	if v := os.Getenv("JSON2MQTT_HTTP_PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("JSON2MQTT_HTTP_PORT: %w", err)
		}
		cfg.HTTP.Port = port
	}

	// MQTT
	if v := os.Getenv("JSON2MQTT_MQTT_HOSTNAME"); v != "" {
		cfg.MQTT.Hostname = v
	}
	if v := os.Getenv("JSON2MQTT_MQTT_PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("JSON2MQTT_MQTT_PORT: %w", err)
		}
		cfg.MQTT.Port = port
	}
	if v := os.Getenv("JSON2MQTT_MQTT_TOPIC"); v != "" {
		cfg.MQTT.Topic = v
	}
	if v := os.Getenv("JSON2MQTT_MQTT_USERNAME"); v != "" {
		cfg.MQTT.Username = v
	}
	if v := os.Getenv("JSON2MQTT_MQTT_PASSWORD"); v != "" {
		cfg.MQTT.Password = v
	}

	// Logging
	if v := os.Getenv("JSON2MQTT_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}

	return nil
}

// Validate checks the configuration for errors.
//
// Returns:
//   - error: Description of validation failure, or nil if valid
func (c *Config) Validate() error {
	var errs []string

	// HTTP validation
	if !validPort(c.HTTP.Port) {
		errs = append(errs, "http.port must be between 1 and 65535")
	}
	if c.HTTP.MaxPayload <= 0 {
		errs = append(errs, "http.max_payload must be positive")
	}

	// MQTT validation
	if c.MQTT.Hostname == "" {
		errs = append(errs, "mqtt.hostname is required")
	}
	if !validPort(c.MQTT.Port) {
		errs = append(errs, "mqtt.port must be between 1 and 65535")
	}
	if c.MQTT.Timeout < 0 {
		errs = append(errs, "mqtt.timeout must not be negative")
	}
	if c.MQTT.Topic == "" {
		errs = append(errs, "mqtt.topic is required")
	} else if strings.ContainsAny(c.MQTT.Topic, "+#") {
		errs = append(errs, "mqtt.topic must not contain wildcards")
	}
	if strings.ContainsAny(c.MQTT.StatusTopic, "+#") {
		errs = append(errs, "mqtt.status_topic must not contain wildcards")
	}
	if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
		errs = append(errs, "mqtt.qos must be 0, 1, or 2")
	}
	if c.MQTT.PublishTimeout <= 0 {
		errs = append(errs, "mqtt.publish_timeout must be positive")
	}

	// Ops validation
	if c.Ops.Enabled && !validPort(c.Ops.Port) {
		errs = append(errs, "ops.port must be between 1 and 65535")
	}
	if c.Ops.Enabled && c.Ops.Port == c.HTTP.Port && c.Ops.IP == c.HTTP.IP {
		errs = append(errs, "ops listener must not share the http address")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}

	return nil
}

func validPort(port int) bool {
	return port >= 1 && port <= 65535
}

// HTTPAddr returns the gateway listen address.
func (c *Config) HTTPAddr() string {
	return net.JoinHostPort(c.HTTP.IP, strconv.Itoa(c.HTTP.Port))
}

// OpsAddr returns the operations listen address.
func (c *Config) OpsAddr() string {
	return net.JoinHostPort(c.Ops.IP, strconv.Itoa(c.Ops.Port))
}

// BrokerAddr returns the broker address as host:port.
func (c *Config) BrokerAddr() string {
	return net.JoinHostPort(c.MQTT.Hostname, strconv.Itoa(c.MQTT.Port))
}

// GetReadTimeout returns the HTTP read timeout as a Duration.
func (c *Config) GetReadTimeout() time.Duration {
	return time.Duration(c.HTTP.Timeouts.Read) * time.Second
}

// GetWriteTimeout returns the HTTP write timeout as a Duration.
func (c *Config) GetWriteTimeout() time.Duration {
	return time.Duration(c.HTTP.Timeouts.Write) * time.Second
}

// GetIdleTimeout returns the HTTP idle timeout as a Duration.
func (c *Config) GetIdleTimeout() time.Duration {
	return time.Duration(c.HTTP.Timeouts.Idle) * time.Second
}

// GetPublishTimeout returns the per-publish bound as a Duration.
func (c *Config) GetPublishTimeout() time.Duration {
	return time.Duration(c.MQTT.PublishTimeout) * time.Second
}
