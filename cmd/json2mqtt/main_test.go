package main

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// writeConfig writes a YAML config into a temp dir and returns its path.
func writeConfig(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}
	return path
}

// TestRun_InvalidConfig verifies run fails with invalid config path.
func TestRun_InvalidConfig(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err := run(ctx, "/nonexistent/path/config.yaml")
	if err == nil {
		t.Fatal("run() should fail with invalid config path")
	}
	if !strings.Contains(err.Error(), "loading config") {
		t.Errorf("run() error = %v, want loading config error", err)
	}
}

// TestRun_ConfigValidationFails verifies run refuses a wildcard topic.
func TestRun_ConfigValidationFails(t *testing.T) {
	path := writeConfig(t, `
mqtt:
  hostname: "127.0.0.1"
  topic: "sensors/#"
`)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err := run(ctx, path)
	if err == nil {
		t.Fatal("run() should fail with a wildcard topic")
	}
	if !strings.Contains(err.Error(), "topic") {
		t.Errorf("run() error = %v, want topic validation error", err)
	}
}

// TestRun_BrokerUnreachable verifies run fails when the broker cannot be reached.
func TestRun_BrokerUnreachable(t *testing.T) {
	if testing.Short() {
		t.Skip("waits for the MQTT connect timeout")
	}

	path := writeConfig(t, `
http:
  ip: "127.0.0.1"
  port: 18080
mqtt:
  hostname: "127.0.0.1"
  port: 19999
  client_id: "json2mqtt-test-unreachable"
ops:
  enabled: false
logging:
  level: error
`)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	err := run(ctx, path)
	if err == nil {
		t.Fatal("run() should fail when the broker is unreachable")
	}
	if !strings.Contains(err.Error(), "connecting to MQTT") {
		t.Errorf("run() error = %v, want MQTT connection error", err)
	}
}

// TestRun_SuccessfulStartupAndShutdown tests full startup with a running broker.
// Requires MQTT broker at 127.0.0.1:1883.
func TestRun_SuccessfulStartupAndShutdown(t *testing.T) {
	if testing.Short() {
		t.Skip("needs an MQTT broker")
	}

	path := writeConfig(t, `
http:
  ip: "127.0.0.1"
  port: 18081
mqtt:
  hostname: "127.0.0.1"
  port: 1883
  client_id: "json2mqtt-test-startup"
ops:
  enabled: true
  ip: "127.0.0.1"
  port: 19091
logging:
  level: error
`)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if err := run(ctx, path); err != nil {
		t.Logf("run() returned error: %v (may be due to missing MQTT broker)", err)
	}
}

// TestGetConfigPath verifies flag, environment and default precedence.
func TestGetConfigPath(t *testing.T) {
	tests := []struct {
		name string
		flag string
		env  string
		want string
	}{
		{"default", "", "", defaultConfigPath},
		{"env override", "", "/env/config.yaml", "/env/config.yaml"},
		{"flag wins over env", "/flag/config.yaml", "/env/config.yaml", "/flag/config.yaml"},
		{"flag only", "/flag/config.yaml", "", "/flag/config.yaml"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(configEnvVar, tt.env)

			if got := getConfigPath(tt.flag); got != tt.want {
				t.Errorf("getConfigPath(%q) = %q, want %q", tt.flag, got, tt.want)
			}
		})
	}
}

type stubHealth struct{ err error }

func (s stubHealth) HealthCheck(context.Context) error { return s.err }

// TestHealthCheck verifies the first failing dependency is reported.
func TestHealthCheck(t *testing.T) {
	down := errors.New("down")

	tests := []struct {
		name    string
		mqtt    healthChecker
		gateway healthChecker
		wantErr string
	}{
		{"all healthy", stubHealth{}, stubHealth{}, ""},
		{"mqtt down", stubHealth{err: down}, stubHealth{}, "mqtt: down"},
		{"gateway down", stubHealth{}, stubHealth{err: down}, "gateway: down"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := healthCheck(context.Background(), tt.mqtt, tt.gateway)
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("healthCheck() error = %v, want nil", err)
				}
				return
			}
			if err == nil || err.Error() != tt.wantErr {
				t.Errorf("healthCheck() error = %v, want %q", err, tt.wantErr)
			}
			if !errors.Is(err, down) {
				t.Errorf("healthCheck() error does not wrap cause")
			}
		})
	}
}
