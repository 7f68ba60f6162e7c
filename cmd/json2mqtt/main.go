// json2mqtt - HTTP to MQTT JSON bridge
//
// json2mqtt accepts JSON documents over HTTP POST on any path, validates
// them, and publishes a compact re-encoding of each one to a single
// configured MQTT topic.
//
// Usage:
//
//	json2mqtt [-config path/to/config.yaml]
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nerrad567/json2mqtt/internal/api"
	"github.com/nerrad567/json2mqtt/internal/gateway"
	"github.com/nerrad567/json2mqtt/internal/infrastructure/config"
	"github.com/nerrad567/json2mqtt/internal/infrastructure/logging"
	"github.com/nerrad567/json2mqtt/internal/infrastructure/mqtt"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"     // Semantic version (e.g., "1.0.0")
	commit  = "unknown" // Git commit hash
	date    = "unknown" // Build date
)

// Default configuration file path
const defaultConfigPath = "configs/config.yaml"

// configEnvVar overrides the default config path when -config is not given.
const configEnvVar = "JSON2MQTT_CONFIG"

// drainTimeout bounds how long shutdown waits for in-flight publishes.
const drainTimeout = 10 * time.Second

func main() {
	configFlag := flag.String("config", "", "path to the YAML configuration file (env "+configEnvVar+")")
	flag.Parse()

	// Cancel on Ctrl+C and SIGTERM for graceful shutdown
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, getConfigPath(*configFlag)); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run is the actual application logic, separated from main for testability.
//
// Parameters:
//   - ctx: Context for cancellation and shutdown signals
//   - configPath: YAML configuration file to load
//
// Returns:
//   - error: nil on clean shutdown, or error describing failure
func run(ctx context.Context, configPath string) error {
	// Use default logger until config is loaded
	log := logging.Default()
	log.Info("starting json2mqtt",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	log.Info("configuration loaded", "path", configPath)

	// Reinitialise logger with config settings
	log = logging.New(cfg.Logging, version)
	log.Info("logger initialised",
		"level", cfg.Logging.Level,
		"format", cfg.Logging.Format,
	)

	// Connect to MQTT broker
	mqttClient, err := mqtt.Connect(cfg.MQTT)
	if err != nil {
		return fmt.Errorf("connecting to MQTT: %w", err)
	}
	defer func() {
		log.Info("disconnecting from MQTT")
		if closeErr := mqttClient.Close(); closeErr != nil {
			log.Error("error closing MQTT", "error", closeErr)
		}
	}()
	log.Info("connected to MQTT broker",
		"broker", cfg.BrokerAddr(),
		"client_id", cfg.MQTT.ClientID,
		"topic", cfg.MQTT.Topic,
	)

	mqttClient.SetLogger(log.With("component", "mqtt"))
	mqttClient.SetOnConnect(func() {
		log.Info("connected to MQTT broker", "broker", cfg.BrokerAddr())
	})
	mqttClient.SetOnDisconnect(func(err error) {
		log.Warn("MQTT connection lost", "error", err)
	})

	// Build the gateway
	metrics := gateway.NewMetrics()
	listener, err := gateway.NewListener(gateway.Deps{
		Publisher:      &brokerPublisher{client: mqttClient},
		Topic:          cfg.MQTT.Topic,
		MaxPayload:     cfg.HTTP.MaxPayload,
		PublishTimeout: cfg.GetPublishTimeout(),
		Logger:         log.With("component", "gateway"),
		Metrics:        metrics,
	})
	if err != nil {
		return fmt.Errorf("creating gateway: %w", err)
	}
	defer func() {
		drainCtx, cancel := context.WithTimeout(context.Background(), drainTimeout)
		defer cancel()

		log.Info("waiting for in-flight publishes")
		if drainErr := listener.Drain(drainCtx); drainErr != nil {
			log.Error("error draining publishes", "error", drainErr)
		}
	}()

	gatewayServer, err := api.NewGateway(api.Deps{
		Addr:     cfg.HTTPAddr(),
		Timeouts: cfg.HTTP.Timeouts,
		Logger:   log,
	}, listener)
	if err != nil {
		return fmt.Errorf("creating gateway server: %w", err)
	}
	if err := gatewayServer.Start(ctx); err != nil {
		return fmt.Errorf("starting gateway server: %w", err)
	}
	defer func() {
		if closeErr := gatewayServer.Close(); closeErr != nil {
			log.Error("error closing gateway server", "error", closeErr)
		}
	}()
	log.Info("gateway listening",
		"address", gatewayServer.Addr(),
		"max_payload", cfg.HTTP.MaxPayload,
	)

	// Start the operations server (optional)
	if cfg.Ops.Enabled {
		opsServer, err := api.NewOps(api.OpsDeps{
			Deps: api.Deps{
				Addr:     cfg.OpsAddr(),
				Timeouts: cfg.HTTP.Timeouts,
				Logger:   log,
			},
			Health:  mqttClient,
			Metrics: metrics.Handler(),
			Build:   api.BuildInfo{Version: version, Commit: commit, Date: date},
		})
		if err != nil {
			return fmt.Errorf("creating ops server: %w", err)
		}
		if err := opsServer.Start(ctx); err != nil {
			return fmt.Errorf("starting ops server: %w", err)
		}
		defer func() {
			if closeErr := opsServer.Close(); closeErr != nil {
				log.Error("error closing ops server", "error", closeErr)
			}
		}()
	} else {
		log.Info("ops server disabled")
	}

	if err := healthCheck(ctx, mqttClient, gatewayServer); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	log.Info("all health checks passed")

	log.Info("initialisation complete, waiting for shutdown signal")

	// Wait for shutdown signal
	<-ctx.Done()

	log.Info("shutdown signal received, cleaning up")

	// Deferred calls run in reverse order:
	// 1. Ops server (if enabled)
	// 2. Gateway server (no new requests)
	// 3. Drain in-flight publishes
	// 4. MQTT

	return nil
}

// getConfigPath returns the configuration file path.
// The -config flag wins, then JSON2MQTT_CONFIG, then the default.
func getConfigPath(flagValue string) string {
	if flagValue != "" {
		return flagValue
	}
	if path := os.Getenv(configEnvVar); path != "" {
		return path
	}
	return defaultConfigPath
}

// healthChecker is anything startup can verify before serving.
type healthChecker interface {
	HealthCheck(ctx context.Context) error
}

// healthCheck verifies the broker connection and the gateway listener.
//
// Returns:
//   - error: First health check failure, or nil if all healthy
func healthCheck(ctx context.Context, mqttClient, gatewayServer healthChecker) error {
	if err := mqttClient.HealthCheck(ctx); err != nil {
		return fmt.Errorf("mqtt: %w", err)
	}
	if err := gatewayServer.HealthCheck(ctx); err != nil {
		return fmt.Errorf("gateway: %w", err)
	}
	return nil
}

// brokerPublisher adapts the infrastructure MQTT client to the gateway's
// Publisher interface, applying the configured QoS and retain flag.
type brokerPublisher struct {
	client *mqtt.Client
}

// Publish implements gateway.Publisher.
func (p *brokerPublisher) Publish(ctx context.Context, topic string, payload []byte) error {
	return p.client.PublishDefault(ctx, topic, payload)
}
