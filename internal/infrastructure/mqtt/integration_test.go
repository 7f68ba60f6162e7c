//go:build integration

package mqtt

import (
	"context"
	"errors"
	"testing"
	"time"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/nerrad567/json2mqtt/internal/infrastructure/config"
)

// Integration tests against a real broker.
// These tests require a running MQTT broker at 127.0.0.1:1883.
//
// Run with:
//   go test -tags=integration -v ./internal/infrastructure/mqtt/...

func integrationConfig(clientID string) config.MQTTConfig {
	cfg := testConfig()
	cfg.ClientID = clientID
	cfg.PublishTimeout = 5
	return cfg
}

// subscribeRaw opens a plain paho subscriber for verifying what the bridge publishes.
func subscribeRaw(t *testing.T, topic string) <-chan []byte {
	t.Helper()

	opts := pahomqtt.NewClientOptions().
		AddBroker("tcp://127.0.0.1:1883").
		SetClientID("json2mqtt-int-observer")
	sub := pahomqtt.NewClient(opts)
	if token := sub.Connect(); !token.WaitTimeout(5*time.Second) || token.Error() != nil {
		t.Fatalf("observer connect failed: %v", token.Error())
	}
	t.Cleanup(func() { sub.Disconnect(250) })

	received := make(chan []byte, 16)
	token := sub.Subscribe(topic, 1, func(_ pahomqtt.Client, msg pahomqtt.Message) {
		received <- msg.Payload()
	})
	if !token.WaitTimeout(5*time.Second) || token.Error() != nil {
		t.Fatalf("observer subscribe failed: %v", token.Error())
	}
	return received
}

func TestIntegration_Connect(t *testing.T) {
	client, err := Connect(integrationConfig("json2mqtt-int-connect"))
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	defer client.Close()

	if !client.IsConnected() {
		t.Error("IsConnected() = false, want true")
	}
	if err := client.HealthCheck(context.Background()); err != nil {
		t.Errorf("HealthCheck() error = %v", err)
	}
}

func TestIntegration_ConnectInvalidBroker(t *testing.T) {
	cfg := integrationConfig("json2mqtt-int-invalid")
	cfg.Port = 19999

	_, err := Connect(cfg)
	if !errors.Is(err, ErrConnectionFailed) {
		t.Errorf("Connect() error = %v, want ErrConnectionFailed", err)
	}
}

func TestIntegration_PublishRoundtrip(t *testing.T) {
	topic := "json2mqtt/int/roundtrip"
	received := subscribeRaw(t, topic)

	client, err := Connect(integrationConfig("json2mqtt-int-pub"))
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	defer client.Close()

	expected := `{"a":1}`
	if err := client.PublishString(context.Background(), topic, expected, 1, false); err != nil {
		t.Fatalf("PublishString() error = %v", err)
	}

	select {
	case msg := <-received:
		if string(msg) != expected {
			t.Errorf("received = %q, want %q", msg, expected)
		}
	case <-time.After(5 * time.Second):
		t.Error("timeout waiting for message")
	}
}

func TestIntegration_StatusTopic(t *testing.T) {
	topic := "json2mqtt/int/status"
	received := subscribeRaw(t, topic)

	cfg := integrationConfig("json2mqtt-int-status")
	cfg.StatusTopic = topic
	client, err := Connect(cfg)
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}

	select {
	case <-received:
	case <-time.After(5 * time.Second):
		t.Fatal("timeout waiting for online status")
	}

	if err := client.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	select {
	case <-received:
	case <-time.After(5 * time.Second):
		t.Error("timeout waiting for offline status")
	}
}
