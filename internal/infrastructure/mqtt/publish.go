package mqtt

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// Maximum payload size for MQTT messages (1MB).
// The gateway's own limit is far lower; this guards other callers.
const maxPayloadSize = 1 << 20

// Publish sends a message to the specified MQTT topic.
//
// The call returns when the broker acknowledges the message (QoS 1/2), when
// paho has written it (QoS 0), when ctx is done, or after the configured
// publish timeout, whichever comes first.
//
// Parameters:
//   - ctx: Context for cancellation
//   - topic: The topic to publish to (no wildcards)
//   - payload: The message payload (max 1MB)
//   - qos: Quality of Service level (0, 1, or 2)
//   - retained: Whether the broker should retain the message for new subscribers
//
// Returns:
//   - error: nil on success, or wrapped error describing the failure
//
// Example:
//
//	err := client.Publish(ctx, "default/topic", []byte(`{"a":1}`), 0, false)
func (c *Client) Publish(ctx context.Context, topic string, payload []byte, qos byte, retained bool) error {
	if topic == "" || strings.ContainsAny(topic, "+#") {
		return ErrInvalidTopic
	}
	if qos > maxQoS {
		return ErrInvalidQoS
	}
	if len(payload) > maxPayloadSize {
		return fmt.Errorf("%w: payload size %d exceeds maximum %d bytes", ErrPublishFailed, len(payload), maxPayloadSize)
	}

	if !c.IsConnected() {
		return ErrNotConnected
	}

	timer := time.NewTimer(c.publishTimeout)
	defer timer.Stop()

	token := c.client.Publish(topic, qos, retained, payload)
	select {
	case <-token.Done():
	case <-ctx.Done():
		return fmt.Errorf("%w: %w", ErrPublishFailed, ctx.Err())
	case <-timer.C:
		return fmt.Errorf("%w: %w after %v", ErrPublishFailed, ErrTimeout, c.publishTimeout)
	}

	if err := token.Error(); err != nil {
		return fmt.Errorf("%w: %w", ErrPublishFailed, err)
	}

	return nil
}

// PublishString is a convenience method that publishes a string payload.
func (c *Client) PublishString(ctx context.Context, topic string, payload string, qos byte, retained bool) error {
	return c.Publish(ctx, topic, []byte(payload), qos, retained)
}

// PublishDefault publishes with the QoS and retain flag from configuration.
func (c *Client) PublishDefault(ctx context.Context, topic string, payload []byte) error {
	return c.Publish(ctx, topic, payload, byte(c.cfg.QoS), c.cfg.Retained)
}
