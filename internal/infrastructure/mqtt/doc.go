// Package mqtt provides the broker connection json2mqtt publishes through.
//
// This package manages:
//   - Connection to the broker with auto-reconnect
//   - Bounded publishing (acknowledgment, context, or publish timeout)
//   - Optional retained online/offline status with Last Will and Testament
//   - Connection health reporting
//
// # Architecture
//
// The client is connected once at startup and shared by every in-flight
// HTTP request. paho serialises outbound traffic, so callers never lock
// around Publish.
//
//	HTTP clients → Gateway Listener → Client.Publish → MQTT Broker
//
// # Security Considerations
//
//   - Enable mqtt.tls for brokers reached over untrusted networks
//   - Credentials come from config or JSON2MQTT_MQTT_USERNAME/PASSWORD
//
// # Usage
//
//	client, err := mqtt.Connect(cfg.MQTT)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	err = client.Publish(ctx, cfg.MQTT.Topic, []byte(`{"on":true}`), 0, false)
package mqtt
