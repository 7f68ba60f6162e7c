// Package config handles loading and validating json2mqtt configuration.
//
// This package manages:
//   - Loading configuration from YAML files
//   - Overriding with environment variables
//   - Validation of required fields
//   - Default value handling
//
// The file has two functional sections, http and mqtt, plus ops and
// logging for the operational surface:
//
//	http:
//	  ip: ""             # all interfaces
//	  port: 80
//	  max_payload: 2048
//	mqtt:
//	  hostname: "10.10.9.7"
//	  port: 1883
//	  timeout: 60        # keep-alive seconds
//	  topic: "default/topic"
//
// Security Considerations:
//   - Broker credentials should be set via JSON2MQTT_MQTT_USERNAME and
//     JSON2MQTT_MQTT_PASSWORD rather than committed to the file
//   - The config file should have restricted permissions (0600)
//
// Configuration is loaded once at startup and treated as immutable.
//
// Usage:
//
//	cfg, err := config.Load("configs/config.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(cfg.MQTT.Topic)
package config
