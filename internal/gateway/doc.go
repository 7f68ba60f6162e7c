// Package gateway turns HTTP POSTs carrying JSON into MQTT publishes.
//
// The Listener serves every path. For each request it checks, in order:
// method, Content-Type, Content-Length, the payload limit, and the body's
// JSON. Accepted bodies are re-encoded compactly with sorted object keys and
// handed to a Publisher on a tracked goroutine; the client is answered
// without waiting for the broker.
//
//	POST /anything (application/json) → Listener → Publisher → MQTT topic
//
// Responses are always one of three literal bodies:
//
//	200 Ok.
//	400 Nope.
//	405 Please use POST.
//
// Publish failures are logged and counted but never change the response.
//
// Usage:
//
//	l, err := gateway.NewListener(gateway.Deps{
//	    Publisher:  pub,
//	    Topic:      cfg.MQTT.Topic,
//	    MaxPayload: cfg.HTTP.MaxPayload,
//	    Logger:     log,
//	})
//	http.Handle("/", l)
//	...
//	l.Drain(ctx)
package gateway
