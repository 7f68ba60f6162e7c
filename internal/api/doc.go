// Package api hosts the HTTP servers of json2mqtt.
//
// This package provides:
//   - The gateway server: every method on every path goes to the gateway Listener
//   - The operations server: /healthz, /metrics and /version
//   - Middleware shared by both (request ID, logging, recovery)
//
// # Architecture
//
// The two servers run on separate listeners so the gateway's contract
// ("any path, POST only") is never shadowed by operational routes. The ops
// server normally binds to loopback.
//
// Both follow the same lifecycle:
//
//	srv, err := api.NewGateway(deps, listener)
//	srv.Start(ctx)
//	defer srv.Close()
package api
