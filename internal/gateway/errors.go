package gateway

import "errors"

// Rejection causes. Result.Err wraps exactly one of these.
var (
	// ErrMethodNotAllowed is returned for any method other than POST.
	ErrMethodNotAllowed = errors.New("gateway: method not allowed")

	// ErrUnsupportedContentType is returned when Content-Type is not exactly application/json.
	ErrUnsupportedContentType = errors.New("gateway: unsupported content type")

	// ErrInvalidContentLength is returned when Content-Length is absent or not a non-negative integer.
	ErrInvalidContentLength = errors.New("gateway: missing or invalid content length")

	// ErrPayloadTooLarge is returned when the declared length reaches max_payload.
	ErrPayloadTooLarge = errors.New("gateway: payload too large")

	// ErrShortBody is returned when fewer bytes arrive than Content-Length declared.
	ErrShortBody = errors.New("gateway: body shorter than content length")

	// ErrMalformedJSON is returned when the body is not a single valid UTF-8 JSON value.
	ErrMalformedJSON = errors.New("gateway: malformed JSON")

	// ErrBrokerUnavailable wraps publish failures. It is logged, never returned to clients.
	ErrBrokerUnavailable = errors.New("gateway: broker unavailable")
)
