package gateway

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"unicode/utf8"
)

// decodeEvent parses raw as exactly one JSON value of any kind.
// Numbers are kept as json.Number so re-encoding never loses precision.
func decodeEvent(raw []byte) (any, error) {
	if !utf8.Valid(raw) {
		return nil, fmt.Errorf("%w: invalid UTF-8", ErrMalformedJSON)
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	var event any
	if err := dec.Decode(&event); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedJSON, err)
	}

	// Only whitespace may follow the value.
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: trailing data after JSON value", ErrMalformedJSON)
	}

	return event, nil
}

// encodeEvent renders event as compact JSON with object keys sorted.
func encodeEvent(event any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(event); err != nil {
		return nil, fmt.Errorf("%w: re-encoding: %w", ErrMalformedJSON, err)
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}
