package gateway

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/nerrad567/json2mqtt/internal/infrastructure/logging"
)

// contentTypeJSON is the only Content-Type the gateway accepts.
const contentTypeJSON = "application/json"

// defaultPublishTimeout bounds a publish when Deps leaves it unset.
const defaultPublishTimeout = 5 * time.Second

// Publisher delivers one payload to the broker.
// Implementations must be safe for concurrent use.
type Publisher interface {
	Publish(ctx context.Context, topic string, payload []byte) error
}

// InboundRequest is the part of an HTTP request the gateway looks at.
type InboundRequest struct {
	Method      string
	ContentType string
	// ContentLength is the declared body length, or -1 when absent or invalid.
	ContentLength int64
	Body          io.Reader
}

// PublishCommand is built once per accepted request and handed straight to
// the Publisher. It is never queued or retried.
type PublishCommand struct {
	Topic   string
	Payload []byte
}

// Result is the gateway's answer to one request.
type Result struct {
	Outcome Outcome
	// Err wraps the rejection cause; nil when Accepted.
	Err error
	// CloseConnection is set when unread body bytes may remain on the connection.
	CloseConnection bool
}

// StatusCode returns the HTTP status for the result.
func (r Result) StatusCode() int { return r.Outcome.StatusCode() }

// Body returns the literal response body for the result.
func (r Result) Body() string { return r.Outcome.ResponseBody() }

// Deps holds the dependencies required by the Listener.
type Deps struct {
	Publisher      Publisher
	Topic          string
	MaxPayload     int64
	PublishTimeout time.Duration
	Logger         *logging.Logger
	// Metrics is optional; a private set is created when nil.
	Metrics *Metrics
}

// Listener validates inbound requests and forwards accepted JSON to the broker.
//
// Thread Safety: Handle and ServeHTTP are safe for concurrent use. Drain must
// only be called after the HTTP server has stopped accepting requests.
type Listener struct {
	publisher      Publisher
	topic          string
	maxPayload     int64
	publishTimeout time.Duration
	logger         *logging.Logger
	metrics        *Metrics

	// publishCtx outlives individual requests; cancelPublishes aborts
	// outstanding publishes when Drain gives up.
	publishCtx      context.Context
	cancelPublishes context.CancelFunc
	inflight        sync.WaitGroup
}

// NewListener creates a Listener.
//
// Returns:
//   - *Listener: Ready to serve
//   - error: If a required dependency is missing or a limit is invalid
func NewListener(deps Deps) (*Listener, error) {
	if deps.Publisher == nil {
		return nil, fmt.Errorf("publisher is required")
	}
	if deps.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if deps.Topic == "" {
		return nil, fmt.Errorf("topic is required")
	}
	if deps.MaxPayload <= 0 {
		return nil, fmt.Errorf("max payload must be positive, got %d", deps.MaxPayload)
	}

	timeout := deps.PublishTimeout
	if timeout <= 0 {
		timeout = defaultPublishTimeout
	}

	metrics := deps.Metrics
	if metrics == nil {
		metrics = NewMetrics()
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Listener{
		publisher:       deps.Publisher,
		topic:           deps.Topic,
		maxPayload:      deps.MaxPayload,
		publishTimeout:  timeout,
		logger:          deps.Logger,
		metrics:         metrics,
		publishCtx:      ctx,
		cancelPublishes: cancel,
	}, nil
}

// Metrics returns the collectors the listener reports to.
func (l *Listener) Metrics() *Metrics {
	return l.metrics
}

// ServeHTTP adapts Handle to net/http. Every path is served the same way.
func (l *Listener) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	res := l.Handle(InboundRequest{
		Method:        r.Method,
		ContentType:   r.Header.Get("Content-Type"),
		ContentLength: r.ContentLength,
		Body:          r.Body,
	})

	h := w.Header()
	if res.CloseConnection {
		h.Set("Connection", "close")
	}
	if res.Outcome == RejectedBadMethod {
		h.Set("Allow", http.MethodPost)
	}
	h.Set("Content-Type", "text/html")
	w.WriteHeader(res.StatusCode())
	//nolint:errcheck // Best-effort write to response; connection may be closed
	io.WriteString(w, res.Body())
}

// Handle decides the outcome of one request. On Accepted it has already
// dispatched exactly one publish; on every other outcome it has dispatched none.
// The body is never read past ContentLength.
func (l *Listener) Handle(req InboundRequest) Result {
	res := l.evaluate(req)
	l.metrics.observeOutcome(res.Outcome)

	if res.Err != nil {
		l.logger.Debug("request rejected",
			"outcome", res.Outcome.String(),
			"method", req.Method,
			"content_length", req.ContentLength,
			"error", res.Err,
		)
	}
	return res
}

func (l *Listener) evaluate(req InboundRequest) Result {
	if req.Method != http.MethodPost {
		return Result{
			Outcome: RejectedBadMethod,
			Err:     fmt.Errorf("%w: %s", ErrMethodNotAllowed, req.Method),
		}
	}

	if req.ContentType != contentTypeJSON {
		return Result{
			Outcome:         RejectedBadContentType,
			Err:             fmt.Errorf("%w: %q", ErrUnsupportedContentType, req.ContentType),
			CloseConnection: !discard(req.Body, req.ContentLength),
		}
	}

	if req.ContentLength < 0 {
		return Result{
			Outcome:         RejectedMalformedJSON,
			Err:             ErrInvalidContentLength,
			CloseConnection: true,
		}
	}

	if req.ContentLength >= l.maxPayload {
		return Result{
			Outcome:         RejectedTooLarge,
			Err:             fmt.Errorf("%w: %d bytes, limit %d", ErrPayloadTooLarge, req.ContentLength, l.maxPayload),
			CloseConnection: true,
		}
	}

	raw, err := readBody(req.Body, req.ContentLength)
	if err != nil {
		return Result{Outcome: RejectedMalformedJSON, Err: err, CloseConnection: true}
	}

	event, err := decodeEvent(raw)
	if err != nil {
		return Result{Outcome: RejectedMalformedJSON, Err: err}
	}

	payload, err := encodeEvent(event)
	if err != nil {
		return Result{Outcome: RejectedMalformedJSON, Err: err}
	}

	l.metrics.observeAccepted(len(raw))
	l.dispatch(PublishCommand{Topic: l.topic, Payload: payload})

	return Result{Outcome: Accepted}
}

// dispatch publishes cmd in the background. The request never waits for it.
func (l *Listener) dispatch(cmd PublishCommand) {
	l.inflight.Add(1)
	l.metrics.publishStarted()

	go func() {
		defer l.inflight.Done()

		ctx, cancel := context.WithTimeout(l.publishCtx, l.publishTimeout)
		defer cancel()

		start := time.Now()
		err := l.publisher.Publish(ctx, cmd.Topic, cmd.Payload)
		l.metrics.publishFinished(time.Since(start), err)

		if err != nil {
			l.logger.Error("publish failed",
				"topic", cmd.Topic,
				"bytes", len(cmd.Payload),
				"error", fmt.Errorf("%w: %w", ErrBrokerUnavailable, err),
			)
		}
	}()
}

// Drain waits for in-flight publishes to finish. If ctx ends first, the
// remaining publishes are cancelled and Drain returns once they have exited.
func (l *Listener) Drain(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		l.inflight.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		l.cancelPublishes()
		<-done
		return fmt.Errorf("draining publishes: %w", ctx.Err())
	}
}

// discard consumes exactly n bytes of body. It reports false when the
// length is unknown or the body ended early.
func discard(body io.Reader, n int64) bool {
	if n < 0 {
		return false
	}
	if n == 0 {
		return true
	}
	if body == nil {
		return false
	}
	_, err := io.CopyN(io.Discard, body, n)
	return err == nil
}

// readBody reads exactly n bytes of body.
func readBody(body io.Reader, n int64) ([]byte, error) {
	buf := make([]byte, n)
	if n == 0 {
		return buf, nil
	}
	if body == nil {
		return nil, fmt.Errorf("%w: no body, expected %d bytes", ErrShortBody, n)
	}

	read, err := io.ReadFull(body, buf)
	if err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, fmt.Errorf("%w: got %d of %d bytes", ErrShortBody, read, n)
		}
		return nil, fmt.Errorf("%w: %w", ErrShortBody, err)
	}
	return buf, nil
}
