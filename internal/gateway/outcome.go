package gateway

import "net/http"

// Response bodies. Every response carries exactly one of these.
const (
	BodyAccepted = "Ok."
	BodyRejected = "Nope."
	BodyUsePOST  = "Please use POST."
)

// Outcome is the gateway's decision for one request. It is fixed before any
// publish is attempted and never changed by the publish result.
type Outcome int

const (
	Accepted Outcome = iota
	RejectedBadMethod
	RejectedBadContentType
	RejectedTooLarge
	RejectedMalformedJSON
)

// outcomes lists every Outcome, in declaration order.
var outcomes = []Outcome{
	Accepted,
	RejectedBadMethod,
	RejectedBadContentType,
	RejectedTooLarge,
	RejectedMalformedJSON,
}

// String returns the label used in logs and metrics.
func (o Outcome) String() string {
	switch o {
	case Accepted:
		return "accepted"
	case RejectedBadMethod:
		return "bad_method"
	case RejectedBadContentType:
		return "bad_content_type"
	case RejectedTooLarge:
		return "too_large"
	case RejectedMalformedJSON:
		return "malformed_json"
	default:
		return "unknown"
	}
}

// StatusCode maps the outcome to its HTTP status.
func (o Outcome) StatusCode() int {
	switch o {
	case Accepted:
		return http.StatusOK
	case RejectedBadMethod:
		return http.StatusMethodNotAllowed
	default:
		return http.StatusBadRequest
	}
}

// ResponseBody maps the outcome to its literal response body.
func (o Outcome) ResponseBody() string {
	switch o {
	case Accepted:
		return BodyAccepted
	case RejectedBadMethod:
		return BodyUsePOST
	default:
		return BodyRejected
	}
}
