package resilience

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"syscall"
)

var (
	// ErrInvalidMaxAttempts is returned when a policy allows no attempts.
	ErrInvalidMaxAttempts = errors.New("maxAttempts must be greater than 0")

	// ErrRetriesExhausted is returned by Do when every attempt failed.
	// It wraps the error of the last attempt.
	ErrRetriesExhausted = errors.New("retries exhausted")
)

// Kind classifies a failure of an external call.
type Kind int

const (
	Other Kind = iota
	RateLimited
	AuthFailure
	ServiceUnavailable
)

func (k Kind) String() string {
	switch k {
	case RateLimited:
		return "rate_limited"
	case AuthFailure:
		return "auth_failure"
	case ServiceUnavailable:
		return "service_unavailable"
	default:
		return "other"
	}
}

// Error is a failure of an external call tagged with its Kind.
type Error struct {
	Kind      Kind
	Subsystem string // e.g. "embedding", "graph", "vector_index"
	Op        string
	Err       error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s %s: %s: %v", e.Subsystem, e.Op, e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Tag wraps err in an *Error. A nil err returns nil.
func Tag(subsystem, op string, kind Kind, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Subsystem: subsystem, Op: op, Err: err}
}

// KindOf returns the Kind of the first *Error in err's chain, or Other.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return Other
}

// KindForStatus maps an HTTP status code returned by a provider to a Kind.
// A 500 is left as Other: it is retried but does not mark the service down.
func KindForStatus(code int) Kind {
	switch code {
	case http.StatusTooManyRequests:
		return RateLimited
	case http.StatusUnauthorized, http.StatusForbidden:
		return AuthFailure
	case http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return ServiceUnavailable
	default:
		return Other
	}
}

// ClassifyTransport recognizes failures to reach a service at all: refused
// or reset connections, DNS failures and network timeouts. Context
// cancellation is not a transport failure and returns Other.
func ClassifyTransport(err error) Kind {
	if err == nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return Other
	}

	var dnsErr *net.DNSError
	var opErr *net.OpError
	var netErr net.Error
	switch {
	case errors.Is(err, syscall.ECONNREFUSED), errors.Is(err, syscall.ECONNRESET):
		return ServiceUnavailable
	case errors.As(err, &dnsErr), errors.As(err, &opErr):
		return ServiceUnavailable
	case errors.As(err, &netErr) && netErr.Timeout():
		return ServiceUnavailable
	default:
		return Other
	}
}
