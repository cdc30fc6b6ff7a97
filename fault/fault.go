// Package fault defines the error taxonomy shared by the capture, analysis
// and network layers, and the retryability rules that go with it.
package fault

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
)

type Kind int

const (
	Unknown Kind = iota
	PermissionDenied
	DeviceUnavailable
	InvalidAudio
	AnalysisFailed
	RateLimited
	NetworkError
	Timeout
	ServiceUnavailable
	AuthenticationError
	InvalidInput
)

func (k Kind) String() string {
	switch k {
	case PermissionDenied:
		return "permission_denied"
	case DeviceUnavailable:
		return "device_unavailable"
	case InvalidAudio:
		return "invalid_audio"
	case AnalysisFailed:
		return "analysis_failed"
	case RateLimited:
		return "rate_limited"
	case NetworkError:
		return "network_error"
	case Timeout:
		return "timeout"
	case ServiceUnavailable:
		return "service_unavailable"
	case AuthenticationError:
		return "authentication_error"
	case InvalidInput:
		return "invalid_input"
	default:
		return "unknown"
	}
}

// Retryable reports whether an operation failing with this kind may be
// retried. Unknown is treated as retryable so transient failures that were
// not classified still get a second chance.
func (k Kind) Retryable() bool {
	switch k {
	case RateLimited, NetworkError, Timeout, ServiceUnavailable, Unknown:
		return true
	default:
		return false
	}
}

type Error struct {
	Kind Kind
	Op   string // operation that failed, e.g. "capture.start"
	Err  error  // underlying cause, may be nil
}

func (e *Error) Error() string {
	if e.Err == nil {
		return e.Op + ": " + e.Kind.String()
	}
	return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

func New(kind Kind, op string) *Error {
	return &Error{Kind: kind, Op: op}
}

func Wrap(kind Kind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// KindOf extracts the Kind from err, or Unknown if err carries none.
func KindOf(err error) Kind {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Kind
	}
	return Unknown
}

// Retryable reports whether err may be retried per the taxonomy. A nil
// error is not retryable.
func Retryable(err error) bool {
	if err == nil {
		return false
	}
	return KindOf(err).Retryable()
}

// Classify maps a transport-level error onto the taxonomy. Errors already
// carrying a Kind pass through unchanged.
func Classify(op string, err error) error {
	if err == nil {
		return nil
	}
	var fe *Error
	if errors.As(err, &fe) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return Wrap(Timeout, op, err)
	}
	var ne net.Error
	if errors.As(err, &ne) {
		if ne.Timeout() {
			return Wrap(Timeout, op, err)
		}
		return Wrap(NetworkError, op, err)
	}
	return Wrap(Unknown, op, err)
}

// FromStatus maps an HTTP response status onto the taxonomy. Statuses below
// 400 return nil.
func FromStatus(op string, status int, body string) error {
	switch {
	case status < 400:
		return nil
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return Wrap(AuthenticationError, op, fmt.Errorf("status %d: %s", status, body))
	case status == http.StatusTooManyRequests:
		return Wrap(RateLimited, op, fmt.Errorf("status %d: %s", status, body))
	case status == http.StatusBadRequest || status == http.StatusUnprocessableEntity:
		return Wrap(InvalidInput, op, fmt.Errorf("status %d: %s", status, body))
	case status >= 500:
		return Wrap(ServiceUnavailable, op, fmt.Errorf("status %d: %s", status, body))
	default:
		return Wrap(Unknown, op, fmt.Errorf("status %d: %s", status, body))
	}
}
