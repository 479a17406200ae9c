package errors

import (
	"errors"
	"fmt"
	"net/http"
	"time"
)

// Kind classifies every failure surfaced by the API client.
type Kind string

const (
	KindUnauthorized Kind = "unauthorized"
	KindForbidden    Kind = "forbidden"
	KindNotFound     Kind = "not_found"
	KindServerError  Kind = "server_error"
	KindClientError  Kind = "client_error"
	KindNetworkError Kind = "network_error"
	KindUnknown      Kind = "unknown"
)

// Default messages used when the server does not supply one.
const (
	MsgUnauthorized = "authentication failed, please log in again"
	MsgForbidden    = "permission denied"
	MsgNotFound     = "requested resource does not exist"
	MsgServerError  = "internal server error"
	MsgNetworkError = "network connection failed, check the network or whether the server is running"
	MsgUnknown      = "unknown error"
)

// NormalizedError is the uniform failure returned by the API client in place
// of raw transport errors. Callers drive user-visible behavior from Kind and
// Message only.
type NormalizedError struct {
	Kind    Kind
	Message string
	// Status is the HTTP status code, zero when no response was received.
	Status    int
	Err       error
	timestamp time.Time
	metadata  map[string]any
}

// NewNormalizedError creates a NormalizedError. An empty message falls back to
// the kind's default.
func NewNormalizedError(kind Kind, status int, message string, cause error) *NormalizedError {
	if message == "" {
		message = DefaultMessage(kind, status)
	}
	return &NormalizedError{
		Kind:      kind,
		Message:   message,
		Status:    status,
		Err:       cause,
		timestamp: time.Now(),
		metadata:  make(map[string]any),
	}
}

// Error returns the user-facing message.
func (e *NormalizedError) Error() string { return e.Message }

func (e *NormalizedError) Unwrap() error        { return e.Err }
func (e *NormalizedError) Domain() string       { return DomainHTTP }
func (e *NormalizedError) Code() string         { return string(e.Kind) }
func (e *NormalizedError) Timestamp() time.Time { return e.timestamp }

// Retryable reports whether repeating the same call later may succeed.
func (e *NormalizedError) Retryable() bool {
	return e.Kind == KindNetworkError || e.Kind == KindServerError
}

func (e *NormalizedError) Metadata() map[string]any {
	meta := make(map[string]any, len(e.metadata)+1)
	for k, v := range e.metadata {
		meta[k] = v
	}
	if e.Status != 0 {
		meta["http_status"] = e.Status
	}
	return meta
}

func (e *NormalizedError) WithMetadata(key string, value any) DomainError {
	cp := *e
	cp.metadata = make(map[string]any, len(e.metadata)+1)
	for k, v := range e.metadata {
		cp.metadata[k] = v
	}
	cp.metadata[key] = value
	return &cp
}

// KindForStatus maps a non-2xx HTTP status code onto the error taxonomy.
func KindForStatus(status int) Kind {
	switch {
	case status == http.StatusUnauthorized:
		return KindUnauthorized
	case status == http.StatusForbidden:
		return KindForbidden
	case status == http.StatusNotFound:
		return KindNotFound
	case status >= 500:
		return KindServerError
	case status >= 400:
		return KindClientError
	default:
		return KindUnknown
	}
}

// DefaultMessage returns the fallback message for a kind and status.
func DefaultMessage(kind Kind, status int) string {
	switch kind {
	case KindUnauthorized:
		return MsgUnauthorized
	case KindForbidden:
		return MsgForbidden
	case KindNotFound:
		return MsgNotFound
	case KindServerError:
		return MsgServerError
	case KindClientError:
		return fmt.Sprintf("request failed (%d)", status)
	case KindNetworkError:
		return MsgNetworkError
	default:
		return MsgUnknown
	}
}

// KindOf returns the kind of the first NormalizedError in err's chain, or
// KindUnknown when there is none.
func KindOf(err error) Kind {
	var normErr *NormalizedError
	if errors.As(err, &normErr) {
		return normErr.Kind
	}
	return KindUnknown
}

// IsKind reports whether err carries a NormalizedError of the given kind.
func IsKind(err error, kind Kind) bool {
	var normErr *NormalizedError
	return errors.As(err, &normErr) && normErr.Kind == kind
}
