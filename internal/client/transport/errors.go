package transport

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrTransient marks failures worth retrying: network errors, attempt
// timeouts and server replies that report a temporary condition.
var ErrTransient = errors.New("transient upload failure")

// Error kinds reported by the server that this package interprets.
const KindTransient = "transient"

// RemoteError is a non-success reply from the server. Message and Kind are
// copied from the JSON envelope when the body carries one.
type RemoteError struct {
	StatusCode int
	Kind       string
	Message    string
}

func (e *RemoteError) Error() string {
	if e.Kind != "" {
		return fmt.Sprintf("server returned %d (%s): %s", e.StatusCode, e.Kind, e.Message)
	}
	return fmt.Sprintf("server returned %d: %s", e.StatusCode, e.Message)
}

// Is reports whether the reply is transient, so that
// errors.Is(err, ErrTransient) works on a RemoteError.
func (e *RemoteError) Is(target error) bool {
	return target == ErrTransient && e.Transient()
}

// Transient is true for kind "transient" and for statuses that proxies and
// overloaded servers use for temporary conditions.
func (e *RemoteError) Transient() bool {
	if e.Kind == KindTransient {
		return true
	}
	switch e.StatusCode {
	case http.StatusRequestTimeout, http.StatusTooManyRequests,
		http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return true
	}
	return false
}
