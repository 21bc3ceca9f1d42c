package transport

import (
	"errors"
	"fmt"
)

// ErrMalformedReply is wrapped when a 2xx body is not the expected JSON.
var ErrMalformedReply = errors.New("malformed reply")

// ServerError reports a non-2xx response. The body is not inspected.
type ServerError struct {
	StatusCode int
	Status     string
}

func (e *ServerError) Error() string {
	return fmt.Sprintf("server error: %s", e.Status)
}

// TransportError wraps every failure of a request: network errors,
// *ServerError and ErrMalformedReply.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }
