package gateway

import (
	"context"
	"errors"
	"fmt"
	"net"
)

// ErrMalformedResponse is returned when a processor body is not JSON or lacks the expected shape.
var ErrMalformedResponse = errors.New("malformed processor response")

// TransportError wraps a network or timeout failure talking to the processor.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("gateway %s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// Timeout reports whether the failure was a deadline or client timeout.
func (e *TransportError) Timeout() bool {
	if errors.Is(e.Err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(e.Err, &netErr) && netErr.Timeout()
}
