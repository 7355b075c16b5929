package completion

import (
	"errors"
	"fmt"
)

// ErrTransport reports that the request never produced an HTTP response
// (connection refused, timeout, DNS failure).
var ErrTransport = errors.New("completion transport error")

// ErrMalformedResponse reports a 2xx body that does not carry an
// assistant message.
var ErrMalformedResponse = errors.New("completion response malformed")

// ServerError reports a non-2xx status from the model server.
type ServerError struct {
	Status int
}

func (e *ServerError) Error() string {
	return fmt.Sprintf("completion server status %d", e.Status)
}
