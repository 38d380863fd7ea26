package api

import (
	"fmt"
)

// Error is a non-2xx response from the identity server, carrying the
// status code and the server's message payload. Kind, when set, is the
// domain sentinel the status maps to; errors.Is matches through Unwrap.
type Error struct {
	StatusCode int
	Message    string
	Kind       error
}

func (e *Error) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("identity server: %s (status %d)", e.Message, e.StatusCode)
	}
	return fmt.Sprintf("identity server: status %d", e.StatusCode)
}

func (e *Error) Unwrap() error { return e.Kind }
