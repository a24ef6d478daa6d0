package client

import (
	"errors"
	"fmt"
	"net/http"
)

// TransportError means the request could not complete or the response could
// not be decoded.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// BackendError is a logical failure reported by the backend
// ({"success": false, "error": "..."}).
type BackendError struct {
	Op         string
	StatusCode int
	Message    string
}

// IsNotFound reports whether err is a backend 404, such as an unknown symbol.
func IsNotFound(err error) bool {
	var be *BackendError
	return errors.As(err, &be) && be.StatusCode == http.StatusNotFound
}

func (e *BackendError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("%s: backend returned %d", e.Op, e.StatusCode)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Message)
}
