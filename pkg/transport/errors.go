package transport

import (
	"fmt"
)

// HTTPError represents a failed tastypie request.
type HTTPError struct {
	StatusCode int
	ErrorClass ErrorClass
	Message    string
	URL        string
	Body       []byte
	Err        error
}

// Error implements the error interface.
func (e *HTTPError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("tastypie %s error (status %d): %s: %v",
			e.ErrorClass, e.StatusCode, e.Message, e.Err)
	}
	return fmt.Sprintf("tastypie %s error (status %d): %s",
		e.ErrorClass, e.StatusCode, e.Message)
}

// Unwrap implements error unwrapping for errors.Is/As.
func (e *HTTPError) Unwrap() error {
	return e.Err
}

// Reason returns the error class; the adapter logs it on rejection.
func (e *HTTPError) Reason() string {
	return string(e.ErrorClass)
}
