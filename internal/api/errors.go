package api

import "errors"

var (
	ErrRequestFailed = errors.New("request failed")
	ErrTransport     = errors.New("transport failure")
)

// RequestError is a non-2xx answer from the backend. Message is generic and
// safe to show to users.
type RequestError struct {
	Op         string
	StatusCode int
	Message    string
}

func (e *RequestError) Error() string {
	return e.Message
}

func (e *RequestError) Is(target error) bool {
	return target == ErrRequestFailed
}

// TransportError wraps a network or decoding failure. Its message is the
// underlying error's, unchanged.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return e.Err.Error()
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

func (e *TransportError) Is(target error) bool {
	return target == ErrTransport
}
