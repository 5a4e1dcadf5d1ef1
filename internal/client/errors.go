package client

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound           = errors.New("resource not found, please verify your Freshservice domain and endpoint configuration")
	ErrAuth               = errors.New("authentication failed, please check your API key")
	ErrUnexpectedResponse = errors.New("unexpected response from API")
)

// APIError is any other HTTP error status returned by the API.
type APIError struct {
	Status int
	Body   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("API error %d: %s", e.Status, e.Body)
}

// DecodeError reports a successful status whose body is not valid JSON for
// the expected shape.
type DecodeError struct {
	Body string
	Err  error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("invalid JSON response from API: %v", e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// TransportExhaustedError is returned once every attempt failed before an
// HTTP response was received.
type TransportExhaustedError struct {
	Attempts int
	Cause    error
}

func (e *TransportExhaustedError) Error() string {
	return fmt.Sprintf("request failed after %d attempts: %v", e.Attempts, e.Cause)
}

func (e *TransportExhaustedError) Unwrap() error {
	return e.Cause
}

// transportError marks a failure that happened before a response arrived
// and is therefore worth another attempt.
type transportError struct {
	cause error
}

func (e *transportError) Error() string {
	return e.cause.Error()
}

func (e *transportError) Unwrap() error {
	return e.cause
}

// AttachmentError reports an attachment that could not be read from disk.
// Nothing is sent to the API when it occurs.
type AttachmentError struct {
	Path string
	Err  error
}

func (e *AttachmentError) Error() string {
	return fmt.Sprintf("failed to read attachment %s: %v", e.Path, e.Err)
}

func (e *AttachmentError) Unwrap() error {
	return e.Err
}
