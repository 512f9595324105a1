package ollama

import (
	"errors"
	"fmt"
)

// UnavailableError signals that the inference server could not be reached
// (connection refused, DNS failure, timeout).
type UnavailableError struct {
	URL string
	Err error
}

func (e UnavailableError) Error() string {
	return fmt.Sprintf("could not connect to Ollama server at %s: %v", e.URL, e.Err)
}

func (e UnavailableError) Unwrap() error { return e.Err }

// IsUnavailable reports whether err indicates an unreachable upstream.
func IsUnavailable(err error) bool {
	var ue UnavailableError
	return errors.As(err, &ue)
}

// StatusError is returned when the inference server answers with a non-2xx status.
type StatusError struct {
	Code int
	Body string
}

func (e StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("ollama http error: %d", e.Code)
	}
	return fmt.Sprintf("ollama http error: %d: %s", e.Code, e.Body)
}

// StatusCode exposes the upstream status.
func (e StatusError) StatusCode() int { return e.Code }

// IsStatus reports whether err carries a non-2xx upstream status.
func IsStatus(err error) bool {
	var se StatusError
	return errors.As(err, &se)
}

// ProtocolError signals a 2xx reply whose body could not be decoded.
type ProtocolError struct {
	Endpoint string
	Err      error
}

func (e ProtocolError) Error() string {
	return fmt.Sprintf("invalid response format from Ollama %s: %v", e.Endpoint, e.Err)
}

func (e ProtocolError) Unwrap() error { return e.Err }

// IsProtocol reports whether err indicates a malformed upstream body.
// StatusError counts as a protocol failure too.
func IsProtocol(err error) bool {
	var pe ProtocolError
	return errors.As(err, &pe) || IsStatus(err)
}

// MissingFieldError signals an expected field absent from an otherwise valid reply.
type MissingFieldError struct{ Field string }

func (e MissingFieldError) Error() string { return "missing field in Ollama response: " + e.Field }

// IsMissingField reports whether err indicates an absent response field.
func IsMissingField(err error) bool {
	var me MissingFieldError
	return errors.As(err, &me)
}
