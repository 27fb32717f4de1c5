package client

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/google/uuid"
)

// maxDrainSize caps how much of an unwanted response body is discarded
// before closing, so a huge error page cannot pin the worker goroutine.
const maxDrainSize = 4 << 10 // 4KB

// Method is the HTTP verb of a [Request]. Only GET and POST are issued.
type Method string

const (
	MethodGet  Method = http.MethodGet
	MethodPost Method = http.MethodPost
)

// ParseMethod maps a loosely typed method name to a [Method].
// Exactly "post" selects POST; every other value, including "POST",
// unknown strings and the empty string, falls through to GET.
func ParseMethod(s string) Method {
	if s == "post" {
		return MethodPost
	}

	return MethodGet
}

// Request is the immutable snapshot taken when a verb is called on a [Query].
type Request struct {
	ID     uuid.UUID `validate:"required"`
	Method Method    `validate:"required,oneof=GET POST"`
	URL    string    `validate:"required,http_url"`
	Body   *string
}

// Outcome is the result of executing one [Request]: either Body is
// valid and Err is nil, or Err describes the failure.
type Outcome struct {
	Body string
	Err  error
}

// Success reports whether the outcome carries a body.
func (o Outcome) Success() bool {
	return o.Err == nil
}

// Succeeded builds a successful outcome.
func Succeeded(body string) Outcome {
	return Outcome{Body: body}
}

// Failed builds a failed outcome. A nil err is replaced with [ErrTransport]
// so the outcome can never look successful by accident.
func Failed(err error) Outcome {
	if err == nil {
		err = ErrTransport
	}

	return Outcome{Err: err}
}

var (
	// ErrUnexpectedStatusCode is the sentinel error wrapped by [StatusError].
	ErrUnexpectedStatusCode = errors.New("unexpected status code")
	// ErrTransport is the sentinel error wrapped by [TransportError].
	ErrTransport = errors.New("transport failure")
	// ErrDecode is the sentinel error wrapped by [DecodeError].
	ErrDecode = errors.New("decode failure")
	// ErrConfig is the sentinel error wrapped by [ConfigError].
	ErrConfig = errors.New("invalid configuration")
)

// StatusError is delivered when the server answers with anything other
// than 200 OK. The body of such a response is never read.
type StatusError struct {
	StatusCode int
	Status     string
}

func (e *StatusError) Error() string {
	if e.Status == "" {
		return fmt.Sprintf("%v: %d", ErrUnexpectedStatusCode, e.StatusCode)
	}

	return fmt.Sprintf("%v: %d (%s)", ErrUnexpectedStatusCode, e.StatusCode, e.Status)
}

func (e *StatusError) Unwrap() error {
	return ErrUnexpectedStatusCode
}

// TransportError is delivered when the request could not be completed:
// invalid URL, dial, write or read failures.
type TransportError struct {
	Op  string
	URL string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%v: %s %s: %v", ErrTransport, e.Op, e.URL, e.Err)
}

func (e *TransportError) Unwrap() []error {
	return []error{ErrTransport, e.Err}
}

// DecodeError is delivered when a successful response could not be
// decoded as structured data. Raw keeps the text that failed.
type DecodeError struct {
	Raw string
	Err error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("%v: parsing %q: %v", ErrDecode, e.Raw, e.Err)
}

func (e *DecodeError) Unwrap() []error {
	return []error{ErrDecode, e.Err}
}

// ConfigError is raised, as a panic, when a parameter value cannot be
// encoded. It indicates a programming error, never a network condition.
type ConfigError struct {
	Attr string
	Err  error
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("%v: encoding parameter %q: %v", ErrConfig, e.Attr, e.Err)
}

func (e *ConfigError) Unwrap() []error {
	return []error{ErrConfig, e.Err}
}
