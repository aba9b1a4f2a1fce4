// Package inference talks to the hosted model inference API and reports every
// call as a typed Result instead of a panic or a bare error.
package inference

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/abdhe/studyhub-assist/pkg/resilience"
)

// Request is the JSON body sent to a model endpoint.
type Request struct {
	Inputs     string      `json:"inputs"`
	Parameters *Parameters `json:"parameters,omitempty"`
	Options    Options     `json:"options"`
}

// Parameters are the generation settings understood by summarization and
// text2text models.
type Parameters struct {
	MaxLength int  `json:"max_length,omitempty"`
	MinLength int  `json:"min_length,omitempty"`
	DoSample  bool `json:"do_sample"`
}

// Options control API-side behavior rather than generation.
type Options struct {
	UseCache     bool `json:"use_cache"`
	WaitForModel bool `json:"wait_for_model,omitempty"`
}

// FailureKind classifies why a call did not produce text.
type FailureKind string

const (
	FailureNone      FailureKind = ""
	FailureTransient FailureKind = "transient" // network error or timeout, retries exhausted
	FailureStatus    FailureKind = "status"    // non-200 response
	FailureMalformed FailureKind = "malformed" // body missing summary_text/generated_text
	FailureEmpty     FailureKind = "empty"     // well-formed but blank output
	FailureCancelled FailureKind = "cancelled" // caller context ended
)

// Result is the outcome of one Post, after transport-level retries.
type Result struct {
	Text     string
	Status   int // last HTTP status seen, 0 if none
	Attempts int
	Failure  FailureKind
	Err      error
}

// OK reports whether the call produced text.
func (r Result) OK() bool { return r.Failure == FailureNone && r.Err == nil }

// Transport posts one request to one model.
type Transport interface {
	// Post sends req to model. timeout bounds each individual attempt.
	Post(ctx context.Context, model string, req Request, timeout time.Duration) Result
}

var (
	// ErrMalformed is wrapped when the response body has no usable text field.
	ErrMalformed = errors.New("malformed inference response")
	// ErrEmptyOutput is wrapped when the model returned blank text.
	ErrEmptyOutput = errors.New("empty inference output")
)

// StatusError is a non-200 response from the API.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("huggingface: API error %d: %s", e.Code, e.Body)
}

// StatusCode lets the retry policy classify the error.
func (e *StatusError) StatusCode() int { return e.Code }

// Classify maps a transport error to a FailureKind.
func Classify(err error) FailureKind {
	var se *StatusError
	switch {
	case err == nil:
		return FailureNone
	case errors.Is(err, context.Canceled):
		return FailureCancelled
	case errors.As(err, &se):
		return FailureStatus
	case errors.Is(err, resilience.ErrTransient), errors.Is(err, context.DeadlineExceeded):
		return FailureTransient
	case errors.Is(err, ErrEmptyOutput):
		return FailureEmpty
	default:
		return FailureMalformed
	}
}
