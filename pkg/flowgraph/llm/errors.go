package llm

import (
	"errors"
	"fmt"

	fgerrors "github.com/randalmurphal/interviewflow/pkg/flowgraph/errors"
)

var (
	// ErrModelUnavailable matches a call that failed on every attempt.
	ErrModelUnavailable = errors.New("model unavailable")

	// ErrConfiguration matches a missing client, key or model setting.
	ErrConfiguration = errors.New("model configuration error")

	// ErrParse matches structured output that could not be parsed or validated.
	ErrParse = errors.New("structured output parse error")
)

// ModelUnavailableError reports an exhausted retry budget.
type ModelUnavailableError struct {
	Attempts int
	Err      error
}

func (e *ModelUnavailableError) Error() string {
	return fmt.Sprintf("model unavailable after %d attempts: %v", e.Attempts, e.Err)
}

func (e *ModelUnavailableError) Unwrap() []error {
	return []error{ErrModelUnavailable, e.Err}
}

// ConfigurationError is raised before any call is made and is never retried.
type ConfigurationError struct {
	Reason string
}

func (e *ConfigurationError) Error() string {
	return "model configuration: " + e.Reason
}

func (e *ConfigurationError) Is(target error) bool {
	return target == ErrConfiguration
}

// ErrorCategory marks configuration errors as permanent.
func (e *ConfigurationError) ErrorCategory() fgerrors.Category {
	return fgerrors.CategoryPermanent
}

// ParseError reports structured output that failed decoding or validation.
type ParseError struct {
	// Raw is the model output that failed.
	Raw string
	Err error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse structured output: %v", e.Err)
}

func (e *ParseError) Unwrap() []error {
	return []error{ErrParse, e.Err}
}

// ErrorCategory marks parse failures as malformed output.
func (e *ParseError) ErrorCategory() fgerrors.Category {
	return fgerrors.CategoryMalformed
}
