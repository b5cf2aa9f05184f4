// Package errors classifies failures of model and tool calls and retries
// the ones worth retrying.
//
//   - Categorization: decide whether an error is transient, permanent or
//     a malformed model output.
//   - Retry: run an operation as a sequence of explicit attempts with
//     exponential backoff.
package errors

import (
	"context"
	"errors"
	"fmt"
)

// Category represents how an error should be handled.
type Category int

const (
	// CategoryUnknown is returned for errors carrying no classification.
	CategoryUnknown Category = iota

	// CategoryTransient indicates retry will likely help.
	// Examples: rate limits, timeouts, overloaded upstream.
	CategoryTransient

	// CategoryPermanent indicates retry won't help.
	// Examples: authentication failures, missing configuration, cancellation.
	CategoryPermanent

	// CategoryMalformed indicates the model answered but the output could not
	// be parsed or failed schema validation. Asking again may succeed.
	CategoryMalformed
)

// String returns the category name.
func (c Category) String() string {
	switch c {
	case CategoryTransient:
		return "transient"
	case CategoryPermanent:
		return "permanent"
	case CategoryMalformed:
		return "malformed"
	default:
		return "unknown"
	}
}

// Categorizer is implemented by errors that know their own category.
type Categorizer interface {
	ErrorCategory() Category
}

// CategorizedError wraps an error with its category and context.
type CategorizedError struct {
	// Err is the underlying error.
	Err error

	// Category indicates how this error should be handled.
	Category Category

	// Retries is the number of attempts that have been made.
	Retries int

	// Context describes what operation was being attempted.
	Context string
}

// Error implements the error interface.
func (e *CategorizedError) Error() string {
	if e.Context != "" {
		return fmt.Sprintf("%s: %s (category: %s, attempts: %d)",
			e.Context, e.Err, e.Category, e.Retries)
	}
	return fmt.Sprintf("%s (category: %s, attempts: %d)",
		e.Err, e.Category, e.Retries)
}

// Unwrap returns the underlying error.
func (e *CategorizedError) Unwrap() error {
	return e.Err
}

// NewCategorized creates a new categorized error.
func NewCategorized(err error, category Category, context string) *CategorizedError {
	return &CategorizedError{
		Err:      err,
		Category: category,
		Context:  context,
	}
}

// Transient creates a transient error.
func Transient(err error, context string) *CategorizedError {
	return NewCategorized(err, CategoryTransient, context)
}

// Permanent creates a permanent error.
func Permanent(err error, context string) *CategorizedError {
	return NewCategorized(err, CategoryPermanent, context)
}

// Malformed creates a malformed-output error.
func Malformed(err error, context string) *CategorizedError {
	return NewCategorized(err, CategoryMalformed, context)
}

// Categorize determines how an error should be handled.
func Categorize(err error) Category {
	if err == nil {
		return CategoryUnknown
	}

	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return CategoryPermanent
	}

	var catErr *CategorizedError
	if errors.As(err, &catErr) {
		return catErr.Category
	}

	var self Categorizer
	if errors.As(err, &self) {
		return self.ErrorCategory()
	}

	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		switch httpErr.StatusCode {
		case 408, 409, 429, 529:
			return CategoryTransient
		case 401, 403, 404:
			return CategoryPermanent
		default:
			if httpErr.StatusCode >= 500 {
				return CategoryTransient
			}
			return CategoryPermanent
		}
	}

	var timeoutErr *TimeoutError
	if errors.As(err, &timeoutErr) {
		return CategoryTransient
	}

	return CategoryUnknown
}

// IsRetryable reports whether the error is known to be transient.
func IsRetryable(err error) bool {
	return Categorize(err) == CategoryTransient
}

// IsPermanent reports whether retrying cannot help.
func IsPermanent(err error) bool {
	return Categorize(err) == CategoryPermanent
}

// RetryUnlessPermanent retries every failure except permanent ones.
// Model calls use it: an unclassified failure is worth another attempt.
func RetryUnlessPermanent(err error) bool {
	return !IsPermanent(err)
}
