package template

import "os"

// MissingAction specifies how to handle missing variables.
type MissingAction int

const (
	// MissingKeep leaves the placeholder as-is. This is the default.
	MissingKeep MissingAction = iota

	// MissingEmpty replaces the placeholder with an empty string.
	MissingEmpty

	// MissingError reports the variable in an *UndefinedVariableError.
	MissingError
)

// Option configures an Expander.
type Option func(*Expander)

// WithMissingAction sets how missing variables are handled.
func WithMissingAction(action MissingAction) Option {
	return func(e *Expander) {
		e.missingAction = action
	}
}

// WithBraceStyle enables or disables ${var} expansion.
func WithBraceStyle(enabled bool) Option {
	return func(e *Expander) {
		e.braceStyle = enabled
	}
}

// WithDollarStyle enables or disables $var expansion.
//
// Prompts usually disable it, since candidates and models write dollar
// amounts in free text.
func WithDollarStyle(enabled bool) Option {
	return func(e *Expander) {
		e.dollarStyle = enabled
	}
}

// WithLookup consults fn for names absent from the vars map.
func WithLookup(fn Lookup) Option {
	return func(e *Expander) {
		e.lookup = fn
	}
}

// WithEnvLookup resolves names absent from the vars map from the process
// environment. Empty variables count as unset, so ${VAR:-default} falls
// back the way a shell does.
func WithEnvLookup() Option {
	return func(e *Expander) {
		e.lookup = os.LookupEnv
		e.emptyIsUnset = true
	}
}
