package template

import (
	"fmt"
	"regexp"
	"strings"
)

var (
	// bracePattern matches ${name} and ${name:-default}.
	bracePattern = regexp.MustCompile(`\$\{([a-zA-Z_][a-zA-Z0-9_]*)(:-[^}]*)?\}`)

	// dollarPattern matches $name. A trailing word boundary keeps $port from
	// matching inside $portNumber.
	dollarPattern = regexp.MustCompile(`\$([a-zA-Z_][a-zA-Z0-9_]*)(?:\b|$)`)
)

// Lookup resolves a variable that is not present in the vars map.
type Lookup func(name string) (string, bool)

// Expander expands variable patterns in strings.
//
// Create with NewExpander and configure with Option functions.
// Expander is safe for concurrent use after construction.
type Expander struct {
	missingAction MissingAction
	braceStyle    bool
	dollarStyle   bool
	lookup        Lookup
	emptyIsUnset  bool
}

// NewExpander creates an Expander.
//
// Defaults: MissingKeep, both ${var} and $var patterns enabled, no fallback
// lookup.
func NewExpander(opts ...Option) *Expander {
	e := &Expander{
		missingAction: MissingKeep,
		braceStyle:    true,
		dollarStyle:   true,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// resolve finds name in vars, then in the fallback lookup.
func (e *Expander) resolve(name string, vars map[string]any) (string, bool) {
	if val, ok := vars[name]; ok {
		s := fmt.Sprintf("%v", val)
		if s != "" || !e.emptyIsUnset {
			return s, true
		}
	}
	if e.lookup != nil {
		if s, ok := e.lookup(name); ok && (s != "" || !e.emptyIsUnset) {
			return s, true
		}
	}
	return "", false
}

// Expand expands variable patterns in s.
//
// ${name:-default} yields default when name is unresolved; the default is
// used verbatim and never reported as missing. An error is returned only
// under MissingError.
//
//	exp := NewExpander()
//	out, err := exp.Expand("Interviewing ${candidate} for ${role:-a general role}",
//	    map[string]any{"candidate": "Ada"})
//	// out: "Interviewing Ada for a general role"
func (e *Expander) Expand(s string, vars map[string]any) (string, error) {
	if s == "" {
		return "", nil
	}

	result := s
	var missingVars []string

	missing := func(name, match string) string {
		switch e.missingAction {
		case MissingEmpty:
			return ""
		case MissingError:
			missingVars = append(missingVars, name)
			return match
		default:
			return match
		}
	}

	if e.braceStyle {
		result = bracePattern.ReplaceAllStringFunc(result, func(match string) string {
			parts := bracePattern.FindStringSubmatch(match)
			name := parts[1]
			if val, ok := e.resolve(name, vars); ok {
				return val
			}
			if parts[2] != "" {
				return strings.TrimPrefix(parts[2], ":-")
			}
			return missing(name, match)
		})
	}

	if e.dollarStyle {
		result = dollarPattern.ReplaceAllStringFunc(result, func(match string) string {
			name := match[1:]
			if val, ok := e.resolve(name, vars); ok {
				return val
			}
			return missing(name, match)
		})
	}

	if len(missingVars) > 0 {
		return result, &UndefinedVariableError{Names: missingVars}
	}
	return result, nil
}

// MustExpand is Expand for templates known to be complete; it panics on error.
func (e *Expander) MustExpand(s string, vars map[string]any) string {
	result, err := e.Expand(s, vars)
	if err != nil {
		panic(fmt.Sprintf("template: %v", err))
	}
	return result
}

// ExpandAll expands every string in ss. On error it returns nil and the
// first error.
func (e *Expander) ExpandAll(ss []string, vars map[string]any) ([]string, error) {
	if ss == nil {
		return nil, nil
	}

	results := make([]string, len(ss))
	for i, s := range ss {
		expanded, err := e.Expand(s, vars)
		if err != nil {
			return nil, err
		}
		results[i] = expanded
	}
	return results, nil
}

// ExpandMap expands string values of m recursively, descending into nested
// maps and slices. Other values are copied as-is.
func (e *Expander) ExpandMap(m map[string]any, vars map[string]any) (map[string]any, error) {
	if m == nil {
		return nil, nil
	}

	result := make(map[string]any, len(m))
	for k, v := range m {
		expanded, err := e.expandValue(v, vars)
		if err != nil {
			return nil, err
		}
		result[k] = expanded
	}
	return result, nil
}

func (e *Expander) expandValue(v any, vars map[string]any) (any, error) {
	switch val := v.(type) {
	case string:
		return e.Expand(val, vars)
	case map[string]any:
		return e.ExpandMap(val, vars)
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			expanded, err := e.expandValue(item, vars)
			if err != nil {
				return nil, err
			}
			out[i] = expanded
		}
		return out, nil
	default:
		return v, nil
	}
}

// UndefinedVariableError is returned under MissingError when one or more
// variables are not found.
type UndefinedVariableError struct {
	Names []string
}

// Error implements the error interface.
func (e *UndefinedVariableError) Error() string {
	if len(e.Names) == 1 {
		return fmt.Sprintf("undefined variable: %s", e.Names[0])
	}
	return fmt.Sprintf("undefined variables: %s", strings.Join(e.Names, ", "))
}

var defaultExpander = NewExpander()

// Expand expands s with the default expander. Missing variables stay as-is.
func Expand(s string, vars map[string]any) string {
	result, _ := defaultExpander.Expand(s, vars)
	return result
}

// ExpandAll expands every string in ss with the default expander.
func ExpandAll(ss []string, vars map[string]any) []string {
	results, _ := defaultExpander.ExpandAll(ss, vars)
	return results
}

// ExpandMap expands string values of m with the default expander.
func ExpandMap(m map[string]any, vars map[string]any) map[string]any {
	result, _ := defaultExpander.ExpandMap(m, vars)
	return result
}
