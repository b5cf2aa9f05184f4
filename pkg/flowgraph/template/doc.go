/*
Package template expands ${var} and $var placeholders in strings.

It renders the interview prompts and expands environment references in
configuration files.

# Basic Usage

	result := template.Expand("Hello ${name}", map[string]any{"name": "Ada"})
	// result: "Hello Ada"

# Defaults

${name:-default} substitutes default when name cannot be resolved:

	template.Expand("Role: ${role:-Software Engineer}", nil)
	// "Role: Software Engineer"

# Missing Variables

By default, missing variables are kept as-is. Configure with options:

	exp := template.NewExpander(template.WithMissingAction(template.MissingError))
	_, err := exp.Expand("${missing}", nil)
	// err: undefined variable: missing

# Environment

WithEnvLookup falls back to the process environment for names not in the
vars map:

	exp := template.NewExpander(template.WithEnvLookup(), template.WithDollarStyle(false))
	exp.Expand("${REDIS_ADDR:-localhost:6379}", nil)

# Thread Safety

Expander is immutable after construction and safe for concurrent use.
*/
package template
