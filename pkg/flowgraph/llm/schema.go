package llm

import (
	"bytes"
	"encoding/json"
	"fmt"
	"reflect"

	invopop "github.com/invopop/jsonschema"
	"github.com/santhosh-tekuri/jsonschema/v6"
)

// Schema is a compiled JSON Schema describing a structured output or a tool's
// arguments.
type Schema struct {
	Name        string
	Description string
	JSON        json.RawMessage

	compiled *jsonschema.Schema
}

// NewSchema compiles raw. The schema must be a JSON object.
func NewSchema(name, description string, raw json.RawMessage) (*Schema, error) {
	doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("schema %s: unmarshal: %w", name, err)
	}

	c := jsonschema.NewCompiler()
	if err := c.AddResource(name+".json", doc); err != nil {
		return nil, fmt.Errorf("schema %s: add resource: %w", name, err)
	}
	compiled, err := c.Compile(name + ".json")
	if err != nil {
		return nil, fmt.Errorf("schema %s: compile: %w", name, err)
	}

	return &Schema{
		Name:        name,
		Description: description,
		JSON:        raw,
		compiled:    compiled,
	}, nil
}

// SchemaFor reflects a schema from T. Fields use `json` tags for names and
// `jsonschema` tags for descriptions and constraints; every field without
// omitempty is required. T must be a named struct type.
func SchemaFor[T any](name, description string) (_ *Schema, err error) {
	t := reflect.TypeFor[T]()
	if t.Kind() != reflect.Struct || t.Name() == "" {
		return nil, fmt.Errorf("schema %s: %s is not a named struct type", name, t)
	}

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("schema %s: reflect %s: %v", name, t, r)
		}
	}()

	reflector := &invopop.Reflector{
		ExpandedStruct: true,
		DoNotReference: true,
	}
	s := reflector.Reflect(new(T))
	s.Version = ""
	s.ID = ""

	raw, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("schema %s: marshal: %w", name, err)
	}
	return NewSchema(name, description, raw)
}

// MustSchemaFor is SchemaFor for package-level schemas; it panics on error.
func MustSchemaFor[T any](name, description string) *Schema {
	s, err := SchemaFor[T](name, description)
	if err != nil {
		panic(err)
	}
	return s
}

// Validate checks raw JSON against the schema.
func (s *Schema) Validate(raw []byte) error {
	doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(raw))
	if err != nil {
		return err
	}
	return s.compiled.Validate(doc)
}

// Tool exposes the schema as a tool definition.
func (s *Schema) Tool() Tool {
	return Tool{
		Name:        s.Name,
		Description: s.Description,
		Parameters:  s.JSON,
	}
}
