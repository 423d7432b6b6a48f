// Package schemacheck reflects JSON Schemas from Go types and validates plain
// payloads against them.
package schemacheck

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	invopop "github.com/invopop/jsonschema"
	"github.com/santhosh-tekuri/jsonschema/v5"
)

// Reflect generates a JSON Schema document for the type of value. Fields are
// optional unless tagged `jsonschema:"required"` and unknown properties are
// allowed, so older or newer payload shapes still pass when their common
// fields agree on type.
func Reflect(value any) ([]byte, error) {
	r := &invopop.Reflector{
		AllowAdditionalProperties:  true,
		RequiredFromJSONSchemaTags: true,
		DoNotReference:             true,
		Anonymous:                  true,
	}
	schema := r.Reflect(value)
	document, err := json.Marshal(schema)
	if err != nil {
		return nil, fmt.Errorf("schemacheck: marshal schema: %w", err)
	}
	return document, nil
}

// Validator validates plain values against a compiled schema.
type Validator struct {
	schema   *jsonschema.Schema
	document []byte
}

// ForType reflects and compiles a schema for the type of value.
func ForType(name string, value any) (*Validator, error) {
	document, err := Reflect(value)
	if err != nil {
		return nil, err
	}
	return Compile(name, document)
}

// Compile compiles document under the resource name.
func Compile(name string, document []byte) (*Validator, error) {
	if name == "" {
		name = "schema.json"
	}
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(name, bytes.NewReader(document)); err != nil {
		return nil, fmt.Errorf("schemacheck: add resource %s: %w", name, err)
	}
	schema, err := compiler.Compile(name)
	if err != nil {
		return nil, fmt.Errorf("schemacheck: compile %s: %w", name, err)
	}
	return &Validator{schema: schema, document: document}, nil
}

// Document returns the schema JSON the validator was compiled from.
func (v *Validator) Document() []byte {
	if v == nil {
		return nil
	}
	return append([]byte(nil), v.document...)
}

// Validate checks payload, which may be any JSON-marshalable value.
func (v *Validator) Validate(payload any) error {
	if v == nil || v.schema == nil {
		return nil
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("schemacheck: marshal payload: %w", err)
	}
	var instance any
	if err := json.Unmarshal(data, &instance); err != nil {
		return fmt.Errorf("schemacheck: unmarshal payload: %w", err)
	}

	if err := v.schema.Validate(instance); err != nil {
		if validationErr, ok := err.(*jsonschema.ValidationError); ok {
			var messages []string
			collectErrors(validationErr, &messages)
			if len(messages) == 0 {
				messages = append(messages, "- "+validationErr.Message)
			}
			return fmt.Errorf("schemacheck: validation failed:\n%s", strings.Join(messages, "\n"))
		}
		return fmt.Errorf("schemacheck: validation failed: %w", err)
	}
	return nil
}

func collectErrors(err *jsonschema.ValidationError, messages *[]string) {
	if err.InstanceLocation != "" && len(err.Causes) == 0 {
		*messages = append(*messages, fmt.Sprintf("- %s: %s", err.InstanceLocation, err.Message))
	}
	for _, cause := range err.Causes {
		collectErrors(cause, messages)
	}
}
