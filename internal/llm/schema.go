package llm

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// BuildContactJSONSchema returns a JSON-Schema (draft 2020-12 subset) for the
// normalized contact object: exactly the seven canonical keys, each a string
// or null.
func BuildContactJSONSchema() map[string]any {
	nullableString := func() map[string]any {
		return map[string]any{"type": []string{"string", "null"}}
	}
	return map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"properties": map[string]any{
			"Company Name":    nullableString(),
			"Name":            nullableString(),
			"Title":           nullableString(),
			"Phone Number":    nullableString(),
			"Email Address":   nullableString(),
			"Company Address": nullableString(),
			"Company Website": nullableString(),
		},
		"required": []string{
			"Company Name", "Name", "Title",
			"Phone Number", "Email Address", "Company Address", "Company Website",
		},
	}
}

// ValidateJSONAgainstSchema validates "data" against "schemaMap".
func ValidateJSONAgainstSchema(schemaMap map[string]any, data []byte) error {
	b, err := json.Marshal(schemaMap)
	if err != nil {
		return fmt.Errorf("marshal schema: %w", err)
	}
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("schema.json", bytes.NewReader(b)); err != nil {
		return fmt.Errorf("add schema: %w", err)
	}
	schema, err := compiler.Compile("schema.json")
	if err != nil {
		return fmt.Errorf("compile schema: %w", err)
	}
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("unmarshal data: %w", err)
	}
	if err := schema.Validate(v); err != nil {
		return fmt.Errorf("json does not match schema: %w", err)
	}
	return nil
}
