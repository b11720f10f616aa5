package tool

import (
	"encoding/json"
	"reflect"

	"github.com/invopop/jsonschema"
)

// SchemaFor reflects a JSON schema object from an argument struct. Field
// names follow json tags; `jsonschema:"description=..."` tags annotate them.
// The result is a plain map ready to be sent as function parameters.
func SchemaFor(v any) map[string]any {
	reflector := &jsonschema.Reflector{
		ExpandedStruct:            true,
		AllowAdditionalProperties: false,
		DoNotReference:            true,
	}

	schema := reflector.ReflectFromType(reflect.TypeOf(v))

	b, err := json.Marshal(schema)
	if err != nil {
		return emptySchema()
	}

	var m map[string]any
	if err := json.Unmarshal(b, &m); err != nil || m == nil {
		return emptySchema()
	}

	delete(m, "$schema")
	delete(m, "$id")

	return m
}

func emptySchema() map[string]any {
	return map[string]any{
		"type":       "object",
		"properties": map[string]any{},
	}
}
