package server

import (
	"github.com/invopop/jsonschema"
)

// GenerateSchema reflects the JSON Schema of T.
func GenerateSchema[T any]() *jsonschema.Schema {
	reflector := jsonschema.Reflector{
		AllowAdditionalProperties: false,
		DoNotReference:            true,
	}
	var v T
	return reflector.Reflect(v)
}
