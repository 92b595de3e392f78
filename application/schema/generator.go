// Package schema generates JSON schemas for the SDK's configuration types.
package schema

import (
	"encoding/json"
	"fmt"

	"github.com/invopop/jsonschema"

	"github.com/reglet-dev/fress-sdk/host"
)

// GenerateSchema creates a JSON schema (Draft 2020-12) from a Go struct,
// with the top-level struct expanded inline.
func GenerateSchema(v interface{}) ([]byte, error) {
	reflector := jsonschema.Reflector{
		ExpandedStruct: true,
	}
	schema := reflector.Reflect(v)

	jsonBytes, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal schema: %w", err)
	}

	return jsonBytes, nil
}

// HostConfigSchema returns the schema of host.Config, the file LoadConfig
// reads.
func HostConfigSchema() ([]byte, error) {
	return GenerateSchema(host.Config{})
}
