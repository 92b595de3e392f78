//go:build !wasip1

package schema

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateSchema_SimpleStruct(t *testing.T) {
	type SimpleConfig struct {
		Host string `json:"host"`
		Port int    `json:"port"`
	}

	schema, err := GenerateSchema(SimpleConfig{})
	require.NoError(t, err)

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(schema, &decoded))
	assert.Equal(t, "object", decoded["type"])

	props, ok := decoded["properties"].(map[string]interface{})
	require.True(t, ok)
	assert.Contains(t, props, "host")
	assert.Contains(t, props, "port")
}

func TestHostConfigSchema(t *testing.T) {
	schema, err := HostConfigSchema()
	require.NoError(t, err)

	var decoded struct {
		Properties map[string]map[string]interface{} `json:"properties"`
		Defs       map[string]struct {
			Properties map[string]map[string]interface{} `json:"properties"`
		} `json:"$defs"`
	}
	require.NoError(t, json.Unmarshal(schema, &decoded))

	for _, key := range []string{"host_module_name", "max_payload", "max_log_record", "memory_limit_pages", "log"} {
		assert.Contains(t, decoded.Properties, key)
	}
	pages := decoded.Properties["memory_limit_pages"]
	assert.EqualValues(t, 65536, pages["maximum"])
	assert.EqualValues(t, 256, pages["default"])
	assert.Equal(t, "fress_host", decoded.Properties["host_module_name"]["default"])

	logDef, ok := decoded.Defs["LogConfig"]
	require.True(t, ok, "LogConfig definition missing")
	assert.Equal(t, []interface{}{"debug", "info", "warn", "error"}, logDef.Properties["level"]["enum"])
	assert.Equal(t, []interface{}{"console", "json"}, logDef.Properties["format"]["enum"])
}
