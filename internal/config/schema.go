package config

import (
	"encoding/json"
	"reflect"
	"strings"

	"github.com/invopop/jsonschema"
	"github.com/rxtech-lab/argo-core/internal/commission"
	"github.com/rxtech-lab/argo-core/pkg/errors"
)

// GenerateSchema returns the JSON schema of Config.
func GenerateSchema() (*jsonschema.Schema, error) {
	reflector := jsonschema.Reflector{
		ExpandedStruct:            true,
		DoNotReference:            true,
		AllowAdditionalProperties: false,
		FieldNameTag:              "yaml",
		Mapper: func(t reflect.Type) *jsonschema.Schema {
			switch {
			case t.String() == "optional.Option[time.Time]":
				return &jsonschema.Schema{Type: "string", Format: "date-time"}
			case t.String() == "time.Duration":
				return &jsonschema.Schema{Type: "string", Pattern: `^([0-9]+(\.[0-9]+)?(ns|us|ms|s|m|h))+$`}
			case strings.HasSuffix(t.String(), "commission.Model"):
				return &jsonschema.Schema{Type: "string", Enum: commission.AllModels}
			}

			return nil
		},
	}

	//nolint:exhaustruct // empty struct is intentional for schema generation
	schema := reflector.Reflect(&Config{})
	schema.Title = "argo-core-config"
	schema.Description = "Configuration schema for the argo core"
	schema.Version = "http://json-schema.org/draft-07/schema#"

	return schema, nil
}

// GenerateSchemaJSON returns the schema as indented JSON.
func GenerateSchemaJSON() (string, error) {
	schema, err := GenerateSchema()
	if err != nil {
		return "", err
	}

	out, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		return "", errors.Wrap(errors.ErrCodeUnknown, "failed to marshal schema", err)
	}

	return string(out), nil
}
