package config

import (
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"
	"github.com/santhosh-tekuri/jsonschema/v6/kind"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

//go:embed schema/job-schema.json
var embeddedSchema []byte

const schemaURL = "https://github.com/WilliamM-L/trouve-mon-spot/schemas/job/v1/job-schema.json"

var (
	schemaOnce     sync.Once
	compiledSchema *jsonschema.Schema
	schemaInitErr  error
)

// GetEmbeddedSchema returns the embedded job schema.
func GetEmbeddedSchema() []byte {
	return embeddedSchema
}

func getCompiledSchema() (*jsonschema.Schema, error) {
	schemaOnce.Do(func() {
		var doc interface{}
		if err := json.Unmarshal(embeddedSchema, &doc); err != nil {
			schemaInitErr = fmt.Errorf("failed to parse embedded schema: %w", err)
			return
		}

		compiler := jsonschema.NewCompiler()
		if err := compiler.AddResource(schemaURL, doc); err != nil {
			schemaInitErr = fmt.Errorf("failed to add schema resource: %w", err)
			return
		}

		compiledSchema, schemaInitErr = compiler.Compile(schemaURL)
		if schemaInitErr != nil {
			schemaInitErr = fmt.Errorf("failed to compile schema: %w", schemaInitErr)
		}
	})
	return compiledSchema, schemaInitErr
}

// ValidateJob validates parsed job data against the embedded schema.
// It returns nil when the data is valid.
func ValidateJob(data map[string]interface{}) []ValidationError {
	if data == nil {
		return []ValidationError{{Path: "/", Type: "required", Message: "job data is nil"}}
	}

	schema, err := getCompiledSchema()
	if err != nil {
		return []ValidationError{{Path: "/", Type: "schema", Message: fmt.Sprintf("failed to load schema: %v", err)}}
	}

	verr := schema.Validate(data)
	if verr == nil {
		return nil
	}

	var detailed *jsonschema.ValidationError
	if errors.As(verr, &detailed) {
		if out := flattenValidationError(detailed); len(out) > 0 {
			return out
		}
	}
	return []ValidationError{{Path: "/", Type: "validation", Message: verr.Error()}}
}

// flattenValidationError collects the leaf causes of a schema error.
func flattenValidationError(err *jsonschema.ValidationError) []ValidationError {
	if len(err.Causes) == 0 {
		return []ValidationError{{
			Path:    instancePath(err.InstanceLocation),
			Type:    errorType(err.ErrorKind),
			Message: err.ErrorKind.LocalizedString(printer),
		}}
	}

	var out []ValidationError
	for _, cause := range err.Causes {
		out = append(out, flattenValidationError(cause)...)
	}
	return out
}

var printer = message.NewPrinter(language.English)

func instancePath(loc []string) string {
	if len(loc) == 0 {
		return "/"
	}
	return "/" + strings.Join(loc, "/")
}

func errorType(k jsonschema.ErrorKind) string {
	switch k.(type) {
	case *kind.Required:
		return "required"
	case *kind.AdditionalProperties:
		return "additionalProperties"
	case *kind.Enum:
		return "enum"
	case *kind.Type:
		return "type"
	case *kind.MinLength, *kind.MaxLength:
		return "length"
	default:
		return "validation"
	}
}
