package actions

import (
	"fmt"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

type schemaRegistry struct {
	once    sync.Once
	initErr error
	schemas map[string]*jsonschema.Schema
}

var paramSchemas schemaRegistry

func initSchemas() error {
	paramSchemas.once.Do(func() {
		paramSchemas.schemas = make(map[string]*jsonschema.Schema)
		for _, def := range catalog {
			if !def.HasParams() {
				continue
			}
			compiled, err := jsonschema.CompileString("action_"+def.Name+".json", def.Schema)
			if err != nil {
				paramSchemas.initErr = fmt.Errorf("compile %s schema: %w", def.Name, err)
				return
			}
			paramSchemas.schemas[def.Name] = compiled
		}
	})
	return paramSchemas.initErr
}

// validate checks a decoded parameter value against the action's schema.
func validate(name string, value any) error {
	if err := initSchemas(); err != nil {
		return err
	}
	schema := paramSchemas.schemas[name]
	if schema == nil {
		return nil
	}
	if err := schema.Validate(value); err != nil {
		return &ValidationError{Action: name, Reason: describeSchemaError(err), Err: err}
	}
	return nil
}

// describeSchemaError flattens a schema validation failure into one line,
// listing the leaf causes with their JSON pointer.
func describeSchemaError(err error) string {
	verr, ok := err.(*jsonschema.ValidationError)
	if !ok {
		return err.Error()
	}
	var parts []string
	var walk func(*jsonschema.ValidationError)
	walk = func(e *jsonschema.ValidationError) {
		if len(e.Causes) == 0 {
			loc := strings.ReplaceAll(strings.TrimPrefix(e.InstanceLocation, "/"), "/", ".")
			if loc == "" {
				parts = append(parts, e.Message)
			} else {
				parts = append(parts, loc+": "+e.Message)
			}
			return
		}
		for _, cause := range e.Causes {
			walk(cause)
		}
	}
	walk(verr)
	if len(parts) == 0 {
		return verr.Message
	}
	return strings.Join(parts, "; ")
}

const spawnSquareSchema = `{
  "type": "object",
  "required": ["x", "y", "rgb"],
  "properties": {
    "x": { "type": "integer" },
    "y": { "type": "integer" },
    "rgb": {
      "type": "array",
      "items": { "type": "integer", "minimum": 0, "maximum": 255 },
      "minItems": 3,
      "maxItems": 3
    }
  }
}`

const moveSquareSchema = `{
  "type": "object",
  "required": ["x", "y"],
  "properties": {
    "x": { "type": "integer" },
    "y": { "type": "integer" }
  }
}`
