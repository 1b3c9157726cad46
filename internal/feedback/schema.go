package feedback

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

const schemaURL = "https://fumi.local/schemas/feedback-v1.json"

// Schema is the JSON Schema of the canonical v1 payload. Unknown properties
// are allowed so newer generators stay readable.
const Schema = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "title": "AI writing feedback v1",
  "type": "object",
  "properties": {
    "version": {"type": "string"},
    "grade": {"type": "string"},
    "feedbackText": {"type": "string"},
    "actionPlan": {"type": "array", "items": {"type": "string"}},
    "practiceExercises": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["title", "description"],
        "properties": {
          "title": {"type": "string"},
          "description": {"type": "string"},
          "example": {"type": "string"}
        }
      }
    },
    "detailedAnalysis": {
      "type": "object",
      "properties": {
        "grammar": {"$ref": "#/$defs/listed", "properties": {"issues": {"$ref": "#/$defs/texts"}, "suggestions": {"$ref": "#/$defs/texts"}}},
        "vocabulary": {"$ref": "#/$defs/listed", "properties": {"strengths": {"$ref": "#/$defs/texts"}, "improvements": {"$ref": "#/$defs/texts"}}},
        "structure": {"$ref": "#/$defs/listed", "properties": {"comments": {"$ref": "#/$defs/texts"}}},
        "fluency": {"$ref": "#/$defs/narrative"},
        "content": {"$ref": "#/$defs/narrative"}
      }
    },
    "overallScore": {"type": "number", "minimum": 0, "maximum": 100}
  },
  "$defs": {
    "score": {"type": "number", "minimum": 0, "maximum": 100},
    "texts": {"type": "array", "items": {"type": "string"}},
    "listed": {"type": "object", "required": ["score"], "properties": {"score": {"$ref": "#/$defs/score"}}},
    "narrative": {
      "type": "object",
      "required": ["score"],
      "properties": {"score": {"$ref": "#/$defs/score"}, "feedback": {"type": "string"}}
    }
  }
}`

var (
	compileOnce    sync.Once
	compiledSchema *jsonschema.Schema
	compileErr     error
)

func schema() (*jsonschema.Schema, error) {
	compileOnce.Do(func() {
		compiler := jsonschema.NewCompiler()
		if err := compiler.AddResource(schemaURL, strings.NewReader(Schema)); err != nil {
			compileErr = fmt.Errorf("add feedback schema: %w", err)
			return
		}
		compiledSchema, compileErr = compiler.Compile(schemaURL)
	})
	return compiledSchema, compileErr
}

// Validate reports whether raw conforms to the v1 schema. Decode does not
// depend on conformance; callers use Validate to flag generators that drift.
func Validate(raw string) error {
	compiled, err := schema()
	if err != nil {
		return err
	}

	decoder := json.NewDecoder(bytes.NewReader([]byte(raw)))
	decoder.UseNumber()
	var document interface{}
	if err := decoder.Decode(&document); err != nil {
		return fmt.Errorf("feedback payload is not json: %w", err)
	}

	return compiled.Validate(document)
}
