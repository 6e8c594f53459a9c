package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"sync"

	"github.com/rotisserie/eris"
	"github.com/santhosh-tekuri/jsonschema/v6"

	"github.com/sells-group/delay-risk-cli/internal/model"
)

const predictSchemaURL = "schema://delay-risk/predict-request.json"

var (
	predictSchemaOnce sync.Once
	predictSchema     *jsonschema.Schema
	predictSchemaErr  error
)

// predictRequestSchema returns the compiled schema for a predict body. It is
// derived from model.Bounds and the categorical enumerations so the API and
// the CLI accept the same ranges. Fields may be omitted or null; the
// missing-value policy decides what happens to them.
func predictRequestSchema() (*jsonschema.Schema, error) {
	predictSchemaOnce.Do(func() {
		predictSchema, predictSchemaErr = compilePredictSchema()
	})
	return predictSchema, predictSchemaErr
}

func compilePredictSchema() (*jsonschema.Schema, error) {
	props := make(map[string]any, len(model.Fields))
	for _, f := range model.Fields {
		if f.Categorical() {
			enum := make([]any, 0, len(model.Choices(f))+1)
			for _, c := range model.Choices(f) {
				enum = append(enum, c)
			}
			props[string(f)] = map[string]any{
				"type": []string{"string", "null"},
				"enum": append(enum, "", nil),
			}
			continue
		}
		b := model.Bounds[f]
		typ := "number"
		if b.Integer {
			typ = "integer"
		}
		props[string(f)] = map[string]any{
			"type":    []string{typ, "null"},
			"minimum": b.Min,
			"maximum": b.Max,
		}
	}
	def := map[string]any{
		"$schema":              "https://json-schema.org/draft/2020-12/schema",
		"type":                 "object",
		"properties":           props,
		"additionalProperties": false,
	}

	// The compiler wants a decoded JSON value, not Go maps of typed slices.
	raw, err := json.Marshal(def)
	if err != nil {
		return nil, eris.Wrap(err, "api: marshal predict schema")
	}
	doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(raw))
	if err != nil {
		return nil, eris.Wrap(err, "api: parse predict schema")
	}

	c := jsonschema.NewCompiler()
	if err := c.AddResource(predictSchemaURL, doc); err != nil {
		return nil, eris.Wrap(err, "api: add predict schema")
	}
	sch, err := c.Compile(predictSchemaURL)
	if err != nil {
		return nil, eris.Wrap(err, "api: compile predict schema")
	}
	return sch, nil
}

// validationDetails flattens a schema failure into one message per leaf.
func validationDetails(err error) []string {
	var ve *jsonschema.ValidationError
	if !errors.As(err, &ve) {
		return []string{err.Error()}
	}
	var out []string
	var walk func(e *jsonschema.ValidationError)
	walk = func(e *jsonschema.ValidationError) {
		if len(e.Causes) == 0 {
			out = append(out, e.Error())
			return
		}
		for _, c := range e.Causes {
			walk(c)
		}
	}
	walk(ve)
	return out
}
