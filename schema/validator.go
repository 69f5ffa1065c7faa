// Package schema validates brick inputs and outputs against their declared
// JSON Schemas (draft 2019-09) and recognizes the internal schemas used to
// mark special property types, notably nested pipelines.
package schema

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/brick-labs/brickflow/core"
)

// Internal schema identifiers, resolvable as $ref targets from any brick
// schema. The set is fixed; there is no network resolution.
const (
	PipelineSchemaURL   = "https://brickflow.dev/schemas/pipeline"
	RegistryIDSchemaURL = "https://brickflow.dev/schemas/registry-id"
)

//go:embed schemas/pipeline.json
var pipelineSchemaJSON []byte

//go:embed schemas/registry-id.json
var registryIDSchemaJSON []byte

// inlineSchemaURL is the synthetic resource id under which caller-supplied
// schema documents are compiled.
const inlineSchemaURL = "inline://schema"

// Result is the outcome of validating one value against one schema.
type Result struct {
	Valid  bool
	Issues []core.ValidationIssue
}

// Validator compiles and caches brick schemas. Validation is strict: type
// mismatches are reported, never coerced.
type Validator struct {
	mu       sync.Mutex
	compiled map[string]*jsonschema.Schema
}

// NewValidator creates a validator with an empty compilation cache.
func NewValidator() *Validator {
	return &Validator{
		compiled: make(map[string]*jsonschema.Schema),
	}
}

// Validate checks value against schemaDoc. A nil or empty schema accepts
// everything. The error return reports validator malfunction (unparseable
// schema, unmarshalable value); schema violations come back in the Result.
func (v *Validator) Validate(schemaDoc map[string]any, value any) (*Result, error) {
	if len(schemaDoc) == 0 {
		return &Result{Valid: true}, nil
	}

	sch, err := v.compile(schemaDoc)
	if err != nil {
		return nil, err
	}

	normalized, err := normalizeJSON(value)
	if err != nil {
		return nil, fmt.Errorf("normalizing value for validation: %w", err)
	}

	err = sch.Validate(normalized)
	if err == nil {
		return &Result{Valid: true}, nil
	}

	var ve *jsonschema.ValidationError
	if !errors.As(err, &ve) {
		return nil, fmt.Errorf("schema validation: %w", err)
	}

	return &Result{Valid: false, Issues: flatten(ve)}, nil
}

func (v *Validator) compile(schemaDoc map[string]any) (*jsonschema.Schema, error) {
	doc, err := json.Marshal(schemaDoc)
	if err != nil {
		return nil, fmt.Errorf("marshaling schema: %w", err)
	}
	key := string(doc)

	v.mu.Lock()
	defer v.mu.Unlock()

	if sch, ok := v.compiled[key]; ok {
		return sch, nil
	}

	c := jsonschema.NewCompiler()
	c.Draft = jsonschema.Draft2019
	if err := addInternalResources(c); err != nil {
		return nil, err
	}
	if err := c.AddResource(inlineSchemaURL, bytes.NewReader(doc)); err != nil {
		return nil, fmt.Errorf("adding schema resource: %w", err)
	}

	sch, err := c.Compile(inlineSchemaURL)
	if err != nil {
		return nil, fmt.Errorf("compiling schema: %w", err)
	}

	v.compiled[key] = sch
	return sch, nil
}

func addInternalResources(c *jsonschema.Compiler) error {
	internal := map[string][]byte{
		PipelineSchemaURL:   pipelineSchemaJSON,
		RegistryIDSchemaURL: registryIDSchemaJSON,
	}
	for url, doc := range internal {
		if err := c.AddResource(url, bytes.NewReader(doc)); err != nil {
			return fmt.Errorf("adding internal schema %s: %w", url, err)
		}
	}
	return nil
}

// flatten collects the leaf causes of a validation error into a flat,
// UI-consumable issue list.
func flatten(ve *jsonschema.ValidationError) []core.ValidationIssue {
	if len(ve.Causes) == 0 {
		return []core.ValidationIssue{{
			KeywordLocation:  ve.KeywordLocation,
			InstanceLocation: ve.InstanceLocation,
			Message:          ve.Message,
		}}
	}
	var out []core.ValidationIssue
	for _, cause := range ve.Causes {
		out = append(out, flatten(cause)...)
	}
	return out
}

// normalizeJSON round-trips a Go value through encoding/json so validation
// sees canonical JSON types (float64 numbers, map[string]any objects).
func normalizeJSON(value any) (any, error) {
	if value == nil {
		return nil, nil
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return nil, err
	}
	var out any
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// IsPipelineProp reports whether a property schema marks its value as a
// nested pipeline, i.e. it is a $ref to the internal pipeline schema.
func IsPipelineProp(propSchema any) bool {
	m, ok := propSchema.(map[string]any)
	if !ok {
		return false
	}
	ref, ok := m["$ref"].(string)
	if !ok {
		return false
	}
	return strings.TrimSuffix(ref, "#") == PipelineSchemaURL
}

// PipelineProperties returns the names of top-level properties in a brick
// input schema that are marked as nested pipelines, in no particular order.
func PipelineProperties(schemaDoc map[string]any) []string {
	props, ok := schemaDoc["properties"].(map[string]any)
	if !ok {
		return nil
	}
	var out []string
	for name, prop := range props {
		if IsPipelineProp(prop) {
			out = append(out, name)
		}
	}
	return out
}

// PipelineRef returns a property schema referencing the internal pipeline
// schema, for use in brick input schema declarations.
func PipelineRef() map[string]any {
	return map[string]any{"$ref": PipelineSchemaURL}
}
