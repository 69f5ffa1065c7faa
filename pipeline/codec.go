package pipeline

import (
	"fmt"

	"github.com/brick-labs/brickflow/expr"
)

// Serialized invocation field names.
const (
	fieldID        = "id"
	fieldLabel     = "label"
	fieldConfig    = "config"
	fieldOutputKey = "outputKey"
)

// Decode converts a decoded JSON/YAML invocation list into a Pipeline,
// interpreting __type__/__value__ envelopes at any depth of the
// configuration. The result is un-normalized: instance ids are empty and
// nested-pipeline properties hold whatever the document said.
func Decode(raw any) (Pipeline, error) {
	if raw == nil {
		return Pipeline{}, nil
	}
	list, ok := raw.([]any)
	if !ok {
		return nil, fmt.Errorf("pipeline must be a list, got %T", raw)
	}

	out := make(Pipeline, 0, len(list))
	for i, elem := range list {
		inv, err := decodeInvocation(elem)
		if err != nil {
			return nil, fmt.Errorf("invocation %d: %w", i, err)
		}
		out = append(out, inv)
	}
	return out, nil
}

func decodeInvocation(raw any) (Invocation, error) {
	m, ok := raw.(map[string]any)
	if !ok {
		return Invocation{}, fmt.Errorf("invocation must be a map, got %T", raw)
	}

	id, ok := m[fieldID].(string)
	if !ok || id == "" {
		return Invocation{}, fmt.Errorf("invocation is missing required field %q", fieldID)
	}

	inv := Invocation{ID: id}
	if label, ok := m[fieldLabel].(string); ok {
		inv.Label = label
	}
	if key, ok := m[fieldOutputKey].(string); ok {
		inv.OutputKey = key
	}

	if rawConfig, present := m[fieldConfig]; present {
		cfgValue, err := decodeValue(rawConfig)
		if err != nil {
			return Invocation{}, err
		}
		cfg, ok := cfgValue.(map[string]any)
		if !ok {
			return Invocation{}, fmt.Errorf("config must be a map, got %T", rawConfig)
		}
		inv.Config = cfg
	}

	return inv, nil
}

func decodeValue(v any) (any, error) {
	if tag, payload, ok := expr.IsEnvelope(v); ok {
		if tag == expr.TagPipeline {
			sub, err := Decode(payload)
			if err != nil {
				return nil, err
			}
			return Sub(sub), nil
		}
		return expr.DecodeEnvelope(tag, payload)
	}

	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for key, elem := range t {
			decoded, err := decodeValue(elem)
			if err != nil {
				return nil, fmt.Errorf("%q: %w", key, err)
			}
			out[key] = decoded
		}
		return out, nil

	case []any:
		out := make([]any, len(t))
		for i, elem := range t {
			decoded, err := decodeValue(elem)
			if err != nil {
				return nil, fmt.Errorf("element %d: %w", i, err)
			}
			out[i] = decoded
		}
		return out, nil

	default:
		return v, nil
	}
}

// Encode converts a Pipeline back into serializable form, re-wrapping
// expressions in their envelopes. Instance ids are never emitted; encoding is
// the persistence path and ids are runtime-only.
func Encode(p Pipeline) ([]any, error) {
	out := make([]any, 0, len(p))
	for i, inv := range p {
		encoded, err := encodeInvocation(inv)
		if err != nil {
			return nil, fmt.Errorf("invocation %d: %w", i, err)
		}
		out = append(out, encoded)
	}
	return out, nil
}

func encodeInvocation(inv Invocation) (map[string]any, error) {
	m := map[string]any{fieldID: inv.ID}
	if inv.Label != "" {
		m[fieldLabel] = inv.Label
	}
	if inv.OutputKey != "" {
		m[fieldOutputKey] = inv.OutputKey
	}
	if inv.Config != nil {
		cfg, err := encodeValue(inv.Config)
		if err != nil {
			return nil, err
		}
		m[fieldConfig] = cfg
	}
	return m, nil
}

func encodeValue(v any) (any, error) {
	switch t := v.(type) {
	case *expr.SubPipeline:
		sub, err := FromRef(t.Ref)
		if err != nil {
			return nil, err
		}
		encoded, err := Encode(sub)
		if err != nil {
			return nil, err
		}
		return map[string]any{expr.TypeField: expr.TagPipeline, expr.ValueField: encoded}, nil

	case expr.Expression:
		return expr.EncodeEnvelope(t)

	case map[string]any:
		out := make(map[string]any, len(t))
		for key, elem := range t {
			encoded, err := encodeValue(elem)
			if err != nil {
				return nil, fmt.Errorf("%q: %w", key, err)
			}
			out[key] = encoded
		}
		return out, nil

	case []any:
		out := make([]any, len(t))
		for i, elem := range t {
			encoded, err := encodeValue(elem)
			if err != nil {
				return nil, fmt.Errorf("element %d: %w", i, err)
			}
			out[i] = encoded
		}
		return out, nil

	default:
		return v, nil
	}
}
