package expr

import "fmt"

// Envelope field names. Tagged values are serialized as
// {"__type__": <tag>, "__value__": <payload>} so typed expressions are never
// confused with plain object literals.
const (
	TypeField  = "__type__"
	ValueField = "__value__"

	TagMustache = "mustache"
	TagVar      = "var"
	TagPipeline = "pipeline"
)

// IsEnvelope reports whether a decoded JSON/YAML value is a tagged-expression
// envelope, returning its tag when it is.
func IsEnvelope(v any) (tag string, payload any, ok bool) {
	m, isMap := v.(map[string]any)
	if !isMap {
		return "", nil, false
	}
	rawTag, hasTag := m[TypeField]
	if !hasTag {
		return "", nil, false
	}
	s, isString := rawTag.(string)
	if !isString {
		return "", nil, false
	}
	return s, m[ValueField], true
}

// DecodeEnvelope converts a leaf envelope (mustache, var) into its Expression.
// Pipeline envelopes are not handled here: decoding their invocation lists is
// the pipeline package's concern.
func DecodeEnvelope(tag string, payload any) (Expression, error) {
	switch tag {
	case TagMustache:
		source, ok := payload.(string)
		if !ok {
			return nil, fmt.Errorf("%s envelope value must be a string, got %T", tag, payload)
		}
		return &Template{Engine: EngineMustache, Source: source}, nil

	case TagVar:
		path, ok := payload.(string)
		if !ok {
			return nil, fmt.Errorf("var envelope value must be a string, got %T", payload)
		}
		return &Var{Path: path}, nil

	default:
		return nil, fmt.Errorf("unknown expression type %q", tag)
	}
}

// EncodeEnvelope converts an Expression back into its serializable envelope
// form. SubPipeline values are not handled here for the same reason as in
// DecodeEnvelope.
func EncodeEnvelope(e Expression) (map[string]any, error) {
	switch v := e.(type) {
	case *Template:
		return map[string]any{TypeField: string(v.Engine), ValueField: v.Source}, nil
	case *Var:
		return map[string]any{TypeField: TagVar, ValueField: v.Path}, nil
	default:
		return nil, fmt.Errorf("cannot encode expression %T", e)
	}
}
