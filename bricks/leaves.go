package bricks

import (
	"context"
	"fmt"

	"github.com/cbroglie/mustache"

	"github.com/brick-labs/brickflow/core"
)

// Identity returns its input value unchanged. Useful for binding a computed
// expression to an output key.
type Identity struct {
	core.BaseBrick
}

// NewIdentity creates the identity transformer.
func NewIdentity() *Identity {
	return &Identity{
		BaseBrick: core.NewBaseBrick(core.BrickMeta{
			ID:   IDIdentity,
			Name: "Identity",
			Kind: core.BrickKindTransformer,
			Pure: true,
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"value": map[string]any{},
				},
				"required": []any{"value"},
			},
		}),
	}
}

// Run returns the configured value.
func (b *Identity) Run(ctx context.Context, args map[string]any, opts core.BrickOptions) (any, error) {
	return args["value"], nil
}

// Template renders a mustache template against explicit data, independent of
// the expression resolver (the template source here is a plain literal, not a
// tagged expression).
type Template struct {
	core.BaseBrick
}

// NewTemplate creates the template transformer.
func NewTemplate() *Template {
	return &Template{
		BaseBrick: core.NewBaseBrick(core.BrickMeta{
			ID:   IDTemplate,
			Name: "Render Template",
			Kind: core.BrickKindTransformer,
			Pure: true,
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"template": map[string]any{"type": "string"},
					"data":     map[string]any{"type": "object"},
				},
				"required": []any{"template"},
			},
			OutputSchema: map[string]any{
				"type": "string",
			},
		}),
	}
}

// Run renders the template. When no data is configured, the current scope's
// visible variables are used.
func (b *Template) Run(ctx context.Context, args map[string]any, opts core.BrickOptions) (any, error) {
	source, ok := args["template"].(string)
	if !ok {
		return nil, fmt.Errorf("template resolved to %T, want string", args["template"])
	}

	var data any
	if d, ok := args["data"]; ok {
		data = d
	} else if opts.Scope != nil {
		data = opts.Scope.Visible()
	}

	rendered, err := mustache.Render(source, data)
	if err != nil {
		return nil, fmt.Errorf("rendering template: %w", err)
	}
	return rendered, nil
}

// ContextReader is a reader that snapshots the visible execution context.
// Mainly useful for debugging pipelines from the editor.
type ContextReader struct {
	core.BaseBrick
}

// NewContextReader creates the context reader.
func NewContextReader() *ContextReader {
	return &ContextReader{
		BaseBrick: core.NewBaseBrick(core.BrickMeta{
			ID:   IDContextReader,
			Name: "Read Context",
			Kind: core.BrickKindReader,
			Pure: true,
			InputSchema: map[string]any{
				"type": "object",
			},
			OutputSchema: map[string]any{
				"type": "object",
			},
		}),
	}
}

// Run returns the visible variable namespace.
func (b *ContextReader) Run(ctx context.Context, args map[string]any, opts core.BrickOptions) (any, error) {
	if opts.Scope == nil {
		return map[string]any{}, nil
	}
	return opts.Scope.Visible(), nil
}

// Log writes a message to the invocation's scoped logger.
type Log struct {
	core.BaseBrick
}

// NewLog creates the log effect.
func NewLog() *Log {
	return &Log{
		BaseBrick: core.NewBaseBrick(core.BrickMeta{
			ID:   IDLog,
			Name: "Log Message",
			Kind: core.BrickKindEffect,
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"message": map[string]any{"type": "string"},
					"level": map[string]any{
						"type": "string",
						"enum": []any{"debug", "info", "warn", "error"},
					},
					"data": map[string]any{},
				},
				"required": []any{"message"},
			},
		}),
	}
}

// Run logs the message at the configured level (default info).
func (b *Log) Run(ctx context.Context, args map[string]any, opts core.BrickOptions) (any, error) {
	message, _ := args["message"].(string)
	logger := opts.ScopedLogger()
	if data, ok := args["data"]; ok {
		logger = logger.With("data", data)
	}

	level, _ := args["level"].(string)
	switch level {
	case "debug":
		logger.Debug(message)
	case "warn":
		logger.Warn(message)
	case "error":
		logger.Error(message)
	default:
		logger.Info(message)
	}
	return nil, nil
}

// Document is a renderer producing a text/markdown document body. The engine
// refuses to invoke it in headless mode; when a surface exists, the rendered
// body is the pipeline's terminal result.
type Document struct {
	core.BaseBrick
}

// NewDocument creates the document renderer.
func NewDocument() *Document {
	return &Document{
		BaseBrick: core.NewBaseBrick(core.BrickMeta{
			ID:   IDDocument,
			Name: "Render Document",
			Kind: core.BrickKindRenderer,
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"body": map[string]any{"type": "string"},
					"title": map[string]any{
						"type": "string",
					},
				},
				"required": []any{"body"},
			},
			OutputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"title": map[string]any{"type": "string"},
					"body":  map[string]any{"type": "string"},
				},
				"required": []any{"body"},
			},
		}),
	}
}

// Run produces the document payload for the host surface.
func (b *Document) Run(ctx context.Context, args map[string]any, opts core.BrickOptions) (any, error) {
	body, ok := args["body"].(string)
	if !ok {
		return nil, fmt.Errorf("body resolved to %T, want string", args["body"])
	}
	out := map[string]any{"body": body}
	if title, ok := args["title"].(string); ok && title != "" {
		out["title"] = title
	}
	return out, nil
}
