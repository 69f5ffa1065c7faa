package loader

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/brick-labs/brickflow/pipeline"
	"github.com/brick-labs/brickflow/registry"
)

// Mod is a loaded, normalized mod definition ready to execute.
type Mod struct {
	// Kind is always ModKind after loading.
	Kind string

	// SchemaVersion is the document's declared schema version.
	SchemaVersion string

	// Name identifies the mod.
	Name string

	// Description is the optional human-readable summary.
	Description string

	// Flavor declares where the pipeline mounts (renderer rules).
	Flavor pipeline.Flavor

	// Schedule is an optional cron expression for periodic execution.
	Schedule string

	// Input is the optional starter payload bound when the mod runs.
	Input map[string]any

	// Pipeline is the normalized pipeline: instance ids assigned, empty
	// sub-pipelines filled in.
	Pipeline pipeline.Pipeline
}

// modDocument is the on-disk shape before envelope decoding.
type modDocument struct {
	Kind          string         `json:"kind"`
	SchemaVersion string         `json:"schema_version"`
	Name          string         `json:"name"`
	Description   string         `json:"description"`
	Flavor        string         `json:"flavor"`
	Schedule      string         `json:"schedule"`
	Input         map[string]any `json:"input"`
	Pipeline      any            `json:"pipeline"`
}

// LoadMod loads a mod definition file, decoding against the global registry.
func LoadMod(ctx context.Context, path string) (*Mod, error) {
	return LoadModWith(ctx, path, registry.Global())
}

// LoadModWith loads a mod definition file against an explicit registry:
// parse (YAML or JSON), check kind and schema version, decode the pipeline's
// expression envelopes, normalize, and validate the flavor.
func LoadModWith(ctx context.Context, path string, reg *registry.Registry) (*Mod, error) {
	data, err := os.ReadFile(path) // #nosec G304 -- path from caller
	if err != nil {
		return nil, fmt.Errorf("reading file %s: %w", path, err)
	}
	return loadMod(ctx, data, path, reg)
}

func loadMod(ctx context.Context, data []byte, path string, reg *registry.Registry) (*Mod, error) {
	jsonData, err := toJSON(data, path)
	if err != nil {
		return nil, err
	}

	var doc modDocument
	if err := json.Unmarshal(jsonData, &doc); err != nil {
		return nil, fmt.Errorf("parsing mod definition: %w", err)
	}

	kind, _, err := NormalizeKind(doc.Kind)
	if err != nil {
		return nil, err
	}
	if err := ValidateSchemaVersion(doc.SchemaVersion); err != nil {
		return nil, err
	}
	if doc.Name == "" {
		return nil, fmt.Errorf("mod definition is missing required field %q", "name")
	}

	flavor, err := parseFlavor(doc.Flavor)
	if err != nil {
		return nil, err
	}

	decoded, err := pipeline.Decode(doc.Pipeline)
	if err != nil {
		return nil, fmt.Errorf("decoding pipeline: %w", err)
	}

	normalized, err := pipeline.Normalize(decoded, reg)
	if err != nil {
		return nil, fmt.Errorf("normalizing pipeline: %w", err)
	}

	if issues := pipeline.ValidateFlavor(normalized, flavor, reg.KindResolver(ctx)); len(issues) > 0 {
		return nil, &ValidationError{Issues: issues}
	}

	return &Mod{
		Kind:          kind,
		SchemaVersion: doc.SchemaVersion,
		Name:          doc.Name,
		Description:   doc.Description,
		Flavor:        flavor,
		Schedule:      doc.Schedule,
		Input:         doc.Input,
		Pipeline:      normalized,
	}, nil
}

func parseFlavor(raw string) (pipeline.Flavor, error) {
	switch strings.TrimSpace(raw) {
	case "", string(pipeline.FlavorAny):
		return pipeline.FlavorAny, nil
	case string(pipeline.FlavorNoRenderer):
		return pipeline.FlavorNoRenderer, nil
	case string(pipeline.FlavorRendererLast):
		return pipeline.FlavorRendererLast, nil
	default:
		return "", fmt.Errorf("invalid flavor %q", raw)
	}
}

// ValidationError wraps pipeline validation issues as an error.
type ValidationError struct {
	Issues []pipeline.Issue
}

func (e *ValidationError) Error() string {
	if len(e.Issues) == 1 {
		return fmt.Sprintf("validation error: %s", e.Issues[0].Message)
	}
	return fmt.Sprintf("%d validation errors (first: %s)", len(e.Issues), e.Issues[0].Message)
}
