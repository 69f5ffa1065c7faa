// Package loader reads mod definition files: YAML or JSON documents that
// declare a pipeline, its mount flavor, and optional metadata such as a
// schedule. Loading decodes expression envelopes, checks the schema version,
// and normalizes the pipeline against the brick registry.
package loader

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// ModKind is the only supported top-level document kind.
const ModKind = "mod"

// LegacyModKind is accepted as an alias for ModKind.
const LegacyModKind = "mod-definition"

// SupportedSchemaMajor is the schema_version MAJOR this loader understands.
const SupportedSchemaMajor = 1

// CurrentSchemaVersion is the version written by tooling that emits mod files.
const CurrentSchemaVersion = "1.0.0"

var semverPattern = regexp.MustCompile(
	`^(0|[1-9][0-9]*)\.(0|[1-9][0-9]*)\.(0|[1-9][0-9]*)` +
		`(?:-((?:0|[1-9][0-9]*|[0-9A-Za-z-]*[A-Za-z-][0-9A-Za-z-]*)` +
		`(?:\.(?:0|[1-9][0-9]*|[0-9A-Za-z-]*[A-Za-z-][0-9A-Za-z-]*))*))?` +
		`(?:\+([0-9A-Za-z-]+(?:\.[0-9A-Za-z-]+)*))?$`,
)

// NormalizeKind validates and canonicalizes a document kind string.
// Returns the canonical kind, whether a legacy alias was used, and any
// validation error.
func NormalizeKind(raw string) (string, bool, error) {
	kind := strings.TrimSpace(raw)

	switch kind {
	case ModKind:
		return ModKind, false, nil
	case LegacyModKind:
		return ModKind, true, nil
	default:
		return "", false, fmt.Errorf("invalid kind %q", raw)
	}
}

// ValidateSchemaVersion ensures schema_version is a valid SemVer 2.0.0 string
// and that its MAJOR version is supported.
func ValidateSchemaVersion(version string) error {
	v := strings.TrimSpace(version)
	if v == "" {
		return fmt.Errorf("schema_version is required")
	}

	match := semverPattern.FindStringSubmatch(v)
	if match == nil {
		return fmt.Errorf("schema_version %q must be a valid semantic version (MAJOR.MINOR.PATCH)", version)
	}

	major, err := strconv.Atoi(match[1])
	if err != nil {
		return fmt.Errorf("parsing schema_version major: %w", err)
	}
	if major != SupportedSchemaMajor {
		return fmt.Errorf("schema_version %q has unsupported major %d (supported: %d.x.x)", version, major, SupportedSchemaMajor)
	}

	return nil
}

// isYAML returns true if the file path has a YAML extension.
func isYAML(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".yaml" || ext == ".yml"
}

// toJSON converts data to JSON bytes, handling YAML conversion if the path
// indicates a YAML file.
func toJSON(data []byte, path string) ([]byte, error) {
	if isYAML(path) {
		return yamlToJSON(data)
	}
	return data, nil
}

// yamlToJSON converts raw bytes from YAML format to JSON bytes:
// YAML -> map[string]any -> JSON bytes -> typed struct.
func yamlToJSON(data []byte) ([]byte, error) {
	var raw any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parsing YAML: %w", err)
	}
	// yaml.v3 decodes mappings as map[string]any, which is JSON-compatible
	return json.Marshal(raw)
}
