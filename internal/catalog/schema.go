package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"sync"

	"github.com/invopop/jsonschema"
	jsonschemaValidate "github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/4ug-aug/envoy-v2/internal/observability"
)

// emptyToolInput is reflected into defaultSchema: a bare object with no
// declared properties, the fallback a CustomTool with no input_schema
// exposes to the model.
type emptyToolInput struct{}

var (
	defaultSchemaOnce sync.Once
	defaultSchemaJSON json.RawMessage
	defaultSchemaErr  error
)

// defaultSchema returns the JSON Schema for emptyToolInput, generated once
// via reflection the same way the teacher's own config package builds its
// schema document.
func defaultSchema() json.RawMessage {
	defaultSchemaOnce.Do(func() {
		r := &jsonschema.Reflector{}
		schema := r.Reflect(&emptyToolInput{})
		defaultSchemaJSON, defaultSchemaErr = json.Marshal(schema)
	})
	if defaultSchemaErr != nil {
		return json.RawMessage(`{"type":"object"}`)
	}
	return defaultSchemaJSON
}

// namePattern is the identifier shape shared by CustomTool and Integration
// names: lowercase, starts with a letter, globally unique within its kind.
var namePattern = regexp.MustCompile(`^[a-z][a-z0-9_]*$`)

// ValidateName reports whether name matches the ^[a-z][a-z0-9_]*$ pattern
// shared by tool and integration names.
func ValidateName(name string) error {
	if !namePattern.MatchString(name) {
		return fmt.Errorf(`name %q must match ^[a-z][a-z0-9_]*$`, name)
	}
	return nil
}

// ValidateSchema reports whether raw is a compilable JSON Schema whose root
// type, if declared, is "object" — a tool's parameters are always passed
// as a single JSON object, never an array or scalar.
func ValidateSchema(raw string) error {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}

	compiler := jsonschemaValidate.NewCompiler()
	if err := compiler.AddResource("tool-input-schema.json", strings.NewReader(raw)); err != nil {
		return fmt.Errorf("add schema resource: %w", err)
	}
	if _, err := compiler.Compile("tool-input-schema.json"); err != nil {
		return fmt.Errorf("compile schema: %w", err)
	}

	var decoded map[string]any
	if err := json.Unmarshal([]byte(raw), &decoded); err != nil {
		return fmt.Errorf("decode schema: %w", err)
	}
	if declared, ok := decoded["type"]; ok && declared != "object" {
		return fmt.Errorf(`root type must be "object", got %v`, declared)
	}

	return nil
}

// normalizeSchema returns raw as toolName's model-facing JSON Schema,
// falling back to defaultSchema when raw is empty. ValidateSchema is
// expected to have already accepted raw before it reaches here, but a
// schema whose root object never declared a "type" is still salvaged here
// rather than passed through untouched: the root is given an implicit
// "type":"object" and a warning is logged, per the tolerate-missing-type
// rule for a tool's input schema.
func normalizeSchema(ctx context.Context, logger *observability.Logger, toolName, raw string) json.RawMessage {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return defaultSchema()
	}

	var decoded map[string]any
	if err := json.Unmarshal([]byte(raw), &decoded); err != nil {
		// ValidateSchema already rejects anything that doesn't decode;
		// this should be unreachable in practice.
		return json.RawMessage(raw)
	}
	if _, hasType := decoded["type"]; hasType {
		return json.RawMessage(raw)
	}

	if logger != nil {
		logger.Warn(ctx, "catalog: tool schema missing root type, defaulting to object", "tool", toolName)
	}
	decoded["type"] = "object"
	normalized, err := json.Marshal(decoded)
	if err != nil {
		return json.RawMessage(raw)
	}
	return json.RawMessage(normalized)
}
