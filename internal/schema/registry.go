// Package schema validates entities against per-type JSON Schemas and prunes
// fields the schemas do not know about.
package schema

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/jonesrussell/eventcrawl/internal/domain"
)

// ValidationResult is the outcome of validating one entity.
type ValidationResult struct {
	OK     bool
	Errors []string
}

// compiledSchema pairs a compiled schema with its permitted property names.
type compiledSchema struct {
	schema  *jsonschema.Schema
	allowed map[string]struct{}
}

// Registry lazily loads and caches JSON Schemas per entity type. Schema
// files live in one directory and are named after the singular entity type,
// e.g. events resolves to event.schema.json.
type Registry struct {
	root  string
	cache map[string]*compiledSchema
	mu    sync.Mutex
}

// NewRegistry creates a Registry over the given schema directory.
func NewRegistry(root string) *Registry {
	return &Registry{
		root:  root,
		cache: make(map[string]*compiledSchema),
	}
}

// SchemaPath returns the schema file path for an entity type.
func (r *Registry) SchemaPath(entityType string) string {
	singular := strings.TrimRight(entityType, "s")
	return filepath.Join(r.root, singular+".schema.json")
}

// load compiles and caches the schema for the entity type. A missing schema
// file is an error: crawling a type without a contract is a config mistake.
func (r *Registry) load(entityType string) (*compiledSchema, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if cached, ok := r.cache[entityType]; ok {
		return cached, nil
	}

	path := r.SchemaPath(entityType)
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("schema for %s: %w", entityType, err)
	}

	var doc struct {
		Properties map[string]json.RawMessage `json:"properties"`
	}
	if unmarshalErr := json.Unmarshal(raw, &doc); unmarshalErr != nil {
		return nil, fmt.Errorf("parse schema for %s: %w", entityType, unmarshalErr)
	}

	compiled, compileErr := jsonschema.Compile(path)
	if compileErr != nil {
		return nil, fmt.Errorf("compile schema for %s: %w", entityType, compileErr)
	}

	allowed := make(map[string]struct{}, len(doc.Properties))
	for name := range doc.Properties {
		allowed[name] = struct{}{}
	}

	entry := &compiledSchema{schema: compiled, allowed: allowed}
	r.cache[entityType] = entry
	return entry, nil
}

// Validate checks the entity against its type's schema. Validation errors
// are rendered as "$.<path>: <message>" strings.
func (r *Registry) Validate(entityType string, entity domain.Entity) (ValidationResult, error) {
	entry, err := r.load(entityType)
	if err != nil {
		return ValidationResult{}, err
	}

	// Round-trip through JSON so typed Go values become plain JSON shapes
	// the validator understands.
	encoded, marshalErr := json.Marshal(entity)
	if marshalErr != nil {
		return ValidationResult{}, fmt.Errorf("encode entity: %w", marshalErr)
	}
	var instance any
	if unmarshalErr := json.Unmarshal(encoded, &instance); unmarshalErr != nil {
		return ValidationResult{}, fmt.Errorf("decode entity: %w", unmarshalErr)
	}

	validateErr := entry.schema.Validate(instance)
	if validateErr == nil {
		return ValidationResult{OK: true}, nil
	}

	var validation *jsonschema.ValidationError
	if !errors.As(validateErr, &validation) {
		return ValidationResult{}, fmt.Errorf("validate entity: %w", validateErr)
	}
	return ValidationResult{Errors: leafMessages(validation)}, nil
}

// Prune returns a copy of the entity containing only schema-known fields.
func (r *Registry) Prune(entityType string, entity domain.Entity) (domain.Entity, error) {
	entry, err := r.load(entityType)
	if err != nil {
		return nil, err
	}
	pruned := make(domain.Entity, len(entity))
	for key, value := range entity {
		if _, ok := entry.allowed[key]; ok {
			pruned[key] = value
		}
	}
	return pruned, nil
}

// leafMessages flattens a validation error tree into per-leaf messages.
func leafMessages(err *jsonschema.ValidationError) []string {
	if len(err.Causes) == 0 {
		return []string{fmt.Sprintf("%s: %s", jsonPath(err.InstanceLocation), err.Message)}
	}
	var messages []string
	for _, cause := range err.Causes {
		messages = append(messages, leafMessages(cause)...)
	}
	return messages
}

// jsonPath converts a JSON pointer instance location into dotted path form,
// "/time_slots/0/start" becoming "$.time_slots[0].start".
func jsonPath(pointer string) string {
	if pointer == "" {
		return "$"
	}
	var builder strings.Builder
	builder.WriteString("$")
	for _, token := range strings.Split(strings.TrimPrefix(pointer, "/"), "/") {
		if _, numErr := strconv.Atoi(token); numErr == nil {
			builder.WriteString("[" + token + "]")
			continue
		}
		builder.WriteString("." + token)
	}
	return builder.String()
}
