// Copyright 2025 James Ross

// Package schema implements the optional per-module JSON Schema
// payload validation described in SPEC_FULL.md §3.5. It is a pure
// enrichment over spec.md's original admission algorithm: a module
// with no registered schema is treated exactly as spec.md specifies,
// accepting any payload.
package schema

import (
	"fmt"
	"sync"

	"github.com/xeipuuv/gojsonschema"
)

// Registry holds compiled JSON schemas keyed by module id. Schemas are
// added with Register, which may be called at any time; a read-write
// mutex guards the map against concurrent Validate calls. No config
// loader populates it.
type Registry struct {
	mu       sync.RWMutex
	byModule map[string]*gojsonschema.Schema
}

// New constructs an empty Registry.
func New() *Registry {
	return &Registry{byModule: make(map[string]*gojsonschema.Schema)}
}

// Register compiles and stores a schema for moduleID. schemaJSON is
// the raw JSON Schema document.
func (r *Registry) Register(moduleID string, schemaJSON []byte) error {
	loader := gojsonschema.NewBytesLoader(schemaJSON)
	schema, err := gojsonschema.NewSchema(loader)
	if err != nil {
		return fmt.Errorf("compile schema for module %q: %w", moduleID, err)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byModule[moduleID] = schema
	return nil
}

// Validate checks payload against moduleID's registered schema, if
// any. Returns (true, nil) when no schema is registered — admission
// treats that as an automatic pass, matching spec.md's original
// schema-less behavior. Returns (false, reasons) on a schema mismatch.
func (r *Registry) Validate(moduleID string, payload []byte) (bool, []string) {
	r.mu.RLock()
	sch, ok := r.byModule[moduleID]
	r.mu.RUnlock()
	if !ok {
		return true, nil
	}

	result, err := sch.Validate(gojsonschema.NewBytesLoader(payload))
	if err != nil {
		return false, []string{fmt.Sprintf("payload is not valid JSON: %v", err)}
	}
	if result.Valid() {
		return true, nil
	}

	reasons := make([]string, 0, len(result.Errors()))
	for _, e := range result.Errors() {
		reasons = append(reasons, e.String())
	}
	return false, reasons
}
