// Copyright 2025 James Ross
package tenant

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/jamesross/wasm-job-sandbox/internal/domain"
)

// Status is the tenant's authorization state.
type Status string

const (
	StatusActive    Status = "active"
	StatusSuspended Status = "suspended"
)

// Tenant is an immutable policy record loaded at startup. Registries
// built from it are never mutated; reloading means restarting the
// process (spec.md §9 notes hot reload is unimplemented by design).
type Tenant struct {
	TenantID            string              `json:"tenant_id"`
	AllowedCapabilities map[domain.Capability]bool `json:"-"`
	RawCapabilities     []domain.Capability `json:"allowed_capabilities"`
	GPUSlotLimit        uint                `json:"gpu_slot_limit"`
	RateLimit           uint                `json:"rate_limit"` // jobs per minute; 0 = unlimited
	Status              Status              `json:"status"`
}

// Allows reports whether the tenant's policy grants a capability.
func (t Tenant) Allows(c domain.Capability) bool {
	return t.AllowedCapabilities[c]
}

// Active reports whether the tenant may submit jobs at all.
func (t Tenant) Active() bool {
	return t.Status == StatusActive
}

type tenantFile struct {
	Tenants []Tenant `json:"tenants"`
}

// Registry is the read-only mapping from tenant id to policy, loaded
// once at startup and shared-read thereafter.
type Registry struct {
	byID map[string]Tenant
}

// Load reads the JSON tenants file described in spec.md §6.
func Load(path string) (*Registry, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read tenants file: %w", err)
	}
	var file tenantFile
	if err := json.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("parse tenants file: %w", err)
	}
	reg := &Registry{byID: make(map[string]Tenant, len(file.Tenants))}
	for _, t := range file.Tenants {
		t.AllowedCapabilities = make(map[domain.Capability]bool, len(t.RawCapabilities))
		for _, c := range t.RawCapabilities {
			t.AllowedCapabilities[c] = true
		}
		if t.Status == "" {
			t.Status = StatusActive
		}
		reg.byID[t.TenantID] = t
	}
	return reg, nil
}

// Get performs the read-locked-in-spirit lookup; the map itself is
// never mutated after Load so no lock is required.
func (r *Registry) Get(tenantID string) (Tenant, bool) {
	t, ok := r.byID[tenantID]
	return t, ok
}
