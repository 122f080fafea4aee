// Copyright 2025 James Ross
package gpuquota

import (
	"errors"
	"sync"
)

// Errors returned by TryReserve and Release. Mirrors the reference
// implementation's GpuError enum (original_source/src/gpu_manager.rs).
var (
	ErrNoGlobalCapacity  = errors.New("gpu: no global slots available")
	ErrTenantLimitReached = errors.New("gpu: tenant reached its slot limit")
	ErrTenantHasNoSlots  = errors.New("gpu: tenant has no active slots to release")
)

// Manager is the two-tier GPU capacity gate described in spec.md §4.4:
// a fixed global slot count, and a per-tenant limit carried on the
// tenant's own policy record. It is an independent leaf lock: callers
// never hold another package's lock while calling into Manager, and
// Manager never calls back into another package.
type Manager struct {
	mu       sync.Mutex
	capacity uint
	used     map[string]uint // tenant_id -> slots currently held; absent means 0
}

// New constructs a Manager with a fixed global capacity.
func New(globalCapacity uint) *Manager {
	return &Manager{
		capacity: globalCapacity,
		used:     make(map[string]uint),
	}
}

// TryReserve attempts to reserve one GPU slot for tenantID, subject to
// both the global capacity and tenantLimit. It is atomic: either both
// checks pass and the slot is recorded, or neither.
func (m *Manager) TryReserve(tenantID string, tenantLimit uint) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	var total uint
	for _, n := range m.used {
		total += n
	}
	if total >= m.capacity {
		return ErrNoGlobalCapacity
	}

	current := m.used[tenantID]
	if current >= tenantLimit {
		return ErrTenantLimitReached
	}

	m.used[tenantID] = current + 1
	return nil
}

// Release frees one GPU slot held by tenantID. Per spec.md §4.4's
// invariant, once a tenant's count returns to zero its entry is
// removed from the map entirely rather than left at zero.
func (m *Manager) Release(tenantID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	count, ok := m.used[tenantID]
	if !ok || count == 0 {
		return ErrTenantHasNoSlots
	}
	count--
	if count == 0 {
		delete(m.used, tenantID)
	} else {
		m.used[tenantID] = count
	}
	return nil
}

// GlobalInUse reports the total number of slots currently reserved
// across all tenants, for metrics and the housekeeping sweep.
func (m *Manager) GlobalInUse() uint {
	m.mu.Lock()
	defer m.mu.Unlock()
	var total uint
	for _, n := range m.used {
		total += n
	}
	return total
}

// TenantInUse reports the slots currently held by a single tenant.
func (m *Manager) TenantInUse(tenantID string) uint {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.used[tenantID]
}

// Snapshot returns a copy of the per-tenant usage map, for the
// housekeeping sweep's invariant check ("count>0 else remove") and
// the operator TUI's GPU panel.
func (m *Manager) Snapshot() map[string]uint {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]uint, len(m.used))
	for k, v := range m.used {
		out[k] = v
	}
	return out
}
