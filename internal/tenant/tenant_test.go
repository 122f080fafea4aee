// Copyright 2025 James Ross
package tenant

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/jamesross/wasm-job-sandbox/internal/domain"
)

func writeFixture(t *testing.T, tenants []Tenant) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "tenants.json")
	doc := struct {
		Tenants []Tenant `json:"tenants"`
	}{Tenants: tenants}
	raw, err := json.Marshal(doc)
	if err != nil {
		t.Fatalf("marshal fixture: %v", err)
	}
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	return path
}

func TestLoadDefaultsStatusToActive(t *testing.T) {
	path := writeFixture(t, []Tenant{{TenantID: "t1"}})
	reg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	tn, ok := reg.Get("t1")
	if !ok {
		t.Fatal("expected tenant t1 to be present")
	}
	if !tn.Active() {
		t.Fatal("expected a tenant with no explicit status to default to active")
	}
}

func TestLoadBuildsCapabilitySet(t *testing.T) {
	path := writeFixture(t, []Tenant{
		{TenantID: "t1", RawCapabilities: []domain.Capability{domain.CapabilityGPUCompute}},
	})
	reg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	tn, _ := reg.Get("t1")
	if !tn.Allows(domain.CapabilityGPUCompute) {
		t.Fatal("expected gpu.compute to be allowed")
	}
	if tn.Allows(domain.CapabilityNetworkEgress) {
		t.Fatal("expected network.egress to be denied")
	}
}

func TestGetUnknownTenant(t *testing.T) {
	path := writeFixture(t, nil)
	reg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if _, ok := reg.Get("ghost"); ok {
		t.Fatal("expected unknown tenant lookup to fail")
	}
}

func TestSuspendedTenantNotActive(t *testing.T) {
	path := writeFixture(t, []Tenant{{TenantID: "t1", Status: StatusSuspended}})
	reg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	tn, _ := reg.Get("t1")
	if tn.Active() {
		t.Fatal("expected a suspended tenant to be inactive")
	}
}
