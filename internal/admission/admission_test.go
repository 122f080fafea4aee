// Copyright 2025 James Ross
package admission

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/google/uuid"

	"github.com/jamesross/wasm-job-sandbox/internal/domain"
	"github.com/jamesross/wasm-job-sandbox/internal/queue"
	"github.com/jamesross/wasm-job-sandbox/internal/ratelimit"
	"github.com/jamesross/wasm-job-sandbox/internal/registry"
	"github.com/jamesross/wasm-job-sandbox/internal/tenant"
)

func newTestRegistry(t *testing.T, tenants []tenant.Tenant) *tenant.Registry {
	t.Helper()
	path := filepath.Join(t.TempDir(), "tenants.json")

	doc := struct {
		Tenants []tenant.Tenant `json:"tenants"`
	}{Tenants: tenants}
	raw, err := json.Marshal(doc)
	if err != nil {
		t.Fatalf("marshal tenants fixture: %v", err)
	}
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		t.Fatalf("write tenants fixture: %v", err)
	}

	reg, err := tenant.Load(path)
	if err != nil {
		t.Fatalf("load tenants: %v", err)
	}
	return reg
}

func setupController(t *testing.T, tenants []tenant.Tenant, queueCapacity int) (*Controller, *queue.Queue) {
	t.Helper()
	reg := newTestRegistry(t, tenants)
	q := queue.New(queueCapacity)
	jobs := registry.New()
	usage := ratelimit.New()
	c := New(reg, usage, jobs, q, nil, nil)
	return c, q
}

func TestSubmitUnknownTenant(t *testing.T) {
	c, _ := setupController(t, nil, 10)
	_, err := c.Submit(Request{TenantID: "ghost", ModuleID: "m"})
	ae, ok := err.(*domain.AdmissionError)
	if !ok || ae.Kind != domain.ErrUnknownTenant {
		t.Fatalf("expected ErrUnknownTenant, got %v", err)
	}
}

func TestSubmitUnauthorizedTenant(t *testing.T) {
	c, _ := setupController(t, []tenant.Tenant{
		{TenantID: "t1", Status: tenant.StatusSuspended},
	}, 10)
	_, err := c.Submit(Request{TenantID: "t1", ModuleID: "m"})
	ae, ok := err.(*domain.AdmissionError)
	if !ok || ae.Kind != domain.ErrUnauthorizedTenant {
		t.Fatalf("expected ErrUnauthorizedTenant, got %v", err)
	}
}

func TestSubmitUnpermittedCapabilities(t *testing.T) {
	c, _ := setupController(t, []tenant.Tenant{
		{TenantID: "t1", Status: tenant.StatusActive, RawCapabilities: []domain.Capability{domain.CapabilityLogging}},
	}, 10)
	_, err := c.Submit(Request{TenantID: "t1", ModuleID: "m", Capabilities: []domain.Capability{domain.CapabilityGPUCompute}})
	ae, ok := err.(*domain.AdmissionError)
	if !ok || ae.Kind != domain.ErrUnpermittedCapabilities {
		t.Fatalf("expected ErrUnpermittedCapabilities, got %v", err)
	}
}

func TestSubmitRateLimitExceeded(t *testing.T) {
	c, _ := setupController(t, []tenant.Tenant{
		{TenantID: "t1", Status: tenant.StatusActive, RateLimit: 1},
	}, 10)
	if _, err := c.Submit(Request{TenantID: "t1", ModuleID: "m"}); err != nil {
		t.Fatalf("expected first submission to succeed, got %v", err)
	}
	_, err := c.Submit(Request{TenantID: "t1", ModuleID: "m"})
	ae, ok := err.(*domain.AdmissionError)
	if !ok || ae.Kind != domain.ErrRateLimitExceeded {
		t.Fatalf("expected ErrRateLimitExceeded, got %v", err)
	}
}

func TestSubmitQueueFullRollsBackRateLimit(t *testing.T) {
	c, q := setupController(t, []tenant.Tenant{
		{TenantID: "t1", Status: tenant.StatusActive, RateLimit: 5},
	}, 1)
	// Fill the queue with an unrelated send so the next admission's
	// enqueue fails.
	_ = q.TrySend(domain.Job{ID: uuid.New()})

	_, err := c.Submit(Request{TenantID: "t1", ModuleID: "m"})
	ae, ok := err.(*domain.AdmissionError)
	if !ok || ae.Kind != domain.ErrQueueFull {
		t.Fatalf("expected ErrQueueFull, got %v", err)
	}

	// Drain the blocking entry; the rate limit slot should have been
	// rolled back, allowing a fresh submission through once there is
	// room in the queue.
	_, _ = q.Recv()
	if _, err := c.Submit(Request{TenantID: "t1", ModuleID: "m"}); err != nil {
		t.Fatalf("expected submission to succeed after rollback, got %v", err)
	}
}

// TestConcurrentSubmitNeverExceedsRateLimit hammers Submit from many
// goroutines for one tenant whose rate limit is below the queue's
// capacity, so every successful reservation also succeeds at
// hand-off: no goroutine's Rollback should ever delete another
// goroutine's still-admitted reservation, and the number of callers
// that see a nil error must never exceed the tenant's rate limit.
func TestConcurrentSubmitNeverExceedsRateLimit(t *testing.T) {
	const limit = 5
	const attempts = 100
	c, q := setupController(t, []tenant.Tenant{
		{TenantID: "t1", Status: tenant.StatusActive, RateLimit: limit},
	}, attempts)

	var wg sync.WaitGroup
	var mu sync.Mutex
	admitted := 0

	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := c.Submit(Request{TenantID: "t1", ModuleID: "m"}); err == nil {
				mu.Lock()
				admitted++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if admitted != limit {
		t.Fatalf("expected exactly %d admissions under concurrency, got %d", limit, admitted)
	}
	if q.Len() != limit {
		t.Fatalf("expected queue depth %d, got %d", limit, q.Len())
	}
}

// TestConcurrentSubmitQueueFullRollsBackOnlyOwnReservation keeps the
// hand-off queue saturated throughout so every Submit reserves a rate
// limit slot and then fails at enqueue, forcing every goroutine down
// the Rollback path at once. If Rollback ever removed by position
// instead of by the Reservation it was given, concurrent rollbacks
// would fight over the same "most recent" entry and leave the usage
// count inconsistent (either stuck non-zero or erroneously at zero
// while a Submit is still in flight); here it must always settle back
// to zero once every goroutine has returned.
func TestConcurrentSubmitQueueFullRollsBackOnlyOwnReservation(t *testing.T) {
	const attempts = 50
	c, q := setupController(t, []tenant.Tenant{
		{TenantID: "t1", Status: tenant.StatusActive, RateLimit: uint(attempts)},
	}, 1)
	// Keep the one-slot queue permanently full so every Submit's
	// TrySend fails and every reservation gets rolled back.
	_ = q.TrySend(domain.Job{ID: uuid.New()})

	var wg sync.WaitGroup
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := c.Submit(Request{TenantID: "t1", ModuleID: "m"})
			ae, ok := err.(*domain.AdmissionError)
			if !ok || ae.Kind != domain.ErrQueueFull {
				t.Errorf("expected ErrQueueFull, got %v", err)
			}
		}()
	}
	wg.Wait()

	_, _ = q.Recv()
	if _, err := c.Submit(Request{TenantID: "t1", ModuleID: "m"}); err != nil {
		t.Fatalf("expected a fresh submission to succeed once every concurrent rollback has settled, got %v", err)
	}
}

func TestSubmitSuccessInsertsIntoRegistryAndQueue(t *testing.T) {
	c, q := setupController(t, []tenant.Tenant{
		{TenantID: "t1", Status: tenant.StatusActive},
	}, 10)
	id, err := c.Submit(Request{TenantID: "t1", ModuleID: "m"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if id == uuid.Nil {
		t.Fatal("expected a non-nil job id")
	}
	if q.Len() != 1 {
		t.Fatalf("expected queue depth 1, got %d", q.Len())
	}
}
