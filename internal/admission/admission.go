// Copyright 2025 James Ross

// Package admission implements the request-path admission controller
// of spec.md §4.1: tenant lookup, active-status check, capability
// scoping, optional payload schema validation (SPEC_FULL.md §3.5),
// sliding-window rate limiting, and the hand-off enqueue, with
// rollback of the rate-limit reservation on a downstream enqueue
// failure. Grounded directly on original_source/src/api.rs's
// submit_job handler.
package admission

import (
	"time"

	"github.com/google/uuid"

	"github.com/jamesross/wasm-job-sandbox/internal/domain"
	"github.com/jamesross/wasm-job-sandbox/internal/obs"
	"github.com/jamesross/wasm-job-sandbox/internal/queue"
	"github.com/jamesross/wasm-job-sandbox/internal/ratelimit"
	"github.com/jamesross/wasm-job-sandbox/internal/registry"
	"github.com/jamesross/wasm-job-sandbox/internal/schema"
	"github.com/jamesross/wasm-job-sandbox/internal/tenant"
)

// Request is the inbound submission payload: {tenant_id, module_id,
// payload, capabilities}, per spec.md §4.1.
type Request struct {
	TenantID     string
	ModuleID     string
	Payload      []byte
	Capabilities []domain.Capability
}

// Controller is the lock-ordering-aware admission pipeline. Lock
// order is fixed globally: tenant_usage (ratelimit.Tracker) before
// registry. tenants is read-only after startup and carries no lock of
// its own.
type Controller struct {
	tenants  *tenant.Registry
	usage    *ratelimit.Tracker
	jobs     *registry.Registry
	handoff  *queue.Queue
	schemas  *schema.Registry // may be nil: schema validation is optional
	metrics  *obs.Metrics
	now      func() time.Time
}

// New constructs a Controller. schemas may be nil to disable payload
// schema validation entirely.
func New(tenants *tenant.Registry, usage *ratelimit.Tracker, jobs *registry.Registry, handoff *queue.Queue, schemas *schema.Registry, metrics *obs.Metrics) *Controller {
	return &Controller{
		tenants: tenants,
		usage:   usage,
		jobs:    jobs,
		handoff: handoff,
		schemas: schemas,
		metrics: metrics,
		now:     time.Now,
	}
}

// Submit runs the full admission algorithm and returns the admitted
// job's id, or an *domain.AdmissionError describing the rejection.
func (c *Controller) Submit(req Request) (uuid.UUID, error) {
	job := domain.Job{
		ID:           uuid.New(),
		TenantID:     req.TenantID,
		ModuleID:     req.ModuleID,
		Payload:      req.Payload,
		Capabilities: req.Capabilities,
		SubmittedAt:  c.now(),
		Status:       domain.Queued(),
	}

	t, ok := c.tenants.Get(job.TenantID)
	if !ok {
		c.reject("unknown_tenant")
		return uuid.Nil, domain.NewAdmissionError(domain.ErrUnknownTenant, "tenant ID %s not known", job.TenantID)
	}

	if !t.Active() {
		c.reject("unauthorized_tenant")
		return uuid.Nil, domain.NewAdmissionError(domain.ErrUnauthorizedTenant, "tenant ID %s not authorized", job.TenantID)
	}

	if offending := unpermitted(job.Capabilities, t); len(offending) > 0 {
		c.reject("unpermitted_capabilities")
		err := domain.NewAdmissionError(domain.ErrUnpermittedCapabilities, "unpermitted capabilities requested: %v", offending)
		err.Offending = offending
		return uuid.Nil, err
	}

	if c.schemas != nil {
		if ok, reasons := c.schemas.Validate(job.ModuleID, job.Payload); !ok {
			c.reject("invalid_payload")
			return uuid.Nil, domain.NewAdmissionError(domain.ErrInvalidPayload, "payload failed schema validation: %v", reasons)
		}
	}

	// Lock order: tenant_usage (via Tracker.Reserve/Rollback) before
	// registry (via jobs.Insert). Tracker and Registry each guard their
	// own mutex internally; this ordering is maintained by sequencing
	// calls, not by holding a shared lock across both. Reserve hands
	// back a Reservation token identifying exactly this entry, so a
	// failed hand-off rolls back this submission's slot even if another
	// goroutine has since reserved one of its own for the same tenant.
	reserved, reservation := c.usage.Reserve(job.TenantID, t.RateLimit, c.now())
	if !reserved {
		c.reject("rate_limit_exceeded")
		return uuid.Nil, domain.NewAdmissionError(domain.ErrRateLimitExceeded, "rate limit exceeded for tenant %s: max %d jobs per minute", job.TenantID, t.RateLimit)
	}

	if err := c.handoff.TrySend(job.Clone()); err != nil {
		c.usage.Rollback(reservation)
		switch err {
		case queue.ErrFull:
			c.reject("queue_full")
			return uuid.Nil, domain.NewAdmissionError(domain.ErrQueueFull, "job queue full, please retry later")
		default:
			c.reject("service_closed")
			return uuid.Nil, domain.NewAdmissionError(domain.ErrServiceClosed, "service is shutting down")
		}
	}

	c.jobs.Insert(job)
	if c.metrics != nil {
		c.metrics.JobsSubmitted.Inc()
		c.metrics.QueueDepth.Set(float64(c.handoff.Len()))
	}
	return job.ID, nil
}

func (c *Controller) reject(reason string) {
	if c.metrics != nil {
		c.metrics.JobsAdmissionRejected.WithLabelValues(reason).Inc()
	}
}

func unpermitted(requested []domain.Capability, t tenant.Tenant) []domain.Capability {
	var offending []domain.Capability
	for _, c := range requested {
		if !domain.KnownCapabilities[c] || !t.Allows(c) {
			offending = append(offending, c)
		}
	}
	return offending
}
