// Copyright 2025 James Ross

// Package dispatcher is the single long-running consumer of
// spec.md §4.3: it drains the hand-off queue, re-validates each job
// against current tenant state, reserves a GPU slot, and spawns one
// concurrent execution task per admitted job. Grounded on
// original_source/src/dispatcher.rs's run_dispatcher/run_task, with
// the goroutine-per-job shape borrowed from the reference module's
// internal/worker.Worker.Run.
package dispatcher

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/jamesross/wasm-job-sandbox/internal/domain"
	"github.com/jamesross/wasm-job-sandbox/internal/eventbus"
	"github.com/jamesross/wasm-job-sandbox/internal/gpuquota"
	"github.com/jamesross/wasm-job-sandbox/internal/obs"
	"github.com/jamesross/wasm-job-sandbox/internal/queue"
	"github.com/jamesross/wasm-job-sandbox/internal/registry"
	"github.com/jamesross/wasm-job-sandbox/internal/tenant"
)

// Executor runs one admitted job to completion. *sandbox.Executor
// satisfies this; tests substitute a fake to exercise the dispatcher's
// re-validation and bookkeeping logic without a real wasmtime engine.
type Executor interface {
	Execute(ctx context.Context, job domain.Job) (domain.ExecutionResult, error)
}

// Dispatcher wires the hand-off queue to the sandbox executor through
// GPU admission control and the job registry.
type Dispatcher struct {
	queue    *queue.Queue
	tenants  *tenant.Registry
	gpu      *gpuquota.Manager
	jobs     *registry.Registry
	executor Executor
	log      *zap.Logger
	metrics  *obs.Metrics
	bus      *eventbus.Bus // may be nil: Bus methods are no-ops on a nil receiver
	now      func() time.Time
}

// New constructs a Dispatcher. bus may be nil when SPEC_FULL.md §3.2's
// event bus is disabled in config.
func New(q *queue.Queue, tenants *tenant.Registry, gpu *gpuquota.Manager, jobs *registry.Registry, executor Executor, log *zap.Logger, metrics *obs.Metrics, bus *eventbus.Bus) *Dispatcher {
	return &Dispatcher{
		queue:    q,
		tenants:  tenants,
		gpu:      gpu,
		jobs:     jobs,
		executor: executor,
		log:      log,
		metrics:  metrics,
		bus:      bus,
		now:      time.Now,
	}
}

// Run drains the hand-off queue until it is closed and drained. Each
// admitted job is dispatched to its own goroutine; Run itself never
// blocks on execution, matching spec.md §4.3 step 5's "immediately
// returns to step 1" requirement.
func (d *Dispatcher) Run(ctx context.Context) {
	for {
		job, ok := d.queue.Recv()
		if !ok {
			d.log.Info("dispatcher: queue closed and drained, exiting")
			return
		}
		d.dispatch(ctx, job)
	}
}

func (d *Dispatcher) dispatch(ctx context.Context, job domain.Job) {
	ctx, span := obs.StartDispatchSpan(ctx, job)
	defer span.End()

	t, ok := d.tenants.Get(job.TenantID)
	if !ok {
		d.jobs.MarkFailed(job.ID, d.now(), "tenant ID not found")
		d.rejected("unknown_tenant")
		return
	}
	if !t.Active() {
		d.jobs.MarkFailed(job.ID, d.now(), "tenant not authorized")
		d.rejected("unauthorized_tenant")
		return
	}
	for _, c := range job.Capabilities {
		if !t.Allows(c) {
			d.jobs.MarkFailed(job.ID, d.now(), "unauthorized capabilities requested")
			d.rejected("unpermitted_capabilities")
			return
		}
	}

	if err := d.gpu.TryReserve(job.TenantID, t.GPUSlotLimit); err != nil {
		d.jobs.MarkFailed(job.ID, d.now(), "no GPU capacity, please try again later")
		d.rejected(err.Error())
		return
	}

	if d.metrics != nil {
		d.metrics.JobsDispatched.Inc()
		d.metrics.GPUSlotsInUse.WithLabelValues("global").Set(float64(d.gpu.GlobalInUse()))
	}

	go d.runTask(ctx, job)
}

func (d *Dispatcher) rejected(reason string) {
	if d.metrics != nil {
		d.metrics.JobsDispatchRejected.WithLabelValues(reason).Inc()
	}
}

func (d *Dispatcher) runTask(ctx context.Context, job domain.Job) {
	ctx, span := obs.StartExecutionSpan(ctx, job)
	defer span.End()
	defer func() {
		if err := d.gpu.Release(job.TenantID); err != nil {
			d.log.Warn("dispatcher: gpu release failed", obs.Err(err), obs.String("tenant_id", job.TenantID))
		}
		if d.metrics != nil {
			d.metrics.GPUSlotsInUse.WithLabelValues("global").Set(float64(d.gpu.GlobalInUse()))
		}
	}()

	started := d.now()
	if !d.jobs.MarkRunning(job.ID, started) {
		d.log.Warn("dispatcher: job not in queued state at execution start", obs.String("job_id", job.ID.String()))
		return
	}
	if running, ok := d.jobs.Get(job.ID); ok {
		d.bus.Publish(running)
	}

	result, err := d.executor.Execute(ctx, job)
	finished := d.now()
	if err != nil {
		obs.RecordError(ctx, err)
		d.jobs.MarkFailed(job.ID, finished, "job execution failed: "+err.Error())
		if d.metrics != nil {
			d.metrics.JobsFailed.Inc()
		}
		if failed, ok := d.jobs.Get(job.ID); ok {
			d.bus.Publish(failed)
		}
		return
	}

	obs.SetSpanSuccess(ctx)
	d.jobs.MarkFinished(job.ID, finished, result)
	if d.metrics != nil {
		d.metrics.JobsFinished.Inc()
		d.metrics.ExecutionDuration.Observe(result.ExecutionTime.Seconds())
	}
	if done, ok := d.jobs.Get(job.ID); ok {
		d.bus.Publish(done)
	}
}
