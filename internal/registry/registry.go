// Copyright 2025 James Ross

// Package registry holds the in-memory, volatile job store described
// in spec.md §3 and §4.7. It is grounded on original_source/src/state.rs's
// InnerState.jobs map, carried over to Go as a map guarded by a
// sync.RWMutex: Get, List and Len take the read lock, Insert and the
// Mark* transitions take the write lock.
//
// SPEC_FULL.md §3.3: payloads and execution outputs larger than
// compressThreshold are stored zstd-compressed and transparently
// decompressed on read, to reduce the constant factor of the known,
// accepted gap that job records accumulate without eviction.
package registry

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/klauspost/compress/zstd"

	"github.com/jamesross/wasm-job-sandbox/internal/domain"
)

const compressThreshold = 4 * 1024 // 4KiB, per SPEC_FULL.md §3.3

// record is the registry's at-rest representation of a job: the
// public domain.Job fields plus flags noting whether Payload/Output
// are currently zstd-compressed.
type record struct {
	job               domain.Job
	payloadCompressed bool
	outputCompressed  bool
}

// Registry is the authoritative, single-node record of every job the
// process has ever admitted. There is no persistence: a restart loses
// all history, by design (spec.md Non-goals).
type Registry struct {
	mu   sync.RWMutex
	jobs map[uuid.UUID]record

	enc *zstd.Encoder
	dec *zstd.Decoder
}

// New constructs an empty Registry.
func New() *Registry {
	enc, err := zstd.NewWriter(nil)
	if err != nil {
		panic(err) // construction with nil writer/reader cannot fail in practice
	}
	dec, err := zstd.NewReader(nil)
	if err != nil {
		panic(err)
	}
	return &Registry{jobs: make(map[uuid.UUID]record), enc: enc, dec: dec}
}

func (r *Registry) compress(data []byte) ([]byte, bool) {
	if len(data) < compressThreshold {
		return data, false
	}
	return r.enc.EncodeAll(data, nil), true
}

func (r *Registry) decompress(data []byte, compressed bool) []byte {
	if !compressed {
		return data
	}
	out, err := r.dec.DecodeAll(data, nil)
	if err != nil {
		// Corrupt at-rest data should never happen outside a coding
		// bug; surface the empty payload rather than panicking a
		// live request path.
		return nil
	}
	return out
}

// Insert records a newly admitted job. Called once per job, right
// after the hand-off enqueue succeeds.
func (r *Registry) Insert(job domain.Job) {
	r.mu.Lock()
	defer r.mu.Unlock()

	payload, compressed := r.compress(job.Payload)
	job.Payload = payload
	r.jobs[job.ID] = record{job: job, payloadCompressed: compressed}
}

func (r *Registry) materialize(rec record) domain.Job {
	j := rec.job
	j.Payload = r.decompress(j.Payload, rec.payloadCompressed)
	if j.Result != nil {
		result := *j.Result
		result.Output = r.decompress(result.Output, rec.outputCompressed)
		j.Result = &result
	}
	return j
}

// Get returns a copy of the job record for id, with Payload/Output
// transparently decompressed.
func (r *Registry) Get(id uuid.UUID) (domain.Job, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rec, ok := r.jobs[id]
	if !ok {
		return domain.Job{}, false
	}
	return r.materialize(rec), true
}

// List returns every job's list projection, ordered by submission
// time, matching the reference module's list_jobs handler.
func (r *Registry) List() []domain.ListItem {
	r.mu.RLock()
	defer r.mu.RUnlock()

	items := make([]domain.ListItem, 0, len(r.jobs))
	for _, rec := range r.jobs {
		j := rec.job
		items = append(items, domain.ListItem{
			JobID:       j.ID,
			TenantID:    j.TenantID,
			Status:      j.Status,
			SubmittedAt: j.SubmittedAt,
		})
	}
	sortByStable(items)
	return items
}

// sortByStable orders ascending by SubmittedAt, ties broken by JobID,
// per spec.md §4.7.
func sortByStable(items []domain.ListItem) {
	for i := 1; i < len(items); i++ {
		for j := i; j > 0 && less(items[j], items[j-1]); j-- {
			items[j], items[j-1] = items[j-1], items[j]
		}
	}
}

func less(a, b domain.ListItem) bool {
	if !a.SubmittedAt.Equal(b.SubmittedAt) {
		return a.SubmittedAt.Before(b.SubmittedAt)
	}
	return a.JobID.String() < b.JobID.String()
}

// MarkRunning transitions a job from Queued to Running, stamping
// StartedAt. Returns false if the job is unknown or already running
// or terminal, since the dispatcher must never run a job twice.
func (r *Registry) MarkRunning(id uuid.UUID, startedAt time.Time) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.jobs[id]
	if !ok || rec.job.Status.Kind != domain.StatusQueued {
		return false
	}
	rec.job.Status = domain.Running()
	rec.job.StartedAt = &startedAt
	r.jobs[id] = rec
	return true
}

// MarkFinished transitions a job to its terminal Finished state,
// attaching the sandbox's ExecutionResult and stamping FinishedAt and
// Duration. Once a job is terminal its record never changes again.
func (r *Registry) MarkFinished(id uuid.UUID, finishedAt time.Time, result domain.ExecutionResult) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.jobs[id]
	if !ok || rec.job.Status.Terminal() {
		return false
	}

	output, compressed := r.compress(result.Output)
	result.Output = output
	rec.outputCompressed = compressed

	rec.job.Status = domain.Finished("execution completed")
	rec.job.FinishedAt = &finishedAt
	rec.job.Result = &result
	if rec.job.StartedAt != nil {
		d := finishedAt.Sub(*rec.job.StartedAt)
		rec.job.Duration = &d
	}
	r.jobs[id] = rec
	return true
}

// MarkFailed transitions a job to its terminal Failed state with a
// human-readable reason.
func (r *Registry) MarkFailed(id uuid.UUID, finishedAt time.Time, reason string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.jobs[id]
	if !ok || rec.job.Status.Terminal() {
		return false
	}
	rec.job.Status = domain.Failed(reason)
	rec.job.FinishedAt = &finishedAt
	if rec.job.StartedAt != nil {
		d := finishedAt.Sub(*rec.job.StartedAt)
		rec.job.Duration = &d
	}
	r.jobs[id] = rec
	return true
}

// Len reports the total number of jobs ever recorded, for metrics.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.jobs)
}
