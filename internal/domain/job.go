// Copyright 2025 James Ross
package domain

import (
	"time"

	"github.com/google/uuid"
)

// Status is the tagged lifecycle state of a Job. It is monotonic: a job
// moves Queued -> {Running -> {Finished|Failed}} | Failed and never
// regresses. Once terminal the record is immutable.
type Status struct {
	Kind    StatusKind
	Message string // set for Finished and Failed, empty otherwise
}

type StatusKind int

const (
	StatusQueued StatusKind = iota
	StatusRunning
	StatusFinished
	StatusFailed
)

func (k StatusKind) String() string {
	switch k {
	case StatusQueued:
		return "queued"
	case StatusRunning:
		return "running"
	case StatusFinished:
		return "finished"
	case StatusFailed:
		return "failed"
	default:
		return "unknown"
	}
}

func Queued() Status                  { return Status{Kind: StatusQueued} }
func Running() Status                 { return Status{Kind: StatusRunning} }
func Finished(message string) Status  { return Status{Kind: StatusFinished, Message: message} }
func Failed(reason string) Status     { return Status{Kind: StatusFailed, Message: reason} }
func (s Status) Terminal() bool       { return s.Kind == StatusFinished || s.Kind == StatusFailed }

// ExecutionResult is the outcome of a successful sandbox invocation.
type ExecutionResult struct {
	// Output holds the raw (decompressed) bytes of the result. Storage
	// layers may keep this compressed at rest; callers always see plain
	// bytes here.
	Output        []byte
	ExecutionTime time.Duration
	MemoryUsed    uint64 // bytes; 0 when the runtime does not report usage
}

// Capability names a host-side side-effect power a tenant may grant a job.
type Capability string

const (
	CapabilityGPUCompute     Capability = "gpu.compute"
	CapabilityLogging        Capability = "logging"
	CapabilityNetworkEgress Capability = "network.egress"
)

// KnownCapabilities is the closed vocabulary accepted anywhere a
// capability string is validated.
var KnownCapabilities = map[Capability]bool{
	CapabilityGPUCompute:    true,
	CapabilityLogging:       true,
	CapabilityNetworkEgress: true,
}

// Job is the authoritative record of one submitted unit of work.
type Job struct {
	ID           uuid.UUID
	TenantID     string
	ModuleID     string
	Payload      []byte // raw JSON
	Capabilities []Capability

	SubmittedAt time.Time
	StartedAt   *time.Time
	FinishedAt  *time.Time
	Duration    *time.Duration

	Status Status
	Result *ExecutionResult
}

// Clone returns a deep-enough copy safe to hand off to the dispatcher
// without aliasing the registry's mutable fields.
func (j Job) Clone() Job {
	c := j
	c.Payload = append([]byte(nil), j.Payload...)
	c.Capabilities = append([]Capability(nil), j.Capabilities...)
	return c
}

// HasCapability reports whether the job requested a given capability.
func (j Job) HasCapability(c Capability) bool {
	for _, have := range j.Capabilities {
		if have == c {
			return true
		}
	}
	return false
}

// ListItem is the projection returned by the list query.
type ListItem struct {
	JobID       uuid.UUID
	TenantID    string
	Status      Status
	SubmittedAt time.Time
}
