// Copyright 2025 James Ross
package httpapi

import (
	"time"

	"github.com/jamesross/wasm-job-sandbox/internal/domain"
)

// SubmitJobRequest is the JSON body of POST /jobs, per spec.md §4.1 and
// the embedded OpenAPI document's JobSubmission schema.
type SubmitJobRequest struct {
	TenantID     string               `json:"tenant_id"`
	ModuleID     string               `json:"module_id"`
	Payload      interface{}          `json:"payload"`
	Capabilities []domain.Capability  `json:"capabilities"`
}

// SubmitJobResponse is returned on successful admission.
type SubmitJobResponse struct {
	JobID string `json:"job_id"`
}

// JobResponse is the full job record returned by GET /jobs/{id}.
type JobResponse struct {
	JobID        string      `json:"job_id"`
	TenantID     string      `json:"tenant_id"`
	ModuleID     string      `json:"module_id"`
	Status       string      `json:"status"`
	Message      string      `json:"message,omitempty"`
	SubmittedAt  time.Time   `json:"submitted_at"`
	StartedAt    *time.Time  `json:"started_at,omitempty"`
	FinishedAt   *time.Time  `json:"finished_at,omitempty"`
	DurationMS   *int64      `json:"duration_ms,omitempty"`
	Output       []byte      `json:"output,omitempty"`
}

// JobListItem is one row of GET /jobs.
type JobListItem struct {
	JobID       string    `json:"job_id"`
	TenantID    string    `json:"tenant_id"`
	Status      string    `json:"status"`
	SubmittedAt time.Time `json:"submitted_at"`
}

// ErrorResponse is the envelope for every non-2xx response, matching
// spec.md §7's error taxonomy.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

func jobToResponse(j domain.Job) JobResponse {
	resp := JobResponse{
		JobID:       j.ID.String(),
		TenantID:    j.TenantID,
		ModuleID:    j.ModuleID,
		Status:      j.Status.Kind.String(),
		Message:     j.Status.Message,
		SubmittedAt: j.SubmittedAt,
		StartedAt:   j.StartedAt,
		FinishedAt:  j.FinishedAt,
	}
	if j.Duration != nil {
		ms := j.Duration.Milliseconds()
		resp.DurationMS = &ms
	}
	if j.Result != nil {
		resp.Output = j.Result.Output
	}
	return resp
}

func listItemToResponse(i domain.ListItem) JobListItem {
	return JobListItem{
		JobID:       i.JobID.String(),
		TenantID:    i.TenantID,
		Status:      i.Status.Kind.String(),
		SubmittedAt: i.SubmittedAt,
	}
}
