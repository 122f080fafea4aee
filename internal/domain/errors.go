// Copyright 2025 James Ross
package domain

import "fmt"

// AdmissionErrorKind enumerates the synchronous failures the admission
// controller can return, each mapped to a distinct HTTP status by the
// httpapi package.
type AdmissionErrorKind string

const (
	ErrUnknownTenant          AdmissionErrorKind = "unknown_tenant"
	ErrUnauthorizedTenant     AdmissionErrorKind = "unauthorized_tenant"
	ErrUnpermittedCapabilities AdmissionErrorKind = "unpermitted_capabilities"
	ErrInvalidPayload         AdmissionErrorKind = "invalid_payload"
	ErrRateLimitExceeded      AdmissionErrorKind = "rate_limit_exceeded"
	ErrQueueFull              AdmissionErrorKind = "queue_full"
	ErrServiceClosed          AdmissionErrorKind = "service_closed"
)

// AdmissionError is returned by admission.Controller.Submit. It carries
// enough detail for the HTTP layer to render the §7 error taxonomy
// without string-matching.
type AdmissionError struct {
	Kind    AdmissionErrorKind
	Message string
	// Offending is populated for ErrUnpermittedCapabilities with the
	// capabilities the tenant did not grant.
	Offending []Capability
}

func (e *AdmissionError) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func NewAdmissionError(kind AdmissionErrorKind, format string, args ...interface{}) *AdmissionError {
	return &AdmissionError{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// JobNotFoundError describes a lookup of an unknown job id. The query
// path does not return it: registry.Get reports a miss with ok=false
// and httpapi renders that as a 404 directly.
type JobNotFoundError struct {
	JobID string
}

func (e *JobNotFoundError) Error() string {
	return fmt.Sprintf("job not found: %s", e.JobID)
}
