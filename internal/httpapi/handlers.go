// Copyright 2025 James Ross

// Package httpapi exposes the job submission and query surface of
// spec.md §4 over HTTP, grounded on the reference module's
// internal/admin-api package: a gorilla/mux router, JSON request/
// response helpers in the same texture, and a middleware chain
// (recovery, request ID) reused almost verbatim. The status-watch
// endpoint additionally bridges internal/eventbus onto a
// gorilla/websocket connection.
package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/jamesross/wasm-job-sandbox/internal/admission"
	"github.com/jamesross/wasm-job-sandbox/internal/domain"
	"github.com/jamesross/wasm-job-sandbox/internal/eventbus"
	"github.com/jamesross/wasm-job-sandbox/internal/registry"
)

// Handler holds the dependencies the job API needs to serve requests.
type Handler struct {
	admission *admission.Controller
	jobs      *registry.Registry
	bus       *eventbus.Bus // may be nil: watch then degrades to a single snapshot frame
	logger    *zap.Logger
	upgrader  websocket.Upgrader
}

// NewHandler constructs a Handler.
func NewHandler(adm *admission.Controller, jobs *registry.Registry, bus *eventbus.Bus, logger *zap.Logger) *Handler {
	return &Handler{
		admission: adm,
		jobs:      jobs,
		bus:       bus,
		logger:    logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// The watch endpoint is read-only telemetry for operator
			// tooling, not a browser-facing surface; any origin may connect.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// SubmitJob handles POST /jobs.
func (h *Handler) SubmitJob(w http.ResponseWriter, r *http.Request) {
	var req SubmitJobRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_REQUEST", "invalid JSON body")
		return
	}

	payload, err := json.Marshal(req.Payload)
	if err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_REQUEST", "payload must be JSON-serializable")
		return
	}

	id, err := h.admission.Submit(admission.Request{
		TenantID:     req.TenantID,
		ModuleID:     req.ModuleID,
		Payload:      payload,
		Capabilities: req.Capabilities,
	})
	if err != nil {
		writeAdmissionError(w, err)
		return
	}

	writeJSON(w, http.StatusAccepted, SubmitJobResponse{JobID: id.String()})
}

// GetJob handles GET /jobs/{id}.
func (h *Handler) GetJob(w http.ResponseWriter, r *http.Request) {
	id, ok := parseJobID(w, r)
	if !ok {
		return
	}
	job, ok := h.jobs.Get(id)
	if !ok {
		writeError(w, http.StatusNotFound, "JOB_NOT_FOUND", "no job with that id")
		return
	}
	writeJSON(w, http.StatusOK, jobToResponse(job))
}

// ListJobs handles GET /jobs.
func (h *Handler) ListJobs(w http.ResponseWriter, r *http.Request) {
	items := h.jobs.List()
	resp := make([]JobListItem, 0, len(items))
	for _, i := range items {
		resp = append(resp, listItemToResponse(i))
	}
	writeJSON(w, http.StatusOK, resp)
}

// WatchJob handles GET /jobs/{id}/watch: it upgrades to a websocket
// and streams one JSON frame per lifecycle event until the job reaches
// a terminal state, then closes. When the event bus is disabled the
// connection sends a single current-state frame and closes, since
// there is nothing to subscribe to.
func (h *Handler) WatchJob(w http.ResponseWriter, r *http.Request) {
	id, ok := parseJobID(w, r)
	if !ok {
		return
	}
	job, ok := h.jobs.Get(id)
	if !ok {
		writeError(w, http.StatusNotFound, "JOB_NOT_FOUND", "no job with that id")
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("httpapi: websocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	if err := conn.WriteJSON(jobToResponse(job)); err != nil {
		return
	}
	if job.Status.Terminal() || h.bus == nil {
		return
	}

	subject := "jobs." + job.TenantID + "." + id.String()
	done := make(chan struct{})
	sub, err := h.bus.Subscribe(subject, func(evt eventbus.Event) {
		if writeErr := conn.WriteJSON(evt); writeErr != nil {
			return
		}
		if evt.Status == domain.StatusFinished.String() || evt.Status == domain.StatusFailed.String() {
			close(done)
		}
	})
	if err != nil {
		h.logger.Warn("httpapi: event subscription failed", zap.Error(err))
		return
	}
	defer sub.Unsubscribe()

	select {
	case <-done:
	case <-time.After(5 * time.Minute):
	case <-r.Context().Done():
	}
}

func parseJobID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	raw := mux.Vars(r)["id"]
	id, err := uuid.Parse(raw)
	if err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_JOB_ID", "job id must be a UUID")
		return uuid.Nil, false
	}
	return id, true
}

func writeAdmissionError(w http.ResponseWriter, err error) {
	var admErr *domain.AdmissionError
	if !errors.As(err, &admErr) {
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", err.Error())
		return
	}

	status, code := admissionErrorStatus(admErr.Kind)
	writeError(w, status, code, admErr.Message)
}

func admissionErrorStatus(kind domain.AdmissionErrorKind) (int, string) {
	switch kind {
	case domain.ErrUnknownTenant:
		return http.StatusNotFound, "UNKNOWN_TENANT"
	case domain.ErrUnauthorizedTenant:
		return http.StatusUnauthorized, "UNAUTHORIZED_TENANT"
	case domain.ErrUnpermittedCapabilities:
		return http.StatusForbidden, "UNPERMITTED_CAPABILITIES"
	case domain.ErrInvalidPayload:
		return http.StatusUnprocessableEntity, "INVALID_PAYLOAD"
	case domain.ErrRateLimitExceeded:
		return http.StatusTooManyRequests, "RATE_LIMIT_EXCEEDED"
	case domain.ErrQueueFull:
		return http.StatusServiceUnavailable, "QUEUE_FULL"
	case domain.ErrServiceClosed:
		return http.StatusInternalServerError, "SERVICE_CLOSED"
	default:
		return http.StatusInternalServerError, "INTERNAL_ERROR"
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, ErrorResponse{Error: message, Code: code})
}
