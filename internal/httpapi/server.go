// Copyright 2025 James Ross
package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/jamesross/wasm-job-sandbox/internal/admission"
	"github.com/jamesross/wasm-job-sandbox/internal/eventbus"
	"github.com/jamesross/wasm-job-sandbox/internal/registry"
)

// Server is the public job API listener described in SPEC_FULL.md's
// HTTP surface, grounded on the reference module's
// internal/admin-api.Server for its setup/shutdown shape.
type Server struct {
	listenAddr string
	logger     *zap.Logger
	server     *http.Server
}

// NewServer constructs a Server ready to Start. Validating the
// embedded OpenAPI document here means a malformed spec fails startup
// rather than surfacing at request time.
func NewServer(listenAddr string, adm *admission.Controller, jobs *registry.Registry, bus *eventbus.Bus, logger *zap.Logger) (*Server, error) {
	if _, err := LoadSpec(); err != nil {
		return nil, err
	}

	h := NewHandler(adm, jobs, bus, logger)

	router := mux.NewRouter()
	router.HandleFunc("/jobs", h.SubmitJob).Methods(http.MethodPost)
	router.HandleFunc("/jobs", h.ListJobs).Methods(http.MethodGet)
	router.HandleFunc("/jobs/{id}", h.GetJob).Methods(http.MethodGet)
	router.HandleFunc("/jobs/{id}/watch", h.WatchJob).Methods(http.MethodGet)

	var handler http.Handler = router
	handler = LoggingMiddleware(logger)(handler)
	handler = RequestIDMiddleware()(handler)
	handler = RecoveryMiddleware(logger)(handler)

	return &Server{
		listenAddr: listenAddr,
		logger:     logger,
		server: &http.Server{
			Addr:         listenAddr,
			Handler:      handler,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 0, // the watch endpoint holds long-lived websocket connections
		},
	}, nil
}

// Start runs the server until it errors or is shut down. Matches
// http.Server.ListenAndServe's contract: it always returns a non-nil
// error, http.ErrServerClosed on a clean Shutdown.
func (s *Server) Start() error {
	s.logger.Info("httpapi: listening", zap.String("addr", s.listenAddr))
	return s.server.ListenAndServe()
}

// Shutdown gracefully drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}
