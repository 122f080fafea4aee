// Copyright 2025 James Ross

// Package housekeeping is the background cron sweep described in
// SPEC_FULL.md §3.8. It performs no job eviction — that remains the
// accepted gap from spec.md §9 — it only trims stale per-tenant
// rate-limit windows and logs a GPU-manager invariant snapshot.
package housekeeping

import (
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/jamesross/wasm-job-sandbox/internal/gpuquota"
	"github.com/jamesross/wasm-job-sandbox/internal/obs"
	"github.com/jamesross/wasm-job-sandbox/internal/ratelimit"
)

// Sweeper runs the periodic housekeeping pass.
type Sweeper struct {
	usage *ratelimit.Tracker
	gpu   *gpuquota.Manager
	log   *zap.Logger
	cron  *cron.Cron
}

// New constructs a Sweeper. schedule is a standard cron expression
// (config's housekeeping.schedule, default "@every 1m").
func New(schedule string, usage *ratelimit.Tracker, gpu *gpuquota.Manager, log *zap.Logger) (*Sweeper, error) {
	c := cron.New()
	s := &Sweeper{usage: usage, gpu: gpu, log: log, cron: c}
	if _, err := c.AddFunc(schedule, s.sweep); err != nil {
		return nil, err
	}
	return s, nil
}

// Start begins running the schedule in the background.
func (s *Sweeper) Start() {
	s.cron.Start()
}

// Stop halts the schedule and waits for any in-flight sweep to finish.
func (s *Sweeper) Stop() {
	<-s.cron.Stop().Done()
}

func (s *Sweeper) sweep() {
	removed := s.usage.Sweep(time.Now())
	if removed > 0 {
		s.log.Debug("housekeeping: swept stale tenant rate-limit windows", obs.Int("tenants_removed", removed))
	}

	snapshot := s.gpu.Snapshot()
	total := uint(0)
	for _, n := range snapshot {
		total += n
	}
	s.log.Debug("housekeeping: gpu manager snapshot", obs.Int("global_in_use", int(total)), obs.Int("tenants_with_slots", len(snapshot)))
}
