// Copyright 2025 James Ross
package config

import (
	"os"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	os.Unsetenv("QUEUE_LENGTH")
	cfg, err := Load("nonexistent.toml")
	if err != nil {
		t.Fatal(err)
	}
	if cfg.QueueLength != 64 {
		t.Fatalf("expected default queue_length 64, got %d", cfg.QueueLength)
	}
	if cfg.GPUSlots != 4 {
		t.Fatalf("expected default gpu_slots 4, got %d", cfg.GPUSlots)
	}
	if cfg.Sandbox.ModulesDir == "" {
		t.Fatalf("expected default modules dir")
	}
}

func TestValidateFails(t *testing.T) {
	cfg := defaultConfig()
	cfg.QueueLength = 0
	if err := Validate(cfg); err == nil {
		t.Fatalf("expected error for queue_length < 1")
	}
	cfg = defaultConfig()
	cfg.Sandbox.MaxExecutionTime = 0
	if err := Validate(cfg); err == nil {
		t.Fatalf("expected error for max_execution_time <= 0")
	}
	cfg = defaultConfig()
	cfg.Observability.MetricsPort = 70000
	if err := Validate(cfg); err == nil {
		t.Fatalf("expected error for out-of-range metrics_port")
	}
}
