// Copyright 2025 James Ross
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Sandbox mirrors the SandboxExecutor tuning knobs of spec.md §4.6.
type Sandbox struct {
	MaxMemoryBytes   int64         `mapstructure:"max_memory_bytes"`
	MaxExecutionTime time.Duration `mapstructure:"max_execution_time"`
	ModuleCacheSize  int           `mapstructure:"module_cache_size"`
	EnableFuel       bool          `mapstructure:"enable_fuel"`
	FuelUnits        uint64        `mapstructure:"fuel_units"`
	ModulesDir       string        `mapstructure:"modules_dir"`

	// S3 is the optional remote module source (SPEC_FULL.md §3.4).
	S3 S3ModuleSource `mapstructure:"s3"`
}

type S3ModuleSource struct {
	Enabled bool   `mapstructure:"enabled"`
	Bucket  string `mapstructure:"bucket"`
	Prefix  string `mapstructure:"prefix"`
	Region  string `mapstructure:"region"`
}

type TracingConfig struct {
	Enabled          bool    `mapstructure:"enabled"`
	Endpoint         string  `mapstructure:"endpoint"`
	Environment      string  `mapstructure:"environment"`
	SamplingStrategy string  `mapstructure:"sampling_strategy"` // always|never|probabilistic
	SamplingRate     float64 `mapstructure:"sampling_rate"`
	Insecure         bool    `mapstructure:"insecure"`
}

type Observability struct {
	MetricsPort int           `mapstructure:"metrics_port"`
	LogLevel    string        `mapstructure:"log_level"`
	Tracing     TracingConfig `mapstructure:"tracing"`
	AuditLogPath string       `mapstructure:"audit_log_path"`
}

// EventBus configures the optional NATS job-lifecycle publisher
// (SPEC_FULL.md §3.2).
type EventBus struct {
	Enabled bool   `mapstructure:"enabled"`
	URL     string `mapstructure:"url"`
}

// Housekeeping configures the cron sweep (SPEC_FULL.md §3.8).
type Housekeeping struct {
	Enabled  bool   `mapstructure:"enabled"`
	Schedule string `mapstructure:"schedule"`
}

// HTTP configures the public job API listener.
type HTTP struct {
	ListenAddr string `mapstructure:"listen_addr"`
}

// Config is the immutable global configuration loaded once at startup
// from config.toml (spec.md §6).
type Config struct {
	QueueLength    int    `mapstructure:"queue_length"`
	GPUSlots       uint   `mapstructure:"gpu_slots"`
	PerTenantLimit uint   `mapstructure:"per_tenant_limit"`
	TenantsFile    string `mapstructure:"tenants_file"`

	HTTP          HTTP          `mapstructure:"http"`
	Sandbox       Sandbox       `mapstructure:"sandbox"`
	Observability Observability `mapstructure:"observability"`
	EventBus      EventBus      `mapstructure:"event_bus"`
	Housekeeping  Housekeeping  `mapstructure:"housekeeping"`
}

func defaultConfig() *Config {
	return &Config{
		QueueLength:    64,
		GPUSlots:       4,
		PerTenantLimit: 1,
		TenantsFile:    "tenants.json",
		HTTP: HTTP{
			ListenAddr: "127.0.0.1:3000",
		},
		Sandbox: Sandbox{
			MaxMemoryBytes:   64 * 1024 * 1024,
			MaxExecutionTime: 30 * time.Second,
			ModuleCacheSize:  10,
			EnableFuel:       true,
			FuelUnits:        1_000_000_000,
			ModulesDir:       "modules",
		},
		Observability: Observability{
			MetricsPort: 9090,
			LogLevel:    "info",
			Tracing:     TracingConfig{Enabled: false},
		},
		Housekeeping: Housekeeping{
			Enabled:  true,
			Schedule: "@every 1m",
		},
	}
}

// Load reads configuration from a TOML file and env overrides, the way
// internal/config.Load in the reference module reads YAML: defaults are
// seeded first, the file is optional, then env vars win.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("toml")
	v.SetEnvPrefix("")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	def := defaultConfig()
	v.SetDefault("queue_length", def.QueueLength)
	v.SetDefault("gpu_slots", def.GPUSlots)
	v.SetDefault("per_tenant_limit", def.PerTenantLimit)
	v.SetDefault("tenants_file", def.TenantsFile)

	v.SetDefault("http.listen_addr", def.HTTP.ListenAddr)

	v.SetDefault("sandbox.max_memory_bytes", def.Sandbox.MaxMemoryBytes)
	v.SetDefault("sandbox.max_execution_time", def.Sandbox.MaxExecutionTime)
	v.SetDefault("sandbox.module_cache_size", def.Sandbox.ModuleCacheSize)
	v.SetDefault("sandbox.enable_fuel", def.Sandbox.EnableFuel)
	v.SetDefault("sandbox.fuel_units", def.Sandbox.FuelUnits)
	v.SetDefault("sandbox.modules_dir", def.Sandbox.ModulesDir)
	v.SetDefault("sandbox.s3.enabled", false)

	v.SetDefault("observability.metrics_port", def.Observability.MetricsPort)
	v.SetDefault("observability.log_level", def.Observability.LogLevel)
	v.SetDefault("observability.tracing.enabled", def.Observability.Tracing.Enabled)
	v.SetDefault("observability.audit_log_path", "audit.log")

	v.SetDefault("event_bus.enabled", false)
	v.SetDefault("housekeeping.enabled", def.Housekeeping.Enabled)
	v.SetDefault("housekeeping.schedule", def.Housekeeping.Schedule)

	if _, err := os.Stat(path); err == nil {
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := Validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks config constraints, mirroring the reference module's
// internal/config.Validate.
func Validate(cfg *Config) error {
	if cfg.QueueLength < 1 {
		return fmt.Errorf("queue_length must be >= 1")
	}
	if cfg.Sandbox.MaxExecutionTime <= 0 {
		return fmt.Errorf("sandbox.max_execution_time must be > 0")
	}
	if cfg.Sandbox.MaxMemoryBytes <= 0 {
		return fmt.Errorf("sandbox.max_memory_bytes must be > 0")
	}
	if cfg.Observability.MetricsPort <= 0 || cfg.Observability.MetricsPort > 65535 {
		return fmt.Errorf("observability.metrics_port must be 1..65535")
	}
	if cfg.TenantsFile == "" {
		return fmt.Errorf("tenants_file must be set")
	}
	return nil
}
