// Copyright 2025 James Ross

// Package sandbox is the WebAssembly execution engine of spec.md §4.6,
// grounded directly on original_source/src/sandbox.rs's SandboxExecutor.
// It compiles untrusted WASM modules under wasmtime with fuel metering,
// a bounded stack, a single linear memory, and capability-gated host
// imports, and races the invocation against a wall-clock timeout.
package sandbox

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/bytecodealliance/wasmtime-go/v25"
	"go.uber.org/zap"

	"github.com/jamesross/wasm-job-sandbox/internal/domain"
)

const defaultFuelUnits = 1_000_000_000

// Config tunes the executor, mirroring original_source's SandboxConfig.
type Config struct {
	MaxMemoryBytes   int64
	MaxExecutionTime time.Duration
	ModuleCacheSize  int
	EnableFuel       bool
	FuelUnits        uint64
}

// execContext is attached to every wasmtime.Store as its host data, the
// Go equivalent of original_source's SandboxContext<job_id, tenant_id,
// max_memory>.
type execContext struct {
	jobID     string
	tenantID  string
	maxMemory int64
}

// Executor owns one compiled wasmtime.Engine, configured once at
// construction and shared by every execution.
type Executor struct {
	engine *wasmtime.Engine
	cfg    Config
	source ModuleSource
	logger *zap.Logger

	cacheMu sync.Mutex
	cache   map[string]*wasmtime.Module // module_id -> compiled module, bounded to ModuleCacheSize
}

// NewExecutor builds the engine once with the feature set spec.md
// §4.6 requires: 2MiB stack, speed-optimized Cranelift, bulk
// memory/reference-types/multi-value/SIMD enabled, multi-memory
// disabled, fuel metering gated on cfg.EnableFuel. logger receives
// env.log_message calls from guest modules granted CapabilityLogging;
// a nil logger is replaced with a no-op one.
func NewExecutor(cfg Config, source ModuleSource, logger *zap.Logger) (*Executor, error) {
	wcfg := wasmtime.NewConfig()
	wcfg.SetConsumeFuel(cfg.EnableFuel)
	wcfg.SetMaxWasmStack(2 * 1024 * 1024)
	wcfg.SetCraneliftOptLevel(wasmtime.OptLevelSpeed)
	wcfg.SetWasmBulkMemory(true)
	wcfg.SetWasmReferenceTypes(true)
	wcfg.SetWasmMultiValue(true)
	wcfg.SetWasmMultiMemory(false)
	wcfg.SetWasmSIMD(true)

	engine := wasmtime.NewEngineWithConfig(wcfg)

	if cfg.FuelUnits == 0 {
		cfg.FuelUnits = defaultFuelUnits
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Executor{
		engine: engine,
		cfg:    cfg,
		source: source,
		logger: logger,
		cache:  make(map[string]*wasmtime.Module),
	}, nil
}

// Execute runs job's module to completion, or returns a typed *Error.
// Grounded on original_source/src/sandbox.rs's execute(): load, create
// store, seed fuel, build linker, instantiate, locate run(), invoke
// under a wall-clock timeout race.
func (e *Executor) Execute(ctx context.Context, job domain.Job) (domain.ExecutionResult, error) {
	start := time.Now()

	module, err := e.loadModule(ctx, job.ModuleID)
	if err != nil {
		return domain.ExecutionResult{}, err
	}

	store := wasmtime.NewStore(e.engine)
	store.SetData(&execContext{
		jobID:     job.ID.String(),
		tenantID:  job.TenantID,
		maxMemory: e.cfg.MaxMemoryBytes,
	})
	store.Limiter(e.cfg.MaxMemoryBytes, -1, -1, -1, -1)

	if e.cfg.EnableFuel {
		if err := store.SetFuel(e.cfg.FuelUnits); err != nil {
			return domain.ExecutionResult{}, newError(ErrExecutionFailed, "seed fuel: %v", err)
		}
	}

	linker, err := e.buildLinker(job.ID.String(), job.TenantID, job.Capabilities)
	if err != nil {
		return domain.ExecutionResult{}, err
	}

	instance, err := linker.Instantiate(store, module)
	if err != nil {
		return domain.ExecutionResult{}, newError(ErrExecutionFailed, "instantiate: %v", err)
	}

	runFn := instance.GetFunc(store, "run")
	if runFn == nil {
		return domain.ExecutionResult{}, newError(ErrExecutionFailed, "module does not export run() -> i32")
	}

	resultCh := make(chan int32, 1)
	errCh := make(chan error, 1)
	go func() {
		out, callErr := runFn.Call(store)
		if callErr != nil {
			errCh <- callErr
			return
		}
		code, ok := out.(int32)
		if !ok {
			errCh <- fmt.Errorf("run() returned non-i32 value %v", out)
			return
		}
		resultCh <- code
	}()

	select {
	case callErr := <-errCh:
		return domain.ExecutionResult{}, classifyTrap(callErr)
	case code := <-resultCh:
		elapsed := time.Since(start)
		return domain.ExecutionResult{
			Output:        []byte(fmt.Sprintf("%d", code)),
			ExecutionTime: elapsed,
			MemoryUsed:    0,
		}, nil
	case <-time.After(e.cfg.MaxExecutionTime):
		// The computation goroutine is abandoned; fuel metering (if
		// enabled) bounds how much further progress it can make.
		return domain.ExecutionResult{}, newError(ErrTimeout, "execution exceeded %s", e.cfg.MaxExecutionTime)
	}
}

// classifyTrap distinguishes fuel exhaustion from a generic trap where
// wasmtime's error message makes it possible to do so; otherwise falls
// back to ExecutionFailed, matching spec.md §4.6's relaxed requirement
// ("or, if distinguishable").
func classifyTrap(err error) *Error {
	if trap, ok := err.(*wasmtime.Trap); ok {
		if code := trap.Code(); code != nil && *code == wasmtime.OutOfFuel {
			return newError(ErrExecutionFailed, "out of fuel: %v", trap)
		}
		return newError(ErrTrapOccurred, "%v", trap)
	}
	return newError(ErrExecutionFailed, "%v", err)
}

func (e *Executor) loadModule(ctx context.Context, moduleID string) (*wasmtime.Module, error) {
	e.cacheMu.Lock()
	if m, ok := e.cache[moduleID]; ok {
		e.cacheMu.Unlock()
		return m, nil
	}
	e.cacheMu.Unlock()

	data, err := e.source.Load(ctx, moduleID)
	if err != nil {
		if err == ErrNotFound {
			return nil, newError(ErrModuleNotFound, "module %s not found", moduleID)
		}
		return nil, newError(ErrModuleLoadFailed, "load module %s: %v", moduleID, err)
	}

	module, err := wasmtime.NewModule(e.engine, data)
	if err != nil {
		return nil, newError(ErrModuleLoadFailed, "compile module %s: %v", moduleID, err)
	}

	e.cacheMu.Lock()
	if len(e.cache) >= e.cfg.ModuleCacheSize {
		for k := range e.cache {
			delete(e.cache, k)
			break
		}
	}
	e.cache[moduleID] = module
	e.cacheMu.Unlock()

	return module, nil
}
