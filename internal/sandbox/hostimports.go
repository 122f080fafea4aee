// Copyright 2025 James Ross
package sandbox

import (
	"github.com/bytecodealliance/wasmtime-go/v25"

	"github.com/jamesross/wasm-job-sandbox/internal/domain"
	"github.com/jamesross/wasm-job-sandbox/internal/obs"
)

// buildLinker installs host imports gated strictly on job.capabilities,
// the Go equivalent of original_source/src/sandbox.rs's build_linker.
// A capability string outside the known vocabulary is already rejected
// during admission; nothing here needs to reject one again. jobID and
// tenantID are only used to label the forwarded env.log_message calls.
func (e *Executor) buildLinker(jobID, tenantID string, capabilities []domain.Capability) (*wasmtime.Linker, error) {
	linker := wasmtime.NewLinker(e.engine)

	has := func(c domain.Capability) bool {
		for _, got := range capabilities {
			if got == c {
				return true
			}
		}
		return false
	}

	if has(domain.CapabilityGPUCompute) {
		err := linker.FuncWrap("env", "gpu_compute", func(caller *wasmtime.Caller, operation int32) int32 {
			// Mock GPU computation; a real backend would dispatch to a
			// GPU work queue keyed on the caller's tenant/job.
			return operation * 2
		})
		if err != nil {
			return nil, newError(ErrExecutionFailed, "link gpu_compute: %v", err)
		}
	}

	if has(domain.CapabilityLogging) {
		err := linker.FuncWrap("env", "log_message", func(caller *wasmtime.Caller, ptr int32, length int32) {
			mem := caller.GetExport("memory")
			if mem == nil || mem.Memory() == nil {
				return
			}
			data := mem.Memory().UnsafeData(caller)
			if ptr < 0 || length < 0 || int(ptr)+int(length) > len(data) {
				return // tolerate bad pointers silently, per spec.md §4.6 step 4
			}
			msg := string(data[ptr : ptr+length])
			e.logger.Info("wasm guest log",
				obs.String("job_id", jobID),
				obs.String("tenant_id", tenantID),
				obs.String("message", msg),
			)
		})
		if err != nil {
			return nil, newError(ErrExecutionFailed, "link log_message: %v", err)
		}
	}

	if has(domain.CapabilityNetworkEgress) {
		err := linker.FuncWrap("env", "http_post", func(caller *wasmtime.Caller, urlPtr int32, dataPtr int32) int32 {
			// Mock network call; a real backend would validate the
			// destination against a tenant allowlist before dispatching.
			return 200
		})
		if err != nil {
			return nil, newError(ErrExecutionFailed, "link http_post: %v", err)
		}
	}

	return linker, nil
}

