// Copyright 2025 James Ross

// BDD-style coverage of the admission pipeline, grounded on the
// reference module's kubernetes-operator controller specs
// (internal/kubernetes-operator/controllers/*_test.go), which use the
// same Ginkgo/Gomega Describe/Context/It shape to narrate multi-step
// reconciliation behavior. Here the "reconciliation" is the six-step
// admission algorithm from spec.md §4.1.
package admission_test

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/jamesross/wasm-job-sandbox/internal/admission"
	"github.com/jamesross/wasm-job-sandbox/internal/domain"
	"github.com/jamesross/wasm-job-sandbox/internal/queue"
	"github.com/jamesross/wasm-job-sandbox/internal/ratelimit"
	"github.com/jamesross/wasm-job-sandbox/internal/registry"
	"github.com/jamesross/wasm-job-sandbox/internal/tenant"
)

func writeTenantFixture(tenants []tenant.Tenant) string {
	path := filepath.Join(GinkgoT().TempDir(), "tenants.json")
	doc := struct {
		Tenants []tenant.Tenant `json:"tenants"`
	}{Tenants: tenants}
	raw, err := json.Marshal(doc)
	Expect(err).NotTo(HaveOccurred())
	Expect(os.WriteFile(path, raw, 0o644)).To(Succeed())
	return path
}

var _ = Describe("Controller.Submit", func() {
	var (
		reg *tenant.Registry
		q   *queue.Queue
		c   *admission.Controller
	)

	BeforeEach(func() {
		var err error
		reg, err = tenant.Load(writeTenantFixture([]tenant.Tenant{
			{
				TenantID:        "acme",
				RawCapabilities: []domain.Capability{domain.CapabilityLogging},
				RateLimit:       2,
			},
			{TenantID: "suspended-co", Status: tenant.StatusSuspended},
		}))
		Expect(err).NotTo(HaveOccurred())

		q = queue.New(1)
		c = admission.New(reg, ratelimit.New(), registry.New(), q, nil, nil)
	})

	Context("when the tenant is unknown", func() {
		It("rejects with unknown_tenant", func() {
			_, err := c.Submit(admission.Request{TenantID: "ghost", ModuleID: "m"})
			var admErr *domain.AdmissionError
			Expect(err).To(BeAssignableToTypeOf(admErr))
			Expect(err.(*domain.AdmissionError).Kind).To(Equal(domain.ErrUnknownTenant))
		})
	})

	Context("when the tenant is suspended", func() {
		It("rejects with unauthorized_tenant", func() {
			_, err := c.Submit(admission.Request{TenantID: "suspended-co", ModuleID: "m"})
			Expect(err.(*domain.AdmissionError).Kind).To(Equal(domain.ErrUnauthorizedTenant))
		})
	})

	Context("when the job requests a capability the tenant lacks", func() {
		It("rejects with unpermitted_capabilities and lists the offending ones", func() {
			_, err := c.Submit(admission.Request{
				TenantID:     "acme",
				ModuleID:     "m",
				Capabilities: []domain.Capability{domain.CapabilityGPUCompute},
			})
			admErr := err.(*domain.AdmissionError)
			Expect(admErr.Kind).To(Equal(domain.ErrUnpermittedCapabilities))
			Expect(admErr.Offending).To(ConsistOf(domain.CapabilityGPUCompute))
		})
	})

	Context("when a well-formed job is within the tenant's rate limit", func() {
		It("admits the job and hands it off to the queue", func() {
			id, err := c.Submit(admission.Request{TenantID: "acme", ModuleID: "m"})
			Expect(err).NotTo(HaveOccurred())
			Expect(id).NotTo(Equal(uuid.Nil))

			job, ok := q.Recv()
			Expect(ok).To(BeTrue())
			Expect(job.TenantID).To(Equal("acme"))
		})
	})

	Context("when the tenant has exhausted its rate limit", func() {
		It("rejects the job that tips it over the limit", func() {
			_, err := c.Submit(admission.Request{TenantID: "acme", ModuleID: "m"})
			Expect(err).NotTo(HaveOccurred())
			_, ok := q.Recv()
			Expect(ok).To(BeTrue())

			_, err = c.Submit(admission.Request{TenantID: "acme", ModuleID: "m"})
			Expect(err).NotTo(HaveOccurred())
			_, ok = q.Recv()
			Expect(ok).To(BeTrue())

			_, err = c.Submit(admission.Request{TenantID: "acme", ModuleID: "m"})
			Expect(err.(*domain.AdmissionError).Kind).To(Equal(domain.ErrRateLimitExceeded))
		})
	})

	Context("when the hand-off queue is full", func() {
		It("rejects with queue_full and rolls back the rate-limit reservation", func() {
			_, err := c.Submit(admission.Request{TenantID: "acme", ModuleID: "m"})
			Expect(err).NotTo(HaveOccurred())
			// queue capacity is 1 and nothing has drained it yet.
			_, err = c.Submit(admission.Request{TenantID: "acme", ModuleID: "m"})
			Expect(err.(*domain.AdmissionError).Kind).To(Equal(domain.ErrQueueFull))

			// acme's rate limit is 2, so this third submission only fits
			// if the rejected one gave its reservation back.
			_, ok := q.Recv()
			Expect(ok).To(BeTrue())
			_, err = c.Submit(admission.Request{TenantID: "acme", ModuleID: "m"})
			Expect(err).NotTo(HaveOccurred())
		})
	})
})
