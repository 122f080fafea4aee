// Copyright 2025 James Ross
package domain

import "testing"

func TestCloneDeepCopiesSlices(t *testing.T) {
	j := Job{Payload: []byte("x"), Capabilities: []Capability{CapabilityLogging}}
	c := j.Clone()

	c.Payload[0] = 'y'
	c.Capabilities[0] = CapabilityGPUCompute

	if j.Payload[0] != 'x' {
		t.Fatal("expected original payload to be unaffected by mutating the clone")
	}
	if j.Capabilities[0] != CapabilityLogging {
		t.Fatal("expected original capabilities to be unaffected by mutating the clone")
	}
}

func TestHasCapability(t *testing.T) {
	j := Job{Capabilities: []Capability{CapabilityLogging, CapabilityGPUCompute}}
	if !j.HasCapability(CapabilityGPUCompute) {
		t.Fatal("expected gpu.compute to be reported as present")
	}
	if j.HasCapability(CapabilityNetworkEgress) {
		t.Fatal("expected network.egress to be reported as absent")
	}
}

func TestStatusTerminal(t *testing.T) {
	cases := []struct {
		status   Status
		terminal bool
	}{
		{Queued(), false},
		{Running(), false},
		{Finished("ok"), true},
		{Failed("boom"), true},
	}
	for _, c := range cases {
		if got := c.status.Terminal(); got != c.terminal {
			t.Fatalf("status %v: expected terminal=%v, got %v", c.status.Kind, c.terminal, got)
		}
	}
}
