package model

import (
	"errors"
	"strings"
	"testing"
)

func TestResources_Add(t *testing.T) {
	a := Resources{CPU: 0.5, Mem: 1}
	b := Resources{CPU: 0.25, Mem: 2}
	result := a.Add(b)

	if result.CPU != 0.75 {
		t.Errorf("CPU: got %v, want 0.75", result.CPU)
	}
	if result.Mem != 3 {
		t.Errorf("Mem: got %v, want 3", result.Mem)
	}
}

func TestResources_FitsIn(t *testing.T) {
	tests := []struct {
		name     string
		r        Resources
		capacity Resources
		want     bool
	}{
		{"exact fit", Resources{4, 16}, Resources{4, 16}, true},
		{"smaller", Resources{1, 2}, Resources{4, 16}, true},
		{"cpu exceeds", Resources{5, 2}, Resources{4, 16}, false},
		{"mem exceeds", Resources{1, 17}, Resources{4, 16}, false},
		{"both exceed", Resources{5, 17}, Resources{4, 16}, false},
		{"zero fits anything", Resources{0, 0}, Resources{4, 16}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.r.FitsIn(tt.capacity); got != tt.want {
				t.Errorf("FitsIn() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestClassProfile_SumsManager(t *testing.T) {
	cp := ClassProfile{
		Executor: Footprint{CPURequest: 1, MemRequest: 2, CPUUsage: 0.5, MemUsage: 1.5},
		Manager:  Footprint{CPURequest: 0.25, MemRequest: 0.5, CPUUsage: 0.125, MemUsage: 0.25},
	}
	p := cp.Profile(ClassActive)

	if p.Class != ClassActive {
		t.Errorf("Class = %q, want active", p.Class)
	}
	if p.Request != (Resources{CPU: 1.25, Mem: 2.5}) {
		t.Errorf("Request = %+v", p.Request)
	}
	if p.Usage != (Resources{CPU: 0.625, Mem: 1.75}) {
		t.Errorf("Usage = %+v", p.Usage)
	}
}

func TestFootprint_Validate(t *testing.T) {
	if err := (Footprint{}).Validate(); err != nil {
		t.Errorf("zero footprint should be valid: %v", err)
	}
	if err := (Footprint{MemUsage: -1}).Validate(); err == nil {
		t.Error("expected error for negative mem_usage")
	}
}

func unit(class Class) Workload {
	return Workload{Class: class, Request: Resources{1, 1}, Usage: Resources{1, 1}}
}

func TestNode_TryAdmit(t *testing.T) {
	n := NewNode(NodeSpec{MaxCPU: 4, MaxMem: 4})

	for i := 0; i < 4; i++ {
		if !n.TryAdmit(unit(ClassActive)) {
			t.Fatalf("admission %d refused", i)
		}
	}
	if n.TryAdmit(unit(ClassActive)) {
		t.Error("fifth unit workload should not fit on a 4/4 node")
	}
	if got := n.WorkloadCount(); got != 4 {
		t.Errorf("WorkloadCount() = %d, want 4", got)
	}
}

func TestNode_FailedAdmitLeavesStateUnchanged(t *testing.T) {
	n := NewNode(NodeSpec{
		MaxCPU:        4,
		MaxMem:        8,
		SystemRequest: Resources{CPU: 0.5, Mem: 1},
		SystemUsage:   Resources{CPU: 0.25, Mem: 0.5},
	})
	n.TryAdmit(Workload{Class: ClassIdle, Request: Resources{1, 1}, Usage: Resources{0.1, 0.2}})

	before := *n
	beforeComps := len(n.Components)

	tests := []Workload{
		{Class: ClassActive, Request: Resources{CPU: 3}},
		{Class: ClassActive, Request: Resources{Mem: 7}},
		{Class: ClassActive, Request: Resources{CPU: 10, Mem: 10}},
	}
	for _, w := range tests {
		if n.TryAdmit(w) {
			t.Fatalf("TryAdmit(%+v) should fail", w.Request)
		}
		if n.Requested != before.Requested || n.Used != before.Used {
			t.Errorf("state changed on failed admit: %+v/%+v -> %+v/%+v",
				before.Requested, before.Used, n.Requested, n.Used)
		}
		if len(n.Components) != beforeComps {
			t.Errorf("components changed on failed admit: %d -> %d", beforeComps, len(n.Components))
		}
	}
}

func TestNode_UsageMayExceedCapacity(t *testing.T) {
	n := NewNode(NodeSpec{MaxCPU: 4, MaxMem: 4})
	heavy := Workload{Class: ClassActive, Request: Resources{1, 1}, Usage: Resources{CPU: 0.5, Mem: 3}}

	if !n.TryAdmit(heavy) || !n.TryAdmit(heavy) {
		t.Fatal("requests fit, both should be admitted")
	}
	if !n.ExceedsMemory() {
		t.Errorf("used mem %v should exceed 4", n.Used.Mem)
	}
	if n.ExceedsCPU() {
		t.Errorf("used cpu %v should not exceed 4", n.Used.CPU)
	}
}

func TestNode_ExceedsIsStrict(t *testing.T) {
	n := NewNode(NodeSpec{MaxCPU: 2, MaxMem: 2})
	n.Place(Workload{Usage: Resources{CPU: 2, Mem: 2}})
	if n.ExceedsCPU() || n.ExceedsMemory() {
		t.Error("usage equal to capacity is not an overflow")
	}
}

func TestNodePool_Grow(t *testing.T) {
	spec := NodeSpec{MaxCPU: 4, MaxMem: 4, SystemUsage: Resources{Mem: 0.5}}
	p := NewNodePool(spec)
	if p.Len() != 0 {
		t.Fatalf("new pool should be empty, got %d", p.Len())
	}

	n := p.Grow()
	p.Grow()
	if p.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", p.Len())
	}
	if p.At(0) != n {
		t.Error("At(0) should return the first grown node")
	}
	if n.Used.Mem != 0.5 {
		t.Errorf("fresh node should carry system usage, got %v", n.Used.Mem)
	}
}

func TestNodePool_OverflowsAndBreakdown(t *testing.T) {
	p := NewNodePool(NodeSpec{MaxCPU: 1, MaxMem: 1})
	a := p.Grow()
	a.Place(Workload{Class: ClassActive, Usage: Resources{CPU: 2, Mem: 0.5}})
	b := p.Grow()
	b.Place(Workload{Class: ClassIdle, Usage: Resources{CPU: 0.5, Mem: 2}})
	b.Place(Workload{Class: ClassIdle, Usage: Resources{CPU: 0.1, Mem: 0.1}})

	mem, cpu := p.Overflows()
	if mem != 1 || cpu != 1 {
		t.Errorf("Overflows() = %d, %d, want 1, 1", mem, cpu)
	}
	if got := p.WorkloadCount(); got != 3 {
		t.Errorf("WorkloadCount() = %d, want 3", got)
	}

	bd := p.Breakdown()
	if len(bd) != 2 || len(bd[1].Components) != 2 {
		t.Fatalf("unexpected breakdown %+v", bd)
	}
	if !bd[0].OverCPU || !bd[1].OverMemory {
		t.Errorf("breakdown flags wrong: %+v", bd)
	}

	// Breakdown is a snapshot.
	b.Place(Workload{Class: ClassIdle})
	if len(bd[1].Components) != 2 {
		t.Error("breakdown should not alias node components")
	}
}

func TestTrialOutcome_Fractions(t *testing.T) {
	o := TrialOutcome{NodeCount: 4, OverflowMemCount: 1, OverflowCPUCount: 4}
	if got := o.MemOverflowFraction(); got != 0.25 {
		t.Errorf("MemOverflowFraction() = %v, want 0.25", got)
	}
	if got := o.CPUOverflowFraction(); got != 1 {
		t.Errorf("CPUOverflowFraction() = %v, want 1", got)
	}

	var empty TrialOutcome
	if empty.MemOverflowFraction() != 0 || empty.CPUOverflowFraction() != 0 {
		t.Error("empty outcome should report zero fractions")
	}
}

func TestUnplaceableError(t *testing.T) {
	err := error(&UnplaceableError{
		Workload: Workload{Class: ClassActive, Request: Resources{CPU: 8, Mem: 1}},
		Spec:     NodeSpec{MaxCPU: 4, MaxMem: 16},
	})

	if !errors.Is(err, ErrUnplaceableWorkload) {
		t.Error("UnplaceableError should match ErrUnplaceableWorkload")
	}
	if !strings.Contains(err.Error(), "cpu=8") {
		t.Errorf("error should mention the request, got %q", err.Error())
	}
}

func TestInvalidf(t *testing.T) {
	err := Invalidf("trials must be positive, got %d", 0)
	if !errors.Is(err, ErrInvalidConfiguration) {
		t.Error("Invalidf should wrap ErrInvalidConfiguration")
	}
}

func TestNodeCapacity_Allocatable(t *testing.T) {
	nc := NodeCapacity{CPU: 4, Mem: 16, SystemRequest: Resources{CPU: 0.08, Mem: 1.5}, PricePerHour: 0.1}

	alloc := nc.Allocatable()
	if alloc.CPU != 4-0.08 || alloc.Mem != 14.5 {
		t.Errorf("Allocatable() = %+v", alloc)
	}
	if got := nc.MonthlyCost(); got != 0.1*730.0 {
		t.Errorf("MonthlyCost() = %v, want %v", got, 0.1*730.0)
	}
}
