package model

import (
	"fmt"
	"math"
)

// Class tags a workload as active or idle.
type Class string

const (
	ClassActive Class = "active"
	ClassIdle   Class = "idle"
)

// Footprint is the request and usage of one workload component
// (an executor or its manager).
type Footprint struct {
	CPURequest float64 `json:"cpu_request" mapstructure:"cpu_request"`
	MemRequest float64 `json:"mem_request" mapstructure:"mem_request"`
	CPUUsage   float64 `json:"cpu_usage" mapstructure:"cpu_usage"`
	MemUsage   float64 `json:"mem_usage" mapstructure:"mem_usage"`
}

// Add returns the component-wise sum of two footprints.
func (f Footprint) Add(other Footprint) Footprint {
	return Footprint{
		CPURequest: f.CPURequest + other.CPURequest,
		MemRequest: f.MemRequest + other.MemRequest,
		CPUUsage:   f.CPUUsage + other.CPUUsage,
		MemUsage:   f.MemUsage + other.MemUsage,
	}
}

// Validate rejects negative or NaN fields.
func (f Footprint) Validate() error {
	switch {
	case math.IsNaN(f.CPURequest) || f.CPURequest < 0:
		return fmt.Errorf("cpu_request must be non-negative, got %v", f.CPURequest)
	case math.IsNaN(f.MemRequest) || f.MemRequest < 0:
		return fmt.Errorf("mem_request must be non-negative, got %v", f.MemRequest)
	case math.IsNaN(f.CPUUsage) || f.CPUUsage < 0:
		return fmt.Errorf("cpu_usage must be non-negative, got %v", f.CPUUsage)
	case math.IsNaN(f.MemUsage) || f.MemUsage < 0:
		return fmt.Errorf("mem_usage must be non-negative, got %v", f.MemUsage)
	}
	return nil
}

// ClassProfile describes one workload class as an executor plus the manager
// that runs alongside it. Both are charged to the same node.
type ClassProfile struct {
	Executor Footprint `json:"executor" mapstructure:"executor"`
	Manager  Footprint `json:"manager" mapstructure:"manager"`
}

// Profile collapses the executor and manager into a single WorkloadProfile.
func (cp ClassProfile) Profile(class Class) WorkloadProfile {
	sum := cp.Executor.Add(cp.Manager)
	return WorkloadProfile{
		Class:   class,
		Request: Resources{CPU: sum.CPURequest, Mem: sum.MemRequest},
		Usage:   Resources{CPU: sum.CPUUsage, Mem: sum.MemUsage},
	}
}

// WorkloadProfile is the immutable resource footprint of a workload class.
// Request is what the orchestrator reserves; Usage is what the workload
// actually consumes.
type WorkloadProfile struct {
	Class   Class     `json:"class"`
	Request Resources `json:"request"`
	Usage   Resources `json:"usage"`
}

// Workload is one member of the synthetic population.
type Workload struct {
	Class   Class     `json:"class"`
	Request Resources `json:"request"`
	Usage   Resources `json:"usage"`
}

// NewWorkload copies a profile into a concrete workload.
func NewWorkload(p WorkloadProfile) Workload {
	return Workload{Class: p.Class, Request: p.Request, Usage: p.Usage}
}

// CountByClass returns the number of active and idle workloads.
func CountByClass(workloads []Workload) (active, idle int) {
	for i := range workloads {
		if workloads[i].Class == ClassActive {
			active++
		} else {
			idle++
		}
	}
	return active, idle
}
