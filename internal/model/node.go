package model

// NodeSpec is the capacity and fixed system overhead shared by every node
// in a trial.
type NodeSpec struct {
	MaxCPU float64 `json:"max_cpu"`
	MaxMem float64 `json:"max_mem"`

	// Reserved by the node itself before any workload lands on it.
	SystemRequest Resources `json:"system_request"`
	SystemUsage   Resources `json:"system_usage"`
}

// Capacity returns the capacity as Resources.
func (s NodeSpec) Capacity() Resources {
	return Resources{CPU: s.MaxCPU, Mem: s.MaxMem}
}

// Component is one admitted workload's contribution to a node, kept for
// rendering stacked usage bars.
type Component struct {
	Class Class     `json:"class"`
	Usage Resources `json:"usage"`
}

// Node accumulates committed requests and actual usage.
type Node struct {
	Spec       NodeSpec
	Requested  Resources
	Used       Resources
	Components []Component
}

// NewNode returns a node carrying only the system overhead.
func NewNode(spec NodeSpec) *Node {
	return &Node{
		Spec:      spec,
		Requested: spec.SystemRequest,
		Used:      spec.SystemUsage,
	}
}

// TryAdmit places w on the node if its request fits on both dimensions.
// The node is left untouched when it returns false.
func (n *Node) TryAdmit(w Workload) bool {
	if !n.Requested.Add(w.Request).FitsIn(n.Spec.Capacity()) {
		return false
	}
	n.Requested = n.Requested.Add(w.Request)
	n.Used = n.Used.Add(w.Usage)
	n.Components = append(n.Components, Component{Class: w.Class, Usage: w.Usage})
	return true
}

// Place charges w to the node without an admission check.
func (n *Node) Place(w Workload) {
	n.Requested = n.Requested.Add(w.Request)
	n.Used = n.Used.Add(w.Usage)
	n.Components = append(n.Components, Component{Class: w.Class, Usage: w.Usage})
}

// ExceedsMemory reports whether actual memory usage is over capacity.
func (n *Node) ExceedsMemory() bool {
	return n.Used.Mem > n.Spec.MaxMem
}

// ExceedsCPU reports whether actual CPU usage is over capacity.
func (n *Node) ExceedsCPU() bool {
	return n.Used.CPU > n.Spec.MaxCPU
}

// WorkloadCount returns the number of workloads admitted.
func (n *Node) WorkloadCount() int {
	return len(n.Components)
}

// Breakdown snapshots the node for reporting.
func (n *Node) Breakdown() NodeBreakdown {
	comps := make([]Component, len(n.Components))
	copy(comps, n.Components)
	return NodeBreakdown{
		Requested:     n.Requested,
		Used:          n.Used,
		SystemUsage:   n.Spec.SystemUsage,
		Components:    comps,
		OverMemory:    n.ExceedsMemory(),
		OverCPU:       n.ExceedsCPU(),
		MemoryCeiling: n.Spec.MaxMem,
		CPUCeiling:    n.Spec.MaxCPU,
	}
}

// NodeBreakdown is the per-node detail an external chart renders: stacked
// components on top of system usage, against the capacity line.
type NodeBreakdown struct {
	Requested     Resources   `json:"requested"`
	Used          Resources   `json:"used"`
	SystemUsage   Resources   `json:"system_usage"`
	Components    []Component `json:"components"`
	OverMemory    bool        `json:"over_memory"`
	OverCPU       bool        `json:"over_cpu"`
	MemoryCeiling float64     `json:"memory_ceiling"`
	CPUCeiling    float64     `json:"cpu_ceiling"`
}
