package model

// NodePool is an append-only sequence of nodes that share one spec.
type NodePool struct {
	spec  NodeSpec
	nodes []*Node
}

// NewNodePool returns an empty pool.
func NewNodePool(spec NodeSpec) *NodePool {
	return &NodePool{spec: spec}
}

// Spec returns the spec every node in the pool is created from.
func (p *NodePool) Spec() NodeSpec {
	return p.spec
}

// Grow appends a fresh node and returns it.
func (p *NodePool) Grow() *Node {
	n := NewNode(p.spec)
	p.nodes = append(p.nodes, n)
	return n
}

// Len returns the number of nodes.
func (p *NodePool) Len() int {
	return len(p.nodes)
}

// At returns the node at index i.
func (p *NodePool) At(i int) *Node {
	return p.nodes[i]
}

// Overflows counts nodes over capacity on memory and CPU usage.
func (p *NodePool) Overflows() (mem, cpu int) {
	for _, n := range p.nodes {
		if n.ExceedsMemory() {
			mem++
		}
		if n.ExceedsCPU() {
			cpu++
		}
	}
	return mem, cpu
}

// WorkloadCount returns the total number of workloads across all nodes.
func (p *NodePool) WorkloadCount() int {
	var total int
	for _, n := range p.nodes {
		total += n.WorkloadCount()
	}
	return total
}

// Breakdown snapshots every node in pool order.
func (p *NodePool) Breakdown() []NodeBreakdown {
	out := make([]NodeBreakdown, len(p.nodes))
	for i, n := range p.nodes {
		out[i] = n.Breakdown()
	}
	return out
}
