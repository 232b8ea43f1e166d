package model

// Population holds the aggregate statistics a workload population is
// synthesized from.
type Population struct {
	TotalCount        int     `json:"total_count"`
	ActiveFraction    float64 `json:"active_fraction"`
	ActiveHoursPerDay float64 `json:"active_hours_per_day"`
	WorkdayHours      float64 `json:"workday_hours"`
}

// NodeCapacity is a node shape resolved from an external source such as an
// EC2 instance type or a live Kubernetes node.
type NodeCapacity struct {
	Name   string `json:"name"`
	Source string `json:"source"` // "aws" or "kubernetes"

	// Raw capacity (cores, GiB)
	CPU float64 `json:"cpu"`
	Mem float64 `json:"mem"`

	// Capacity held back for the kubelet and OS
	SystemRequest Resources `json:"system_request"`

	Architecture string `json:"architecture,omitempty"`
	MaxPods      int    `json:"max_pods,omitempty"`

	PricePerHour     float64 `json:"price_per_hour,omitempty"`
	SpotPricePerHour float64 `json:"spot_price_per_hour,omitempty"`
}

// Allocatable returns the capacity left for workloads.
func (nc NodeCapacity) Allocatable() Resources {
	return Resources{CPU: nc.CPU, Mem: nc.Mem}.Sub(nc.SystemRequest)
}

// MonthlyCost returns the estimated monthly cost of one node.
func (nc NodeCapacity) MonthlyCost() float64 {
	return nc.PricePerHour * HoursPerMonth
}
