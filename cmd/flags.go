package cmd

import (
	"github.com/spf13/pflag"
)

func addPopulationFlags(fs *pflag.FlagSet) {
	p := defaults.Population
	fs.Int("total-count", p.TotalCount, "number of workloads in the population")
	fs.Float64("active-fraction", p.ActiveFraction, "fraction of workloads that are active during the workday")
	fs.Float64("active-hours", p.ActiveHoursPerDay, "hours per day an active workload is busy")
	fs.Float64("workday-hours", p.WorkdayHours, "length of the workday in hours")
	fs.Bool("count-pods", false, "take the total count from running pods in the cluster")
}

func addNodeFlags(fs *pflag.FlagSet) {
	n := defaults.Node
	fs.Float64("max-cpu", n.MaxCPU, "node CPU capacity in cores")
	fs.Float64("max-mem", n.MaxMem, "node memory capacity in GiB")
	fs.Float64("system-cpu-request", n.SystemCPURequest, "CPU reserved for system components")
	fs.Float64("system-mem-request", n.SystemMemRequest, "memory in GiB reserved for system components")
	fs.Float64("system-cpu-usage", n.SystemCPUUsage, "CPU used by system components")
	fs.Float64("system-mem-usage", n.SystemMemUsage, "memory in GiB used by system components")
	fs.String("instance-type", "", "resolve the node shape and price from an EC2 instance type")
	fs.String("kube-node", "", "resolve the node shape from a live Kubernetes node")
	fs.Float64("price-per-hour", n.PricePerHour, "hourly price of one node")
	fs.Bool("spot", defaults.AWS.SpotPricing, "price EC2 nodes at the current spot price")
}

func addSimulationFlags(fs *pflag.FlagSet) {
	s := defaults.Simulation
	fs.Int("trials", s.Trials, "number of Monte Carlo trials")
	fs.Uint64("seed", s.Seed, "random seed (0 = wall clock)")
	fs.Int("parallelism", s.Parallelism, "concurrent trials (0 = number of CPUs)")
	fs.String("mode", s.Mode, "placement mode: first-fit-random, best-fit, partition")
	fs.Int("partition-nodes", s.PartitionNodes, "node count in partition mode")
	fs.String("breakdown", s.Breakdown, "keep per-node detail for trials: none, last, all")
	fs.Duration("timeout", s.Timeout, "stop after this long and report completed trials (0 = none)")
	fs.Bool("calibrate", false, "calibrate the population from Prometheus before simulating")
}

func addCalibrationFlags(fs *pflag.FlagSet) {
	c := defaults.Calibration
	fs.String("calibration", c.File, "static calibration JSON written by 'capsim calibrate --write'")
	fs.Duration("window", c.Window, "metrics lookback window")
	fs.Duration("step", c.Step, "metrics query resolution")
	fs.Float64("percentile", c.Percentile, "per-pod usage percentile (0.0-1.0)")
	fs.Float64("active-threshold", c.ActiveCPUThreshold, "CPU cores at the percentile that make a pod active")
	fs.StringSlice("exclude-namespaces", c.ExcludeNamespaces, "namespaces to exclude")
	fs.StringSlice("namespaces", nil, "namespaces to include (default: all)")
	fs.String("label-selector", "", "only count pods matching this label selector")
}
