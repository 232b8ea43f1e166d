package metrics

import "fmt"

// Calibration reads cAdvisor series for observed usage and kube-state-metrics
// series for requests, phase and ownership. Thanos and Cortex serve the same
// names.

// queryCPUPercentile yields each pod's CPU usage, in cores, at percentile
// over window. The result becomes Footprint.CPUUsage.
func queryCPUPercentile(percentile float64, window, step string) string {
	return fmt.Sprintf(`quantile_over_time(%g,
  sum by (namespace, pod) (
    rate(container_cpu_usage_seconds_total{
      container!="",
      container!="POD",
      image!=""
    }[5m])
  )[%s:%s]
)`, percentile, window, step)
}

// queryMemoryPercentile is the working-set counterpart, in bytes.
func queryMemoryPercentile(percentile float64, window, step string) string {
	return fmt.Sprintf(`quantile_over_time(%g,
  sum by (namespace, pod) (
    container_memory_working_set_bytes{
      container!="",
      container!="POD",
      image!=""
    }
  )[%s:%s]
)`, percentile, window, step)
}

// queryPodResourceRequests sums declared requests per pod for "cpu" or "memory".
func queryPodResourceRequests(resource string) string {
	return fmt.Sprintf(`sum by (namespace, pod) (
  kube_pod_container_resource_requests{resource="%s"}
)`, resource)
}

// queryRunningPods is an instant snapshot. Pods that ran earlier in the
// window still contribute usage samples.
func queryRunningPods() string {
	return `kube_pod_status_phase{phase="Running"} == 1`
}

// DaemonSet pods are dropped by owner kind.
func queryPodOwner() string {
	return `kube_pod_owner{}`
}

// queryMinNodeCount and queryMaxNodeCount bound the cluster size seen over
// the window. The calibrate command prints the range.
func queryMinNodeCount(window, step string) string {
	return fmt.Sprintf(`min_over_time(count(kube_node_info)[%s:%s])`, window, step)
}

func queryMaxNodeCount(window, step string) string {
	return fmt.Sprintf(`max_over_time(count(kube_node_info)[%s:%s])`, window, step)
}
