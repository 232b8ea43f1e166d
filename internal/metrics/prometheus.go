package metrics

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	promapi "github.com/prometheus/client_golang/api"
	promv1 "github.com/prometheus/client_golang/api/prometheus/v1"
	prommodel "github.com/prometheus/common/model"
	"github.com/rs/zerolog"

	"github.com/guimove/capsim/internal/model"
)

const bytesPerGiB = 1 << 30

// queryAPI is the subset of promv1.API the source needs.
type queryAPI interface {
	Query(ctx context.Context, query string, ts time.Time, opts ...promv1.Option) (prommodel.Value, promv1.Warnings, error)
}

// PrometheusSource calibrates from Prometheus, Thanos, or Cortex.
type PrometheusSource struct {
	api      queryAPI
	endpoint string
	backend  string
	timeout  time.Duration
	logger   zerolog.Logger
}

// PrometheusOption configures the Prometheus source.
type PrometheusOption func(*PrometheusSource)

// WithTimeout sets the query timeout.
func WithTimeout(d time.Duration) PrometheusOption {
	return func(s *PrometheusSource) { s.timeout = d }
}

// WithLogger sets the source logger.
func WithLogger(l zerolog.Logger) PrometheusOption {
	return func(s *PrometheusSource) { s.logger = l }
}

// NewPrometheusSource creates a source connected to the given endpoint.
func NewPrometheusSource(endpoint string, opts ...PrometheusOption) (*PrometheusSource, error) {
	client, err := promapi.NewClient(promapi.Config{
		Address: endpoint,
	})
	if err != nil {
		return nil, fmt.Errorf("creating prometheus client: %w", err)
	}
	return newPrometheusSource(promv1.NewAPI(client), endpoint, opts...), nil
}

func newPrometheusSource(api queryAPI, endpoint string, opts ...PrometheusOption) *PrometheusSource {
	s := &PrometheusSource{
		api:      api,
		endpoint: endpoint,
		backend:  "prometheus",
		timeout:  60 * time.Second,
		logger:   zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Ping checks connectivity and detects the backend type.
func (s *PrometheusSource) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if _, _, err := s.api.Query(ctx, "up", time.Now()); err != nil {
		return fmt.Errorf("%w: %v", ErrPrometheusUnreachable, err)
	}

	s.detectBackend(ctx)
	return nil
}

// BackendType returns the detected backend type.
func (s *PrometheusSource) BackendType() string {
	return s.backend
}

// detectBackend tries to identify Thanos or Cortex from their own metrics.
func (s *PrometheusSource) detectBackend(ctx context.Context) {
	result, _, err := s.api.Query(ctx, "thanos_store_nodes_total", time.Now())
	if err == nil && nonEmpty(result) {
		s.backend = "thanos"
		return
	}

	result, _, err = s.api.Query(ctx, "cortex_ingester_active_series", time.Now())
	if err == nil && nonEmpty(result) {
		s.backend = "cortex"
	}
}

func nonEmpty(v prommodel.Value) bool {
	vec, ok := v.(prommodel.Vector)
	return ok && len(vec) > 0
}

// Calibrate queries per-pod usage and requests and reduces them into a
// Calibration. A pod is active when its CPU usage at the configured
// percentile reaches the activity threshold.
func (s *PrometheusSource) Calibrate(ctx context.Context, opts CalibrateOptions) (*Calibration, error) {
	windowStr := formatDuration(opts.Window)
	stepStr := formatDuration(opts.Step)
	if stepStr == "" {
		stepStr = "5m"
	}
	pct := opts.Percentile
	if pct == 0 {
		pct = 0.95
	}
	end := opts.End
	if end.IsZero() {
		end = time.Now()
	}

	type queryResult struct {
		name string
		data prommodel.Value
		err  error
	}

	queries := map[string]string{
		"cpu_usage":    queryCPUPercentile(pct, windowStr, stepStr),
		"mem_usage":    queryMemoryPercentile(pct, windowStr, stepStr),
		"cpu_requests": queryPodResourceRequests("cpu"),
		"mem_requests": queryPodResourceRequests("memory"),
		"running":      queryRunningPods(),
		"pod_owner":    queryPodOwner(),
		"min_nodes":    queryMinNodeCount(windowStr, stepStr),
		"max_nodes":    queryMaxNodeCount(windowStr, stepStr),
	}

	results := make(chan queryResult, len(queries))
	queryCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	for name, q := range queries {
		go func(n, query string) {
			data, warnings, err := s.api.Query(queryCtx, query, end)
			for _, w := range warnings {
				s.logger.Warn().Str("query", n).Msg(w)
			}
			results <- queryResult{name: n, data: data, err: err}
		}(name, q)
	}

	collected := make(map[string]prommodel.Value)
	var errs []string
	for i := 0; i < len(queries); i++ {
		r := <-results
		if r.err != nil {
			errs = append(errs, fmt.Sprintf("%s: %v", r.name, r.err))
			continue
		}
		collected[r.name] = r.data
	}
	if len(errs) > 0 {
		s.logger.Debug().Strs("errors", errs).Msg("some calibration queries failed")
	}

	cal, err := buildCalibration(collected, opts, errs)
	if err != nil {
		return nil, err
	}
	cal.CollectedAt = time.Now()
	cal.Window = opts.Window
	cal.Backend = s.backend
	return cal, nil
}

// podKey creates a unique key for a pod.
type podKey struct {
	Namespace string
	Pod       string
}

// classTotals accumulates footprints for one class.
type classTotals struct {
	n   int
	sum model.Footprint
}

func (t *classTotals) add(f model.Footprint) {
	t.n++
	t.sum = t.sum.Add(f)
}

func (t *classTotals) mean() model.Footprint {
	if t.n == 0 {
		return model.Footprint{}
	}
	n := float64(t.n)
	return model.Footprint{
		CPURequest: t.sum.CPURequest / n,
		MemRequest: t.sum.MemRequest / n,
		CPUUsage:   t.sum.CPUUsage / n,
		MemUsage:   t.sum.MemUsage / n,
	}
}

// buildCalibration assembles the Calibration from query results.
func buildCalibration(
	data map[string]prommodel.Value,
	opts CalibrateOptions,
	queryErrors []string,
) (*Calibration, error) {
	cpuUsage := extractVector(data["cpu_usage"])
	memUsage := extractVector(data["mem_usage"])
	cpuReq := extractVector(data["cpu_requests"])
	memReq := extractVector(data["mem_requests"])
	running := extractVector(data["running"])
	owners := extractOwnerInfo(data["pod_owner"])

	// The running set is authoritative when kube-state-metrics reports it.
	allPods := make(map[podKey]bool)
	if len(running) > 0 {
		for k := range running {
			allPods[k] = true
		}
	} else {
		for _, m := range []map[podKey]float64{cpuUsage, memUsage, cpuReq} {
			for k := range m {
				allPods[k] = true
			}
		}
	}

	if len(allPods) == 0 {
		errDetail := ""
		if len(queryErrors) > 0 {
			errDetail = "; query errors: " + strings.Join(queryErrors, ", ")
		}
		return nil, fmt.Errorf("%w%s", ErrNoMetricsFound, errDetail)
	}

	include := toSet(opts.Namespaces)
	exclude := toSet(opts.ExcludeNamespaces)

	var cal Calibration
	var idle, active classTotals

	for pk := range allPods {
		if exclude[pk.Namespace] || (len(include) > 0 && !include[pk.Namespace]) {
			continue
		}
		if owner, ok := owners[pk]; ok && owner.Kind == "DaemonSet" {
			cal.DaemonSetPods++
			continue
		}

		cpu, hasCPU := cpuUsage[pk]
		mem, hasMem := memUsage[pk]
		f := model.Footprint{
			CPURequest: cpuReq[pk],
			MemRequest: memReq[pk] / bytesPerGiB,
			CPUUsage:   cpu,
			MemUsage:   mem / bytesPerGiB,
		}

		if !hasCPU && !hasMem {
			// No samples: assume it uses what it asks for, and is idle.
			cal.NoMetricsPods++
			f.CPUUsage = f.CPURequest
			f.MemUsage = f.MemRequest
			idle.add(f)
			continue
		}

		if cpu >= opts.ActiveCPUThreshold {
			active.add(f)
		} else {
			idle.add(f)
		}
	}

	cal.TotalCount = idle.n + active.n
	if cal.TotalCount == 0 {
		return nil, fmt.Errorf("%w: every pod was filtered out", ErrNoMetricsFound)
	}
	cal.ActiveCount = active.n
	cal.ActiveFraction = float64(active.n) / float64(cal.TotalCount)
	cal.Idle = idle.mean()
	cal.Active = active.mean()
	cal.ObservedMinNodes = extractScalar(data["min_nodes"])
	cal.ObservedMaxNodes = extractScalar(data["max_nodes"])

	return &cal, nil
}

// ownerInfo holds parsed pod owner reference data.
type ownerInfo struct {
	Kind string
	Name string
}

// extractVector converts a Prometheus Value to a map of (namespace, pod) → float64.
func extractVector(v prommodel.Value) map[podKey]float64 {
	result := make(map[podKey]float64)
	if v == nil {
		return result
	}

	vec, ok := v.(prommodel.Vector)
	if !ok {
		return result
	}

	for _, sample := range vec {
		ns := string(sample.Metric["namespace"])
		pod := string(sample.Metric["pod"])
		if ns == "" || pod == "" {
			continue
		}
		result[podKey{ns, pod}] = float64(sample.Value)
	}
	return result
}

// extractScalar reads a single-sample vector as an integer count.
func extractScalar(v prommodel.Value) int {
	vec, ok := v.(prommodel.Vector)
	if !ok || len(vec) == 0 {
		return 0
	}
	return int(math.Round(float64(vec[0].Value)))
}

// extractOwnerInfo parses pod owner references from kube_pod_owner metric.
func extractOwnerInfo(v prommodel.Value) map[podKey]ownerInfo {
	result := make(map[podKey]ownerInfo)
	if v == nil {
		return result
	}

	vec, ok := v.(prommodel.Vector)
	if !ok {
		return result
	}

	for _, sample := range vec {
		ns := string(sample.Metric["namespace"])
		pod := string(sample.Metric["pod"])
		kind := string(sample.Metric["owner_kind"])
		name := string(sample.Metric["owner_name"])
		if ns == "" || pod == "" {
			continue
		}
		result[podKey{ns, pod}] = ownerInfo{Kind: kind, Name: name}
	}
	return result
}

func toSet(items []string) map[string]bool {
	set := make(map[string]bool, len(items))
	for _, s := range items {
		set[s] = true
	}
	return set
}

// formatDuration formats a time.Duration to a Prometheus-compatible duration string.
func formatDuration(d time.Duration) string {
	if d == 0 {
		return ""
	}
	hours := int(d.Hours())
	if hours >= 24 && hours%24 == 0 {
		return fmt.Sprintf("%dd", hours/24)
	}
	if hours > 0 {
		return fmt.Sprintf("%dh", hours)
	}
	minutes := int(d.Minutes())
	if minutes > 0 {
		return fmt.Sprintf("%dm", minutes)
	}
	return fmt.Sprintf("%ds", int(d.Seconds()))
}
